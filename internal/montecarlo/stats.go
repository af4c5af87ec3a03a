package montecarlo

import (
	"math"
	"sort"
	"time"

	"github.com/katanaflow/heftsim/pkg/models"
)

var percentileKeys = []int{10, 25, 50, 75, 90, 95}

// Summarize computes the batch-level BatchStatistics over a simulation
// batch's records, aggregating the efficiency ratio R = actual/theoretical
// (spec.md §4.4). records must be non-empty.
func Summarize(records []models.SimulationRecord, bins int) models.BatchStatistics {
	n := len(records)
	ratios := make([]float64, n)
	var theoreticalSum time.Duration
	for i, r := range records {
		ratios[i] = r.Ratio()
		theoreticalSum += r.Theoretical
	}
	sort.Float64s(ratios)

	var sum float64
	for _, r := range ratios {
		sum += r
	}
	mean := sum / float64(n)

	var variance float64
	for _, r := range ratios {
		d := r - mean
		variance += d * d
	}
	variance /= float64(n)

	stats := models.BatchStatistics{
		Count:           n,
		Mean:            mean,
		Median:          percentile(ratios, 50),
		Min:             ratios[0],
		Max:             ratios[n-1],
		StdDev:          math.Sqrt(variance),
		Percentiles:     make(map[int]float64, len(percentileKeys)),
		CDF:             make([]models.CDFPoint, n),
		TheoreticalMean: theoreticalSum / time.Duration(n),
	}
	for _, p := range percentileKeys {
		stats.Percentiles[p] = percentile(ratios, p)
	}
	for i, r := range ratios {
		stats.CDF[i] = models.CDFPoint{Value: r, Rank: float64(i+1) / float64(n)}
	}
	stats.Histogram = buildHistogram(ratios, bins)
	return stats
}

// percentile uses linear interpolation between closest ranks over a
// pre-sorted ascending slice.
func percentile(sorted []float64, p int) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	rank := float64(p) / 100 * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// buildHistogram bins sorted (already ascending) values into bins
// equal-width buckets spanning [min,max]. A degenerate range (min==max)
// collapses to a single bin holding every value (spec.md §4.4).
func buildHistogram(sorted []float64, bins int) models.Histogram {
	if bins <= 0 {
		bins = 30
	}
	min, max := sorted[0], sorted[len(sorted)-1]
	if min == max {
		return models.Histogram{Min: min, Max: max, Counts: []int{len(sorted)}}
	}

	width := (max - min) / float64(bins)
	counts := make([]int, bins)
	for _, r := range sorted {
		idx := int((r - min) / width)
		if idx >= bins {
			idx = bins - 1
		}
		if idx < 0 {
			idx = 0
		}
		counts[idx]++
	}
	return models.Histogram{BinWidth: width, Min: min, Max: max, Counts: counts}
}

// TheoreticalValidation compares the batch's observed mean theoretical
// runtime against the closed-form expectation (shape*scale)*meanCPLength
// (spec.md §4.4's "theoretical validation" check).
func TheoreticalValidation(observedMeanTheoretical time.Duration, shape, scale, meanCPLength float64) (observed time.Duration, expected time.Duration) {
	return observedMeanTheoretical, time.Duration(shape * scale * meanCPLength * float64(time.Second))
}
