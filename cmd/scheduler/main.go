package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/katanaflow/heftsim/internal/montecarlo"
	"github.com/katanaflow/heftsim/internal/scheduler"
	"github.com/katanaflow/heftsim/internal/solver"
	"github.com/katanaflow/heftsim/internal/storage"
	"github.com/katanaflow/heftsim/pkg/models"
)

const version = "0.3.0"

var (
	dbHost     = flag.String("db-host", getEnv("DB_HOST", "localhost"), "Database host")
	dbPort     = flag.String("db-port", getEnv("DB_PORT", "5432"), "Database port")
	dbUser     = flag.String("db-user", getEnv("DB_USER", "heftsim"), "Database user")
	dbPassword = flag.String("db-password", getEnv("DB_PASSWORD", "heftsim_dev_password"), "Database password")
	dbName     = flag.String("db-name", getEnv("DB_NAME", "heftsim"), "Database name")

	redisHost     = flag.String("redis-host", getEnv("REDIS_HOST", "localhost"), "Redis host")
	redisPort     = flag.String("redis-port", getEnv("REDIS_PORT", "6379"), "Redis port")
	redisPassword = flag.String("redis-password", getEnv("REDIS_PASSWORD", ""), "Redis password")
	redisDB       = flag.Int("redis-db", 0, "Redis database")

	scheduleFile = flag.String("schedule-file", getEnv("SCHEDULE_FILE", "./schedule.yaml"), "Path to the recurring-batch YAML config")
	timezone     = flag.String("timezone", "UTC", "Default timezone for schedules")
)

func main() {
	flag.Parse()

	log.Printf("Starting heftsim batch scheduler v%s", version)

	location, err := time.LoadLocation(*timezone)
	if err != nil {
		log.Fatalf("Invalid timezone: %v", err)
	}

	db, err := initDatabase()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	log.Println("Database connection established")

	redisClient := initRedis()
	if redisClient != nil {
		defer redisClient.Close()
		log.Println("Redis connection established")
	}

	topologyRepo := storage.NewTopologyRepository(db.DB)
	recordRepo := storage.NewSimulationRepository(db.DB)
	solverClient := solver.NewClient(solver.DefaultConfig())

	var batchCache *montecarlo.BatchCache
	if redisClient != nil {
		cacheCfg := montecarlo.DefaultBatchCacheConfig(redisClient)
		batchCache = montecarlo.NewBatchCache(cacheCfg)
	}

	entries, err := loadScheduleConfig(*scheduleFile)
	if err != nil {
		log.Fatalf("Failed to load schedule config: %v", err)
	}
	if len(entries) == 0 {
		log.Printf("No scheduled batches found in %s; scheduler will idle", *scheduleFile)
	}

	byName := make(map[string]ScheduledBatchConfig, len(entries))
	for _, e := range entries {
		byName[e.Name] = e
	}

	runBatch := func(name string, firedAt time.Time) error {
		entry, ok := byName[name]
		if !ok {
			return fmt.Errorf("unknown batch %s", name)
		}
		return runScheduledBatch(context.Background(), entry, topologyRepo, recordRepo, batchCache, solverClient)
	}

	batchScheduler := NewBatchScheduler(location, runBatch)
	for _, e := range entries {
		if err := batchScheduler.AddBatch(e.Name, e.Cron); err != nil {
			log.Fatalf("Failed to register batch %s: %v", e.Name, err)
		}
		log.Printf("Registered batch %q (topology=%s, algorithm=%s, cron=%q)", e.Name, e.TopologyID, e.Algorithm, e.Cron)
	}

	batchScheduler.Start()
	log.Println("Scheduler started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.Printf("Received signal %v, initiating graceful shutdown...", sig)

	batchScheduler.Stop()

	sqlDB, _ := db.DB.DB()
	if sqlDB != nil {
		sqlDB.Close()
	}

	log.Println("Scheduler stopped gracefully")
}

// runScheduledBatch runs one configured batch to completion and persists
// it — the same pipeline pkg/api/handlers.BatchHandler.Simulate drives
// from an HTTP request, driven here from a cron tick instead.
func runScheduledBatch(
	ctx context.Context,
	entry ScheduledBatchConfig,
	topologyRepo storage.WorkflowTopologyRepository,
	recordRepo storage.SimulationRecordRepository,
	batchCache *montecarlo.BatchCache,
	solverClient *solver.Client,
) error {
	topology, err := topologyRepo.Get(ctx, entry.TopologyID)
	if err != nil {
		return fmt.Errorf("get topology %s: %w", entry.TopologyID, err)
	}

	algorithm := models.Algorithm(entry.Algorithm)
	if !algorithm.Valid() {
		return fmt.Errorf("unknown algorithm: %s", entry.Algorithm)
	}

	workers := make([]*models.Worker, entry.WorkerCount)
	for i := range workers {
		workers[i] = &models.Worker{ID: fmt.Sprintf("worker-%d", i), CriticalPathWorker: i == 0}
	}

	var sched scheduler.Scheduler
	if algorithm == models.AlgorithmODPIP {
		if solverClient == nil {
			return fmt.Errorf("odp_ip requires a configured solver client")
		}
		partition, err := solver.ResolvePartition(ctx, solverClient, topology, entry.IncludeTransferInCPM)
		if err != nil {
			return fmt.Errorf("resolve partition: %w", err)
		}
		sched = scheduler.NewODPIP(partition)
	}

	cfg := montecarlo.BatchConfig{
		Template:             topology,
		Workers:              workers,
		Algorithm:            algorithm,
		Scheduler:            sched,
		UseTransferTime:      entry.UseTransferTime,
		IncludeTransferInCPM: entry.IncludeTransferInCPM,
		N:                    entry.Simulations,
	}

	var runner montecarlo.Runner
	if entry.Parallel {
		runner = montecarlo.NewParallelRunner(entry.Concurrency)
	} else {
		runner = montecarlo.NewSequentialRunner()
	}

	records, err := runner.Run(ctx, cfg)
	if err != nil {
		return fmt.Errorf("run batch: %w", err)
	}

	batchID := uuid.New().String()
	if err := recordRepo.CreateBatch(ctx, batchID, entry.TopologyID, records); err != nil {
		return fmt.Errorf("persist batch: %w", err)
	}

	if batchCache != nil {
		stats := montecarlo.Summarize(records, 20)
		_ = batchCache.StoreResult(ctx, batchID, stats)
	}

	log.Printf("Batch %q completed: %d records persisted as batch %s", entry.Name, len(records), batchID)
	return nil
}

func initDatabase() (*storage.DB, error) {
	config := &storage.Config{
		Host:        *dbHost,
		Port:        *dbPort,
		User:        *dbUser,
		Password:    *dbPassword,
		DBName:      *dbName,
		SSLMode:     "disable",
		MaxConns:    25,
		MinConns:    5,
		MaxIdleTime: 5 * time.Minute,
		MaxLifetime: 30 * time.Minute,
	}

	db, err := storage.NewDB(config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	migrateConfig := &storage.MigrateConfig{
		Host:     *dbHost,
		Port:     *dbPort,
		User:     *dbUser,
		Password: *dbPassword,
		DBName:   *dbName,
		SSLMode:  "disable",
	}
	if err := storage.RunMigrations(migrateConfig, "./migrations"); err != nil {
		log.Printf("Warning: Failed to run migrations (migrations directory may not exist): %v", err)
	}

	return db, nil
}

func initRedis() *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", *redisHost, *redisPort),
		Password: *redisPassword,
		DB:       *redisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis connection failed: %v", err)
		return nil
	}
	return client
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
