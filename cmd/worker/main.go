package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/katanaflow/heftsim/internal/batchqueue"
	"github.com/katanaflow/heftsim/internal/solver"
	"github.com/katanaflow/heftsim/internal/storage"
)

const version = "0.4.0"

func main() {
	natsURL := flag.String("nats", os.Getenv("NATS_URL"), "NATS server URL")
	concurrency := flag.Int("concurrency", 5, "Per-batch simulation concurrency")
	flag.Parse()

	if *natsURL == "" {
		*natsURL = "nats://localhost:4222"
	}

	log.Printf("Starting heftsim batch worker v%s", version)
	log.Printf("NATS URL: %s", *natsURL)
	log.Printf("Per-batch concurrency: %d", *concurrency)

	dbCfg := &storage.Config{
		Host:        getEnv("DB_HOST", "localhost"),
		Port:        getEnv("DB_PORT", "5432"),
		User:        getEnv("DB_USER", "heftsim"),
		Password:    getEnv("DB_PASSWORD", "heftsim_dev_password"),
		DBName:      getEnv("DB_NAME", "heftsim"),
		SSLMode:     getEnv("DB_SSLMODE", "disable"),
		MaxConns:    10,
		MinConns:    2,
		MaxIdleTime: 5 * time.Minute,
		MaxLifetime: 30 * time.Minute,
	}

	db, err := storage.NewDB(dbCfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	recordRepo := storage.NewSimulationRepository(db.DB)
	solverClient := solver.NewClient(solver.DefaultConfig())

	config := batchqueue.DefaultConfig()
	config.Concurrency = *concurrency

	worker, err := batchqueue.NewWorker(*natsURL, recordRepo, solverClient, config)
	if err != nil {
		log.Fatalf("Failed to create worker: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if err := worker.Start(ctx); err != nil {
		log.Fatalf("Failed to start worker: %v", err)
	}

	log.Printf("Worker %s started and ready to process batches", worker.GetID())

	sig := <-sigChan
	log.Printf("Received signal %v, initiating graceful shutdown...", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer shutdownCancel()

	if err := worker.Stop(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Worker stopped successfully")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
