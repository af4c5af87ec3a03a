package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/katanaflow/heftsim/internal/montecarlo"
	"github.com/katanaflow/heftsim/internal/solver"
	"github.com/katanaflow/heftsim/internal/storage"
	"github.com/katanaflow/heftsim/pkg/api/dto"
	"github.com/katanaflow/heftsim/pkg/api/handlers"
	"github.com/katanaflow/heftsim/pkg/api/middleware"
)

const version = "0.6.0"

func main() {
	log.Printf("Starting heftsim server v%s", version)

	env := os.Getenv("ENV")
	if env == "" {
		env = "development"
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	dbCfg := &storage.Config{
		Host:        getEnv("DB_HOST", "localhost"),
		Port:        getEnv("DB_PORT", "5432"),
		User:        getEnv("DB_USER", "heftsim"),
		Password:    getEnv("DB_PASSWORD", "heftsim_dev_password"),
		DBName:      getEnv("DB_NAME", "heftsim"),
		SSLMode:     getEnv("DB_SSLMODE", "disable"),
		MaxConns:    25,
		MinConns:    5,
		MaxIdleTime: 5 * time.Minute,
		MaxLifetime: 30 * time.Minute,
	}

	db, err := storage.NewDB(dbCfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	migrateCfg := &storage.MigrateConfig{
		Host:     dbCfg.Host,
		Port:     dbCfg.Port,
		User:     dbCfg.User,
		Password: dbCfg.Password,
		DBName:   dbCfg.DBName,
		SSLMode:  dbCfg.SSLMode,
	}

	if err := storage.RunMigrations(migrateCfg, "./migrations"); err != nil {
		log.Printf("Warning: Failed to run migrations: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", getEnv("REDIS_HOST", "localhost"), getEnv("REDIS_PORT", "6379")),
	})
	defer redisClient.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v", err)
	}

	// Initialize repositories
	topologyRepo := storage.NewTopologyRepository(db.DB)
	recordRepo := storage.NewSimulationRepository(db.DB)

	// Initialize the batch cache (cooperative cancellation + memoized
	// results, redis-backed) and the external ODP-IP solver client.
	batchCache := montecarlo.NewBatchCache(montecarlo.DefaultBatchCacheConfig(redisClient))
	solverClient := solver.NewClient(solver.DefaultConfig())

	log.Printf("Database initialized successfully")
	log.Printf("Repositories initialized: WorkflowTopology, SimulationRecord")

	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if env == "development" {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.CORS())

	workflowHandler := handlers.NewWorkflowHandler(topologyRepo)
	batchHandler := handlers.NewBatchHandler(topologyRepo, recordRepo, batchCache, solverClient)

	healthCheck := func(c *gin.Context) {
		dbHealthy := true
		if err := db.Health(c.Request.Context()); err != nil {
			dbHealthy = false
		}

		redisHealthy := true
		if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
			redisHealthy = false
		}

		solverHealthy := true
		if err := solverClient.Health(c.Request.Context()); err != nil {
			solverHealthy = false
		}

		status := "healthy"
		services := map[string]string{
			"database": "healthy",
			"redis":    "healthy",
			"solver":   "healthy",
		}

		if !dbHealthy {
			status = "degraded"
			services["database"] = "unhealthy"
		}
		if !redisHealthy {
			status = "degraded"
			services["redis"] = "unhealthy"
		}
		if !solverHealthy {
			status = "degraded"
			services["solver"] = "unhealthy"
		}

		c.JSON(200, dto.HealthResponse{
			Status:   status,
			Services: services,
		})
	}

	// Liveness is exposed at both /api/health (spec.md §4.8) and /health
	// (the teacher's own convention), proxying the solver's own
	// /api/health as one of its dependency checks.
	router.GET("/health", healthCheck)
	router.GET("/api/health", healthCheck)

	api := router.Group("/api/v1")
	api.Use(middleware.GlobalRateLimiter.RateLimit())
	{
		api.GET("/status", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status":  "ok",
				"version": version,
			})
		})
	}

	// Workflow topology routes
	workflows := api.Group("/workflows")
	{
		workflows.POST("", workflowHandler.CreateTopology)
		workflows.GET("", workflowHandler.ListTopologies)
		workflows.GET("/:id", workflowHandler.GetTopology)
		workflows.DELETE("/:id", workflowHandler.DeleteTopology)
		workflows.POST("/:id/simulate", batchHandler.Simulate)
	}

	// Batch routes
	batches := api.Group("/batches")
	{
		batches.GET("/:id", batchHandler.GetBatch)
	}

	log.Printf("Server listening on port %s in %s mode", port, env)
	log.Printf("API Documentation: http://localhost:%s/api/v1/status", port)

	if err := router.Run(fmt.Sprintf(":%s", port)); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
