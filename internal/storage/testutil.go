package storage

import (
	"fmt"
	"os"
	"testing"

	"gorm.io/gorm"
)

// SetupTestDB creates a test database for integration tests.
func SetupTestDB(t *testing.T) (*DB, func()) {
	t.Helper()

	host := os.Getenv("DB_HOST")
	if host == "" {
		host = "localhost"
	}

	port := os.Getenv("DB_PORT")
	if port == "" {
		port = "5432"
	}

	user := os.Getenv("DB_USER")
	if user == "" {
		user = "heftsim"
	}

	password := os.Getenv("DB_PASSWORD")
	if password == "" {
		password = "heftsim_dev_password"
	}

	dbname := os.Getenv("DB_NAME")
	if dbname == "" {
		dbname = "heftsim"
	}

	cfg := &Config{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		DBName:   dbname,
		SSLMode:  "disable",
		MaxConns: 10,
		MinConns: 2,
	}

	db, err := NewDB(cfg)
	if err != nil {
		t.Skipf("Failed to connect to test database: %v. Set DB_HOST, DB_PORT, etc. to run integration tests", err)
	}

	migrateCfg := &MigrateConfig{
		Host:     cfg.Host,
		Port:     cfg.Port,
		User:     cfg.User,
		Password: cfg.Password,
		DBName:   cfg.DBName,
		SSLMode:  cfg.SSLMode,
	}

	if err := RunMigrations(migrateCfg, "./../../migrations"); err != nil {
		if err := RunMigrations(migrateCfg, "../../../migrations"); err != nil {
			t.Logf("Warning: Failed to run migrations: %v", err)
		}
	}

	cleanup := func() {
		db.Exec("TRUNCATE TABLE simulation_records CASCADE")
		db.Exec("TRUNCATE TABLE workflow_topologies CASCADE")
		db.Close()
	}

	return db, cleanup
}

// CreateTestRepositories creates test repositories against a shared DB handle.
func CreateTestRepositories(db *gorm.DB) (WorkflowTopologyRepository, SimulationRecordRepository) {
	topologyRepo := NewTopologyRepository(db)
	simulationRepo := NewSimulationRepository(db)

	return topologyRepo, simulationRepo
}

// PrintTestDatabaseInfo prints information about connecting to the test database.
func PrintTestDatabaseInfo() {
	fmt.Println("Integration tests require a PostgreSQL database.")
	fmt.Println("Set the following environment variables to configure:")
	fmt.Println("  DB_HOST (default: localhost)")
	fmt.Println("  DB_PORT (default: 5432)")
	fmt.Println("  DB_USER (default: heftsim)")
	fmt.Println("  DB_PASSWORD (default: heftsim_dev_password)")
	fmt.Println("  DB_NAME (default: heftsim)")
	fmt.Println("\nOr run: docker-compose up -d postgres")
}
