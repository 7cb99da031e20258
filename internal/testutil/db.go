// internal/testutil/db.go
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// MigrationsURL is the migrations source as seen from a package directory two levels below the root.
const MigrationsURL = "file://../../migrations"

// TestDB holds the test database connection and container
type TestDB struct {
	DB        *sqlx.DB
	ConnStr   string
	container testcontainers.Container
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// SetupTestDB initializes a PostgreSQL container and returns a migrated, connected DB.
// It is skipped unless DEEPRESEARCH_INTEGRATION=1 because it needs a Docker daemon.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	ctx := context.Background()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		t.Logf("No .env file found or failed to load: %v. Proceeding with environment variables.", err)
	}
	if os.Getenv("DEEPRESEARCH_INTEGRATION") != "1" {
		t.Skip("set DEEPRESEARCH_INTEGRATION=1 to run Postgres integration tests")
	}

	dbUsername := envOr("DB_USERNAME", "deepresearch")
	dbPassword := envOr("DB_PASSWORD", "deepresearch")
	dbName := envOr("DB_NAME", "deepresearch_test")
	dbHost := envOr("DB_HOST", "localhost")

	// Define the container request
	req := testcontainers.ContainerRequest{
		Image:        "postgres:15",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     dbUsername,
			"POSTGRES_PASSWORD": dbPassword,
			"POSTGRES_DB":       dbName,
		},
		WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(30 * time.Second),
	}

	// Start the container
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	terminate := func() {
		if errTerminateCnt := pgContainer.Terminate(ctx); errTerminateCnt != nil {
			t.Errorf("Failed to terminate container: %v", errTerminateCnt)
		}
	}

	port, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		terminate()
		t.Fatal(err)
	}

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		dbUsername, dbPassword, dbHost, port.Port(), dbName)

	db, err := sqlx.Open("postgres", connStr)
	if err != nil {
		terminate()
		t.Fatalf("Failed to connect to test DB: %v", err)
	}

	// Wait for DB to be ready
	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		if i == 9 {
			terminate()
			t.Fatalf("Failed to ping test DB after retries: %v", err)
		}
		time.Sleep(500 * time.Millisecond)
	}

	if err := Migrate(MigrationsURL, connStr); err != nil {
		terminate()
		t.Fatalf("Failed to apply migrations: %v", err)
	}

	return &TestDB{
		DB:        db,
		ConnStr:   connStr,
		container: pgContainer,
	}
}

// Teardown cleans up the test database and container
func (td *TestDB) Teardown(t *testing.T) {
	if err := td.DB.Close(); err != nil {
		t.Errorf("Failed to close DB connection: %v", err)
	}
	if err := td.container.Terminate(context.Background()); err != nil {
		t.Fatalf("Failed to terminate container: %v", err)
	}
}

// SetupSQLite creates a migrated sqlite3 database in a temp dir and returns its path.
func SetupSQLite(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	if err := Migrate(MigrationsURL, "sqlite3://"+path); err != nil {
		t.Fatalf("Failed to apply sqlite migrations: %v", err)
	}
	return path
}

// Migrate applies every up migration from source to the database URL.
func Migrate(source, databaseURL string) error {
	m, err := migrate.New(source, databaseURL)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
