// cmd/deepresearch-migrate/main.go
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{Use: "deepresearch-migrate"}

// databaseURL resolves the migrate URL from flags, DATABASE_URL or the DB_* variables.
func databaseURL(driver, connStr string) (string, error) {
	if connStr == "" {
		connStr = os.Getenv("DATABASE_URL")
	}
	if connStr == "" && driver == "postgres" {
		dbUsername := os.Getenv("DB_USERNAME")
		dbPassword := os.Getenv("DB_PASSWORD")
		dbHost := os.Getenv("DB_HOST")
		dbPort := os.Getenv("DB_PORT")
		dbName := os.Getenv("DB_NAME")
		if dbUsername == "" || dbPassword == "" || dbHost == "" || dbPort == "" || dbName == "" {
			return "", fmt.Errorf("--db flag, DATABASE_URL or complete DB_* env vars (DB_USERNAME, DB_PASSWORD, DB_HOST, DB_PORT, DB_NAME) required")
		}
		connStr = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
			dbUsername, dbPassword, dbHost, dbPort, dbName)
	}
	if connStr == "" {
		return "", fmt.Errorf("--db flag or DATABASE_URL required for driver %s", driver)
	}

	switch driver {
	case "postgres":
		return connStr, nil
	case "sqlite3":
		if strings.HasPrefix(connStr, "sqlite3://") {
			return connStr, nil
		}
		return "sqlite3://" + connStr, nil
	default:
		return "", fmt.Errorf("unsupported driver %q (postgres or sqlite3)", driver)
	}
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations for the research history table",
	Run: func(cmd *cobra.Command, args []string) {
		// Load .env if present
		if err := godotenv.Load(); err != nil {
			fmt.Printf("No .env file found or failed to load: %v. Using flags.\n", err)
		}

		connStr, _ := cmd.Flags().GetString("db")
		driver, _ := cmd.Flags().GetString("driver")
		source, _ := cmd.Flags().GetString("source")

		dbURL, err := databaseURL(driver, connStr)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		m, err := migrate.New(source, dbURL)
		if err != nil {
			fmt.Printf("Failed to initialize migrations: %v\n", err)
			os.Exit(1)
		}
		defer m.Close()

		down, _ := cmd.Flags().GetBool("down")
		if down {
			err = m.Down()
		} else {
			err = m.Up()
		}
		if err != nil && err != migrate.ErrNoChange {
			fmt.Printf("Failed to apply migrations: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Migrations applied successfully")
	},
}

func main() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().String("db", "", "Database connection string or sqlite3 path (optional if DATABASE_URL or DB_* env vars are set)")
	migrateCmd.Flags().String("driver", "postgres", "Database driver: postgres or sqlite3")
	migrateCmd.Flags().String("source", "file://migrations", "Migrations source URL")
	migrateCmd.Flags().Bool("down", false, "Roll back all migrations")
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
