package helper

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// Database wraps a postgres connection pool and the logger all handlers share
type Database struct {
	Name     string
	Instance *sql.DB
	Logger   *slog.Logger
}

// DatabaseConfiguration holds the connection parameters of a postgres database
type DatabaseConfiguration struct {
	Host     string
	Port     string
	Database string
	Username string
	Password string
	Schema   string
	SSLMode  string
}

// NewDatabaseConfiguration reads the database configuration from the environment.
// A .env file in the working directory is loaded first if it exists.
func NewDatabaseConfiguration() (*DatabaseConfiguration, error) {
	_ = godotenv.Load()

	config := &DatabaseConfiguration{
		Host:     os.Getenv("DB_HOST"),
		Port:     os.Getenv("DB_PORT"),
		Database: os.Getenv("DB_DATABASE"),
		Username: os.Getenv("DB_USERNAME"),
		Password: os.Getenv("DB_PASSWORD"),
		Schema:   getEnvOrDefault("DB_SCHEMA", "public"),
		SSLMode:  getEnvOrDefault("DB_SSLMODE", "disable"),
	}

	var missing []string
	if config.Host == "" {
		missing = append(missing, "DB_HOST")
	}
	if config.Port == "" {
		missing = append(missing, "DB_PORT")
	}
	if config.Database == "" {
		missing = append(missing, "DB_DATABASE")
	}
	if config.Username == "" {
		missing = append(missing, "DB_USERNAME")
	}
	if len(missing) > 0 {
		return nil, NewValidationError("missing database environment variables: %s", strings.Join(missing, ", "))
	}

	return config, nil
}

// ConnectionString returns the postgres connection URL of the configuration
func (c *DatabaseConfiguration) ConnectionString() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.Username, c.Password),
		Host:   c.Host + ":" + c.Port,
		Path:   c.Database,
	}

	q := u.Query()
	q.Set("sslmode", c.SSLMode)
	if c.Schema != "" {
		q.Set("search_path", c.Schema)
	}
	u.RawQuery = q.Encode()

	return u.String()
}

// NewDatabase opens and pings a postgres connection pool.
// It exits the process if the database is not reachable.
func NewDatabase(name string, config *DatabaseConfiguration, logger *slog.Logger) *Database {
	db, err := ConnectDatabase(name, config, logger)
	if err != nil {
		log.Fatalf("error connecting to database %s: %v", name, err)
	}
	return db
}

// ConnectDatabase opens and pings a postgres connection pool
func ConnectDatabase(name string, config *DatabaseConfiguration, logger *slog.Logger) (*Database, error) {
	if config == nil {
		return nil, NewError("database configuration validation", fmt.Errorf("database configuration is nil"))
	}
	if logger == nil {
		logger = slog.Default()
	}

	instance, err := sql.Open("postgres", config.ConnectionString())
	if err != nil {
		return nil, NewError("open database", err)
	}
	instance.SetMaxOpenConns(25)
	instance.SetMaxIdleConns(5)
	instance.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = instance.PingContext(ctx)
	if err != nil {
		instance.Close()
		return nil, NewError("ping database", err)
	}

	logger.Info("Connected to database", slog.String("name", name), slog.String("host", config.Host), slog.String("database", config.Database))

	return &Database{
		Name:     name,
		Instance: instance,
		Logger:   logger,
	}, nil
}

// NewTestDatabase opens a database with a logger that only prints warnings
func NewTestDatabase(config *DatabaseConfiguration) *Database {
	return NewDatabase("test", config, NewLogger(os.Stdout, slog.LevelWarn))
}

// SetTestDatabaseConfigEnvs points the database environment at a test container port
func SetTestDatabaseConfigEnvs(t *testing.T, dbPort string) {
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", dbPort)
	t.Setenv("DB_DATABASE", "database")
	t.Setenv("DB_USERNAME", "user")
	t.Setenv("DB_PASSWORD", "password")
	t.Setenv("DB_SCHEMA", "public")
	t.Setenv("DB_SSLMODE", "disable")
}

func getEnvOrDefault(key string, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}
