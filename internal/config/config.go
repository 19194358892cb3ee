// Package config builds the process configuration once at startup. Every
// storage, transport and telemetry constructor receives the values it needs
// from a Config instead of reading the environment on its own.
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	DBHost     string
	DBPort     int
	DBService  string
	DBUser     string
	DBPassword string
	DBSchema   string
	DBSSLMode  string

	KafkaBrokers           []string
	KafkaTopic             string
	KafkaPartitions        int
	KafkaReplicationFactor int

	TracingEnabled bool
	OTLPEndpoint   string
	LogLevel       string

	MigrationsPath string
}

// Load reads the environment, after merging an optional .env file from the
// working directory. Variables already set in the environment win.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	partitions, err := strconv.Atoi(getEnv("KAFKA_TOPIC_PARTITIONS", "1"))
	if err != nil || partitions < 1 {
		return Config{}, fmt.Errorf("invalid KAFKA_TOPIC_PARTITIONS %q", os.Getenv("KAFKA_TOPIC_PARTITIONS"))
	}

	replication, err := strconv.Atoi(getEnv("KAFKA_REPLICATION_FACTOR", "1"))
	if err != nil || replication < 1 {
		return Config{}, fmt.Errorf("invalid KAFKA_REPLICATION_FACTOR %q", os.Getenv("KAFKA_REPLICATION_FACTOR"))
	}

	tracing, err := strconv.ParseBool(getEnv("TRACING_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid TRACING_ENABLED: %w", err)
	}

	cfg := Config{
		Port:                   getEnv("PORT", "3000"),
		DBHost:                 getEnv("DB_HOST", "localhost"),
		DBPort:                 dbPort,
		DBService:              getEnv("DB_SERVICE", "salesdb"),
		DBUser:                 getEnv("DB_USER", "sales"),
		DBPassword:             getEnv("DB_PASSWORD", "sales"),
		DBSchema:               getEnv("DB_SCHEMA", "sales"),
		DBSSLMode:              getEnv("DB_SSLMODE", "disable"),
		KafkaBrokers:           splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:             getEnv("KAFKA_TOPIC", "orders.created"),
		KafkaPartitions:        partitions,
		KafkaReplicationFactor: replication,
		TracingEnabled:         tracing,
		OTLPEndpoint:           getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		MigrationsPath:         getEnv("MIGRATIONS_PATH", "file://migrations"),
	}

	return cfg, nil
}

// DatabaseURL assembles the connection descriptor understood by lib/pq and
// golang-migrate. DB_SERVICE names the database on the server.
func (c Config) DatabaseURL() string {
	q := url.Values{}
	q.Set("sslmode", c.DBSSLMode)
	if c.DBSchema != "" {
		q.Set("search_path", c.DBSchema)
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     net.JoinHostPort(c.DBHost, strconv.Itoa(c.DBPort)),
		Path:     "/" + c.DBService,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// MigrateURL is DatabaseURL without a search_path. golang-migrate keeps its
// version table in the default schema, which exists before the first
// migration creates the application schema.
func (c Config) MigrateURL() string {
	c.DBSchema = ""
	return c.DatabaseURL()
}

// EventsEnabled reports whether order events should be published.
func (c Config) EventsEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
