package test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/joao-fontenele/salesdw-api/internal/messaging"
	"github.com/joao-fontenele/salesdw-api/internal/telemetry"
)

const appSchema = "sales"

// terminateOnCleanup stops c when the test ends. The test's own context is
// usually cancelled by then, so termination gets a fresh one.
func terminateOnCleanup(t *testing.T, name string, c testcontainers.Container) {
	t.Helper()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := c.Terminate(ctx); err != nil {
			t.Logf("failed to terminate %s container: %v", name, err)
		}
	})
}

// PostgresSetup is a migrated salesdb.
type PostgresSetup struct {
	// MigrateConnStr has no search_path, like config.Config.MigrateURL.
	MigrateConnStr string
	// AppConnStr pins search_path to the application schema, like
	// config.Config.DatabaseURL.
	AppConnStr string
}

func SetupPostgres(ctx context.Context, t *testing.T) *PostgresSetup {
	t.Helper()

	container, err := postgres.Run(ctx,
		"postgres:18-alpine",
		postgres.WithDatabase("salesdb"),
		postgres.WithUsername("sales"),
		postgres.WithPassword("sales"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	terminateOnCleanup(t, "postgres", container)

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	if err := migrateUp(connStr); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return &PostgresSetup{
		MigrateConnStr: connStr,
		AppConnStr:     connStr + "&search_path=" + appSchema,
	}
}

// OpenDB opens an instrumented pool on the application schema, closed when
// the test ends.
func (p *PostgresSetup) OpenDB(ctx context.Context, t *testing.T) *sql.DB {
	t.Helper()

	db, err := telemetry.OpenDB(ctx, p.AppConnStr)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func migrateUp(connStr string) error {
	m, err := migrate.New(migrationsSource(), connStr)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// migrationsSource points golang-migrate at <repo>/migrations regardless of
// the directory go test runs in.
func migrationsSource() string {
	_, filename, _, _ := runtime.Caller(0)
	return "file://" + filepath.Join(filepath.Dir(filepath.Dir(filename)), "migrations")
}

// KafkaSetup is a single-node broker for order events.
type KafkaSetup struct {
	Brokers []string
}

func SetupKafka(ctx context.Context, t *testing.T) *KafkaSetup {
	t.Helper()

	container, err := kafka.Run(ctx,
		"confluentinc/confluent-local:7.8.0",
		kafka.WithClusterID("salesdw-test"),
	)
	if err != nil {
		t.Fatalf("failed to start kafka container: %v", err)
	}
	terminateOnCleanup(t, "kafka", container)

	brokers, err := container.Brokers(ctx)
	if err != nil {
		t.Fatalf("failed to get kafka brokers: %v", err)
	}
	if len(brokers) == 0 {
		t.Fatal("kafka container reported no brokers")
	}

	return &KafkaSetup{Brokers: brokers}
}

// CreateTopic creates topic the way cmd/refresher does, with broker-assigned
// record timestamps.
func (k *KafkaSetup) CreateTopic(ctx context.Context, t *testing.T, topic string) {
	t.Helper()

	spec := messaging.TopicSpec{Name: topic, Partitions: 1, ReplicationFactor: 1}
	if err := messaging.EnsureTopic(ctx, k.Brokers, spec); err != nil {
		t.Fatalf("failed to create topic %s: %v", topic, err)
	}
}
