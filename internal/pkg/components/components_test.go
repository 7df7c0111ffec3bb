package components_test

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"transferengine/internal/pkg/components"
	"transferengine/internal/store/postgres"
)

// TestContainerSingleton verifies GetInstance is a true process-wide
// singleton, grounded on the teacher's events.GetBroker singleton test.
func TestContainerSingleton(t *testing.T) {
	setupEnv(t)

	first, err := components.GetInstance()
	require.NoError(t, err)
	second, err := components.GetInstance()
	require.NoError(t, err)

	assert.Same(t, first, second)
}

// TestConcurrentContainerAccessReturnsSameInstance mirrors the teacher's
// concurrent singleton-access test.
func TestConcurrentContainerAccessReturnsSameInstance(t *testing.T) {
	setupEnv(t)

	const numGoroutines = 50
	instances := make([]*components.Container, numGoroutines)
	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(index int) {
			defer wg.Done()
			c, err := components.GetInstance()
			require.NoError(t, err)
			instances[index] = c
		}(i)
	}
	wg.Wait()

	for i := 1; i < numGoroutines; i++ {
		assert.Same(t, instances[0], instances[i])
	}
}

// setupEnv brings up a disposable Postgres container and points the
// singleton's environment-driven config at it, with the bus disabled so
// the container can wire up without a live Kafka broker.
func setupEnv(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("transferengine"),
		tcpostgres.WithUsername("transferengine"),
		tcpostgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres testcontainer")
	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	t.Setenv("DB_HOST", host)
	t.Setenv("DB_PORT", strconv.Itoa(port.Int()))
	t.Setenv("DB_NAME", "transferengine")
	t.Setenv("DB_USER", "transferengine")
	t.Setenv("DB_PASSWORD", "test-password")
	t.Setenv("DB_SSLMODE", "disable")
	t.Setenv("KAFKA_ENABLED", "false")
	t.Setenv("LISTEN_PORT", "0")

	cfg := &postgres.Config{
		Host: host, Port: port.Int(), Database: "transferengine",
		User: "transferengine", Password: "test-password", SSLMode: "disable",
		MaxOpenConns: 10, MaxIdleConns: 2,
		ConnMaxLifetime: "30m", ConnMaxIdleTime: "5m", HealthCheckPeriod: "30s",
	}
	s, err := postgres.NewStore(ctx, cfg)
	require.NoError(t, err)
	_, err = s.Pool().Exec(ctx, postgres.Schema)
	require.NoError(t, err, "failed to apply schema")
	s.Close()
}
