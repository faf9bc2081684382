package redisstore

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ryos-web/ryos-memory/internal/kv"
	"github.com/ryos-web/ryos-memory/internal/store"
	"github.com/ryos-web/ryos-memory/internal/store/storetest"
)

// makeContainerStore runs the compliance suite against a real Redis started
// via testcontainers. Opt in with RYOS_MEMORY_REDIS_IT=1; the default unit
// run covers the same suite on miniredis.
func makeContainerStore(t *testing.T) store.Store {
	t.Helper()
	if os.Getenv("RYOS_MEMORY_REDIS_IT") == "" {
		t.Skip("RYOS_MEMORY_REDIS_IT not set; skipping redis store integration test")
	}

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start redis container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}

	c := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	t.Cleanup(func() { _ = c.Close() })
	return New(kv.NewRedisWithClient(c))
}

func TestRedisStore_ComplianceAgainstContainer(t *testing.T) {
	storetest.Run(t, makeContainerStore)
}
