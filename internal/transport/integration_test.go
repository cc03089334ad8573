//go:build integration

package transport

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"llmtools/internal/tools/database"
)

// startNATSContainer starts a NATS container and returns the connection URL.
func startNATSContainer(t *testing.T, ctx context.Context) string {
	t.Helper()

	req := testcontainers.ContainerRequest{
		Image:        "nats:2.10-alpine",
		ExposedPorts: []string{"4222/tcp"},
		WaitingFor:   wait.ForLog("Server is ready"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "4222")
	require.NoError(t, err)

	return fmt.Sprintf("nats://%s:%s", host, port.Port())
}

func TestIntegration_RequestReply(t *testing.T) {
	ctx := context.Background()
	url := startNATSContainer(t, ctx)

	s := NewServer(Options{URL: url, Subject: "llmtools.tag.0x77", Tool: database.ToolName}, databaseRegistry(t))
	require.NoError(t, s.Start(ctx))
	assert.ErrorIs(t, s.Start(ctx), ErrAlreadyStarted)

	nc, err := nats.Connect(url)
	require.NoError(t, err)
	defer nc.Close()

	msg, err := nc.Request("llmtools.tag.0x77", []byte(`{"operation":"list_tables"}`), 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, `{"error":"Database connection not initialized"}`, string(msg.Data))

	msg, err = nc.Request("llmtools.tag.0x77", []byte(`not json`), 5*time.Second)
	require.NoError(t, err)
	assert.Contains(t, string(msg.Data), `"error"`)

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(shutdownCtx))
	require.NoError(t, s.Shutdown(shutdownCtx))
}

func TestIntegration_ConcurrentRequests(t *testing.T) {
	ctx := context.Background()
	url := startNATSContainer(t, ctx)

	s := NewServer(Options{URL: url, Subject: "db", MaxInFlight: 4, Tool: database.ToolName}, databaseRegistry(t))
	require.NoError(t, s.Start(ctx))
	defer s.Shutdown(ctx)

	nc, err := nats.Connect(url)
	require.NoError(t, err)
	defer nc.Close()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := fmt.Sprintf(`{"operation":"op_%d"}`, i)
			msg, err := nc.Request("db", []byte(body), 10*time.Second)
			if assert.NoError(t, err) {
				assert.Equal(t, fmt.Sprintf(`{"error":"Unknown operation: op_%d"}`, i), string(msg.Data))
			}
		}(i)
	}
	wg.Wait()
}
