//go:build integration

package redis_test

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/dukex/flowdeck/pkg/recordstore"
	redisstore "github.com/dukex/flowdeck/pkg/recordstore/redis"
	"github.com/dukex/flowdeck/pkg/recordstore/storetest"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedis(t *testing.T) string {
	t.Helper()

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	return fmt.Sprintf("redis://%s:%s/0", host, port.Port())
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newStore returns a store with its own key prefix so stores sharing the server start empty.
func newStore(t *testing.T, url string) *redisstore.Store {
	t.Helper()

	opts, err := redis.ParseURL(url)
	require.NoError(t, err)

	store := redisstore.NewStoreWithClient(testLogger(), redis.NewClient(opts), "test-"+uuid.NewString())

	t.Cleanup(func() {
		_ = store.Close(context.Background())
	})

	return store
}

func TestStore(t *testing.T) {
	url := setupRedis(t)

	t.Run("Client", func(t *testing.T) {
		storetest.Run(t, func(t *testing.T) recordstore.Client {
			return newStore(t, url)
		})
	})

	t.Run("NewStore", func(t *testing.T) {
		store, err := redisstore.NewStore(context.Background(), testLogger(), url)
		require.NoError(t, err)
		assert.NoError(t, store.HealthCheck(context.Background()))
		assert.NoError(t, store.Close(context.Background()))
	})

	t.Run("ConcurrentGuardedUpdates", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t, url)

		created, err := store.CreateRecord(ctx, recordstore.TableWorkflow, recordstore.CreateRequest{
			Records: []recordstore.Record{{recordstore.ColName: "Race", recordstore.ColLastModified: "v0"}},
		})
		require.NoError(t, err)

		id, _ := created.Results[0].Data.ID()

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			succeeded int
		)

		for i := range 8 {
			wg.Add(1)

			go func() {
				defer wg.Done()

				resp, err := store.UpdateRecord(ctx, recordstore.TableWorkflow, recordstore.UpdateRequest{
					Records: []recordstore.Record{{recordstore.IDField: id, recordstore.ColLastModified: fmt.Sprintf("v%d", i+1)}},
					Where:   []recordstore.Condition{recordstore.Equal(recordstore.ColLastModified, "v0")},
				})
				if err != nil || !resp.Results[0].Success {
					return
				}

				mu.Lock()
				succeeded++
				mu.Unlock()
			}()
		}

		wg.Wait()

		assert.Equal(t, 1, succeeded)
	})
}

func TestNewStore_InvalidURL(t *testing.T) {
	_, err := redisstore.NewStore(context.Background(), testLogger(), "not-a-url")
	assert.Error(t, err)
}
