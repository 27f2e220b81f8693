//go:build integration
// +build integration

package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kyosocan/demo-C-platform/internal/models"
	"github.com/kyosocan/demo-C-platform/internal/repository"
)

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start redis container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%d", host, port.Int())})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRedisListCache(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}
	client := setupTestRedis(t)
	ctx := context.Background()
	c := NewRedisListCache(client, time.Minute)

	_, found, err := c.Get(ctx, "pub-1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "pub-1", models.ListKindBlacklist))
	kind, found, err := c.Get(ctx, "pub-1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, models.ListKindBlacklist, kind)

	ttl, err := client.TTL(ctx, "moderation:list:pub-1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, c.Set(ctx, "pub-2", ""))
	kind, found, err = c.Get(ctx, "pub-2")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Empty(t, kind)

	require.NoError(t, c.Delete(ctx, "pub-1"))
	_, found, err = c.Get(ctx, "pub-1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisListCache_LoadFromStore(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}
	client := setupTestRedis(t)
	ctx := context.Background()

	store := repository.NewMemoryStore()
	err := store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		for id, kind := range map[string]models.ListKind{"a": models.ListKindBlacklist, "b": models.ListKindWhitelist} {
			if err := tx.UpsertListEntry(ctx, &models.ListEntry{PublisherID: id, Kind: kind, AddedAt: time.Now().UTC(), AddedBy: "admin"}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	c := NewRedisListCache(client, 0)
	require.NoError(t, c.LoadFromStore(ctx, store))

	kind, found, err := c.Get(ctx, "b")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, models.ListKindWhitelist, kind)
}
