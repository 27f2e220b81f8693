//go:build integration
// +build integration

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kyosocan/demo-C-platform/internal/config"
)

func setupTestRabbitMQ(t *testing.T) *config.RabbitMQConfig {
	t.Helper()
	ctx := context.Background()

	rabbitmqContainer, err := rabbitmq.Run(ctx,
		"rabbitmq:3.13-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Server startup complete").
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "failed to start rabbitmq container")
	t.Cleanup(func() {
		if err := rabbitmqContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	host, err := rabbitmqContainer.Host(ctx)
	require.NoError(t, err)
	port, err := rabbitmqContainer.MappedPort(ctx, "5672/tcp")
	require.NoError(t, err)

	return &config.RabbitMQConfig{
		Enabled:    true,
		Host:       host,
		Port:       port.Int(),
		User:       "guest",
		Password:   "guest",
		Exchange:   "test.moderation",
		Queue:      "test.moderation.audit",
		RoutingKey: "moderation.#",
	}
}

func TestMessagePublisher_PublishEvent(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}
	cfg := setupTestRabbitMQ(t)
	ctx := context.Background()

	mp, err := NewMessagePublisher(ctx, cfg, 30*time.Second)
	require.NoError(t, err)
	defer mp.Close()
	assert.True(t, mp.IsHealthy())

	event := Event{
		Type:       EventContentDecided,
		OccurredAt: time.Now().UTC().Truncate(time.Microsecond),
		ContentID:  "c-1",
		ReviewerID: "r-1",
		RecordID:   "rec-1",
		Attributes: map[string]string{"action": "approved"},
	}
	require.NoError(t, mp.PublishEvent(ctx, event))

	conn, err := amqp.Dial(fmt.Sprintf("amqp://guest:guest@%s:%d/", cfg.Host, cfg.Port))
	require.NoError(t, err)
	defer conn.Close()
	ch, err := conn.Channel()
	require.NoError(t, err)
	defer ch.Close()

	var msg amqp.Delivery
	require.Eventually(t, func() bool {
		var ok bool
		msg, ok, err = ch.Get(cfg.Queue, true)
		return err == nil && ok
	}, 10*time.Second, 100*time.Millisecond)

	assert.Equal(t, "moderation.content.decided", msg.RoutingKey)
	assert.Equal(t, "application/json", msg.ContentType)
	var got Event
	require.NoError(t, json.Unmarshal(msg.Body, &got))
	assert.Equal(t, event.Type, got.Type)
	assert.Equal(t, event.ContentID, got.ContentID)
	assert.Equal(t, "approved", got.Attributes["action"])
}

func TestMessagePublisher_BusSubscription(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}
	cfg := setupTestRabbitMQ(t)
	ctx := context.Background()

	mp, err := NewMessagePublisher(ctx, cfg, 30*time.Second)
	require.NoError(t, err)
	defer mp.Close()

	bus := NewEventBus()
	bus.Subscribe(mp.Handler())
	bus.Publish(ctx,
		Event{Type: EventReviewerCreated, OccurredAt: time.Now().UTC(), ReviewerID: "r-1"},
		Event{Type: EventListUpdated, OccurredAt: time.Now().UTC(), PublisherID: "p-1"},
	)

	conn, err := amqp.Dial(fmt.Sprintf("amqp://guest:guest@%s:%d/", cfg.Host, cfg.Port))
	require.NoError(t, err)
	defer conn.Close()
	ch, err := conn.Channel()
	require.NoError(t, err)
	defer ch.Close()

	assert.Eventually(t, func() bool {
		q, err := ch.QueueDeclarePassive(cfg.Queue, true, false, false, false, amqp.Table{
			"x-message-ttl": 86400000,
			"x-max-length":  100000,
		})
		return err == nil && q.Messages == 2
	}, 10*time.Second, 100*time.Millisecond)
}

func TestMessagePublisher_Close(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}
	cfg := setupTestRabbitMQ(t)

	mp, err := NewMessagePublisher(context.Background(), cfg, 30*time.Second)
	require.NoError(t, err)
	require.True(t, mp.IsHealthy())

	require.NoError(t, mp.Close())
	assert.False(t, mp.IsHealthy())
	assert.Error(t, mp.PublishEvent(context.Background(), Event{Type: EventContentIngested}))
}

func TestNewMessagePublisher_Unreachable(t *testing.T) {
	cfg := &config.RabbitMQConfig{Host: "127.0.0.1", Port: 1, User: "guest", Password: "guest"}
	_, err := NewMessagePublisher(context.Background(), cfg, 0)
	assert.Error(t, err)
}
