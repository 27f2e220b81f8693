package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/kyosocan/demo-C-platform/internal/config"
	"github.com/kyosocan/demo-C-platform/pkg/logger"
)

const (
	routingKeyPrefix = "moderation."
	confirmTimeout   = 5 * time.Second
)

// MessagePublisher forwards committed moderation events to a RabbitMQ topic
// exchange. Each event is routed by its type, e.g. "moderation.content.decided".
type MessagePublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	config  *config.RabbitMQConfig
	mu      sync.RWMutex
}

// NewMessagePublisher connects to RabbitMQ, retrying with exponential backoff
// for up to maxWait. A zero maxWait tries once.
func NewMessagePublisher(ctx context.Context, cfg *config.RabbitMQConfig, maxWait time.Duration) (*MessagePublisher, error) {
	mp := &MessagePublisher{
		config: cfg,
	}

	var bo backoff.BackOff = &backoff.StopBackOff{}
	if maxWait > 0 {
		exp := backoff.NewExponentialBackOff()
		exp.MaxElapsedTime = maxWait
		bo = exp
	}
	notify := func(err error, next time.Duration) {
		logger.Log.Warn("RabbitMQ not reachable, retrying",
			zap.Error(err),
			zap.Duration("retryIn", next),
		)
	}
	if err := backoff.RetryNotify(mp.connect, backoff.WithContext(bo, ctx), notify); err != nil {
		return nil, err
	}

	return mp, nil
}

func (mp *MessagePublisher) connect() error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	connURL := fmt.Sprintf("amqp://%s:%s@%s:%d/",
		mp.config.User, mp.config.Password, mp.config.Host, mp.config.Port)

	conn, err := amqp.Dial(connURL)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	// Enable publisher confirms
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	if err := ch.ExchangeDeclare(
		mp.config.Exchange, // name
		"topic",            // type
		true,               // durable
		false,              // auto-deleted
		false,              // internal
		false,              // no-wait
		nil,                // arguments
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	// The audit queue keeps a day of events for downstream consumers.
	_, err = ch.QueueDeclare(
		mp.config.Queue, // name
		true,            // durable
		false,           // delete when unused
		false,           // exclusive
		false,           // no-wait
		amqp.Table{
			"x-message-ttl": 86400000,
			"x-max-length":  100000,
		},
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := ch.QueueBind(
		mp.config.Queue,      // queue name
		mp.config.RoutingKey, // binding pattern
		mp.config.Exchange,   // exchange
		false,
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	mp.conn = conn
	mp.channel = ch

	logger.Log.Info("Connected to RabbitMQ",
		zap.String("exchange", mp.config.Exchange),
		zap.String("queue", mp.config.Queue),
	)

	return nil
}

// RoutingKey returns the routing key an event is published with.
func RoutingKey(e Event) string {
	return routingKeyPrefix + string(e.Type)
}

// PublishEvent publishes one event and waits for the broker's confirmation.
func (mp *MessagePublisher) PublishEvent(ctx context.Context, event Event) error {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	if mp.channel == nil {
		return errors.New("channel is not initialized")
	}

	body, err := json.Marshal(event)
	if err != nil {
		return &ProcessingError{Message: "failed to marshal event", Cause: err}
	}

	confirms := mp.channel.NotifyPublish(make(chan amqp.Confirmation, 1))

	key := RoutingKey(event)
	err = mp.channel.PublishWithContext(
		ctx,
		mp.config.Exchange, // exchange
		key,                // routing key
		false,              // mandatory
		false,              // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.OccurredAt,
			Type:         string(event.Type),
		},
	)
	if err != nil {
		return &ProcessingError{Message: "failed to publish message", Cause: err}
	}

	select {
	case confirm := <-confirms:
		if !confirm.Ack {
			return errors.New("message was not acknowledged by broker")
		}
	case <-time.After(confirmTimeout):
		return errors.New("timeout waiting for publish confirmation")
	case <-ctx.Done():
		return ctx.Err()
	}

	logger.Log.Debug("Published event to RabbitMQ",
		zap.String("type", string(event.Type)),
		zap.String("routingKey", key),
	)

	return nil
}

// Handler adapts the publisher to the event bus.
func (mp *MessagePublisher) Handler() EventHandler {
	return mp.PublishEvent
}

// Close closes the channel and the connection.
func (mp *MessagePublisher) Close() error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	var errs []error
	if mp.channel != nil {
		if err := mp.channel.Close(); err != nil {
			errs = append(errs, err)
		}
		mp.channel = nil
	}
	if mp.conn != nil {
		if err := mp.conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing publisher: %w", errors.Join(errs...))
	}

	logger.Log.Info("RabbitMQ publisher closed")
	return nil
}

// IsHealthy reports whether the connection and channel are open.
func (mp *MessagePublisher) IsHealthy() bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return mp.conn != nil && !mp.conn.IsClosed() && mp.channel != nil
}
