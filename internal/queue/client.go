package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/kyosocan/demo-C-platform/pkg/logger"
)

// enqueuer is the part of asynq.Client the queue client uses.
type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Client wraps asynq client for enqueueing fill tasks
type Client struct {
	asynqClient enqueuer
	now         func() time.Time
}

// NewClient creates a new queue client
func NewClient(redisURL string) (*Client, error) {
	redisOpt, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	return newClient(asynq.NewClient(redisOpt)), nil
}

func newClient(e enqueuer) *Client {
	return &Client{
		asynqClient: e,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Close closes the client connection
func (c *Client) Close() error {
	return c.asynqClient.Close()
}

// ScheduleFill enqueues a refill of one reviewer's queue. A refill already
// waiting for the same reviewer absorbs the request.
func (c *Client) ScheduleFill(ctx context.Context, reviewerID string) error {
	payload, err := NewFillReviewerTask(reviewerID, c.now())
	if err != nil {
		return fmt.Errorf("failed to create task payload: %w", err)
	}

	payloadBytes, err := payload.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	task := asynq.NewTask(TypeFillReviewer, payloadBytes)
	info, err := c.asynqClient.EnqueueContext(ctx, task,
		asynq.TaskID(fillTaskID(reviewerID)),
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Second),
		asynq.Queue(QueueFill),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		logger.Log.Debug("Refill already queued", zap.String("reviewerId", reviewerID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	logger.Log.Debug("Enqueued reviewer refill",
		zap.String("reviewerId", reviewerID),
		zap.String("taskId", info.ID),
	)
	return nil
}

// EnqueueFillAll enqueues one sweep over every online reviewer.
func (c *Client) EnqueueFillAll(ctx context.Context) error {
	info, err := c.asynqClient.EnqueueContext(ctx, asynq.NewTask(TypeFillAll, nil),
		asynq.MaxRetry(1),
		asynq.Timeout(2*time.Minute),
		asynq.Queue(QueueFill),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	logger.Log.Debug("Enqueued fill sweep", zap.String("taskId", info.ID))
	return nil
}
