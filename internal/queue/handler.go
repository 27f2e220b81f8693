package queue

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/kyosocan/demo-C-platform/internal/db"
	"github.com/kyosocan/demo-C-platform/internal/models"
	"github.com/kyosocan/demo-C-platform/pkg/logger"
)

// Filler runs the assignment engine.
type Filler interface {
	Fill(ctx context.Context, reviewerID string) ([]*models.ContentItem, error)
	FillAll(ctx context.Context) (int, error)
}

// FillHandler handles fill tasks
type FillHandler struct {
	filler Filler
}

// NewFillHandler creates a new fill task handler
func NewFillHandler(filler Filler) *FillHandler {
	return &FillHandler{filler: filler}
}

// ProcessFillReviewer implements asynq.HandlerFunc for a single reviewer refill.
func (h *FillHandler) ProcessFillReviewer(ctx context.Context, task *asynq.Task) error {
	payload, err := UnmarshalFillReviewerPayload(task.Payload())
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	assigned, err := h.filler.Fill(ctx, payload.ReviewerID)
	if db.IsNotFound(err) {
		// Deleted since the refill was requested.
		logger.Log.Info("Skipping refill for unknown reviewer", zap.String("reviewerId", payload.ReviewerID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to fill reviewer %s: %w", payload.ReviewerID, err)
	}

	logger.Log.Debug("Processed refill",
		zap.String("reviewerId", payload.ReviewerID),
		zap.Int("assigned", len(assigned)),
	)
	return nil
}

// ProcessFillAll implements asynq.HandlerFunc for a sweep over all online reviewers.
func (h *FillHandler) ProcessFillAll(ctx context.Context, _ *asynq.Task) error {
	n, err := h.filler.FillAll(ctx)
	if err != nil {
		return fmt.Errorf("fill sweep: %w", err)
	}
	logger.Log.Debug("Processed fill sweep", zap.Int("assigned", n))
	return nil
}

// Mux returns a ServeMux routing fill task types to the handler.
func (h *FillHandler) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeFillReviewer, h.ProcessFillReviewer)
	mux.HandleFunc(TypeFillAll, h.ProcessFillAll)
	return mux
}

// Server wraps asynq server for processing tasks
type Server struct {
	asynqServer *asynq.Server
	mux         *asynq.ServeMux
}

// NewServer creates a new task processing server
func NewServer(redisURL string, concurrency int, handler *FillHandler) (*Server, error) {
	redisOpt, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				QueueFill: 10,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Log.Warn("Task failed",
					zap.String("type", task.Type()),
					zap.Error(err),
				)
			}),
			Logger: newAsynqLogger(logger.Named("asynq")),
		},
	)

	return &Server{
		asynqServer: srv,
		mux:         handler.Mux(),
	}, nil
}

// Start starts the server
func (s *Server) Start() error {
	logger.Log.Info("Starting task processing server")
	return s.asynqServer.Start(s.mux)
}

// Stop gracefully stops the server
func (s *Server) Stop() {
	logger.Log.Info("Shutting down task processing server")
	s.asynqServer.Shutdown()
}
