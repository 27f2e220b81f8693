// Package service implements the moderation queue: content intake, reviewer
// registry, capacity-bounded assignment, decisions, audit and statistics.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kyosocan/demo-C-platform/internal/repository"
	"github.com/kyosocan/demo-C-platform/internal/validation"
	"github.com/kyosocan/demo-C-platform/pkg/logger"
)

// FillScheduler defers a reviewer refill to a background worker.
type FillScheduler interface {
	ScheduleFill(ctx context.Context, reviewerID string) error
}

// Option configures a ModerationService.
type Option func(*ModerationService)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *ModerationService) { s.now = now }
}

// WithIDGenerator overrides how new entity ids are minted.
func WithIDGenerator(newID func() string) Option {
	return func(s *ModerationService) { s.newID = newID }
}

// WithEventBus sets the bus committed changes are published to.
func WithEventBus(bus *EventBus) Option {
	return func(s *ModerationService) { s.bus = bus }
}

// WithListCache sets the publisher list cache.
func WithListCache(c ListCache) Option {
	return func(s *ModerationService) { s.lists = c }
}

// WithAutoFill toggles refilling a reviewer's queue after a slot frees up.
func WithAutoFill(enabled bool) Option {
	return func(s *ModerationService) { s.autoFill = enabled }
}

// WithFillScheduler hands refills to a background worker instead of running them inline.
func WithFillScheduler(f FillScheduler) Option {
	return func(s *ModerationService) { s.fill = f }
}

// WithDefaultCapacity sets the capacity given to reviewers created without one.
func WithDefaultCapacity(n int) Option {
	return func(s *ModerationService) { s.defaultCapacity = n }
}

// ModerationService owns every moderation operation. Each mutating method runs
// as a single store transaction and publishes its events after commit.
type ModerationService struct {
	store           repository.Store
	validator       *validation.Validator
	bus             *EventBus
	lists           ListCache
	fill            FillScheduler
	now             func() time.Time
	newID           func() string
	defaultCapacity int
	autoFill        bool
}

// NewModerationService creates a ModerationService.
func NewModerationService(store repository.Store, validator *validation.Validator, opts ...Option) *ModerationService {
	s := &ModerationService{
		store:           store,
		validator:       validator,
		bus:             NewEventBus(),
		lists:           NewLocalListCache(5*time.Minute, 10*time.Minute),
		now:             func() time.Time { return time.Now().UTC() },
		newID:           func() string { return uuid.New().String() },
		defaultCapacity: 10,
		autoFill:        true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Events returns the bus the service publishes to.
func (s *ModerationService) Events() *EventBus {
	return s.bus
}

// Ping checks the backing store.
func (s *ModerationService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// timestamp returns the current time at the resolution the stores keep.
func (s *ModerationService) timestamp() time.Time {
	return s.now().Truncate(time.Microsecond)
}

func (s *ModerationService) event(t EventType, at time.Time) Event {
	return Event{Type: t, OccurredAt: at}
}

// refill tops up a reviewer's queue after a slot was freed. Failures are
// logged only; the periodic sweep catches anything missed here.
func (s *ModerationService) refill(ctx context.Context, reviewerID string) {
	if !s.autoFill {
		return
	}
	if s.fill != nil {
		if err := s.fill.ScheduleFill(ctx, reviewerID); err != nil {
			logger.Log.Warn("Failed to schedule refill",
				zap.Error(err),
				zap.String("reviewerId", reviewerID),
			)
		}
		return
	}
	if _, err := s.Fill(ctx, reviewerID); err != nil {
		logger.Log.Warn("Refill failed",
			zap.Error(err),
			zap.String("reviewerId", reviewerID),
		)
	}
}
