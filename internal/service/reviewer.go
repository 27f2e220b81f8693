package service

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/kyosocan/demo-C-platform/internal/metrics"
	"github.com/kyosocan/demo-C-platform/internal/models"
	"github.com/kyosocan/demo-C-platform/internal/repository"
	"github.com/kyosocan/demo-C-platform/pkg/logger"
)

// NewReviewer is the registration payload for a reviewer.
type NewReviewer struct {
	Username      string `json:"username" binding:"required"`
	Name          string `json:"name" binding:"required"`
	QueueCapacity int    `json:"queue_capacity"`
}

// CreateReviewer registers a reviewer. New reviewers start offline with an empty queue.
func (s *ModerationService) CreateReviewer(ctx context.Context, in NewReviewer) (*models.Reviewer, error) {
	if in.QueueCapacity == 0 {
		in.QueueCapacity = s.defaultCapacity
	}
	if err := s.validator.ValidateReviewer(in.Username, in.Name, in.QueueCapacity); err != nil {
		return nil, invalid(err)
	}

	now := s.timestamp()
	reviewer := &models.Reviewer{
		ID:            s.newID(),
		Username:      in.Username,
		Name:          in.Name,
		Status:        models.ReviewerStatusOffline,
		QueueCapacity: in.QueueCapacity,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		return tx.CreateReviewer(ctx, reviewer)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create reviewer: %w", err)
	}

	logger.Log.Info("Reviewer created",
		zap.String("reviewerId", reviewer.ID),
		zap.String("username", reviewer.Username),
	)
	e := s.event(EventReviewerCreated, now)
	e.ReviewerID = reviewer.ID
	s.bus.Publish(ctx, e)
	return reviewer, nil
}

// GetReviewer returns one reviewer.
func (s *ModerationService) GetReviewer(ctx context.Context, id string) (*models.Reviewer, error) {
	var reviewer *models.Reviewer
	err := s.store.View(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		reviewer, err = tx.GetReviewer(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return reviewer, nil
}

// ListReviewers returns reviewers in registration order.
func (s *ModerationService) ListReviewers(ctx context.Context, filter repository.ReviewerFilter) ([]*models.Reviewer, error) {
	var reviewers []*models.Reviewer
	err := s.store.View(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		reviewers, err = tx.ListReviewers(ctx, filter)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list reviewers: %w", err)
	}
	return reviewers, nil
}

// SetReviewerStatus changes a reviewer's presence. Going offline returns every
// held item to pending and resets the queue count in the same transaction.
// Coming online triggers a refill.
func (s *ModerationService) SetReviewerStatus(ctx context.Context, id string, status models.ReviewerStatus) (*models.Reviewer, error) {
	if !status.Valid() {
		return nil, &ValidationError{Message: fmt.Sprintf("invalid reviewer status: %q", status)}
	}

	var (
		reviewer *models.Reviewer
		released []string
		changed  bool
	)
	now := s.timestamp()
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		if reviewer, err = tx.GetReviewer(ctx, id); err != nil {
			return err
		}
		changed = reviewer.Status != status
		reviewer.Status = status
		if status == models.ReviewerStatusOffline {
			if released, err = s.releaseAll(ctx, tx, reviewer, now); err != nil {
				return err
			}
		}
		if !changed && len(released) == 0 {
			return nil
		}
		reviewer.UpdatedAt = now
		return tx.SaveReviewer(ctx, reviewer)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set reviewer %s status: %w", id, err)
	}

	logger.Log.Info("Reviewer status set",
		zap.String("reviewerId", id),
		zap.String("status", string(status)),
		zap.Int("released", len(released)),
	)
	events := s.releasedEvents(id, metrics.ReleaseOffline, released, now)
	if changed {
		e := s.event(EventReviewerStatus, now)
		e.ReviewerID = id
		e.Attributes = map[string]string{"status": string(status)}
		events = append(events, e)
	}
	s.bus.Publish(ctx, events...)

	if status == models.ReviewerStatusOnline {
		s.refill(ctx, id)
		return s.GetReviewer(ctx, id)
	}
	return reviewer, nil
}

// SetCapacity changes a reviewer's queue ceiling. Shrinking below the current
// count evicts nothing; the reviewer just receives no work until it drains.
func (s *ModerationService) SetCapacity(ctx context.Context, id string, capacity int) (*models.Reviewer, error) {
	if err := s.validator.ValidateCapacity(capacity); err != nil {
		return nil, invalid(err)
	}

	var (
		reviewer *models.Reviewer
		grew     bool
	)
	now := s.timestamp()
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		if reviewer, err = tx.GetReviewer(ctx, id); err != nil {
			return err
		}
		grew = capacity > reviewer.QueueCapacity
		reviewer.QueueCapacity = capacity
		reviewer.UpdatedAt = now
		return tx.SaveReviewer(ctx, reviewer)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set reviewer %s capacity: %w", id, err)
	}

	logger.Log.Info("Reviewer capacity set",
		zap.String("reviewerId", id),
		zap.Int("capacity", capacity),
		zap.Int("current", reviewer.CurrentQueueCount),
	)
	e := s.event(EventReviewerCapacity, now)
	e.ReviewerID = id
	e.Attributes = map[string]string{"capacity": strconv.Itoa(capacity)}
	s.bus.Publish(ctx, e)

	if grew && reviewer.Status == models.ReviewerStatusOnline {
		s.refill(ctx, id)
		return s.GetReviewer(ctx, id)
	}
	return reviewer, nil
}

// Recall returns every item a reviewer holds to pending without changing the
// reviewer's status. It returns the released content ids.
func (s *ModerationService) Recall(ctx context.Context, id string) ([]string, error) {
	var released []string
	now := s.timestamp()
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		reviewer, err := tx.GetReviewer(ctx, id)
		if err != nil {
			return err
		}
		if released, err = s.releaseAll(ctx, tx, reviewer, now); err != nil {
			return err
		}
		return tx.SaveReviewer(ctx, reviewer)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to recall tasks from reviewer %s: %w", id, err)
	}

	logger.Log.Info("Reviewer tasks recalled",
		zap.String("reviewerId", id),
		zap.Int("released", len(released)),
	)
	s.bus.Publish(ctx, s.releasedEvents(id, metrics.ReleaseRecall, released, now)...)
	return released, nil
}

// DeleteReviewer releases every item the reviewer holds and then removes it.
// Review records written by the reviewer are kept.
func (s *ModerationService) DeleteReviewer(ctx context.Context, id string) error {
	var released []string
	now := s.timestamp()
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		reviewer, err := tx.GetReviewer(ctx, id)
		if err != nil {
			return err
		}
		if released, err = s.releaseAll(ctx, tx, reviewer, now); err != nil {
			return err
		}
		return tx.DeleteReviewer(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("failed to delete reviewer %s: %w", id, err)
	}

	logger.Log.Info("Reviewer deleted",
		zap.String("reviewerId", id),
		zap.Int("released", len(released)),
	)
	events := s.releasedEvents(id, metrics.ReleaseDelete, released, now)
	e := s.event(EventReviewerDeleted, now)
	e.ReviewerID = id
	s.bus.Publish(ctx, append(events, e)...)
	return nil
}
