package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kyosocan/demo-C-platform/internal/db"
	"github.com/kyosocan/demo-C-platform/internal/metrics"
	"github.com/kyosocan/demo-C-platform/internal/models"
	"github.com/kyosocan/demo-C-platform/internal/repository"
	"github.com/kyosocan/demo-C-platform/pkg/logger"
)

// Fill assigns the oldest pending items to a reviewer until its queue is full.
// An offline or full reviewer is left untouched and no items are returned.
func (s *ModerationService) Fill(ctx context.Context, reviewerID string) ([]*models.ContentItem, error) {
	var assigned []*models.ContentItem
	now := s.timestamp()

	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		assigned = nil
		reviewer, err := tx.GetReviewer(ctx, reviewerID)
		if err != nil {
			return err
		}
		slots := reviewer.AvailableSlots()
		if slots == 0 {
			return nil
		}

		candidates, err := tx.ListContents(ctx, repository.ContentFilter{
			Statuses: []models.ContentStatus{models.ContentStatusPending},
			Order:    repository.OrderCreatedAsc,
			Limit:    slots,
		})
		if err != nil {
			return err
		}
		for _, c := range candidates {
			if c.Status != models.ContentStatusPending || c.AssignedReviewerID != nil {
				continue
			}
			c.Assign(reviewer.ID, now)
			if err := tx.SaveContent(ctx, c); err != nil {
				return err
			}
			reviewer.CurrentQueueCount++
			assigned = append(assigned, c)
		}
		if len(assigned) == 0 {
			return nil
		}
		reviewer.UpdatedAt = now
		return tx.SaveReviewer(ctx, reviewer)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fill reviewer %s: %w", reviewerID, err)
	}

	if len(assigned) == 0 {
		logger.Log.Debug("Fill made no assignments", zap.String("reviewerId", reviewerID))
		return nil, nil
	}

	events := make([]Event, 0, len(assigned))
	for _, c := range assigned {
		e := s.event(EventContentAssigned, now)
		e.ContentID = c.ID
		e.ReviewerID = reviewerID
		events = append(events, e)
	}
	metrics.AssignmentsTotal.Add(float64(len(assigned)))
	logger.Log.Info("Reviewer queue filled",
		zap.String("reviewerId", reviewerID),
		zap.Int("assigned", len(assigned)),
	)
	s.bus.Publish(ctx, events...)
	return assigned, nil
}

// FillAll runs Fill for every online reviewer in registration order and
// returns the number of items assigned. A failure for one reviewer does not
// stop the sweep; all failures are returned joined.
func (s *ModerationService) FillAll(ctx context.Context) (int, error) {
	start := time.Now()
	defer func() { metrics.FillDuration.Observe(time.Since(start).Seconds()) }()

	reviewers, err := s.ListReviewers(ctx, repository.ReviewerFilter{Status: models.ReviewerStatusOnline})
	if err != nil {
		return 0, err
	}

	var (
		total int
		errs  []error
	)
	for _, r := range reviewers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		assigned, err := s.Fill(ctx, r.ID)
		if err != nil {
			// The reviewer may have been deleted since the listing.
			if db.IsNotFound(err) {
				continue
			}
			errs = append(errs, err)
			continue
		}
		total += len(assigned)
	}

	s.RefreshGauges(ctx)
	return total, errors.Join(errs...)
}

// Assign manually places one pending item in a reviewer's queue. The item must
// be pending and the reviewer online with a free slot.
func (s *ModerationService) Assign(ctx context.Context, contentID, reviewerID string) (*models.ContentItem, error) {
	var item *models.ContentItem
	now := s.timestamp()

	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		if item, err = tx.GetContent(ctx, contentID); err != nil {
			return err
		}
		reviewer, err := tx.GetReviewer(ctx, reviewerID)
		if err != nil {
			return err
		}
		switch {
		case item.Status == models.ContentStatusUnderReview:
			return preconditionf("content %s is already assigned to reviewer %s", item.ID, *item.AssignedReviewerID)
		case item.Status != models.ContentStatusPending:
			return preconditionf("content %s is %s, not pending", item.ID, item.Status)
		case reviewer.Status != models.ReviewerStatusOnline:
			return preconditionf("reviewer %s is offline", reviewer.ID)
		case reviewer.AvailableSlots() == 0:
			return preconditionf("reviewer %s queue is full (%d/%d)",
				reviewer.ID, reviewer.CurrentQueueCount, reviewer.QueueCapacity)
		}

		item.Assign(reviewer.ID, now)
		if err := tx.SaveContent(ctx, item); err != nil {
			return err
		}
		reviewer.CurrentQueueCount++
		reviewer.UpdatedAt = now
		return tx.SaveReviewer(ctx, reviewer)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to assign content %s: %w", contentID, err)
	}

	metrics.AssignmentsTotal.Inc()
	logger.Log.Info("Content assigned",
		zap.String("contentId", contentID),
		zap.String("reviewerId", reviewerID),
	)
	e := s.event(EventContentAssigned, now)
	e.ContentID = contentID
	e.ReviewerID = reviewerID
	s.bus.Publish(ctx, e)
	return item, nil
}

// Unassign returns an item under review to the pending pool and frees the
// holder's slot.
func (s *ModerationService) Unassign(ctx context.Context, contentID string) (*models.ContentItem, error) {
	var (
		item       *models.ContentItem
		reviewerID string
	)
	now := s.timestamp()

	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		if item, err = tx.GetContent(ctx, contentID); err != nil {
			return err
		}
		if item.Status != models.ContentStatusUnderReview {
			return preconditionf("content %s is %s, not under review", item.ID, item.Status)
		}
		reviewerID = *item.AssignedReviewerID
		item.Release(models.ContentStatusPending, now)
		if err := tx.SaveContent(ctx, item); err != nil {
			return err
		}
		return s.releaseSlot(ctx, tx, reviewerID, now)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to unassign content %s: %w", contentID, err)
	}

	metrics.ReleasedTotal.WithLabelValues(metrics.ReleaseUnassign).Inc()
	logger.Log.Info("Content unassigned",
		zap.String("contentId", contentID),
		zap.String("reviewerId", reviewerID),
	)
	e := s.event(EventContentReleased, now)
	e.ContentID = contentID
	e.ReviewerID = reviewerID
	e.Attributes = map[string]string{"reason": metrics.ReleaseUnassign}
	s.bus.Publish(ctx, e)
	return item, nil
}

// Queue returns the items a reviewer currently holds, oldest assignment first.
func (s *ModerationService) Queue(ctx context.Context, reviewerID string) ([]*models.QueueEntry, error) {
	var items []*models.ContentItem
	err := s.store.View(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.GetReviewer(ctx, reviewerID); err != nil {
			return err
		}
		var err error
		items, err = tx.ListContents(ctx, repository.ContentFilter{
			Statuses:           []models.ContentStatus{models.ContentStatusUnderReview},
			AssignedReviewerID: reviewerID,
			Order:              repository.OrderAssignedAsc,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load queue for reviewer %s: %w", reviewerID, err)
	}
	return s.annotate(ctx, items), nil
}

// releaseSlot decrements a reviewer's queue count, flooring at zero. A
// missing reviewer is tolerated so a stale reference never blocks a release.
func (s *ModerationService) releaseSlot(ctx context.Context, tx repository.Tx, reviewerID string, now time.Time) error {
	reviewer, err := tx.GetReviewer(ctx, reviewerID)
	if db.IsNotFound(err) {
		logger.Log.Warn("Released item held by unknown reviewer", zap.String("reviewerId", reviewerID))
		return nil
	}
	if err != nil {
		return err
	}
	reviewer.ReleaseSlots(1)
	reviewer.UpdatedAt = now
	return tx.SaveReviewer(ctx, reviewer)
}

// releaseAll returns every item a reviewer holds to pending and resets the
// reviewer's count to zero. The reviewer itself is not saved.
func (s *ModerationService) releaseAll(ctx context.Context, tx repository.Tx, reviewer *models.Reviewer, now time.Time) ([]string, error) {
	held, err := tx.ListContents(ctx, repository.ContentFilter{
		Statuses:           []models.ContentStatus{models.ContentStatusUnderReview},
		AssignedReviewerID: reviewer.ID,
		Order:              repository.OrderAssignedAsc,
	})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(held))
	for _, c := range held {
		c.Release(models.ContentStatusPending, now)
		if err := tx.SaveContent(ctx, c); err != nil {
			return nil, err
		}
		ids = append(ids, c.ID)
	}
	reviewer.CurrentQueueCount = 0
	reviewer.UpdatedAt = now
	return ids, nil
}

func (s *ModerationService) releasedEvents(reviewerID, reason string, contentIDs []string, now time.Time) []Event {
	events := make([]Event, 0, len(contentIDs))
	for _, id := range contentIDs {
		e := s.event(EventContentReleased, now)
		e.ContentID = id
		e.ReviewerID = reviewerID
		e.Attributes = map[string]string{"reason": reason}
		events = append(events, e)
	}
	if len(contentIDs) > 0 {
		metrics.ReleasedTotal.WithLabelValues(reason).Add(float64(len(contentIDs)))
	}
	return events
}

// RefreshGauges recomputes the queue gauges from the store.
func (s *ModerationService) RefreshGauges(ctx context.Context) {
	var pending, underReview, online int
	err := s.store.View(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		if pending, err = tx.CountContents(ctx, repository.ContentFilter{
			Statuses: []models.ContentStatus{models.ContentStatusPending},
		}); err != nil {
			return err
		}
		if underReview, err = tx.CountContents(ctx, repository.ContentFilter{
			Statuses: []models.ContentStatus{models.ContentStatusUnderReview},
		}); err != nil {
			return err
		}
		reviewers, err := tx.ListReviewers(ctx, repository.ReviewerFilter{Status: models.ReviewerStatusOnline})
		online = len(reviewers)
		return err
	})
	if err != nil {
		logger.Log.Warn("Failed to refresh queue gauges", zap.Error(err))
		return
	}
	metrics.SetQueueDepth(pending, underReview, online)
}
