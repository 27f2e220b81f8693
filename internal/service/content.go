package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kyosocan/demo-C-platform/internal/models"
	"github.com/kyosocan/demo-C-platform/internal/repository"
	"github.com/kyosocan/demo-C-platform/pkg/logger"
)

// IngestContent stores a new content item in the pending pool.
func (s *ModerationService) IngestContent(ctx context.Context, in *models.NewContent) (*models.ContentItem, error) {
	if err := s.validator.ValidateContent(in); err != nil {
		logger.Log.Warn("Content validation failed",
			zap.Error(err),
			zap.String("publisherId", in.Publisher.ID),
		)
		return nil, invalid(err)
	}

	now := s.timestamp()
	item := &models.ContentItem{
		ID:          in.ID,
		Title:       in.Title,
		Text:        in.Text,
		Images:      in.Images,
		Attachments: in.Attachments,
		Publisher:   in.Publisher,
		Source:      in.Source,
		ReportInfo:  in.ReportInfo,
		Status:      models.ContentStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if item.ID == "" {
		item.ID = s.newID()
	}
	if item.Source == "" {
		item.Source = models.ContentSourceNormal
	}
	if in.CreatedAt != nil {
		item.CreatedAt = in.CreatedAt.UTC().Truncate(time.Microsecond)
	}

	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		return tx.CreateContent(ctx, item)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ingest content: %w", err)
	}

	logger.Log.Info("Content ingested",
		zap.String("contentId", item.ID),
		zap.String("source", string(item.Source)),
	)
	e := s.event(EventContentIngested, now)
	e.ContentID = item.ID
	e.PublisherID = item.Publisher.ID
	s.bus.Publish(ctx, e)
	return item, nil
}

// GetContent returns one content item.
func (s *ModerationService) GetContent(ctx context.Context, id string) (*models.ContentItem, error) {
	var item *models.ContentItem
	err := s.store.View(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		item, err = tx.GetContent(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// ListContents returns a page of content items and the total number matching the filter.
func (s *ModerationService) ListContents(ctx context.Context, filter repository.ContentFilter) ([]*models.ContentItem, int, error) {
	var (
		items []*models.ContentItem
		total int
	)
	err := s.store.View(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		if items, err = tx.ListContents(ctx, filter); err != nil {
			return err
		}
		total, err = tx.CountContents(ctx, filter)
		return err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list contents: %w", err)
	}
	return items, total, nil
}

// ListPending returns pending items oldest first, each tagged with its
// publisher's list flag. The flag is informational and never reorders the queue.
func (s *ModerationService) ListPending(ctx context.Context, filter repository.ContentFilter) ([]*models.QueueEntry, error) {
	filter.Statuses = []models.ContentStatus{models.ContentStatusPending}
	filter.AssignedReviewerID = ""
	filter.Order = repository.OrderCreatedAsc

	items, _, err := s.ListContents(ctx, filter)
	if err != nil {
		return nil, err
	}
	return s.annotate(ctx, items), nil
}

// UpdateContent applies a partial update to moderation-orthogonal attributes.
// Workflow fields are not part of the patch and cannot change here.
func (s *ModerationService) UpdateContent(ctx context.Context, id string, patch *models.ContentPatch) (*models.ContentItem, error) {
	if err := s.validator.ValidatePatch(patch); err != nil {
		return nil, invalid(err)
	}

	var item *models.ContentItem
	now := s.timestamp()
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		if item, err = tx.GetContent(ctx, id); err != nil {
			return err
		}
		patch.Apply(item)
		item.UpdatedAt = now
		return tx.SaveContent(ctx, item)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update content: %w", err)
	}

	e := s.event(EventContentUpdated, now)
	e.ContentID = id
	s.bus.Publish(ctx, e)
	return item, nil
}

func (s *ModerationService) annotate(ctx context.Context, items []*models.ContentItem) []*models.QueueEntry {
	out := make([]*models.QueueEntry, 0, len(items))
	for _, c := range items {
		out = append(out, &models.QueueEntry{
			Content:       c,
			PublisherList: s.PublisherListKind(ctx, c.Publisher.ID),
		})
	}
	return out
}
