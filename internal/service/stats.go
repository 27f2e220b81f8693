package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/kyosocan/demo-C-platform/internal/db"
	"github.com/kyosocan/demo-C-platform/internal/models"
	"github.com/kyosocan/demo-C-platform/internal/repository"
)

// Statistics date-range presets.
const (
	RangeAll   = "all"
	RangeToday = "today"
	RangeWeek  = "week"
	RangeMonth = "month"
)

// WindowForRange converts a preset into a window ending now. Today starts at
// midnight in now's location; week and month are the trailing 7 and 30 days.
func WindowForRange(name string, now time.Time) (models.StatsWindow, error) {
	var from time.Time
	switch name {
	case "", RangeAll:
		return models.StatsWindow{}, nil
	case RangeToday:
		y, m, d := now.Date()
		from = time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	case RangeWeek:
		from = now.AddDate(0, 0, -7)
	case RangeMonth:
		from = now.AddDate(0, 0, -30)
	default:
		return models.StatsWindow{}, &ValidationError{Message: fmt.Sprintf("unknown date range %q", name)}
	}
	return models.StatsWindow{From: &from}, nil
}

// Window resolves a preset against the service clock.
func (s *ModerationService) Window(name string) (models.StatsWindow, error) {
	return WindowForRange(name, s.now())
}

func ratio(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole)
}

// aggregate folds review records into per-reviewer statistics.
func aggregate(stats *models.ReviewerStats, records []*models.ReviewRecord) {
	for _, r := range records {
		stats.TotalReviewed++
		switch r.Action {
		case models.ReviewActionApproved:
			stats.ApprovedCount++
		case models.ReviewActionRejected:
			stats.RejectedCount++
		}
		if r.IsOverturned {
			stats.OverturnedCount++
		}
		if r.Content.Source == models.ContentSourceReported {
			stats.ReportedContentCount++
		}
	}
	stats.OverturnRate = ratio(stats.OverturnedCount, stats.TotalReviewed)
}

// ReviewerStats derives one reviewer's statistics from their records. Records
// of a deleted reviewer are still reported.
func (s *ModerationService) ReviewerStats(ctx context.Context, reviewerID string, window models.StatsWindow) (*models.ReviewerStats, error) {
	stats := &models.ReviewerStats{ReviewerID: reviewerID}
	err := s.store.View(ctx, func(ctx context.Context, tx repository.Tx) error {
		reviewer, err := tx.GetReviewer(ctx, reviewerID)
		switch {
		case err == nil:
			stats.ReviewerName = reviewer.Name
			stats.Status = reviewer.Status
		case !db.IsNotFound(err):
			return err
		}

		records, err := tx.ListRecords(ctx, repository.RecordFilter{ReviewerID: reviewerID, Window: window})
		if err != nil {
			return err
		}
		if reviewer == nil {
			if n, err := tx.CountRecords(ctx, repository.RecordFilter{ReviewerID: reviewerID}); err != nil {
				return err
			} else if n == 0 {
				return fmt.Errorf("reviewer %s: %w", reviewerID, db.ErrNotFound)
			}
			if len(records) > 0 {
				stats.ReviewerName = records[0].ReviewerName
			}
		}
		aggregate(stats, records)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compute reviewer stats: %w", err)
	}
	return stats, nil
}

// Leaderboard returns statistics for every registered reviewer, most decisions first.
func (s *ModerationService) Leaderboard(ctx context.Context, window models.StatsWindow) ([]*models.ReviewerStats, error) {
	var board []*models.ReviewerStats
	err := s.store.View(ctx, func(ctx context.Context, tx repository.Tx) error {
		reviewers, err := tx.ListReviewers(ctx, repository.ReviewerFilter{})
		if err != nil {
			return err
		}
		records, err := tx.ListRecords(ctx, repository.RecordFilter{Window: window})
		if err != nil {
			return err
		}
		byReviewer := make(map[string][]*models.ReviewRecord)
		for _, r := range records {
			byReviewer[r.ReviewerID] = append(byReviewer[r.ReviewerID], r)
		}

		board = make([]*models.ReviewerStats, 0, len(reviewers))
		for _, rv := range reviewers {
			st := &models.ReviewerStats{ReviewerID: rv.ID, ReviewerName: rv.Name, Status: rv.Status}
			aggregate(st, byReviewer[rv.ID])
			board = append(board, st)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compute leaderboard: %w", err)
	}

	sort.SliceStable(board, func(i, j int) bool {
		return board[i].TotalReviewed > board[j].TotalReviewed
	})
	return board, nil
}

// SystemStats derives the system-wide summary. The window applies to review
// records only; queue sizes and reporting counts describe the current state.
func (s *ModerationService) SystemStats(ctx context.Context, window models.StatsWindow) (*models.SystemStats, error) {
	stats := &models.SystemStats{Window: window}
	var totalContents int
	err := s.store.View(ctx, func(ctx context.Context, tx repository.Tx) error {
		pending, err := tx.CountContents(ctx, repository.ContentFilter{
			Statuses: []models.ContentStatus{models.ContentStatusPending, models.ContentStatusUnderReview},
		})
		if err != nil {
			return err
		}
		underReview, err := tx.CountContents(ctx, repository.ContentFilter{
			Statuses: []models.ContentStatus{models.ContentStatusUnderReview},
		})
		if err != nil {
			return err
		}
		reported, err := tx.CountContents(ctx, repository.ContentFilter{Source: models.ContentSourceReported})
		if err != nil {
			return err
		}
		if totalContents, err = tx.CountContents(ctx, repository.ContentFilter{}); err != nil {
			return err
		}
		online, err := tx.ListReviewers(ctx, repository.ReviewerFilter{Status: models.ReviewerStatusOnline})
		if err != nil {
			return err
		}
		records, err := tx.ListRecords(ctx, repository.RecordFilter{Window: window})
		if err != nil {
			return err
		}

		stats.TotalPending = pending
		stats.TotalUnderReview = underReview
		stats.TotalReported = reported
		stats.OnlineReviewers = len(online)
		stats.TotalReviewed = len(records)
		for _, r := range records {
			if r.IsOverturned {
				stats.TotalOverturned++
				continue
			}
			switch r.Action {
			case models.ReviewActionApproved:
				stats.TotalApproved++
			case models.ReviewActionRejected:
				stats.TotalRejected++
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compute system stats: %w", err)
	}

	stats.ApprovalRate = ratio(stats.TotalApproved, stats.TotalApproved+stats.TotalRejected)
	stats.ReportedRate = ratio(stats.TotalReported, totalContents)
	return stats, nil
}
