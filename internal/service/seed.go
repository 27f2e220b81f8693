package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kyosocan/demo-C-platform/internal/db"
	"github.com/kyosocan/demo-C-platform/internal/models"
	"github.com/kyosocan/demo-C-platform/internal/repository"
	"github.com/kyosocan/demo-C-platform/pkg/logger"
)

var demoReviewers = []NewReviewer{
	{Username: "reviewer1", Name: "Li Shen", QueueCapacity: 10},
	{Username: "reviewer2", Name: "Wang Ming", QueueCapacity: 8},
	{Username: "reviewer3", Name: "Zhao Hua", QueueCapacity: 5},
}

type demoPost struct {
	title     string
	text      string
	publisher models.Publisher
	report    *models.ReportInfo
}

var demoPosts = []demoPost{
	{
		title:     "Spring outfit of the day",
		text:      "Light layers for changing weather, links in the comments.",
		publisher: models.Publisher{ID: "pub-1001", Nickname: "x*hua", RegisterDays: 420, PostCount: 86},
	},
	{
		title:     "One week meal prep for weight loss",
		text:      "Seven days of lunches under 500 kcal each.",
		publisher: models.Publisher{ID: "pub-1002", Nickname: "fit**pro", RegisterDays: 35, PostCount: 12},
	},
	{
		title:     "Exclusive: celebrity private life exposed",
		text:      "Leaked photos from a private party, DM for the full set.",
		publisher: models.Publisher{ID: "pub-1003", Nickname: "gos**ip", RegisterDays: 3, PostCount: 40},
		report: &models.ReportInfo{
			ReportType:   models.ReportTypeInappropriate,
			ReporterID:   "user-77",
			ReportReason: "Invades privacy and spreads rumours",
		},
	},
	{
		title:     "This face cream really works",
		text:      "Used it for a month, before and after photos inside.",
		publisher: models.Publisher{ID: "pub-1004", Nickname: "bea**ty", RegisterDays: 210, PostCount: 150},
	},
	{
		title:     "Selling a brand new designer bag, cheap",
		text:      "Never used, receipts lost, first come first served.",
		publisher: models.Publisher{ID: "pub-1005", Nickname: "sec**and", RegisterDays: 12, PostCount: 7},
		report: &models.ReportInfo{
			ReportType:   models.ReportTypeCopyright,
			ReporterID:   "brand-legal",
			ReportReason: "Counterfeit product using our trademark",
		},
	},
	{
		title:     "Seven days in Yunnan travel vlog",
		text:      "Itinerary, budget and the best noodle shops we found.",
		publisher: models.Publisher{ID: "pub-1006", Nickname: "tra**ler", RegisterDays: 890, PostCount: 301},
	},
}

// SeedDemoData registers demo reviewers and ingests demo posts so an empty
// store has something to moderate. Items are spaced a minute apart, oldest
// first. It does nothing when reviewers already exist.
func (s *ModerationService) SeedDemoData(ctx context.Context) error {
	existing, err := s.ListReviewers(ctx, repository.ReviewerFilter{})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		logger.Log.Info("Store already populated, skipping demo data", zap.Int("reviewers", len(existing)))
		return nil
	}

	for _, r := range demoReviewers {
		if _, err := s.CreateReviewer(ctx, r); err != nil && !db.IsDuplicateKey(err) {
			return fmt.Errorf("failed to seed reviewer %s: %w", r.Username, err)
		}
	}

	base := s.now().Add(-time.Duration(len(demoPosts)) * time.Minute)
	for i, p := range demoPosts {
		createdAt := base.Add(time.Duration(i) * time.Minute)
		in := &models.NewContent{
			Title:     p.title,
			Text:      p.text,
			Publisher: p.publisher,
			Source:    models.ContentSourceNormal,
			CreatedAt: &createdAt,
		}
		if p.report != nil {
			report := *p.report
			report.ReportedAt = createdAt
			in.Source = models.ContentSourceReported
			in.ReportInfo = &report
		}
		if _, err := s.IngestContent(ctx, in); err != nil {
			return fmt.Errorf("failed to seed content %q: %w", p.title, err)
		}
	}

	logger.Log.Info("Demo data seeded",
		zap.Int("reviewers", len(demoReviewers)),
		zap.Int("contents", len(demoPosts)),
	)
	return nil
}
