//go:build integration
// +build integration

package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyosocan/demo-C-platform/internal/db"
	"github.com/kyosocan/demo-C-platform/internal/db/testutil"
	"github.com/kyosocan/demo-C-platform/internal/models"
)

func setupPostgresStore(t *testing.T) (*PostgresStore, *testutil.TestDatabase) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test")
	}
	td := testutil.SetupTestDatabase(t)
	t.Cleanup(func() { td.Cleanup(t) })
	return NewPostgresStore(td.Pool), td
}

func TestPostgresStore_ContentRoundTrip(t *testing.T) {
	s, _ := setupPostgresStore(t)
	ctx := context.Background()

	c := newContent("c1", 0)
	c.Images = []string{"https://img.example/1.png"}
	c.Source = models.ContentSourceReported
	c.ReportInfo = &models.ReportInfo{
		ReportType: models.ReportTypeCopyright, ReporterID: "u9", ReportReason: "stolen", ReportedAt: baseTime,
	}
	seed(t, s, c)

	err := s.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		got, err := tx.GetContent(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, c.Images, got.Images)
		assert.Equal(t, c.Publisher, got.Publisher)
		require.NotNil(t, got.ReportInfo)
		assert.Equal(t, models.ReportTypeCopyright, got.ReportInfo.ReportType)

		got.Assign("r1", baseTime.Add(time.Minute))
		return tx.SaveContent(ctx, got)
	})
	require.NoError(t, err)

	err = s.View(ctx, func(ctx context.Context, tx Tx) error {
		items, err := tx.ListContents(ctx, ContentFilter{AssignedReviewerID: "r1"})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, models.ContentStatusUnderReview, items[0].Status)
		return nil
	})
	require.NoError(t, err)
}

func TestPostgresStore_ListContentsTiesByID(t *testing.T) {
	s, _ := setupPostgresStore(t)
	seed(t, s, newContent("b", 0), newContent("a", 0))

	err := s.View(context.Background(), func(ctx context.Context, tx Tx) error {
		items, err := tx.ListContents(ctx, ContentFilter{})
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "a", items[0].ID)
		assert.Equal(t, "b", items[1].ID)
		return nil
	})
	require.NoError(t, err)
}

func TestPostgresStore_AssignmentCheckConstraint(t *testing.T) {
	s, _ := setupPostgresStore(t)
	c := newContent("c1", 0)
	c.Status = models.ContentStatusUnderReview // no reviewer set

	err := s.WithTx(context.Background(), func(ctx context.Context, tx Tx) error {
		return tx.CreateContent(ctx, c)
	})
	assert.True(t, db.IsCheckViolation(err), "got %v", err)
}

func TestPostgresStore_RollbackOnError(t *testing.T) {
	s, _ := setupPostgresStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.CreateContent(ctx, newContent("c1", 0)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = s.View(ctx, func(ctx context.Context, tx Tx) error {
		_, err := tx.GetContent(ctx, "c1")
		assert.True(t, db.IsNotFound(err))
		return nil
	})
	require.NoError(t, err)
}

func TestPostgresStore_RecordSnapshotImmutable(t *testing.T) {
	s, _ := setupPostgresStore(t)
	ctx := context.Background()
	seed(t, s, newContent("c1", 0))

	rec := &models.ReviewRecord{
		ID: "rec-1", ContentID: "c1", Content: *newContent("c1", 0), ReviewerID: "r1", ReviewerName: "Alice",
		Action: models.ReviewActionRejected, RejectReason: models.RejectReasonSpam, ReviewedAt: baseTime,
	}
	err := s.WithTx(ctx, func(ctx context.Context, tx Tx) error { return tx.CreateRecord(ctx, rec) })
	require.NoError(t, err)

	err = s.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		got, err := tx.GetRecord(ctx, "rec-1")
		require.NoError(t, err)
		assert.Equal(t, models.RejectReasonSpam, got.RejectReason)
		assert.Equal(t, "title c1", got.Content.Title)

		by := "admin"
		at := baseTime.Add(time.Hour)
		got.IsOverturned = true
		got.OverturnedBy = &by
		got.OverturnedAt = &at
		return tx.SaveRecord(ctx, got)
	})
	require.NoError(t, err)

	_, err = s.pool.Exec(ctx, `UPDATE review_records SET action = 'approved' WHERE id = 'rec-1'`)
	assert.True(t, db.IsImmutableRecord(db.WrapError(err, "tamper")))
}

func TestPostgresStore_ListEntries(t *testing.T) {
	s, td := setupPostgresStore(t)
	ctx := context.Background()
	defer td.TruncateTables(t)

	for _, kind := range []models.ListKind{models.ListKindBlacklist, models.ListKindWhitelist} {
		err := s.WithTx(ctx, func(ctx context.Context, tx Tx) error {
			return tx.UpsertListEntry(ctx, &models.ListEntry{PublisherID: "p1", Kind: kind, AddedAt: baseTime, AddedBy: "admin"})
		})
		require.NoError(t, err)
	}

	err := s.View(ctx, func(ctx context.Context, tx Tx) error {
		e, err := tx.GetListEntry(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, models.ListKindWhitelist, e.Kind)
		return nil
	})
	require.NoError(t, err)

	err = s.WithTx(ctx, func(ctx context.Context, tx Tx) error { return tx.DeleteListEntry(ctx, "p1") })
	require.NoError(t, err)
}
