package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kyosocan/demo-C-platform/internal/db"
	"github.com/kyosocan/demo-C-platform/internal/models"
	"github.com/kyosocan/demo-C-platform/internal/repository"
)

type mockFillScheduler struct {
	mock.Mock
}

func (m *mockFillScheduler) ScheduleFill(ctx context.Context, reviewerID string) error {
	args := m.Called(ctx, reviewerID)
	return args.Error(0)
}

func TestCreateReviewer(t *testing.T) {
	s, _ := newTestService(t, WithDefaultCapacity(7))
	ctx := context.Background()

	r, err := s.CreateReviewer(ctx, NewReviewer{Username: "olive", Name: "Olive"})
	require.NoError(t, err)
	assert.Equal(t, models.ReviewerStatusOffline, r.Status)
	assert.Equal(t, 7, r.QueueCapacity)
	assert.Zero(t, r.CurrentQueueCount)

	tests := []struct {
		name  string
		in    NewReviewer
		check func(error) bool
	}{
		{"duplicate username", NewReviewer{Username: "olive", Name: "Other"}, db.IsDuplicateKey},
		{"capacity over maximum", NewReviewer{Username: "pat", Name: "Pat", QueueCapacity: 51}, IsValidation},
		{"negative capacity", NewReviewer{Username: "pat", Name: "Pat", QueueCapacity: -1}, IsValidation},
		{"missing name", NewReviewer{Username: "pat"}, IsValidation},
		{"bad username", NewReviewer{Username: "p", Name: "Pat"}, IsValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateReviewer(ctx, tt.in)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
		})
	}

	list, err := s.ListReviewers(ctx, repository.ReviewerFilter{Search: "oLi"})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSetReviewerStatus(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	_, err := s.SetReviewerStatus(ctx, "missing", models.ReviewerStatusOnline)
	assert.True(t, db.IsNotFound(err))

	r := reviewer(t, s, "quinn", 2, false)
	_, err = s.SetReviewerStatus(ctx, r.ID, "away")
	assert.True(t, IsValidation(err))

	got, err := s.SetReviewerStatus(ctx, r.ID, models.ReviewerStatusOffline)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewerStatusOffline, got.Status)
}

func TestSetCapacity(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	for _, id := range []string{"A", "B", "C", "D"} {
		ingest(t, s, id)
	}
	r := reviewer(t, s, "rae", 3, true)
	require.Equal(t, 3, r.CurrentQueueCount)

	shrunk, err := s.SetCapacity(ctx, r.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, shrunk.QueueCapacity)
	assert.Equal(t, 3, shrunk.CurrentQueueCount, "shrinking evicts nothing")
	assert.Equal(t, []string{"A", "B", "C"}, queueIDs(t, s, r.ID))

	assigned, err := s.Fill(ctx, r.ID)
	require.NoError(t, err)
	assert.Empty(t, assigned, "over capacity receives no work")

	grown, err := s.SetCapacity(ctx, r.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, grown.CurrentQueueCount, "growing refills")
	assert.Equal(t, models.ContentStatusUnderReview, status(t, s, "D"))

	_, err = s.SetCapacity(ctx, r.ID, 0)
	assert.True(t, IsValidation(err))
	_, err = s.SetCapacity(ctx, "missing", 2)
	assert.True(t, db.IsNotFound(err))
}

func TestRecall(t *testing.T) {
	s, _ := newTestService(t, WithAutoFill(false))
	ctx := context.Background()

	r := reviewer(t, s, "sam", 3, true)
	ingest(t, s, "A")
	ingest(t, s, "B")
	_, err := s.Fill(ctx, r.ID)
	require.NoError(t, err)

	released, err := s.Recall(ctx, r.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"A", "B"}, released)

	got, err := s.GetReviewer(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewerStatusOnline, got.Status, "recall keeps the reviewer online")
	assert.Zero(t, got.CurrentQueueCount)
	assert.Equal(t, models.ContentStatusPending, status(t, s, "A"))

	released, err = s.Recall(ctx, r.ID)
	require.NoError(t, err)
	assert.Empty(t, released)
}

func TestDeleteReviewer(t *testing.T) {
	s, _ := newTestService(t, WithAutoFill(false))
	ctx := context.Background()

	r := reviewer(t, s, "tia", 3, true)
	record := decided(t, s, "A", r, models.ReviewActionApproved)
	ingest(t, s, "B")
	_, err := s.Fill(ctx, r.ID)
	require.NoError(t, err)

	require.NoError(t, s.DeleteReviewer(ctx, r.ID))
	_, err = s.GetReviewer(ctx, r.ID)
	assert.True(t, db.IsNotFound(err))
	assert.Equal(t, models.ContentStatusPending, status(t, s, "B"))

	kept, err := s.GetRecord(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, kept.ReviewerID)

	assert.True(t, db.IsNotFound(s.DeleteReviewer(ctx, r.ID)))
}

func TestRefill_UsesScheduler(t *testing.T) {
	sched := new(mockFillScheduler)
	s, _ := newTestService(t, WithFillScheduler(sched))
	ctx := context.Background()

	r, err := s.CreateReviewer(ctx, NewReviewer{Username: "uma", Name: "Uma", QueueCapacity: 2})
	require.NoError(t, err)
	sched.On("ScheduleFill", mock.Anything, r.ID).Return(nil)

	ingest(t, s, "A")
	_, err = s.SetReviewerStatus(ctx, r.ID, models.ReviewerStatusOnline)
	require.NoError(t, err)
	assert.Equal(t, models.ContentStatusPending, status(t, s, "A"), "fill is deferred to the worker")

	_, err = s.Assign(ctx, "A", r.ID)
	require.NoError(t, err)
	_, err = s.Decide(ctx, Decision{ContentID: "A", ReviewerID: r.ID, Action: models.ReviewActionApproved})
	require.NoError(t, err)

	sched.AssertNumberOfCalls(t, "ScheduleFill", 2)
	sched.AssertExpectations(t)
}

func TestRefill_SchedulerFailureIsNotFatal(t *testing.T) {
	sched := new(mockFillScheduler)
	sched.On("ScheduleFill", mock.Anything, mock.Anything).Return(assert.AnError)
	s, _ := newTestService(t, WithFillScheduler(sched))

	r := reviewer(t, s, "val", 2, true)
	assert.Equal(t, models.ReviewerStatusOnline, r.Status)
	sched.AssertCalled(t, "ScheduleFill", mock.Anything, r.ID)
}
