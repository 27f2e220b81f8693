package queue

import (
	"context"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockEnqueuer struct {
	mock.Mock
}

func (m *mockEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(ctx, task, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*asynq.TaskInfo), args.Error(1)
}

func (m *mockEnqueuer) Close() error {
	return m.Called().Error(0)
}

func hasOption(opts []asynq.Option, typ asynq.OptionType, value interface{}) bool {
	for _, o := range opts {
		if o.Type() == typ && o.Value() == value {
			return true
		}
	}
	return false
}

func TestClient_ScheduleFill(t *testing.T) {
	e := new(mockEnqueuer)
	c := newClient(e)
	c.now = func() time.Time { return time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC) }

	e.On("EnqueueContext", mock.Anything,
		mock.MatchedBy(func(task *asynq.Task) bool {
			p, err := UnmarshalFillReviewerPayload(task.Payload())
			return err == nil && task.Type() == TypeFillReviewer && p.ReviewerID == "r-1"
		}),
		mock.MatchedBy(func(opts []asynq.Option) bool {
			return hasOption(opts, asynq.TaskIDOpt, "fill:r-1") && hasOption(opts, asynq.QueueOpt, QueueFill)
		}),
	).Return(&asynq.TaskInfo{ID: "fill:r-1"}, nil).Once()

	require.NoError(t, c.ScheduleFill(context.Background(), "r-1"))
	e.AssertExpectations(t)
}

func TestClient_ScheduleFill_AlreadyQueued(t *testing.T) {
	e := new(mockEnqueuer)
	c := newClient(e)
	e.On("EnqueueContext", mock.Anything, mock.Anything, mock.Anything).Return(nil, asynq.ErrTaskIDConflict)

	assert.NoError(t, c.ScheduleFill(context.Background(), "r-1"))
}

func TestClient_ScheduleFill_Errors(t *testing.T) {
	e := new(mockEnqueuer)
	c := newClient(e)

	assert.Error(t, c.ScheduleFill(context.Background(), ""))
	e.AssertNotCalled(t, "EnqueueContext", mock.Anything, mock.Anything, mock.Anything)

	e.On("EnqueueContext", mock.Anything, mock.Anything, mock.Anything).Return(nil, assert.AnError)
	err := c.ScheduleFill(context.Background(), "r-2")
	assert.ErrorIs(t, err, assert.AnError)
}

func TestClient_EnqueueFillAll(t *testing.T) {
	e := new(mockEnqueuer)
	c := newClient(e)
	e.On("EnqueueContext", mock.Anything,
		mock.MatchedBy(func(task *asynq.Task) bool { return task.Type() == TypeFillAll }),
		mock.Anything,
	).Return(&asynq.TaskInfo{ID: "t-1"}, nil)
	e.On("Close").Return(nil)

	require.NoError(t, c.EnqueueFillAll(context.Background()))
	require.NoError(t, c.Close())
	e.AssertExpectations(t)
}
