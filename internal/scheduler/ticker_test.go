package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type countingSweeper struct {
	calls atomic.Int32
	err   error
	block chan struct{}
}

func (s *countingSweeper) FillAll(ctx context.Context) (int, error) {
	s.calls.Add(1)
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	return 1, s.err
}

func TestNewFillTicker_InvalidInterval(t *testing.T) {
	_, err := NewFillTicker(&countingSweeper{}, 0, time.Second)
	assert.Error(t, err)
}

func TestFillTicker_RunOnce(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"success", nil},
		{"sweep error is logged", assert.AnError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &countingSweeper{err: tt.err}
			ticker, err := NewFillTicker(s, time.Minute, time.Second)
			require.NoError(t, err)

			ticker.RunOnce()
			assert.Equal(t, int32(1), s.calls.Load())
		})
	}
}

func TestFillTicker_RunOnceTimeout(t *testing.T) {
	s := &countingSweeper{block: make(chan struct{})}
	ticker, err := NewFillTicker(s, time.Minute, 20*time.Millisecond)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		ticker.RunOnce()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweep was not bounded by the timeout")
	}
}

func TestFillTicker_TicksAndStopsCleanly(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := &countingSweeper{}
	ticker, err := NewFillTicker(s, time.Second, time.Second)
	require.NoError(t, err)
	ticker.Start()

	assert.Eventually(t, func() bool { return s.calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, ticker.Stop(ctx))
}
