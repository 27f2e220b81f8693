// Package scheduler runs the periodic fill sweep inside the server process
// when no task queue is configured.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/kyosocan/demo-C-platform/pkg/logger"
)

// Sweeper tops up every online reviewer's queue.
type Sweeper interface {
	FillAll(ctx context.Context) (int, error)
}

// FillTicker calls Sweeper.FillAll on a fixed interval. A sweep still running
// when the next tick fires causes that tick to be skipped.
type FillTicker struct {
	cron    *cron.Cron
	sweeper Sweeper
	timeout time.Duration
	log     *zap.Logger
}

// NewFillTicker creates a ticker. cron rounds intervals below one second up
// to one second. Each sweep is bounded by timeout.
func NewFillTicker(sweeper Sweeper, interval, timeout time.Duration) (*FillTicker, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("fill interval must be positive, got %s", interval)
	}
	log := logger.Named("fill-ticker")
	cl := cronLogger{log: log.Sugar()}

	t := &FillTicker{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		sweeper: sweeper,
		timeout: timeout,
		log:     log,
	}
	t.cron.Schedule(cron.Every(interval), cron.FuncJob(t.RunOnce))
	return t, nil
}

// RunOnce performs one sweep.
func (t *FillTicker) RunOnce() {
	ctx := context.Background()
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	n, err := t.sweeper.FillAll(ctx)
	if err != nil {
		t.log.Warn("Fill sweep finished with errors", zap.Int("assigned", n), zap.Error(err))
		return
	}
	if n > 0 {
		t.log.Info("Fill sweep assigned items", zap.Int("assigned", n))
	}
}

// Start starts the ticker in its own goroutine.
func (t *FillTicker) Start() {
	t.cron.Start()
}

// Stop stops the ticker and waits for a running sweep to finish or ctx to end.
func (t *FillTicker) Stop(ctx context.Context) error {
	done := t.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
