package queue

import (
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/kyosocan/demo-C-platform/pkg/logger"
)

// PeriodicScheduler enqueues a fill sweep on a fixed interval. Run it in one
// process only; every worker connected to the same Redis processes the sweeps.
type PeriodicScheduler struct {
	scheduler *asynq.Scheduler
	entryID   string
}

// CronSpec returns the asynq cron spec for a fixed interval.
func CronSpec(interval time.Duration) string {
	return "@every " + interval.String()
}

// NewPeriodicScheduler registers the fill sweep at interval.
func NewPeriodicScheduler(redisURL string, interval time.Duration) (*PeriodicScheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("fill interval must be positive, got %s", interval)
	}
	redisOpt, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	s := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		Location: time.UTC,
		Logger:   newAsynqLogger(logger.Named("asynq-scheduler")),
	})
	entryID, err := s.Register(CronSpec(interval), asynq.NewTask(TypeFillAll, nil),
		asynq.Queue(QueueFill),
		asynq.MaxRetry(0),
		// A sweep still waiting when the next one fires is enough.
		asynq.Unique(interval),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register fill sweep: %w", err)
	}

	logger.Log.Info("Registered periodic fill sweep",
		zap.String("entryId", entryID),
		zap.Duration("interval", interval),
	)
	return &PeriodicScheduler{scheduler: s, entryID: entryID}, nil
}

// Start starts the scheduler in the background.
func (p *PeriodicScheduler) Start() error {
	return p.scheduler.Start()
}

// Stop stops the scheduler.
func (p *PeriodicScheduler) Stop() {
	p.scheduler.Shutdown()
}
