// Package scheduler runs periodic background jobs such as the overdue sweep.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/infinity-9427/invoicing/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Job is one execution of a periodic task
type Job func(ctx context.Context) error

// TriggerConfig holds configuration for an interval trigger
type TriggerConfig struct {
	Name     string
	Interval time.Duration
	// Timeout bounds a single run; zero means no bound
	Timeout time.Duration
	// RunOnStart runs the job once immediately after Start
	RunOnStart bool
}

// OverdueTriggerConfig derives the overdue sweep schedule from application config
func OverdueTriggerConfig(cfg config.SchedulerConfig) TriggerConfig {
	return TriggerConfig{
		Name:       "overdue-sweep",
		Interval:   cfg.OverdueInterval,
		Timeout:    cfg.JobTimeout,
		RunOnStart: true,
	}
}

// Trigger runs a job on a fixed interval. Runs never overlap: a tick that
// arrives while the previous run is still going is skipped.
type Trigger struct {
	config TriggerConfig
	job    Job
	logger *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	busy      atomic.Bool
	runs      atomic.Int64
}

// NewTrigger creates a new interval trigger
func NewTrigger(cfg TriggerConfig, job Job, logger *zap.Logger) (*Trigger, error) {
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("%w: interval must be positive", ErrInvalidConfig)
	}
	if job == nil {
		return nil, fmt.Errorf("%w: job is required", ErrInvalidConfig)
	}
	if cfg.Name == "" {
		cfg.Name = "job"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Trigger{config: cfg, job: job, logger: logger.With(zap.String("job", cfg.Name))}, nil
}

// Start launches the ticker loop. Calling Start twice is a no-op.
func (t *Trigger) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.isRunning {
		return nil
	}
	t.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("Scheduler trigger started",
		zap.Duration("interval", t.config.Interval),
		zap.Duration("timeout", t.config.Timeout),
	)
	return nil
}

// Stop cancels the loop, including an in-flight run, and waits for it to
// exit or for ctx to end.
func (t *Trigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.cancel()
	t.mu.Unlock()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("Scheduler trigger stopped", zap.Int64("runs", t.runs.Load()))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunNow executes the job synchronously outside the schedule
func (t *Trigger) RunNow(ctx context.Context) error {
	if !t.busy.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer t.busy.Store(false)
	return t.execute(ctx)
}

// Runs returns the number of completed runs
func (t *Trigger) Runs() int64 {
	return t.runs.Load()
}

func (t *Trigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	if t.config.RunOnStart {
		t.tick(ctx)
	}

	ticker := time.NewTicker(t.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.tick(ctx)
		}
	}
}

func (t *Trigger) tick(ctx context.Context) {
	if !t.busy.CompareAndSwap(false, true) {
		t.logger.Warn("Skipping run, previous run still in progress")
		return
	}
	defer t.busy.Store(false)

	if err := t.execute(ctx); err != nil && ctx.Err() == nil {
		t.logger.Error("Scheduled job failed", zap.Error(err))
	}
}

func (t *Trigger) execute(ctx context.Context) (err error) {
	if t.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.config.Timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
		t.runs.Add(1)
	}()

	start := time.Now()
	err = t.job(ctx)
	t.logger.Debug("Scheduled job finished", zap.Duration("duration", time.Since(start)), zap.Error(err))
	return err
}
