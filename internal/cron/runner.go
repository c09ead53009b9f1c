// Package cron re-arms the daily reminders shortly after midnight, so
// the timers survive day rollover without anyone opening a client.
package cron

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/kristoffersk85-png/ivf-medicinpaminnare/internal/reminder"
)

// DefaultSpec fires at 00:05 local time every day. A few minutes past
// midnight keeps the regeneration clear of the date boundary itself.
const DefaultSpec = "5 0 * * *"

// SpecFor converts a local wall clock time "HH:MM" into a daily cron
// spec.
func SpecFor(dailyAt string) (string, error) {
	parsed, err := time.Parse("15:04", dailyAt)
	if err != nil {
		return "", fmt.Errorf("invalid daily time %q: %w", dailyAt, err)
	}
	return fmt.Sprintf("%d %d * * *", parsed.Minute(), parsed.Hour()), nil
}

// Runner drives the daily schedule regeneration.
type Runner struct {
	engine *reminder.Engine
	logger *zap.Logger
	spec   string

	mu      sync.RWMutex
	cron    *cron.Cron
	running bool
}

// NewRunner creates a runner with the default daily spec.
func NewRunner(engine *reminder.Engine, logger *zap.Logger) *Runner {
	return &Runner{
		engine: engine,
		logger: logger,
		spec:   DefaultSpec,
	}
}

// WithSpec overrides the default daily spec.
func (r *Runner) WithSpec(spec string) *Runner {
	r.spec = spec
	return r
}

// Start registers the daily job and starts the scheduler.
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return fmt.Errorf("cron runner already running")
	}

	c := cron.New()
	if _, err := c.AddFunc(r.spec, r.regenerate); err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", r.spec, err)
	}
	c.Start()

	r.cron = c
	r.running = true
	r.logger.Info("Cron runner started", zap.String("spec", r.spec))
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	c := r.cron
	r.cron = nil
	r.mu.Unlock()

	<-c.Stop().Done()
	r.logger.Info("Cron runner stopped")
}

// IsRunning returns whether the runner is active
func (r *Runner) IsRunning() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.running
}

// RunNow triggers one regeneration immediately.
func (r *Runner) RunNow() {
	r.regenerate()
}

func (r *Runner) regenerate() {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Panic in schedule regeneration", zap.Any("recover", rec))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	// Yesterday's entries first, so the map does not accumulate one
	// stale pair per dose per day.
	if pruned, err := r.engine.PruneStale(); err != nil {
		r.logger.Error("Failed to prune stale schedules", zap.Int("pruned", pruned), zap.Error(err))
	} else if pruned > 0 {
		r.logger.Info("Stale schedules pruned", zap.Int("pruned", pruned))
	}

	count, err := r.engine.ScheduleToday(ctx)
	if err != nil {
		r.logger.Error("Daily regeneration finished with errors",
			zap.Int("scheduled", count),
			zap.Error(err),
		)
		return
	}

	r.logger.Info("Daily reminders regenerated", zap.Int("scheduled", count))
}
