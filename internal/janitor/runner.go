package janitor

import (
	"context"
	"sync"
	"time"

	"studynotes/internal/services"
	"studynotes/pkg/logger"
)

// Sweeper is one pass of orphan cleanup.
type Sweeper interface {
	Sweep(ctx context.Context, opts services.SweepOptions) (services.SweepReport, error)
}

// Runner sweeps orphaned blobs on a fixed interval in the background.
type Runner struct {
	sweeper  Sweeper
	interval time.Duration
	log      *logger.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewRunner(sweeper Sweeper, interval time.Duration, log *logger.Logger) *Runner {
	return &Runner{sweeper: sweeper, interval: interval, log: log}
}

// Start launches the loop. A non-positive interval disables it.
func (r *Runner) Start(ctx context.Context) {
	if r.interval <= 0 {
		return
	}
	ctx, r.cancel = context.WithCancel(ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.Run(ctx)
	}()
}

// Stop cancels the loop and waits for an in-flight sweep to finish.
func (r *Runner) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	r.wg.Wait()
}

func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweepOnce(ctx)
		}
	}
}

func (r *Runner) sweepOnce(ctx context.Context) {
	report, err := r.sweeper.Sweep(ctx, services.SweepOptions{})
	if err != nil {
		if ctx.Err() == nil {
			r.log.Error("orphan sweep failed", "error", err)
		}
		return
	}
	if report.Orphaned > 0 {
		r.log.Info("orphan sweep finished",
			"scanned", report.Scanned,
			"orphaned", report.Orphaned,
			"deleted", report.Deleted,
			"failed", report.Failed,
		)
	}
}
