package service

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// DefaultAutoCloseInterval is how often the auto-close worker sweeps for
// overdue predictions.
const DefaultAutoCloseInterval = 30 * time.Second

// AutoCloseWorker periodically closes predictions whose lock deadline has
// elapsed. It runs one sweep immediately on start to catch predictions that
// expired while the process was down.
type AutoCloseWorker struct {
	voting   VotingService
	interval time.Duration
}

// NewAutoCloseWorker creates a new auto-close worker
func NewAutoCloseWorker(voting VotingService, interval time.Duration) *AutoCloseWorker {
	if interval <= 0 {
		interval = DefaultAutoCloseInterval
	}
	return &AutoCloseWorker{
		voting:   voting,
		interval: interval,
	}
}

// Start launches the worker goroutine and returns a cleanup function that
// stops it. After the cleanup function returns no further sweeps start; an
// in-flight sweep is allowed to finish.
func (w *AutoCloseWorker) Start(ctx context.Context) func() {
	ticker := time.NewTicker(w.interval)
	stopChan := make(chan struct{})

	go func() {
		log.WithField("interval", w.interval).Info("Auto-close worker started")

		// Run immediately on startup
		w.RunOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				log.Info("Auto-close worker shutting down (context cancelled)")
				return
			case <-stopChan:
				log.Info("Auto-close worker shutting down (stop requested)")
				return
			case <-ticker.C:
				w.RunOnce(ctx)
			}
		}
	}()

	return func() {
		ticker.Stop()
		close(stopChan)
	}
}

// RunOnce performs a single sweep. Errors are logged, never returned: a
// failed sweep must not stop future ticks.
func (w *AutoCloseWorker) RunOnce(ctx context.Context) {
	closed, err := w.voting.CloseExpiredPredictions(ctx)
	if err != nil {
		log.Errorf("Error sweeping expired predictions: %v", err)
		return
	}
	if closed > 0 {
		log.WithField("closed", closed).Info("Auto-closed expired predictions")
	}
}
