package worker

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Loop runs the worker as a long-lived background process: a single
// goroutine polling the ledger, plus a cron entry purging old terminal
// jobs.
type Loop struct {
	worker *Worker

	cron           *cron.Cron
	cronRegistered bool
	mu             sync.Mutex
	isRunning      bool
	cancelFunc     context.CancelFunc
	done           chan struct{}
}

// NewLoop creates a loop around a worker.
func NewLoop(w *Worker) *Loop {
	return &Loop{
		worker: w,
		cron:   cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins polling. Non-blocking; use Stop for graceful shutdown.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.isRunning {
		return nil
	}

	cfg := l.worker.config
	// Registered once; a Stop/Start cycle must not add a second entry.
	if !l.cronRegistered {
		if _, err := l.cron.AddFunc(cfg.CleanupSchedule, l.runCleanup); err != nil {
			return fmt.Errorf("invalid cleanup schedule %q: %w", cfg.CleanupSchedule, err)
		}
		l.cronRegistered = true
	}

	var loopCtx context.Context
	loopCtx, l.cancelFunc = context.WithCancel(ctx)
	l.done = make(chan struct{})

	l.cron.Start()
	l.isRunning = true
	go l.run(loopCtx)

	log.Printf("Worker: started, polling every %v, cleanup schedule %q", cfg.PollInterval, cfg.CleanupSchedule)
	return nil
}

// Stop halts polling and waits for an in-flight job to finish.
func (l *Loop) Stop() {
	l.mu.Lock()
	if !l.isRunning {
		l.mu.Unlock()
		return
	}
	l.isRunning = false
	cancel := l.cancelFunc
	done := l.done
	l.mu.Unlock()

	cancel()
	<-done

	cronCtx := l.cron.Stop()
	<-cronCtx.Done()

	log.Printf("Worker: stopped")
}

func (l *Loop) run(ctx context.Context) {
	defer close(l.done)

	ticker := time.NewTicker(l.worker.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			batch, err := l.worker.ProcessAllPendingJobs(ctx)
			if err != nil && ctx.Err() == nil {
				log.Printf("Worker: queue drain failed: %v", err)
			}
			if batch != nil && batch.Processed > 0 {
				log.Printf("Worker: processed %d job(s)", batch.Processed)
			}
		}
	}
}

func (l *Loop) runCleanup() {
	removed, err := l.worker.jobs.CleanupOld(l.worker.config.RetentionDays)
	if err != nil {
		log.Printf("Worker: job cleanup failed: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("Worker: purged %d old job(s)", removed)
	}
}
