package service

import (
	"context"
	"log"
	"sync"
	"time"
)

// WorkerConfig holds settings for the extraction worker.
type WorkerConfig struct {
	PollInterval time.Duration
	Concurrency  int
}

// Worker drives the extraction pipeline: it polls the job store for runnable
// jobs and processes them on a bounded pool. Backoff waits live on job
// records, so a waiting job never occupies a slot.
type Worker struct {
	store *JobStore
	svc   *ExtractionService
	cfg   WorkerConfig
	wg    sync.WaitGroup
}

// NewWorker creates a Worker with sane fallbacks for zero config values.
func NewWorker(store *JobStore, svc *ExtractionService, cfg WorkerConfig) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 3
	}
	return &Worker{store: store, svc: svc, cfg: cfg}
}

// Start runs the polling loop until ctx is canceled. It blocks until all
// in-flight extraction goroutines have finished.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	sem := make(chan struct{}, w.cfg.Concurrency)

	log.Printf("extractionWorker: started (poll=%s, concurrency=%d)",
		w.cfg.PollInterval, w.cfg.Concurrency)

	for {
		select {
		case <-ctx.Done():
			log.Printf("extractionWorker: shutting down, waiting for in-flight extractions...")
			w.wg.Wait()
			log.Printf("extractionWorker: shutdown complete")
			return
		case <-ticker.C:
			available := w.cfg.Concurrency - len(sem)
			if available <= 0 {
				continue
			}

			for _, claimed := range w.store.ClaimDue(available) {
				cj := claimed // copy for goroutine

				sem <- struct{}{} // acquire
				w.wg.Add(1)
				go func() {
					defer w.wg.Done()
					defer func() { <-sem }() // release

					log.Printf("extractionWorker: dispatching job %s", cj.Job.ID)
					// Process runs on its own background context so in-flight
					// extractions complete even during shutdown.
					w.svc.Process(cj)
				}()
			}
		}
	}
}
