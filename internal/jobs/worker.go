package jobs

import (
	"context"
	"log"
	"time"
)

// JobProcessor runs one batch of pending work. Errors are logged and the
// loop keeps going; a processor must make progress across repeated calls.
type JobProcessor interface {
	ProcessJobs(ctx context.Context) error
}

// Worker drives a JobProcessor on a fixed poll interval until stopped.
type Worker struct {
	processor JobProcessor
	interval  time.Duration
	stop      chan struct{}
	done      chan struct{}
}

// NewWorker creates a new Worker instance
func NewWorker(processor JobProcessor, pollInterval time.Duration) *Worker {
	return &Worker{
		processor: processor,
		interval:  pollInterval,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start runs the polling loop. The first pass runs immediately so a backlog
// accumulated while the daemon was down starts draining without waiting a
// full interval.
func (w *Worker) Start(ctx context.Context) {
	defer close(w.done)

	log.Printf("jobs: worker started, polling every %v", w.interval)
	w.runOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("jobs: worker stopped, context cancelled")
			return
		case <-w.stop:
			log.Println("jobs: worker stopped")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *Worker) runOnce(ctx context.Context) {
	if err := w.processor.ProcessJobs(ctx); err != nil {
		log.Printf("jobs: processing failed: %v", err)
	}
}

// Stop signals the loop to exit and waits for the in-flight pass to finish.
func (w *Worker) Stop() {
	close(w.stop)
	<-w.done
}
