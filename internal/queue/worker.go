package queue

import (
	"context"
	"time"

	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/logging"
)

// Handler executes one claimed task. A returned error means stage-fatal
// failure and triggers the queue's retry/backoff path; analyzer-level
// degradation never reaches here.
type Handler func(ctx context.Context, task *ScanTask) error

// Worker drains the queue one task at a time. Concurrency across jobs is
// achieved by running multiple workers; a single worker guarantees one active
// orchestrator per claimed job.
type Worker struct {
	queue   *Queue
	handler Handler
	logger  logging.Logger
}

// NewWorker binds a handler to the queue.
func NewWorker(q *Queue, handler Handler, logger logging.Logger) *Worker {
	return &Worker{
		queue:   q,
		handler: handler,
		logger:  logger.With(logging.Field{Key: "component", Value: "queue-worker"}),
	}
}

// Run polls for tasks until ctx is canceled.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("worker started")
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopped")
			return
		default:
		}

		if !w.runOne(ctx) {
			select {
			case <-ctx.Done():
			case <-time.After(w.queue.cfg.PollInterval):
			}
		}
	}
}

// runOne claims and executes a single task. Returns false when the queue was
// empty.
func (w *Worker) runOne(ctx context.Context) bool {
	id, task, err := w.queue.claim(ctx)
	if err != nil {
		w.logger.Error("claiming task", logging.Field{Key: "error", Value: err.Error()})
		return false
	}
	if task == nil {
		return false
	}

	w.logger.Info("task claimed",
		logging.Field{Key: "task_id", Value: id},
		logging.Field{Key: "job_id", Value: task.JobID})

	if err := w.handler(ctx, task); err != nil {
		w.logger.Warn("task failed",
			logging.Field{Key: "task_id", Value: id},
			logging.Field{Key: "job_id", Value: task.JobID},
			logging.Field{Key: "error", Value: err.Error()})
		if ferr := w.queue.fail(ctx, id); ferr != nil {
			w.logger.Error("recording task failure", logging.Field{Key: "error", Value: ferr.Error()})
		}
		return true
	}

	if err := w.queue.finish(ctx, id); err != nil {
		w.logger.Error("recording task completion", logging.Field{Key: "error", Value: err.Error()})
	}
	return true
}
