package job

import (
	"context"
	"errors"
	"fmt"

	"downloader/internal/core/media"
	"downloader/internal/logger"
	"downloader/internal/platform/tasks"

	"github.com/hibiken/asynq"
)

// Resolver is the resolution pipeline as seen by the worker.
type Resolver interface {
	Resolve(ctx context.Context, url string) (*media.Result, error)
}

type Worker struct {
	log      *logger.Logger
	store    *Store
	resolver Resolver
}

func NewWorker(store *Store, resolver Resolver) *Worker {
	return &Worker{log: logger.New("JobWorker"), store: store, resolver: resolver}
}

// HandleResolveTask is the asynq handler for download:resolve.
func (w *Worker) HandleResolveTask(ctx context.Context, task *asynq.Task) error {
	p, err := tasks.ParseResolvePayload(task)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	return w.Process(ctx, p, retried+1, maxRetry+1)
}

// Process runs one attempt of a job. A non-nil return asks the queue to
// retry; it is only returned for transient failures.
func (w *Worker) Process(ctx context.Context, p tasks.ResolvePayload, attempt, maxAttempts int) error {
	_, err := w.store.Transition(ctx, p.JobID, p.URL, func(j *Job) {
		j.Status = StatusProcessing
		j.Message = MsgProcessing
		j.Attempts = attempt
	})
	if errors.Is(err, ErrTerminal) {
		w.log.LogWarnf("Job %s already finished, dropping redelivery", p.JobID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("mark job %s processing: %w", p.JobID, err)
	}

	res, resolveErr := w.resolver.Resolve(ctx, p.URL)
	// The attempt may have run out its deadline; the outcome must still be
	// recorded.
	wctx := context.WithoutCancel(ctx)

	switch {
	case resolveErr == nil && res.HasFormats():
		w.log.Info().Str("job_id", p.JobID).Str("strategy", string(res.StrategyUsed)).
			Int("formats", len(res.Formats)).Msg("Job completed")
		return w.finish(wctx, p, StatusCompleted, MsgCompleted, res)

	case resolveErr == nil:
		return w.finish(wctx, p, StatusFailed, MsgNoContent, res)

	case media.IsTransient(resolveErr) && attempt < maxAttempts:
		w.log.LogWarnf("Job %s attempt %d/%d failed, will retry: %v", p.JobID, attempt, maxAttempts, resolveErr)
		if _, err := w.store.Transition(wctx, p.JobID, p.URL, func(j *Job) {
			j.Message = fmt.Sprintf("Attempt %d of %d failed, retrying: %v", attempt, maxAttempts, resolveErr)
		}); err != nil && !errors.Is(err, ErrTerminal) {
			w.log.LogErrorf("Failed to record retry for job %s: %v", p.JobID, err)
		}
		return resolveErr

	case media.IsTransient(resolveErr):
		w.log.LogErrorf("Job %s failed after %d attempts: %v", p.JobID, attempt, resolveErr)
		if err := w.finish(wctx, p, StatusFailed, exhaustedMessage(attempt, resolveErr), nil); err != nil {
			return err
		}
		return resolveErr

	default:
		w.log.LogErrorf("Job %s failed: %v", p.JobID, resolveErr)
		return w.finish(wctx, p, StatusFailed, "Failed to process video: "+resolveErr.Error(), nil)
	}
}

// HandleExhausted is the permanent-failure hook. It is a no-op when the
// final attempt already recorded the failure.
func (w *Worker) HandleExhausted(ctx context.Context, task *asynq.Task, cause error, attempts int) {
	p, err := tasks.ParseResolvePayload(task)
	if err != nil {
		w.log.LogErrorf("Exhausted task with unreadable payload: %v", err)
		return
	}
	_, err = w.store.Transition(ctx, p.JobID, p.URL, func(j *Job) {
		j.Status = StatusFailed
		j.Message = exhaustedMessage(attempts, cause)
		j.Attempts = attempts
	})
	switch {
	case errors.Is(err, ErrTerminal):
	case err != nil:
		w.log.LogErrorf("Failed to record permanent failure for job %s: %v", p.JobID, err)
	default:
		w.log.LogErrorf("Job %s permanently failed after %d attempts: %v", p.JobID, attempts, cause)
	}
}

func (w *Worker) finish(ctx context.Context, p tasks.ResolvePayload, status Status, msg string, res *media.Result) error {
	_, err := w.store.Transition(ctx, p.JobID, p.URL, func(j *Job) {
		j.Status = status
		j.Message = msg
		j.Result = res
	})
	if errors.Is(err, ErrTerminal) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("record job %s %s: %w", p.JobID, status, err)
	}
	return nil
}

func exhaustedMessage(attempts int, cause error) string {
	return fmt.Sprintf("Job failed after %d attempts: %v", attempts, cause)
}
