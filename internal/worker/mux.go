package worker

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"
)

// ExhaustedFunc runs once a task has failed for the last time. attempts is
// the total number of runs the task got.
type ExhaustedFunc func(ctx context.Context, task *asynq.Task, err error, attempts int)

type Mux struct {
	mux       *asynq.ServeMux
	exhausted map[string]ExhaustedFunc
}

func NewMux() *Mux {
	return &Mux{mux: asynq.NewServeMux(), exhausted: map[string]ExhaustedFunc{}}
}

func (m *Mux) HandleFunc(t string, h func(ctx context.Context, task *asynq.Task) error) {
	m.mux.HandleFunc(t, h)
}

// OnExhausted registers the permanent-failure hook for a task type.
func (m *Mux) OnExhausted(t string, fn ExhaustedFunc) { m.exhausted[t] = fn }

func (m *Mux) Mux() *asynq.ServeMux { return m.mux }

// HandleError is installed as the asynq server's error handler.
func (m *Mux) HandleError(ctx context.Context, task *asynq.Task, err error) {
	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	m.notify(ctx, task, err, retried, maxRetry)
}

func (m *Mux) notify(ctx context.Context, task *asynq.Task, err error, retried, maxRetry int) {
	if retried < maxRetry && !errors.Is(err, asynq.SkipRetry) {
		return
	}
	fn, ok := m.exhausted[task.Type()]
	if !ok {
		return
	}
	// The task context may already be past its deadline.
	fn(context.WithoutCancel(ctx), task, err, retried+1)
}
