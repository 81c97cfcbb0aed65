package retention

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
)

// TaskHandler runs scheduled sweeps in force mode over a fixed directory.
type TaskHandler struct {
	sweeper   *Sweeper
	directory string
	maxAge    time.Duration
}

func NewTaskHandler(sweeper *Sweeper, directory string, maxAge time.Duration) *TaskHandler {
	return &TaskHandler{sweeper: sweeper, directory: directory, maxAge: maxAge}
}

// HandleSweepTask is the asynq handler for retention:sweep. Per-file
// failures stay in the report; only a failed listing is retried.
func (h *TaskHandler) HandleSweepTask(ctx context.Context, _ *asynq.Task) error {
	report, err := h.sweeper.Sweep(ctx, Request{Directory: h.directory, MaxAge: h.maxAge, Mode: ModeForce})
	if err != nil {
		return err
	}
	if len(report.Errors) > 0 {
		h.sweeper.log.LogWarnf("Sweep of %s left %d files behind", h.directory, len(report.Errors))
	}
	return nil
}
