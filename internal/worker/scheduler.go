package worker

import (
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// NewScheduler registers a payload-less periodic task on the given cron spec.
func NewScheduler(opt asynq.RedisConnOpt, spec, taskType, queue string) (*asynq.Scheduler, error) {
	s := asynq.NewScheduler(opt, &asynq.SchedulerOpts{Location: time.Local, Logger: newAsynqLogger()})
	opts := []asynq.Option{asynq.MaxRetry(0)}
	if queue != "" {
		opts = append(opts, asynq.Queue(queue))
	}
	if _, err := s.Register(spec, asynq.NewTask(taskType, nil), opts...); err != nil {
		return nil, fmt.Errorf("register %s on %q: %w", taskType, spec, err)
	}
	return s, nil
}
