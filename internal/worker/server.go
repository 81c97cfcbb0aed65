package worker

import (
	"fmt"
	"time"

	"downloader/internal/logger"

	"github.com/hibiken/asynq"
)

type Options struct {
	Concurrency int
	Queue       string
	RetryDelay  time.Duration
}

// NewServer builds an asynq server that retries on a fixed delay and routes
// final failures to the mux's exhausted hooks.
func NewServer(opt asynq.RedisConnOpt, o Options, mux *Mux) *asynq.Server {
	if o.Concurrency < 1 {
		o.Concurrency = 1
	}
	queues := map[string]int{"default": 1}
	if o.Queue != "" && o.Queue != "default" {
		queues = map[string]int{o.Queue: 6, "default": 1}
	}
	return asynq.NewServer(opt, asynq.Config{
		Concurrency:    o.Concurrency,
		Queues:         queues,
		RetryDelayFunc: FixedDelay(o.RetryDelay),
		ErrorHandler:   asynq.ErrorHandlerFunc(mux.HandleError),
		Logger:         newAsynqLogger(),
	})
}

// FixedDelay returns a retry policy with constant backoff.
func FixedDelay(d time.Duration) asynq.RetryDelayFunc {
	if d <= 0 {
		return asynq.DefaultRetryDelayFunc
	}
	return func(int, error, *asynq.Task) time.Duration { return d }
}

// asynqLogger routes asynq's internal logging through zerolog.
type asynqLogger struct{ log *logger.Logger }

func newAsynqLogger() *asynqLogger { return &asynqLogger{log: logger.New("Asynq")} }

func (l *asynqLogger) Debug(args ...interface{}) { l.log.Debug().Msg(sprint(args)) }
func (l *asynqLogger) Info(args ...interface{})  { l.log.Info().Msg(sprint(args)) }
func (l *asynqLogger) Warn(args ...interface{})  { l.log.Warn().Msg(sprint(args)) }
func (l *asynqLogger) Error(args ...interface{}) { l.log.Error().Msg(sprint(args)) }
func (l *asynqLogger) Fatal(args ...interface{}) { l.log.Fatal().Msg(sprint(args)) }

func sprint(args []interface{}) string { return fmt.Sprint(args...) }
