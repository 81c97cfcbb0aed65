package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"downloader/internal/platform/redis"

	"github.com/hibiken/asynq"
)

const (
	TypeResolve = "download:resolve"
	TypeSweep   = "retention:sweep"
)

// ResolvePayload is the body of a download:resolve task.
type ResolvePayload struct {
	JobID string `json:"job_id"`
	URL   string `json:"url"`
}

type Options struct {
	Queue       string
	MaxAttempts int
	Timeout     time.Duration
}

type Client struct {
	c    *asynq.Client
	opts Options
}

func New(r *redis.Service, opts Options) *Client {
	return NewWithRedisOpt(r.AsynqRedisOpt(), opts)
}

func NewWithRedisOpt(opt asynq.RedisConnOpt, opts Options) *Client {
	if opts.Queue == "" {
		opts.Queue = "default"
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	return &Client{c: asynq.NewClient(opt), opts: opts}
}

func (t *Client) Close() error { return t.c.Close() }

// Enqueue hands a resolution job to the worker pool. MaxRetry counts retries,
// so a job gets MaxAttempts runs in total.
func (t *Client) Enqueue(ctx context.Context, url, jobID string) error {
	task, err := NewResolveTask(url, jobID)
	if err != nil {
		return err
	}
	opts := []asynq.Option{
		asynq.Queue(t.opts.Queue),
		asynq.MaxRetry(t.opts.MaxAttempts - 1),
	}
	if t.opts.Timeout > 0 {
		opts = append(opts, asynq.Timeout(t.opts.Timeout))
	}
	if _, err := t.c.EnqueueContext(ctx, task, opts...); err != nil {
		return fmt.Errorf("enqueue %s: %w", TypeResolve, err)
	}
	return nil
}

func NewResolveTask(url, jobID string) (*asynq.Task, error) {
	payload, err := json.Marshal(ResolvePayload{JobID: jobID, URL: url})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeResolve, payload), nil
}

func ParseResolvePayload(task *asynq.Task) (ResolvePayload, error) {
	var p ResolvePayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return p, fmt.Errorf("decode %s payload: %w", task.Type(), err)
	}
	return p, nil
}
