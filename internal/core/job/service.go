package job

import (
	"context"
	"fmt"

	"downloader/internal/logger"

	"github.com/google/uuid"
)

// Dispatcher hands a job to the background worker pool.
type Dispatcher interface {
	Enqueue(ctx context.Context, url, jobID string) error
}

// Validator normalizes a submitted URL or rejects it.
type Validator interface {
	Validate(raw string) (string, error)
}

type Service struct {
	log        *logger.Logger
	store      *Store
	dispatcher Dispatcher
	validator  Validator
}

func NewService(store *Store, dispatcher Dispatcher, validator Validator) *Service {
	return &Service{log: logger.New("JobService"), store: store, dispatcher: dispatcher, validator: validator}
}

func (s *Service) Store() *Store { return s.store }

// Submit records a pending job and enqueues it. The record is written first
// so a fast worker always finds it.
func (s *Service) Submit(ctx context.Context, rawURL string) (string, error) {
	u, err := s.validator.Validate(rawURL)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	if err := s.store.Put(ctx, Job{ID: id, URL: u, Status: StatusPending, Message: MsgQueued}); err != nil {
		return "", err
	}
	if err := s.dispatcher.Enqueue(ctx, u, id); err != nil {
		s.log.LogErrorf("Failed to enqueue job %s: %v", id, err)
		_, _ = s.store.Transition(ctx, id, u, func(j *Job) {
			j.Status = StatusFailed
			j.Message = "Failed to queue job."
		})
		return "", fmt.Errorf("dispatch job %s: %w", id, err)
	}
	s.log.LogInfof("Queued job %s for %s", id, u)
	return id, nil
}
