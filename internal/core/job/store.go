package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"downloader/internal/logger"
	"downloader/internal/platform/kv"
)

const (
	recentKey          = "recent_download_jobs"
	defaultTTL         = time.Hour
	defaultRecentLimit = 100
)

func recordKey(id string) string { return "download_job_" + id }

type StoreOptions struct {
	TTL         time.Duration
	RecentLimit int
}

// Store keeps job records in a kv.Store. Every write refreshes the record's
// TTL. A bounded index of recent jobs is kept alongside for listing only.
type Store struct {
	log   *logger.Logger
	kv    kv.Store
	ttl   time.Duration
	limit int
	clock func() time.Time
}

func NewStore(store kv.Store, opts StoreOptions) *Store {
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	if opts.RecentLimit <= 0 {
		opts.RecentLimit = defaultRecentLimit
	}
	return &Store{log: logger.New("JobStore"), kv: store, ttl: opts.TTL, limit: opts.RecentLimit, clock: time.Now}
}

// Put overwrites the record for j.ID.
func (s *Store) Put(ctx context.Context, j Job) error {
	now := s.clock().UTC()
	if j.CreatedAt.IsZero() {
		j.CreatedAt = now
	}
	j.UpdatedAt = now
	b, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("encode job %s: %w", j.ID, err)
	}
	if err := s.kv.Put(ctx, recordKey(j.ID), b, s.ttl); err != nil {
		return fmt.Errorf("store job %s: %w", j.ID, err)
	}
	s.touchRecent(ctx, j)
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (Job, error) {
	b, err := s.kv.Get(ctx, recordKey(id))
	if errors.Is(err, kv.ErrNotFound) {
		return Job{}, ErrNotFound
	}
	if err != nil {
		return Job{}, fmt.Errorf("load job %s: %w", id, err)
	}
	var j Job
	if err := json.Unmarshal(b, &j); err != nil {
		return Job{}, fmt.Errorf("decode job %s: %w", id, err)
	}
	return j, nil
}

// Transition applies mutate to the stored job atomically. A missing record
// is recreated from id and url so redelivered tasks still leave a trace.
// Terminal jobs are never modified; ErrTerminal is returned with the
// stored job.
func (s *Store) Transition(ctx context.Context, id, url string, mutate func(*Job)) (Job, error) {
	var out Job
	err := s.kv.Update(ctx, recordKey(id), s.ttl, func(cur []byte, found bool) ([]byte, error) {
		now := s.clock().UTC()
		j := Job{ID: id, URL: url, Status: StatusPending, CreatedAt: now}
		if found {
			if err := json.Unmarshal(cur, &j); err != nil {
				return nil, fmt.Errorf("decode job %s: %w", id, err)
			}
		}
		if j.Status.Terminal() {
			out = j
			return nil, ErrTerminal
		}
		mutate(&j)
		j.ID = id
		j.UpdatedAt = now
		out = j
		return json.Marshal(j)
	})
	if err != nil {
		return out, err
	}
	s.touchRecent(ctx, out)
	return out, nil
}

// Status never fails: unknown, expired and unreadable records all report
// not_found.
func (s *Store) Status(ctx context.Context, id string) StatusResponse {
	j, err := s.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.LogWarnf("Status lookup for %s failed: %v", id, err)
		}
		return StatusResponse{JobID: id, Status: StatusNotFound}
	}
	return StatusResponse{JobID: j.ID, Status: j.Status, Message: j.Message, Result: j.Result}
}

// Recent returns the index entries newest first. Entries are summaries
// without results and may outlive their records.
func (s *Store) Recent(ctx context.Context) ([]Job, error) {
	b, err := s.kv.Get(ctx, recentKey)
	if errors.Is(err, kv.ErrNotFound) {
		return []Job{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load recent jobs: %w", err)
	}
	var entries []Job
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, fmt.Errorf("decode recent jobs: %w", err)
	}
	out := make([]Job, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		out = append(out, entries[i])
	}
	return out, nil
}

// touchRecent upserts j into the recent index, keeping insertion order and
// evicting the oldest entries past the limit. Index failures are logged,
// never returned.
func (s *Store) touchRecent(ctx context.Context, j Job) {
	j.Result = nil
	err := s.kv.Update(ctx, recentKey, s.ttl, func(cur []byte, found bool) ([]byte, error) {
		var entries []Job
		if found {
			if err := json.Unmarshal(cur, &entries); err != nil {
				entries = nil
			}
		}
		replaced := false
		for i := range entries {
			if entries[i].ID == j.ID {
				entries[i] = j
				replaced = true
				break
			}
		}
		if !replaced {
			entries = append(entries, j)
		}
		if over := len(entries) - s.limit; over > 0 {
			entries = entries[over:]
		}
		return json.Marshal(entries)
	})
	if err != nil {
		s.log.LogWarnf("Recent jobs index update failed for %s: %v", j.ID, err)
	}
}
