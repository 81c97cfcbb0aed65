// Package retention deletes stored artifacts older than a maximum age.
package retention

import (
	"context"
	"errors"
	"fmt"
	"time"

	"downloader/internal/logger"
	"downloader/internal/platform/storage"
)

type Mode string

const (
	ModeDryRun      Mode = "dry_run"
	ModeInteractive Mode = "interactive"
	ModeForce       Mode = "force"
)

// Candidate is a file old enough to be deleted.
type Candidate struct {
	Path       string
	Size       int64
	ModTime    time.Time
	AgeSeconds int64
}

type Request struct {
	Directory string
	MaxAge    time.Duration
	Mode      Mode
	// Confirm is asked once in interactive mode with every candidate.
	// Returning false, or leaving it nil, cancels the sweep.
	Confirm func(candidates []Candidate) bool
}

type Report struct {
	Directory        string      `json:"directory"`
	Scanned          int         `json:"scanned"`
	Eligible         int         `json:"eligible"`
	Deleted          int         `json:"deleted"`
	FreedBytes       int64       `json:"freed_bytes"`
	Errors           []string    `json:"errors"`
	Candidates       []Candidate `json:"-"`
	MissingDirectory bool        `json:"missing_directory"`
	Cancelled        bool        `json:"cancelled"`
}

// TotalSize is the combined size of candidates.
func TotalSize(candidates []Candidate) int64 {
	var n int64
	for _, c := range candidates {
		n += c.Size
	}
	return n
}

type Sweeper struct {
	log   *logger.Logger
	store storage.BlobStore
	clock func() time.Time
}

func NewSweeper(store storage.BlobStore) *Sweeper {
	return &Sweeper{log: logger.New("RetentionSweeper"), store: store, clock: time.Now}
}

// Sweep scans the immediate files of req.Directory and deletes those whose
// whole-second age strictly exceeds req.MaxAge. Deletions are independent:
// one failure is recorded and the sweep moves on.
func (s *Sweeper) Sweep(ctx context.Context, req Request) (Report, error) {
	report := Report{Directory: req.Directory, Errors: []string{}}
	if req.MaxAge < 0 {
		return report, fmt.Errorf("max age must not be negative")
	}
	switch req.Mode {
	case ModeDryRun, ModeInteractive, ModeForce:
	default:
		return report, fmt.Errorf("unknown sweep mode %q", req.Mode)
	}

	entries, err := s.store.List(ctx, req.Directory)
	if errors.Is(err, storage.ErrNotFound) {
		s.log.LogWarnf("Directory %s does not exist, nothing to sweep", req.Directory)
		report.MissingDirectory = true
		return report, nil
	}
	if err != nil {
		return report, fmt.Errorf("list %s: %w", req.Directory, err)
	}

	now := s.clock()
	maxAge := int64(req.MaxAge / time.Second)
	report.Scanned = len(entries)
	for _, e := range entries {
		age := int64(now.Sub(e.ModTime) / time.Second)
		if age > maxAge {
			report.Candidates = append(report.Candidates, Candidate{
				Path: e.Path, Size: e.Size, ModTime: e.ModTime, AgeSeconds: age,
			})
		}
	}
	report.Eligible = len(report.Candidates)
	s.log.LogDebugf("%d of %d files in %s are older than %v (%d bytes)",
		report.Eligible, report.Scanned, req.Directory, req.MaxAge, TotalSize(report.Candidates))

	if report.Eligible == 0 || req.Mode == ModeDryRun {
		return report, nil
	}
	if req.Mode == ModeInteractive && (req.Confirm == nil || !req.Confirm(report.Candidates)) {
		report.Cancelled = true
		return report, nil
	}

	for _, c := range report.Candidates {
		if err := ctx.Err(); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", c.Path, err))
			continue
		}
		err := s.store.Delete(ctx, c.Path)
		switch {
		case err == nil:
			report.Deleted++
			report.FreedBytes += c.Size
		case errors.Is(err, storage.ErrNotFound):
			// Removed by someone else since the scan.
		default:
			s.log.LogErrorf("Failed to delete %s: %v", c.Path, err)
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", c.Path, err))
		}
	}

	s.log.Info().Str("directory", req.Directory).Int("deleted", report.Deleted).
		Int64("freed_bytes", report.FreedBytes).Int("errors", len(report.Errors)).Msg("Retention sweep finished")
	return report, nil
}
