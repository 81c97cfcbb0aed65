package job

import (
	"errors"
	"time"

	"downloader/internal/core/media"
)

var (
	// ErrNotFound means the job never existed or its record expired.
	ErrNotFound = errors.New("job not found")
	// ErrTerminal is returned when a write targets a completed or failed job.
	ErrTerminal = errors.New("job already in a terminal state")
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	// StatusNotFound is only ever reported to pollers, never stored.
	StatusNotFound Status = "not_found"
)

func (s Status) Terminal() bool { return s == StatusCompleted || s == StatusFailed }

const (
	MsgQueued     = "Your download is being processed. Please wait..."
	MsgProcessing = "Fetching video information..."
	MsgCompleted  = "Video information retrieved successfully."
	MsgNoContent  = "no downloadable content found"
)

// Job is the stored lifecycle record of one background resolution.
type Job struct {
	ID        string        `json:"id"`
	URL       string        `json:"url"`
	Status    Status        `json:"status"`
	Message   string        `json:"message"`
	Result    *media.Result `json:"result,omitempty"`
	Attempts  int           `json:"attempts"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// StatusResponse is what pollers see.
type StatusResponse struct {
	JobID   string        `json:"job_id"`
	Status  Status        `json:"status"`
	Message string        `json:"message"`
	Result  *media.Result `json:"result"`
}
