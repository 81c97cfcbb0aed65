package media

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	ErrInvalidURL             ErrorKind = "invalid_url"
	ErrUpstreamRejected       ErrorKind = "upstream_rejected"
	ErrTransport              ErrorKind = "transport"
	ErrToolUnavailable        ErrorKind = "tool_unavailable"
	ErrToolFailed             ErrorKind = "tool_failed"
	ErrAllStrategiesExhausted ErrorKind = "all_strategies_exhausted"
	ErrStorageIO              ErrorKind = "storage_io"
)

// ExtractionError carries a failure kind through the pipeline. Strategy is
// empty for errors raised outside a strategy.
type ExtractionError struct {
	Kind     ErrorKind
	Strategy Strategy
	Msg      string
	Err      error
}

func (e *ExtractionError) Error() string {
	prefix := string(e.Kind)
	if e.Strategy != "" {
		prefix = string(e.Strategy) + ": " + prefix
	}
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", prefix, e.Msg, e.Err)
	case e.Msg != "":
		return prefix + ": " + e.Msg
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", prefix, e.Err)
	}
	return prefix
}

func (e *ExtractionError) Unwrap() error { return e.Err }

func NewError(kind ErrorKind, strategy Strategy, msg string, err error) *ExtractionError {
	return &ExtractionError{Kind: kind, Strategy: strategy, Msg: msg, Err: err}
}

// KindOf returns the kind of the outermost ExtractionError in err's chain,
// or "" when there is none.
func KindOf(err error) ErrorKind {
	var ee *ExtractionError
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return ""
}

// CauseKind looks through an all_strategies_exhausted error to the kind of
// the failure it wraps.
func CauseKind(err error) ErrorKind {
	var ee *ExtractionError
	if !errors.As(err, &ee) {
		return ""
	}
	if ee.Kind == ErrAllStrategiesExhausted && ee.Err != nil {
		if inner := CauseKind(ee.Err); inner != "" {
			return inner
		}
	}
	return ee.Kind
}

// IsTransient reports whether retrying the whole resolution later may help.
func IsTransient(err error) bool {
	return CauseKind(err) == ErrTransport
}
