package job

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
)

// ErrorKind classifies why a Job failed.
type ErrorKind string

const (
	KindValidation  ErrorKind = "validation"
	KindAuth        ErrorKind = "auth"
	KindNetwork     ErrorKind = "network"
	KindRemote      ErrorKind = "remote"
	KindPollTimeout ErrorKind = "poll_timeout"
	KindCancelled   ErrorKind = "cancelled"
)

var (
	// ErrBusy is returned by Submit while another Job is still running.
	ErrBusy = errors.New("a job is already running; wait for it to finish or cancel it")
	// ErrCancelled is the failure reason for Jobs stopped through Runner.Cancel.
	ErrCancelled = errors.New("cancelled")
)

// ValidationError reports bad user input. It is raised before any network call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Invalid is shorthand for building a ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// PollTimeoutError is returned when a remote job never reached a terminal
// status within the configured number of status checks.
type PollTimeoutError struct {
	RemoteID string
	Attempts int
}

func (e *PollTimeoutError) Error() string {
	return fmt.Sprintf("remote job %s did not finish after %d status checks; it may still be processing", e.RemoteID, e.Attempts)
}

// RemoteFailedError is a terminal-failure status reported by a polled job.
type RemoteFailedError struct {
	RemoteID string
	Status   string
	Message  string
}

func (e *RemoteFailedError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "unknown reason"
	}
	return fmt.Sprintf("remote job %s failed (%s): %s", e.RemoteID, e.Status, msg)
}

// Error is the terminal error recorded on a failed Job.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string { return e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// httpStatusError is implemented by provider errors carrying an HTTP status.
type httpStatusError interface {
	error
	HTTPStatus() int
}

// KindOf classifies err. Unknown errors (malformed bodies, missing fields) are
// reported as remote errors.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var jobErr *Error
	if errors.As(err, &jobErr) {
		return jobErr.Kind
	}
	var validation *ValidationError
	if errors.As(err, &validation) {
		return KindValidation
	}
	var timeout *PollTimeoutError
	if errors.As(err, &timeout) {
		return KindPollTimeout
	}
	if errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled) {
		return KindCancelled
	}
	var statusErr httpStatusError
	if errors.As(err, &statusErr) {
		switch statusErr.HTTPStatus() {
		case http.StatusUnauthorized, http.StatusForbidden:
			return KindAuth
		}
		return KindRemote
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindNetwork
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return KindNetwork
	}
	return KindRemote
}
