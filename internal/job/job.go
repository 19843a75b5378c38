package job

import (
	"context"
	"maps"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Status is the lifecycle position of a Job. Jobs only move forward.
type Status string

const (
	StatusSubmitted Status = "submitted"
	StatusPolling   Status = "polling"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

func (s Status) rank() int {
	switch s {
	case StatusSubmitted:
		return 1
	case StatusPolling:
		return 2
	case StatusSucceeded, StatusFailed:
		return 3
	}
	return 0
}

// MediaKind identifies what a Result carries.
type MediaKind string

const (
	MediaAudio MediaKind = "audio"
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// Request is the validated user input for one generation.
type Request struct {
	Prompt  string
	Options map[string]string
}

// Option returns the trimmed value of a named option, or "".
func (r Request) Option(name string) string {
	return strings.TrimSpace(r.Options[name])
}

// WithOption returns a copy of r with name set to value.
func (r Request) WithOption(name, value string) Request {
	out := r.clone()
	out.Options[name] = value
	return out
}

func (r Request) clone() Request {
	opts := make(map[string]string, len(r.Options))
	maps.Copy(opts, r.Options)
	return Request{Prompt: r.Prompt, Options: opts}
}

// Result is the payload of a succeeded Job. Audio and image tools fill Data;
// the video tool fills URL.
type Result struct {
	Kind        MediaKind
	Data        []byte
	URL         string
	ContentType string
}

// Update is emitted on every status change and on every non-terminal poll.
type Update struct {
	JobID   string
	Tool    string
	Status  Status
	Message string
	Attempt int
}

// Job is one generation from submission to terminal result. It is safe for
// concurrent use.
type Job struct {
	ID      string
	Tool    string
	Request Request

	// updates serializes status changes with their notifications so observers
	// never see a stale update after the terminal one.
	updates sync.Mutex

	mu       sync.Mutex
	status   Status
	remoteID string
	polls    int
	result   *Result
	err      error
	done     chan struct{}
}

func newJob(tool string, req Request) *Job {
	return &Job{
		ID:      uuid.NewString(),
		Tool:    tool,
		Request: req,
		status:  StatusSubmitted,
		done:    make(chan struct{}),
	}
}

func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

func (j *Job) RemoteID() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.remoteID
}

// Polls returns how many status checks have been issued so far.
func (j *Job) Polls() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.polls
}

func (j *Job) Result() *Result {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result
}

// Err returns the terminal *Error of a failed Job.
func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// Done is closed once the Job reaches a terminal status.
func (j *Job) Done() <-chan struct{} { return j.done }

// Wait blocks until the Job is terminal or ctx ends. Abandoning the wait does
// not cancel the Job.
func (j *Job) Wait(ctx context.Context) (*Result, error) {
	select {
	case <-j.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result, j.err
}

func (j *Job) setRemoteID(id string) {
	j.mu.Lock()
	j.remoteID = id
	j.mu.Unlock()
}

func (j *Job) countPoll() {
	j.mu.Lock()
	j.polls++
	j.mu.Unlock()
}

// advance moves the Job to a non-terminal status. Polling -> Polling is
// allowed so that each status check can be reported.
func (j *Job) advance(to Status) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.Terminal() || to.rank() < j.status.rank() {
		return false
	}
	j.status = to
	return true
}

// finish records the terminal outcome. Only the first call wins. The caller
// closes done once the terminal update has been delivered.
func (j *Job) finish(res *Result, err error) (Status, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.Terminal() {
		return j.status, false
	}
	if err != nil {
		j.status = StatusFailed
		j.err = err
	} else {
		j.status = StatusSucceeded
		j.result = res
	}
	return j.status, true
}
