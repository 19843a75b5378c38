package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	DefaultPollInterval = 3 * time.Second
	DefaultMaxPolls     = 120
)

// Tool is the capability set a Runner drives: it validates input and talks
// to one remote API.
type Tool interface {
	Name() string
	// Prepare validates req and fills defaults. It must not touch the network.
	Prepare(req Request) (Request, error)
	Submit(ctx context.Context, req Request) (Submission, error)
}

// Poller is implemented by tools whose API answers with a job id first.
type Poller interface {
	Check(ctx context.Context, remoteID string) (Check, error)
}

// Submission is the first response of a Tool. Either Result is set, or
// RemoteID names a job to poll.
type Submission struct {
	RemoteID string
	Status   string
	Result   *Result
}

// RemoteState is a normalized remote job status.
type RemoteState int

const (
	RemotePending RemoteState = iota
	RemoteSucceeded
	RemoteFailed
)

// Check is one status report for a polled job.
type Check struct {
	State   RemoteState
	Status  string
	Message string
	Result  *Result
}

// Options tunes a Runner. Zero values fall back to the defaults.
type Options struct {
	PollInterval time.Duration
	MaxPolls     int
	// Observer receives every Update in status order. It may be called from
	// the worker goroutine or from Cancel, and must not call back into the
	// Runner.
	Observer func(Update)
	Logger   *slog.Logger
}

// Runner executes at most one Job at a time for a single Tool.
type Runner struct {
	tool     Tool
	interval time.Duration
	maxPolls int
	observer func(Update)
	logger   *slog.Logger

	mu     sync.Mutex
	active *Job
	cancel context.CancelCauseFunc
}

func NewRunner(tool Tool, opts Options) *Runner {
	r := &Runner{
		tool:     tool,
		interval: opts.PollInterval,
		maxPolls: opts.MaxPolls,
		observer: opts.Observer,
		logger:   opts.Logger,
	}
	if r.interval <= 0 {
		r.interval = DefaultPollInterval
	}
	if r.maxPolls <= 0 {
		r.maxPolls = DefaultMaxPolls
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Submit validates req and starts a Job in the background. It returns
// ErrBusy while another Job is active and a *ValidationError for bad input;
// in both cases nothing is sent over the network.
func (r *Runner) Submit(ctx context.Context, req Request) (*Job, error) {
	r.mu.Lock()
	if r.active != nil {
		r.mu.Unlock()
		return nil, ErrBusy
	}
	prepared, err := r.tool.Prepare(req.clone())
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}
	j := newJob(r.tool.Name(), prepared)
	jobCtx, cancel := context.WithCancelCause(ctx)
	r.active = j
	r.cancel = cancel
	r.mu.Unlock()

	r.logger.Info("job submitted", "tool", j.Tool, "jobID", j.ID)
	r.emit(j, StatusSubmitted, "request submitted", 0)
	go r.run(jobCtx, j)
	return j, nil
}

// Active returns the running Job, or nil.
func (r *Runner) Active() *Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Cancel fails the active Job with ErrCancelled and stops its polling. It
// reports whether there was a Job to cancel.
func (r *Runner) Cancel() bool {
	r.mu.Lock()
	j, cancel := r.active, r.cancel
	r.active, r.cancel = nil, nil
	r.mu.Unlock()
	if j == nil {
		return false
	}
	cancel(ErrCancelled)
	r.complete(j, nil, ErrCancelled)
	return true
}

func (r *Runner) run(ctx context.Context, j *Job) {
	res, err := r.execute(ctx, j)
	if err != nil && ctx.Err() != nil {
		err = context.Cause(ctx)
	}
	r.release(j)
	r.complete(j, res, err)
}

func (r *Runner) execute(ctx context.Context, j *Job) (*Result, error) {
	sub, err := r.tool.Submit(ctx, j.Request)
	if err != nil {
		return nil, err
	}
	if sub.Result != nil {
		return sub.Result, nil
	}
	if sub.RemoteID == "" {
		return nil, fmt.Errorf("%s: response carried neither a result nor a job id", j.Tool)
	}
	poller, ok := r.tool.(Poller)
	if !ok {
		return nil, fmt.Errorf("%s: returned job id %s but cannot poll", j.Tool, sub.RemoteID)
	}
	j.setRemoteID(sub.RemoteID)
	r.emit(j, StatusPolling, fmt.Sprintf("remote job %s accepted (%s)", sub.RemoteID, sub.Status), 0)
	return r.poll(ctx, j, poller, sub.RemoteID)
}

func (r *Runner) poll(ctx context.Context, j *Job, p Poller, remoteID string) (*Result, error) {
	for attempt := 1; attempt <= r.maxPolls; attempt++ {
		if err := r.sleep(ctx); err != nil {
			return nil, err
		}
		check, err := p.Check(ctx, remoteID)
		j.countPoll()
		if err != nil {
			return nil, err
		}
		switch check.State {
		case RemoteSucceeded:
			if check.Result == nil {
				return nil, fmt.Errorf("remote job %s completed without a result", remoteID)
			}
			return check.Result, nil
		case RemoteFailed:
			return nil, &RemoteFailedError{RemoteID: remoteID, Status: check.Status, Message: check.Message}
		}
		msg := check.Message
		if msg == "" {
			msg = fmt.Sprintf("remote job %s is %s", remoteID, check.Status)
		}
		r.emit(j, StatusPolling, msg, attempt)
	}
	return nil, &PollTimeoutError{RemoteID: remoteID, Attempts: r.maxPolls}
}

func (r *Runner) sleep(ctx context.Context) error {
	t := time.NewTimer(r.interval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return context.Cause(ctx)
	case <-t.C:
		return nil
	}
}

// release frees the active slot before the Job is finished so that a caller
// woken by Done can submit again immediately.
func (r *Runner) release(j *Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != j {
		return
	}
	r.cancel(nil)
	r.active, r.cancel = nil, nil
}

func (r *Runner) complete(j *Job, res *Result, err error) {
	if err != nil {
		var jobErr *Error
		if !errors.As(err, &jobErr) {
			err = &Error{Kind: KindOf(err), Err: err}
		}
	}
	j.updates.Lock()
	defer j.updates.Unlock()
	status, ok := j.finish(res, err)
	if !ok {
		return
	}
	defer close(j.done)
	if err != nil {
		r.logger.Warn("job failed", "tool", j.Tool, "jobID", j.ID, "kind", KindOf(err), "polls", j.Polls(), "err", err)
		r.notify(Update{JobID: j.ID, Tool: j.Tool, Status: status, Message: err.Error()})
		return
	}
	r.logger.Info("job succeeded", "tool", j.Tool, "jobID", j.ID, "polls", j.Polls())
	r.notify(Update{JobID: j.ID, Tool: j.Tool, Status: status, Message: "done"})
}

func (r *Runner) emit(j *Job, to Status, msg string, attempt int) {
	j.updates.Lock()
	defer j.updates.Unlock()
	if !j.advance(to) {
		return
	}
	r.logger.Debug("job update", "tool", j.Tool, "jobID", j.ID, "status", to, "attempt", attempt, "message", msg)
	r.notify(Update{JobID: j.ID, Tool: j.Tool, Status: to, Message: msg, Attempt: attempt})
}

func (r *Runner) notify(u Update) {
	if r.observer != nil {
		r.observer(u)
	}
}
