package tools

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"genstudio/internal/ai"
	"genstudio/internal/job"
)

// MaxSeed bounds randomly drawn seeds.
const MaxSeed = 999999999

type videoClient interface {
	StartImageToVideo(ctx context.Context, req ai.ImageToVideoRequest) (ai.NovitaTask, error)
	TaskResult(ctx context.Context, taskID string) (ai.NovitaTask, error)
}

// Video animates a public image into a clip through an async task API.
type Video struct {
	client videoClient
	model  string
	seed   func() int64
}

func NewVideo(client videoClient, model string) *Video {
	if model == "" {
		model = ai.DefaultVideoModel
	}
	return &Video{
		client: client,
		model:  model,
		seed:   func() int64 { return rand.Int64N(MaxSeed + 1) },
	}
}

func (v *Video) Name() string { return string(job.MediaVideo) }

// Prepare validates input. An empty seed or -1 is replaced with a random one.
func (v *Video) Prepare(req job.Request) (job.Request, error) {
	req.Prompt = strings.TrimSpace(req.Prompt)
	if err := publicURL(OptImageURL, req.Option(OptImageURL)); err != nil {
		return job.Request{}, err
	}
	if err := requireText("prompt", req.Prompt); err != nil {
		return job.Request{}, err
	}
	if _, err := positiveInt(OptWidth, req.Option(OptWidth)); err != nil {
		return job.Request{}, err
	}
	if _, err := positiveInt(OptHeight, req.Option(OptHeight)); err != nil {
		return job.Request{}, err
	}
	raw := req.Option(OptSeed)
	if raw == "" || raw == "-1" {
		return req.WithOption(OptSeed, strconv.FormatInt(v.seed(), 10)), nil
	}
	seed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return job.Request{}, job.Invalid(OptSeed, fmt.Sprintf("%q is not an integer", raw))
	}
	if seed < 0 {
		return job.Request{}, job.Invalid(OptSeed, "must be -1 (random) or non-negative")
	}
	return req, nil
}

func (v *Video) Submit(ctx context.Context, req job.Request) (job.Submission, error) {
	width, _ := strconv.Atoi(req.Option(OptWidth))
	height, _ := strconv.Atoi(req.Option(OptHeight))
	seed, _ := strconv.ParseInt(req.Option(OptSeed), 10, 64)
	task, err := v.client.StartImageToVideo(ctx, ai.ImageToVideoRequest{
		ModelName: v.model,
		ImageURL:  req.Option(OptImageURL),
		Prompt:    req.Prompt,
		Width:     width,
		Height:    height,
		Seed:      seed,
	})
	if err != nil {
		return job.Submission{}, err
	}
	sub := job.Submission{RemoteID: task.TaskID, Status: task.Status}
	if NormalizeStatus(task.Status) == job.RemoteSucceeded && task.VideoURL != "" {
		sub.Result = videoResult(task.VideoURL)
	}
	return sub, nil
}

func (v *Video) Check(ctx context.Context, remoteID string) (job.Check, error) {
	task, err := v.client.TaskResult(ctx, remoteID)
	if err != nil {
		return job.Check{}, err
	}
	check := job.Check{State: NormalizeStatus(task.Status), Status: task.Status}
	switch check.State {
	case job.RemoteSucceeded:
		if task.VideoURL == "" {
			check.State = job.RemoteFailed
			check.Message = "task completed but no video url was returned"
			return check, nil
		}
		check.Result = videoResult(task.VideoURL)
	case job.RemoteFailed:
		check.Message = task.Reason
	default:
		check.Message = fmt.Sprintf("task %s is %s", shortID(remoteID), displayStatus(task.Status))
		if task.Progress > 0 {
			check.Message += fmt.Sprintf(" (%d%%)", task.Progress)
		}
	}
	return check, nil
}

// NormalizeStatus maps the status strings used by async task APIs onto the
// runner's remote states. Unknown values count as pending.
func NormalizeStatus(status string) job.RemoteState {
	switch displayStatus(status) {
	case "completed", "complete", "succeed", "succeeded", "success":
		return job.RemoteSucceeded
	case "failed", "fail", "error":
		return job.RemoteFailed
	}
	return job.RemotePending
}

func displayStatus(status string) string {
	s := strings.ToLower(strings.TrimSpace(status))
	s = strings.TrimPrefix(s, "task_status_")
	if s == "" {
		return "unknown"
	}
	return s
}

func videoResult(url string) *job.Result {
	return &job.Result{Kind: job.MediaVideo, URL: url, ContentType: "video/mp4"}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8] + "..."
	}
	return id
}
