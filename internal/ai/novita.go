package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const novitaDefaultBaseURL = "https://api.novita.ai"

// DefaultVideoModel is the wan image-to-video model name sent to Novita.
const DefaultVideoModel = "wan2.1-i2v"

// NovitaOption configures the Novita client.
type NovitaOption func(*NovitaClient)

func WithNovitaBaseURL(baseURL string) NovitaOption {
	return func(c *NovitaClient) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

func WithNovitaHTTPClient(client *http.Client) NovitaOption {
	return func(c *NovitaClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NovitaClient talks to Novita's async task API.
type NovitaClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewNovita constructs a client. The apiKey is required.
func NewNovita(apiKey string, opts ...NovitaOption) (*NovitaClient, error) {
	if apiKey == "" {
		return nil, errors.New("NOVITA_API_KEY is required")
	}
	c := &NovitaClient{
		apiKey:  apiKey,
		baseURL: novitaDefaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ImageToVideoRequest is the body of POST /v3/async/wan-i2v.
type ImageToVideoRequest struct {
	ModelName string `json:"model_name"`
	ImageURL  string `json:"image_url"`
	Prompt    string `json:"prompt"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Seed      int64  `json:"seed"`
}

// NovitaTask is a flattened task status.
type NovitaTask struct {
	TaskID   string
	Status   string
	Reason   string
	Progress int
	VideoURL string
}

type novitaTaskResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
	Task   struct {
		TaskID          string `json:"task_id"`
		Status          string `json:"status"`
		Reason          string `json:"reason"`
		ErrorMessage    string `json:"error_message"`
		ProgressPercent int    `json:"progress_percent"`
		Result          struct {
			VideoURL string `json:"video_url"`
		} `json:"result"`
	} `json:"task"`
	Videos []struct {
		VideoURL string `json:"video_url"`
	} `json:"videos"`
}

func (r novitaTaskResponse) flatten() NovitaTask {
	t := NovitaTask{
		TaskID:   firstNonEmpty(r.Task.TaskID, r.TaskID),
		Status:   firstNonEmpty(r.Task.Status, r.Status),
		Reason:   firstNonEmpty(r.Task.ErrorMessage, r.Task.Reason),
		Progress: r.Task.ProgressPercent,
		VideoURL: r.Task.Result.VideoURL,
	}
	if t.VideoURL == "" {
		for _, v := range r.Videos {
			if v.VideoURL != "" {
				t.VideoURL = v.VideoURL
				break
			}
		}
	}
	return t
}

// StartImageToVideo creates a generation task and returns its initial state.
func (c *NovitaClient) StartImageToVideo(ctx context.Context, req ImageToVideoRequest) (NovitaTask, error) {
	if req.ModelName == "" {
		req.ModelName = DefaultVideoModel
	}
	var resp novitaTaskResponse
	if err := c.do(ctx, http.MethodPost, "/v3/async/wan-i2v", nil, req, &resp); err != nil {
		return NovitaTask{}, err
	}
	task := resp.flatten()
	if task.TaskID == "" {
		return NovitaTask{}, fmt.Errorf("novita did not return a task_id: %w", ErrMalformedResponse)
	}
	return task, nil
}

// TaskResult fetches the current state of taskID.
func (c *NovitaClient) TaskResult(ctx context.Context, taskID string) (NovitaTask, error) {
	if strings.TrimSpace(taskID) == "" {
		return NovitaTask{}, errors.New("task id is required")
	}
	query := url.Values{"task_id": []string{taskID}}
	var resp novitaTaskResponse
	if err := c.do(ctx, http.MethodGet, "/v3/async/task-result", query, nil, &resp); err != nil {
		return NovitaTask{}, err
	}
	task := resp.flatten()
	if task.TaskID == "" {
		task.TaskID = taskID
	}
	return task, nil
}

// Verify issues a lightweight authenticated call against the model list.
func (c *NovitaClient) Verify(ctx context.Context) (bool, error) {
	return verdict(c.do(ctx, http.MethodGet, "/v2/models", nil, nil, nil))
}

func (c *NovitaClient) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	endpoint, err := url.Parse(strings.TrimRight(c.baseURL, "/"))
	if err != nil {
		return fmt.Errorf("parse novita base url: %w", err)
	}
	endpoint.Path = strings.TrimRight(endpoint.Path, "/") + path
	if query != nil {
		endpoint.RawQuery = query.Encode()
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode novita request: %w", err)
		}
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return fmt.Errorf("build novita request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if !isSuccess(resp.StatusCode) {
		return newAPIError("novita", resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode novita %s: %w: %v", path, ErrMalformedResponse, err)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
