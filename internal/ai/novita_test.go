package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStartImageToVideo(t *testing.T) {
	var got ImageToVideoRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v3/async/wan-i2v" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer nv" {
			t.Errorf("auth = %q", r.Header.Get("Authorization"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"task_id":"abc123"}`))
	}))
	defer srv.Close()

	c, _ := NewNovita("nv", WithNovitaBaseURL(srv.URL))
	task, err := c.StartImageToVideo(context.Background(), ImageToVideoRequest{
		ImageURL: "https://x/cat.png", Prompt: "cat waves", Width: 1280, Height: 720, Seed: 7,
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if task.TaskID != "abc123" {
		t.Fatalf("task id = %q", task.TaskID)
	}
	if got.ModelName != DefaultVideoModel || got.Seed != 7 || got.Width != 1280 {
		t.Fatalf("payload = %+v", got)
	}
}

func TestTaskResultShapes(t *testing.T) {
	bodies := map[string]string{
		"nested": `{"task":{"task_id":"a","status":"completed","result":{"video_url":"https://x/a.mp4"}}}`,
		"videos": `{"task":{"task_id":"b","status":"TASK_STATUS_SUCCEED"},"videos":[{"video_url":"https://x/b.mp4"}]}`,
		"failed": `{"task":{"task_id":"c","status":"failed","error_message":"bad image"}}`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(bodies[r.URL.Query().Get("task_id")]))
	}))
	defer srv.Close()
	c, _ := NewNovita("nv", WithNovitaBaseURL(srv.URL))

	task, err := c.TaskResult(context.Background(), "nested")
	if err != nil || task.VideoURL != "https://x/a.mp4" || task.Status != "completed" {
		t.Fatalf("nested: %+v %v", task, err)
	}
	task, err = c.TaskResult(context.Background(), "videos")
	if err != nil || task.VideoURL != "https://x/b.mp4" {
		t.Fatalf("videos: %+v %v", task, err)
	}
	task, err = c.TaskResult(context.Background(), "failed")
	if err != nil || task.Reason != "bad image" {
		t.Fatalf("failed: %+v %v", task, err)
	}
}

func TestNovitaVerify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/models" {
			t.Errorf("path = %q", r.URL.Path)
		}
		switch r.Header.Get("Authorization") {
		case "Bearer good":
			_, _ = w.Write([]byte(`{"models":[]}`))
		case "Bearer broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer srv.Close()

	for key, want := range map[string]bool{"good": true, "bad": false} {
		c, _ := NewNovita(key, WithNovitaBaseURL(srv.URL))
		ok, err := c.Verify(context.Background())
		if err != nil || ok != want {
			t.Fatalf("%s: ok=%v err=%v", key, ok, err)
		}
	}
	c, _ := NewNovita("broken", WithNovitaBaseURL(srv.URL))
	if _, err := c.Verify(context.Background()); err == nil {
		t.Fatalf("expected error for 500")
	}
}
