package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"genstudio/internal/ai"
	cfgpkg "genstudio/internal/config"
	"genstudio/internal/present"
)

type fakeImageClient struct {
	lastModel  string
	lastPrompt string
	calls      int
}

func (f *fakeImageClient) TextToImage(ctx context.Context, model, prompt string) (*ai.Image, error) {
	f.lastModel = model
	f.lastPrompt = prompt
	f.calls++
	return &ai.Image{Data: []byte("\x89PNG"), ContentType: "image/png"}, nil
}

func useFakeImage(t *testing.T) *fakeImageClient {
	t.Helper()
	fake := &fakeImageClient{}
	orig := newImageClient
	t.Cleanup(func() { newImageClient = orig })
	newImageClient = func(cfg cfgpkg.Config, key string) (imageGenerator, error) {
		return fake, nil
	}
	return fake
}

func TestImageSavesPNGAndPublishes(t *testing.T) {
	tmp := chdirTemp(t)
	useMemoryStore(t)
	t.Setenv("HF_TOKEN", "hf-token")
	fake := useFakeImage(t)
	out := captureStdout(t)

	up := &fakeUploader{}
	var gotBucket, gotRegion string
	orig := newUploader
	t.Cleanup(func() { newUploader = orig })
	newUploader = func(ctx context.Context, cfg cfgpkg.Config) (present.Publisher, error) {
		gotBucket, gotRegion = cfg.S3Bucket, cfg.Region
		return up, nil
	}

	code := run([]string{"image", "--prompt=a red fox", "--output-dir=" + filepath.Join(tmp, "media"), "--publish", "--bucket=b", "--region=us-east-1"})
	if code != 0 {
		t.Fatalf("image returned non-zero: %d", code)
	}
	if fake.calls != 1 || fake.lastPrompt != "a red fox" || fake.lastModel != ai.DefaultImageModel {
		t.Fatalf("image call = %+v", fake)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("stdout = %q", out.String())
	}
	if !strings.HasPrefix(lines[0], filepath.Join(tmp, "media")) || !strings.HasSuffix(lines[0], ".png") {
		t.Fatalf("saved path = %s", lines[0])
	}
	if _, err := os.Stat(lines[0]); err != nil {
		t.Fatalf("missing image: %v", err)
	}
	if gotBucket != "b" || gotRegion != "us-east-1" {
		t.Fatalf("uploader bucket=%q region=%q", gotBucket, gotRegion)
	}
	if len(up.inputs) != 1 || up.inputs[0].ContentType != "image/png" {
		t.Fatalf("publish inputs = %+v", up.inputs)
	}
	if !strings.HasPrefix(lines[1], "s3://b/genstudio/") {
		t.Fatalf("published = %s", lines[1])
	}
}

func TestImagePublishRequiresBucket(t *testing.T) {
	chdirTemp(t)
	useMemoryStore(t)
	t.Setenv("HF_TOKEN", "hf-token")
	t.Setenv("AWS_S3_BUCKET", "")
	useFakeImage(t)
	captureStdout(t)

	orig := newUploader
	t.Cleanup(func() { newUploader = orig })
	newUploader = func(ctx context.Context, cfg cfgpkg.Config) (present.Publisher, error) {
		return nil, errors.New("should not be called")
	}
	if code := run([]string{"image", "--prompt=fox", "--publish", "--region=us-east-1"}); code != 1 {
		t.Fatalf("expected failure without bucket, got %d", code)
	}
}

func TestImageEmptyPromptMakesNoRequest(t *testing.T) {
	chdirTemp(t)
	useMemoryStore(t)
	t.Setenv("HF_TOKEN", "hf-token")
	fake := useFakeImage(t)
	if code := run([]string{"image"}); code != 1 {
		t.Fatalf("expected validation failure, got %d", code)
	}
	if fake.calls != 0 {
		t.Fatalf("validation failure must not reach the provider")
	}
}
