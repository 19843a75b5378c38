package tools

import (
	"context"
	"strings"

	"genstudio/internal/ai"
	"genstudio/internal/job"
)

type imageClient interface {
	TextToImage(ctx context.Context, model, prompt string) (*ai.Image, error)
}

// Image turns a prompt into a single image.
type Image struct {
	client imageClient
	model  string
}

func NewImage(client imageClient, model string) *Image {
	if model == "" {
		model = ai.DefaultImageModel
	}
	return &Image{client: client, model: model}
}

func (i *Image) Name() string { return string(job.MediaImage) }

func (i *Image) Prepare(req job.Request) (job.Request, error) {
	req.Prompt = strings.TrimSpace(req.Prompt)
	if err := requireText("prompt", req.Prompt); err != nil {
		return job.Request{}, err
	}
	return req, nil
}

func (i *Image) Submit(ctx context.Context, req job.Request) (job.Submission, error) {
	img, err := i.client.TextToImage(ctx, i.model, req.Prompt)
	if err != nil {
		return job.Submission{}, err
	}
	return job.Submission{Result: &job.Result{
		Kind:        job.MediaImage,
		Data:        img.Data,
		ContentType: img.ContentType,
	}}, nil
}
