package tools

import (
	"bytes"
	"context"
	"strconv"
	"strings"

	"genstudio/internal/ai"
	"genstudio/internal/job"
)

// DefaultVoiceSetting is used for stability and clarity when unset.
const DefaultVoiceSetting = 0.5

// Audio turns text into speech.
type Audio struct {
	client ai.SpeechClient
}

func NewAudio(client ai.SpeechClient) *Audio {
	return &Audio{client: client}
}

func (a *Audio) Name() string { return string(job.MediaAudio) }

func (a *Audio) Prepare(req job.Request) (job.Request, error) {
	req.Prompt = strings.TrimSpace(req.Prompt)
	if err := requireText("text", req.Prompt); err != nil {
		return job.Request{}, err
	}
	if err := requireText(OptVoice, req.Option(OptVoice)); err != nil {
		return job.Request{}, err
	}
	if err := requireText(OptModel, req.Option(OptModel)); err != nil {
		return job.Request{}, err
	}
	stability, err := unitInterval(OptStability, req.Option(OptStability), DefaultVoiceSetting)
	if err != nil {
		return job.Request{}, err
	}
	clarity, err := unitInterval(OptClarity, req.Option(OptClarity), DefaultVoiceSetting)
	if err != nil {
		return job.Request{}, err
	}
	req = req.WithOption(OptStability, strconv.FormatFloat(stability, 'f', -1, 64))
	return req.WithOption(OptClarity, strconv.FormatFloat(clarity, 'f', -1, 64)), nil
}

func (a *Audio) Submit(ctx context.Context, req job.Request) (job.Submission, error) {
	stability, err := unitInterval(OptStability, req.Option(OptStability), DefaultVoiceSetting)
	if err != nil {
		return job.Submission{}, err
	}
	clarity, err := unitInterval(OptClarity, req.Option(OptClarity), DefaultVoiceSetting)
	if err != nil {
		return job.Submission{}, err
	}
	var buf bytes.Buffer
	err = a.client.Speak(ctx, ai.SpeechRequest{
		Text:            req.Prompt,
		VoiceID:         req.Option(OptVoice),
		ModelID:         req.Option(OptModel),
		Stability:       stability,
		SimilarityBoost: clarity,
	}, &buf)
	if err != nil {
		return job.Submission{}, err
	}
	return job.Submission{Result: &job.Result{
		Kind:        job.MediaAudio,
		Data:        buf.Bytes(),
		ContentType: "audio/mpeg",
	}}, nil
}
