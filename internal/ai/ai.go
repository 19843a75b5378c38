package ai

import (
	"context"
	"io"
)

// SpeechRequest carries one text-to-speech call. Stability and
// SimilarityBoost are only honoured by providers that support them.
type SpeechRequest struct {
	Text            string
	VoiceID         string
	ModelID         string
	Stability       float64
	SimilarityBoost float64
}

// SpeechClient synthesizes speech audio from text.
type SpeechClient interface {
	Speak(ctx context.Context, req SpeechRequest, w io.Writer) error
}

// KeyVerifier reports whether the configured key is accepted by the remote API.
type KeyVerifier interface {
	Verify(ctx context.Context) (bool, error)
}
