package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Client wraps the official OpenAI SDK client for speech synthesis.
type Client struct {
	apiKey  string
	baseURL string
	sdk     openai.Client
}

// New constructs a new OpenAI client. The apiKey is required.
// baseURL is optional (empty string uses the default API endpoint).
func New(apiKey, baseURL string, httpClient *http.Client) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	sdk := openai.NewClient(opts...)
	return &Client{apiKey: apiKey, baseURL: baseURL, sdk: sdk}, nil
}

func (c *Client) APIKey() string  { return c.apiKey }
func (c *Client) BaseURL() string { return c.baseURL }

// Speak writes MP3 audio to w using the Audio Speech API. Voice settings
// other than the voice name are not supported by OpenAI and are ignored.
func (c *Client) Speak(ctx context.Context, req SpeechRequest, w io.Writer) error {
	params := openai.AudioSpeechNewParams{
		Model:          openai.SpeechModel(req.ModelID),
		Voice:          openai.AudioSpeechNewParamsVoice(req.VoiceID),
		Input:          req.Text,
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	}
	resp, err := c.sdk.Audio.Speech.New(ctx, params)
	if err != nil {
		return openAIError(err)
	}
	defer resp.Body.Close()
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("openai returned empty audio: %w", ErrMalformedResponse)
	}
	return nil
}

// Verify lists models, which any valid key may do.
func (c *Client) Verify(ctx context.Context) (bool, error) {
	_, err := c.sdk.Models.List(ctx)
	if err != nil {
		return verdict(openAIError(err))
	}
	return true, nil
}

// openAIError maps SDK errors onto APIError so they classify like the other
// providers.
func openAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &APIError{
			Provider:   "openai",
			StatusCode: apiErr.StatusCode,
			Status:     fmt.Sprintf("%d %s", apiErr.StatusCode, http.StatusText(apiErr.StatusCode)),
			Message:    apiErr.Message,
		}
	}
	return err
}
