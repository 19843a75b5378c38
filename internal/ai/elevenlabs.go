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

const elevenLabsDefaultBaseURL = "https://api.elevenlabs.io"
const elevenLabsDefaultOutputFormat = "mp3_44100_128"

// ElevenLabsOption configures the ElevenLabs client.
type ElevenLabsOption func(*ElevenLabsClient)

// WithElevenLabsBaseURL sets the ElevenLabs API base URL.
func WithElevenLabsBaseURL(baseURL string) ElevenLabsOption {
	return func(c *ElevenLabsClient) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithElevenLabsHTTPClient sets the HTTP client used for requests.
func WithElevenLabsHTTPClient(client *http.Client) ElevenLabsOption {
	return func(c *ElevenLabsClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// ElevenLabsClient provides a thin wrapper for ElevenLabs API calls.
type ElevenLabsClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	tts        *ElevenLabsTextToSpeechService
}

// NewElevenLabs constructs a new ElevenLabs client. The apiKey is required.
func NewElevenLabs(apiKey string, opts ...ElevenLabsOption) (*ElevenLabsClient, error) {
	if apiKey == "" {
		return nil, errors.New("ELEVENLABS_API_KEY is required")
	}
	client := &ElevenLabsClient{
		apiKey:  apiKey,
		baseURL: elevenLabsDefaultBaseURL,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
	for _, opt := range opts {
		opt(client)
	}
	client.tts = &ElevenLabsTextToSpeechService{client: client}
	return client, nil
}

// TextToSpeech returns the text-to-speech service.
func (c *ElevenLabsClient) TextToSpeech() *ElevenLabsTextToSpeechService {
	return c.tts
}

// ElevenLabsVoiceSettings configures TTS voice settings. Stability and
// similarity are always sent because zero is a meaningful value.
type ElevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style,omitempty"`
	UseSpeakerBoost bool    `json:"use_speaker_boost,omitempty"`
}

// ElevenLabsTTSRequest is a request to generate speech.
type ElevenLabsTTSRequest struct {
	VoiceID       string
	Text          string
	ModelID       string
	VoiceSettings *ElevenLabsVoiceSettings
	OutputFormat  string
}

// ElevenLabsTextToSpeechService handles text-to-speech requests.
type ElevenLabsTextToSpeechService struct {
	client *ElevenLabsClient
}

// Convert streams generated speech. The caller closes the returned reader.
func (s *ElevenLabsTextToSpeechService) Convert(ctx context.Context, req *ElevenLabsTTSRequest) (io.ReadCloser, error) {
	if req == nil {
		return nil, errors.New("request is required")
	}
	if strings.TrimSpace(req.VoiceID) == "" {
		return nil, errors.New("voice_id is required")
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, errors.New("text is required")
	}

	outputFormat := req.OutputFormat
	if outputFormat == "" {
		outputFormat = elevenLabsDefaultOutputFormat
	}

	endpoint, err := s.client.endpoint(fmt.Sprintf("/v1/text-to-speech/%s/stream", url.PathEscape(req.VoiceID)))
	if err != nil {
		return nil, err
	}
	query := endpoint.Query()
	query.Set("output_format", outputFormat)
	endpoint.RawQuery = query.Encode()

	body := struct {
		Text          string                   `json:"text"`
		ModelID       string                   `json:"model_id,omitempty"`
		VoiceSettings *ElevenLabsVoiceSettings `json:"voice_settings,omitempty"`
	}{
		Text:          req.Text,
		ModelID:       req.ModelID,
		VoiceSettings: req.VoiceSettings,
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("encode elevenlabs request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), &buf)
	if err != nil {
		return nil, fmt.Errorf("build elevenlabs request: %w", err)
	}
	httpReq.Header.Set("xi-api-key", s.client.apiKey)
	httpReq.Header.Set("accept", "audio/mpeg")
	httpReq.Header.Set("content-type", "application/json")

	resp, err := s.client.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	if !isSuccess(resp.StatusCode) {
		defer resp.Body.Close()
		return nil, newAPIError("elevenlabs", resp)
	}
	return resp.Body, nil
}

// ConvertToWriter generates speech audio and writes it to the writer. An
// empty audio stream is an error.
func (s *ElevenLabsTextToSpeechService) ConvertToWriter(ctx context.Context, req *ElevenLabsTTSRequest, w io.Writer) error {
	reader, err := s.Convert(ctx, req)
	if err != nil {
		return err
	}
	defer reader.Close()
	n, err := io.Copy(w, reader)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("elevenlabs returned empty audio: %w", ErrMalformedResponse)
	}
	return nil
}

// Speak writes MP3 audio for req to w.
func (c *ElevenLabsClient) Speak(ctx context.Context, req SpeechRequest, w io.Writer) error {
	return c.TextToSpeech().ConvertToWriter(ctx, &ElevenLabsTTSRequest{
		VoiceID: req.VoiceID,
		Text:    req.Text,
		ModelID: req.ModelID,
		VoiceSettings: &ElevenLabsVoiceSettings{
			Stability:       req.Stability,
			SimilarityBoost: req.SimilarityBoost,
		},
		OutputFormat: elevenLabsDefaultOutputFormat,
	}, w)
}

// Verify calls /v1/user. A 401 or 403 means the key was rejected.
func (c *ElevenLabsClient) Verify(ctx context.Context) (bool, error) {
	err := c.getJSON(ctx, "/v1/user", nil)
	return verdict(err)
}

// ElevenLabsVoice is one entry of /v1/voices.
type ElevenLabsVoice struct {
	VoiceID  string `json:"voice_id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}

// Voices lists the voices available to the account.
func (c *ElevenLabsClient) Voices(ctx context.Context) ([]ElevenLabsVoice, error) {
	var out struct {
		Voices []ElevenLabsVoice `json:"voices"`
	}
	if err := c.getJSON(ctx, "/v1/voices", &out); err != nil {
		return nil, err
	}
	return out.Voices, nil
}

// ElevenLabsModel is one entry of /v1/models.
type ElevenLabsModel struct {
	ModelID           string `json:"model_id"`
	Name              string `json:"name"`
	CanDoTextToSpeech bool   `json:"can_do_text_to_speech"`
}

// SpeechModels lists models that can do text-to-speech.
func (c *ElevenLabsClient) SpeechModels(ctx context.Context) ([]ElevenLabsModel, error) {
	var all []ElevenLabsModel
	if err := c.getJSON(ctx, "/v1/models", &all); err != nil {
		return nil, err
	}
	models := make([]ElevenLabsModel, 0, len(all))
	for _, m := range all {
		if m.CanDoTextToSpeech {
			models = append(models, m)
		}
	}
	return models, nil
}

func (c *ElevenLabsClient) endpoint(path string) (*url.URL, error) {
	endpoint, err := url.Parse(strings.TrimRight(c.baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse elevenlabs base url: %w", err)
	}
	endpoint.Path = strings.TrimRight(endpoint.Path, "/") + path
	return endpoint, nil
}

func (c *ElevenLabsClient) getJSON(ctx context.Context, path string, out any) error {
	endpoint, err := c.endpoint(path)
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("build elevenlabs request: %w", err)
	}
	httpReq.Header.Set("xi-api-key", c.apiKey)
	httpReq.Header.Set("accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if !isSuccess(resp.StatusCode) {
		return newAPIError("elevenlabs", resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode elevenlabs %s: %w: %v", path, ErrMalformedResponse, err)
	}
	return nil
}

// verdict turns the error of an authenticated probe into a Verify answer.
func verdict(err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden) {
		return false, nil
	}
	return false, err
}
