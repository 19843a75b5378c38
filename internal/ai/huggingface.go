package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"
)

const huggingFaceDefaultBaseURL = "https://api-inference.huggingface.co"

// DefaultImageModel is the text-to-image model used when none is configured.
const DefaultImageModel = "black-forest-labs/FLUX.1-schnell"

// HuggingFaceOption configures the Hugging Face client.
type HuggingFaceOption func(*HuggingFaceClient)

func WithHuggingFaceBaseURL(baseURL string) HuggingFaceOption {
	return func(c *HuggingFaceClient) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

func WithHuggingFaceHTTPClient(client *http.Client) HuggingFaceOption {
	return func(c *HuggingFaceClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// HuggingFaceClient calls the Hugging Face serverless inference API.
type HuggingFaceClient struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

// NewHuggingFace constructs a client. The token is required.
func NewHuggingFace(token string, opts ...HuggingFaceOption) (*HuggingFaceClient, error) {
	if token == "" {
		return nil, errors.New("HF_TOKEN is required")
	}
	c := &HuggingFaceClient{
		token:   token,
		baseURL: huggingFaceDefaultBaseURL,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Image is a generated image payload.
type Image struct {
	Data        []byte
	ContentType string
}

// TextToImage runs prompt through model and returns the raw image bytes.
func (c *HuggingFaceClient) TextToImage(ctx context.Context, model, prompt string) (*Image, error) {
	if strings.TrimSpace(model) == "" {
		model = DefaultImageModel
	}
	if strings.TrimSpace(prompt) == "" {
		return nil, errors.New("prompt is required")
	}
	payload, err := json.Marshal(map[string]string{"inputs": prompt})
	if err != nil {
		return nil, fmt.Errorf("encode huggingface request: %w", err)
	}
	endpoint := strings.TrimRight(c.baseURL, "/") + "/models/" + strings.Trim(model, "/")
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build huggingface request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.token)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "image/png")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if !isSuccess(resp.StatusCode) {
		return nil, newAPIError("huggingface", resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read huggingface response: %w", err)
	}
	contentType := resp.Header.Get("Content-Type")
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType == "application/json" {
		return nil, fmt.Errorf("huggingface returned json instead of an image: %w: %s", ErrMalformedResponse, strings.TrimSpace(string(data)))
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("huggingface returned an empty image: %w", ErrMalformedResponse)
	}
	if mediaType == "" {
		mediaType = http.DetectContentType(data)
	}
	return &Image{Data: data, ContentType: mediaType}, nil
}
