package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrMalformedResponse marks a 2xx response whose body could not be used.
var ErrMalformedResponse = errors.New("malformed response")

// APIError captures a non-2xx response from a provider.
type APIError struct {
	Provider   string
	StatusCode int
	Status     string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	detail := e.Message
	if detail == "" {
		detail = e.Body
	}
	if detail == "" {
		return fmt.Sprintf("%s api error: %s", e.Provider, e.Status)
	}
	return fmt.Sprintf("%s api error: %s: %s", e.Provider, e.Status, detail)
}

// HTTPStatus exposes the status code for error classification.
func (e *APIError) HTTPStatus() int { return e.StatusCode }

func isSuccess(code int) bool {
	return code >= http.StatusOK && code < http.StatusMultipleChoices
}

// newAPIError drains resp.Body into an APIError. The caller still closes it.
func newAPIError(provider string, resp *http.Response) *APIError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	body := strings.TrimSpace(string(raw))
	return &APIError{
		Provider:   provider,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Message:    errorMessage(raw),
		Body:       body,
	}
}

// errorMessage pulls a human readable message out of the error bodies used by
// the supported providers:
//
//	{"detail": {"message": "..."}}   elevenlabs
//	{"detail": "..."}                elevenlabs validation
//	{"error": "..."}                 hugging face
//	{"message": "...", "reason": ""} novita
func errorMessage(raw []byte) string {
	var body struct {
		Detail  json.RawMessage `json:"detail"`
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
		Reason  string          `json:"reason"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	if msg := rawMessage(body.Detail); msg != "" {
		return msg
	}
	if msg := rawMessage(body.Error); msg != "" {
		return msg
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Reason
}

func rawMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Message
	}
	return ""
}
