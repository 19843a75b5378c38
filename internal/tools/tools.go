// Package tools holds the request builders for each generation tool. Each
// tool validates a job.Request, calls its provider client and maps the
// response onto the job lifecycle.
package tools

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"genstudio/internal/job"
)

// Option names understood by the tools.
const (
	OptVoice     = "voice"
	OptModel     = "model"
	OptStability = "stability"
	OptClarity   = "clarity"
	OptImageURL  = "image_url"
	OptWidth     = "width"
	OptHeight    = "height"
	OptSeed      = "seed"
)

func requireText(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return job.Invalid(field, "is required")
	}
	return nil
}

// unitInterval parses a value in [0,1], returning def when raw is empty.
func unitInterval(field, raw string, def float64) (float64, error) {
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, job.Invalid(field, fmt.Sprintf("%q is not a number", raw))
	}
	if v < 0 || v > 1 {
		return 0, job.Invalid(field, fmt.Sprintf("%v is outside [0, 1]", v))
	}
	return v, nil
}

func positiveInt(field, raw string) (int, error) {
	if raw == "" {
		return 0, job.Invalid(field, "is required")
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, job.Invalid(field, fmt.Sprintf("%q is not an integer", raw))
	}
	if v <= 0 {
		return 0, job.Invalid(field, "must be greater than zero")
	}
	return v, nil
}

func publicURL(field, raw string) error {
	if raw == "" {
		return job.Invalid(field, "is required")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return job.Invalid(field, fmt.Sprintf("%q is not a public http(s) url", raw))
	}
	return nil
}
