package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Duration is a time.Duration that reads from JSON as "3s" or as a number
// of seconds.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("parse duration %q: %w", s, err)
		}
		*d = Duration(v)
		return nil
	}
	var secs float64
	if err := json.Unmarshal(b, &secs); err != nil {
		return fmt.Errorf("duration must be a string like \"3s\" or a number of seconds")
	}
	*d = Duration(time.Duration(secs * float64(time.Second)))
	return nil
}

// Config holds resolved configuration values after merging file, env, and flags.
type Config struct {
	OutputDir     string   `json:"outputDir,omitempty"`
	AudioProvider string   `json:"audioProvider,omitempty"`
	Voice         string   `json:"voice,omitempty"`
	AudioModel    string   `json:"audioModel,omitempty"`
	ImageModel    string   `json:"imageModel,omitempty"`
	VideoModel    string   `json:"videoModel,omitempty"`
	PollInterval  Duration `json:"pollInterval,omitempty"`
	MaxPolls      int      `json:"maxPolls,omitempty"`
	S3Bucket      string   `json:"s3Bucket,omitempty"`
	S3Prefix      string   `json:"s3Prefix,omitempty"`
	Region        string   `json:"region,omitempty"`
	HistorySize   int      `json:"historySize,omitempty"`
	Overwrite     bool     `json:"overwrite,omitempty"`

	// Base URLs are only overridden for proxies and tests.
	ElevenLabsBaseURL  string `json:"elevenLabsBaseURL,omitempty"`
	OpenAIBaseURL      string `json:"openAIBaseURL,omitempty"`
	HuggingFaceBaseURL string `json:"huggingFaceBaseURL,omitempty"`
	NovitaBaseURL      string `json:"novitaBaseURL,omitempty"`

	CredentialsFile string `json:"credentialsFile,omitempty"`

	// Not persisted to file; sourced from env only.
	Keys Keys `json:"-"`
}

// Keys are API keys read from the environment. They take precedence over
// the credential store.
type Keys struct {
	ElevenLabs  string
	OpenAI      string
	HuggingFace string
	Novita      string
}

// Overrides represents optional overrides from env or flags.
// Only non-nil pointers are applied during merge.
type Overrides struct {
	OutputDir     *string
	AudioProvider *string
	Voice         *string
	AudioModel    *string
	ImageModel    *string
	VideoModel    *string
	PollInterval  *time.Duration
	MaxPolls      *int
	S3Bucket      *string
	S3Prefix      *string
	Region        *string
	HistorySize   *int
	Overwrite     *bool
}

func Default() Config {
	return Config{
		OutputDir:     "out",
		AudioProvider: "elevenlabs",
		Voice:         "21m00Tcm4TlvDq8ikWAM",
		AudioModel:    "eleven_multilingual_v2",
		ImageModel:    "black-forest-labs/FLUX.1-schnell",
		VideoModel:    "wan2.1-i2v",
		PollInterval:  Duration(3 * time.Second),
		MaxPolls:      120,
		S3Prefix:      "genstudio",
		HistorySize:   50,
	}
}

// LoadFile reads a JSON config. If file not found, returns defaults and no error.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config file: %w", err)
	}
	if err := json.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv loads .env files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		_ = godotenv.Load(f)
	}
}

// FromEnv reads env vars and returns overrides and API keys.
func FromEnv() (Overrides, Keys) {
	var ov Overrides
	var keys Keys

	if v, ok := os.LookupEnv("GENSTUDIO_OUTPUT_DIR"); ok {
		ov.OutputDir = &[]string{v}[0]
	}
	if v, ok := os.LookupEnv("GENSTUDIO_AUDIO_PROVIDER"); ok {
		ov.AudioProvider = &[]string{v}[0]
	}
	if v, ok := os.LookupEnv("GENSTUDIO_VOICE"); ok {
		ov.Voice = &[]string{v}[0]
	}
	if v, ok := os.LookupEnv("GENSTUDIO_AUDIO_MODEL"); ok {
		ov.AudioModel = &[]string{v}[0]
	}
	if v, ok := os.LookupEnv("GENSTUDIO_IMAGE_MODEL"); ok {
		ov.ImageModel = &[]string{v}[0]
	}
	if v, ok := os.LookupEnv("GENSTUDIO_VIDEO_MODEL"); ok {
		ov.VideoModel = &[]string{v}[0]
	}
	if v, ok := os.LookupEnv("GENSTUDIO_POLL_INTERVAL"); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			ov.PollInterval = &d
		}
	}
	if v, ok := os.LookupEnv("GENSTUDIO_MAX_POLLS"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			ov.MaxPolls = &n
		}
	}
	if v, ok := os.LookupEnv("AWS_S3_BUCKET"); ok {
		ov.S3Bucket = &[]string{v}[0]
	}
	if v, ok := os.LookupEnv("AWS_S3_PREFIX"); ok {
		ov.S3Prefix = &[]string{v}[0]
	}
	if v, ok := os.LookupEnv("AWS_REGION"); ok {
		ov.Region = &[]string{v}[0]
	}
	if v, ok := os.LookupEnv("GENSTUDIO_HISTORY_SIZE"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			ov.HistorySize = &n
		}
	}
	if v, ok := os.LookupEnv("GENSTUDIO_OVERWRITE"); ok {
		if b, err := parseBool(v); err == nil {
			ov.Overwrite = &[]bool{b}[0]
		}
	}
	keys.ElevenLabs = os.Getenv("ELEVENLABS_API_KEY")
	keys.OpenAI = os.Getenv("OPENAI_API_KEY")
	keys.HuggingFace = os.Getenv("HF_TOKEN")
	keys.Novita = os.Getenv("NOVITA_API_KEY")
	return ov, keys
}

func parseBool(s string) (bool, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return false, fmt.Errorf("empty bool")
	}
	if s == "1" || s == "t" || s == "true" || s == "y" || s == "yes" || s == "on" {
		return true, nil
	}
	if s == "0" || s == "f" || s == "false" || s == "n" || s == "no" || s == "off" {
		return false, nil
	}
	// try strconv
	return strconv.ParseBool(s)
}

// Merge applies overrides in order: file -> env -> flags.
func Merge(fileCfg Config, env Overrides, flags Overrides, keys Keys) Config {
	cfg := fileCfg

	apply := func(ov Overrides) {
		if ov.OutputDir != nil {
			cfg.OutputDir = *ov.OutputDir
		}
		if ov.AudioProvider != nil {
			cfg.AudioProvider = *ov.AudioProvider
		}
		if ov.Voice != nil {
			cfg.Voice = *ov.Voice
		}
		if ov.AudioModel != nil {
			cfg.AudioModel = *ov.AudioModel
		}
		if ov.ImageModel != nil {
			cfg.ImageModel = *ov.ImageModel
		}
		if ov.VideoModel != nil {
			cfg.VideoModel = *ov.VideoModel
		}
		if ov.PollInterval != nil {
			cfg.PollInterval = Duration(*ov.PollInterval)
		}
		if ov.MaxPolls != nil {
			cfg.MaxPolls = *ov.MaxPolls
		}
		if ov.S3Bucket != nil {
			cfg.S3Bucket = *ov.S3Bucket
		}
		if ov.S3Prefix != nil {
			cfg.S3Prefix = *ov.S3Prefix
		}
		if ov.Region != nil {
			cfg.Region = *ov.Region
		}
		if ov.HistorySize != nil {
			cfg.HistorySize = *ov.HistorySize
		}
		if ov.Overwrite != nil {
			cfg.Overwrite = *ov.Overwrite
		}
	}

	apply(env)
	apply(flags)

	cfg.Keys = keys
	return cfg
}

// Validation helpers
func ValidateForAudio(cfg Config) error {
	switch strings.ToLower(strings.TrimSpace(cfg.AudioProvider)) {
	case "elevenlabs", "openai":
	default:
		return fmt.Errorf("unsupported audio provider: %s", cfg.AudioProvider)
	}
	return nil
}

func ValidateForVideo(cfg Config) error {
	if cfg.PollInterval.Std() <= 0 {
		return errors.New("poll interval must be positive")
	}
	if cfg.MaxPolls <= 0 {
		return errors.New("max polls must be positive")
	}
	return nil
}

func ValidateForPublish(cfg Config) error {
	if cfg.S3Bucket == "" {
		return errors.New("S3 bucket is required for publish")
	}
	if cfg.Region == "" {
		return errors.New("AWS region is required for publish")
	}
	return nil
}
