package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestMergePrecedence(t *testing.T) {
	file := Default()
	file.Voice = "file-voice"
	file.S3Bucket = "file-bucket"

	env := Overrides{}
	env.Voice = strPtr("env-voice")
	env.S3Bucket = strPtr("env-bucket")

	flags := Overrides{}
	flags.Voice = strPtr("flag-voice")

	cfg := Merge(file, env, flags, Keys{Novita: "nv-key"})
	if cfg.Voice != "flag-voice" {
		t.Fatalf("voice precedence wrong: %s", cfg.Voice)
	}
	if cfg.S3Bucket != "env-bucket" {
		t.Fatalf("bucket precedence wrong: %s", cfg.S3Bucket)
	}
	if cfg.Keys.Novita != "nv-key" {
		t.Fatalf("keys not set")
	}
}

func TestLoadFileDurations(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"pollInterval":"5s","maxPolls":10}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PollInterval.Std() != 5*time.Second || cfg.MaxPolls != 10 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.AudioModel != "eleven_multilingual_v2" {
		t.Fatalf("defaults lost: %+v", cfg)
	}

	if err := os.WriteFile(path, []byte(`{"pollInterval":1.5}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err = LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PollInterval.Std() != 1500*time.Millisecond {
		t.Fatalf("numeric seconds not parsed: %v", cfg.PollInterval.Std())
	}
}

func TestLoadFileMissing(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.PollInterval.Std() != 3*time.Second || cfg.MaxPolls != 120 {
		t.Fatalf("defaults = %+v", cfg)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("GENSTUDIO_VOICE", "env-voice")
	t.Setenv("GENSTUDIO_OVERWRITE", "1")
	t.Setenv("GENSTUDIO_POLL_INTERVAL", "250ms")
	t.Setenv("GENSTUDIO_MAX_POLLS", "7")
	t.Setenv("NOVITA_API_KEY", "nv-xyz")
	ov, keys := FromEnv()
	if ov.Voice == nil || *ov.Voice != "env-voice" {
		t.Fatalf("voice not read from env")
	}
	if ov.Overwrite == nil || !*ov.Overwrite {
		t.Fatalf("overwrite not parsed as true")
	}
	if ov.PollInterval == nil || *ov.PollInterval != 250*time.Millisecond {
		t.Fatalf("poll interval not parsed")
	}
	if ov.MaxPolls == nil || *ov.MaxPolls != 7 {
		t.Fatalf("max polls not parsed")
	}
	if keys.Novita != "nv-xyz" {
		t.Fatalf("novita key not read from env")
	}
}

func TestLoadDotEnvDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("HF_TOKEN=from-file\nGENSTUDIO_TEST_ONLY=loaded\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("HF_TOKEN", "from-env")
	t.Setenv("GENSTUDIO_TEST_ONLY", "")
	os.Unsetenv("GENSTUDIO_TEST_ONLY")

	LoadDotEnv(path)
	if got := os.Getenv("HF_TOKEN"); got != "from-env" {
		t.Fatalf("existing env overridden: %q", got)
	}
	if got := os.Getenv("GENSTUDIO_TEST_ONLY"); got != "loaded" {
		t.Fatalf(".env value not loaded: %q", got)
	}
}

func TestValidateForVideo(t *testing.T) {
	cfg := Default()
	if err := ValidateForVideo(cfg); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	cfg.MaxPolls = 0
	if err := ValidateForVideo(cfg); err == nil {
		t.Fatalf("expected error for zero max polls")
	}
}

func TestValidateForAudio(t *testing.T) {
	cfg := Default()
	cfg.AudioProvider = "polly"
	if err := ValidateForAudio(cfg); err == nil {
		t.Fatalf("expected unsupported provider error")
	}
}

func strPtr(s string) *string { return &s }
