package main

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"genstudio/internal/credential"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	origWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	tmp := t.TempDir()
	if err := os.Chdir(tmp); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(origWD) })
	return tmp
}

// useMemoryStore swaps the credential store and clears key env vars so
// tests only see what they set.
func useMemoryStore(t *testing.T) *credential.MemoryStore {
	t.Helper()
	for _, name := range keyEnvNames {
		t.Setenv(name, "")
	}
	store := credential.NewMemoryStore()
	orig := newCredentialStore
	t.Cleanup(func() { newCredentialStore = orig })
	newCredentialStore = func(path string) (credential.Store, error) {
		return store, nil
	}
	return store
}

func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	orig := stdout
	t.Cleanup(func() { stdout = orig })
	stdout = &buf
	return &buf
}

func firstLine(buf *bytes.Buffer) string {
	line, _, _ := strings.Cut(buf.String(), "\n")
	return line
}

func TestHelp(t *testing.T) {
	if code := run([]string{"-h"}); code != 0 {
		t.Fatalf("expected help to return 0, got %d", code)
	}
}

func TestUnknownSubcommand(t *testing.T) {
	if code := run([]string{"unknown"}); code != 2 {
		t.Fatalf("expected 2 for unknown subcommand, got %d", code)
	}
}

func TestVersion(t *testing.T) {
	out := captureStdout(t)
	if code := run([]string{"version"}); code != 0 {
		t.Fatalf("version returned %d", code)
	}
	if strings.TrimSpace(out.String()) != version {
		t.Fatalf("version output = %q", out.String())
	}
}

func TestSubcommandHelp(t *testing.T) {
	for _, sub := range []string{"audio", "image", "video", "key", "voices", "models"} {
		if code := run([]string{sub, "-h"}); code != 0 {
			t.Errorf("%s -h returned %d", sub, code)
		}
	}
}

func TestMaskKey(t *testing.T) {
	if got := maskKey("sk-abcdefghijkl"); got != "sk-a*******ijkl" {
		t.Fatalf("maskKey = %q", got)
	}
	if got := maskKey("short"); got != "*****" {
		t.Fatalf("maskKey short = %q", got)
	}
}
