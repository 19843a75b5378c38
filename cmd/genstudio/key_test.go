package main

import (
	"context"
	"strings"
	"testing"

	"genstudio/internal/ai"
	cfgpkg "genstudio/internal/config"
	"genstudio/internal/credential"
)

type fakeVerifier struct {
	ok    bool
	calls int
}

func (f *fakeVerifier) Verify(ctx context.Context) (bool, error) {
	f.calls++
	return f.ok, nil
}

func useFakeVerifier(t *testing.T, ok bool) (*fakeVerifier, *string) {
	t.Helper()
	fake := &fakeVerifier{ok: ok}
	var gotKey string
	orig := newVerifier
	t.Cleanup(func() { newVerifier = orig })
	newVerifier = func(cfg cfgpkg.Config, service, key string) (ai.KeyVerifier, error) {
		gotKey = key
		return fake, nil
	}
	return fake, &gotKey
}

func TestKeySetGetDelete(t *testing.T) {
	chdirTemp(t)
	store := useMemoryStore(t)
	out := captureStdout(t)

	if code := run([]string{"key", "set", "novita", "nv-1234567890"}); code != 0 {
		t.Fatalf("set returned %d", code)
	}
	if v, ok, _ := store.Get(credential.Novita); !ok || v != "nv-1234567890" {
		t.Fatalf("stored = %q ok=%v", v, ok)
	}
	out.Reset()
	if code := run([]string{"key", "get", "novita"}); code != 0 {
		t.Fatalf("get returned %d", code)
	}
	if got := strings.TrimSpace(out.String()); got != "nv-1*****7890" {
		t.Fatalf("masked = %q", got)
	}
	if code := run([]string{"key", "delete", "novita"}); code != 0 {
		t.Fatalf("delete returned %d", code)
	}
	if _, ok, _ := store.Get(credential.Novita); ok {
		t.Fatalf("key not deleted")
	}
	if code := run([]string{"key", "get", "novita"}); code != 1 {
		t.Fatalf("get after delete should fail, got %d", code)
	}
}

func TestKeySetFromStdinAndEmptyDeletes(t *testing.T) {
	chdirTemp(t)
	store := useMemoryStore(t)
	captureStdout(t)
	orig := stdin
	t.Cleanup(func() { stdin = orig })

	stdin = strings.NewReader("hf-from-stdin\n")
	if code := run([]string{"key", "set", "huggingface"}); code != 0 {
		t.Fatalf("set returned %d", code)
	}
	if v, _, _ := store.Get(credential.HuggingFace); v != "hf-from-stdin" {
		t.Fatalf("stored = %q", v)
	}

	stdin = strings.NewReader("\n")
	if code := run([]string{"key", "set", "huggingface"}); code != 0 {
		t.Fatalf("set empty returned %d", code)
	}
	if _, ok, _ := store.Get(credential.HuggingFace); ok {
		t.Fatalf("empty set should delete the key")
	}
}

func TestKeySetVerifyRejects(t *testing.T) {
	chdirTemp(t)
	store := useMemoryStore(t)
	fake, _ := useFakeVerifier(t, false)

	if code := run([]string{"key", "--verify", "set", "elevenlabs", "el-bad"}); code != 1 {
		t.Fatalf("expected rejection, got %d", code)
	}
	if fake.calls != 1 {
		t.Fatalf("verify calls = %d", fake.calls)
	}
	if _, ok, _ := store.Get(credential.ElevenLabs); ok {
		t.Fatalf("rejected key must not be stored")
	}
}

func TestKeyVerifyUsesResolvedKey(t *testing.T) {
	chdirTemp(t)
	useMemoryStore(t)
	t.Setenv("OPENAI_API_KEY", "sk-env")
	out := captureStdout(t)
	_, key := useFakeVerifier(t, true)

	if code := run([]string{"key", "verify", "openai"}); code != 0 {
		t.Fatalf("verify returned %d", code)
	}
	if *key != "sk-env" {
		t.Fatalf("verified key = %q", *key)
	}
	if !strings.Contains(out.String(), "valid") {
		t.Fatalf("stdout = %q", out.String())
	}
}

func TestKeyUnknownService(t *testing.T) {
	chdirTemp(t)
	useMemoryStore(t)
	if code := run([]string{"key", "set", "midjourney", "x"}); code != 1 {
		t.Fatalf("expected failure, got %d", code)
	}
}
