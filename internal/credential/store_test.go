package credential

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials.json")
	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, ok, err := s.Get(Novita); err != nil || ok {
		t.Fatalf("empty store: ok=%v err=%v", ok, err)
	}
	if err := s.Set(Novita, "nv-123"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set(ElevenLabs, "xi-456"); err != nil {
		t.Fatalf("set: %v", err)
	}

	reopened, _ := NewFileStore(path)
	got, ok, err := reopened.Get(Novita)
	if err != nil || !ok || got != "nv-123" {
		t.Fatalf("get = %q ok=%v err=%v", got, ok, err)
	}
	got, _, _ = reopened.Get("ElevenLabs")
	if got != "xi-456" {
		t.Fatalf("service names should be case-insensitive, got %q", got)
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat: %v", err)
		}
		if perm := info.Mode().Perm(); perm != 0o600 {
			t.Fatalf("perm = %o, want 600", perm)
		}
	}
}

func TestFileStoreEmptyValueDeletes(t *testing.T) {
	s, _ := NewFileStore(filepath.Join(t.TempDir(), "credentials.json"))
	if err := s.Set(HuggingFace, "hf_x"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set(HuggingFace, "  "); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := s.Get(HuggingFace); ok {
		t.Fatalf("expected key removed")
	}
	if err := s.Set(HuggingFace, "hf_y"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Delete(HuggingFace); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := s.Get(HuggingFace); ok {
		t.Fatalf("expected key deleted")
	}
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, _ := NewFileStore(path)
	if _, _, err := s.Get(Novita); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	if err := s.Set(OpenAI, "sk-test"); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok, err := s.Get(OpenAI)
	if err != nil || !ok || got != "sk-test" {
		t.Fatalf("get = %q ok=%v err=%v", got, ok, err)
	}
}

func TestLookupPrefersOverride(t *testing.T) {
	s := NewMemoryStore()
	_ = s.Set(Novita, "stored")
	if got, _ := Lookup(s, Novita, "from-env"); got != "from-env" {
		t.Fatalf("override ignored: %q", got)
	}
	if got, _ := Lookup(s, Novita, ""); got != "stored" {
		t.Fatalf("stored value ignored: %q", got)
	}
	if got, _ := Lookup(nil, Novita, ""); got != "" {
		t.Fatalf("nil store should yield empty key")
	}
}
