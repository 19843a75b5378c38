package paths

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestOutPaths(t *testing.T) {
	base := t.TempDir()
	b := New(base)
	ts := time.Date(2025, 9, 30, 12, 4, 5, 0, time.UTC)

	wantDir := filepath.Join(base, "2025", "09", "30")
	if b.OutDir(ts) != wantDir {
		t.Fatalf("OutDir: got %q want %q", b.OutDir(ts), wantDir)
	}
	if got := b.MediaFile(ts, "audio", ".mp3"); got != filepath.Join(wantDir, "audio-120405.mp3") {
		t.Fatalf("MediaFile path incorrect: %s", got)
	}
	if got := FileName(ts, "image", "png"); got != "image-120405.png" {
		t.Fatalf("FileName without dot: %s", got)
	}
}

func TestExtensionFor(t *testing.T) {
	cases := map[string]string{
		"audio/mpeg":               ".mp3",
		"image/png":                ".png",
		"image/jpeg":               ".jpg",
		"video/mp4; codecs=avc1":   ".mp4",
		"":                         ".bin",
		"application/x-not-a-type": ".bin",
	}
	for ct, want := range cases {
		if got := ExtensionFor(ct, ".bin"); got != want {
			t.Errorf("ExtensionFor(%q) = %q, want %q", ct, got, want)
		}
	}
}

func TestEnsureOutDirAndOverwrite(t *testing.T) {
	base := t.TempDir()
	b := New(base)
	ts := time.Date(2025, 9, 30, 12, 0, 0, 0, time.UTC)

	// Ensure dir creates nested path
	if err := b.EnsureOutDir(ts); err != nil {
		t.Fatalf("EnsureOutDir error: %v", err)
	}
	// Create a file to simulate existing output
	out := b.MediaFile(ts, "image", ".png")
	if err := os.WriteFile(out, []byte("existing"), 0o644); err != nil {
		t.Fatalf("write existing: %v", err)
	}
	// Check overwrite guard blocks when overwrite=false
	if err := CheckOverwrite([]string{out}, false); err == nil {
		t.Fatalf("expected overwrite guard to fail")
	}
	// When overwrite=true it should pass
	if err := CheckOverwrite([]string{out}, true); err != nil {
		t.Fatalf("overwrite=true should not error: %v", err)
	}
}
