package paths

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const defaultBaseDir = "out"

// Builder constructs output paths rooted at Base (default "out").
type Builder struct {
	Base string
}

func New(base string) *Builder {
	if base == "" {
		base = defaultBaseDir
	}
	return &Builder{Base: base}
}

// OutDir returns the date-based output directory: Base/YYYY/MM/DD
func (b *Builder) OutDir(t time.Time) string {
	y, m, d := t.UTC().Date()
	return filepath.Join(b.Base, fmt.Sprintf("%04d", y), fmt.Sprintf("%02d", int(m)), fmt.Sprintf("%02d", d))
}

// MediaFile returns Base/YYYY/MM/DD/<kind>-HHMMSS<ext>.
func (b *Builder) MediaFile(t time.Time, kind, ext string) string {
	return filepath.Join(b.OutDir(t), FileName(t, kind, ext))
}

// FileName returns <kind>-HHMMSS<ext>.
func FileName(t time.Time, kind, ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return kind + "-" + t.UTC().Format("150405") + ext
}

// EnsureOutDir creates the date-based directory if it does not exist.
func (b *Builder) EnsureOutDir(t time.Time) error {
	dir := b.OutDir(t)
	return os.MkdirAll(dir, 0o755)
}

var knownExtensions = map[string]string{
	"audio/mpeg": ".mp3",
	"audio/mp3":  ".mp3",
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
	"video/mp4":  ".mp4",
}

// ExtensionFor maps a content type to a file extension, falling back to
// fallback when the type is unknown.
func ExtensionFor(contentType, fallback string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return fallback
	}
	if ext, ok := knownExtensions[mediaType]; ok {
		return ext
	}
	if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return fallback
}

// CheckOverwrite enforces overwrite behavior. If any path exists and overwrite is false, returns error.
func CheckOverwrite(paths []string, overwrite bool) error {
	if overwrite {
		return nil
	}
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return fmt.Errorf("refusing to overwrite existing file: %s (use --overwrite)", p)
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("checking file: %s: %w", p, err)
		}
	}
	return nil
}
