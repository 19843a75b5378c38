// Package present turns finished job results into files on disk and,
// optionally, published objects.
package present

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"genstudio/internal/job"
	"genstudio/internal/paths"
	"genstudio/internal/storage"
)

// IOError reports a failed local write. It is surfaced, never retried.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// StatusError is a non-2xx response while fetching a result URL.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("download %s: status %d", e.URL, e.StatusCode)
}

func (e *StatusError) HTTPStatus() int { return e.StatusCode }

// FileSaver writes bytes to local paths.
type FileSaver struct{}

// Save writes data to path through a temp file in the same directory so a
// failed write never leaves a truncated result behind.
func (FileSaver) Save(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &IOError{Path: path, Err: err}
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return &IOError{Path: path, Err: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &IOError{Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &IOError{Path: path, Err: err}
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return &IOError{Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return &IOError{Path: path, Err: err}
	}
	return nil
}

// Fetcher downloads result URLs.
type Fetcher struct {
	httpClient *http.Client
}

func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	return &Fetcher{httpClient: client}
}

// Fetch returns the body and content type at rawURL.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Scheme == "" {
		return nil, "", fmt.Errorf("invalid result url: %s", rawURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("build download request: %w", err)
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download result: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", &StatusError{URL: parsed.Redacted(), StatusCode: resp.StatusCode}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read result: %w", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// Saver persists bytes at a path.
type Saver interface {
	Save(ctx context.Context, path string, data []byte) error
}

// Publisher uploads a saved artifact.
type Publisher interface {
	Publish(ctx context.Context, in storage.PublishInput) (string, error)
	URI(key string) string
}

// Options configures a Presenter. Zero values are usable.
type Options struct {
	OutputDir  string
	Overwrite  bool
	NoDownload bool
	Saver      Saver
	Fetcher    *Fetcher
	Publisher  Publisher
	Logger     *slog.Logger
	Now        func() time.Time
}

// Outcome describes where a result ended up.
type Outcome struct {
	Path      string
	URL       string
	Published string
}

// Presenter saves job results.
type Presenter struct {
	opts    Options
	builder *paths.Builder
}

func New(opts Options) *Presenter {
	if opts.Saver == nil {
		opts.Saver = FileSaver{}
	}
	if opts.Fetcher == nil {
		opts.Fetcher = NewFetcher(nil)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Presenter{opts: opts, builder: paths.New(opts.OutputDir)}
}

var defaultExt = map[job.MediaKind]string{
	job.MediaAudio: ".mp3",
	job.MediaImage: ".png",
	job.MediaVideo: ".mp4",
}

// Present writes res to dest, or to a dated path under the output directory
// when dest is empty. URL results are downloaded first unless NoDownload is
// set, in which case only the URL is returned.
func (p *Presenter) Present(ctx context.Context, res *job.Result, dest string) (Outcome, error) {
	if res == nil {
		return Outcome{}, errors.New("no result to present")
	}
	out := Outcome{URL: res.URL}
	if res.URL != "" && p.opts.NoDownload {
		return out, nil
	}

	data, contentType := res.Data, res.ContentType
	if res.URL != "" {
		var err error
		var fetchedType string
		data, fetchedType, err = p.opts.Fetcher.Fetch(ctx, res.URL)
		if err != nil {
			return out, err
		}
		if fetchedType != "" {
			contentType = fetchedType
		}
	}
	if len(data) == 0 {
		return out, fmt.Errorf("%s result is empty", res.Kind)
	}

	now := p.opts.Now()
	if dest == "" {
		dest = p.builder.MediaFile(now, string(res.Kind), paths.ExtensionFor(contentType, defaultExt[res.Kind]))
	}
	if err := paths.CheckOverwrite([]string{dest}, p.opts.Overwrite); err != nil {
		return out, err
	}
	if err := p.opts.Saver.Save(ctx, dest, data); err != nil {
		return out, err
	}
	out.Path = dest
	p.opts.Logger.Info("saved result", "kind", res.Kind, "path", dest, "bytes", len(data))

	if p.opts.Publisher != nil {
		key, err := p.opts.Publisher.Publish(ctx, storage.PublishInput{
			LocalPath:   dest,
			Filename:    filepath.Base(dest),
			Kind:        string(res.Kind),
			ContentType: contentType,
			Date:        now,
			Overwrite:   p.opts.Overwrite,
		})
		if err != nil {
			return out, err
		}
		out.Published = p.opts.Publisher.URI(key)
		p.opts.Logger.Info("published result", "kind", res.Kind, "uri", out.Published)
	}
	return out, nil
}
