package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const historyFilename = "history.json"

// HistoryEntry records one published artifact.
type HistoryEntry struct {
	Key         string    `json:"key"`
	Kind        string    `json:"kind,omitempty"`
	ContentType string    `json:"contentType,omitempty"`
	PublishedAt time.Time `json:"publishedAt"`
}

// History is the manifest stored at <prefix>/history.json, newest first.
type History struct {
	Entries []HistoryEntry `json:"entries"`
}

// SetHistorySize bounds the publish manifest. Zero disables it.
func (u *Uploader) SetHistorySize(n int) { u.historySize = n }

func (u *Uploader) HistoryKey() string {
	if u.prefix == "" {
		return historyFilename
	}
	return path.Join(u.prefix, historyFilename)
}

// LoadHistory reads the manifest. A missing manifest is empty.
func (u *Uploader) LoadHistory(ctx context.Context) (History, error) {
	data, err := u.DownloadBytes(ctx, u.HistoryKey())
	if err != nil {
		if IsNotFound(err) {
			return History{}, nil
		}
		return History{}, err
	}
	var history History
	if err := json.Unmarshal(data, &history); err != nil {
		return History{}, fmt.Errorf("parse %s: %w", u.URI(u.HistoryKey()), err)
	}
	return history, nil
}

// AppendHistory prepends entry and trims the manifest to the configured size.
func (u *Uploader) AppendHistory(ctx context.Context, entry HistoryEntry) error {
	if u.historySize <= 0 {
		return nil
	}
	history, err := u.LoadHistory(ctx)
	if err != nil {
		return err
	}
	history.Entries = append([]HistoryEntry{entry}, history.Entries...)
	history = trimHistory(history, u.historySize)
	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return err
	}
	if err := u.UploadBytes(ctx, u.HistoryKey(), data, "application/json", "no-cache"); err != nil {
		return fmt.Errorf("upload history: %w", err)
	}
	return nil
}

func trimHistory(history History, size int) History {
	if size <= 0 {
		return History{}
	}
	if len(history.Entries) > size {
		history.Entries = history.Entries[:size]
	}
	return history
}

// DownloadBytes downloads an object into memory.
func (u *Uploader) DownloadBytes(ctx context.Context, key string) ([]byte, error) {
	out, err := u.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}
