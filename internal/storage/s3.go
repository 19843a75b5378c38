package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// ErrObjectExists is returned by Publish when the dated key is taken and
// overwrite was not requested.
var ErrObjectExists = errors.New("object already exists")

// Uploader publishes generated media to S3.
type Uploader struct {
	client      s3API
	bucket      string
	prefix      string
	historySize int
}

func New(ctx context.Context, bucket, prefix, region string) (*Uploader, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	if region == "" {
		region = "us-west-2"
	}
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(cfg)
	return &Uploader{
		client: client,
		bucket: bucket,
		prefix: normalizePrefix(prefix),
	}, nil
}

func NewWithClient(bucket, prefix string, client s3API) *Uploader {
	return &Uploader{
		client: client,
		bucket: bucket,
		prefix: normalizePrefix(prefix),
	}
}

func (u *Uploader) Bucket() string { return u.bucket }
func (u *Uploader) Prefix() string { return u.prefix }

func (u *Uploader) KeyForDate(t time.Time, filename string) string {
	y, m, d := t.UTC().Date()
	return joinKey(u.prefix, fmt.Sprintf("%04d", y), fmt.Sprintf("%02d", int(m)), fmt.Sprintf("%02d", d), filename)
}

func (u *Uploader) KeyForLatest(filename string) string {
	return joinKey(u.prefix, "latest", filename)
}

// URI returns the s3:// location of key.
func (u *Uploader) URI(key string) string {
	return "s3://" + u.bucket + "/" + key
}

// PublishInput describes one artifact to publish.
type PublishInput struct {
	LocalPath   string
	Filename    string
	Kind        string
	ContentType string
	Date        time.Time
	Overwrite   bool
}

// Publish uploads a local artifact under its dated key and refreshes the
// latest copy. It returns the dated key. A failed history update is logged
// and does not fail the publish.
func (u *Uploader) Publish(ctx context.Context, in PublishInput) (string, error) {
	filename := in.Filename
	if filename == "" {
		filename = path.Base(strings.ReplaceAll(in.LocalPath, "\\", "/"))
	}
	key := u.KeyForDate(in.Date, filename)
	if !in.Overwrite {
		exists, err := u.Exists(ctx, key)
		if err != nil {
			return "", fmt.Errorf("check %s: %w", u.URI(key), err)
		}
		if exists {
			return "", fmt.Errorf("%s: %w (use --overwrite)", u.URI(key), ErrObjectExists)
		}
	}
	if err := u.UploadFile(ctx, key, in.LocalPath, in.ContentType, "public, max-age=86400"); err != nil {
		return "", fmt.Errorf("upload %s: %w", u.URI(key), err)
	}
	if err := u.CopyToLatest(ctx, key, filename, in.ContentType, "public, max-age=300"); err != nil {
		return "", fmt.Errorf("copy %s to latest: %w", u.URI(key), err)
	}
	err := u.AppendHistory(ctx, HistoryEntry{
		Key:         key,
		Kind:        in.Kind,
		ContentType: in.ContentType,
		PublishedAt: in.Date.UTC(),
	})
	if err != nil {
		slog.Warn("history update failed", "bucket", u.bucket, "key", u.HistoryKey(), "published", key, "err", err)
	}
	return key, nil
}

// Exists reports whether key is present in the bucket.
func (u *Uploader) Exists(ctx context.Context, key string) (bool, error) {
	_, err := u.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	if IsNotFound(err) {
		return false, nil
	}
	return false, err
}

// UploadFile uploads a local file to the given key.
func (u *Uploader) UploadFile(ctx context.Context, key, localPath, contentType, cacheControl string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	input := &s3.PutObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
		Body:   f,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if cacheControl != "" {
		input.CacheControl = aws.String(cacheControl)
	}
	_, err = u.client.PutObject(ctx, input)
	return err
}

// UploadBytes uploads in-memory data to the given key.
func (u *Uploader) UploadBytes(ctx context.Context, key string, data []byte, contentType, cacheControl string) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if cacheControl != "" {
		input.CacheControl = aws.String(cacheControl)
	}
	_, err := u.client.PutObject(ctx, input)
	return err
}

// CopyToLatest copies an existing object to the latest key.
func (u *Uploader) CopyToLatest(ctx context.Context, srcKey, filename, contentType, cacheControl string) error {
	latestKey := u.KeyForLatest(filename)
	copySource := encodeCopySource(u.bucket, srcKey)
	input := &s3.CopyObjectInput{
		Bucket:     aws.String(u.bucket),
		Key:        aws.String(latestKey),
		CopySource: aws.String(copySource),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if cacheControl != "" {
		input.CacheControl = aws.String(cacheControl)
	}
	if contentType != "" || cacheControl != "" {
		input.MetadataDirective = types.MetadataDirectiveReplace
	}
	_, err := u.client.CopyObject(ctx, input)
	return err
}

func normalizePrefix(prefix string) string {
	return strings.Trim(prefix, "/")
}

func joinKey(prefix string, parts ...string) string {
	all := []string{}
	if prefix != "" {
		all = append(all, prefix)
	}
	all = append(all, parts...)
	key := path.Join(all...)
	return strings.TrimPrefix(key, "/")
}

func encodeCopySource(bucket, key string) string {
	parts := strings.Split(key, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return bucket + "/" + strings.Join(parts, "/")
}

// IsNotFound returns true when the error indicates the object does not exist.
func IsNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NoSuchKey" || code == "NotFound"
	}
	return false
}
