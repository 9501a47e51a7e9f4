// Package uploads stores invitation images on local disk or in S3.
package uploads

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"evite/config"
	"evite/models"
)

// Prefix is the directory part of every returned path, relative to the
// public web root.
const Prefix = "uploads"

// Backend persists one object under an already sanitized name.
type Backend interface {
	Put(ctx context.Context, name string, body io.Reader) error
}

// Uploader sanitizes names, enforces the size limit and delegates to a
// Backend.
type Uploader struct {
	backend  Backend
	maxBytes int64
}

// New returns an Uploader. maxBytes <= 0 disables the size limit.
func New(backend Backend, maxBytes int64) *Uploader {
	return &Uploader{backend: backend, maxBytes: maxBytes}
}

// Store saves body under a sanitized version of filename and returns its
// path relative to the public web root ("uploads/<name>"). An existing file
// with the same name is replaced.
func (u *Uploader) Store(ctx context.Context, filename string, body io.Reader) (string, error) {
	name := SanitizeFilename(filename)
	if name == "" {
		return "", models.ErrNoFile
	}
	if u.maxBytes > 0 {
		body = &limitReader{r: body, n: u.maxBytes}
	}
	if err := u.backend.Put(ctx, name, body); err != nil {
		return "", fmt.Errorf("store %s: %w", name, err)
	}

	zerolog.Ctx(ctx).Info().Str("component", "uploads").Str("file", name).Msg("image stored")
	return path.Join(Prefix, name), nil
}

// limitReader fails with ErrFileTooLarge once more than n bytes are read.
type limitReader struct {
	r io.Reader
	n int64
}

func (l *limitReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.n -= int64(n)
	if l.n < 0 {
		return n, models.ErrFileTooLarge
	}
	return n, err
}

// LocalBackend writes into a flat directory, created on first use.
type LocalBackend struct {
	Dir string
}

func (b LocalBackend) Put(ctx context.Context, name string, body io.Reader) error {
	if err := os.MkdirAll(b.Dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(b.Dir, ".upload-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(b.Dir, name))
}

// S3API is the subset of *s3.Client used here.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Backend writes objects to <prefix>/uploads/<name> in a bucket.
type S3Backend struct {
	client S3API
	bucket string
	prefix string
}

func NewS3Backend(client S3API, bucket, prefix string) *S3Backend {
	return &S3Backend{client: client, bucket: bucket, prefix: prefix}
}

func (b *S3Backend) Key(name string) string {
	return path.Join(b.prefix, Prefix, name)
}

func (b *S3Backend) Put(ctx context.Context, name string, body io.Reader) error {
	// Buffer so the SDK can compute checksums on a seekable body.
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(b.Key(name)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType(name)),
	})
	return err
}

func contentType(name string) string {
	switch filepath.Ext(name) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".svg":
		return "image/svg+xml"
	}
	return "application/octet-stream"
}

// NewFromConfig builds the Uploader selected by cfg.Storage.
func NewFromConfig(ctx context.Context, cfg *config.Config) (*Uploader, error) {
	switch cfg.Storage.Backend {
	case "s3":
		var opts []func(*awsconfig.LoadOptions) error
		if cfg.Storage.S3Region != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.Storage.S3Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		backend := NewS3Backend(s3.NewFromConfig(awsCfg), cfg.Storage.S3Bucket, cfg.Storage.S3Prefix)
		return New(backend, cfg.MaxUploadBytes), nil
	default:
		return New(LocalBackend{Dir: cfg.UploadDir}, cfg.MaxUploadBytes), nil
	}
}
