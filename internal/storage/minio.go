package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pastebin/pastebin/internal/config"
	"github.com/pastebin/pastebin/internal/snippet"
)

// MinIOStorage is a thin wrapper around the minio client. The retention
// sweeper uses it to archive snippets before they are purged.
type MinIOStorage struct {
	client *minio.Client
	bucket string
}

// NewMinIOStorage creates a new MinIO storage client and ensures the bucket exists.
func NewMinIOStorage(ctx context.Context, cfg config.MinIOConfig) (*MinIOStorage, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("minio config missing")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("minio bucket missing")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio new: %w", err)
	}
	s := &MinIOStorage{client: mc, bucket: cfg.Bucket}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mc.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		// ignore "already exists" style errors
		exist, xerr := mc.BucketExists(ctx, s.bucket)
		if xerr != nil || !exist {
			return nil, fmt.Errorf("minio bucket ensure: %w", err)
		}
	}
	return s, nil
}

// UploadFile uploads data from reader to the configured bucket using the provided key.
func (s *MinIOStorage) UploadFile(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, reader, size, minio.PutObjectOptions{ContentType: contentType})
	return err
}

// Archive writes each snippet as a JSON object. Objects are keyed by creation
// date so a bucket listing reads chronologically.
func (s *MinIOStorage) Archive(ctx context.Context, recs []*snippet.Snippet) error {
	for _, r := range recs {
		body, err := encodeArchive(r)
		if err != nil {
			return err
		}
		key := objectKey(r)
		if err := s.UploadFile(ctx, key, bytes.NewReader(body), int64(len(body)), "application/json"); err != nil {
			return fmt.Errorf("archive %s: %w", key, err)
		}
	}
	return nil
}

// Ping checks that the bucket is reachable.
func (s *MinIOStorage) Ping(ctx context.Context) error {
	ok, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("bucket %s does not exist", s.bucket)
	}
	return nil
}

func objectKey(r *snippet.Snippet) string {
	return fmt.Sprintf("snippets/%s/%s.json", r.CreatedAt.UTC().Format("2006/01/02"), r.ID)
}

func encodeArchive(r *snippet.Snippet) ([]byte, error) {
	b, err := json.Marshal(snippet.ToView(r))
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", r.ID, err)
	}
	return b, nil
}
