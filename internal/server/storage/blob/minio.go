package blob

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/modelmirror/internal/common"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore is a Store backed by minio-go. PutObject with an unknown size
// streams the body as a multipart upload.
type MinioStore struct {
	client *minio.Client
	bucket string
}

func NewMinioStore(c Config) (*MinioStore, error) {
	host, secure, err := endpointHost(c.Endpoint)
	if err != nil {
		return nil, err
	}
	if c.User == "" || c.Password == "" {
		return nil, fmt.Errorf("credentials are required")
	}
	if c.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	client, err := minio.New(host, &minio.Options{
		Creds:  credentials.NewStaticV4(c.User, c.Password, ""),
		Secure: secure,
		Region: c.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &MinioStore{client: client, bucket: c.Bucket}, nil
}

func (s *MinioStore) Bucket() string {
	return s.bucket
}

func (s *MinioStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if isMinioNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s/%s: %w", s.bucket, key, err)
}

func (s *MinioStore) WriteStream(ctx context.Context, key string, r io.Reader) (int64, error) {
	info, err := s.client.PutObject(ctx, s.bucket, key, r, -1, minio.PutObjectOptions{
		ContentType: common.DefaultMimeType,
	})
	if err != nil {
		return 0, fmt.Errorf("put %s/%s: %w", s.bucket, key, err)
	}
	return info.Size, nil
}

func (s *MinioStore) ReadStream(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", s.bucket, key, err)
	}
	// GetObject is lazy; Stat surfaces a missing key before the caller reads.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if isMinioNotFound(err) {
			return nil, fmt.Errorf("%s/%s: %w", s.bucket, key, common.ErrorNotFound)
		}
		return nil, fmt.Errorf("stat %s/%s: %w", s.bucket, key, err)
	}
	return obj, nil
}

// PresignGet returns a time-limited GET URL for key.
func (s *MinioStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, ttl, nil)
	if err != nil {
		return "", fmt.Errorf("presign %s/%s: %w", s.bucket, key, err)
	}
	return u.String(), nil
}

func isMinioNotFound(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return true
	}
	return false
}
