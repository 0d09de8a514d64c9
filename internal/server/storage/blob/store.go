// Package blob is the object-storage collaborator: existence checks,
// streaming writes and streaming reads of keyed blobs within one bucket.
package blob

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"
)

// Store is one bucket of an object store.
type Store interface {
	// Bucket returns the bucket the store writes into.
	Bucket() string
	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)
	// WriteStream stores everything read from r under key and returns the
	// number of bytes written. r is consumed as a stream.
	WriteStream(ctx context.Context, key string, r io.Reader) (int64, error)
	// ReadStream opens key for reading. Missing keys yield
	// common.ErrorNotFound.
	ReadStream(ctx context.Context, key string) (io.ReadCloser, error)
}

// Presigner is implemented by stores that can hand out time-limited
// download URLs, so an archive can be fetched by another instance without
// credentials for this bucket.
type Presigner interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Config locates a bucket on an S3-compatible service.
type Config struct {
	Endpoint string
	Region   string
	User     string
	Password string
	Bucket   string
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// endpointHost splits an endpoint URL such as "http://127.0.0.1:9000/" into
// host and TLS flag. A bare host:port is taken as plain HTTP.
func endpointHost(endpoint string) (string, bool, error) {
	if endpoint == "" {
		return "", false, fmt.Errorf("endpoint is required")
	}
	if !strings.Contains(endpoint, "://") {
		return strings.TrimSuffix(endpoint, "/"), false, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("invalid endpoint URL: %w", err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("invalid endpoint URL: %s", endpoint)
	}
	return u.Host, u.Scheme == "https", nil
}
