package blob

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndpointHost(t *testing.T) {
	tests := []struct {
		in      string
		host    string
		secure  bool
		wantErr bool
	}{
		{in: "http://127.0.0.1:9000/", host: "127.0.0.1:9000"},
		{in: "https://s3.example.com", host: "s3.example.com", secure: true},
		{in: "minio:9000", host: "minio:9000"},
		{in: "127.0.0.1:9000/", host: "127.0.0.1:9000"},
		{in: "http://", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			host, secure, err := endpointHost(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.host, host)
			assert.Equal(t, tt.secure, secure)
		})
	}
}

func TestNewMinioStore_Validation(t *testing.T) {
	_, err := NewMinioStore(Config{Endpoint: "http://127.0.0.1:9000", Bucket: "b"})
	require.Error(t, err, "credentials are required")

	_, err = NewMinioStore(Config{Endpoint: "http://127.0.0.1:9000", User: "u", Password: "p"})
	require.Error(t, err, "bucket is required")

	s, err := NewMinioStore(Config{Endpoint: "http://127.0.0.1:9000", User: "u", Password: "p", Bucket: "models"})
	require.NoError(t, err)
	assert.Equal(t, "models", s.Bucket())
}

func TestMinioStore_PresignGet(t *testing.T) {
	s, err := NewMinioStore(Config{Endpoint: "http://127.0.0.1:9000", Region: "us-east-1", User: "u", Password: "p", Bucket: "exports"})
	require.NoError(t, err)

	var _ Presigner = s

	u, err := s.PresignGet(context.Background(), "exports/m1/a.tar.gz", time.Hour)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "http://127.0.0.1:9000/exports/exports/m1/a.tar.gz?"), u)
	assert.Contains(t, u, "X-Amz-Signature=")
	assert.Contains(t, u, "X-Amz-Expires=3600")
}
