// Package netx holds HTTP helpers for moving archives between instances.
package netx

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// OpenPresignedURL issues a GET for a presigned object URL and returns the
// response body for streaming. The caller closes it.
func OpenPresignedURL(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("download failed: %s; body: %s", resp.Status, string(b))
	}
	return resp.Body, nil
}
