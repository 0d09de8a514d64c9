// Package registry is the container-registry collaborator: blob and
// manifest transfer plus tag updates, addressed by repository path on one
// registry host.
package registry

import (
	"context"
	"io"
)

// Registry is what the mirroring core needs from a container registry.
// repo is the repository path below the registry host, e.g. "model-1/app".
type Registry interface {
	// PushBlob uploads a blob whose digest and size are known up front.
	PushBlob(ctx context.Context, repo, digest string, size int64, r io.Reader) error
	// HasBlob reports whether the blob is present in repo.
	HasBlob(ctx context.Context, repo, digest string) (bool, error)
	// PushManifest stores raw by digest (no tag) and returns that digest.
	PushManifest(ctx context.Context, repo string, raw []byte, mediaType string) (string, error)
	// UpdateTag points tag at an already pushed manifest digest.
	UpdateTag(ctx context.Context, repo, tag, digest string) error
	// ManifestDigest resolves a tag or digest to the manifest digest.
	ManifestDigest(ctx context.Context, repo, reference string) (string, error)
	// GetManifest returns the raw manifest and its media type.
	GetManifest(ctx context.Context, repo, reference string) ([]byte, string, error)
	// ReadBlob opens a blob for streaming and returns its size.
	ReadBlob(ctx context.Context, repo, digest string) (io.ReadCloser, int64, error)
}
