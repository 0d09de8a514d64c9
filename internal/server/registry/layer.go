package registry

import (
	"errors"
	"io"
	"sync"

	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/types"
)

var errUncompressed = errors.New("streamed blob has no uncompressed form")

// streamedBlob is a v1.Layer over a one-shot reader whose digest and size
// are already known, so remote.WriteLayer can upload it without buffering.
type streamedBlob struct {
	digest v1.Hash
	size   int64

	mu       sync.Mutex
	r        io.Reader
	consumed bool
}

func (b *streamedBlob) Digest() (v1.Hash, error) { return b.digest, nil }

func (b *streamedBlob) DiffID() (v1.Hash, error) { return v1.Hash{}, errUncompressed }

func (b *streamedBlob) Size() (int64, error) { return b.size, nil }

func (b *streamedBlob) MediaType() (types.MediaType, error) { return types.OCILayer, nil }

func (b *streamedBlob) Uncompressed() (io.ReadCloser, error) { return nil, errUncompressed }

// Compressed hands out the stream once; a retried upload cannot rewind it.
func (b *streamedBlob) Compressed() (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.consumed {
		return nil, errors.New("streamed blob already consumed")
	}
	b.consumed = true
	return io.NopCloser(b.r), nil
}

// rawManifest lets remote.Put push manifest bytes as they are.
type rawManifest struct {
	raw       []byte
	mediaType types.MediaType
}

func (m *rawManifest) RawManifest() ([]byte, error) { return m.raw, nil }

func (m *rawManifest) MediaType() (types.MediaType, error) { return m.mediaType, nil }
