package mirror

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/modelmirror/internal/archive"
	"github.com/dmitrijs2005/modelmirror/internal/common"
	"github.com/dmitrijs2005/modelmirror/internal/server/registry"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/types"
)

// An image bundle is a tar.gz holding the manifest as manifest.json and
// every blob it references as blobs/<algorithm>/<hex>.
const (
	bundleManifest    = "manifest.json"
	bundleBlobsPrefix = "blobs/"
)

func bundleBlobName(h v1.Hash) string {
	return bundleBlobsPrefix + h.Algorithm + "/" + h.Hex
}

// bundleBlobDigest turns blobs/<algorithm>/<hex> back into a digest string.
func bundleBlobDigest(entry string) (string, bool) {
	rest, ok := strings.CutPrefix(entry, bundleBlobsPrefix)
	if !ok {
		return "", false
	}
	alg, hex, ok := strings.Cut(rest, "/")
	if !ok || alg == "" || hex == "" || strings.Contains(hex, "/") {
		return "", false
	}
	return alg + ":" + hex, true
}

// parseImageManifest decodes an image manifest and lists the blobs it
// references, config first.
func parseImageManifest(raw []byte) (*v1.Manifest, []v1.Descriptor, error) {
	m, err := v1.ParseManifest(bytes.NewReader(raw))
	if err != nil {
		return nil, nil, fmt.Errorf("parse manifest: %v: %w", err, common.ErrArchiveInconsistent)
	}
	if m.MediaType.IsIndex() || m.Config.Digest == (v1.Hash{}) {
		return nil, nil, fmt.Errorf("manifest is not a single image manifest: %w", common.ErrArchiveInconsistent)
	}
	return m, append([]v1.Descriptor{m.Config}, m.Layers...), nil
}

// WriteBundle writes the image repo:reference as a bundle to w, blobs
// first and the manifest last.
func WriteBundle(ctx context.Context, reg registry.Registry, repo, reference string, w io.Writer) error {
	raw, mediaType, err := reg.GetManifest(ctx, repo, reference)
	if err != nil {
		return err
	}
	if types.MediaType(mediaType).IsIndex() {
		return fmt.Errorf("%s:%s is an image index, only single images can be exported", repo, reference)
	}
	_, blobs, err := parseImageManifest(raw)
	if err != nil {
		return err
	}

	bw := archive.NewWriter(w)
	seen := map[v1.Hash]bool{}
	for _, d := range blobs {
		if seen[d.Digest] {
			continue
		}
		seen[d.Digest] = true

		if err := writeBundleBlob(ctx, reg, bw, repo, d.Digest); err != nil {
			return err
		}
	}
	if err := bw.WriteBytes(bundleManifest, raw); err != nil {
		return err
	}
	return bw.Close()
}

func writeBundleBlob(ctx context.Context, reg registry.Registry, bw *archive.Writer, repo string, h v1.Hash) error {
	rc, size, err := reg.ReadBlob(ctx, repo, h.String())
	if err != nil {
		return err
	}
	defer rc.Close()
	return bw.WriteStream(bundleBlobName(h), size, rc, nil)
}
