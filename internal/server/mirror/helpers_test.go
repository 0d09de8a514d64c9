package mirror

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/dmitrijs2005/modelmirror/internal/archive"
	"github.com/dmitrijs2005/modelmirror/internal/logging"
	"github.com/dmitrijs2005/modelmirror/internal/server/models"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/types"
	"github.com/stretchr/testify/require"
)

var testLogger = logging.Discard()

func testMeta() models.ExportMetadata {
	return models.ExportMetadata{SourceModelID: "m1", MirroredModelID: "m2", Exporter: "alice"}
}

// buildArchive returns a tar.gz written by fill.
func buildArchive(t *testing.T, fill func(w *archive.Writer)) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := archive.NewWriter(&buf)
	fill(w)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func descriptor(t *testing.T, mt types.MediaType, b []byte) v1.Descriptor {
	t.Helper()
	h, size, err := v1.SHA256(bytes.NewReader(b))
	require.NoError(t, err)
	return v1.Descriptor{MediaType: mt, Size: size, Digest: h}
}

// testImage is a small image: one config blob, some layers and the raw
// manifest referencing them.
type testImage struct {
	config   []byte
	layers   [][]byte
	manifest []byte
}

func newTestImage(t *testing.T, layers ...string) testImage {
	t.Helper()
	img := testImage{config: []byte(`{"architecture":"amd64","os":"linux"}`)}
	m := v1.Manifest{
		SchemaVersion: 2,
		MediaType:     types.OCIManifestSchema1,
		Config:        descriptor(t, types.OCIConfigJSON, img.config),
	}
	for _, l := range layers {
		img.layers = append(img.layers, []byte(l))
		m.Layers = append(m.Layers, descriptor(t, types.OCILayer, []byte(l)))
	}
	img.manifest = mustJSON(t, m)
	return img
}

// seed stores img in reg under repo:tag and clears the call log.
func (img testImage) seed(t *testing.T, reg *fakeRegistry, repo, tag string) {
	t.Helper()
	ctx := context.Background()
	for _, b := range append([][]byte{img.config}, img.layers...) {
		require.NoError(t, reg.PushBlob(ctx, repo, sha256Digest(b), int64(len(b)), bytes.NewReader(b)))
	}
	d, err := reg.PushManifest(ctx, repo, img.manifest, string(types.OCIManifestSchema1))
	require.NoError(t, err)
	require.NoError(t, reg.UpdateTag(ctx, repo, tag, d))
	reg.mu.Lock()
	reg.calls = nil
	reg.mu.Unlock()
}

// bundle builds the bundle payload of img, with the manifest placed
// before or after the blobs.
func (img testImage) bundle(t *testing.T, manifestFirst bool, skipBlobs ...int) []byte {
	t.Helper()
	skip := map[int]bool{}
	for _, i := range skipBlobs {
		skip[i] = true
	}
	return buildArchive(t, func(w *archive.Writer) {
		if manifestFirst {
			require.NoError(t, w.WriteBytes(bundleManifest, img.manifest))
		}
		for i, b := range append([][]byte{img.config}, img.layers...) {
			if skip[i] {
				continue
			}
			h, _, err := v1.SHA256(bytes.NewReader(b))
			require.NoError(t, err)
			require.NoError(t, w.WriteBytes(bundleBlobName(h), b))
		}
		if !manifestFirst {
			require.NoError(t, w.WriteBytes(bundleManifest, img.manifest))
		}
	})
}
