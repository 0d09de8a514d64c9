package mirror

import (
	"archive/tar"
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/modelmirror/internal/archive"
	"github.com/dmitrijs2005/modelmirror/internal/common"
	"github.com/dmitrijs2005/modelmirror/internal/logging"
	"github.com/dmitrijs2005/modelmirror/internal/server/models"
	"github.com/dmitrijs2005/modelmirror/internal/server/registry"
	"github.com/google/go-containerregistry/pkg/v1/types"
)

// maxManifestSize bounds the manifest held in memory while blobs stream.
const maxManifestSize = 4 << 20

// ImageImporter replays images/<name>/<tag> entries into the registry
// under the mirrored model's repository.
//
// Blobs are pushed as they are read. The manifest is pushed only after the
// whole bundle was consumed and every blob it references is known to be in
// the target repository, and the tag moves last.
type ImageImporter struct {
	registry registry.Registry
	logger   logging.Logger
}

func NewImageImporter(reg registry.Registry, logger logging.Logger) *ImageImporter {
	return &ImageImporter{registry: reg, logger: logger}
}

func (i *ImageImporter) ProcessEntry(ctx context.Context, meta models.ExportMetadata, hdr *tar.Header, payload io.Reader) (Outcome, error) {
	name, tag, err := parseImageEntry(hdr.Name)
	if err != nil {
		return Outcome{}, fmt.Errorf("%v: %w", err, common.ErrArchiveInconsistent)
	}
	repo := ImageRepository(meta.MirroredModelID, name)

	pushed := map[string]bool{}
	var manifest []byte

	err = archive.Walk(payload, func(h *tar.Header, r io.Reader) error {
		entry := cleanName(h.Name)
		if entry == bundleManifest {
			b, err := io.ReadAll(io.LimitReader(r, maxManifestSize+1))
			if err != nil {
				return err
			}
			if len(b) > maxManifestSize {
				return fmt.Errorf("manifest of %s exceeds %d bytes: %w", hdr.Name, maxManifestSize, common.ErrArchiveInconsistent)
			}
			manifest = b
			return nil
		}

		digest, ok := bundleBlobDigest(entry)
		if !ok {
			i.logger.Debug(ctx, "skipping unknown bundle entry", "image", hdr.Name, "path", h.Name)
			return nil
		}
		if err := i.registry.PushBlob(ctx, repo, digest, h.Size, r); err != nil {
			return err
		}
		pushed[digest] = true
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}

	if manifest == nil {
		return Outcome{}, fmt.Errorf("image bundle %s has no %s: %w", hdr.Name, bundleManifest, common.ErrArchiveInconsistent)
	}
	m, blobs, err := parseImageManifest(manifest)
	if err != nil {
		return Outcome{}, err
	}

	for _, d := range blobs {
		digest := d.Digest.String()
		if pushed[digest] {
			continue
		}
		ok, err := i.registry.HasBlob(ctx, repo, digest)
		if err != nil {
			return Outcome{}, err
		}
		if !ok {
			return Outcome{}, fmt.Errorf("image %s references blob %s which is neither in the bundle nor in %s: %w",
				hdr.Name, digest, repo, common.ErrArchiveInconsistent)
		}
	}

	mediaType := m.MediaType
	if mediaType == "" {
		mediaType = types.OCIManifestSchema1
	}
	digest, err := i.registry.PushManifest(ctx, repo, manifest, string(mediaType))
	if err != nil {
		return Outcome{}, err
	}
	if err := i.registry.UpdateTag(ctx, repo, tag, digest); err != nil {
		return Outcome{}, err
	}

	i.logger.Debug(ctx, "image imported", "repository", repo, "tag", tag, "digest", digest)
	return Outcome{Image: &models.ImageImport{
		Ref:    models.ImageRef{Repository: meta.MirroredModelID, Name: name, Tag: tag},
		Digest: digest,
		Blobs:  len(pushed),
	}}, nil
}
