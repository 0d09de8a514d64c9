package mirror

import (
	"archive/tar"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/dmitrijs2005/modelmirror/internal/common"
	"github.com/dmitrijs2005/modelmirror/internal/dbx"
	"github.com/dmitrijs2005/modelmirror/internal/logging"
	"github.com/dmitrijs2005/modelmirror/internal/server/models"
	"github.com/dmitrijs2005/modelmirror/internal/server/repositories/repomanager"
)

// DocumentImporter replays documents/ entries: the model record, model card
// revisions and releases. Every document is checked against the source
// model and rewritten to the mirrored one.
type DocumentImporter struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewDocumentImporter(db *sql.DB, rm repomanager.RepositoryManager, logger logging.Logger) *DocumentImporter {
	return &DocumentImporter{db: db, repomanager: rm, logger: logger}
}

func (i *DocumentImporter) ProcessEntry(ctx context.Context, meta models.ExportMetadata, hdr *tar.Header, payload io.Reader) (Outcome, error) {
	name := cleanName(hdr.Name)
	if name == ModelEntry {
		return i.importModel(ctx, meta, payload)
	}
	if key, ok := parseDocumentKey(name, RevisionsPrefix); ok {
		return i.importRevision(ctx, meta, key, payload)
	}
	if key, ok := parseDocumentKey(name, ReleasesPrefix); ok {
		return i.importRelease(ctx, meta, key, payload)
	}
	i.logger.Debug(ctx, "skipping unknown document", "path", hdr.Name)
	return Outcome{}, nil
}

func decodeDocument(name string, payload io.Reader, v any) error {
	if err := json.NewDecoder(payload).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %v: %w", name, err, common.ErrArchiveInconsistent)
	}
	return nil
}

func checkSource(meta models.ExportMetadata, what, modelID string) error {
	if modelID != meta.SourceModelID {
		return fmt.Errorf("%s belongs to model %q, expected %q: %w",
			what, modelID, meta.SourceModelID, common.ErrArchiveInconsistent)
	}
	return nil
}

// mirrorOf fails with ErrMirrorMismatch unless target mirrors the source
// model of meta. Local models are never written by an import.
func mirrorOf(target *models.Model, meta models.ExportMetadata) error {
	if target.MirrorSourceID != meta.SourceModelID {
		return fmt.Errorf("model %q has mirror source %q, archive is from %q: %w",
			target.ID, target.MirrorSourceID, meta.SourceModelID, common.ErrMirrorMismatch)
	}
	return nil
}

// CheckTarget accepts an absent mirrored model or one mirrored from the
// archive's source model.
func (i *DocumentImporter) CheckTarget(ctx context.Context, meta models.ExportMetadata) error {
	target, err := i.repomanager.Models(i.db).Get(ctx, meta.MirroredModelID)
	if errors.Is(err, common.ErrorNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return mirrorOf(target, meta)
}

func (i *DocumentImporter) importModel(ctx context.Context, meta models.ExportMetadata, payload io.Reader) (Outcome, error) {
	var src models.Model
	if err := decodeDocument(ModelEntry, payload, &src); err != nil {
		return Outcome{}, err
	}
	if err := checkSource(meta, "model record", src.ID); err != nil {
		return Outcome{}, err
	}

	err := dbx.WithTx(ctx, i.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := i.repomanager.Models(tx)

		target, err := repo.Get(ctx, meta.MirroredModelID)
		switch {
		case errors.Is(err, common.ErrorNotFound):
			target = &models.Model{ID: meta.MirroredModelID}
		case err != nil:
			return err
		default:
			if err := mirrorOf(target, meta); err != nil {
				return err
			}
		}

		target.Name = src.Name
		target.Description = src.Description
		target.Visibility = src.Visibility
		target.MirrorSourceID = meta.SourceModelID
		return repo.Upsert(ctx, target)
	})
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{ModelRecord: true}, nil
}

func (i *DocumentImporter) importRevision(ctx context.Context, meta models.ExportMetadata, key string, payload io.Reader) (Outcome, error) {
	var rev models.ModelCardRevision
	if err := decodeDocument(RevisionsPrefix+key, payload, &rev); err != nil {
		return Outcome{}, err
	}
	if err := checkSource(meta, "revision "+key, rev.ModelID); err != nil {
		return Outcome{}, err
	}
	if strconv.FormatInt(rev.Version, 10) != key {
		return Outcome{}, fmt.Errorf("revision entry %s carries version %d: %w", key, rev.Version, common.ErrArchiveInconsistent)
	}
	if err := i.CheckTarget(ctx, meta); err != nil {
		return Outcome{}, err
	}

	rev.ModelID = meta.MirroredModelID
	inserted, err := i.repomanager.ModelCards(i.db).Insert(ctx, &rev)
	if err != nil {
		return Outcome{}, err
	}
	if !inserted {
		return Outcome{Revision: docSkipped}, nil
	}
	return Outcome{Revision: docImported}, nil
}

func (i *DocumentImporter) importRelease(ctx context.Context, meta models.ExportMetadata, key string, payload io.Reader) (Outcome, error) {
	var rel models.Release
	if err := decodeDocument(ReleasesPrefix+key, payload, &rel); err != nil {
		return Outcome{}, err
	}
	if err := checkSource(meta, "release "+key, rel.ModelID); err != nil {
		return Outcome{}, err
	}
	if rel.Semver != key {
		return Outcome{}, fmt.Errorf("release entry %s carries semver %q: %w", key, rel.Semver, common.ErrArchiveInconsistent)
	}
	if err := i.CheckTarget(ctx, meta); err != nil {
		return Outcome{}, err
	}

	rel.ModelID = meta.MirroredModelID
	fileIDs := make([]string, len(rel.FileIDs))
	for n, id := range rel.FileIDs {
		fileIDs[n] = DeriveFileID(meta.MirroredModelID, id)
	}
	rel.FileIDs = fileIDs
	for n := range rel.Images {
		if err := checkSource(meta, "image "+rel.Images[n].String(), rel.Images[n].Repository); err != nil {
			return Outcome{}, err
		}
		rel.Images[n].Repository = meta.MirroredModelID
	}

	inserted, err := i.repomanager.Releases(i.db).Insert(ctx, &rel)
	if err != nil {
		return Outcome{}, err
	}
	if !inserted {
		return Outcome{Release: docSkipped}, nil
	}
	return Outcome{Release: docImported}, nil
}
