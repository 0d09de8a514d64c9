package mirror

import (
	"archive/tar"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/modelmirror/internal/common"
	"github.com/dmitrijs2005/modelmirror/internal/logging"
	"github.com/dmitrijs2005/modelmirror/internal/server/models"
	"github.com/dmitrijs2005/modelmirror/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/modelmirror/internal/server/storage/blob"
)

// FileImporter streams files/<fileId>/<name> entries into the blob store.
//
// The record is written pending first and marked complete only after the
// store acknowledged every byte, so a replay of the same archive skips files
// that made it and retries those that did not.
type FileImporter struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       blob.Store
	logger      logging.Logger
}

func NewFileImporter(db *sql.DB, rm repomanager.RepositoryManager, store blob.Store, logger logging.Logger) *FileImporter {
	return &FileImporter{db: db, repomanager: rm, store: store, logger: logger}
}

func (i *FileImporter) ProcessEntry(ctx context.Context, meta models.ExportMetadata, hdr *tar.Header, payload io.Reader) (Outcome, error) {
	fileID, name, err := parseFileEntry(hdr.Name)
	if err != nil {
		return Outcome{}, fmt.Errorf("%v: %w", err, common.ErrArchiveInconsistent)
	}

	path := DeriveFilePath(meta.MirroredModelID, fileID)
	result := &models.FileImport{SourcePath: cleanName(hdr.Name), NewPath: path, Size: hdr.Size}

	repo := i.repomanager.Files(i.db)

	existing, err := repo.GetByPath(ctx, path)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return Outcome{}, err
	}
	if existing != nil && existing.Complete {
		i.logger.Debug(ctx, "file already imported", "path", path)
		result.Size = existing.Size
		result.Skipped = true
		return Outcome{File: result}, nil
	}

	mime := hdr.PAXRecords[PAXMime]
	if mime == "" {
		mime = common.DefaultMimeType
	}

	record := &models.File{
		ID:      DeriveFileID(meta.MirroredModelID, fileID),
		ModelID: meta.MirroredModelID,
		Name:    name,
		Mime:    mime,
		Size:    hdr.Size,
		Bucket:  i.store.Bucket(),
		Path:    path,
	}
	if err := repo.Upsert(ctx, record); err != nil {
		if errors.Is(err, common.ErrVersionConflict) {
			// completed by someone else since the lookup
			result.Skipped = true
			return Outcome{File: result}, nil
		}
		return Outcome{}, err
	}

	n, err := i.store.WriteStream(ctx, path, payload)
	if err != nil {
		return Outcome{}, fmt.Errorf("write %s: %w", path, err)
	}
	if n != hdr.Size {
		return Outcome{}, fmt.Errorf("write %s: stored %d bytes, entry has %d", path, n, hdr.Size)
	}

	if err := repo.MarkComplete(ctx, path, n); err != nil {
		return Outcome{}, err
	}
	result.Size = n
	return Outcome{File: result}, nil
}
