package mirror

import (
	"archive/tar"
	"context"
	"io"

	"github.com/dmitrijs2005/modelmirror/internal/server/models"
)

// Importer handles the archive entries of one Kind.
//
// ProcessEntry must finish with payload before returning. Whatever it leaves
// unread is discarded by the archive reader.
type Importer interface {
	ProcessEntry(ctx context.Context, meta models.ExportMetadata, hdr *tar.Header, payload io.Reader) (Outcome, error)
}

// TargetChecker decides whether the mirrored model may receive an archive
// exported from meta.SourceModelID.
type TargetChecker interface {
	CheckTarget(ctx context.Context, meta models.ExportMetadata) error
}

type documentOutcome int

const (
	docNone documentOutcome = iota
	docImported
	docSkipped
)

// Outcome is what one entry contributed to the import.
type Outcome struct {
	ModelRecord bool
	Revision    documentOutcome
	Release     documentOutcome
	File        *models.FileImport
	Image       *models.ImageImport
}
