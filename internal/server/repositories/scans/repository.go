package scans

import (
	"context"

	"github.com/dmitrijs2005/modelmirror/internal/server/models"
)

// Repository persists scan results produced by the artefact scanners.
type Repository interface {
	Upsert(ctx context.Context, s *models.ScanResult) error
	ListForArtefact(ctx context.Context, kind models.ArtefactKind, id string) ([]*models.ScanResult, error)
}
