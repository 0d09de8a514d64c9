package modelcards

import (
	"context"

	"github.com/dmitrijs2005/modelmirror/internal/server/models"
)

// Repository persists model card revisions. Revisions are append-only:
// Insert never replaces an existing (model, version) pair.
type Repository interface {
	Insert(ctx context.Context, rev *models.ModelCardRevision) (bool, error)
	ListByModel(ctx context.Context, modelID string) ([]*models.ModelCardRevision, error)
}
