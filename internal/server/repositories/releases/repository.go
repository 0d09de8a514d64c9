package releases

import (
	"context"

	"github.com/dmitrijs2005/modelmirror/internal/server/models"
)

// Repository persists releases. Like revisions, a release is never replaced
// once written.
type Repository interface {
	Insert(ctx context.Context, rel *models.Release) (bool, error)
	Get(ctx context.Context, modelID, semver string) (*models.Release, error)
	ListByModel(ctx context.Context, modelID string) ([]*models.Release, error)
}
