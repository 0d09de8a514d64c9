package catalog

import (
	"context"

	"github.com/dmitrijs2005/modelmirror/internal/server/models"
)

// Repository persists model records.
type Repository interface {
	Get(ctx context.Context, id string) (*models.Model, error)
	Upsert(ctx context.Context, m *models.Model) error
}
