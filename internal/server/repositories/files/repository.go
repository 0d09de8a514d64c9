package files

import (
	"context"

	"github.com/dmitrijs2005/modelmirror/internal/server/models"
)

// Repository persists file records. Records are addressed by their storage
// path, which is unique.
type Repository interface {
	Upsert(ctx context.Context, file *models.File) error
	GetByPath(ctx context.Context, path string) (*models.File, error)
	GetByID(ctx context.Context, id string) (*models.File, error)
	MarkComplete(ctx context.Context, path string, size int64) error
}
