// Package catalog stores model records in PostgreSQL.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/modelmirror/internal/common"
	"github.com/dmitrijs2005/modelmirror/internal/dbx"
	"github.com/dmitrijs2005/modelmirror/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Get returns the model with the given id or common.ErrorNotFound.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Model, error) {
	query := `SELECT id, name, description, visibility, mirror_source_id, mirror_destination_id, created_at, updated_at
		FROM models WHERE id=$1`

	m := &models.Model{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&m.ID, &m.Name, &m.Description, &m.Visibility,
		&m.MirrorSourceID, &m.MirrorDestinationID, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select model: %w", err)
	}
	return m, nil
}

// Upsert inserts the model or overwrites its descriptive fields.
// mirror_destination_id is owned by the local instance and is never changed here.
func (r *PostgresRepository) Upsert(ctx context.Context, m *models.Model) error {
	query := `
		INSERT INTO models (id, name, description, visibility, mirror_source_id, mirror_destination_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id)
		DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			visibility = EXCLUDED.visibility,
			mirror_source_id = EXCLUDED.mirror_source_id,
			updated_at = now();
	`
	_, err := r.db.ExecContext(ctx, query,
		m.ID, m.Name, m.Description, m.Visibility, m.MirrorSourceID, m.MirrorDestinationID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
