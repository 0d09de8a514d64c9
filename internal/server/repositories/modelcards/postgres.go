// Package modelcards stores model card revisions in PostgreSQL.
package modelcards

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/modelmirror/internal/dbx"
	"github.com/dmitrijs2005/modelmirror/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Insert stores rev unless a revision with the same model and version
// already exists. It reports whether a row was written.
func (r *PostgresRepository) Insert(ctx context.Context, rev *models.ModelCardRevision) (bool, error) {
	query := `
		INSERT INTO model_card_revisions (model_id, version, schema_id, metadata, created_by)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (model_id, version) DO NOTHING;
	`
	metadata := string(rev.Metadata)
	if metadata == "" {
		metadata = "{}"
	}
	res, err := r.db.ExecContext(ctx, query, rev.ModelID, rev.Version, rev.SchemaID, metadata, rev.CreatedBy)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n == 1, nil
}

// ListByModel returns every revision of the model ordered by version.
func (r *PostgresRepository) ListByModel(ctx context.Context, modelID string) ([]*models.ModelCardRevision, error) {
	query := `SELECT model_id, version, schema_id, metadata, created_by, created_at, updated_at
		FROM model_card_revisions WHERE model_id=$1 ORDER BY version`

	rows, err := r.db.QueryContext(ctx, query, modelID)
	if err != nil {
		return nil, fmt.Errorf("failed to select revisions: %w", err)
	}
	defer rows.Close()

	result := make([]*models.ModelCardRevision, 0)
	for rows.Next() {
		rev := &models.ModelCardRevision{}
		var metadata []byte
		if err := rows.Scan(&rev.ModelID, &rev.Version, &rev.SchemaID, &metadata, &rev.CreatedBy, &rev.CreatedAt, &rev.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan revision: %w", err)
		}
		rev.Metadata = metadata
		result = append(result, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}
