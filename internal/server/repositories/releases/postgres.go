// Package releases stores model releases in PostgreSQL.
package releases

import (
	"context"
	"database/sql"
	"encoding/json"
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

// Insert stores rel unless the (model, semver) pair already exists and
// reports whether a row was written.
func (r *PostgresRepository) Insert(ctx context.Context, rel *models.Release) (bool, error) {
	fileIDs, err := json.Marshal(nonNil(rel.FileIDs))
	if err != nil {
		return false, fmt.Errorf("marshal file ids: %w", err)
	}
	images := rel.Images
	if images == nil {
		images = []models.ImageRef{}
	}
	imagesJSON, err := json.Marshal(images)
	if err != nil {
		return false, fmt.Errorf("marshal images: %w", err)
	}

	query := `
		INSERT INTO releases (model_id, semver, notes, file_ids, images, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (model_id, semver) DO NOTHING;
	`
	res, err := r.db.ExecContext(ctx, query,
		rel.ModelID, rel.Semver, rel.Notes, string(fileIDs), string(imagesJSON), rel.CreatedBy)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n == 1, nil
}

const selectRelease = `SELECT model_id, semver, notes, file_ids, images, created_by, created_at FROM releases `

type scanner interface {
	Scan(dest ...any) error
}

func scanRelease(s scanner) (*models.Release, error) {
	rel := &models.Release{}
	var fileIDs, images []byte
	if err := s.Scan(&rel.ModelID, &rel.Semver, &rel.Notes, &fileIDs, &images, &rel.CreatedBy, &rel.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(fileIDs, &rel.FileIDs); err != nil {
		return nil, fmt.Errorf("decode file ids: %w", err)
	}
	if err := json.Unmarshal(images, &rel.Images); err != nil {
		return nil, fmt.Errorf("decode images: %w", err)
	}
	return rel, nil
}

// Get returns a single release or common.ErrorNotFound.
func (r *PostgresRepository) Get(ctx context.Context, modelID, semver string) (*models.Release, error) {
	rel, err := scanRelease(r.db.QueryRowContext(ctx, selectRelease+`WHERE model_id=$1 AND semver=$2`, modelID, semver))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select release: %w", err)
	}
	return rel, nil
}

// ListByModel returns all releases of a model ordered by creation time.
func (r *PostgresRepository) ListByModel(ctx context.Context, modelID string) ([]*models.Release, error) {
	rows, err := r.db.QueryContext(ctx, selectRelease+`WHERE model_id=$1 ORDER BY created_at`, modelID)
	if err != nil {
		return nil, fmt.Errorf("failed to select releases: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Release, 0)
	for rows.Next() {
		rel, err := scanRelease(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan release: %w", err)
		}
		result = append(result, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
