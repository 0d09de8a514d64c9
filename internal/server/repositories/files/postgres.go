// Package files stores file artefact records in PostgreSQL.
package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/modelmirror/internal/common"
	"github.com/dmitrijs2005/modelmirror/internal/dbx"
	"github.com/dmitrijs2005/modelmirror/internal/server/models"
)

// PostgresRepository implements file storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Upsert inserts a pending record or refreshes the metadata of an existing
// pending one. A record already marked complete is left untouched and
// ErrVersionConflict is returned.
func (r *PostgresRepository) Upsert(ctx context.Context, file *models.File) error {
	query := `
		INSERT INTO files (id, model_id, name, mime, bucket, path, size, complete)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (path)
		DO UPDATE SET
			name = EXCLUDED.name,
			mime = EXCLUDED.mime,
			bucket = EXCLUDED.bucket,
			size = EXCLUDED.size,
			updated_at = now()
			WHERE files.complete = false;
	`
	res, err := r.db.ExecContext(ctx, query,
		file.ID, file.ModelID, file.Name, file.Mime, file.Bucket, file.Path, file.Size, file.Complete)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrVersionConflict
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

const selectFile = `SELECT id, model_id, name, mime, bucket, path, size, complete, created_at, updated_at FROM files `

func scanFile(row *sql.Row) (*models.File, error) {
	f := &models.File{}
	err := row.Scan(&f.ID, &f.ModelID, &f.Name, &f.Mime, &f.Bucket, &f.Path, &f.Size, &f.Complete, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select file: %w", err)
	}
	return f, nil
}

// GetByPath returns the record stored at path or common.ErrorNotFound.
func (r *PostgresRepository) GetByPath(ctx context.Context, path string) (*models.File, error) {
	return scanFile(r.db.QueryRowContext(ctx, selectFile+`WHERE path=$1`, path))
}

// GetByID returns the record with the given id or common.ErrorNotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.File, error) {
	return scanFile(r.db.QueryRowContext(ctx, selectFile+`WHERE id=$1`, id))
}

// MarkComplete flags the record at path as fully persisted with its final
// size. Exactly one row must be affected.
func (r *PostgresRepository) MarkComplete(ctx context.Context, path string, size int64) error {
	query := `UPDATE files SET complete=true, size=$2, updated_at=now() WHERE path=$1`
	result, err := r.db.ExecContext(ctx, query, path, size)
	if err != nil {
		return fmt.Errorf("failed to mark complete: %w", err)
	}
	ra, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return fmt.Errorf("wrong rows affected count: %d", ra)
	}
	return nil
}
