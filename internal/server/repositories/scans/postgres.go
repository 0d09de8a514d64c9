// Package scans stores artefact scan results in PostgreSQL.
package scans

import (
	"context"
	"encoding/json"
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

// Upsert records the latest outcome of one tool for one artefact.
func (r *PostgresRepository) Upsert(ctx context.Context, s *models.ScanResult) error {
	viruses := s.Viruses
	if viruses == nil {
		viruses = []string{}
	}
	v, err := json.Marshal(viruses)
	if err != nil {
		return fmt.Errorf("marshal viruses: %w", err)
	}

	query := `
		INSERT INTO scans (artefact_kind, artefact_id, tool, state, is_infected, viruses)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (artefact_kind, artefact_id, tool)
		DO UPDATE SET
			state = EXCLUDED.state,
			is_infected = EXCLUDED.is_infected,
			viruses = EXCLUDED.viruses,
			updated_at = now();
	`
	if _, err := r.db.ExecContext(ctx, query,
		string(s.ArtefactKind), s.ArtefactID, s.Tool, string(s.State), s.IsInfected, string(v)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// ListForArtefact returns every scan result recorded for the artefact.
func (r *PostgresRepository) ListForArtefact(ctx context.Context, kind models.ArtefactKind, id string) ([]*models.ScanResult, error) {
	query := `SELECT artefact_kind, artefact_id, tool, state, is_infected, viruses, updated_at
		FROM scans WHERE artefact_kind=$1 AND artefact_id=$2`

	rows, err := r.db.QueryContext(ctx, query, string(kind), id)
	if err != nil {
		return nil, fmt.Errorf("failed to select scans: %w", err)
	}
	defer rows.Close()

	result := make([]*models.ScanResult, 0)
	for rows.Next() {
		s := &models.ScanResult{}
		var k, state string
		var viruses []byte
		if err := rows.Scan(&k, &s.ArtefactID, &s.Tool, &state, &s.IsInfected, &viruses, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		s.ArtefactKind = models.ArtefactKind(k)
		s.State = models.ScanState(state)
		if err := json.Unmarshal(viruses, &s.Viruses); err != nil {
			return nil, fmt.Errorf("decode viruses: %w", err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}
