// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/modelmirror/internal/dbx"
	"github.com/dmitrijs2005/modelmirror/internal/server/migrations"
	"github.com/dmitrijs2005/modelmirror/internal/server/repositories/catalog"
	"github.com/dmitrijs2005/modelmirror/internal/server/repositories/files"
	"github.com/dmitrijs2005/modelmirror/internal/server/repositories/modelcards"
	"github.com/dmitrijs2005/modelmirror/internal/server/repositories/releases"
	"github.com/dmitrijs2005/modelmirror/internal/server/repositories/scans"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations
// and exposes a schema migration hook.
type PostgresRepositoryManager struct{}

// Models returns a catalog.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Models(db dbx.DBTX) catalog.Repository {
	return catalog.NewPostgresRepository(db)
}

// ModelCards returns a modelcards.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) ModelCards(db dbx.DBTX) modelcards.Repository {
	return modelcards.NewPostgresRepository(db)
}

// Releases returns a releases.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Releases(db dbx.DBTX) releases.Repository {
	return releases.NewPostgresRepository(db)
}

// Files returns a files.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Files(db dbx.DBTX) files.Repository {
	return files.NewPostgresRepository(db)
}

// Scans returns a scans.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Scans(db dbx.DBTX) scans.Repository {
	return scans.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager(db *sql.DB) (RepositoryManager, error) {
	return &PostgresRepositoryManager{}, nil
}
