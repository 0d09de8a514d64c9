package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/modelmirror/internal/dbx"
	"github.com/dmitrijs2005/modelmirror/internal/server/repositories/catalog"
	"github.com/dmitrijs2005/modelmirror/internal/server/repositories/files"
	"github.com/dmitrijs2005/modelmirror/internal/server/repositories/modelcards"
	"github.com/dmitrijs2005/modelmirror/internal/server/repositories/releases"
	"github.com/dmitrijs2005/modelmirror/internal/server/repositories/scans"
)

// RepositoryManager hands out repositories bound to a DBTX so that callers
// can run several of them inside one transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Models(db dbx.DBTX) catalog.Repository
	ModelCards(db dbx.DBTX) modelcards.Repository
	Releases(db dbx.DBTX) releases.Repository
	Files(db dbx.DBTX) files.Repository
	Scans(db dbx.DBTX) scans.Repository
}
