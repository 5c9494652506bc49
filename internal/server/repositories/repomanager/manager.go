package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gophvault/internal/dbx"
	"github.com/dmitrijs2005/gophvault/internal/server/repositories/chunks"
	"github.com/dmitrijs2005/gophvault/internal/server/repositories/downloads"
	"github.com/dmitrijs2005/gophvault/internal/server/repositories/files"
	"github.com/dmitrijs2005/gophvault/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/gophvault/internal/server/repositories/summaries"
)

// RepositoryManager vends repositories bound to a DBTX, so the same code
// path works with a plain connection and inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Files(db dbx.DBTX) files.Repository
	Sessions(db dbx.DBTX) sessions.Repository
	Chunks(db dbx.DBTX) chunks.Repository
	Downloads(db dbx.DBTX) downloads.Repository
	Summaries(db dbx.DBTX) summaries.Repository
}
