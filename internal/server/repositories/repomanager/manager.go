package repomanager

import (
	"context"
	"database/sql"

	"github.com/blockvault/blockvault/internal/dbx"
	"github.com/blockvault/blockvault/internal/server/repositories/files"
	"github.com/blockvault/blockvault/internal/server/repositories/refreshtokens"
	"github.com/blockvault/blockvault/internal/server/repositories/shares"
	"github.com/blockvault/blockvault/internal/server/repositories/users"
)

// RepositoryManager vends per-entity repositories bound to a DBTX, so the
// same repository code runs against *sql.DB and inside transactions.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Files(db dbx.DBTX) files.Repository
	Shares(db dbx.DBTX) shares.Repository
}
