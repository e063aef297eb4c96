package repomanager

import (
	"context"
	"database/sql"

	"github.com/storeit-app/storeit/internal/dbx"
	"github.com/storeit-app/storeit/internal/server/repositories/accounts"
	"github.com/storeit-app/storeit/internal/server/repositories/files"
	"github.com/storeit-app/storeit/internal/server/repositories/otptokens"
	"github.com/storeit-app/storeit/internal/server/repositories/sessions"
	"github.com/storeit-app/storeit/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Files(db dbx.DBTX) files.Repository
	Accounts(db dbx.DBTX) accounts.Repository
	OTPTokens(db dbx.DBTX) otptokens.Repository
	Sessions(db dbx.DBTX) sessions.Repository
}
