// Package accounts provides the PostgreSQL-backed repository for
// identity-provider account rows (one per email).
package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/storeit-app/storeit/internal/common"
	"github.com/storeit-app/storeit/internal/dbx"
	"github.com/storeit-app/storeit/internal/server/models"
)

// PostgresRepository implements account storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetOrCreate upserts by email. The no-op DO UPDATE makes RETURNING
// yield the existing row on conflict.
func (r *PostgresRepository) GetOrCreate(ctx context.Context, candidateID string, email string) (*models.Account, error) {
	query :=
		`INSERT INTO identity_accounts (id, email)
		 VALUES ($1, $2)
		 ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		 RETURNING id, email, created_at
		 `

	account := &models.Account{}
	err := r.db.QueryRowContext(ctx, query, candidateID, email).
		Scan(&account.ID, &account.Email, &account.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return account, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT id, email, created_at FROM identity_accounts WHERE id = $1`

	account := &models.Account{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&account.ID, &account.Email, &account.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return account, nil
}
