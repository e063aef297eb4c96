// Package sessions provides a PostgreSQL-backed repository for
// identity-provider sessions.
package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/storeit-app/storeit/internal/common"
	"github.com/storeit-app/storeit/internal/dbx"
	"github.com/storeit-app/storeit/internal/server/models"
)

// PostgresRepository implements session storage over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a session row. The secret is not persisted; it exists
// only in the signed token handed to the browser.
func (r *PostgresRepository) Create(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (id, account_id, expires_at)
		VALUES ($1, $2, $3)
	`
	if _, err := r.db.ExecContext(ctx, query, session.ID, session.AccountID, session.ExpiresAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	query := `
		SELECT id, account_id, created_at, expires_at
		FROM sessions
		WHERE id = $1
	`
	session := &models.Session{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&session.ID, &session.AccountID, &session.CreatedAt, &session.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return session, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM sessions WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
