// Package users provides the PostgreSQL-backed repository for profile rows.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/storeit-app/storeit/internal/common"
	"github.com/storeit-app/storeit/internal/dbx"
	"github.com/storeit-app/storeit/internal/server/models"
)

// PostgresRepository implements user storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, full_name, email, avatar, account_id, created_at`

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.FullName, &user.Email, &user.Avatar, &user.AccountID, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (id, full_name, email, avatar, account_id)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.FullName, user.Email, user.Avatar, user.AccountID).Scan(&user.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) GetByAccountID(ctx context.Context, accountID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE account_id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, accountID))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

// Update applies a partial update: nil fields keep their current value.
func (r *PostgresRepository) Update(ctx context.Context, id string, upd models.UserUpdate) (*models.User, error) {
	query :=
		`UPDATE users
		 SET full_name = COALESCE($2, full_name),
		     avatar    = COALESCE($3, avatar)
		 WHERE id = $1
		 RETURNING ` + userColumns

	return scanUser(r.db.QueryRowContext(ctx, query, id, upd.FullName, upd.Avatar))
}
