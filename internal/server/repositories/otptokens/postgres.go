// Package otptokens provides a PostgreSQL-backed repository for one-time
// passcode challenges issued by the identity provider.
package otptokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/storeit-app/storeit/internal/common"
	"github.com/storeit-app/storeit/internal/dbx"
	"github.com/storeit-app/storeit/internal/server/models"
)

// PostgresRepository implements OTP token storage over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new challenge for accountID expiring at now+validity.
func (r *PostgresRepository) Create(ctx context.Context, id string, accountID string, secretHash []byte, validity time.Duration) error {
	query := `
		INSERT INTO otp_tokens (id, account_id, secret_hash, expires_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.db.ExecContext(ctx, query, id, accountID, secretHash, time.Now().Add(validity)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// FindLatest returns the newest unused token for the account.
func (r *PostgresRepository) FindLatest(ctx context.Context, accountID string) (*models.OTPToken, error) {
	query := `
		SELECT id, account_id, secret_hash, used, expires_at, created_at
		FROM otp_tokens
		WHERE account_id = $1 AND used = false
		ORDER BY created_at DESC
		LIMIT 1
	`
	token := &models.OTPToken{}
	err := r.db.QueryRowContext(ctx, query, accountID).
		Scan(&token.ID, &token.AccountID, &token.SecretHash, &token.Used, &token.ExpiresAt, &token.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return token, nil
}

// MarkUsed consumes the token. Exactly one unused row must be affected.
func (r *PostgresRepository) MarkUsed(ctx context.Context, id string) error {
	query := `UPDATE otp_tokens SET used = true WHERE id = $1 AND used = false`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	ra, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if ra != 1 {
		return common.ErrorNotFound
	}
	return nil
}
