package otptokens

import (
	"context"
	"time"

	"github.com/storeit-app/storeit/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, id string, accountID string, secretHash []byte, validity time.Duration) error
	// FindLatest returns the newest unused token for the account, or
	// common.ErrorNotFound.
	FindLatest(ctx context.Context, accountID string) (*models.OTPToken, error)
	// MarkUsed flips the used flag; it fails with common.ErrorNotFound
	// when the token is already used or absent, which enforces
	// exactly-once redemption.
	MarkUsed(ctx context.Context, id string) error
}
