package accounts

import (
	"context"

	"github.com/storeit-app/storeit/internal/server/models"
)

type Repository interface {
	// GetOrCreate resolves the account for email, inserting a row with
	// the candidate id when none exists. The returned account id is
	// stable across calls for the same email.
	GetOrCreate(ctx context.Context, candidateID string, email string) (*models.Account, error)
	GetByID(ctx context.Context, id string) (*models.Account, error)
}
