package users

import (
	"context"

	"github.com/storeit-app/storeit/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByAccountID(ctx context.Context, accountID string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	Update(ctx context.Context, id string, upd models.UserUpdate) (*models.User, error)
}
