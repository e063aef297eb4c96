package sessions

import (
	"context"

	"github.com/storeit-app/storeit/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, session *models.Session) error
	GetByID(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) error
}
