package files

import (
	"context"

	"github.com/storeit-app/storeit/internal/server/models"
)

// ListQuery narrows and orders a file listing. Zero values mean
// "no filter": all types, no search, default sort, no limit.
type ListQuery struct {
	Types  []string
	Search string
	Sort   string
	Limit  int
}

type Repository interface {
	Create(ctx context.Context, file *models.File) (*models.File, error)
	GetByID(ctx context.Context, id string) (*models.File, error)
	List(ctx context.Context, ownerID string, q ListQuery) ([]*models.File, error)
	Rename(ctx context.Context, id string, name string) (*models.File, error)
	Delete(ctx context.Context, id string) error
	SummaryByType(ctx context.Context, ownerID string) (map[string]models.TypeUsage, error)
}
