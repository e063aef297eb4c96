// Package files provides the PostgreSQL-backed repository for file
// metadata rows. Binary content lives in object storage.
package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/storeit-app/storeit/internal/common"
	"github.com/storeit-app/storeit/internal/dbx"
	"github.com/storeit-app/storeit/internal/server/models"
)

// PostgresRepository implements file metadata storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const fileColumns = `id, owner_id, name, size, type, extension, blob_id, url, created_at`

// orderings whitelists sort keys; anything else falls back to date-desc.
var orderings = map[string]string{
	"date-desc": "created_at DESC",
	"date-asc":  "created_at ASC",
	"name-desc": "name DESC",
	"name-asc":  "name ASC",
	"size-desc": "size DESC",
	"size-asc":  "size ASC",
}

func scanFile(row *sql.Row) (*models.File, error) {
	f := &models.File{}
	err := row.Scan(&f.ID, &f.OwnerID, &f.Name, &f.Size, &f.Type, &f.Extension, &f.BlobID, &f.URL, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return f, nil
}

func (r *PostgresRepository) Create(ctx context.Context, file *models.File) (*models.File, error) {
	query :=
		`INSERT INTO files (id, owner_id, name, size, type, extension, blob_id, url)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		file.ID, file.OwnerID, file.Name, file.Size, file.Type, file.Extension, file.BlobID, file.URL).
		Scan(&file.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return file, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1`
	return scanFile(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) List(ctx context.Context, ownerID string, q ListQuery) ([]*models.File, error) {

	query := `SELECT ` + fileColumns + ` FROM files WHERE owner_id = $1`
	args := []any{ownerID}

	if len(q.Types) > 0 {
		placeholders := make([]string, len(q.Types))
		for i, t := range q.Types {
			args = append(args, t)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		query += ` AND type IN (` + strings.Join(placeholders, ", ") + `)`
	}

	if q.Search != "" {
		args = append(args, "%"+q.Search+"%")
		query += fmt.Sprintf(` AND name ILIKE $%d`, len(args))
	}

	ordering, ok := orderings[q.Sort]
	if !ok {
		ordering = orderings["date-desc"]
	}
	query += ` ORDER BY ` + ordering

	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.File
	for rows.Next() {
		f := &models.File{}
		if err := rows.Scan(&f.ID, &f.OwnerID, &f.Name, &f.Size, &f.Type, &f.Extension, &f.BlobID, &f.URL, &f.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) Rename(ctx context.Context, id string, name string) (*models.File, error) {
	query := `UPDATE files SET name = $2 WHERE id = $1 RETURNING ` + fileColumns
	return scanFile(r.db.QueryRowContext(ctx, query, id, name))
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	ra, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if ra == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// SummaryByType returns per-category size/count/latest-upload aggregates
// for the owner. Categories with no files are absent from the map.
func (r *PostgresRepository) SummaryByType(ctx context.Context, ownerID string) (map[string]models.TypeUsage, error) {
	query :=
		`SELECT type, COALESCE(SUM(size), 0), COUNT(*), MAX(created_at)
		 FROM files
		 WHERE owner_id = $1
		 GROUP BY type
		 `

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make(map[string]models.TypeUsage)
	for rows.Next() {
		var typ string
		var usage models.TypeUsage
		if err := rows.Scan(&typ, &usage.Size, &usage.Count, &usage.Latest); err != nil {
			return nil, err
		}
		result[typ] = usage
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
