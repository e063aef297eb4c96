package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/storeit-app/storeit/internal/common"
	"github.com/storeit-app/storeit/internal/filex"
	"github.com/storeit-app/storeit/internal/logging"
	"github.com/storeit-app/storeit/internal/server/blobstore"
	"github.com/storeit-app/storeit/internal/server/models"
	filesrepo "github.com/storeit-app/storeit/internal/server/repositories/files"
	"github.com/storeit-app/storeit/internal/server/repositories/repomanager"
)

// RecentFilesLimit caps the file listing shown on the dashboard.
const RecentFilesLimit = 10

// Dashboard pairs a file listing with the owner's storage summary.
type Dashboard struct {
	Files []*models.File
	Usage *models.SpaceUsage
}

// FileService implements upload, listing, rename and delete of user
// files, plus the storage summaries shown on the dashboard.
type FileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	blobs       blobstore.Store
	logger      logging.Logger
}

// NewFileService constructs a FileService using repositories and the blob store.
func NewFileService(db *sql.DB, m repomanager.RepositoryManager, blobs blobstore.Store, logger logging.Logger) *FileService {
	return &FileService{
		db:          db,
		repomanager: m,
		blobs:       blobs,
		logger:      logger,
	}
}

// Upload stores the payload in the blob store and records its metadata.
// If the metadata insert fails, the just-uploaded blob is deleted so no
// orphan object survives a half-done upload.
func (s *FileService) Upload(ctx context.Context, ownerID string, name string, contentType string, data []byte) (*models.File, error) {
	if int64(len(data)) > common.MaxUploadSize {
		return nil, common.ErrFileTooLarge
	}

	blobID := uuid.New().String()
	if err := s.blobs.Upload(ctx, blobID, contentType, data); err != nil {
		return nil, fmt.Errorf("error uploading blob: %v", err)
	}

	fileType, extension := filex.TypeOf(name)
	file := &models.File{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Name:      name,
		Size:      int64(len(data)),
		Type:      fileType,
		Extension: extension,
		BlobID:    blobID,
		URL:       s.blobs.ObjectURL(blobID),
	}

	created, err := s.repomanager.Files(s.db).Create(ctx, file)
	if err != nil {
		if delErr := s.blobs.Delete(ctx, blobID); delErr != nil {
			s.logger.Error(ctx, "orphan blob left after failed upload", "blob_id", blobID, "error", delErr)
		}
		return nil, fmt.Errorf("error creating file: %v", err)
	}

	return created, nil
}

// List returns the owner's files narrowed by the query.
func (s *FileService) List(ctx context.Context, ownerID string, q filesrepo.ListQuery) ([]*models.File, error) {
	files, err := s.repomanager.Files(s.db).List(ctx, ownerID, q)
	if err != nil {
		return nil, fmt.Errorf("error listing files: %v", err)
	}
	return files, nil
}

// Rename changes a file's display name, keeping its original extension.
// Only the owner may rename.
func (s *FileService) Rename(ctx context.Context, ownerID string, fileID string, newName string) (*models.File, error) {
	repo := s.repomanager.Files(s.db)

	file, err := repo.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file.OwnerID != ownerID {
		return nil, common.ErrorUnauthorized
	}

	name := newName
	if file.Extension != "" {
		name = fmt.Sprintf("%s.%s", newName, file.Extension)
	}

	renamed, err := repo.Rename(ctx, fileID, name)
	if err != nil {
		return nil, fmt.Errorf("error renaming file: %v", err)
	}
	return renamed, nil
}

// Delete removes a file's metadata row and its blob. Only the owner may
// delete. The row goes first so a blob-store failure cannot resurrect an
// already-deleted file.
func (s *FileService) Delete(ctx context.Context, ownerID string, fileID string) error {
	repo := s.repomanager.Files(s.db)

	file, err := repo.GetByID(ctx, fileID)
	if err != nil {
		return err
	}
	if file.OwnerID != ownerID {
		return common.ErrorUnauthorized
	}

	if err := repo.Delete(ctx, fileID); err != nil {
		return fmt.Errorf("error deleting file: %v", err)
	}

	if err := s.blobs.Delete(ctx, file.BlobID); err != nil {
		s.logger.Error(ctx, "orphan blob left after delete", "blob_id", file.BlobID, "error", err)
	}

	return nil
}

// TotalSpaceUsed summarizes the owner's storage: every category is
// present in the result even when empty, Used is the grand total, All
// is the fixed per-user capacity.
func (s *FileService) TotalSpaceUsed(ctx context.Context, ownerID string) (*models.SpaceUsage, error) {
	summary, err := s.repomanager.Files(s.db).SummaryByType(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("error summarizing files: %v", err)
	}

	usage := &models.SpaceUsage{
		ByType: make(map[string]models.TypeUsage, len(filex.AllTypes())),
		All:    common.TotalCapacity,
	}
	for _, t := range filex.AllTypes() {
		u := summary[t]
		usage.ByType[t] = u
		usage.Used += u.Size
	}

	return usage, nil
}

// Dashboard fetches the file listing and the storage summary in
// parallel. Both reads are independent, so either error cancels the
// other fetch.
func (s *FileService) Dashboard(ctx context.Context, ownerID string, q filesrepo.ListQuery) (*Dashboard, error) {
	d := &Dashboard{}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		files, err := s.List(ctx, ownerID, q)
		if err != nil {
			return err
		}
		d.Files = files
		return nil
	})
	g.Go(func() error {
		usage, err := s.TotalSpaceUsed(ctx, ownerID)
		if err != nil {
			return err
		}
		d.Usage = usage
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return d, nil
}
