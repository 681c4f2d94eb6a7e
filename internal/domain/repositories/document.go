package repositories

import (
	"context"

	"valvx/internal/domain/models"
)

// DocumentRepository defines data access for stored document revisions.
type DocumentRepository interface {
	// Create inserts the document and populates its ID and timestamps.
	Create(ctx context.Context, doc *models.Document) error

	// GetByID retrieves a document by ID
	GetByID(ctx context.Context, id int64) (*models.Document, error)

	// GetLatestForUpdate finds the latest revision for the logical file
	// identified by (name, project, directory), comparing names
	// case-insensitively. When called inside a transaction the row is
	// locked (SELECT ... FOR UPDATE) so concurrent uploads of the same
	// name serialize. Returns nil when no revision exists.
	GetLatestForUpdate(ctx context.Context, name string, projectID, directoryID *int64) (*models.Document, error)

	// MarkSuperseded flips is_latest off on the given revision. Returns
	// domain.ErrConsistency if the row was not the latest revision.
	MarkSuperseded(ctx context.Context, id int64) error

	// GetNextVersion returns the revision whose previous_version_id is
	// the given ID, or nil when the given revision is the chain tail.
	GetNextVersion(ctx context.Context, id int64) (*models.Document, error)

	// ListLatestByDirectory returns the latest revisions stored directly
	// under a directory, ordered by name.
	ListLatestByDirectory(ctx context.Context, directoryID int64) ([]models.Document, error)

	// Delete removes a single document row.
	Delete(ctx context.Context, id int64) error

	// DeleteByDirectoryIDs removes every document under the given
	// directories and returns the blob handles of the removed rows so
	// the caller can clean up the blob store after commit.
	DeleteByDirectoryIDs(ctx context.Context, directoryIDs []int64) ([]string, error)
}
