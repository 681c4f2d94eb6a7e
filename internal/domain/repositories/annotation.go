package repositories

import (
	"context"

	"valvx/internal/domain/models"
)

// AnnotationRepository defines data access for document annotations.
type AnnotationRepository interface {
	// Create inserts the annotation and populates its ID and timestamps.
	Create(ctx context.Context, ann *models.Annotation) error

	// GetByID retrieves an annotation by ID
	GetByID(ctx context.Context, id int64) (*models.Annotation, error)

	// ListByDocument returns a document's annotations ordered by page
	// number, then creation time.
	ListByDocument(ctx context.Context, documentID int64) ([]models.Annotation, error)

	// Update persists comment, color, status, assignee and deadline.
	Update(ctx context.Context, ann *models.Annotation) error

	// Delete removes an annotation row.
	Delete(ctx context.Context, id int64) error
}
