package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"valvx/internal/domain"
	"valvx/internal/domain/models"
	"valvx/internal/domain/repositories"
)

// PostgresAnnotationRepository implements the AnnotationRepository interface
type PostgresAnnotationRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewAnnotationRepository creates a new annotation repository
func NewAnnotationRepository(config *RepositoryConfig) repositories.AnnotationRepository {
	return &PostgresAnnotationRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

const annotationColumns = `id, document_id, project_id, x, y, width, height, page_number, comment, color, status, created_by, assigned_to, deadline, created_at, updated_at`

// Create inserts the annotation and populates its ID and timestamps.
func (r *PostgresAnnotationRepository) Create(ctx context.Context, ann *models.Annotation) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (document_id, project_id, x, y, width, height, page_number, comment, color, status, created_by, assigned_to, deadline, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at, updated_at
	`, r.tables.Annotations)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		ann.DocumentID,
		ann.ProjectID,
		ann.X,
		ann.Y,
		ann.Width,
		ann.Height,
		ann.PageNumber,
		ann.Comment,
		ann.Color,
		ann.Status,
		ann.CreatedBy,
		ann.AssignedTo,
		ann.Deadline,
		ann.CreatedAt,
		ann.UpdatedAt,
	).Scan(&ann.ID, &ann.CreatedAt, &ann.UpdatedAt)

	if err != nil {
		if IsPgForeignKeyError(err) {
			return fmt.Errorf("file %d: %w", ann.DocumentID, domain.ErrNotFound)
		}
		return fmt.Errorf("create annotation: %w", err)
	}

	return nil
}

// GetByID retrieves an annotation by ID
func (r *PostgresAnnotationRepository) GetByID(ctx context.Context, id int64) (*models.Annotation, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, annotationColumns, r.tables.Annotations)

	executor := GetExecutor(ctx, r.pool)
	ann, err := scanAnnotation(executor.QueryRow(ctx, query, id))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("annotation %d: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get annotation: %w", err)
	}

	return ann, nil
}

// ListByDocument returns a document's annotations ordered by page, then age.
func (r *PostgresAnnotationRepository) ListByDocument(ctx context.Context, documentID int64) ([]models.Annotation, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE document_id = $1
		ORDER BY page_number ASC, created_at ASC
	`, annotationColumns, r.tables.Annotations)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("list annotations: %w", err)
	}
	defer rows.Close()

	var anns []models.Annotation
	for rows.Next() {
		ann, err := scanAnnotation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan annotation: %w", err)
		}
		anns = append(anns, *ann)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate annotations: %w", err)
	}

	return anns, nil
}

// Update persists the mutable annotation fields.
func (r *PostgresAnnotationRepository) Update(ctx context.Context, ann *models.Annotation) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET comment = $1, color = $2, status = $3, assigned_to = $4, deadline = $5, updated_at = $6
		WHERE id = $7
	`, r.tables.Annotations)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		ann.Comment,
		ann.Color,
		ann.Status,
		ann.AssignedTo,
		ann.Deadline,
		ann.UpdatedAt,
		ann.ID,
	)
	if err != nil {
		return fmt.Errorf("update annotation: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("annotation %d: %w", ann.ID, domain.ErrNotFound)
	}

	return nil
}

// Delete removes an annotation row.
func (r *PostgresAnnotationRepository) Delete(ctx context.Context, id int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Annotations)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete annotation: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("annotation %d: %w", id, domain.ErrNotFound)
	}

	return nil
}

func scanAnnotation(row rowScanner) (*models.Annotation, error) {
	var ann models.Annotation
	err := row.Scan(
		&ann.ID,
		&ann.DocumentID,
		&ann.ProjectID,
		&ann.X,
		&ann.Y,
		&ann.Width,
		&ann.Height,
		&ann.PageNumber,
		&ann.Comment,
		&ann.Color,
		&ann.Status,
		&ann.CreatedBy,
		&ann.AssignedTo,
		&ann.Deadline,
		&ann.CreatedAt,
		&ann.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ann, nil
}
