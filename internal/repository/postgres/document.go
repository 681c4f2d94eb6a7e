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

// PostgresDocumentRepository implements the DocumentRepository interface
type PostgresDocumentRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(config *RepositoryConfig) repositories.DocumentRepository {
	return &PostgresDocumentRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

const documentColumns = `id, name, directory_id, project_id, blob_handle, content_type, size_bytes, version, previous_version_id, is_latest, description, uploaded_by, created_at, updated_at`

// Create inserts a document revision. A partial unique index on
// (project_id, directory_id, lower(name)) WHERE is_latest backstops the
// row lock in GetLatestForUpdate; a violation here means a concurrent
// upload won the latest slot first.
func (r *PostgresDocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (name, directory_id, project_id, blob_handle, content_type, size_bytes, version, previous_version_id, is_latest, description, uploaded_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at
	`, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		doc.Name,
		doc.DirectoryID,
		doc.ProjectID,
		doc.BlobHandle,
		doc.ContentType,
		doc.SizeBytes,
		doc.Version,
		doc.PreviousVersionID,
		doc.IsLatest,
		doc.Description,
		doc.UploadedBy,
		doc.CreatedAt,
		doc.UpdatedAt,
	).Scan(&doc.ID, &doc.CreatedAt, &doc.UpdatedAt)

	if err != nil {
		if IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("a concurrent upload of '%s' is in progress", doc.Name),
				ResourceType: "file",
				Retryable:    true,
			}
		}
		return fmt.Errorf("create file: %w", err)
	}

	return nil
}

// GetByID retrieves a document by ID
func (r *PostgresDocumentRepository) GetByID(ctx context.Context, id int64) (*models.Document, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, documentColumns, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	doc, err := scanDocument(executor.QueryRow(ctx, query, id))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("file %d: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get file: %w", err)
	}

	return doc, nil
}

// GetLatestForUpdate locks and returns the current latest revision of
// the named logical file, or nil when none exists. FOR UPDATE only has
// teeth inside a transaction; upload always calls this through the
// transaction manager.
func (r *PostgresDocumentRepository) GetLatestForUpdate(ctx context.Context, name string, projectID, directoryID *int64) (*models.Document, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE lower(name) = lower($1)
		  AND project_id IS NOT DISTINCT FROM $2
		  AND directory_id IS NOT DISTINCT FROM $3
		  AND is_latest
	`, documentColumns, r.tables.Documents)
	if repositories.InTx(ctx) {
		query += " FOR UPDATE"
	}

	executor := GetExecutor(ctx, r.pool)
	doc, err := scanDocument(executor.QueryRow(ctx, query, name, projectID, directoryID))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get latest file revision: %w", err)
	}

	return doc, nil
}

// MarkSuperseded flips is_latest off. Zero rows affected means the row
// was already superseded, which would leave the chain with two writers
// believing they hold the latest slot.
func (r *PostgresDocumentRepository) MarkSuperseded(ctx context.Context, id int64) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET is_latest = FALSE, updated_at = now()
		WHERE id = $1 AND is_latest
	`, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("supersede file revision: %w", err)
	}

	if result.RowsAffected() == 0 {
		return &domain.ConsistencyError{
			Message: fmt.Sprintf("file revision %d was already superseded", id),
		}
	}

	return nil
}

// GetNextVersion returns the revision pointing back at the given one.
func (r *PostgresDocumentRepository) GetNextVersion(ctx context.Context, id int64) (*models.Document, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE previous_version_id = $1
		ORDER BY version ASC
		LIMIT 1
	`, documentColumns, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	doc, err := scanDocument(executor.QueryRow(ctx, query, id))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get next file revision: %w", err)
	}

	return doc, nil
}

// ListLatestByDirectory returns the latest revisions stored directly
// under a directory, ordered by name.
func (r *PostgresDocumentRepository) ListLatestByDirectory(ctx context.Context, directoryID int64) ([]models.Document, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE directory_id = $1 AND is_latest
		ORDER BY name ASC
	`, documentColumns, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, directoryID)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		docs = append(docs, *doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate files: %w", err)
	}

	return docs, nil
}

// Delete removes a single document row.
func (r *PostgresDocumentRepository) Delete(ctx context.Context, id int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("file %d: %w", id, domain.ErrNotFound)
	}

	return nil
}

// DeleteByDirectoryIDs removes every document under the given
// directories, returning the removed blob handles.
func (r *PostgresDocumentRepository) DeleteByDirectoryIDs(ctx context.Context, directoryIDs []int64) ([]string, error) {
	if len(directoryIDs) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE directory_id = ANY($1)
		RETURNING blob_handle
	`, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, directoryIDs)
	if err != nil {
		return nil, fmt.Errorf("delete files in subtree: %w", err)
	}
	defer rows.Close()

	var handles []string
	for rows.Next() {
		var handle string
		if err := rows.Scan(&handle); err != nil {
			return nil, fmt.Errorf("scan blob handle: %w", err)
		}
		handles = append(handles, handle)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deleted files: %w", err)
	}

	return handles, nil
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var doc models.Document
	err := row.Scan(
		&doc.ID,
		&doc.Name,
		&doc.DirectoryID,
		&doc.ProjectID,
		&doc.BlobHandle,
		&doc.ContentType,
		&doc.SizeBytes,
		&doc.Version,
		&doc.PreviousVersionID,
		&doc.IsLatest,
		&doc.Description,
		&doc.UploadedBy,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}
