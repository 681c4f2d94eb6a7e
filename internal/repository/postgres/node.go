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

// PostgresNodeRepository implements the NodeRepository interface
type PostgresNodeRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewNodeRepository creates a new node repository
func NewNodeRepository(config *RepositoryConfig) repositories.NodeRepository {
	return &PostgresNodeRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

const nodeColumns = `id, name, slug, project_id, parent_id, kind, is_sidebar_item, has_page, page_title, page_description, created_by, created_at, updated_at`

// Create inserts a node without a slug. The caller assigns the slug in
// a second write once the generated ID is known.
func (r *PostgresNodeRepository) Create(ctx context.Context, node *models.Node) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (name, slug, project_id, parent_id, kind, is_sidebar_item, has_page, page_title, page_description, created_by, created_at, updated_at)
		VALUES ($1, '', $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`, r.tables.Nodes)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		node.Name,
		node.ProjectID,
		node.ParentID,
		node.Kind,
		node.IsSidebarItem,
		node.HasPage,
		node.PageTitle,
		node.PageDescription,
		node.CreatedBy,
		node.CreatedAt,
		node.UpdatedAt,
	).Scan(&node.ID, &node.CreatedAt, &node.UpdatedAt)

	if err != nil {
		if IsPgDuplicateError(err) {
			return fmt.Errorf("directory '%s': %w", node.Name, domain.ErrConflict)
		}
		return fmt.Errorf("create directory: %w", err)
	}

	return nil
}

// SetSlug assigns the slug exactly once. A node that already has a slug
// is left untouched so reassignment is a no-op rather than an error.
func (r *PostgresNodeRepository) SetSlug(ctx context.Context, id int64, slug string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET slug = $1
		WHERE id = $2 AND slug = ''
	`, r.tables.Nodes)

	executor := GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, slug, id); err != nil {
		if IsPgDuplicateError(err) {
			return fmt.Errorf("slug '%s': %w", slug, domain.ErrConflict)
		}
		return fmt.Errorf("set directory slug: %w", err)
	}

	return nil
}

// GetByID retrieves a node by ID
func (r *PostgresNodeRepository) GetByID(ctx context.Context, id int64) (*models.Node, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, nodeColumns, r.tables.Nodes)

	executor := GetExecutor(ctx, r.pool)
	node, err := scanNode(executor.QueryRow(ctx, query, id))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("directory %d: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get directory: %w", err)
	}

	return node, nil
}

// GetBySlug retrieves a node by its public slug
func (r *PostgresNodeRepository) GetBySlug(ctx context.Context, slug string) (*models.Node, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE slug = $1`, nodeColumns, r.tables.Nodes)

	executor := GetExecutor(ctx, r.pool)
	node, err := scanNode(executor.QueryRow(ctx, query, slug))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("directory '%s': %w", slug, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get directory by slug: %w", err)
	}

	return node, nil
}

// FindSibling looks for a same-named node under the same parent with
// the same sidebar flag. Name comparison is case-insensitive.
func (r *PostgresNodeRepository) FindSibling(ctx context.Context, name string, projectID, parentID *int64, isSidebarItem bool) (*models.Node, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE lower(name) = lower($1)
		  AND project_id IS NOT DISTINCT FROM $2
		  AND parent_id IS NOT DISTINCT FROM $3
		  AND is_sidebar_item = $4
		LIMIT 1
	`, nodeColumns, r.tables.Nodes)

	executor := GetExecutor(ctx, r.pool)
	node, err := scanNode(executor.QueryRow(ctx, query, name, projectID, parentID, isSidebarItem))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find sibling directory: %w", err)
	}

	return node, nil
}

// Update persists everything except the immutable id and slug.
func (r *PostgresNodeRepository) Update(ctx context.Context, node *models.Node) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET name = $1, parent_id = $2, kind = $3, is_sidebar_item = $4, has_page = $5, page_title = $6, page_description = $7, updated_at = $8
		WHERE id = $9
	`, r.tables.Nodes)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		node.Name,
		node.ParentID,
		node.Kind,
		node.IsSidebarItem,
		node.HasPage,
		node.PageTitle,
		node.PageDescription,
		node.UpdatedAt,
		node.ID,
	)

	if err != nil {
		if IsPgDuplicateError(err) {
			return fmt.Errorf("directory '%s': %w", node.Name, domain.ErrConflict)
		}
		return fmt.Errorf("update directory: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("directory %d: %w", node.ID, domain.ErrNotFound)
	}

	return nil
}

// List returns nodes matching the filter, ordered by name.
func (r *PostgresNodeRepository) List(ctx context.Context, filter repositories.NodeFilter) ([]models.Node, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE 1=1`, nodeColumns, r.tables.Nodes)
	var args []interface{}

	if filter.ProjectID != nil {
		args = append(args, *filter.ProjectID)
		query += fmt.Sprintf(" AND project_id = $%d", len(args))
	}
	if filter.HasParentFilter {
		if filter.ParentID == nil {
			query += " AND parent_id IS NULL"
		} else {
			args = append(args, *filter.ParentID)
			query += fmt.Sprintf(" AND parent_id = $%d", len(args))
		}
	}
	if filter.SidebarOnly {
		query += " AND is_sidebar_item = TRUE"
	}
	if filter.Kind != "" {
		args = append(args, filter.Kind)
		query += fmt.Sprintf(" AND kind = $%d", len(args))
	}
	query += " ORDER BY name ASC"

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list directories: %w", err)
	}
	defer rows.Close()

	var nodes []models.Node
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan directory: %w", err)
		}
		nodes = append(nodes, *node)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate directories: %w", err)
	}

	return nodes, nil
}

// ListSubtreeIDs walks parent_id edges downward with a recursive CTE,
// returning the root first and children after their parents.
func (r *PostgresNodeRepository) ListSubtreeIDs(ctx context.Context, rootID int64) ([]int64, error) {
	query := fmt.Sprintf(`
		WITH RECURSIVE subtree AS (
			SELECT id, 0 AS depth
			FROM %s
			WHERE id = $1
			UNION ALL
			SELECT n.id, s.depth + 1
			FROM %s n
			JOIN subtree s ON n.parent_id = s.id
		)
		SELECT id FROM subtree ORDER BY depth ASC, id ASC
	`, r.tables.Nodes, r.tables.Nodes)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, rootID)
	if err != nil {
		return nil, fmt.Errorf("list subtree: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan subtree id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subtree: %w", err)
	}

	if len(ids) == 0 {
		return nil, fmt.Errorf("directory %d: %w", rootID, domain.ErrNotFound)
	}

	return ids, nil
}

// ClearSidebar unsets is_sidebar_item on the given nodes.
func (r *PostgresNodeRepository) ClearSidebar(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET is_sidebar_item = FALSE, updated_at = now()
		WHERE id = ANY($1)
	`, r.tables.Nodes)

	executor := GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, ids); err != nil {
		return fmt.Errorf("clear sidebar flags: %w", err)
	}

	return nil
}

// DeleteByIDs removes the given node rows in one statement.
func (r *PostgresNodeRepository) DeleteByIDs(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ANY($1)`, r.tables.Nodes)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, ids)
	if err != nil {
		return 0, fmt.Errorf("delete directories: %w", err)
	}

	return int(result.RowsAffected()), nil
}

// rowScanner covers pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanNode(row rowScanner) (*models.Node, error) {
	var node models.Node
	err := row.Scan(
		&node.ID,
		&node.Name,
		&node.Slug,
		&node.ProjectID,
		&node.ParentID,
		&node.Kind,
		&node.IsSidebarItem,
		&node.HasPage,
		&node.PageTitle,
		&node.PageDescription,
		&node.CreatedBy,
		&node.CreatedAt,
		&node.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &node, nil
}
