package repositories

import (
	"context"

	"valvx/internal/domain/models"
)

// NodeFilter narrows node listings. Nil pointer fields mean "no filter";
// HasParentFilter distinguishes "no filter" from "parent IS NULL".
type NodeFilter struct {
	ProjectID       *int64
	ParentID        *int64
	HasParentFilter bool
	SidebarOnly     bool
	Kind            string
}

// NodeRepository defines data access for directory-tree nodes.
type NodeRepository interface {
	// Create inserts the node and populates its ID and timestamps.
	// The slug is not set here; see SetSlug.
	Create(ctx context.Context, node *models.Node) error

	// SetSlug assigns a slug to a node that does not have one yet.
	// It must not overwrite an existing slug.
	SetSlug(ctx context.Context, id int64, slug string) error

	// GetByID retrieves a node by ID
	GetByID(ctx context.Context, id int64) (*models.Node, error)

	// GetBySlug retrieves a node by its public slug
	GetBySlug(ctx context.Context, slug string) (*models.Node, error)

	// FindSibling finds a node with the same (name, project, parent,
	// sidebar flag) key, comparing names case-insensitively. Returns
	// nil when no such sibling exists.
	FindSibling(ctx context.Context, name string, projectID, parentID *int64, isSidebarItem bool) (*models.Node, error)

	// Update persists name, parent, kind, sidebar flag and page fields.
	Update(ctx context.Context, node *models.Node) error

	// List returns nodes matching the filter, ordered by name.
	List(ctx context.Context, filter NodeFilter) ([]models.Node, error)

	// ListSubtreeIDs returns the given node's ID plus every descendant
	// ID, parents before children.
	ListSubtreeIDs(ctx context.Context, rootID int64) ([]int64, error)

	// ClearSidebar unsets is_sidebar_item on the given nodes so a
	// concurrent sidebar read never shows a node mid-deletion.
	ClearSidebar(ctx context.Context, ids []int64) error

	// DeleteByIDs removes the given node rows, children before parents.
	// Returns the number of rows deleted.
	DeleteByIDs(ctx context.Context, ids []int64) (int, error)
}
