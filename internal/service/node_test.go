package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"valvx/internal/domain"
)

func newTestNodeService() (*fakeNodeRepo, NodeService) {
	repo := newFakeNodeRepo()
	svc := NewNodeService(repo, &fakeTxManager{}, testLogger())
	return repo, svc
}

func TestCreateNodeAssignsSlug(t *testing.T) {
	repo, svc := newTestNodeService()
	ctx := context.Background()

	node, err := svc.CreateNode(ctx, &CreateNodeRequest{Name: "Floor Plans"})
	if err != nil {
		t.Fatalf("CreateNode: %v", err)
	}

	want := fmt.Sprintf("floor-plans-%d", node.ID)
	if node.Slug != want {
		t.Errorf("slug = %q, want %q", node.Slug, want)
	}

	// The slug must be persisted, not just set on the returned struct
	stored, err := repo.GetByID(ctx, node.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Slug != want {
		t.Errorf("stored slug = %q, want %q", stored.Slug, want)
	}
}

func TestSlugAssignmentIsWriteOnce(t *testing.T) {
	repo, svc := newTestNodeService()
	ctx := context.Background()

	node, err := svc.CreateNode(ctx, &CreateNodeRequest{Name: "Floor Plans"})
	if err != nil {
		t.Fatalf("CreateNode: %v", err)
	}

	// A second assignment is a silent no-op, never an overwrite
	if err := repo.SetSlug(ctx, node.ID, "something-else"); err != nil {
		t.Fatalf("SetSlug on slugged node: %v", err)
	}

	stored, err := repo.GetByID(ctx, node.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Slug != node.Slug {
		t.Errorf("slug = %q, want %q unchanged", stored.Slug, node.Slug)
	}
}

func TestCreateNodeValidation(t *testing.T) {
	_, svc := newTestNodeService()
	ctx := context.Background()

	tests := []struct {
		name string
		req  *CreateNodeRequest
	}{
		{name: "empty name", req: &CreateNodeRequest{Name: ""}},
		{name: "slash in name", req: &CreateNodeRequest{Name: "a/b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.CreateNode(ctx, tt.req); !errors.Is(err, domain.ErrValidation) {
				t.Errorf("CreateNode(%q) error = %v, want validation error", tt.req.Name, err)
			}
		})
	}
}

func TestCreateNodeDuplicateSibling(t *testing.T) {
	_, svc := newTestNodeService()
	ctx := context.Background()

	if _, err := svc.CreateNode(ctx, &CreateNodeRequest{Name: "Reports"}); err != nil {
		t.Fatalf("first CreateNode: %v", err)
	}

	// Same name, different case, same parent
	if _, err := svc.CreateNode(ctx, &CreateNodeRequest{Name: "REPORTS"}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("duplicate sibling error = %v, want validation error", err)
	}

	// The same name under a different parent is fine
	parent, err := svc.CreateNode(ctx, &CreateNodeRequest{Name: "Archive"})
	if err != nil {
		t.Fatalf("CreateNode parent: %v", err)
	}
	if _, err := svc.CreateNode(ctx, &CreateNodeRequest{Name: "Reports", ParentID: &parent.ID}); err != nil {
		t.Errorf("same name under different parent: %v", err)
	}
}

func TestCreateNodeSidebarNamespaceIsSeparate(t *testing.T) {
	_, svc := newTestNodeService()
	ctx := context.Background()

	if _, err := svc.CreateNode(ctx, &CreateNodeRequest{Name: "Docs"}); err != nil {
		t.Fatalf("CreateNode: %v", err)
	}

	// Sidebar items live in their own uniqueness namespace
	if _, err := svc.CreateNode(ctx, &CreateNodeRequest{Name: "Docs", IsSidebarItem: true}); err != nil {
		t.Errorf("sidebar item with same name: %v", err)
	}
}

func TestCreateNodeMissingParent(t *testing.T) {
	_, svc := newTestNodeService()
	ctx := context.Background()

	missing := int64(999)
	if _, err := svc.CreateNode(ctx, &CreateNodeRequest{Name: "Child", ParentID: &missing}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("missing parent error = %v, want not found", err)
	}
}

func TestUpdateNodeRenameKeepsSlug(t *testing.T) {
	_, svc := newTestNodeService()
	ctx := context.Background()

	node, err := svc.CreateNode(ctx, &CreateNodeRequest{Name: "Old Name"})
	if err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	originalSlug := node.Slug

	updated, err := svc.UpdateNode(ctx, node.ID, &UpdateNodeRequest{Name: ptrString("New Name")})
	if err != nil {
		t.Fatalf("UpdateNode: %v", err)
	}

	if updated.Name != "New Name" {
		t.Errorf("name = %q, want %q", updated.Name, "New Name")
	}
	if updated.Slug != originalSlug {
		t.Errorf("slug changed on rename: %q -> %q", originalSlug, updated.Slug)
	}
}

func TestUpdateNodeDuplicateSibling(t *testing.T) {
	_, svc := newTestNodeService()
	ctx := context.Background()

	if _, err := svc.CreateNode(ctx, &CreateNodeRequest{Name: "Taken"}); err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	node, err := svc.CreateNode(ctx, &CreateNodeRequest{Name: "Free"})
	if err != nil {
		t.Fatalf("CreateNode: %v", err)
	}

	if _, err := svc.UpdateNode(ctx, node.ID, &UpdateNodeRequest{Name: ptrString("taken")}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("rename onto sibling error = %v, want validation error", err)
	}
}

func TestUpdateNodeMove(t *testing.T) {
	_, svc := newTestNodeService()
	ctx := context.Background()

	a, _ := svc.CreateNode(ctx, &CreateNodeRequest{Name: "A"})
	b, _ := svc.CreateNode(ctx, &CreateNodeRequest{Name: "B"})

	moved, err := svc.UpdateNode(ctx, b.ID, &UpdateNodeRequest{ParentID: &a.ID})
	if err != nil {
		t.Fatalf("UpdateNode move: %v", err)
	}
	if moved.ParentID == nil || *moved.ParentID != a.ID {
		t.Errorf("parent = %v, want %d", moved.ParentID, a.ID)
	}

	// And back to root via the explicit flag
	backToRoot, err := svc.UpdateNode(ctx, b.ID, &UpdateNodeRequest{MoveToRoot: true})
	if err != nil {
		t.Fatalf("UpdateNode move to root: %v", err)
	}
	if backToRoot.ParentID != nil {
		t.Errorf("parent = %v, want nil", backToRoot.ParentID)
	}
}

func TestUpdateNodeRejectsCycles(t *testing.T) {
	_, svc := newTestNodeService()
	ctx := context.Background()

	a, _ := svc.CreateNode(ctx, &CreateNodeRequest{Name: "A"})
	b, _ := svc.CreateNode(ctx, &CreateNodeRequest{Name: "B", ParentID: &a.ID})
	c, _ := svc.CreateNode(ctx, &CreateNodeRequest{Name: "C", ParentID: &b.ID})

	tests := []struct {
		name      string
		nodeID    int64
		newParent int64
	}{
		{name: "into itself", nodeID: a.ID, newParent: a.ID},
		{name: "into direct child", nodeID: a.ID, newParent: b.ID},
		{name: "into grandchild", nodeID: a.ID, newParent: c.ID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpdateNode(ctx, tt.nodeID, &UpdateNodeRequest{ParentID: &tt.newParent})
			if !errors.Is(err, domain.ErrValidation) {
				t.Errorf("move %d under %d error = %v, want validation error", tt.nodeID, tt.newParent, err)
			}
		})
	}
}

func TestUpdateNodeRequiresAField(t *testing.T) {
	_, svc := newTestNodeService()
	ctx := context.Background()

	node, _ := svc.CreateNode(ctx, &CreateNodeRequest{Name: "A"})

	if _, err := svc.UpdateNode(ctx, node.ID, &UpdateNodeRequest{}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("empty update error = %v, want validation error", err)
	}
}

func TestListChildren(t *testing.T) {
	_, svc := newTestNodeService()
	ctx := context.Background()

	root, _ := svc.CreateNode(ctx, &CreateNodeRequest{Name: "Root"})
	svc.CreateNode(ctx, &CreateNodeRequest{Name: "Beta", ParentID: &root.ID})
	svc.CreateNode(ctx, &CreateNodeRequest{Name: "Alpha", ParentID: &root.ID})

	children, err := svc.ListChildren(ctx, &root.ID, nil)
	if err != nil {
		t.Fatalf("ListChildren: %v", err)
	}
	if len(children) != 2 {
		t.Fatalf("len(children) = %d, want 2", len(children))
	}
	if children[0].Name != "Alpha" || children[1].Name != "Beta" {
		t.Errorf("children out of order: %s, %s", children[0].Name, children[1].Name)
	}

	// Root-level listing must not include nested nodes
	roots, err := svc.ListChildren(ctx, nil, nil)
	if err != nil {
		t.Fatalf("ListChildren roots: %v", err)
	}
	if len(roots) != 1 || roots[0].Name != "Root" {
		t.Errorf("roots = %v, want just Root", roots)
	}
}

func TestListSidebar(t *testing.T) {
	_, svc := newTestNodeService()
	ctx := context.Background()

	svc.CreateNode(ctx, &CreateNodeRequest{Name: "Hidden"})
	svc.CreateNode(ctx, &CreateNodeRequest{Name: "Pinned", IsSidebarItem: true})

	items, err := svc.ListSidebar(ctx)
	if err != nil {
		t.Fatalf("ListSidebar: %v", err)
	}
	if len(items) != 1 || items[0].Name != "Pinned" {
		t.Errorf("sidebar = %v, want just Pinned", items)
	}
}
