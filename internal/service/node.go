package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"valvx/internal/config"
	"valvx/internal/domain"
	"valvx/internal/domain/models"
	"valvx/internal/domain/repositories"
)

// CreateNodeRequest creates a directory, optionally nested and
// optionally pinned to the sidebar.
type CreateNodeRequest struct {
	Name            string `json:"name"`
	ProjectID       *int64 `json:"project"`
	ParentID        *int64 `json:"parent"`
	IsSidebarItem   bool   `json:"is_sidebar_item"`
	HasPage         bool   `json:"has_page"`
	PageTitle       string `json:"page_title"`
	PageDescription string `json:"page_description"`
	CreatedBy       string `json:"-"`
}

// UpdateNodeRequest renames and/or moves a directory, and can edit its
// public page metadata. Nil fields are left unchanged.
type UpdateNodeRequest struct {
	Name            *string `json:"name"`
	ParentID        *int64  `json:"parent"`
	MoveToRoot      bool    `json:"move_to_root"`
	IsSidebarItem   *bool   `json:"is_sidebar_item"`
	HasPage         *bool   `json:"has_page"`
	PageTitle       *string `json:"page_title"`
	PageDescription *string `json:"page_description"`
}

// NodeService owns the directory tree: creation with slug assignment,
// rename/move under the sibling-uniqueness invariant, and lookups.
type NodeService interface {
	CreateNode(ctx context.Context, req *CreateNodeRequest) (*models.Node, error)
	GetNode(ctx context.Context, id int64) (*models.Node, error)
	GetNodeBySlug(ctx context.Context, slug string) (*models.Node, error)
	UpdateNode(ctx context.Context, id int64, req *UpdateNodeRequest) (*models.Node, error)
	ListChildren(ctx context.Context, parentID, projectID *int64) ([]models.Node, error)
	ListSidebar(ctx context.Context) ([]models.Node, error)
}

type nodeService struct {
	nodeRepo  repositories.NodeRepository
	txManager repositories.TransactionManager
	logger    *slog.Logger
}

// NewNodeService creates a new node service
func NewNodeService(
	nodeRepo repositories.NodeRepository,
	txManager repositories.TransactionManager,
	logger *slog.Logger,
) NodeService {
	return &nodeService{
		nodeRepo:  nodeRepo,
		txManager: txManager,
		logger:    logger,
	}
}

// CreateNode creates a directory. The insert and the follow-up slug
// assignment run in one transaction so no committed row is ever
// visible without its slug.
func (s *nodeService) CreateNode(ctx context.Context, req *CreateNodeRequest) (*models.Node, error) {
	if err := s.validateCreateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if req.ParentID != nil {
		if _, err := s.nodeRepo.GetByID(ctx, *req.ParentID); err != nil {
			return nil, fmt.Errorf("parent directory not found: %w", err)
		}
	}

	// Sibling names are unique per (project, parent, sidebar flag),
	// case-insensitively
	sibling, err := s.nodeRepo.FindSibling(ctx, req.Name, req.ProjectID, req.ParentID, req.IsSidebarItem)
	if err != nil {
		return nil, err
	}
	if sibling != nil {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("a directory named '%s' already exists here", req.Name),
		}
	}

	now := time.Now()
	node := &models.Node{
		Name:            req.Name,
		ProjectID:       req.ProjectID,
		ParentID:        req.ParentID,
		Kind:            models.NodeKindFolder,
		IsSidebarItem:   req.IsSidebarItem,
		HasPage:         req.HasPage,
		PageTitle:       req.PageTitle,
		PageDescription: req.PageDescription,
		CreatedBy:       req.CreatedBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.nodeRepo.Create(txCtx, node); err != nil {
			return err
		}
		// The slug needs the generated ID, hence the second write
		node.Slug = AllocateSlug(node.Name, node.ID)
		return s.nodeRepo.SetSlug(txCtx, node.ID, node.Slug)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("directory created",
		"id", node.ID,
		"name", node.Name,
		"slug", node.Slug,
		"project", node.ProjectID,
		"parent", node.ParentID,
	)

	return node, nil
}

// GetNode retrieves a directory by ID.
func (s *nodeService) GetNode(ctx context.Context, id int64) (*models.Node, error) {
	return s.nodeRepo.GetByID(ctx, id)
}

// GetNodeBySlug retrieves a directory by its public slug.
func (s *nodeService) GetNodeBySlug(ctx context.Context, slug string) (*models.Node, error) {
	return s.nodeRepo.GetBySlug(ctx, slug)
}

// UpdateNode renames and/or moves a directory. The sibling-uniqueness
// invariant is re-checked under the new name and parent, and a move is
// rejected when the target parent sits inside the node's own subtree.
// The slug is stable: renames never touch it.
func (s *nodeService) UpdateNode(ctx context.Context, id int64, req *UpdateNodeRequest) (*models.Node, error) {
	if err := s.validateUpdateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	node, err := s.nodeRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		node.Name = *req.Name
	}

	if req.MoveToRoot {
		node.ParentID = nil
	} else if req.ParentID != nil {
		parent, err := s.nodeRepo.GetByID(ctx, *req.ParentID)
		if err != nil {
			return nil, fmt.Errorf("parent directory not found: %w", err)
		}

		// A node reparented into its own subtree would orphan the
		// subtree into a cycle and hang every traversal
		if err := s.ensureNotDescendant(ctx, id, parent.ID); err != nil {
			return nil, err
		}

		node.ParentID = &parent.ID
	}

	if req.IsSidebarItem != nil {
		node.IsSidebarItem = *req.IsSidebarItem
	}
	if req.HasPage != nil {
		node.HasPage = *req.HasPage
	}
	if req.PageTitle != nil {
		node.PageTitle = *req.PageTitle
	}
	if req.PageDescription != nil {
		node.PageDescription = *req.PageDescription
	}

	if req.Name != nil || req.ParentID != nil || req.MoveToRoot || req.IsSidebarItem != nil {
		sibling, err := s.nodeRepo.FindSibling(ctx, node.Name, node.ProjectID, node.ParentID, node.IsSidebarItem)
		if err != nil {
			return nil, err
		}
		if sibling != nil && sibling.ID != node.ID {
			return nil, &domain.ValidationError{
				Message: fmt.Sprintf("a directory named '%s' already exists here", node.Name),
			}
		}
	}

	node.UpdatedAt = time.Now()

	if err := s.nodeRepo.Update(ctx, node); err != nil {
		return nil, err
	}

	s.logger.Info("directory updated",
		"id", node.ID,
		"name", node.Name,
		"parent", node.ParentID,
	)

	return node, nil
}

// ListChildren lists the directories directly under a parent (nil for
// root level), ordered by name.
func (s *nodeService) ListChildren(ctx context.Context, parentID, projectID *int64) ([]models.Node, error) {
	return s.nodeRepo.List(ctx, repositories.NodeFilter{
		ProjectID:       projectID,
		ParentID:        parentID,
		HasParentFilter: true,
	})
}

// ListSidebar lists every sidebar-pinned directory, ordered by name.
func (s *nodeService) ListSidebar(ctx context.Context) ([]models.Node, error) {
	return s.nodeRepo.List(ctx, repositories.NodeFilter{SidebarOnly: true})
}

// ensureNotDescendant walks upward from newParentID; finding nodeID on
// the way to the root means the move would create a cycle.
func (s *nodeService) ensureNotDescendant(ctx context.Context, nodeID, newParentID int64) error {
	if nodeID == newParentID {
		return &domain.ValidationError{Message: "cannot move a directory into itself"}
	}

	currentID := newParentID
	for {
		current, err := s.nodeRepo.GetByID(ctx, currentID)
		if err != nil {
			return err
		}
		if current.ParentID == nil {
			return nil
		}
		if *current.ParentID == nodeID {
			return &domain.ValidationError{Message: "cannot move a directory into its own subtree"}
		}
		currentID = *current.ParentID
	}
}

var nodeNamePattern = regexp.MustCompile(`^[^/]+$`)

// validateCreateRequest validates a directory creation request
func (s *nodeService) validateCreateRequest(req *CreateNodeRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Name,
			validation.Required,
			validation.Length(1, config.MaxNodeNameLength),
			validation.Match(nodeNamePattern).Error("directory name cannot contain slashes"),
		),
		validation.Field(&req.PageTitle,
			validation.Length(0, config.MaxPageTitleLength),
		),
	)
}

// validateUpdateRequest validates a directory update request
func (s *nodeService) validateUpdateRequest(req *UpdateNodeRequest) error {
	if req.Name == nil && req.ParentID == nil && !req.MoveToRoot &&
		req.IsSidebarItem == nil && req.HasPage == nil &&
		req.PageTitle == nil && req.PageDescription == nil {
		return fmt.Errorf("at least one field must be provided")
	}

	var rules []*validation.FieldRules
	if req.Name != nil {
		rules = append(rules,
			validation.Field(&req.Name,
				validation.Required,
				validation.Length(1, config.MaxNodeNameLength),
				validation.Match(nodeNamePattern).Error("directory name cannot contain slashes"),
			),
		)
	}
	if req.PageTitle != nil {
		rules = append(rules,
			validation.Field(&req.PageTitle,
				validation.Length(0, config.MaxPageTitleLength),
			),
		)
	}

	return validation.ValidateStruct(req, rules...)
}
