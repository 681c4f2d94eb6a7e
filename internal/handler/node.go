package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"valvx/internal/access"
	"valvx/internal/domain"
	"valvx/internal/domain/models"
	"valvx/internal/httputil"
	"valvx/internal/service"
)

// NodeHandler handles HTTP requests for the directory tree
type NodeHandler struct {
	nodeService    service.NodeService
	pageService    service.PageService
	cascadeService service.CascadeService
	policy         *access.Registry
	logger         *slog.Logger
}

// NewNodeHandler creates a new directory handler
func NewNodeHandler(
	nodeService service.NodeService,
	pageService service.PageService,
	cascadeService service.CascadeService,
	policy *access.Registry,
	logger *slog.Logger,
) *NodeHandler {
	return &NodeHandler{
		nodeService:    nodeService,
		pageService:    pageService,
		cascadeService: cascadeService,
		policy:         policy,
		logger:         logger,
	}
}

// updateNodePayload mirrors service.UpdateNodeRequest but uses
// OptionalInt64 for parent so "parent": null means move to root.
type updateNodePayload struct {
	Name            *string                `json:"name"`
	Parent          httputil.OptionalInt64 `json:"parent"`
	IsSidebarItem   *bool                  `json:"is_sidebar_item"`
	HasPage         *bool                  `json:"has_page"`
	PageTitle       *string                `json:"page_title"`
	PageDescription *string                `json:"page_description"`
}

// CreateNode creates a new directory
// POST /api/directories
// Returns 201 if created, 409 with the existing directory on a duplicate name
func (h *NodeHandler) CreateNode(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, access.ActionEdit) {
		return
	}

	var req service.CreateNodeRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.CreatedBy = httputil.GetUserID(r)
	if req.ProjectID == nil {
		req.ProjectID = httputil.GetProjectID(r)
	}

	node, err := h.nodeService.CreateNode(r.Context(), &req)
	if err != nil {
		HandleCreateConflict(w, err, func() (*models.Node, error) {
			var conflictErr *domain.ConflictError
			if errors.As(err, &conflictErr) {
				return h.nodeService.GetNode(r.Context(), conflictErr.ResourceID)
			}
			return nil, err
		})
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, node)
}

// GetNode retrieves a directory by slug
// GET /api/directories/{slug}
func (h *NodeHandler) GetNode(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	if slug == "" {
		httputil.RespondError(w, http.StatusBadRequest, "directory slug is required")
		return
	}

	node, err := h.nodeService.GetNodeBySlug(r.Context(), slug)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, node)
}

// GetNodeData returns the public page projection for a directory:
// its metadata, subfolders, latest files, and parent breadcrumb
// GET /api/directories/{slug}/data
func (h *NodeHandler) GetNodeData(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	if slug == "" {
		httputil.RespondError(w, http.StatusBadRequest, "directory slug is required")
		return
	}

	page, err := h.pageService.ProjectPage(r.Context(), slug)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, page)
}

// UpdateNode renames, moves, or edits page metadata of a directory
// PATCH /api/directories/{id}
func (h *NodeHandler) UpdateNode(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, access.ActionEdit) {
		return
	}

	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var payload updateNodePayload
	if err := httputil.ParseJSON(w, r, &payload); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req := service.UpdateNodeRequest{
		Name:            payload.Name,
		IsSidebarItem:   payload.IsSidebarItem,
		HasPage:         payload.HasPage,
		PageTitle:       payload.PageTitle,
		PageDescription: payload.PageDescription,
	}
	if payload.Parent.Present {
		if payload.Parent.Value == nil {
			req.MoveToRoot = true
		} else {
			req.ParentID = payload.Parent.Value
		}
	}

	node, err := h.nodeService.UpdateNode(r.Context(), id, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, node)
}

// DeleteNode deletes a directory and everything beneath it
// DELETE /api/directories/{slug}
// The response reports what the cascade removed.
func (h *NodeHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, access.ActionDelete) {
		return
	}

	slug := r.PathValue("slug")
	if slug == "" {
		httputil.RespondError(w, http.StatusBadRequest, "directory slug is required")
		return
	}

	node, result, err := h.cascadeService.DeleteTree(r.Context(), slug)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"id":                  node.ID,
		"slug":                node.Slug,
		"deleted_directories": result.DeletedNodes,
		"deleted_files":       result.DeletedDocuments,
	})
}

// ListChildren lists child directories of a parent, or roots when no
// parent is given
// GET /api/directories?parent={id}
func (h *NodeHandler) ListChildren(w http.ResponseWriter, r *http.Request) {
	parentID, err := httputil.QueryInt64(r, "parent")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	projectID, err := httputil.QueryInt64(r, "project")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if projectID == nil {
		projectID = httputil.GetProjectID(r)
	}

	nodes, err := h.nodeService.ListChildren(r.Context(), parentID, projectID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, nodes)
}

// ListSidebar lists top-level sidebar entries in display order
// GET /api/sidebar
func (h *NodeHandler) ListSidebar(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.nodeService.ListSidebar(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, nodes)
}

// allow enforces the role policy for a mutating action. Writes a 403
// and returns false when the caller's role lacks the action.
func (h *NodeHandler) allow(w http.ResponseWriter, r *http.Request, action access.Action) bool {
	if !h.policy.Allows(httputil.GetUserRole(r), action) {
		httputil.RespondError(w, http.StatusForbidden, "insufficient permissions")
		return false
	}
	return true
}
