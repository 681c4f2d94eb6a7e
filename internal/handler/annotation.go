package handler

import (
	"log/slog"
	"net/http"

	"valvx/internal/access"
	"valvx/internal/httputil"
	"valvx/internal/service"
)

// AnnotationHandler handles HTTP requests for file markups
type AnnotationHandler struct {
	annService service.AnnotationService
	policy     *access.Registry
	logger     *slog.Logger
}

// NewAnnotationHandler creates a new annotation handler
func NewAnnotationHandler(
	annService service.AnnotationService,
	policy *access.Registry,
	logger *slog.Logger,
) *AnnotationHandler {
	return &AnnotationHandler{
		annService: annService,
		policy:     policy,
		logger:     logger,
	}
}

// CreateAnnotation places a markup on a page of a file revision
// POST /api/files/{id}/annotations
func (h *AnnotationHandler) CreateAnnotation(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, access.ActionAnnotate) {
		return
	}

	documentID, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req service.CreateAnnotationRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.CreatedBy = httputil.GetUserID(r)

	ann, err := h.annService.CreateAnnotation(r.Context(), documentID, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, ann)
}

// ListAnnotations lists all markups on a file revision
// GET /api/files/{id}/annotations
func (h *AnnotationHandler) ListAnnotations(w http.ResponseWriter, r *http.Request) {
	documentID, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	anns, err := h.annService.ListAnnotations(r.Context(), documentID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, anns)
}

// UpdateAnnotation edits a markup's comment, status, or assignment
// PATCH /api/annotations/{id}
func (h *AnnotationHandler) UpdateAnnotation(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, access.ActionAnnotate) {
		return
	}

	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req service.UpdateAnnotationRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ann, err := h.annService.UpdateAnnotation(r.Context(), id, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, ann)
}

// DeleteAnnotation removes a markup
// DELETE /api/annotations/{id}
func (h *AnnotationHandler) DeleteAnnotation(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, access.ActionAnnotate) {
		return
	}

	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.annService.DeleteAnnotation(r.Context(), id); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *AnnotationHandler) allow(w http.ResponseWriter, r *http.Request, action access.Action) bool {
	if !h.policy.Allows(httputil.GetUserRole(r), action) {
		httputil.RespondError(w, http.StatusForbidden, "insufficient permissions")
		return false
	}
	return true
}
