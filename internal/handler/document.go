package handler

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"valvx/internal/access"
	"valvx/internal/config"
	"valvx/internal/httputil"
	"valvx/internal/service"
)

// DocumentHandler handles HTTP requests for files and their versions
type DocumentHandler struct {
	docService service.DocumentService
	policy     *access.Registry
	logger     *slog.Logger
}

// NewDocumentHandler creates a new file handler
func NewDocumentHandler(
	docService service.DocumentService,
	policy *access.Registry,
	logger *slog.Logger,
) *DocumentHandler {
	return &DocumentHandler{
		docService: docService,
		policy:     policy,
		logger:     logger,
	}
}

// Upload stores a new file revision under a directory
// POST /api/files/upload?directory_slug={slug}
// The body is multipart form data with the bytes in the "file" field.
// Optional form fields: name, description.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, access.ActionUpload) {
		return
	}

	// Form values are small; file parts beyond 32MB spill to disk
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	directorySlug := r.URL.Query().Get("directory_slug")
	if directorySlug == "" {
		directorySlug = r.FormValue("directory_slug")
	}
	if directorySlug == "" {
		httputil.RespondError(w, http.StatusBadRequest, "directory_slug is required")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	if header.Size > config.MaxUploadBytes {
		httputil.RespondError(w, http.StatusBadRequest,
			fmt.Sprintf("file exceeds the %dMB upload limit", config.MaxUploadBytes>>20))
		return
	}

	req := service.UploadRequest{
		DirectorySlug: directorySlug,
		Filename:      header.Filename,
		Name:          r.FormValue("name"),
		Description:   r.FormValue("description"),
		ContentType:   header.Header.Get("Content-Type"),
		Size:          header.Size,
		Body:          file,
		UploadedBy:    httputil.GetUserID(r),
	}

	doc, err := h.docService.Upload(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, doc)
}

// HealthCheck reports service liveness
// GET /health
func (h *DocumentHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetDocument retrieves a file revision's metadata
// GET /api/files/{id}
func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	doc, err := h.docService.GetDocument(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// ListVersions returns the full version chain containing the given
// revision, oldest first
// GET /api/files/{id}/versions
func (h *DocumentHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	versions, err := h.docService.ListVersions(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, versions)
}

// GetContent streams a revision's stored bytes
// GET /api/files/{id}/content
func (h *DocumentHandler) GetContent(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, access.ActionRead) {
		return
	}

	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	content, err := h.docService.OpenContent(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}
	defer content.Body.Close()

	w.Header().Set("Content-Type", content.Document.ContentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("inline; filename=%q", content.Document.Name))
	if content.Document.SizeBytes > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(content.Document.SizeBytes, 10))
	}

	if _, err := io.Copy(w, content.Body); err != nil {
		// Headers already sent; nothing to do but log
		h.logger.Warn("content stream interrupted", "file_id", id, "error", err)
	}
}

// DeleteDocument removes a single file revision and its blob
// DELETE /api/files/{id}
func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, access.ActionDelete) {
		return
	}

	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.docService.DeleteDocument(r.Context(), id); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *DocumentHandler) allow(w http.ResponseWriter, r *http.Request, action access.Action) bool {
	if !h.policy.Allows(httputil.GetUserRole(r), action) {
		httputil.RespondError(w, http.StatusForbidden, "insufficient permissions")
		return false
	}
	return true
}
