package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"valvx/internal/config"
	"valvx/internal/domain"
	"valvx/internal/domain/models"
	"valvx/internal/domain/repositories"
	"valvx/internal/storage"
)

// UploadRequest carries one multipart upload. Name defaults to the
// original filename without its extension; Filename must carry an
// allowed extension and Size must not exceed the configured cap.
type UploadRequest struct {
	DirectorySlug string
	Filename      string
	Name          string
	Description   string
	ContentType   string
	Size          int64
	Body          io.Reader
	UploadedBy    string
}

// DocumentContent is an open stream over a stored revision's bytes plus
// the metadata needed to serve it. The caller must close Body.
type DocumentContent struct {
	Document *models.Document
	Body     io.ReadCloser
}

// DocumentService owns document revisions and their version chains.
type DocumentService interface {
	Upload(ctx context.Context, req *UploadRequest) (*models.Document, error)
	GetDocument(ctx context.Context, id int64) (*models.Document, error)
	ListVersions(ctx context.Context, id int64) ([]models.Document, error)
	OpenContent(ctx context.Context, id int64) (*DocumentContent, error)
	DeleteDocument(ctx context.Context, id int64) error
	DocumentURL(doc *models.Document) string
}

type documentService struct {
	docRepo   repositories.DocumentRepository
	nodeRepo  repositories.NodeRepository
	blobs     storage.BlobStore
	txManager repositories.TransactionManager
	logger    *slog.Logger
}

// NewDocumentService creates a new document service
func NewDocumentService(
	docRepo repositories.DocumentRepository,
	nodeRepo repositories.NodeRepository,
	blobs storage.BlobStore,
	txManager repositories.TransactionManager,
	logger *slog.Logger,
) DocumentService {
	return &documentService{
		docRepo:   docRepo,
		nodeRepo:  nodeRepo,
		blobs:     blobs,
		txManager: txManager,
		logger:    logger,
	}
}

// Upload stores the bytes and creates a document revision. Re-uploading
// a name that already exists in the same (project, directory) extends
// that file's version chain instead of creating an independent
// document: the new revision becomes latest and the old latest is
// flipped off, inside one transaction with the old row locked first.
// The blob is written before the transaction; if the row writes fail
// the blob is removed again, so no metadata row ever commits without
// its bytes.
func (s *documentService) Upload(ctx context.Context, req *UploadRequest) (*models.Document, error) {
	if err := s.validateUpload(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	dir, err := s.nodeRepo.GetBySlug(ctx, req.DirectorySlug)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(path.Ext(req.Filename))
	name := req.Name
	if name == "" {
		name = strings.TrimSuffix(req.Filename, path.Ext(req.Filename))
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/pdf"
	}

	// The size cap is enforced again while streaming: the multipart
	// header is client-supplied and cannot be trusted alone
	limited := io.LimitReader(req.Body, int64(config.MaxUploadBytes)+1)
	handle, written, err := s.blobs.Put(ctx, limited, ext)
	if err != nil {
		return nil, err
	}
	if written > int64(config.MaxUploadBytes) {
		s.discardBlob(ctx, handle)
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("file exceeds the %d byte upload limit", config.MaxUploadBytes),
		}
	}

	now := time.Now()
	doc := &models.Document{
		Name:        name,
		DirectoryID: &dir.ID,
		ProjectID:   dir.ProjectID,
		BlobHandle:  handle,
		ContentType: contentType,
		SizeBytes:   written,
		Version:     1,
		IsLatest:    true,
		Description: req.Description,
		UploadedBy:  req.UploadedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	claimLatest := func(txCtx context.Context) error {
		doc.Version = 1
		doc.PreviousVersionID = nil

		prev, err := s.docRepo.GetLatestForUpdate(txCtx, name, dir.ProjectID, &dir.ID)
		if err != nil {
			return err
		}

		if prev != nil {
			doc.Version = prev.Version + 1
			doc.PreviousVersionID = &prev.ID
		}

		if err := s.docRepo.Create(txCtx, doc); err != nil {
			return err
		}

		if prev != nil {
			// Both writes commit together or not at all; a reader
			// never sees two latest revisions in one chain
			return s.docRepo.MarkSuperseded(txCtx, prev.ID)
		}
		return nil
	}

	err = s.txManager.ExecTx(ctx, claimLatest)
	if err != nil && isRetryableConflict(err) {
		// A concurrent upload claimed the latest slot between our lock
		// attempts; the chain state changed, one re-read settles it
		s.logger.Warn("upload lost the latest slot, retrying once",
			"name", name, "directory", dir.ID, "error", err)
		err = s.txManager.ExecTx(ctx, claimLatest)
	}
	if err != nil {
		s.discardBlob(ctx, handle)
		return nil, err
	}

	s.logger.Info("file uploaded",
		"id", doc.ID,
		"name", doc.Name,
		"version", doc.Version,
		"directory", dir.ID,
		"size", doc.SizeBytes,
	)

	return doc, nil
}

// GetDocument retrieves a document revision by ID.
func (s *documentService) GetDocument(ctx context.Context, id int64) (*models.Document, error) {
	return s.docRepo.GetByID(ctx, id)
}

// ListVersions reconstructs the full chain of the given revision,
// oldest first: walk previous_version_id back to the head, then follow
// the reverse links forward to the tail. A broken backward link stops
// the walk and the partial chain from the deepest reachable revision is
// returned; well-formed data never hits that path.
func (s *documentService) ListVersions(ctx context.Context, id int64) ([]models.Document, error) {
	doc, err := s.docRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	head := doc
	visited := map[int64]bool{doc.ID: true}
	for head.PreviousVersionID != nil {
		prev, err := s.docRepo.GetByID(ctx, *head.PreviousVersionID)
		if err != nil {
			s.logger.Warn("version chain has a broken link",
				"document", head.ID,
				"previous", *head.PreviousVersionID,
				"error", err,
			)
			break
		}
		if visited[prev.ID] {
			break
		}
		visited[prev.ID] = true
		head = prev
	}

	versions := []models.Document{*head}
	forward := map[int64]bool{head.ID: true}
	current := head
	for {
		next, err := s.docRepo.GetNextVersion(ctx, current.ID)
		if err != nil {
			return nil, err
		}
		if next == nil || forward[next.ID] {
			break
		}
		forward[next.ID] = true
		versions = append(versions, *next)
		current = next
	}

	return versions, nil
}

// OpenContent opens the stored bytes of a revision for streaming.
func (s *documentService) OpenContent(ctx context.Context, id int64) (*DocumentContent, error) {
	doc, err := s.docRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	body, err := s.blobs.Open(ctx, doc.BlobHandle)
	if err != nil {
		return nil, err
	}

	return &DocumentContent{Document: doc, Body: body}, nil
}

// DeleteDocument removes one revision. The blob delete is best-effort:
// a failure there is logged and the row is removed anyway, matching the
// contract that a dangling blob is preferable to an undeletable row.
// The remaining chain is not repaired; ListVersions still renders the
// survivors.
func (s *documentService) DeleteDocument(ctx context.Context, id int64) error {
	doc, err := s.docRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.blobs.Delete(ctx, doc.BlobHandle); err != nil {
		// Best-effort cleanup, the row delete still proceeds
		s.logger.Error("blob delete failed",
			"document", id,
			"handle", doc.BlobHandle,
			"error", err,
		)
	}

	if err := s.docRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("file deleted", "id", id, "name", doc.Name, "version", doc.Version)
	return nil
}

// DocumentURL returns the public URL of a revision's bytes.
func (s *documentService) DocumentURL(doc *models.Document) string {
	return s.blobs.URL(doc.BlobHandle)
}

// discardBlob removes a blob written for an upload whose row writes
// never committed.
func (s *documentService) discardBlob(ctx context.Context, handle string) {
	if err := s.blobs.Delete(ctx, handle); err != nil {
		s.logger.Error("orphan blob cleanup failed", "handle", handle, "error", err)
	}
}

func (s *documentService) validateUpload(req *UploadRequest) error {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.DirectorySlug, validation.Required),
		validation.Field(&req.Filename, validation.Required),
		validation.Field(&req.Name, validation.Length(0, config.MaxDocumentNameLength)),
	); err != nil {
		return err
	}

	if req.Body == nil {
		return fmt.Errorf("no file was provided")
	}

	ext := strings.ToLower(path.Ext(req.Filename))
	if !allowedExtension(ext) {
		return fmt.Errorf("file type %q is not allowed", ext)
	}

	if req.Size > int64(config.MaxUploadBytes) {
		return fmt.Errorf("file exceeds the %d byte upload limit", config.MaxUploadBytes)
	}

	return nil
}

// isRetryableConflict reports whether the error is a conflict a fresh
// attempt may win, such as losing the latest slot to a concurrent upload.
func isRetryableConflict(err error) bool {
	var conflictErr *domain.ConflictError
	return errors.As(err, &conflictErr) && conflictErr.Retryable
}

func allowedExtension(ext string) bool {
	for _, allowed := range config.AllowedUploadExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}
