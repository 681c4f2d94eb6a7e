package service

import (
	"context"
	"log/slog"

	"valvx/internal/domain/models"
	"valvx/internal/domain/repositories"
	"valvx/internal/storage"
)

// CascadeService deletes a directory together with its entire subtree
// and every document stored anywhere inside it.
type CascadeService interface {
	DeleteTree(ctx context.Context, slug string) (*models.Node, *models.CascadeResult, error)
}

type cascadeService struct {
	nodeRepo  repositories.NodeRepository
	docRepo   repositories.DocumentRepository
	blobs     storage.BlobStore
	txManager repositories.TransactionManager
	logger    *slog.Logger
}

// NewCascadeService creates a new cascade deletion service
func NewCascadeService(
	nodeRepo repositories.NodeRepository,
	docRepo repositories.DocumentRepository,
	blobs storage.BlobStore,
	txManager repositories.TransactionManager,
	logger *slog.Logger,
) CascadeService {
	return &cascadeService{
		nodeRepo:  nodeRepo,
		docRepo:   docRepo,
		blobs:     blobs,
		txManager: txManager,
		logger:    logger,
	}
}

// DeleteTree removes the node addressed by slug, all its descendants,
// and every document under any of them, in one transaction. Sidebar
// flags are cleared across the subtree before any row is removed so a
// concurrent sidebar read never shows a directory mid-deletion. Blob
// bytes are removed only after the transaction commits; a blob-delete
// failure is logged and skipped, never rolled into the result.
func (s *cascadeService) DeleteTree(ctx context.Context, slug string) (*models.Node, *models.CascadeResult, error) {
	root, err := s.nodeRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, nil, err
	}

	var (
		result      models.CascadeResult
		blobHandles []string
	)

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		ids, err := s.nodeRepo.ListSubtreeIDs(txCtx, root.ID)
		if err != nil {
			return err
		}

		if err := s.nodeRepo.ClearSidebar(txCtx, ids); err != nil {
			return err
		}

		handles, err := s.docRepo.DeleteByDirectoryIDs(txCtx, ids)
		if err != nil {
			return err
		}
		blobHandles = handles
		result.DeletedDocuments = len(handles)

		deleted, err := s.nodeRepo.DeleteByIDs(txCtx, ids)
		if err != nil {
			return err
		}
		result.DeletedNodes = deleted

		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	// Row state is already committed; blob cleanup is best-effort
	for _, handle := range blobHandles {
		if err := s.blobs.Delete(ctx, handle); err != nil {
			s.logger.Error("blob delete failed during cascade",
				"handle", handle,
				"directory", root.ID,
				"error", err,
			)
		}
	}

	s.logger.Info("directory tree deleted",
		"id", root.ID,
		"slug", root.Slug,
		"directories", result.DeletedNodes,
		"files", result.DeletedDocuments,
	)

	return root, &result, nil
}
