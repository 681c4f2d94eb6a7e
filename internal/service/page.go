package service

import (
	"context"
	"log/slog"

	"valvx/internal/domain/models"
	"valvx/internal/domain/repositories"
	"valvx/internal/storage"
)

// PageService assembles the read-only public page of a directory:
// breadcrumb parent, subfolders, and the latest document revisions with
// their public URLs. It never mutates anything.
type PageService interface {
	ProjectPage(ctx context.Context, slug string) (*models.DirectoryView, error)
}

type pageService struct {
	nodeRepo repositories.NodeRepository
	docRepo  repositories.DocumentRepository
	blobs    storage.BlobStore
	logger   *slog.Logger
}

// NewPageService creates a new directory page projector
func NewPageService(
	nodeRepo repositories.NodeRepository,
	docRepo repositories.DocumentRepository,
	blobs storage.BlobStore,
	logger *slog.Logger,
) PageService {
	return &pageService{
		nodeRepo: nodeRepo,
		docRepo:  docRepo,
		blobs:    blobs,
		logger:   logger,
	}
}

// ProjectPage builds the DirectoryView for the node addressed by slug.
func (s *pageService) ProjectPage(ctx context.Context, slug string) (*models.DirectoryView, error) {
	node, err := s.nodeRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	view := &models.DirectoryView{
		ID:          node.ID,
		Name:        node.Name,
		Slug:        node.Slug,
		Description: node.PageDescription,
		PageTitle:   node.PageTitle,
		Subfolders:  []models.SubfolderView{},
		Documents:   []models.DocumentView{},
	}
	if view.PageTitle == "" {
		view.PageTitle = node.Name
	}

	if node.ParentID != nil {
		parent, err := s.nodeRepo.GetByID(ctx, *node.ParentID)
		if err != nil {
			return nil, err
		}
		view.Parent = &models.ParentView{Name: parent.Name, Slug: parent.Slug}
	}

	children, err := s.nodeRepo.List(ctx, repositories.NodeFilter{
		ParentID:        &node.ID,
		HasParentFilter: true,
	})
	if err != nil {
		return nil, err
	}
	for _, child := range children {
		view.Subfolders = append(view.Subfolders, models.SubfolderView{
			Name: child.Name,
			Slug: child.Slug,
		})
	}

	docs, err := s.docRepo.ListLatestByDirectory(ctx, node.ID)
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		view.Documents = append(view.Documents, models.DocumentView{
			ID:          doc.ID,
			Name:        doc.Name,
			URL:         s.blobs.URL(doc.BlobHandle),
			ContentType: doc.ContentType,
			UploadedAt:  doc.CreatedAt,
		})
	}

	return view, nil
}
