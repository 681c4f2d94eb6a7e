package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"valvx/internal/config"
	"valvx/internal/domain"
	"valvx/internal/domain/models"
	"valvx/internal/domain/repositories"
)

// CreateAnnotationRequest places a markup on one page of a document.
type CreateAnnotationRequest struct {
	X          float64    `json:"x"`
	Y          float64    `json:"y"`
	Width      float64    `json:"width"`
	Height     float64    `json:"height"`
	PageNumber int        `json:"page_number"`
	Comment    string     `json:"comment"`
	Color      string     `json:"color"`
	Status     string     `json:"status"`
	AssignedTo *string    `json:"assigned_to"`
	Deadline   *time.Time `json:"deadline"`
	CreatedBy  string     `json:"-"`
}

// UpdateAnnotationRequest edits a markup. Nil fields are left unchanged.
type UpdateAnnotationRequest struct {
	Comment    *string    `json:"comment"`
	Color      *string    `json:"color"`
	Status     *string    `json:"status"`
	AssignedTo *string    `json:"assigned_to"`
	Deadline   *time.Time `json:"deadline"`
}

// AnnotationService owns document markups.
type AnnotationService interface {
	CreateAnnotation(ctx context.Context, documentID int64, req *CreateAnnotationRequest) (*models.Annotation, error)
	ListAnnotations(ctx context.Context, documentID int64) ([]models.Annotation, error)
	UpdateAnnotation(ctx context.Context, id int64, req *UpdateAnnotationRequest) (*models.Annotation, error)
	DeleteAnnotation(ctx context.Context, id int64) error
}

type annotationService struct {
	annRepo repositories.AnnotationRepository
	docRepo repositories.DocumentRepository
	logger  *slog.Logger
}

// NewAnnotationService creates a new annotation service
func NewAnnotationService(
	annRepo repositories.AnnotationRepository,
	docRepo repositories.DocumentRepository,
	logger *slog.Logger,
) AnnotationService {
	return &annotationService{
		annRepo: annRepo,
		docRepo: docRepo,
		logger:  logger,
	}
}

// CreateAnnotation validates and stores a markup on the given document.
func (s *annotationService) CreateAnnotation(ctx context.Context, documentID int64, req *CreateAnnotationRequest) (*models.Annotation, error) {
	if err := s.validateCreateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = models.AnnotationStatusNewComment
	}

	now := time.Now()
	ann := &models.Annotation{
		DocumentID: doc.ID,
		ProjectID:  doc.ProjectID,
		X:          req.X,
		Y:          req.Y,
		Width:      req.Width,
		Height:     req.Height,
		PageNumber: req.PageNumber,
		Comment:    req.Comment,
		Color:      req.Color,
		Status:     status,
		CreatedBy:  req.CreatedBy,
		AssignedTo: req.AssignedTo,
		Deadline:   req.Deadline,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.annRepo.Create(ctx, ann); err != nil {
		return nil, err
	}

	s.logger.Info("annotation created",
		"id", ann.ID,
		"file", ann.DocumentID,
		"page", ann.PageNumber,
	)

	return ann, nil
}

// ListAnnotations returns a document's markups.
func (s *annotationService) ListAnnotations(ctx context.Context, documentID int64) ([]models.Annotation, error) {
	if _, err := s.docRepo.GetByID(ctx, documentID); err != nil {
		return nil, err
	}
	return s.annRepo.ListByDocument(ctx, documentID)
}

// UpdateAnnotation edits comment, color, status, assignee or deadline.
func (s *annotationService) UpdateAnnotation(ctx context.Context, id int64, req *UpdateAnnotationRequest) (*models.Annotation, error) {
	if err := s.validateUpdateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	ann, err := s.annRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Comment != nil {
		ann.Comment = *req.Comment
	}
	if req.Color != nil {
		ann.Color = *req.Color
	}
	if req.Status != nil {
		ann.Status = *req.Status
	}
	if req.AssignedTo != nil {
		ann.AssignedTo = req.AssignedTo
	}
	if req.Deadline != nil {
		ann.Deadline = req.Deadline
	}
	ann.UpdatedAt = time.Now()

	if err := s.annRepo.Update(ctx, ann); err != nil {
		return nil, err
	}

	return ann, nil
}

// DeleteAnnotation removes a markup.
func (s *annotationService) DeleteAnnotation(ctx context.Context, id int64) error {
	if err := s.annRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("annotation deleted", "id", id)
	return nil
}

func (s *annotationService) validateCreateRequest(req *CreateAnnotationRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.PageNumber, validation.Required, validation.Min(1)),
		validation.Field(&req.Width, validation.Min(0.0)),
		validation.Field(&req.Height, validation.Min(0.0)),
		validation.Field(&req.Comment, validation.Length(0, config.MaxCommentLength)),
		validation.Field(&req.Status, validation.In(statusValues()...)),
	)
}

func (s *annotationService) validateUpdateRequest(req *UpdateAnnotationRequest) error {
	if req.Comment == nil && req.Color == nil && req.Status == nil &&
		req.AssignedTo == nil && req.Deadline == nil {
		return fmt.Errorf("at least one field must be provided")
	}

	var rules []*validation.FieldRules
	if req.Comment != nil {
		rules = append(rules,
			validation.Field(&req.Comment, validation.Length(0, config.MaxCommentLength)),
		)
	}
	if req.Status != nil {
		rules = append(rules,
			validation.Field(&req.Status, validation.Required, validation.In(statusValues()...)),
		)
	}

	return validation.ValidateStruct(req, rules...)
}

func statusValues() []interface{} {
	values := make([]interface{}, 0, len(models.AnnotationStatuses))
	for _, s := range models.AnnotationStatuses {
		values = append(values, s)
	}
	return values
}
