package models

import (
	"time"
)

// Annotation statuses mirror the review workflow states a markup can be in.
const (
	AnnotationStatusNewComment     = "new_comment"
	AnnotationStatusActionRequired = "action_required"
	AnnotationStatusRejected       = "rejected"
	AnnotationStatusNewReview      = "new_review"
	AnnotationStatusOtherForum     = "other_forum"
	AnnotationStatusResolved       = "resolved"
)

// AnnotationStatuses lists every valid status value, for validation.
var AnnotationStatuses = []string{
	AnnotationStatusNewComment,
	AnnotationStatusActionRequired,
	AnnotationStatusRejected,
	AnnotationStatusNewReview,
	AnnotationStatusOtherForum,
	AnnotationStatusResolved,
}

// Annotation is a positioned markup on one page of a stored document.
type Annotation struct {
	ID         int64      `json:"id" db:"id"`
	DocumentID int64      `json:"file" db:"document_id"`
	ProjectID  *int64     `json:"project" db:"project_id"`
	X          float64    `json:"x" db:"x"`
	Y          float64    `json:"y" db:"y"`
	Width      float64    `json:"width" db:"width"`
	Height     float64    `json:"height" db:"height"`
	PageNumber int        `json:"page_number" db:"page_number"`
	Comment    string     `json:"comment" db:"comment"`
	Color      string     `json:"color" db:"color"`
	Status     string     `json:"status" db:"status"`
	CreatedBy  string     `json:"created_by" db:"created_by"`
	AssignedTo *string    `json:"assigned_to" db:"assigned_to"`
	Deadline   *time.Time `json:"deadline" db:"deadline"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}
