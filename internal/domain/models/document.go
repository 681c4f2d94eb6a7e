package models

import (
	"time"
)

// Document is one stored revision of a logical file. Revisions of the
// same file form a backward-linked chain through PreviousVersionID;
// exactly one member of a chain has IsLatest set at any time.
type Document struct {
	ID                int64     `json:"id" db:"id"`
	Name              string    `json:"name" db:"name"`
	DirectoryID       *int64    `json:"directory" db:"directory_id"` // NULL = orphan document
	ProjectID         *int64    `json:"project" db:"project_id"`
	BlobHandle        string    `json:"-" db:"blob_handle"`
	ContentType       string    `json:"content_type" db:"content_type"`
	SizeBytes         int64     `json:"size" db:"size_bytes"`
	Version           int       `json:"version" db:"version"` // starts at 1, +1 per revision
	PreviousVersionID *int64    `json:"previous_version" db:"previous_version_id"`
	IsLatest          bool      `json:"is_latest" db:"is_latest"`
	Description       string    `json:"description" db:"description"`
	UploadedBy        string    `json:"uploaded_by" db:"uploaded_by"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}
