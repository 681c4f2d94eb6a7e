package models

import (
	"time"
)

// Node kinds. The legacy data had folders and file placeholders in the
// same table; folders are the only kind that carries a page.
const (
	NodeKindFolder = "folder"
	NodeKindFile   = "file"
)

// Node is a folder-like entry in a project's directory tree. Nodes with
// HasPage set are addressable by slug and render a public directory page.
type Node struct {
	ID              int64     `json:"id" db:"id"`
	Name            string    `json:"name" db:"name"`
	Slug            string    `json:"slug" db:"slug"` // assigned once on first persist, never changes
	ProjectID       *int64    `json:"project" db:"project_id"` // NULL = global/orphan node
	ParentID        *int64    `json:"parent" db:"parent_id"`   // NULL = root level
	Kind            string    `json:"type" db:"kind"`
	IsSidebarItem   bool      `json:"is_sidebar_item" db:"is_sidebar_item"`
	HasPage         bool      `json:"has_page" db:"has_page"`
	PageTitle       string    `json:"page_title" db:"page_title"`
	PageDescription string    `json:"page_description" db:"page_description"`
	CreatedBy       string    `json:"created_by" db:"created_by"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// CascadeResult reports what a recursive directory deletion removed.
type CascadeResult struct {
	DeletedNodes     int `json:"deleted_directories"`
	DeletedDocuments int `json:"deleted_files"`
}
