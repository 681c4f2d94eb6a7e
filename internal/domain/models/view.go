package models

import (
	"time"
)

// DirectoryView is the read-only projection of a node's public page:
// breadcrumb parent, subfolders, and the latest document revisions.
type DirectoryView struct {
	ID          int64              `json:"id"`
	Name        string             `json:"name"`
	Slug        string             `json:"slug"`
	Description string             `json:"description"`
	PageTitle   string             `json:"page_title"` // falls back to Name when unset
	Subfolders  []SubfolderView    `json:"subfolders"`
	Documents   []DocumentView     `json:"files"`
	Parent      *ParentView        `json:"parent,omitempty"`
}

// SubfolderView is the minimal child-folder entry on a directory page.
type SubfolderView struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// ParentView is the breadcrumb link back to the enclosing folder.
type ParentView struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// DocumentView is a directory-page document entry. URL is produced by
// the blob store's public-URL capability, not computed here.
type DocumentView struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	URL         string    `json:"file"`
	ContentType string    `json:"content_type"`
	UploadedAt  time.Time `json:"uploaded_at"`
}
