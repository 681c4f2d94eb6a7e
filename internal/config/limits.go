package config

const (
	// MaxNodeNameLength is the maximum length for directory names.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255) and provide
	// reasonable UX (names should be short and descriptive).
	MaxNodeNameLength = 255

	// MaxDocumentNameLength is the maximum length for document names.
	// Same as directory names for consistency.
	MaxDocumentNameLength = 255

	// MaxPageTitleLength is the maximum length for a directory page title.
	MaxPageTitleLength = 255

	// MaxUploadBytes is the inclusive upload size cap. A file exactly
	// at the cap is accepted; one byte over is rejected.
	MaxUploadBytes = 20 << 20 // 20 MiB

	// MaxCommentLength bounds annotation comments.
	MaxCommentLength = 4000
)

// AllowedUploadExtensions lists the file extensions accepted by the
// upload endpoint, lowercase with leading dot.
var AllowedUploadExtensions = []string{".pdf"}
