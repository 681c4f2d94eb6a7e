package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"valvx/internal/domain"
)

// LocalStore keeps blobs on disk under baseDir, partitioned by upload
// date (2025/05/15/<uuid>.pdf). The handle is that relative path.
type LocalStore struct {
	baseDir   string
	publicURL string // e.g. "http://localhost:8080/media"
}

// NewLocalStore creates the base directory if needed.
func NewLocalStore(baseDir, publicURL string) (*LocalStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob directory: %w", err)
	}
	return &LocalStore{
		baseDir:   baseDir,
		publicURL: strings.TrimRight(publicURL, "/"),
	}, nil
}

// Put streams the reader to a new date-partitioned file. The temp-write
// plus rename keeps half-written blobs out of the resolvable namespace.
func (s *LocalStore) Put(ctx context.Context, r io.Reader, ext string) (string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	now := time.Now().UTC()
	rel := path.Join(now.Format("2006/01/02"), uuid.NewString()+sanitizeExt(ext))

	dst := filepath.Join(s.baseDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", 0, &domain.StorageError{Message: "create blob partition", Cause: err}
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", 0, &domain.StorageError{Message: "create blob file", Cause: err}
	}

	written, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return "", 0, &domain.StorageError{Message: "write blob", Cause: err}
	}

	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return "", 0, &domain.StorageError{Message: "persist blob", Cause: err}
	}

	return rel, written, nil
}

// Open resolves a handle back to its file.
func (s *LocalStore) Open(ctx context.Context, handle string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p, err := s.resolve(handle)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("blob %s not found", handle)}
		}
		return nil, &domain.StorageError{Message: "open blob", Cause: err}
	}
	return f, nil
}

// Delete removes the blob file. Missing files are not an error; the
// handle already resolves to nothing.
func (s *LocalStore) Delete(ctx context.Context, handle string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p, err := s.resolve(handle)
	if err != nil {
		return err
	}

	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &domain.StorageError{Message: "delete blob", Cause: err}
	}
	return nil
}

// URL returns the public URL for a handle.
func (s *LocalStore) URL(handle string) string {
	return s.publicURL + "/" + handle
}

// resolve maps a handle to an absolute path, rejecting anything that
// escapes the base directory.
func (s *LocalStore) resolve(handle string) (string, error) {
	clean := path.Clean("/" + handle)[1:]
	if clean == "" || clean != handle || strings.Contains(handle, "..") {
		return "", &domain.ValidationError{Message: "invalid blob handle"}
	}
	return filepath.Join(s.baseDir, filepath.FromSlash(clean)), nil
}

func sanitizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext == "" || !strings.HasPrefix(ext, ".") {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
