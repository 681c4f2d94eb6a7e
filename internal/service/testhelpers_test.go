package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"valvx/internal/domain"
	"valvx/internal/domain/models"
	"valvx/internal/domain/repositories"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptrInt64(n int64) *int64 { return &n }

func ptrString(s string) *string { return &s }

func ptrBool(b bool) *bool { return &b }

func ptrEq(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// fakeTxManager runs the function directly; the fakes have no
// transactional state to isolate.
type fakeTxManager struct{}

func (m *fakeTxManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	return fn(ctx)
}

// fakeNodeRepo is an in-memory NodeRepository.
type fakeNodeRepo struct {
	nodes  map[int64]*models.Node
	nextID int64
}

func newFakeNodeRepo() *fakeNodeRepo {
	return &fakeNodeRepo{nodes: make(map[int64]*models.Node)}
}

func (r *fakeNodeRepo) Create(ctx context.Context, node *models.Node) error {
	r.nextID++
	node.ID = r.nextID
	copied := *node
	r.nodes[node.ID] = &copied
	return nil
}

func (r *fakeNodeRepo) SetSlug(ctx context.Context, id int64, slug string) error {
	node, ok := r.nodes[id]
	if !ok {
		return &domain.NotFoundError{Message: fmt.Sprintf("directory %d not found", id)}
	}
	// Write-once, like the real UPDATE ... WHERE slug = '': a node that
	// already has a slug is left untouched without error
	if node.Slug != "" {
		return nil
	}
	node.Slug = slug
	return nil
}

func (r *fakeNodeRepo) GetByID(ctx context.Context, id int64) (*models.Node, error) {
	node, ok := r.nodes[id]
	if !ok {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("directory %d not found", id)}
	}
	copied := *node
	return &copied, nil
}

func (r *fakeNodeRepo) GetBySlug(ctx context.Context, slug string) (*models.Node, error) {
	for _, node := range r.nodes {
		if node.Slug == slug {
			copied := *node
			return &copied, nil
		}
	}
	return nil, &domain.NotFoundError{Message: fmt.Sprintf("directory %q not found", slug)}
}

func (r *fakeNodeRepo) FindSibling(ctx context.Context, name string, projectID, parentID *int64, isSidebarItem bool) (*models.Node, error) {
	for _, node := range r.nodes {
		if strings.EqualFold(node.Name, name) &&
			ptrEq(node.ProjectID, projectID) &&
			ptrEq(node.ParentID, parentID) &&
			node.IsSidebarItem == isSidebarItem {
			copied := *node
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeNodeRepo) Update(ctx context.Context, node *models.Node) error {
	if _, ok := r.nodes[node.ID]; !ok {
		return &domain.NotFoundError{Message: fmt.Sprintf("directory %d not found", node.ID)}
	}
	copied := *node
	r.nodes[node.ID] = &copied
	return nil
}

func (r *fakeNodeRepo) List(ctx context.Context, filter repositories.NodeFilter) ([]models.Node, error) {
	var out []models.Node
	for _, node := range r.nodes {
		if filter.SidebarOnly && !node.IsSidebarItem {
			continue
		}
		if filter.ProjectID != nil && !ptrEq(node.ProjectID, filter.ProjectID) {
			continue
		}
		if filter.HasParentFilter && !ptrEq(node.ParentID, filter.ParentID) {
			continue
		}
		if filter.Kind != "" && node.Kind != filter.Kind {
			continue
		}
		out = append(out, *node)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *fakeNodeRepo) ListSubtreeIDs(ctx context.Context, rootID int64) ([]int64, error) {
	if _, ok := r.nodes[rootID]; !ok {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("directory %d not found", rootID)}
	}

	ids := []int64{rootID}
	frontier := []int64{rootID}
	for len(frontier) > 0 {
		var next []int64
		for _, parent := range frontier {
			var children []int64
			for _, node := range r.nodes {
				if node.ParentID != nil && *node.ParentID == parent {
					children = append(children, node.ID)
				}
			}
			sort.Slice(children, func(i, j int) bool { return children[i] < children[j] })
			next = append(next, children...)
		}
		ids = append(ids, next...)
		frontier = next
	}
	return ids, nil
}

func (r *fakeNodeRepo) ClearSidebar(ctx context.Context, ids []int64) error {
	for _, id := range ids {
		if node, ok := r.nodes[id]; ok {
			node.IsSidebarItem = false
		}
	}
	return nil
}

func (r *fakeNodeRepo) DeleteByIDs(ctx context.Context, ids []int64) (int, error) {
	deleted := 0
	for _, id := range ids {
		if _, ok := r.nodes[id]; ok {
			delete(r.nodes, id)
			deleted++
		}
	}
	return deleted, nil
}

// fakeDocRepo is an in-memory DocumentRepository.
type fakeDocRepo struct {
	docs        map[int64]*models.Document
	nextID      int64
	createErr   error // returned while createFails != 0
	createFails int   // failing Create calls remaining, -1 for always
}

func newFakeDocRepo() *fakeDocRepo {
	return &fakeDocRepo{docs: make(map[int64]*models.Document)}
}

func (r *fakeDocRepo) Create(ctx context.Context, doc *models.Document) error {
	if r.createFails != 0 {
		if r.createFails > 0 {
			r.createFails--
		}
		return r.createErr
	}
	r.nextID++
	doc.ID = r.nextID
	copied := *doc
	r.docs[doc.ID] = &copied
	return nil
}

func (r *fakeDocRepo) GetByID(ctx context.Context, id int64) (*models.Document, error) {
	doc, ok := r.docs[id]
	if !ok {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("file %d not found", id)}
	}
	copied := *doc
	return &copied, nil
}

func (r *fakeDocRepo) GetLatestForUpdate(ctx context.Context, name string, projectID, directoryID *int64) (*models.Document, error) {
	for _, doc := range r.docs {
		if doc.IsLatest &&
			strings.EqualFold(doc.Name, name) &&
			ptrEq(doc.ProjectID, projectID) &&
			ptrEq(doc.DirectoryID, directoryID) {
			copied := *doc
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeDocRepo) MarkSuperseded(ctx context.Context, id int64) error {
	doc, ok := r.docs[id]
	if !ok {
		return &domain.NotFoundError{Message: fmt.Sprintf("file %d not found", id)}
	}
	if !doc.IsLatest {
		return &domain.ConsistencyError{Message: fmt.Sprintf("file %d is already superseded", id)}
	}
	doc.IsLatest = false
	return nil
}

func (r *fakeDocRepo) GetNextVersion(ctx context.Context, id int64) (*models.Document, error) {
	for _, doc := range r.docs {
		if doc.PreviousVersionID != nil && *doc.PreviousVersionID == id {
			copied := *doc
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeDocRepo) ListLatestByDirectory(ctx context.Context, directoryID int64) ([]models.Document, error) {
	var out []models.Document
	for _, doc := range r.docs {
		if doc.IsLatest && doc.DirectoryID != nil && *doc.DirectoryID == directoryID {
			out = append(out, *doc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *fakeDocRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.docs[id]; !ok {
		return &domain.NotFoundError{Message: fmt.Sprintf("file %d not found", id)}
	}
	delete(r.docs, id)
	// The previous_version_id FK is ON DELETE SET NULL; successors of a
	// removed revision lose their back link, not their row
	for _, doc := range r.docs {
		if doc.PreviousVersionID != nil && *doc.PreviousVersionID == id {
			doc.PreviousVersionID = nil
		}
	}
	return nil
}

func (r *fakeDocRepo) DeleteByDirectoryIDs(ctx context.Context, directoryIDs []int64) ([]string, error) {
	inSet := make(map[int64]bool, len(directoryIDs))
	for _, id := range directoryIDs {
		inSet[id] = true
	}

	var handles []string
	for id, doc := range r.docs {
		if doc.DirectoryID != nil && inSet[*doc.DirectoryID] {
			handles = append(handles, doc.BlobHandle)
			delete(r.docs, id)
		}
	}
	return handles, nil
}

// fakeAnnRepo is an in-memory AnnotationRepository.
type fakeAnnRepo struct {
	anns   map[int64]*models.Annotation
	nextID int64
}

func newFakeAnnRepo() *fakeAnnRepo {
	return &fakeAnnRepo{anns: make(map[int64]*models.Annotation)}
}

func (r *fakeAnnRepo) Create(ctx context.Context, ann *models.Annotation) error {
	r.nextID++
	ann.ID = r.nextID
	copied := *ann
	r.anns[ann.ID] = &copied
	return nil
}

func (r *fakeAnnRepo) GetByID(ctx context.Context, id int64) (*models.Annotation, error) {
	ann, ok := r.anns[id]
	if !ok {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("annotation %d not found", id)}
	}
	copied := *ann
	return &copied, nil
}

func (r *fakeAnnRepo) ListByDocument(ctx context.Context, documentID int64) ([]models.Annotation, error) {
	var out []models.Annotation
	for _, ann := range r.anns {
		if ann.DocumentID == documentID {
			out = append(out, *ann)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PageNumber != out[j].PageNumber {
			return out[i].PageNumber < out[j].PageNumber
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *fakeAnnRepo) Update(ctx context.Context, ann *models.Annotation) error {
	if _, ok := r.anns[ann.ID]; !ok {
		return &domain.NotFoundError{Message: fmt.Sprintf("annotation %d not found", ann.ID)}
	}
	copied := *ann
	r.anns[ann.ID] = &copied
	return nil
}

func (r *fakeAnnRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.anns[id]; !ok {
		return &domain.NotFoundError{Message: fmt.Sprintf("annotation %d not found", id)}
	}
	delete(r.anns, id)
	return nil
}

// memBlobStore keeps blobs in memory.
type memBlobStore struct {
	blobs      map[string][]byte
	nextHandle int
	deleteErr  error // returned by Delete when set
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{blobs: make(map[string][]byte)}
}

func (s *memBlobStore) Put(ctx context.Context, r io.Reader, ext string) (string, int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", 0, &domain.StorageError{Message: "read blob", Cause: err}
	}
	s.nextHandle++
	handle := fmt.Sprintf("2025/01/01/blob-%d%s", s.nextHandle, ext)
	s.blobs[handle] = data
	return handle, int64(len(data)), nil
}

func (s *memBlobStore) Open(ctx context.Context, handle string) (io.ReadCloser, error) {
	data, ok := s.blobs[handle]
	if !ok {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("blob %s not found", handle)}
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memBlobStore) Delete(ctx context.Context, handle string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.blobs, handle)
	return nil
}

func (s *memBlobStore) URL(handle string) string {
	return "http://localhost:8080/media/" + handle
}
