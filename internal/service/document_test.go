package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"valvx/internal/config"
	"valvx/internal/domain"
)

type docTestEnv struct {
	nodeRepo *fakeNodeRepo
	docRepo  *fakeDocRepo
	blobs    *memBlobStore
	nodes    NodeService
	docs     DocumentService
}

func newDocTestEnv() *docTestEnv {
	nodeRepo := newFakeNodeRepo()
	docRepo := newFakeDocRepo()
	blobs := newMemBlobStore()
	tx := &fakeTxManager{}
	return &docTestEnv{
		nodeRepo: nodeRepo,
		docRepo:  docRepo,
		blobs:    blobs,
		nodes:    NewNodeService(nodeRepo, tx, testLogger()),
		docs:     NewDocumentService(docRepo, nodeRepo, blobs, tx, testLogger()),
	}
}

func (e *docTestEnv) mustCreateDir(t *testing.T, name string) string {
	t.Helper()
	node, err := e.nodes.CreateNode(context.Background(), &CreateNodeRequest{Name: name})
	if err != nil {
		t.Fatalf("CreateNode(%q): %v", name, err)
	}
	return node.Slug
}

func uploadReq(slug, filename string, body string) *UploadRequest {
	return &UploadRequest{
		DirectorySlug: slug,
		Filename:      filename,
		ContentType:   "application/pdf",
		Size:          int64(len(body)),
		Body:          strings.NewReader(body),
	}
}

func TestUploadVersionChain(t *testing.T) {
	env := newDocTestEnv()
	ctx := context.Background()
	slug := env.mustCreateDir(t, "Reports")

	var lastID int64
	for i := 1; i <= 3; i++ {
		doc, err := env.docs.Upload(ctx, uploadReq(slug, "budget.pdf", strings.Repeat("x", i)))
		if err != nil {
			t.Fatalf("upload %d: %v", i, err)
		}
		if doc.Version != i {
			t.Errorf("upload %d: version = %d, want %d", i, doc.Version, i)
		}
		if !doc.IsLatest {
			t.Errorf("upload %d: not marked latest", i)
		}
		if i == 1 && doc.PreviousVersionID != nil {
			t.Errorf("first upload has a previous version")
		}
		if i > 1 && (doc.PreviousVersionID == nil || *doc.PreviousVersionID != lastID) {
			t.Errorf("upload %d: previous = %v, want %d", i, doc.PreviousVersionID, lastID)
		}
		lastID = doc.ID
	}

	// Exactly one latest revision in the chain
	latestCount := 0
	for _, d := range env.docRepo.docs {
		if d.IsLatest {
			latestCount++
		}
	}
	if latestCount != 1 {
		t.Errorf("latest count = %d, want 1", latestCount)
	}

	// Every revision ID resolves the same full chain, oldest first
	for id := int64(1); id <= 3; id++ {
		versions, err := env.docs.ListVersions(ctx, id)
		if err != nil {
			t.Fatalf("ListVersions(%d): %v", id, err)
		}
		if len(versions) != 3 {
			t.Fatalf("ListVersions(%d) len = %d, want 3", id, len(versions))
		}
		for i, v := range versions {
			if v.Version != i+1 {
				t.Errorf("ListVersions(%d)[%d].Version = %d, want %d", id, i, v.Version, i+1)
			}
		}
	}
}

func TestUploadSameNameDifferentDirectory(t *testing.T) {
	env := newDocTestEnv()
	ctx := context.Background()
	slugA := env.mustCreateDir(t, "A")
	slugB := env.mustCreateDir(t, "B")

	docA, err := env.docs.Upload(ctx, uploadReq(slugA, "plan.pdf", "aaa"))
	if err != nil {
		t.Fatalf("upload A: %v", err)
	}
	docB, err := env.docs.Upload(ctx, uploadReq(slugB, "plan.pdf", "bbb"))
	if err != nil {
		t.Fatalf("upload B: %v", err)
	}

	// Separate directories start separate chains
	if docB.Version != 1 || docB.PreviousVersionID != nil {
		t.Errorf("doc in B joined A's chain: version=%d previous=%v", docB.Version, docB.PreviousVersionID)
	}
	if !docA.IsLatest || !docB.IsLatest {
		t.Errorf("both chains should keep their latest flags")
	}
}

func TestUploadRejectsExtension(t *testing.T) {
	env := newDocTestEnv()
	ctx := context.Background()
	slug := env.mustCreateDir(t, "Reports")

	tests := []string{"malware.exe", "notes.txt", "archive", "report.pdf.bak"}
	for _, filename := range tests {
		t.Run(filename, func(t *testing.T) {
			_, err := env.docs.Upload(ctx, uploadReq(slug, filename, "data"))
			if !errors.Is(err, domain.ErrValidation) {
				t.Errorf("Upload(%q) error = %v, want validation error", filename, err)
			}
		})
	}

	if len(env.blobs.blobs) != 0 {
		t.Errorf("rejected uploads left %d blobs behind", len(env.blobs.blobs))
	}
}

func TestUploadRejectsOversizeDeclaration(t *testing.T) {
	env := newDocTestEnv()
	ctx := context.Background()
	slug := env.mustCreateDir(t, "Reports")

	req := uploadReq(slug, "huge.pdf", "tiny body")
	req.Size = int64(config.MaxUploadBytes) + 1

	if _, err := env.docs.Upload(ctx, req); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("oversize error = %v, want validation error", err)
	}
	if len(env.blobs.blobs) != 0 {
		t.Errorf("oversize upload left blobs behind")
	}
}

func TestUploadUnknownDirectory(t *testing.T) {
	env := newDocTestEnv()
	ctx := context.Background()

	_, err := env.docs.Upload(ctx, uploadReq("no-such-dir-1", "a.pdf", "data"))
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown directory error = %v, want not found", err)
	}
}

func TestUploadContentRoundTrip(t *testing.T) {
	env := newDocTestEnv()
	ctx := context.Background()
	slug := env.mustCreateDir(t, "Reports")

	payload := "%PDF-1.7 fake inspection report"
	doc, err := env.docs.Upload(ctx, uploadReq(slug, "site report.pdf", payload))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if doc.Name != "site report" {
		t.Errorf("name = %q, want filename without extension", doc.Name)
	}
	if doc.SizeBytes != int64(len(payload)) {
		t.Errorf("size = %d, want %d", doc.SizeBytes, len(payload))
	}

	content, err := env.docs.OpenContent(ctx, doc.ID)
	if err != nil {
		t.Fatalf("OpenContent: %v", err)
	}
	defer content.Body.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, content.Body); err != nil {
		t.Fatalf("read content: %v", err)
	}
	if buf.String() != payload {
		t.Errorf("content round trip mismatch")
	}
}

func TestUploadRowFailureDiscardsBlob(t *testing.T) {
	env := newDocTestEnv()
	ctx := context.Background()
	slug := env.mustCreateDir(t, "Reports")

	env.docRepo.createErr = &domain.StorageError{Message: "insert failed"}
	env.docRepo.createFails = -1

	if _, err := env.docs.Upload(ctx, uploadReq(slug, "a.pdf", "data")); err == nil {
		t.Fatalf("expected upload to fail")
	}

	// The blob written before the row insert must not survive the failure
	if len(env.blobs.blobs) != 0 {
		t.Errorf("failed upload left %d orphan blobs", len(env.blobs.blobs))
	}
}

func TestDeleteDocumentBlobFailureIsBestEffort(t *testing.T) {
	env := newDocTestEnv()
	ctx := context.Background()
	slug := env.mustCreateDir(t, "Reports")

	doc, err := env.docs.Upload(ctx, uploadReq(slug, "a.pdf", "data"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	env.blobs.deleteErr = &domain.StorageError{Message: "disk gone"}

	if err := env.docs.DeleteDocument(ctx, doc.ID); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}

	// The row must be gone even though the blob delete failed
	if _, err := env.docs.GetDocument(ctx, doc.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetDocument after delete = %v, want not found", err)
	}
}

func TestDeleteOldRevisionKeepsChainReadable(t *testing.T) {
	env := newDocTestEnv()
	ctx := context.Background()
	slug := env.mustCreateDir(t, "Reports")

	var ids []int64
	for i := 1; i <= 3; i++ {
		doc, err := env.docs.Upload(ctx, uploadReq(slug, "plan.pdf", strings.Repeat("y", i)))
		if err != nil {
			t.Fatalf("upload %d: %v", i, err)
		}
		ids = append(ids, doc.ID)
	}

	// Remove the middle revision; the FK nulls the successor's back
	// link, so the walk from the newest revision finds only itself
	if err := env.docs.DeleteDocument(ctx, ids[1]); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}

	versions, err := env.docs.ListVersions(ctx, ids[2])
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if len(versions) != 1 || versions[0].ID != ids[2] {
		t.Errorf("versions after broken link = %v, want just the newest revision", versions)
	}
}

func TestDeleteSupersededRevisionClearsBackLink(t *testing.T) {
	env := newDocTestEnv()
	ctx := context.Background()
	slug := env.mustCreateDir(t, "Reports")

	v1, err := env.docs.Upload(ctx, uploadReq(slug, "plan.pdf", "first"))
	if err != nil {
		t.Fatalf("upload v1: %v", err)
	}
	v2, err := env.docs.Upload(ctx, uploadReq(slug, "plan.pdf", "second"))
	if err != nil {
		t.Fatalf("upload v2: %v", err)
	}

	// Deleting a revision that a successor still points at must work;
	// the successor keeps its row and loses only the back link
	if err := env.docs.DeleteDocument(ctx, v1.ID); err != nil {
		t.Fatalf("DeleteDocument(superseded): %v", err)
	}

	survivor, err := env.docs.GetDocument(ctx, v2.ID)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if survivor.PreviousVersionID != nil {
		t.Errorf("previous_version = %d, want cleared", *survivor.PreviousVersionID)
	}

	versions, err := env.docs.ListVersions(ctx, v2.ID)
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if len(versions) != 1 || versions[0].ID != v2.ID {
		t.Errorf("versions = %v, want just the surviving revision", versions)
	}
}

func TestUploadRetriesLostLatestRace(t *testing.T) {
	env := newDocTestEnv()
	ctx := context.Background()
	slug := env.mustCreateDir(t, "Reports")

	if _, err := env.docs.Upload(ctx, uploadReq(slug, "plan.pdf", "first")); err != nil {
		t.Fatalf("upload v1: %v", err)
	}

	// First insert attempt loses the latest slot to a concurrent
	// upload; the second attempt re-reads the chain and wins
	env.docRepo.createErr = &domain.ConflictError{
		Message:      "a concurrent upload of 'plan' is in progress",
		ResourceType: "file",
		Retryable:    true,
	}
	env.docRepo.createFails = 1

	doc, err := env.docs.Upload(ctx, uploadReq(slug, "plan.pdf", "second"))
	if err != nil {
		t.Fatalf("upload after transient conflict: %v", err)
	}
	if doc.Version != 2 {
		t.Errorf("version = %d, want 2", doc.Version)
	}
	if len(env.blobs.blobs) != 2 {
		t.Errorf("blob count = %d, want 2 (retry must reuse the written blob)", len(env.blobs.blobs))
	}
}

func TestUploadPersistentConflictSurfacesAfterOneRetry(t *testing.T) {
	env := newDocTestEnv()
	ctx := context.Background()
	slug := env.mustCreateDir(t, "Reports")

	env.docRepo.createErr = &domain.ConflictError{
		Message:   "a concurrent upload of 'plan' is in progress",
		Retryable: true,
	}
	env.docRepo.createFails = -1

	if _, err := env.docs.Upload(ctx, uploadReq(slug, "plan.pdf", "data")); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
	if len(env.blobs.blobs) != 0 {
		t.Errorf("failed upload left %d orphan blobs", len(env.blobs.blobs))
	}
}

func TestUploadStreamingCapBoundary(t *testing.T) {
	env := newDocTestEnv()
	ctx := context.Background()
	slug := env.mustCreateDir(t, "Reports")

	// Exactly at the cap is accepted
	atCap := &UploadRequest{
		DirectorySlug: slug,
		Filename:      "big.pdf",
		ContentType:   "application/pdf",
		Size:          config.MaxUploadBytes,
		Body:          bytes.NewReader(make([]byte, config.MaxUploadBytes)),
	}
	doc, err := env.docs.Upload(ctx, atCap)
	if err != nil {
		t.Fatalf("upload at cap: %v", err)
	}
	if doc.SizeBytes != config.MaxUploadBytes {
		t.Errorf("size = %d, want %d", doc.SizeBytes, config.MaxUploadBytes)
	}

	// A client declaring an honest size but streaming one byte more is
	// caught by the cap check on the bytes actually written
	lying := &UploadRequest{
		DirectorySlug: slug,
		Filename:      "bigger.pdf",
		ContentType:   "application/pdf",
		Size:          config.MaxUploadBytes,
		Body:          bytes.NewReader(make([]byte, config.MaxUploadBytes+1)),
	}
	if _, err := env.docs.Upload(ctx, lying); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if len(env.blobs.blobs) != 1 {
		t.Errorf("blob count = %d, want only the at-cap upload", len(env.blobs.blobs))
	}
}
