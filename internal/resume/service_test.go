package resume

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"jobtrackr/internal/apperrors"
)

// mockStore is a hand-rolled Store for service tests.
type mockStore struct {
	createFn func(ctx context.Context, rec *Resume) (*Resume, error)
	listFn   func(ctx context.Context, userID string) ([]Resume, error)
	getFn    func(ctx context.Context, id, userID string) (*Resume, error)
	deleteFn func(ctx context.Context, id, userID string) error
	toggleFn func(ctx context.Context, id, userID string) (*Resume, error)
	createdN int
	deletedN int
}

func (m *mockStore) Create(ctx context.Context, rec *Resume) (*Resume, error) {
	m.createdN++
	if m.createFn != nil {
		return m.createFn(ctx, rec)
	}
	out := *rec
	out.UploadedAt = time.Now()
	return &out, nil
}

func (m *mockStore) ListByUser(ctx context.Context, userID string) ([]Resume, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockStore) GetByID(ctx context.Context, id, userID string) (*Resume, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id, userID)
	}
	return nil, ErrResumeNotFound
}

func (m *mockStore) Delete(ctx context.Context, id, userID string) error {
	m.deletedN++
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id, userID)
	}
	return nil
}

func (m *mockStore) ToggleSelection(ctx context.Context, id, userID string) (*Resume, error) {
	if m.toggleFn != nil {
		return m.toggleFn(ctx, id, userID)
	}
	return nil, ErrResumeNotFound
}

// mockObjects is a hand-rolled ObjectStore.
type mockObjects struct {
	uploadFn  func(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	presignFn func(ctx context.Context, key string, ttl time.Duration) (string, error)
	deleteFn  func(ctx context.Context, key string) error
	uploads   []string
	deletes   []string
}

func (m *mockObjects) Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	m.uploads = append(m.uploads, key)
	if m.uploadFn != nil {
		return m.uploadFn(ctx, key, contentType, body, size)
	}
	return nil
}

func (m *mockObjects) PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if m.presignFn != nil {
		return m.presignFn(ctx, key, ttl)
	}
	return "https://example.test/" + key, nil
}

func (m *mockObjects) Delete(ctx context.Context, key string) error {
	m.deletes = append(m.deletes, key)
	if m.deleteFn != nil {
		return m.deleteFn(ctx, key)
	}
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func validInput() UploadInput {
	return UploadInput{
		Filename:    "resume.pdf",
		ContentType: "application/pdf",
		Size:        1024,
		Body:        strings.NewReader("pdf bytes"),
	}
}

func TestUpload_Success(t *testing.T) {
	store := &mockStore{}
	objects := &mockObjects{}
	svc := NewService(store, objects, testLogger())

	rec, err := svc.Upload(context.Background(), "user-1", validInput())
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if rec.UserID != "user-1" {
		t.Errorf("expected user-1, got %s", rec.UserID)
	}
	if rec.IsSelected {
		t.Error("new upload should not be selected")
	}
	if len(objects.uploads) != 1 {
		t.Fatalf("expected 1 upload, got %d", len(objects.uploads))
	}
	if !strings.HasPrefix(objects.uploads[0], "resumes/user-1/") {
		t.Errorf("unexpected storage key %s", objects.uploads[0])
	}
	if !strings.HasSuffix(objects.uploads[0], "-resume.pdf") {
		t.Errorf("storage key should end with the original filename, got %s", objects.uploads[0])
	}
}

func TestUpload_Unauthenticated(t *testing.T) {
	store := &mockStore{}
	objects := &mockObjects{}
	svc := NewService(store, objects, testLogger())

	_, err := svc.Upload(context.Background(), "", validInput())
	if !errors.Is(err, apperrors.ErrNotAuthenticated) {
		t.Errorf("expected ErrNotAuthenticated, got %v", err)
	}
	if len(objects.uploads) != 0 {
		t.Error("no bytes should be uploaded for unauthenticated calls")
	}
}

func TestUpload_SizeBoundary(t *testing.T) {
	store := &mockStore{}
	objects := &mockObjects{}
	svc := NewService(store, objects, testLogger())

	// Exactly 10 MB is accepted.
	input := validInput()
	input.Size = MaxFileSize
	if _, err := svc.Upload(context.Background(), "user-1", input); err != nil {
		t.Errorf("exactly MaxFileSize should be accepted, got %v", err)
	}

	// One byte over is rejected before any bytes are stored.
	uploadsBefore := len(objects.uploads)
	input = validInput()
	input.Size = MaxFileSize + 1
	_, err := svc.Upload(context.Background(), "user-1", input)
	if !apperrors.IsValidation(err) {
		t.Errorf("expected validation error for oversize file, got %v", err)
	}
	if len(objects.uploads) != uploadsBefore {
		t.Error("oversize upload must not reach the object store")
	}
}

func TestUpload_RejectsUnknownContentType(t *testing.T) {
	svc := NewService(&mockStore{}, &mockObjects{}, testLogger())

	input := validInput()
	input.Filename = "resume.png"
	input.ContentType = "image/png"
	_, err := svc.Upload(context.Background(), "user-1", input)
	if !apperrors.IsValidation(err) {
		t.Errorf("expected validation error for image upload, got %v", err)
	}
}

func TestUpload_RejectsBadFilenames(t *testing.T) {
	svc := NewService(&mockStore{}, &mockObjects{}, testLogger())

	cases := []string{"", "../../etc/passwd", "a/b.pdf", `a\b.pdf`, "noextension", strings.Repeat("a", 300) + ".pdf"}
	for _, name := range cases {
		input := validInput()
		input.Filename = name
		if _, err := svc.Upload(context.Background(), "user-1", input); !apperrors.IsValidation(err) {
			t.Errorf("filename %q: expected validation error, got %v", name, err)
		}
	}
}

func TestUpload_CompensatesOnInsertFailure(t *testing.T) {
	insertErr := errors.New("insert failed")
	store := &mockStore{
		createFn: func(ctx context.Context, rec *Resume) (*Resume, error) {
			return nil, insertErr
		},
	}
	objects := &mockObjects{}
	svc := NewService(store, objects, testLogger())

	_, err := svc.Upload(context.Background(), "user-1", validInput())
	if err == nil {
		t.Fatal("expected error")
	}
	if len(objects.uploads) != 1 || len(objects.deletes) != 1 {
		t.Fatalf("expected 1 upload and 1 compensating delete, got %d/%d", len(objects.uploads), len(objects.deletes))
	}
	if objects.uploads[0] != objects.deletes[0] {
		t.Errorf("compensating delete must target the uploaded key: %s vs %s", objects.uploads[0], objects.deletes[0])
	}
}

func TestDelete_BytesFirst(t *testing.T) {
	store := &mockStore{
		getFn: func(ctx context.Context, id, userID string) (*Resume, error) {
			return &Resume{ID: id, UserID: userID, FilePath: "resumes/user-1/key.pdf"}, nil
		},
	}
	objects := &mockObjects{}
	svc := NewService(store, objects, testLogger())

	if err := svc.Delete(context.Background(), "user-1", "r-1"); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if len(objects.deletes) != 1 || objects.deletes[0] != "resumes/user-1/key.pdf" {
		t.Errorf("expected bytes delete for stored key, got %v", objects.deletes)
	}
	if store.deletedN != 1 {
		t.Errorf("expected metadata delete, got %d", store.deletedN)
	}
}

func TestDelete_ObjectDeleteFailureKeepsMetadata(t *testing.T) {
	store := &mockStore{
		getFn: func(ctx context.Context, id, userID string) (*Resume, error) {
			return &Resume{ID: id, UserID: userID, FilePath: "resumes/user-1/key.pdf"}, nil
		},
	}
	objects := &mockObjects{
		deleteFn: func(ctx context.Context, key string) error {
			return errors.New("storage unreachable")
		},
	}
	svc := NewService(store, objects, testLogger())

	err := svc.Delete(context.Background(), "user-1", "r-1")
	if err == nil {
		t.Fatal("expected error when bytes deletion fails")
	}
	if store.deletedN != 0 {
		t.Error("metadata row must survive a failed bytes deletion")
	}
}

func TestDelete_NotFound(t *testing.T) {
	svc := NewService(&mockStore{}, &mockObjects{}, testLogger())

	err := svc.Delete(context.Background(), "user-1", "missing")
	if !errors.Is(err, ErrResumeNotFound) {
		t.Errorf("expected ErrResumeNotFound, got %v", err)
	}
}

func TestDelete_ConcurrentRaceIsSuccess(t *testing.T) {
	store := &mockStore{
		getFn: func(ctx context.Context, id, userID string) (*Resume, error) {
			return &Resume{ID: id, UserID: userID, FilePath: "resumes/user-1/key.pdf"}, nil
		},
		deleteFn: func(ctx context.Context, id, userID string) error {
			return ErrResumeNotFound
		},
	}
	svc := NewService(store, &mockObjects{}, testLogger())

	if err := svc.Delete(context.Background(), "user-1", "r-1"); err != nil {
		t.Errorf("losing the delete race should still report success, got %v", err)
	}
}

func TestList_EmptyForAnonymous(t *testing.T) {
	store := &mockStore{
		listFn: func(ctx context.Context, userID string) ([]Resume, error) {
			t.Fatal("store must not be queried for anonymous listings")
			return nil, nil
		},
	}
	svc := NewService(store, &mockObjects{}, testLogger())

	out, err := svc.List(context.Background(), "")
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if len(out) != 0 {
		t.Errorf("expected empty listing, got %d entries", len(out))
	}
}

func TestList_PresignFailureMarksUnavailable(t *testing.T) {
	store := &mockStore{
		listFn: func(ctx context.Context, userID string) ([]Resume, error) {
			return []Resume{
				{ID: "r-1", FilePath: "resumes/u/ok.pdf"},
				{ID: "r-2", FilePath: "resumes/u/broken.pdf"},
			}, nil
		},
	}
	objects := &mockObjects{
		presignFn: func(ctx context.Context, key string, ttl time.Duration) (string, error) {
			if strings.Contains(key, "broken") {
				return "", errors.New("signing failed")
			}
			return "https://example.test/" + key, nil
		},
	}
	svc := NewService(store, objects, testLogger())

	out, err := svc.List(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("both records must be listed, got %d", len(out))
	}
	if out[0].Unavailable || out[0].DownloadURL == "" {
		t.Errorf("first record should carry a URL: %+v", out[0])
	}
	if !out[1].Unavailable || out[1].DownloadURL != "" {
		t.Errorf("second record should be marked unavailable: %+v", out[1])
	}
}

func TestToggleSelection_Flips(t *testing.T) {
	selected := false
	store := &mockStore{
		toggleFn: func(ctx context.Context, id, userID string) (*Resume, error) {
			selected = !selected
			return &Resume{ID: id, UserID: userID, IsSelected: selected}, nil
		},
	}
	svc := NewService(store, &mockObjects{}, testLogger())

	rec, err := svc.ToggleSelection(context.Background(), "user-1", "r-1")
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if !rec.IsSelected {
		t.Error("first toggle should select")
	}

	rec, err = svc.ToggleSelection(context.Background(), "user-1", "r-1")
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if rec.IsSelected {
		t.Error("second toggle should deselect")
	}
}

func TestToggleSelection_NotFound(t *testing.T) {
	svc := NewService(&mockStore{}, &mockObjects{}, testLogger())

	_, err := svc.ToggleSelection(context.Background(), "user-1", "missing")
	if !errors.Is(err, ErrResumeNotFound) {
		t.Errorf("expected ErrResumeNotFound, got %v", err)
	}
}
