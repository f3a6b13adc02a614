// Package resume implements the resume collection: listing with signed
// download URLs, two-phase uploads with a compensating delete, bytes-first
// deletion, and the selection toggle.
package resume

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"jobtrackr/internal/apperrors"
)

// Store defines the persistence operations the service depends on.
// *Repository is the production implementation.
type Store interface {
	Create(ctx context.Context, rec *Resume) (*Resume, error)
	ListByUser(ctx context.Context, userID string) ([]Resume, error)
	GetByID(ctx context.Context, id, userID string) (*Resume, error)
	Delete(ctx context.Context, id, userID string) error
	ToggleSelection(ctx context.Context, id, userID string) (*Resume, error)
}

// ObjectStore is the slice of the storage service the collection uses.
type ObjectStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// Service coordinates resume metadata and stored bytes.
type Service struct {
	store   Store
	objects ObjectStore
	logger  *slog.Logger
}

// NewService creates a new resume service
func NewService(store Store, objects ObjectStore, logger *slog.Logger) *Service {
	return &Service{store: store, objects: objects, logger: logger}
}

// List returns the user's resumes, newest first, each with a signed
// download URL valid for one hour. A URL generation failure marks the
// affected record unavailable instead of aborting or omitting it. Without
// an authenticated user the listing is empty.
func (s *Service) List(ctx context.Context, userID string) ([]ResumeWithURL, error) {
	if userID == "" {
		return []ResumeWithURL{}, nil
	}

	records, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.NewBackend("resume.list", "", err)
	}

	out := make([]ResumeWithURL, 0, len(records))
	for _, rec := range records {
		entry := ResumeWithURL{Resume: rec}

		url, err := s.objects.PresignDownload(ctx, rec.FilePath, DownloadURLTTL)
		if err != nil {
			s.logger.Warn("failed to presign resume download",
				"resume_id", rec.ID,
				"file_path", rec.FilePath,
				"error", err)
			entry.Unavailable = true
		} else {
			entry.DownloadURL = url
		}

		out = append(out, entry)
	}

	return out, nil
}

// Upload stores the file bytes first and inserts the metadata row second.
// If the insert fails, the just-stored bytes are deleted so no orphaned
// object remains.
func (s *Service) Upload(ctx context.Context, userID string, input UploadInput) (*Resume, error) {
	if userID == "" {
		return nil, apperrors.ErrNotAuthenticated
	}
	if err := validateUpload(input); err != nil {
		return nil, err
	}

	key := storageKey(userID, input.Filename)

	if err := s.objects.Upload(ctx, key, input.ContentType, input.Body, input.Size); err != nil {
		return nil, apperrors.NewBackend("resume.upload", "", err)
	}

	rec := &Resume{
		ID:       uuid.New().String(),
		UserID:   userID,
		Filename: input.Filename,
		FilePath: key,
		FileType: input.ContentType,
		FileSize: input.Size,
	}

	created, err := s.store.Create(ctx, rec)
	if err != nil {
		// Compensating action: the bytes are already durable, remove them
		// so the failed insert leaves no orphaned object behind.
		if delErr := s.objects.Delete(ctx, key); delErr != nil {
			s.logger.Error("failed to clean up stored bytes after metadata insert failure",
				"file_path", key,
				"insert_error", err,
				"cleanup_error", delErr)
		}
		return nil, apperrors.NewBackend("resume.upload", "", err)
	}

	return created, nil
}

// Delete removes the stored bytes first and the metadata row second. A
// failed bytes deletion aborts before the row is touched, so metadata
// never points at bytes whose fate is unknown.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if userID == "" {
		return apperrors.ErrNotAuthenticated
	}

	rec, err := s.store.GetByID(ctx, id, userID)
	if err != nil {
		if errors.Is(err, ErrResumeNotFound) {
			return ErrResumeNotFound
		}
		return apperrors.NewBackend("resume.delete", "", err)
	}

	if err := s.objects.Delete(ctx, rec.FilePath); err != nil {
		return apperrors.NewBackend("resume.delete", "", err)
	}

	if err := s.store.Delete(ctx, id, userID); err != nil {
		if errors.Is(err, ErrResumeNotFound) {
			// A concurrent delete won the race; the outcome is the same.
			return nil
		}
		return apperrors.NewBackend("resume.delete", "", err)
	}

	return nil
}

// ToggleSelection flips the selection flag for exactly one owned resume.
func (s *Service) ToggleSelection(ctx context.Context, userID, id string) (*Resume, error) {
	if userID == "" {
		return nil, apperrors.ErrNotAuthenticated
	}

	rec, err := s.store.ToggleSelection(ctx, id, userID)
	if err != nil {
		if errors.Is(err, ErrResumeNotFound) {
			return nil, ErrResumeNotFound
		}
		return nil, apperrors.NewBackend("resume.toggle", "", err)
	}

	return rec, nil
}

// validateUpload enforces the caller-level upload constraints before any
// bytes travel to storage.
func validateUpload(input UploadInput) error {
	if input.Filename == "" {
		return apperrors.NewValidation("filename", "must not be empty")
	}
	if len(input.Filename) > MaxFilenameLength {
		return apperrors.NewValidation("filename", fmt.Sprintf("must be at most %d characters", MaxFilenameLength))
	}
	if strings.Contains(input.Filename, "..") || strings.ContainsAny(input.Filename, `/\`) {
		return apperrors.NewValidation("filename", "contains invalid characters")
	}
	if filepath.Ext(input.Filename) == "" {
		return apperrors.NewValidation("filename", "must have an extension")
	}
	if !AllowedContentTypes[input.ContentType] {
		return apperrors.NewValidation("file_type", "must be PDF, DOC or DOCX")
	}
	if input.Size <= 0 {
		return apperrors.NewValidation("file_size", "must be greater than zero")
	}
	// The 10 MB ceiling is inclusive: exactly MaxFileSize is accepted.
	if input.Size > MaxFileSize {
		return apperrors.NewValidation("file_size", "must be at most 10 MB")
	}
	return nil
}

// storageKey builds a collision-resistant object key: a random component
// plus a timestamp keeps re-uploads of the same filename from clashing.
func storageKey(userID, filename string) string {
	return fmt.Sprintf("resumes/%s/%s-%d-%s", userID, uuid.New().String(), time.Now().Unix(), filename)
}
