package resume

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"jobtrackr/internal/database"
)

// ErrResumeNotFound is returned when no resume matches the id for the user
var ErrResumeNotFound = errors.New("resume not found")

// Repository handles all database operations for resumes. Every query is
// scoped by user_id so one user's rows are unreachable from another's
// session.
type Repository struct {
	db database.Service
}

// NewRepository creates a new resume repository
func NewRepository(db database.Service) *Repository {
	return &Repository{db: db}
}

// Create inserts a new resume row
func (r *Repository) Create(ctx context.Context, rec *Resume) (*Resume, error) {
	query := `
		INSERT INTO resumes (id, user_id, filename, file_path, file_type, file_size, uploaded_at, is_selected)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), FALSE)
		RETURNING id, user_id, filename, file_path, file_type, file_size, uploaded_at, is_selected
	`

	created := &Resume{}
	err := r.db.QueryRow(ctx, query,
		rec.ID, rec.UserID, rec.Filename, rec.FilePath, rec.FileType, rec.FileSize,
	).Scan(
		&created.ID,
		&created.UserID,
		&created.Filename,
		&created.FilePath,
		&created.FileType,
		&created.FileSize,
		&created.UploadedAt,
		&created.IsSelected,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resume: %w", err)
	}

	return created, nil
}

// ListByUser retrieves the user's resumes, newest upload first
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]Resume, error) {
	query := `
		SELECT id, user_id, filename, file_path, file_type, file_size, uploaded_at, is_selected
		FROM resumes
		WHERE user_id = $1
		ORDER BY uploaded_at DESC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list resumes: %w", err)
	}
	defer rows.Close()

	var resumes []Resume
	for rows.Next() {
		var rec Resume
		err := rows.Scan(
			&rec.ID,
			&rec.UserID,
			&rec.Filename,
			&rec.FilePath,
			&rec.FileType,
			&rec.FileSize,
			&rec.UploadedAt,
			&rec.IsSelected,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resume: %w", err)
		}
		resumes = append(resumes, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate resumes: %w", err)
	}

	return resumes, nil
}

// GetByID retrieves one resume owned by the user
func (r *Repository) GetByID(ctx context.Context, id, userID string) (*Resume, error) {
	query := `
		SELECT id, user_id, filename, file_path, file_type, file_size, uploaded_at, is_selected
		FROM resumes
		WHERE id = $1 AND user_id = $2
	`

	rec := &Resume{}
	err := r.db.QueryRow(ctx, query, id, userID).Scan(
		&rec.ID,
		&rec.UserID,
		&rec.Filename,
		&rec.FilePath,
		&rec.FileType,
		&rec.FileSize,
		&rec.UploadedAt,
		&rec.IsSelected,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrResumeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get resume: %w", err)
	}

	return rec, nil
}

// Delete removes the metadata row for one resume owned by the user
func (r *Repository) Delete(ctx context.Context, id, userID string) error {
	query := `DELETE FROM resumes WHERE id = $1 AND user_id = $2`

	tag, err := r.db.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete resume: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrResumeNotFound
	}
	return nil
}

// ToggleSelection flips the is_selected flag for exactly one owned row.
// Multiple resumes may be selected at once; there is no exclusivity.
func (r *Repository) ToggleSelection(ctx context.Context, id, userID string) (*Resume, error) {
	query := `
		UPDATE resumes
		SET is_selected = NOT is_selected
		WHERE id = $1 AND user_id = $2
		RETURNING id, user_id, filename, file_path, file_type, file_size, uploaded_at, is_selected
	`

	rec := &Resume{}
	err := r.db.QueryRow(ctx, query, id, userID).Scan(
		&rec.ID,
		&rec.UserID,
		&rec.Filename,
		&rec.FilePath,
		&rec.FileType,
		&rec.FileSize,
		&rec.UploadedAt,
		&rec.IsSelected,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrResumeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to toggle resume selection: %w", err)
	}

	return rec, nil
}
