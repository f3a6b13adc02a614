package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"jobtrackr/internal/database"
)

var (
	// ErrIdentityNotFound is returned when no identity matches the lookup
	ErrIdentityNotFound = errors.New("identity not found")
	// ErrProfileNotFound is returned when no profile row exists for the user
	ErrProfileNotFound = errors.New("profile not found")
	// ErrEmailExists is returned when the email is already registered
	ErrEmailExists = errors.New("email already registered")
	// ErrUsernameExists is returned when the username is already taken
	ErrUsernameExists = errors.New("username already taken")
)

// Repository handles all database operations for identities and profiles
type Repository struct {
	db database.Service
}

// NewRepository creates a new auth repository
func NewRepository(db database.Service) *Repository {
	return &Repository{db: db}
}

// CreateIdentity inserts a new identity row
func (r *Repository) CreateIdentity(ctx context.Context, id, email, passwordHash string, verified bool) (*Identity, error) {
	query := `
		INSERT INTO identities (id, email, password_hash, email_verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, email, password_hash, email_verified, created_at, updated_at
	`

	ident := &Identity{}
	err := r.db.QueryRow(ctx, query, id, email, passwordHash, verified).Scan(
		&ident.ID,
		&ident.Email,
		&ident.PasswordHash,
		&ident.EmailVerified,
		&ident.CreatedAt,
		&ident.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "identities_email_key") {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("failed to create identity: %w", err)
	}

	return ident, nil
}

// GetIdentityByEmail retrieves an identity by email
func (r *Repository) GetIdentityByEmail(ctx context.Context, email string) (*Identity, error) {
	query := `
		SELECT id, email, password_hash, email_verified, created_at, updated_at
		FROM identities
		WHERE email = $1
	`
	return r.scanIdentity(r.db.QueryRow(ctx, query, email))
}

// GetIdentityByID retrieves an identity by ID
func (r *Repository) GetIdentityByID(ctx context.Context, id string) (*Identity, error) {
	query := `
		SELECT id, email, password_hash, email_verified, created_at, updated_at
		FROM identities
		WHERE id = $1
	`
	return r.scanIdentity(r.db.QueryRow(ctx, query, id))
}

func (r *Repository) scanIdentity(row pgx.Row) (*Identity, error) {
	ident := &Identity{}
	err := row.Scan(
		&ident.ID,
		&ident.Email,
		&ident.PasswordHash,
		&ident.EmailVerified,
		&ident.CreatedAt,
		&ident.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrIdentityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get identity: %w", err)
	}
	return ident, nil
}

// UpdateIdentityEmail changes the email on the identity row
func (r *Repository) UpdateIdentityEmail(ctx context.Context, id, email string) error {
	query := `UPDATE identities SET email = $1, updated_at = NOW() WHERE id = $2`

	tag, err := r.db.Exec(ctx, query, email, id)
	if err != nil {
		if isUniqueViolation(err, "identities_email_key") {
			return ErrEmailExists
		}
		return fmt.Errorf("failed to update identity email: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrIdentityNotFound
	}
	return nil
}

// UpdateIdentityPassword replaces the stored password hash
func (r *Repository) UpdateIdentityPassword(ctx context.Context, id, passwordHash string) error {
	query := `UPDATE identities SET password_hash = $1, updated_at = NOW() WHERE id = $2`

	tag, err := r.db.Exec(ctx, query, passwordHash, id)
	if err != nil {
		return fmt.Errorf("failed to update identity password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrIdentityNotFound
	}
	return nil
}

// CreateProfile inserts a new profile row keyed by the identity ID
func (r *Repository) CreateProfile(ctx context.Context, id, username, email string) (*Profile, error) {
	query := `
		INSERT INTO profiles (id, username, email, user_type, created_at, updated_at)
		VALUES ($1, $2, $3, 'job_seeker', NOW(), NOW())
		RETURNING id, username, email, user_type, created_at, updated_at
	`

	profile := &Profile{}
	err := r.db.QueryRow(ctx, query, id, username, email).Scan(
		&profile.ID,
		&profile.Username,
		&profile.Email,
		&profile.UserType,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "profiles_username_key") {
			return nil, ErrUsernameExists
		}
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	return profile, nil
}

// GetProfile retrieves a profile by identity ID
func (r *Repository) GetProfile(ctx context.Context, id string) (*Profile, error) {
	query := `
		SELECT id, username, email, user_type, created_at, updated_at
		FROM profiles
		WHERE id = $1
	`

	profile := &Profile{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&profile.ID,
		&profile.Username,
		&profile.Email,
		&profile.UserType,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return profile, nil
}

// UpdateProfile applies the non-nil fields of updates to the profile row
func (r *Repository) UpdateProfile(ctx context.Context, id string, updates UpdateProfileRequest) (*Profile, error) {
	setClauses := []string{}
	args := []any{}
	argCount := 1

	if updates.Username != nil {
		setClauses = append(setClauses, fmt.Sprintf("username = $%d", argCount))
		args = append(args, *updates.Username)
		argCount++
	}
	if updates.Email != nil {
		setClauses = append(setClauses, fmt.Sprintf("email = $%d", argCount))
		args = append(args, *updates.Email)
		argCount++
	}

	if len(setClauses) == 0 {
		return r.GetProfile(ctx, id)
	}

	setClauses = append(setClauses, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf(`
		UPDATE profiles
		SET %s
		WHERE id = $%d
		RETURNING id, username, email, user_type, created_at, updated_at
	`, joinClauses(setClauses), argCount)

	profile := &Profile{}
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&profile.ID,
		&profile.Username,
		&profile.Email,
		&profile.UserType,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		if isUniqueViolation(err, "profiles_username_key") {
			return nil, ErrUsernameExists
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return profile, nil
}

func joinClauses(clauses []string) string {
	out := clauses[0]
	for _, c := range clauses[1:] {
		out += ", " + c
	}
	return out
}

// isUniqueViolation checks whether err is a Postgres unique constraint
// violation on the named constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" && pgErr.ConstraintName == constraint
}
