// Package auth implements account and session logic: password login and
// signup, profile maintenance with self-healing, password reset links, and
// the auth-state notifications other components subscribe to.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"jobtrackr/internal/apperrors"
	"jobtrackr/internal/authstate"
	"jobtrackr/internal/session"
)

const (
	// MinPasswordLength is the shortest password accepted anywhere.
	MinPasswordLength = 6
	// ResetTokenTTL is how long a password reset link stays valid.
	ResetTokenTTL = time.Hour
)

// Store defines the persistence operations the service depends on.
// *Repository is the production implementation.
type Store interface {
	CreateIdentity(ctx context.Context, id, email, passwordHash string, verified bool) (*Identity, error)
	GetIdentityByEmail(ctx context.Context, email string) (*Identity, error)
	GetIdentityByID(ctx context.Context, id string) (*Identity, error)
	UpdateIdentityEmail(ctx context.Context, id, email string) error
	UpdateIdentityPassword(ctx context.Context, id, passwordHash string) error
	CreateProfile(ctx context.Context, id, username, email string) (*Profile, error)
	GetProfile(ctx context.Context, id string) (*Profile, error)
	UpdateProfile(ctx context.Context, id string, updates UpdateProfileRequest) (*Profile, error)
}

// ResetMailer delivers password reset links, either via the Kafka email
// pipeline or directly through a Sender.
type ResetMailer interface {
	PublishPasswordReset(ctx context.Context, recipient, link string) error
}

// Options configures service behavior.
type Options struct {
	// AppURL is the frontend base URL reset links point at.
	AppURL string
	// RequireVerification withholds sessions from unverified accounts.
	RequireVerification bool
}

// Service defines the authentication operations exposed over HTTP.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error)
	Logout(ctx context.Context, sessionID string) error
	ResetPassword(ctx context.Context, email string) error
	ConfirmResetPassword(ctx context.Context, token, newPassword string) error
	Me(ctx context.Context, userID string) (*Profile, error)
	UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*Profile, error)
	UpdatePassword(ctx context.Context, userID, currentPassword, newPassword string) error
}

type service struct {
	store       Store
	sessions    session.Manager
	events      *authstate.Bus
	resetTokens session.Store
	mailer      ResetMailer
	logger      *slog.Logger
	opts        Options
}

// NewService creates a new authentication service
func NewService(
	store Store,
	sessions session.Manager,
	events *authstate.Bus,
	resetTokens session.Store,
	mailer ResetMailer,
	logger *slog.Logger,
	opts Options,
) Service {
	return &service{
		store:       store,
		sessions:    sessions,
		events:      events,
		resetTokens: resetTokens,
		mailer:      mailer,
		logger:      logger,
		opts:        opts,
	}
}

// Login verifies credentials and issues a session. The remember flag is
// persisted as the user's preference; when the previously stored preference
// is an explicit false, the prior session is discarded before a new one is
// created.
func (s *service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if req.Email == "" {
		return nil, apperrors.NewValidation("email", "must not be empty")
	}
	if req.Password == "" {
		return nil, apperrors.NewValidation("password", "must not be empty")
	}
	// Stored passwords are always at least MinPasswordLength, so anything
	// shorter can be rejected before touching the database.
	if len(req.Password) < MinPasswordLength {
		return nil, apperrors.NewValidation("password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}

	s.events.Publish(authstate.Event{State: authstate.Authenticating, Email: req.Email})

	ident, err := s.store.GetIdentityByEmail(ctx, req.Email)
	if err != nil {
		s.events.Publish(authstate.Event{State: authstate.Unauthenticated})
		if errors.Is(err, ErrIdentityNotFound) {
			return nil, apperrors.NewAuth(apperrors.AuthInvalidCredentials, err)
		}
		return nil, apperrors.NewBackend("auth.login", "", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(ident.PasswordHash), []byte(req.Password)); err != nil {
		s.events.Publish(authstate.Event{State: authstate.Unauthenticated})
		return nil, apperrors.NewAuth(apperrors.AuthInvalidCredentials, err)
	}

	if s.opts.RequireVerification && !ident.EmailVerified {
		s.events.Publish(authstate.Event{State: authstate.Unauthenticated})
		return nil, apperrors.NewAuth(apperrors.AuthUnverifiedEmail, errors.New("email not verified"))
	}

	profile, err := s.ensureProfile(ctx, ident)
	if err != nil {
		s.events.Publish(authstate.Event{State: authstate.Unauthenticated})
		return nil, err
	}

	// Honor the previously stored choice not to persist login: an explicit
	// false discards any session left over from the last visit.
	prevRemember, found, err := s.sessions.RememberPreference(ctx, ident.ID)
	if err != nil {
		s.logger.Warn("failed to read remember preference", "user_id", ident.ID, "error", err)
	} else if found && !prevRemember {
		if err := s.sessions.RevokeUserSession(ctx, ident.ID); err != nil {
			s.logger.Warn("failed to revoke stale session", "user_id", ident.ID, "error", err)
		}
	}

	sess, err := s.sessions.Create(ctx, ident.ID, ident.Email, req.Remember)
	if err != nil {
		s.events.Publish(authstate.Event{State: authstate.Unauthenticated})
		return nil, apperrors.NewBackend("session.create", "", err)
	}

	s.events.Publish(authstate.Event{State: authstate.Authenticated, UserID: ident.ID, Email: ident.Email})

	maxAge := 0
	if req.Remember {
		maxAge = int(session.RememberTTL.Seconds())
	}

	return &AuthResponse{
		User:          profile,
		SessionID:     sess.ID,
		SessionMaxAge: maxAge,
	}, nil
}

// Signup creates a new identity and its profile. The default username is
// the local part of the email. A profile insert failure leaves the identity
// committed and usable: the next login self-heals the missing profile, and
// the caller receives a PartialFailureError describing the failed step.
func (s *service) Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	if req.Email == "" {
		return nil, apperrors.NewValidation("email", "must not be empty")
	}
	if !validEmail(req.Email) {
		return nil, apperrors.NewValidation("email", "must be a valid email address")
	}
	if len(req.Password) < MinPasswordLength {
		return nil, apperrors.NewValidation("password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}

	s.events.Publish(authstate.Event{State: authstate.Authenticating, Email: req.Email})

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.events.Publish(authstate.Event{State: authstate.Unauthenticated})
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	id := uuid.New().String()
	verified := !s.opts.RequireVerification

	ident, err := s.store.CreateIdentity(ctx, id, req.Email, string(hash), verified)
	if err != nil {
		s.events.Publish(authstate.Event{State: authstate.Unauthenticated})
		if errors.Is(err, ErrEmailExists) {
			return nil, apperrors.NewAuth(apperrors.AuthAlreadyRegistered, err)
		}
		return nil, apperrors.NewBackend("auth.signup", "", err)
	}

	profile, err := s.createProfile(ctx, ident.ID, ident.Email)
	if err != nil {
		// Identity stays committed; the next login recreates the profile.
		s.logger.Error("profile creation failed after identity creation",
			"user_id", ident.ID,
			"email", ident.Email,
			"error", err)
		s.events.Publish(authstate.Event{State: authstate.Unauthenticated})
		return nil, apperrors.NewPartialFailure("identity creation", "profile creation", err)
	}

	if s.opts.RequireVerification {
		// No session until the email is verified; the profile already exists.
		s.events.Publish(authstate.Event{State: authstate.Unauthenticated})
		return &AuthResponse{User: profile, RequiresVerification: true}, nil
	}

	sess, err := s.sessions.Create(ctx, ident.ID, ident.Email, true)
	if err != nil {
		s.events.Publish(authstate.Event{State: authstate.Unauthenticated})
		return nil, apperrors.NewBackend("session.create", "", err)
	}

	s.events.Publish(authstate.Event{State: authstate.Authenticated, UserID: ident.ID, Email: ident.Email})

	return &AuthResponse{
		User:          profile,
		SessionID:     sess.ID,
		SessionMaxAge: int(session.RememberTTL.Seconds()),
	}, nil
}

// Logout invalidates the session. The remote delete is best-effort: the
// caller always clears its cookie and the unauthenticated state is always
// broadcast, even when the store call fails.
func (s *service) Logout(ctx context.Context, sessionID string) error {
	if sessionID != "" {
		if err := s.sessions.Delete(ctx, sessionID); err != nil {
			s.logger.Warn("failed to delete session", "session_id", sessionID, "error", err)
		}
	}
	s.events.Publish(authstate.Event{State: authstate.Unauthenticated})
	return nil
}

// ResetPassword issues a reset token and emails a reset link. Unknown
// emails are not revealed to the caller.
func (s *service) ResetPassword(ctx context.Context, email string) error {
	if email == "" {
		return apperrors.NewValidation("email", "must not be empty")
	}

	ident, err := s.store.GetIdentityByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			s.logger.Info("password reset requested for unknown email", "email", email)
			return nil
		}
		return apperrors.NewBackend("auth.reset", "", err)
	}

	token := uuid.New().String()
	if err := s.resetTokens.Set(ctx, resetTokenKey(token), ident.ID, ResetTokenTTL); err != nil {
		return apperrors.NewBackend("auth.reset", "", fmt.Errorf("failed to store reset token: %w", err))
	}

	link := fmt.Sprintf("%s/reset-password/confirm?token=%s", strings.TrimRight(s.opts.AppURL, "/"), token)
	if err := s.mailer.PublishPasswordReset(ctx, ident.Email, link); err != nil {
		return apperrors.NewBackend("auth.reset", "", fmt.Errorf("failed to publish reset email: %w", err))
	}

	return nil
}

// ConfirmResetPassword completes a reset flow: validates the token, stores
// the new password, consumes the token, and revokes any active session.
func (s *service) ConfirmResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return apperrors.NewValidation("token", "must not be empty")
	}
	if len(newPassword) < MinPasswordLength {
		return apperrors.NewValidation("password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}

	userID, err := s.resetTokens.Get(ctx, resetTokenKey(token))
	if err != nil {
		if errors.Is(err, session.ErrKeyNotFound) {
			return apperrors.NewAuth(apperrors.AuthUnknown, errors.New("reset token is invalid or expired"))
		}
		return apperrors.NewBackend("auth.reset-confirm", "", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.store.UpdateIdentityPassword(ctx, userID, string(hash)); err != nil {
		return apperrors.NewBackend("auth.reset-confirm", "", err)
	}

	if err := s.resetTokens.Delete(ctx, resetTokenKey(token)); err != nil {
		s.logger.Warn("failed to delete used reset token", "error", err)
	}
	if err := s.sessions.RevokeUserSession(ctx, userID); err != nil {
		s.logger.Warn("failed to revoke session after password reset", "user_id", userID, "error", err)
	}

	return nil
}

// Me returns the profile for the authenticated user, recreating a missing
// profile row from the identity.
func (s *service) Me(ctx context.Context, userID string) (*Profile, error) {
	if userID == "" {
		return nil, apperrors.ErrNotAuthenticated
	}

	ident, err := s.store.GetIdentityByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			return nil, apperrors.ErrNotAuthenticated
		}
		return nil, apperrors.NewBackend("auth.me", "", err)
	}

	return s.ensureProfile(ctx, ident)
}

// UpdateProfile applies profile field changes. An email change is a
// two-step operation: profile row first, identity second, with no
// atomicity across the two — a failed second step surfaces as a
// PartialFailureError while the profile change stays committed.
func (s *service) UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*Profile, error) {
	if userID == "" {
		return nil, apperrors.ErrNotAuthenticated
	}
	if req.Username != nil && *req.Username == "" {
		return nil, apperrors.NewValidation("username", "must not be empty")
	}
	if req.Email != nil && !validEmail(*req.Email) {
		return nil, apperrors.NewValidation("email", "must be a valid email address")
	}

	current, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return nil, apperrors.ErrNotAuthenticated
		}
		return nil, apperrors.NewBackend("auth.update-profile", "", err)
	}

	// Capture the pre-update email: some Store implementations hand back
	// the live row, which the update below mutates.
	prevEmail := current.Email

	updated, err := s.store.UpdateProfile(ctx, userID, req)
	if err != nil {
		if errors.Is(err, ErrUsernameExists) {
			return nil, apperrors.NewValidation("username", "is already taken")
		}
		return nil, apperrors.NewBackend("auth.update-profile", "", err)
	}

	if req.Email != nil && *req.Email != prevEmail {
		if err := s.store.UpdateIdentityEmail(ctx, userID, *req.Email); err != nil {
			s.logger.Error("identity email update failed after profile update",
				"user_id", userID,
				"profile_email", *req.Email,
				"identity_email", prevEmail,
				"error", err)
			return updated, apperrors.NewPartialFailure("profile update", "identity email update", err)
		}
	}

	return updated, nil
}

// UpdatePassword verifies the current password by re-authentication (there
// is no separate verification primitive) and stores the new hash.
func (s *service) UpdatePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if userID == "" {
		return apperrors.ErrNotAuthenticated
	}
	if len(newPassword) < MinPasswordLength {
		return apperrors.NewValidation("new_password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}

	ident, err := s.store.GetIdentityByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			return apperrors.ErrNotAuthenticated
		}
		return apperrors.NewBackend("auth.update-password", "", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(ident.PasswordHash), []byte(currentPassword)); err != nil {
		return apperrors.NewAuth(apperrors.AuthInvalidCredentials, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.store.UpdateIdentityPassword(ctx, userID, string(hash)); err != nil {
		return apperrors.NewBackend("auth.update-password", "", err)
	}

	return nil
}

// ensureProfile fetches the profile and recreates a minimal one when the
// row is missing (a signup that committed the identity but lost the
// profile insert).
func (s *service) ensureProfile(ctx context.Context, ident *Identity) (*Profile, error) {
	profile, err := s.store.GetProfile(ctx, ident.ID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, ErrProfileNotFound) {
		return nil, apperrors.NewBackend("auth.profile", "", err)
	}

	s.logger.Info("recreating missing profile", "user_id", ident.ID, "email", ident.Email)

	profile, err = s.createProfile(ctx, ident.ID, ident.Email)
	if err != nil {
		return nil, apperrors.NewBackend("auth.profile", "", fmt.Errorf("failed to recreate profile: %w", err))
	}
	return profile, nil
}

// createProfile inserts the profile row, defaulting the username to the
// email local part. When another account already holds that name the derived
// username gets a short random suffix, so accounts sharing a local part
// never block each other.
func (s *service) createProfile(ctx context.Context, id, email string) (*Profile, error) {
	username := localPart(email)
	profile, err := s.store.CreateProfile(ctx, id, username, email)
	if err == nil || !errors.Is(err, ErrUsernameExists) {
		return profile, err
	}

	suffixed := fmt.Sprintf("%s-%s", username, uuid.New().String()[:8])
	return s.store.CreateProfile(ctx, id, suffixed, email)
}

// localPart returns the part of the email before the @.
func localPart(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}

// validEmail requires a non-empty local part and a non-empty domain around
// the @.
func validEmail(email string) bool {
	i := strings.Index(email, "@")
	return i > 0 && i < len(email)-1
}

func resetTokenKey(token string) string {
	return fmt.Sprintf("pwreset:%s", token)
}
