package auth

import "time"

// Identity is the immutable authentication record. Its ID never changes;
// email and password hash are mutated only through the dedicated update
// operations.
type Identity struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Profile is the mutable user-facing record, distinct from the identity.
type Profile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	UserType  string    `json:"user_type"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LoginRequest is the payload for POST /auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

// SignupRequest is the payload for POST /auth/signup
type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ResetPasswordRequest is the payload for POST /auth/reset-password
type ResetPasswordRequest struct {
	Email string `json:"email"`
}

// ConfirmResetRequest is the payload for POST /auth/reset-password/confirm
type ConfirmResetRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// UpdateProfileRequest is the payload for PATCH /auth/profile.
// Nil fields are left unchanged.
type UpdateProfileRequest struct {
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty"`
}

// UpdatePasswordRequest is the payload for PUT /auth/password
type UpdatePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// AuthResponse is returned after a successful login or signup.
type AuthResponse struct {
	User *Profile `json:"user"`

	// SessionID is empty when email verification is still pending.
	SessionID string `json:"session_id,omitempty"`

	// SessionMaxAge is the cookie max-age in seconds; zero means a
	// browser-session cookie.
	SessionMaxAge int `json:"-"`

	// RequiresVerification is true when the account was created but no
	// session was issued because the email is not verified yet.
	RequiresVerification bool `json:"requires_verification,omitempty"`
}
