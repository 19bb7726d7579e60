package store

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/wuxler/otaserve/pkg/errdefs"
)

// AdminUsername is the account bootstrapped at startup.
const AdminUsername = "admin"

// GetUserByUsername returns the user with the given username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	user := &User{}
	err := s.db.GetContext(ctx, user, `SELECT * FROM users WHERE username = ?`, username)
	if err != nil {
		return nil, wrapQueryErr(err, "user %q", username)
	}
	return user, nil
}

// EnsureAdminUser creates the admin account with the given password when it
// does not exist yet. An existing account is left untouched so a password
// change requires deliberate action, not just a restart.
func (s *Store) EnsureAdminUser(ctx context.Context, password string) error {
	if _, err := s.GetUserByUsername(ctx, AdminUsername); err == nil {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return errdefs.NewE(errdefs.ErrSystem, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)`,
		AdminUsername, string(hash), s.Clock.Now().UTC())
	if err != nil {
		return errdefs.NewE(errdefs.ErrUnavailable, err)
	}
	return nil
}

// CheckPassword verifies a login attempt, returning ErrUnauthorized on any
// mismatch without detail.
func (s *Store) CheckPassword(ctx context.Context, username, password string) (*User, error) {
	user, err := s.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, errdefs.Newf(errdefs.ErrUnauthorized, "invalid credentials")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, errdefs.Newf(errdefs.ErrUnauthorized, "invalid credentials")
	}
	return user, nil
}
