package store

import (
	"context"

	"github.com/wuxler/otaserve/pkg/errdefs"
)

// GetApplication resolves an application by slug, matching the id
// case-insensitively and returning the row with its canonical casing.
func (s *Store) GetApplication(ctx context.Context, id string) (*Application, error) {
	app := &Application{}
	err := s.db.GetContext(ctx, app,
		`SELECT * FROM applications WHERE id = ? COLLATE NOCASE`, id)
	if err != nil {
		return nil, wrapQueryErr(err, "application %q", id)
	}
	return app, nil
}

// ListApplications returns every application ordered by creation time.
func (s *Store) ListApplications(ctx context.Context) ([]Application, error) {
	apps := []Application{}
	err := s.db.SelectContext(ctx, &apps,
		`SELECT * FROM applications ORDER BY created_at`)
	if err != nil {
		return nil, wrapQueryErr(err, "applications")
	}
	return apps, nil
}

// InsertApplication creates an application. The slug must be unused under
// case-insensitive comparison.
func (s *Store) InsertApplication(ctx context.Context, id, displayName string) (*Application, error) {
	if existing, err := s.GetApplication(ctx, id); err == nil {
		return nil, errdefs.Newf(errdefs.ErrAlreadyExists, "application %q", existing.ID)
	}
	now := s.Clock.Now().UTC()
	app := &Application{
		ID:          id,
		DisplayName: displayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO applications (id, display_name, created_at, updated_at)
		 VALUES (:id, :display_name, :created_at, :updated_at)`, app)
	if err != nil {
		return nil, errdefs.NewE(errdefs.ErrUnavailable, err)
	}
	return app, nil
}

// UpdateApplicationName changes the display name.
func (s *Store) UpdateApplicationName(ctx context.Context, id, displayName string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE applications SET display_name = ?, updated_at = ? WHERE id = ?`,
		displayName, s.Clock.Now().UTC(), id)
	if err != nil {
		return errdefs.NewE(errdefs.ErrUnavailable, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errdefs.Newf(errdefs.ErrNotFound, "application %q", id)
	}
	return nil
}

// SetApplicationKeyPair stores the signing key pair on the application row.
func (s *Store) SetApplicationKeyPair(ctx context.Context, id, privateKeyPEM, publicKeyPEM string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE applications SET private_key_pem = ?, public_key_pem = ?, updated_at = ? WHERE id = ?`,
		privateKeyPEM, publicKeyPEM, s.Clock.Now().UTC(), id)
	if err != nil {
		return errdefs.NewE(errdefs.ErrUnavailable, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errdefs.Newf(errdefs.ErrNotFound, "application %q", id)
	}
	return nil
}

// DeleteApplication removes the application row; uploads and devices cascade
// through the foreign keys. Object-store cleanup is the caller's job since
// it lives outside the transaction.
func (s *Store) DeleteApplication(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM applications WHERE id = ?`, id)
	if err != nil {
		return errdefs.NewE(errdefs.ErrUnavailable, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errdefs.Newf(errdefs.ErrNotFound, "application %q", id)
	}
	return nil
}
