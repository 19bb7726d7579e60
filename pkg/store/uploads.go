package store

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/wuxler/otaserve/pkg/errdefs"
)

// UploadFilter narrows ListUploads. Zero values match everything.
type UploadFilter struct {
	ApplicationID  string
	RuntimeVersion string
	ReleaseChannel string
	Status         string
	Limit          int
	Offset         int
}

// InsertUpload creates an upload row. The caller has already derived the id
// and the blob prefix; timestamps are stamped here.
func (s *Store) InsertUpload(ctx context.Context, upload *Upload) error {
	now := s.Clock.Now().UTC()
	upload.CreatedAt = now
	upload.UpdatedAt = now
	if upload.Status == "" {
		upload.Status = StatusReady
	}
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO uploads (
			id, application_id, runtime_version, release_channel, platform, status,
			blob_prefix, metadata_json, app_config_json, assets_manifest_json,
			signed_manifest_json, manifest_signature, git_branch, git_commit,
			size_bytes, created_at, released_at, updated_at
		) VALUES (
			:id, :application_id, :runtime_version, :release_channel, :platform, :status,
			:blob_prefix, :metadata_json, :app_config_json, :assets_manifest_json,
			:signed_manifest_json, :manifest_signature, :git_branch, :git_commit,
			:size_bytes, :created_at, :released_at, :updated_at
		)`, upload)
	if err != nil {
		return errdefs.NewE(errdefs.ErrUnavailable, err)
	}
	return nil
}

// GetUpload returns the upload with the given id.
func (s *Store) GetUpload(ctx context.Context, id string) (*Upload, error) {
	return GetUploadQ(ctx, s.db, id)
}

// GetUploadQ is GetUpload against an arbitrary Querier, so the release state
// machine can read inside its transaction.
func GetUploadQ(ctx context.Context, q Querier, id string) (*Upload, error) {
	upload := &Upload{}
	err := sqlx.GetContext(ctx, q, upload, `SELECT * FROM uploads WHERE id = ?`, id)
	if err != nil {
		return nil, wrapQueryErr(err, "upload %q", id)
	}
	return upload, nil
}

// ListUploads returns uploads matching the filter, newest first.
func (s *Store) ListUploads(ctx context.Context, filter UploadFilter) ([]Upload, error) {
	query := `SELECT * FROM uploads WHERE 1=1`
	args := []any{}
	if filter.ApplicationID != "" {
		query += ` AND application_id = ?`
		args = append(args, filter.ApplicationID)
	}
	if filter.RuntimeVersion != "" {
		query += ` AND runtime_version = ?`
		args = append(args, filter.RuntimeVersion)
	}
	if filter.ReleaseChannel != "" {
		query += ` AND release_channel = ?`
		args = append(args, filter.ReleaseChannel)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}
	uploads := []Upload{}
	if err := s.db.SelectContext(ctx, &uploads, query, args...); err != nil {
		return nil, errdefs.NewE(errdefs.ErrUnavailable, err)
	}
	return uploads, nil
}

// FindServableUpload returns the released upload for the exact coordinate.
// A platform-specific row wins over a platform=all row; any residual tie is
// broken by the most recent release time. Runs on the coordinate index.
func (s *Store) FindServableUpload(ctx context.Context, applicationID, runtimeVersion, releaseChannel, platform string) (*Upload, error) {
	upload := &Upload{}
	err := s.db.GetContext(ctx, upload,
		`SELECT * FROM uploads
		 WHERE application_id = ? AND runtime_version = ? AND release_channel = ?
		   AND platform IN (?, ?) AND status = ?
		 ORDER BY CASE WHEN platform = ? THEN 0 ELSE 1 END, released_at DESC
		 LIMIT 1`,
		applicationID, runtimeVersion, releaseChannel,
		platform, PlatformAll, StatusReleased, platform)
	if err != nil {
		return nil, wrapQueryErr(err, "no released upload for %s/%s/%s/%s",
			applicationID, runtimeVersion, releaseChannel, platform)
	}
	return upload, nil
}

// UpdateUploadMeta patches the mutable annotation fields.
func (s *Store) UpdateUploadMeta(ctx context.Context, id, gitBranch, gitCommit string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE uploads SET git_branch = ?, git_commit = ?, updated_at = ? WHERE id = ?`,
		gitBranch, gitCommit, s.Clock.Now().UTC(), id)
	if err != nil {
		return errdefs.NewE(errdefs.ErrUnavailable, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errdefs.Newf(errdefs.ErrNotFound, "upload %q", id)
	}
	return nil
}

// DeleteUpload removes the upload row. Blob cleanup under its prefix is the
// caller's job.
func (s *Store) DeleteUpload(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM uploads WHERE id = ?`, id)
	if err != nil {
		return errdefs.NewE(errdefs.ErrUnavailable, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errdefs.Newf(errdefs.ErrNotFound, "upload %q", id)
	}
	return nil
}

// SetUploadStatusQ moves a single upload to the given status. A non-nil
// releasedAt also stamps released_at, which only the ready to released
// transition does.
func SetUploadStatusQ(ctx context.Context, q Querier, id, status string, releasedAt *time.Time, updatedAt time.Time) error {
	var err error
	if releasedAt != nil {
		_, err = q.ExecContext(ctx,
			`UPDATE uploads SET status = ?, released_at = ?, updated_at = ? WHERE id = ?`,
			status, releasedAt.UTC(), updatedAt, id)
	} else {
		_, err = q.ExecContext(ctx,
			`UPDATE uploads SET status = ?, updated_at = ? WHERE id = ?`,
			status, updatedAt, id)
	}
	if err != nil {
		return errdefs.NewE(errdefs.ErrUnavailable, err)
	}
	return nil
}

// BulkMarkObsoleteQ demotes every released sibling of the coordinate except
// the given id. Deliberately not conditioned on platform: promoting a narrow
// release supersedes a broader one for the same coordinate.
func BulkMarkObsoleteQ(ctx context.Context, q Querier, applicationID, runtimeVersion, releaseChannel, exceptID string, updatedAt time.Time) (int64, error) {
	res, err := q.ExecContext(ctx,
		`UPDATE uploads SET status = ?, updated_at = ?
		 WHERE application_id = ? AND runtime_version = ? AND release_channel = ?
		   AND status = ? AND id != ?`,
		StatusObsolete, updatedAt,
		applicationID, runtimeVersion, releaseChannel,
		StatusReleased, exceptID)
	if err != nil {
		return 0, errdefs.NewE(errdefs.ErrUnavailable, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
