package update

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/wuxler/otaserve/pkg/errdefs"
	"github.com/wuxler/otaserve/pkg/store"
	"github.com/wuxler/otaserve/pkg/xlog"
)

// Releaser drives the upload lifecycle: ready to released, released to
// obsolete, and the re-promotion of an obsolete upload on rollback.
type Releaser struct {
	Store *store.Store
}

// NewReleaser returns a Releaser over the metadata store.
func NewReleaser(metadata *store.Store) *Releaser {
	return &Releaser{Store: metadata}
}

// Release promotes an upload to released. Every released sibling of the
// target's (application, runtime version, channel) coordinate is demoted
// first, inside the same transaction, so readers never observe two released
// rows for one coordinate. Releasing an already released upload is a
// conflict and leaves the database unchanged.
func (r *Releaser) Release(ctx context.Context, uploadID string) (*store.Upload, error) {
	return r.promote(ctx, uploadID)
}

// Rollback re-promotes a previously demoted upload. The former released
// sibling becomes obsolete, exactly as on Release.
func (r *Releaser) Rollback(ctx context.Context, uploadID string) (*store.Upload, error) {
	return r.promote(ctx, uploadID)
}

func (r *Releaser) promote(ctx context.Context, uploadID string) (*store.Upload, error) {
	var promoted *store.Upload
	err := r.Store.Transact(ctx, func(tx *sqlx.Tx) error {
		target, err := store.GetUploadQ(ctx, tx, uploadID)
		if err != nil {
			return err
		}
		if target.Status == store.StatusReleased {
			return errdefs.Newf(errdefs.ErrConflict, "upload %q is already released", uploadID)
		}

		now := r.Store.Clock.Now().UTC()
		demoted, err := store.BulkMarkObsoleteQ(ctx, tx,
			target.ApplicationID, target.RuntimeVersion, target.ReleaseChannel, target.ID, now)
		if err != nil {
			return err
		}
		if err := store.SetUploadStatusQ(ctx, tx, target.ID, store.StatusReleased, &now, now); err != nil {
			return err
		}
		target.Status = store.StatusReleased
		target.ReleasedAt = &now
		target.UpdatedAt = now
		promoted = target
		xlog.C(ctx).Infof("released upload %s (%s/%s/%s/%s), demoted %d sibling(s)",
			target.ID, target.ApplicationID, target.RuntimeVersion,
			target.ReleaseChannel, target.Platform, demoted)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return promoted, nil
}
