package store

import (
	"context"

	"github.com/wuxler/otaserve/pkg/errdefs"
)

// UpsertDevice records a device sighting. The first request creates the row;
// later ones refresh last_seen and the reported coordinate. update_count is
// best effort: it grows when the reported current update changes.
func (s *Store) UpsertDevice(ctx context.Context, record DeviceRecord) error {
	now := s.Clock.Now().UTC()
	record.FirstSeen = now
	record.LastSeen = now
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO devices (
			id, application_id, runtime_version, platform, release_channel,
			embedded_update_id, current_update_id, first_seen, last_seen, update_count
		) VALUES (
			:id, :application_id, :runtime_version, :platform, :release_channel,
			:embedded_update_id, :current_update_id, :first_seen, :last_seen, 0
		)
		ON CONFLICT (application_id, id) DO UPDATE SET
			runtime_version = excluded.runtime_version,
			platform = excluded.platform,
			release_channel = excluded.release_channel,
			embedded_update_id = excluded.embedded_update_id,
			current_update_id = excluded.current_update_id,
			last_seen = excluded.last_seen,
			update_count = devices.update_count +
				CASE WHEN devices.current_update_id != excluded.current_update_id THEN 1 ELSE 0 END`,
		record)
	if err != nil {
		return errdefs.NewE(errdefs.ErrUnavailable, err)
	}
	return nil
}

// ListDevices returns the devices of an application, most recently seen
// first.
func (s *Store) ListDevices(ctx context.Context, applicationID string, limit, offset int) ([]DeviceRecord, error) {
	query := `SELECT * FROM devices WHERE application_id = ? ORDER BY last_seen DESC`
	args := []any{applicationID}
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}
	devices := []DeviceRecord{}
	if err := s.db.SelectContext(ctx, &devices, query, args...); err != nil {
		return nil, errdefs.NewE(errdefs.ErrUnavailable, err)
	}
	return devices, nil
}
