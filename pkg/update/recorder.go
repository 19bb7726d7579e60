package update

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wuxler/otaserve/pkg/store"
	"github.com/wuxler/otaserve/pkg/xlog"
)

const (
	defaultRecorderBuffer = 256
	recorderUpsertTimeout = 5 * time.Second
)

// Recorder upserts device last-seen records off the manifest serving path.
// Record never blocks: when the queue is full the sighting is dropped, the
// records are observational only.
type Recorder struct {
	store *store.Store
	ch    chan store.DeviceRecord
	group *errgroup.Group
	stop  context.CancelFunc
}

// NewRecorder returns a Recorder writing to the metadata store.
func NewRecorder(metadata *store.Store) *Recorder {
	return &Recorder{
		store: metadata,
		ch:    make(chan store.DeviceRecord, defaultRecorderBuffer),
	}
}

// Start launches the worker goroutine. The worker runs until Close or until
// ctx is canceled.
func (r *Recorder) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	r.stop = cancel
	group, ctx := errgroup.WithContext(ctx)
	r.group = group
	group.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case record, ok := <-r.ch:
				if !ok {
					return nil
				}
				r.upsert(record)
			}
		}
	})
}

// Record enqueues a device sighting. Safe for concurrent use.
func (r *Recorder) Record(record store.DeviceRecord) {
	select {
	case r.ch <- record:
	default:
		xlog.Debugf("device recorder queue full, dropping sighting of %s", record.ID)
	}
}

// Close stops the worker and waits for it to drain the in-flight record.
func (r *Recorder) Close() error {
	if r.stop != nil {
		r.stop()
	}
	if r.group != nil {
		return r.group.Wait()
	}
	return nil
}

// upsert runs on its own context so a canceled device request never aborts
// the write, and a stuck store never wedges the worker forever.
func (r *Recorder) upsert(record store.DeviceRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), recorderUpsertTimeout)
	defer cancel()
	if err := r.store.UpsertDevice(ctx, record); err != nil {
		xlog.Warnf("device upsert failed for %s: %v", record.ID, err)
	}
}
