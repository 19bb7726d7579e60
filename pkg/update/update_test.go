package update_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/wuxler/otaserve/pkg/blob"
	"github.com/wuxler/otaserve/pkg/store"
	"github.com/wuxler/otaserve/pkg/update"
)

const testMetadataJSON = `{"version":0,"bundler":"metro","fileMetadata":{` +
	`"ios":{"bundle":"_static/js/ios/index.hbc","assets":[{"path":"assets/icon","ext":"png"}]},` +
	`"android":{"bundle":"_static/js/android/index.hbc","assets":[{"path":"assets/icon","ext":"png"}]}}}`

const testAppConfigJSON = `{"name":"My App","slug":"myapp","version":"1.0.0"}`

type fixture struct {
	Store *store.Store
	Clock *clock.Mock
	Blobs blob.Storage
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	mock := clock.NewMock()
	mock.Set(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	s.Clock = mock

	ctx := context.Background()
	require.NoError(t, s.Migrate(ctx))
	_, err = s.InsertApplication(ctx, "myapp", "My App")
	require.NoError(t, err)

	return &fixture{Store: s, Clock: mock, Blobs: blob.NewMemory()}
}

func bundleFiles() []update.BundleFile {
	return []update.BundleFile{
		{Name: "metadata.json", Data: []byte(testMetadataJSON)},
		{Name: "app.json", Data: []byte(testAppConfigJSON)},
		{Name: "_static/js/ios/index.hbc", Data: []byte("ios bundle bytes")},
		{Name: "_static/js/android/index.hbc", Data: []byte("android bundle bytes")},
		{Name: "assets/icon", Data: []byte("png bytes")},
	}
}

func ingestInput() update.IngestInput {
	return update.IngestInput{
		Project:        "myapp",
		RuntimeVersion: "1.0.0",
		ReleaseChannel: "production",
		Files:          bundleFiles(),
	}
}

// ingestAndRelease publishes one upload and promotes it.
func ingestAndRelease(t *testing.T, f *fixture, in update.IngestInput) *store.Upload {
	t.Helper()
	ctx := context.Background()
	upload, err := update.NewIngestor(f.Store, f.Blobs).Ingest(ctx, in)
	require.NoError(t, err)
	released, err := update.NewReleaser(f.Store).Release(ctx, upload.ID)
	require.NoError(t, err)
	return released
}
