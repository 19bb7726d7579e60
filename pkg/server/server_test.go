package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/wuxler/otaserve/pkg/blob"
	"github.com/wuxler/otaserve/pkg/server"
	"github.com/wuxler/otaserve/pkg/store"
)

const (
	testUploadSecret  = "publish-secret"
	testJWTSecret     = "test-jwt-secret"
	testAdminPassword = "hunter2"
	testBaseURL       = "https://ota.example.com"
)

const testMetadataJSON = `{"version":0,"bundler":"metro","fileMetadata":{` +
	`"ios":{"bundle":"_static/js/ios/index.hbc","assets":[{"path":"assets/icon","ext":"png"}]},` +
	`"android":{"bundle":"_static/js/android/index.hbc","assets":[{"path":"assets/icon","ext":"png"}]}}}`

const testAppConfigJSON = `{"name":"My App","slug":"myapp","version":"1.0.0"}`

type fixture struct {
	Store  *store.Store
	Clock  *clock.Mock
	Blobs  blob.Storage
	Server *server.Server
	Router *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	return newFixtureConfig(t, server.Config{})
}

func newFixtureConfig(t *testing.T, config server.Config) *fixture {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	mock := clock.NewMock()
	mock.Set(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	s.Clock = mock

	ctx := context.Background()
	require.NoError(t, s.Migrate(ctx))
	require.NoError(t, s.EnsureAdminUser(ctx, testAdminPassword))
	_, err = s.InsertApplication(ctx, "myapp", "My App")
	require.NoError(t, err)

	if config.BaseURL == "" {
		config.BaseURL = testBaseURL
	}
	if config.UploadSecret == "" {
		config.UploadSecret = testUploadSecret
	}
	if config.JWTSecret == "" {
		config.JWTSecret = testJWTSecret
	}

	blobs := blob.NewMemory()
	srv := server.New(config, s, blobs)
	srv.Start(ctx)
	t.Cleanup(func() { _ = srv.Close() })

	return &fixture{Store: s, Clock: mock, Blobs: blobs, Server: srv, Router: srv.Router()}
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.Router.ServeHTTP(rec, req)
	return rec
}

// bearer logs in as the bootstrapped admin and returns an Authorization
// header value.
func (f *fixture) bearer(t *testing.T) string {
	t.Helper()
	body := `{"username":"admin","password":"` + testAdminPassword + `"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := f.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return "Bearer " + resp.Token
}

// uploadBundle publishes the standard test bundle and returns the response.
func (f *fixture) uploadBundle(t *testing.T, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	files := map[string]string{
		"metadata.json":                testMetadataJSON,
		"app.json":                     testAppConfigJSON,
		"_static/js/ios/index.hbc":     "ios bundle bytes",
		"_static/js/android/index.hbc": "android bundle bytes",
		"assets/icon":                  "png bytes",
	}
	for name, data := range files {
		field, err := writer.CreateFormField(name)
		require.NoError(t, err)
		_, err = field.Write([]byte(data))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("x-upload-key", testUploadSecret)
	req.Header.Set("project", "myapp")
	req.Header.Set("version", "1.0.0")
	req.Header.Set("release-channel", "production")
	for name, value := range headers {
		req.Header.Set(name, value)
	}
	return f.do(req)
}

// publishAndRelease runs a full publish plus release and returns the new
// upload id.
func (f *fixture) publishAndRelease(t *testing.T, headers map[string]string) string {
	t.Helper()
	rec := f.uploadBundle(t, headers)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	release := httptest.NewRequest(http.MethodPost, "/utils/release",
		bytes.NewBufferString(`{"uploadId":"`+created.ID+`"}`))
	release.Header.Set("Content-Type", "application/json")
	release.Header.Set("Authorization", f.bearer(t))
	releaseRec := f.do(release)
	require.Equal(t, http.StatusOK, releaseRec.Code, releaseRec.Body.String())
	return created.ID
}

// manifestRequest polls /api/manifest with the standard device headers.
func manifestRequest(platform string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/manifest", nil)
	req.Header.Set("x-app-project", "myapp")
	req.Header.Set("x-app-platform", platform)
	req.Header.Set("x-app-runtime-version", "1.0.0")
	req.Header.Set("x-app-channel-name", "production")
	return req
}

// readManifestPart pulls the manifest body out of a multipart response.
func readManifestPart(t *testing.T, rec *httptest.ResponseRecorder) []byte {
	t.Helper()
	mediaType, params, err := mime.ParseMediaType(rec.Header().Get("Content-Type"))
	require.NoError(t, err)
	require.Equal(t, "multipart/mixed", mediaType)
	reader := multipart.NewReader(rec.Body, params["boundary"])
	part, err := reader.NextPart()
	require.NoError(t, err)
	require.Equal(t, "manifest", part.FormName())
	data, err := io.ReadAll(part)
	require.NoError(t, err)
	return data
}

func TestPing(t *testing.T) {
	f := newFixture(t)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "OK", rec.Body.String())
}
