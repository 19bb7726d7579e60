package server_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManifestFirstRelease(t *testing.T) {
	f := newFixture(t)
	uploadID := f.publishAndRelease(t, nil)

	rec := f.do(manifestRequest("ios"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "0", rec.Header().Get("expo-sfv-version"))
	assert.Equal(t, "0", rec.Header().Get("expo-protocol-version"))
	assert.Equal(t, "private, max-age=0", rec.Header().Get("Cache-Control"))
	assert.Empty(t, rec.Header().Get("expo-signature"))

	var manifest struct {
		ID          string `json:"id"`
		LaunchAsset struct {
			URL string `json:"url"`
		} `json:"launchAsset"`
	}
	require.NoError(t, json.Unmarshal(readManifestPart(t, rec), &manifest))
	assert.Equal(t, uploadID, manifest.ID)
	assert.True(t, strings.HasPrefix(manifest.LaunchAsset.URL, testBaseURL+"/api/assets?"))
}

func TestManifestSupersedeThenRollback(t *testing.T) {
	f := newFixture(t)
	first := f.publishAndRelease(t, nil)
	f.Clock.Add(time.Minute)
	second := f.publishAndRelease(t, map[string]string{"platform": "ios"})
	require.NotEqual(t, first, second)

	rec := f.do(manifestRequest("ios"))
	require.Equal(t, http.StatusOK, rec.Code)
	var manifest struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(readManifestPart(t, rec), &manifest))
	assert.Equal(t, second, manifest.ID)

	rollback := httptest.NewRequest(http.MethodPost, "/utils/rollback",
		strings.NewReader(`{"uploadId":"`+first+`"}`))
	rollback.Header.Set("Content-Type", "application/json")
	rollback.Header.Set("Authorization", f.bearer(t))
	require.Equal(t, http.StatusOK, f.do(rollback).Code)

	rec = f.do(manifestRequest("ios"))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(readManifestPart(t, rec), &manifest))
	assert.Equal(t, first, manifest.ID)
}

func TestManifestMissingHeaderNamesField(t *testing.T) {
	f := newFixture(t)
	f.publishAndRelease(t, nil)

	req := manifestRequest("ios")
	req.Header.Del("x-app-platform")
	rec := f.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "platform")
}

func TestManifestRejectsUnknownPlatform(t *testing.T) {
	f := newFixture(t)
	rec := f.do(manifestRequest("web"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "platform")
}

// a coordinate without a released upload answers with a JSON 404, not an
// empty multipart body
func TestManifestNotFoundIsJSON(t *testing.T) {
	f := newFixture(t)
	rec := f.do(manifestRequest("ios"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
}

func TestManifestQueryParameters(t *testing.T) {
	f := newFixture(t)
	uploadID := f.publishAndRelease(t, nil)

	req := httptest.NewRequest(http.MethodGet,
		"/api/manifest?project=myapp&platform=android&version=1.0.0&channel=production", nil)
	rec := f.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var manifest struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(readManifestPart(t, rec), &manifest))
	assert.Equal(t, uploadID, manifest.ID)
}

func TestManifestPathSegments(t *testing.T) {
	f := newFixture(t)
	f.publishAndRelease(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/manifest/myapp/production", nil)
	req.Header.Set("x-app-platform", "ios")
	req.Header.Set("x-app-runtime-version", "1.0.0")
	rec := f.do(req)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestManifestHeaderBeatsQuery(t *testing.T) {
	f := newFixture(t)
	f.publishAndRelease(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/manifest?project=no-such-app", nil)
	req.Header.Set("x-app-project", "myapp")
	req.Header.Set("x-app-platform", "ios")
	req.Header.Set("x-app-runtime-version", "1.0.0")
	req.Header.Set("x-app-channel-name", "production")
	rec := f.do(req)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestManifestProjectCaseInsensitive(t *testing.T) {
	f := newFixture(t)
	f.publishAndRelease(t, nil)

	req := manifestRequest("ios")
	req.Header.Set("x-app-project", "MyApp")
	rec := f.do(req)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestAssetServing(t *testing.T) {
	f := newFixture(t)
	uploadID := f.publishAndRelease(t, nil)

	key := "updates/myapp/1.0.0/" + uploadID + "/_static/js/ios/index.hbc"
	req := httptest.NewRequest(http.MethodGet,
		"/api/assets?asset="+key+"&contentType=application/javascript", nil)
	rec := f.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "ios bundle bytes", rec.Body.String())
	assert.Equal(t, "application/javascript", rec.Header().Get("Content-Type"))
	assert.Equal(t, "public, max-age=31536000, immutable", rec.Header().Get("Cache-Control"))
}

func TestAssetPathPolicy(t *testing.T) {
	f := newFixture(t)
	uploadID := f.publishAndRelease(t, nil)

	tests := []struct {
		name string
		key  string
		code int
	}{
		{"outside updates prefix", "secrets/key.pem", http.StatusForbidden},
		{"app config blocked", "updates/myapp/1.0.0/" + uploadID + "/app.json", http.StatusForbidden},
		{"package manifest blocked", "updates/myapp/1.0.0/x/package.json", http.StatusForbidden},
		{"missing object", "updates/myapp/1.0.0/" + uploadID + "/nope", http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.do(httptest.NewRequest(http.MethodGet, "/api/assets?asset="+tc.key, nil))
			assert.Equal(t, tc.code, rec.Code)
		})
	}
}
