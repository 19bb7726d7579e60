package update_test

import (
	"context"
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wuxler/otaserve/pkg/errdefs"
	"github.com/wuxler/otaserve/pkg/update"
	"github.com/wuxler/otaserve/pkg/util/xhash"
)

const testBaseURL = "https://ota.example.com"

func deviceRequest(platform string) update.DeviceRequest {
	return update.DeviceRequest{
		Project:        "myapp",
		Platform:       platform,
		RuntimeVersion: "1.0.0",
		ReleaseChannel: "production",
	}
}

func TestComposeBuildsManifest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	upload := ingestAndRelease(t, f, ingestInput())

	composer := update.NewComposer(f.Store, testBaseURL, nil)
	composed, err := composer.Compose(ctx, deviceRequest("ios"))
	require.NoError(t, err)
	assert.Equal(t, upload.ID, composed.Upload.ID)
	assert.Empty(t, composed.Signature)

	var manifest update.Manifest
	require.NoError(t, json.Unmarshal(composed.Manifest, &manifest))
	assert.Equal(t, upload.ID, manifest.ID)
	assert.Equal(t, "2024-06-01T12:00:00.000Z", manifest.CreatedAt)
	assert.Equal(t, "1.0.0", manifest.RuntimeVersion)
	assert.JSONEq(t, testAppConfigJSON, string(manifest.Extra.ExpoClient))

	launch := manifest.LaunchAsset
	assert.Equal(t, xhash.SHA256Base64URL([]byte("ios bundle bytes")), launch.Hash)
	assert.Equal(t, xhash.MD5Hex([]byte("ios bundle bytes")), launch.Key)
	assert.Equal(t, ".bundle", launch.FileExtension)
	assert.Equal(t, "application/javascript", launch.ContentType)

	wantQuery := url.Values{}
	wantQuery.Set("asset", upload.BlobPrefix+"/_static/js/ios/index.hbc")
	wantQuery.Set("contentType", "application/javascript")
	wantQuery.Set("platform", "ios")
	assert.Equal(t, testBaseURL+"/api/assets?"+wantQuery.Encode(), launch.URL)

	require.Len(t, manifest.Assets, 1)
	icon := manifest.Assets[0]
	assert.Equal(t, xhash.SHA256Base64URL([]byte("png bytes")), icon.Hash)
	assert.Equal(t, ".png", icon.FileExtension)
	assert.Equal(t, "image/png", icon.ContentType)
	assert.Contains(t, icon.URL, url.QueryEscape(upload.BlobPrefix+"/assets/icon"))
}

// Two polls for the same upload must produce identical bytes: devices and
// caches compare manifests byte for byte.
func TestComposeIsDeterministic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ingestAndRelease(t, f, ingestInput())

	composer := update.NewComposer(f.Store, testBaseURL, nil)
	first, err := composer.Compose(ctx, deviceRequest("android"))
	require.NoError(t, err)
	second, err := composer.Compose(ctx, deviceRequest("android"))
	require.NoError(t, err)
	assert.Equal(t, first.Manifest, second.Manifest)
}

func TestComposeSignsOnDemand(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ingestAndRelease(t, f, ingestInput())

	privatePEM, publicPEM, err := update.GenerateKeyPair()
	require.NoError(t, err)
	require.NoError(t, f.Store.SetApplicationKeyPair(ctx, "myapp", privatePEM, publicPEM))

	composer := update.NewComposer(f.Store, testBaseURL, nil)

	req := deviceRequest("ios")
	req.ExpectSignature = true
	composed, err := composer.Compose(ctx, req)
	require.NoError(t, err)
	require.NotEmpty(t, composed.Signature)
	assert.True(t, strings.HasSuffix(composed.Signature, `keyid="main"`))

	// the signature must verify against the exact manifest bytes
	_, rest, found := strings.Cut(composed.Signature, `sig="`)
	require.True(t, found)
	encoded, _, found := strings.Cut(rest, `"`)
	require.True(t, found)
	signature, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)

	block, _ := pem.Decode([]byte(publicPEM))
	require.NotNil(t, block)
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	require.NoError(t, err)
	digest := sha256.Sum256(composed.Manifest)
	require.NoError(t, rsa.VerifyPKCS1v15(parsed.(*rsa.PublicKey), crypto.SHA256, digest[:], signature))
}

func TestComposeWithoutSignatureRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ingestAndRelease(t, f, ingestInput())

	privatePEM, publicPEM, err := update.GenerateKeyPair()
	require.NoError(t, err)
	require.NoError(t, f.Store.SetApplicationKeyPair(ctx, "myapp", privatePEM, publicPEM))

	composer := update.NewComposer(f.Store, testBaseURL, nil)
	composed, err := composer.Compose(ctx, deviceRequest("ios"))
	require.NoError(t, err)
	assert.Empty(t, composed.Signature)
}

func TestComposeNoReleasedUpload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// a ready upload is not servable
	_, err := update.NewIngestor(f.Store, f.Blobs).Ingest(ctx, ingestInput())
	require.NoError(t, err)

	_, err = update.NewComposer(f.Store, testBaseURL, nil).Compose(ctx, deviceRequest("ios"))
	assert.ErrorIs(t, err, errdefs.ErrNotFound)
}

func TestComposeUnknownProject(t *testing.T) {
	f := newFixture(t)

	req := deviceRequest("ios")
	req.Project = "no-such-app"
	_, err := update.NewComposer(f.Store, testBaseURL, nil).Compose(context.Background(), req)
	assert.ErrorIs(t, err, errdefs.ErrNotFound)
}

func TestComposePlatformWithoutAssets(t *testing.T) {
	f := newFixture(t)
	ingestAndRelease(t, f, ingestInput())

	_, err := update.NewComposer(f.Store, testBaseURL, nil).Compose(context.Background(), deviceRequest("web"))
	assert.ErrorIs(t, err, errdefs.ErrNotFound)
}

func TestComposeSignedPassthrough(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	iosEntry := `{"id":"11111111-2222-3333-4444-555555555555","createdAt":"2024-05-31T00:00:00.000Z"}`
	in := ingestInput()
	in.SignedManifest = []byte(`{"ios":` + mustQuote(iosEntry) + `}`)
	in.ManifestSignature = []byte(`{"ios":"sig=\"abc\", keyid=\"main\""}`)
	ingestAndRelease(t, f, in)

	composer := update.NewComposer(f.Store, testBaseURL, nil)
	composed, err := composer.Compose(ctx, deviceRequest("ios"))
	require.NoError(t, err)
	// the stored entry goes out byte for byte, never re-serialized
	assert.Equal(t, []byte(iosEntry), composed.Manifest)
	assert.Equal(t, `sig="abc", keyid="main"`, composed.Signature)

	// android has no signed entry, so its manifest is built server-side
	composed, err = composer.Compose(ctx, deviceRequest("android"))
	require.NoError(t, err)
	var manifest update.Manifest
	require.NoError(t, json.Unmarshal(composed.Manifest, &manifest))
	assert.Equal(t, "11111111-2222-3333-4444-555555555555", manifest.ID)
	assert.Empty(t, composed.Signature)
}

func mustQuote(s string) string {
	quoted, err := json.Marshal(s)
	if err != nil {
		panic(err)
	}
	return string(quoted)
}
