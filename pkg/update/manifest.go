package update

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/wuxler/otaserve/pkg/errdefs"
	"github.com/wuxler/otaserve/pkg/store"
	"github.com/wuxler/otaserve/pkg/util/xcache"
	"github.com/wuxler/otaserve/pkg/xlog"
)

// createdAtFormat is the timestamp layout devices expect in manifests.
const createdAtFormat = "2006-01-02T15:04:05.000Z"

// DeviceRequest is the parsed context of one device poll.
type DeviceRequest struct {
	Project         string
	Platform        string
	RuntimeVersion  string
	ReleaseChannel  string
	ProtocolVersion int
	ExpectSignature bool
	// ClientID identifies the device; when empty no sighting is recorded.
	ClientID         string
	EmbeddedUpdateID string
	CurrentUpdateID  string
}

// Manifest is the document a device consumes. Field order is fixed so the
// same upload always serializes to the same bytes.
type Manifest struct {
	ID             string          `json:"id"`
	CreatedAt      string          `json:"createdAt"`
	RuntimeVersion string          `json:"runtimeVersion"`
	LaunchAsset    ManifestAsset   `json:"launchAsset"`
	Assets         []ManifestAsset `json:"assets"`
	Metadata       map[string]any  `json:"metadata"`
	Extra          ManifestExtra   `json:"extra"`
}

// ManifestAsset describes one downloadable file in a manifest.
type ManifestAsset struct {
	Hash          string `json:"hash"`
	Key           string `json:"key"`
	FileExtension string `json:"fileExtension"`
	ContentType   string `json:"contentType"`
	URL           string `json:"url"`
}

// ManifestExtra carries the app config the publisher exported.
type ManifestExtra struct {
	ExpoClient json.RawMessage `json:"expoClient,omitempty"`
}

// ComposedManifest is the result of composing one device request: the exact
// manifest bytes to put on the wire and the signature header when one is in
// effect.
type ComposedManifest struct {
	Upload    *store.Upload
	Manifest  []byte
	Signature string
}

// Composer resolves device requests into manifests.
type Composer struct {
	Store *store.Store
	// BaseURL is the externally visible server address asset URLs point at.
	BaseURL string
	// Recorder receives device sightings; nil disables recording.
	Recorder *Recorder

	// assetsCache holds parsed assets manifests keyed by upload id. Upload
	// rows are immutable after ingestion so entries never go stale.
	assetsCache xcache.Cache[AssetsManifest]
}

// NewComposer returns a Composer serving asset URLs under baseURL.
func NewComposer(metadata *store.Store, baseURL string, recorder *Recorder) *Composer {
	return &Composer{
		Store:       metadata,
		BaseURL:     strings.TrimSuffix(baseURL, "/"),
		Recorder:    recorder,
		assetsCache: xcache.NewMemory[AssetsManifest](),
	}
}

// Compose resolves the request to the unique released upload of its
// coordinate and renders the manifest. A pre-signed manifest entry for the
// platform is passed through byte for byte; otherwise the manifest is built
// from the assets cache and signed on demand.
func (c *Composer) Compose(ctx context.Context, req DeviceRequest) (*ComposedManifest, error) {
	app, err := c.Store.GetApplication(ctx, req.Project)
	if err != nil {
		return nil, err
	}
	upload, err := c.Store.FindServableUpload(ctx,
		app.ID, req.RuntimeVersion, req.ReleaseChannel, req.Platform)
	if err != nil {
		return nil, err
	}

	if c.Recorder != nil && req.ClientID != "" {
		c.Recorder.Record(store.DeviceRecord{
			ID:               req.ClientID,
			ApplicationID:    app.ID,
			RuntimeVersion:   req.RuntimeVersion,
			Platform:         req.Platform,
			ReleaseChannel:   req.ReleaseChannel,
			EmbeddedUpdateID: req.EmbeddedUpdateID,
			CurrentUpdateID:  req.CurrentUpdateID,
		})
	}

	if manifest, signature, ok := c.signedPassthrough(upload, req.Platform); ok {
		xlog.C(ctx).Debugf("serving pre-signed manifest %s for %s", upload.ID, req.Platform)
		return &ComposedManifest{Upload: upload, Manifest: manifest, Signature: signature}, nil
	}
	return c.build(ctx, app, upload, req)
}

// signedPassthrough returns the publisher-signed manifest entry for the
// platform. The bytes are emitted exactly as stored: re-serializing a
// parsed manifest would change whitespace and break the signature.
func (c *Composer) signedPassthrough(upload *store.Upload, platform string) (manifest []byte, signature string, ok bool) {
	if upload.SignedManifestJSON == nil {
		return nil, "", false
	}
	entries := map[string]string{}
	if err := json.Unmarshal(upload.SignedManifestJSON, &entries); err != nil {
		return nil, "", false
	}
	entry, ok := entries[platform]
	if !ok {
		return nil, "", false
	}
	if upload.ManifestSignature != nil {
		signatures := map[string]string{}
		if err := json.Unmarshal(upload.ManifestSignature, &signatures); err == nil {
			signature = signatures[platform]
		}
	}
	return []byte(entry), signature, true
}

func (c *Composer) build(ctx context.Context, app *store.Application, upload *store.Upload, req DeviceRequest) (*ComposedManifest, error) {
	assets, err := c.loadAssetsManifest(ctx, upload)
	if err != nil {
		return nil, err
	}
	platformAssets, ok := assets[req.Platform]
	if !ok {
		return nil, errdefs.Newf(errdefs.ErrNotFound,
			"upload %q has no %s assets", upload.ID, req.Platform)
	}

	manifest := Manifest{
		ID:             upload.ID,
		CreatedAt:      upload.CreatedAt.UTC().Format(createdAtFormat),
		RuntimeVersion: req.RuntimeVersion,
		LaunchAsset:    c.manifestAsset(upload, req.Platform, platformAssets.LaunchAsset),
		Assets:         []ManifestAsset{},
		Metadata:       map[string]any{},
		Extra:          ManifestExtra{ExpoClient: upload.AppConfigJSON},
	}
	for _, asset := range platformAssets.Assets {
		manifest.Assets = append(manifest.Assets, c.manifestAsset(upload, req.Platform, asset))
	}

	body, err := json.Marshal(manifest)
	if err != nil {
		return nil, errdefs.NewE(errdefs.ErrSystem, err)
	}

	var signatureHeader string
	if req.ExpectSignature && app.PrivateKeyPEM != nil {
		signer, err := NewSigner([]byte(*app.PrivateKeyPEM))
		if err != nil {
			return nil, errdefs.NewE(errdefs.ErrSystem, err)
		}
		signature, err := signer.Sign(body)
		if err != nil {
			return nil, err
		}
		signatureHeader = FormatSignatureHeader(signature)
	}
	return &ComposedManifest{Upload: upload, Manifest: body, Signature: signatureHeader}, nil
}

func (c *Composer) loadAssetsManifest(ctx context.Context, upload *store.Upload) (AssetsManifest, error) {
	if upload.AssetsManifestJSON == nil {
		return nil, errdefs.Newf(errdefs.ErrSystem, "upload %q has no assets manifest", upload.ID)
	}
	var parseErr error
	assets, ok := c.assetsCache.Get(ctx, upload.ID,
		xcache.WithLoader(func(_ context.Context, _ string) (AssetsManifest, bool) {
			parsed, err := ParseAssetsManifest(upload.AssetsManifestJSON)
			if err != nil {
				parseErr = err
				return nil, false
			}
			return parsed, true
		}))
	if !ok {
		if parseErr == nil {
			parseErr = errdefs.Newf(errdefs.ErrSystem, "assets manifest of upload %q is unreadable", upload.ID)
		}
		return nil, parseErr
	}
	return assets, nil
}

// manifestAsset attaches the serving URL to a cached descriptor. The asset
// key always lies under the upload's blob prefix.
func (c *Composer) manifestAsset(upload *store.Upload, platform string, desc AssetDescriptor) ManifestAsset {
	query := url.Values{}
	query.Set("asset", upload.BlobPrefix+"/"+desc.Path)
	query.Set("contentType", desc.ContentType)
	query.Set("platform", platform)
	return ManifestAsset{
		Hash:          desc.Hash,
		Key:           desc.Key,
		FileExtension: desc.FileExtension,
		ContentType:   desc.ContentType,
		URL:           c.BaseURL + "/api/assets?" + query.Encode(),
	}
}
