package update

import (
	"context"
	"encoding/json"
	"errors"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/wuxler/otaserve/pkg/blob"
	"github.com/wuxler/otaserve/pkg/errdefs"
	"github.com/wuxler/otaserve/pkg/store"
	"github.com/wuxler/otaserve/pkg/util/xhash"
	"github.com/wuxler/otaserve/pkg/xlog"
)

// BundleFile is one received file of an upload, keyed by the relative path
// the publisher declared as the multipart field name.
type BundleFile struct {
	Name string
	Data []byte
}

// IngestInput carries everything the upload handler received.
type IngestInput struct {
	Project        string
	RuntimeVersion string
	ReleaseChannel string
	// Platform defaults to "all" when empty.
	Platform  string
	GitBranch string
	GitCommit string
	// SignedManifest holds the decoded pre-signed manifest document, a JSON
	// map from platform to manifest string. Nil when the publisher signs
	// nothing.
	SignedManifest []byte
	// ManifestSignature holds the decoded signature document accompanying
	// SignedManifest.
	ManifestSignature []byte
	Files             []BundleFile
}

// Ingestor receives exported bundles and turns them into ready uploads.
type Ingestor struct {
	Store *store.Store
	Blobs blob.Storage
}

// NewIngestor returns an Ingestor over the given stores.
func NewIngestor(metadata *store.Store, blobs blob.Storage) *Ingestor {
	return &Ingestor{Store: metadata, Blobs: blobs}
}

// Ingest validates the input, writes every file to the object store under a
// content-derived prefix, precomputes the assets manifest and inserts the
// upload row in ready state. The row insert comes last so no row ever
// advertises bytes that were not stored; on earlier failure the orphan
// prefix is harmless and left to garbage collection.
func (ing *Ingestor) Ingest(ctx context.Context, in IngestInput) (*store.Upload, error) {
	if in.Project == "" || in.RuntimeVersion == "" || in.ReleaseChannel == "" {
		return nil, errdefs.Newf(errdefs.ErrInvalidParameter,
			"project, version and release-channel are required")
	}
	platform := in.Platform
	if platform == "" {
		platform = store.PlatformAll
	}
	if !lo.Contains([]string{store.PlatformIOS, store.PlatformAndroid, store.PlatformAll}, platform) {
		return nil, errdefs.Newf(errdefs.ErrInvalidParameter, "unsupported platform %q", platform)
	}
	if len(in.Files) == 0 {
		return nil, errdefs.Newf(errdefs.ErrInvalidParameter, "no files received")
	}

	app, err := ing.Store.GetApplication(ctx, in.Project)
	if err != nil {
		return nil, err
	}

	files, err := normalizeFiles(in.Files)
	if err != nil {
		return nil, err
	}
	metadataJSON := files[MetadataFileName]
	appConfigJSON := files[AppConfigFileName]

	updateID, err := deriveUpdateID(in.SignedManifest, metadataJSON, platform)
	if err != nil {
		return nil, err
	}
	switch _, err := ing.Store.GetUpload(ctx, updateID); {
	case err == nil:
		return nil, errdefs.Newf(errdefs.ErrAlreadyExists, "upload %q", updateID)
	case !errors.Is(err, errdefs.ErrNotFound):
		return nil, err
	}

	prefix := BlobPrefix(app.ID, in.RuntimeVersion, updateID)
	var sizeBytes int64
	for _, file := range in.Files {
		name := path.Clean(file.Name)
		if err := ing.Blobs.Put(ctx, prefix+"/"+name, file.Data); err != nil {
			return nil, err
		}
		sizeBytes += int64(len(file.Data))
	}
	xlog.C(ctx).Infof("stored %d files under %s", len(in.Files), prefix)

	var assetsManifestJSON []byte
	if metadataJSON != nil {
		assetsManifest, err := computeAssetsManifest(metadataJSON, files)
		if err != nil {
			return nil, err
		}
		assetsManifestJSON, err = json.Marshal(assetsManifest)
		if err != nil {
			return nil, errdefs.NewE(errdefs.ErrSystem, err)
		}
	}

	upload := &store.Upload{
		ID:                 updateID,
		ApplicationID:      app.ID,
		RuntimeVersion:     in.RuntimeVersion,
		ReleaseChannel:     in.ReleaseChannel,
		Platform:           platform,
		Status:             store.StatusReady,
		BlobPrefix:         prefix,
		MetadataJSON:       metadataJSON,
		AppConfigJSON:      appConfigJSON,
		AssetsManifestJSON: assetsManifestJSON,
		SignedManifestJSON: in.SignedManifest,
		ManifestSignature:  in.ManifestSignature,
		GitBranch:          in.GitBranch,
		GitCommit:          in.GitCommit,
		SizeBytes:          sizeBytes,
	}
	if err := ing.Store.InsertUpload(ctx, upload); err != nil {
		return nil, err
	}
	return upload, nil
}

// normalizeFiles cleans the relative paths and indexes the buffers by name.
// Absolute paths and paths escaping the prefix are rejected.
func normalizeFiles(files []BundleFile) (map[string][]byte, error) {
	indexed := make(map[string][]byte, len(files))
	for _, file := range files {
		name := path.Clean(file.Name)
		if name == "." || name == ".." ||
			strings.HasPrefix(name, "/") || strings.HasPrefix(name, "../") {
			return nil, errdefs.Newf(errdefs.ErrInvalidParameter, "invalid file path %q", file.Name)
		}
		indexed[name] = file.Data
	}
	return indexed, nil
}

// deriveUpdateID picks the update identifier, in order of preference:
//
//  1. the id committed to inside a pre-signed manifest, so the
//     content-addressed URLs the signature covers resolve under the prefix
//     the server creates,
//  2. a digest of metadata.json salted with the platform, so re-publishing
//     identical content is idempotent while platform-specific uploads of
//     the same metadata do not collide,
//  3. a random UUID.
func deriveUpdateID(signedManifest, metadataJSON []byte, platform string) (string, error) {
	if signedManifest != nil {
		id, err := signedManifestUpdateID(signedManifest)
		if err != nil {
			return "", err
		}
		return id, nil
	}
	if metadataJSON != nil {
		salted := append(append([]byte{}, metadataJSON...), []byte(":"+platform)...)
		return xhash.UUIDFromDigest(xhash.SHA256Base64URL(salted)), nil
	}
	return uuid.NewString(), nil
}

// signedManifestUpdateID extracts the id from the first valid platform entry
// of a pre-signed manifest document.
func signedManifestUpdateID(signedManifest []byte) (string, error) {
	entries := map[string]string{}
	if err := json.Unmarshal(signedManifest, &entries); err != nil {
		return "", errdefs.Newf(errdefs.ErrInvalidParameter, "parse signed manifest: %v", err)
	}
	for _, platform := range []string{store.PlatformIOS, store.PlatformAndroid, store.PlatformAll} {
		entry, ok := entries[platform]
		if !ok {
			continue
		}
		parsed := struct {
			ID string `json:"id"`
		}{}
		if err := json.Unmarshal([]byte(entry), &parsed); err != nil {
			continue
		}
		if parsed.ID != "" {
			return parsed.ID, nil
		}
	}
	return "", errdefs.Newf(errdefs.ErrInvalidParameter, "signed manifest carries no update id")
}

// computeAssetsManifest walks metadata.json and hashes every declared file
// so the serving path never recomputes digests.
func computeAssetsManifest(metadataJSON []byte, files map[string][]byte) (AssetsManifest, error) {
	metadata, err := ParseFileMetadata(metadataJSON)
	if err != nil {
		return nil, err
	}
	manifest := AssetsManifest{}
	for platform, platformMetadata := range metadata.FileMetadata {
		bundle, ok := files[path.Clean(platformMetadata.Bundle)]
		if !ok {
			return nil, errdefs.Newf(errdefs.ErrInvalidParameter,
				"bundle %q declared for %s was not uploaded", platformMetadata.Bundle, platform)
		}
		platformAssets := PlatformAssets{
			LaunchAsset: AssetDescriptor{
				Hash:          xhash.SHA256Base64URL(bundle),
				Key:           xhash.MD5Hex(bundle),
				FileExtension: BundleFileExtension,
				ContentType:   BundleContentType,
				Path:          path.Clean(platformMetadata.Bundle),
			},
			Assets: []AssetDescriptor{},
		}
		for _, asset := range platformMetadata.Assets {
			data, ok := files[path.Clean(asset.Path)]
			if !ok {
				return nil, errdefs.Newf(errdefs.ErrInvalidParameter,
					"asset %q declared for %s was not uploaded", asset.Path, platform)
			}
			platformAssets.Assets = append(platformAssets.Assets, AssetDescriptor{
				Hash:          xhash.SHA256Base64URL(data),
				Key:           xhash.MD5Hex(data),
				FileExtension: "." + asset.Ext,
				ContentType:   ContentTypeForExt(asset.Ext),
				Path:          path.Clean(asset.Path),
			})
		}
		manifest[platform] = platformAssets
	}
	return manifest, nil
}
