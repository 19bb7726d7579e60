// Package update implements the update domain core: upload ingestion, the
// release state machine, manifest composition and the wire encoding served
// to devices.
package update

import (
	"encoding/json"
	"path"

	"github.com/wuxler/otaserve/pkg/errdefs"
)

// Well-known file names inside an exported bundle. Both sit at the root of
// the upload prefix.
const (
	MetadataFileName  = "metadata.json"
	AppConfigFileName = "app.json"
)

// BundleFileExtension is the fileExtension advertised for every launch
// bundle regardless of its real name.
const BundleFileExtension = ".bundle"

// BundleContentType is the contentType advertised for launch bundles.
const BundleContentType = "application/javascript"

// FileMetadata mirrors the metadata.json document the export step of the
// publisher produces.
type FileMetadata struct {
	Version      int                             `json:"version"`
	Bundler      string                          `json:"bundler,omitempty"`
	FileMetadata map[string]PlatformFileMetadata `json:"fileMetadata"`
}

// PlatformFileMetadata declares the bundle path and asset list of one
// platform.
type PlatformFileMetadata struct {
	Bundle string      `json:"bundle"`
	Assets []AssetFile `json:"assets"`
}

// AssetFile is one asset entry in metadata.json.
type AssetFile struct {
	Path string `json:"path"`
	Ext  string `json:"ext"`
}

// ParseFileMetadata decodes metadata.json bytes.
func ParseFileMetadata(data []byte) (*FileMetadata, error) {
	metadata := &FileMetadata{}
	if err := json.Unmarshal(data, metadata); err != nil {
		return nil, errdefs.Newf(errdefs.ErrInvalidParameter, "parse %s: %v", MetadataFileName, err)
	}
	return metadata, nil
}

// AssetDescriptor is the precomputed description of one stored file: its
// content addresses, advertised extension and content type, and the path of
// the file relative to the upload prefix.
type AssetDescriptor struct {
	Hash          string `json:"hash"`
	Key           string `json:"key"`
	FileExtension string `json:"fileExtension"`
	ContentType   string `json:"contentType"`
	Path          string `json:"path"`
}

// PlatformAssets is the assets cache of one platform.
type PlatformAssets struct {
	LaunchAsset AssetDescriptor   `json:"launchAsset"`
	Assets      []AssetDescriptor `json:"assets"`
}

// AssetsManifest caches every asset description per platform. It is
// computed once at ingestion so the manifest endpoint never reads the
// object store.
type AssetsManifest map[string]PlatformAssets

// ParseAssetsManifest decodes a stored assets manifest blob.
func ParseAssetsManifest(data []byte) (AssetsManifest, error) {
	manifest := AssetsManifest{}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, errdefs.Newf(errdefs.ErrSystem, "parse assets manifest: %v", err)
	}
	return manifest, nil
}

// BlobPrefix returns the object-store prefix all files of an upload live
// under. The update id inside the prefix is what makes manifest URLs
// resolve to the stored bytes.
func BlobPrefix(applicationID, runtimeVersion, updateID string) string {
	return path.Join("updates", applicationID, runtimeVersion, updateID)
}

// contentTypes maps publisher-declared extensions to canonical types.
// Anything else is served as application/octet-stream.
var contentTypes = map[string]string{
	"js":    "application/javascript",
	"json":  "application/json",
	"png":   "image/png",
	"jpg":   "image/jpeg",
	"jpeg":  "image/jpeg",
	"gif":   "image/gif",
	"svg":   "image/svg+xml",
	"ttf":   "font/ttf",
	"otf":   "font/otf",
	"woff":  "font/woff",
	"woff2": "font/woff2",
	"mp3":   "audio/mpeg",
	"mp4":   "video/mp4",
	"webm":  "video/webm",
}

// ContentTypeForExt returns the content type advertised for an asset with
// the given publisher-declared extension.
func ContentTypeForExt(ext string) string {
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}
