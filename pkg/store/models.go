package store

import (
	"time"
)

// Upload status values. An upload starts ready, is promoted to released and
// is demoted to obsolete when a sibling takes its place.
const (
	StatusReady    = "ready"
	StatusReleased = "released"
	StatusObsolete = "obsolete"
)

// Platform values. PlatformAll marks an upload servable to both platforms.
const (
	PlatformIOS     = "ios"
	PlatformAndroid = "android"
	PlatformAll     = "all"
)

// ValidPlatforms lists the platforms a device may report.
var ValidPlatforms = []string{PlatformIOS, PlatformAndroid}

// Application is a logical mobile product identified by a short slug. The
// slug keeps its original case but is matched case-insensitively.
type Application struct {
	ID            string    `db:"id" json:"id"`
	DisplayName   string    `db:"display_name" json:"displayName"`
	PrivateKeyPEM *string   `db:"private_key_pem" json:"-"`
	PublicKeyPEM  *string   `db:"public_key_pem" json:"publicKeyPem,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `db:"updated_at" json:"updatedAt"`
}

// Upload is one published artifact bundle, the unit of release. Its id is
// the update id advertised in composed manifests and embedded in BlobPrefix,
// so the URLs a manifest advertises resolve to the stored bytes.
type Upload struct {
	ID                 string     `db:"id" json:"id"`
	ApplicationID      string     `db:"application_id" json:"applicationId"`
	RuntimeVersion     string     `db:"runtime_version" json:"runtimeVersion"`
	ReleaseChannel     string     `db:"release_channel" json:"releaseChannel"`
	Platform           string     `db:"platform" json:"platform"`
	Status             string     `db:"status" json:"status"`
	BlobPrefix         string     `db:"blob_prefix" json:"blobPrefix"`
	MetadataJSON       []byte     `db:"metadata_json" json:"-"`
	AppConfigJSON      []byte     `db:"app_config_json" json:"-"`
	AssetsManifestJSON []byte     `db:"assets_manifest_json" json:"-"`
	SignedManifestJSON []byte     `db:"signed_manifest_json" json:"-"`
	ManifestSignature  []byte     `db:"manifest_signature" json:"-"`
	GitBranch          string     `db:"git_branch" json:"gitBranch,omitempty"`
	GitCommit          string     `db:"git_commit" json:"gitCommit,omitempty"`
	SizeBytes          int64      `db:"size_bytes" json:"sizeBytes"`
	CreatedAt          time.Time  `db:"created_at" json:"createdAt"`
	ReleasedAt         *time.Time `db:"released_at" json:"releasedAt,omitempty"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updatedAt"`
}

// DeviceRecord is the last-seen record of one client device. Purely
// observational, nothing on the serving path depends on it.
type DeviceRecord struct {
	ID               string    `db:"id" json:"id"`
	ApplicationID    string    `db:"application_id" json:"applicationId"`
	RuntimeVersion   string    `db:"runtime_version" json:"runtimeVersion"`
	Platform         string    `db:"platform" json:"platform"`
	ReleaseChannel   string    `db:"release_channel" json:"releaseChannel"`
	EmbeddedUpdateID string    `db:"embedded_update_id" json:"embeddedUpdateId,omitempty"`
	CurrentUpdateID  string    `db:"current_update_id" json:"currentUpdateId,omitempty"`
	FirstSeen        time.Time `db:"first_seen" json:"firstSeen"`
	LastSeen         time.Time `db:"last_seen" json:"lastSeen"`
	UpdateCount      int64     `db:"update_count" json:"updateCount"`
}

// User is a dashboard account.
type User struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}
