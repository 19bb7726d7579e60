package store

// schema is applied on startup. Statements are idempotent so Migrate can run
// on every boot.
//
// The (application_id, runtime_version, release_channel, platform, status)
// index backs both the hot manifest lookup and the sibling scan of the
// release transition; dropping it turns both into table scans.
const schema = `
CREATE TABLE IF NOT EXISTS applications (
	id              TEXT PRIMARY KEY COLLATE NOCASE,
	display_name    TEXT NOT NULL DEFAULT '',
	private_key_pem TEXT,
	public_key_pem  TEXT,
	created_at      TIMESTAMP NOT NULL,
	updated_at      TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS uploads (
	id                   TEXT PRIMARY KEY,
	application_id       TEXT NOT NULL REFERENCES applications(id) ON DELETE CASCADE,
	runtime_version      TEXT NOT NULL,
	release_channel      TEXT NOT NULL,
	platform             TEXT NOT NULL DEFAULT 'all',
	status               TEXT NOT NULL DEFAULT 'ready',
	blob_prefix          TEXT NOT NULL,
	metadata_json        BLOB,
	app_config_json      BLOB,
	assets_manifest_json BLOB,
	signed_manifest_json BLOB,
	manifest_signature   BLOB,
	git_branch           TEXT NOT NULL DEFAULT '',
	git_commit           TEXT NOT NULL DEFAULT '',
	size_bytes           INTEGER NOT NULL DEFAULT 0,
	created_at           TIMESTAMP NOT NULL,
	released_at          TIMESTAMP,
	updated_at           TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_uploads_coordinate
	ON uploads (application_id, runtime_version, release_channel, platform, status);
CREATE INDEX IF NOT EXISTS idx_uploads_created
	ON uploads (application_id, created_at);

CREATE TABLE IF NOT EXISTS devices (
	id                 TEXT NOT NULL,
	application_id     TEXT NOT NULL REFERENCES applications(id) ON DELETE CASCADE,
	runtime_version    TEXT NOT NULL DEFAULT '',
	platform           TEXT NOT NULL DEFAULT '',
	release_channel    TEXT NOT NULL DEFAULT '',
	embedded_update_id TEXT NOT NULL DEFAULT '',
	current_update_id  TEXT NOT NULL DEFAULT '',
	first_seen         TIMESTAMP NOT NULL,
	last_seen          TIMESTAMP NOT NULL,
	update_count       INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (application_id, id)
);

CREATE INDEX IF NOT EXISTS idx_devices_platform
	ON devices (application_id, platform);
CREATE INDEX IF NOT EXISTS idx_devices_last_seen
	ON devices (last_seen);

CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMP NOT NULL
);
`
