package store

// schema is the embedded engine's DDL. Resources self-reference via
// parent_id with RESTRICT (not CASCADE): the deletion walker always removes
// a resource's children before the resource itself, so by the time a row
// is deleted nothing still points at it as a parent; RESTRICT is a backstop
// against a bug doing that out of order, not the cascade mechanism itself.
// main_tags/metadata/attachments DO cascade on resource delete since they
// are wholly owned by their resource.
const schema = `
CREATE TABLE IF NOT EXISTS resources (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	public_id  TEXT NOT NULL UNIQUE,
	level      INTEGER NOT NULL,
	parent_id  INTEGER REFERENCES resources(id) ON DELETE RESTRICT
);
CREATE INDEX IF NOT EXISTS idx_resources_parent ON resources(parent_id);
CREATE INDEX IF NOT EXISTS idx_resources_level ON resources(level);

CREATE TABLE IF NOT EXISTS main_tags (
	resource_id INTEGER NOT NULL REFERENCES resources(id) ON DELETE CASCADE,
	tag         TEXT NOT NULL,
	value       TEXT NOT NULL,
	PRIMARY KEY (resource_id, tag)
);

CREATE TABLE IF NOT EXISTS metadata (
	resource_id INTEGER NOT NULL REFERENCES resources(id) ON DELETE CASCADE,
	kind        TEXT NOT NULL,
	value       TEXT NOT NULL,
	PRIMARY KEY (resource_id, kind)
);

CREATE TABLE IF NOT EXISTS attachments (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	resource_id        INTEGER NOT NULL REFERENCES resources(id) ON DELETE CASCADE,
	content_kind       TEXT NOT NULL,
	uuid               TEXT NOT NULL,
	compressed_size    INTEGER NOT NULL,
	uncompressed_size  INTEGER NOT NULL,
	UNIQUE (resource_id, content_kind)
);

CREATE TABLE IF NOT EXISTS changes (
	seq             INTEGER PRIMARY KEY AUTOINCREMENT,
	kind            TEXT NOT NULL,
	resource_public_id TEXT NOT NULL,
	resource_level  INTEGER NOT NULL,
	timestamp_iso   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS exported_resources (
	seq              INTEGER PRIMARY KEY AUTOINCREMENT,
	resource_level   INTEGER NOT NULL,
	public_id        TEXT NOT NULL,
	remote_modality  TEXT NOT NULL,
	patient_dicom_id TEXT NOT NULL,
	study_uid        TEXT NOT NULL,
	series_uid       TEXT NOT NULL,
	sop_instance_uid TEXT NOT NULL,
	timestamp_iso    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS global_properties (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`
