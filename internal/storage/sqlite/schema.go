package sqlite

import "media-directory/internal/storage"

// schema creates the current layout in an empty database.
var schema = []string{
	`CREATE TABLE mt_cds_object (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ref_id INTEGER DEFAULT NULL,
		parent_id INTEGER NOT NULL DEFAULT 0,
		object_type INTEGER NOT NULL,
		is_virtual INTEGER NOT NULL DEFAULT 0,
		upnp_class TEXT DEFAULT NULL,
		dc_title TEXT DEFAULT NULL,
		is_restricted INTEGER NOT NULL DEFAULT 0,
		metadata TEXT DEFAULT NULL,
		auxdata TEXT DEFAULT NULL,
		update_id INTEGER NOT NULL DEFAULT 0,
		is_searchable INTEGER NOT NULL DEFAULT 0,
		location TEXT DEFAULT NULL,
		mime_type TEXT DEFAULT NULL,
		action TEXT DEFAULT NULL,
		state TEXT DEFAULT NULL,
		resources TEXT DEFAULT NULL
	)`,
	`CREATE INDEX mt_cds_object_parent_id ON mt_cds_object(parent_id, object_type, dc_title)`,
	`CREATE INDEX mt_cds_object_ref_id ON mt_cds_object(ref_id)`,
	`CREATE INDEX mt_cds_object_location ON mt_cds_object(location)`,
	`CREATE TABLE mt_metadata (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		item_id INTEGER NOT NULL,
		property_name TEXT NOT NULL,
		property_value TEXT NOT NULL
	)`,
	`CREATE INDEX mt_metadata_item_id ON mt_metadata(item_id)`,
	`CREATE TABLE mt_internal_setting (
		setting_name TEXT PRIMARY KEY NOT NULL,
		setting_value TEXT NOT NULL
	)`,
}

// schemaV1 is the first released layout. It is kept to test upgrades.
var schemaV1 = []string{
	`CREATE TABLE mt_cds_object (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ref_id INTEGER DEFAULT NULL,
		parent_id INTEGER NOT NULL DEFAULT 0,
		object_type INTEGER NOT NULL,
		is_virtual INTEGER NOT NULL DEFAULT 0,
		upnp_class TEXT DEFAULT NULL,
		dc_title TEXT DEFAULT NULL,
		is_restricted INTEGER NOT NULL DEFAULT 0,
		metadata TEXT DEFAULT NULL,
		auxdata TEXT DEFAULT NULL,
		update_id INTEGER NOT NULL DEFAULT 0,
		is_searchable INTEGER NOT NULL DEFAULT 0,
		location TEXT DEFAULT NULL,
		mime_type TEXT DEFAULT NULL,
		resources TEXT DEFAULT NULL
	)`,
	`CREATE INDEX mt_cds_object_parent_id ON mt_cds_object(parent_id, object_type, dc_title)`,
	`CREATE TABLE mt_internal_setting (
		setting_name TEXT PRIMARY KEY NOT NULL,
		setting_value TEXT NOT NULL
	)`,
}

// migrations[i] upgrades version i+1 to version i+2.
var migrations = [][]string{
	// 1 -> 2: metadata side table, seeded with the title and class columns.
	{
		`CREATE TABLE mt_metadata (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			item_id INTEGER NOT NULL,
			property_name TEXT NOT NULL,
			property_value TEXT NOT NULL
		)`,
		`CREATE INDEX mt_metadata_item_id ON mt_metadata(item_id)`,
		`INSERT INTO mt_metadata (item_id, property_name, property_value)
			SELECT id, 'dc:title', dc_title FROM mt_cds_object WHERE id > 1 AND dc_title IS NOT NULL`,
		`INSERT INTO mt_metadata (item_id, property_name, property_value)
			SELECT id, 'upnp:class', upnp_class FROM mt_cds_object WHERE id > 1 AND upnp_class IS NOT NULL`,
	},
	// 2 -> 3: active item columns and lookup indexes.
	{
		`ALTER TABLE mt_cds_object ADD COLUMN action TEXT DEFAULT NULL`,
		`ALTER TABLE mt_cds_object ADD COLUMN state TEXT DEFAULT NULL`,
		`CREATE INDEX mt_cds_object_ref_id ON mt_cds_object(ref_id)`,
		`CREATE INDEX mt_cds_object_location ON mt_cds_object(location)`,
	},
}

// initStatements creates and seeds the current schema.
func initStatements() []string {
	return append(append([]string{}, schema...), storage.SeedStatements()...)
}
