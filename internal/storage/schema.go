package storage

import (
	"strconv"

	"media-directory/internal/cds"
)

// VersionSetting is the settings key holding the schema version.
const VersionSetting = "db_version"

// CurrentSchemaVersion is the schema version this code reads and writes.
const CurrentSchemaVersion = 3

// SeedStatements inserts the reserved containers and the schema version into
// a freshly created schema. The statements are dialect neutral.
func SeedStatements() []string {
	seed := func(id, parent int64, title string, searchable bool) string {
		return "INSERT INTO " + ObjectTable +
			" (id, ref_id, parent_id, object_type, is_virtual, upnp_class, dc_title, is_restricted, update_id, is_searchable)" +
			" VALUES (" + intLiteral(id) + ", NULL, " + intLiteral(parent) + ", " + strconv.Itoa(int(cds.TypeContainer)) +
			", 0, '" + cds.ClassContainer + "', '" + title + "', 1, 0, " + boolLiteral(searchable) + ")"
	}
	return []string{
		seed(cds.IDInvalid, cds.IDInvalid, "Invalid", false),
		seed(cds.IDRoot, cds.IDInvalid, "Root", true),
		seed(cds.IDFilesystemRoot, cds.IDRoot, "PC Directory", true),
		VersionStatement(CurrentSchemaVersion),
	}
}

// VersionStatement records version as the initial schema version.
func VersionStatement(version int) string {
	return "INSERT INTO " + SettingTable + " (setting_name, setting_value) VALUES ('" +
		VersionSetting + "', '" + strconv.Itoa(version) + "')"
}

// VersionUpdateStatement moves the stored version from version-1 to version.
// The guard makes a step applied twice a no-op.
func VersionUpdateStatement(version int) string {
	return "UPDATE " + SettingTable + " SET setting_value = '" + strconv.Itoa(version) +
		"' WHERE setting_name = '" + VersionSetting + "' AND setting_value = '" + strconv.Itoa(version-1) + "'"
}

// VersionQuery reads the stored schema version.
const VersionQuery = "SELECT setting_value FROM " + SettingTable + " WHERE setting_name = '" + VersionSetting + "'"
