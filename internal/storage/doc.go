// Package storage implements the content directory catalog on top of a small
// set of database primitives.
//
// A [Backend] supplies Exec, ExecInsert, Query and Quote for one database.
// [Storage] builds every catalog operation from those primitives, so the
// browse, search and cascading removal logic is written once and shared by the
// embedded SQLite engine and the MySQL and PostgreSQL drivers.
//
// # Layout
//
// Objects live in one table, mt_cds_object, with variant-specific columns left
// NULL for variants that do not use them. Metadata is stored twice: encoded in
// the object row for loading, and one row per property in mt_metadata for the
// search compiler's correlated subqueries. Schema state such as db_version is
// kept in mt_internal_setting.
//
// # Select modes
//
// Reads fetch one of three column sets: [SelectBasic] for tree walks,
// [SelectExtended] for descriptive fields, and [SelectFull] for everything
// including resources. A virtual reference without resources of its own
// inherits those of the object it references.
//
// # Removal
//
// [Storage.RemoveObject] deletes an object, its subtree and every virtual
// reference to it. Ids are collected and deleted in batches; containers left
// empty are pruned, except the reserved ids -1, 0 and 1.
//
// # Errors
//
// Lookups that match nothing return [ErrNotFound]. Driver failures are wrapped
// in [*BackendError] with the offending statement.
package storage
