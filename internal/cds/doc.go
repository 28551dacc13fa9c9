// Package cds holds the in-memory model of the content directory catalog:
// objects (containers, items, external URL items, active items), their
// ordered metadata dictionaries and their resources.
//
// Objects reference each other only by id. A virtual reference is an object
// whose RefID names another object; the reference is resolved through the
// storage layer, never through a pointer.
package cds
