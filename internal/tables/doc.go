// Package tables loads run identifier bucket tables and the identifier
// layout from CUE.
//
// Files are unified with an embedded schema (schema.cue) before they are
// compiled into runid types, so shape errors carry CUE source positions.
// Structural checks that CUE cannot express (ordering, coverage of the
// value domain) are delegated to runid.Table.Validate.
//
// With no file given, the embedded default.cue is used.
package tables
