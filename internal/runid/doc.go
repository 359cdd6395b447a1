// Package runid maps a simulation parameter tuple to a fixed-width decimal
// run identifier.
//
// Each physical dimension (primary, energy, zenith, azimuth) is compressed to
// a single digit through an ordered bucket table. The digits, plus the run
// index, are laid out positionally according to a Layout, most significant
// field first. The mapping is many-to-one: an identifier is a fingerprint of
// the buckets a run falls into, not a reversible encoding of its parameters.
//
// # Boundary ties
//
// Intervals are closed on both ends. Some legacy tables declare neighbouring
// intervals that share a bound; such a value belongs to the interval that is
// declared first. Identifiers already on disk depend on this rule, so tables
// are never rewritten to remove the tie. Table.Overlaps lists them.
//
// # Aliasing
//
// Two tuples with the same bucket digits and the same run index produce the
// same identifier. Callers must keep the run index unique within every fixed
// combination of the other buckets; the catalog reports violations.
package runid
