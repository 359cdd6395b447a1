// Package catalog enumerates the showers of a simulation campaign.
//
// A Catalog walks energy bins, then zenith angles, then run indices, and
// turns every combination into a WorkItem carrying its run identifier and
// output location. Items whose completion predicate already holds are
// skipped; items whose (location, identifier) pair repeats an earlier item
// of the same traversal are dropped with a warning, since two tasks must
// never write into the same files.
//
// Azimuths are drawn per item from a uniform distribution. Traversals are
// reproducible only when the caller seeds Rand.
package catalog
