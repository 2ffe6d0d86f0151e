// Package index implements the per-index-kind planning strategies of
// spec §4.5: given an IndexDescriptor and the analyzed condition list,
// each strategy decides which conditions the index can serve, what scan
// bounds result, and what operator and cost that implies.
//
// Generalizes datalog/storage/matcher_strategy.go's
// analyzeReuseStrategy (decide, from which pattern positions are bound,
// which physical index and access pattern applies) from the four fixed
// Datalog indexes (EAVT/AEVT/AVET/VAET) to an arbitrary registry of
// index kinds keyed by kindIdentifier.
package index

// IndexDescriptor describes a secondary index available to the planner
// (spec §3, "external, consumed"): the planner never creates or
// maintains indexes, only reads their shape.
type IndexDescriptor struct {
	Name           string
	KindIdentifier string
	KeyPaths       []string
	StoredKeyPaths []string
	IsUnique       bool
}

// ProvidesField reports whether field is available without a record
// fetch: either as a key component or a stored (covering) column.
func (d IndexDescriptor) ProvidesField(field string) bool {
	for _, f := range d.KeyPaths {
		if f == field {
			return true
		}
	}
	for _, f := range d.StoredKeyPaths {
		if f == field {
			return true
		}
	}
	return false
}

// CoversFields reports whether the index's key plus stored columns is a
// superset of fields, letting the enumerator decide whether an
// indexOnlyScan can satisfy a query without fetching the base record
// (spec §4.6, "Index-only (covering) scan").
func (d IndexDescriptor) CoversFields(fields []string) bool {
	for _, f := range fields {
		if !d.ProvidesField(f) {
			return false
		}
	}
	return true
}
