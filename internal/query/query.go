// Package query holds the small shared value types threaded through the
// filter policy, candidate supplier, scorer, and rank merger: query terms,
// tag scopes, and gating knobs. Kept separate from any one of those
// packages so none of them has to import another just for a struct.
package query

// Term is one SPLADE dimension in a query vector: a term id and its
// non-negative weight.
type Term struct {
	ID     uint32
	Weight float32
}

// Scope is the tag filtering a search call applies before term gating.
// The literal "everything" in any list disables that list.
type Scope struct {
	AllOf  []string
	OneOf  []string
	NoneOf []string
}

// IsEverything reports whether a scope list contains the disabling sentinel.
func IsEverything(list []string) bool {
	for _, g := range list {
		if g == "everything" {
			return true
		}
	}
	return false
}
