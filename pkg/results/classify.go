package results

import (
	"github.com/spacebiology/osdrgraph/pkg/cypher"
)

// Classify assigns exactly one ResultType to an entire result set in a
// single pass over all fields of all records. It is a pure function of the
// multiset of value kinds present: reordering records or fields cannot
// change the answer. Unrepresentable values count toward nothing, which is
// why a result of only unrepresentable fields falls through to TypeTable.
//
// Classification is display routing only. It says nothing about query
// correctness and never fails.
func Classify(records []cypher.Record) ResultType {
	if len(records) == 0 {
		return TypeEmpty
	}

	var hasEntity, hasRelationship, hasScalar bool
	for _, rec := range records {
		for _, v := range rec.Values {
			switch v.Kind {
			case cypher.KindEntity:
				hasEntity = true
			case cypher.KindRelationship:
				hasRelationship = true
			case cypher.KindScalar:
				hasScalar = true
			}
		}
	}

	// A result is only a pure graph when it carries both nodes and edges.
	// Nodes or edges alone still need a scalar/table fallback, so they are
	// mixed. An edges-only result landing in mixed is inherited behavior;
	// do not change it without product input.
	switch {
	case hasEntity && hasRelationship:
		return TypeGraph
	case hasEntity || hasRelationship:
		return TypeMixed
	case hasScalar:
		return TypeScalar
	default:
		return TypeTable
	}
}
