// Package results classifies raw query result sets and shapes them for
// display: a bounded visual subgraph, a stringified tabular projection, named
// scalar values, or an error/empty marker.
//
// The pipeline is: classify the whole result set once, dispatch to one of
// four builders, and paginate the tabular projection. Everything here is pure
// over the closed cypher.Value union; no driver types and no presentation
// calls.
package results

import (
	"time"
)

// ResultType is the single display-routing classification assigned to an
// entire result set.
type ResultType int

const (
	// TypeTable is the structural fallback: rows with no recognized typed
	// value.
	TypeTable ResultType = iota
	// TypeGraph holds both entities and relationships (a connected
	// subgraph pattern).
	TypeGraph
	// TypeMixed holds entities or relationships, but not both, possibly
	// alongside scalars.
	TypeMixed
	// TypeScalar holds only plain scalar fields.
	TypeScalar
	// TypeEmpty is a successful execution with zero records.
	TypeEmpty
	// TypeError is a failed execution.
	TypeError
)

// String returns the display name of the result type.
func (t ResultType) String() string {
	switch t {
	case TypeGraph:
		return "graph"
	case TypeMixed:
		return "mixed"
	case TypeScalar:
		return "scalar"
	case TypeEmpty:
		return "empty"
	case TypeError:
		return "error"
	default:
		return "table"
	}
}

// Table is an ordered tabular projection. Every cell is pre-stringified so
// the presentation layer never mixes struct and non-struct columns.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool {
	return t == nil || len(t.Rows) == 0
}

// Metadata carries counts and timing attached to every formatted result.
// Node and relationship counts are the executor's pre-cap totals.
type Metadata struct {
	TotalRecords  int
	Nodes         int
	Relationships int
	Elapsed       time.Duration
	Warning       string
	Message       string
}

// Formatted is the formatter's immutable output: the classified type plus
// whichever views apply. It is built once per execution, handed to the
// presentation layer, and discarded; it is never persisted.
type Formatted struct {
	Type         ResultType
	Graph        *GraphVisual
	Table        *Table
	Scalars      map[string]any
	ErrorMessage string
	Meta         Metadata
}
