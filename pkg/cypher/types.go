// Package cypher provides validated, bounded Cypher query execution against a
// Neo4j-compatible graph store for the OSDR study-graph explorer.
//
// The package sits between the presentation layer and the Neo4j driver. It
// validates query text before any network round-trip, runs the query inside a
// strictly scoped session, and adapts driver-native values into a closed
// tagged union (Value) at the boundary, so nothing downstream ever inspects
// driver types.
//
// Example Usage:
//
//	source, err := cypher.NewDriverSource(cfg.Neo4j)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer source.Close(ctx)
//
//	exec := cypher.NewExecutor(source, cypher.ExecutorConfig{})
//	res := exec.Execute(ctx, "MATCH (s:Study)-[r]->(o) RETURN s, r, o LIMIT 25", nil)
//	if !res.Success {
//		fmt.Println(res.ErrorMessage)
//	}
package cypher

import (
	"fmt"
	"time"
)

// EntityID is a strongly-typed identifier for graph entities. It carries the
// driver's element id and is opaque to everything outside the adaptation
// boundary.
type EntityID string

// Entity is a labeled node-like object returned by a query. The first label
// is the primary type used for display routing (Study, Organism, Factor,
// Assay, ...).
type Entity struct {
	ID     EntityID       `json:"id"`
	Labels []string       `json:"labels"`
	Props  map[string]any `json:"properties"`
}

// PrimaryLabel returns the first label, or "Unknown" when the entity carries
// none (synthesized relationship endpoints have no labels).
func (e *Entity) PrimaryLabel() string {
	if len(e.Labels) == 0 {
		return "Unknown"
	}
	return e.Labels[0]
}

// Relationship is a typed, directed edge between two entities.
type Relationship struct {
	Type    string         `json:"type"`
	StartID EntityID       `json:"start_id"`
	EndID   EntityID       `json:"end_id"`
	Props   map[string]any `json:"properties"`
}

// ValueKind tags the closed union of field value shapes a record can hold.
type ValueKind int

const (
	// KindScalar is a string, number, boolean, or null.
	KindScalar ValueKind = iota
	// KindEntity is a graph node.
	KindEntity
	// KindRelationship is a graph edge.
	KindRelationship
	// KindUnrepresentable is anything else (lists, maps, temporal values);
	// only its string form leaves this package.
	KindUnrepresentable
)

// Value is a tagged union over the shapes a result field can take. Exactly
// one of Scalar, Entity, Relationship, or Raw is meaningful, selected by
// Kind. Constructing values only through the helpers below keeps the union
// closed.
type Value struct {
	Kind         ValueKind
	Scalar       any
	Entity       *Entity
	Relationship *Relationship
	Raw          string
}

// ScalarValue wraps a plain scalar (string, number, boolean, or nil).
func ScalarValue(v any) Value {
	return Value{Kind: KindScalar, Scalar: v}
}

// EntityValue wraps a graph entity.
func EntityValue(e *Entity) Value {
	return Value{Kind: KindEntity, Entity: e}
}

// RelationshipValue wraps a graph relationship.
func RelationshipValue(r *Relationship) Value {
	return Value{Kind: KindRelationship, Relationship: r}
}

// UnrepresentableValue coerces an arbitrary value to its string form.
func UnrepresentableValue(v any) Value {
	return Value{Kind: KindUnrepresentable, Raw: fmt.Sprintf("%v", v)}
}

// Record is one row of a result set. Keys preserve the query's projection
// order; that order matters for display only.
type Record struct {
	Keys   []string
	Values []Value
}

// Get returns the value for a field name.
func (r Record) Get(key string) (Value, bool) {
	for i, k := range r.Keys {
		if k == key {
			return r.Values[i], true
		}
	}
	return Value{}, false
}

// PerformanceStats holds lightweight execution metadata gathered by the
// executor. Node and relationship counts are pre-cap totals found by
// scanning the adapted result set.
type PerformanceStats struct {
	Elapsed       time.Duration `json:"elapsed"`
	Nodes         int           `json:"nodes"`
	Relationships int           `json:"relationships"`
}

// ExecutionResult is the executor's complete answer for one query. It is
// created once per execution and never mutated afterwards.
type ExecutionResult struct {
	Success      bool
	Records      []Record
	Elapsed      time.Duration
	Stats        PerformanceStats
	ErrorMessage string
	ErrorKind    ErrorKind
	Warning      string
}

// TrackedQuery is the fire-and-forget report handed to a Tracker after each
// execution, successful or not.
type TrackedQuery struct {
	Query        string
	Timestamp    time.Time
	Elapsed      time.Duration
	ResultCount  int
	Success      bool
	ErrorMessage string
}

// Tracker receives execution reports for session history. Implementations
// must tolerate being called synchronously on the query path; a Tracker
// error is ignored by the executor and never fails a query.
type Tracker interface {
	Record(entry TrackedQuery) error
}
