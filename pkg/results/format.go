package results

import (
	"encoding/json"
	"fmt"

	"github.com/spacebiology/osdrgraph/pkg/cypher"
)

// Formatter turns execution results into display-ready Formatted values.
// Construct one per process and share it; it is stateless apart from its
// node cap.
type Formatter struct {
	maxGraphNodes int
}

// NewFormatter creates a formatter with the given graph node cap (<=0 uses
// DefaultMaxGraphNodes).
func NewFormatter(maxGraphNodes int) *Formatter {
	if maxGraphNodes <= 0 {
		maxGraphNodes = DefaultMaxGraphNodes
	}
	return &Formatter{maxGraphNodes: maxGraphNodes}
}

// Format classifies a result set and dispatches to the matching builder.
// Failed executions and empty results short-circuit; everything else gets a
// tabular projection at minimum, so the graph view is never the only way to
// inspect data. Individual malformed fields never abort formatting; they
// become inline error markers in their cells.
func (f *Formatter) Format(res cypher.ExecutionResult) *Formatted {
	if !res.Success {
		return &Formatted{
			Type:         TypeError,
			ErrorMessage: res.ErrorMessage,
			Meta:         Metadata{Elapsed: res.Elapsed},
		}
	}
	if len(res.Records) == 0 {
		return &Formatted{
			Type: TypeEmpty,
			Meta: Metadata{
				Elapsed: res.Elapsed,
				Message: "Query executed successfully but returned no results",
			},
		}
	}

	meta := Metadata{
		TotalRecords:  len(res.Records),
		Nodes:         res.Stats.Nodes,
		Relationships: res.Stats.Relationships,
		Elapsed:       res.Elapsed,
		Warning:       res.Warning,
	}

	switch Classify(res.Records) {
	case TypeGraph:
		return f.formatGraph(res.Records, meta)
	case TypeMixed:
		return f.formatMixed(res.Records, meta)
	case TypeScalar:
		return f.formatScalar(res.Records, meta)
	default:
		return f.formatTable(res.Records, meta)
	}
}

// formatGraph builds the visual subgraph plus a tabular fallback over the
// same records.
func (f *Formatter) formatGraph(records []cypher.Record, meta Metadata) *Formatted {
	return &Formatted{
		Type:  TypeGraph,
		Graph: BuildGraph(records, f.maxGraphNodes),
		Table: graphFallbackTable(records),
		Meta:  meta,
	}
}

// formatMixed splits fields into graph-eligible and scalar subsets: the
// graph view gets the entities/relationships, the scalar map gets named
// values (disambiguated per record), and the comprehensive table keeps every
// field of every record.
func (f *Formatter) formatMixed(records []cypher.Record, meta Metadata) *Formatted {
	scalars := collectScalars(records)

	var graph *GraphVisual
	if g := BuildGraph(records, f.maxGraphNodes); !g.Empty() {
		graph = g
	}

	return &Formatted{
		Type:    TypeMixed,
		Graph:   graph,
		Table:   comprehensiveTable(records),
		Scalars: scalars,
		Meta:    meta,
	}
}

// formatScalar collects all scalar fields into a name→value map and builds a
// one-row-per-record string table as the secondary view.
func (f *Formatter) formatScalar(records []cypher.Record, meta Metadata) *Formatted {
	tb := newTableBuilder()
	for _, rec := range records {
		row := tb.newRow()
		for i, key := range rec.Keys {
			row.set(key, displayString(rec.Values[i]))
		}
	}

	return &Formatted{
		Type:    TypeScalar,
		Table:   tb.build(),
		Scalars: collectScalars(records),
		Meta:    meta,
	}
}

// formatTable stringifies every field of every record into a uniform
// projection. Entities and relationships spread into synthetic columns
// (type, id, serialized properties) so the table stays flat.
func (f *Formatter) formatTable(records []cypher.Record, meta Metadata) *Formatted {
	tb := newTableBuilder()
	for _, rec := range records {
		row := tb.newRow()
		for i, key := range rec.Keys {
			v := rec.Values[i]
			switch v.Kind {
			case cypher.KindEntity:
				row.set(key+"_type", v.Entity.PrimaryLabel())
				row.set(key+"_id", string(v.Entity.ID))
				row.setJSON(key, v.Entity.Props)
			case cypher.KindRelationship:
				row.set(key+"_relationship", v.Relationship.Type)
				row.set(key+"_start_id", string(v.Relationship.StartID))
				row.set(key+"_end_id", string(v.Relationship.EndID))
				row.setJSON(key, v.Relationship.Props)
			default:
				row.set(key, displayString(v))
			}
		}
	}

	return &Formatted{
		Type:  TypeTable,
		Table: tb.build(),
		Meta:  meta,
	}
}

// graphFallbackTable projects graph records into a compact table: type, id,
// and the key identifying properties per entity instead of the full blob.
func graphFallbackTable(records []cypher.Record) *Table {
	tb := newTableBuilder()
	for _, rec := range records {
		row := tb.newRow()
		for i, key := range rec.Keys {
			v := rec.Values[i]
			switch v.Kind {
			case cypher.KindEntity:
				e := v.Entity
				row.set(key+"_type", e.PrimaryLabel())
				row.set(key+"_id", string(e.ID))
				if e.PrimaryLabel() == "Study" {
					row.set(key+"_study_id", propString(e.Props, "study_id"))
					row.set(key+"_title", propString(e.Props, "title"))
				} else {
					row.set(key+"_name", propString(e.Props, "name", "organism_name", "factor_name", "assay_name"))
				}
			case cypher.KindRelationship:
				row.set(key+"_relationship", v.Relationship.Type)
				row.set(key+"_start_id", string(v.Relationship.StartID))
				row.set(key+"_end_id", string(v.Relationship.EndID))
			default:
				row.set(key, displayString(v))
			}
		}
	}
	return tb.build()
}

// comprehensiveTable keeps every field of every mixed record: graph values
// carry their type plus a serialized property blob, scalars stay verbatim.
func comprehensiveTable(records []cypher.Record) *Table {
	tb := newTableBuilder()
	for _, rec := range records {
		row := tb.newRow()
		for i, key := range rec.Keys {
			v := rec.Values[i]
			switch v.Kind {
			case cypher.KindEntity:
				row.set(key+"_type", v.Entity.PrimaryLabel())
				row.setJSON(key, v.Entity.Props)
			case cypher.KindRelationship:
				row.set(key+"_relationship", v.Relationship.Type)
				row.setJSON(key, v.Relationship.Props)
			default:
				row.set(key, displayString(v))
			}
		}
	}
	return tb.build()
}

// collectScalars gathers scalar fields by name. When the result has more
// than one record, names are disambiguated with the record index so
// "count" becomes "count_0", "count_1", ...
func collectScalars(records []cypher.Record) map[string]any {
	scalars := make(map[string]any)
	for i, rec := range records {
		for j, key := range rec.Keys {
			v := rec.Values[j]
			if v.Kind != cypher.KindScalar {
				continue
			}
			name := key
			if len(records) > 1 {
				name = fmt.Sprintf("%s_%d", key, i)
			}
			scalars[name] = v.Scalar
		}
	}
	return scalars
}

// displayString renders a value for a table cell. Scalar nil shows as
// "null"; unrepresentable values already carry their string form; graph
// values get a compact inline rendering.
func displayString(v cypher.Value) string {
	switch v.Kind {
	case cypher.KindScalar:
		if v.Scalar == nil {
			return "null"
		}
		return fmt.Sprintf("%v", v.Scalar)
	case cypher.KindEntity:
		return fmt.Sprintf("(:%s %s)", v.Entity.PrimaryLabel(), v.Entity.ID)
	case cypher.KindRelationship:
		return fmt.Sprintf("[:%s]", v.Relationship.Type)
	default:
		return v.Raw
	}
}

func propString(props map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := props[k]; ok && v != nil {
			return fmt.Sprintf("%v", v)
		}
	}
	return "N/A"
}

// =============================================================================
// Table assembly
// =============================================================================

// tableBuilder accumulates rows keyed by column name while preserving
// first-seen column order, then projects them into a uniform Table.
type tableBuilder struct {
	columns []string
	known   map[string]bool
	rows    []map[string]string
}

func newTableBuilder() *tableBuilder {
	return &tableBuilder{known: make(map[string]bool)}
}

type rowBuilder struct {
	tb    *tableBuilder
	cells map[string]string
}

func (tb *tableBuilder) newRow() *rowBuilder {
	cells := make(map[string]string)
	tb.rows = append(tb.rows, cells)
	return &rowBuilder{tb: tb, cells: cells}
}

func (r *rowBuilder) set(column, value string) {
	if !r.tb.known[column] {
		r.tb.known[column] = true
		r.tb.columns = append(r.tb.columns, column)
	}
	r.cells[column] = value
}

// setJSON serializes a property map into the "<column>_properties" cell. A
// serialization failure (e.g. a NaN property value) becomes an explicit
// "<column>_error" marker instead of aborting the record.
func (r *rowBuilder) setJSON(column string, props map[string]any) {
	data, err := json.Marshal(props)
	if err != nil {
		r.set(column+"_error", fmt.Sprintf("Error processing: %v", err))
		return
	}
	r.set(column+"_properties", string(data))
}

func (tb *tableBuilder) build() *Table {
	t := &Table{Columns: tb.columns}
	for _, cells := range tb.rows {
		row := make([]string, len(tb.columns))
		for i, col := range tb.columns {
			row[i] = cells[col]
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}
