package results

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spacebiology/osdrgraph/pkg/cypher"
)

// DefaultMaxGraphNodes caps the visual subgraph size.
const DefaultMaxGraphNodes = 50

const (
	edgeColor = "#888888"
	edgeWidth = 2

	// tooltipMaxProps bounds how many extra properties a node tooltip
	// lists; tooltipMaxValueLen ellipsizes long property values.
	tooltipMaxProps    = 10
	tooltipMaxValueLen = 50
)

// nodeStyle fixes per-entity-type display attributes.
type nodeStyle struct {
	color     string
	size      int
	nameProps []string
}

// nodeStyles maps primary entity labels to display rules. Unlisted labels
// fall back to defaultStyle.
var nodeStyles = map[string]nodeStyle{
	"Study":    {color: "#0083FF", size: 30, nameProps: []string{"study_id"}},
	"Organism": {color: "#FF6C00", size: 20, nameProps: []string{"organism_name", "name"}},
	"Factor":   {color: "#C600FF", size: 20, nameProps: []string{"factor_name", "name"}},
	"Assay":    {color: "#00D95A", size: 20, nameProps: []string{"assay_name", "name"}},
}

var defaultStyle = nodeStyle{color: "#CCCCCC", size: 15, nameProps: []string{"name"}}

// VisualNode is one renderable node with its display attributes resolved.
type VisualNode struct {
	ID    cypher.EntityID `json:"id"`
	Label string          `json:"label"`
	Title string          `json:"title"`
	Color string          `json:"color"`
	Size  int             `json:"size"`
	Group string          `json:"group"`
}

// VisualEdge is one renderable edge. From/To always reference IDs present in
// the same GraphVisual's node set.
type VisualEdge struct {
	From  cypher.EntityID `json:"from"`
	To    cypher.EntityID `json:"to"`
	Label string          `json:"label"`
	Title string          `json:"title"`
	Color string          `json:"color"`
	Width int             `json:"width"`
}

// GraphVisual is a deduplicated, capped node/edge set built fresh for one
// query. When the node cap was hit, Truncated is set and CandidateCount
// reports how many distinct entities the result actually contained, so the
// caller can tell the user "showing N of M nodes".
type GraphVisual struct {
	Nodes          []VisualNode `json:"nodes"`
	Edges          []VisualEdge `json:"edges"`
	Truncated      bool         `json:"truncated"`
	CandidateCount int          `json:"candidate_count"`
}

// Empty reports whether the visual has no nodes.
func (g *GraphVisual) Empty() bool {
	return g == nil || len(g.Nodes) == 0
}

type edgeKey struct {
	from    cypher.EntityID
	to      cypher.EntityID
	relType string
}

type graphBuilder struct {
	maxNodes int
	visual   *GraphVisual
	// index maps an added node id to its position in visual.Nodes, so a
	// placeholder endpoint can be upgraded in place.
	index       map[cypher.EntityID]int
	placeholder map[cypher.EntityID]bool
	edges       map[edgeKey]bool
	// seen tracks every distinct candidate entity id, including ones
	// rejected by the cap. It feeds CandidateCount.
	seen map[cypher.EntityID]bool
}

// BuildGraph extracts a bounded visual subgraph from a result set. Records
// and fields are visited in input order. Once the node cap is reached,
// further nodes are dropped silently; edges are added only when both
// endpoints made it in. Relationship endpoints that never appear as record
// fields are synthesized as unlabeled placeholder nodes, subject to the same
// cap; when the real entity shows up later in the projection it upgrades the
// placeholder in place.
func BuildGraph(records []cypher.Record, maxNodes int) *GraphVisual {
	if maxNodes <= 0 {
		maxNodes = DefaultMaxGraphNodes
	}
	b := &graphBuilder{
		maxNodes:    maxNodes,
		visual:      &GraphVisual{},
		index:       make(map[cypher.EntityID]int),
		placeholder: make(map[cypher.EntityID]bool),
		edges:       make(map[edgeKey]bool),
		seen:        make(map[cypher.EntityID]bool),
	}

	for _, rec := range records {
		for _, v := range rec.Values {
			switch v.Kind {
			case cypher.KindEntity:
				b.addNode(v.Entity)
			case cypher.KindRelationship:
				b.addRelationship(v.Relationship)
			}
		}
	}

	b.visual.CandidateCount = len(b.seen)
	return b.visual
}

// addNode adds a node unless it is a duplicate or the cap is full. Duplicates
// are not failures; a cap rejection marks the visual truncated. A duplicate
// of a synthesized placeholder replaces the placeholder's display attributes
// with the real entity's.
func (b *graphBuilder) addNode(e *cypher.Entity) bool {
	b.seen[e.ID] = true
	if i, ok := b.index[e.ID]; ok {
		if b.placeholder[e.ID] && !isPlaceholder(e) {
			b.visual.Nodes[i] = visualNode(e)
			delete(b.placeholder, e.ID)
		}
		return true
	}
	if len(b.index) >= b.maxNodes {
		b.visual.Truncated = true
		return false
	}

	b.index[e.ID] = len(b.visual.Nodes)
	b.visual.Nodes = append(b.visual.Nodes, visualNode(e))
	if isPlaceholder(e) {
		b.placeholder[e.ID] = true
	}
	return true
}

func isPlaceholder(e *cypher.Entity) bool {
	return len(e.Labels) == 0 && len(e.Props) == 0
}

func visualNode(e *cypher.Entity) VisualNode {
	label, title := nodeDisplayInfo(e)
	style := styleFor(e.PrimaryLabel())
	return VisualNode{
		ID:    e.ID,
		Label: label,
		Title: title,
		Color: style.color,
		Size:  style.size,
		Group: e.PrimaryLabel(),
	}
}

func (b *graphBuilder) addRelationship(r *cypher.Relationship) {
	// Both endpoints must be addable within the cap before the edge goes
	// in. Endpoints not seen as record fields are synthesized here.
	fromOK := b.ensureEndpoint(r.StartID)
	toOK := b.ensureEndpoint(r.EndID)
	if !fromOK || !toOK {
		return
	}

	key := edgeKey{from: r.StartID, to: r.EndID, relType: r.Type}
	if b.edges[key] {
		return
	}
	b.edges[key] = true

	b.visual.Edges = append(b.visual.Edges, VisualEdge{
		From:  r.StartID,
		To:    r.EndID,
		Label: r.Type,
		Title: relationshipTitle(r),
		Color: edgeColor,
		Width: edgeWidth,
	})
}

func (b *graphBuilder) ensureEndpoint(id cypher.EntityID) bool {
	if _, ok := b.index[id]; ok {
		return true
	}
	return b.addNode(&cypher.Entity{ID: id})
}

func styleFor(primaryLabel string) nodeStyle {
	if s, ok := nodeStyles[primaryLabel]; ok {
		return s
	}
	return defaultStyle
}

// nodeDisplayInfo resolves the display label and tooltip for an entity.
// The tooltip lists the type, the display name, and up to tooltipMaxProps
// additional properties with long values ellipsized.
func nodeDisplayInfo(e *cypher.Entity) (label, title string) {
	primary := e.PrimaryLabel()
	style := styleFor(primary)

	label = ""
	for _, prop := range style.nameProps {
		if v, ok := e.Props[prop]; ok && v != nil {
			label = fmt.Sprintf("%v", v)
			break
		}
	}
	if label == "" {
		label = fmt.Sprintf("Node_%s", e.ID)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s", primary, label)
	if primary == "Study" {
		if v, ok := e.Props["title"]; ok && v != nil {
			fmt.Fprintf(&sb, "\nTitle: %v", v)
		}
	}

	extras := extraPropKeys(e.Props)
	if len(extras) > 0 {
		sb.WriteString("\n\nProperties:")
		for i, k := range extras {
			if i >= tooltipMaxProps {
				break
			}
			fmt.Fprintf(&sb, "\n%s: %s", k, truncateValue(e.Props[k]))
		}
	}
	return label, sb.String()
}

// extraPropKeys returns property keys not already surfaced through the
// display name or study title, sorted for stable tooltips.
func extraPropKeys(props map[string]any) []string {
	identifying := map[string]bool{
		"name": true, "study_id": true, "title": true,
		"organism_name": true, "factor_name": true, "assay_name": true,
	}
	keys := make([]string, 0, len(props))
	for k := range props {
		if !identifying[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func relationshipTitle(r *cypher.Relationship) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Relationship: %s", r.Type)
	if len(r.Props) > 0 {
		sb.WriteString("\n\nProperties:")
		keys := make([]string, 0, len(r.Props))
		for k := range r.Props {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&sb, "\n%s: %s", k, truncateValue(r.Props[k]))
		}
	}
	return sb.String()
}

func truncateValue(v any) string {
	s := fmt.Sprintf("%v", v)
	if len(s) <= tooltipMaxValueLen {
		return s
	}
	// Slice on rune boundaries so multibyte property values stay valid
	// UTF-8 after truncation.
	r := []rune(s)
	if len(r) <= tooltipMaxValueLen {
		return s
	}
	return string(r[:tooltipMaxValueLen-3]) + "..."
}
