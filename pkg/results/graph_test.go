package results

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/spacebiology/osdrgraph/pkg/cypher"
)

func studyEntity(id, studyID string) *cypher.Entity {
	return &cypher.Entity{
		ID:     cypher.EntityID(id),
		Labels: []string{"Study"},
		Props:  map[string]any{"study_id": studyID, "title": "Rodent Research"},
	}
}

func TestBuildGraph_Basic(t *testing.T) {
	records := []cypher.Record{
		{
			Keys: []string{"s", "r", "o"},
			Values: []cypher.Value{
				cypher.EntityValue(studyEntity("n1", "OSD-1")),
				cypher.RelationshipValue(&cypher.Relationship{Type: "HAS_ORGANISM", StartID: "n1", EndID: "n2"}),
				cypher.EntityValue(&cypher.Entity{
					ID:     "n2",
					Labels: []string{"Organism"},
					Props:  map[string]any{"organism_name": "Mus musculus"},
				}),
			},
		},
	}

	g := BuildGraph(records, 50)
	if len(g.Nodes) != 2 {
		t.Fatalf("got %d nodes, want 2", len(g.Nodes))
	}
	if len(g.Edges) != 1 {
		t.Fatalf("got %d edges, want 1", len(g.Edges))
	}
	if g.Truncated {
		t.Error("small graph marked truncated")
	}
	if g.CandidateCount != 2 {
		t.Errorf("CandidateCount = %d, want 2", g.CandidateCount)
	}

	study := g.Nodes[0]
	if study.Label != "OSD-1" {
		t.Errorf("study label = %q, want study_id", study.Label)
	}
	if study.Color != "#0083FF" || study.Size != 30 {
		t.Errorf("study style = %s/%d", study.Color, study.Size)
	}
	organism := g.Nodes[1]
	if organism.Label != "Mus musculus" || organism.Color != "#FF6C00" {
		t.Errorf("organism node = %+v", organism)
	}

	edge := g.Edges[0]
	if edge.From != "n1" || edge.To != "n2" || edge.Label != "HAS_ORGANISM" {
		t.Errorf("edge = %+v", edge)
	}
}

func TestBuildGraph_Deduplicates(t *testing.T) {
	rel := cypher.RelationshipValue(&cypher.Relationship{Type: "HAS_ORGANISM", StartID: "n1", EndID: "n2"})
	rec := cypher.Record{
		Keys: []string{"s", "r", "o"},
		Values: []cypher.Value{
			cypher.EntityValue(studyEntity("n1", "OSD-1")),
			rel,
			cypher.EntityValue(&cypher.Entity{ID: "n2", Labels: []string{"Organism"}}),
		},
	}

	g := BuildGraph([]cypher.Record{rec, rec, rec}, 50)
	if len(g.Nodes) != 2 {
		t.Errorf("got %d nodes after duplicates, want 2", len(g.Nodes))
	}
	if len(g.Edges) != 1 {
		t.Errorf("got %d edges after duplicates, want 1", len(g.Edges))
	}
}

func TestBuildGraph_NodeCap(t *testing.T) {
	var records []cypher.Record
	for i := 0; i < 60; i++ {
		records = append(records, cypher.Record{
			Keys: []string{"s"},
			Values: []cypher.Value{
				cypher.EntityValue(studyEntity(fmt.Sprintf("n%d", i), fmt.Sprintf("OSD-%d", i))),
			},
		})
	}

	g := BuildGraph(records, 50)
	if len(g.Nodes) != 50 {
		t.Errorf("got %d nodes, want exactly the 50-node cap", len(g.Nodes))
	}
	if !g.Truncated {
		t.Error("cap exceeded but Truncated not set")
	}
	if g.CandidateCount != 60 {
		t.Errorf("CandidateCount = %d, want 60", g.CandidateCount)
	}
}

func TestBuildGraph_EdgeEndpointsAlwaysPresent(t *testing.T) {
	// 50 distinct nodes fill the cap, then a relationship between two new
	// ids cannot add its endpoints, so the edge must be dropped.
	var records []cypher.Record
	for i := 0; i < 50; i++ {
		records = append(records, cypher.Record{
			Keys:   []string{"s"},
			Values: []cypher.Value{cypher.EntityValue(studyEntity(fmt.Sprintf("n%d", i), "OSD"))},
		})
	}
	records = append(records, cypher.Record{
		Keys: []string{"r"},
		Values: []cypher.Value{
			cypher.RelationshipValue(&cypher.Relationship{Type: "HAS_FACTOR", StartID: "x1", EndID: "x2"}),
		},
	})

	g := BuildGraph(records, 50)
	if len(g.Edges) != 0 {
		t.Fatalf("got %d edges, want 0 (endpoints did not fit)", len(g.Edges))
	}

	present := make(map[cypher.EntityID]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		present[n.ID] = true
	}
	for _, e := range g.Edges {
		if !present[e.From] || !present[e.To] {
			t.Errorf("edge %v references a node outside the visual", e)
		}
	}
}

func TestBuildGraph_SynthesizesEndpoints(t *testing.T) {
	records := []cypher.Record{
		{
			Keys: []string{"r"},
			Values: []cypher.Value{
				cypher.RelationshipValue(&cypher.Relationship{Type: "HAS_ASSAY", StartID: "a", EndID: "b"}),
			},
		},
	}

	g := BuildGraph(records, 50)
	if len(g.Nodes) != 2 {
		t.Fatalf("got %d nodes, want 2 synthesized endpoints", len(g.Nodes))
	}
	if len(g.Edges) != 1 {
		t.Fatalf("got %d edges, want 1", len(g.Edges))
	}
	for _, n := range g.Nodes {
		if n.Group != "Unknown" {
			t.Errorf("synthesized endpoint group = %q, want Unknown", n.Group)
		}
		if n.Color != "#CCCCCC" {
			t.Errorf("synthesized endpoint color = %q, want default", n.Color)
		}
		if !strings.HasPrefix(n.Label, "Node_") {
			t.Errorf("synthesized endpoint label = %q", n.Label)
		}
	}
}

func TestBuildGraph_PlaceholderUpgradedByLaterEntity(t *testing.T) {
	// The relationship arrives a record before its endpoint entity. The
	// synthesized placeholder must pick up the real entity's styling when
	// it shows up.
	records := []cypher.Record{
		{
			Keys: []string{"r"},
			Values: []cypher.Value{
				cypher.RelationshipValue(&cypher.Relationship{Type: "HAS_ORGANISM", StartID: "n1", EndID: "n2"}),
			},
		},
		{
			Keys: []string{"o"},
			Values: []cypher.Value{
				cypher.EntityValue(&cypher.Entity{
					ID:     "n2",
					Labels: []string{"Organism"},
					Props:  map[string]any{"organism_name": "Mus musculus"},
				}),
			},
		},
	}

	g := BuildGraph(records, 50)
	if len(g.Nodes) != 2 {
		t.Fatalf("got %d nodes, want 2", len(g.Nodes))
	}

	var organism *VisualNode
	for i := range g.Nodes {
		if g.Nodes[i].ID == "n2" {
			organism = &g.Nodes[i]
		}
	}
	if organism == nil {
		t.Fatal("n2 missing from visual")
	}
	if organism.Group != "Organism" || organism.Label != "Mus musculus" || organism.Color != "#FF6C00" {
		t.Errorf("placeholder not upgraded: %+v", organism)
	}
}

func TestBuildGraph_InputOrderFillsCap(t *testing.T) {
	// Synthesized endpoints compete for cap slots in input order, so an
	// entity arriving after the cap is full loses out.
	records := []cypher.Record{
		{
			Keys: []string{"r"},
			Values: []cypher.Value{
				cypher.RelationshipValue(&cypher.Relationship{Type: "HAS_FACTOR", StartID: "a", EndID: "b"}),
			},
		},
		{
			Keys:   []string{"s"},
			Values: []cypher.Value{cypher.EntityValue(studyEntity("c", "OSD-9"))},
		},
	}

	g := BuildGraph(records, 2)
	if len(g.Nodes) != 2 {
		t.Fatalf("got %d nodes, want 2", len(g.Nodes))
	}
	for _, n := range g.Nodes {
		if n.ID == "c" {
			t.Error("late entity displaced an earlier endpoint from the cap")
		}
	}
	if !g.Truncated {
		t.Error("Truncated not set when the cap rejected a node")
	}
	if g.CandidateCount != 3 {
		t.Errorf("CandidateCount = %d, want 3", g.CandidateCount)
	}
}

func TestNodeDisplayInfo_Tooltip(t *testing.T) {
	e := studyEntity("n1", "OSD-104")
	e.Props["mission"] = "SpaceX-12"
	e.Props["description"] = strings.Repeat("x", 100)

	label, title := nodeDisplayInfo(e)
	if label != "OSD-104" {
		t.Errorf("label = %q", label)
	}
	if !strings.HasPrefix(title, "Study: OSD-104") {
		t.Errorf("title missing header: %q", title)
	}
	if !strings.Contains(title, "Title: Rodent Research") {
		t.Errorf("study tooltip missing title line: %q", title)
	}
	if !strings.Contains(title, "mission: SpaceX-12") {
		t.Errorf("tooltip missing property: %q", title)
	}
	if strings.Contains(title, strings.Repeat("x", 60)) {
		t.Errorf("long property value not ellipsized: %q", title)
	}
	if !strings.Contains(title, "...") {
		t.Errorf("expected ellipsis for long value: %q", title)
	}
}

func TestNodeDisplayInfo_TooltipPropBound(t *testing.T) {
	e := &cypher.Entity{ID: "n1", Labels: []string{"Factor"}, Props: map[string]any{"factor_name": "Spaceflight"}}
	for i := 0; i < 20; i++ {
		e.Props[fmt.Sprintf("p%02d", i)] = i
	}

	_, title := nodeDisplayInfo(e)
	lines := strings.Count(title, "\n")
	// header + blank + "Properties:" header + at most 10 property lines
	if lines > 13 {
		t.Errorf("tooltip lists too many properties (%d newlines): %q", lines, title)
	}
}

func TestTruncateValue_MultibyteSafe(t *testing.T) {
	long := strings.Repeat("日", 60)
	got := truncateValue(long)
	if !utf8.ValidString(got) {
		t.Errorf("truncation split a rune: %q", got)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("long value not ellipsized: %q", got)
	}
	if n := utf8.RuneCountInString(got); n != tooltipMaxValueLen {
		t.Errorf("truncated to %d runes, want %d", n, tooltipMaxValueLen)
	}

	// A string over the byte limit but under the rune limit stays intact.
	short := strings.Repeat("日", 40)
	if got := truncateValue(short); got != short {
		t.Errorf("short multibyte value was truncated: %q", got)
	}
}

func TestRelationshipTitle(t *testing.T) {
	r := &cypher.Relationship{Type: "HAS_FACTOR", StartID: "a", EndID: "b", Props: map[string]any{"weight": 2}}
	title := relationshipTitle(r)
	if !strings.HasPrefix(title, "Relationship: HAS_FACTOR") {
		t.Errorf("title = %q", title)
	}
	if !strings.Contains(title, "weight: 2") {
		t.Errorf("title missing properties: %q", title)
	}
}
