package cypher

import (
	"strings"
	"testing"
)

func TestValidate_ReadQueries(t *testing.T) {
	valid := []string{
		"MATCH (s:Study) RETURN s",
		"MATCH (s:Study)-[:HAS_ORGANISM]->(o:Organism) RETURN s, o LIMIT 10",
		"RETURN 1",
		"WITH 1 AS x RETURN x",
		"match (n) return n", // case-insensitive
	}
	for _, q := range valid {
		t.Run(q, func(t *testing.T) {
			res := Validate(q)
			if !res.Valid {
				t.Errorf("Validate(%q) rejected valid query: %s", q, res.Message)
			}
		})
	}
}

func TestValidate_Empty(t *testing.T) {
	for _, q := range []string{"", "   ", "\n\t"} {
		res := Validate(q)
		if res.Valid {
			t.Fatalf("Validate(%q) accepted empty query", q)
		}
		if res.Message != "Query cannot be empty" {
			t.Errorf("message = %q", res.Message)
		}
		if res.Kind != ErrorSyntax {
			t.Errorf("kind = %v, want syntax", res.Kind)
		}
	}
}

func TestValidate_DestructiveOperations(t *testing.T) {
	tests := []struct {
		query string
		op    string
	}{
		{"MATCH (n) DELETE n", "DELETE"},
		{"MATCH (n) DETACH DELETE n", "DELETE"}, // single-word form matches first
		{"DROP DATABASE neo4j", "DROP"},
		{"CREATE CONSTRAINT FOR (s:Study) REQUIRE s.study_id IS UNIQUE", "CREATE CONSTRAINT"},
		{"CREATE INDEX FOR (s:Study) ON (s.study_id)", "CREATE INDEX"},
		{"match (n) delete n", "DELETE"}, // case-insensitive
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			res := Validate(tt.query)
			if res.Valid {
				t.Fatalf("destructive query accepted: %q", tt.query)
			}
			if res.Kind != ErrorPermission {
				t.Errorf("kind = %v, want permission", res.Kind)
			}
			want := "Destructive operation detected: " + tt.op
			if res.Message != want {
				t.Errorf("message = %q, want %q", res.Message, want)
			}
			if len(res.Suggestions) == 0 {
				t.Error("expected suggestions for destructive operation")
			}
		})
	}
}

func TestValidate_KeywordBoundaries(t *testing.T) {
	// Identifiers containing denylisted words must not trip the denylist.
	queries := []string{
		"MATCH (n:Deleted) RETURN n",
		"MATCH (n) RETURN n.dropped_at",
		"MATCH (n) WHERE n.name = 'undeletable' RETURN n",
	}
	for _, q := range queries {
		if res := Validate(q); !res.Valid {
			t.Errorf("Validate(%q) = invalid (%s), want valid", q, res.Message)
		}
	}
}

func TestValidate_Balance(t *testing.T) {
	tests := []struct {
		query   string
		message string
	}{
		{"MATCH (n RETURN n", "Unbalanced parentheses in query"},
		{"MATCH (n)) RETURN n", "Unbalanced parentheses in query"},
		{"MATCH (a)-[r->(b) RETURN r", "Unbalanced brackets in query"},
	}
	for _, tt := range tests {
		res := Validate(tt.query)
		if res.Valid {
			t.Fatalf("unbalanced query accepted: %q", tt.query)
		}
		if res.Message != tt.message {
			t.Errorf("Validate(%q) message = %q, want %q", tt.query, res.Message, tt.message)
		}
		if res.Kind != ErrorSyntax {
			t.Errorf("kind = %v, want syntax", res.Kind)
		}
	}
}

func TestValidate_RequiresClause(t *testing.T) {
	res := Validate("foo bar baz")
	if res.Valid {
		t.Fatal("clause-free query accepted")
	}
	if !strings.Contains(res.Message, "at least one Cypher clause") {
		t.Errorf("message = %q", res.Message)
	}
}

func TestValidate_OrderOfChecks(t *testing.T) {
	// Destructive check runs before balance: an unbalanced DELETE reports
	// the destructive operation, not the parentheses.
	res := Validate("MATCH (n DELETE n")
	if res.Valid {
		t.Fatal("query accepted")
	}
	if res.Kind != ErrorPermission {
		t.Errorf("kind = %v, want permission (denylist checked before balance)", res.Kind)
	}
}
