package cypher

import (
	"fmt"
	"strings"
)

// ValidationResult reports whether a query may be executed, and if not, why.
type ValidationResult struct {
	Valid       bool
	Message     string
	Kind        ErrorKind
	Suggestions []string
}

// destructiveOps is the fixed denylist of write/DDL operations the explorer
// refuses to execute. Checked case-insensitively as whole words, in order;
// the first match wins.
var destructiveOps = [][]string{
	{"DELETE"},
	{"DETACH", "DELETE"},
	{"DROP"},
	{"CREATE", "CONSTRAINT"},
	{"DROP", "CONSTRAINT"},
	{"CREATE", "INDEX"},
	{"DROP", "INDEX"},
}

// clauseKeywords are the clause keywords whose presence makes a query look
// executable. CREATE and MERGE count here even though the denylist already
// blocks the index/constraint variants of CREATE.
var clauseKeywords = []string{"MATCH", "RETURN", "WITH", "CREATE", "MERGE"}

// Validate statically checks query text for well-formedness and forbidden
// destructive operations. It is pure, never executes anything, and is safe
// to call on partial input while the user is typing.
//
// Rules are checked in order and the first failure wins:
//  1. empty/whitespace-only text
//  2. destructive operation denylist
//  3. balanced parentheses
//  4. balanced brackets
//  5. at least one recognizable clause keyword
func Validate(query string) ValidationResult {
	if strings.TrimSpace(query) == "" {
		return ValidationResult{
			Valid:   false,
			Message: "Query cannot be empty",
			Kind:    ErrorSyntax,
		}
	}

	upper := strings.ToUpper(query)

	for _, op := range destructiveOps {
		if matchesOp(upper, op) {
			return ValidationResult{
				Valid:   false,
				Message: fmt.Sprintf("Destructive operation detected: %s", strings.Join(op, " ")),
				Kind:    ErrorPermission,
				Suggestions: []string{
					"Use read-only queries only",
					"Remove DELETE, DROP, or CREATE operations",
				},
			}
		}
	}

	if strings.Count(query, "(") != strings.Count(query, ")") {
		return ValidationResult{
			Valid:       false,
			Message:     "Unbalanced parentheses in query",
			Kind:        ErrorSyntax,
			Suggestions: []string{"Check that all parentheses are properly closed"},
		}
	}

	if strings.Count(query, "[") != strings.Count(query, "]") {
		return ValidationResult{
			Valid:       false,
			Message:     "Unbalanced brackets in query",
			Kind:        ErrorSyntax,
			Suggestions: []string{"Check that all brackets are properly closed"},
		}
	}

	hasClause := false
	for _, kw := range clauseKeywords {
		if containsKeyword(upper, kw) {
			hasClause = true
			break
		}
	}
	if !hasClause {
		return ValidationResult{
			Valid:   false,
			Message: "Query must contain at least one Cypher clause (MATCH, RETURN, etc.)",
			Kind:    ErrorSyntax,
			Suggestions: []string{
				"Add a MATCH clause to start your query",
				"Include a RETURN clause to specify output",
			},
		}
	}

	return ValidationResult{Valid: true}
}

func matchesOp(upper string, op []string) bool {
	if len(op) == 1 {
		return containsKeyword(upper, op[0])
	}
	return containsPhrase(upper, op...)
}
