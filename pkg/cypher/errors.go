package cypher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// ErrorKind classifies query failures into a closed set used throughout the
// pipeline. Kinds decide the user-facing message template and whether a
// retry suggestion makes sense.
type ErrorKind int

const (
	// ErrorUnknown is anything not classifiable into the kinds below.
	ErrorUnknown ErrorKind = iota
	// ErrorSyntax is malformed or unsafe query text.
	ErrorSyntax
	// ErrorConnection means the graph store cannot be reached or
	// authenticated to.
	ErrorConnection
	// ErrorTimeout means the query exceeded its time budget.
	ErrorTimeout
	// ErrorResource means the query exceeded resource limits.
	ErrorResource
	// ErrorPermission is a blocked destructive or unauthorized operation.
	ErrorPermission
)

// String returns the kind's wire/display name.
func (k ErrorKind) String() string {
	switch k {
	case ErrorSyntax:
		return "syntax"
	case ErrorConnection:
		return "connection"
	case ErrorTimeout:
		return "timeout"
	case ErrorResource:
		return "resource"
	case ErrorPermission:
		return "permission"
	default:
		return "unknown"
	}
}

// QueryError pairs a classified kind with a user-readable message while
// keeping the underlying driver error available for wrapping.
type QueryError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *QueryError) Error() string {
	return e.Message
}

func (e *QueryError) Unwrap() error {
	return e.Cause
}

// ClassifyError maps a driver or context error into the closed ErrorKind
// taxonomy. Classification uses error type inspection first, then substring
// heuristics on the lowered message. The heuristics are best-effort; anything
// unmatched is ErrorUnknown. All classification lives here so call sites
// never inspect driver errors themselves.
func ClassifyError(err error) ErrorKind {
	if err == nil {
		return ErrorUnknown
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTimeout
	}

	var neoErr *neo4j.Neo4jError
	if errors.As(err, &neoErr) {
		return classifyNeo4jCode(neoErr)
	}

	if neo4j.IsConnectivityError(err) {
		return ErrorConnection
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out"):
		return ErrorTimeout
	case strings.Contains(msg, "connection") || strings.Contains(msg, "refused") ||
		strings.Contains(msg, "unavailable") || strings.Contains(msg, "unreachable") ||
		strings.Contains(msg, "no route to host"):
		return ErrorConnection
	case strings.Contains(msg, "authentication") || strings.Contains(msg, "unauthorized") ||
		strings.Contains(msg, "permission") || strings.Contains(msg, "forbidden") ||
		strings.Contains(msg, "access denied"):
		return ErrorPermission
	case strings.Contains(msg, "out of memory") || strings.Contains(msg, "resource") ||
		strings.Contains(msg, "limit exceeded"):
		return ErrorResource
	default:
		return ErrorUnknown
	}
}

// classifyNeo4jCode classifies a server-reported error by its status code,
// e.g. "Neo.ClientError.Statement.SyntaxError".
func classifyNeo4jCode(err *neo4j.Neo4jError) ErrorKind {
	code := err.Code
	msg := strings.ToLower(err.Msg)

	switch {
	case strings.Contains(code, "SyntaxError"):
		return ErrorSyntax
	// Connection before security: SessionExpired lives under the Security
	// namespace but means the connection is gone, not that access was
	// denied.
	case strings.Contains(code, "ServiceUnavailable") || strings.Contains(code, "SessionExpired"):
		return ErrorConnection
	case strings.Contains(code, "Security") || strings.Contains(code, "Forbidden") ||
		strings.Contains(code, "Unauthorized"):
		return ErrorPermission
	case strings.Contains(code, "TransientError"):
		// Transient covers both timeouts and resource exhaustion; the
		// message decides which.
		if strings.Contains(msg, "time") {
			return ErrorTimeout
		}
		return ErrorResource
	case strings.Contains(code, "ClientError"):
		return ErrorSyntax
	default:
		return ErrorUnknown
	}
}

// UserMessage renders the fixed, user-facing message template for an error
// kind. The timeout is included so the message reflects the configured
// budget, not a hardcoded number.
func UserMessage(kind ErrorKind, err error, timeout time.Duration) string {
	switch kind {
	case ErrorSyntax:
		return fmt.Sprintf("Query syntax error: %v. Please check your Cypher syntax.", err)
	case ErrorConnection:
		return "Unable to connect to the graph database. Please check your connection and try again."
	case ErrorTimeout:
		return fmt.Sprintf("Query timed out after %s. Try simplifying your query or adding a LIMIT clause.", timeout)
	case ErrorResource:
		return "Query requires too many resources. Try limiting results with a LIMIT clause or simplifying the query."
	case ErrorPermission:
		return "Permission denied. You may not have access to perform this operation."
	default:
		return fmt.Sprintf("An unexpected error occurred: %v", err)
	}
}
