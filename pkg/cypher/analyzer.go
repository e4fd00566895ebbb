package cypher

import (
	"strings"
	"sync"
)

// QueryInfo holds clause-presence flags extracted from a query string.
// Analysis is a flat keyword scan, not a parse: it may report false positives
// when keywords appear inside string literals, which is acceptable because
// the flags only drive display hints and the conservative validator, never
// access control on the server side.
type QueryInfo struct {
	HasMatch        bool
	HasReturn       bool
	HasWith         bool
	HasCreate       bool
	HasMerge        bool
	HasDelete       bool
	HasDetachDelete bool
	HasDrop         bool
	HasLimit        bool
	HasOrderBy      bool

	// HasSchema is true for index/constraint DDL variants.
	HasSchema bool

	// IsReadOnly means no write or schema clause was detected.
	IsReadOnly bool
}

// Analyzer extracts QueryInfo with a small bounded cache, so repeated
// executions of the same query (the common dashboard pattern) skip the
// string scan.
type Analyzer struct {
	mu      sync.RWMutex
	cache   map[string]*QueryInfo
	maxSize int
}

// NewAnalyzer creates an analyzer caching up to maxSize distinct queries.
func NewAnalyzer(maxSize int) *Analyzer {
	if maxSize <= 0 {
		maxSize = 256
	}
	return &Analyzer{
		cache:   make(map[string]*QueryInfo),
		maxSize: maxSize,
	}
}

// Analyze returns clause information for the query, using the cache when
// available.
func (a *Analyzer) Analyze(query string) *QueryInfo {
	key := strings.Join(strings.Fields(query), " ")

	a.mu.RLock()
	if info, ok := a.cache[key]; ok {
		a.mu.RUnlock()
		return info
	}
	a.mu.RUnlock()

	info := analyzeQuery(query)

	a.mu.Lock()
	if len(a.cache) >= a.maxSize {
		// Simple eviction: drop an arbitrary entry. Not LRU, but the cache
		// is small and rebuild is cheap.
		for k := range a.cache {
			delete(a.cache, k)
			break
		}
	}
	a.cache[key] = info
	a.mu.Unlock()

	return info
}

// CacheSize returns the number of cached analyses.
func (a *Analyzer) CacheSize() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.cache)
}

func analyzeQuery(query string) *QueryInfo {
	upper := strings.ToUpper(query)

	info := &QueryInfo{
		HasMatch:        containsKeyword(upper, "MATCH"),
		HasReturn:       containsKeyword(upper, "RETURN"),
		HasWith:         containsKeyword(upper, "WITH"),
		HasCreate:       containsKeyword(upper, "CREATE"),
		HasMerge:        containsKeyword(upper, "MERGE"),
		HasDelete:       containsKeyword(upper, "DELETE"),
		HasDetachDelete: containsPhrase(upper, "DETACH", "DELETE"),
		HasDrop:         containsKeyword(upper, "DROP"),
		HasLimit:        containsKeyword(upper, "LIMIT"),
		HasOrderBy:      containsPhrase(upper, "ORDER", "BY"),
	}

	info.HasSchema = containsPhrase(upper, "CREATE", "INDEX") ||
		containsPhrase(upper, "DROP", "INDEX") ||
		containsPhrase(upper, "CREATE", "CONSTRAINT") ||
		containsPhrase(upper, "DROP", "CONSTRAINT")

	info.IsReadOnly = !info.HasCreate && !info.HasMerge && !info.HasDelete &&
		!info.HasDrop && !info.HasSchema

	return info
}

// containsKeyword reports whether upper contains keyword as a whole word.
// All occurrences are checked, so "ToDelete" does not mask a later "DELETE".
func containsKeyword(upper, keyword string) bool {
	searchFrom := 0
	for {
		idx := strings.Index(upper[searchFrom:], keyword)
		if idx < 0 {
			return false
		}
		idx += searchFrom

		isWordStart := idx == 0 || (!isWordByte(upper[idx-1]))
		end := idx + len(keyword)
		isWordEnd := end >= len(upper) || !isWordByte(upper[end])

		if isWordStart && isWordEnd {
			return true
		}

		searchFrom = idx + 1
		if searchFrom >= len(upper) {
			return false
		}
	}
}

// containsPhrase reports whether the words appear consecutively, separated by
// any run of whitespace ("DETACH   DELETE" still matches).
func containsPhrase(upper string, words ...string) bool {
	fields := strings.Fields(upper)
	if len(words) == 0 || len(fields) < len(words) {
		return false
	}
	for i := 0; i+len(words) <= len(fields); i++ {
		match := true
		for j, w := range words {
			if fields[i+j] != w {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= 'A' && b <= 'Z') ||
		(b >= 'a' && b <= 'z') ||
		(b >= '0' && b <= '9')
}
