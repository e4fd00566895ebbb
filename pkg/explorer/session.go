// Package explorer wires the query pipeline into a long-lived session: one
// executor, formatter, result cache, pagination state, and metric registry
// shared across queries. The interactive shell holds a single Session, which
// is what lets repeated queries hit the cache and the metrics accumulate.
package explorer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/spacebiology/osdrgraph/pkg/cache"
	"github.com/spacebiology/osdrgraph/pkg/cypher"
	"github.com/spacebiology/osdrgraph/pkg/results"
)

// Config holds the presentation and caching settings for a session.
type Config struct {
	MaxGraphNodes int
	PageSize      int
	// CacheSize bounds the formatted-result cache; 0 disables caching.
	CacheSize int
	CacheTTL  time.Duration
}

// Session runs queries through the full pipeline and memoizes formatted
// results. It is not safe for concurrent use; each interactive context owns
// one.
type Session struct {
	exec      *cypher.Executor
	formatter *results.Formatter
	cache     *cache.ResultCache
	pages     *results.PaginationState
	registry  *prometheus.Registry
}

// NewSession builds a session over the given source. Execution metrics are
// created and registered here, so every query observed through the session
// lands in its registry.
func NewSession(source cypher.SessionSource, execCfg cypher.ExecutorConfig, cfg Config) (*Session, error) {
	registry := prometheus.NewRegistry()
	metrics := cypher.NewMetrics()
	if err := metrics.Register(registry); err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	execCfg.Metrics = metrics

	rc := cache.NewResultCache(cfg.CacheSize, cfg.CacheTTL)
	if cfg.CacheSize == 0 {
		rc.SetEnabled(false)
	}

	return &Session{
		exec:      cypher.NewExecutor(source, execCfg),
		formatter: results.NewFormatter(cfg.MaxGraphNodes),
		cache:     rc,
		pages:     results.NewPaginationState(cfg.PageSize),
		registry:  registry,
	}, nil
}

// Run executes a query, serving a cached formatted result when one exists.
// The second return reports a cache hit. A new result, cached or not, resets
// pagination to the first page. Only successful results are cached.
func (s *Session) Run(ctx context.Context, query string, params map[string]any) (*results.Formatted, bool) {
	key := s.cache.Key(query, params)
	if f, ok := s.cache.Get(key); ok {
		s.pages.Reset()
		return f, true
	}

	res := s.exec.Execute(ctx, query, params)
	f := s.formatter.Format(res)
	if res.Success {
		s.cache.Put(key, f)
	}
	s.pages.Reset()
	return f, false
}

// Ping checks connectivity through the session's executor.
func (s *Session) Ping(ctx context.Context) error {
	return s.exec.Ping(ctx)
}

// Page slices the table at the session's current page.
func (s *Session) Page(t *results.Table) results.Page {
	return s.pages.Apply(t)
}

// NextPage advances the session's pagination.
func (s *Session) NextPage() {
	s.pages.Next()
}

// PrevPage steps the session's pagination back.
func (s *Session) PrevPage() {
	s.pages.Prev()
}

// SetCacheEnabled toggles result caching for the session.
func (s *Session) SetCacheEnabled(enabled bool) {
	s.cache.SetEnabled(enabled)
}

// CacheStats returns the result cache's hit/miss statistics.
func (s *Session) CacheStats() cache.Stats {
	return s.cache.Stats()
}

// MetricsSnapshot renders the session's metric registry in a compact text
// form for display at the CLI.
func (s *Session) MetricsSnapshot() (string, error) {
	families, err := s.registry.Gather()
	if err != nil {
		return "", fmt.Errorf("gather metrics: %w", err)
	}

	var sb strings.Builder
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			fmt.Fprintf(&sb, "%s%s", mf.GetName(), labelString(m.GetLabel()))
			switch {
			case m.GetCounter() != nil:
				fmt.Fprintf(&sb, " %g\n", m.GetCounter().GetValue())
			case m.GetHistogram() != nil:
				fmt.Fprintf(&sb, " count=%d sum=%g\n",
					m.GetHistogram().GetSampleCount(), m.GetHistogram().GetSampleSum())
			case m.GetGauge() != nil:
				fmt.Fprintf(&sb, " %g\n", m.GetGauge().GetValue())
			default:
				sb.WriteString("\n")
			}
		}
	}
	return sb.String(), nil
}

func labelString(pairs []*dto.LabelPair) string {
	if len(pairs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, fmt.Sprintf("%s=%q", p.GetName(), p.GetValue()))
	}
	return "{" + strings.Join(parts, ",") + "}"
}
