package cypher

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// RawRecord is one driver row before adaptation: projection keys plus the
// driver-native values in matching order.
type RawRecord struct {
	Keys   []string
	Values []any
}

// Session is the narrow slice of a graph-store session the executor needs.
// Run materializes the full result eagerly; back-pressure for large sets is
// handled downstream by the formatter's caps and the paginator.
type Session interface {
	Run(ctx context.Context, query string, params map[string]any) ([]RawRecord, error)
	Close(ctx context.Context) error
}

// SessionSource opens scoped sessions. The executor acquires a session
// immediately before running a query and closes it immediately after
// materialization, on every path.
type SessionSource interface {
	OpenSession(ctx context.Context) (Session, error)
}

// Default resource bounds, matching the dashboard's fixed thresholds.
const (
	DefaultTimeout              = 30 * time.Second
	DefaultSlowQueryThreshold   = 2000 * time.Millisecond
	DefaultLargeResultThreshold = 50
)

// ExecutorConfig bounds a single execution. Zero values take the defaults
// above.
type ExecutorConfig struct {
	// Timeout bounds the whole session acquire + run + materialize span.
	Timeout time.Duration
	// SlowQueryThreshold triggers a warning (not a failure) when exceeded.
	SlowQueryThreshold time.Duration
	// LargeResultThreshold triggers a warning when the record count
	// exceeds it.
	LargeResultThreshold int

	// Tracker receives fire-and-forget execution reports. Optional.
	Tracker Tracker
	// Metrics receives execution observations. Optional.
	Metrics *Metrics
}

// Executor runs validated Cypher queries against a SessionSource and adapts
// the results into the closed Value union. One Executor is constructed per
// process and passed explicitly to its callers; it holds no global state
// beyond the analyzer cache and is safe for concurrent use.
type Executor struct {
	source   SessionSource
	cfg      ExecutorConfig
	analyzer *Analyzer
}

// NewExecutor creates an executor over the given session source.
func NewExecutor(source SessionSource, cfg ExecutorConfig) *Executor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.SlowQueryThreshold <= 0 {
		cfg.SlowQueryThreshold = DefaultSlowQueryThreshold
	}
	if cfg.LargeResultThreshold <= 0 {
		cfg.LargeResultThreshold = DefaultLargeResultThreshold
	}
	return &Executor{
		source:   source,
		cfg:      cfg,
		analyzer: NewAnalyzer(256),
	}
}

// Execute validates and runs one query. Validation failures return
// immediately with zero elapsed time and no session is opened. Driver
// failures are caught, classified, and translated; they never propagate raw.
func (e *Executor) Execute(ctx context.Context, query string, params map[string]any) ExecutionResult {
	if v := Validate(query); !v.Valid {
		res := ExecutionResult{
			Success:      false,
			ErrorMessage: v.Message,
			ErrorKind:    v.Kind,
		}
		e.report(query, res)
		return res
	}

	start := time.Now()
	records, err := e.runScoped(ctx, query, params)
	elapsed := time.Since(start)

	if err != nil {
		kind := ClassifyError(err)
		res := ExecutionResult{
			Success:      false,
			Elapsed:      elapsed,
			Stats:        PerformanceStats{Elapsed: elapsed},
			ErrorMessage: UserMessage(kind, err, e.cfg.Timeout),
			ErrorKind:    kind,
		}
		e.report(query, res)
		return res
	}

	nodes, rels := countGraphValues(records)
	res := ExecutionResult{
		Success: true,
		Records: records,
		Elapsed: elapsed,
		Stats: PerformanceStats{
			Elapsed:       elapsed,
			Nodes:         nodes,
			Relationships: rels,
		},
		Warning: e.warning(query, elapsed, len(records)),
	}
	e.report(query, res)
	return res
}

// Ping checks connectivity by running a trivial query through the normal
// pipeline.
func (e *Executor) Ping(ctx context.Context) error {
	res := e.Execute(ctx, "RETURN 1 AS test", nil)
	if !res.Success {
		return &QueryError{Kind: res.ErrorKind, Message: res.ErrorMessage}
	}
	if len(res.Records) != 1 {
		return fmt.Errorf("ping returned %d records, want 1", len(res.Records))
	}
	return nil
}

// runScoped opens a session, runs the query, materializes and adapts all
// records, and closes the session on every path.
func (e *Executor) runScoped(ctx context.Context, query string, params map[string]any) (records []Record, err error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	// The driver should surface failures as errors, but a misbehaving
	// Session implementation must not take down the caller.
	defer func() {
		if r := recover(); r != nil {
			records = nil
			err = fmt.Errorf("query execution panic: %v", r)
		}
	}()

	sess, err := e.source.OpenSession(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := sess.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()

	raw, err := sess.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}

	records = make([]Record, 0, len(raw))
	for _, r := range raw {
		records = append(records, adaptRecord(r))
	}
	return records, nil
}

func (e *Executor) warning(query string, elapsed time.Duration, count int) string {
	if elapsed > e.cfg.SlowQueryThreshold {
		return fmt.Sprintf("Query took %dms (slower than %dms threshold)",
			elapsed.Milliseconds(), e.cfg.SlowQueryThreshold.Milliseconds())
	}
	if count > e.cfg.LargeResultThreshold {
		msg := fmt.Sprintf("Large result set (%d records).", count)
		if !e.analyzer.Analyze(query).HasLimit {
			msg += " Consider adding a LIMIT clause for better performance."
		}
		return msg
	}
	return ""
}

// report hands the outcome to the tracker and metrics. Both are optional and
// neither may affect the execution result: tracker errors are dropped.
func (e *Executor) report(query string, res ExecutionResult) {
	if e.cfg.Tracker != nil {
		_ = e.cfg.Tracker.Record(TrackedQuery{
			Query:        query,
			Timestamp:    time.Now(),
			Elapsed:      res.Elapsed,
			ResultCount:  len(res.Records),
			Success:      res.Success,
			ErrorMessage: res.ErrorMessage,
		})
	}
	e.cfg.Metrics.observe(res)
}

// countGraphValues scans the adapted result set for entity and relationship
// values. These are pre-cap totals used in warnings and formatter metadata.
func countGraphValues(records []Record) (nodes, rels int) {
	for _, rec := range records {
		for _, v := range rec.Values {
			switch v.Kind {
			case KindEntity:
				nodes++
			case KindRelationship:
				rels++
			}
		}
	}
	return nodes, rels
}

// adaptRecord converts one driver row into a Record of closed-union values.
// Path values are unpacked into their nodes and relationships under synthetic
// field names, so a path query still feeds the graph view.
func adaptRecord(raw RawRecord) Record {
	rec := Record{
		Keys:   make([]string, 0, len(raw.Keys)),
		Values: make([]Value, 0, len(raw.Values)),
	}
	for i, key := range raw.Keys {
		if i >= len(raw.Values) {
			break
		}
		if p, ok := raw.Values[i].(dbtype.Path); ok {
			for j, n := range p.Nodes {
				rec.Keys = append(rec.Keys, fmt.Sprintf("%s_n%d", key, j))
				rec.Values = append(rec.Values, EntityValue(adaptNode(n)))
			}
			for j, r := range p.Relationships {
				rec.Keys = append(rec.Keys, fmt.Sprintf("%s_r%d", key, j))
				rec.Values = append(rec.Values, RelationshipValue(adaptRelationship(r)))
			}
			continue
		}
		rec.Keys = append(rec.Keys, key)
		rec.Values = append(rec.Values, AdaptValue(raw.Values[i]))
	}
	return rec
}

// AdaptValue converts a single driver-native value into the closed union.
// This is the only place that inspects driver types.
func AdaptValue(v any) Value {
	switch tv := v.(type) {
	case nil:
		return ScalarValue(nil)
	case bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return ScalarValue(tv)
	case dbtype.Node:
		return EntityValue(adaptNode(tv))
	case dbtype.Relationship:
		return RelationshipValue(adaptRelationship(tv))
	default:
		return UnrepresentableValue(tv)
	}
}

func adaptNode(n dbtype.Node) *Entity {
	return &Entity{
		ID:     EntityID(n.ElementId),
		Labels: n.Labels,
		Props:  n.Props,
	}
}

func adaptRelationship(r dbtype.Relationship) *Relationship {
	return &Relationship{
		Type:    r.Type,
		StartID: EntityID(r.StartElementId),
		EndID:   EntityID(r.EndElementId),
		Props:   r.Props,
	}
}

// =============================================================================
// Neo4j driver adapter
// =============================================================================

// DriverConfig carries connection settings for the Neo4j driver adapter.
type DriverConfig struct {
	URI      string
	Username string
	Password string
	Database string
}

// DriverSource adapts a neo4j.DriverWithContext to the SessionSource
// interface. Connection pooling and retries stay inside the driver; this
// layer only opens and closes read sessions.
type DriverSource struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewDriverSource creates a driver-backed session source. The driver is lazy:
// connectivity failures surface on the first session use (or via Verify).
func NewDriverSource(cfg DriverConfig) (*DriverSource, error) {
	auth := neo4j.NoAuth()
	if cfg.Username != "" {
		auth = neo4j.BasicAuth(cfg.Username, cfg.Password, "")
	}
	driver, err := neo4j.NewDriverWithContext(cfg.URI, auth)
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	return &DriverSource{driver: driver, database: cfg.Database}, nil
}

// OpenSession opens a read-mode session.
func (s *DriverSource) OpenSession(ctx context.Context) (Session, error) {
	sess := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: s.database,
	})
	return &driverSession{sess: sess}, nil
}

// Verify checks connectivity to the graph store.
func (s *DriverSource) Verify(ctx context.Context) error {
	return s.driver.VerifyConnectivity(ctx)
}

// Close shuts down the underlying driver and its pool.
func (s *DriverSource) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

type driverSession struct {
	sess neo4j.SessionWithContext
}

func (d *driverSession) Run(ctx context.Context, query string, params map[string]any) ([]RawRecord, error) {
	result, err := d.sess.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}
	collected, err := result.Collect(ctx)
	if err != nil {
		return nil, err
	}
	raw := make([]RawRecord, 0, len(collected))
	for _, rec := range collected {
		raw = append(raw, RawRecord{Keys: rec.Keys, Values: rec.Values})
	}
	return raw, nil
}

func (d *driverSession) Close(ctx context.Context) error {
	return d.sess.Close(ctx)
}
