// Package main provides the OSDR graph explorer CLI entry point.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spacebiology/osdrgraph/pkg/config"
	"github.com/spacebiology/osdrgraph/pkg/cypher"
	"github.com/spacebiology/osdrgraph/pkg/explorer"
	"github.com/spacebiology/osdrgraph/pkg/history"
	"github.com/spacebiology/osdrgraph/pkg/results"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "osdrgraph",
		Short: "OSDR Graph Explorer - query NASA OSDR study metadata in Neo4j",
		Long: `osdrgraph runs read-only Cypher queries against a Neo4j database
holding NASA Open Science Data Repository study metadata, classifies the
results, and renders them as tables, scalar summaries, or graph views.

Queries are validated before execution: destructive operations are
rejected, and every run is recorded in a local history store.`,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file")

	// Version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("osdrgraph v%s (%s)\n", version, commit)
		},
	})

	// Ping command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "ping",
		Short: "Check connectivity to the configured Neo4j database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPing(configPath)
		},
	})

	// Query command
	queryCmd := &cobra.Command{
		Use:   "query [cypher]",
		Short: "Execute a read-only Cypher query and render the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, configPath, args[0])
		},
	}
	queryCmd.Flags().StringArray("param", nil, "Query parameter as key=value (repeatable)")
	queryCmd.Flags().Int("page", 1, "Table page to display (1-based)")
	queryCmd.Flags().Int("page-size", 0, "Rows per page (0 = configured default)")
	queryCmd.Flags().Bool("json", false, "Emit the formatted result as JSON")
	queryCmd.Flags().Bool("no-cache", false, "Bypass the result cache")
	rootCmd.AddCommand(queryCmd)

	// Shell command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "shell",
		Short: "Start an interactive query shell",
		Long: `shell starts an interactive session against the configured database.
The session keeps its result cache, pagination state, and execution
metrics alive across queries; type :help at the prompt for commands.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(configPath)
		},
	})

	// Validate command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "validate [cypher]",
		Short: "Validate a query without executing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(args[0])
		},
	})

	rootCmd.AddCommand(historyCommand(&configPath))
	rootCmd.AddCommand(checkpointCommand(&configPath))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func historyCommand(configPath *string) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Manage query history",
	}

	historyCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List recent queries, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(*configPath, func(store *history.Store) error {
				entries, err := store.Entries()
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					fmt.Println("No query history.")
					return nil
				}
				for i, e := range entries {
					status := "ok"
					if !e.Success {
						status = "failed"
					}
					fmt.Printf("%2d. [%s] %s (%.0fms, %d rows, %s)\n",
						i+1, e.Timestamp.Format("2006-01-02 15:04:05"),
						e.Query, e.ElapsedMS, e.ResultCount, status)
				}
				return nil
			})
		},
	})

	historyCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete all query history",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(*configPath, func(store *history.Store) error {
				if err := store.ClearHistory(); err != nil {
					return err
				}
				fmt.Println("Query history cleared.")
				return nil
			})
		},
	})

	historyCmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show history statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(*configPath, func(store *history.Store) error {
				stats, err := store.HistoryStats()
				if err != nil {
					return err
				}
				fmt.Printf("Total queries:      %d\n", stats.TotalQueries)
				fmt.Printf("Successful queries: %d\n", stats.SuccessfulQueries)
				fmt.Printf("Failed queries:     %d\n", stats.FailedQueries)
				fmt.Printf("Avg execution time: %.1fms\n", stats.AvgElapsedMS)
				if stats.MostRecent != nil {
					fmt.Printf("Most recent:        %s\n", stats.MostRecent.Format("2006-01-02 15:04:05"))
				}
				return nil
			})
		},
	})

	historyCmd.AddCommand(&cobra.Command{
		Use:   "export [file]",
		Short: "Export history and checkpoints to a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(*configPath, func(store *history.Store) error {
				data, err := store.Export()
				if err != nil {
					return err
				}
				if err := os.WriteFile(args[0], data, 0o644); err != nil {
					return err
				}
				fmt.Printf("Exported to %s\n", args[0])
				return nil
			})
		},
	})

	historyCmd.AddCommand(&cobra.Command{
		Use:   "import [file]",
		Short: "Replace history and checkpoints from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(*configPath, func(store *history.Store) error {
				data, err := os.ReadFile(args[0])
				if err != nil {
					return err
				}
				if err := store.Import(data); err != nil {
					return err
				}
				fmt.Printf("Imported from %s\n", args[0])
				return nil
			})
		},
	})

	return historyCmd
}

func checkpointCommand(configPath *string) *cobra.Command {
	checkpointCmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Manage saved query checkpoints",
	}

	saveCmd := &cobra.Command{
		Use:   "save [name] [cypher]",
		Short: "Save a named query checkpoint",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			description, _ := cmd.Flags().GetString("description")
			return withHistory(*configPath, func(store *history.Store) error {
				cp, err := store.SaveCheckpoint(args[0], args[1], description)
				if err != nil {
					return err
				}
				fmt.Printf("Saved checkpoint %q (%s)\n", cp.Name, cp.ID)
				return nil
			})
		},
	}
	saveCmd.Flags().String("description", "", "Optional checkpoint description")
	checkpointCmd.AddCommand(saveCmd)

	checkpointCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved checkpoints, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(*configPath, func(store *history.Store) error {
				cps, err := store.Checkpoints()
				if err != nil {
					return err
				}
				if len(cps) == 0 {
					fmt.Println("No checkpoints.")
					return nil
				}
				for _, cp := range cps {
					fmt.Printf("%s  %-20s %s\n", cp.ID, cp.Name, cp.Query)
					if cp.Description != "" {
						fmt.Printf("%38s%s\n", "", cp.Description)
					}
				}
				return nil
			})
		},
	})

	checkpointCmd.AddCommand(&cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a checkpoint by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(*configPath, func(store *history.Store) error {
				existed, err := store.DeleteCheckpoint(args[0])
				if err != nil {
					return err
				}
				if !existed {
					return fmt.Errorf("no checkpoint with id %s", args[0])
				}
				fmt.Println("Checkpoint deleted.")
				return nil
			})
		},
	})

	checkpointCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete all checkpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(*configPath, func(store *history.Store) error {
				if err := store.ClearCheckpoints(); err != nil {
					return err
				}
				fmt.Println("Checkpoints cleared.")
				return nil
			})
		},
	})

	return checkpointCmd
}

func loadConfig(configPath string) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.LoadFromEnv()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func withHistory(configPath string, fn func(*history.Store) error) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	store, err := history.Open(cfg.History.Dir, cfg.History.MaxEntries)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

// openSession wires the full pipeline over a live driver connection: history
// store as tracker, executor, formatter, cache, and metrics in one
// explorer.Session. The returned cleanup closes the store and the driver.
func openSession(cfg *config.Config, pageSize int) (*explorer.Session, func(), error) {
	store, err := history.Open(cfg.History.Dir, cfg.History.MaxEntries)
	if err != nil {
		return nil, nil, err
	}

	source, err := cypher.NewDriverSource(cypher.DriverConfig{
		URI:      cfg.Neo4j.URI,
		Username: cfg.Neo4j.Username,
		Password: cfg.Neo4j.Password,
		Database: cfg.Neo4j.Database,
	})
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	sess, err := explorer.NewSession(source, cypher.ExecutorConfig{
		Timeout:              cfg.Query.Timeout,
		SlowQueryThreshold:   cfg.Query.SlowQueryThreshold,
		LargeResultThreshold: cfg.Query.LargeResultThreshold,
		Tracker:              store,
	}, explorer.Config{
		MaxGraphNodes: cfg.Display.MaxGraphNodes,
		PageSize:      pageSize,
		CacheSize:     cfg.Query.CacheSize,
		CacheTTL:      cfg.Query.CacheTTL,
	})
	if err != nil {
		source.Close(context.Background())
		store.Close()
		return nil, nil, err
	}

	cleanup := func() {
		source.Close(context.Background())
		store.Close()
	}
	return sess, cleanup, nil
}

func runPing(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	sess, cleanup, err := openSession(cfg, cfg.Display.PageSize)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := sess.Ping(context.Background()); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	fmt.Printf("Connected to %s\n", cfg.Neo4j.URI)
	return nil
}

func runValidate(query string) error {
	res := cypher.Validate(query)
	if res.Valid {
		fmt.Println("Query is valid.")
		return nil
	}
	fmt.Printf("Invalid query (%s): %s\n", res.Kind, res.Message)
	for _, s := range res.Suggestions {
		fmt.Printf("  - %s\n", s)
	}
	os.Exit(1)
	return nil
}

func runQuery(cmd *cobra.Command, configPath, query string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	paramFlags, _ := cmd.Flags().GetStringArray("param")
	params, err := parseParams(paramFlags)
	if err != nil {
		return err
	}
	page, _ := cmd.Flags().GetInt("page")
	pageSize, _ := cmd.Flags().GetInt("page-size")
	if pageSize <= 0 {
		pageSize = cfg.Display.PageSize
	}
	asJSON, _ := cmd.Flags().GetBool("json")
	noCache, _ := cmd.Flags().GetBool("no-cache")

	sess, cleanup, err := openSession(cfg, pageSize)
	if err != nil {
		return err
	}
	defer cleanup()
	if noCache {
		sess.SetCacheEnabled(false)
	}

	formatted, _ := sess.Run(context.Background(), query, params)

	if asJSON {
		data, err := json.MarshalIndent(formatted, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		if formatted.Type == results.TypeError {
			os.Exit(1)
		}
		return nil
	}

	render(formatted, results.Paginate(tableRows(formatted.Table), pageSize, page-1))
	if formatted.Type == results.TypeError {
		os.Exit(1)
	}
	return nil
}

func runShell(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	sess, cleanup, err := openSession(cfg, cfg.Display.PageSize)
	if err != nil {
		return err
	}
	defer cleanup()

	fmt.Printf("Connected to %s. Type :help for commands, :quit to exit.\n", cfg.Neo4j.URI)

	var last *results.Formatted
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Print("osdr> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ":") {
			if quit := shellCommand(sess, line, last); quit {
				return nil
			}
			continue
		}

		formatted, cached := sess.Run(context.Background(), line, nil)
		last = formatted
		if cached {
			fmt.Println("(cached)")
		}
		render(formatted, sess.Page(formatted.Table))
	}
}

// shellCommand handles one colon-prefixed shell command and reports whether
// the shell should exit.
func shellCommand(sess *explorer.Session, line string, last *results.Formatted) bool {
	switch line {
	case ":quit", ":exit":
		return true
	case ":help":
		fmt.Println(`Commands:
  :next      show the next page of the last result
  :prev      show the previous page of the last result
  :cache     show result cache statistics
  :metrics   show execution metrics for this session
  :quit      exit the shell
Anything else is executed as a Cypher query.`)
	case ":next", ":prev":
		if last == nil || last.Table == nil || last.Table.Empty() {
			fmt.Println("No table to page through.")
			return false
		}
		if line == ":next" {
			sess.NextPage()
		} else {
			sess.PrevPage()
		}
		renderPage(last.Table.Columns, sess.Page(last.Table))
	case ":cache":
		stats := sess.CacheStats()
		fmt.Printf("Cache: %d/%d entries, %d hits, %d misses (%.0f%% hit rate)\n",
			stats.Size, stats.MaxSize, stats.Hits, stats.Misses, stats.HitRate)
	case ":metrics":
		snapshot, err := sess.MetricsSnapshot()
		if err != nil {
			fmt.Printf("metrics unavailable: %v\n", err)
			return false
		}
		if snapshot == "" {
			fmt.Println("No queries executed yet.")
			return false
		}
		fmt.Print(snapshot)
	default:
		fmt.Printf("Unknown command %s (try :help)\n", line)
	}
	return false
}

// parseParams turns repeated key=value flags into query parameters.
// Values stay strings; Cypher coerces where needed.
func parseParams(flags []string) (map[string]any, error) {
	if len(flags) == 0 {
		return nil, nil
	}
	params := make(map[string]any, len(flags))
	for _, f := range flags {
		key, value, ok := strings.Cut(f, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q, expected key=value", f)
		}
		params[key] = value
	}
	return params, nil
}

func tableRows(t *results.Table) [][]string {
	if t == nil {
		return nil
	}
	return t.Rows
}

func render(f *results.Formatted, p results.Page) {
	switch f.Type {
	case results.TypeError:
		fmt.Printf("Query failed: %s\n", f.ErrorMessage)
		return
	case results.TypeEmpty:
		fmt.Println(f.Meta.Message)
		return
	}

	if f.Meta.Warning != "" {
		fmt.Printf("Warning: %s\n\n", f.Meta.Warning)
	}

	if len(f.Scalars) > 0 {
		for k, v := range f.Scalars {
			fmt.Printf("%s: %v\n", k, v)
		}
		fmt.Println()
	}

	if f.Graph != nil && !f.Graph.Empty() {
		fmt.Printf("Graph: %d nodes, %d edges\n", len(f.Graph.Nodes), len(f.Graph.Edges))
		if f.Graph.Truncated {
			fmt.Printf("Showing %d of %d nodes\n", len(f.Graph.Nodes), f.Graph.CandidateCount)
		}
		fmt.Println()
	}

	if f.Table != nil && !f.Table.Empty() {
		renderPage(f.Table.Columns, p)
	}

	fmt.Printf("\n%d records in %v (%d nodes, %d relationships)\n",
		f.Meta.TotalRecords, f.Meta.Elapsed, f.Meta.Nodes, f.Meta.Relationships)
}

func renderPage(columns []string, p results.Page) {
	widths := make([]int, len(columns))
	for i, c := range columns {
		widths[i] = len(c)
	}
	for _, row := range p.Rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var sb strings.Builder
	for i, c := range columns {
		fmt.Fprintf(&sb, "%-*s  ", widths[i], c)
	}
	fmt.Println(strings.TrimRight(sb.String(), " "))

	for _, row := range p.Rows {
		sb.Reset()
		for i, cell := range row {
			fmt.Fprintf(&sb, "%-*s  ", widths[i], cell)
		}
		fmt.Println(strings.TrimRight(sb.String(), " "))
	}

	if p.TotalPages > 1 {
		fmt.Printf("\nPage %d of %d (rows %d-%d of %d)\n",
			p.Index+1, p.TotalPages, p.StartRow, p.EndRow, p.TotalRows)
	}
}
