package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pable/cs-round-features/internal/aggregator"
	"github.com/pable/cs-round-features/internal/dataset"
	"github.com/pable/cs-round-features/internal/logger"
	"github.com/pable/cs-round-features/internal/metrics"
	"github.com/pable/cs-round-features/internal/parser"
	"github.com/pable/cs-round-features/internal/pipeline"
	"github.com/pable/cs-round-features/internal/report"
	"github.com/pable/cs-round-features/internal/storage"
)

var (
	extractOut        string
	extractWorkers    int
	extractMetricsOut string
	extractReportOut  string
	extractNoStore    bool
)

var extractCmd = &cobra.Command{
	Use:   "extract <demo.dem|records.jsonl>...",
	Short: "Extract round features from recordings",
	Long: `Decodes each recording, reconstructs its rounds, derives one feature row
per round and validates the rows. Recordings are processed in parallel.

A recording whose round markers are out of sequence is rejected and listed;
the others still produce rows. Results are stored in the database unless
--no-store is given.

Example:
  csfeatures extract demos/*.dem --out features.csv --report-out validation.yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVar(&extractOut, "out", "", "write the feature table as CSV to this path")
	extractCmd.Flags().IntVar(&extractWorkers, "workers", 0, "recordings processed in parallel (default: config workers)")
	extractCmd.Flags().StringVar(&extractMetricsOut, "metrics-out", "", "write pipeline metrics in Prometheus text format to this path")
	extractCmd.Flags().StringVar(&extractReportOut, "report-out", "", "write the validation report as YAML to this path")
	extractCmd.Flags().BoolVar(&extractNoStore, "no-store", false, "do not write results to the database")
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg := appConfig
	if extractWorkers > 0 {
		cfg.Workers = extractWorkers
	}

	runID := uuid.NewString()
	log := appLogger.With(logger.String("run_id", runID))
	m := metrics.NewManager()
	runner := pipeline.NewRunner(cfg, log, m)

	sources := make([]pipeline.Source, len(args))
	for i, path := range args {
		if parser.IsJSONL(path) {
			sources[i] = parser.JSONLSource{Path: path}
		} else {
			sources[i] = parser.DemoSource{Path: path, SampleInterval: cfg.SampleInterval()}
		}
	}

	started := time.Now()
	fmt.Fprintf(os.Stderr, "Extracting %d recording(s) with %d worker(s), run %s\n", len(sources), cfg.Workers, runID)
	batch, err := runner.RunAll(cmd.Context(), sources)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}
	finished := time.Now()

	report.PrintBatch(os.Stdout, batch)

	if extractOut != "" {
		if err := dataset.WriteFile(extractOut, batch.Dataset); err != nil {
			return fmt.Errorf("write features: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Features written to %s\n", extractOut)
	}

	if extractReportOut != "" {
		tables := make([]aggregator.MatchTable, len(batch.Results))
		for i, r := range batch.Results {
			tables[i] = aggregator.MatchTable{MatchID: r.MatchID, Table: r.Table}
		}
		if err := report.WriteYAMLFile(extractReportOut, report.NewValidationDocument(tables)); err != nil {
			return fmt.Errorf("write validation report: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Validation report written to %s\n", extractReportOut)
	}

	if !extractNoStore {
		if err := storeBatch(runID, started, finished, len(sources), batch); err != nil {
			return err
		}
	}

	if extractMetricsOut != "" {
		if err := m.WriteTextfile(extractMetricsOut); err != nil {
			return err
		}
	}
	return nil
}

func storeBatch(runID string, started, finished time.Time, sources int, batch *pipeline.Batch) error {
	if err := ensureDBDir(); err != nil {
		return err
	}
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	for _, r := range batch.Results {
		rep := r.Table.Report
		m := storage.Match{
			MatchID:        r.MatchID,
			RunID:          runID,
			MapName:        r.MapName,
			Source:         r.Source,
			Rounds:         len(r.Table.Rows),
			ValidRounds:    rep.ValidRounds,
			SkippedRounds:  len(r.Skipped),
			DroppedRecords: len(r.Dropped),
			Errors:         rep.Errors,
			Warnings:       rep.Warnings,
			Duration:       r.Duration,
			ProcessedAt:    finished,
		}
		if err := db.SaveMatch(m, r.Table); err != nil {
			return fmt.Errorf("store match %s: %w", report.ShortID(r.MatchID), err)
		}
	}

	run := storage.Run{
		ID:         runID,
		StartedAt:  started,
		FinishedAt: finished,
		Sources:    sources,
		Accepted:   len(batch.Results),
		Rejected:   len(batch.Rejected),
		Rows:       len(batch.Dataset.Rows),
		ValidRows:  batch.Dataset.ValidRows(),
	}
	if err := db.InsertRun(run); err != nil {
		return fmt.Errorf("store run: %w", err)
	}
	return nil
}
