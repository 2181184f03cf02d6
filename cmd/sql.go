package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pable/cs-round-features/internal/report"
	"github.com/pable/cs-round-features/internal/storage"
)

var sqlCmd = &cobra.Command{
	Use:   "sql <query>",
	Short: "Run a raw SQL query against the feature database",
	Long: `Run an arbitrary SQL query against the feature database and print results as a table.

Schema overview:
  runs(id, started_at, finished_at, sources, accepted, rejected, row_count, valid_rows)
  matches(match_id, run_id, map_name, source, rounds, valid_rounds, skipped_rounds,
    dropped_records, errors, warnings, duration_ms, processed_at)
  round_features(match_id, round_num, half_index, ct_team, t_team, map_name,
    ct_score, t_score, ct_money_total, ..., round_winner, is_valid, failed_checks)
  validation_checks(match_id, check_name, description, severity, passed, failures, rounds)

Example:
  csfeatures sql "SELECT round_winner, AVG(ct_equipment_value) FROM round_features GROUP BY 1"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSQL,
}

func runSQL(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	cols, rows, err := db.QueryRaw(query)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("(no rows)")
		return nil
	}

	report.PrintRawTable(os.Stdout, cols, rows)
	return nil
}
