package cmd

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/pable/cs-round-features/internal/storage"
)

// summaryCmd is the cobra command for displaying a high-level database overview.
var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show a high-level overview of the database",
	Long: `Display aggregate statistics about everything stored in the database:
run and match counts, date range, valid row share and a per-map breakdown of
round winners.`,
	Args: cobra.NoArgs,
	RunE: runSummary,
}

func runSummary(cmd *cobra.Command, args []string) error {
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()
	return printSummary(db)
}

func printSummary(db *storage.DB) error {
	ov, err := db.GetOverview()
	if err != nil {
		return fmt.Errorf("get overview: %w", err)
	}
	if ov.Matches == 0 {
		fmt.Fprintln(os.Stdout, "No matches stored yet. Run 'csfeatures extract <demo.dem>' to add one.")
		return nil
	}

	validPct := 100.0 * float64(ov.ValidRows) / float64(max(ov.Rows, 1))
	fmt.Fprintf(os.Stdout, "\n=== Database Summary ===\n\n")
	fmt.Fprintf(os.Stdout, "  Runs           : %d\n", ov.Runs)
	fmt.Fprintf(os.Stdout, "  Matches stored : %d\n", ov.Matches)
	fmt.Fprintf(os.Stdout, "  Processed      : %s → %s\n", ov.Earliest, ov.Latest)
	fmt.Fprintf(os.Stdout, "  Feature rows   : %d (%.1f%% valid)\n", ov.Rows, validPct)
	fmt.Fprintf(os.Stdout, "  Skipped rounds : %d\n", ov.SkippedRounds)

	maps, err := db.GetMapStats()
	if err != nil {
		return fmt.Errorf("get map stats: %w", err)
	}
	fmt.Fprintf(os.Stdout, "\n--- Maps ---\n\n")
	mt := tablewriter.NewTable(os.Stdout, tablewriter.WithConfig(tablewriter.Config{
		Row:    tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignRight}},
		Header: tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignCenter}},
	}))
	mt.Header("MAP", "MATCHES", "ROUNDS", "CT WINS", "T WINS", "CT WIN%")
	for _, m := range maps {
		ctPct := 0.0
		if total := m.CTWins + m.TWins; total > 0 {
			ctPct = 100.0 * float64(m.CTWins) / float64(total)
		}
		mt.Append(
			m.MapName,
			fmt.Sprintf("%d", m.Matches),
			fmt.Sprintf("%d", m.Rounds),
			fmt.Sprintf("%d", m.CTWins),
			fmt.Sprintf("%d", m.TWins),
			fmt.Sprintf("%.0f%%", ctPct),
		)
	}
	mt.Render()
	return nil
}
