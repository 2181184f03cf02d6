package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/cs-round-features/internal/report"
	"github.com/pable/cs-round-features/internal/storage"
)

var listRuns bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored matches",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().BoolVar(&listRuns, "runs", false, "list extract runs instead of matches")
}

func runList(cmd *cobra.Command, args []string) error {
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	if listRuns {
		runs, err := db.ListRuns()
		if err != nil {
			return fmt.Errorf("list runs: %w", err)
		}
		if len(runs) == 0 {
			fmt.Fprintln(os.Stdout, "No runs stored yet.")
			return nil
		}
		report.PrintRunTable(os.Stdout, runs)
		return nil
	}

	matches, err := db.ListMatches()
	if err != nil {
		return fmt.Errorf("list matches: %w", err)
	}
	if len(matches) == 0 {
		fmt.Fprintln(os.Stdout, "No matches stored yet. Run 'csfeatures extract <demo.dem>' to add one.")
		return nil
	}
	report.PrintMatchTable(os.Stdout, matches)
	return nil
}
