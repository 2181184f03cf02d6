package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/cs-round-features/internal/report"
	"github.com/pable/cs-round-features/internal/storage"
)

var showCmd = &cobra.Command{
	Use:   "show <match-prefix>",
	Short: "Show a stored match and its validation results",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	match, err := findMatch(db, args[0])
	if err != nil || match == nil {
		return err
	}

	checks, err := db.GetValidationChecks(match.MatchID)
	if err != nil {
		return fmt.Errorf("get validation checks: %w", err)
	}

	report.PrintMatchSummary(os.Stdout, *match)
	report.PrintCheckTable(os.Stdout, checks)
	return nil
}

// findMatch resolves a match id prefix. A miss is reported on stderr and
// yields a nil match.
func findMatch(db *storage.DB, prefix string) (*storage.Match, error) {
	match, err := db.GetMatchByPrefix(prefix)
	if err != nil {
		return nil, fmt.Errorf("query match: %w", err)
	}
	if match == nil {
		fmt.Fprintf(os.Stderr, "No match found with id prefix %q\n", prefix)
	}
	return match, nil
}
