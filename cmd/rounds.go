package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pable/cs-round-features/internal/model"
	"github.com/pable/cs-round-features/internal/report"
	"github.com/pable/cs-round-features/internal/storage"
	"github.com/pable/cs-round-features/internal/validate"
)

var (
	roundsInvalid bool
	roundsWinner  string
	roundsHalf    int
)

// roundsCmd is the cobra command for the per-round feature drill-down of one match.
var roundsCmd = &cobra.Command{
	Use:   "rounds <match-prefix>",
	Short: "Per-round features of one match",
	Args:  cobra.ExactArgs(1),
	RunE:  runRounds,
}

func init() {
	roundsCmd.Flags().BoolVar(&roundsInvalid, "invalid", false, "only show rounds that failed a check")
	roundsCmd.Flags().StringVar(&roundsWinner, "winner", "", "filter by winning side: CT or T")
	roundsCmd.Flags().IntVar(&roundsHalf, "half", -1, "filter by half index (0 = first half)")
}

// filterRounds applies --invalid, --winner and --half.
func filterRounds(rows []validate.Row, invalid bool, winner string, half int) ([]validate.Row, error) {
	side := model.SideUnknown
	if winner != "" {
		s, err := model.ParseSide(strings.TrimSpace(winner))
		if err != nil {
			return nil, fmt.Errorf("--winner: %w", err)
		}
		side = s
	}
	var out []validate.Row
	for _, r := range rows {
		if invalid && r.Valid {
			continue
		}
		if side != model.SideUnknown && r.RoundWinner != side {
			continue
		}
		if half >= 0 && r.HalfIndex != half {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// runRounds loads the rows of a match and prints the drill-down table.
func runRounds(cmd *cobra.Command, args []string) error {
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	match, err := findMatch(db, args[0])
	if err != nil || match == nil {
		return err
	}

	rows, err := db.GetFeatureRows(match.MatchID)
	if err != nil {
		return fmt.Errorf("get feature rows: %w", err)
	}
	rows, err = filterRounds(rows, roundsInvalid, roundsWinner, roundsHalf)
	if err != nil {
		return err
	}

	report.PrintMatchSummary(os.Stdout, *match)
	if len(rows) == 0 {
		fmt.Fprintln(os.Stdout, "No rounds match the filters.")
		return nil
	}
	report.PrintRoundTable(os.Stdout, rows)
	return nil
}
