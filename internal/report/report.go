package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/pable/cs-round-features/internal/pipeline"
	"github.com/pable/cs-round-features/internal/storage"
	"github.com/pable/cs-round-features/internal/validate"
)

// ShortID trims a match id for display.
func ShortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignRight},
		},
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
	}))
}

// PrintMatchSummary prints a one-line summary header for the match.
func PrintMatchSummary(w io.Writer, m storage.Match) {
	fmt.Fprintf(w, "\nMap: %s  |  Rounds: %d (%d valid)  |  Skipped: %d  |  Dropped records: %d  |  Match: %s\n\n",
		m.MapName, m.Rounds, m.ValidRounds, m.SkippedRounds, m.DroppedRecords, ShortID(m.MatchID))
}

// PrintMatchTable lists stored matches.
func PrintMatchTable(w io.Writer, matches []storage.Match) {
	table := newTable(w)
	table.Header("MATCH", "MAP", "ROUNDS", "VALID", "SKIPPED", "DROPPED", "ERRORS", "WARNINGS", "PROCESSED", "SOURCE")
	for _, m := range matches {
		table.Append(
			ShortID(m.MatchID),
			m.MapName,
			strconv.Itoa(m.Rounds),
			strconv.Itoa(m.ValidRounds),
			strconv.Itoa(m.SkippedRounds),
			strconv.Itoa(m.DroppedRecords),
			strconv.Itoa(m.Errors),
			strconv.Itoa(m.Warnings),
			m.ProcessedAt.Format("2006-01-02 15:04"),
			m.Source,
		)
	}
	table.Render()
}

// PrintRunTable lists extract runs.
func PrintRunTable(w io.Writer, runs []storage.Run) {
	table := newTable(w)
	table.Header("RUN", "STARTED", "TOOK", "SOURCES", "ACCEPTED", "REJECTED", "ROWS", "VALID")
	for _, r := range runs {
		table.Append(
			r.ID,
			r.StartedAt.Format("2006-01-02 15:04:05"),
			r.FinishedAt.Sub(r.StartedAt).String(),
			strconv.Itoa(r.Sources),
			strconv.Itoa(r.Accepted),
			strconv.Itoa(r.Rejected),
			strconv.Itoa(r.Rows),
			strconv.Itoa(r.ValidRows),
		)
	}
	table.Render()
}

// PrintRoundTable prints the main features of each round. Invalid rows show
// the checks they failed.
func PrintRoundTable(w io.Writer, rows []validate.Row) {
	table := newTable(w)
	table.Header(
		"RND", "HALF", "CT", "T", "SCORE", "CT_$", "T_$", "CT_EQ", "T_EQ",
		"CT_AWP", "T_AWP", "CT_RIFLE", "T_RIFLE", "CT_UTIL", "T_UTIL",
		"CT_STREAK", "T_STREAK", "WINNER", "VALID",
	)
	for _, r := range rows {
		valid := "yes"
		if !r.Valid {
			valid = strings.Join(r.Failed, ",")
		}
		table.Append(
			strconv.Itoa(r.RoundNum),
			strconv.Itoa(r.HalfIndex),
			string(r.CTTeam),
			string(r.TTeam),
			fmt.Sprintf("%d-%d", r.CTScore, r.TScore),
			strconv.Itoa(r.CTMoneyTotal),
			strconv.Itoa(r.TMoneyTotal),
			strconv.Itoa(r.CTEquipmentValue),
			strconv.Itoa(r.TEquipmentValue),
			strconv.Itoa(r.CTAWPCount),
			strconv.Itoa(r.TAWPCount),
			strconv.Itoa(r.CTRifleCount),
			strconv.Itoa(r.TRifleCount),
			strconv.Itoa(r.CTUtilityValue),
			strconv.Itoa(r.TUtilityValue),
			streak(r.CTRoundsWonStreak, r.CTRoundsLostStreak),
			streak(r.TRoundsWonStreak, r.TRoundsLostStreak),
			r.RoundWinner.String(),
			valid,
		)
	}
	table.Render()
}

// streak renders "W3", "L2" or "—".
func streak(won, lost int) string {
	switch {
	case won > 0:
		return fmt.Sprintf("W%d", won)
	case lost > 0:
		return fmt.Sprintf("L%d", lost)
	default:
		return "—"
	}
}

// PrintCheckTable prints one line per validation check.
func PrintCheckTable(w io.Writer, checks []validate.CheckResult) {
	table := newTable(w)
	table.Header("CHECK", "SEVERITY", "RESULT", "FAILURES", "ROUNDS")
	for _, c := range checks {
		result := "pass"
		if !c.Passed {
			result = "FAIL"
		}
		table.Append(c.Name, string(c.Severity), result, strconv.Itoa(c.Failures), joinRounds(c.Rounds))
	}
	table.Render()
}

func joinRounds(rounds []int) string {
	if len(rounds) == 0 {
		return "—"
	}
	parts := make([]string, len(rounds))
	for i, n := range rounds {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

// PrintBatch prints one line per accepted match, then the rejected sources.
func PrintBatch(w io.Writer, b *pipeline.Batch) {
	table := newTable(w)
	table.Header("MATCH", "MAP", "ROWS", "VALID", "ERRORS", "WARNINGS", "SKIPPED", "DROPPED", "TOOK")
	for _, r := range b.Results {
		rep := r.Table.Report
		table.Append(
			ShortID(r.MatchID),
			r.MapName,
			strconv.Itoa(len(r.Table.Rows)),
			strconv.Itoa(rep.ValidRounds),
			strconv.Itoa(rep.Errors),
			strconv.Itoa(rep.Warnings),
			strconv.Itoa(len(r.Skipped)),
			strconv.Itoa(len(r.Dropped)),
			r.Duration.Round(time.Millisecond).String(),
		)
	}
	table.Render()

	if len(b.Rejected) > 0 {
		fmt.Fprintf(w, "\nRejected (%d):\n", len(b.Rejected))
		for _, rj := range b.Rejected {
			fmt.Fprintf(w, "  %s: %v\n", rj.Source, rj.Err)
		}
	}
	fmt.Fprintf(w, "\n%d rows from %d matches, %d valid\n",
		len(b.Dataset.Rows), len(b.Dataset.Matches), b.Dataset.ValidRows())
}

// PrintRawTable prints the result of an ad-hoc query.
func PrintRawTable(w io.Writer, cols []string, rows [][]string) {
	table := newTable(w)
	header := make([]any, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	table.Header(header...)
	for _, row := range rows {
		cells := make([]any, len(row))
		for i, v := range row {
			cells[i] = v
		}
		table.Append(cells...)
	}
	table.Render()
	fmt.Fprintf(w, "\n(%d rows)\n", len(rows))
}
