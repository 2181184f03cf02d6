package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pable/cs-round-features/internal/report"
	"github.com/pable/cs-round-features/internal/storage"
)

var (
	cPrompt   = color.New(color.FgCyan, color.Bold)
	cMuted    = color.New(color.Faint)
	cError    = color.New(color.FgRed, color.Bold)
	cWarn     = color.New(color.FgYellow)
	cCmd      = color.New(color.FgYellow, color.Bold)
	cGreeting = color.New(color.Bold)
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive REPL session",
	Long:  "Open a persistent session against the feature database. Type 'help' for available commands.",
	Args:  cobra.NoArgs,
	RunE:  runShell,
}

func runShell(_ *cobra.Command, _ []string) error {
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	cGreeting.Println("csfeatures shell")
	cMuted.Println("type 'help' or 'exit'")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		cPrompt.Print("csfeatures")
		cMuted.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if quit := shellDispatch(db, line); quit {
			return nil
		}
	}
	return scanner.Err()
}

// shellDispatch runs one input line. It reports whether the session should end.
func shellDispatch(db *storage.DB, line string) bool {
	tokens := strings.Fields(line)
	name, args := tokens[0], tokens[1:]

	var err error
	switch name {
	case "exit", "quit":
		return true
	case "help":
		shellHelp()
	case "list":
		err = shellList(db)
	case "summary":
		err = printSummary(db)
	case "show":
		if len(args) == 0 {
			cError.Fprintln(os.Stderr, "usage: show <match-prefix>")
			return false
		}
		err = shellShow(db, args[0])
	case "rounds":
		if len(args) == 0 {
			cError.Fprintln(os.Stderr, "usage: rounds <match-prefix> [--invalid] [--winner CT|T] [--half N]")
			return false
		}
		err = shellRounds(db, args)
	case "sql":
		err = shellSQL(db, strings.TrimSpace(strings.TrimPrefix(line, name)))
	default:
		cWarn.Fprintf(os.Stderr, "unknown command %q, type 'help'\n", name)
	}
	if err != nil {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
	}
	return false
}

func shellHelp() {
	fmt.Println()
	type entry struct{ cmd, desc string }
	rows := []entry{
		{"list", "list all stored matches"},
		{"summary", "database overview"},
		{"show <match-prefix>", "show a match's validation results"},
		{"rounds <match-prefix> [--invalid]", "per-round features of a match"},
		{"  [--winner CT|T] [--half N]", "filter rounds"},
		{"sql <query>", "run a raw SQL query"},
		{"help", "show this message"},
		{"exit / quit", "close the session"},
	}
	for _, r := range rows {
		fmt.Print("  ")
		cCmd.Printf("%-38s", r.cmd)
		fmt.Println(r.desc)
	}
	fmt.Println()
}

func shellList(db *storage.DB) error {
	matches, err := db.ListMatches()
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		cMuted.Println("No matches stored yet.")
		return nil
	}
	report.PrintMatchTable(os.Stdout, matches)
	return nil
}

func shellShow(db *storage.DB, prefix string) error {
	match, err := findMatch(db, prefix)
	if err != nil || match == nil {
		return err
	}
	checks, err := db.GetValidationChecks(match.MatchID)
	if err != nil {
		return err
	}
	report.PrintMatchSummary(os.Stdout, *match)
	report.PrintCheckTable(os.Stdout, checks)
	return nil
}

// parseRoundsArgs reads the rounds filters from shell tokens.
func parseRoundsArgs(args []string) (prefix string, invalid bool, winner string, half int, err error) {
	half = -1
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--invalid":
			invalid = true
		case "--winner", "--half":
			if i+1 >= len(args) {
				return "", false, "", 0, fmt.Errorf("%s needs a value", args[i])
			}
			if args[i] == "--winner" {
				winner = args[i+1]
			} else if half, err = strconv.Atoi(args[i+1]); err != nil {
				return "", false, "", 0, fmt.Errorf("--half: %w", err)
			}
			i++
		default:
			if prefix != "" {
				return "", false, "", 0, fmt.Errorf("unexpected argument %q", args[i])
			}
			prefix = args[i]
		}
	}
	if prefix == "" {
		return "", false, "", 0, fmt.Errorf("missing match prefix")
	}
	return prefix, invalid, winner, half, nil
}

func shellRounds(db *storage.DB, args []string) error {
	prefix, invalid, winner, half, err := parseRoundsArgs(args)
	if err != nil {
		return err
	}
	match, err := findMatch(db, prefix)
	if err != nil || match == nil {
		return err
	}
	rows, err := db.GetFeatureRows(match.MatchID)
	if err != nil {
		return err
	}
	if rows, err = filterRounds(rows, invalid, winner, half); err != nil {
		return err
	}
	report.PrintMatchSummary(os.Stdout, *match)
	if len(rows) == 0 {
		cMuted.Println("No rounds match the filters.")
		return nil
	}
	report.PrintRoundTable(os.Stdout, rows)
	return nil
}

func shellSQL(db *storage.DB, query string) error {
	if query == "" {
		return fmt.Errorf("usage: sql <query>")
	}
	cols, rows, err := db.QueryRaw(query)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		cMuted.Println("(no rows)")
		return nil
	}
	report.PrintRawTable(os.Stdout, cols, rows)
	return nil
}
