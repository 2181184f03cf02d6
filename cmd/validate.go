package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/cs-round-features/internal/dataset"
	"github.com/pable/cs-round-features/internal/report"
)

var (
	validateReportOut string
	validateStrict    bool
)

var validateCmd = &cobra.Command{
	Use:   "validate <features.csv>",
	Short: "Re-run the consistency checks over a feature table",
	Long: `Reads a feature table written by extract or export, runs every check on
each match again with the configured limits, and prints the results. Flags
already present in the file are ignored.

With --strict the command fails when any error-severity check fails.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validateReportOut, "report-out", "", "write the validation report as YAML to this path")
	validateCmd.Flags().BoolVar(&validateStrict, "strict", false, "exit non-zero when any row is invalid")
}

func runValidate(cmd *cobra.Command, args []string) error {
	ds, err := dataset.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read features: %w", err)
	}

	tables := dataset.Revalidate(ds, appConfig.Limits())
	for _, t := range tables {
		rep := t.Table.Report
		fmt.Fprintf(os.Stdout, "\nMatch %s: %d/%d rounds valid, %d error(s), %d warning(s)\n",
			report.ShortID(t.MatchID), rep.ValidRounds, rep.TotalRounds, rep.Errors, rep.Warnings)
		report.PrintCheckTable(os.Stdout, rep.Checks)
	}

	doc := report.NewValidationDocument(tables)
	fmt.Fprintf(os.Stdout, "\n%d/%d rows valid across %d matches\n", doc.ValidRows, doc.TotalRows, len(tables))

	if validateReportOut != "" {
		if err := report.WriteYAMLFile(validateReportOut, doc); err != nil {
			return fmt.Errorf("write validation report: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Validation report written to %s\n", validateReportOut)
	}
	if validateStrict && doc.ValidRows < doc.TotalRows {
		return fmt.Errorf("%d invalid rows", doc.TotalRows-doc.ValidRows)
	}
	return nil
}
