package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/cs-round-features/internal/dataset"
	"github.com/pable/cs-round-features/internal/storage"
)

var (
	exportOut       string
	exportValidOnly bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every stored feature row as CSV",
	Long: `Writes the rows of every stored match as one feature table, matches
ordered by id and rounds by number. The is_valid column carries the outcome
of the error-severity checks.

Example:
  csfeatures export --out features.csv
  csfeatures export --valid-only > train.csv`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file path (default: stdout)")
	exportCmd.Flags().BoolVar(&exportValidOnly, "valid-only", false, "leave out rows that failed an error-severity check")
}

func runExport(_ *cobra.Command, _ []string) error {
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	ds, err := db.Dataset()
	if err != nil {
		return fmt.Errorf("load features: %w", err)
	}
	if exportValidOnly {
		rows := ds.Rows[:0]
		for _, r := range ds.Rows {
			if r.Valid {
				rows = append(rows, r)
			}
		}
		ds.Rows = rows
	}

	if exportOut == "" {
		return dataset.WriteCSV(os.Stdout, ds)
	}
	if err := dataset.WriteFile(exportOut, ds); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "%d rows from %d matches written to %s\n", len(ds.Rows), len(ds.Matches), exportOut)
	return nil
}
