package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/cs-round-features/internal/parser"
)

var dumpOut string

// dumpCmd writes a demo's raw records as JSON lines.
var dumpCmd = &cobra.Command{
	Use:   "dump <demo.dem>",
	Short: "Decode a demo into a JSON-lines record dump",
	Long: `Decodes a demo and writes its raw records, one JSON object per line. The
dump can be fed back to extract, edited by hand, or produced by another
decoder in the same format.`,
	Args: cobra.ExactArgs(1),
	RunE: runDump,
}

func init() {
	dumpCmd.Flags().StringVar(&dumpOut, "out", "", "output file path (default: stdout)")
}

func runDump(cmd *cobra.Command, args []string) error {
	raw, err := parser.ParseDemo(cmd.Context(), args[0], appConfig.SampleInterval())
	if err != nil {
		return err
	}

	w := os.Stdout
	if dumpOut != "" {
		f, err := os.Create(dumpOut)
		if err != nil {
			return fmt.Errorf("create %s: %w", dumpOut, err)
		}
		defer f.Close()
		w = f
	}
	if err := parser.WriteJSONL(w, raw); err != nil {
		return err
	}
	if dumpOut != "" {
		fmt.Fprintf(os.Stderr, "%d records written to %s\n", len(raw.Records), dumpOut)
	}
	return nil
}
