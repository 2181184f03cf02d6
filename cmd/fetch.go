package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pable/cs-round-features/internal/hltv"
	"github.com/pable/cs-round-features/internal/logger"
)

// fetch command flags.
var (
	// fetchEvent is the HLTV event id whose results page lists the matches.
	fetchEvent int
	// fetchOut is the directory demos are written to.
	fetchOut string
	// fetchMax caps the number of matches considered; 0 means all.
	fetchMax int
	// fetchExtract runs extract over the demos once downloaded.
	fetchExtract bool
)

// fetchCmd is the cobra command for downloading the demos of an HLTV event.
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the demos of an HLTV event",
	Long: `Lists the matches on an HLTV event's results page, finds each match's
GOTV demo and downloads it as <date>-<team1>-vs-<team2>-<map>.dem, decompressing
bz2, gz and zst archives. Demos already on disk are kept. Requests are spaced
two seconds apart.

With --extract the downloaded demos are passed to extract, using its defaults.

Example:
  csfeatures fetch --event-id 7902 --out demos/blast_austin_2025 --max 5 --extract`,
	Args: cobra.NoArgs,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().IntVar(&fetchEvent, "event-id", 0, "HLTV event id (required)")
	fetchCmd.Flags().StringVar(&fetchOut, "out", "demos", "directory to write demos to")
	fetchCmd.Flags().IntVar(&fetchMax, "max", 0, "maximum number of matches to download (0 = all)")
	fetchCmd.Flags().BoolVar(&fetchExtract, "extract", false, "extract features from the demos afterwards")
	_ = fetchCmd.MarkFlagRequired("event-id")
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := appLogger.Named("fetch").With(logger.Int("event_id", fetchEvent))

	if err := os.MkdirAll(fetchOut, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	client := hltv.NewClient()
	ids, err := client.EventMatches(ctx, fetchEvent)
	if err != nil {
		return err
	}
	if fetchMax > 0 && len(ids) > fetchMax {
		ids = ids[:fetchMax]
	}
	fmt.Printf("Found %d matches for event %d\n", len(ids), fetchEvent)

	var paths []string
	failed := 0
	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Printf("[%d/%d] match %s\n", i+1, len(ids), id)

		info, err := client.Match(ctx, id)
		if err != nil {
			if errors.Is(err, hltv.ErrNoDemo) {
				fmt.Printf("  [skip] no demo available\n")
			} else {
				fmt.Fprintf(os.Stderr, "  [error] %v\n", err)
			}
			log.Warn(ctx, "match skipped", logger.String("hltv_match", id), logger.Error(err))
			failed++
			continue
		}

		path := filepath.Join(fetchOut, info.Filename())
		if _, err := os.Stat(path); err == nil {
			fmt.Printf("  already downloaded: %s\n", path)
			paths = append(paths, path)
			continue
		}

		n, err := client.Download(ctx, info.DemoURL, path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  [error] %v\n", err)
			log.Error(ctx, "download failed", logger.String("hltv_match", id), logger.Error(err))
			failed++
			continue
		}
		fmt.Printf("  stored: %s (%.1f MB)\n", path, float64(n)/(1<<20))
		paths = append(paths, path)
	}

	fmt.Printf("\nDone: %d demos available, %d failed\n", len(paths), failed)

	if fetchExtract && len(paths) > 0 {
		return runExtract(cmd, paths)
	}
	return nil
}
