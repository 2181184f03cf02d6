package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pable/cs-round-features/internal/config"
	"github.com/pable/cs-round-features/internal/logger"
)

var (
	dbPath     string
	configPath string
	logLevel   string

	appConfig *config.Config
	appLogger logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "csfeatures",
	Short: "CS2 round-state feature extraction",
	Long: `Reconstruct per-round game state from CS2 recordings and derive a
validated table of round features for win-probability modelling.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute runs the root command. SIGINT and SIGTERM cancel the running command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	defaultDB := filepath.Join(mustUserHome(), ".csfeatures", "features.db")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDB, "path to SQLite database")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (default: $CSFEATURES_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides config)")

	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(roundsCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(dropCmd)
	rootCmd.AddCommand(sqlCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(shellCmd)
}

// setup loads the configuration and builds the logger shared by every command.
func setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cmd.Context(), configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	log, err := logger.New(os.Stderr, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	appConfig = cfg
	appLogger = log
	return nil
}

func ensureDBDir() error {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("create db dir: %w", err)
	}
	return nil
}

func mustUserHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
