package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/chorebridge/internal/batch"
	"github.com/dukerupert/chorebridge/internal/transform"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Create chores from an import file",
	Long: `Create chores from a JSON import file with a top-level "chores" array.
Comments are allowed. Only the first --limit records are imported unless --all is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var (
	importLimit    int
	importAll      bool
	importDelay    time.Duration
	importTimezone string
)

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().IntVar(&importLimit, "limit", 5, "import at most this many records")
	importCmd.Flags().BoolVar(&importAll, "all", false, "import every record")
	importCmd.Flags().DurationVar(&importDelay, "delay", batch.DefaultDelay, "pause between records")
	importCmd.Flags().StringVar(&importTimezone, "timezone", "", "timezone for due times (default from config)")
	importCmd.MarkFlagsMutuallyExclusive("limit", "all")
}

func runImport(cmd *cobra.Command, args []string) error {
	if !importAll && importLimit < 1 {
		return fmt.Errorf("--limit must be at least 1, got %d (use --all to import every record)", importLimit)
	}
	cfg, logger, client, err := setup()
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	entries, err := transform.ParseFile(f)
	f.Close()
	if err != nil {
		return err
	}

	loc := cfg.Location()
	if importTimezone != "" {
		loc, err = time.LoadLocation(importTimezone)
		if err != nil {
			return fmt.Errorf("unknown timezone %q", importTimezone)
		}
	}

	opts := []batch.ImportOption{
		batch.WithDelay(importDelay),
		batch.WithLocation(loc),
		batch.WithProgress(progressPrinter(cmd.OutOrStdout(), "importing")),
	}
	if !importAll {
		opts = append(opts, batch.WithLimit(importLimit))
	}

	s, err := batch.NewImporter(client, logger, opts...).Run(cmd.Context(), entries)
	if s != nil {
		printSummary(cmd.OutOrStdout(), "Import", s)
	}
	if err != nil {
		return err
	}
	if s.Failed() > 0 {
		return &exitError{code: 1, msg: s.Err().Error()}
	}
	return nil
}
