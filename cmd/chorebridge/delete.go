package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/chorebridge/internal/batch"
)

var deleteAllCmd = &cobra.Command{
	Use:   "delete-all",
	Short: "Delete every chore visible to the configured user",
	Args:  cobra.NoArgs,
	RunE:  runDeleteAll,
}

var (
	deleteYes   bool
	deleteDelay time.Duration
)

func init() {
	rootCmd.AddCommand(deleteAllCmd)
	deleteAllCmd.Flags().BoolVar(&deleteYes, "yes", false, "confirm deletion")
	deleteAllCmd.Flags().DurationVar(&deleteDelay, "delay", batch.DefaultDelay, "pause between deletions")
}

func runDeleteAll(cmd *cobra.Command, args []string) error {
	if !deleteYes {
		return errors.New("refusing to delete without --yes")
	}
	_, logger, client, err := setup()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	s, err := batch.DeleteAll(cmd.Context(), client, logger, deleteDelay, progressPrinter(cmd.OutOrStdout(), "deleting"))
	if s != nil {
		if s.Total == 0 {
			fmt.Fprintln(out, "No chores to delete.")
			return err
		}
		printSummary(out, "Delete all", s)
		if s.Remaining > 0 {
			fmt.Fprintf(out, "  %s\n", warnStyle.Render(count(s.Remaining, "chore remains", "chores remain")))
		}
	}
	if err != nil {
		return err
	}
	if s.Failed() > 0 {
		return &exitError{code: 1, msg: s.Err().Error()}
	}
	return nil
}
