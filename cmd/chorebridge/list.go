package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/dukerupert/chorebridge/internal/chore"
	"github.com/dukerupert/chorebridge/internal/donetick"
	"github.com/dukerupert/chorebridge/internal/recurrence"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List chores",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var (
	listActive     bool
	listAssignedTo int
	listJSON       bool
	listDue        bool
)

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listActive, "active", false, "only active chores")
	listCmd.Flags().IntVar(&listAssignedTo, "assigned-to", 0, "only chores assigned to this user ID")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "print JSON")
	listCmd.Flags().BoolVar(&listDue, "due", false, "only chores that are overdue or due today")
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, _, client, err := setup()
	if err != nil {
		return err
	}

	opts := donetick.ListOptions{AssignedTo: listAssignedTo}
	if listActive {
		active := true
		opts.Active = &active
	}
	chores, err := client.ListChores(cmd.Context(), opts)
	if err != nil {
		return err
	}

	now, loc := time.Now(), cfg.Location()
	if listDue {
		chores = chore.Filter(chores, now, loc, chore.StatusOverdue, chore.StatusDueToday)
	}

	out := cmd.OutOrStdout()
	if listJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(chores)
	}

	if len(chores) == 0 {
		fmt.Fprintln(out, "No chores.")
		return nil
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		Headers("ID", "NAME", "SCHEDULE", "DUE", "STATUS", "ASSIGNEE", "PRIORITY").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	for _, c := range chores {
		prio := "-"
		if c.Priority > 0 {
			prio = fmt.Sprintf("P%d", c.Priority)
		}
		t.Row(
			strconv.Itoa(c.ID),
			truncate(c.Name, 40),
			recurrence.Describe(recurrence.ScheduleOf(c)),
			dueText(c.NextDueDate),
			string(chore.ComputeStatus(c, now, loc)),
			strconv.Itoa(c.AssignedTo),
			prio,
		)
	}
	fmt.Fprintln(out, t)
	fmt.Fprintln(out, dimStyle.Render(count(len(chores), "chore", "chores")))
	return nil
}
