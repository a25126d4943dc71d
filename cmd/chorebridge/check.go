package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/chorebridge/internal/donetick"
	"github.com/dukerupert/chorebridge/internal/model"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Exercise every chore operation against the server with a throwaway chore",
	Args:  cobra.NoArgs,
	RunE:  runCheck,
}

var checkUserID int

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().IntVar(&checkUserID, "user-id", 0, "user to assign and complete as (default from config)")
}

type checkStep struct {
	name string
	run  func(ctx context.Context) (string, error)
}

// checker runs steps in order and keeps going after a failure, except
// when the throwaway chore could not be created.
type checker struct {
	w       io.Writer
	passed  int
	failed  int
	skipped int
}

func (c *checker) step(ctx context.Context, s checkStep) bool {
	start := time.Now()
	detail, err := s.run(ctx)
	elapsed := time.Since(start).Round(time.Millisecond)
	switch {
	case err == nil:
		c.passed++
		fmt.Fprintf(c.w, "  %s %s %s\n", okStyle.Render("ok  "), s.name, dimStyle.Render(fmt.Sprintf("%s (%s)", detail, elapsed)))
		return true
	case donetick.IsFeatureRestricted(err):
		c.skipped++
		fmt.Fprintf(c.w, "  %s %s %s\n", warnStyle.Render("skip"), s.name, dimStyle.Render("requires a paid plan"))
		return true
	default:
		c.failed++
		fmt.Fprintf(c.w, "  %s %s: %v\n", failStyle.Render("FAIL"), s.name, err)
		return false
	}
}

func rateText(rs donetick.RateStatus) string {
	if math.IsInf(rs.PerSecond, 1) {
		return "unlimited"
	}
	return fmt.Sprintf("%g/s, burst %d, %.1f tokens available", rs.PerSecond, rs.Burst, rs.Tokens)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, _, client, err := setup()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	userID := checkUserID
	if userID == 0 {
		userID = cfg.Donetick.TestUserID
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, headerStyle.Render("Checking "+cfg.Donetick.BaseURL))
	fmt.Fprintln(out, dimStyle.Render("rate limit: "+rateText(client.RateStatus())))
	c := &checker{w: out}

	c.step(ctx, checkStep{"authenticate", func(ctx context.Context) (string, error) {
		if err := client.Authenticate(ctx); err != nil {
			return "", err
		}
		return client.SessionState(), nil
	}})
	c.step(ctx, checkStep{"list chores", func(ctx context.Context) (string, error) {
		chores, err := client.ListChores(ctx, donetick.ListOptions{})
		return count(len(chores), "chore", "chores"), err
	}})
	c.step(ctx, checkStep{"circle members", func(ctx context.Context) (string, error) {
		members, err := client.GetCircleMembers(ctx)
		if err == nil && userID == 0 && len(members) > 0 {
			userID = members[0].UserID
		}
		return count(len(members), "member", "members"), err
	}})
	c.step(ctx, checkStep{"labels", func(ctx context.Context) (string, error) {
		labels, err := client.GetLabels(ctx)
		return count(len(labels), "label", "labels"), err
	}})

	var chore *model.Chore
	created := c.step(ctx, checkStep{"create chore", func(ctx context.Context) (string, error) {
		cc := model.NewChoreCreate(fmt.Sprintf("chorebridge check %s", time.Now().Format("2006-01-02 15:04:05")))
		cc.FrequencyType = model.FrequencyDaily
		cc.DueDate = time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
		cc.Description = "Created by chorebridge check. Safe to delete."
		var err error
		chore, err = client.CreateChore(ctx, cc)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("id %d", chore.ID), nil
	}})
	if !created || chore == nil {
		return &exitError{code: 1, msg: "could not create a chore to check with"}
	}
	id := chore.ID

	steps := []checkStep{
		{"get chore", func(ctx context.Context) (string, error) {
			ch, err := client.GetChore(ctx, id)
			if err != nil {
				return "", err
			}
			if ch == nil {
				return "", fmt.Errorf("chore %d not found", id)
			}
			return ch.Name, nil
		}},
		{"update name", func(ctx context.Context) (string, error) {
			name := chore.Name + " (updated)"
			ch, err := client.UpdateChore(ctx, id, model.ChoreUpdate{Name: &name})
			if err != nil {
				return "", err
			}
			return ch.Name, nil
		}},
		{"set priority", func(ctx context.Context) (string, error) {
			ch, err := client.UpdateChorePriority(ctx, id, 2)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("P%d", ch.Priority), nil
		}},
	}
	if userID > 0 {
		steps = append(steps, checkStep{"reassign", func(ctx context.Context) (string, error) {
			ch, err := client.UpdateChoreAssignee(ctx, id, userID)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("user %d", ch.AssignedTo), nil
		}})
	}
	steps = append(steps,
		checkStep{"skip", func(ctx context.Context) (string, error) {
			ch, err := client.SkipChore(ctx, id)
			if err != nil {
				return "", err
			}
			return "next due " + dueText(ch.NextDueDate), nil
		}},
		checkStep{"complete", func(ctx context.Context) (string, error) {
			ch, err := client.CompleteChore(ctx, id, userID)
			if err != nil {
				return "", err
			}
			return "next due " + dueText(ch.NextDueDate), nil
		}},
		checkStep{"delete", func(ctx context.Context) (string, error) {
			_, err := client.DeleteChore(ctx, id)
			return fmt.Sprintf("id %d", id), err
		}},
	)
	for _, s := range steps {
		c.step(ctx, s)
	}

	fmt.Fprintf(out, "%s passed, %s skipped, %s failed\n",
		okStyle.Render(fmt.Sprint(c.passed)), warnStyle.Render(fmt.Sprint(c.skipped)), failStyle.Render(fmt.Sprint(c.failed)))
	if c.failed > 0 {
		return &exitError{code: 1, msg: fmt.Sprintf("%d checks failed", c.failed)}
	}
	return nil
}
