package batch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/chorebridge/internal/donetick"
	"github.com/dukerupert/chorebridge/internal/model"
)

// ChoreDeleter is the part of the client delete-all needs.
type ChoreDeleter interface {
	ListChores(ctx context.Context, opts donetick.ListOptions) ([]model.Chore, error)
	DeleteChore(ctx context.Context, id int) (bool, error)
}

// DeleteAll removes every chore visible to the client, one at a time, then
// lists again to report what is left.
func DeleteAll(ctx context.Context, client ChoreDeleter, logger *slog.Logger, delay time.Duration, progress ProgressFunc) (*Summary, error) {
	s := &Summary{RunID: uuid.NewString(), Started: time.Now()}
	defer func() { s.Finished = time.Now() }()
	logger = logger.With("component", "delete-all", "run_id", s.RunID)

	chores, err := client.ListChores(ctx, donetick.ListOptions{})
	if err != nil {
		return s, fmt.Errorf("list chores: %w", err)
	}
	s.Total = len(chores)
	if s.Total == 0 {
		logger.Info("no chores to delete")
		return s, nil
	}

	for i, ch := range chores {
		if i > 0 {
			if err := pause(ctx, delay); err != nil {
				return s, err
			}
		}
		if progress != nil {
			progress(i+1, s.Total, ch.Name)
		}

		_, err := client.DeleteChore(ctx, ch.ID)
		switch {
		case err == nil:
			s.Succeeded++
			logger.Debug("deleted chore", "chore_id", ch.ID, "name", ch.Name)
		case donetick.IsNotFound(err):
			// Already gone; the goal state holds.
			s.Succeeded++
			logger.Debug("chore already deleted", "chore_id", ch.ID)
		case donetick.IsAuthentication(err) || ctx.Err() != nil:
			s.fail(i, ch.Name, err)
			return s, err
		default:
			logger.Error("could not delete chore", "chore_id", ch.ID, "name", ch.Name, "error", err)
			s.fail(i, ch.Name, err)
		}
	}

	left, err := client.ListChores(ctx, donetick.ListOptions{})
	if err != nil {
		return s, fmt.Errorf("verify: %w", err)
	}
	s.Remaining = len(left)
	if s.Remaining > 0 {
		logger.Warn("chores remain after delete-all", "remaining", s.Remaining)
	}
	return s, nil
}
