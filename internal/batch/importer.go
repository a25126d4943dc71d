package batch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/chorebridge/internal/donetick"
	"github.com/dukerupert/chorebridge/internal/model"
	"github.com/dukerupert/chorebridge/internal/transform"
)

// DefaultDelay is the pause between requests in a batch.
const DefaultDelay = 100 * time.Millisecond

// ChoreCreator is the part of the client the importer needs.
type ChoreCreator interface {
	CreateChore(ctx context.Context, cc model.ChoreCreate) (*model.Chore, error)
	GetCircleMembers(ctx context.Context) ([]model.CircleMember, error)
	GetLabels(ctx context.Context) ([]model.Label, error)
}

// ProgressFunc is called before each item is processed.
type ProgressFunc func(n, total int, name string)

// Importer creates chores from parsed import file entries, one at a time.
type Importer struct {
	client   ChoreCreator
	logger   *slog.Logger
	loc      *time.Location
	delay    time.Duration
	limit    int
	now      func() time.Time
	progress ProgressFunc
}

type ImportOption func(*Importer)

// WithLimit caps the number of records imported. Zero means no cap.
func WithLimit(n int) ImportOption {
	return func(im *Importer) { im.limit = n }
}

func WithDelay(d time.Duration) ImportOption {
	return func(im *Importer) { im.delay = d }
}

func WithLocation(loc *time.Location) ImportOption {
	return func(im *Importer) { im.loc = loc }
}

func WithClock(now func() time.Time) ImportOption {
	return func(im *Importer) { im.now = now }
}

func WithProgress(fn ProgressFunc) ImportOption {
	return func(im *Importer) { im.progress = fn }
}

func NewImporter(client ChoreCreator, logger *slog.Logger, opts ...ImportOption) *Importer {
	im := &Importer{
		client: client,
		logger: logger.With("component", "importer"),
		loc:    time.UTC,
		delay:  DefaultDelay,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// lookups loads circle members and labels. Failures other than
// authentication leave the table empty so the import still runs.
func (im *Importer) lookups(ctx context.Context) ([]model.CircleMember, []model.Label, error) {
	members, err := im.client.GetCircleMembers(ctx)
	if err != nil {
		if donetick.IsAuthentication(err) {
			return nil, nil, err
		}
		im.logger.Warn("could not load circle members, assignees will be dropped", "error", err)
		members = nil
	}
	for _, m := range members {
		im.logger.Debug("mapped user", "name", m.Name(), "user_id", m.UserID)
	}

	labels, err := im.client.GetLabels(ctx)
	if err != nil {
		if donetick.IsAuthentication(err) {
			return nil, nil, err
		}
		im.logger.Warn("could not load labels, label references will be dropped", "error", err)
		labels = nil
	}
	im.logger.Info("loaded lookups", "users", len(members), "labels", len(labels))
	return members, labels, nil
}

// Run imports entries in order. A failed record is recorded and the run
// continues; an authentication failure or a canceled context stops it.
func (im *Importer) Run(ctx context.Context, entries []transform.Entry) (*Summary, error) {
	s := &Summary{RunID: uuid.NewString(), Started: time.Now()}
	defer func() { s.Finished = time.Now() }()

	todo := entries
	if im.limit > 0 && len(todo) > im.limit {
		s.Skipped = len(todo) - im.limit
		todo = todo[:im.limit]
	}
	s.Total = len(todo)
	if s.Total == 0 {
		return s, nil
	}

	logger := im.logger.With("run_id", s.RunID)

	members, labels, err := im.lookups(ctx)
	if err != nil {
		return s, fmt.Errorf("load lookups: %w", err)
	}
	tr := transform.New(members, labels, im.loc)
	tr.Now = im.now

	for i, e := range todo {
		if i > 0 {
			if err := pause(ctx, im.delay); err != nil {
				return s, err
			}
		}
		if im.progress != nil {
			im.progress(i+1, s.Total, e.Name)
		}

		if e.Err != nil {
			logger.Error("could not parse record", "index", e.Index, "name", e.Name, "error", e.Err)
			s.fail(e.Index, e.Name, e.Err)
			continue
		}

		cc, warnings, err := tr.Transform(e.Record)
		s.Warnings = append(s.Warnings, warnings...)
		for _, w := range warnings {
			logger.Warn("mapping", "chore", w.Chore, "field", w.Field, "value", w.Value, "reason", w.Message)
		}
		if err != nil {
			logger.Error("could not transform record", "index", e.Index, "name", e.Name, "error", err)
			s.fail(e.Index, e.Name, err)
			continue
		}

		created, err := im.client.CreateChore(ctx, cc)
		if err != nil {
			if donetick.IsAuthentication(err) || ctx.Err() != nil {
				s.fail(e.Index, e.Name, err)
				return s, err
			}
			logger.Error("could not create chore", "name", cc.Name, "error", err)
			s.fail(e.Index, e.Name, err)
			continue
		}
		s.Succeeded++
		s.Created = append(s.Created, created.ID)
		logger.Info("created chore", "chore_id", created.ID, "name", created.Name, "subtasks", len(created.SubTasks))
	}
	return s, nil
}
