package batch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/dukerupert/chorebridge/internal/transform"
)

// Failure is one item that did not go through.
type Failure struct {
	Index int
	Name  string
	Err   error
}

func (f Failure) Error() string {
	if f.Name == "" {
		return fmt.Sprintf("#%d: %v", f.Index+1, f.Err)
	}
	return fmt.Sprintf("#%d %s: %v", f.Index+1, f.Name, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

// Summary reports what a batch run did.
type Summary struct {
	RunID     string
	Total     int
	Succeeded int
	Skipped   int // records past the limit
	Remaining int // delete-all only: chores still present afterwards
	Created   []int
	Failures  []Failure
	Warnings  []transform.MappingWarning
	Started   time.Time
	Finished  time.Time
}

func (s *Summary) Failed() int {
	return len(s.Failures)
}

func (s *Summary) Duration() time.Duration {
	return s.Finished.Sub(s.Started)
}

func (s *Summary) fail(index int, name string, err error) {
	s.Failures = append(s.Failures, Failure{Index: index, Name: name, Err: err})
}

// Err combines every per-item failure, or returns nil if there were none.
func (s *Summary) Err() error {
	var err error
	for _, f := range s.Failures {
		err = multierr.Append(err, f)
	}
	return err
}

// pause waits d between requests, returning early if ctx ends.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
