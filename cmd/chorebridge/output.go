package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/dukerupert/chorebridge/internal/batch"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	dimStyle    = lipgloss.NewStyle().Faint(true)
)

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// progressPrinter returns a progress callback that rewrites one line on a
// terminal, or nil when w is not one.
func progressPrinter(w io.Writer, verb string) batch.ProgressFunc {
	if !isTerminal(w) {
		return nil
	}
	return func(n, total int, name string) {
		fmt.Fprintf(w, "\r\033[K%s %d/%d %s", verb, n, total, name)
		if n == total {
			fmt.Fprintln(w)
		}
	}
}

func count(n int, singular, plural string) string {
	if n == 1 {
		return "1 " + singular
	}
	return humanize.Comma(int64(n)) + " " + plural
}

func printSummary(w io.Writer, title string, s *batch.Summary) {
	fmt.Fprintln(w, headerStyle.Render(title))
	fmt.Fprintf(w, "  %s of %s in %s\n",
		okStyle.Render(count(s.Succeeded, "succeeded", "succeeded")),
		humanize.Comma(int64(s.Total)),
		s.Duration().Round(time.Millisecond))
	if s.Skipped > 0 {
		fmt.Fprintf(w, "  %s past the limit (use --all to import everything)\n", dimStyle.Render(count(s.Skipped, "record", "records")))
	}
	if n := s.Failed(); n > 0 {
		fmt.Fprintf(w, "  %s\n", failStyle.Render(count(n, "failure", "failures")))
		for _, f := range s.Failures {
			fmt.Fprintf(w, "    %s\n", f.Error())
		}
	}
	if len(s.Warnings) > 0 {
		fmt.Fprintf(w, "  %s\n", warnStyle.Render(count(len(s.Warnings), "warning", "warnings")))
		for _, wn := range s.Warnings {
			fmt.Fprintf(w, "    %s\n", wn.String())
		}
	}
	if s.RunID != "" {
		fmt.Fprintf(w, "  %s\n", dimStyle.Render("run "+s.RunID))
	}
}

func dueText(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return humanize.Time(*t)
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
