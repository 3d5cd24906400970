// Package report formats the append-only sweep log: one header per
// run, a fixed-tag line per event, and a count summary footer.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"dirsweep/internal/config"
	"dirsweep/internal/sweep"
)

// Writer appends formatted sweep runs to a single destination
type Writer struct {
	out    io.Writer
	closer io.Closer
}

// NewWriter wraps an arbitrary destination (used by tests and stdout
// reporting)
func NewWriter(w io.Writer) *Writer {
	return &Writer{out: w}
}

// OpenFile opens the sweep log with rotation. A destination that
// cannot be opened is fatal here, before any traversal; rotation and
// later write failures are handled by lumberjack.
func OpenFile(cfg config.LogCfg) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	// Probe writability up front; lumberjack opens lazily and would
	// surface the failure only mid-run.
	probe, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open sweep log: %w", err)
	}
	probe.Close()

	lj := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	}
	return &Writer{out: lj, closer: lj}, nil
}

// Close releases the log destination. Safe on writers without one.
func (w *Writer) Close() error {
	if w.closer == nil {
		return nil
	}
	return w.closer.Close()
}

// WriteReport appends one complete run record: header, per-event
// lines in traversal order, footer
func (w *Writer) WriteReport(cfg sweep.Config, res *sweep.Result, start time.Time) error {
	var b strings.Builder

	b.WriteString("\n* * * dirsweep run - ")
	b.WriteString(start.Format("January 02, 2006, 15:04:05"))
	b.WriteString("\n")
	if cfg.DryRun {
		b.WriteString("Mode: dry run (no deletions performed)\n")
	} else {
		b.WriteString("Mode: live\n")
	}
	if cfg.Verbose && len(cfg.Excluded) > 0 {
		b.WriteString("Excluded directories:\n")
		for _, e := range cfg.Excluded {
			b.WriteString("  - ")
			b.WriteString(filepath.Join(cfg.Root, e))
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")

	for _, ev := range res.Events {
		b.WriteString(formatEvent(ev))
		b.WriteString("\n")
	}

	if len(res.Events) == 0 {
		b.WriteString("Nothing to delete.\n")
	} else {
		b.WriteString("\n")
		b.WriteString(footer(cfg, res))
		b.WriteString("\n")
	}

	_, err := io.WriteString(w.out, b.String())
	return err
}

func formatEvent(ev sweep.Event) string {
	switch ev.Kind {
	case sweep.EventFile:
		return fmt.Sprintf("[FILE] %s (last access: %s, age: %s)",
			ev.Path,
			ev.AccessTime.Format("2006-01-02 15:04:05"),
			countNoun(ev.AgeDays, "day", "days"),
		)
	case sweep.EventDir:
		return fmt.Sprintf("[DIR] %s", ev.Path)
	case sweep.EventExcluded:
		return fmt.Sprintf("[EXCLUDED] %s", ev.Path)
	case sweep.EventDeleteError:
		return fmt.Sprintf("[ERROR] delete %s: %s", ev.Path, ev.Err)
	case sweep.EventAccessError:
		return fmt.Sprintf("[ERROR] access %s: %s", ev.Path, ev.Err)
	}
	return fmt.Sprintf("[ERROR] unknown event for %s", ev.Path)
}

func footer(cfg sweep.Config, res *sweep.Result) string {
	var b strings.Builder

	if cfg.DryRun {
		files, dirs := res.Candidates()
		b.WriteString(fmt.Sprintf("Would delete %s and %s.",
			countNoun(files, "file", "files"),
			countNoun(dirs, "directory", "directories")))
	} else {
		b.WriteString(fmt.Sprintf("Deleted %s and %s.",
			countNoun(res.FilesDeleted, "file", "files"),
			countNoun(res.DirsDeleted, "directory", "directories")))
	}

	if n := res.ErrorCount(); n > 0 {
		b.WriteString(fmt.Sprintf(" %s encountered.", countNoun(n, "error", "errors")))
	}
	return b.String()
}

func countNoun(n int, singular, plural string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", singular)
	}
	return fmt.Sprintf("%d %s", n, plural)
}
