// dirsweep-query inspects the SQLite sweep history written by dirsweep.
package main

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"dirsweep/internal/exitcodes"
	"dirsweep/internal/history"
)

func main() {
	dbPath := flag.String("db", "/var/lib/dirsweep/history.db", "Path to the sweep history database")
	limit := flag.Int("limit", 20, "Maximum rows to print")
	action := flag.String("action", "", "Filter events by action (FILE, DIR, EXCLUDED, DELETE_ERROR, ACCESS_ERROR)")
	runs := flag.Bool("runs", false, "List run summaries instead of events")
	runID := flag.Int64("run", 0, "Print all events of one run, in traversal order")
	flag.Parse()

	db, err := history.Open(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: failed to open history database: %v\n", err)
		os.Exit(exitcodes.RuntimeError)
	}
	defer db.Close()

	switch {
	case *runs:
		err = printRuns(db, *limit)
	case *runID > 0:
		err = printRunEvents(db, *runID)
	default:
		err = printEvents(db, *action, *limit)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: query failed: %v\n", err)
		os.Exit(exitcodes.RuntimeError)
	}
}

func printRuns(db *history.DB, limit int) error {
	list, err := db.RecentRuns(limit)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tROOT\tMODE\tFILES\tDIRS\tBYTES")
	for _, r := range list {
		mode := "live"
		if r.DryRun {
			mode = "dry-run"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%d\t%d\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Root, mode,
			r.FilesDeleted, r.DirsDeleted, r.BytesFreed)
	}
	return w.Flush()
}

func printRunEvents(db *history.DB, runID int64) error {
	events, err := db.EventsByRun(runID)
	if err != nil {
		return err
	}
	return printEventTable(events)
}

func printEvents(db *history.DB, action string, limit int) error {
	var (
		events []history.EventRecord
		err    error
	)
	if action != "" {
		events, err = db.EventsByAction(action, limit)
	} else {
		events, err = db.RecentEvents(limit)
	}
	if err != nil {
		return err
	}
	return printEventTable(events)
}

func printEventTable(events []history.EventRecord) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tTIME\tACTION\tPATH\tAGE\tSIZE\tERROR")
	for _, ev := range events {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%d\t%s\n",
			ev.RunID, ev.Timestamp.Format("2006-01-02 15:04:05"), ev.Action,
			ev.Path, ev.AgeDays, ev.Size, ev.ErrorMessage)
	}
	return w.Flush()
}
