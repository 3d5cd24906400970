package sweep

import "time"

// EventKind tags the variants of a sweep log event
type EventKind int

const (
	// EventFile marks a file whose access age exceeded the threshold
	EventFile EventKind = iota
	// EventDir marks a directory found empty at evaluation time
	EventDir
	// EventExcluded marks a directory skipped by an exclusion rule
	EventExcluded
	// EventDeleteError marks a failed removal attempt
	EventDeleteError
	// EventAccessError marks a directory or file that could not be read
	EventAccessError
)

// Event is one decision made during the traversal. Events are appended
// in traversal order and never reordered.
type Event struct {
	Kind       EventKind
	Path       string
	AccessTime time.Time // EventFile only
	AgeDays    int       // EventFile only
	Size       int64     // EventFile only
	Err        string    // EventDeleteError and EventAccessError only
}

// Result accumulates the outcome of a single Sweep call. Counts tally
// successful deletions only; failed attempts appear as error events.
type Result struct {
	FilesDeleted int
	DirsDeleted  int
	BytesFreed   int64
	Events       []Event
}

func (r *Result) add(ev Event) {
	r.Events = append(r.Events, ev)
}

// Candidates returns how many file and directory candidates were
// identified, independent of whether deletion was attempted. In dry-run
// mode these are the counts a live run would have deleted.
func (r *Result) Candidates() (files, dirs int) {
	for _, ev := range r.Events {
		switch ev.Kind {
		case EventFile:
			files++
		case EventDir:
			dirs++
		}
	}
	return files, dirs
}

// ErrorCount returns the number of error events recorded
func (r *Result) ErrorCount() int {
	n := 0
	for _, ev := range r.Events {
		if ev.Kind == EventDeleteError || ev.Kind == EventAccessError {
			n++
		}
	}
	return n
}
