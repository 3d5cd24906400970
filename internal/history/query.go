package history

import "database/sql"

// RecentEvents returns the N most recent events across all runs
func (h *DB) RecentEvents(limit int) ([]EventRecord, error) {
	query := `
	SELECT id, run_id, timestamp, action, path, age_days, size, error_message
	FROM events
	ORDER BY id DESC
	LIMIT ?
	`
	return h.queryEvents(query, limit)
}

// EventsByAction returns recent events filtered by action tag
func (h *DB) EventsByAction(action string, limit int) ([]EventRecord, error) {
	query := `
	SELECT id, run_id, timestamp, action, path, age_days, size, error_message
	FROM events
	WHERE action = ?
	ORDER BY id DESC
	LIMIT ?
	`
	return h.queryEvents(query, action, limit)
}

// EventsByRun returns all events of one run in traversal order
func (h *DB) EventsByRun(runID int64) ([]EventRecord, error) {
	query := `
	SELECT id, run_id, timestamp, action, path, age_days, size, error_message
	FROM events
	WHERE run_id = ?
	ORDER BY id ASC
	`
	return h.queryEvents(query, runID)
}

// RecentRuns returns the N most recent run headers
func (h *DB) RecentRuns(limit int) ([]Run, error) {
	rows, err := h.db.Query(`
	SELECT id, started_at, finished_at, root, dry_run, files_deleted, dirs_deleted, bytes_freed
	FROM runs
	ORDER BY id DESC
	LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var finished sql.NullTime
		var dry int
		if err := rows.Scan(&r.ID, &r.StartedAt, &finished, &r.Root, &dry,
			&r.FilesDeleted, &r.DirsDeleted, &r.BytesFreed); err != nil {
			return nil, err
		}
		if finished.Valid {
			r.FinishedAt = finished.Time
		}
		r.DryRun = dry != 0
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (h *DB) queryEvents(query string, args ...interface{}) ([]EventRecord, error) {
	rows, err := h.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []EventRecord
	for rows.Next() {
		var ev EventRecord
		var msg sql.NullString
		if err := rows.Scan(&ev.ID, &ev.RunID, &ev.Timestamp, &ev.Action,
			&ev.Path, &ev.AgeDays, &ev.Size, &msg); err != nil {
			return nil, err
		}
		if msg.Valid {
			ev.ErrorMessage = msg.String
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
