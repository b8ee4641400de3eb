// Package audit appends operational events to the event_log table. It backs
// the Scoring Engine's EventSink: attempt submissions, grading actions and —
// most importantly — invariant violations, which indicate the content store
// disagrees with the model's assumptions and need operator attention.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"time"
)

type Event struct {
	Offset    int64
	Type      string
	Key       string
	DataJSON  string
	CreatedAt int64
}

type EventLog struct{ db *sql.DB }

func NewEventLog(db *sql.DB) *EventLog { return &EventLog{db: db} }

// Record marshals data and appends an event. Recording never fails the
// calling operation; a write error is logged and dropped.
func (l *EventLog) Record(ctx context.Context, typ, key string, data any) {
	buf, err := json.Marshal(data)
	if err != nil {
		log.Printf("audit: marshal %s event: %v", typ, err)
		return
	}
	_, err = l.db.ExecContext(ctx,
		`INSERT INTO event_log (typ, key, data, created_at) VALUES ($1,$2,$3,$4)`,
		typ, key, string(buf), time.Now().UnixMilli())
	if err != nil {
		log.Printf("audit: append %s event: %v", typ, err)
	}
	if typ == "InvariantViolation" {
		log.Printf("audit: invariant violation key=%s data=%s", key, buf)
	}
}

// Recent returns the newest events, newest first, for the admin console.
func (l *EventLog) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT offset_id, typ, key, data, created_at FROM event_log ORDER BY offset_id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Event{}
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Offset, &e.Type, &e.Key, &e.DataJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
