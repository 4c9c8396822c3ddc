package turso

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/emiliopalmerini/mtranscript/internal/domain"
	"github.com/emiliopalmerini/mtranscript/internal/ports"
	"github.com/emiliopalmerini/mtranscript/internal/transcript"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000Z"

const readRetries = 2

// EventRepository stores events as their JSONL wire records.
type EventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Append(ctx context.Context, sessionID string, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var next int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq) + 1, 0) FROM events WHERE session_id = ?`, sessionID,
	).Scan(&next); err != nil {
		return fmt.Errorf("failed to read sequence: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events (session_id, seq, id, type, agent_id, timestamp, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, e := range events {
		env := e.Env()
		payload, err := json.Marshal(transcript.FromEvent(e))
		if err != nil {
			return fmt.Errorf("failed to encode event %s: %w", env.ID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			sessionID, next+int64(i), env.ID, string(e.Type()), env.AgentID,
			env.Timestamp.UTC().Format(timeLayout), string(payload),
		); err != nil {
			return fmt.Errorf("failed to insert event %s: %w", env.ID, err)
		}
	}

	return tx.Commit()
}

func (r *EventRepository) ListBySession(ctx context.Context, sessionID string) ([]domain.Event, error) {
	return WithRetry(ctx, readRetries, func() ([]domain.Event, error) {
		rows, err := r.db.QueryContext(ctx,
			`SELECT seq, payload FROM events WHERE session_id = ? ORDER BY seq`, sessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to list events: %w", err)
		}
		defer func() { _ = rows.Close() }()

		events := make([]domain.Event, 0)
		for rows.Next() {
			var (
				seq     int64
				payload string
			)
			if err := rows.Scan(&seq, &payload); err != nil {
				return nil, fmt.Errorf("failed to scan event: %w", err)
			}
			e, err := transcript.ParseLine([]byte(payload))
			if err != nil {
				return nil, fmt.Errorf("failed to decode event %d of session %s: %w", seq, sessionID, err)
			}
			events = append(events, e)
		}
		return events, rows.Err()
	})
}

func (r *EventRepository) ListSessions(ctx context.Context, limit int) ([]ports.SessionSummary, error) {
	if limit <= 0 {
		limit = 50
	}

	return WithRetry(ctx, readRetries, func() ([]ports.SessionSummary, error) {
		rows, err := r.db.QueryContext(ctx, `
			SELECT session_id, COUNT(*), MIN(timestamp), MAX(timestamp)
			FROM events
			GROUP BY session_id
			ORDER BY MAX(timestamp) DESC, session_id
			LIMIT ?
		`, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to list sessions: %w", err)
		}
		defer func() { _ = rows.Close() }()

		sessions := make([]ports.SessionSummary, 0)
		for rows.Next() {
			var (
				s           ports.SessionSummary
				first, last sql.NullString
			)
			if err := rows.Scan(&s.ID, &s.EventCount, &first, &last); err != nil {
				return nil, fmt.Errorf("failed to scan session: %w", err)
			}
			s.FirstAt = parseTime(first)
			s.LastAt = parseTime(last)
			sessions = append(sessions, s)
		}
		return sessions, rows.Err()
	})
}

func parseTime(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t, err := time.Parse(timeLayout, ns.String)
	if err != nil {
		return nil
	}
	return &t
}
