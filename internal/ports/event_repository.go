package ports

import (
	"context"
	"time"

	"github.com/emiliopalmerini/mtranscript/internal/domain"
)

// SessionSummary describes a stored session without loading its events.
type SessionSummary struct {
	ID         string
	EventCount int64
	FirstAt    *time.Time
	LastAt     *time.Time
}

// EventRepository stores the raw, append-only event history of sessions.
type EventRepository interface {
	// Append adds events to the end of a session's history.
	Append(ctx context.Context, sessionID string, events []domain.Event) error
	// ListBySession returns a session's events in append order.
	ListBySession(ctx context.Context, sessionID string) ([]domain.Event, error)
	// ListSessions returns the stored sessions, most recently active first.
	ListSessions(ctx context.Context, limit int) ([]SessionSummary, error)
}
