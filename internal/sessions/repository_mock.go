package sessions

import (
	"context"

	"github.com/emiliopalmerini/mtranscript/internal/domain"
	"github.com/emiliopalmerini/mtranscript/internal/ports"
)

// MockRepository is a mock implementation of ports.EventRepository for testing.
type MockRepository struct {
	AppendFunc        func(ctx context.Context, sessionID string, events []domain.Event) error
	ListBySessionFunc func(ctx context.Context, sessionID string) ([]domain.Event, error)
	ListSessionsFunc  func(ctx context.Context, limit int) ([]ports.SessionSummary, error)
}

func (m *MockRepository) Append(ctx context.Context, sessionID string, events []domain.Event) error {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, sessionID, events)
	}
	return nil
}

func (m *MockRepository) ListBySession(ctx context.Context, sessionID string) ([]domain.Event, error) {
	if m.ListBySessionFunc != nil {
		return m.ListBySessionFunc(ctx, sessionID)
	}
	return []domain.Event{}, nil
}

func (m *MockRepository) ListSessions(ctx context.Context, limit int) ([]ports.SessionSummary, error) {
	if m.ListSessionsFunc != nil {
		return m.ListSessionsFunc(ctx, limit)
	}
	return []ports.SessionSummary{}, nil
}
