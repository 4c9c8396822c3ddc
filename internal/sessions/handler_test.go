package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/emiliopalmerini/mtranscript/internal/domain"
	"github.com/emiliopalmerini/mtranscript/internal/ports"
	"github.com/emiliopalmerini/mtranscript/internal/stats"
	"github.com/emiliopalmerini/mtranscript/internal/turns"
)

var base = time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)

func sampleEvents() []domain.Event {
	env := func(id, agent string, sec int) domain.Envelope {
		return domain.Envelope{ID: id, AgentID: agent, SessionID: "sess-1", Timestamp: base.Add(time.Duration(sec) * time.Second)}
	}
	return []domain.Event{
		domain.UserMessage{Envelope: env("u1", "primary", 0), IsMessage: true},
		domain.AgentMessage{Envelope: env("a1", "primary", 1), IsMessage: true, Model: domain.ModelRef{ConfigID: "cfg-1", Model: "sonnet"}},
		domain.ToolCall{
			Envelope: env("t1", "primary", 2),
			Metering: domain.Metering{Delegation: &domain.DelegationRef{ID: "d1", TargetAgentID: "worker"}},
			Call:     domain.ToolCallInfo{ID: "call-1", Kind: domain.DelegateToolKind},
		},
		domain.ToolCall{Envelope: env("w1", "worker", 3), Call: domain.ToolCallInfo{ID: "call-2", Kind: "read"}},
		domain.AgentMessage{
			Envelope: env("m1", "primary", 4),
			Metering: domain.Metering{Delegation: &domain.DelegationRef{ID: "d1", Type: domain.DelegationCompleted}},
		},
		domain.AgentMessage{Envelope: env("a2", "primary", 5), IsMessage: true},
		domain.AgentMessage{Envelope: env("e1", "primary", 6), Lifecycle: domain.LifecycleRequestEnd, FinishReason: domain.FinishReasonStop},
	}
}

type stubResolver struct{}

func (stubResolver) Requester(ctx context.Context) turns.RequestAgentConfig {
	return func(id string, cb func(domain.AgentConfig, bool)) {
		cb(domain.AgentConfig{ID: id, Label: "Sonnet"}, true)
	}
}

func newRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	RegisterRoutes(r, h)
	return r
}

func serve(t *testing.T, h *Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	newRouter(h).ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode %q: %v", w.Body.String(), err)
	}
	return v
}

func sessionRepo() *MockRepository {
	return &MockRepository{
		ListBySessionFunc: func(ctx context.Context, sessionID string) ([]domain.Event, error) {
			if sessionID != "sess-1" {
				return []domain.Event{}, nil
			}
			return sampleEvents(), nil
		},
	}
}

func TestHandler_List(t *testing.T) {
	tests := []struct {
		name           string
		queryParams    string
		mockRepo       *MockRepository
		expectedLimit  int
		expectedStatus int
	}{
		{name: "default limit", queryParams: "", expectedLimit: 20, expectedStatus: http.StatusOK},
		{name: "custom limit", queryParams: "?limit=5", expectedLimit: 5, expectedStatus: http.StatusOK},
		{name: "invalid limit defaults", queryParams: "?limit=-3", expectedLimit: 20, expectedStatus: http.StatusOK},
		{name: "limit is capped", queryParams: "?limit=1000", expectedLimit: 200, expectedStatus: http.StatusOK},
		{
			name: "repository error",
			mockRepo: &MockRepository{
				ListSessionsFunc: func(ctx context.Context, limit int) ([]ports.SessionSummary, error) {
					return nil, errors.New("database error")
				},
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := tt.mockRepo
			var gotLimit int
			if repo == nil {
				repo = &MockRepository{ListSessionsFunc: func(ctx context.Context, limit int) ([]ports.SessionSummary, error) {
					gotLimit = limit
					return []ports.SessionSummary{{ID: "sess-1", EventCount: 7}}, nil
				}}
			}

			w := serve(t, NewHandler(repo), "/api/sessions/"+tt.queryParams)

			if w.Code != tt.expectedStatus {
				t.Fatalf("List() status = %d, want %d", w.Code, tt.expectedStatus)
			}
			if tt.expectedStatus == http.StatusOK && gotLimit != tt.expectedLimit {
				t.Errorf("limit = %d, want %d", gotLimit, tt.expectedLimit)
			}
		})
	}
}

func TestHandler_Stats(t *testing.T) {
	tests := []struct {
		name           string
		target         string
		expectedStatus int
		elapsedMs      int64
	}{
		{name: "turn timing", target: "/api/sessions/sess-1/stats", expectedStatus: http.StatusOK, elapsedMs: 6000},
		{name: "legacy timing", target: "/api/sessions/sess-1/stats?timing=legacy", expectedStatus: http.StatusOK, elapsedMs: 6000},
		{name: "unknown timing", target: "/api/sessions/sess-1/stats?timing=fast", expectedStatus: http.StatusBadRequest},
		{name: "unknown session", target: "/api/sessions/nope/stats", expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(t, NewHandler(sessionRepo(), WithCache(stats.NewCache())), tt.target)

			if w.Code != tt.expectedStatus {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.expectedStatus, w.Body.String())
			}
			if w.Code != http.StatusOK {
				return
			}
			got := decode[domain.CalculatedStats](t, w)
			if got.Session.TotalElapsedMs != tt.elapsedMs {
				t.Errorf("TotalElapsedMs = %d, want %d", got.Session.TotalElapsedMs, tt.elapsedMs)
			}
			if got.Session.TotalMessages != 3 {
				t.Errorf("TotalMessages = %d, want 3", got.Session.TotalMessages)
			}
		})
	}
}

func TestHandler_StatsCacheSurvivesFreshLoads(t *testing.T) {
	tests := []struct {
		name         string
		grow         bool
		expectedHits uint64
		expectedMsgs int64
	}{
		{name: "unchanged log is served from cache", expectedHits: 1, expectedMsgs: 3},
		{name: "appended event recomputes", grow: true, expectedHits: 0, expectedMsgs: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loads := 0
			repo := &MockRepository{
				ListBySessionFunc: func(ctx context.Context, sessionID string) ([]domain.Event, error) {
					loads++
					events := sampleEvents()
					if tt.grow && loads > 1 {
						events = append(events, domain.AgentMessage{
							Envelope:  domain.Envelope{ID: "a3", AgentID: "primary", SessionID: "sess-1", Timestamp: base.Add(7 * time.Second)},
							IsMessage: true,
						})
					}
					return events, nil
				},
			}
			cache := stats.NewCache()
			h := NewHandler(repo, WithCache(cache))

			serve(t, h, "/api/sessions/sess-1/stats")
			w := serve(t, h, "/api/sessions/sess-1/stats")
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
			}

			if loads != 2 {
				t.Errorf("loads = %d, want 2", loads)
			}
			if cache.Hits() != tt.expectedHits {
				t.Errorf("Hits = %d, want %d", cache.Hits(), tt.expectedHits)
			}
			got := decode[domain.CalculatedStats](t, w)
			if got.Session.TotalMessages != tt.expectedMsgs {
				t.Errorf("TotalMessages = %d, want %d", got.Session.TotalMessages, tt.expectedMsgs)
			}
		})
	}
}

func TestHandler_StatsWithLimits(t *testing.T) {
	limits := &domain.SessionLimits{MaxCostUSD: 3}
	w := serve(t, NewHandler(sessionRepo(), WithLimits(limits)), "/api/sessions/sess-1/stats")

	got := decode[domain.CalculatedStats](t, w)
	if got.Session.Limits == nil || got.Session.Limits.MaxCostUSD != 3 {
		t.Errorf("Limits = %+v", got.Session.Limits)
	}
}

func TestHandler_RepositoryError(t *testing.T) {
	repo := &MockRepository{
		ListBySessionFunc: func(ctx context.Context, sessionID string) ([]domain.Event, error) {
			return nil, errors.New("database error")
		},
	}
	w := serve(t, NewHandler(repo), "/api/sessions/sess-1/turns")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

type turnJSON struct {
	ID         string `json:"id"`
	IsActive   bool   `json:"isActive"`
	ModelLabel string `json:"modelLabel"`
}

func TestHandler_TurnsAndBlocks(t *testing.T) {
	h := NewHandler(sessionRepo(), WithConfigResolver(stubResolver{}))

	w := serve(t, h, "/api/sessions/sess-1/turns")
	if w.Code != http.StatusOK {
		t.Fatalf("turns status = %d", w.Code)
	}
	got := decode[[]turnJSON](t, w)
	if len(got) != 1 {
		t.Fatalf("expected 1 turn, got %d", len(got))
	}
	if got[0].IsActive || got[0].ModelLabel != "Sonnet" {
		t.Errorf("turn = %+v", got[0])
	}

	w = serve(t, h, "/api/sessions/sess-1/turns/"+got[0].ID+"/blocks")
	if w.Code != http.StatusOK {
		t.Fatalf("blocks status = %d", w.Code)
	}
	blocks := decode[struct {
		Blocks []struct {
			Kind string `json:"kind"`
		} `json:"blocks"`
		Unanchored []json.RawMessage `json:"unanchored"`
	}](t, w)
	kinds := ""
	for _, b := range blocks.Blocks {
		kinds += b.Kind + " "
	}
	if kinds != "message activity message " {
		t.Errorf("kinds = %q", kinds)
	}

	w = serve(t, h, "/api/sessions/sess-1/turns/"+got[0].ID+"/blocks?hideDelegates=true")
	hidden := decode[struct {
		Blocks     []json.RawMessage `json:"blocks"`
		Unanchored []json.RawMessage `json:"unanchored"`
	}](t, w)
	if len(hidden.Blocks) != 2 || len(hidden.Unanchored) != 1 {
		t.Errorf("hidden delegates: %d blocks, %d unanchored", len(hidden.Blocks), len(hidden.Unanchored))
	}

	w = serve(t, h, "/api/sessions/sess-1/turns/missing/blocks")
	if w.Code != http.StatusNotFound {
		t.Errorf("missing turn status = %d, want 404", w.Code)
	}
}

func TestHandler_Delegations(t *testing.T) {
	w := serve(t, NewHandler(sessionRepo()), "/api/sessions/sess-1/delegations")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	got := decode[[]struct {
		Status        string `json:"status"`
		TargetAgentID string `json:"targetAgentId"`
	}](t, w)
	if len(got) != 1 || got[0].Status != "completed" || got[0].TargetAgentID != "worker" {
		t.Errorf("delegations = %+v", got)
	}
}

func TestHandler_Get(t *testing.T) {
	w := serve(t, NewHandler(sessionRepo()), "/api/sessions/sess-1")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	got := decode[struct {
		SessionID string                     `json:"sessionId"`
		Turns     []turnJSON                 `json:"turns"`
		Blocks    map[string]json.RawMessage `json:"blocks"`
	}](t, w)
	if got.SessionID != "sess-1" || len(got.Turns) != 1 {
		t.Fatalf("detail = %+v", got)
	}
	if _, ok := got.Blocks[got.Turns[0].ID]; !ok {
		t.Errorf("blocks missing for turn %s", got.Turns[0].ID)
	}
}
