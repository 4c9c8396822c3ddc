package domain

import (
	"math"
	"testing"
	"time"
)

func TestContextPercent(t *testing.T) {
	tests := []struct {
		name     string
		tokens   int64
		limit    int64
		expected float64
	}{
		{name: "half", tokens: 2000, limit: 4000, expected: 50},
		{name: "over limit is capped", tokens: 5000, limit: 4000, expected: 100},
		{name: "zero limit", tokens: 5000, limit: 0, expected: 0},
		{name: "negative limit", tokens: 5000, limit: -1, expected: 0},
		{name: "negative tokens", tokens: -10, limit: 4000, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertFloatNear(t, "ContextPercent", tt.expected, ContextPercent(tt.tokens, tt.limit))
		})
	}
}

func TestAgentStats_ContextPercent_NoLimit(t *testing.T) {
	a := AgentStats{CurrentContextTokens: 1000}
	assertFloatNear(t, "ContextPercent", 0, a.ContextPercent())

	limit := int64(4000)
	a.MaxContextTokens = &limit
	assertFloatNear(t, "ContextPercent", 25, a.ContextPercent())
}

func TestSessionStats_CostPercent(t *testing.T) {
	tests := []struct {
		name     string
		stats    SessionStats
		expected float64
	}{
		{name: "no limits", stats: SessionStats{TotalCostUSD: 1}, expected: 0},
		{name: "zero budget", stats: SessionStats{TotalCostUSD: 1, Limits: &SessionLimits{}}, expected: 0},
		{name: "quarter", stats: SessionStats{TotalCostUSD: 0.5, Limits: &SessionLimits{MaxCostUSD: 2}}, expected: 25},
		{name: "over budget", stats: SessionStats{TotalCostUSD: 3, Limits: &SessionLimits{MaxCostUSD: 2}}, expected: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertFloatNear(t, "CostPercent", tt.expected, tt.stats.CostPercent())
		})
	}
}

func TestCalculatedStats_Agent(t *testing.T) {
	c := CalculatedStats{PerAgent: []AgentStats{{AgentID: "primary", CostUSD: 0.1}, {AgentID: "alpha", CostUSD: 0.2}}}

	if _, ok := c.Agent("missing"); ok {
		t.Error("expected missing agent not to be found")
	}
	a, ok := c.Agent("alpha")
	if !ok || a.CostUSD != 0.2 {
		t.Errorf("Agent(alpha) = %+v, %v", a, ok)
	}
	assertFloatNear(t, "AgentCostSum", 0.3, c.AgentCostSum())
}

func TestTurn_Duration(t *testing.T) {
	start := mustTime("2025-01-01T10:00:00Z")
	end := mustTime("2025-01-01T10:00:30Z")
	until := mustTime("2025-01-01T10:01:00Z")

	open := Turn{StartTime: start}
	if got := open.Duration(until).Seconds(); got != 60 {
		t.Errorf("open turn duration = %vs, want 60s", got)
	}
	closed := Turn{StartTime: start, EndTime: &end}
	if got := closed.Duration(until).Seconds(); got != 30 {
		t.Errorf("closed turn duration = %vs, want 30s", got)
	}
	if got := open.Duration(start.Add(-1)); got != 0 {
		t.Errorf("duration before start = %v, want 0", got)
	}
}

func assertFloatNear(t *testing.T, name string, expected, actual float64) {
	t.Helper()
	if math.Abs(expected-actual) > 1e-9 {
		t.Errorf("%s: expected %v, got %v", name, expected, actual)
	}
}

func mustTime(s string) time.Time {
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return ts
}
