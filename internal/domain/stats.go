package domain

import "time"

// SessionLimits are the configured budgets of a session.
type SessionLimits struct {
	MaxSteps   int64   `json:"max_steps" yaml:"max_steps"`
	MaxTurns   int64   `json:"max_turns" yaml:"max_turns"`
	MaxCostUSD float64 `json:"max_cost_usd" yaml:"max_cost_usd"`
}

// AgentStats holds the counters of a single agent.
type AgentStats struct {
	AgentID              string           `json:"agentId"`
	MessageCount         int64            `json:"messageCount"`
	ToolCallCount        int64            `json:"toolCallCount"`
	ToolResultCount      int64            `json:"toolResultCount"`
	ToolBreakdown        map[string]int64 `json:"toolBreakdown"`
	CostUSD              float64          `json:"costUsd"`
	InputTokens          int64            `json:"inputTokens"`
	OutputTokens         int64            `json:"outputTokens"`
	CurrentContextTokens int64            `json:"currentContextTokens"`
	MaxContextTokens     *int64           `json:"maxContextTokens,omitempty"`
	Steps                int64            `json:"steps"`
	Turns                int64            `json:"turns"`
	ActiveTimeMs         int64            `json:"activeTimeMs"`
}

// ContextPercent is the share of the context window in use, within [0, 100].
func (a AgentStats) ContextPercent() float64 {
	if a.MaxContextTokens == nil {
		return 0
	}
	return ContextPercent(a.CurrentContextTokens, *a.MaxContextTokens)
}

// ContextPercent returns tokens/limit as a percentage clamped to [0, 100].
// A non-positive limit yields 0.
func ContextPercent(tokens, limit int64) float64 {
	if limit <= 0 || tokens <= 0 {
		return 0
	}
	pct := float64(tokens) / float64(limit) * 100
	if pct > 100 {
		return 100
	}
	return pct
}

// SessionStats holds the session-wide counters.
type SessionStats struct {
	TotalCostUSD      float64        `json:"totalCostUsd"`
	TotalMessages     int64          `json:"totalMessages"`
	TotalToolCalls    int64          `json:"totalToolCalls"`
	TotalInputTokens  int64          `json:"totalInputTokens"`
	TotalOutputTokens int64          `json:"totalOutputTokens"`
	StartTimestamp    *time.Time     `json:"startTimestamp,omitempty"`
	TotalSteps        int64          `json:"totalSteps"`
	TotalTurns        int64          `json:"totalTurns"`
	Limits            *SessionLimits `json:"limits,omitempty"`
	TotalElapsedMs    int64          `json:"totalElapsedMs"`
}

// CostPercent is the share of the cost budget spent, within [0, 100].
func (s SessionStats) CostPercent() float64 {
	if s.Limits == nil || s.Limits.MaxCostUSD <= 0 || s.TotalCostUSD <= 0 {
		return 0
	}
	pct := s.TotalCostUSD / s.Limits.MaxCostUSD * 100
	if pct > 100 {
		return 100
	}
	return pct
}

// CalculatedStats is the output of the statistics engine.
type CalculatedStats struct {
	Session  SessionStats `json:"session"`
	PerAgent []AgentStats `json:"perAgent"`
}

// Agent returns the stats of the given agent.
func (c CalculatedStats) Agent(id string) (AgentStats, bool) {
	for _, a := range c.PerAgent {
		if a.AgentID == id {
			return a, true
		}
	}
	return AgentStats{}, false
}

// AgentCostSum is the sum of per-agent costs. It may differ from
// Session.TotalCostUSD when the stream reports cumulative costs.
func (c CalculatedStats) AgentCostSum() float64 {
	var sum float64
	for _, a := range c.PerAgent {
		sum += a.CostUSD
	}
	return sum
}
