// Package stats computes per-agent and session statistics from an event stream.
package stats

import (
	"fmt"
	"sort"
	"time"

	"github.com/emiliopalmerini/mtranscript/internal/domain"
)

// Timing selects how active time is computed.
type Timing string

const (
	// TimingTurns measures active time from turn start/end timestamps.
	TimingTurns Timing = "turns"
	// TimingLegacy runs the per-agent idle/working state machine.
	TimingLegacy Timing = "legacy"
)

// ParseTiming maps a flag or query value to a Timing. Empty selects TimingTurns.
func ParseTiming(s string) (Timing, error) {
	switch Timing(s) {
	case "", TimingTurns:
		return TimingTurns, nil
	case TimingLegacy:
		return TimingLegacy, nil
	default:
		return "", fmt.Errorf("unknown timing mode %q (want %q or %q)", s, TimingTurns, TimingLegacy)
	}
}

// Options configures Calculate.
type Options struct {
	// Limits is passed through into SessionStats.Limits.
	Limits *domain.SessionLimits
	Timing Timing
	// Turns are the turns built from the same events. TimingTurns leaves the
	// time fields at zero when Turns is nil.
	Turns []domain.Turn
}

type aggregator struct {
	buckets map[string]*domain.AgentStats
	// bucket ids in first-seen order
	order []string

	costSum    float64
	cumulative *float64
	start      *time.Time
	last       time.Time
	elapsed    int64
}

// Calculate folds events into per-agent and session statistics. It does not
// modify events and returns equal results for equal input.
func Calculate(events []domain.Event, opts Options) domain.CalculatedStats {
	a := &aggregator{buckets: make(map[string]*domain.AgentStats)}
	for _, e := range events {
		if e.Type() == domain.EventSystem {
			continue
		}
		a.add(e)
	}

	switch opts.Timing {
	case TimingLegacy:
		a.applyLegacy(events)
	default:
		a.applyTurns(opts.Turns)
	}

	return a.result(opts.Limits)
}

func (a *aggregator) bucket(agentID string) *domain.AgentStats {
	if s, ok := a.buckets[agentID]; ok {
		return s
	}
	s := &domain.AgentStats{AgentID: agentID, ToolBreakdown: make(map[string]int64)}
	a.buckets[agentID] = s
	a.order = append(a.order, agentID)
	return s
}

func (a *aggregator) add(e domain.Event) {
	env := e.Env()
	s := a.bucket(env.Agent())

	if a.start == nil {
		ts := env.Timestamp
		a.start = &ts
	}
	a.last = env.Timestamp

	switch v := e.(type) {
	case domain.UserMessage:
		if v.IsMessage {
			s.MessageCount++
		}
	case domain.AgentMessage:
		if v.IsMessage {
			s.MessageCount++
		}
	case domain.ToolCall:
		s.ToolCallCount++
		s.ToolBreakdown[v.Kind()]++
	case domain.ToolResult:
		s.ToolResultCount++
	}

	m := e.Meter()
	s.CostUSD += m.CostUSD
	a.costSum += m.CostUSD
	if m.CumulativeCostUSD != nil {
		c := *m.CumulativeCostUSD
		a.cumulative = &c
	}
	if m.ContextTokens != nil {
		s.CurrentContextTokens = *m.ContextTokens
	}
	if m.ContextLimit != nil {
		limit := *m.ContextLimit
		s.MaxContextTokens = &limit
	}
	if m.Usage != nil {
		s.InputTokens += m.Usage.InputTokens
		s.OutputTokens += m.Usage.OutputTokens
	}
	if m.Metrics != nil {
		s.Steps = m.Metrics.Steps
		s.Turns = m.Metrics.Turns
	}
}

func (a *aggregator) result(limits *domain.SessionLimits) domain.CalculatedStats {
	session := domain.SessionStats{StartTimestamp: a.start, TotalElapsedMs: a.elapsed}
	if limits != nil {
		l := *limits
		session.Limits = &l
	}

	perAgent := make([]domain.AgentStats, 0, len(a.order))
	for _, id := range a.order {
		s := a.buckets[id]
		session.TotalMessages += s.MessageCount
		session.TotalToolCalls += s.ToolCallCount
		session.TotalInputTokens += s.InputTokens
		session.TotalOutputTokens += s.OutputTokens
		perAgent = append(perAgent, *s)
	}

	if a.cumulative != nil {
		session.TotalCostUSD = *a.cumulative
	} else {
		session.TotalCostUSD = a.costSum
	}

	if rep := a.representative(); rep != nil {
		session.TotalSteps = rep.Steps
		session.TotalTurns = rep.Turns
	}

	sort.SliceStable(perAgent, func(i, j int) bool {
		return agentLess(perAgent[i].AgentID, perAgent[j].AgentID)
	})

	return domain.CalculatedStats{Session: session, PerAgent: perAgent}
}

// representative is the agent whose counters stand for the session: the
// primary agent, or the first agent seen.
func (a *aggregator) representative() *domain.AgentStats {
	if s, ok := a.buckets[domain.PrimaryAgentID]; ok {
		return s
	}
	if len(a.order) == 0 {
		return nil
	}
	return a.buckets[a.order[0]]
}

func agentLess(x, y string) bool {
	switch {
	case x == domain.PrimaryAgentID:
		return y != domain.PrimaryAgentID
	case y == domain.PrimaryAgentID:
		return false
	default:
		return x < y
	}
}
