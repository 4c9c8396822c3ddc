package stats

import (
	"time"

	"github.com/emiliopalmerini/mtranscript/internal/domain"
)

// applyTurns sums turn durations. A turn without an end runs until the next
// turn starts, or until the last event for the final turn.
func (a *aggregator) applyTurns(turns []domain.Turn) {
	for i, t := range turns {
		until := a.last
		if i+1 < len(turns) {
			until = turns[i+1].StartTime
		}
		ms := t.Duration(until).Milliseconds()
		a.elapsed += ms
		if s, ok := a.buckets[t.AgentID]; ok {
			s.ActiveTimeMs += ms
		}
	}
}

type agentClock struct {
	working   bool
	since     time.Time
	openCount int
	activeMs  int64
}

// legacyTimer is the idle/working state machine. A parallel session clock
// runs whenever at least one agent is working.
type legacyTimer struct {
	clocks map[string]*agentClock
	// delegation key -> delegating agent
	open map[string]string

	workingAgents int
	sessionSince  time.Time
	sessionMs     int64
}

func (a *aggregator) applyLegacy(events []domain.Event) {
	lt := &legacyTimer{
		clocks: make(map[string]*agentClock),
		open:   make(map[string]string),
	}
	for _, e := range events {
		if e.Type() == domain.EventSystem {
			continue
		}
		lt.step(e)
	}
	lt.finish(a.last)

	for id, c := range lt.clocks {
		if s, ok := a.buckets[id]; ok {
			s.ActiveTimeMs = c.activeMs
		}
	}
	a.elapsed = lt.sessionMs
}

func (lt *legacyTimer) clock(agentID string) *agentClock {
	c, ok := lt.clocks[agentID]
	if !ok {
		c = &agentClock{}
		lt.clocks[agentID] = c
	}
	return c
}

func (lt *legacyTimer) step(e domain.Event) {
	env := e.Env()
	agentID := env.Agent()
	ts := env.Timestamp

	if _, ok := e.(domain.UserMessage); ok {
		if c := lt.clock(agentID); c.openCount == 0 {
			lt.resume(c, ts)
		}
	}

	if ref := e.Meter().Delegation; ref.IsMarker() {
		lt.marker(agentID, ref, ts)
	}

	if m, ok := e.(domain.AgentMessage); ok && m.EndsRequest() {
		if c := lt.clock(agentID); c.openCount == 0 {
			lt.pause(c, ts)
		}
	}
}

func (lt *legacyTimer) marker(agentID string, ref *domain.DelegationRef, ts time.Time) {
	key := ref.ID
	if key == "" {
		key = ref.TargetAgentID
	}

	switch ref.Type {
	case domain.DelegationRequested:
		if _, dup := lt.open[key]; dup {
			return
		}
		lt.open[key] = agentID
		c := lt.clock(agentID)
		c.openCount++
		lt.pause(c, ts)
	case domain.DelegationCompleted, domain.DelegationFailed:
		delegator, ok := lt.open[key]
		if !ok {
			return
		}
		delete(lt.open, key)
		c := lt.clock(delegator)
		c.openCount--
		if c.openCount == 0 && ref.Type == domain.DelegationCompleted {
			lt.resume(c, ts)
		}
	}
}

func (lt *legacyTimer) resume(c *agentClock, ts time.Time) {
	if c.working {
		return
	}
	c.working = true
	c.since = ts
	if lt.workingAgents == 0 {
		lt.sessionSince = ts
	}
	lt.workingAgents++
}

func (lt *legacyTimer) pause(c *agentClock, ts time.Time) {
	if !c.working {
		return
	}
	c.working = false
	c.activeMs += elapsedMs(c.since, ts)
	lt.workingAgents--
	if lt.workingAgents == 0 {
		lt.sessionMs += elapsedMs(lt.sessionSince, ts)
	}
}

func (lt *legacyTimer) finish(last time.Time) {
	for _, c := range lt.clocks {
		if c.working {
			c.activeMs += elapsedMs(c.since, last)
		}
	}
	if lt.workingAgents > 0 {
		lt.sessionMs += elapsedMs(lt.sessionSince, last)
	}
}

func elapsedMs(from, to time.Time) int64 {
	if to.Before(from) {
		return 0
	}
	return to.Sub(from).Milliseconds()
}
