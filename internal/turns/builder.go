// Package turns partitions a session's events into turns.
package turns

import (
	"time"

	"github.com/google/uuid"

	"github.com/emiliopalmerini/mtranscript/internal/delegation"
	"github.com/emiliopalmerini/mtranscript/internal/domain"
)

var turnNamespace = uuid.MustParse("b3c1f7a2-8e4d-4c19-9d6e-2a7f5c3e9b10")

type builder struct {
	turns   []domain.Turn
	groups  map[string]domain.DelegationGroup
	claimed map[string]struct{}
}

// Build partitions events into ordered turns. Events claimed by a delegation
// group are surfaced only through the parent turn's Delegations.
func Build(events []domain.Event, groups []domain.DelegationGroup) []domain.Turn {
	b := &builder{
		turns:   make([]domain.Turn, 0),
		groups:  delegation.Index(groups),
		claimed: delegation.ClaimedEventIDs(groups),
	}

	for _, e := range events {
		if e.Type() == domain.EventSystem {
			continue
		}
		if _, ok := b.claimed[e.Env().ID]; ok {
			continue
		}

		switch v := e.(type) {
		case domain.UserMessage:
			if v.IsMessage {
				b.open(v.Envelope, &v)
			}
		case domain.AgentMessage:
			b.agentEvent(v)
		case domain.ToolCall:
			b.toolCall(v)
		}
	}
	return b.turns
}

func (b *builder) open(env domain.Envelope, user *domain.UserMessage) *domain.Turn {
	agentID := ""
	if user != nil && user.AgentID != "" {
		agentID = user.AgentID
	}
	b.turns = append(b.turns, domain.Turn{
		ID:            uuid.NewSHA1(turnNamespace, []byte(env.SessionID+"/"+env.ID)).String(),
		UserMessage:   user,
		AgentMessages: make([]domain.AgentMessage, 0),
		ToolCalls:     make([]domain.ToolCall, 0),
		Delegations:   make([]domain.DelegationGroup, 0),
		AgentID:       agentID,
		StartTime:     env.Timestamp,
		IsActive:      true,
	})
	return &b.turns[len(b.turns)-1]
}

// current returns the open turn, starting one for sessions that begin with
// agent activity.
func (b *builder) current(env domain.Envelope) *domain.Turn {
	if len(b.turns) == 0 {
		b.open(env, nil)
	}
	t := &b.turns[len(b.turns)-1]
	if t.AgentID == "" {
		t.AgentID = env.Agent()
	}
	return t
}

func (b *builder) agentEvent(m domain.AgentMessage) {
	t := b.current(m.Envelope)

	if m.Model.ConfigID != "" {
		t.ModelConfigID = m.Model.ConfigID
	}
	if label := m.Model.Label(); label != "" {
		t.ModelLabel = label
	}

	switch m.Lifecycle {
	case domain.LifecycleCompaction:
		t.Compaction = &domain.Compaction{EventID: m.ID, Timestamp: m.Timestamp, Summary: m.Content}
		return
	case domain.LifecycleRequestEnd:
		if m.EndsRequest() && m.Agent() == t.AgentID && !pendingAt(t, m.Timestamp) {
			end := m.Timestamp
			t.EndTime = &end
			t.IsActive = false
		}
		return
	case domain.LifecycleRequestStart:
		reopen(t)
		return
	}

	if !m.IsMessage {
		return
	}
	t.AgentMessages = append(t.AgentMessages, m)
	reopen(t)
}

func (b *builder) toolCall(c domain.ToolCall) {
	t := b.current(c.Envelope)
	t.ToolCalls = append(t.ToolCalls, c)
	if c.IsDelegate() {
		if group, ok := b.groups[c.Call.ID]; ok && !hasDelegation(t, group.ID) {
			t.Delegations = append(t.Delegations, group)
		}
	}
	reopen(t)
}

// reopen marks a closed turn as thinking again after new activity.
func reopen(t *domain.Turn) {
	if t.IsActive {
		return
	}
	t.IsActive = true
	t.EndTime = nil
}

func pendingAt(t *domain.Turn, ts time.Time) bool {
	for _, d := range t.Delegations {
		if d.PendingAt(ts) {
			return true
		}
	}
	return false
}

func hasDelegation(t *domain.Turn, id string) bool {
	for _, d := range t.Delegations {
		if d.ID == id {
			return true
		}
	}
	return false
}
