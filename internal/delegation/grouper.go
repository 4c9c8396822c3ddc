// Package delegation assembles sub-agent delegations into groups.
package delegation

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/emiliopalmerini/mtranscript/internal/domain"
	"github.com/emiliopalmerini/mtranscript/internal/ports"
)

// groupNamespace seeds the deterministic group ids.
var groupNamespace = uuid.MustParse("6f1c2a0e-5d4b-4f0a-9a57-0c1f3f1d2b41")

// delegateInput is the subset of a delegate tool call's raw input we read.
type delegateInput struct {
	Objective    string `json:"objective"`
	AgentID      string `json:"agent_id"`
	AgentIDCamel string `json:"agentId"`
}

// grouper is the fold state. Groups live in an arena addressed by index.
type grouper struct {
	logger ports.Logger
	groups []domain.DelegationGroup
	// tool_call_id -> group index
	byToolCall map[string]int
	// correlation key -> group index of the first claimant
	byKey map[string]int
}

// Group scans the ordered events and returns one group per distinct delegate
// tool call, in the order the tool calls were observed. Conflicts are reported
// to logger and resolved first-writer-wins.
func Group(events []domain.Event, logger ports.Logger) []domain.DelegationGroup {
	g := &grouper{
		logger:     logger,
		byToolCall: make(map[string]int),
		byKey:      make(map[string]int),
	}
	for _, e := range events {
		if e.Type() == domain.EventSystem {
			continue
		}
		if call, ok := e.(domain.ToolCall); ok && call.IsDelegate() {
			// A sub-agent delegating again stays inside its own group.
			parent, nested := g.soleOpenFor(call.Agent())
			if nested {
				g.groups[parent].Events = append(g.groups[parent].Events, call)
			} else {
				parent = -1
			}
			g.open(call, parent)
			continue
		}
		g.attach(e)
	}
	return g.groups
}

func (g *grouper) open(call domain.ToolCall, parent int) {
	if _, dup := g.byToolCall[call.Call.ID]; dup {
		g.logger.Warn(fmt.Sprintf("duplicate delegate tool call %s ignored (event %s)", call.Call.ID, call.ID))
		return
	}

	var input delegateInput
	if len(call.Call.RawInput) > 0 {
		_ = json.Unmarshal(call.Call.RawInput, &input)
	}

	group := domain.DelegationGroup{
		ID:                 uuid.NewSHA1(groupNamespace, []byte(call.SessionID+"/"+call.Call.ID)).String(),
		DelegateToolCallID: call.Call.ID,
		DelegateEvent:      call,
		AgentID:            call.Agent(),
		Events:             make([]domain.Event, 0),
		Status:             domain.DelegationInProgress,
		StartTime:          call.Timestamp,
		Objective:          input.Objective,
	}
	if parent >= 0 {
		group.ParentToolCallID = g.groups[parent].DelegateToolCallID
	}

	key := call.Call.ID
	if call.Delegation != nil {
		if call.Delegation.ID != "" {
			key = call.Delegation.ID
		}
		group.TargetAgentID = call.Delegation.TargetAgentID
	}
	if group.TargetAgentID == "" {
		group.TargetAgentID = input.AgentID
	}
	if group.TargetAgentID == "" {
		group.TargetAgentID = input.AgentIDCamel
	}

	idx := len(g.groups)
	g.byToolCall[call.Call.ID] = idx
	if owner, claimed := g.byKey[key]; claimed {
		g.logger.Warn(fmt.Sprintf("delegation %s already claimed by tool call %s; tool call %s keeps no correlation",
			key, g.groups[owner].DelegateToolCallID, call.Call.ID))
	} else {
		g.byKey[key] = idx
		group.DelegationID = key
	}
	g.groups = append(g.groups, group)
}

func (g *grouper) attach(e domain.Event) {
	ref := e.Meter().Delegation
	if ref != nil && ref.ID != "" {
		idx, ok := g.byKey[ref.ID]
		if !ok {
			// Alternate correlation: delegation id equal to the tool call id.
			idx, ok = g.byToolCall[ref.ID]
		}
		if !ok {
			return
		}
		g.apply(idx, e, ref)
		return
	}

	if idx, ok := g.soleOpenFor(e.Env().Agent()); ok {
		g.groups[idx].Events = append(g.groups[idx].Events, e)
	}
}

func (g *grouper) apply(idx int, e domain.Event, ref *domain.DelegationRef) {
	group := &g.groups[idx]
	group.Events = append(group.Events, e)

	if group.TargetAgentID == "" && ref.TargetAgentID != "" {
		group.TargetAgentID = ref.TargetAgentID
	}
	if group.Status != domain.DelegationInProgress {
		return
	}

	switch ref.Type {
	case domain.DelegationCompleted:
		group.Status = domain.DelegationDone
	case domain.DelegationFailed:
		group.Status = domain.DelegationErrored
	default:
		return
	}
	end := e.Env().Timestamp
	group.EndTime = &end
}

// soleOpenFor returns the in-progress group targeting agentID when it is the
// only one.
func (g *grouper) soleOpenFor(agentID string) (int, bool) {
	found := -1
	for i := range g.groups {
		group := &g.groups[i]
		if group.Status != domain.DelegationInProgress || group.TargetAgentID != agentID {
			continue
		}
		if found >= 0 {
			return 0, false
		}
		found = i
	}
	return found, found >= 0
}

// Index returns the groups keyed by their delegate tool call id.
func Index(groups []domain.DelegationGroup) map[string]domain.DelegationGroup {
	out := make(map[string]domain.DelegationGroup, len(groups))
	for _, group := range groups {
		out[group.DelegateToolCallID] = group
	}
	return out
}

// ClaimedEventIDs returns the ids of every event that belongs to some group.
func ClaimedEventIDs(groups []domain.DelegationGroup) map[string]struct{} {
	out := make(map[string]struct{})
	for _, group := range groups {
		for _, e := range group.Events {
			out[e.Env().ID] = struct{}{}
		}
	}
	return out
}
