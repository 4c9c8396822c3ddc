package domain

import "time"

// DelegationStatus is the lifecycle status of a delegation group.
type DelegationStatus string

const (
	DelegationInProgress DelegationStatus = "in_progress"
	DelegationDone       DelegationStatus = "completed"
	DelegationErrored    DelegationStatus = "failed"
)

// DelegationGroup is one sub-agent invocation spawned by a delegate tool call,
// with every event attributable to the delegated sub-agent.
type DelegationGroup struct {
	ID                 string           `json:"id"`
	DelegateToolCallID string           `json:"delegateToolCallId"`
	DelegationID       string           `json:"delegationId,omitempty"`
	// ParentToolCallID names the enclosing group when a sub-agent delegated.
	ParentToolCallID   string           `json:"parentToolCallId,omitempty"`
	DelegateEvent      ToolCall         `json:"delegateEvent"`
	AgentID            string           `json:"agentId,omitempty"`
	TargetAgentID      string           `json:"targetAgentId,omitempty"`
	Events             []Event          `json:"events"`
	Status             DelegationStatus `json:"status"`
	StartTime          time.Time        `json:"startTime"`
	EndTime            *time.Time       `json:"endTime,omitempty"`
	Objective          string           `json:"objective,omitempty"`
}

// PendingAt reports whether the delegation had not finished at t.
func (g DelegationGroup) PendingAt(t time.Time) bool {
	if g.StartTime.After(t) {
		return false
	}
	return g.EndTime == nil || g.EndTime.After(t)
}
