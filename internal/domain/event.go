package domain

import (
	"encoding/json"
	"time"
)

// EventType discriminates the variants of Event.
type EventType string

const (
	EventSystem     EventType = "system"
	EventUser       EventType = "user"
	EventAgent      EventType = "agent"
	EventToolCall   EventType = "tool_call"
	EventToolResult EventType = "tool_result"
)

// UnknownAgentID is used for events that carry no agent id.
const UnknownAgentID = "unknown"

// PrimaryAgentID is the agent whose metrics represent the whole session.
const PrimaryAgentID = "primary"

// UnknownToolKind is used for tool calls that carry no kind.
const UnknownToolKind = "unknown"

// DelegateToolKind marks a tool call that spawns a sub-agent.
const DelegateToolKind = "delegate"

// FinishReasonStop is the finish reason of a request that ended normally.
const FinishReasonStop = "stop"

// Event is one occurrence in a session. It is implemented by System,
// UserMessage, AgentMessage, ToolCall and ToolResult only.
type Event interface {
	Type() EventType
	Env() Envelope
	Meter() Metering
	isEvent()
}

// Envelope holds the fields every event carries.
type Envelope struct {
	ID        string    `json:"id"`
	AgentID   string    `json:"agentId,omitempty"`
	SessionID string    `json:"sessionId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Content   string    `json:"content,omitempty"`
}

func (e Envelope) Env() Envelope { return e }

func (Envelope) isEvent() {}

// Agent returns the agent id, defaulting to UnknownAgentID.
func (e Envelope) Agent() string {
	return ResolveAgentID(e.AgentID)
}

// ResolveAgentID maps an empty agent id to UnknownAgentID.
func ResolveAgentID(id string) string {
	if id == "" {
		return UnknownAgentID
	}
	return id
}

// Usage is the token usage reported by the model provider.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// Metrics are the running step/turn counters reported by an agent.
type Metrics struct {
	Steps int64 `json:"steps"`
	Turns int64 `json:"turns"`
}

// DelegationEventType is the lifecycle marker of a delegation.
type DelegationEventType string

const (
	DelegationRequested DelegationEventType = "requested"
	DelegationCompleted DelegationEventType = "completed"
	DelegationFailed    DelegationEventType = "failed"
)

// DelegationRef correlates an event with a delegation.
// Type is empty for events that merely belong to the delegation.
type DelegationRef struct {
	ID            string              `json:"delegationId,omitempty"`
	TargetAgentID string              `json:"delegationTargetAgentId,omitempty"`
	Type          DelegationEventType `json:"delegationEventType,omitempty"`
}

// IsMarker reports whether the reference is a lifecycle marker.
func (d *DelegationRef) IsMarker() bool {
	return d != nil && d.Type != ""
}

// Metering holds the accounting fields of every non-system event.
type Metering struct {
	CostUSD           float64        `json:"costUsd,omitempty"`
	CumulativeCostUSD *float64       `json:"cumulativeCostUsd,omitempty"`
	ContextTokens     *int64         `json:"contextTokens,omitempty"`
	ContextLimit      *int64         `json:"contextLimit,omitempty"`
	Usage             *Usage         `json:"usage,omitempty"`
	Metrics           *Metrics       `json:"metrics,omitempty"`
	Delegation        *DelegationRef `json:"delegation,omitempty"`
}

func (m Metering) Meter() Metering { return m }

// System is internal bookkeeping. It carries no statistical weight.
type System struct {
	Envelope
}

func (System) Type() EventType { return EventSystem }
func (System) Meter() Metering { return Metering{} }

// UserMessage is a message authored by the human.
type UserMessage struct {
	Envelope
	Metering
	IsMessage bool `json:"isMessage"`
}

func (UserMessage) Type() EventType { return EventUser }

// Lifecycle is the closed set of bookkeeping subtypes an agent event may carry.
type Lifecycle string

const (
	LifecycleNone         Lifecycle = ""
	LifecycleRequestStart Lifecycle = "request_start"
	LifecycleRequestEnd   Lifecycle = "request_end"
	LifecycleCompaction   Lifecycle = "compaction"
)

// ModelRef identifies the model that produced an agent event.
type ModelRef struct {
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
	ConfigID string `json:"configId,omitempty"`
}

// Label is the display label derived from provider and model.
func (m ModelRef) Label() string {
	switch {
	case m.Provider != "" && m.Model != "":
		return m.Provider + "/" + m.Model
	default:
		return m.Model
	}
}

// AgentMessage is produced by an agent: either a chat message or a lifecycle marker.
type AgentMessage struct {
	Envelope
	Metering
	IsMessage    bool      `json:"isMessage"`
	Lifecycle    Lifecycle `json:"lifecycle,omitempty"`
	FinishReason string    `json:"finishReason,omitempty"`
	Model        ModelRef  `json:"model"`
}

func (AgentMessage) Type() EventType { return EventAgent }

// EndsRequest reports whether the event closes a request with finish reason stop.
func (a AgentMessage) EndsRequest() bool {
	return a.Lifecycle == LifecycleRequestEnd && a.FinishReason == FinishReasonStop
}

// ToolCallInfo describes a tool invocation.
type ToolCallInfo struct {
	ID          string          `json:"tool_call_id"`
	Kind        string          `json:"kind,omitempty"`
	Status      string          `json:"status,omitempty"`
	RawInput    json.RawMessage `json:"raw_input,omitempty"`
	Description string          `json:"description,omitempty"`
}

// ToolCall is a tool invocation requested by an agent.
type ToolCall struct {
	Envelope
	Metering
	Call ToolCallInfo `json:"toolCall"`
}

func (ToolCall) Type() EventType { return EventToolCall }

// Kind returns the tool kind, defaulting to UnknownToolKind.
func (t ToolCall) Kind() string {
	if t.Call.Kind == "" {
		return UnknownToolKind
	}
	return t.Call.Kind
}

// IsDelegate reports whether the call spawns a sub-agent.
func (t ToolCall) IsDelegate() bool {
	return t.Call.Kind == DelegateToolKind
}

// ToolResult is the outcome of a tool invocation.
type ToolResult struct {
	Envelope
	Metering
	ToolCallID string `json:"tool_call_id,omitempty"`
	Status     string `json:"status,omitempty"`
	IsError    bool   `json:"isError,omitempty"`
}

func (ToolResult) Type() EventType { return EventToolResult }

func (e System) MarshalJSON() ([]byte, error) {
	type plain System
	return marshalTagged(e.Type(), plain(e))
}

func (e UserMessage) MarshalJSON() ([]byte, error) {
	type plain UserMessage
	return marshalTagged(e.Type(), plain(e))
}

func (e AgentMessage) MarshalJSON() ([]byte, error) {
	type plain AgentMessage
	return marshalTagged(e.Type(), plain(e))
}

func (e ToolCall) MarshalJSON() ([]byte, error) {
	type plain ToolCall
	return marshalTagged(e.Type(), plain(e))
}

func (e ToolResult) MarshalJSON() ([]byte, error) {
	type plain ToolResult
	return marshalTagged(e.Type(), plain(e))
}

// marshalTagged prefixes the encoded variant with its "type" discriminator.
func marshalTagged(t EventType, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	head, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(body)+len(head)+10)
	out = append(out, `{"type":`...)
	out = append(out, head...)
	if len(body) > 2 {
		out = append(out, ',')
	}
	out = append(out, body[1:]...)
	return out, nil
}
