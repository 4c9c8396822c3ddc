// Package transcript is the ingestion boundary: it reads flat JSONL event
// records and narrows each one into a domain.Event variant.
package transcript

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/emiliopalmerini/mtranscript/internal/domain"
)

// Record is the flat, loosely-typed event shape found on the wire.
type Record struct {
	Type                    string          `json:"type"`
	ID                      string          `json:"id"`
	AgentID                 string          `json:"agentId,omitempty"`
	SessionID               string          `json:"sessionId,omitempty"`
	Timestamp               Timestamp       `json:"timestamp"`
	Content                 string          `json:"content,omitempty"`
	IsMessage               bool            `json:"isMessage,omitempty"`
	Subtype                 string          `json:"subtype,omitempty"`
	ToolCall                *ToolCall       `json:"toolCall,omitempty"`
	ToolCallID              string          `json:"tool_call_id,omitempty"`
	Status                  string          `json:"status,omitempty"`
	IsError                 bool            `json:"isError,omitempty"`
	CostUSD                 *float64        `json:"costUsd,omitempty"`
	CumulativeCostUSD       *float64        `json:"cumulativeCostUsd,omitempty"`
	ContextTokens           *int64          `json:"contextTokens,omitempty"`
	ContextLimit            *int64          `json:"contextLimit,omitempty"`
	Usage                   *domain.Usage   `json:"usage,omitempty"`
	Metrics                 *domain.Metrics `json:"metrics,omitempty"`
	DelegationID            string          `json:"delegationId,omitempty"`
	DelegationTargetAgentID string          `json:"delegationTargetAgentId,omitempty"`
	DelegationEventType     string          `json:"delegationEventType,omitempty"`
	FinishReason            string          `json:"finishReason,omitempty"`
	Provider                string          `json:"provider,omitempty"`
	Model                   string          `json:"model,omitempty"`
	ConfigID                string          `json:"configId,omitempty"`
}

// ToolCall is the wire shape of a tool invocation.
type ToolCall struct {
	ToolCallID  string          `json:"tool_call_id"`
	Kind        string          `json:"kind,omitempty"`
	Status      string          `json:"status,omitempty"`
	RawInput    json.RawMessage `json:"raw_input,omitempty"`
	Description string          `json:"description,omitempty"`
}

// Timestamp accepts RFC3339 strings and epoch milliseconds.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			return nil
		}
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("invalid timestamp %q: %w", s, err)
		}
		t.Time = parsed
		return nil
	}
	ms, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp %s: %w", data, err)
	}
	t.Time = time.UnixMilli(int64(ms)).UTC()
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// Event narrows the record into its domain variant.
func (r Record) Event() (domain.Event, error) {
	env := domain.Envelope{
		ID:        r.ID,
		AgentID:   r.AgentID,
		SessionID: r.SessionID,
		Timestamp: r.Timestamp.Time,
		Content:   r.Content,
	}

	switch domain.EventType(r.Type) {
	case domain.EventSystem:
		return domain.System{Envelope: env}, nil
	case domain.EventUser:
		return domain.UserMessage{Envelope: env, Metering: r.metering(), IsMessage: r.IsMessage}, nil
	case domain.EventAgent:
		return domain.AgentMessage{
			Envelope:     env,
			Metering:     r.metering(),
			IsMessage:    r.IsMessage,
			Lifecycle:    r.lifecycle(),
			FinishReason: r.FinishReason,
			Model:        domain.ModelRef{Provider: r.Provider, Model: r.Model, ConfigID: r.ConfigID},
		}, nil
	case domain.EventToolCall:
		call := domain.ToolCallInfo{}
		if r.ToolCall != nil {
			call = domain.ToolCallInfo{
				ID:          r.ToolCall.ToolCallID,
				Kind:        r.ToolCall.Kind,
				Status:      r.ToolCall.Status,
				RawInput:    r.ToolCall.RawInput,
				Description: r.ToolCall.Description,
			}
		}
		if call.ID == "" {
			call.ID = r.ToolCallID
		}
		return domain.ToolCall{Envelope: env, Metering: r.metering(), Call: call}, nil
	case domain.EventToolResult:
		id := r.ToolCallID
		status := r.Status
		if r.ToolCall != nil {
			if id == "" {
				id = r.ToolCall.ToolCallID
			}
			if status == "" {
				status = r.ToolCall.Status
			}
		}
		return domain.ToolResult{
			Envelope:   env,
			Metering:   r.metering(),
			ToolCallID: id,
			Status:     status,
			IsError:    r.IsError,
		}, nil
	default:
		return nil, fmt.Errorf("unknown event type: %q", r.Type)
	}
}

func (r Record) metering() domain.Metering {
	m := domain.Metering{
		CumulativeCostUSD: r.CumulativeCostUSD,
		ContextTokens:     r.ContextTokens,
		ContextLimit:      r.ContextLimit,
		Usage:             r.Usage,
		Metrics:           r.Metrics,
	}
	if r.CostUSD != nil {
		m.CostUSD = *r.CostUSD
	}
	if r.DelegationID != "" || r.DelegationTargetAgentID != "" || r.DelegationEventType != "" {
		m.Delegation = &domain.DelegationRef{
			ID:            r.DelegationID,
			TargetAgentID: r.DelegationTargetAgentID,
			Type:          delegationEventType(r.DelegationEventType),
		}
	}
	return m
}

func delegationEventType(s string) domain.DelegationEventType {
	switch domain.DelegationEventType(s) {
	case domain.DelegationRequested, domain.DelegationCompleted, domain.DelegationFailed:
		return domain.DelegationEventType(s)
	default:
		return ""
	}
}

// Content prefixes emitted by older producers that had no subtype field.
var legacyLifecyclePrefixes = []struct {
	prefix    string
	lifecycle domain.Lifecycle
}{
	{"llm_request_start", domain.LifecycleRequestStart},
	{"llm_request_end", domain.LifecycleRequestEnd},
	{"context_compaction", domain.LifecycleCompaction},
}

func (r Record) lifecycle() domain.Lifecycle {
	switch r.Subtype {
	case "request_start", "llm_request_start":
		return domain.LifecycleRequestStart
	case "request_end", "llm_request_end":
		return domain.LifecycleRequestEnd
	case "compaction", "context_compaction":
		return domain.LifecycleCompaction
	}
	if r.Subtype != "" || r.IsMessage {
		return domain.LifecycleNone
	}
	for _, l := range legacyLifecyclePrefixes {
		if strings.HasPrefix(r.Content, l.prefix) {
			return l.lifecycle
		}
	}
	return domain.LifecycleNone
}

// FromEvent flattens a domain event back into its wire record.
func FromEvent(e domain.Event) Record {
	env := e.Env()
	r := Record{
		Type:      string(e.Type()),
		ID:        env.ID,
		AgentID:   env.AgentID,
		SessionID: env.SessionID,
		Timestamp: Timestamp{env.Timestamp},
		Content:   env.Content,
	}
	r.setMetering(e.Meter())

	switch v := e.(type) {
	case domain.UserMessage:
		r.IsMessage = v.IsMessage
	case domain.AgentMessage:
		r.IsMessage = v.IsMessage
		r.Subtype = string(v.Lifecycle)
		r.FinishReason = v.FinishReason
		r.Provider = v.Model.Provider
		r.Model = v.Model.Model
		r.ConfigID = v.Model.ConfigID
	case domain.ToolCall:
		r.ToolCall = &ToolCall{
			ToolCallID:  v.Call.ID,
			Kind:        v.Call.Kind,
			Status:      v.Call.Status,
			RawInput:    v.Call.RawInput,
			Description: v.Call.Description,
		}
	case domain.ToolResult:
		r.ToolCallID = v.ToolCallID
		r.Status = v.Status
		r.IsError = v.IsError
	}
	return r
}

func (r *Record) setMetering(m domain.Metering) {
	if m.CostUSD != 0 {
		cost := m.CostUSD
		r.CostUSD = &cost
	}
	r.CumulativeCostUSD = m.CumulativeCostUSD
	r.ContextTokens = m.ContextTokens
	r.ContextLimit = m.ContextLimit
	r.Usage = m.Usage
	r.Metrics = m.Metrics
	if m.Delegation != nil {
		r.DelegationID = m.Delegation.ID
		r.DelegationTargetAgentID = m.Delegation.TargetAgentID
		r.DelegationEventType = string(m.Delegation.Type)
	}
}
