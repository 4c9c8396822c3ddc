package domain

import "time"

// Compaction marks the point where the conversation context was summarized.
type Compaction struct {
	EventID   string    `json:"eventId"`
	Timestamp time.Time `json:"timestamp"`
	Summary   string    `json:"summary,omitempty"`
}

// Turn is one user prompt plus the responding agent's full activity arc.
type Turn struct {
	ID            string            `json:"id"`
	UserMessage   *UserMessage      `json:"userMessage,omitempty"`
	AgentMessages []AgentMessage    `json:"agentMessages"`
	ToolCalls     []ToolCall        `json:"toolCalls"`
	Delegations   []DelegationGroup `json:"delegations"`
	AgentID       string            `json:"agentId"`
	StartTime     time.Time         `json:"startTime"`
	EndTime       *time.Time        `json:"endTime,omitempty"`
	IsActive      bool              `json:"isActive"`
	ModelLabel    string            `json:"modelLabel,omitempty"`
	ModelConfigID string            `json:"modelConfigId,omitempty"`
	Compaction    *Compaction       `json:"compaction,omitempty"`
}

// Duration returns the span of the turn. Open turns are measured up to until.
func (t Turn) Duration(until time.Time) time.Duration {
	end := until
	if t.EndTime != nil {
		end = *t.EndTime
	}
	if end.Before(t.StartTime) {
		return 0
	}
	return end.Sub(t.StartTime)
}

// AgentConfig is the display metadata of a model configuration.
type AgentConfig struct {
	ID       string `json:"id"`
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
	Label    string `json:"label,omitempty"`
}

// DisplayLabel prefers the explicit label, then provider/model.
func (c AgentConfig) DisplayLabel() string {
	if c.Label != "" {
		return c.Label
	}
	return ModelRef{Provider: c.Provider, Model: c.Model}.Label()
}
