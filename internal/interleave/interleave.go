// Package interleave merges a turn's messages and tool calls into a
// chronological sequence of render blocks.
package interleave

import (
	"sort"
	"time"

	"github.com/emiliopalmerini/mtranscript/internal/domain"
)

// BlockKind identifies the type of a render block.
type BlockKind string

const (
	BlockMessage    BlockKind = "message"
	BlockActivity   BlockKind = "activity"
	BlockCompaction BlockKind = "compaction"
)

// Block is one render unit. Exactly one of Message, ToolCalls or Compaction
// is populated, according to Kind.
type Block struct {
	Kind        BlockKind                `json:"kind"`
	Message     *domain.AgentMessage     `json:"message,omitempty"`
	ToolCalls   []domain.ToolCall        `json:"toolCalls,omitempty"`
	Delegations []domain.DelegationGroup `json:"delegations,omitempty"`
	Compaction  *domain.Compaction       `json:"compaction,omitempty"`
}

// Result is the interleaved form of a turn.
type Result struct {
	Blocks []Block `json:"blocks"`
	// Unanchored holds delegation groups whose tool call is in no block.
	Unanchored []domain.DelegationGroup `json:"unanchored"`
}

type options struct {
	keepTool func(domain.ToolCall) bool
}

// Option configures Blocks.
type Option func(*options)

// WithToolFilter hides tool calls for which keep returns false.
func WithToolFilter(keep func(domain.ToolCall) bool) Option {
	return func(o *options) { o.keepTool = keep }
}

type item struct {
	at         time.Time
	message    *domain.AgentMessage
	toolCall   *domain.ToolCall
	compaction *domain.Compaction
}

// Blocks interleaves the turn. Events are ordered by timestamp; on equal
// timestamps agent messages come before tool calls, and the compaction marker
// after both.
func Blocks(turn domain.Turn, opts ...Option) Result {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	items := make([]item, 0, len(turn.AgentMessages)+len(turn.ToolCalls)+1)
	for i := range turn.AgentMessages {
		m := turn.AgentMessages[i]
		items = append(items, item{at: m.Timestamp, message: &m})
	}
	for i := range turn.ToolCalls {
		c := turn.ToolCalls[i]
		if o.keepTool != nil && !o.keepTool(c) {
			continue
		}
		items = append(items, item{at: c.Timestamp, toolCall: &c})
	}
	if turn.Compaction != nil {
		c := *turn.Compaction
		items = append(items, item{at: c.Timestamp, compaction: &c})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].at.Before(items[j].at)
	})

	groups := make(map[string]domain.DelegationGroup, len(turn.Delegations))
	for _, g := range turn.Delegations {
		groups[g.DelegateToolCallID] = g
	}
	anchored := make(map[string]bool, len(groups))

	result := Result{Blocks: make([]Block, 0), Unanchored: make([]domain.DelegationGroup, 0)}
	var pending *Block
	flush := func() {
		if pending != nil {
			result.Blocks = append(result.Blocks, *pending)
			pending = nil
		}
	}

	for _, it := range items {
		switch {
		case it.message != nil:
			flush()
			result.Blocks = append(result.Blocks, Block{Kind: BlockMessage, Message: it.message})
		case it.compaction != nil:
			flush()
			result.Blocks = append(result.Blocks, Block{Kind: BlockCompaction, Compaction: it.compaction})
		case it.toolCall != nil:
			if pending == nil {
				pending = &Block{Kind: BlockActivity}
			}
			pending.ToolCalls = append(pending.ToolCalls, *it.toolCall)
			if g, ok := groups[it.toolCall.Call.ID]; ok && !anchored[g.DelegateToolCallID] {
				anchored[g.DelegateToolCallID] = true
				pending.Delegations = append(pending.Delegations, g)
			}
		}
	}
	flush()

	for _, g := range turn.Delegations {
		if !anchored[g.DelegateToolCallID] {
			result.Unanchored = append(result.Unanchored, g)
		}
	}
	return result
}
