package interleave

import (
	"strings"
	"testing"
	"time"

	"github.com/emiliopalmerini/mtranscript/internal/domain"
)

func at(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func msg(id string, ms int64) domain.AgentMessage {
	return domain.AgentMessage{Envelope: domain.Envelope{ID: id, AgentID: "primary", Timestamp: at(ms)}, IsMessage: true}
}

func call(id string, ms int64) domain.ToolCall {
	return domain.ToolCall{
		Envelope: domain.Envelope{ID: id, AgentID: "primary", Timestamp: at(ms)},
		Call:     domain.ToolCallInfo{ID: id, Kind: "bash"},
	}
}

// shape renders blocks as "activity{t1,t2} message{m1}".
func shape(r Result) string {
	parts := make([]string, 0, len(r.Blocks))
	for _, b := range r.Blocks {
		switch b.Kind {
		case BlockMessage:
			parts = append(parts, "message{"+b.Message.ID+"}")
		case BlockCompaction:
			parts = append(parts, "compaction{"+b.Compaction.EventID+"}")
		case BlockActivity:
			ids := make([]string, 0, len(b.ToolCalls))
			for _, c := range b.ToolCalls {
				ids = append(ids, c.ID)
			}
			parts = append(parts, "activity{"+strings.Join(ids, ",")+"}")
		}
	}
	return strings.Join(parts, " ")
}

func TestBlocks(t *testing.T) {
	tests := []struct {
		name     string
		turn     domain.Turn
		expected string
	}{
		{
			name: "tool calls before a later message",
			turn: domain.Turn{
				AgentMessages: []domain.AgentMessage{msg("m1", 10)},
				ToolCalls:     []domain.ToolCall{call("t1", 5), call("t2", 6)},
			},
			expected: "activity{t1,t2} message{m1}",
		},
		{
			name: "message splits activity",
			turn: domain.Turn{
				AgentMessages: []domain.AgentMessage{msg("m1", 2), msg("m2", 5)},
				ToolCalls:     []domain.ToolCall{call("t1", 3), call("t2", 4), call("t3", 6)},
			},
			expected: "message{m1} activity{t1,t2} message{m2} activity{t3}",
		},
		{
			name: "equal timestamps put messages first",
			turn: domain.Turn{
				AgentMessages: []domain.AgentMessage{msg("m1", 5)},
				ToolCalls:     []domain.ToolCall{call("t1", 5)},
			},
			expected: "message{m1} activity{t1}",
		},
		{
			name: "equal timestamps keep input order within an array",
			turn: domain.Turn{
				ToolCalls: []domain.ToolCall{call("t2", 5), call("t1", 5)},
			},
			expected: "activity{t2,t1}",
		},
		{
			name: "compaction is its own block",
			turn: domain.Turn{
				ToolCalls:  []domain.ToolCall{call("t1", 1), call("t2", 3)},
				Compaction: &domain.Compaction{EventID: "c1", Timestamp: at(2)},
			},
			expected: "activity{t1} compaction{c1} activity{t2}",
		},
		{
			name:     "empty turn",
			turn:     domain.Turn{},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := shape(Blocks(tt.turn))
			if got != tt.expected {
				t.Errorf("Blocks() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestBlocks_AnchorsDelegations(t *testing.T) {
	delegate := call("t2", 2)
	delegate.Call.Kind = domain.DelegateToolKind
	turn := domain.Turn{
		AgentMessages: []domain.AgentMessage{msg("m1", 4)},
		ToolCalls:     []domain.ToolCall{call("t1", 1), delegate, call("t3", 5)},
		Delegations: []domain.DelegationGroup{
			{ID: "g1", DelegateToolCallID: "t2"},
			{ID: "g2", DelegateToolCallID: "elsewhere"},
		},
	}

	r := Blocks(turn)

	if len(r.Blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d (%s)", len(r.Blocks), shape(r))
	}
	if len(r.Blocks[0].Delegations) != 1 || r.Blocks[0].Delegations[0].ID != "g1" {
		t.Errorf("first activity block delegations = %+v, want [g1]", r.Blocks[0].Delegations)
	}
	if len(r.Blocks[2].Delegations) != 0 {
		t.Errorf("last activity block should carry no delegations")
	}
	if len(r.Unanchored) != 1 || r.Unanchored[0].ID != "g2" {
		t.Errorf("Unanchored = %+v, want [g2]", r.Unanchored)
	}
}

func TestBlocks_FilteredAnchorIsUnanchored(t *testing.T) {
	delegate := call("t1", 1)
	delegate.Call.Kind = domain.DelegateToolKind
	turn := domain.Turn{
		ToolCalls:   []domain.ToolCall{delegate, call("t2", 2)},
		Delegations: []domain.DelegationGroup{{ID: "g1", DelegateToolCallID: "t1"}},
	}

	r := Blocks(turn, WithToolFilter(func(c domain.ToolCall) bool { return !c.IsDelegate() }))

	if got := shape(r); got != "activity{t2}" {
		t.Errorf("Blocks() = %q, want %q", got, "activity{t2}")
	}
	if len(r.Unanchored) != 1 || r.Unanchored[0].ID != "g1" {
		t.Errorf("Unanchored = %+v, want [g1]", r.Unanchored)
	}
}

func TestBlocks_DoesNotMutateTurn(t *testing.T) {
	turn := domain.Turn{
		ToolCalls: []domain.ToolCall{call("t2", 6), call("t1", 5)},
	}
	_ = Blocks(turn)
	if turn.ToolCalls[0].ID != "t2" {
		t.Errorf("input order changed: %s first", turn.ToolCalls[0].ID)
	}
}
