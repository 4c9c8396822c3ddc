package replay

import (
	"reflect"
	"strings"
	"testing"

	"github.com/emiliopalmerini/mtranscript/internal/adapters/logging"
	"github.com/emiliopalmerini/mtranscript/internal/domain"
	"github.com/emiliopalmerini/mtranscript/internal/interleave"
	"github.com/emiliopalmerini/mtranscript/internal/stats"
	"github.com/emiliopalmerini/mtranscript/internal/transcript"
)

const session = `{"type":"system","id":"s0","sessionId":"sess-1","timestamp":"2025-02-01T12:00:00Z","content":"created"}
{"type":"user","id":"u1","agentId":"primary","sessionId":"sess-1","timestamp":"2025-02-01T12:00:00Z","content":"Find the bug","isMessage":true}
{"type":"agent","id":"a1","agentId":"primary","sessionId":"sess-1","timestamp":"2025-02-01T12:00:01Z","content":"Delegating.","isMessage":true,"configId":"cfg-1","model":"sonnet"}
{"type":"tool_call","id":"t1","agentId":"primary","sessionId":"sess-1","timestamp":"2025-02-01T12:00:02Z","toolCall":{"tool_call_id":"call-1","kind":"delegate","raw_input":{"objective":"search"}},"delegationId":"d1","delegationTargetAgentId":"searcher"}
{"type":"tool_call","id":"w1","agentId":"searcher","sessionId":"sess-1","timestamp":"2025-02-01T12:00:03Z","toolCall":{"tool_call_id":"call-2","kind":"read"}}
{"type":"agent","id":"w2","agentId":"searcher","sessionId":"sess-1","timestamp":"2025-02-01T12:00:04Z","content":"It is in main.go","isMessage":true,"costUsd":0.02}
{"type":"agent","id":"m1","agentId":"primary","sessionId":"sess-1","timestamp":"2025-02-01T12:00:05Z","delegationId":"d1","delegationEventType":"completed"}
{"type":"agent","id":"a2","agentId":"primary","sessionId":"sess-1","timestamp":"2025-02-01T12:00:06Z","content":"Found it.","isMessage":true,"costUsd":0.03}
{"type":"agent","id":"e1","agentId":"primary","sessionId":"sess-1","timestamp":"2025-02-01T12:00:07Z","subtype":"request_end","finishReason":"stop"}
`

func parse(t *testing.T) []domain.Event {
	t.Helper()
	res, err := transcript.NewParser(logging.NoOp{}).Parse(strings.NewReader(session))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return res.Events
}

func TestReconstruct(t *testing.T) {
	view := Reconstruct(parse(t), Options{})

	assertEqual(t, "SessionID", "sess-1", view.SessionID)
	assertEqual(t, "len(Turns)", 1, len(view.Turns))
	assertEqual(t, "len(Delegations)", 1, len(view.Delegations))

	turn := view.Turns[0]
	assertEqual(t, "IsActive", false, turn.IsActive)
	assertEqual(t, "len(AgentMessages)", 2, len(turn.AgentMessages))
	assertEqual(t, "len(ToolCalls)", 1, len(turn.ToolCalls))
	assertEqual(t, "ModelConfigID", "cfg-1", turn.ModelConfigID)

	group := view.Delegations[0]
	assertEqual(t, "Status", domain.DelegationDone, group.Status)
	assertEqual(t, "Objective", "search", group.Objective)
	assertEqual(t, "len(group.Events)", 3, len(group.Events))

	s := view.Stats
	assertEqual(t, "TotalMessages", int64(4), s.Session.TotalMessages)
	assertEqual(t, "TotalToolCalls", int64(2), s.Session.TotalToolCalls)
	assertEqual(t, "TotalElapsedMs", int64(7000), s.Session.TotalElapsedMs)
	assertEqual(t, "PerAgent[0]", "primary", s.PerAgent[0].AgentID)
	assertEqual(t, "PerAgent[1]", "searcher", s.PerAgent[1].AgentID)
}

func TestReconstruct_LegacyTiming(t *testing.T) {
	view := Reconstruct(parse(t), Options{Timing: stats.TimingLegacy})

	primary, _ := view.Stats.Agent("primary")
	assertEqual(t, "primary ActiveTimeMs", int64(7000), primary.ActiveTimeMs)
	searcher, _ := view.Stats.Agent("searcher")
	assertEqual(t, "searcher ActiveTimeMs", int64(0), searcher.ActiveTimeMs)
}

func TestReconstruct_ResolvesModelLabels(t *testing.T) {
	var asked []string
	request := func(id string, cb func(domain.AgentConfig, bool)) {
		asked = append(asked, id)
		cb(domain.AgentConfig{ID: id, Label: "Sonnet (fast)"}, true)
	}

	view := Reconstruct(parse(t), Options{RequestAgentConfig: request})

	assertEqual(t, "asked", 1, len(asked))
	assertEqual(t, "ModelLabel", "Sonnet (fast)", view.Turns[0].ModelLabel)
}

func TestView_Blocks(t *testing.T) {
	view := Reconstruct(parse(t), Options{})

	res, ok := view.Blocks(view.Turns[0].ID)
	if !ok {
		t.Fatal("turn not found")
	}
	kinds := make([]interleave.BlockKind, 0, len(res.Blocks))
	for _, b := range res.Blocks {
		kinds = append(kinds, b.Kind)
	}
	want := []interleave.BlockKind{interleave.BlockMessage, interleave.BlockActivity, interleave.BlockMessage}
	if !reflect.DeepEqual(want, kinds) {
		t.Errorf("block kinds = %v, want %v", kinds, want)
	}
	assertEqual(t, "anchored delegations", 1, len(res.Blocks[1].Delegations))

	if _, ok := view.Blocks("missing"); ok {
		t.Error("expected missing turn")
	}
}

func TestReconstruct_UsesCache(t *testing.T) {
	events := parse(t)
	cache := stats.NewCache()

	first := Reconstruct(events, Options{Cache: cache})
	second := Reconstruct(events, Options{Cache: cache})

	assertEqual(t, "cache entries", 1, cache.Len())
	if !reflect.DeepEqual(first.Stats, second.Stats) {
		t.Error("cached stats differ")
	}
}

func TestReconstruct_Empty(t *testing.T) {
	view := Reconstruct(nil, Options{})

	assertEqual(t, "SessionID", "", view.SessionID)
	assertEqual(t, "len(Turns)", 0, len(view.Turns))
	assertEqual(t, "len(PerAgent)", 0, len(view.Stats.PerAgent))
}

func assertEqual[T comparable](t *testing.T, name string, expected, actual T) {
	t.Helper()
	if expected != actual {
		t.Errorf("%s: expected %v, got %v", name, expected, actual)
	}
}
