package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/emiliopalmerini/mtranscript/internal/domain"
	"github.com/emiliopalmerini/mtranscript/internal/replay"
	"github.com/emiliopalmerini/mtranscript/internal/stats"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"short", "hello", 10, "hello"},
		{"flattens whitespace", "a\n  b\tc", 10, "a b c"},
		{"cuts", "abcdefghij", 6, "abc..."},
		{"runes", "ééééééé", 5, "éé..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertEqual(t, "truncate", tt.want, truncate(tt.in, tt.n))
		})
	}
}

func TestFormatBreakdown(t *testing.T) {
	got := formatBreakdown(map[string]int64{"read": 2, "delegate": 1, "edit": 3})
	assertEqual(t, "breakdown", "delegate=1 edit=3 read=2", got)
	assertEqual(t, "empty", "", formatBreakdown(nil))
}

func TestWithLimit(t *testing.T) {
	assertEqual(t, "no limit", "12", withLimit(12, 0))
	assertEqual(t, "limit", "12 / 50", withLimit(12, 50))
}

func TestRenderStats_Limits(t *testing.T) {
	contextLimit := int64(1000)
	view := replay.View{
		SessionID: "s",
		Stats: domain.CalculatedStats{
			Session: domain.SessionStats{
				TotalCostUSD: 1,
				TotalSteps:   3,
				Limits:       &domain.SessionLimits{MaxSteps: 10, MaxCostUSD: 4},
			},
			PerAgent: []domain.AgentStats{
				{AgentID: "primary", CurrentContextTokens: 500, MaxContextTokens: &contextLimit, ToolBreakdown: map[string]int64{"read": 1}},
			},
		},
	}

	var out bytes.Buffer
	renderStats(&out, view, stats.TimingTurns)
	for _, want := range []string{"3 / 10", "25.0%", "50.0%", "read=1", "turns timing"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestRenderStats_NoAgents(t *testing.T) {
	var out bytes.Buffer
	renderStats(&out, replay.View{}, stats.TimingLegacy)
	if !strings.Contains(out.String(), "No agent activity") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "(unnamed)") {
		t.Errorf("expected unnamed session label:\n%s", out.String())
	}
}
