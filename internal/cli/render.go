package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/emiliopalmerini/mtranscript/internal/domain"
	"github.com/emiliopalmerini/mtranscript/internal/interleave"
	"github.com/emiliopalmerini/mtranscript/internal/pkg/tui/components"
	"github.com/emiliopalmerini/mtranscript/internal/pkg/tui/theme"
	"github.com/emiliopalmerini/mtranscript/internal/replay"
	"github.com/emiliopalmerini/mtranscript/internal/stats"
	"github.com/emiliopalmerini/mtranscript/internal/util"
)

const gaugeWidth = 20

func renderStats(w io.Writer, view replay.View, timing stats.Timing) {
	s := theme.Default()
	session := view.Stats.Session

	fmt.Fprintln(w, s.Title.Render("Session "+sessionLabel(view.SessionID)))

	fmt.Fprintln(w, s.Subtitle.Render("Totals"))
	fmt.Fprintf(w, "  Started:      %s\n", util.FormatTimestamp(session.StartTimestamp))
	fmt.Fprintf(w, "  Elapsed:      %s (%s timing)\n", util.FormatDuration(session.TotalElapsedMs), timing)
	fmt.Fprintf(w, "  Messages:     %s\n", util.FormatNumber(session.TotalMessages))
	fmt.Fprintf(w, "  Tool calls:   %s\n", util.FormatNumber(session.TotalToolCalls))
	fmt.Fprintf(w, "  Tokens:       %s in / %s out\n",
		util.FormatNumber(session.TotalInputTokens), util.FormatNumber(session.TotalOutputTokens))
	fmt.Fprintf(w, "  Steps:        %s\n", withLimit(session.TotalSteps, limitOf(session.Limits, func(l domain.SessionLimits) int64 { return l.MaxSteps })))
	fmt.Fprintf(w, "  Turns:        %s\n", withLimit(session.TotalTurns, limitOf(session.Limits, func(l domain.SessionLimits) int64 { return l.MaxTurns })))
	fmt.Fprintf(w, "  Cost:         %s\n", util.FormatCost(session.TotalCostUSD))
	if session.Limits != nil && session.Limits.MaxCostUSD > 0 {
		fmt.Fprintf(w, "  Budget:       %s of %s\n",
			components.NewGauge(gaugeWidth, session.CostPercent()).View(), util.FormatCost(session.Limits.MaxCostUSD))
	}
	fmt.Fprintln(w)

	if len(view.Stats.PerAgent) == 0 {
		fmt.Fprintln(w, s.Muted.Render("  No agent activity"))
		return
	}

	fmt.Fprintln(w, s.Subtitle.Render("Agents"))
	for _, a := range view.Stats.PerAgent {
		fmt.Fprintf(w, "  %s\n", s.Highlighted.Render(a.AgentID))
		fmt.Fprintf(w, "    Messages:   %d   Tool calls: %d   Results: %d\n", a.MessageCount, a.ToolCallCount, a.ToolResultCount)
		fmt.Fprintf(w, "    Cost:       %s   Active: %s\n", util.FormatCost(a.CostUSD), util.FormatDuration(a.ActiveTimeMs))
		if a.MaxContextTokens != nil {
			fmt.Fprintf(w, "    Context:    %s (%s / %s)\n", components.NewGauge(gaugeWidth, a.ContextPercent()).View(),
				util.FormatNumber(a.CurrentContextTokens), util.FormatNumber(*a.MaxContextTokens))
		} else {
			fmt.Fprintf(w, "    Context:    %s tokens\n", util.FormatNumber(a.CurrentContextTokens))
		}
		if len(a.ToolBreakdown) > 0 {
			fmt.Fprintf(w, "    Tools:      %s\n", s.Muted.Render(formatBreakdown(a.ToolBreakdown)))
		}
	}
}

func renderTurns(w io.Writer, view replay.View, showBlocks bool, opts ...interleave.Option) {
	s := theme.Default()

	fmt.Fprintln(w, s.Title.Render(fmt.Sprintf("Session %s: %d turns", sessionLabel(view.SessionID), len(view.Turns))))
	if len(view.Turns) == 0 {
		fmt.Fprintln(w, s.Muted.Render("  No turns"))
		return
	}

	for i, t := range view.Turns {
		header := fmt.Sprintf("Turn %d  %s", i+1, t.AgentID)
		if t.ModelLabel != "" {
			header += "  " + t.ModelLabel
		}
		fmt.Fprintf(w, "%s  %s  %s\n", s.Subtitle.Render(header), s.Muted.Render(t.StartTime.UTC().Format("15:04:05")), turnStatus(s, t))

		if t.UserMessage != nil {
			fmt.Fprintln(w, s.Bold.Render("  "+truncate(t.UserMessage.Content, 100)))
		}

		if !showBlocks {
			fmt.Fprintln(w, s.Muted.Render(fmt.Sprintf("  %d messages, %d tool calls, %d delegations",
				len(t.AgentMessages), len(t.ToolCalls), len(t.Delegations))))
			continue
		}

		result := interleave.Blocks(t, opts...)
		for _, b := range result.Blocks {
			renderBlock(w, s, b)
		}
		for _, g := range result.Unanchored {
			fmt.Fprintln(w, delegationStyle(s, g).Render(delegationLine(g)))
		}
	}
}

func renderBlock(w io.Writer, s *theme.Styles, b interleave.Block) {
	switch b.Kind {
	case interleave.BlockMessage:
		fmt.Fprintln(w, s.Message.Render("> "+truncate(b.Message.Content, 100)))
	case interleave.BlockActivity:
		kinds := make(map[string]int64, len(b.ToolCalls))
		for _, tc := range b.ToolCalls {
			kinds[tc.Kind()]++
		}
		fmt.Fprintln(w, s.Activity.Render(fmt.Sprintf("* %d tool calls: %s", len(b.ToolCalls), formatBreakdown(kinds))))
		for _, g := range b.Delegations {
			fmt.Fprintln(w, delegationStyle(s, g).Render(delegationLine(g)))
		}
	case interleave.BlockCompaction:
		line := "~ context compacted"
		if b.Compaction.Summary != "" {
			line += ": " + truncate(b.Compaction.Summary, 80)
		}
		fmt.Fprintln(w, s.Compaction.Render(line))
	}
}

func turnStatus(s *theme.Styles, t domain.Turn) string {
	if t.IsActive || t.EndTime == nil {
		return s.Warning.Render("active")
	}
	return s.Success.Render(util.FormatDuration(t.Duration(*t.EndTime).Milliseconds()))
}

func delegationStyle(s *theme.Styles, g domain.DelegationGroup) lipgloss.Style {
	return s.Delegation.Foreground(theme.DelegationColor(string(g.Status)))
}

func delegationLine(g domain.DelegationGroup) string {
	target := g.TargetAgentID
	if target == "" {
		target = "sub-agent"
	}
	line := fmt.Sprintf("-> %s [%s] %d events", target, g.Status, len(g.Events))
	if g.Objective != "" {
		line += ": " + truncate(g.Objective, 60)
	}
	return line
}

func formatBreakdown(counts map[string]int64) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[k]))
	}
	return strings.Join(parts, " ")
}

func withLimit(value, limit int64) string {
	if limit <= 0 {
		return util.FormatNumber(value)
	}
	return fmt.Sprintf("%s / %s", util.FormatNumber(value), util.FormatNumber(limit))
}

func limitOf(l *domain.SessionLimits, pick func(domain.SessionLimits) int64) int64 {
	if l == nil {
		return 0
	}
	return pick(*l)
}

func sessionLabel(id string) string {
	if id == "" {
		return "(unnamed)"
	}
	return id
}

// truncate flattens s to one line and cuts it to n runes.
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
