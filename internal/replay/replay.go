// Package replay reconstructs the full view of a session from its events.
package replay

import (
	"github.com/emiliopalmerini/mtranscript/internal/adapters/logging"
	"github.com/emiliopalmerini/mtranscript/internal/delegation"
	"github.com/emiliopalmerini/mtranscript/internal/domain"
	"github.com/emiliopalmerini/mtranscript/internal/interleave"
	"github.com/emiliopalmerini/mtranscript/internal/ports"
	"github.com/emiliopalmerini/mtranscript/internal/stats"
	"github.com/emiliopalmerini/mtranscript/internal/turns"
)

// Options configures Reconstruct. The zero value is usable.
type Options struct {
	Limits *domain.SessionLimits
	Timing stats.Timing
	Logger ports.Logger
	// RequestAgentConfig resolves turn model labels when set.
	RequestAgentConfig turns.RequestAgentConfig
	// Cache memoizes statistics per session when set.
	Cache *stats.Cache
}

// View is the reconstructed session.
type View struct {
	SessionID   string                   `json:"sessionId"`
	Turns       []domain.Turn            `json:"turns"`
	Delegations []domain.DelegationGroup `json:"delegations"`
	Stats       domain.CalculatedStats   `json:"stats"`
}

// Reconstruct runs delegation grouping, turn building and statistics over
// events.
func Reconstruct(events []domain.Event, opts Options) View {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NoOp{}
	}

	groups := delegation.Group(events, logger)
	ts := turns.Build(events, groups)
	if opts.RequestAgentConfig != nil {
		ts = turns.ResolveModelLabels(ts, opts.RequestAgentConfig)
	}

	sessionID := SessionID(events)
	statOpts := stats.Options{Limits: opts.Limits, Timing: opts.Timing, Turns: ts}

	var calculated domain.CalculatedStats
	if opts.Cache != nil {
		calculated = opts.Cache.Calculate(sessionID, events, statOpts)
	} else {
		calculated = stats.Calculate(events, statOpts)
	}

	return View{SessionID: sessionID, Turns: ts, Delegations: groups, Stats: calculated}
}

// Turn returns the turn with the given id.
func (v View) Turn(id string) (domain.Turn, bool) {
	for _, t := range v.Turns {
		if t.ID == id {
			return t, true
		}
	}
	return domain.Turn{}, false
}

// Blocks interleaves the turn with the given id.
func (v View) Blocks(turnID string, opts ...interleave.Option) (interleave.Result, bool) {
	t, ok := v.Turn(turnID)
	if !ok {
		return interleave.Result{}, false
	}
	return interleave.Blocks(t, opts...), true
}

// SessionID returns the first session id found in events.
func SessionID(events []domain.Event) string {
	for _, e := range events {
		if id := e.Env().SessionID; id != "" {
			return id
		}
	}
	return ""
}
