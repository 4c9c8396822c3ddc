package turns

import (
	"sync"

	"github.com/emiliopalmerini/mtranscript/internal/domain"
)

// RequestAgentConfig asks the host for the display metadata of a model
// configuration. The host calls callback with ok=false when the id is unknown.
type RequestAgentConfig func(configID string, callback func(cfg domain.AgentConfig, ok bool))

// ResolveModelLabels returns a copy of turns whose ModelLabel is taken from the
// resolved configuration of their ModelConfigID. request is called once per
// distinct config id; answers delivered after it returns are ignored.
func ResolveModelLabels(turns []domain.Turn, request RequestAgentConfig) []domain.Turn {
	out := make([]domain.Turn, len(turns))
	copy(out, turns)
	if request == nil {
		return out
	}

	var (
		mu     sync.Mutex
		closed bool
		labels = make(map[string]string)
	)
	asked := make(map[string]bool)
	for _, t := range turns {
		id := t.ModelConfigID
		if id == "" || asked[id] {
			continue
		}
		asked[id] = true
		request(id, func(cfg domain.AgentConfig, ok bool) {
			mu.Lock()
			defer mu.Unlock()
			if ok && !closed {
				labels[id] = cfg.DisplayLabel()
			}
		})
	}

	mu.Lock()
	closed = true
	mu.Unlock()

	for i := range out {
		if label := labels[out[i].ModelConfigID]; label != "" {
			out[i].ModelLabel = label
		}
	}
	return out
}
