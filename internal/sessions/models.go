package sessions

import (
	"github.com/emiliopalmerini/mtranscript/internal/interleave"
	"github.com/emiliopalmerini/mtranscript/internal/ports"
	"github.com/emiliopalmerini/mtranscript/internal/replay"
)

type SessionsData struct {
	Sessions []ports.SessionSummary `json:"sessions"`
	Limit    int                    `json:"limit"`
}

// SessionDetail is the full reconstruction of a session with every turn
// interleaved, keyed by turn id.
type SessionDetail struct {
	replay.View
	Blocks map[string]interleave.Result `json:"blocks"`
}

type errorResponse struct {
	Error string `json:"error"`
}
