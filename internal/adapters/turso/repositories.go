package turso

import (
	"database/sql"

	"github.com/emiliopalmerini/mtranscript/internal/ports"
)

var (
	_ ports.EventRepository       = (*EventRepository)(nil)
	_ ports.AgentConfigRepository = (*AgentConfigRepository)(nil)
	_ ports.TranscriptStorage     = (*TranscriptRepository)(nil)
)

// Repositories holds the turso implementations as port interfaces.
type Repositories struct {
	Events       ports.EventRepository
	AgentConfigs *AgentConfigRepository
	Transcripts  ports.TranscriptStorage
}

// NewRepositories creates all repositories over one connection.
func NewRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		Events:       NewEventRepository(db),
		AgentConfigs: NewAgentConfigRepository(db),
		Transcripts:  NewTranscriptRepository(db),
	}
}
