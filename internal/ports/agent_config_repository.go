package ports

import (
	"context"

	"github.com/emiliopalmerini/mtranscript/internal/domain"
)

// AgentConfigRepository resolves model display metadata by config id.
type AgentConfigRepository interface {
	GetByID(ctx context.Context, id string) (*domain.AgentConfig, error)
	Upsert(ctx context.Context, cfg *domain.AgentConfig) error
}
