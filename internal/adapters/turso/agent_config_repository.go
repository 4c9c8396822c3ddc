package turso

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/emiliopalmerini/mtranscript/internal/domain"
	"github.com/emiliopalmerini/mtranscript/internal/turns"
)

type AgentConfigRepository struct {
	db *sql.DB
}

func NewAgentConfigRepository(db *sql.DB) *AgentConfigRepository {
	return &AgentConfigRepository{db: db}
}

// GetByID returns nil without error when the config is unknown.
func (r *AgentConfigRepository) GetByID(ctx context.Context, id string) (*domain.AgentConfig, error) {
	var cfg domain.AgentConfig
	err := r.db.QueryRowContext(ctx,
		`SELECT id, provider, model, label FROM agent_configs WHERE id = ?`, id,
	).Scan(&cfg.ID, &cfg.Provider, &cfg.Model, &cfg.Label)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get agent config: %w", err)
	}
	return &cfg, nil
}

func (r *AgentConfigRepository) Upsert(ctx context.Context, cfg *domain.AgentConfig) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO agent_configs (id, provider, model, label)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			provider = excluded.provider,
			model = excluded.model,
			label = excluded.label,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
	`, cfg.ID, cfg.Provider, cfg.Model, cfg.Label)
	if err != nil {
		return fmt.Errorf("failed to upsert agent config: %w", err)
	}
	return nil
}

// Requester adapts the repository to the turn label resolver. Lookups run
// synchronously; errors and unknown ids answer ok=false.
func (r *AgentConfigRepository) Requester(ctx context.Context) turns.RequestAgentConfig {
	return func(configID string, callback func(domain.AgentConfig, bool)) {
		cfg, err := r.GetByID(ctx, configID)
		if err != nil || cfg == nil {
			callback(domain.AgentConfig{}, false)
			return
		}
		callback(*cfg, true)
	}
}
