package ports

import (
	"context"

	"github.com/emiliopalmerini/mtranscript/internal/domain"
)

// MetricsExporter exports session statistics to an external observability system.
type MetricsExporter interface {
	// ExportSessionStats exports the calculated statistics of one session.
	ExportSessionStats(ctx context.Context, sessionID string, stats domain.CalculatedStats) error
	// Close shuts down the exporter and flushes any pending metrics.
	Close(ctx context.Context) error
}
