package otel

import (
	"context"
	"fmt"

	"github.com/emiliopalmerini/mtranscript/internal/domain"
	"github.com/emiliopalmerini/mtranscript/internal/ports"
)

var _ ports.MetricsExporter = (*DiscardExporter)(nil)

// DiscardExporter stands in for the OTLP exporter when no collector endpoint
// is configured. Each dropped session is reported to the logger.
type DiscardExporter struct {
	logger  ports.Logger
	dropped int
}

func NewDiscardExporter(logger ports.Logger) *DiscardExporter {
	return &DiscardExporter{logger: logger}
}

func (e *DiscardExporter) ExportSessionStats(ctx context.Context, sessionID string, stats domain.CalculatedStats) error {
	e.dropped++
	e.logger.Warn(fmt.Sprintf("no OTLP endpoint set, statistics of session %s not exported (%d turns, $%.4f)",
		sessionID, stats.Session.TotalTurns, stats.Session.TotalCostUSD))
	return nil
}

// Dropped returns how many sessions were discarded.
func (e *DiscardExporter) Dropped() int {
	return e.dropped
}

func (e *DiscardExporter) Close(ctx context.Context) error {
	return nil
}
