package otel

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/emiliopalmerini/mtranscript/internal/domain"
)

const (
	serviceName    = "mtranscript"
	serviceVersion = "1.0.0"
)

// Exporter exports session statistics to an OTEL Collector.
type Exporter struct {
	provider  *sdkmetric.MeterProvider
	recorders *recorders
}

// recorders are the instruments fed by one CalculatedStats.
type recorders struct {
	tokens     metric.Int64Counter
	cost       metric.Float64Counter
	toolCalls  metric.Int64Counter
	messages   metric.Int64Counter
	activeTime metric.Float64Histogram
	elapsed    metric.Float64Histogram
	contextPct metric.Float64Histogram
	sessions   metric.Int64Counter
}

// NewExporter creates an OTLP gRPC metrics exporter.
func NewExporter(ctx context.Context, cfg Config) (*Exporter, error) {
	if !cfg.Enabled || cfg.Endpoint == "" {
		return nil, fmt.Errorf("OTEL exporter is disabled or endpoint not configured")
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts,
			otlpmetricgrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
			otlpmetricgrpc.WithInsecure(),
		)
	}

	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(provider)

	rec, err := newRecorders(provider.Meter(serviceName))
	if err != nil {
		return nil, err
	}
	return &Exporter{provider: provider, recorders: rec}, nil
}

func newRecorders(meter metric.Meter) (*recorders, error) {
	var (
		r   recorders
		err error
	)
	if r.tokens, err = meter.Int64Counter("mtranscript_agent_tokens_total",
		metric.WithDescription("Tokens used per agent"),
		metric.WithUnit("{token}"),
	); err != nil {
		return nil, fmt.Errorf("creating tokens counter: %w", err)
	}
	if r.cost, err = meter.Float64Counter("mtranscript_agent_cost_usd",
		metric.WithDescription("Cost per agent in USD"),
		metric.WithUnit("USD"),
	); err != nil {
		return nil, fmt.Errorf("creating cost counter: %w", err)
	}
	if r.toolCalls, err = meter.Int64Counter("mtranscript_agent_tool_calls_total",
		metric.WithDescription("Tool calls per agent and kind"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, fmt.Errorf("creating tool calls counter: %w", err)
	}
	if r.messages, err = meter.Int64Counter("mtranscript_agent_messages_total",
		metric.WithDescription("Messages per agent"),
		metric.WithUnit("{message}"),
	); err != nil {
		return nil, fmt.Errorf("creating messages counter: %w", err)
	}
	if r.activeTime, err = meter.Float64Histogram("mtranscript_agent_active_seconds",
		metric.WithDescription("Active time per agent"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating active time histogram: %w", err)
	}
	if r.elapsed, err = meter.Float64Histogram("mtranscript_session_elapsed_seconds",
		metric.WithDescription("Session elapsed time"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating elapsed histogram: %w", err)
	}
	if r.contextPct, err = meter.Float64Histogram("mtranscript_agent_context_percent",
		metric.WithDescription("Context window usage per agent"),
		metric.WithUnit("%"),
	); err != nil {
		return nil, fmt.Errorf("creating context histogram: %w", err)
	}
	if r.sessions, err = meter.Int64Counter("mtranscript_sessions_total",
		metric.WithDescription("Sessions exported"),
		metric.WithUnit("{session}"),
	); err != nil {
		return nil, fmt.Errorf("creating sessions counter: %w", err)
	}
	return &r, nil
}

// ExportSessionStats records one session's statistics, one data point per agent.
func (e *Exporter) ExportSessionStats(ctx context.Context, sessionID string, stats domain.CalculatedStats) error {
	e.recorders.record(ctx, sessionID, stats)
	return nil
}

func (r *recorders) record(ctx context.Context, sessionID string, stats domain.CalculatedStats) {
	session := attribute.String("session_id", sessionID)

	for _, a := range stats.PerAgent {
		opt := metric.WithAttributes(session, attribute.String("agent_id", a.AgentID))
		r.tokens.Add(ctx, a.InputTokens+a.OutputTokens, opt)
		r.cost.Add(ctx, a.CostUSD, opt)
		r.messages.Add(ctx, a.MessageCount, opt)
		r.activeTime.Record(ctx, float64(a.ActiveTimeMs)/1000, opt)
		if a.MaxContextTokens != nil {
			r.contextPct.Record(ctx, a.ContextPercent(), opt)
		}
		for kind, n := range a.ToolBreakdown {
			r.toolCalls.Add(ctx, n, metric.WithAttributes(session,
				attribute.String("agent_id", a.AgentID),
				attribute.String("tool_kind", kind),
			))
		}
	}

	opt := metric.WithAttributes(session)
	r.elapsed.Record(ctx, float64(stats.Session.TotalElapsedMs)/1000, opt)
	r.sessions.Add(ctx, 1, opt)
}

// Close shuts down the exporter and flushes any pending metrics.
func (e *Exporter) Close(ctx context.Context) error {
	return e.provider.Shutdown(ctx)
}
