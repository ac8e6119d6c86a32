package observability

import (
	"github.com/smallbiznis/tilegrid/internal/observability/logger"
	"github.com/smallbiznis/tilegrid/internal/observability/metrics"
	"github.com/smallbiznis/tilegrid/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

// Module provides the zap logger, the tracer and meter providers, the domain
// counters and the prometheus HTTP collectors.
var Module = fx.Module("observability",
	fx.Provide(LoadConfig),
	fx.Provide(
		Config.logger,
		Config.tracing,
		Config.metrics,
	),
	fx.Provide(
		logger.New,
		tracing.NewProvider,
		metrics.NewProvider,
		metrics.New,
		metrics.NewHTTPMetrics,
	),
	// The tracer provider installs itself globally; nothing else asks for it.
	fx.Invoke(func(*sdktrace.TracerProvider) {}),
)
