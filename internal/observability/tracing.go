package observability

import (
	"context"

	"github.com/railzwaylabs/landedcost/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

// NewTracerProvider installs the global tracer provider. Spans are sampled
// according to the parent and exported only when an exporter is registered
// on the returned provider.
func NewTracerProvider(lc fx.Lifecycle, cfg config.Config) *sdktrace.TracerProvider {
	res := resource.NewSchemaless(
		attribute.String("service.name", cfg.App.Name),
		attribute.String("service.version", cfg.App.Version),
		attribute.String("deployment.environment", cfg.App.Env),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	)
	otel.SetTracerProvider(tp)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return tp.Shutdown(ctx)
		},
	})
	return tp
}
