package observability

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/groupcar/groupcar-server/internal/config"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
)

// NewLogger builds the process logger. In prod profiles it emits JSON;
// when OTLP log export is enabled the otelslog bridge fans records out
// to the collector alongside the local handler.
func NewLogger(ctx context.Context, cfg *config.Config) (*slog.Logger, *sdklog.LoggerProvider, error) {
	level := slog.LevelInfo
	if cfg.Env == config.EnvDevelopment {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Env == config.EnvProduction {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}

	if !cfg.OTELLogsEnabled {
		return slog.New(handler), nil, nil
	}

	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(cfg.OTELExporterOTLPEndpoint)}
	if cfg.OTELExporterOTLPInsecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	}
	exporter, err := otlploggrpc.New(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("create otlp log exporter: %w", err)
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", cfg.OTELServiceName),
			attribute.String("deployment.environment", cfg.Env),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("create log resource: %w", err)
	}
	lp := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)
	bridged := otelslog.NewHandler("groupcar-server", otelslog.WithLoggerProvider(lp))
	return slog.New(fanoutHandler{local: handler, remote: bridged}), lp, nil
}

// fanoutHandler duplicates records to the local handler and the OTLP
// bridge. Enabled checks only the local handler so log levels stay
// governed by one knob.
type fanoutHandler struct {
	local  slog.Handler
	remote slog.Handler
}

func (h fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.local.Enabled(ctx, level)
}

func (h fanoutHandler) Handle(ctx context.Context, rec slog.Record) error {
	if err := h.local.Handle(ctx, rec.Clone()); err != nil {
		return err
	}
	return h.remote.Handle(ctx, rec)
}

func (h fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return fanoutHandler{local: h.local.WithAttrs(attrs), remote: h.remote.WithAttrs(attrs)}
}

func (h fanoutHandler) WithGroup(name string) slog.Handler {
	return fanoutHandler{local: h.local.WithGroup(name), remote: h.remote.WithGroup(name)}
}
