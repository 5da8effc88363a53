package config

import (
	"context"
	"errors"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	loadCounterOnce sync.Once
	loadCounter     metric.Int64Counter
)

// recordLoad counts startup configuration loads by environment and
// outcome, so a crash-looping process with a bad env shows up on a
// dashboard instead of only in restart logs.
func recordLoad(ctx context.Context, env string, err error) {
	loadCounterOnce.Do(func() {
		c, meterErr := otel.Meter("groupcar-server").Int64Counter("config.load.total")
		if meterErr == nil {
			loadCounter = c
		}
	})
	if loadCounter == nil {
		return
	}
	if env == "" {
		env = "unknown"
	}
	loadCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("env", env),
		attribute.String("outcome", loadOutcome(err)),
	))
}

func loadOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, errInvalidConfig):
		return "invalid"
	case errors.Is(err, errMalformedEnv):
		return "malformed"
	default:
		return "error"
	}
}
