package observability_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace"

	"github.com/motorvalue/vehicle-valuation/internal/infrastructure/observability"
)

func captureGlobalLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	original := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = original })
	return &buf
}

func TestRequestLogger(t *testing.T) {
	t.Run("stamps trace and span IDs from the active span", func(t *testing.T) {
		buf := captureGlobalLogger(t)

		sc := trace.NewSpanContext(trace.SpanContextConfig{
			TraceID: trace.TraceID{0x4b, 0xf9, 0x2f, 0x35, 0x77, 0xb3, 0x4d, 0xa6, 0xa3, 0xce, 0x92, 0x9d, 0x0e, 0x0e, 0x47, 0x36},
			SpanID:  trace.SpanID{0x00, 0xf0, 0x67, 0xaa, 0x0b, 0xa9, 0x02, 0xb7},
		})
		ctx := trace.ContextWithSpanContext(context.Background(), sc)

		logger := observability.RequestLogger(ctx)
		logger.Info().Msg("request")

		assert.Contains(t, buf.String(), sc.TraceID().String())
		assert.Contains(t, buf.String(), sc.SpanID().String())
	})

	t.Run("plain context logs without trace fields", func(t *testing.T) {
		buf := captureGlobalLogger(t)

		logger := observability.RequestLogger(context.Background())
		logger.Info().Msg("request")

		assert.NotContains(t, buf.String(), "trace_id")
		assert.NotContains(t, buf.String(), "span_id")
	})
}
