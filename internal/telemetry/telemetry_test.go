package telemetry_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/italolelis/media_downloader/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestNew_Disabled(t *testing.T) {
	tel, err := telemetry.New(context.Background(), telemetry.Config{Exporter: telemetry.ExporterNone})
	require.NoError(t, err)

	assert.False(t, tel.Enabled())

	called := false
	err = tel.InstrumentInquiry(context.Background(), func(ctx context.Context) error {
		called = true

		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)

	rec := httptest.NewRecorder()
	tel.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNew_UnknownExporter(t *testing.T) {
	_, err := telemetry.New(context.Background(), telemetry.Config{Exporter: "statsd"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown telemetry exporter")
}

func TestNilTelemetry_PassesThrough(t *testing.T) {
	var tel *telemetry.Telemetry

	wantErr := errors.New("boom")
	err := tel.InstrumentDBOperation(context.Background(), "record", func(ctx context.Context) error {
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)

	skippedCalled := false
	err = tel.InstrumentDownload(context.Background(), func(ctx context.Context) (bool, error) {
		skippedCalled = true

		return true, nil
	})
	require.NoError(t, err)
	assert.True(t, skippedCalled)
	require.NoError(t, tel.Shutdown(context.Background()))
}

func TestPrometheus_ServesMetrics(t *testing.T) {
	ctx := context.Background()

	tel, err := telemetry.New(ctx, telemetry.Config{
		Exporter:    telemetry.ExporterPrometheus,
		ServiceName: "media_downloader_test",
	})
	require.NoError(t, err)

	t.Cleanup(func() { _ = tel.Shutdown(ctx) })

	err = tel.InstrumentDownload(ctx, func(ctx context.Context) (bool, error) {
		assert.True(t, trace.SpanContextFromContext(ctx).IsValid(), "download should run inside a span")
		tel.RecordBytes(ctx, 1000)

		return false, nil
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	tel.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "downloads")
	assert.Contains(t, rec.Body.String(), `status="completed"`)
}
