package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Span attributes must stay low cardinality: input URIs, titles and paths
// belong in logs, never on spans that feed metrics.

// InstrumentedFunc represents a function that can be instrumented.
type InstrumentedFunc func(ctx context.Context) error

// InstrumentOperation runs fn inside a span named operationName.
func (t *Telemetry) InstrumentOperation(ctx context.Context, operationName, component string, fn InstrumentedFunc) error {
	if t == nil || t.tracer == nil {
		return fn(ctx)
	}

	start := time.Now()
	ctx, span := t.tracer.Start(ctx, operationName)

	defer span.End()

	span.SetAttributes(
		attribute.String("component", component),
		attribute.String("operation", operationName),
	)

	err := fn(ctx)

	status := "success"
	if err != nil {
		status = "error"

		span.SetAttributes(attribute.Bool("error", true))
		span.SetStatus(codes.Error, err.Error())
	}

	span.SetAttributes(
		attribute.String("status", status),
		attribute.Float64("duration_seconds", time.Since(start).Seconds()),
	)

	return err
}

// InstrumentInquiry instruments one resolver round trip.
func (t *Telemetry) InstrumentInquiry(ctx context.Context, fn InstrumentedFunc) error {
	start := time.Now()
	err := t.InstrumentOperation(ctx, "resolver_inquire", "resolver", fn)

	t.RecordInquiry(ctx, statusOf(err), time.Since(start))

	return err
}

// InstrumentProbe instruments a stream metadata probe.
func (t *Telemetry) InstrumentProbe(ctx context.Context, fn InstrumentedFunc) error {
	err := t.InstrumentOperation(ctx, "stream_probe", "stream", fn)

	t.RecordProbe(ctx, statusOf(err))

	return err
}

// InstrumentDownload instruments one download. fn reports whether the
// transfer was skipped because the destination was already complete.
func (t *Telemetry) InstrumentDownload(ctx context.Context, fn func(ctx context.Context) (bool, error)) error {
	start := time.Now()

	t.addActiveDownloads(ctx, 1)
	defer t.addActiveDownloads(ctx, -1)

	var skipped bool

	err := t.InstrumentOperation(ctx, "download", "downloader", func(ctx context.Context) error {
		var err error
		skipped, err = fn(ctx)

		return err
	})

	status := statusOf(err)
	if err == nil {
		status = "completed"
		if skipped {
			status = "skipped"
		}
	}

	t.RecordDownload(ctx, status, time.Since(start))

	return err
}

// InstrumentDBOperation instruments history database operations.
func (t *Telemetry) InstrumentDBOperation(ctx context.Context, operation string, fn InstrumentedFunc) error {
	start := time.Now()
	err := t.InstrumentOperation(ctx, "db_"+operation, "database", fn)

	t.RecordDBOperation(ctx, operation, statusOf(err), time.Since(start))

	return err
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}

	return "success"
}
