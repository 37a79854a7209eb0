package diag

import (
	"context"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentation = "github.com/indigo-web/brook"

type meterSink struct {
	accepted, closed, requests metric.Int64Counter
	failures                   metric.Int64Counter
	lifetime                   metric.Float64Histogram
}

// NewMeter counts events with OpenTelemetry instruments. If meter is nil, the global
// meter provider is used.
func NewMeter(meter metric.Meter) (Sink, error) {
	if meter == nil {
		meter = otel.Meter(instrumentation)
	}

	var (
		sink meterSink
		err  error
	)

	if sink.accepted, err = meter.Int64Counter(
		"brook.connections.accepted",
		metric.WithDescription("Number of accepted connections."),
	); err != nil {
		return nil, errors.Wrap(err, "accepted counter")
	}

	if sink.closed, err = meter.Int64Counter(
		"brook.connections.closed",
		metric.WithDescription("Number of closed connections."),
	); err != nil {
		return nil, errors.Wrap(err, "closed counter")
	}

	if sink.requests, err = meter.Int64Counter(
		"brook.requests",
		metric.WithDescription("Number of requests served on closed connections."),
	); err != nil {
		return nil, errors.Wrap(err, "requests counter")
	}

	if sink.failures, err = meter.Int64Counter(
		"brook.failures",
		metric.WithDescription("Number of failures by kind."),
	); err != nil {
		return nil, errors.Wrap(err, "failures counter")
	}

	if sink.lifetime, err = meter.Float64Histogram(
		"brook.connections.lifetime",
		metric.WithDescription("Lifetime of closed connections."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, errors.Wrap(err, "lifetime histogram")
	}

	return sink, nil
}

func (m meterSink) Event(e Event) {
	ctx := context.Background()

	switch e.Kind {
	case ConnAccepted:
		m.accepted.Add(ctx, 1)
	case ConnClosed:
		m.closed.Add(ctx, 1)
		m.requests.Add(ctx, int64(e.Requests))
		m.lifetime.Record(ctx, e.Elapsed.Seconds())
	default:
		m.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", e.Kind.String())))
	}
}
