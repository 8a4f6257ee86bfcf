package syncer

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// MeterName is the instrumentation scope of the synchronizer metrics.
const MeterName = "todosync/syncer"

// Metrics holds the synchronizer instruments.
type Metrics struct {
	Passes       metric.Int64Counter
	PassFailures metric.Int64Counter
	PassDuration metric.Float64Histogram
	RemoteCalls  metric.Int64Counter
	Changes      metric.Int64Counter
}

// NewMetrics creates the instruments from the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.Passes, err = meter.Int64Counter("todosync.sync.passes",
		metric.WithDescription("Completed synchronization passes"),
	)
	if err != nil {
		return nil, err
	}

	m.PassFailures, err = meter.Int64Counter("todosync.sync.failures",
		metric.WithDescription("Aborted synchronization passes"),
	)
	if err != nil {
		return nil, err
	}

	m.PassDuration, err = meter.Float64Histogram("todosync.sync.duration",
		metric.WithDescription("Synchronization pass duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	m.RemoteCalls, err = meter.Int64Counter("todosync.remote.calls",
		metric.WithDescription("Remote calls issued by synchronization passes"),
	)
	if err != nil {
		return nil, err
	}

	m.Changes, err = meter.Int64Counter("todosync.sync.changes",
		metric.WithDescription("Records changed by synchronization passes"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// NoopMetrics returns instruments that record nothing.
func NoopMetrics() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider().Meter(MeterName))
	return m
}

func (m *Metrics) recordPass(ctx context.Context, report Report, err error) {
	m.PassDuration.Record(ctx, report.Duration.Seconds())
	m.RemoteCalls.Add(ctx, int64(report.RemoteCalls))
	if err != nil {
		m.PassFailures.Add(ctx, 1)
		return
	}
	m.Passes.Add(ctx, 1)

	for kind, n := range map[string]int{
		"pulled_created": report.PulledCreated,
		"pulled_updated": report.PulledUpdated,
		"adopted":        report.Adopted,
		"pushed_created": report.PushedCreated,
		"pushed_updated": report.PushedUpdated,
		"remote_deleted": report.RemoteDeleted,
		"local_deleted":  report.LocalDeleted,
	} {
		if n > 0 {
			m.Changes.Add(ctx, int64(n), metric.WithAttributes(attribute.String("kind", kind)))
		}
	}
}
