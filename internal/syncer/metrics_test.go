package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// countingMeter sums every Int64Counter by instrument name.
type countingMeter struct {
	noop.Meter

	mu     sync.Mutex
	totals map[string]int64
}

type countingCounter struct {
	noop.Int64Counter
	name  string
	meter *countingMeter
}

func (c countingCounter) Add(ctx context.Context, incr int64, opts ...metric.AddOption) {
	c.meter.mu.Lock()
	defer c.meter.mu.Unlock()
	c.meter.totals[c.name] += incr
}

func (m *countingMeter) Int64Counter(name string, opts ...metric.Int64CounterOption) (metric.Int64Counter, error) {
	return countingCounter{name: name, meter: m}, nil
}

func (m *countingMeter) total(name string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totals[name]
}

func TestMetrics_RecordPass(t *testing.T) {
	meter := &countingMeter{totals: make(map[string]int64)}
	m, err := NewMetrics(meter)
	require.NoError(t, err)
	ctx := context.Background()

	m.recordPass(ctx, Report{PushedCreated: 2, LocalDeleted: 1, RemoteCalls: 3}, nil)
	m.recordPass(ctx, Report{RemoteCalls: 1}, errors.New("pull: status 503"))

	assert.Equal(t, int64(1), meter.total("todosync.sync.passes"))
	assert.Equal(t, int64(1), meter.total("todosync.sync.failures"))
	assert.Equal(t, int64(4), meter.total("todosync.remote.calls"))
	assert.Equal(t, int64(3), meter.total("todosync.sync.changes"))
}

func TestNoopMetrics(t *testing.T) {
	m := NoopMetrics()
	require.NotNil(t, m)
	m.recordPass(context.Background(), Report{PulledCreated: 1}, nil)
}
