package telemetry

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

type countingCounter struct {
	noop.Int64Counter
	mu    sync.Mutex
	total int64
	ops   []string
}

func (c *countingCounter) Add(_ context.Context, incr int64, opts ...metric.AddOption) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.total += incr
	cfg := metric.NewAddConfig(opts)
	attrs := cfg.Attributes()
	if v, ok := attrs.Value(attribute.Key("op")); ok {
		c.ops = append(c.ops, v.AsString())
	}
}

type countingMeter struct {
	noop.Meter
	counters map[string]*countingCounter
}

func (m *countingMeter) Int64Counter(name string, _ ...metric.Int64CounterOption) (metric.Int64Counter, error) {
	c := &countingCounter{}
	m.counters[name] = c
	return c, nil
}

func TestCartMetricsCounts(t *testing.T) {
	meter := &countingMeter{counters: map[string]*countingCounter{}}
	m, err := NewCartMetricsWithMeter(meter)
	require.NoError(t, err)

	ctx := context.Background()
	m.Mutation(ctx, "add")
	m.Mutation(ctx, "remove")
	m.PersistFailure(ctx)

	assert.Equal(t, int64(2), meter.counters["cart.mutations"].total)
	assert.Equal(t, []string{"add", "remove"}, meter.counters["cart.mutations"].ops)
	assert.Equal(t, int64(1), meter.counters["cart.persist.failures"].total)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *CartMetrics
	m.Mutation(context.Background(), "add")
	m.PersistFailure(context.Background())

	global, err := NewCartMetrics()
	require.NoError(t, err)
	global.Mutation(context.Background(), "clear")
}
