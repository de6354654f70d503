// Package telemetry expone los contadores OpenTelemetry del carrito.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "babyfood-store/cart"

// CartMetrics registra mutaciones y fallas de persistencia
type CartMetrics struct {
	mutations       metric.Int64Counter
	persistFailures metric.Int64Counter
}

// NewCartMetrics crea los contadores con el MeterProvider global.
// Sin SDK instalado el proveedor global no registra nada.
func NewCartMetrics() (*CartMetrics, error) {
	return NewCartMetricsWithMeter(otel.Meter(meterName))
}

func NewCartMetricsWithMeter(meter metric.Meter) (*CartMetrics, error) {
	mutations, err := meter.Int64Counter(
		"cart.mutations",
		metric.WithDescription("Cart mutations applied in memory"),
	)
	if err != nil {
		return nil, err
	}
	failures, err := meter.Int64Counter(
		"cart.persist.failures",
		metric.WithDescription("Cart state writes that exhausted their retries"),
	)
	if err != nil {
		return nil, err
	}
	return &CartMetrics{mutations: mutations, persistFailures: failures}, nil
}

// Mutation cuenta una operación aplicada (add, update, remove, clear, reconcile)
func (m *CartMetrics) Mutation(ctx context.Context, op string) {
	if m == nil {
		return
	}
	m.mutations.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}

// PersistFailure cuenta una escritura perdida
func (m *CartMetrics) PersistFailure(ctx context.Context) {
	if m == nil {
		return
	}
	m.persistFailures.Add(ctx, 1)
}
