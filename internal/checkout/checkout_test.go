package checkout

import (
	"context"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"babyfood-store/internal/models"
)

func sampleState() models.CartState {
	return models.CartState{Lines: []models.CartLine{
		{ProductID: "papilla-de-pera", VariantID: "B", Quantity: 2, UnitPrice: 8000, Title: "Papilla de Pera"},
		{ProductID: "snack-de-manzana", Quantity: 1, UnitPrice: 3000, Title: "Snack de Manzana"},
	}}
}

func TestBuildOrder(t *testing.T) {
	b := NewOrderBuilder(" usd ")

	order, err := b.Build("sid-1", sampleState())
	require.NoError(t, err)

	_, err = ulid.Parse(order.Reference)
	require.NoError(t, err)
	assert.Equal(t, "USD", order.Currency)
	assert.Equal(t, 3, order.TotalItems)
	assert.Equal(t, int64(19000), order.Subtotal)
	assert.Equal(t, "sid-1", order.SessionID)

	_, err = b.Build("sid-1", models.CartState{})
	require.ErrorIs(t, err, ErrEmptyCart)
	assert.Equal(t, "MXN", NewOrderBuilder("").currency)
}

func TestLogHandoffSubmit(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := NewLogHandoff(zap.New(core), "https://pagos.example.com/checkout/")

	order, err := NewOrderBuilder("MXN").Build("sid", sampleState())
	require.NoError(t, err)

	receipt, err := h.Submit(context.Background(), order)
	require.NoError(t, err)
	assert.Equal(t, order.Reference, receipt.Reference)
	assert.Equal(t, "https://pagos.example.com/checkout/"+order.Reference, receipt.RedirectURL)

	require.Equal(t, 1, logs.FilterMessage("checkout handoff").Len())

	_, err = h.Submit(context.Background(), Order{})
	require.ErrorIs(t, err, ErrEmptyCart)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = h.Submit(ctx, order)
	require.ErrorIs(t, err, context.Canceled)
}
