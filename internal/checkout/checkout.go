// Package checkout entrega el contenido del carrito al checkout externo.
package checkout

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"babyfood-store/internal/models"
)

// ErrEmptyCart se devuelve al intentar entregar un carrito sin líneas
var ErrEmptyCart = errors.New("checkout: cart is empty")

// Order es lo que recibe el checkout externo
type Order struct {
	Reference  string            `json:"reference"`
	SessionID  string            `json:"-"`
	Lines      []models.CartLine `json:"lines"`
	TotalItems int               `json:"total_items"`
	Subtotal   int64             `json:"subtotal"`
	Currency   string            `json:"currency"`
	CreatedAt  time.Time         `json:"created_at"`
}

// Receipt confirma la entrega
type Receipt struct {
	Reference   string    `json:"reference"`
	RedirectURL string    `json:"redirect_url,omitempty"`
	AcceptedAt  time.Time `json:"accepted_at"`
}

// Handoff entrega un pedido al proveedor de checkout
type Handoff interface {
	Submit(ctx context.Context, order Order) (Receipt, error)
}

// OrderBuilder arma pedidos con referencia ULID
type OrderBuilder struct {
	currency string
	newID    func() string
	now      func() time.Time
}

// NewOrderBuilder usa la moneda dada; vacía cae a MXN
func NewOrderBuilder(currency string) *OrderBuilder {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = "MXN"
	}
	return &OrderBuilder{
		currency: currency,
		newID:    func() string { return ulid.Make().String() },
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Build convierte el estado del carrito en un pedido
func (b *OrderBuilder) Build(sessionID string, state models.CartState) (Order, error) {
	if len(state.Lines) == 0 {
		return Order{}, ErrEmptyCart
	}
	state = state.Clone()
	return Order{
		Reference:  b.newID(),
		SessionID:  sessionID,
		Lines:      state.Lines,
		TotalItems: state.TotalItems(),
		Subtotal:   state.Subtotal(),
		Currency:   b.currency,
		CreatedAt:  b.now(),
	}, nil
}

// LogHandoff registra el pedido y lo acepta; sirve mientras no hay proveedor real
type LogHandoff struct {
	logger  *zap.Logger
	baseURL string
	now     func() time.Time
}

// NewLogHandoff crea el handoff; baseURL, si no está vacío, arma la URL de redirección
func NewLogHandoff(logger *zap.Logger, baseURL string) *LogHandoff {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogHandoff{
		logger:  logger,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (h *LogHandoff) Submit(ctx context.Context, order Order) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	if len(order.Lines) == 0 {
		return Receipt{}, ErrEmptyCart
	}

	h.logger.Info("checkout handoff",
		zap.String("reference", order.Reference),
		zap.Int("lines", len(order.Lines)),
		zap.Int("total_items", order.TotalItems),
		zap.Int64("subtotal", order.Subtotal),
		zap.String("currency", order.Currency),
	)

	receipt := Receipt{Reference: order.Reference, AcceptedAt: h.now()}
	if h.baseURL != "" {
		receipt.RedirectURL = h.baseURL + "/" + order.Reference
	}
	return receipt, nil
}
