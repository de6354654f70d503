package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"babyfood-store/internal/cart"
	"babyfood-store/internal/checkout"
	"babyfood-store/internal/models"
	"babyfood-store/internal/money"
	"babyfood-store/internal/observability"
	"babyfood-store/internal/variant"
)

const reconnectMillis = 1000

type CartHandler struct {
	registry  *cart.Registry
	catalog   *Catalog
	formatter *money.Formatter
	orders    *checkout.OrderBuilder
	handoff   checkout.Handoff
}

func NewCartHandler(registry *cart.Registry, catalog *Catalog, formatter *money.Formatter, handoff checkout.Handoff) *CartHandler {
	return &CartHandler{
		registry:  registry,
		catalog:   catalog,
		formatter: formatter,
		orders:    checkout.NewOrderBuilder(formatter.Currency()),
		handoff:   handoff,
	}
}

type cartLineView struct {
	models.CartLine
	LineTotal          int64  `json:"lineTotal"`
	UnitPriceFormatted string `json:"unitPriceFormatted"`
	LineTotalFormatted string `json:"lineTotalFormatted"`
}

type cartView struct {
	Lines             []cartLineView `json:"lines"`
	TotalItems        int            `json:"totalItems"`
	Subtotal          int64          `json:"subtotal"`
	SubtotalFormatted string         `json:"subtotalFormatted"`
	Currency          string         `json:"currency"`
	Badge             string         `json:"badge"`
}

type addItemRequest struct {
	ProductID string            `json:"productId" binding:"required"`
	VariantID string            `json:"variantId"`
	Selection map[string]string `json:"selection"`
	Quantity  *int              `json:"quantity"`
}

type updateItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	VariantID string `json:"variantId"`
	Quantity  *int   `json:"quantity" binding:"required"`
}

func (h *CartHandler) view(state models.CartState) cartView {
	lines := make([]cartLineView, 0, len(state.Lines))
	for _, line := range state.Lines {
		lines = append(lines, cartLineView{
			CartLine:           line,
			LineTotal:          line.LineTotal(),
			UnitPriceFormatted: h.formatter.Format(line.UnitPrice),
			LineTotalFormatted: h.formatter.Format(line.LineTotal()),
		})
	}
	total := state.TotalItems()
	subtotal := state.Subtotal()
	return cartView{
		Lines:             lines,
		TotalItems:        total,
		Subtotal:          subtotal,
		SubtotalFormatted: h.formatter.Format(subtotal),
		Currency:          h.formatter.Currency(),
		Badge:             cart.BadgeLabel(total),
	}
}

// store abre el carrito de la sesión; responde el error si no puede
func (h *CartHandler) store(c *gin.Context) (*cart.Store, bool) {
	s, err := h.registry.Open(c.Request.Context(), SessionID(c))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return s, true
}

// existing es como store, pero una sesión nueva devuelve nil sin abrir carrito
func (h *CartHandler) existing(c *gin.Context) (*cart.Store, bool) {
	if FreshSession(c) {
		return nil, true
	}
	return h.store(c)
}

func (h *CartHandler) emptyView() cartView {
	return h.view(models.CartState{Lines: []models.CartLine{}})
}

// GetCart devuelve las líneas y los totales
func (h *CartHandler) GetCart(c *gin.Context) {
	s, ok := h.existing(c)
	if !ok {
		return
	}
	if s == nil {
		c.JSON(http.StatusOK, h.emptyView())
		return
	}
	c.JSON(http.StatusOK, h.view(s.State()))
}

// AddItem resuelve la variante elegida y la agrega al carrito
func (h *CartHandler) AddItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	product, err := h.catalog.Product(c.Request.Context(), strings.TrimSpace(req.ProductID))
	if err != nil {
		respondError(c, err)
		return
	}

	raw := req.Selection
	if id := strings.TrimSpace(req.VariantID); id != "" && product.HasOptions() {
		v, found := product.Variant(id)
		if !found {
			respondError(c, cart.ErrVariantNotFound)
			return
		}
		raw = v.Options
	}

	sel, _ := variant.NewSelection(product, raw)
	res, err := variant.Resolve(product, sel)
	if err != nil {
		respondError(c, err)
		return
	}
	if product.HasOptions() && res.Variant == nil {
		respondError(c, cart.ErrSelectionIncomplete)
		return
	}
	if !res.InStock {
		respondError(c, cart.ErrOutOfStock)
		return
	}

	snap := cart.Snapshot{
		Title:     product.Title,
		UnitPrice: res.CurrentPrice,
		Image:     res.Image,
	}
	if res.Variant == nil {
		snap.Stock = product.Stock
	}

	s, ok := h.store(c)
	if !ok {
		return
	}
	if err := s.Add(product.Slug, res.Variant, quantity, snap); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.view(s.State()))
}

// UpdateItem fija la cantidad de una línea; cero la elimina
func (h *CartHandler) UpdateItem(c *gin.Context) {
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s, ok := h.existing(c)
	if !ok {
		return
	}
	if s == nil {
		respondError(c, cart.ErrLineNotFound)
		return
	}
	if err := s.UpdateQuantity(req.ProductID, req.VariantID, *req.Quantity); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.view(s.State()))
}

// RemoveItem elimina una línea (?productId=...&variantId=...)
func (h *CartHandler) RemoveItem(c *gin.Context) {
	productID := strings.TrimSpace(c.Query("productId"))
	if productID == "" {
		respondError(c, cart.ErrProductRequired)
		return
	}

	s, ok := h.existing(c)
	if !ok {
		return
	}
	if s == nil {
		c.JSON(http.StatusOK, h.emptyView())
		return
	}
	s.Remove(productID, c.Query("variantId"))
	c.JSON(http.StatusOK, h.view(s.State()))
}

// ClearCart vacía el carrito
func (h *CartHandler) ClearCart(c *gin.Context) {
	s, ok := h.existing(c)
	if !ok {
		return
	}
	if s == nil {
		c.JSON(http.StatusOK, h.emptyView())
		return
	}
	s.Clear()
	c.JSON(http.StatusOK, h.view(s.State()))
}

// Events envía el carrito por SSE en cada cambio, empezando por el estado actual.
// A una sesión nueva le manda el carrito vacío y le pide reconectar con su cookie.
func (h *CartHandler) Events(c *gin.Context) {
	s, ok := h.existing(c)
	if !ok {
		return
	}
	if s == nil {
		c.Header("Cache-Control", "no-cache")
		c.Render(-1, sse.Event{Event: "cart", Retry: reconnectMillis, Data: h.emptyView()})
		return
	}

	updates := make(chan models.CartState, 1)
	unsubscribe := s.Subscribe(func(state models.CartState) {
		// sólo importa el estado más reciente
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- state:
		default:
		}
	})
	defer unsubscribe()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("cart", h.view(s.State()))
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case state := <-updates:
			c.SSEvent("cart", h.view(state))
			return true
		}
	})
}

// Checkout concilia el carrito con el catálogo, lo entrega y descuenta lo
// entregado
func (h *CartHandler) Checkout(c *gin.Context) {
	s, ok := h.existing(c)
	if !ok {
		return
	}
	if s == nil {
		respondError(c, checkout.ErrEmptyCart)
		return
	}
	ctx := c.Request.Context()
	logger := observability.FromContext(ctx)

	state := s.State()
	slugs := make([]string, 0, len(state.Lines))
	for _, line := range state.Lines {
		slugs = append(slugs, line.ProductID)
	}
	products, err := h.catalog.Products(ctx, slugs)
	if err != nil {
		respondError(c, err)
		return
	}

	removed := s.Reconcile(func(id string) (*models.Product, bool) {
		p, found := products[id]
		return p, found
	})
	if len(removed) > 0 {
		logger.Info("checkout blocked by stale cart lines", zap.Int("removed", len(removed)))
		c.JSON(http.StatusConflict, gin.H{
			"error":   "some items are no longer available",
			"removed": removed,
			"cart":    h.view(s.State()),
		})
		return
	}

	order, err := h.orders.Build(SessionID(c), s.State())
	if err != nil {
		respondError(c, err)
		return
	}
	receipt, err := h.handoff.Submit(ctx, order)
	if err != nil {
		logger.Error("checkout handoff failed", zap.String("reference", order.Reference), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "checkout unavailable, try again"})
		return
	}

	s.Settle(order.Lines)
	c.JSON(http.StatusOK, gin.H{
		"receipt": receipt,
		"order":   order,
	})
}
