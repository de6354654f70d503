// Package cart mantiene el carrito persistente de una sesión de compra.
package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"babyfood-store/internal/models"
	"babyfood-store/internal/storage"
	"babyfood-store/internal/telemetry"
)

// DefaultMaxLineQuantity acota líneas cuyo stock sólo se conoce como booleano
const DefaultMaxLineQuantity = 99

var errStorageRequired = errors.New("cart: storage is required")

// Snapshot es lo que el comprador aceptó al agregar: título y precio unitario.
// Stock sólo se usa para productos sin variante.
type Snapshot struct {
	Title     string
	UnitPrice int64
	Image     string
	Stock     *int
}

// Listener recibe una copia del estado después de cada mutación exitosa, en el
// orden de las mutaciones. Puede leer el Store pero no mutarlo.
type Listener func(models.CartState)

// Options configura un Store
type Options struct {
	Storage         storage.Storage
	Key             string
	Logger          *zap.Logger
	Metrics         *telemetry.CartMetrics
	MaxLineQuantity int
	RetryAttempts   int
	RetryInterval   time.Duration
	// IdleTimeout sólo lo usa Registry para desalojar carritos sin uso
	IdleTimeout time.Duration
}

// Store es el carrito autoritativo de una sesión. Las mutaciones se aplican en
// memoria y se encolan para persistir en orden.
type Store struct {
	mu     sync.RWMutex
	notify sequencer

	key       string
	lines     []models.CartLine
	version   uint64
	maxLine   int
	listeners map[uint64]Listener
	nextSub   uint64
	closed    bool

	persist *persister
	logger  *zap.Logger
	metrics *telemetry.CartMetrics
}

// Open crea el Store y lo hidrata desde el almacenamiento. Un almacén caído o
// datos corruptos producen un carrito vacío.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Storage == nil {
		return nil, errStorageRequired
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxLine := opts.MaxLineQuantity
	if maxLine <= 0 {
		maxLine = DefaultMaxLineQuantity
	}

	state, found, err := opts.Storage.Load(ctx, opts.Key)
	if err != nil {
		logger.Warn("cart hydrate failed; starting empty", zap.String("key", opts.Key), zap.Error(err))
		state = models.CartState{}
	}
	state = storage.Sanitize(state)

	s := &Store{
		key:       opts.Key,
		lines:     state.Lines,
		maxLine:   maxLine,
		listeners: make(map[uint64]Listener),
		logger:    logger,
		metrics:   opts.Metrics,
	}
	s.persist = newPersister(opts.Storage, opts.Key, logger, opts.Metrics, opts.RetryAttempts, opts.RetryInterval)

	logger.Debug("cart hydrated",
		zap.String("key", opts.Key),
		zap.Bool("found", found),
		zap.Int("lines", len(s.lines)),
	)
	return s, nil
}

// Add agrega quantity unidades de (productID, variant). Si la línea existe se
// incrementa y conserva el snapshot del primer alta; si no, se agrega al final.
// variant es nil para productos sin opciones.
func (s *Store) Add(productID string, variant *models.Variant, quantity int, snap Snapshot) error {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return ErrProductRequired
	}
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be greater than zero", ErrInvalidQuantity)
	}
	if snap.UnitPrice < 0 {
		return fmt.Errorf("%w: unit price must be non-negative", ErrInvalidQuantity)
	}

	variantID := ""
	limit, limited := stockLimit(snap.Stock)
	if variant != nil {
		variantID = variant.ID
		limit, limited = variant.StockLimit()
		if !variant.InStock() {
			return ErrOutOfStock
		}
	}
	if limited && limit <= 0 {
		return ErrOutOfStock
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}

	idx := s.indexOf(productID, variantID)
	current := 0
	if idx >= 0 {
		current = s.lines[idx].Quantity
	}
	target := current + quantity
	if limited {
		if target > limit {
			target = limit
		}
	} else if target > s.maxLine {
		s.mu.Unlock()
		return fmt.Errorf("%w: at most %d units per line", ErrInvalidQuantity, s.maxLine)
	}

	if idx >= 0 {
		line := &s.lines[idx]
		if target == current && sameLimit(line.MaxQuantity, limit, limited) {
			s.mu.Unlock()
			return nil
		}
		line.Quantity = target
		line.MaxQuantity = limitPtr(limit, limited)
	} else {
		s.lines = append(s.lines, models.CartLine{
			ProductID:   productID,
			VariantID:   variantID,
			Quantity:    target,
			UnitPrice:   snap.UnitPrice,
			Title:       snap.Title,
			Image:       snap.Image,
			MaxQuantity: limitPtr(limit, limited),
		})
	}
	s.commitLocked("add")
	return nil
}

// UpdateQuantity fija la cantidad de una línea; cero la elimina
func (s *Store) UpdateQuantity(productID, variantID string, quantity int) error {
	if quantity < 0 {
		return fmt.Errorf("%w: quantity must not be negative", ErrInvalidQuantity)
	}
	if quantity == 0 {
		s.Remove(productID, variantID)
		return nil
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	idx := s.indexOf(strings.TrimSpace(productID), strings.TrimSpace(variantID))
	if idx < 0 {
		s.mu.Unlock()
		return ErrLineNotFound
	}

	line := &s.lines[idx]
	target := quantity
	if line.MaxQuantity != nil {
		if *line.MaxQuantity <= 0 {
			s.mu.Unlock()
			return ErrOutOfStock
		}
		if target > *line.MaxQuantity {
			target = *line.MaxQuantity
		}
	} else if target > s.maxLine {
		s.mu.Unlock()
		return fmt.Errorf("%w: at most %d units per line", ErrInvalidQuantity, s.maxLine)
	}

	if line.Quantity == target {
		s.mu.Unlock()
		return nil
	}
	line.Quantity = target
	s.commitLocked("update")
	return nil
}

// Remove elimina la línea; si no existe no hace nada
func (s *Store) Remove(productID, variantID string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	idx := s.indexOf(strings.TrimSpace(productID), strings.TrimSpace(variantID))
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	s.lines = append(s.lines[:idx:idx], s.lines[idx+1:]...)
	s.commitLocked("remove")
}

// Clear vacía el carrito, típicamente tras entregar el pedido al checkout
func (s *Store) Clear() {
	s.mu.Lock()
	if s.closed || len(s.lines) == 0 {
		s.mu.Unlock()
		return
	}
	s.lines = []models.CartLine{}
	s.commitLocked("clear")
}

// Settle descuenta del carrito las líneas entregadas al checkout. Lo agregado
// después de armar el pedido se conserva.
func (s *Store) Settle(handed []models.CartLine) {
	s.mu.Lock()
	if s.closed || len(handed) == 0 {
		s.mu.Unlock()
		return
	}

	changed := false
	for _, h := range handed {
		idx := s.indexOf(h.ProductID, h.VariantID)
		if idx < 0 {
			continue
		}
		changed = true
		if s.lines[idx].Quantity > h.Quantity {
			s.lines[idx].Quantity -= h.Quantity
			continue
		}
		s.lines = append(s.lines[:idx:idx], s.lines[idx+1:]...)
	}
	if !changed {
		s.mu.Unlock()
		return
	}
	s.commitLocked("checkout")
}

// ProductLookup resuelve un producto vigente del catálogo
type ProductLookup func(productID string) (*models.Product, bool)

// Reconcile contrasta las líneas con el catálogo vigente: descarta líneas cuya
// variante ya no existe o se agotó, y actualiza el tope de stock. Los precios
// congelados no se tocan. Devuelve las líneas descartadas.
func (s *Store) Reconcile(lookup ProductLookup) []models.CartLine {
	if lookup == nil {
		return nil
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}

	var removed []models.CartLine
	changed := false
	kept := make([]models.CartLine, 0, len(s.lines))
	for _, line := range s.lines {
		product, ok := lookup(line.ProductID)
		if !ok || product == nil {
			kept = append(kept, line)
			continue
		}

		var limit int
		var limited bool
		if line.VariantID != "" {
			v, found := product.Variant(line.VariantID)
			if !found || !v.InStock() {
				removed = append(removed, line)
				changed = true
				continue
			}
			limit, limited = v.StockLimit()
		} else {
			if product.HasOptions() || !product.Available() {
				removed = append(removed, line)
				changed = true
				continue
			}
			limit, limited = product.StockLimit()
		}

		if limited && line.Quantity > limit {
			line.Quantity = limit
			changed = true
		}
		if !sameLimit(line.MaxQuantity, limit, limited) {
			line.MaxQuantity = limitPtr(limit, limited)
			changed = true
		}
		kept = append(kept, line)
	}

	if !changed {
		s.mu.Unlock()
		return nil
	}
	s.lines = kept
	s.commitLocked("reconcile")

	for _, line := range removed {
		s.logger.Info("cart line dropped during reconcile",
			zap.String("key", s.key),
			zap.String("product_id", line.ProductID),
			zap.String("variant_id", line.VariantID),
			zap.Error(ErrVariantNotFound),
		)
	}
	return removed
}

// State devuelve una copia; modificarla no afecta al carrito
func (s *Store) State() models.CartState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.CartState{Lines: s.lines}.Clone()
}

// TotalItems suma las cantidades (el número del badge)
func (s *Store) TotalItems() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.CartState{Lines: s.lines}.TotalItems()
}

// Subtotal suma los precios congelados por cantidad
func (s *Store) Subtotal() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.CartState{Lines: s.lines}.Subtotal()
}

// Subscribe registra un listener; la función devuelta lo da de baja
func (s *Store) Subscribe(fn Listener) func() {
	if fn == nil {
		return func() {}
	}
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// Flush espera a que las escrituras pendientes lleguen al almacenamiento
func (s *Store) Flush(ctx context.Context) error {
	select {
	case <-s.persist.waitFor():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drena las escrituras pendientes y rechaza mutaciones posteriores
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.persist.close()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// commitLocked ofrece el estado al persister y notifica. Se llama con s.mu
// tomado y lo libera antes de notificar; la versión fija el orden de entrega.
func (s *Store) commitLocked(op string) {
	s.version++
	version := s.version
	state := models.CartState{Lines: s.lines}.Clone()
	s.persist.offer(version, state)

	listeners := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	s.metrics.Mutation(context.Background(), op)

	s.notify.wait(version)
	defer s.notify.done()
	for _, fn := range listeners {
		fn(state.Clone())
	}
}

// hasListeners indica si alguien sigue suscrito (p. ej. un stream SSE)
func (s *Store) hasListeners() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.listeners) > 0
}

func (s *Store) indexOf(productID, variantID string) int {
	for i, line := range s.lines {
		if line.ProductID == productID && line.VariantID == variantID {
			return i
		}
	}
	return -1
}

func stockLimit(stock *int) (int, bool) {
	if stock == nil {
		return 0, false
	}
	return *stock, true
}

func limitPtr(limit int, limited bool) *int {
	if !limited {
		return nil
	}
	return &limit
}

func sameLimit(current *int, limit int, limited bool) bool {
	if !limited {
		return current == nil
	}
	return current != nil && *current == limit
}

// sequencer entrega las notificaciones en el orden de las versiones sin tomar
// el lock del Store. El valor cero está listo para usarse.
type sequencer struct {
	mu        sync.Mutex
	cond      *sync.Cond
	delivered uint64
}

func (q *sequencer) wait(version uint64) {
	q.mu.Lock()
	if q.cond == nil {
		q.cond = sync.NewCond(&q.mu)
	}
	for q.delivered != version-1 {
		q.cond.Wait()
	}
	q.mu.Unlock()
}

func (q *sequencer) done() {
	q.mu.Lock()
	q.delivered++
	if q.cond != nil {
		q.cond.Broadcast()
	}
	q.mu.Unlock()
}
