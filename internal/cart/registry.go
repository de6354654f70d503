package cart

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	keyPrefix          = "cart:"
	defaultIdleTimeout = 30 * time.Minute
	evictTimeout       = time.Minute
)

var errSessionRequired = errors.New("cart: session id is required")

type registryEntry struct {
	store    *Store
	lastUsed time.Time
}

// Registry entrega un Store por sesión, creándolo e hidratándolo la primera vez.
// Los carritos sin uso por más de IdleTimeout se cierran y se liberan.
type Registry struct {
	mu      sync.Mutex
	opts    Options
	idle    time.Duration
	stores  map[string]*registryEntry
	closing map[string]chan struct{}
	closed  bool
	now     func() time.Time
}

// NewRegistry usa opts como plantilla; Key se deriva de cada sesión
func NewRegistry(opts Options) *Registry {
	idle := opts.IdleTimeout
	if idle <= 0 {
		idle = defaultIdleTimeout
	}
	return &Registry{
		opts:    opts,
		idle:    idle,
		stores:  make(map[string]*registryEntry),
		closing: make(map[string]chan struct{}),
		now:     time.Now,
	}
}

// Open devuelve el Store de la sesión. Si la sesión se está desalojando espera
// a que sus escrituras terminen antes de hidratar de nuevo.
func (r *Registry) Open(ctx context.Context, sessionID string) (*Store, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, errSessionRequired
	}

	for {
		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			return nil, ErrClosed
		}
		if e, ok := r.stores[sessionID]; ok {
			e.lastUsed = r.now()
			r.mu.Unlock()
			return e.store, nil
		}
		wait, evicting := r.closing[sessionID]
		if !evicting {
			break
		}
		r.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	defer r.mu.Unlock()

	opts := r.opts
	opts.Key = keyPrefix + sessionID
	s, err := Open(ctx, opts)
	if err != nil {
		return nil, err
	}
	r.stores[sessionID] = &registryEntry{store: s, lastUsed: r.now()}
	return s, nil
}

// Lookup devuelve el Store de la sesión sólo si ya está abierto
func (r *Registry) Lookup(sessionID string) (*Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.stores[strings.TrimSpace(sessionID)]
	if !ok {
		return nil, false
	}
	e.lastUsed = r.now()
	return e.store, true
}

// Len devuelve cuántas sesiones tienen carrito abierto
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

// EvictIdle cierra los carritos sin uso reciente y sin suscriptores, y los
// quita del registro. Devuelve cuántos desalojó.
func (r *Registry) EvictIdle(ctx context.Context) (int, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return 0, nil
	}
	cutoff := r.now().Add(-r.idle)
	evicted := make(map[string]*Store)
	for id, e := range r.stores {
		if e.lastUsed.After(cutoff) || e.store.hasListeners() {
			continue
		}
		evicted[id] = e.store
		delete(r.stores, id)
		r.closing[id] = make(chan struct{})
	}
	r.mu.Unlock()

	var errs []error
	for id, s := range evicted {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("evict %s: %w", id, err))
		}
		r.mu.Lock()
		close(r.closing[id])
		delete(r.closing, id)
		r.mu.Unlock()
	}
	return len(evicted), errors.Join(errs...)
}

// RunEviction ejecuta EvictIdle cada every hasta que ctx termina
func (r *Registry) RunEviction(ctx context.Context, every time.Duration, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if every <= 0 {
		every = r.idle / 2
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// el apagado no debe cortar el drenaje de un carrito ya desalojado
			evictCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), evictTimeout)
			n, err := r.EvictIdle(evictCtx)
			cancel()
			if err != nil {
				logger.Warn("cart eviction incomplete", zap.Error(err))
			}
			if n > 0 {
				logger.Debug("idle carts evicted", zap.Int("evicted", n), zap.Int("open", r.Len()))
			}
		}
	}
}

// Close cierra todos los carritos drenando sus escrituras
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	entries := r.stores
	r.stores = make(map[string]*registryEntry)
	evicting := make([]chan struct{}, 0, len(r.closing))
	for _, wait := range r.closing {
		evicting = append(evicting, wait)
	}
	r.mu.Unlock()

	var errs []error
	for _, wait := range evicting {
		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	for _, e := range entries {
		if err := e.store.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// BadgeLabel es el texto del contador del carrito; más de 99 se muestra "99+"
func BadgeLabel(totalItems int) string {
	switch {
	case totalItems <= 0:
		return ""
	case totalItems > 99:
		return "99+"
	default:
		return strconv.Itoa(totalItems)
	}
}
