package cart

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"

	"babyfood-store/internal/models"
	"babyfood-store/internal/storage"
	"babyfood-store/internal/telemetry"
)

const (
	defaultRetryAttempts = 3
	defaultRetryInterval = 50 * time.Millisecond
	maxRetryInterval     = time.Second
	writeTimeout         = 5 * time.Second
)

type flushWaiter struct {
	version uint64
	done    chan struct{}
}

// persister escribe el estado más reciente del carrito, uno a la vez. offer
// nunca bloquea: un estado nuevo reemplaza al pendiente y las versiones
// garantizan que nunca se escriba uno más viejo después de uno más nuevo.
type persister struct {
	storage       storage.Storage
	key           string
	logger        *zap.Logger
	metrics       *telemetry.CartMetrics
	retryAttempts int
	retryInterval time.Duration

	mu       sync.Mutex
	pending  *models.CartState
	version  uint64 // versión de pending o, si no hay, de la última ofrecida
	settled  uint64 // última versión escrita o abandonada
	unsaved  *models.CartState
	waiters  []flushWaiter
	stopping bool

	wake chan struct{}
	stop chan struct{}
	wg   conc.WaitGroup
}

func newPersister(store storage.Storage, key string, logger *zap.Logger, metrics *telemetry.CartMetrics, attempts int, interval time.Duration) *persister {
	if attempts <= 0 {
		attempts = defaultRetryAttempts
	}
	if interval <= 0 {
		interval = defaultRetryInterval
	}
	p := &persister{
		storage:       store,
		key:           key,
		logger:        logger,
		metrics:       metrics,
		retryAttempts: attempts,
		retryInterval: interval,
		wake:          make(chan struct{}, 1),
		stop:          make(chan struct{}),
	}
	p.wg.Go(p.run)
	return p
}

// offer deja state como el próximo a escribir; versiones viejas se ignoran
func (p *persister) offer(version uint64, state models.CartState) {
	p.mu.Lock()
	if p.stopping || version <= p.version {
		p.mu.Unlock()
		return
	}
	p.pending = &state
	p.version = version
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// waitFor devuelve un canal que se cierra cuando todo lo ofrecido hasta ahora
// quedó escrito o abandonado
func (p *persister) waitFor() <-chan struct{} {
	done := make(chan struct{})
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.settled >= p.version {
		close(done)
		return done
	}
	p.waiters = append(p.waiters, flushWaiter{version: p.version, done: done})
	return done
}

// close escribe lo pendiente, reintenta un último estado fallido y detiene el
// escritor
func (p *persister) close() {
	p.mu.Lock()
	if p.stopping {
		p.mu.Unlock()
		p.wg.Wait()
		return
	}
	p.stopping = true
	p.mu.Unlock()

	close(p.stop)
	p.wg.Wait()
}

func (p *persister) run() {
	for {
		select {
		case <-p.wake:
			p.drain()
		case <-p.stop:
			p.drain()
			p.retryUnsaved()
			p.releaseWaiters(^uint64(0))
			return
		}
	}
}

func (p *persister) drain() {
	for {
		p.mu.Lock()
		state, version := p.pending, p.version
		p.pending = nil
		p.mu.Unlock()
		if state == nil {
			return
		}
		p.write(*state)
		p.releaseWaiters(version)
	}
}

func (p *persister) retryUnsaved() {
	p.mu.Lock()
	state := p.unsaved
	p.mu.Unlock()
	if state == nil {
		return
	}
	p.logger.Info("retrying unsaved cart state before close", zap.String("key", p.key))
	p.write(*state)
}

func (p *persister) releaseWaiters(version uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if version > p.settled {
		p.settled = version
	}
	kept := p.waiters[:0]
	for _, w := range p.waiters {
		if w.version <= p.settled {
			close(w.done)
			continue
		}
		kept = append(kept, w)
	}
	p.waiters = kept
}

func (p *persister) hasPending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending != nil
}

func (p *persister) write(state models.CartState) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.retryInterval
	bo.MaxInterval = maxRetryInterval

	var err error
	for attempt := 1; attempt <= p.retryAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err = p.storage.Save(ctx, p.key, state)
		cancel()
		if err == nil {
			p.mu.Lock()
			recovered := p.unsaved != nil
			p.unsaved = nil
			p.mu.Unlock()
			if recovered {
				p.logger.Info("cart state persisted after earlier failure", zap.String("key", p.key))
			}
			return
		}
		// un estado completo más nuevo reintenta por éste
		if attempt == p.retryAttempts || p.hasPending() {
			break
		}
		sleep := bo.NextBackOff()
		if sleep == backoff.Stop {
			break
		}
		time.Sleep(sleep)
	}

	p.mu.Lock()
	p.unsaved = &state
	p.mu.Unlock()
	p.metrics.PersistFailure(context.Background())
	p.logger.Warn("cart state write failed; in-memory cart stays authoritative",
		zap.String("key", p.key),
		zap.Int("lines", len(state.Lines)),
		zap.Error(err),
	)
}
