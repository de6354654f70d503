package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	SessionCookie = "sid"
	sessionKey    = "session_id"
	freshKey      = "session_fresh"
	sessionMaxAge = 30 * 24 * 60 * 60
)

// Session asigna a cada comprador un id de sesión persistente en cookie
func Session(secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, err := c.Cookie(SessionCookie)
		if err != nil || uuid.Validate(sid) != nil {
			sid = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(SessionCookie, sid, sessionMaxAge, "/", "", secure, true)
			c.Set(freshKey, true)
		}
		c.Set(sessionKey, sid)
		c.Next()
	}
}

// SessionID devuelve la sesión asignada por Session
func SessionID(c *gin.Context) string {
	return c.GetString(sessionKey)
}

// FreshSession indica que la sesión se creó en esta petición y no puede tener
// carrito guardado
func FreshSession(c *gin.Context) bool {
	return c.GetBool(freshKey)
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter limita las mutaciones del carrito por sesión
type RateLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	idle    time.Duration
	entries map[string]*limiterEntry
	now     func() time.Time
}

func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		idle:    10 * time.Minute,
		entries: make(map[string]*limiterEntry),
		now:     time.Now,
	}
}

// Allow consume un token de la sesión
func (l *RateLimiter) Allow(sessionID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	entry, ok := l.entries[sessionID]
	if !ok {
		if len(l.entries) >= 1024 {
			l.pruneLocked(now)
		}
		entry = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[sessionID] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

func (l *RateLimiter) pruneLocked(now time.Time) {
	for id, entry := range l.entries {
		if now.Sub(entry.lastSeen) > l.idle {
			delete(l.entries, id)
		}
	}
}

// Middleware responde 429 cuando la sesión excede su cuota
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(SessionID(c)) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many cart updates, slow down"})
			return
		}
		c.Next()
	}
}
