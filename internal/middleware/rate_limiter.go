package middleware

import (
	"net/http"
	"sync"
	"time"

	"kioscopos/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const purgeInterval = 5 * time.Minute

// windowLimiter counts requests per client IP inside fixed windows. Expired
// entries are purged lazily on the request path.
type windowLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu        sync.Mutex
	entries   map[string]*windowEntry
	lastPurge time.Time
}

type windowEntry struct {
	count     int
	windowEnd time.Time
}

func newWindowLimiter(limit int, window time.Duration) *windowLimiter {
	return &windowLimiter{limit: limit, window: window, now: time.Now, entries: make(map[string]*windowEntry)}
}

// allow registers one hit for ip and reports whether it fits the window.
func (l *windowLimiter) allow(ip string) (bool, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastPurge) >= purgeInterval {
		l.purge(now)
	}
	e, ok := l.entries[ip]
	if !ok || now.After(e.windowEnd) {
		e = &windowEntry{windowEnd: now.Add(l.window)}
		l.entries[ip] = e
	}
	e.count++
	return e.count <= l.limit, e.windowEnd
}

func (l *windowLimiter) purge(now time.Time) {
	purged := 0
	for ip, e := range l.entries {
		if now.After(e.windowEnd) {
			delete(l.entries, ip)
			purged++
		}
	}
	l.lastPurge = now
	if purged > 0 {
		log.Debug().Int("purged", purged).Int("remaining", len(l.entries)).Msg("rate limiter entries purged")
	}
}

// LoginRateLimiter limits login attempts to 20 per minute per IP.
func LoginRateLimiter() gin.HandlerFunc {
	l := newWindowLimiter(20, time.Minute)
	return func(c *gin.Context) {
		if ok, _ := l.allow(c.ClientIP()); !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("Demasiados intentos de login. Intente en 1 minuto."))
			return
		}
		c.Next()
	}
}

// RateLimiter is the general API limiter: limit requests per window per IP.
func RateLimiter(limit int, window time.Duration) gin.HandlerFunc {
	l := newWindowLimiter(limit, window)
	return func(c *gin.Context) {
		ok, windowEnd := l.allow(c.ClientIP())
		if !ok {
			c.Header("Retry-After", windowEnd.UTC().Format(http.TimeFormat))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("Demasiadas solicitudes. Intente nuevamente en un momento."))
			return
		}
		c.Next()
	}
}
