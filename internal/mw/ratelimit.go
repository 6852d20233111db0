package mw

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"boarding-house-backend/internal/response"
)

// RateLimits are the request budgets of one client. Requests other than
// GET and HEAD draw from the write budget.
type RateLimits struct {
	Read       rate.Limit
	ReadBurst  int
	Write      rate.Limit
	WriteBurst int
}

const (
	sweepEvery = 10 * time.Minute
	idleAfter  = 30 * time.Minute
)

type clientBudget struct {
	read     *rate.Limiter
	write    *rate.Limiter
	lastSeen time.Time
}

// ClientRateLimiter keeps a budget per client. Behind JWTAuth the client is
// the authenticated actor, so staff sharing an office address do not share a
// budget; elsewhere it is the request address.
type ClientRateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientBudget
	limits    RateLimits
	ipHeader  string
	now       func() time.Time
	lastSweep time.Time
}

// NewClientRateLimiter creates a limiter. When ipHeader is set (for example
// X-Real-IP behind a proxy) its value identifies anonymous clients.
func NewClientRateLimiter(limits RateLimits, ipHeader string) *ClientRateLimiter {
	return &ClientRateLimiter{
		clients:  make(map[string]*clientBudget),
		limits:   limits,
		ipHeader: ipHeader,
		now:      time.Now,
	}
}

func (l *ClientRateLimiter) budget(key string) *clientBudget {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= sweepEvery {
		l.sweep(now)
	}
	b, ok := l.clients[key]
	if !ok {
		b = &clientBudget{
			read:  rate.NewLimiter(l.limits.Read, l.limits.ReadBurst),
			write: rate.NewLimiter(l.limits.Write, l.limits.WriteBurst),
		}
		l.clients[key] = b
	}
	b.lastSeen = now
	return b
}

// sweep forgets clients idle for longer than idleAfter. Callers hold mu.
func (l *ClientRateLimiter) sweep(now time.Time) {
	for key, b := range l.clients {
		if now.Sub(b.lastSeen) > idleAfter {
			delete(l.clients, key)
		}
	}
	l.lastSweep = now
}

func (l *ClientRateLimiter) clientKey(c *gin.Context) string {
	if actor := c.GetString(ActorKey); actor != "" {
		return "actor:" + actor
	}
	if l.ipHeader != "" {
		if v := c.GetHeader(l.ipHeader); v != "" {
			return "ip:" + v
		}
	}
	return "ip:" + c.ClientIP()
}

// Middleware rejects requests over budget with 429 and a Retry-After hint.
func (l *ClientRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		b := l.budget(l.clientKey(c))
		lim, kind := b.read, "read"
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			lim, kind = b.write, "write"
		}
		if !lim.Allow() {
			c.Header("Retry-After", strconv.Itoa(retryAfter(lim.Limit())))
			response.Abort(c, http.StatusTooManyRequests, "RATE_LIMITED", fmt.Sprintf("Too many %s requests", kind))
			return
		}
		c.Next()
	}
}

// retryAfter is the whole number of seconds until one more token accrues.
func retryAfter(r rate.Limit) int {
	if r <= 0 {
		return 60
	}
	secs := int(math.Ceil(1 / float64(r)))
	if secs < 1 {
		secs = 1
	}
	return secs
}
