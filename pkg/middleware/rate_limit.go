package middleware

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gogotex/secrets/pkg/logger"
	"github.com/gogotex/secrets/pkg/metrics"
	"golang.org/x/time/rate"
)

// Idle limiters are dropped once per limiterSweepEvery. A bucket left alone
// that long has refilled, so dropping it loses nothing.
const (
	limiterIdleTTL    = 10 * time.Minute
	limiterSweepEvery = time.Minute
)

type limiterEntry struct {
	lim  *rate.Limiter
	seen atomic.Int64 // unix nanos of the last request
}

// limiterStore is a per-key token-bucket store. Each middleware owns one.
type limiterStore struct {
	m         sync.Map // map[string]*limiterEntry
	rps       float64
	burst     int
	lastSweep atomic.Int64
}

// get returns (and lazily creates) a token-bucket limiter for the given key
func (s *limiterStore) get(key string, now time.Time) *rate.Limiter {
	s.maybeSweep(now)
	v, ok := s.m.Load(key)
	if !ok {
		v, _ = s.m.LoadOrStore(key, &limiterEntry{lim: rate.NewLimiter(rate.Limit(s.rps), s.burst)})
	}
	e := v.(*limiterEntry)
	e.seen.Store(now.UnixNano())
	return e.lim
}

func (s *limiterStore) maybeSweep(now time.Time) {
	last := s.lastSweep.Load()
	if last == 0 {
		s.lastSweep.CompareAndSwap(0, now.UnixNano())
		return
	}
	if now.UnixNano()-last < int64(limiterSweepEvery) || !s.lastSweep.CompareAndSwap(last, now.UnixNano()) {
		return
	}
	cutoff := now.Add(-limiterIdleTTL).UnixNano()
	s.m.Range(func(k, v interface{}) bool {
		if v.(*limiterEntry).seen.Load() < cutoff {
			s.m.Delete(k)
		}
		return true
	})
}

func (s *limiterStore) len() int {
	n := 0
	s.m.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}

// rateKey prefers the signed-in user so users behind one NAT do not share a
// bucket; anonymous requests are keyed by client IP.
func rateKey(c *gin.Context) string {
	if u, ok := CurrentUser(c); ok && u.ID != "" {
		return "user:" + u.ID
	}
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}

// RateLimitMiddleware returns a Gin middleware enforcing a token-bucket per-key limit.
// rps = allowed events per second, burst = maximum tokens in bucket.
func RateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	store := &limiterStore{rps: rps, burst: burst}
	return func(c *gin.Context) {
		key := rateKey(c)
		if !store.get(key, time.Now()).Allow() {
			c.Header("Retry-After", "1")
			metrics.RateLimitRejected.WithLabelValues("memory").Inc()
			logRejected("memory", key, c)
			c.AbortWithStatus(http.StatusTooManyRequests)
			return
		}
		metrics.RateLimitAllowed.WithLabelValues("memory").Inc()
		c.Next()
	}
}

func logRejected(limiter, key string, c *gin.Context) {
	logger.Warnw("rate limited", logger.Fields{
		"limiter": limiter,
		"key":     key,
		"method":  c.Request.Method,
		"path":    c.Request.URL.Path,
	})
}
