package http

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tazhibayda/event-service/internal/domain"
	"github.com/tazhibayda/event-service/internal/helper"
	"github.com/tazhibayda/event-service/internal/log"
	"github.com/tazhibayda/event-service/internal/metrics"
	"go.uber.org/zap"
	gintrace "gopkg.in/DataDog/dd-trace-go.v1/contrib/gin-gonic/gin"
)

const (
	requestIDKey = "X-Request-ID"
	uidKey       = "uid"
	userKey      = "user"
)

func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDKey)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDKey, id)
		c.Request = c.Request.WithContext(helper.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		l := log.WithDD(c.Request.Context(), log.L(),
			zap.String("request_id", c.GetString(requestIDKey)),
		)
		l.Info("http",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", ClientIP(c)),
		)
	}
}

func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		metrics.InFlight.Inc()
		start := time.Now()
		c.Next()
		metrics.InFlight.Dec()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.ReqDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
		metrics.RequestsTotal.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// Tracing returns the Datadog gin middleware, or a pass-through when tracing is off.
func Tracing(enabled bool, service string) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return gintrace.Middleware(service)
}

func CORS() gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	cfg.AllowAllOrigins = true
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization", requestIDKey)
	cfg.ExposeHeaders = []string{requestIDKey}
	return cors.New(cfg)
}

type bucket struct {
	tokens  int
	updated time.Time
}

// RateLimiter is a fixed-window counter per client IP. A nil limiter allows everything.
type RateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	rate      int
	window    time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func NewRateLimiter(rate int, window time.Duration) *RateLimiter {
	return &RateLimiter{buckets: make(map[string]*bucket), rate: rate, window: window, now: time.Now}
}

func (rl *RateLimiter) Allow(ip string) bool {
	if rl == nil || rl.rate <= 0 {
		return true
	}
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.sweep(now)
	b, ok := rl.buckets[ip]
	if !ok || now.Sub(b.updated) > rl.window {
		rl.buckets[ip] = &bucket{tokens: 1, updated: now}
		return true
	}
	if b.tokens < rl.rate {
		b.tokens++
		return true
	}
	return false
}

// sweep drops buckets whose window has passed, at most once per window.
func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) <= rl.window {
		return
	}
	for ip, b := range rl.buckets {
		if now.Sub(b.updated) > rl.window {
			delete(rl.buckets, ip)
		}
	}
	rl.lastSweep = now
}

func ClientIP(c *gin.Context) string {
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	host, _, err := net.SplitHostPort(ip)
	if err == nil && host != "" {
		return host
	}
	return ip
}

// RateLimit guards the OTP mail routes. It is a pass-through when rl is nil.
func RateLimit(rl *RateLimiter) gin.HandlerFunc {
	if rl == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if !rl.Allow(ClientIP(c)) {
			fail(c, http.StatusTooManyRequests, "Too many requests", nil)
			return
		}
		c.Next()
	}
}

// Authenticate requires a valid bearer token and loads the caller into the context.
func (h *Handler) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		hdr := c.GetHeader("Authorization")
		if !strings.HasPrefix(strings.ToLower(hdr), "bearer ") {
			fail(c, http.StatusUnauthorized, "Unauthorized: No token provided", nil)
			return
		}
		tok := strings.TrimSpace(hdr[len("Bearer "):])
		if tok == "" {
			fail(c, http.StatusUnauthorized, "Unauthorized: No token provided", nil)
			return
		}
		uid, err := h.Tokens.Verify(tok)
		if err != nil {
			fail(c, http.StatusUnauthorized, "Unauthorized: Invalid token", nil)
			return
		}
		u, err := h.loadUser(c, uid)
		if err != nil {
			fail(c, http.StatusUnauthorized, "Unauthorized: Invalid token", nil)
			return
		}
		c.Set(uidKey, uid)
		c.Set(userKey, u)
		c.Next()
	}
}

// loadUser reads the sanitized user through the Redis cache when one is configured.
func (h *Handler) loadUser(c *gin.Context, uid string) (domain.PublicUser, error) {
	ctx := c.Request.Context()
	if h.Cache != nil {
		if u, err := h.Cache.GetUser(ctx, uid); err == nil && u != nil {
			return *u, nil
		} else if err != nil {
			log.L().Warn("user cache read", zap.Error(err))
		}
	}
	u, err := h.Auth.Profile(ctx, uid)
	if err != nil {
		return domain.PublicUser{}, err
	}
	if h.Cache != nil {
		if err := h.Cache.SetUser(ctx, u); err != nil {
			log.L().Warn("user cache write", zap.Error(err))
		}
	}
	return u, nil
}
