package fakeapi

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"directory-console/internal/models"
	"directory-console/pkg/auth"
)

// AuthMiddleware checks the bearer token against the current access secret.
func AuthMiddleware(tokens func() *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header is required",
			})
			c.Abort()
			return
		}

		// "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid authorization header format",
			})
			c.Abort()
			return
		}

		claims, err := tokens().ValidateToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid token",
			})
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("username", claims.Username)
		c.Set("role", claims.Role)

		c.Next()
	}
}

// RequireRole lets through users whose role ranks at or above minRole.
func RequireRole(minRole models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleStr := c.GetString("role")
		if roleStr == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "User not authenticated",
			})
			c.Abort()
			return
		}

		userRole := models.UserRole(roleStr)
		if !userRole.IsValid() {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Invalid role",
			})
			c.Abort()
			return
		}

		if !userRole.IsHigherOrEqual(minRole) {
			c.JSON(http.StatusForbidden, gin.H{
				"message":       "Insufficient permissions",
				"required_role": minRole,
				"user_role":     roleStr,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// RateLimiter is a per-client sliding window limiter. Stale clients are
// purged lazily while serving requests.
type RateLimiter struct {
	requests    map[string][]time.Time
	mutex       sync.Mutex
	limit       int
	window      time.Duration
	lastCleanup time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests:    make(map[string][]time.Time),
		limit:       limit,
		window:      window,
		lastCleanup: time.Now(),
	}
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		rl.mutex.Lock()
		now := time.Now()
		if now.Sub(rl.lastCleanup) > 5*rl.window {
			rl.cleanup(now)
		}

		valid := recent(rl.requests[clientIP], now.Add(-rl.window))
		if len(valid) >= rl.limit {
			rl.requests[clientIP] = valid
			rl.mutex.Unlock()
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded. Please try again later.",
			})
			c.Abort()
			return
		}

		rl.requests[clientIP] = append(valid, now)
		rl.mutex.Unlock()

		c.Next()
	}
}

func (rl *RateLimiter) cleanup(now time.Time) {
	cutoff := now.Add(-rl.window)
	for ip, requests := range rl.requests {
		if valid := recent(requests, cutoff); len(valid) == 0 {
			delete(rl.requests, ip)
		} else {
			rl.requests[ip] = valid
		}
	}
	rl.lastCleanup = now
}

func recent(requests []time.Time, cutoff time.Time) []time.Time {
	var valid []time.Time
	for _, t := range requests {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	return valid
}

// faults records calls per route and answers queued failures before the
// real handler runs.
type faults struct {
	mu      sync.Mutex
	pending map[string][]int
	calls   map[string]int
}

func newFaults() *faults {
	return &faults{pending: make(map[string][]int), calls: make(map[string]int)}
}

func routeKey(method, fullPath string) string {
	return method + " " + strings.TrimPrefix(fullPath, basePath)
}

func (f *faults) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := routeKey(c.Request.Method, c.FullPath())

		f.mu.Lock()
		f.calls[key]++
		var status int
		if queue := f.pending[key]; len(queue) > 0 {
			status = queue[0]
			f.pending[key] = queue[1:]
		}
		f.mu.Unlock()

		if status != 0 {
			c.AbortWithStatusJSON(status, gin.H{
				"success": false,
				"message": http.StatusText(status),
			})
			return
		}
		c.Next()
	}
}

func (f *faults) failNext(key string, status int) {
	f.mu.Lock()
	f.pending[key] = append(f.pending[key], status)
	f.mu.Unlock()
}

func (f *faults) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}
