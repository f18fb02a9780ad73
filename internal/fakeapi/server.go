// Package fakeapi serves the directory REST contract from memory. It backs
// the client tests and local runs of the console; it is not a product backend.
package fakeapi

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"directory-console/internal/models"
	"directory-console/pkg/auth"
)

const basePath = "/api"

type Options struct {
	// Now overrides the clock used for ages and schedule checks.
	Now        func() time.Time
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// RateLimit caps requests per client inside RateWindow; zero disables it.
	RateLimit  int
	RateWindow time.Duration
	// AllowedOrigins enables CORS for browser clients on local runs.
	AllowedOrigins []string
}

type Server struct {
	store  *store
	faults *faults
	router *gin.Engine
	opts   Options

	mu            sync.Mutex
	access        *auth.JWTManager
	refresh       *auth.JWTManager
	refreshTokens map[string]bool
	failRefresh   bool
	refreshDelay  time.Duration
	lastCreate    map[string]any
	mailedResets  map[string]string // last reset token by email
}

func New(opts Options) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = 15 * time.Minute
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = 7 * 24 * time.Hour
	}
	if opts.RateWindow <= 0 {
		opts.RateWindow = time.Minute
	}

	s := &Server{
		store:         newStore(opts.Now),
		faults:        newFaults(),
		opts:          opts,
		access:        auth.NewJWTManager(uuid.NewString(), opts.AccessTTL, opts.RefreshTTL),
		refresh:       auth.NewJWTManager(uuid.NewString(), opts.AccessTTL, opts.RefreshTTL),
		refreshTokens: make(map[string]bool),
		mailedResets:  make(map[string]string),
	}
	s.router = s.setupRouter()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	if len(s.opts.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:  s.opts.AllowedOrigins,
			AllowMethods:  []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
			ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
			MaxAge:        12 * time.Hour,
		}))
	}

	api := router.Group(basePath)
	api.Use(s.faults.middleware())
	if s.opts.RateLimit > 0 {
		api.Use(NewRateLimiter(s.opts.RateLimit, s.opts.RateWindow).RateLimit())
	}

	api.POST("/auth/admin/login", s.login)
	api.POST("/auth/refresh", s.refreshToken)
	api.POST("/auth/logout", s.logout)
	api.POST("/auth/admin/reset-password", s.requestPasswordReset)
	api.POST("/auth/admin/reset-password/:token", s.confirmPasswordReset)

	protected := api.Group("")
	protected.Use(AuthMiddleware(s.accessTokens))

	protected.GET("/auth/me", s.me)
	protected.GET("/master-data/:category", s.masterData)
	protected.POST("/master-data/:category", s.masterData)
	protected.GET("/members", s.listMembers)
	protected.GET("/members/:id", s.getMember)
	protected.GET("/families", s.listFamilies)
	protected.GET("/families/:id", s.getFamily)
	protected.GET("/buildings", s.listBuildings)
	protected.GET("/buildings/:id", s.getBuilding)
	protected.GET("/dashboard/stats", s.dashboardStats)
	protected.GET("/notifications", s.listNotifications)
	protected.GET("/notifications/unread-count", s.unreadCount)
	protected.GET("/notifications/:id", s.getNotification)
	protected.POST("/notifications/:id/read", s.markRead)

	admin := protected.Group("")
	admin.Use(RequireRole(models.RoleAdmin))
	admin.POST("/notifications", s.createNotification)
	admin.POST("/members", s.createMember)
	admin.PUT("/members/:id", s.updateMember)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Endpoint not found",
			"path":  c.Request.URL.Path,
		})
	})

	return router
}

func (s *Server) accessTokens() *auth.JWTManager {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access
}

// FailNext makes the next call to the route answer with status. Paths use
// the route pattern without the /api prefix, e.g. "/notifications/:id".
func (s *Server) FailNext(method, path string, status int) {
	s.faults.failNext(method+" "+path, status)
}

// Calls reports how many requests reached the route.
func (s *Server) Calls(method, path string) int {
	return s.faults.count(method + " " + path)
}

// ExpireAccessTokens invalidates every access token issued so far.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	s.access = auth.NewJWTManager(uuid.NewString(), s.opts.AccessTTL, s.opts.RefreshTTL)
	s.mu.Unlock()
}

// FailRefresh makes the refresh endpoint reject every token.
func (s *Server) FailRefresh(fail bool) {
	s.mu.Lock()
	s.failRefresh = fail
	s.mu.Unlock()
}

// SetRefreshDelay slows the refresh endpoint down.
func (s *Server) SetRefreshDelay(d time.Duration) {
	s.mu.Lock()
	s.refreshDelay = d
	s.mu.Unlock()
}

// LastCreateBody returns the raw JSON body of the last POST /notifications.
func (s *Server) LastCreateBody() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastCreate
}

// ResetToken returns the last password reset token issued for email.
func (s *Server) ResetToken(email string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.mailedResets[email]
	return token, ok
}

// UnreadCount is the server-side inbox count.
func (s *Server) UnreadCount() int {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	return s.store.unreadCount()
}

// InboxNotification returns the id of an unread inbox notification.
func (s *Server) InboxNotification() (string, bool) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	for id, read := range s.store.inbox {
		if !read {
			return id, true
		}
	}
	return "", false
}

func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"message": message,
	})
}

func pagination(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "10"))

	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return page, limit
}

func paginate[T any](items []T, page, limit int) []T {
	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
