package server

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/pushkarkumarvats/DIG-7/docs"
	"github.com/pushkarkumarvats/DIG-7/internal/cache"
	"github.com/pushkarkumarvats/DIG-7/internal/config"
	"github.com/pushkarkumarvats/DIG-7/internal/database"
	apperrors "github.com/pushkarkumarvats/DIG-7/internal/errors"
	"github.com/pushkarkumarvats/DIG-7/internal/middleware"
	"github.com/pushkarkumarvats/DIG-7/internal/monitoring"
	"github.com/pushkarkumarvats/DIG-7/internal/prediction"
	"github.com/pushkarkumarvats/DIG-7/internal/ratelimit"
	"github.com/pushkarkumarvats/DIG-7/internal/recommend"
	"github.com/pushkarkumarvats/DIG-7/internal/resilience"
	"github.com/pushkarkumarvats/DIG-7/internal/scoring"
	"github.com/pushkarkumarvats/DIG-7/internal/security"
)

const Version = "1.0.0"

// DatabaseService names the vendor store in health reports.
const DatabaseService = "database"

// Deps are the collaborators the HTTP layer is built from. Breakers should be
// the registry the gateway was built with.
type Deps struct {
	Config      *config.Config
	Repo        *database.Repository
	Gateway     *prediction.Gateway
	Ranker      *recommend.Ranker
	Limiter     *ratelimit.RateLimiter
	Redis       *ratelimit.RedisClient
	Degradation *resilience.DegradationManager
	Breakers    *resilience.CircuitBreakerRegistry
	Issuer      *security.TokenIssuer
	Metrics     *monitoring.Metrics
	Logger      *monitoring.Logger
}

type Server struct {
	cfg         *config.Config
	repo        *database.Repository
	gateway     *prediction.Gateway
	ranker      *recommend.Ranker
	explain     scoring.ExplainPolicy
	limiter     *ratelimit.RateLimiter
	redis       *ratelimit.RedisClient
	degradation *resilience.DegradationManager
	breakers    *resilience.CircuitBreakerRegistry
	issuer      *security.TokenIssuer
	metrics     *monitoring.Metrics
	logger      *monitoring.Logger
	compressor  *middleware.Compressor
	cache       *cache.Cache

	router *gin.Engine
}

func New(d Deps) *Server {
	s := &Server{
		cfg:         d.Config,
		repo:        d.Repo,
		gateway:     d.Gateway,
		ranker:      d.Ranker,
		explain:     scoring.DefaultExplainPolicy(),
		limiter:     d.Limiter,
		redis:       d.Redis,
		degradation: d.Degradation,
		breakers:    d.Breakers,
		issuer:      d.Issuer,
		metrics:     d.Metrics,
		logger:      d.Logger,
		compressor:  middleware.NewCompressor(middleware.DefaultCompressionConfig()),
		cache:       cache.NewCache(d.Config.CacheTTL),
	}
	if s.ranker == nil {
		s.ranker = recommend.NewRanker(recommend.DefaultBlend())
	}
	if s.breakers == nil {
		s.breakers = resilience.NewCircuitBreakerRegistry()
	}

	s.degradation.RegisterService(DatabaseService, s.repo.Ping)
	if s.redis.IsEnabled() {
		s.degradation.RegisterService(ratelimit.ServiceName, s.redis.HealthCheck)
	}

	s.router = s.routes()
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// Close stops background work owned by the server.
func (s *Server) Close() { s.cache.Close() }

// catalogueChanged drops cached recommendations after any vendor write.
func (s *Server) catalogueChanged() { s.cache.Clear() }

func (s *Server) routes() *gin.Engine {
	r := gin.New()

	r.Use(monitoring.MonitoringMiddleware(s.metrics, s.logger))
	r.Use(monitoring.SecurityMonitoringMiddleware(s.logger))
	r.Use(apperrors.ErrorHandler())
	r.Use(apperrors.RecoveryHandler())

	r.Use(cors.New(s.corsConfig()))
	r.Use(s.compressor.Handler())
	r.Use(security.SecurityHeadersMiddleware(s.cfg.Security))
	r.Use(security.RequestTimeout(s.cfg.Security.RequestTimeout))
	r.Use(security.ValidateContentType())

	r.GET("/health", s.handleHealth)
	r.GET("/health/services", s.handleServiceHealth)
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	r.GET("/metrics/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.metrics.GetStats())
	})
	docs.SwaggerInfo.Version = Version
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	policy := security.AccessPolicy{Issuer: s.issuer, DemoMode: s.cfg.DemoMode}

	api := r.Group("/api")
	api.Use(s.limiter.IPRateLimitMiddleware())
	api.Use(policy.Middleware())
	{
		api.POST("/auth/token", s.handleIssueToken)
		api.GET("/auth/demo-users", s.handleDemoUsers)

		vendors := api.Group("/vendors")
		vendors.GET("", s.handleListVendors)
		vendors.POST("", s.handleCreateVendor)
		vendors.POST("/score", s.handleScoreVendor)
		vendors.GET("/:id", s.handleGetVendor)
		vendors.PATCH("/:id", s.handleUpdateVendor)
		vendors.PUT("/:id", s.handleUpdateVendor)
		vendors.DELETE("/:id", s.handleDeleteVendor)

		api.POST("/recommend", s.cache.Middleware(s.metrics), s.handleRecommend)

		ml := api.Group("/ml")
		ml.POST("/predict", s.handlePredict)
		ml.POST("/batch", s.handlePredictBatch)
		ml.GET("/health", s.handleOracleHealth)

		api.GET("/audit-logs", s.handleListAuditLogs)
		api.POST("/audit-logs", s.handleCreateAuditLog)

		api.GET("/ratelimit/status", s.limiter.HandleRateLimitStatus())

		admin := api.Group("/admin")
		admin.GET("/ratelimit", s.limiter.HandleAdminRateLimits())
		admin.DELETE("/ratelimit/:ip", s.limiter.HandleResetIP())
		admin.DELETE("/ratelimit", s.limiter.HandleResetAll())
		admin.GET("/pools", s.handlePools)
		admin.DELETE("/services/:name", s.handleResetService)
	}

	return r
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(s.cfg.AllowedOrigins) == 0 || slices.Contains(s.cfg.AllowedOrigins, "*") {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = s.cfg.AllowedOrigins
	}
	return cfg
}

func (s *Server) handlePools(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"database":    s.repo.PoolStats(),
		"redis":       s.redis.GetPoolStats(),
		"compression": s.compressor.Stats(),
		"cache":       s.cache.Stats(),
	})
}
