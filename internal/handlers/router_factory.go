package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"feedbackapp/internal/config"
	"feedbackapp/internal/middleware"
	"feedbackapp/internal/observability"
	"feedbackapp/internal/services"
	"feedbackapp/internal/version"
)

// NewRouter creates the Gin engine with all middleware and routes wired.
func NewRouter(
	cfg *config.Config,
	cache *services.FeedbackCache,
	feedbackService *services.FeedbackService,
	exportService *services.ExportService,
	sessionService *services.SessionService,
	verifier services.TokenVerifier,
	logger *observability.Logger,
) *gin.Engine {
	// Setup Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorRecoveryMiddleware(logger))

	// Add HTTP request logging middleware using our observability logger
	router.Use(func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()

		fields := map[string]interface{}{
			"http.method":      c.Request.Method,
			"http.path":        c.Request.URL.Path,
			"http.status_code": statusCode,
			"http.latency_ms":  latency.Milliseconds(),
			"http.client_ip":   c.ClientIP(),
			"http.user_agent":  c.Request.UserAgent(),
		}
		if len(c.Errors) > 0 {
			fields["http.error"] = c.Errors.String()
		}

		switch {
		case statusCode >= 500:
			logger.Error(c.Request.Context(), "HTTP request failed", nil, fields)
		case statusCode >= 400:
			logger.Warn(c.Request.Context(), "HTTP request warning", fields)
		default:
			logger.Info(c.Request.Context(), "HTTP request", fields)
		}
	})

	// Health check endpoint (defined before any middleware)
	router.GET("/health", func(c *gin.Context) {
		status := gin.H{"status": "ok", "service": "feedback-backend"}
		if err := cache.Err(); err != nil {
			status["status"] = "degraded"
			status["detail"] = "feedback subscription lost"
		}
		c.JSON(http.StatusOK, status)
	})

	// Add OpenTelemetry middleware for HTTP tracing and context propagation
	router.Use(observability.GinMiddlewareWithErrorHandling("feedback-backend"))

	// Disable automatic redirection for trailing slashes, which is better for APIs
	router.RedirectTrailingSlash = false

	// Setup CORS middleware
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.CORSOrigins
	if len(corsConfig.AllowOrigins) == 0 {
		// cors.New panics when every origin is disabled.
		corsConfig.AllowOrigins = config.DefaultCORSOrigins
	}
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Requested-With"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Setup session middleware
	store := cookie.NewStore([]byte(cfg.Server.SessionSecret))
	sessionOpts := sessions.Options{
		Path:     config.SessionPath,
		MaxAge:   int(config.SessionMaxAge.Seconds()),
		HttpOnly: config.SessionHTTPOnly,
		Secure:   config.SessionSecure,
	}
	if cfg.Server.Debug {
		sessionOpts.SameSite = http.SameSiteDefaultMode
	} else {
		sessionOpts.SameSite = http.SameSiteLaxMode
		sessionOpts.Secure = true
	}
	store.Options(sessionOpts)
	router.Use(sessions.Sessions(config.SessionName, store))

	// Setup Gin mode
	gin.SetMode(gin.ReleaseMode)
	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	}

	// Security middleware
	secureConfig := secure.DefaultConfig()
	secureConfig.SSLRedirect = false
	secureConfig.ContentSecurityPolicy = config.DefaultCSP
	router.Use(secure.New(secureConfig))

	// Initialize handlers
	authHandler := NewAuthHandler(sessionService, cfg, logger)
	feedbackHandler := NewFeedbackHandler(cache, feedbackService, exportService, cfg, logger)

	v1 := router.Group("/v1")
	{
		v1.GET("/version", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"service":   "feedback-backend",
				"version":   version.Version,
				"commit":    version.Commit,
				"buildTime": version.BuildTime,
			})
		})

		auth := v1.Group("/auth")
		{
			auth.POST("/login", middleware.RequestValidationMiddleware(logger), authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/status", authHandler.Status)
			auth.POST("/register", middleware.RequestValidationMiddleware(logger), authHandler.Register)
			auth.GET("/register/status", authHandler.SignupStatus)
		}

		feedbacks := v1.Group("/feedbacks")
		feedbacks.Use(middleware.RequireAuth(verifier))
		{
			feedbacks.POST("", middleware.RequestValidationMiddleware(logger), feedbackHandler.SubmitFeedback)
			feedbacks.GET("/mine", feedbackHandler.MyFeedbacks)
		}

		admin := v1.Group("/admin")
		admin.Use(middleware.RequireAuth(verifier))
		admin.Use(middleware.RequireAdmin(sessionService))
		admin.Use(middleware.RequestValidationMiddleware(logger))
		{
			admin.GET("/feedbacks", feedbackHandler.ListFeedbacks)
			admin.GET("/feedbacks/export", feedbackHandler.ExportFeedbacks)
			admin.POST("/feedbacks/:id/read", feedbackHandler.MarkRead)
			admin.POST("/feedbacks/:id/responded", feedbackHandler.MarkResponded)
			admin.POST("/feedbacks/:id/respond", feedbackHandler.Respond)
			admin.DELETE("/feedbacks/:id", feedbackHandler.DeleteFeedback)
		}
	}

	return router
}
