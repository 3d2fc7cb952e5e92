package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/AnTengye/bettertender/backend/config"
	"github.com/AnTengye/bettertender/backend/middleware"
	"github.com/AnTengye/bettertender/backend/service"
	"github.com/gin-gonic/gin"
)

// Services bundles what the HTTP layer calls into
type Services struct {
	Users       *service.UserService
	Tenders     *service.TenderService
	Submissions *service.SubmissionService
	Documents   *service.DocumentService
	Audit       *service.AuditService
}

// NewRouter builds the gin engine with middleware and every API route
func NewRouter(cfg *config.Config, svc *Services) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(corsMiddleware())
	router.Use(noCacheMiddleware())

	window := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	authHandler := NewAuthHandler(svc.Users, &cfg.Auth)
	tenderHandler := NewTenderHandler(svc.Tenders)
	submissionHandler := NewSubmissionHandler(svc.Submissions)
	documentHandler := NewDocumentHandler(svc.Documents)
	auditHandler := NewAuditHandler(svc.Audit)

	// Public routes, limited per client IP
	api := router.Group("/api")
	public := api.Group("/auth")
	public.Use(middleware.RateLimit(cfg.RateLimit.Requests, window))
	{
		public.POST("/register", authHandler.Register)
		public.POST("/login", authHandler.Login)
	}

	// Protected routes, limited per user
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(&cfg.Auth))
	protected.Use(middleware.RateLimit(cfg.RateLimit.Requests, window))
	{
		protected.GET("/auth/me", authHandler.GetCurrentUser)

		protected.GET("/tenders", tenderHandler.List)
		protected.POST("/tenders", tenderHandler.Create)
		protected.GET("/tenders/:id", tenderHandler.Get)
		protected.PUT("/tenders/:id", tenderHandler.Update)
		protected.DELETE("/tenders/:id", tenderHandler.Delete)
		protected.POST("/tenders/:id/publish", tenderHandler.Publish)
		protected.POST("/tenders/:id/close", tenderHandler.Close)
		protected.POST("/tenders/:id/award", tenderHandler.Award)
		protected.POST("/tenders/:id/cancel", tenderHandler.Cancel)
		protected.POST("/tenders/:id/submissions", submissionHandler.Create)
		protected.GET("/tenders/:id/submissions", submissionHandler.ListForTender)

		protected.GET("/submissions/mine", submissionHandler.ListMine)
		protected.GET("/submissions/:id", submissionHandler.Get)
		protected.POST("/submissions/:id/verify", submissionHandler.Verify)

		protected.POST("/documents", documentHandler.Upload)
		protected.GET("/documents", documentHandler.List)
		protected.GET("/documents/:id", documentHandler.Download)
		protected.GET("/documents/:id/link", documentHandler.Link)
		protected.DELETE("/documents/:id", documentHandler.Delete)

		protected.GET("/audit", auditHandler.List)
		protected.GET("/audit/verify", auditHandler.Verify)
	}

	return router
}

// corsMiddleware handles CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID, X-Checksum-SHA256")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// noCacheMiddleware keeps API responses out of shared caches
func noCacheMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
		}
		c.Next()
	}
}
