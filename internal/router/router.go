package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/pusat-bantuan/helpcenter-auth/pkg/config"
	"github.com/pusat-bantuan/helpcenter-auth/pkg/logger"
	corsmiddleware "github.com/pusat-bantuan/helpcenter-auth/pkg/middleware/cors"
	reqidmiddleware "github.com/pusat-bantuan/helpcenter-auth/pkg/middleware/requestid"

	"github.com/pusat-bantuan/helpcenter-auth/internal/handler"
	"github.com/pusat-bantuan/helpcenter-auth/internal/middleware"
	"github.com/pusat-bantuan/helpcenter-auth/internal/models"
	"github.com/pusat-bantuan/helpcenter-auth/internal/service"
)

// Deps bundles everything the HTTP surface needs.
type Deps struct {
	Config   *config.Config
	Logger   *zap.Logger
	DB       *sqlx.DB
	Redis    *redis.Client
	Metrics  *service.MetricsService
	Auth     *service.AuthService
	Reset    *service.PasswordResetService
	Sessions *service.SessionService
}

// New assembles the gin engine. The unauthenticated surface is exactly the
// routes registered outside the authed groups below; everything else goes
// through Auth and a role check.
func New(d Deps) *gin.Engine {
	if d.Config.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(d.Logger))
	r.Use(corsmiddleware.New(d.Config.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(d.Metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if d.DB != nil {
			if err := d.DB.PingContext(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	if d.Config.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authHandler := handler.NewAuthHandler(d.Auth, d.Reset)
	sessionHandler := handler.NewSessionHandler(d.Sessions)

	authed := middleware.Auth(d.Auth)
	staffOrAdmin := middleware.RequireRoles(models.RoleAdmin, models.RoleStaff)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	limited := middleware.RateLimit(d.Config.RateLimit, d.Redis, d.Metrics, d.Logger)

	api := r.Group(d.Config.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", limited, authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/forgot-password", limited, authHandler.ForgotPassword)
		auth.GET("/verify-reset-token/:token", authHandler.VerifyResetToken)
		auth.POST("/reset-password", authHandler.ResetPassword)

		auth.POST("/logout", authed, staffOrAdmin, authHandler.Logout)
		auth.GET("/me", authed, staffOrAdmin, authHandler.Me)
	}

	admin := api.Group("/admin", authed, adminOnly)
	{
		admin.GET("/users/:id/sessions", sessionHandler.ListUserSessions)
		admin.DELETE("/users/:id/sessions", sessionHandler.RevokeUserSessions)
		admin.GET("/audit-logs/export", sessionHandler.ExportAuditLogs)
	}

	r.GET("/metrics", authed, adminOnly, gin.WrapH(d.Metrics.Handler()))

	return r
}
