// Package router maps every HTTP route onto its handler behind the
// authenticate and authorize steps its policy operation requires.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/role-portal/internal/handler"
	"github.com/prohmpiriya/role-portal/internal/metrics"
	"github.com/prohmpiriya/role-portal/internal/middleware"
	"github.com/prohmpiriya/role-portal/internal/policy"
	"github.com/prohmpiriya/role-portal/pkg/logger"
	"github.com/prohmpiriya/role-portal/pkg/telemetry"
)

// Handlers groups the HTTP handlers mounted by New
type Handlers struct {
	Auth   *handler.AuthHandler
	User   *handler.UserHandler
	Admin  *handler.AdminHandler
	Health *handler.HealthHandler
}

// Config controls the cross-cutting middleware
type Config struct {
	Guard   *middleware.Guard
	Metrics *metrics.Metrics
	Logger  *logger.Logger
	CORS    middleware.CORSConfig
	// AuthLimiter throttles the unauthenticated auth endpoints; nil disables it
	AuthLimiter middleware.Limiter
	Tracing     bool
}

// New builds the gin engine
func New(cfg Config, h Handlers) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID())
	if cfg.Tracing {
		r.Use(telemetry.TracingMiddleware())
	}
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}
	r.Use(middleware.Logger(log), middleware.CORS(cfg.CORS))

	r.GET("/health", h.Health.Health)
	r.GET("/ready", h.Health.Ready)

	throttle := func(scope string) []gin.HandlerFunc {
		if cfg.AuthLimiter == nil {
			return nil
		}
		return []gin.HandlerFunc{middleware.RateLimit(cfg.AuthLimiter, scope, log)}
	}
	guard := cfg.Guard

	api := r.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/register", append(throttle("register"), h.Auth.Register)...)
		auth.POST("/login", append(throttle("login"), h.Auth.Login)...)
		auth.POST("/refresh", append(throttle("refresh"), h.Auth.Refresh)...)
		auth.POST("/logout", guard.Authenticate(), guard.Authorize(policy.OpSessionLogout, ""), h.Auth.Logout)
	}

	users := api.Group("/users", guard.Authenticate())
	{
		users.GET("", guard.Authorize(policy.OpUsersList, ""), h.User.List)
		users.GET("/profile", guard.Authorize(policy.OpProfileRead, ""), h.User.GetProfile)
		users.PUT("/profile", guard.Authorize(policy.OpProfileUpdate, ""), h.User.UpdateProfile)
		users.PUT("/change-password", guard.Authorize(policy.OpPasswordChange, ""), h.Auth.ChangePassword)
		users.GET("/:id", guard.Authorize(policy.OpUsersRead, "id"), h.User.GetByID)
	}

	admin := api.Group("/admin", guard.Authenticate())
	{
		admin.GET("/users", guard.Authorize(policy.OpAdminUsersList, ""), h.User.List)
		admin.GET("/users/:id", guard.Authorize(policy.OpAdminUsersRead, ""), h.User.GetByID)
		admin.PUT("/users/:id", guard.Authorize(policy.OpAdminUsersUpdate, ""), h.Admin.UpdateUser)
		admin.PATCH("/users/:id/role", guard.Authorize(policy.OpAdminUsersRole, ""), h.Admin.UpdateRole)
		admin.PATCH("/users/:id/status", guard.Authorize(policy.OpAdminUsersStatus, ""), h.Admin.UpdateStatus)
		admin.DELETE("/users/:id", guard.Authorize(policy.OpAdminUsersDelete, ""), h.Admin.DeleteUser)
		admin.GET("/stats", guard.Authorize(policy.OpAdminStats, ""), h.Admin.Stats)
	}

	return r
}
