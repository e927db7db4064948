package di

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/role-portal/internal/events"
	"github.com/prohmpiriya/role-portal/internal/handler"
	"github.com/prohmpiriya/role-portal/internal/metrics"
	"github.com/prohmpiriya/role-portal/internal/middleware"
	"github.com/prohmpiriya/role-portal/internal/password"
	"github.com/prohmpiriya/role-portal/internal/repository"
	"github.com/prohmpiriya/role-portal/internal/router"
	"github.com/prohmpiriya/role-portal/internal/service"
	"github.com/prohmpiriya/role-portal/internal/token"
	"github.com/prohmpiriya/role-portal/pkg/config"
	"github.com/prohmpiriya/role-portal/pkg/database"
	"github.com/prohmpiriya/role-portal/pkg/logger"
	"github.com/prohmpiriya/role-portal/pkg/redis"
)

// Container holds all dependencies for the account service
type Container struct {
	Config *config.Config

	// Infrastructure
	DB      *database.PostgresDB
	Redis   *redis.Client
	Events  events.Publisher
	Metrics *metrics.Metrics
	Logger  *logger.Logger

	// Repositories
	UserRepo     repository.UserRepository
	RefreshStore repository.RefreshStore

	// Services
	Issuer      *token.Issuer
	AuthService service.AuthService
	UserService service.UserService

	// HTTP
	Guard         *middleware.Guard
	AuthLimiter   middleware.Limiter
	AuthHandler   *handler.AuthHandler
	UserHandler   *handler.UserHandler
	AdminHandler  *handler.AdminHandler
	HealthHandler *handler.HealthHandler

	localLimiter *middleware.LocalRateLimiter
}

// ContainerConfig contains configuration for building the container.
// A nil DB selects the in-memory credential store; a nil Redis the in-memory
// rotation store and a process-local rate limiter.
type ContainerConfig struct {
	Config  *config.Config
	DB      *database.PostgresDB
	Redis   *redis.Client
	Events  events.Publisher
	Metrics *metrics.Metrics
	Logger  *logger.Logger
	// Now overrides the clock used for tokens and rotation markers
	Now func() time.Time
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) (*Container, error) {
	c := &Container{
		Config:  cfg.Config,
		DB:      cfg.DB,
		Redis:   cfg.Redis,
		Events:  cfg.Events,
		Metrics: cfg.Metrics,
		Logger:  cfg.Logger,
	}
	if c.Events == nil {
		c.Events = events.NewNoOpPublisher()
	}
	if c.Logger == nil {
		c.Logger = logger.Get()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	// Repositories
	if c.DB != nil {
		c.UserRepo = repository.NewPostgresUserRepository(c.DB.Pool())
	} else {
		c.UserRepo = repository.NewMemoryUserRepository()
	}
	if c.Redis != nil {
		c.RefreshStore = repository.NewRedisRefreshStore(c.Redis, now)
	} else {
		c.RefreshStore = repository.NewMemoryRefreshStore(now)
	}

	// Services
	codec, err := token.NewCodec(token.Config{
		Secret:     cfg.Config.JWT.Secret,
		Issuer:     cfg.Config.JWT.Issuer,
		AccessTTL:  cfg.Config.JWT.AccessTokenTTL,
		RefreshTTL: cfg.Config.JWT.RefreshTokenTTL,
		Now:        now,
	})
	if err != nil {
		return nil, fmt.Errorf("token codec: %w", err)
	}
	c.Issuer = token.NewIssuer(codec)

	c.AuthService = service.NewAuthService(service.AuthDeps{
		Users:     c.UserRepo,
		Refresh:   c.RefreshStore,
		Issuer:    c.Issuer,
		Passwords: password.NewBcrypt(cfg.Config.Security.BcryptCost),
		Events:    c.Events,
		Metrics:   c.Metrics,
		Logger:    c.Logger,
		Now:       now,
	})
	c.UserService = service.NewUserService(service.UserDeps{
		Users:   c.UserRepo,
		Refresh: c.RefreshStore,
		Events:  c.Events,
		Logger:  c.Logger,
		Now:     now,
	})

	// HTTP
	c.Guard = middleware.NewGuard(c.AuthService, c.Metrics, c.Logger)

	sec := cfg.Config.Security
	if sec.LoginRateLimit > 0 {
		limitCfg := middleware.DefaultRateLimitConfig()
		limitCfg.RequestsPerSecond = sec.LoginRateLimit
		limitCfg.BurstSize = sec.LoginRateBurst
		if c.Redis != nil {
			c.AuthLimiter = middleware.NewRedisRateLimiter(c.Redis, limitCfg)
		} else {
			c.localLimiter = middleware.NewLocalRateLimiter(limitCfg)
			c.AuthLimiter = c.localLimiter
		}
	}

	c.AuthHandler = handler.NewAuthHandler(c.AuthService)
	c.UserHandler = handler.NewUserHandler(c.UserService)
	c.AdminHandler = handler.NewAdminHandler(c.UserService)

	components := map[string]handler.HealthChecker{
		"database": handler.HealthCheckFunc(c.UserRepo.Ping),
		"redis":    nil,
	}
	if c.DB != nil {
		components["database"] = c.DB
	}
	if c.Redis != nil {
		components["redis"] = c.Redis
	}
	c.HealthHandler = handler.NewHealthHandler(components)

	return c, nil
}

// Router builds the HTTP engine from the container
func (c *Container) Router() *gin.Engine {
	return router.New(router.Config{
		Guard:       c.Guard,
		Metrics:     c.Metrics,
		Logger:      c.Logger,
		CORS:        corsConfig(c.Config.CORS.AllowOrigins),
		AuthLimiter: c.AuthLimiter,
		Tracing:     c.Config.OTel.Enabled,
	}, router.Handlers{
		Auth:   c.AuthHandler,
		User:   c.UserHandler,
		Admin:  c.AdminHandler,
		Health: c.HealthHandler,
	})
}

// SeedAdmin creates the configured administrator when it does not exist yet
func (c *Container) SeedAdmin(ctx context.Context) error {
	admin := c.Config.Admin
	if admin.Email == "" {
		return nil
	}
	_, _, err := c.AuthService.EnsureAdmin(ctx, service.AdminSeed{
		Email:     admin.Email,
		Password:  admin.Password,
		FirstName: admin.FirstName,
		LastName:  admin.LastName,
	})
	return err
}

// Close releases background resources owned by the container
func (c *Container) Close() {
	if c.localLimiter != nil {
		c.localLimiter.Stop()
	}
}

func corsConfig(origins []string) middleware.CORSConfig {
	cfg := middleware.DefaultCORSConfig()
	if len(origins) > 0 {
		cfg.AllowOrigins = origins
	}
	return cfg
}
