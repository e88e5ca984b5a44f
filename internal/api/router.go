package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/loomery/identity-system/internal/api/handler"
	"github.com/loomery/identity-system/internal/api/middleware"
	"github.com/loomery/identity-system/internal/core/ports"
	"github.com/loomery/identity-system/internal/core/service"
	"github.com/loomery/identity-system/internal/infrastructure/config"
	mongostore "github.com/loomery/identity-system/internal/infrastructure/db/mongo"
	"github.com/loomery/identity-system/internal/infrastructure/http/handlers"
	"github.com/loomery/identity-system/internal/infrastructure/oauth"
	"github.com/loomery/identity-system/internal/infrastructure/queue"
)

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(db *mongo.Database, rdb *redis.Client, cfg *config.Config, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("identity"))

	// --- Dependencies ---
	accountRepo := mongostore.NewAccountRepository(db)
	eventRepo := mongostore.NewLoginEventRepository(db)
	tokens := service.NewTokenService(cfg.JWTSecret)
	publisher := queue.NewPublisher(rdb, cfg.Queue.Stream, ports.NoRetry, log)
	provider := oauth.NewYandexProvider(oauth.YandexConfig{
		ClientID:     cfg.Yandex.ClientID,
		ClientSecret: cfg.Yandex.ClientSecret,
	})

	authService := service.NewAuthService(accountRepo, eventRepo, tokens, publisher, log)
	accountService := service.NewAccountService(accountRepo, eventRepo, publisher, log)

	authHandler := handler.NewAuthHandler(authService, tokens, provider)
	oauthHandler := handler.NewOAuthHandler(provider, authService)
	userHandler := handler.NewUserHandler(accountService)
	adminHandler := handler.NewAdminHandler(accountService)

	// --- Public routes ---
	e.GET("/register", authHandler.RegisterForm)
	e.POST("/register", authHandler.Register)
	e.GET("/login", authHandler.LoginForm)
	e.POST("/login", authHandler.Login)
	e.GET("/auth/yandex", oauthHandler.Callback)
	e.GET("/set-password", authHandler.SetPasswordForm)
	e.POST("/set-password", authHandler.SetPassword)

	// --- Identity-scoped routes ---
	authed := e.Group("", middleware.Auth(tokens))
	authed.GET("/login-history", userHandler.LoginHistory)
	authed.GET("/users/me", userHandler.Me)
	authed.GET("/protected", userHandler.Me)

	// --- Privileged routes: current stored role must be admin ---
	admin := e.Group("/admin", middleware.Auth(tokens), middleware.RequireAdmin(accountService))
	admin.GET("", adminHandler.List)
	admin.POST("/add-user", adminHandler.AddUser)
	admin.POST("/delete-user", adminHandler.DeleteUser)

	// --- Observability (no auth required) ---
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(db, rdb)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandler())

	return e
}
