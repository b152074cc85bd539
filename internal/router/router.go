package router

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"

	"github.com/anonto42/nano-community/backend/internal/billing/kiwify"
	"github.com/anonto42/nano-community/backend/internal/handlers"
	"github.com/anonto42/nano-community/backend/internal/media"
	"github.com/anonto42/nano-community/backend/internal/middleware"
	"github.com/anonto42/nano-community/backend/internal/models"
	"github.com/anonto42/nano-community/backend/internal/repositories"
	"github.com/anonto42/nano-community/backend/internal/services"
	"github.com/anonto42/nano-community/backend/pkg/config"
	"github.com/anonto42/nano-community/backend/validators"
)

// Services bundles the wired domain services shared by the HTTP server and the CLI.
type Services struct {
	Accounts      *services.AccountService
	Posts         *services.PostService
	Comments      *services.CommentService
	Interactions  *services.InteractionService
	Notifications *services.NotificationService
	Stories       *services.StoryService
	Billing       *services.BillingService
}

// Externals are the optional collaborators that live outside the databases.
type Externals struct {
	Verifier  services.TokenVerifier
	Media     media.Store
	Publisher services.Publisher
}

// Migrate creates SQL tables and Mongo indexes.
func Migrate(ctx context.Context, sqlDB *gorm.DB, docs *mongo.Database) error {
	if err := sqlDB.AutoMigrate(
		&models.Account{},
		&models.Comment{},
		&models.Like{},
		&models.SavedPost{},
		&models.Notification{},
		&models.StoryView{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if err := repositories.NewMongoPostRepository(docs).EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("post indexes: %w", err)
	}
	if err := repositories.NewMongoStoryRepository(docs).EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("story indexes: %w", err)
	}
	log.Info().Msg("migrations completed")
	return nil
}

// BuildServices wires repositories into services.
func BuildServices(cfg config.Config, sqlDB *gorm.DB, docs *mongo.Database, ext Externals) *Services {
	accountRepo := repositories.NewPostgresAccountRepository(sqlDB)
	postRepo := repositories.NewMongoPostRepository(docs)
	commentRepo := repositories.NewPostgresCommentRepository(sqlDB)
	likeRepo := repositories.NewPostgresLikeRepository(sqlDB)
	savedPostRepo := repositories.NewPostgresSavedPostRepository(sqlDB)
	notificationRepo := repositories.NewPostgresNotificationRepository(sqlDB)
	storyRepo := repositories.NewMongoStoryRepository(docs)
	storyViewRepo := repositories.NewPostgresStoryViewRepository(sqlDB)

	notifications := services.NewNotificationService(notificationRepo, accountRepo, ext.Publisher)
	interactions := services.NewInteractionService(likeRepo, savedPostRepo, postRepo, commentRepo, accountRepo, notifications)

	var sales services.SalesSource
	if cfg.Kiwify.SalesAPIEnabled() {
		sales = kiwify.NewClient(kiwify.Config{
			BaseURL:      cfg.Kiwify.BaseURL,
			ClientID:     cfg.Kiwify.ClientID,
			ClientSecret: cfg.Kiwify.ClientSecret,
			AccountID:    cfg.Kiwify.AccountID,
		})
	}

	return &Services{
		Accounts: &services.AccountService{
			Accounts: accountRepo,
			Posts:    postRepo,
			Comments: commentRepo,
			Verifier: ext.Verifier,
			Secret:   []byte(cfg.JWTSecret),
			TokenTTL: cfg.TokenTTL,
		},
		Posts: &services.PostService{
			Posts:         postRepo,
			Accounts:      accountRepo,
			Comments:      commentRepo,
			Likes:         likeRepo,
			Saves:         savedPostRepo,
			Notifications: notificationRepo,
			Interactions:  interactions,
		},
		Comments: &services.CommentService{
			Comments:      commentRepo,
			Posts:         postRepo,
			Accounts:      accountRepo,
			Likes:         likeRepo,
			Notifications: notificationRepo,
			Notifier:      notifications,
		},
		Interactions:  interactions,
		Notifications: notifications,
		Stories: &services.StoryService{
			Stories:  storyRepo,
			ViewLog:  storyViewRepo,
			Accounts: accountRepo,
			Media:    ext.Media,
			Limits:   media.Limits{MaxImageBytes: cfg.MaxImageBytes, MaxVideoBytes: cfg.MaxVideoBytes},
		},
		Billing: &services.BillingService{
			Accounts:     accountRepo,
			Sales:        sales,
			WebhookToken: cfg.Kiwify.WebhookToken,
			PlanPeriod:   cfg.Kiwify.PlanPeriod,
		},
	}
}

// New builds the echo server: global middleware, the API group and the
// operational endpoints.
func New(cfg config.Config, svc *Services, hub handlers.RealtimeHub, checks map[string]handlers.Pinger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validators.NewValidator()
	e.HTTPErrorHandler = handlers.HTTPErrorHandler

	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())
	e.Use(middleware.Recovery())
	e.Use(middleware.Tracing(cfg.OTEL.ServiceName))
	e.Use(middleware.Metrics())
	config.SetupMiddleware(e, cfg)

	e.GET("/health", handlers.NewHealthHandler(checks).HealthCheck)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	limiter := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByAccountOrIP())
	auth := handlers.Auth{
		Required: middleware.RequireAuth(svc.Accounts),
		Optional: middleware.OptionalAuth(svc.Accounts),
		Limit:    limiter.Handler(),
	}

	api := e.Group(cfg.APIBasePath)
	handlers.NewAuthHandler(svc.Accounts).RegisterAuthRoutes(api, auth)
	handlers.NewAccountHandler(svc.Accounts).RegisterAccountRoutes(api, auth)
	handlers.NewFeedHandler(svc.Posts).RegisterFeedRoutes(api, auth)
	handlers.NewPostHandler(svc.Posts).RegisterPostRoutes(api, auth)
	handlers.NewCommentHandler(svc.Comments).RegisterCommentRoutes(api, auth)
	handlers.NewLikeHandler(svc.Interactions).RegisterLikeRoutes(api, auth)
	handlers.NewSavedPostHandler(svc.Interactions).RegisterSavedPostRoutes(api, auth)
	handlers.NewNotificationHandler(svc.Notifications).RegisterNotificationRoutes(api, auth)
	handlers.NewStoryHandler(svc.Stories).RegisterStoryRoutes(api, auth)
	handlers.NewWebhookHandler(svc.Billing).RegisterWebhookRoutes(api)
	if hub != nil {
		handlers.NewRealtimeHandler(hub, svc.Accounts, cfg.CORS.AllowedOrigins).RegisterRealtimeRoutes(api)
	}

	e.RouteNotFound("/*", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "route not found")
	})
	log.Info().Str("base_path", cfg.APIBasePath).Int("routes", len(e.Routes())).Msg("routes configured")
	return e
}
