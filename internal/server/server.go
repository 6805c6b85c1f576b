package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"fireplay/internal/cache"
	"fireplay/internal/catalog"
	"fireplay/internal/config"
	"fireplay/internal/database"
	"fireplay/internal/metrics"
	custommiddleware "fireplay/internal/middleware"
	"fireplay/internal/pricing"
	"fireplay/internal/repository"
	"fireplay/internal/service"
	"fireplay/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// requestTimeout bounds a single request; checkout blocks for a couple of
// seconds on purpose, so this stays well above that
const requestTimeout = 30 * time.Second

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     database.Service
	redis  *redis.Client
	carts  service.CartService
	cron   *cron.Cron
}

func NewServer(cfg *config.Config, logger *zap.Logger, db database.Service, redisClient *redis.Client) (*Server, error) {
	router := chi.NewRouter()

	router.Use(custommiddleware.DefaultMiddlewareStack(requestTimeout)...)
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(metrics.Middleware)
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, !cfg.Server.IsProduction()))

	sqlDB := db.DB()
	slots := cache.NewStore(redisClient, 0)

	// Repositories
	userRepo := repository.NewUserRepository(sqlDB)
	refreshTokenRepo := repository.NewRefreshTokenRepository(sqlDB)
	cartRepo := repository.NewCartRepository(sqlDB)
	favoriteRepo := repository.NewFavoriteRepository(sqlDB)
	contactRepo := repository.NewContactRepository(sqlDB)

	// Services
	userService := service.NewUserService(userRepo, refreshTokenRepo,
		service.NewLoginThrottle(redisClient, cfg.Auth.MaxLoginAttempts, cfg.Auth.Lockout),
		service.TokenOptions{
			Secret:        cfg.JWT.Secret,
			AccessExpiry:  time.Duration(cfg.JWT.AccessExpiry) * time.Minute,
			RefreshExpiry: time.Duration(cfg.JWT.RefreshExpiry) * 24 * time.Hour,
		},
		logger,
	)
	cartService := service.NewCartService(cartRepo, slots, service.CartOptions{
		SyncDelay: cfg.Cart.SyncDelay,
		BatchSize: cfg.Cart.SyncBatch,
	}, logger)
	favoriteService := service.NewFavoriteService(favoriteRepo, slots, cfg.Favorites.Timeout, logger)
	checkoutService := service.NewCheckoutService(cartService, cfg.Checkout.Delay, logger)
	contactService := service.NewContactService(contactRepo, logger)

	games := catalog.NewClient(catalog.Options{
		BaseURL:        cfg.Catalog.BaseURL,
		APIKey:         cfg.Catalog.APIKey,
		Timeout:        cfg.Catalog.Timeout,
		RequestsPerSec: cfg.Catalog.RequestsPerSec,
		CacheTTL:       cfg.Catalog.CacheTTL,
	}, pricing.NewRandomPricer(nil), logger)

	authMiddleware := custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger)
	optionalAuth := custommiddleware.OptionalAuth(cfg.JWT.Secret, logger)

	router.Get("/health", healthHandler(db, redisClient))
	router.Handle("/metrics", metrics.Handler())

	router.Group(func(r chi.Router) {
		r.Use(custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.Requests,
			Window:            cfg.RateLimit.Window,
			KeyPrefix:         "ratelimit",
		}, logger))

		transport.NewUserHandler(userService, logger).RegisterRoutes(r, authMiddleware)
		transport.NewCatalogHandler(games, favoriteService, logger).RegisterRoutes(r, optionalAuth)
		transport.NewCartHandler(cartService, checkoutService, games, logger).RegisterRoutes(r, authMiddleware, optionalAuth)
		transport.NewFavoriteHandler(favoriteService, logger).RegisterRoutes(r, authMiddleware, optionalAuth)
		transport.NewContactHandler(contactService, logger).RegisterRoutes(r, optionalAuth)
	})

	scheduler, err := newMaintenance(userService, logger)
	if err != nil {
		return nil, err
	}
	scheduler.Start()

	return &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: requestTimeout + 5*time.Second,
		},
		config: cfg,
		logger: logger,
		db:     db,
		redis:  redisClient,
		carts:  cartService,
		cron:   scheduler,
	}, nil
}

// healthHandler reports database and redis reachability. Redis being down
// degrades the service but does not fail the probe; the database does.
func healthHandler(db database.Service, redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dbHealth := db.Health()

		redisStatus := "up"
		ctx, cancel := context.WithTimeout(r.Context(), time.Second)
		defer cancel()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			redisStatus = "down"
		}

		status, code := "ok", http.StatusOK
		switch {
		case dbHealth["status"] != "up":
			status, code = "down", http.StatusServiceUnavailable
		case redisStatus != "up":
			status = "degraded"
		}

		custommiddleware.RespondWithJSON(w, code, map[string]interface{}{
			"status":   status,
			"database": dbHealth,
			"redis":    redisStatus,
		})
	}
}

// Close flushes pending cart mirrors before releasing the stores they need
func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := s.carts.Flush(ctx); err != nil {
		s.logger.Error("Failed to flush pending cart syncs", zap.Error(err))
	}

	<-s.cron.Stop().Done()

	if err := s.redis.Close(); err != nil {
		s.logger.Error("Failed to close redis connection", zap.Error(err))
	}
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close database connection", zap.Error(err))
	}

	s.logger.Sync()
	return nil
}
