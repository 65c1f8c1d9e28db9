// Package app wires the application graph.
package app

import (
	"context"
	"database/sql"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"chargehub/internal/clients"
	"chargehub/internal/config"
	"chargehub/internal/db"
	"chargehub/internal/email"
	httpserver "chargehub/internal/http"
	"chargehub/internal/http/handlers"
	"chargehub/internal/http/middleware"
	"chargehub/internal/password"
	"chargehub/internal/redisclient"
	"chargehub/internal/repository"
	"chargehub/internal/service"
	"chargehub/internal/sessions"
	"chargehub/internal/ws"
)

// App holds the running application and its closable resources.
type App struct {
	server *httpserver.Server
	pool   *sql.DB
	redis  *redis.Client
	logger *zap.Logger
}

// New constructs the application graph.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	pool, err := db.NewPostgres(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	redisClient, err := redisclient.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		pool.Close()
		return nil, err
	}

	chargerRepo := repository.NewChargerRepository(pool)
	controllerRepo := repository.NewControllerRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	companyRepo := repository.NewCompanyRepository(pool)
	rfidRepo := repository.NewRfidRepository(pool)
	invitationRepo := repository.NewInvitationRepository(pool)

	browserSessions := sessions.NewStore(redisClient, cfg.SessionTTL())
	hasher := password.NewBcryptHasher(cfg.Auth.BcryptCost)
	tokens := service.NewTokenService(cfg.Auth.TokenSecret)
	mailer := email.NewMailer(cfg.Email, logger)

	authService := service.NewAuthService(
		userRepo, companyRepo, invitationRepo, browserSessions,
		hasher, tokens, mailer, cfg.WebsiteURL, logger)
	ingestService := service.NewIngestService(chargerRepo, controllerRepo, sessionRepo, logger)
	importer := service.NewCSVImporter(controllerRepo, sessionRepo)
	chargerClient := clients.NewChargerClient(cfg.ChargerTimeout(), service.ConnectedStateFromIec, logger)

	router := httpserver.NewRouter(httpserver.RouterDeps{
		Telemetry:   handlers.NewTelemetryHandlers(ingestService, logger),
		Auth:        handlers.NewAuthHandlers(authService, cfg.SessionTTL(), logger),
		Chargers:    handlers.NewChargerHandlers(chargerRepo, controllerRepo, chargerClient, importer, logger),
		Controllers: handlers.NewControllerHandlers(controllerRepo, chargerRepo, chargerClient, logger),
		Sessions:    handlers.NewSessionHandlers(sessionRepo, logger),
		Companies:   handlers.NewCompanyHandlers(companyRepo, rfidRepo, logger),
		Users:       handlers.NewUserHandlers(userRepo, invitationRepo, authService, logger),
		Dashboard:   handlers.NewDashboardHandlers(sessionRepo, chargerRepo, controllerRepo, logger),
		StatusFeed:  ws.NewStatusFeed(chargerRepo, controllerRepo, logger),
		Health:      handlers.NewHealthHandler(pool),
	}, middleware.Auth(browserSessions, userRepo, companyRepo))

	server := httpserver.NewServer(
		cfg.HTTPAddress(),
		router,
		logger,
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
	)

	return &App{
		server: server,
		pool:   pool,
		redis:  redisClient,
		logger: logger,
	}, nil
}

// Run serves HTTP traffic until the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	return a.server.Run(ctx)
}

// Close releases database and redis connections.
func (a *App) Close() {
	if err := a.redis.Close(); err != nil {
		a.logger.Warn("closing redis failed", zap.Error(err))
	}
	if err := a.pool.Close(); err != nil {
		a.logger.Warn("closing postgres failed", zap.Error(err))
	}
}
