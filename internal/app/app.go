package app

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"parkgate/internal/config"
	"parkgate/internal/gateway"
	httpserver "parkgate/internal/http"
	"parkgate/internal/http/handlers"
	"parkgate/internal/journal"
	"parkgate/internal/portal"
	"parkgate/internal/store"
	"parkgate/libs/db"
	libredis "parkgate/libs/redis"
)

// App wires the visitor portal dependencies.
type App struct {
	server      *httpserver.Server
	db          *sql.DB
	redisClient *redis.Client
	logger      *zap.Logger
}

// New constructs the application graph.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	httpClient := &http.Client{Timeout: cfg.APITimeout()}

	var issuer *gateway.TokenIssuer
	if cfg.API.Secret != "" {
		var err error
		issuer, err = gateway.NewTokenIssuer(cfg.API.Secret, cfg.API.GateID, cfg.API.Source)
		if err != nil {
			return nil, err
		}
	}

	gw := gateway.NewClient(gateway.Options{
		BaseURL: cfg.API.BaseURL,
		HTTP:    httpClient,
		Tokens:  issuer,
		GateID:  cfg.API.GateID,
		Source:  cfg.API.Source,
		Logger:  logger,
	})

	var (
		slot        store.Store
		redisClient *redis.Client
	)
	if cfg.Redis.Addr != "" {
		var err error
		redisClient, err = libredis.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		slot = store.NewRedis(redisClient, cfg.StoreTTL())
	} else {
		slot = store.NewMemory()
	}

	var (
		recorder portal.Journal
		sqlDB    *sql.DB
	)
	if cfg.Journal.DSN != "" {
		var err error
		sqlDB, err = db.NewPostgres(cfg.Journal.DSN)
		if err != nil {
			if redisClient != nil {
				redisClient.Close()
			}
			return nil, err
		}
		recorder = journal.NewRecorder(sqlDB, logger)
	}

	receipts := gateway.NewReceiptSender(cfg.Receipt.EmailEndpoint, httpClient, logger)

	portalHandler := handlers.NewPortalHandler(handlers.PortalHandlerOptions{
		Gateway:       gw,
		Store:         slot,
		Journal:       recorder,
		Receipts:      receipts,
		Logger:        logger,
		PollAttempts:  cfg.Poll.Attempts,
		PollInterval:  cfg.PollInterval(),
		DefaultRegion: cfg.Lookup.DefaultRegion,
	})

	routes := httpserver.Routes{
		Portal:       portalHandler.HandlePortal,
		Scan:         portalHandler.HandleScan,
		Checkout:     portalHandler.HandleCheckout,
		Status:       portalHandler.HandleStatus,
		ReceiptEmail: portalHandler.HandleReceiptEmail,
		Health:       handlers.NewHealthHandler(),
	}

	router := httpserver.NewRouter(routes)
	server := httpserver.NewServer(cfg.HTTPAddress(), router, logger)

	return &App{
		server:      server,
		db:          sqlDB,
		redisClient: redisClient,
		logger:      logger,
	}, nil
}

// Run starts the HTTP server.
func (a *App) Run(ctx context.Context) error {
	return a.server.Run(ctx)
}

// Close releases resources.
func (a *App) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}
