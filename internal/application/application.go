package application

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ayung21/billing-ps-api-sub000/internal/config"
	"github.com/ayung21/billing-ps-api-sub000/internal/database"
	"github.com/ayung21/billing-ps-api-sub000/internal/handler"
	"github.com/ayung21/billing-ps-api-sub000/internal/router"
	"github.com/ayung21/billing-ps-api-sub000/internal/service"
	"github.com/ayung21/billing-ps-api-sub000/internal/store"
	"github.com/ayung21/billing-ps-api-sub000/internal/tv"
)

// API is the HTTP + WebSocket billing application.
type API struct {
	cfg      *config.Config
	srv      *http.Server
	db       *gorm.DB
	registry *tv.Registry
	logger   *zap.Logger
}

// NewAPI wires the application: validates config, runs migrations, opens
// the database, and builds the TV subsystem, services and router.
func NewAPI(cfg *config.Config) (*API, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := database.MigrateUp(cfg.DatabaseURL()); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	db, err := database.Open(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	logger, _ := zap.NewProduction()
	if cfg.AppEnv == "development" {
		logger, _ = zap.NewDevelopment()
	}

	registry := tv.NewRegistry(tv.RegistryConfig{
		HeartbeatInterval: cfg.TVHeartbeatInterval,
		SweepInterval:     cfg.TVSweepInterval,
		StaleThreshold:    cfg.TVStaleThreshold,
	}, logger)
	correlator := tv.NewCorrelator(registry, logger)

	rentalStore := store.NewGormStore(db)
	rentalSvc := service.NewRentalService(rentalStore, correlator, cfg.TVCommandTimeout, logger)

	rentalHandler := handler.NewRentalHandler(rentalSvc, logger)
	tvWS := handler.NewTVSocketHandler(registry, correlator,
		cfg.WSReadBufferSize, cfg.WSWriteBufferSize, cfg.WSMaxMessageSize, logger)
	health := handler.NewHealthHandler(registry)

	r := router.New(rentalHandler, tvWS, health)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &API{cfg: cfg, srv: srv, db: db, registry: registry, logger: logger}, nil
}

// Run starts the staleness sweeper and HTTP server, then blocks until ctx
// is cancelled; shutdown closes every TV channel before the server.
func (a *API) Run(ctx context.Context) error {
	defer func() { _ = a.logger.Sync() }()

	go a.registry.RunSweeper(ctx)

	a.logger.Info("billing-ps-api listening",
		zap.String("addr", a.srv.Addr),
		zap.String("env", a.cfg.AppEnv))

	go func() {
		if err := a.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("http: %v", err)
		}
	}()

	<-ctx.Done()

	a.registry.CloseAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
