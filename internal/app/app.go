// Package app wires the service together and manages its lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/matterscout/internal/ai"
	"github.com/jonesrussell/matterscout/internal/api"
	"github.com/jonesrussell/matterscout/internal/config"
	"github.com/jonesrussell/matterscout/internal/database"
	"github.com/jonesrussell/matterscout/internal/hub"
	"github.com/jonesrussell/matterscout/internal/logger"
	"github.com/jonesrussell/matterscout/internal/metrics"
	"github.com/jonesrussell/matterscout/internal/retry"
	"github.com/jonesrussell/matterscout/internal/service"
)

const (
	// DefaultShutdownTimeout bounds graceful shutdown.
	DefaultShutdownTimeout = 30 * time.Second

	schemaTimeout = 30 * time.Second
	pingTimeout   = 5 * time.Second
)

// App is the assembled service with all its dependencies.
type App struct {
	config      *config.Config
	logger      logger.Logger
	db          *sqlx.DB
	redisClient *redis.Client
	subscribers *hub.Hub
	httpServer  *http.Server
	version     string
}

// Options configures App construction.
type Options struct {
	ConfigPath string
	Version    string
}

// New creates an App with every dependency initialized. Construction fails
// fast on bad configuration, missing credentials, or unreachable backends.
func New(opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	appLogger, err := logger.New(cfg.Logging.Level, cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	appLogger = appLogger.With(
		logger.String("service", "matterscout"),
		logger.String("version", opts.Version),
	)

	// Inference client first: a missing or placeholder API key must stop
	// startup before anything else is dialed.
	llm, err := ai.NewClient(ai.ClientConfig{
		APIKey:      cfg.Anthropic.APIKey,
		Model:       cfg.Anthropic.Model,
		MaxTokens:   cfg.Anthropic.MaxTokens,
		Temperature: cfg.Anthropic.Temperature,
	})
	if err != nil {
		_ = appLogger.Sync()
		return nil, fmt.Errorf("create inference client: %w", err)
	}

	db, err := database.NewPostgresConnection(database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.Name,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		_ = appLogger.Sync()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	schemaCtx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
	defer cancel()
	if err := database.EnsureSchema(schemaCtx, db); err != nil {
		db.Close()
		_ = appLogger.Sync()
		return nil, err
	}

	collectors := metrics.NewCollectors()

	var redisClient *redis.Client
	var tracker *metrics.Tracker
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		pingCtx, cancelPing := context.WithTimeout(context.Background(), pingTimeout)
		defer cancelPing()
		if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
			db.Close()
			_ = appLogger.Sync()
			return nil, fmt.Errorf("connect to Redis: %w", pingErr)
		}

		tracker = metrics.NewTracker(redisClient, appLogger)
	}

	recorder := metrics.NewRecorder(collectors, tracker)

	subscribers := hub.New(appLogger,
		hub.WithSendTimeout(cfg.Realtime.SendTimeout),
		hub.WithCountListener(recorder.SubscriberCount),
	)

	detector := ai.NewDetector(llm, retry.Config{
		MaxAttempts:  cfg.Pipeline.RetryAttempts,
		InitialDelay: cfg.Pipeline.InitialBackoff,
		MaxDelay:     cfg.Pipeline.MaxBackoff,
		Multiplier:   2.0,
	}, cfg.Pipeline.RequestTimeout, appLogger)

	repo := database.NewRepository(db)
	pipeline := service.NewPipeline(repo, detector, subscribers, recorder, appLogger)

	var activity api.ActivityReader
	if tracker != nil {
		activity = tracker
	}
	handlers := api.NewHandlers(pipeline, repo, activity, appLogger, opts.Version)
	wsHandler := api.NewWSHandler(subscribers, cfg.Server.CORSOrigins, appLogger)
	router := api.NewRouter(cfg, handlers, wsHandler, collectors, appLogger)

	httpServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &App{
		config:      cfg,
		logger:      appLogger,
		db:          db,
		redisClient: redisClient,
		subscribers: subscribers,
		httpServer:  httpServer,
		version:     opts.Version,
	}, nil
}

// Run starts the HTTP server and blocks until SIGINT/SIGTERM, then shuts
// down gracefully.
func (a *App) Run() error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("Server starting",
			logger.String("address", a.config.Server.Address),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case sig := <-quit:
		a.logger.Info("Shutdown signal received",
			logger.String("signal", sig.String()),
		)
	}

	return a.shutdown()
}

// shutdown stops the HTTP server, disconnects subscribers, and closes
// backend connections.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Error("HTTP server shutdown failed", logger.Error(err))
	}

	a.subscribers.CloseAll()

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("Redis close failed", logger.Error(err))
		}
	}

	if err := a.db.Close(); err != nil {
		a.logger.Warn("Database close failed", logger.Error(err))
	}

	a.logger.Info("Shutdown complete")
	return a.logger.Sync()
}
