package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nkiryanov/tenantauth/internal/db"
	"github.com/nkiryanov/tenantauth/internal/events"
	"github.com/nkiryanov/tenantauth/internal/handlers"
	"github.com/nkiryanov/tenantauth/internal/logger"
	"github.com/nkiryanov/tenantauth/internal/repository"
	"github.com/nkiryanov/tenantauth/internal/repository/memory"
	"github.com/nkiryanov/tenantauth/internal/repository/postgres"
	"github.com/nkiryanov/tenantauth/internal/service/auth"
	"github.com/nkiryanov/tenantauth/internal/service/auth/throttle"
	"github.com/nkiryanov/tenantauth/internal/service/auth/tokenmanager"
	"github.com/nkiryanov/tenantauth/internal/service/jwks"
	"github.com/nkiryanov/tenantauth/internal/service/sweeper"
	"github.com/nkiryanov/tenantauth/internal/service/tenant"
)

const shutdownTimeout = 5 * time.Second

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	logger  logger.Logger
	sweeper *sweeper.Sweeper

	// Released in reverse order when server stopped
	closers []func() error
}

func NewServerApp(ctx context.Context, c *Config) (app *ServerApp, err error) {
	// Initialize logger
	logger, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	app = &ServerApp{ListenAddr: c.ListenAddr, logger: logger}
	defer func() {
		if err != nil {
			app.close()
		}
	}()

	// Key material is required: no reason to start if tokens can't be signed
	keys, err := tokenmanager.ReadKeyMaterial(c.PrivateKeyPath, c.RefreshSecret)
	if err != nil {
		return nil, fmt.Errorf("error while loading key material. Err: %w", err)
	}

	// Connect to the database and run migrations
	var storage repository.Storage
	if c.DatabaseDSN != "" {
		pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
		}
		app.closers = append(app.closers, func() error { pool.Close(); return nil })
		storage = postgres.NewStorage(pool)
	} else {
		logger.Warn("Database is not configured, storage is kept in memory")
		storage = memory.NewStorage()
	}

	// Initialize services
	tmConfig := tokenmanager.Config{}
	if c.JWKSURL != "" {
		tmConfig.KeySet = jwks.NewClient(c.JWKSURL, logger)
	}
	tokenManager, err := tokenmanager.New(tmConfig, keys, storage.Refresh())
	if err != nil {
		return nil, fmt.Errorf("error while creating token manager. Err: %w", err)
	}

	authConfig := auth.Config{Logger: logger}
	if c.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		app.closers = append(app.closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis is not reachable, logins are not throttled until it is", "error", err)
		}
		authConfig.Throttle = throttle.New(client, throttle.Config{})
	}
	if len(c.KafkaBrokers) > 0 {
		publisher := events.NewKafkaPublisher(c.KafkaBrokers, c.KafkaTopic)
		app.closers = append(app.closers, publisher.Close)
		authConfig.Events = publisher
	}

	authService, err := auth.NewService(authConfig, tokenManager, storage)
	if err != nil {
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}
	tenantService := tenant.NewService(storage.Tenant(), logger)

	app.Handler = handlers.NewRouter(
		authService,
		tenantService,
		tokenManager,
		auth.NewCookieCarrier(c.CookieDomain),
		keys.JWKS(),
		logger,
	)
	app.sweeper = sweeper.New(tokenManager, logger, 0)

	return app, nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	defer s.close()

	httpServer := &http.Server{
		Addr:              s.ListenAddr,
		Handler:           s.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	sweeperStopped := s.sweeper.Run(srvCtx)

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); errors.Is(err, context.DeadlineExceeded) {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.logger.Info("Starting server", "address", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed
	<-sweeperStopped

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *ServerApp) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.logger.Warn("Failed to release resource", "error", err)
		}
	}
	s.closers = nil
}
