package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go-bookshelf/internal/config"
	"go-bookshelf/internal/database"
	"go-bookshelf/internal/handler"
	"go-bookshelf/internal/metrics"
	"go-bookshelf/internal/middleware"
	"go-bookshelf/internal/ratelimit"
	"go-bookshelf/internal/repository"
	"go-bookshelf/internal/router"
	"go-bookshelf/internal/service"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	server       *http.Server
	cleanupFuncs []func()
}

// Stores bundles the repositories selected by STORE_DRIVER.
type Stores struct {
	Users  service.UserRepository
	Books  service.BookRepository
	Health func(ctx context.Context) error

	close func()
}

func (s *Stores) Close() {
	if s.close != nil {
		s.close()
	}
}

// OpenStores opens the configured backend. The postgres backend has its
// schema migrated before it is returned.
func OpenStores(ctx context.Context, cfg *config.Config) (*Stores, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		slog.Info("connecting to PostgreSQL")
		db, err := database.New(ctx, database.Options{
			URL:      cfg.DatabaseURL,
			MaxConns: cfg.DBMaxConns,
			MinConns: cfg.DBMinConns,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ensure database schema: %w", err)
		}

		return &Stores{
			Users:  repository.NewUserPostgresRepository(db.Pool),
			Books:  repository.NewBookPostgresRepository(db.Pool),
			Health: db.Health,
			close:  db.Close,
		}, nil

	default:
		users, err := repository.NewUserFileRepository(cfg.UsersFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open users file: %w", err)
		}
		books, err := repository.NewBookFileRepository(cfg.BooksFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open books file: %w", err)
		}

		slog.Info("file store ready", "users_file", cfg.UsersFile, "books_file", cfg.BooksFile)
		return &Stores{Users: users, Books: books}, nil
	}
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	stores, err := OpenStores(ctx, cfg)
	if err != nil {
		return nil, err
	}

	tokens, err := service.NewTokenIssuer(cfg.SecretKey, cfg.TokenTTL)
	if err != nil {
		stores.Close()
		return nil, fmt.Errorf("failed to initialize token issuer: %w", err)
	}

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	limiter := ratelimit.New(ratelimit.Options{
		MaxAttempts: cfg.RateLimitMaxAttempt,
		Window:      cfg.RateLimitWindow(),
		Disabled:    cfg.SkipRateLimit,
	})
	if limiter.Disabled() {
		slog.Warn("auth rate limiting disabled")
	} else {
		slog.Info("auth rate limiting enabled", "max_attempts", limiter.MaxAttempts(), "window", cfg.RateLimitWindow())
	}

	credentials := service.NewCredentialStore(stores.Users, cfg.BcryptCost)
	authService := service.NewAuthService(credentials, tokens, limiter, m)
	authMiddleware := middleware.NewAuthMiddleware(authService)
	bookService := service.NewBookService(stores.Books)

	appRouter := router.New(cfg, authMiddleware, router.Handlers{
		Auth:   handler.NewAuthHandler(authService, middleware.ClientIP(cfg.TrustProxy)),
		Book:   handler.NewBookHandler(bookService),
		Health: stores.Health,
	}, m)

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{
		server:       server,
		cleanupFuncs: []func(){stores.Close},
	}, nil
}

// Run serves until ctx is canceled or SIGINT/SIGTERM arrives, then shuts
// down gracefully.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			a.cleanup()
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := a.server.Shutdown(shutdownCtx)
	a.cleanup()
	if err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

func (a *App) cleanup() {
	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}
}
