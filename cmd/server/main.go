// FAQ assistant HTTP server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/yuh2k/FAQ-system/internal/api"
	"github.com/yuh2k/FAQ-system/internal/app"
	"github.com/yuh2k/FAQ-system/internal/chat"
	"github.com/yuh2k/FAQ-system/internal/config"
	"github.com/yuh2k/FAQ-system/internal/identity"
	"github.com/yuh2k/FAQ-system/internal/middleware"
	"github.com/yuh2k/FAQ-system/web"
)

const rulesDebounce = 250 * time.Millisecond

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, logCloser, err := config.NewLogger(cfg.Log)
	if err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped successfully")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	slog.Info("Starting server", "port", cfg.Port, "llm_enabled", cfg.LLM.Enabled)

	a, err := app.Build(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			slog.Error("Failed to close application", "error", closeErr)
		}
	}()

	if err := a.Repo.Ping(context.Background()); err != nil {
		return err
	}
	slog.Info("Database connected", "path", cfg.DBPath)

	limiter := api.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	defer limiter.Stop()

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(identity.Middleware)

	api.NewHealthHandler(a.Repo, cfg.Timeout.HealthCheck).RegisterHealth(r)
	api.NewHandler(a, limiter).RegisterRoutes(r)

	// Embedded chat widget.
	r.Handle("/ui", http.RedirectHandler("/ui/", http.StatusMovedPermanently))
	r.Handle("/ui/*", http.StripPrefix("/ui", web.SPAHandler(web.Options{ChatURL: "/chat"})))

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.LLM.Timeout*time.Duration(cfg.LLM.MaxRetries+1) + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeout.Shutdown)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return chat.RunSessionSweeper(gctx, a.Repo, cfg.SessionTTL, cfg.SweepInterval)
	})

	if cfg.RulesWatch {
		g.Go(func() error {
			slog.Info("Watching rules file", "path", a.Rules.Path())
			if err := a.Rules.Watch(gctx, rulesDebounce); err != nil {
				// hot reload is optional; keep serving with the loaded rules
				slog.Warn("Rules watcher stopped", "error", err)
			}
			return nil
		})
	}

	return g.Wait()
}
