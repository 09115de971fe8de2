package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"carepay/internal/domain/audit"
	"carepay/internal/domain/payroll"
	"carepay/internal/domain/payroll/sqlstore"
	"carepay/internal/platform/config"
	"carepay/internal/platform/db"
	"carepay/internal/platform/jobs"
	"carepay/internal/platform/logging"
	"carepay/internal/platform/metrics"
	"carepay/internal/transport/http/api"
	audithandler "carepay/internal/transport/http/handlers/audit"
	payrollhandler "carepay/internal/transport/http/handlers/payroll"
	"carepay/internal/transport/http/middleware"
)

type App struct {
	Config  config.Config
	DB      *db.Handle
	Store   *sqlstore.Store
	Service *payroll.Service
	Jobs    *jobs.Service
	Audit   *audit.Service
	Metrics *metrics.Collector
	Router  http.Handler
}

// New opens the store, prepares the schema and builds the router. The job
// worker is not started; Run does that.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	handle, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect failed: %w", err)
	}

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, handle.SQL); err != nil {
			handle.Close()
			return nil, fmt.Errorf("migrations failed: %w", err)
		}
	}

	settings, err := config.LoadPayrollSettings(cfg.PayrollSettingsFile)
	if err != nil {
		handle.Close()
		return nil, err
	}
	if err := db.Seed(ctx, handle.SQL, settings, cfg.CheckNumberStart); err != nil {
		handle.Close()
		return nil, fmt.Errorf("seed failed: %w", err)
	}

	collector := metrics.New()
	store := sqlstore.New(handle.SQL)
	service := payroll.NewService(store, payroll.WithWorkers(cfg.PayrollWorkers), payroll.WithObserver(collector))
	jobService := jobs.New(handle.SQL)

	app := &App{
		Config:  cfg,
		DB:      handle,
		Store:   store,
		Service: service,
		Jobs:    jobService,
		Audit:   audit.New(handle.SQL),
		Metrics: collector,
	}
	app.Router = app.routes()
	return app, nil
}

func (a *App) routes() http.Handler {
	cfg := a.Config

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(a.Metrics))
	router.Use(chimw.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.DB.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, a.Metrics.Snapshot(), middleware.GetRequestID(r.Context()))
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		payrollHandler := payrollhandler.NewHandler(a.Service, a.Jobs, a.Audit, middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
		payrollHandler.RegisterRoutes(r)

		auditHandler := audithandler.NewHandler(a.Audit)
		auditHandler.RegisterRoutes(r)
	})
	return router
}

func (a *App) Close() {
	a.DB.Close()
}

func Run() {
	cfg := config.Load()
	slog.SetDefault(logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := New(ctx, cfg)
	if err != nil {
		slog.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer app.Close()

	app.Jobs.Start(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("payroll server listening", "addr", cfg.Addr, "store", cfg.StoreDriver, "env", cfg.Environment)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "err", err)
		}
	case <-ctx.Done():
		slog.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("graceful shutdown failed", "err", err)
	}
	stop()
	app.Jobs.Wait()
}
