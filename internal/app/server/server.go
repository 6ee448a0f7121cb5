package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"staffhub/internal/domain/audit"
	"staffhub/internal/domain/auth"
	"staffhub/internal/domain/reports"
	"staffhub/internal/domain/staff"
	"staffhub/internal/platform/config"
	"staffhub/internal/platform/db"
	"staffhub/internal/platform/jobs"
	"staffhub/internal/platform/logger"
	"staffhub/internal/platform/metrics"
	"staffhub/internal/platform/requestctx"
	"staffhub/internal/transport/http/api"
	attendancehandler "staffhub/internal/transport/http/handlers/attendance"
	audithandler "staffhub/internal/transport/http/handlers/audit"
	authhandler "staffhub/internal/transport/http/handlers/auth"
	employeehandler "staffhub/internal/transport/http/handlers/employees"
	expensehandler "staffhub/internal/transport/http/handlers/expenses"
	reportshandler "staffhub/internal/transport/http/handlers/reports"
	"staffhub/internal/transport/http/middleware"
)

type App struct {
	Config      config.Config
	Logger      *slog.Logger
	DB          *pgxpool.Pool
	Store       staff.Store
	Audit       audit.Recorder
	Idempotency middleware.IdempotencyStore
	Metrics     *metrics.Collector
	Auth        *auth.Authenticator
	Reports     *reports.Service
	Jobs        *jobs.Service
	Router      http.Handler
}

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// New wires the application. With DATABASE_URL set entities live in
// Postgres; otherwise the JSON data file is used.
func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	app := &App{Config: cfg, Logger: log, Metrics: metrics.New(), Jobs: jobs.New(log)}

	if cfg.UsesFileStore() {
		store, err := staff.OpenFileStore(cfg.DataFile)
		if err != nil {
			return nil, fmt.Errorf("open data file: %w", err)
		}
		app.Store = store
		app.Audit = audit.NewLogRecorder(log)
		app.Idempotency = middleware.NewMemoryIdempotencyStore(cfg.IdempotencyTTL)
		log.Info("using file store", "path", cfg.DataFile)
	} else {
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		app.DB = pool
		if cfg.RunMigrations {
			if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
				pool.Close()
				return nil, fmt.Errorf("migrations failed: %w", err)
			}
		}
		app.Store = staff.NewPGStore(pool)
		app.Audit = audit.NewPGRecorder(pool)
		app.Idempotency = middleware.NewPGIdempotencyStore(pool)
		if cfg.RunSeed {
			if err := db.Seed(ctx, app.Store); err != nil {
				pool.Close()
				return nil, fmt.Errorf("seed failed: %w", err)
			}
		}
	}

	authenticator, err := newAuthenticator(cfg, log)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Auth = authenticator
	app.Reports = reports.NewService(app.Store, reports.Options{
		FeedLimit:      cfg.FeedLimit,
		CurrencySymbol: cfg.CurrencySymbol,
		CurrencyCode:   cfg.CurrencyCode,
	})
	app.Router = app.routes()
	return app, nil
}

// newAuthenticator fills in throwaway credentials outside production so a
// fresh checkout starts without configuration.
func newAuthenticator(cfg config.Config, log *slog.Logger) (*auth.Authenticator, error) {
	secret := cfg.JWTSecret
	if strings.TrimSpace(secret) == "" {
		secret = uuid.NewString() + uuid.NewString()
		log.Warn("JWT_SECRET not set, sessions will not survive a restart")
	}
	password := cfg.AdminPassword
	if strings.TrimSpace(password) == "" && strings.TrimSpace(cfg.AdminPasswordHash) == "" {
		password = strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
		log.Warn("ADMIN_PASSWORD not set, generated a development password", "password", password)
	}
	return auth.NewAuthenticator(auth.Options{
		Secret:       secret,
		Password:     password,
		PasswordHash: cfg.AdminPasswordHash,
		TOTPSecret:   cfg.AdminTOTPSecret,
		TTL:          cfg.SessionTTL,
	})
}

// MaintenanceTasks lists the retention jobs supported by the configured
// stores. The log-backed audit recorder has nothing to prune.
func (a *App) MaintenanceTasks() []jobs.Task {
	var tasks []jobs.Task
	if p, ok := a.Idempotency.(jobs.Pruner); ok {
		tasks = append(tasks, jobs.Task{Type: jobs.JobIdempotencyPrune, Pruner: p, MaxAge: a.Config.IdempotencyTTL})
	}
	if p, ok := a.Audit.(jobs.Pruner); ok && a.Config.AuditRetentionDays > 0 {
		tasks = append(tasks, jobs.Task{
			Type:   jobs.JobAuditRetention,
			Pruner: p,
			MaxAge: time.Duration(a.Config.AuditRetentionDays) * 24 * time.Hour,
		})
	}
	return tasks
}

func (a *App) routes() http.Handler {
	cfg := a.Config
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(a.Logger, a.Metrics))
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.IsProduction()))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(a.Auth))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.Store.Ping(ctx); err != nil {
			http.Error(w, "store not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.With(middleware.RequireAdmin).Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, a.Metrics.Snapshot(), requestctx.GetRequestID(r.Context()))
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
		r.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute))

		authhandler.NewHandler(a.Auth, a.Audit, cfg.IsProduction()).RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			employeehandler.NewHandler(a.Store, a.Audit).RegisterRoutes(r)
			attendancehandler.NewHandler(a.Store, a.Audit).RegisterRoutes(r)
			expensehandler.NewHandler(a.Store, a.Audit, a.Idempotency).RegisterRoutes(r)
			reportshandler.NewHandler(a.Reports, a.Metrics).RegisterRoutes(r)
			audithandler.NewHandler(a.Audit).RegisterRoutes(r)
		})
	})

	router.Mount("/", spaHandler{staticPath: cfg.FrontendDir, indexPath: "index.html"})
	return router
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}

// Run loads configuration, serves until SIGINT/SIGTERM, then drains
// in-flight requests.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, logCloser := logger.New(cfg.Log)
	defer logCloser.Close()
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.Close()
	app.Jobs.Start(ctx, cfg.MaintenanceEvery, app.MaintenanceTasks()...)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("staffhub server listening", "addr", cfg.Addr, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type spaHandler struct {
	staticPath string
	indexPath  string
}

func (h spaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	if strings.HasPrefix(r.URL.Path, "/api/") {
		api.Fail(w, http.StatusNotFound, "not_found", "route not found", requestctx.GetRequestID(r.Context()))
		return
	}

	path := filepath.Join(h.staticPath, filepath.Clean("/"+r.URL.Path))
	_, err := os.Stat(path)
	if err == nil {
		http.FileServer(http.Dir(h.staticPath)).ServeHTTP(w, r)
		return
	}

	if os.IsNotExist(err) {
		index := filepath.Join(h.staticPath, h.indexPath)
		if _, err := os.Stat(index); err != nil {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, index)
		return
	}

	http.NotFound(w, r)
}
