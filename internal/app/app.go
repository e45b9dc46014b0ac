package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"buildtrack/internal/charts"
	"buildtrack/internal/config"
	apierrors "buildtrack/internal/errors"
	"buildtrack/internal/infrastructure"
	customMiddleware "buildtrack/internal/middleware"
	"buildtrack/internal/photos"
	"buildtrack/internal/progress"
	"buildtrack/internal/services"
	"buildtrack/internal/session"
	"buildtrack/internal/store"
	"buildtrack/internal/store/memory"
	"buildtrack/internal/store/postgres"
	handlers "buildtrack/internal/transport/http"
	ws "buildtrack/internal/websocket"
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics
	Store         store.Store
	Sessions      *session.Manager
	WebSocketHub  *ws.Hub
	Services      *ServiceContainer

	errorHandler *apierrors.ErrorHandler
	validator    *customMiddleware.ValidationMiddleware
	closers      []func()
}

// ServiceContainer holds all application services
type ServiceContainer struct {
	Projects  *services.ProjectService
	Reports   *services.ReportService
	Materials *services.MaterialService
	Access    *services.AccessService
	Dashboard *services.DashboardService
	Exports   *services.ExportService
	Health    *services.HealthService
}

// NewApplication loads configuration and the process logger and builds the
// application from them.
func NewApplication(ctx context.Context) (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	a, err := New(ctx, cfg, logger, infrastructure.DefaultOTelConfig())
	if err != nil {
		_ = infrastructure.CloseLogFile()
		return nil, err
	}
	a.closers = append([]func(){func() { _ = infrastructure.CloseLogFile() }}, a.closers...)
	return a, nil
}

// New wires every component from cfg. Resources opened here are released by
// Close.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, otelCfg *infrastructure.OTelConfig) (*Application, error) {
	logger.InfoContext(ctx, "application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion))

	paths, err := config.ResolvePaths(cfg.Paths)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution(logger)

	providers, err := infrastructure.InitializeOTel(otelCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	meter := providers.Meter
	if meter == nil {
		meter = otel.Meter(infrastructure.MeterName)
	}
	metrics, err := infrastructure.CreateBusinessMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	a := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: providers,
		Metrics:       metrics,
	}
	if err := a.initializeServices(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	a.setupRouter()
	a.createServer()
	return a, nil
}

// initializeServices opens the store and builds the services on top of it.
func (a *Application) initializeServices(ctx context.Context) error {
	st, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	a.Store = st
	a.closers = append(a.closers, func() {
		if err := st.Close(); err != nil {
			a.Logger.Error("store close failed", slog.String("error", err.Error()))
		}
	})

	fetcher, err := a.photoFetcher(ctx)
	if err != nil {
		return err
	}
	renderer := a.chartRenderer()

	engine := progress.NewEngine(
		progress.WithLogger(a.Logger),
		progress.WithTerminalOverride(a.Config.Progress.TerminalOverride),
	)
	catalog := progress.DefaultCatalog()
	if file := a.Config.Progress.CatalogFile; file != "" {
		if catalog, err = progress.LoadCatalog(file); err != nil {
			return fmt.Errorf("failed to load stage catalog: %w", err)
		}
		a.Logger.Info("stage catalog loaded",
			slog.String("file", file),
			slog.Int("stages", len(catalog)))
	}

	wsCfg := a.Config.WebSocket
	a.WebSocketHub = ws.NewHub(a.Logger,
		ws.WithKeepalive(wsCfg.PingPeriod, wsCfg.PongWait),
		ws.WithMetrics(a.Metrics))

	auth := a.Config.Auth
	a.Sessions = session.NewManager(session.Config{
		Secret:   auth.JWTSecret,
		Issuer:   auth.Issuer,
		Audience: auth.Audience,
		TTL:      auth.SessionTTL,
	}, st, a.Logger)

	a.errorHandler = handlers.RegisterErrorMappings(apierrors.NewErrorHandler(a.Logger, a.Config.Logging.Development))
	validator := customMiddleware.NewValidationMiddleware(a.Logger, a.errorHandler)
	a.validator = validator

	a.Services = &ServiceContainer{
		Projects:  services.NewProjectService(st, validator, a.Logger),
		Reports:   services.NewReportService(st, validator, a.WebSocketHub, a.Metrics, a.Logger),
		Materials: services.NewMaterialService(st, validator, a.WebSocketHub, a.Logger),
		Access:    services.NewAccessService(st, validator, a.Logger),
		Dashboard: services.NewDashboardService(st, engine, catalog, a.Config.Export.FallbackBudget, a.Logger),
		Exports:   services.NewExportService(st, renderer, fetcher, a.WebSocketHub, a.Metrics, a.Config.Export, a.Logger),
		Health:    services.NewHealthService(config.AppVersion, st, a.WebSocketHub, a.Sessions, a.Logger),
	}
	return nil
}

func (a *Application) openStore(ctx context.Context) (store.Store, error) {
	db := a.Config.Database
	switch db.Driver {
	case config.DriverPostgres:
		st, err := postgres.Open(ctx, postgres.Config{
			DSN:             db.DSN,
			MaxOpenConns:    db.MaxOpenConns,
			MaxIdleConns:    db.MaxIdleConns,
			ConnMaxLifetime: db.ConnMaxLifetime,
			PingAttempts:    db.PingAttempts,
		}, a.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		a.Logger.InfoContext(ctx, "store opened", slog.String("driver", db.Driver))
		return st, nil

	case config.DriverMemory, "":
		var seed memory.Seed
		if file := a.Paths.SeedFile; file != "" {
			loaded, err := memory.LoadSeedFile(file)
			if err != nil {
				return nil, fmt.Errorf("failed to load seed: %w", err)
			}
			seed = loaded
		}
		a.Logger.InfoContext(ctx, "store opened",
			slog.String("driver", config.DriverMemory),
			slog.Int("projects", len(seed.Projects)),
			slog.Int("reports", len(seed.Reports)))
		return memory.New(seed), nil
	}
	return nil, apierrors.NewConfigError(fmt.Sprintf("unsupported database driver %q", db.Driver), nil).
		WithContext("driver", db.Driver)
}

// photoFetcher reads photos by public URL, preferring object storage for
// refs with a storage path when S3 is configured.
func (a *Application) photoFetcher(ctx context.Context) (photos.Fetcher, error) {
	sc := a.Config.Storage
	public := photos.NewHTTPFetcher(sc.FetchTimeout, sc.MaxPhotoBytes)
	if sc.PhotoSource != config.PhotoSourceS3 {
		return public, nil
	}

	s3, err := photos.NewS3Fetcher(ctx, photos.S3Config{
		Endpoint:        sc.S3Endpoint,
		Region:          sc.S3Region,
		Bucket:          sc.S3Bucket,
		AccessKeyID:     sc.S3AccessKey,
		SecretAccessKey: sc.S3SecretKey,
		MaxBytes:        sc.MaxPhotoBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage client: %w", err)
	}
	return photos.Chain{Storage: s3, Public: public}, nil
}

func (a *Application) chartRenderer() charts.Renderer {
	ec := a.Config.Export
	if ec.ChartRenderer != config.ChartRendererBrowser {
		return charts.NewNativeRenderer(ec.ChartScale)
	}
	browser := charts.NewBrowserRasterizer(charts.BrowserConfig{
		Headless: true,
		Scale:    ec.ChartScale,
	}, a.Logger)
	a.closers = append(a.closers, browser.Close)
	return browser
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// Only middleware that leaves the ResponseWriter alone runs before the
	// websocket route; the upgrade needs the raw connection.
	r.Use(customMiddleware.RequestID)
	r.Use(chimw.RealIP)

	wsCfg := a.Config.WebSocket
	upgrader := ws.NewUpgrader(wsCfg.ReadBufferSize, wsCfg.WriteBufferSize, a.Config.Security.AllowedOrigins)
	r.Handle(config.WebSocketEndpoint,
		handlers.NewWebSocketHandler(a.WebSocketHub, upgrader, a.Sessions, a.Logger, a.errorHandler))

	r.Group(func(r chi.Router) {
		tracer := a.OTelProviders.Tracer
		if tracer == nil {
			tracer = otel.Tracer(infrastructure.MeterName)
		}
		r.Use(customMiddleware.NewOTelMiddleware(tracer, a.Metrics, a.Logger).Handler)
		r.Use(customMiddleware.BusinessMetricsMiddleware(a.Metrics))
		r.Use(apierrors.NewErrorMiddleware(a.errorHandler, a.Logger, config.HealthEndpoint, config.MetricsEndpoint).Handler)
		r.Use(customMiddleware.SecurityHeaders)
		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(a.getCORSConfig()))
		}
		if rl := a.Config.Security.RateLimit; rl.Enabled {
			r.Use(customMiddleware.NewRateLimiter(rl.RPS, rl.Burst, a.Logger).Handler)
		}

		svc := a.Services
		api := &handlers.API{
			Health:    handlers.NewHealthHandler(svc.Health, a.Logger),
			Metrics:   handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP),
			Sessions:  handlers.NewSessionHandler(a.Sessions, a.Logger, a.errorHandler),
			Projects:  handlers.NewProjectHandler(svc.Projects, svc.Dashboard, a.Logger, a.errorHandler),
			Reports:   handlers.NewReportHandler(svc.Reports, a.Logger, a.errorHandler),
			Dashboard: handlers.NewDashboardHandler(svc.Dashboard, a.Logger, a.errorHandler),
			Materials: handlers.NewMaterialHandler(svc.Materials, a.Logger, a.errorHandler),
			Access:    handlers.NewAccessHandler(svc.Access, a.Logger, a.errorHandler),
			Exports:   handlers.NewExportHandler(svc.Exports, a.Logger, a.errorHandler),

			Validation:     a.validator,
			RequestTimeout: a.Config.Server.RequestTimeout,
		}
		api.Mount(r, a.Sessions, a.errorHandler)
		r.NotFound(a.errorHandler.NotFound)
		r.MethodNotAllowed(a.errorHandler.MethodNotAllowed)
	})

	a.Router = r
}

func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Request-ID",
			"X-Requested-With",
		},
		ExposedHeaders: []string{
			"Content-Disposition",
			"X-Request-ID",
			"X-Export-Rows",
			"X-Export-Charts-Skipped",
			"X-Export-Photos-Skipped",
		},
		AllowCredentials: true,
		MaxAge:           300,
		Logger:           a.Logger,
	}
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	sc := a.Config.Server
	a.Server = &http.Server{
		Addr:           net.JoinHostPort("", strconv.Itoa(sc.Port)),
		Handler:        a.Router,
		ReadTimeout:    sc.ReadTimeout,
		WriteTimeout:   sc.WriteTimeout,
		IdleTimeout:    sc.IdleTimeout,
		MaxHeaderBytes: sc.MaxHeaderBytes,
	}
}

// Run serves HTTP, the websocket hub and the session sweeper until ctx is
// done or one of them fails, then shuts everything down.
func (a *Application) Run(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "application started",
		slog.String("address", a.Server.Addr),
		slog.String("store", a.Config.Database.Driver),
		slog.String("level", a.Config.Logging.Level))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.WebSocketHub.Run(gctx)
	})
	g.Go(func() error {
		return a.Sessions.Run(gctx, a.Config.Auth.SweepInterval)
	})
	g.Go(func() error {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return a.Stop(context.WithoutCancel(ctx))
	})

	err := g.Wait()
	a.Close()
	return err
}

// Stop gracefully stops the HTTP server and flushes telemetry.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down application")
	start := time.Now()

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "application shutdown complete",
		slog.Duration("took", time.Since(start)))
	return nil
}

// Close releases the store and the chart browser. It is safe to call more
// than once.
func (a *Application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
