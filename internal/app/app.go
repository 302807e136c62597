package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"baaccli/internal/cache"
	"baaccli/internal/config"
	"baaccli/internal/dataprocessing"
	"baaccli/internal/enrichment"
	"baaccli/internal/files"
	"baaccli/internal/infrastructure"
	"baaccli/internal/loader"
	"baaccli/internal/operations"
	"baaccli/internal/services"
	"baaccli/internal/sink"
	"baaccli/internal/validation"
	handlers "baaccli/internal/transport/http"
	"baaccli/pkg/contracts"
)

const (
	Version = contracts.Version
	AppName = "BAAC Accident Pipeline"
)

// Application holds the wiring shared by every binary.
type Application struct {
	Config  *config.Config
	Paths   *config.Paths
	Logger  *slog.Logger
	OTel    *infrastructure.OTelProviders
	Metrics *infrastructure.PipelineMetrics

	Server *http.Server
}

// NewApplication loads the configuration, lets configure apply command line
// overrides, validates the result and builds the application.
func NewApplication(configFile string, configure func(*config.Config)) (*Application, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if configure != nil {
		configure(cfg)
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid command line options: %w", err)
		}
	}
	return New(cfg, "")
}

// New builds an application from a validated configuration. Relative paths
// are resolved against baseDir, or the working directory when empty.
func New(cfg *config.Config, baseDir string) (*Application, error) {
	if baseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		baseDir = wd
	}
	paths, err := cfg.ResolvePaths(baseDir)
	if err != nil {
		return nil, err
	}
	resolved := *cfg
	cfg = &resolved
	if p := cfg.Sink.SQLitePath; p != "" && p != ":memory:" && !filepath.IsAbs(p) {
		cfg.Sink.SQLitePath = filepath.Join(baseDir, p)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	if p := cfg.Logging.FilePath; p != "" && !filepath.IsAbs(p) {
		cfg.Logging.FilePath = filepath.Join(baseDir, p)
	}
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("application_starting",
		slog.String("name", AppName),
		slog.String("version", Version),
		slog.String("sink", cfg.Sink.Type))
	paths.LogPathResolution(logger)

	providers, err := infrastructure.InitializeOTel(cfg.Telemetry, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	return &Application{
		Config:  cfg,
		Paths:   paths,
		Logger:  logger,
		OTel:    providers,
		Metrics: providers.Metrics,
	}, nil
}

// Loader builds the cache-aware dataset loader.
func (a *Application) Loader() *loader.Loader {
	discovery := files.NewDiscovery(a.Paths.DataDir)
	store := cache.NewStore(a.Paths.CacheDir, infrastructure.WithComponent(a.Logger, "cache"))
	return loader.New(discovery, store, loader.Options{
		Workers:        a.Config.Loader.Workers,
		ForceReload:    a.Config.Loader.ForceReload,
		MergeLocations: a.Config.Loader.MergeLocations,
	}, infrastructure.WithComponent(a.Logger, "loader"), a.Metrics)
}

// OpenSink opens the configured document store. The caller closes it.
func (a *Application) OpenSink() (sink.Sink, error) {
	return sink.Open(a.Config.Sink, infrastructure.WithComponent(a.Logger, "sink"))
}

// Enricher builds the enrichment processor. It returns a nil interface when
// enrichment is disabled.
func (a *Application) Enricher() (operations.Enricher, error) {
	cfg := a.Config.Enrichment
	if !cfg.Enabled {
		return nil, nil
	}
	logger := infrastructure.WithComponent(a.Logger, "enrichment")

	overpassClient, err := enrichment.NewClient("overpass", enrichment.ClientOptions{
		RPS:        cfg.OverpassRPS,
		Burst:      cfg.Burst,
		MaxRetries: cfg.MaxRetries,
		Timeout:    cfg.Timeout,
		MemoSize:   cfg.MemoSize,
	}, logger)
	if err != nil {
		return nil, err
	}
	infra := enrichment.NewOverpass(overpassClient, cfg.OverpassURL)

	var weather enrichment.WeatherProvider
	if cfg.Weather {
		meteoClient, err := enrichment.NewClient("open-meteo", enrichment.ClientOptions{
			RPS:        cfg.MeteoRPS,
			Burst:      cfg.Burst,
			MaxRetries: cfg.MaxRetries,
			Timeout:    cfg.Timeout,
			MemoSize:   cfg.MemoSize,
		}, logger)
		if err != nil {
			return nil, err
		}
		weather = enrichment.NewMeteo(meteoClient, cfg.MeteoURL, dataprocessing.SourceLocation)
	}

	return enrichment.NewProcessor(infra, weather, cfg.Workers, logger, a.Metrics), nil
}

func (a *Application) manager(steps ...operations.Step) (*operations.Manager, error) {
	m := operations.NewManager(operations.NewRegistry(), operations.NewConfig(), a.Logger, a.Metrics)
	if err := m.Register(steps...); err != nil {
		return nil, err
	}
	return m, nil
}

// ImportSteps returns the import pipeline in execution order.
func (a *Application) ImportSteps(l operations.DatasetLoader, e operations.Enricher, s sink.Sink) []operations.Step {
	return []operations.Step{
		operations.NewLoadStep(l),
		operations.NewSampleStep(a.Config.Loader.SampleSize, a.Config.Loader.SampleSeed),
		operations.NewEnrichStep(e, a.Config.Enrichment.MinYear, a.Config.Enrichment.Radius),
		operations.NewExportStep(a.Paths, a.Logger),
		operations.NewPushStep(s, a.Logger, a.Metrics),
	}
}

// EnrichSteps returns the enrich-only pipeline that completes documents
// already stored in the sink.
func (a *Application) EnrichSteps(e operations.Enricher, s sink.Sink) []operations.Step {
	return []operations.Step{
		operations.NewPendingStep(s, e, a.Config.Enrichment.MinYear, a.Config.Enrichment.Radius),
		operations.NewAnnotateStep(s, a.Logger, a.Metrics),
	}
}

// Preflight validates the data directory and the writable directories.
func (a *Application) Preflight() error {
	return validation.NewDirectoryValidator(a.Logger).ValidateAll(a.Paths.DataDir, a.Paths.CacheDir, a.Paths.ExportDir)
}

// RunImport loads every year, optionally samples and enriches, exports and
// pushes the documents.
func (a *Application) RunImport(ctx context.Context) (*operations.OperationResponse, error) {
	if err := a.Preflight(); err != nil {
		return nil, err
	}
	e, err := a.Enricher()
	if err != nil {
		return nil, err
	}
	s, err := a.OpenSink()
	if err != nil {
		return nil, err
	}
	defer s.Close()

	return a.run(ctx, a.ImportSteps(a.Loader(), e, s)...)
}

// RunEnrich enriches the documents the sink reports as pending.
func (a *Application) RunEnrich(ctx context.Context) (*operations.OperationResponse, error) {
	e, err := a.Enricher()
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, errors.New("enrichment is disabled")
	}
	s, err := a.OpenSink()
	if err != nil {
		return nil, err
	}
	defer s.Close()

	return a.run(ctx, a.EnrichSteps(e, s)...)
}

func (a *Application) run(ctx context.Context, steps ...operations.Step) (*operations.OperationResponse, error) {
	m, err := a.manager(steps...)
	if err != nil {
		return nil, err
	}
	ctx = infrastructure.EnsureTraceID(ctx)
	resp, _, err := m.Execute(ctx, operations.OperationRequest{})
	for _, st := range resp.Steps {
		a.Logger.InfoContext(ctx, "step_summary",
			slog.String("step", st.ID),
			slog.String("status", string(st.Status)),
			slog.Int("attempts", st.Attempts),
			slog.Duration("duration", st.Duration),
			slog.String("message", st.Message))
	}
	return resp, err
}

// Router builds the read API over accidents.
func (a *Application) Router(accidents *services.AccidentService) http.Handler {
	health := services.NewHealthService(Version, accidents)
	return handlers.NewRouter(handlers.RouterOptions{
		Accidents:      accidents,
		Health:         health,
		MaxPageSize:    a.Config.Server.MaxPageSize,
		RateLimit:      a.Config.Server.RateLimit,
		RateBurst:      a.Config.Server.RateBurst,
		Tracer:         a.OTel.Tracer,
		Metrics:        a.Metrics,
		MetricsHandler: a.OTel.PrometheusHTTP,
		Logger:         a.Logger,
	})
}

func (a *Application) createServer(handler http.Handler) {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      handler,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Serve starts the read API, loads the dataset in the background and blocks
// until ctx is cancelled or the server fails. Requests made before the load
// finishes receive 503.
func (a *Application) Serve(ctx context.Context) error {
	if err := a.Preflight(); err != nil {
		return err
	}
	accidents := services.NewAccidentService(a.Logger)
	a.createServer(a.Router(accidents))

	serverErr := make(chan error, 1)
	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()
	a.Logger.InfoContext(ctx, "server_started", slog.String("address", a.Server.Addr))

	go a.publish(ctx, accidents)

	select {
	case <-ctx.Done():
		a.Logger.InfoContext(ctx, "shutdown_requested")
	case err := <-serverErr:
		if err != nil {
			a.Logger.ErrorContext(ctx, "server_error", slog.String("error", err.Error()))
			_ = a.Stop(context.Background())
			return fmt.Errorf("server error: %w", err)
		}
	}
	return a.Stop(context.Background())
}

func (a *Application) publish(ctx context.Context, accidents *services.AccidentService) {
	res, err := a.Loader().Load(ctx)
	if err != nil {
		if ctx.Err() == nil {
			a.Logger.ErrorContext(ctx, "dataset_load_failed", slog.String("error", err.Error()))
		}
		return
	}
	ds := res.Dataset
	if n := a.Config.Loader.SampleSize; n > 0 {
		ds = ds.Sample(n, a.Config.Loader.SampleSeed)
	}
	accidents.Publish(ds)
	a.Logger.InfoContext(ctx, "dataset_published",
		slog.Bool("from_cache", res.FromCache),
		slog.Any("years", ds.Years),
		slog.Duration("duration", res.Duration))
}

// Stop shuts the server down within the configured timeout and flushes
// telemetry.
func (a *Application) Stop(ctx context.Context) error {
	timeout := a.Config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var errs []error
	if a.Server != nil {
		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
		}
	}
	if err := a.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Shutdown flushes telemetry and closes the log file.
func (a *Application) Shutdown(ctx context.Context) error {
	var errs []error
	if a.OTel != nil {
		if err := a.OTel.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.Logger.InfoContext(ctx, "application_stopped")
	if err := infrastructure.CloseLogFile(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
