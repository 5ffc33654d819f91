// Package bootstrap wires all dependencies and starts the application.
// Configuration comes from a YAML file; hot reload swaps the gateway
// without restarting the server.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/artpar/modgate/adapters/clock"
	apihttp "github.com/artpar/modgate/adapters/http"
	"github.com/artpar/modgate/adapters/idgen"
	"github.com/artpar/modgate/adapters/metrics"
	"github.com/artpar/modgate/adapters/redis"
	"github.com/artpar/modgate/adapters/remote"
	"github.com/artpar/modgate/adapters/sqlite"
	"github.com/artpar/modgate/app"
	"github.com/artpar/modgate/config"
	"github.com/artpar/modgate/core/registry"
	"github.com/artpar/modgate/modules"
	"github.com/artpar/modgate/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
)

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	DB         *sqlite.DB // nil unless a local store is configured
	HTTPServer *http.Server
	Metrics    *metrics.Collector
	Registry   *registry.Registry
	Gateway    *app.GatewayRef
	Access     *app.AccessService // nil in remote auth mode

	mu     sync.Mutex
	config *config.Config
	holder *config.Holder

	resolver   ports.AccessKeyResolver
	requestLog ports.RequestLog
	redisSink  *redis.RequestSink
}

// Options customizes application wiring.
type Options struct {
	// Registry overrides the built-in module registry.
	Registry *registry.Registry

	// Logger overrides the logger built from the logging config.
	Logger *zerolog.Logger

	// Build is served at /version.
	Build apihttp.BuildInfo
}

// New creates and initializes the application from a loaded configuration.
func New(cfg *config.Config, opts Options) (*App, error) {
	logger := setupLogger(cfg.Logging, os.Stdout)
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	logger.Info().
		Str("service", cfg.Service.Name).
		Int("versions", len(cfg.Service.Versions)).
		Int("modules", cfg.Service.ModuleCount()).
		Msg("initializing modgate")

	a := &App{
		Logger: logger,
		config: cfg,
	}

	if err := a.init(cfg, opts); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

// NewWithHotReload loads the configuration at path and rebuilds the
// gateway whenever the file changes or the process receives SIGHUP.
func NewWithHotReload(path string, opts Options) (*App, error) {
	bootLogger := setupLogger(config.LoggingConfig{Level: "info", Format: "json"}, os.Stdout)
	if opts.Logger != nil {
		bootLogger = *opts.Logger
	}

	holder, err := config.NewHolder(path, bootLogger)
	if err != nil {
		return nil, err
	}

	a, err := New(holder.Get(), opts)
	if err != nil {
		return nil, err
	}
	a.holder = holder

	holder.OnChange(a.applyConfig)
	if err := holder.WatchFile(); err != nil {
		a.Logger.Warn().Err(err).Msg("file watch unavailable, reload with SIGHUP")
	}
	holder.WatchSignals()

	return a, nil
}

func (a *App) init(cfg *config.Config, opts Options) error {
	ctx := context.Background()

	var gatherer prometheus.Gatherer
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		a.Metrics = metrics.NewWithRegistry(reg)
		gatherer = reg
		a.Logger.Info().Str("path", cfg.Metrics.Path).Msg("prometheus metrics enabled")
	}

	if cfg.NeedsDatabase() {
		if err := a.initDatabase(cfg.Database); err != nil {
			return fmt.Errorf("init database: %w", err)
		}
	}

	if err := a.initResolver(cfg.Auth); err != nil {
		return fmt.Errorf("init auth: %w", err)
	}
	if err := a.initRequestLog(ctx, cfg.RequestLog); err != nil {
		return fmt.Errorf("init request log: %w", err)
	}

	a.Registry = opts.Registry
	if a.Registry == nil {
		reg, err := modules.NewRegistry()
		if err != nil {
			return err
		}
		a.Registry = reg
	}
	if missing := a.Registry.Missing(cfg.Service); len(missing) > 0 {
		a.Logger.Warn().Strs("missing", missing).Msg("configured modules without an implementation")
	}

	gw, err := a.buildGateway(ctx, cfg)
	if err != nil {
		return err
	}
	a.Gateway = app.NewGatewayRef(gw)

	handler := apihttp.NewGatewayHandler(a.Gateway, a.Logger, a.Metrics)
	health := apihttp.NewHealthHandler(a.healthChecks())

	build := opts.Build
	if build.Service == "" {
		build.Service = cfg.Service.Name
	}
	router := apihttp.NewRouter(handler, health, a.Logger, apihttp.RouterConfig{
		BasePath:       cfg.Service.BasePath,
		Metrics:        a.Metrics,
		MetricsPath:    cfg.Metrics.Path,
		MetricsGather:  gatherer,
		RequestTimeout: cfg.Server.RequestTimeout,
		Build:          build,
	})

	a.HTTPServer = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	a.Logger.Info().
		Str("addr", a.HTTPServer.Addr).
		Str("base_path", cfg.Service.BasePath).
		Msg("http server configured")
	return nil
}

func (a *App) initDatabase(cfg config.DatabaseConfig) error {
	db, err := sqlite.Open(cfg.DSN)
	if err != nil {
		return err
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		return fmt.Errorf("migrate: %w", err)
	}

	a.DB = db
	a.Logger.Info().Str("dsn", cfg.DSN).Msg("database initialized")
	return nil
}

func (a *App) initResolver(cfg config.AuthConfig) error {
	switch cfg.Mode {
	case config.AuthRemote:
		a.resolver = remote.NewAccessResolver(remote.NewClient(remoteClientConfig(cfg.Remote)))
		a.Logger.Info().Str("url", cfg.Remote.URL).Msg("using remote access key resolver")
	default:
		if a.DB == nil {
			return errors.New("local auth requires a database")
		}
		a.Access = app.NewAccessService(sqlite.NewAccessStore(a.DB), clock.Real{}, cfg.KeyPrefix, a.Logger)
		a.resolver = a.Access
		a.Logger.Info().Str("key_prefix", cfg.KeyPrefix).Msg("using local access key store")
	}
	return nil
}

func (a *App) initRequestLog(ctx context.Context, cfg config.RequestLogConfig) error {
	var sink ports.RequestSink
	switch cfg.Mode {
	case config.RequestLogNone:
		a.Logger.Info().Msg("request log disabled")
		return nil
	case config.RequestLogLocal:
		if a.DB == nil {
			return errors.New("local request log requires a database")
		}
		sink = sqlite.NewRequestStore(a.DB)
	case config.RequestLogRemote:
		sink = remote.NewRequestSink(remote.NewClient(remoteClientConfig(cfg.Remote)))
	case config.RequestLogRedis:
		rs, err := redis.NewRequestSink(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Stream:   cfg.Redis.Stream,
			MaxLen:   cfg.Redis.MaxLen,
		})
		if err != nil {
			return err
		}
		a.redisSink = rs
		sink = rs
	default:
		return fmt.Errorf("unknown request log mode %q", cfg.Mode)
	}

	a.requestLog = NewBatchRecorder(sink, BatchConfig{
		Name:          cfg.Mode,
		BatchSize:     cfg.BatchSize,
		FlushInterval: cfg.FlushInterval,
		MaxBuffer:     cfg.MaxBuffer,
		OnFlush:       a.recordFlush,
	}, a.Logger)

	a.Logger.Info().
		Str("mode", cfg.Mode).
		Int("batch_size", cfg.BatchSize).
		Dur("flush_interval", cfg.FlushInterval).
		Msg("request log enabled")
	return nil
}

func (a *App) recordFlush(sink string, records int, err error) {
	if a.Metrics == nil {
		return
	}
	if err != nil {
		a.Metrics.RequestLogErrors.WithLabelValues(sink).Inc()
		return
	}
	a.Metrics.RequestLogRecords.WithLabelValues(sink).Add(float64(records))
}

func remoteClientConfig(cfg config.RemoteConfig) remote.ClientConfig {
	return remote.ClientConfig{
		BaseURL: cfg.URL,
		APIKey:  cfg.APIKey,
		Timeout: cfg.Timeout,
		Headers: cfg.Headers,
	}
}

func (a *App) buildGateway(ctx context.Context, cfg *config.Config) (*app.Gateway, error) {
	return app.NewGateway(ctx, app.GatewayDeps{
		Registry:   a.Registry,
		Resolver:   a.resolver,
		RequestLog: a.requestLog,
		Clock:      clock.Real{},
		IDGen:      idgen.UUID{},
		Logger:     a.Logger,
	}, app.GatewayConfig{
		Service:          cfg.Service,
		HideErrorDetails: cfg.Gateway.HideErrorDetails,
	})
}

func (a *App) healthChecks() map[string]apihttp.HealthChecker {
	checks := make(map[string]apihttp.HealthChecker)
	if a.DB != nil {
		checks["database"] = apihttp.HealthCheckFunc(a.DB.PingContext)
	}
	if a.redisSink != nil {
		checks["redis"] = apihttp.HealthCheckFunc(a.redisSink.Ping)
	}
	return checks
}

// Config returns the configuration the current gateway was built from.
func (a *App) Config() *config.Config {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.config
}

// Reload builds a gateway from cfg and swaps it in. In-flight requests
// finish on the gateway they started with. Settings that need a restart
// keep their startup values.
func (a *App) Reload(ctx context.Context, cfg *config.Config) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if fields := config.RestartRequired(a.config, cfg); len(fields) > 0 {
		a.Logger.Warn().Strs("fields", fields).Msg("changed settings take effect after restart")
	}

	gw, err := a.buildGateway(ctx, cfg)
	if err != nil {
		if a.Metrics != nil {
			a.Metrics.ConfigReloadErrors.Inc()
		}
		return fmt.Errorf("rebuild gateway: %w", err)
	}
	a.Gateway.Store(gw)
	a.config = cfg

	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	if a.Metrics != nil {
		a.Metrics.ConfigReloads.Inc()
		a.Metrics.ConfigLastReload.SetToCurrentTime()
	}

	a.Logger.Info().
		Int("versions", len(cfg.Service.Versions)).
		Int("modules", cfg.Service.ModuleCount()).
		Msg("gateway reloaded")
	return nil
}

func (a *App) applyConfig(cfg *config.Config) {
	if err := a.Reload(context.Background(), cfg); err != nil {
		a.Logger.Error().Err(err).Msg("config reload rejected, keeping current gateway")
	}
}

// Run starts the HTTP server and blocks until shutdown.
func (a *App) Run() error {
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if a.holder != nil {
		a.holder.Stop()
	}

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	a.close()
	a.Logger.Info().Msg("shutdown complete")
	return nil
}

// close releases the request log, Redis and database in dependency order.
func (a *App) close() {
	if a.requestLog != nil {
		if err := a.requestLog.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("request log close error")
		}
		a.requestLog = nil
	}
	if a.redisSink != nil {
		if err := a.redisSink.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("redis close error")
		}
		a.redisSink = nil
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("database close error")
		}
		a.DB = nil
	}
}

func setupLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}

	return zerolog.New(out).With().Timestamp().Logger()
}
