package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	appreception "github.com/erp/reception/internal/application/reception"
	"github.com/erp/reception/internal/infrastructure/cache"
	"github.com/erp/reception/internal/infrastructure/config"
	"github.com/erp/reception/internal/infrastructure/logger"
	"github.com/erp/reception/internal/infrastructure/migration"
	"github.com/erp/reception/internal/infrastructure/persistence"
	"github.com/erp/reception/internal/infrastructure/telemetry"
	"github.com/erp/reception/internal/interfaces/http/handler"
	"github.com/erp/reception/internal/interfaces/http/middleware"
	"github.com/erp/reception/internal/interfaces/http/router"
	"github.com/erp/reception/migrations"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const version = "1.0.0"

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	ctx := context.Background()

	// The OTLP log bridge needs a logger of its own before the main one exists.
	bootLog, err := logger.NewForEnvironment(cfg.App.Env)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	logProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogExportEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, bootLog)
	if err != nil {
		panic("Failed to initialize log export: " + err.Error())
	}

	log, err := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}, logProvider.Core(logger.ParseLevel(cfg.Log.Level)))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting reception service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Telemetry.ProfilingEnabled,
		ServerAddress:     cfg.Telemetry.ProfilingServerAddress,
		ApplicationName:   cfg.Telemetry.ServiceName,
		BasicAuthUser:     cfg.Telemetry.ProfilingAuthUser,
		BasicAuthPassword: cfg.Telemetry.ProfilingAuthPassword,
		ProfileTypes:      cfg.Telemetry.ProfilingTypes,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() && cfg.Telemetry.SpanProfilesEnabled && !tracerProvider.EnableSpanProfiles() {
		log.Warn("Span profiles need trace export; leaving them off")
	}

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	meter := meterProvider.Meter("reception")

	if cfg.Database.AutoMigrate {
		if err := migrateSchema(&cfg.Database, log); err != nil {
			log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	dbMetrics, err := telemetry.NewDBMetrics(meter, telemetry.DBMetricsConfig{
		SlowQueryThreshold: cfg.Telemetry.DBSlowQueryThresh,
	}, log)
	if err != nil {
		log.Fatal("Failed to create database metrics", zap.Error(err))
	}
	plugins := []gorm.Plugin{dbMetrics}
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		plugins = append(plugins, telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:         true,
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
			DBName:          cfg.Database.DBName,
		}, log))
	}

	db, err := persistence.NewDatabase(&cfg.Database,
		persistence.WithZapLogger(log, cfg.Telemetry.DBSlowQueryThresh),
		persistence.WithPlugins(plugins...),
	)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	poolCtx, stopPool := context.WithCancel(ctx)
	dbMetrics.StartPoolStatsCollection(poolCtx)

	idempotency, err := cache.OpenIdempotencyStore(cfg.Reception.IdempotencyBackend, cfg.Redis, cache.WithLogger(log))
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}

	workflow, err := appreception.NewWorkflowService(
		persistence.NewGormTransactionScope(db.DB),
		appreception.WorkflowConfig{
			DocumentPrefix: cfg.Reception.DocumentPrefix,
			IdempotencyTTL: cfg.Reception.IdempotencyTTL,
		},
		log,
	)
	if err != nil {
		log.Fatal("Invalid reception configuration", zap.Error(err))
	}
	workflow.SetReferenceResolver(persistence.NewGormReferenceResolver(db.DB))
	workflow.SetIdempotencyStore(idempotency)
	receptionMetrics, err := telemetry.NewReceptionMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create reception metrics", zap.Error(err))
	}
	workflow.SetMetrics(receptionMetrics)

	queries := appreception.NewQueryService(
		persistence.NewGormReceptionRepository(db.DB),
		persistence.NewGormDetailRepository(db.DB),
		persistence.NewGormHistoryRepository(db.DB),
	)
	statistics := appreception.NewStatisticsService(
		persistence.NewGormStatisticsRepository(db.DB),
		cfg.Reception.StatisticsTop,
		log,
	)

	engine := newEngine(cfg, log)
	systemHandler := handler.NewSystemHandler(cfg.App.Name, version, db)
	engine.GET("/health", systemHandler.Health)

	router.NewRouter(engine).Register(
		router.ReceptionRoutes(handler.NewReceptionHandler(workflow, queries)),
		router.StatisticsRoutes(handler.NewStatisticsHandler(statistics)),
		router.SystemRoutes(systemHandler),
	).Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	stopPool()
	dbMetrics.Stop()
	if err := idempotency.Close(); err != nil {
		log.Warn("Error closing idempotency store", zap.Error(err))
	}
	_ = profiler.Stop()
	_ = meterProvider.Shutdown(shutdownCtx)
	_ = tracerProvider.Shutdown(shutdownCtx)
	_ = logProvider.Shutdown(shutdownCtx)

	log.Info("Server exited gracefully")
}

// newEngine builds the gin engine with the middleware chain every route shares
func newEngine(cfg *config.Config, log *zap.Logger) *gin.Engine {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Warn("Invalid trusted proxies, trusting none", zap.Error(err))
		_ = engine.SetTrustedProxies(nil)
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	engine.Use(
		middleware.RequestID(),
		logger.Recovery(log),
		logger.GinMiddleware(log),
		middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		}),
		middleware.Actor(),
		middleware.TracingAttributeInjector(),
		middleware.ProfilingLabels(cfg.Telemetry.ProfilingEnabled, "/health", "/api/v1/system"),
		middleware.SpanErrorMarker(),
		middleware.CORSWithConfig(cors),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)
	return engine
}

// migrateSchema applies the embedded migrations on a dedicated connection,
// which the migrator closes when done
func migrateSchema(cfg *config.DatabaseConfig, log *zap.Logger) error {
	sqlDB, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return err
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return err
	}

	m, err := migration.New(sqlDB, migration.FromFS(migrations.FS, "."), log)
	if err != nil {
		_ = sqlDB.Close()
		return err
	}
	defer func() {
		_ = m.Close()
	}()

	if err := m.Up(); err != nil {
		return err
	}
	v, dirty, err := m.Version()
	if err != nil {
		return err
	}
	log.Info("Database schema up to date", zap.Uint("version", v), zap.Bool("dirty", dirty))
	return nil
}
