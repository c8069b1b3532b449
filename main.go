package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"media-index/internal/database"
	"media-index/internal/filesystem"
	"media-index/internal/handlers"
	"media-index/internal/indexer"
	"media-index/internal/logging"
	"media-index/internal/media"
	"media-index/internal/memory"
	"media-index/internal/metrics"
	"media-index/internal/middleware"
	"media-index/internal/playlist"
	"media-index/internal/repository"
	"media-index/internal/startup"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	shutdownTimeout   = 30 * time.Second
	collectorInterval = time.Minute
	logFileName       = "media-index.log"
)

// services are the components stopped on shutdown, in order.
type services struct {
	scheduler *indexer.Scheduler
	monitor   *memory.Monitor
	collector *metrics.Collector
	servers   []*http.Server
	registry  *repository.Registry
	db        *database.Database
}

func main() {
	startTime := time.Now()

	memory.ConfigureFromEnv()

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	if config.LogDir != "" {
		if err := logging.EnableFileOutput(logging.DefaultFileConfig(config.LogDir, logFileName)); err != nil {
			logging.Warn("File logging disabled: %v", err)
		}
	}

	media.SetFFprobePath(config.FFprobePath)
	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(config.Volumes()))

	ctx := context.Background()

	// Initialize the index
	dbStart := time.Now()
	db, err := database.New(ctx, config.IndexPath)
	if err != nil {
		startup.LogFatal("Failed to initialize index database: %v", err)
	}
	records, err := db.Count(ctx)
	if err != nil {
		startup.LogFatal("Failed to read index database: %v", err)
	}
	startup.LogDatabaseInit(time.Since(dbStart), records)

	registry, err := startup.OpenRepositories(ctx, config)
	if err != nil {
		startup.LogFatal("Failed to open repositories: %v", err)
	}

	// Initialize indexer
	monitor := memory.NewMonitor(memory.DefaultConfig())
	monitor.Start()

	builder := indexer.NewBuilder(db, config.IndexWorkers)
	builder.SetThrottle(monitor)
	scheduler := indexer.NewScheduler(builder, registry)

	var collector *metrics.Collector
	if config.MetricsEnabled {
		collector = metrics.NewCollector(db, db.Path(), collectorInterval)
		scheduler.SetOnIndexComplete(func(indexer.BuildResult) { collector.Refresh() })
	}

	schedules, err := queueRepositories(scheduler, registry, config)
	if err != nil {
		startup.LogFatal("Failed to schedule repositories: %v", err)
	}
	startup.LogIndexerInit(builder.Workers(), schedules)
	if err := scheduler.Start(); err != nil {
		startup.LogFatal("Failed to start indexer: %v", err)
	}
	startup.LogIndexerStarted()

	playlists, err := playlist.NewSet(config.Playlists, db, registry)
	if err != nil {
		startup.LogFatal("Invalid playlist configuration: %v", err)
	}

	// Setup router
	h := handlers.New(db, scheduler, registry, playlists)
	router := h.Router(middleware.Metrics(middleware.DefaultMetricsConfig()))
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler := middleware.Logger(loggingConfig)(router)

	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	svc := &services{
		scheduler: scheduler,
		monitor:   monitor,
		servers:   []*http.Server{srv},
		registry:  registry,
		db:        db,
	}

	if config.MetricsEnabled {
		filesystem.SetObserver(metrics.NewFilesystemObserver())
		metrics.InitializeMetrics(registry.IDs())
		metrics.AppInfo.WithLabelValues(startup.Version, startup.Commit, runtime.Version()).Set(1)

		svc.collector = collector
		collector.Start()

		metricsSrv := newMetricsServer(config.MetricsPort)
		svc.servers = append(svc.servers, metricsSrv)
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		handleShutdown(svc)
		close(done)
	}()

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		startup.LogFatal("Server error: %v", err)
	}
	<-done
}

// queueRepositories queues every opened repository with its schedule and
// returns the schedules for the startup log.
func queueRepositories(scheduler *indexer.Scheduler, registry *repository.Registry, config *startup.Config) (map[string]string, error) {
	schedules := make(map[string]string)
	for _, rc := range config.Repositories {
		if !registry.Has(rc.ID) {
			continue
		}
		schedule, err := config.Schedule(rc)
		if err != nil {
			return nil, err
		}
		adapter, err := registry.Get(rc.ID)
		if err != nil {
			return nil, err
		}
		if err := scheduler.Queue(adapter, schedule); err != nil {
			return nil, err
		}
		schedules[rc.ID] = schedule.String()
	}
	return schedules, nil
}

// newMetricsServer serves the default Prometheus registry on its own port.
func newMetricsServer(port string) *http.Server {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func handleShutdown(svc *services) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())
	shutdown(svc)
}

func shutdown(svc *services) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	startup.LogShutdownStep("Stopping indexer")
	svc.scheduler.Stop()
	svc.monitor.Stop()
	startup.LogShutdownStepComplete("Indexer stopped")

	if svc.collector != nil {
		svc.collector.Stop()
	}

	startup.LogShutdownStep("Shutting down HTTP servers")
	for _, srv := range svc.servers {
		if err := srv.Shutdown(ctx); err != nil {
			logging.Warn("Server shutdown error: %v", err)
		}
	}
	startup.LogShutdownStepComplete("HTTP servers stopped")

	startup.LogShutdownStep("Closing repositories")
	if err := svc.registry.Close(); err != nil {
		logging.Warn("Failed to close repositories: %v", err)
	}
	startup.LogShutdownStepComplete("Repositories closed")

	startup.LogShutdownStep("Closing index database")
	if err := svc.db.Close(); err != nil {
		logging.Warn("Failed to close index database: %v", err)
	}
	startup.LogShutdownStepComplete("Index database closed")

	if err := logging.CloseFileOutput(); err != nil {
		logging.Warn("Failed to close log file: %v", err)
	}
	startup.LogShutdownComplete()
}
