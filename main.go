package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"media-directory/internal/handlers"
	"media-directory/internal/metrics"
	"media-directory/internal/middleware"
	"media-directory/internal/startup"
	"media-directory/internal/storage"
	"media-directory/internal/storage/backends"
	"media-directory/internal/storage/sqlite"
	"media-directory/internal/updates"
)

const shutdownTimeout = 30 * time.Second

func main() {
	configFile := flag.String("config", "", "Path to a TOML config file (default $"+startup.ConfigEnv+")")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [options]\n\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := run(*configFile); err != nil {
		startup.LogFatal("%v", err)
	}
}

func run(configFile string) error {
	startTime := time.Now()
	startup.LogStartup()

	config, err := startup.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	startup.LogConfig(config)

	if err := config.PrepareStorage(); err != nil {
		return err
	}

	buildInfo := startup.GetBuildInfo()
	metrics.SetAppInfo(buildInfo.Version, buildInfo.Commit, buildInfo.GoVersion)
	metrics.InitializeMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	storeStart := time.Now()
	store, err := backends.Open(ctx, config.Backend(metrics.NewEngineObserver()), nil)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	startup.LogStorageInit(config.Storage.Driver, time.Since(storeStart))

	// Container update ids are bumped in batches, as eventing would consume them
	upd := updates.NewManager(store, config.Updates.FlushInterval, config.Updates.Threshold)
	store.SetNotifier(upd)
	upd.Start()
	startup.LogUpdatesInit(config.Updates.FlushInterval, config.Updates.Threshold)

	var dbPath string
	if config.IsSQLite() {
		dbPath = config.Storage.SQLite.File
	}
	collector := metrics.NewCollector(store, dbPath, config.MetricsInterval)
	collector.Start()

	h := handlers.New(store, config.Storage.Driver, handlerOptions(store)...)
	router := setupRouter(h)
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks

	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      middleware.Logger(loggingConfig)(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	servers := []*http.Server{srv}
	if config.MetricsEnabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", h.MetricsHandler())
		servers = append(servers, &http.Server{
			Addr:              ":" + config.MetricsPort,
			Handler:           metricsMux,
			ReadHeaderTimeout: 10 * time.Second,
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range servers {
		s := s
		g.Go(func() error {
			if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server %s: %w", s.Addr, err)
			}
			return nil
		})
	}

	startup.LogServerStarted(config.ServerInfo(time.Since(startTime)))

	<-gctx.Done()
	reason := "server error"
	if ctx.Err() != nil {
		reason = "signal"
	}
	startup.LogShutdownInitiated(reason)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	startup.ShutdownStep("HTTP servers stopped", func() error {
		var errs []error
		for _, s := range servers {
			if err := s.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("server %s: %w", s.Addr, err))
			}
		}
		return errors.Join(errs...)
	})
	startup.ShutdownStep("Metrics collector stopped", func() error {
		collector.Stop()
		return nil
	})
	startup.ShutdownStep("Container updates flushed", func() error {
		upd.Stop()
		return nil
	})
	startup.ShutdownStep("Storage closed", store.Close)

	startup.LogShutdownComplete()
	return g.Wait()
}

// handlerOptions wires readiness and on-demand backups to the embedded engine.
// Client/server backends are ready once opened.
func handlerOptions(store *storage.Storage) []handlers.Option {
	engine, ok := store.Backend().(*sqlite.Engine)
	if !ok {
		return nil
	}
	return []handlers.Option{
		handlers.WithReadiness(func() bool { return engine.State() == sqlite.StateReady }),
		handlers.WithBackuper(engine),
	}
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))

	// Health check and version routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/objects/{id:-?[0-9]+}", h.GetObject).Methods("GET")
	api.HandleFunc("/objects/{id:-?[0-9]+}", h.DeleteObject).Methods("DELETE")
	api.HandleFunc("/browse/{id:-?[0-9]+}", h.Browse).Methods("GET")
	api.HandleFunc("/search", h.Search).Methods("GET")
	api.HandleFunc("/search/compile", h.CompileSearch).Methods("POST")
	api.HandleFunc("/mimetypes", h.GetMimeTypes).Methods("GET")
	api.HandleFunc("/stats", h.GetStats).Methods("GET")
	api.HandleFunc("/backup", h.TriggerBackup).Methods("POST")

	return r
}
