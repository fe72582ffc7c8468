package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"watch-transcoder/internal/database"
	"watch-transcoder/internal/handlers"
	"watch-transcoder/internal/logging"
	"watch-transcoder/internal/metrics"
	"watch-transcoder/internal/middleware"
	"watch-transcoder/internal/probe"
	"watch-transcoder/internal/startup"
	"watch-transcoder/internal/transcode"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	startTime := time.Now()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	// Initialize database
	dbStart := time.Now()
	db, err := database.New(context.Background(), config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to initialize database: %v", err)
	}
	defer db.Close()
	startup.LogDatabaseInit(time.Since(dbStart))

	// Jobs left non-terminal by a previous run can never finish;
	// mark them failed before accepting new work.
	if failed, err := db.FailOrphanedJobs(context.Background()); err != nil {
		logging.Warn("Failed to clean up orphaned jobs: %v", err)
	} else if failed > 0 {
		logging.Info("Marked %d orphaned job(s) as failed", failed)
	}

	startup.LogEncoderInit()

	// Initialize metrics
	if config.MetricsEnabled {
		metrics.InitializeMetrics()
		metrics.SetAppInfo(startup.Version, startup.Commit, runtime.Version())
	}

	// Initialize transcode service
	svc := transcode.New(db, probe.NewFFprobe(), transcode.NewFFmpeg(), transcode.Config{
		Workers:       config.MaxConcurrentTranscodes,
		EncodeTimeout: config.TranscodeTimeout,
		ScratchDir:    config.ScratchDir,
		CacheDir:      config.RenditionDir,
	})
	if err := svc.Start(context.Background()); err != nil {
		startup.LogFatal("Failed to start transcode service: %v", err)
	}

	// Initialize cache janitor
	janitor := transcode.NewJanitor(db, config.CacheTTL, config.JanitorInterval)
	janitor.Start(context.Background())

	// Periodically refresh database gauge metrics
	go func() {
		ticker := time.NewTicker(1 * time.Minute)
		for range ticker.C {
			db.UpdateDBMetrics()
		}
	}()

	// Initialize handlers
	h := handlers.New(svc, janitor, db)

	// Setup router
	router := setupRouter(h)

	// Apply logging middleware
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler := middleware.Logger(loggingConfig)(router)

	// Apply metrics middleware
	if config.MetricsEnabled {
		handler = middleware.Metrics(middleware.DefaultMetricsConfig())(handler)
	}

	// Create server
	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	// Metrics server on a separate port
	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{
			Addr:         ":" + config.MetricsPort,
			Handler:      metricsMux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != http.ErrServerClosed {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	// Start graceful shutdown handler
	go handleShutdown(srv, metricsSrv, svc, janitor)

	// Start server
	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Transcode jobs
	api.HandleFunc("/transcode", h.SubmitTranscode).Methods("POST")
	api.HandleFunc("/transcode/{jobID}", h.GetTranscodeStatus).Methods("GET")

	// Renditions
	api.HandleFunc("/media/{mediaID}/qualities", h.GetAvailableQualities).Methods("GET")
	api.HandleFunc("/media/{mediaID}/rendition", h.GetRendition).Methods("GET")
	api.HandleFunc("/media/{mediaID}/stream", h.StreamRendition).Methods("GET")

	// Maintenance
	api.HandleFunc("/cache/purge", h.PurgeCache).Methods("POST")
	api.HandleFunc("/jobs/prune", h.PruneJobs).Methods("POST")

	return r
}

func handleShutdown(srv, metricsSrv *http.Server, svc *transcode.Service, janitor *transcode.Janitor) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	janitor.Stop()
	startup.LogShutdownStep("Cache janitor stopped")

	svc.Stop()
	startup.LogShutdownStep("Transcode workers stopped")

	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStep("HTTP server stopped")
	}

	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStep("Metrics server stopped")
		}
	}

	startup.LogShutdownComplete()
}
