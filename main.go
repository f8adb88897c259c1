package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"imageforge/internal/capability"
	"imageforge/internal/handlers"
	"imageforge/internal/logging"
	"imageforge/internal/middleware"
	"imageforge/internal/pipeline"
	"imageforge/internal/retention"
	"imageforge/internal/startup"
	"imageforge/internal/store"

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

	// Probe external processing capabilities
	caps := capability.Probe()
	startup.LogCapabilities(caps.Vips, caps.BackgroundRemoval, caps.Ghostscript, caps.Oxipng)

	// Initialize session storage
	st, err := store.New(config.UploadDir)
	if err != nil {
		startup.LogFatal("Failed to initialize session store: %v", err)
	}

	// Start the retention scheduler
	startup.LogRetentionInit(config.SessionRetention, config.SweepInterval, config.CleanupDelay)
	scheduler := retention.New(st, config.CleanupDelay, config.SessionRetention, config.SweepInterval)
	scheduler.Start()

	// Build the processing pipeline
	pipe := pipeline.New(caps)
	orchestrator := pipeline.NewOrchestrator(st, pipe)

	// Initialize handlers
	h := handlers.New(st, orchestrator, scheduler, caps, config)

	// Setup router
	router := setupRouter(h)

	// Log routes dynamically
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	// Apply metrics middleware
	var handler http.Handler = router
	if config.MetricsEnabled {
		handler = middleware.Metrics(middleware.DefaultMetricsConfig())(handler)
	}

	// Apply logging middleware
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler = middleware.Logger(loggingConfig)(handler)

	// Apply compression middleware
	handler = middleware.Compression(middleware.DefaultCompressionConfig())(handler)

	// Create server
	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	// Serve metrics on a separate port
	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{
			Addr:        ":" + config.MetricsPort,
			Handler:     metricsMux,
			ReadTimeout: 15 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != http.ErrServerClosed {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	// Start graceful shutdown handler
	go handleShutdown(srv, metricsSrv, scheduler)

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

	// Session lifecycle
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/upload", h.Upload).Methods("POST")
	api.HandleFunc("/process", h.Process).Methods("POST")
	api.HandleFunc("/download/{sessionId}", h.Download).Methods("GET")
	api.HandleFunc("/session/{sessionId}", h.GetSession).Methods("GET")
	api.HandleFunc("/dimensions/{sessionId}", h.GetDimensions).Methods("GET")
	api.HandleFunc("/preview/{sessionId}/{assetId}", h.GetPreview).Methods("GET")
	api.HandleFunc("/cleanup/{sessionId}", h.Cleanup).Methods("DELETE")
	api.HandleFunc("/cleanup", h.CleanupAll).Methods("DELETE")

	return r
}

func handleShutdown(srv, metricsSrv *http.Server, scheduler *retention.Scheduler) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Stopping retention scheduler")
	scheduler.Stop()
	startup.LogShutdownStepComplete("Retention scheduler stopped")

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownStep("Releasing image library resources")
	capability.ShutdownVips()
	startup.LogShutdownStepComplete("Image library resources released")

	startup.LogShutdownComplete()
}
