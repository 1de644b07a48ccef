package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"snapbox/internal/archive"
	"snapbox/internal/archiver"
	"snapbox/internal/capture"
	"snapbox/internal/filesystem"
	"snapbox/internal/handlers"
	"snapbox/internal/logging"
	"snapbox/internal/memory"
	"snapbox/internal/metrics"
	"snapbox/internal/middleware"
	"snapbox/internal/removable"
	"snapbox/internal/sandbox"
	"snapbox/internal/startup"
	"snapbox/internal/workers"

	"github.com/gofrs/flock"
	"github.com/gorilla/mux"
	"github.com/spf13/pflag"
)

func main() {
	startTime := time.Now()

	opts, flagSet, err := parseFlags(os.Args[1:], os.Stderr)
	switch {
	case errors.Is(err, pflag.ErrHelp) || opts.help:
		printHelp(os.Stdout, flagSet)
		return
	case err != nil:
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	case opts.version:
		printVersion(os.Stdout)
		return
	}
	if opts.configFile != "" {
		if err := os.Setenv("CONFIG_FILE", opts.configFile); err != nil {
			startup.LogFatal("Failed to set CONFIG_FILE: %v", err)
		}
	}

	memory.ConfigureFromEnv()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	metrics.InitializeMetrics()
	filesystem.SetObserver(metrics.NewFilesystemObserver())
	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string]string{
		"sandbox":   config.SandboxDir,
		"snapshot":  filepath.Dir(config.SnapshotPath),
		"removable": config.RemovableRoot,
	}))

	// One process owns the camera
	lock := flock.New(config.LockFile)
	locked, err := lock.TryLock()
	if err != nil {
		startup.LogFatal("Failed to acquire lock %s: %v", config.LockFile, err)
	}
	if !locked {
		startup.LogFatal("Another snapbox instance holds %s", config.LockFile)
	}

	// Open the camera
	startup.LogCameraInit(config.CameraMode, config.CameraDevice)
	cameraStart := time.Now()
	worker, err := capture.Start(openerFor(config.CameraMode), captureConfig(config))
	if err != nil {
		_ = lock.Unlock()
		startup.LogFatal("Camera error: %v", err)
	}
	stream := worker.Stream()
	startup.LogCameraStarted(stream.Resolution.String()+" "+string(stream.Format), time.Since(cameraStart))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var captureRunning atomic.Bool
	captureRunning.Store(true)
	captureDone := make(chan error, 1)
	go func() {
		err := worker.Run(ctx)
		captureRunning.Store(false)
		captureDone <- err
	}()

	// Archive components
	pool := workers.NewPool(config.FSWorkers, config.FSWorkers*4)
	archiveBox := sandbox.New(config.SandboxDir)
	mediaBox := sandbox.New(config.RemovableRoot)
	store := archive.NewStore(archiveBox)
	catalog := archive.NewCatalog(archiveBox)

	coordinator := archiver.NewCoordinator(worker, store, pool, archiver.Config{
		SnapshotPath: worker.SnapshotPath(),
		PollInterval: config.SavePollInterval,
		PollAttempts: config.SavePollAttempts,
	})

	// Removable media
	messages := handlers.NewMessages()
	watcher := removable.NewWatcher(func(ev removable.Event) {
		messages.Add(handlers.LevelInfo, "Drive %s: %s", ev.Action, ev.Device)
	})
	if err := watcher.Start(ctx); err != nil {
		logging.Warn("Removable media watcher not started: %v", err)
	}

	collector := metrics.NewCollector(store, config.StatsInterval)
	collector.Start()

	h := handlers.New(handlers.Deps{
		Saver:           coordinator,
		Archive:         archiveBox,
		Catalog:         catalog,
		Deleter:         archive.NewDeleter(archiveBox),
		Transfer:        archive.NewTransfer(archiveBox, mediaBox, catalog),
		Store:           store,
		Drives:          removable.NewDrives(config.RemovableRoot, catalog),
		Watcher:         watcher,
		Pool:            pool,
		Messages:        messages,
		CaptureRunning:  captureRunning.Load,
		PendingCaptures: worker.Pending,
	})

	// Setup router
	router := setupRouter(h, config.StaticDir)
	startup.LogHTTPRoutes(router, config.LogStaticFiles, config.LogHealthChecks)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogStaticFiles = config.LogStaticFiles
	loggingConfig.LogHealthChecks = config.LogHealthChecks

	var handler http.Handler = middleware.Compression(middleware.DefaultCompressionConfig())(router)
	handler = middleware.Logger(loggingConfig)(handler)
	handler = middleware.Metrics(middleware.DefaultMetricsConfig())(handler)

	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      2 * time.Minute, // transfers to slow drives
		IdleTimeout:       60 * time.Second,
	}

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsSrv = newMetricsServer(config.MetricsPort, h.MetricsHandler())
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var fatal error
	select {
	case sig := <-sigChan:
		startup.LogShutdownInitiated(sig.String())
	case err := <-captureDone:
		// Run only returns early on a device failure
		fatal = err
		captureDone <- err
		startup.LogShutdownInitiated("capture failure")
	case err := <-serverErr:
		fatal = err
		startup.LogShutdownInitiated("server failure")
	}

	shutdown(shutdownDeps{
		cancel:      cancel,
		captureDone: captureDone,
		worker:      worker,
		pool:        pool,
		watcher:     watcher,
		collector:   collector,
		servers:     []*http.Server{srv, metricsSrv},
		lock:        lock,
	})

	if fatal != nil {
		startup.LogFatal("%v", fatal)
	}
}

func openerFor(mode string) capture.Opener {
	if mode == startup.CameraModeFake {
		return capture.OpenFake
	}
	return capture.OpenV4L2
}

func captureConfig(config *startup.Config) capture.Config {
	cfg := capture.DefaultConfig()
	cfg.Device = config.CameraDevice
	cfg.Format = capture.PixelFormat(config.PixelFormat)
	cfg.Interval = config.FrameInterval
	cfg.Quality = config.JPEGQuality
	cfg.SnapshotPath = config.SnapshotPath
	cfg.Retries = config.CaptureRetries
	return cfg
}

func setupRouter(h *handlers.Handlers, staticDir string) *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/save", h.TriggerSave).Methods("POST")
	api.HandleFunc("/list", h.ListFiles).Methods("GET")
	api.HandleFunc("/image", h.GetImage).Methods("GET")
	api.HandleFunc("/delete", h.DeleteFile).Methods("POST")
	api.HandleFunc("/transfer/all", h.TransferAll).Methods("POST")
	api.HandleFunc("/transfer", h.TransferSelected).Methods("POST")
	api.HandleFunc("/drives", h.GetDrives).Methods("GET")
	api.HandleFunc("/messages", h.GetMessages).Methods("GET")

	// Static files, including the live snapshot
	r.PathPrefix(middleware.StaticPrefix).Handler(
		noCache(http.StripPrefix(middleware.StaticPrefix, http.FileServer(http.Dir(staticDir)))),
	)
	r.Handle("/", http.RedirectHandler(middleware.StaticPrefix, http.StatusFound))

	return r
}

// noCache stops browsers reusing a stale snapshot.
func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

func newMetricsServer(port string, handler http.Handler) *http.Server {
	serveMux := http.NewServeMux()
	serveMux.Handle("/metrics", handler)
	return &http.Server{
		Addr:              ":" + port,
		Handler:           serveMux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

type shutdownDeps struct {
	cancel      context.CancelFunc
	captureDone chan error
	worker      *capture.Worker
	pool        *workers.Pool
	watcher     *removable.Watcher
	collector   *metrics.Collector
	servers     []*http.Server
	lock        *flock.Flock
}

// shutdown stops the capture worker first so no new archive jobs are queued, then
// drains the pool and closes the servers.
func shutdown(d shutdownDeps) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Stopping capture worker")
	d.cancel()
	select {
	case <-d.captureDone:
	case <-ctx.Done():
		logging.Warn("Capture worker did not stop in time")
	}
	if err := d.worker.Close(); err != nil {
		logging.Warn("Camera close error: %v", err)
	}
	startup.LogShutdownStepComplete("Capture worker stopped")

	startup.LogShutdownStep("Stopping removable media watcher")
	d.watcher.Stop()
	startup.LogShutdownStepComplete("Removable media watcher stopped")

	startup.LogShutdownStep("Shutting down HTTP servers")
	for _, srv := range d.servers {
		if srv == nil {
			continue
		}
		if err := srv.Shutdown(ctx); err != nil {
			logging.Warn("Server shutdown error: %v", err)
		}
	}
	startup.LogShutdownStepComplete("HTTP servers stopped")

	startup.LogShutdownStep("Draining worker pool")
	d.pool.Stop()
	d.collector.Stop()
	startup.LogShutdownStepComplete("Worker pool stopped")

	if err := d.lock.Unlock(); err != nil {
		logging.Warn("Failed to release lock: %v", err)
	}

	startup.LogShutdownComplete()
}
