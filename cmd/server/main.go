package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"iptv-relay/internal/platform/config"
	"iptv-relay/internal/platform/cors"
	"iptv-relay/internal/platform/logger"
	"iptv-relay/internal/platform/metrics"
	"iptv-relay/internal/relay"
	"iptv-relay/internal/session"

	"github.com/go-chi/chi/v5"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()

	port := config.GetEnv("PORT", "8080")
	maxSessions := config.GetEnvInt("MAX_SESSIONS", 10)
	idleTimeout := config.GetEnvDuration("SESSION_IDLE_TIMEOUT", 10*time.Minute)
	janitorInterval := config.GetEnvDuration("JANITOR_INTERVAL", 1*time.Minute)
	ffmpegPath := config.GetEnv("FFMPEG_PATH", "ffmpeg")
	dataDir := config.GetEnv("DATA_DIR", filepath.Join(os.TempDir(), "iptv-relay"))
	segmentSeconds := config.GetEnvInt("HLS_SEGMENT_SECONDS", 2)
	windowSize := config.GetEnvInt("HLS_WINDOW_SIZE", 6)
	logLevel := config.GetEnv("LOG_LEVEL", "info")
	logFormat := config.GetEnv("LOG_FORMAT", "json")

	log := logger.New(logLevel, logFormat)

	met := metrics.New()

	factory := &session.FFmpegFactory{
		Path:           ffmpegPath,
		SegmentSeconds: segmentSeconds,
		WindowSize:     windowSize,
		Log:            log,
	}
	reg := session.NewRegistry(dataDir, maxSessions, factory, log)
	svc := session.NewService(reg, session.DefaultManifestRetries, session.DefaultManifestDelay)
	h := session.NewHandler(reg, svc, log, met)
	rel := relay.New(log, met)

	janitor := session.NewJanitor(reg, janitorInterval, idleTimeout, log, func(n int) {
		for i := 0; i < n; i++ {
			met.IncSessionsEvicted()
		}
	})
	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	go janitor.Run(janitorCtx)

	r := chi.NewRouter()
	r.Use(cors.Middleware())
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		met.Handler(func() { met.SetActiveSessions(reg.Len()) }).ServeHTTP(w, req)
	})
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h.Routes(r)
	r.Get("/relay", rel.Stream)

	addr := ":" + port
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("server starting",
		"port", port,
		"max_sessions", maxSessions,
		"idle_timeout", idleTimeout.String(),
		"ffmpeg_path", ffmpegPath,
		"log_level", logLevel,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")

	stopJanitor()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	// Tear down every live session so no transcoder process or working
	// directory outlives the service.
	reg.Shutdown()

	log.Info("server stopped")
}
