package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/openclinic/ehr-shell/internal/config"
	"github.com/openclinic/ehr-shell/internal/observability/metrics"
	"github.com/openclinic/ehr-shell/internal/shell"
	"github.com/openclinic/ehr-shell/pkg/logging"
)

func main() {
	// Load .env if present
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel).With("app", "ehr-shell")
	logger.Info("starting ehr-shell",
		"env", cfg.Env,
		"backend", cfg.EHRBaseURL,
	)

	redisOpts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Error("redis unreachable", "addr", cfg.RedisAddr, "error", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	nav := metrics.NewNavigationMetrics(reg)

	sessionID := uuid.NewString()
	sh := shell.New(cfg, rdb, sessionID, shell.Hosts{},
		shell.WithLogger(logger),
		shell.WithMetrics(nav),
	)

	bootCtx, cancelBoot := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelBoot()
	if err := sh.Boot(bootCtx); err != nil {
		logger.Error("boot failed", "error", err)
		os.Exit(1)
	}
	logger.Info("shell booted", "session_id", sessionID, "section", sh.Views().Current())

	var metricsSrv *http.Server
	if cfg.MetricsPort != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		metricsSrv = &http.Server{
			Addr:         ":" + cfg.MetricsPort,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("metrics listening", "addr", metricsSrv.Addr)
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server error", "error", err)
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down...")
	if metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logger.Error("metrics server forced to shutdown", "error", err)
		}
	}
	logger.Info("shell stopped")
}
