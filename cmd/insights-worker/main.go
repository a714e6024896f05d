package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"crm-insights/internal/app"
	"crm-insights/internal/common/aws"
	"crm-insights/internal/common/camunda"
	"crm-insights/internal/common/config"
	"crm-insights/internal/common/logger"

	pbq "crm-insights/internal/workers/ai-conversation/parse-business-query"
	scq "crm-insights/internal/workers/ai-conversation/smart-chat-query"
	rbs "crm-insights/internal/workers/analytics/revenue-by-segment"
	dig "crm-insights/internal/workers/communication/insights-digest"
	ccr "crm-insights/internal/workers/crm/customer-create"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting insights worker...", zap.String("version", cfg.App.Version))

	if err := cfg.RequireBroker(); err != nil {
		zapLog.Fatal("invalid config", zap.Error(err))
	}

	ctx := context.Background()

	deps, err := app.Build(ctx, cfg, log, prometheus.DefaultRegisterer, func(name string, op func() error) error {
		return retryWithBackoff(op, 15, 2*time.Second, zapLog, name)
	})
	if err != nil {
		zapLog.Fatal("startup failed", zap.Error(err))
	}
	defer deps.Close()
	zapLog.Info("Backing stores connected",
		zap.Bool("redis", deps.Redis != nil),
		zap.String("auditSink", cfg.Audit.Sink),
		zap.String("rateLimitBackend", cfg.RateLimit.Backend),
	)

	zeebe, err := camunda.Connect(ctx, camunda.ConfigFrom(cfg.Camunda), log)
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	pool := camunda.NewPool(zeebe.GetClient(), log)

	// --- Register workers ---
	pbqConfig, err := pbq.LoadConfig(cfg)
	if err != nil {
		zapLog.Fatal("failed to load parse-business-query config", zap.Error(err))
	}
	pbqHandler := pbq.NewHandler(pbqConfig, &parseBusinessQueryLoggerAdapter{log})
	pool.Start(pbq.TaskType, config.GetWorkerConfig(cfg, pbq.TaskType), pbqHandler.Handle)

	scqHandler, err := scq.NewHandler(scq.HandlerOptions{
		AppConfig: cfg,
		Engine:    deps.Engine,
		Limiter:   deps.Limiter,
		Logger:    log,
	})
	if err != nil {
		zapLog.Fatal("failed to create smart-chat-query handler", zap.Error(err))
	}
	pool.Start(scq.TaskType, config.GetWorkerConfig(cfg, scq.TaskType), scqHandler.Handle)

	rbsOpts := rbs.HandlerOptions{
		AppConfig: cfg,
		Source:    deps.Store,
		Logger:    log,
	}
	if deps.SegmentCache != nil {
		rbsOpts.Cache = deps.SegmentCache
	}
	rbsHandler, err := rbs.NewHandler(rbsOpts)
	if err != nil {
		zapLog.Fatal("failed to create revenue-by-segment handler", zap.Error(err))
	}
	pool.Start(rbs.TaskType, config.GetWorkerConfig(cfg, rbs.TaskType), rbsHandler.Handle)

	ccrHandler, err := ccr.NewHandler(ccr.HandlerOptions{
		AppConfig: cfg,
		Writer:    deps.Store,
		Limiter:   deps.Limiter,
		Audit:     deps.Audit,
		Logger:    log,
	})
	if err != nil {
		zapLog.Fatal("failed to create customer-create handler", zap.Error(err))
	}
	pool.Start(ccr.TaskType, config.GetWorkerConfig(cfg, ccr.TaskType), ccrHandler.Handle)

	digOpts := dig.HandlerOptions{
		AppConfig: cfg,
		Engine:    deps.Engine,
		Limiter:   deps.Limiter,
		Logger:    log,
	}
	if cfg.Notifications.Email.Enabled {
		mailer, err := aws.NewSESClient(ctx, cfg.Notifications.AWS.Region, cfg.Notifications.Email.FromEmail)
		if err != nil {
			zapLog.Fatal("failed to create SES client", zap.Error(err))
		}
		digOpts.Mailer = mailer
	}
	if cfg.Notifications.SMS.Enabled {
		sms, err := aws.NewSNSClient(ctx, cfg.Notifications.AWS.Region, cfg.Notifications.SMS.SenderID)
		if err != nil {
			zapLog.Fatal("failed to create SNS client", zap.Error(err))
		}
		digOpts.SMS = sms
	}
	digHandler, err := dig.NewHandler(digOpts)
	if err != nil {
		zapLog.Fatal("failed to create insights-digest handler", zap.Error(err))
	}
	pool.Start(dig.TaskType, config.GetWorkerConfig(cfg, dig.TaskType), digHandler.Handle)

	zapLog.Info("Workers registered", zap.Strings("taskTypes", pool.Running()))

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		if err := deps.Postgres.Ping(checkCtx); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "postgres": err.Error()})
			return
		}
		if err := zeebe.HealthCheck(checkCtx); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "zeebe": err.Error()})
			return
		}
		writeStatus(w, http.StatusOK, map[string]string{
			"status": "ready",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Insights worker stopped gracefully")
}

func writeStatus(w http.ResponseWriter, code int, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

// parseBusinessQueryLoggerAdapter satisfies the worker's own Logger interface.
type parseBusinessQueryLoggerAdapter struct {
	logger.Logger
}

func (a *parseBusinessQueryLoggerAdapter) With(fields map[string]interface{}) pbq.Logger {
	return &parseBusinessQueryLoggerAdapter{a.Logger.With(fields)}
}
