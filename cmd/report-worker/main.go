// cmd/report-worker/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"career-report-workers/internal/assistant"
	"career-report-workers/internal/common/aws"
	"career-report-workers/internal/common/config"
	"career-report-workers/internal/common/database"
	"career-report-workers/internal/common/errors"
	"career-report-workers/internal/common/logger"
	"career-report-workers/internal/common/observability"
	"career-report-workers/internal/generator"
	"career-report-workers/internal/notify"
	"career-report-workers/internal/onet"
	"career-report-workers/internal/principles"
	"career-report-workers/internal/queue"
	"career-report-workers/internal/report"
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
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting report worker...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("report-worker")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init application PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init O*NET PostgreSQL with retry ---
	var onetDB *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		onetDB, err = database.NewPostgres(cfg.Database.Onet)
		if err != nil {
			return err
		}
		return onetDB.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "O*NET PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("onet postgres failed after retries", zap.Error(err))
	}
	defer onetDB.Close()
	zapLog.Info("O*NET PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init External Service Clients ---
	tokens := principles.NewCachedTokenProvider(
		cfg.Principles.AuthURL,
		cfg.Principles.ClientID,
		cfg.Principles.ClientSecret,
		time.Duration(cfg.Principles.Timeout)*time.Millisecond,
		log,
	)
	assessments := principles.NewClient(
		cfg.Principles.BaseURL,
		cfg.Principles.TenantID,
		tokens,
		time.Duration(cfg.Principles.Timeout)*time.Millisecond,
		log,
	)
	assistantClient := assistant.NewClient(
		cfg.Assistant.BaseURL,
		cfg.Assistant.APIKey,
		cfg.Assistant.AssistantID,
		cfg.Assistant.APIVersion,
		time.Duration(cfg.Assistant.Timeout)*time.Millisecond,
		log,
	)
	zapLog.Info("All external service clients initialized")

	// --- Stores and pipeline ---
	occupations := onet.NewProvider(onetDB.DB, log)
	reports := report.NewStore(pg.DB, log)
	students := report.NewStudentStore(pg.DB, log)
	templates := report.NewTemplateStore(pg.DB, log)

	orchestrator := generator.NewOrchestrator(
		assistantClient,
		reports,
		students,
		templates,
		generator.NewBuilder(occupations, assessments, log),
		generator.NewExpander(log),
		cfg.Generation,
		log,
	)

	// --- Optional completion notifier ---
	var notifier queue.Notifier
	if cfg.Notifications.Email.Enabled {
		sesClient, err := aws.NewSESClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			zapLog.Fatal("ses client failed", zap.Error(err))
		}
		notifier = notify.NewEmailNotifier(sesClient, reports, students, cfg.Notifications, log)
		zapLog.Info("Email notifications enabled")
	}

	consumer := queue.NewConsumer(
		redis.Client,
		cfg.Queue,
		orchestrator,
		notifier,
		errors.NewErrorHandler(log),
		obs,
		log,
	)

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if err := pg.Ping(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{"status": "not ready", "error": err.Error()})
				return
			}
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "ready",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening on :8080")
		if err := http.ListenAndServe(":8080", nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Run consumer until shutdown ---
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		if err := consumer.Run(runCtx); err != nil {
			zapLog.Error("consumer stopped with error", zap.Error(err))
		}
		close(done)
	}()
	zapLog.Info("Queue consumer started",
		zap.String("queue", cfg.Queue.Name),
		zap.Int("concurrency", cfg.Queue.Concurrency),
	)

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining consumer...")
	cancel()

	grace := time.Duration(cfg.Queue.ShutdownGraceMs) * time.Millisecond
	if grace <= 0 {
		grace = 30 * time.Second
	}
	select {
	case <-done:
		zapLog.Info("Consumer drained cleanly")
	case <-time.After(grace):
		zapLog.Warn("Shutdown grace period elapsed, exiting with job in flight")
	}

	zapLog.Info("Report worker shut down")
}
