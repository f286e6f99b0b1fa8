package main

import (
	"bufio"
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"taskpulse/internal/cache"
	"taskpulse/internal/config"
	"taskpulse/internal/controller"
	"taskpulse/internal/database"
	"taskpulse/internal/notify"
	"taskpulse/internal/queue"
	"taskpulse/internal/realtime"
	"taskpulse/internal/repository"
	"taskpulse/internal/routes"
	"taskpulse/internal/service"
	"taskpulse/internal/worker"
	"taskpulse/pkg/logger"
)

func main() {
	loadEnvFile(".env")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cfg := config.Get()

	db := database.InitDB(ctx)
	if db == nil {
		logger.Error(ctx, "Database not available; exiting")
		os.Exit(1)
	}
	if err := database.MigrateOrCreateSchema(ctx); err != nil {
		logger.Error(ctx, "Schema migration failed", "error", err)
		os.Exit(1)
	}

	// Pre-warm Kafka producer and ensure the audit topic exists
	queue.Producer(ctx)
	queue.EnsureTopic(ctx)

	// Start audit worker in background (consumes Kafka, appends to audit_log)
	go worker.Run(ctx)

	// Delivery channel: Redis pub/sub fan-out when Redis is up, in-process
	// hub otherwise. The hub always serves the SSE connections.
	hub := realtime.NewHub()
	var channel realtime.Channel
	if rdb := cache.Client(ctx); rdb != nil {
		channel = realtime.NewRedisChannel(rdb)
		go realtime.RunBridge(ctx, rdb, hub)
	} else {
		logger.Warn(ctx, "Redis unavailable; realtime limited to this instance")
		channel = hub
	}

	notifier := notify.NewEngine(
		repository.NewNotifications(db),
		channel,
		cfg.NotificationRetention,
		time.Duration(cfg.MissedWindowDays)*24*time.Hour,
	)
	taskSvc := service.NewTasks(repository.NewTasks(db), notifier, queue.AuditSink{}, channel, cache.InvalidateTasks)
	userSvc := service.NewUsers(repository.NewUsers(db), cfg.BcryptCost)

	router := routes.Router(routes.Controllers{
		Auth:          controller.NewAuth(userSvc),
		Users:         controller.NewUsers(userSvc),
		Tasks:         controller.NewTasks(taskSvc),
		Notifications: controller.NewNotifications(notifier),
		Events:        controller.NewEvents(hub, notifier),
		Audit:         controller.NewAudit(repository.NewAudit(db)),
	})

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // SSE connections stay open
		IdleTimeout:  120 * time.Second,
	}
	go func() {
		logger.Info(ctx, "HTTP server listening", "port", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "Server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info(ctx, "Shutting down server")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Server shutdown error", "error", err)
	}
	logger.Info(ctx, "Server stopped")
}

// loadEnvFile reads a .env file and sets env vars (only if not already set).
func loadEnvFile(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.Index(line, "=")
		if idx <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		val := strings.TrimSpace(line[idx+1:])
		if strings.HasPrefix(val, `"`) && strings.HasSuffix(val, `"`) {
			val = strings.Trim(val, `"`)
		} else if strings.HasPrefix(val, "'") && strings.HasSuffix(val, "'") {
			val = strings.Trim(val, "'")
		}
		if key != "" && os.Getenv(key) == "" {
			_ = os.Setenv(key, val)
		}
	}
}
