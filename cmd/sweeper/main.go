package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"collabhub/internal/config"
	"collabhub/internal/fanout"
	"collabhub/internal/repository"
	"collabhub/internal/service"
	"collabhub/pkg/db"
	"collabhub/pkg/logger"
	"collabhub/pkg/mq"
	"collabhub/pkg/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New()
	defer log.Sync()

	log.Info("Starting collabhub sweeper...",
		zap.String("db_host", cfg.DB.Host),
		zap.Int("sweep_hour", cfg.Sweep.Hour),
	)

	pool, err := db.NewPool(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer pool.Close()

	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	rdb := redis.NewClient(cfg.Redis)
	defer rdb.Close()

	phaseRepo := repository.NewPhaseRepository(pool, log)
	pitchingRepo := repository.NewPitchingRepository(pool, log)
	notificationRepo := repository.NewNotificationRepository(pool, log)
	userRepo := repository.NewUserRepository(pool, log)

	bus := fanout.NewRabbitBus(publisher)
	mailer := service.NewLogMailer(log)
	notifier := service.NewNotifier(notificationRepo, bus, mailer, rdb, log)
	sweep := service.NewEscalationSweep(phaseRepo, pitchingRepo, userRepo, notifier, bus, nil, log)

	// Notification dispatcher drains the rows the sweep produces.
	dispatcher := service.NewDispatcher(notifier, publisher, log)
	dispatcherCtx, dispatcherCancel := context.WithCancel(context.Background())
	defer dispatcherCancel()
	go dispatcher.Start(dispatcherCtx)

	// Daily sweep loop
	log.Info("Starting escalation sweep loop...", zap.Int("hour", cfg.Sweep.Hour))
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()

	go func() {
		if cfg.Sweep.RunOnStartup {
			runSweep(sweepCtx, sweep, log)
		}

		for {
			// Calculate time until the next scheduled run
			now := time.Now()
			next := time.Date(now.Year(), now.Month(), now.Day(), cfg.Sweep.Hour, 0, 0, 0, now.Location())
			if !next.After(now) {
				next = next.Add(24 * time.Hour)
			}
			delay := next.Sub(now)

			log.Info("Next sweep scheduled",
				zap.Time("at", next),
				zap.Duration("delay", delay),
			)

			select {
			case <-sweepCtx.Done():
				log.Info("Sweep loop stopped")
				return
			case <-time.After(delay):
				runSweep(sweepCtx, sweep, log)
			}
		}
	}()

	// HTTP server (for health checks)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	engine.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c, 1*time.Second)
		defer cancel()

		if err := pool.Ping(ctx); err != nil {
			c.JSON(500, gin.H{"status": "db_not_ready", "error": err.Error()})
			return
		}
		c.JSON(200, gin.H{"status": "ready"})
	})

	// The sweeper carries its own port so it can share a host with the
	// API server.
	port := cfg.Sweep.Port
	if port == "" {
		port = "8081"
	}
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: engine,
	}

	go func() {
		log.Info("Health server starting", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("collabhub sweeper is fully initialized and running")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down collabhub sweeper gracefully...")

	sweepCancel()
	dispatcherCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}

	log.Info("collabhub sweeper shutdown complete")
}

func runSweep(ctx context.Context, sweep *service.EscalationSweep, log *zap.Logger) {
	promoted, err := sweep.Run(ctx)
	if err != nil {
		log.Error("Escalation sweep failed", zap.Error(err))
		return
	}
	log.Info("Escalation sweep completed", zap.Int("promoted", promoted))
}
