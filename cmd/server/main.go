package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"collabhub/internal/config"
	"collabhub/internal/fanout"
	"collabhub/internal/handler"
	"collabhub/internal/httpserver"
	"collabhub/internal/payment"
	"collabhub/internal/repository"
	"collabhub/internal/service"
	"collabhub/internal/util"
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

	log.Info("Starting collabhub server...",
		zap.String("db_host", cfg.DB.Host),
		zap.Int("db_port", cfg.DB.Port),
		zap.String("mq_url", cfg.MQ.URL),
	)

	// DB
	pool, err := db.NewPool(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer pool.Close()

	// MQ Publisher
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	// Redis
	rdb := redis.NewClient(cfg.Redis)
	defer rdb.Close()

	// Repositories
	projectRepo := repository.NewProjectRepository(pool, log)
	phaseRepo := repository.NewPhaseRepository(pool, log)
	categoryRepo := repository.NewCategoryRepository(pool, log)
	costRepo := repository.NewCostRepository(pool, log)
	pitchingRepo := repository.NewPitchingRepository(pool, log)
	notificationRepo := repository.NewNotificationRepository(pool, log)
	userRepo := repository.NewUserRepository(pool, log)

	// Services
	bus := fanout.NewRabbitBus(publisher)
	mailer := service.NewLogMailer(log)
	notifier := service.NewNotifier(notificationRepo, bus, mailer, rdb, log)

	orchestrator := service.NewOrchestrator(service.OrchestratorDeps{
		Projects:      projectRepo,
		Phases:        phaseRepo,
		Categories:    categoryRepo,
		Costs:         costRepo,
		Pitchings:     pitchingRepo,
		Notifications: notificationRepo,
		Users:         userRepo,
		Bus:           bus,
		Notifier:      notifier,
		Mailer:        mailer,
		HashPassword:  util.HashPassword,
	}, log)

	verifiers := make([]*payment.Verifier, 0, len(cfg.Gateways))
	for _, gw := range cfg.Gateways {
		v, err := payment.NewVerifier(gw.Name, gw.Secret)
		if err != nil {
			log.Fatal("Failed to init payment verifier",
				zap.String("gateway", gw.Name), zap.Error(err))
		}
		verifiers = append(verifiers, v)
	}
	guard := service.NewRedisReplayGuard(rdb)
	adapter := service.NewPaymentAdapter(
		verifiers, phaseRepo, categoryRepo, pitchingRepo, userRepo,
		notifier, bus, guard, log)

	// Notification dispatcher
	dispatcher := service.NewDispatcher(notifier, publisher, log)
	dispatcherCtx, dispatcherCancel := context.WithCancel(context.Background())
	defer dispatcherCancel()
	go dispatcher.Start(dispatcherCtx)

	// Handlers
	phaseHandler := handler.NewPhaseHandler(orchestrator, log)
	categoryHandler := handler.NewCategoryHandler(orchestrator, log)
	costHandler := handler.NewCostHandler(orchestrator, log)
	pitchingHandler := handler.NewPitchingHandler(orchestrator, log)
	notificationHandler := handler.NewNotificationHandler(notifier)
	paymentHandler := handler.NewPaymentHandler(adapter, log)

	router := httpserver.NewRouter(
		phaseHandler, categoryHandler, costHandler, pitchingHandler,
		notificationHandler, paymentHandler,
		cfg.JWT.Secret, pool, publisher, log)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router.Engine,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("collabhub server is fully initialized and running")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down collabhub server gracefully...")

	dispatcherCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	log.Info("collabhub server shutdown complete")
}
