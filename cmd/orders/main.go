package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AndreyBry/HSEGozon/config"
	"github.com/AndreyBry/HSEGozon/internal/api"
	"github.com/AndreyBry/HSEGozon/internal/broker"
	"github.com/AndreyBry/HSEGozon/internal/redisclient"
	"github.com/AndreyBry/HSEGozon/internal/service"
	"github.com/AndreyBry/HSEGozon/internal/store"
	"github.com/AndreyBry/HSEGozon/internal/util"
	"github.com/AndreyBry/HSEGozon/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()

	if err := util.InitLogger("orders-service", cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting orders service")

	tp, err := util.InitTracer("orders-service", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewOrdersStore(cfg.Database.OrdersURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.EnsureSchema(context.Background(), store.OrdersSchema); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}
	log.Println("Database connected")

	var cache *redisclient.Client
	cache, err = redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Printf("Redis unavailable, running without order cache: %v", err)
		cache = nil
	} else {
		defer cache.Close()
		log.Println("Redis connected")
	}

	conn := broker.NewConnection(cfg.Rabbit.URL)
	defer conn.Close()

	publisher := broker.NewPublisher(conn)
	consumer := broker.NewConsumer(conn)

	orderService := service.NewOrderService(db, cache)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	outboxWorker := worker.NewOutboxWorker(db, publisher,
		cfg.Rabbit.PaymentsExchange, cfg.Rabbit.ProcessPaymentKey, cfg.Outbox.OrdersInterval)
	go func() {
		if err := outboxWorker.Start(workerCtx); err != nil && workerCtx.Err() == nil {
			log.Printf("Outbox worker error: %v", err)
		}
	}()

	statusWorker := worker.NewStatusWorker(consumer, orderService, cfg.Rabbit.PaymentStatusQueue)
	go func() {
		if err := statusWorker.Start(workerCtx); err != nil && workerCtx.Err() == nil {
			log.Printf("Status worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewOrdersHandler(orderService)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()

	log.Println("Server exited")
}
