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
	"github.com/AndreyBry/HSEGozon/internal/util"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()

	if err := util.InitLogger("api-gateway", cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting API gateway")

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	handler, err := api.NewGatewayHandler(cfg.Gateway.OrdersURL, cfg.Gateway.PaymentsURL)
	if err != nil {
		log.Fatalf("Failed to create gateway: %v", err)
	}

	router := gin.New()
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

	log.Println("Server exited")
}
