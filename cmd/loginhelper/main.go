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

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/nexconsult/mtr-api/internal/api/middleware"
	"github.com/nexconsult/mtr-api/internal/browserlogin"
	"github.com/nexconsult/mtr-api/internal/config"
	"github.com/nexconsult/mtr-api/internal/logger"
	"github.com/sirupsen/logrus"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logger.New(cfg.Log.Level, cfg.Log.Format)
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	service := browserlogin.NewService(cfg, logger)

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recovery(logger))
	browserlogin.NewHandler(service, logger).Register(router)

	// a login can take the whole browser budget
	writeTimeout := cfg.Browser.LoginTimeout + 10*time.Second

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Automation.HelperPort),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"port":     cfg.Automation.HelperPort,
			"flows":    service.Flows(),
			"headless": cfg.Browser.Headless,
		}).Info("Login helper starting...")

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start login helper: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down login helper...")

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Errorf("Login helper forced to shutdown: %v", err)
	}

	logger.Info("Login helper exited")
}
