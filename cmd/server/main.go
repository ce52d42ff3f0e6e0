package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"qr-auth-server/configs"
	httpEngine "qr-auth-server/internal/app/http"
	"qr-auth-server/internal/identity"
	"qr-auth-server/internal/logics"
	"qr-auth-server/internal/repositories"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to configs.yaml")
	flag.Parse()

	// 1. Load configuration and initialize the logger
	configs.Init(configPath)
	logger := configs.Logger
	defer logger.Sync()

	logger.Info("Starting QR auth server...",
		zap.String("service", configs.Configs.Service.ServiceName),
	)

	// 2. Connect Postgres and Redis
	repositories.Init()

	// 3. Build the process-wide identity authority client. A missing
	//    configuration must fail here, not on the first request.
	authority, err := identity.Get()
	if err != nil {
		logger.Fatal("Identity authority client initialization failed", zap.Error(err))
	}
	defer authority.Close()

	// 4. Wire the services
	logics.Init(authority)

	// 5. HTTP server
	server := httpEngine.NewServer()
	if server == nil {
		logger.Fatal("HTTP server initialization failed")
	}

	go func() {
		if err := server.Start(); err != nil {
			logger.Error("HTTP server stopped", zap.Error(err))
		}
	}()

	// 6. Wait for a termination signal and shut down gracefully
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}

	logger.Info("Server stopped")
}
