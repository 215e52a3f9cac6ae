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

	"github.com/joho/godotenv"

	"sponsor-backend/internal/app"
	"sponsor-backend/internal/config"
	"sponsor-backend/internal/db"
	"sponsor-backend/internal/router"
)

func main() {
	// .env is optional, real deployments inject the environment directly
	if err := godotenv.Load(); err == nil {
		log.Println("🔧 Loaded environment from .env")
	}

	configPath := os.Getenv("CONFIG_PATH")
	if err := config.LoadConfig(configPath); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db.InitDB()

	container, err := app.InitializeContainer()
	if err != nil {
		log.Fatalf("Failed to initialize service container: %v", err)
	}
	defer container.Shutdown()

	r := router.SetupRouter(container.Handlers)

	addr := fmt.Sprintf("%s:%d", config.AppConfig.Server.Host, config.AppConfig.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Printf("🚀 Sponsor backend listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("🛑 Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("⚠️ Forced shutdown: %v", err)
	}
	log.Println("👋 Server stopped")
}
