package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"degpredict/internal/config"
	"degpredict/internal/container"
	"degpredict/ui"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Load application configuration
	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	gin.SetMode(appConfig.Server.GinMode)

	// Create dependency injection container
	appContainer, err := container.New(appConfig)
	if err != nil {
		log.Fatalf("Failed to create application container: %v", err)
	}
	defer appContainer.Shutdown(context.Background())

	if err := appContainer.Init(context.Background()); err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	// Initialize web server
	app, err := ui.NewApp(ui.Config{
		Runs:     appContainer.Runs,
		Store:    appContainer.Store,
		Gatherer: appContainer.Registry,
	})
	if err != nil {
		log.Fatalf("Failed to initialize server: %v", err)
	}

	if err := app.Start(appConfig.Server.Port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
