package main

import (
	"context"
	"log"

	"goamr/internal"
	"goamr/internal/config"
	"goamr/internal/container"
	"goamr/ui"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	level, _ := internal.ParseLogLevel(appConfig.LogLevel)
	logger := internal.NewLogger(level)

	appContainer, err := container.New(context.Background(), appConfig, logger)
	if err != nil {
		log.Fatalf("Failed to create application container: %v", err)
	}
	defer appContainer.Shutdown()

	app, err := ui.NewApp(appContainer.Reports, ui.Config{Port: appConfig.Server.UIPort}, logger)
	if err != nil {
		log.Fatal("Failed to create UI app:", err)
	}

	log.Printf("Starting report viewer on http://localhost:%s", appConfig.Server.UIPort)
	log.Fatal(app.Start())
}
