package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"travel-assistant/internal/app"
	"travel-assistant/internal/config"
	"travel-assistant/internal/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	a, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to initialize application", "err", err)
		os.Exit(1)
	}

	lambda.Start(a.Handler.HandleAPIGateway)
}
