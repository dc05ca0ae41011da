package main

import (
	"context"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/adrplatform/abend-tracker/internal/awsclient"
	"github.com/adrplatform/abend-tracker/internal/config"
	"github.com/adrplatform/abend-tracker/internal/observability"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	clients, err := awsclient.NewClients(ctx)
	if err != nil {
		logger.Fatal("failed to init aws clients", zap.Error(err))
	}

	p := NewProcessor(clients.DynamoDB, cfg.AbendTable, logger)

	// RUN_LOCAL feeds one simulated event through the handler for development.
	if cfg.RunLocal {
		body := os.Getenv("LOCAL_SQS_BODY")
		if body == "" {
			body = `{"trackingID":"ABEND_LOCAL_01","approvalStatus":"APPROVED","approvedAt":"2025-01-01T00:00:00Z"}`
		}
		event := events.SQSEvent{Records: []events.SQSMessage{{Body: body}}}
		if err := p.Handle(ctx, event); err != nil {
			logger.Fatal("local handler error", zap.Error(err))
		}
		return
	}

	lambda.Start(p.Handle)
}
