package main

import (
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/adrplatform/abend-tracker/internal/awsclient"
	"github.com/adrplatform/abend-tracker/internal/config"
	"github.com/adrplatform/abend-tracker/internal/handlers"
	"github.com/adrplatform/abend-tracker/internal/middleware"
	"github.com/adrplatform/abend-tracker/internal/observability"
)

func setupRouter(cfg *config.Config, clients *awsclient.Clients, authToken string, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Monitoring(awsclient.NewMetricsEmitter(clients.CloudWatch, cfg.MetricsNamespace), logger))
	r.Use(middleware.BearerAuth(authToken))

	handlers.RegisterRoutes(r, handlers.HandlerConfig{
		DynamoDBClient:      clients.DynamoDB,
		S3Client:            clients.S3,
		SQSClient:           clients.SQS,
		AbendTable:          cfg.AbendTable,
		SOPTable:            cfg.SOPTable,
		RemediationQueueURL: cfg.RemediationQueueURL,
		Logger:              logger,
	})

	return r
}

// resolveAuthToken prefers the Secrets Manager value and falls back to the
// AUTH_TOKEN environment variable when the secret is unset or unreadable.
func resolveAuthToken(ctx context.Context, cfg *config.Config, clients *awsclient.Clients, logger *zap.Logger) string {
	if cfg.AuthTokenSecretName == "" {
		return cfg.AuthToken
	}

	token, err := awsclient.FetchSecretString(ctx, clients.Secrets, cfg.AuthTokenSecretName, "")
	if err != nil {
		logger.Warn("failed to fetch auth token secret, falling back to environment",
			zap.String("secret", cfg.AuthTokenSecretName),
			zap.Error(err))
		return cfg.AuthToken
	}
	return token
}

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

	authToken := resolveAuthToken(ctx, cfg, clients, logger)
	if authToken == "" {
		logger.Warn("no auth token configured, bearer auth is disabled")
	}

	r := setupRouter(cfg, clients, authToken, logger)

	if cfg.RunLocal {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("running local server", zap.String("addr", addr))
		if err := r.Run(addr); err != nil {
			logger.Fatal("failed to run local server", zap.Error(err))
		}
		return
	}

	adapter := ginadapter.New(r)
	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (interface{}, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
