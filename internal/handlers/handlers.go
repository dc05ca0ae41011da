package handlers

import (
	"net/http"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/adrplatform/abend-tracker/internal/awsclient"
)

// API route prefixes. Internal carries machine callers (pipeline stages,
// audit writers); UI carries the operator console.
const (
	InternalAPIPrefix = "/internal-api/v1alpha1"
	UIAPIPrefix       = "/ui-api/v1alpha1"
)

// HandlerConfig groups the dependencies the API handlers need.
type HandlerConfig struct {
	DynamoDBClient      awsclient.DynamoDBAPI
	S3Client            awsclient.S3API
	SQSClient           awsclient.SQSAPI
	AbendTable          string
	SOPTable            string
	RemediationQueueURL string
	Logger              *zap.Logger
}

// RegisterRoutes wires all API routes onto the router.
func RegisterRoutes(r *gin.Engine, cfg HandlerConfig) {
	RegisterHealthRoutes(r, cfg)
	RegisterAbendRoutes(r, cfg)
	RegisterSOPRoutes(r, cfg)
}

// RegisterHealthRoutes registers the liveness and readiness probes. Readiness
// checks that the ABEND table is reachable.
func RegisterHealthRoutes(r *gin.Engine, cfg HandlerConfig) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/readyz", func(c *gin.Context) {
		_, err := cfg.DynamoDBClient.DescribeTable(c.Request.Context(), &dynamodb.DescribeTableInput{
			TableName: &cfg.AbendTable,
		})
		if err != nil {
			cfg.Logger.Warn("readiness check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
}

func respondInternalError(c *gin.Context, logger *zap.Logger, msg string, err error) {
	logger.Error(msg, zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
}
