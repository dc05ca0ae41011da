package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/adrplatform/abend-tracker/internal/abend"
	"github.com/adrplatform/abend-tracker/internal/awsclient"
	"github.com/adrplatform/abend-tracker/internal/joblogs"
	"github.com/adrplatform/abend-tracker/internal/validation"
)

// RegisterAbendRoutes registers the ABEND lifecycle API under both the
// internal and UI prefixes, and the audit-log API under the internal prefix.
func RegisterAbendRoutes(r *gin.Engine, cfg HandlerConfig) {
	v := validation.New()
	store := abend.NewStore(cfg.DynamoDBClient, cfg.AbendTable, cfg.Logger)
	publisher := awsclient.NewPublisher(cfg.SQSClient, cfg.RemediationQueueURL)
	svc := abend.NewService(store, publisher, cfg.Logger)
	fetcher := joblogs.NewFetcher(cfg.S3Client, cfg.Logger)

	internalAPI := r.Group(InternalAPIPrefix)
	uiAPI := r.Group(UIAPIPrefix)

	for _, g := range []*gin.RouterGroup{internalAPI, uiAPI} {
		g.GET("/abends", listAbendsHandler(svc, v, cfg.Logger))
		g.POST("/abends", createAbendHandler(svc, v, cfg.Logger))
		g.GET("/abends/filters/available", func(c *gin.Context) {
			c.JSON(http.StatusOK, svc.AvailableFilters())
		})
		g.GET("/abends/stats/today", todayStatsHandler(svc, cfg.Logger))
		g.GET("/abends/jobs/:jobName/history", jobTrendsHandler(svc, cfg.Logger))
		g.GET("/abends/:trackingID", abendDetailHandler(svc, cfg.Logger))
		g.PATCH("/abends/:trackingID", updateAbendHandler(svc, v, cfg.Logger))
		g.PUT("/abends/:trackingID/ai-remediation-approval", remediationApprovalHandler(svc, v, cfg.Logger))
		g.GET("/abends/:trackingID/logs", jobLogsHandler(svc, fetcher, cfg.Logger))
	}

	internalAPI.POST("/audit-logs", createAuditLogHandler(svc, v, cfg.Logger))
	internalAPI.GET("/audit-logs/:trackingID", listAuditLogsHandler(svc, v, cfg.Logger))
}

func listAbendsHandler(svc *abend.Service, v *validatorv10.Validate, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q validation.ListAbendsQuery
		if err := validation.BindQueryAndValidate(c, &q, v); err != nil {
			return
		}

		params := abend.ListParams{
			Filters: abend.Filters{
				DomainArea: q.DomainArea,
				ADRStatus:  q.ADRStatus,
				Severity:   q.Severity,
				Search:     q.Search,
			},
			Limit:  q.Limit,
			Cursor: q.Cursor,
		}

		if q.AbendedAt != "" {
			day, err := validation.ParseDate(q.AbendedAt)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_date"})
				return
			}
			params.StartDate = &day
			params.EndDate = &day
		} else {
			if q.StartDate != "" {
				day, err := validation.ParseDate(q.StartDate)
				if err != nil {
					c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_date"})
					return
				}
				params.StartDate = &day
			}
			if q.EndDate != "" {
				day, err := validation.ParseDate(q.EndDate)
				if err != nil {
					c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_date"})
					return
				}
				params.EndDate = &day
			}
		}

		result, err := svc.List(c.Request.Context(), params)
		if err != nil {
			if errors.Is(err, abend.ErrInvalidDateRange) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_date_range"})
				return
			}
			respondInternalError(c, logger, "failed to list abends", err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func createAbendHandler(svc *abend.Service, v *validatorv10.Validate, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req validation.CreateAbendRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		abendedAt, err := validation.ParseTimestamp(req.AbendedAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_timestamp", "msg": err.Error()})
			return
		}

		result, err := svc.Create(c.Request.Context(), abend.CreateInput{
			JobName:         req.JobName,
			AbendedAt:       abendedAt,
			Severity:        req.Severity,
			ServiceNowGroup: req.ServiceNowGroup,
			IncidentNumber:  req.IncidentID,
			OrderID:         req.OrderID,
		})
		if err != nil {
			if errors.Is(err, abend.ErrAlreadyExists) {
				c.JSON(http.StatusConflict, gin.H{"error": "abend_already_exists"})
				return
			}
			respondInternalError(c, logger, "failed to create abend", err)
			return
		}
		c.JSON(http.StatusCreated, result)
	}
}

func abendDetailHandler(svc *abend.Service, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		detail, err := svc.Detail(c.Request.Context(), c.Param("trackingID"))
		if err != nil {
			respondInternalError(c, logger, "failed to load abend", err)
			return
		}
		if detail == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "abend_not_found"})
			return
		}
		c.JSON(http.StatusOK, detail)
	}
}

func updateAbendHandler(svc *abend.Service, v *validatorv10.Validate, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req validation.UpdateAbendRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		trackingID := c.Param("trackingID")
		found, err := svc.UpdateFields(c.Request.Context(), trackingID, req.Updates, req.UpdatedBy)
		if err != nil {
			respondInternalError(c, logger, "failed to update abend", err)
			return
		}
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": "abend_not_found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"trackingID": trackingID,
			"message":    "ABEND record updated successfully",
		})
	}
}

func remediationApprovalHandler(svc *abend.Service, v *validatorv10.Validate, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req validation.ApprovalRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		result, err := svc.UpdateRemediationApproval(c.Request.Context(), c.Param("trackingID"), abend.ApprovalInput{
			Status:   req.ApprovalStatus,
			Comments: req.Comments,
		})
		if err != nil {
			respondInternalError(c, logger, "failed to update remediation approval", err)
			return
		}
		if result == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "abend_not_found"})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func listAuditLogsHandler(svc *abend.Service, v *validatorv10.Validate, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q validation.ListAuditLogsQuery
		if err := validation.BindQueryAndValidate(c, &q, v); err != nil {
			return
		}

		logs, err := svc.AuditLogs(c.Request.Context(), c.Param("trackingID"), q.Level, q.ADRStatus, q.Limit)
		if err != nil {
			respondInternalError(c, logger, "failed to list audit logs", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": logs})
	}
}

func createAuditLogHandler(svc *abend.Service, v *validatorv10.Validate, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req validation.CreateAuditLogRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		view, err := svc.CreateAuditLog(c.Request.Context(), abend.AuditLogInput{
			TrackingID:  req.TrackingID,
			Level:       req.Level,
			ADRStatus:   req.ADRStatus,
			Message:     req.Message,
			Description: req.Description,
			CreatedBy:   req.CreatedBy,
		})
		if err != nil {
			respondInternalError(c, logger, "failed to create audit log", err)
			return
		}
		c.JSON(http.StatusCreated, view)
	}
}

func todayStatsHandler(svc *abend.Service, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := svc.TodayStats(c.Request.Context())
		if err != nil {
			respondInternalError(c, logger, "failed to compute today stats", err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

func jobTrendsHandler(svc *abend.Service, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		trends, err := svc.JobHistoryTrends(c.Request.Context(), c.Param("jobName"))
		if err != nil {
			respondInternalError(c, logger, "failed to compute job trends", err)
			return
		}
		c.JSON(http.StatusOK, trends)
	}
}

func jobLogsHandler(svc *abend.Service, fetcher *joblogs.Fetcher, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		trackingID := c.Param("trackingID")

		detail, err := svc.Detail(c.Request.Context(), trackingID)
		if err != nil {
			respondInternalError(c, logger, "failed to load abend", err)
			return
		}
		if detail == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "abend_not_found"})
			return
		}

		uri := logPathFromMetadata(detail.KnowledgeBaseMetadata)
		if uri == "" {
			uri = fmt.Sprintf("s3://abend-logs/%s/job.log", trackingID)
		}

		content, err := fetcher.Fetch(c.Request.Context(), uri)
		if err != nil {
			logger.Warn("failed to fetch job logs",
				zap.String("trackingID", trackingID),
				zap.String("uri", uri),
				zap.Error(err))
			c.JSON(http.StatusNotFound, gin.H{"error": "job_logs_not_found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"trackingID":   trackingID,
			"content":      content.Content,
			"size":         content.Size,
			"lastModified": content.LastModified,
		})
	}
}

// logPathFromMetadata pulls the extracted log location out of the knowledge
// base metadata when log extraction has recorded one.
func logPathFromMetadata(metadata map[string]interface{}) string {
	if metadata == nil {
		return ""
	}
	for _, key := range []string{"s3_log_path", "log_s3_uri"} {
		if value, ok := metadata[key].(string); ok && value != "" {
			return value
		}
	}
	return ""
}
