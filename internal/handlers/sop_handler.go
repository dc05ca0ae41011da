package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/adrplatform/abend-tracker/internal/sop"
	"github.com/adrplatform/abend-tracker/internal/validation"
)

// RegisterSOPRoutes registers the SOP document API under the UI prefix.
func RegisterSOPRoutes(r *gin.Engine, cfg HandlerConfig) {
	v := validation.New()
	store := sop.NewStore(cfg.DynamoDBClient, cfg.SOPTable, cfg.Logger)
	svc := sop.NewService(store, cfg.Logger)

	uiAPI := r.Group(UIAPIPrefix)
	uiAPI.GET("/sops", listSOPsHandler(svc, v, cfg.Logger))
	uiAPI.POST("/sops", createSOPHandler(svc, v, cfg.Logger))
	uiAPI.GET("/sops/:sopID", sopDetailHandler(svc, cfg.Logger))
	uiAPI.PATCH("/sops/:sopID", updateSOPHandler(svc, v, cfg.Logger))
	uiAPI.DELETE("/sops/:sopID", deleteSOPHandler(svc, cfg.Logger))
}

func listSOPsHandler(svc *sop.Service, v *validatorv10.Validate, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q validation.ListSOPsQuery
		if err := validation.BindQueryAndValidate(c, &q, v); err != nil {
			return
		}

		result, err := svc.List(c.Request.Context(), sop.ListParams{
			JobName:   q.JobName,
			AbendType: q.AbendType,
			Search:    q.Search,
			Limit:     q.Limit,
			Cursor:    q.Cursor,
		})
		if err != nil {
			respondInternalError(c, logger, "failed to list sops", err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func createSOPHandler(svc *sop.Service, v *validatorv10.Validate, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req validation.CreateSOPRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		view, err := svc.Create(c.Request.Context(), sop.CreateInput{
			SOPName:               req.SOPName,
			JobName:               req.JobName,
			AbendType:             req.AbendType,
			SourceDocumentURL:     req.SourceDocumentURL,
			ProcessedDocumentURLs: req.ProcessedDocumentURLs,
			CreatedBy:             req.CreatedBy,
		})
		if err != nil {
			respondInternalError(c, logger, "failed to create sop", err)
			return
		}
		c.JSON(http.StatusCreated, view)
	}
}

func sopDetailHandler(svc *sop.Service, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		view, err := svc.Get(c.Request.Context(), c.Param("sopID"))
		if err != nil {
			respondInternalError(c, logger, "failed to load sop", err)
			return
		}
		if view == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "sop_not_found"})
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

func updateSOPHandler(svc *sop.Service, v *validatorv10.Validate, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req validation.UpdateSOPRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		sopID := c.Param("sopID")
		found, err := svc.UpdateFields(c.Request.Context(), sopID, req.Updates, req.UpdatedBy)
		if err != nil {
			respondInternalError(c, logger, "failed to update sop", err)
			return
		}
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": "sop_not_found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"sopID":   sopID,
			"message": "SOP record updated successfully",
		})
	}
}

func deleteSOPHandler(svc *sop.Service, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := svc.Delete(c.Request.Context(), c.Param("sopID"))
		if errors.Is(err, sop.ErrNotImplemented) {
			c.JSON(http.StatusNotImplemented, gin.H{"error": "sop_delete_not_supported"})
			return
		}
		if err != nil {
			respondInternalError(c, logger, "failed to delete sop", err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
