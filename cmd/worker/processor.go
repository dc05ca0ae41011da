package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/adrplatform/abend-tracker/internal/abend"
	"github.com/adrplatform/abend-tracker/internal/awsclient"
)

const workerActor = "remediation-worker"

// remediationMessage is the payload the API publishes when an approval
// decision is recorded.
type remediationMessage struct {
	TrackingID     string `json:"trackingID"`
	ApprovalStatus string `json:"approvalStatus"`
	ApprovedAt     string `json:"approvedAt"`
}

// Processor consumes remediation approval events and advances the matching
// ABEND's lifecycle status.
type Processor struct {
	svc    *abend.Service
	logger *zap.Logger
}

func NewProcessor(db awsclient.DynamoDBAPI, abendTable string, logger *zap.Logger) *Processor {
	store := abend.NewStore(db, abendTable, logger)
	return &Processor{
		svc:    abend.NewService(store, nil, logger),
		logger: logger,
	}
}

// Handle processes an SQS batch. A failed message fails the batch so the
// runtime retries it; repeated failures land in the DLQ.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) error {
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			p.logger.Error("failed to process remediation event",
				zap.String("messageId", rec.MessageId),
				zap.Error(err))
			return err
		}
	}
	return nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	var msg remediationMessage
	if err := json.Unmarshal([]byte(rec.Body), &msg); err != nil {
		return fmt.Errorf("invalid message body: %w", err)
	}

	var nextStatus string
	switch msg.ApprovalStatus {
	case abend.ApprovalApproved:
		nextStatus = abend.StatusAutomatedRemediationInProgress
	case abend.ApprovalRejected:
		nextStatus = abend.StatusManualInterventionRequired
	default:
		return fmt.Errorf("unknown approval status %q for %s", msg.ApprovalStatus, msg.TrackingID)
	}

	found, err := p.svc.UpdateFields(ctx, msg.TrackingID, map[string]interface{}{
		"adr_status": nextStatus,
	}, workerActor)
	if err != nil {
		return fmt.Errorf("failed to advance status for %s: %w", msg.TrackingID, err)
	}
	if !found {
		return fmt.Errorf("abend record not found: %s", msg.TrackingID)
	}

	// Audit trail is best-effort: the status transition already happened.
	if _, err := p.svc.CreateAuditLog(ctx, abend.AuditLogInput{
		TrackingID: msg.TrackingID,
		Level:      abend.AuditLevelInfo,
		ADRStatus:  nextStatus,
		Message:    fmt.Sprintf("Remediation approval '%s' processed", msg.ApprovalStatus),
		CreatedBy:  workerActor,
	}); err != nil {
		p.logger.Warn("failed to write audit log for remediation event",
			zap.String("trackingID", msg.TrackingID),
			zap.Error(err))
	}

	p.logger.Info("remediation event processed",
		zap.String("trackingID", msg.TrackingID),
		zap.String("adrStatus", nextStatus))
	return nil
}
