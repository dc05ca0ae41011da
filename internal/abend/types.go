package abend

import (
	"fmt"
	"strings"
	"time"
)

// Severity levels
const (
	SeverityHigh   = "High"
	SeverityMedium = "Medium"
	SeverityLow    = "Low"
)

// ADR (Automated Detection & Remediation) status values
const (
	StatusAbendRegistered                = "ABEND_REGISTERED"
	StatusLogExtractionInitiated         = "LOG_EXTRACTION_INITIATED"
	StatusManualInterventionRequired     = "MANUAL_INTERVENTION_REQUIRED"
	StatusLogUploadToS3                  = "LOG_UPLOAD_TO_S3"
	StatusPreprocessingLogFile           = "PREPROCESSING_LOG_FILE"
	StatusAIAnalysisInitiated            = "AI_ANALYSIS_INITIATED"
	StatusManualAnalysisRequired         = "MANUAL_ANALYSIS_REQUIRED"
	StatusRemediationSuggestionsGenerated = "REMEDIATION_SUGGESTIONS_GENERATED"
	StatusAutomatedRemediationInProgress = "AUTOMATED_REMEDIATION_IN_PROGRESS"
	StatusPendingManualApproval          = "PENDING_MANUAL_APPROVAL"
	StatusVerificationInProgress         = "VERIFICATION_IN_PROGRESS"
	StatusResolved                       = "RESOLVED"
)

// Audit log levels
const (
	AuditLevelInfo     = "INFO"
	AuditLevelWarning  = "WARNING"
	AuditLevelError    = "ERROR"
	AuditLevelCritical = "CRITICAL"
)

// AI remediation approval statuses
const (
	ApprovalApproved = "APPROVED"
	ApprovalRejected = "REJECTED"
)

// Sort-key discriminants for the shared physical table. The ABEND row uses the
// literal discriminant; audit rows append their audit id so many entries share
// the partition and sort in creation order (audit ids are ULIDs).
const (
	RecordTypeAbend          = "ABEND"
	RecordTypeAuditLogPrefix = "AUDIT_LOG#"
)

// AllStatuses lists every ADR status, in lifecycle order.
var AllStatuses = []string{
	StatusAbendRegistered,
	StatusLogExtractionInitiated,
	StatusManualInterventionRequired,
	StatusLogUploadToS3,
	StatusPreprocessingLogFile,
	StatusAIAnalysisInitiated,
	StatusManualAnalysisRequired,
	StatusRemediationSuggestionsGenerated,
	StatusAutomatedRemediationInProgress,
	StatusPendingManualApproval,
	StatusVerificationInProgress,
	StatusResolved,
}

// AllSeverities lists the severity levels, highest first.
var AllSeverities = []string{SeverityHigh, SeverityMedium, SeverityLow}

// Record is the ABEND row persisted in DynamoDB. Timestamps are stored as
// ISO-8601 strings truncated to whole seconds so lexicographic order on
// abended_at equals time order.
type Record struct {
	TrackingID string `dynamodbav:"tracking_id"` // PK
	RecordType string `dynamodbav:"record_type"` // SK, always "ABEND"

	// Secondary-index hash keys
	AbendedDate string `dynamodbav:"abended_date"`
	JobName     string `dynamodbav:"job_name"`
	DomainArea  string `dynamodbav:"domain_area,omitempty"`
	ADRStatus   string `dynamodbav:"adr_status"`
	Severity    string `dynamodbav:"severity"`

	// Range key on every index
	AbendedAt string `dynamodbav:"abended_at"`

	JobID           string `dynamodbav:"job_id,omitempty"`
	OrderID         string `dynamodbav:"order_id,omitempty"`
	IncidentNumber  string `dynamodbav:"incident_number,omitempty"`
	FaID            string `dynamodbav:"fa_id,omitempty"`
	ServiceNowGroup string `dynamodbav:"service_now_group,omitempty"`
	AbendStep       string `dynamodbav:"abend_step,omitempty"`
	AbendReturnCode string `dynamodbav:"abend_return_code,omitempty"`
	AbendReason     string `dynamodbav:"abend_reason,omitempty"`
	AbendType       string `dynamodbav:"abend_type,omitempty"`

	PerfLogExtractionTime  string `dynamodbav:"perf_log_extraction_time,omitempty"`
	PerfAIAnalysisTime     string `dynamodbav:"perf_ai_analysis_time,omitempty"`
	PerfRemediationTime    string `dynamodbav:"perf_remediation_time,omitempty"`
	PerfTotalAutomatedTime string `dynamodbav:"perf_total_automated_time,omitempty"`

	LogExtractionRunID   string `dynamodbav:"log_extraction_run_id,omitempty"`
	LogExtractionRetries int    `dynamodbav:"log_extraction_retries,omitempty"`

	EmailMetadata         map[string]interface{} `dynamodbav:"email_metadata,omitempty"`
	KnowledgeBaseMetadata map[string]interface{} `dynamodbav:"knowledge_base_metadata,omitempty"`
	RemediationMetadata   map[string]interface{} `dynamodbav:"remediation_metadata,omitempty"`

	CreatedAt  string `dynamodbav:"created_at"`
	UpdatedAt  string `dynamodbav:"updated_at"`
	CreatedBy  string `dynamodbav:"created_by,omitempty"`
	UpdatedBy  string `dynamodbav:"updated_by,omitempty"`
	Generation int    `dynamodbav:"generation,omitempty"`
}

// AuditLogEntry is an append-only audit row sharing the ABEND table.
type AuditLogEntry struct {
	TrackingID  string `dynamodbav:"tracking_id"` // PK, FK to the ABEND row
	RecordType  string `dynamodbav:"record_type"` // SK, "AUDIT_LOG#"+AuditID
	AuditID     string `dynamodbav:"audit_id"`
	Level       string `dynamodbav:"level"`
	ADRStatus   string `dynamodbav:"adr_status"`
	Message     string `dynamodbav:"message"`
	Description string `dynamodbav:"description,omitempty"`
	CreatedBy   string `dynamodbav:"created_by"`
	CreatedAt   string `dynamodbav:"created_at"`
}

// formatTimestamp renders t as the stored wire format: UTC, whole seconds.
func formatTimestamp(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}

// formatDate renders the UTC calendar-date projection used as the date
// partition key.
func formatDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// parseTimestamp parses a stored ISO-8601 string. A trailing 'Z' and an
// explicit +00:00 offset are equivalent.
func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	normalized := strings.Replace(s, "+00:00", "Z", 1)
	t, err := time.Parse(time.RFC3339, normalized)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// ValidSeverity reports whether s is one of the enumerated severity levels.
func ValidSeverity(s string) bool {
	return s == SeverityHigh || s == SeverityMedium || s == SeverityLow
}

// ValidStatus reports whether s is one of the enumerated ADR statuses.
func ValidStatus(s string) bool {
	for _, status := range AllStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// ValidAuditLevel reports whether s is one of the enumerated audit levels.
func ValidAuditLevel(s string) bool {
	switch s {
	case AuditLevelInfo, AuditLevelWarning, AuditLevelError, AuditLevelCritical:
		return true
	}
	return false
}
