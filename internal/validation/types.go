package validation

// ListAbendsQuery is the query-string surface of the ABEND listing endpoint.
// Dates are calendar-date strings; a single abendedAt is mutually exclusive
// with the range pair. Cursor is checked strictly at this boundary even
// though internal decoding is lenient.
type ListAbendsQuery struct {
	DomainArea string  `form:"domainArea"`
	ADRStatus  string  `form:"adrStatus" validate:"omitempty,oneof=ABEND_REGISTERED LOG_EXTRACTION_INITIATED MANUAL_INTERVENTION_REQUIRED LOG_UPLOAD_TO_S3 PREPROCESSING_LOG_FILE AI_ANALYSIS_INITIATED MANUAL_ANALYSIS_REQUIRED REMEDIATION_SUGGESTIONS_GENERATED AUTOMATED_REMEDIATION_IN_PROGRESS PENDING_MANUAL_APPROVAL VERIFICATION_IN_PROGRESS RESOLVED"`
	Severity   string  `form:"severity" validate:"omitempty,oneof=High Medium Low"`
	AbendedAt  string  `form:"abendedAt" validate:"omitempty,datetime=2006-01-02"`
	StartDate  string  `form:"abendedAtStartDate" validate:"omitempty,datetime=2006-01-02"`
	EndDate    string  `form:"abendedAtEndDate" validate:"omitempty,datetime=2006-01-02"`
	Search     string  `form:"search"`
	Limit      int32   `form:"limit" validate:"omitempty,min=1,max=10"`
	Cursor     *string `form:"cursor"`
}

// CreateAbendRequest is the payload for registering a new ABEND.
type CreateAbendRequest struct {
	JobName         string `json:"jobName" validate:"required,min=1,max=255"`
	AbendedAt       string `json:"abendedAt" validate:"required"`
	Severity        string `json:"severity" validate:"required,oneof=High Medium Low"`
	ServiceNowGroup string `json:"serviceNowGroup" validate:"required,min=1,max=255"`
	IncidentID      string `json:"incidentID" validate:"required,min=1,max=64"`
	OrderID         string `json:"orderID,omitempty" validate:"omitempty,max=64"`
}

// UpdateAbendRequest carries a sparse field map for partial updates. Unknown
// field names are not rejected here; the store warns and skips them.
type UpdateAbendRequest struct {
	Updates   map[string]interface{} `json:"updates" validate:"required"`
	UpdatedBy string                 `json:"updatedBy,omitempty" validate:"omitempty,max=255"`
}

// ApprovalRequest records an AI remediation approval decision.
type ApprovalRequest struct {
	ApprovalStatus string `json:"approvalStatus" validate:"required,oneof=APPROVED REJECTED"`
	Comments       string `json:"comments,omitempty" validate:"omitempty,max=2000"`
}

// CreateAuditLogRequest appends an audit entry to a tracking id.
type CreateAuditLogRequest struct {
	TrackingID  string `json:"trackingID" validate:"required,min=1,max=320"`
	Level       string `json:"level" validate:"required,oneof=INFO WARNING ERROR CRITICAL"`
	ADRStatus   string `json:"adrStatus" validate:"required,oneof=ABEND_REGISTERED LOG_EXTRACTION_INITIATED MANUAL_INTERVENTION_REQUIRED LOG_UPLOAD_TO_S3 PREPROCESSING_LOG_FILE AI_ANALYSIS_INITIATED MANUAL_ANALYSIS_REQUIRED REMEDIATION_SUGGESTIONS_GENERATED AUTOMATED_REMEDIATION_IN_PROGRESS PENDING_MANUAL_APPROVAL VERIFICATION_IN_PROGRESS RESOLVED"`
	Message     string `json:"message" validate:"required,min=1,max=1000"`
	Description string `json:"description,omitempty" validate:"omitempty,max=4000"`
	CreatedBy   string `json:"createdBy,omitempty" validate:"omitempty,max=255"`
}

// ListAuditLogsQuery refines an audit trail listing.
type ListAuditLogsQuery struct {
	Level     string `form:"level" validate:"omitempty,oneof=INFO WARNING ERROR CRITICAL"`
	ADRStatus string `form:"adrStatus" validate:"omitempty,oneof=ABEND_REGISTERED LOG_EXTRACTION_INITIATED MANUAL_INTERVENTION_REQUIRED LOG_UPLOAD_TO_S3 PREPROCESSING_LOG_FILE AI_ANALYSIS_INITIATED MANUAL_ANALYSIS_REQUIRED REMEDIATION_SUGGESTIONS_GENERATED AUTOMATED_REMEDIATION_IN_PROGRESS PENDING_MANUAL_APPROVAL VERIFICATION_IN_PROGRESS RESOLVED"`
	Limit     int32  `form:"limit" validate:"omitempty,min=1,max=100"`
}

// CreateSOPRequest is the payload for registering a new SOP.
type CreateSOPRequest struct {
	SOPName               string   `json:"sopName" validate:"required,min=1,max=255"`
	JobName               string   `json:"jobName" validate:"required,min=1,max=255"`
	AbendType             string   `json:"abendType" validate:"required,min=1,max=100"`
	SourceDocumentURL     string   `json:"sourceDocumentUrl" validate:"required,min=1"`
	ProcessedDocumentURLs []string `json:"processedDocumentUrls,omitempty"`
	CreatedBy             string   `json:"createdBy,omitempty" validate:"omitempty,max=255"`
}

// UpdateSOPRequest carries a sparse field map for SOP partial updates.
type UpdateSOPRequest struct {
	Updates   map[string]interface{} `json:"updates" validate:"required"`
	UpdatedBy string                 `json:"updatedBy,omitempty" validate:"omitempty,max=255"`
}

// ListSOPsQuery is the query-string surface of the SOP listing endpoint.
type ListSOPsQuery struct {
	JobName   string  `form:"jobName"`
	AbendType string  `form:"abendType"`
	Search    string  `form:"search"`
	Limit     int32   `form:"limit" validate:"omitempty,min=1,max=100"`
	Cursor    *string `form:"cursor"`
}
