package abend

// ListingView is the compact shape served by list endpoints: identity plus
// the columns a table display needs.
type ListingView struct {
	TrackingID string `json:"trackingID"`
	JobID      string `json:"jobID"`
	JobName    string `json:"jobName"`
	ADRStatus  string `json:"adrStatus"`
	Severity   string `json:"severity"`
	AbendedAt  string `json:"abendedAt"`
	DomainArea string `json:"domainArea,omitempty"`
	CreatedAt  string `json:"createdAt"`
	UpdatedAt  string `json:"updatedAt"`
}

// DetailView is the full shape served by single-record retrieval.
type DetailView struct {
	TrackingID      string `json:"trackingID"`
	JobID           string `json:"jobID"`
	JobName         string `json:"jobName"`
	AbendedAt       string `json:"abendedAt"`
	ADRStatus       string `json:"adrStatus"`
	Severity        string `json:"severity"`
	DomainArea      string `json:"domainArea,omitempty"`
	IncidentNumber  string `json:"incidentNumber,omitempty"`
	OrderID         string `json:"orderID,omitempty"`
	FaID            string `json:"faID,omitempty"`
	AbendStep       string `json:"abendStep,omitempty"`
	AbendReturnCode string `json:"abendReturnCode,omitempty"`
	AbendReason     string `json:"abendReason,omitempty"`
	AbendType       string `json:"abendType,omitempty"`

	PerfLogExtractionTime  string `json:"perfLogExtractionTime,omitempty"`
	PerfAIAnalysisTime     string `json:"perfAiAnalysisTime,omitempty"`
	PerfRemediationTime    string `json:"perfRemediationTime,omitempty"`
	PerfTotalAutomatedTime string `json:"perfTotalAutomatedTime,omitempty"`

	LogExtractionRunID   string `json:"logExtractionRunId,omitempty"`
	LogExtractionRetries int    `json:"logExtractionRetries"`

	EmailMetadata         map[string]interface{} `json:"emailMetadata,omitempty"`
	KnowledgeBaseMetadata map[string]interface{} `json:"knowledgeBaseMetadata,omitempty"`
	RemediationMetadata   map[string]interface{} `json:"remediationMetadata,omitempty"`

	CreatedAt  string `json:"createdAt"`
	UpdatedAt  string `json:"updatedAt"`
	CreatedBy  string `json:"createdBy"`
	UpdatedBy  string `json:"updatedBy"`
	Generation int    `json:"generation"`
}

// ToListingView projects a stored record onto the listing shape.
func ToListingView(rec Record) ListingView {
	return ListingView{
		TrackingID: rec.TrackingID,
		JobID:      rec.JobID,
		JobName:    rec.JobName,
		ADRStatus:  rec.ADRStatus,
		Severity:   rec.Severity,
		AbendedAt:  rec.AbendedAt,
		DomainArea: rec.DomainArea,
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
	}
}

// ToListingViews projects a page of records. Always returns a non-nil slice
// so an empty page serializes as [] rather than null.
func ToListingViews(recs []Record) []ListingView {
	views := make([]ListingView, 0, len(recs))
	for _, rec := range recs {
		views = append(views, ToListingView(rec))
	}
	return views
}

// ToDetailView projects a stored record onto the full-detail shape. Rows
// written before the audit columns existed get system defaults.
func ToDetailView(rec Record) DetailView {
	v := DetailView{
		TrackingID:      rec.TrackingID,
		JobID:           rec.JobID,
		JobName:         rec.JobName,
		AbendedAt:       rec.AbendedAt,
		ADRStatus:       rec.ADRStatus,
		Severity:        rec.Severity,
		DomainArea:      rec.DomainArea,
		IncidentNumber:  rec.IncidentNumber,
		OrderID:         rec.OrderID,
		FaID:            rec.FaID,
		AbendStep:       rec.AbendStep,
		AbendReturnCode: rec.AbendReturnCode,
		AbendReason:     rec.AbendReason,
		AbendType:       rec.AbendType,

		PerfLogExtractionTime:  rec.PerfLogExtractionTime,
		PerfAIAnalysisTime:     rec.PerfAIAnalysisTime,
		PerfRemediationTime:    rec.PerfRemediationTime,
		PerfTotalAutomatedTime: rec.PerfTotalAutomatedTime,

		LogExtractionRunID:   rec.LogExtractionRunID,
		LogExtractionRetries: rec.LogExtractionRetries,

		EmailMetadata:         rec.EmailMetadata,
		KnowledgeBaseMetadata: rec.KnowledgeBaseMetadata,
		RemediationMetadata:   rec.RemediationMetadata,

		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
		CreatedBy:  rec.CreatedBy,
		UpdatedBy:  rec.UpdatedBy,
		Generation: rec.Generation,
	}
	if v.CreatedBy == "" {
		v.CreatedBy = "system"
	}
	if v.UpdatedBy == "" {
		v.UpdatedBy = "system"
	}
	if v.Generation == 0 {
		v.Generation = 1
	}
	return v
}
