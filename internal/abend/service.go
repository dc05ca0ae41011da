package abend

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/adrplatform/abend-tracker/internal/awsclient"
	"github.com/adrplatform/abend-tracker/internal/pagination"
)

// Service implements the ABEND business operations on top of the store.
type Service struct {
	store     *Store
	publisher *awsclient.Publisher
	logger    *zap.Logger
	nowFunc   func() time.Time
}

// NewService creates a Service. publisher may be nil when no remediation
// queue is configured.
func NewService(store *Store, publisher *awsclient.Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:     store,
		publisher: publisher,
		logger:    logger,
		nowFunc:   time.Now,
	}
}

// PageMeta is the pagination envelope returned alongside every listing page.
// Total is an estimate, not a count query: len(page) plus limit when another
// page exists. PrevCursor is always null; backward pagination is not
// implemented. HasPrevious only records that a cursor was supplied.
type PageMeta struct {
	Total       int     `json:"total"`
	Limit       int32   `json:"limit"`
	HasNext     bool    `json:"hasNext"`
	HasPrevious bool    `json:"hasPrevious"`
	NextCursor  *string `json:"nextCursor"`
	PrevCursor  *string `json:"prevCursor"`
}

// ListResult is one listing page with its metadata.
type ListResult struct {
	Data []ListingView `json:"data"`
	Meta PageMeta      `json:"meta"`
}

// ListParams carries a listing request into the service. Cursor is the opaque
// wire string; the service decodes it leniently and ignores anything
// undecodable, falling back to the first page.
type ListParams struct {
	Filters
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int32
	Cursor    *string
}

// List serves a filtered, cursor-paginated listing query.
func (s *Service) List(ctx context.Context, p ListParams) (*ListResult, error) {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}

	cursor := pagination.Decode(p.Cursor)
	if p.Cursor != nil && cursor == nil {
		s.logger.Warn("ignoring undecodable cursor, serving first page")
	}

	records, next, err := s.store.List(ctx, ListQuery{
		Filters:   p.Filters,
		StartDate: p.StartDate,
		EndDate:   p.EndDate,
		Limit:     p.Limit,
		Cursor:    cursor,
	})
	if err != nil {
		return nil, err
	}

	nextCursor := pagination.Encode(next)
	hasNext := nextCursor != nil
	total := len(records)
	if hasNext {
		total += int(p.Limit)
	}

	return &ListResult{
		Data: ToListingViews(records),
		Meta: PageMeta{
			Total:       total,
			Limit:       p.Limit,
			HasNext:     hasNext,
			HasPrevious: p.Cursor != nil,
			NextCursor:  nextCursor,
			PrevCursor:  nil,
		},
	}, nil
}

// Detail fetches the full record shape. Returns (nil, nil) when no record
// exists for the tracking id.
func (s *Service) Detail(ctx context.Context, trackingID string) (*DetailView, error) {
	rec, err := s.store.GetByTrackingID(ctx, trackingID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	view := ToDetailView(*rec)
	return &view, nil
}

// CreateInput holds the fields required to register a new ABEND.
type CreateInput struct {
	JobName         string
	AbendedAt       time.Time
	Severity        string
	ServiceNowGroup string
	IncidentNumber  string
	OrderID         string
}

// CreateResult echoes the created record's identity and a human-readable
// confirmation message.
type CreateResult struct {
	TrackingID string `json:"trackingID"`
	JobName    string `json:"jobName"`
	ADRStatus  string `json:"adrStatus"`
	Severity   string `json:"severity"`
	AbendedAt  string `json:"abendedAt"`
	CreatedAt  string `json:"createdAt"`
	Message    string `json:"message"`
}

// Create registers a new ABEND with status ABEND_REGISTERED and writes one
// audit entry describing the creation. Audit logging is best-effort: its
// failure is logged and swallowed, never a cause of create failure.
func (s *Service) Create(ctx context.Context, in CreateInput) (*CreateResult, error) {
	now := formatTimestamp(s.nowFunc())
	rec := Record{
		TrackingID:      NewTrackingID(in.JobName),
		RecordType:      RecordTypeAbend,
		JobName:         in.JobName,
		AbendedAt:       formatTimestamp(in.AbendedAt),
		AbendedDate:     formatDate(in.AbendedAt),
		Severity:        in.Severity,
		ServiceNowGroup: in.ServiceNowGroup,
		IncidentNumber:  in.IncidentNumber,
		OrderID:         in.OrderID,
		ADRStatus:       StatusAbendRegistered,
		CreatedAt:       now,
		UpdatedAt:       now,
		CreatedBy:       "system",
		UpdatedBy:       "system",
		Generation:      1,
	}

	if err := s.store.Create(ctx, rec); err != nil {
		return nil, err
	}

	audit := AuditLogEntry{
		TrackingID: rec.TrackingID,
		AuditID:    NewAuditID(),
		Level:      AuditLevelInfo,
		ADRStatus:  StatusAbendRegistered,
		Message:    fmt.Sprintf("ABEND record created for job '%s'", rec.JobName),
		Description: fmt.Sprintf(
			"New ABEND record created with severity '%s', incident ID '%s', and initial status '%s'",
			rec.Severity, rec.IncidentNumber, rec.ADRStatus),
		CreatedBy: "system",
		CreatedAt: now,
	}
	if err := s.store.PutAuditLog(ctx, audit); err != nil {
		s.logger.Warn("failed to create audit log for abend creation",
			zap.String("trackingId", rec.TrackingID),
			zap.Error(err))
	}

	return &CreateResult{
		TrackingID: rec.TrackingID,
		JobName:    rec.JobName,
		ADRStatus:  rec.ADRStatus,
		Severity:   rec.Severity,
		AbendedAt:  rec.AbendedAt,
		CreatedAt:  rec.CreatedAt,
		Message:    fmt.Sprintf("ABEND record created successfully with tracking ID: %s", rec.TrackingID),
	}, nil
}

// UpdateFields applies a sparse field map to a record. Returns (false, nil)
// when the record does not exist.
func (s *Service) UpdateFields(ctx context.Context, trackingID string, updates map[string]interface{}, updatedBy string) (bool, error) {
	return s.store.UpdateFields(ctx, trackingID, updates, updatedBy)
}

// ApprovalInput carries an AI remediation approval decision.
type ApprovalInput struct {
	Status   string
	Comments string
}

// ApprovalResult confirms a recorded approval decision.
type ApprovalResult struct {
	TrackingID     string `json:"trackingID"`
	ApprovalStatus string `json:"approvalStatus"`
	ApprovedAt     string `json:"approvedAt"`
	Message        string `json:"message"`
}

// remediationEvent is the message body published when an approval decision is
// recorded.
type remediationEvent struct {
	TrackingID     string `json:"trackingID"`
	ApprovalStatus string `json:"approvalStatus"`
	ApprovedAt     string `json:"approvedAt"`
}

// UpdateRemediationApproval records an approval decision in the record's
// remediation metadata, preserving its other keys, and publishes a
// remediation event. Publishing is best-effort: a queue failure is logged and
// the approval still succeeds. Returns (nil, nil) when the record does not
// exist.
func (s *Service) UpdateRemediationApproval(ctx context.Context, trackingID string, in ApprovalInput) (*ApprovalResult, error) {
	approvedAt := formatTimestamp(s.nowFunc())

	updates := map[string]interface{}{
		"remediation_metadata": map[string]interface{}{
			"aiRemediationApprovalStatus": in.Status,
			"aiRemediationComments":       in.Comments,
			"aiRemediationApprovedAt":     approvedAt,
		},
	}
	ok, err := s.store.UpdateFields(ctx, trackingID, updates, "system")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	if s.publisher != nil {
		body, err := json.Marshal(remediationEvent{
			TrackingID:     trackingID,
			ApprovalStatus: in.Status,
			ApprovedAt:     approvedAt,
		})
		if err == nil {
			err = s.publisher.SendRemediationEvent(ctx, string(body), map[string]string{
				"eventType": "REMEDIATION_APPROVAL",
			})
		}
		if err != nil {
			s.logger.Warn("failed to publish remediation approval event",
				zap.String("trackingId", trackingID),
				zap.Error(err))
		}
	}

	return &ApprovalResult{
		TrackingID:     trackingID,
		ApprovalStatus: in.Status,
		ApprovedAt:     approvedAt,
		Message:        "AI remediation approval updated successfully",
	}, nil
}

// FiltersView lists the filter values the UI can offer.
type FiltersView struct {
	DomainAreas []string `json:"domainAreas"`
	ADRStatuses []string `json:"adrStatuses"`
	Severities  []string `json:"severities"`
}

// AvailableFilters returns the enumerated filter values. Domain areas are
// free-form and not enumerated.
func (s *Service) AvailableFilters() FiltersView {
	return FiltersView{
		DomainAreas: []string{},
		ADRStatuses: append([]string{}, AllStatuses...),
		Severities:  append([]string{}, AllSeverities...),
	}
}

// StatsView summarizes one day's ABEND counts.
type StatsView struct {
	ActiveAbends               int `json:"activeAbends"`
	ManualInterventionRequired int `json:"manualInterventionRequired"`
	ResolvedAbends             int `json:"resolvedAbends"`
	TotalAbends                int `json:"totalAbends"`
}

// TodayStats counts today's records by lifecycle state via the date and
// status indexes.
func (s *Service) TodayStats(ctx context.Context) (*StatsView, error) {
	today := formatDate(s.nowFunc())

	total, err := s.store.CountForDate(ctx, today)
	if err != nil {
		return nil, err
	}
	resolved, err := s.store.CountByStatusForDate(ctx, StatusResolved, today)
	if err != nil {
		return nil, err
	}
	manual, err := s.store.CountByStatusForDate(ctx, StatusManualInterventionRequired, today)
	if err != nil {
		return nil, err
	}

	return &StatsView{
		ActiveAbends:               total - resolved,
		ManualInterventionRequired: manual,
		ResolvedAbends:             resolved,
		TotalAbends:                total,
	}, nil
}

// TrendPoint is one day's aggregate in a job history trend.
type TrendPoint struct {
	Date          string `json:"date"`
	AbendCount    int    `json:"abend_count"`
	ResolvedCount int    `json:"resolved_count"`
}

// TrendsView is a 30-day per-day aggregate for one job, oldest day first.
type TrendsView struct {
	JobName       string       `json:"job_name"`
	Trends        []TrendPoint `json:"trends"`
	TotalAbends   int          `json:"total_abends_last_30_days"`
	TotalResolved int          `json:"total_resolved_last_30_days"`
}

const trendWindowDays = 30

// JobHistoryTrends aggregates the last 30 days of one job's records into
// per-day counts, filling days with no records with zeros.
func (s *Service) JobHistoryTrends(ctx context.Context, jobName string) (*TrendsView, error) {
	end := s.nowFunc().UTC()
	start := end.AddDate(0, 0, -trendWindowDays)

	history, err := s.store.JobHistory(ctx, jobName, start, end, 1000)
	if err != nil {
		return nil, err
	}

	byDate := map[string]*TrendPoint{}
	for i := 0; i < trendWindowDays; i++ {
		d := formatDate(end.AddDate(0, 0, -i))
		byDate[d] = &TrendPoint{Date: d}
	}
	for _, rec := range history {
		t, err := parseTimestamp(rec.AbendedAt)
		if err != nil {
			continue
		}
		d := formatDate(t)
		point, ok := byDate[d]
		if !ok {
			point = &TrendPoint{Date: d}
			byDate[d] = point
		}
		point.AbendCount++
		if rec.ADRStatus == StatusResolved {
			point.ResolvedCount++
		}
	}

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	view := &TrendsView{JobName: jobName, Trends: make([]TrendPoint, 0, len(dates))}
	for _, d := range dates {
		point := byDate[d]
		view.Trends = append(view.Trends, *point)
		view.TotalAbends += point.AbendCount
		view.TotalResolved += point.ResolvedCount
	}
	return view, nil
}

// AuditLogInput carries a new audit entry.
type AuditLogInput struct {
	TrackingID  string
	Level       string
	ADRStatus   string
	Message     string
	Description string
	CreatedBy   string
}

// AuditLogView is the API shape of one audit entry.
type AuditLogView struct {
	AuditID     string `json:"auditID"`
	TrackingID  string `json:"trackingID"`
	Level       string `json:"level"`
	ADRStatus   string `json:"adrStatus"`
	Message     string `json:"message"`
	Description string `json:"description,omitempty"`
	CreatedBy   string `json:"createdBy"`
	CreatedAt   string `json:"createdAt"`
}

// CreateAuditLog appends one audit entry under a tracking id.
func (s *Service) CreateAuditLog(ctx context.Context, in AuditLogInput) (*AuditLogView, error) {
	if in.CreatedBy == "" {
		in.CreatedBy = "system"
	}
	entry := AuditLogEntry{
		TrackingID:  in.TrackingID,
		AuditID:     NewAuditID(),
		Level:       in.Level,
		ADRStatus:   in.ADRStatus,
		Message:     in.Message,
		Description: in.Description,
		CreatedBy:   in.CreatedBy,
		CreatedAt:   formatTimestamp(s.nowFunc()),
	}
	if err := s.store.PutAuditLog(ctx, entry); err != nil {
		return nil, err
	}
	view := toAuditLogView(entry)
	return &view, nil
}

// AuditLogs lists a record's audit entries in creation order. level and
// status are optional refinements; limit <= 0 means no limit.
func (s *Service) AuditLogs(ctx context.Context, trackingID, level, status string, limit int32) ([]AuditLogView, error) {
	entries, err := s.store.AuditLogsByTrackingID(ctx, trackingID, level, status, limit)
	if err != nil {
		return nil, err
	}
	views := make([]AuditLogView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, toAuditLogView(entry))
	}
	return views, nil
}

func toAuditLogView(entry AuditLogEntry) AuditLogView {
	return AuditLogView{
		AuditID:     entry.AuditID,
		TrackingID:  entry.TrackingID,
		Level:       entry.Level,
		ADRStatus:   entry.ADRStatus,
		Message:     entry.Message,
		Description: entry.Description,
		CreatedBy:   entry.CreatedBy,
		CreatedAt:   entry.CreatedAt,
	}
}
