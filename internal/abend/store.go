package abend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"github.com/adrplatform/abend-tracker/internal/awsclient"
	"github.com/adrplatform/abend-tracker/internal/pagination"
)

// Secondary indexes on the ABEND table. All are range-keyed on abended_at.
const (
	indexAbendedDate = "AbendedDateIndex"
	indexADRStatus   = "AdrStatusIndex"
	indexSeverity    = "SeverityIndex"
	indexDomainArea  = "DomainAreaIndex"
	indexJobName     = "JobNameIndex"
)

// DefaultPageLimit is applied when a listing query supplies no limit.
const DefaultPageLimit = 5

// ErrAlreadyExists indicates a conditional create hit an existing tracking id.
var ErrAlreadyExists = errors.New("tracking id already exists")

// Store encapsulates operations on the ABEND table.
type Store struct {
	client    awsclient.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
	logger    *zap.Logger
}

// NewStore creates a new ABEND Store.
func NewStore(client awsclient.DynamoDBAPI, tableName string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
		logger:    logger,
	}
}

// Create persists a new ABEND row. The record's identity and audit fields must
// already be populated. Fails with ErrAlreadyExists on a tracking id collision.
func (s *Store) Create(ctx context.Context, rec Record) error {
	rec.RecordType = RecordTypeAbend

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal abend record: %w", err)
	}

	input := &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(tracking_id)"),
	}

	if _, err := s.client.PutItem(ctx, input); err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ConditionalCheckFailedException" {
			return ErrAlreadyExists
		}
		return fmt.Errorf("put abend record: %w", err)
	}
	return nil
}

// GetByTrackingID fetches an ABEND row. Returns (nil, nil) if not found.
func (s *Store) GetByTrackingID(ctx context.Context, trackingID string) (*Record, error) {
	key := map[string]types.AttributeValue{
		"tracking_id": &types.AttributeValueMemberS{Value: trackingID},
		"record_type": &types.AttributeValueMemberS{Value: RecordTypeAbend},
	}
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key:       key,
	})
	if err != nil {
		return nil, fmt.Errorf("get abend record: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var rec Record
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal abend record: %w", err)
	}
	return &rec, nil
}

// UpdateFields applies a sparse field map to an ABEND row. Unknown field names
// are logged and ignored. Every successful update bumps generation by one and
// refreshes updated_at/updated_by, even for an empty map. Returns (false, nil)
// when the record does not exist.
func (s *Store) UpdateFields(ctx context.Context, trackingID string, updates map[string]interface{}, updatedBy string) (bool, error) {
	rec, err := s.GetByTrackingID(ctx, trackingID)
	if err != nil {
		return false, err
	}
	if rec == nil {
		return false, nil
	}

	for field, value := range updates {
		if !s.applyField(rec, field, value) {
			s.logger.Warn("unknown field in update",
				zap.String("trackingId", trackingID),
				zap.String("field", field))
		}
	}

	if updatedBy == "" {
		updatedBy = "system"
	}
	rec.UpdatedBy = updatedBy
	rec.UpdatedAt = formatTimestamp(s.nowFunc())
	if rec.Generation == 0 {
		rec.Generation = 1
	}
	rec.Generation++

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return false, fmt.Errorf("marshal updated record: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	}); err != nil {
		return false, fmt.Errorf("put updated record: %w", err)
	}
	return true, nil
}

// applyField maps one update entry onto the record. Accepts both snake_case
// and camelCase names. Returns false for unknown fields.
func (s *Store) applyField(rec *Record, field string, value interface{}) bool {
	setString := func(dst *string) bool {
		str, ok := value.(string)
		if !ok {
			return false
		}
		*dst = str
		return true
	}
	setMap := func(dst *map[string]interface{}) bool {
		m, ok := value.(map[string]interface{})
		if !ok {
			return false
		}
		*dst = m
		return true
	}

	switch field {
	case "adr_status", "adrStatus":
		return setString(&rec.ADRStatus)
	case "severity":
		return setString(&rec.Severity)
	case "domain_area", "domainArea":
		return setString(&rec.DomainArea)
	case "job_id", "jobID", "jobId":
		return setString(&rec.JobID)
	case "order_id", "orderID", "orderId":
		return setString(&rec.OrderID)
	case "incident_number", "incidentNumber":
		return setString(&rec.IncidentNumber)
	case "fa_id", "faID", "faId":
		return setString(&rec.FaID)
	case "abend_step", "abendStep":
		return setString(&rec.AbendStep)
	case "abend_return_code", "abendReturnCode":
		return setString(&rec.AbendReturnCode)
	case "abend_reason", "abendReason":
		return setString(&rec.AbendReason)
	case "abend_type", "abendType":
		return setString(&rec.AbendType)
	case "perf_log_extraction_time", "perfLogExtractionTime":
		return setString(&rec.PerfLogExtractionTime)
	case "perf_ai_analysis_time", "perfAiAnalysisTime":
		return setString(&rec.PerfAIAnalysisTime)
	case "perf_remediation_time", "perfRemediationTime":
		return setString(&rec.PerfRemediationTime)
	case "perf_total_automated_time", "perfTotalAutomatedTime":
		return setString(&rec.PerfTotalAutomatedTime)
	case "log_extraction_run_id", "logExtractionRunId":
		return setString(&rec.LogExtractionRunID)
	case "log_extraction_retries", "logExtractionRetries":
		switch n := value.(type) {
		case int:
			rec.LogExtractionRetries = n
		case float64:
			rec.LogExtractionRetries = int(n)
		default:
			return false
		}
		return true
	case "abended_at", "abendedAt":
		str, ok := value.(string)
		if !ok {
			return false
		}
		t, err := parseTimestamp(str)
		if err != nil {
			return false
		}
		// abended_date is always the calendar projection of abended_at.
		rec.AbendedAt = formatTimestamp(t)
		rec.AbendedDate = formatDate(t)
		return true
	case "email_metadata", "emailMetadata":
		return setMap(&rec.EmailMetadata)
	case "knowledge_base_metadata", "knowledgeBaseMetadata":
		return setMap(&rec.KnowledgeBaseMetadata)
	case "remediation_metadata", "remediationMetadata":
		// Nested update: merge with existing keys rather than replace.
		m, ok := value.(map[string]interface{})
		if !ok {
			return false
		}
		if rec.RemediationMetadata == nil {
			rec.RemediationMetadata = map[string]interface{}{}
		}
		for k, v := range m {
			rec.RemediationMetadata[k] = v
		}
		return true
	}
	return false
}

// PutAuditLog persists one append-only audit entry under the record's
// partition.
func (s *Store) PutAuditLog(ctx context.Context, entry AuditLogEntry) error {
	entry.RecordType = RecordTypeAuditLogPrefix + entry.AuditID

	item, err := attributevalue.MarshalMap(entry)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	}); err != nil {
		return fmt.Errorf("put audit entry: %w", err)
	}
	return nil
}

// AuditLogsByTrackingID returns audit entries for one record, ascending by
// audit id (creation order, since audit ids are ULIDs). level and status are
// optional equality refinements; limit <= 0 means no limit.
func (s *Store) AuditLogsByTrackingID(ctx context.Context, trackingID, level, status string, limit int32) ([]AuditLogEntry, error) {
	input := &dyn.QueryInput{
		TableName:              &s.tableName,
		KeyConditionExpression: awsString("#pk = :pk AND begins_with(#sk, :prefix)"),
		ExpressionAttributeNames: map[string]string{
			"#pk": "tracking_id",
			"#sk": "record_type",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: trackingID},
			":prefix": &types.AttributeValueMemberS{Value: RecordTypeAuditLogPrefix},
		},
		ScanIndexForward: awsBool(true),
	}

	var filterClauses []string
	if level != "" {
		input.ExpressionAttributeNames["#lv"] = "level"
		input.ExpressionAttributeValues[":lv"] = &types.AttributeValueMemberS{Value: level}
		filterClauses = append(filterClauses, "#lv = :lv")
	}
	if status != "" {
		input.ExpressionAttributeNames["#st"] = "adr_status"
		input.ExpressionAttributeValues[":st"] = &types.AttributeValueMemberS{Value: status}
		filterClauses = append(filterClauses, "#st = :st")
	}
	if len(filterClauses) > 0 {
		input.FilterExpression = awsString(joinAnd(filterClauses))
	}
	if limit > 0 {
		input.Limit = &limit
	}

	out, err := s.client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}

	entries := make([]AuditLogEntry, 0, len(out.Items))
	for _, item := range out.Items {
		var entry AuditLogEntry
		if err := attributevalue.UnmarshalMap(item, &entry); err != nil {
			return nil, fmt.Errorf("unmarshal audit entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// queryDatePartition runs one single-day query: hash key = the calendar date,
// sorted descending by abended_at. Returns records plus the raw continuation
// key, if any.
func (s *Store) queryDatePartition(ctx context.Context, date string, pred *Predicate, limit int32, startKey map[string]string) ([]Record, map[string]string, error) {
	input := &dyn.QueryInput{
		TableName:              &s.tableName,
		IndexName:              awsString(indexAbendedDate),
		KeyConditionExpression: awsString("#pk = :pk"),
		ExpressionAttributeNames: map[string]string{
			"#pk": "abended_date",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: date},
		},
		ScanIndexForward: awsBool(false), // most recent first
	}
	if limit > 0 {
		input.Limit = &limit
	}
	applyPredicate(input, pred)
	if len(startKey) > 0 {
		input.ExclusiveStartKey = pagination.ToExclusiveStartKey(startKey)
	}

	out, err := s.client.Query(ctx, input)
	if err != nil {
		return nil, nil, fmt.Errorf("query date partition %s: %w", date, err)
	}

	records, err := unmarshalRecords(out.Items)
	if err != nil {
		return nil, nil, err
	}
	return records, pagination.FromLastEvaluatedKey(out.LastEvaluatedKey), nil
}

// queryFilterIndex runs one query against a filter-specific index (status,
// severity, domain), sorted descending by abended_at.
func (s *Store) queryFilterIndex(ctx context.Context, indexName, hashAttr, hashValue string, pred *Predicate, limit int32, startKey map[string]string) ([]Record, map[string]string, error) {
	input := &dyn.QueryInput{
		TableName:              &s.tableName,
		IndexName:              awsString(indexName),
		KeyConditionExpression: awsString("#pk = :pk"),
		ExpressionAttributeNames: map[string]string{
			"#pk": hashAttr,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: hashValue},
		},
		ScanIndexForward: awsBool(false),
	}
	if limit > 0 {
		input.Limit = &limit
	}
	applyPredicate(input, pred)
	if len(startKey) > 0 {
		input.ExclusiveStartKey = pagination.ToExclusiveStartKey(startKey)
	}

	out, err := s.client.Query(ctx, input)
	if err != nil {
		return nil, nil, fmt.Errorf("query %s: %w", indexName, err)
	}

	records, err := unmarshalRecords(out.Items)
	if err != nil {
		return nil, nil, err
	}
	return records, pagination.FromLastEvaluatedKey(out.LastEvaluatedKey), nil
}

// scanAll is the last-resort whole-table path. The record_type clause keeps
// audit rows out of listing results.
func (s *Store) scanAll(ctx context.Context, pred *Predicate, limit int32, startKey map[string]string) ([]Record, map[string]string, error) {
	input := &dyn.ScanInput{
		TableName: &s.tableName,
		ExpressionAttributeNames: map[string]string{
			"#rt": "record_type",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":rt": &types.AttributeValueMemberS{Value: RecordTypeAbend},
		},
	}
	filterExpr := "#rt = :rt"
	if pred != nil {
		for k, v := range pred.Names {
			input.ExpressionAttributeNames[k] = v
		}
		for k, v := range pred.Values {
			input.ExpressionAttributeValues[k] = v
		}
		filterExpr = filterExpr + " AND " + pred.Expr
	}
	input.FilterExpression = &filterExpr
	if limit > 0 {
		input.Limit = &limit
	}
	if len(startKey) > 0 {
		input.ExclusiveStartKey = pagination.ToExclusiveStartKey(startKey)
	}

	out, err := s.client.Scan(ctx, input)
	if err != nil {
		return nil, nil, fmt.Errorf("scan abend table: %w", err)
	}

	records, err := unmarshalRecords(out.Items)
	if err != nil {
		return nil, nil, err
	}
	return records, pagination.FromLastEvaluatedKey(out.LastEvaluatedKey), nil
}

// CountForDate counts ABEND rows in one date partition.
func (s *Store) CountForDate(ctx context.Context, date string) (int, error) {
	out, err := s.client.Query(ctx, &dyn.QueryInput{
		TableName:              &s.tableName,
		IndexName:              awsString(indexAbendedDate),
		KeyConditionExpression: awsString("#pk = :pk"),
		ExpressionAttributeNames: map[string]string{
			"#pk": "abended_date",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: date},
		},
		Select: types.SelectCount,
	})
	if err != nil {
		return 0, fmt.Errorf("count for date %s: %w", date, err)
	}
	return int(out.Count), nil
}

// CountByStatusForDate counts rows with one ADR status in one date partition,
// via the status index with a date refinement.
func (s *Store) CountByStatusForDate(ctx context.Context, status, date string) (int, error) {
	out, err := s.client.Query(ctx, &dyn.QueryInput{
		TableName:              &s.tableName,
		IndexName:              awsString(indexADRStatus),
		KeyConditionExpression: awsString("#pk = :pk"),
		FilterExpression:       awsString("#d = :d"),
		ExpressionAttributeNames: map[string]string{
			"#pk": "adr_status",
			"#d":  "abended_date",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: status},
			":d":  &types.AttributeValueMemberS{Value: date},
		},
		Select: types.SelectCount,
	})
	if err != nil {
		return 0, fmt.Errorf("count status %s for date %s: %w", status, date, err)
	}
	return int(out.Count), nil
}

// JobHistory returns records for one job name within [startAt, endAt], most
// recent first, via the job-name index.
func (s *Store) JobHistory(ctx context.Context, jobName string, startAt, endAt time.Time, limit int32) ([]Record, error) {
	input := &dyn.QueryInput{
		TableName:              &s.tableName,
		IndexName:              awsString(indexJobName),
		KeyConditionExpression: awsString("#pk = :pk AND #sk BETWEEN :start AND :end"),
		ExpressionAttributeNames: map[string]string{
			"#pk": "job_name",
			"#sk": "abended_at",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":    &types.AttributeValueMemberS{Value: jobName},
			":start": &types.AttributeValueMemberS{Value: formatTimestamp(startAt)},
			":end":   &types.AttributeValueMemberS{Value: formatTimestamp(endAt)},
		},
		ScanIndexForward: awsBool(false),
	}
	if limit > 0 {
		input.Limit = &limit
	}

	out, err := s.client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("query job history %s: %w", jobName, err)
	}
	return unmarshalRecords(out.Items)
}

func applyPredicate(input *dyn.QueryInput, pred *Predicate) {
	if pred == nil {
		return
	}
	for k, v := range pred.Names {
		input.ExpressionAttributeNames[k] = v
	}
	for k, v := range pred.Values {
		input.ExpressionAttributeValues[k] = v
	}
	input.FilterExpression = &pred.Expr
}

func unmarshalRecords(items []map[string]types.AttributeValue) ([]Record, error) {
	records := make([]Record, 0, len(items))
	for _, item := range items {
		var rec Record
		if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
			return nil, fmt.Errorf("unmarshal abend record: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func joinAnd(clauses []string) string {
	out := clauses[0]
	for _, c := range clauses[1:] {
		out += " AND " + c
	}
	return out
}

func awsString(s string) *string { return &s }
func awsBool(b bool) *bool       { return &b }
