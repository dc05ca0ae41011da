package sop

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"github.com/adrplatform/abend-tracker/internal/awsclient"
	"github.com/adrplatform/abend-tracker/internal/pagination"
)

// Secondary indexes on the SOP table, range-keyed on created_at.
const (
	indexJobName   = "JobNameIndex"
	indexAbendType = "AbendTypeIndex"
)

// DefaultPageLimit is applied when a SOP listing supplies no limit.
const DefaultPageLimit = 50

var (
	// ErrAlreadyExists indicates a conditional create hit an existing sop id.
	ErrAlreadyExists = errors.New("sop id already exists")
	// ErrNotImplemented marks the declared-but-unimplemented delete operation.
	ErrNotImplemented = errors.New("sop deletion not implemented")
)

// updatableAttrs maps accepted update field names (snake_case and camelCase)
// to their storage attribute.
var updatableAttrs = map[string]string{
	"sop_name":                "sop_name",
	"sopName":                 "sop_name",
	"job_name":                "job_name",
	"jobName":                 "job_name",
	"abend_type":              "abend_type",
	"abendType":               "abend_type",
	"source_document_url":     "source_document_url",
	"sourceDocumentUrl":       "source_document_url",
	"processed_document_urls": "processed_document_urls",
	"processedDocumentUrls":   "processed_document_urls",
	"updated_by":              "updated_by",
	"updatedBy":               "updated_by",
}

// Store encapsulates operations on the SOP table.
type Store struct {
	client    awsclient.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
	logger    *zap.Logger
}

// NewStore creates a new SOP Store.
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

// Create persists a new SOP row.
func (s *Store) Create(ctx context.Context, rec Record) error {
	rec.RecordType = RecordTypeSOP
	if rec.ProcessedDocumentURLs == nil {
		rec.ProcessedDocumentURLs = []string{}
	}

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal sop record: %w", err)
	}
	input := &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(sop_id)"),
	}
	if _, err := s.client.PutItem(ctx, input); err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ConditionalCheckFailedException" {
			return ErrAlreadyExists
		}
		return fmt.Errorf("put sop record: %w", err)
	}
	return nil
}

// GetByID fetches a SOP row. Returns (nil, nil) if not found.
func (s *Store) GetByID(ctx context.Context, sopID string) (*Record, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"sop_id":      &types.AttributeValueMemberS{Value: sopID},
			"record_type": &types.AttributeValueMemberS{Value: RecordTypeSOP},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get sop record: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var rec Record
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal sop record: %w", err)
	}
	return &rec, nil
}

// UpdateFields applies a sparse field map via a single UpdateItem expression,
// bumping generation and refreshing updated_at in the same write. Unknown
// field names are logged and ignored. Returns (false, nil) when the record
// does not exist.
func (s *Store) UpdateFields(ctx context.Context, sopID string, updates map[string]interface{}, updatedBy string) (bool, error) {
	names := map[string]string{
		"#ua": "updated_at",
		"#ub": "updated_by",
	}
	if updatedBy == "" {
		updatedBy = "system"
	}
	values := map[string]types.AttributeValue{
		":ua":  &types.AttributeValueMemberS{Value: formatTimestamp(s.nowFunc())},
		":ub":  &types.AttributeValueMemberS{Value: updatedBy},
		":inc": &types.AttributeValueMemberN{Value: "1"},
	}
	sets := []string{"#ua = :ua", "#ub = :ub"}

	// Deterministic placeholder assignment.
	fields := make([]string, 0, len(updates))
	for field := range updates {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	i := 0
	for _, field := range fields {
		attr, ok := updatableAttrs[field]
		if !ok {
			s.logger.Warn("unknown field in sop update",
				zap.String("sopId", sopID),
				zap.String("field", field))
			continue
		}
		if attr == "updated_by" {
			continue // set from the updatedBy argument, not the field map
		}
		av, err := attributevalue.Marshal(updates[field])
		if err != nil {
			return false, fmt.Errorf("marshal field %s: %w", field, err)
		}
		nameKey := fmt.Sprintf("#f%d", i)
		valueKey := fmt.Sprintf(":v%d", i)
		names[nameKey] = attr
		values[valueKey] = av
		sets = append(sets, nameKey+" = "+valueKey)
		i++
	}

	input := &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"sop_id":      &types.AttributeValueMemberS{Value: sopID},
			"record_type": &types.AttributeValueMemberS{Value: RecordTypeSOP},
		},
		UpdateExpression:          awsString("SET " + strings.Join(sets, ", ") + " ADD generation :inc"),
		ConditionExpression:       awsString("attribute_exists(sop_id)"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	}

	if _, err := s.client.UpdateItem(ctx, input); err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ConditionalCheckFailedException" {
			return false, nil
		}
		return false, fmt.Errorf("update sop record: %w", err)
	}
	return true, nil
}

// List routes a SOP listing to the cheapest path: the job-name index, then
// the abend-type index, then a table scan. A search term becomes a
// contains(sop_name) refinement on whichever path runs.
func (s *Store) List(ctx context.Context, jobName, abendType, search string, limit int32, cursor *pagination.Cursor) ([]Record, *pagination.Cursor, error) {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	var startKey map[string]string
	if cursor != nil {
		startKey = cursor.LastKey
	}

	var (
		records []Record
		lastKey map[string]string
		err     error
	)
	switch {
	case jobName != "":
		records, lastKey, err = s.queryIndex(ctx, indexJobName, "job_name", jobName, search, limit, startKey)
	case abendType != "":
		records, lastKey, err = s.queryIndex(ctx, indexAbendType, "abend_type", abendType, search, limit, startKey)
	default:
		s.logger.Warn("sop listing degraded to table scan", zap.Bool("hasSearch", search != ""))
		records, lastKey, err = s.scan(ctx, search, limit, startKey)
	}
	if err != nil {
		return nil, nil, err
	}
	return records, pagination.Simple(lastKey), nil
}

// Delete is declared by the API surface but intentionally unimplemented.
func (s *Store) Delete(ctx context.Context, sopID string) error {
	s.logger.Warn("sop deletion not yet implemented", zap.String("sopId", sopID))
	return ErrNotImplemented
}

func (s *Store) queryIndex(ctx context.Context, indexName, hashAttr, hashValue, search string, limit int32, startKey map[string]string) ([]Record, map[string]string, error) {
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
		ScanIndexForward: awsBool(false), // most recent first
		Limit:            &limit,
	}
	if search != "" {
		input.ExpressionAttributeNames["#sn"] = "sop_name"
		input.ExpressionAttributeValues[":sn"] = &types.AttributeValueMemberS{Value: search}
		input.FilterExpression = awsString("contains(#sn, :sn)")
	}
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

func (s *Store) scan(ctx context.Context, search string, limit int32, startKey map[string]string) ([]Record, map[string]string, error) {
	input := &dyn.ScanInput{
		TableName: &s.tableName,
		ExpressionAttributeNames: map[string]string{
			"#rt": "record_type",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":rt": &types.AttributeValueMemberS{Value: RecordTypeSOP},
		},
		Limit: &limit,
	}
	filterExpr := "#rt = :rt"
	if search != "" {
		input.ExpressionAttributeNames["#sn"] = "sop_name"
		input.ExpressionAttributeValues[":sn"] = &types.AttributeValueMemberS{Value: search}
		filterExpr += " AND contains(#sn, :sn)"
	}
	input.FilterExpression = &filterExpr
	if len(startKey) > 0 {
		input.ExclusiveStartKey = pagination.ToExclusiveStartKey(startKey)
	}

	out, err := s.client.Scan(ctx, input)
	if err != nil {
		return nil, nil, fmt.Errorf("scan sop table: %w", err)
	}
	records, err := unmarshalRecords(out.Items)
	if err != nil {
		return nil, nil, err
	}
	return records, pagination.FromLastEvaluatedKey(out.LastEvaluatedKey), nil
}

func unmarshalRecords(items []map[string]types.AttributeValue) ([]Record, error) {
	records := make([]Record, 0, len(items))
	for _, item := range items {
		var rec Record
		if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
			return nil, fmt.Errorf("unmarshal sop record: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func awsString(s string) *string { return &s }
func awsBool(b bool) *bool       { return &b }
