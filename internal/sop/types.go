package sop

import (
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// RecordTypeSOP is the fixed sort-key discriminant for SOP rows.
const RecordTypeSOP = "SOP"

// Record is the SOP (standard operating procedure) row persisted in DynamoDB.
// Audit fields mirror the ABEND record's.
type Record struct {
	SOPID      string `dynamodbav:"sop_id"`      // PK
	RecordType string `dynamodbav:"record_type"` // SK, always "SOP"

	SOPName   string `dynamodbav:"sop_name"`
	JobName   string `dynamodbav:"job_name"`
	AbendType string `dynamodbav:"abend_type"`

	SourceDocumentURL     string   `dynamodbav:"source_document_url"`
	ProcessedDocumentURLs []string `dynamodbav:"processed_document_urls"`

	CreatedAt  string `dynamodbav:"created_at"`
	UpdatedAt  string `dynamodbav:"updated_at"`
	CreatedBy  string `dynamodbav:"created_by"`
	UpdatedBy  string `dynamodbav:"updated_by"`
	Generation int    `dynamodbav:"generation"`
}

// NewSOPID generates a SOP id in the format SOP_{ULID}.
func NewSOPID() string {
	return fmt.Sprintf("SOP_%s", ulid.Make())
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}
