package validation

import (
	"testing"

	"github.com/adrplatform/abend-tracker/internal/pagination"
)

func TestListAbendsQuery_Valid(t *testing.T) {
	v := New()

	q := ListAbendsQuery{
		ADRStatus: "RESOLVED",
		Severity:  "High",
		StartDate: "2025-03-01",
		EndDate:   "2025-03-03",
		Search:    "PAYROLL",
		Limit:     5,
	}
	if err := v.Struct(q); err != nil {
		t.Fatalf("expected valid, got: %v", err)
	}
}

func TestListAbendsQuery_EndBeforeStart(t *testing.T) {
	v := New()

	q := ListAbendsQuery{StartDate: "2025-03-10", EndDate: "2025-03-01"}
	if err := v.Struct(q); err == nil {
		t.Fatal("expected validation error for end before start")
	}
}

func TestListAbendsQuery_SingleDateExcludesRange(t *testing.T) {
	v := New()

	q := ListAbendsQuery{AbendedAt: "2025-03-05", StartDate: "2025-03-01"}
	if err := v.Struct(q); err == nil {
		t.Fatal("expected validation error for single date plus range")
	}
}

func TestListAbendsQuery_MalformedDate(t *testing.T) {
	v := New()

	for _, bad := range []string{"03-01-2025", "2025/03/01", "yesterday"} {
		q := ListAbendsQuery{StartDate: bad}
		if err := v.Struct(q); err == nil {
			t.Errorf("date %q passed validation", bad)
		}
	}
}

func TestListAbendsQuery_CursorStrictAtIngress(t *testing.T) {
	v := New()

	bad := "%%%not-a-cursor%%%"
	if err := v.Struct(ListAbendsQuery{Cursor: &bad}); err == nil {
		t.Fatal("malformed cursor passed ingress validation")
	}

	empty := ""
	if err := v.Struct(ListAbendsQuery{Cursor: &empty}); err == nil {
		t.Fatal("empty-string cursor passed ingress validation")
	}

	good := pagination.Encode(pagination.Simple(map[string]string{"tracking_id": "ABEND_X_1"}))
	if err := v.Struct(ListAbendsQuery{Cursor: good}); err != nil {
		t.Fatalf("well-formed cursor rejected: %v", err)
	}

	if err := v.Struct(ListAbendsQuery{}); err != nil {
		t.Fatalf("absent cursor rejected: %v", err)
	}
}

func TestListAbendsQuery_LimitBounds(t *testing.T) {
	v := New()

	if err := v.Struct(ListAbendsQuery{Limit: 11}); err == nil {
		t.Error("limit 11 passed, max is 10")
	}
	if err := v.Struct(ListAbendsQuery{Limit: -1}); err == nil {
		t.Error("negative limit passed")
	}
	if err := v.Struct(ListAbendsQuery{Limit: 10}); err != nil {
		t.Errorf("limit 10 rejected: %v", err)
	}
}

func TestCreateAbendRequest_Valid(t *testing.T) {
	v := New()

	req := CreateAbendRequest{
		JobName:         "PAYROLL_01",
		AbendedAt:       "2025-03-10T08:30:00Z",
		Severity:        "High",
		ServiceNowGroup: "MAINFRAME_OPS",
		IncidentID:      "INC0012345",
	}
	if err := v.Struct(req); err != nil {
		t.Fatalf("expected valid, got: %v", err)
	}

	// Offset form is equivalent to Z.
	req.AbendedAt = "2025-03-10T08:30:00+00:00"
	if err := v.Struct(req); err != nil {
		t.Fatalf("offset timestamp rejected: %v", err)
	}
}

func TestCreateAbendRequest_Invalid(t *testing.T) {
	v := New()

	if err := v.Struct(CreateAbendRequest{}); err == nil {
		t.Error("empty request passed")
	}

	req := CreateAbendRequest{
		JobName:         "X",
		AbendedAt:       "last tuesday",
		Severity:        "High",
		ServiceNowGroup: "G",
		IncidentID:      "I",
	}
	if err := v.Struct(req); err == nil {
		t.Error("unparseable timestamp passed")
	}

	req.AbendedAt = "2025-03-10T08:30:00Z"
	req.Severity = "Catastrophic"
	if err := v.Struct(req); err == nil {
		t.Error("unknown severity passed")
	}
}

func TestApprovalRequest(t *testing.T) {
	v := New()

	if err := v.Struct(ApprovalRequest{ApprovalStatus: "APPROVED"}); err != nil {
		t.Errorf("APPROVED rejected: %v", err)
	}
	if err := v.Struct(ApprovalRequest{ApprovalStatus: "MAYBE"}); err == nil {
		t.Error("unknown approval status passed")
	}
}

func TestCreateAuditLogRequest(t *testing.T) {
	v := New()

	req := CreateAuditLogRequest{
		TrackingID: "ABEND_PAYROLL_01_01HQXK",
		Level:      "WARNING",
		ADRStatus:  "MANUAL_ANALYSIS_REQUIRED",
		Message:    "analysis timed out",
	}
	if err := v.Struct(req); err != nil {
		t.Fatalf("expected valid, got: %v", err)
	}

	req.Level = "VERBOSE"
	if err := v.Struct(req); err == nil {
		t.Error("unknown audit level passed")
	}
}

func TestListSOPsQuery_Cursor(t *testing.T) {
	v := New()

	bad := "!!!"
	if err := v.Struct(ListSOPsQuery{Cursor: &bad}); err == nil {
		t.Fatal("malformed SOP cursor passed")
	}
	if err := v.Struct(ListSOPsQuery{JobName: "JOB_A", Limit: 50}); err != nil {
		t.Fatalf("valid SOP query rejected: %v", err)
	}
}
