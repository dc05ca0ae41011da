package pagination

import (
	"encoding/base64"
	"reflect"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func strPtr(s string) *string { return &s }

func TestEncodeDecode_RoundTripSimple(t *testing.T) {
	token := Simple(map[string]string{
		"tracking_id":  "ABEND_JOB1_01HZXW5T9GQ8K4N2M7P3R6S8VB",
		"record_type":  "ABEND",
		"abended_date": "2025-03-10",
		"abended_at":   "2025-03-10T14:23:05Z",
	})

	encoded := Encode(token)
	if encoded == nil {
		t.Fatal("expected non-nil encoded cursor")
	}

	decoded := Decode(encoded)
	if !reflect.DeepEqual(decoded, token) {
		t.Fatalf("round trip mismatch: got %+v want %+v", decoded, token)
	}
}

func TestEncodeDecode_RoundTripCrossPartition(t *testing.T) {
	token := CrossPartition(2, map[string]string{
		"tracking_id": "ABEND_JOB1_01HZXW5T9GQ8K4N2M7P3R6S8VB",
		"record_type": "ABEND",
	})

	decoded := Decode(Encode(token))
	if !reflect.DeepEqual(decoded, token) {
		t.Fatalf("round trip mismatch: got %+v want %+v", decoded, token)
	}
	if !decoded.IsCrossPartition() {
		t.Error("expected cross-partition token")
	}
	if *decoded.ResumePartition != 2 {
		t.Errorf("expected resume partition 2, got %d", *decoded.ResumePartition)
	}
}

func TestEncodeDecode_RoundTripCrossPartitionNoInner(t *testing.T) {
	token := CrossPartition(5, nil)
	decoded := Decode(Encode(token))
	if !reflect.DeepEqual(decoded, token) {
		t.Fatalf("round trip mismatch: got %+v want %+v", decoded, token)
	}
}

func TestEncode_NilAndEmpty(t *testing.T) {
	if Encode(nil) != nil {
		t.Error("expected nil for nil token")
	}
	if Encode(&Cursor{}) != nil {
		t.Error("expected nil for empty token")
	}
	if Simple(nil) != nil {
		t.Error("expected nil Simple for empty key")
	}
}

func TestDecode_NilAndEmptyString(t *testing.T) {
	if Decode(nil) != nil {
		t.Error("expected nil for nil cursor")
	}
	if Decode(strPtr("")) != nil {
		t.Error("expected nil for empty string cursor")
	}
}

func TestDecode_FailOpen(t *testing.T) {
	cases := map[string]string{
		"bad base64":           "not-valid-base64!!",
		"base64 of non-JSON":   base64.StdEncoding.EncodeToString([]byte("hello world")),
		"JSON array":           base64.StdEncoding.EncodeToString([]byte(`["a","b"]`)),
		"JSON number":          base64.StdEncoding.EncodeToString([]byte(`42`)),
		"JSON string":          base64.StdEncoding.EncodeToString([]byte(`"cursor"`)),
		"empty JSON object":    base64.StdEncoding.EncodeToString([]byte(`{}`)),
		"wrong field types":    base64.StdEncoding.EncodeToString([]byte(`{"lastKey":"not-a-map"}`)),
		"resume as string":     base64.StdEncoding.EncodeToString([]byte(`{"resumePartition":"two"}`)),
		"truncated base64 pad": "eyJsYXN0S2V5",
	}
	for name, raw := range cases {
		if got := Decode(strPtr(raw)); got != nil {
			t.Errorf("%s: expected nil decode, got %+v", name, got)
		}
		if IsValid(strPtr(raw)) {
			t.Errorf("%s: expected invalid cursor", name)
		}
	}
}

func TestIsValid(t *testing.T) {
	if !IsValid(nil) {
		t.Error("nil cursor must be valid")
	}
	if IsValid(strPtr("")) {
		t.Error("empty string cursor must be invalid")
	}

	good := Encode(Simple(map[string]string{"tracking_id": "ABEND_X_1", "record_type": "ABEND"}))
	if !IsValid(good) {
		t.Error("expected encoded cursor to be valid")
	}
}

func TestDecode_NestedShapes(t *testing.T) {
	// A token carrying both a simple key and cross-partition fields still
	// round-trips; interpretation is the caller's concern.
	token := &Cursor{
		LastKey:         map[string]string{"tracking_id": "ABEND_X_1"},
		ResumePartition: intPtr(1),
		Inner:           map[string]string{"tracking_id": "ABEND_Y_2"},
	}
	decoded := Decode(Encode(token))
	if !reflect.DeepEqual(decoded, token) {
		t.Fatalf("round trip mismatch: got %+v want %+v", decoded, token)
	}
}

func intPtr(i int) *int { return &i }

func TestEncode_Deterministic(t *testing.T) {
	token := Simple(map[string]string{"b": "2", "a": "1", "c": "3"})
	first := Encode(token)
	for i := 0; i < 5; i++ {
		if next := Encode(token); *next != *first {
			t.Fatal("expected deterministic encoding for identical tokens")
		}
	}
}

func TestLastEvaluatedKeyConversion(t *testing.T) {
	key := map[string]types.AttributeValue{
		"tracking_id": &types.AttributeValueMemberS{Value: "ABEND_X_1"},
		"record_type": &types.AttributeValueMemberS{Value: "ABEND"},
	}

	flat := FromLastEvaluatedKey(key)
	if len(flat) != 2 || flat["tracking_id"] != "ABEND_X_1" {
		t.Fatalf("unexpected flattened key: %+v", flat)
	}

	rebuilt := ToExclusiveStartKey(flat)
	if !reflect.DeepEqual(rebuilt, key) {
		t.Fatalf("rebuild mismatch: got %+v want %+v", rebuilt, key)
	}

	if FromLastEvaluatedKey(nil) != nil {
		t.Error("expected nil for empty last evaluated key")
	}
	if ToExclusiveStartKey(nil) != nil {
		t.Error("expected nil for empty cursor key")
	}
}
