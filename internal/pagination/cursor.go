// Package pagination implements the opaque cursor format shared by all list
// endpoints: base64-encoded JSON of a continuation token. Two token shapes
// exist. A simple token carries the store's last-evaluated key for one
// partition. A cross-partition token additionally tags which date partition a
// range query should resume from.
//
// Decoding is deliberately split into two policies. IsValid is the strict
// boundary check used to reject malformed client cursors with a 400 before any
// query runs. Decode is the lenient internal path: any cursor that cannot be
// decoded is treated as "no cursor supplied" so a stale or corrupted token
// restarts pagination instead of failing the request.
package pagination

import (
	"encoding/base64"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Cursor is a decoded continuation token.
//
// A simple token has only LastKey set. A cross-partition token has
// ResumePartition set and optionally Inner, the last-evaluated key within the
// resume partition. Callers must not assume one shape: single-day queries
// return simple tokens, date-range queries return cross-partition tokens.
type Cursor struct {
	LastKey         map[string]string `json:"lastKey,omitempty"`
	ResumePartition *int              `json:"resumePartition,omitempty"`
	Inner           map[string]string `json:"inner,omitempty"`
}

// Simple builds a simple continuation token. Returns nil for an empty key so
// "no more pages" encodes as no cursor.
func Simple(lastKey map[string]string) *Cursor {
	if len(lastKey) == 0 {
		return nil
	}
	return &Cursor{LastKey: lastKey}
}

// CrossPartition builds a composite token resuming at partition index with an
// optional inner continuation key.
func CrossPartition(partitionIndex int, inner map[string]string) *Cursor {
	idx := partitionIndex
	c := &Cursor{ResumePartition: &idx}
	if len(inner) > 0 {
		c.Inner = inner
	}
	return c
}

// IsCrossPartition reports whether the token targets a partition list rather
// than a single partition.
func (c *Cursor) IsCrossPartition() bool {
	return c != nil && c.ResumePartition != nil
}

func (c *Cursor) empty() bool {
	return c == nil || (len(c.LastKey) == 0 && c.ResumePartition == nil && len(c.Inner) == 0)
}

// Encode serializes a token to its transport form. Nil or empty tokens encode
// to nil. Key ordering is deterministic: encoding/json sorts map keys.
func Encode(c *Cursor) *string {
	if c.empty() {
		return nil
	}
	data, err := json.Marshal(c)
	if err != nil {
		// Cursor contains only strings and ints; marshal cannot fail.
		return nil
	}
	encoded := base64.StdEncoding.EncodeToString(data)
	return &encoded
}

// Decode parses a transport cursor back into a token. Nil and empty strings
// decode to nil. Any parse failure also returns nil: the fail-open policy.
func Decode(cursor *string) *Cursor {
	if cursor == nil || *cursor == "" {
		return nil
	}

	data, err := base64.StdEncoding.DecodeString(*cursor)
	if err != nil {
		return nil
	}

	// Reject JSON that is not an object (an array or bare number decodes, but
	// is not a token).
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil
	}

	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return nil
	}
	if c.empty() {
		return nil
	}
	return &c
}

// IsValid is the strict ingress check. A nil cursor is valid (first page);
// anything else must decode cleanly.
func IsValid(cursor *string) bool {
	if cursor == nil {
		return true
	}
	if *cursor == "" {
		return false
	}
	return Decode(cursor) != nil
}

// FromLastEvaluatedKey flattens a DynamoDB last-evaluated key into the string
// map carried by cursors. Every key attribute in this schema is a string.
func FromLastEvaluatedKey(key map[string]types.AttributeValue) map[string]string {
	if len(key) == 0 {
		return nil
	}
	out := make(map[string]string, len(key))
	for name, av := range key {
		if s, ok := av.(*types.AttributeValueMemberS); ok {
			out[name] = s.Value
		}
	}
	return out
}

// ToExclusiveStartKey rebuilds the DynamoDB start key from a cursor key map.
func ToExclusiveStartKey(key map[string]string) map[string]types.AttributeValue {
	if len(key) == 0 {
		return nil
	}
	out := make(map[string]types.AttributeValue, len(key))
	for name, value := range key {
		out[name] = &types.AttributeValueMemberS{Value: value}
	}
	return out
}
