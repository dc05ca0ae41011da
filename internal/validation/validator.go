package validation

import (
	"time"

	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/adrplatform/abend-tracker/internal/pagination"
)

// New returns a configured validator with custom struct-level validation
// registered for the request types that need cross-field rules.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	v.RegisterStructValidation(listAbendsStructValidation, ListAbendsQuery{})
	v.RegisterStructValidation(createAbendStructValidation, CreateAbendRequest{})
	v.RegisterStructValidation(listSOPsStructValidation, ListSOPsQuery{})

	return v
}

// listAbendsStructValidation enforces the cross-field rules of the listing
// query: a single date excludes the range pair, the range must be ordered,
// and a supplied cursor must decode. Tag-level datetime validation has
// already run; unparseable dates are skipped here to avoid double reporting.
func listAbendsStructValidation(sl validatorv10.StructLevel) {
	q := sl.Current().Interface().(ListAbendsQuery)

	if q.AbendedAt != "" && (q.StartDate != "" || q.EndDate != "") {
		sl.ReportError(q.AbendedAt, "abendedAt", "AbendedAt", "single_date_excludes_range", "")
	}

	if q.StartDate != "" && q.EndDate != "" {
		start, errStart := time.Parse("2006-01-02", q.StartDate)
		end, errEnd := time.Parse("2006-01-02", q.EndDate)
		if errStart == nil && errEnd == nil && end.Before(start) {
			sl.ReportError(q.EndDate, "abendedAtEndDate", "EndDate", "end_before_start", "")
		}
	}

	if !pagination.IsValid(q.Cursor) {
		sl.ReportError(q.Cursor, "cursor", "Cursor", "invalid_cursor", "")
	}
}

// createAbendStructValidation checks that abendedAt parses as an ISO-8601
// timestamp, accepting a trailing Z or an explicit offset.
func createAbendStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(CreateAbendRequest)
	if req.AbendedAt == "" {
		return // required tag reports this
	}
	if _, err := ParseTimestamp(req.AbendedAt); err != nil {
		sl.ReportError(req.AbendedAt, "abendedAt", "AbendedAt", "invalid_timestamp", "")
	}
}

func listSOPsStructValidation(sl validatorv10.StructLevel) {
	q := sl.Current().Interface().(ListSOPsQuery)
	if !pagination.IsValid(q.Cursor) {
		sl.ReportError(q.Cursor, "cursor", "Cursor", "invalid_cursor", "")
	}
}

// ParseTimestamp parses an ISO-8601 timestamp, treating a trailing 'Z' and a
// +00:00 offset as equivalent.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// ParseDate parses a calendar-date string as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
