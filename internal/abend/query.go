package abend

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/adrplatform/abend-tracker/internal/pagination"
)

// ErrInvalidDateRange is returned before any storage call when the requested
// end date precedes the start date.
var ErrInvalidDateRange = errors.New("end date must not be before start date")

// ListQuery carries the parameters of one listing request.
type ListQuery struct {
	Filters
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int32
	Cursor    *pagination.Cursor
}

// List routes a listing query to the cheapest access path:
//
//  1. no dates: today's partition
//  2. a single date (either bound): that partition
//  3. equal dates: that partition
//  4. end before start: ErrInvalidDateRange, no storage call
//  5. a real range: day-by-day walk across partitions
//
// Within a partition the date filter is satisfied by the hash key, so only the
// remaining filters become a filter expression.
func (s *Store) List(ctx context.Context, q ListQuery) ([]Record, *pagination.Cursor, error) {
	if q.Limit <= 0 {
		q.Limit = DefaultPageLimit
	}

	var target time.Time
	switch {
	case q.StartDate == nil && q.EndDate == nil:
		target = s.nowFunc()
	case q.StartDate != nil && q.EndDate == nil:
		target = *q.StartDate
	case q.StartDate == nil && q.EndDate != nil:
		target = *q.EndDate
	case formatDate(*q.StartDate) == formatDate(*q.EndDate):
		target = *q.StartDate
	case q.EndDate.Before(*q.StartDate):
		return nil, nil, ErrInvalidDateRange
	default:
		return s.listDateRange(ctx, q)
	}

	pred := BuildPredicate(q.Filters)
	var startKey map[string]string
	if q.Cursor != nil {
		startKey = q.Cursor.LastKey
	}
	records, lastKey, err := s.queryDatePartition(ctx, formatDate(target), pred, q.Limit, startKey)
	if err != nil {
		return nil, nil, err
	}
	return records, pagination.Simple(lastKey), nil
}

// ListUnscoped serves listing queries with no date dimension at all. A filter
// that has its own index routes there, with that filter lifted into the key
// condition and the rest left as a filter expression. Priority: status, then
// severity, then domain. A free-text search term has no index to serve it and
// falls to a table scan with the widened search predicate; an entirely empty
// query scans with only the limit.
func (s *Store) ListUnscoped(ctx context.Context, f Filters, limit int32, cursor *pagination.Cursor) ([]Record, *pagination.Cursor, error) {
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
	case f.ADRStatus != "":
		pred := BuildPredicate(f.without("adr_status"))
		records, lastKey, err = s.queryFilterIndex(ctx, indexADRStatus, "adr_status", f.ADRStatus, pred, limit, startKey)
	case f.Severity != "":
		pred := BuildPredicate(f.without("severity"))
		records, lastKey, err = s.queryFilterIndex(ctx, indexSeverity, "severity", f.Severity, pred, limit, startKey)
	case f.DomainArea != "":
		pred := BuildPredicate(f.without("domain_area"))
		records, lastKey, err = s.queryFilterIndex(ctx, indexDomainArea, "domain_area", f.DomainArea, pred, limit, startKey)
	default:
		s.logger.Warn("listing degraded to table scan",
			zap.Bool("hasSearch", f.Search != ""),
			zap.Int32("limit", limit))
		records, lastKey, err = s.scanAll(ctx, BuildDetailPredicate(f), limit, startKey)
	}
	if err != nil {
		return nil, nil, err
	}
	return records, pagination.Simple(lastKey), nil
}
