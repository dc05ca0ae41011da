package abend

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/adrplatform/abend-tracker/internal/pagination"
)

// listDateRange walks the date partitions of [start, end] in calendar order,
// filling one page of up to q.Limit records. A composite cursor records where
// the walk stopped: the partition index within the range plus the continuation
// key inside that partition.
//
// DynamoDB applies Limit before filter expressions, so a partition can return
// short pages while still holding matches; each partition is drained through
// its continuation key before the walk moves on. A partition that fails to
// query is logged and skipped so one bad day cannot sink the whole range.
func (s *Store) listDateRange(ctx context.Context, q ListQuery) ([]Record, *pagination.Cursor, error) {
	dates := enumerateDates(*q.StartDate, *q.EndDate)
	pred := BuildPredicate(q.Filters)

	startIdx := 0
	var innerKey map[string]string
	if q.Cursor != nil && q.Cursor.IsCrossPartition() {
		startIdx = *q.Cursor.ResumePartition
		innerKey = q.Cursor.Inner
	}
	if startIdx >= len(dates) {
		return []Record{}, nil, nil
	}

	collected := make([]Record, 0, q.Limit)
	for i := startIdx; i < len(dates); i++ {
		key := map[string]string(nil)
		if i == startIdx {
			key = innerKey
		}

		for {
			remaining := q.Limit - int32(len(collected))
			records, lastKey, err := s.queryDatePartition(ctx, dates[i], pred, remaining, key)
			if err != nil {
				s.logger.Warn("skipping failed date partition",
					zap.String("date", dates[i]),
					zap.Error(err))
				break
			}
			collected = append(collected, records...)

			if int32(len(collected)) >= q.Limit {
				sortByAbendedAtDesc(collected)
				return collected, rangeCursor(i, lastKey, len(dates)), nil
			}
			if lastKey == nil {
				break
			}
			key = lastKey
		}
	}

	sortByAbendedAtDesc(collected)
	return collected, nil, nil
}

// rangeCursor builds the composite cursor for a page that filled mid-range:
// resume inside the current partition if it still has a continuation key,
// otherwise at the next partition, or nowhere if the range is spent.
func rangeCursor(partitionIdx int, lastKey map[string]string, numDates int) *pagination.Cursor {
	if lastKey != nil {
		return pagination.CrossPartition(partitionIdx, lastKey)
	}
	if partitionIdx+1 < numDates {
		return pagination.CrossPartition(partitionIdx+1, nil)
	}
	return nil
}

// enumerateDates lists the calendar dates of [start, end] inclusive, in UTC.
func enumerateDates(start, end time.Time) []string {
	var dates []string
	day := time.Date(start.UTC().Year(), start.UTC().Month(), start.UTC().Day(), 0, 0, 0, 0, time.UTC)
	last := time.Date(end.UTC().Year(), end.UTC().Month(), end.UTC().Day(), 0, 0, 0, 0, time.UTC)
	for !day.After(last) {
		dates = append(dates, formatDate(day))
		day = day.AddDate(0, 0, 1)
	}
	return dates
}

// sortByAbendedAtDesc orders a page most recent first. Timestamps are
// fixed-width RFC 3339 UTC strings, so lexicographic order is chronological.
func sortByAbendedAtDesc(records []Record) {
	sort.SliceStable(records, func(a, b int) bool {
		return records[a].AbendedAt > records[b].AbendedAt
	})
}
