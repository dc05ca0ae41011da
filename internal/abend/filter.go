package abend

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Filters are the optional equality/search criteria for a listing query. Date
// bounds are routed separately and never appear in the predicate.
type Filters struct {
	DomainArea string
	ADRStatus  string
	Severity   string
	Search     string
}

func (f Filters) empty() bool {
	return f.DomainArea == "" && f.ADRStatus == "" && f.Severity == "" && f.Search == ""
}

// Predicate is a store-evaluable filter expression with its name and value
// maps. All listing filters compile to server-side predicates; results are
// never post-filtered in process.
type Predicate struct {
	Expr   string
	Names  map[string]string
	Values map[string]types.AttributeValue
}

// searchAttrs are the attributes matched by the contains-disjunction in
// listing context. Detail contexts widen the set.
var searchAttrs = []string{"job_name", "tracking_id", "incident_number", "order_id"}

var detailSearchAttrs = append(append([]string{}, searchAttrs...), "abend_reason", "job_id")

// BuildPredicate translates the present filters into one conjunctive
// predicate. Absent filters contribute no clause, so adding filters can only
// shrink the result set. Search matching is case-sensitive substring: that is
// what the store evaluates, and the no-post-filtering rule leaves no place to
// fold case in process.
//
// Pure: identical inputs produce a structurally identical predicate. Returns
// nil when no filter is present.
func BuildPredicate(f Filters) *Predicate {
	return buildPredicate(f, searchAttrs)
}

// BuildDetailPredicate is BuildPredicate with the search disjunction widened
// to abend_reason and job_id. Used on whole-table scans, where the extra
// contains clauses cost nothing beyond the scan already being paid for.
func BuildDetailPredicate(f Filters) *Predicate {
	return buildPredicate(f, detailSearchAttrs)
}

func buildPredicate(f Filters, search []string) *Predicate {
	if f.empty() {
		return nil
	}

	p := &Predicate{
		Names:  map[string]string{},
		Values: map[string]types.AttributeValue{},
	}
	var clauses []string

	addEquality := func(attr, placeholder, value string) {
		if value == "" {
			return
		}
		p.Names["#"+placeholder] = attr
		p.Values[":"+placeholder] = &types.AttributeValueMemberS{Value: value}
		clauses = append(clauses, fmt.Sprintf("#%s = :%s", placeholder, placeholder))
	}

	addEquality("domain_area", "da", f.DomainArea)
	addEquality("adr_status", "st", f.ADRStatus)
	addEquality("severity", "sv", f.Severity)

	if f.Search != "" {
		p.Values[":search"] = &types.AttributeValueMemberS{Value: f.Search}
		var ors []string
		for i, attr := range search {
			placeholder := fmt.Sprintf("#srch%d", i)
			p.Names[placeholder] = attr
			ors = append(ors, fmt.Sprintf("contains(%s, :search)", placeholder))
		}
		clauses = append(clauses, "("+strings.Join(ors, " OR ")+")")
	}

	p.Expr = strings.Join(clauses, " AND ")
	return p
}

// without returns a copy of f with one field cleared, for queries where that
// field is already satisfied by the index key condition.
func (f Filters) without(field string) Filters {
	switch field {
	case "adr_status":
		f.ADRStatus = ""
	case "severity":
		f.Severity = ""
	case "domain_area":
		f.DomainArea = ""
	case "job_name":
		f.Search = ""
	}
	return f
}
