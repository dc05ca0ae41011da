package abend

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// mockDynamo is an in-memory stand-in for the DynamoDB client. It stores rows
// as a flat slice and evaluates the restricted expression grammar this
// package emits: "#a = :b" equality clauses joined by AND, begins_with and
// BETWEEN in key conditions, and a parenthesized OR group of contains()
// clauses.
//
// Limit is applied before the filter expression, matching the real service:
// a query can return fewer than Limit matches while signalling more data via
// LastEvaluatedKey.
type mockDynamo struct {
	mu   sync.Mutex
	rows []map[string]types.AttributeValue

	queryCalls int
	scanCalls  int
	putCalls   int
	getCalls   int

	lastIndexName string

	// failDates makes queries whose hash value is one of these dates fail.
	failDates map[string]bool
	// failPutPrefix makes PutItem fail for rows whose record_type has this
	// prefix. Used to break audit writes without breaking the main row.
	failPutPrefix string
}

func newMockDynamo() *mockDynamo {
	return &mockDynamo{failDates: map[string]bool{}}
}

func attrS(item map[string]types.AttributeValue, name string) string {
	v, ok := item[name]
	if !ok {
		return ""
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return ""
	}
	return s.Value
}

func (m *mockDynamo) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putCalls++

	pk := attrS(params.Item, "tracking_id")
	sk := attrS(params.Item, "record_type")
	if pk == "" || sk == "" {
		return nil, errors.New("missing table key")
	}
	if m.failPutPrefix != "" && strings.HasPrefix(sk, m.failPutPrefix) {
		return nil, errors.New("injected put failure")
	}
	if params.ConditionExpression != nil && *params.ConditionExpression == "attribute_not_exists(tracking_id)" {
		if m.find(pk, sk) >= 0 {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	if i := m.find(pk, sk); i >= 0 {
		m.rows[i] = params.Item
	} else {
		m.rows = append(m.rows, params.Item)
	}
	return &dyn.PutItemOutput{}, nil
}

func (m *mockDynamo) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++

	i := m.find(attrS(params.Key, "tracking_id"), attrS(params.Key, "record_type"))
	if i < 0 {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: m.rows[i]}, nil
}

func (m *mockDynamo) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	return nil, errors.New("UpdateItem not supported by this mock")
}

func (m *mockDynamo) DescribeTable(ctx context.Context, params *dyn.DescribeTableInput, optFns ...func(*dyn.Options)) (*dyn.DescribeTableOutput, error) {
	return &dyn.DescribeTableOutput{}, nil
}

func (m *mockDynamo) Query(ctx context.Context, params *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queryCalls++

	if params.IndexName != nil {
		m.lastIndexName = *params.IndexName
	} else {
		m.lastIndexName = ""
	}

	names := params.ExpressionAttributeNames
	values := params.ExpressionAttributeValues

	cond, err := parseKeyCondition(*params.KeyConditionExpression, names, values)
	if err != nil {
		return nil, err
	}
	if cond.hashAttr == "abended_date" && m.failDates[cond.hashValue] {
		return nil, errors.New("injected partition failure")
	}

	// Index queries sort on abended_at; the main table sorts on record_type.
	sortAttr := "record_type"
	if params.IndexName != nil {
		sortAttr = "abended_at"
	}

	var matched []map[string]types.AttributeValue
	for _, row := range m.rows {
		// GSI semantics: rows missing the index hash key are not in the index.
		if params.IndexName != nil && attrS(row, cond.hashAttr) == "" {
			continue
		}
		if !cond.matches(row) {
			continue
		}
		matched = append(matched, row)
	}

	sort.SliceStable(matched, func(a, b int) bool {
		return attrS(matched[a], sortAttr) < attrS(matched[b], sortAttr)
	})
	if params.ScanIndexForward != nil && !*params.ScanIndexForward {
		for a, b := 0, len(matched)-1; a < b; a, b = a+1, b-1 {
			matched[a], matched[b] = matched[b], matched[a]
		}
	}

	start := 0
	if len(params.ExclusiveStartKey) > 0 {
		startPK := attrS(params.ExclusiveStartKey, "tracking_id")
		startSK := attrS(params.ExclusiveStartKey, "record_type")
		for i, row := range matched {
			if attrS(row, "tracking_id") == startPK && attrS(row, "record_type") == startSK {
				start = i + 1
				break
			}
		}
	}
	matched = matched[start:]

	window := matched
	var lastKey map[string]types.AttributeValue
	if params.Limit != nil && int(*params.Limit) < len(matched) {
		window = matched[:*params.Limit]
		lastKey = rowKey(window[len(window)-1])
	}

	var results []map[string]types.AttributeValue
	for _, row := range window {
		if params.FilterExpression == nil || evalFilter(*params.FilterExpression, names, values, row) {
			results = append(results, row)
		}
	}

	out := &dyn.QueryOutput{
		Items:            results,
		Count:            int32(len(results)),
		LastEvaluatedKey: lastKey,
	}
	if params.Select == types.SelectCount {
		out.Items = nil
	}
	return out, nil
}

func (m *mockDynamo) Scan(ctx context.Context, params *dyn.ScanInput, optFns ...func(*dyn.Options)) (*dyn.ScanOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scanCalls++

	matched := append([]map[string]types.AttributeValue{}, m.rows...)

	start := 0
	if len(params.ExclusiveStartKey) > 0 {
		startPK := attrS(params.ExclusiveStartKey, "tracking_id")
		startSK := attrS(params.ExclusiveStartKey, "record_type")
		for i, row := range matched {
			if attrS(row, "tracking_id") == startPK && attrS(row, "record_type") == startSK {
				start = i + 1
				break
			}
		}
	}
	matched = matched[start:]

	window := matched
	var lastKey map[string]types.AttributeValue
	if params.Limit != nil && int(*params.Limit) < len(matched) {
		window = matched[:*params.Limit]
		lastKey = rowKey(window[len(window)-1])
	}

	var results []map[string]types.AttributeValue
	for _, row := range window {
		if params.FilterExpression == nil || evalFilter(*params.FilterExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues, row) {
			results = append(results, row)
		}
	}
	return &dyn.ScanOutput{
		Items:            results,
		Count:            int32(len(results)),
		LastEvaluatedKey: lastKey,
	}, nil
}

func (m *mockDynamo) find(pk, sk string) int {
	for i, row := range m.rows {
		if attrS(row, "tracking_id") == pk && attrS(row, "record_type") == sk {
			return i
		}
	}
	return -1
}

func rowKey(row map[string]types.AttributeValue) map[string]types.AttributeValue {
	key := map[string]types.AttributeValue{
		"tracking_id": row["tracking_id"],
		"record_type": row["record_type"],
	}
	for _, attr := range []string{"abended_date", "abended_at"} {
		if v, ok := row[attr]; ok {
			key[attr] = v
		}
	}
	return key
}

// keyCondition is the parsed form of the key conditions this package emits.
type keyCondition struct {
	hashAttr  string
	hashValue string

	rangeAttr string
	op        string // "", "begins_with", "between"
	lo, hi    string
	prefix    string
}

func parseKeyCondition(expr string, names map[string]string, values map[string]types.AttributeValue) (*keyCondition, error) {
	resolveName := func(token string) string { return names[token] }
	resolveValue := func(token string) string {
		v, ok := values[token].(*types.AttributeValueMemberS)
		if !ok {
			return ""
		}
		return v.Value
	}

	cond := &keyCondition{}
	for _, clause := range splitKeyClauses(expr) {
		clause = strings.TrimSpace(clause)
		switch {
		case strings.HasPrefix(clause, "begins_with("):
			inner := strings.TrimSuffix(strings.TrimPrefix(clause, "begins_with("), ")")
			parts := strings.Split(inner, ",")
			if len(parts) != 2 {
				return nil, errors.New("bad begins_with: " + clause)
			}
			cond.rangeAttr = resolveName(strings.TrimSpace(parts[0]))
			cond.op = "begins_with"
			cond.prefix = resolveValue(strings.TrimSpace(parts[1]))
		case strings.Contains(clause, " BETWEEN "):
			fields := strings.Fields(clause) // [#sk BETWEEN :start AND? ...] handled below
			if len(fields) != 5 || fields[1] != "BETWEEN" || fields[3] != "AND" {
				return nil, errors.New("bad between: " + clause)
			}
			cond.rangeAttr = resolveName(fields[0])
			cond.op = "between"
			cond.lo = resolveValue(fields[2])
			cond.hi = resolveValue(fields[4])
		case strings.Contains(clause, " = "):
			parts := strings.SplitN(clause, " = ", 2)
			cond.hashAttr = resolveName(strings.TrimSpace(parts[0]))
			cond.hashValue = resolveValue(strings.TrimSpace(parts[1]))
		default:
			return nil, errors.New("unsupported key condition: " + clause)
		}
	}
	return cond, nil
}

// The store emits BETWEEN as "#sk BETWEEN :start AND :end", which the AND
// split above cuts in half. Re-stitch before parsing.
func splitKeyClauses(expr string) []string {
	parts := strings.Split(expr, " AND ")
	var out []string
	for i := 0; i < len(parts); i++ {
		if strings.Contains(parts[i], "BETWEEN") && i+1 < len(parts) {
			out = append(out, parts[i]+" AND "+parts[i+1])
			i++
			continue
		}
		out = append(out, parts[i])
	}
	return out
}

func (c *keyCondition) matches(row map[string]types.AttributeValue) bool {
	if attrS(row, c.hashAttr) != c.hashValue {
		return false
	}
	switch c.op {
	case "begins_with":
		return strings.HasPrefix(attrS(row, c.rangeAttr), c.prefix)
	case "between":
		v := attrS(row, c.rangeAttr)
		return v >= c.lo && v <= c.hi
	}
	return true
}

// evalFilter evaluates a filter expression against one row. Supported
// grammar: top-level AND of equality clauses and one parenthesized OR group
// of contains() clauses.
func evalFilter(expr string, names map[string]string, values map[string]types.AttributeValue, row map[string]types.AttributeValue) bool {
	for _, clause := range splitTopLevelAnd(expr) {
		if !evalClause(clause, names, values, row) {
			return false
		}
	}
	return true
}

func splitTopLevelAnd(expr string) []string {
	var clauses []string
	depth, start := 0, 0
	for i := 0; i+5 <= len(expr); i++ {
		switch expr[i] {
		case '(':
			depth++
		case ')':
			depth--
		}
		if depth == 0 && strings.HasPrefix(expr[i:], " AND ") {
			clauses = append(clauses, expr[start:i])
			i += 4
			start = i + 1
		}
	}
	clauses = append(clauses, expr[start:])
	return clauses
}

func evalClause(clause string, names map[string]string, values map[string]types.AttributeValue, row map[string]types.AttributeValue) bool {
	clause = strings.TrimSpace(clause)
	valueOf := func(token string) string {
		v, ok := values[token].(*types.AttributeValueMemberS)
		if !ok {
			return ""
		}
		return v.Value
	}

	if strings.HasPrefix(clause, "(") && strings.HasSuffix(clause, ")") {
		for _, or := range strings.Split(clause[1:len(clause)-1], " OR ") {
			if evalClause(or, names, values, row) {
				return true
			}
		}
		return false
	}
	if strings.HasPrefix(clause, "contains(") {
		inner := strings.TrimSuffix(strings.TrimPrefix(clause, "contains("), ")")
		parts := strings.Split(inner, ",")
		attr := names[strings.TrimSpace(parts[0])]
		needle := valueOf(strings.TrimSpace(parts[1]))
		return strings.Contains(attrS(row, attr), needle)
	}
	if strings.Contains(clause, " = ") {
		parts := strings.SplitN(clause, " = ", 2)
		attr := names[strings.TrimSpace(parts[0])]
		return attrS(row, attr) == valueOf(strings.TrimSpace(parts[1]))
	}
	return false
}
