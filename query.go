/*
Package dyno – query and scan assembly.

A Query binds a table, an optional schema and an optional global index, and
renders QueryInput / ScanInput. Key conditions come from per-index key
filters whose partition values are pre-seeded from the schema's templates
when those resolve without data.
*/
package dyno

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// SelectMode chooses which attributes a query returns.
type SelectMode string

const (
	SelectAll       SelectMode = "ALL_ATTRIBUTES"
	SelectProjected SelectMode = "ALL_PROJECTED_ATTRIBUTES"
	SelectSpecific  SelectMode = "SPECIFIC_ATTRIBUTES"
	SelectCount     SelectMode = "COUNT"
)

// Query assembles a read against the table or one of its indexes.
type Query struct {
	table      *Table
	schema     *Schema
	index      string // active GSI, "" for primary
	filter     *Filter
	keyFilters map[string]*KeyFilter // "" → primary
	attributes []string
	selectMode SelectMode
	limit      int32
	consistent bool
	descending bool
	startKey   map[string]types.AttributeValue
}

// NewQuery starts a query. schemaName may be empty for cross-schema reads;
// an unknown schema is a configuration error.
func NewQuery(t *Table, schemaName string) (*Query, error) {
	q := &Query{
		table:      t,
		filter:     NewFilter(),
		keyFilters: map[string]*KeyFilter{"": NewKeyFilter()},
	}
	for _, idx := range t.IndexNames() {
		q.keyFilters[idx] = NewKeyFilter()
	}
	if schemaName != "" {
		s := t.Schema(schemaName)
		if s == nil {
			return nil, NewArgError(fmt.Sprintf("unknown schema %q", schemaName))
		}
		q.schema = s
		// Templates with no placeholders resolve against an empty bag and
		// seed the partition value up front.
		if pv, ok := s.KeyFormat().FormatPk(Item{}); ok {
			q.keyFilters[""].Pk(pv)
		}
		for _, idx := range t.IndexNames() {
			f := s.IndexFormat(idx)
			if f == nil {
				continue
			}
			if pv, ok := f.FormatPk(Item{}); ok {
				q.keyFilters[idx].Pk(pv)
			}
		}
	}
	return q, nil
}

// UseIndex targets a global index instead of the primary key.
func (q *Query) UseIndex(name string) error {
	if q.table.Index(name) == nil {
		return NewArgError(fmt.Sprintf("unknown index %q", name))
	}
	q.index = name
	return nil
}

// Filter returns the filter tree for non-key predicates.
func (q *Query) Filter() *Filter { return q.filter }

// KeyFilter returns the primary key condition builder.
func (q *Query) KeyFilter() *KeyFilter { return q.keyFilters[""] }

// IndexKeyFilter returns the key condition builder for a global index.
func (q *Query) IndexKeyFilter(name string) *KeyFilter { return q.keyFilters[name] }

// Limit caps the page size; zero means store default.
func (q *Query) Limit(n int32) *Query {
	q.limit = n
	return q
}

// ConsistentRead requests strong consistency. It is ignored (forced off) for
// scans and global index reads.
func (q *Query) ConsistentRead(on bool) *Query {
	q.consistent = on
	return q
}

// Descending reverses the sort order.
func (q *Query) Descending() *Query {
	q.descending = true
	return q
}

// Select sets the attribute selection mode.
func (q *Query) Select(mode SelectMode) *Query {
	q.selectMode = mode
	return q
}

// Attributes requests a specific projection and implies SelectSpecific.
func (q *Query) Attributes(names ...string) *Query {
	q.attributes = names
	return q
}

// StartKey resumes pagination from a native cursor; values are re-encoded
// with the kind of the key attribute they name.
func (q *Query) StartKey(cursor Item) *Query {
	if len(cursor) == 0 {
		q.startKey = nil
		return q
	}
	out := make(map[string]types.AttributeValue, len(cursor))
	for name, v := range cursor {
		if kind, ok := q.keyKind(name); ok {
			out[name] = tagKeyValue(kind, fmt.Sprintf("%v", v))
			continue
		}
		if av, err := tagScalar(v); err == nil {
			out[name] = av
		}
	}
	q.startKey = out
	return q
}

// StartKeyTagged resumes pagination from a previously returned tagged cursor.
func (q *Query) StartKeyTagged(cursor map[string]types.AttributeValue) *Query {
	q.startKey = cursor
	return q
}

func (q *Query) keyKind(name string) (Kind, bool) {
	k := q.table.Key()
	switch name {
	case k.Pk:
		return k.PkKind, true
	case k.Sk:
		return k.SkKind, true
	}
	for _, idx := range q.table.IndexNames() {
		g := q.table.Index(idx)
		switch name {
		case g.Pk:
			return g.PkKind, true
		case g.Sk:
			return g.SkKind, true
		}
	}
	return "", false
}

func (q *Query) activeKey() Key {
	if q.index == "" {
		return q.table.Key()
	}
	return q.table.Index(q.index).key()
}

// effectiveSelect resolves defaults and the projected→all downgrade on the
// primary index.
func (q *Query) effectiveSelect() SelectMode {
	mode := q.selectMode
	if mode == "" {
		if q.index != "" {
			mode = SelectProjected
		} else {
			mode = SelectAll
		}
	}
	if mode == SelectProjected && q.index == "" {
		mode = SelectAll
	}
	if len(q.attributes) > 0 && mode != SelectCount {
		mode = SelectSpecific
	}
	return mode
}

// filterExpression renders the filter tree plus the implicit discriminator
// predicate when a schema is bound.
func (q *Query) filterExpression(st *State) (string, error) {
	f := q.filter
	if q.schema != nil {
		f = NewFilter()
		f.Compare(q.table.SchemaField(), OpEq, q.schema.Name())
		if !q.filter.IsEmpty() {
			f.And(q.filter)
		}
	}
	if f.IsEmpty() {
		return "", nil
	}
	return f.Write(st)
}

func (q *Query) applySelect(st *State, setSelect func(types.Select), setProjection func(*string)) {
	mode := q.effectiveSelect()
	if mode == SelectSpecific {
		expr := ""
		for i, name := range q.attributes {
			if i > 0 {
				expr += ", "
			}
			expr += st.AliasPath(name)
		}
		setProjection(aws.String(expr))
	}
	setSelect(types.Select(mode))
}

// BuildQuery renders a QueryInput. A key condition is mandatory: the active
// index must have at least a partition value.
func (q *Query) BuildQuery() (*dynamodb.QueryInput, error) {
	kf := q.keyFilters[q.index]
	if kf == nil || kf.IsEmpty() {
		return nil, NewError("query requires a key condition", WithCode(ErrValidation))
	}
	st := NewState()
	keyExpr, err := kf.Write(q.activeKey(), st)
	if err != nil {
		return nil, err
	}
	input := &dynamodb.QueryInput{
		TableName:              aws.String(q.table.Name()),
		KeyConditionExpression: aws.String(keyExpr),
		ScanIndexForward:       aws.Bool(!q.descending),
		ReturnConsumedCapacity: types.ReturnConsumedCapacityIndexes,
	}
	if q.index != "" {
		input.IndexName = aws.String(q.index)
	}
	filterExpr, err := q.filterExpression(st)
	if err != nil {
		return nil, err
	}
	if filterExpr != "" {
		input.FilterExpression = aws.String(filterExpr)
	}
	q.applySelect(st,
		func(s types.Select) { input.Select = s },
		func(p *string) { input.ProjectionExpression = p })
	input.ExpressionAttributeNames = st.Names()
	input.ExpressionAttributeValues = st.Values()
	if q.limit > 0 {
		input.Limit = aws.Int32(q.limit)
	}
	// Strong consistency is only honored on the primary index.
	input.ConsistentRead = aws.Bool(q.consistent && q.index == "")
	if q.startKey != nil {
		input.ExclusiveStartKey = q.startKey
	}
	return input, nil
}

// BuildScan renders a ScanInput. Scans never use key conditions and never
// read consistently.
func (q *Query) BuildScan() (*dynamodb.ScanInput, error) {
	st := NewState()
	input := &dynamodb.ScanInput{
		TableName:              aws.String(q.table.Name()),
		ReturnConsumedCapacity: types.ReturnConsumedCapacityIndexes,
		ConsistentRead:         aws.Bool(false),
	}
	if q.index != "" {
		input.IndexName = aws.String(q.index)
	}
	filterExpr, err := q.filterExpression(st)
	if err != nil {
		return nil, err
	}
	if filterExpr != "" {
		input.FilterExpression = aws.String(filterExpr)
	}
	q.applySelect(st,
		func(s types.Select) { input.Select = s },
		func(p *string) { input.ProjectionExpression = p })
	input.ExpressionAttributeNames = st.Names()
	input.ExpressionAttributeValues = st.Values()
	if q.limit > 0 {
		input.Limit = aws.Int32(q.limit)
	}
	if q.startKey != nil {
		input.ExclusiveStartKey = q.startKey
	}
	return input, nil
}
