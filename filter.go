/*
Package dyno – filter and key-condition trees.

A Filter is an ordered stack of predicate nodes. Plain nodes flatten with
AND; a scope node folds everything recorded before it with a linked subtree:
( flattened-prior ) OP ( subtree ). The fold is therefore sensitive to
insertion order, which callers rely on to group conditions.
*/
package dyno

import (
	"fmt"
	"strings"
)

// Op is a comparison operator.
type Op string

const (
	OpEq Op = "="
	OpNe Op = "<>"
	OpLt Op = "<"
	OpLe Op = "<="
	OpGt Op = ">"
	OpGe Op = ">="
)

func (o Op) valid() bool {
	switch o {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return true
	}
	return false
}

// sortable reports whether the operator is allowed in a key condition.
func (o Op) sortable() bool {
	return o.valid() && o != OpNe
}

type nodeKind int

const (
	nodeCompare nodeKind = iota
	nodeIn
	nodeBetween
	nodeFunc
	nodeScope
)

type filterNode struct {
	kind   nodeKind
	path   string
	op     Op
	value  any
	values []any // IN
	low    any   // BETWEEN
	high   any
	fn     string // function name
	arg    any    // function argument, nil for existence checks
	scope  *Filter
	link   string // AND / OR / NOT
}

// Filter builds a filter (or condition) expression.
type Filter struct {
	stack []*filterNode
	err   error
}

// NewFilter returns an empty filter.
func NewFilter() *Filter { return &Filter{} }

func (f *Filter) push(n *filterNode) *Filter {
	f.stack = append(f.stack, n)
	return f
}

func (f *Filter) fail(msg string) *Filter {
	if f.err == nil {
		f.err = NewArgError(msg)
	}
	return f
}

// IsEmpty reports whether nothing has been recorded.
func (f *Filter) IsEmpty() bool { return len(f.stack) == 0 }

// Err surfaces the first misuse recorded while building.
func (f *Filter) Err() error { return f.err }

// Compare records path <op> value.
func (f *Filter) Compare(path string, op Op, value any) *Filter {
	if !op.valid() {
		return f.fail(fmt.Sprintf("invalid operator %q", op))
	}
	return f.push(&filterNode{kind: nodeCompare, path: path, op: op, value: value})
}

// In records path IN (values...).
func (f *Filter) In(path string, values ...any) *Filter {
	if len(values) == 0 {
		return f.fail("IN requires at least one value")
	}
	return f.push(&filterNode{kind: nodeIn, path: path, values: values})
}

// Between records path BETWEEN low AND high.
func (f *Filter) Between(path string, low, high any) *Filter {
	return f.push(&filterNode{kind: nodeBetween, path: path, low: low, high: high})
}

// Exists records attribute_exists(path).
func (f *Filter) Exists(path string) *Filter {
	return f.push(&filterNode{kind: nodeFunc, path: path, fn: "attribute_exists"})
}

// NotExists records attribute_not_exists(path).
func (f *Filter) NotExists(path string) *Filter {
	return f.push(&filterNode{kind: nodeFunc, path: path, fn: "attribute_not_exists"})
}

// IsType records attribute_type(path, kind).
func (f *Filter) IsType(path string, kind Kind) *Filter {
	return f.push(&filterNode{kind: nodeFunc, path: path, fn: "attribute_type", arg: string(kind)})
}

// BeginsWith records begins_with(path, prefix).
func (f *Filter) BeginsWith(path string, prefix string) *Filter {
	return f.push(&filterNode{kind: nodeFunc, path: path, fn: "begins_with", arg: prefix})
}

// Contains records contains(path, value).
func (f *Filter) Contains(path string, value any) *Filter {
	return f.push(&filterNode{kind: nodeFunc, path: path, fn: "contains", arg: value})
}

// Size records size(path) <op> value.
func (f *Filter) Size(path string, op Op, value int) *Filter {
	if !op.valid() {
		return f.fail(fmt.Sprintf("invalid operator %q", op))
	}
	return f.push(&filterNode{kind: nodeFunc, path: path, fn: "size", op: op, arg: value})
}

// And folds everything recorded so far with the other filter:
// ( prior ) AND ( other ).
func (f *Filter) And(other *Filter) *Filter {
	return f.push(&filterNode{kind: nodeScope, scope: other, link: "AND"})
}

// Or folds with OR.
func (f *Filter) Or(other *Filter) *Filter {
	return f.push(&filterNode{kind: nodeScope, scope: other, link: "OR"})
}

// Not folds with NOT.
func (f *Filter) Not(other *Filter) *Filter {
	return f.push(&filterNode{kind: nodeScope, scope: other, link: "NOT"})
}

// Write lowers the tree into expression text, registering aliases in st.
func (f *Filter) Write(st *State) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	var stmts []string
	for _, n := range f.stack {
		if n.kind == nodeScope {
			sub, err := n.scope.Write(st)
			if err != nil {
				return "", err
			}
			prior := strings.Join(stmts, " AND ")
			if prior == "" {
				if n.link == "NOT" {
					stmts = []string{fmt.Sprintf("NOT ( %s )", sub)}
				} else {
					stmts = []string{fmt.Sprintf("( %s )", sub)}
				}
			} else if n.link == "NOT" {
				stmts = []string{fmt.Sprintf("( %s ) AND NOT ( %s )", prior, sub)}
			} else {
				stmts = []string{fmt.Sprintf("( %s ) %s ( %s )", prior, n.link, sub)}
			}
			continue
		}
		stmt, err := writeNode(n, st)
		if err != nil {
			return "", err
		}
		stmts = append(stmts, stmt)
	}
	return strings.Join(stmts, " AND "), nil
}

func writeNode(n *filterNode, st *State) (string, error) {
	path := st.AliasPath(n.path)
	switch n.kind {
	case nodeCompare:
		alias, err := st.Add(n.value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s %s", path, n.op, alias), nil
	case nodeIn:
		aliases := make([]string, 0, len(n.values))
		for _, v := range n.values {
			alias, err := st.Add(v)
			if err != nil {
				return "", err
			}
			aliases = append(aliases, alias)
		}
		return fmt.Sprintf("%s IN (%s)", path, strings.Join(aliases, ", ")), nil
	case nodeBetween:
		lo, err := st.Add(n.low)
		if err != nil {
			return "", err
		}
		hi, err := st.Add(n.high)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s BETWEEN %s AND %s", path, lo, hi), nil
	case nodeFunc:
		switch n.fn {
		case "attribute_exists", "attribute_not_exists":
			return fmt.Sprintf("%s(%s)", n.fn, path), nil
		case "size":
			alias, err := st.Add(n.arg)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("size(%s) %s %s", path, n.op, alias), nil
		default:
			alias, err := st.Add(n.arg)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%s(%s, %s)", n.fn, path, alias), nil
		}
	}
	return "", NewArgError("unknown filter node")
}

// ─── key conditions ──────────────────────────────────────────────────────────

// KeyFilter is the restricted condition variant for key lookups: a partition
// key equality plus at most one sort-key predicate from the allowed subset.
type KeyFilter struct {
	pkValue any
	hasPk   bool
	stack   []*filterNode
	err     error
}

// NewKeyFilter returns an empty key filter.
func NewKeyFilter() *KeyFilter { return &KeyFilter{} }

func (f *KeyFilter) fail(msg string) *KeyFilter {
	if f.err == nil {
		f.err = NewArgError(msg)
	}
	return f
}

// Pk sets the partition key equality value.
func (f *KeyFilter) Pk(value any) *KeyFilter {
	if value == nil {
		return f
	}
	f.pkValue = value
	f.hasPk = true
	return f
}

// HasPk reports whether a partition key value has been set.
func (f *KeyFilter) HasPk() bool { return f.hasPk }

// push records a sort predicate. The store accepts one per key condition, so
// a second push latches an error.
func (f *KeyFilter) push(n *filterNode) *KeyFilter {
	if len(f.stack) > 0 {
		return f.fail("key condition allows a single sort predicate")
	}
	f.stack = append(f.stack, n)
	return f
}

// Sort records sortkey <op> value.
func (f *KeyFilter) Sort(op Op, value any) *KeyFilter {
	if !op.sortable() {
		return f.fail(fmt.Sprintf("operator %q not allowed in key condition", op))
	}
	return f.push(&filterNode{kind: nodeCompare, op: op, value: value})
}

// SortBetween records sortkey BETWEEN low AND high.
func (f *KeyFilter) SortBetween(low, high any) *KeyFilter {
	return f.push(&filterNode{kind: nodeBetween, low: low, high: high})
}

// SortBeginsWith records begins_with(sortkey, prefix).
func (f *KeyFilter) SortBeginsWith(prefix string) *KeyFilter {
	return f.push(&filterNode{kind: nodeFunc, fn: "begins_with", arg: prefix})
}

// IsEmpty reports whether neither a pk value nor sort predicates exist.
func (f *KeyFilter) IsEmpty() bool { return !f.hasPk && len(f.stack) == 0 }

// Err surfaces the first misuse recorded while building.
func (f *KeyFilter) Err() error { return f.err }

// Write lowers the key condition against the given key attribute names.
func (f *KeyFilter) Write(k Key, st *State) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	var stmts []string
	if f.hasPk {
		alias, err := st.AddContext(f.pkValue, "key:"+k.Pk)
		if err != nil {
			return "", err
		}
		stmts = append(stmts, fmt.Sprintf("%s %s %s", st.Alias(k.Pk), OpEq, alias))
	}
	for _, n := range f.stack {
		n.path = k.Sk
		stmt, err := writeNode(n, st)
		if err != nil {
			return "", err
		}
		stmts = append(stmts, stmt)
	}
	return strings.Join(stmts, " AND "), nil
}
