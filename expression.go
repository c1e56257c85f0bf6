/*
Package dyno – expression alias state.

State owns the #nN name aliases and :vN value aliases shared by every
expression fragment of one store command. Aliasing by name (and optionally by
caller context key) keeps repeated references stable across fragments.
*/
package dyno

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// State accumulates expression attribute names and values for one command.
type State struct {
	names      map[string]string // attribute name → alias
	values     map[string]types.AttributeValue
	contexts   map[string]string // context key → value alias
	nameCount  int
	valueCount int
}

// NewState returns an empty alias state.
func NewState() *State {
	return &State{
		names:    make(map[string]string),
		values:   make(map[string]types.AttributeValue),
		contexts: make(map[string]string),
	}
}

// Alias returns the #nN alias for an attribute name, allocating one the first
// time the name is seen.
func (st *State) Alias(name string) string {
	if alias, ok := st.names[name]; ok {
		return alias
	}
	st.nameCount++
	alias := fmt.Sprintf("#n%d", st.nameCount)
	st.names[name] = alias
	return alias
}

// AliasPath aliases each segment of a dotted document path separately, so
// nested addressing stays reserved-word safe.
func (st *State) AliasPath(path string) string {
	parts := strings.Split(path, ".")
	for i, p := range parts {
		parts[i] = st.Alias(p)
	}
	return strings.Join(parts, ".")
}

// Add registers a value under a fresh :vN alias.
func (st *State) Add(v any) (string, error) {
	av, err := tagScalar(v)
	if err != nil {
		return "", err
	}
	st.valueCount++
	alias := fmt.Sprintf(":v%d", st.valueCount)
	st.values[alias] = av
	return alias, nil
}

// AddContext registers a value under a context key: repeated adds for the
// same key reuse the first alias, replacing the stored value.
func (st *State) AddContext(v any, contextKey string) (string, error) {
	av, err := tagScalar(v)
	if err != nil {
		return "", err
	}
	if alias, ok := st.contexts[contextKey]; ok {
		st.values[alias] = av
		return alias, nil
	}
	st.valueCount++
	alias := fmt.Sprintf(":v%d", st.valueCount)
	st.values[alias] = av
	st.contexts[contextKey] = alias
	return alias, nil
}

// AddTagged registers an already-tagged value.
func (st *State) AddTagged(av types.AttributeValue) string {
	st.valueCount++
	alias := fmt.Sprintf(":v%d", st.valueCount)
	st.values[alias] = av
	return alias
}

// Names returns ExpressionAttributeNames (alias → attribute name), or nil
// when no names were aliased.
func (st *State) Names() map[string]string {
	if len(st.names) == 0 {
		return nil
	}
	out := make(map[string]string, len(st.names))
	for name, alias := range st.names {
		out[alias] = name
	}
	return out
}

// Values returns ExpressionAttributeValues, or nil when no values were added.
func (st *State) Values() map[string]types.AttributeValue {
	if len(st.values) == 0 {
		return nil
	}
	out := make(map[string]types.AttributeValue, len(st.values))
	for alias, av := range st.values {
		out[alias] = av
	}
	return out
}

// tagScalar converts a native value into its tagged form. Numbers always go
// to the wire as strings.
func tagScalar(v any) (types.AttributeValue, error) {
	switch x := v.(type) {
	case nil:
		return nullValue(), nil
	case types.AttributeValue:
		return x, nil
	case string:
		return &types.AttributeValueMemberS{Value: x}, nil
	case bool:
		return &types.AttributeValueMemberBOOL{Value: x}, nil
	case []byte:
		return &types.AttributeValueMemberB{Value: x}, nil
	case []string:
		return &types.AttributeValueMemberSS{Value: x}, nil
	case []int:
		out := make([]string, len(x))
		for i, n := range x {
			out[i] = strconv.Itoa(n)
		}
		return &types.AttributeValueMemberNS{Value: out}, nil
	case []int64:
		out := make([]string, len(x))
		for i, n := range x {
			out[i] = strconv.FormatInt(n, 10)
		}
		return &types.AttributeValueMemberNS{Value: out}, nil
	case []float64:
		out := make([]string, len(x))
		for i, f := range x {
			out[i] = strconv.FormatFloat(f, 'f', -1, 64)
		}
		return &types.AttributeValueMemberNS{Value: out}, nil
	case [][]byte:
		return &types.AttributeValueMemberBS{Value: x}, nil
	}
	if s, ok := numToString(v); ok {
		return &types.AttributeValueMemberN{Value: s}, nil
	}
	return nil, NewError(fmt.Sprintf("unsupported expression value %T", v), WithCode(ErrType))
}
