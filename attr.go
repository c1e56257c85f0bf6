/*
Package dyno – attribute kinds and definitions.

Every definition implements one native↔wire contract: Encode turns a native
Go value into a tagged types.AttributeValue, Decode turns a tagged value back
into a native Go value. Validation happens inside Encode; Decode is tolerant
of unknown or mismatched data and returns nil rather than failing, so records
written by newer revisions of a schema still read cleanly.
*/
package dyno

import (
	"fmt"
	"math"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/tussik/dyno-go/internal/uid"
)

// Kind is the wire tag of an attribute value.
type Kind string

const (
	KindString    Kind = "S"
	KindNumber    Kind = "N"
	KindBytes     Kind = "B"
	KindNull      Kind = "NULL"
	KindBool      Kind = "BOOL"
	KindStringSet Kind = "SS"
	KindNumberSet Kind = "NS"
	KindByteSet   Kind = "BS"
	KindMap       Kind = "M"
	KindList      Kind = "L"
)

// Attr is the contract every attribute definition implements.
//
// Always reports whether the attribute is written even when the source data
// has no value for it (defaults or NULL are substituted). IsReadOnly marks
// attributes that are skipped on writes unless explicitly included. Replace
// marks attributes whose value is regenerated on every write (timestamps).
type Attr interface {
	Kind() Kind
	Encode(v any) (types.AttributeValue, error)
	Decode(av types.AttributeValue) (any, error)
	Always() bool
	IsReadOnly() bool
	Replace() bool
}

// ─── conversion helpers ──────────────────────────────────────────────────────

func nullValue() types.AttributeValue {
	return &types.AttributeValueMemberNULL{Value: true}
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case float32:
		if float64(n) == math.Trunc(float64(n)) {
			return int64(n), true
		}
	case float64:
		if n == math.Trunc(n) {
			return int64(n), true
		}
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	if i, ok := asInt(v); ok {
		return float64(i), true
	}
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// numToString renders a numeric native value as its wire string.
func numToString(v any) (string, bool) {
	if i, ok := asInt(v); ok {
		return strconv.FormatInt(i, 10), true
	}
	if f, ok := asFloat(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64), true
	}
	return "", false
}

// numFromString parses a wire number into int64 when integral, float64 otherwise.
func numFromString(s string) (any, error) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, NewError(fmt.Sprintf("invalid number %q", s), WithCode(ErrType), WithCause(err))
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f), nil
	}
	return f, nil
}

func errType(want Kind, got any) error {
	return NewError(fmt.Sprintf("expected %s-compatible value, got %T", want, got), WithCode(ErrType))
}

// ─── scalar definitions ──────────────────────────────────────────────────────

// UUIDAttr stores a string identifier. Encoding a non-string (or absent)
// value generates a fresh 32-character hex UUID.
type UUIDAttr struct {
	Optional bool
	ReadOnly bool
}

func (a *UUIDAttr) Kind() Kind       { return KindString }
func (a *UUIDAttr) Always() bool     { return !a.Optional }
func (a *UUIDAttr) IsReadOnly() bool { return a.ReadOnly }
func (a *UUIDAttr) Replace() bool    { return false }

func (a *UUIDAttr) Encode(v any) (types.AttributeValue, error) {
	if s, ok := v.(string); ok && s != "" {
		return &types.AttributeValueMemberS{Value: s}, nil
	}
	return &types.AttributeValueMemberS{Value: uid.Hex32()}, nil
}

func (a *UUIDAttr) Decode(av types.AttributeValue) (any, error) {
	if s, ok := av.(*types.AttributeValueMemberS); ok {
		return s.Value, nil
	}
	return nil, nil
}

// DateTimeAttr stores a timestamp as epoch seconds in a Number. With Current
// set the value is re-stamped to now on every write.
type DateTimeAttr struct {
	Optional bool
	ReadOnly bool
	Current  bool
	// AsInteger makes Decode return the raw epoch seconds instead of time.Time.
	AsInteger bool
}

func (a *DateTimeAttr) Kind() Kind       { return KindNumber }
func (a *DateTimeAttr) Always() bool     { return !a.Optional }
func (a *DateTimeAttr) IsReadOnly() bool { return a.ReadOnly }
func (a *DateTimeAttr) Replace() bool    { return a.Current }

func (a *DateTimeAttr) Encode(v any) (types.AttributeValue, error) {
	var epoch int64
	switch {
	case a.Current, v == nil:
		epoch = time.Now().UTC().Unix()
	default:
		switch t := v.(type) {
		case time.Time:
			epoch = t.UTC().Unix()
		default:
			i, ok := asInt(v)
			if !ok {
				return nil, errType(KindNumber, v)
			}
			epoch = i
		}
	}
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(epoch, 10)}, nil
}

func (a *DateTimeAttr) Decode(av types.AttributeValue) (any, error) {
	n, ok := av.(*types.AttributeValueMemberN)
	if !ok {
		return nil, nil
	}
	epoch, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return nil, NewError(fmt.Sprintf("invalid timestamp %q", n.Value), WithCode(ErrType), WithCause(err))
	}
	if a.AsInteger {
		return epoch, nil
	}
	return time.Unix(epoch, 0).UTC(), nil
}

// IntEnumAttr binds a field to a closed set of named integer values. Encode
// accepts a name or one of the numeric values; Decode returns the matching
// name, or nil when the stored value is no longer a member.
type IntEnumAttr struct {
	Values   map[string]int64
	Default  string
	Optional bool
	ReadOnly bool
}

func (a *IntEnumAttr) Kind() Kind       { return KindNumber }
func (a *IntEnumAttr) Always() bool     { return !a.Optional }
func (a *IntEnumAttr) IsReadOnly() bool { return a.ReadOnly }
func (a *IntEnumAttr) Replace() bool    { return false }

func (a *IntEnumAttr) Encode(v any) (types.AttributeValue, error) {
	if v == nil {
		if a.Default == "" {
			return nullValue(), nil
		}
		v = a.Default
	}
	if name, ok := v.(string); ok {
		n, ok := a.Values[name]
		if !ok {
			return nil, NewError(fmt.Sprintf("unknown enum name %q", name), WithCode(ErrValidation))
		}
		return &types.AttributeValueMemberN{Value: strconv.FormatInt(n, 10)}, nil
	}
	if n, ok := asInt(v); ok {
		for _, member := range a.Values {
			if member == n {
				return &types.AttributeValueMemberN{Value: strconv.FormatInt(n, 10)}, nil
			}
		}
		return nil, NewError(fmt.Sprintf("unknown enum value %d", n), WithCode(ErrValidation))
	}
	return nil, errType(KindNumber, v)
}

func (a *IntEnumAttr) Decode(av types.AttributeValue) (any, error) {
	n, ok := av.(*types.AttributeValueMemberN)
	if !ok {
		return nil, nil
	}
	raw, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return nil, nil
	}
	for name, member := range a.Values {
		if member == raw {
			return name, nil
		}
	}
	return nil, nil
}

// StrEnumAttr binds a field to a closed set of string values.
type StrEnumAttr struct {
	Values   []string
	Default  string
	Optional bool
	ReadOnly bool
}

func (a *StrEnumAttr) Kind() Kind       { return KindString }
func (a *StrEnumAttr) Always() bool     { return !a.Optional }
func (a *StrEnumAttr) IsReadOnly() bool { return a.ReadOnly }
func (a *StrEnumAttr) Replace() bool    { return false }

func (a *StrEnumAttr) member(s string) bool {
	for _, m := range a.Values {
		if m == s {
			return true
		}
	}
	return false
}

func (a *StrEnumAttr) Encode(v any) (types.AttributeValue, error) {
	if v == nil {
		if a.Default == "" {
			return nullValue(), nil
		}
		v = a.Default
	}
	s, ok := v.(string)
	if !ok {
		return nil, errType(KindString, v)
	}
	if !a.member(s) {
		return nil, NewError(fmt.Sprintf("unknown enum value %q", s), WithCode(ErrValidation))
	}
	return &types.AttributeValueMemberS{Value: s}, nil
}

func (a *StrEnumAttr) Decode(av types.AttributeValue) (any, error) {
	s, ok := av.(*types.AttributeValueMemberS)
	if !ok {
		return nil, nil
	}
	if !a.member(s.Value) {
		return nil, nil
	}
	return s.Value, nil
}

// FlagAttr is a string restricted to a set of options on write. Reads do not
// re-validate, so retired options still decode.
type FlagAttr struct {
	Options  []string
	Optional bool
	ReadOnly bool
}

func (a *FlagAttr) Kind() Kind       { return KindString }
func (a *FlagAttr) Always() bool     { return !a.Optional }
func (a *FlagAttr) IsReadOnly() bool { return a.ReadOnly }
func (a *FlagAttr) Replace() bool    { return false }

func (a *FlagAttr) Encode(v any) (types.AttributeValue, error) {
	if v == nil {
		return nullValue(), nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, errType(KindString, v)
	}
	for _, opt := range a.Options {
		if opt == s {
			return &types.AttributeValueMemberS{Value: s}, nil
		}
	}
	return nil, NewError(fmt.Sprintf("flag value %q not in options", s), WithCode(ErrValidation))
}

func (a *FlagAttr) Decode(av types.AttributeValue) (any, error) {
	if s, ok := av.(*types.AttributeValueMemberS); ok {
		return s.Value, nil
	}
	return nil, nil
}

// StringAttr stores a string with optional length constraints. Values below
// MinLength are rejected; values above MaxLength are silently truncated.
type StringAttr struct {
	Default   string
	MinLength int
	MaxLength int
	Optional  bool
	ReadOnly  bool
}

func (a *StringAttr) Kind() Kind       { return KindString }
func (a *StringAttr) Always() bool     { return !a.Optional }
func (a *StringAttr) IsReadOnly() bool { return a.ReadOnly }
func (a *StringAttr) Replace() bool    { return false }

func (a *StringAttr) Encode(v any) (types.AttributeValue, error) {
	if v == nil {
		if a.Default != "" {
			return &types.AttributeValueMemberS{Value: a.Default}, nil
		}
		return nullValue(), nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, errType(KindString, v)
	}
	if a.MinLength > 0 && utf8.RuneCountInString(s) < a.MinLength {
		return nil, NewError(fmt.Sprintf("string shorter than %d", a.MinLength), WithCode(ErrValidation))
	}
	if max := a.maxLen(); max > 0 {
		if r := []rune(s); len(r) > max {
			s = string(r[:max])
		}
	}
	return &types.AttributeValueMemberS{Value: s}, nil
}

// maxLen clamps MaxLength so it can never undercut MinLength.
func (a *StringAttr) maxLen() int {
	if a.MaxLength > 0 && a.MaxLength < a.MinLength {
		return a.MinLength
	}
	return a.MaxLength
}

func (a *StringAttr) Decode(av types.AttributeValue) (any, error) {
	if s, ok := av.(*types.AttributeValueMemberS); ok {
		return s.Value, nil
	}
	return nil, nil
}

// IntAttr stores an integer with optional bounds checked on write.
type IntAttr struct {
	Default  *int64
	Gt, Ge   *int64
	Lt, Le   *int64
	Optional bool
	ReadOnly bool
}

func (a *IntAttr) Kind() Kind       { return KindNumber }
func (a *IntAttr) Always() bool     { return !a.Optional }
func (a *IntAttr) IsReadOnly() bool { return a.ReadOnly }
func (a *IntAttr) Replace() bool    { return false }

func (a *IntAttr) Encode(v any) (types.AttributeValue, error) {
	if v == nil {
		if a.Default == nil {
			return nullValue(), nil
		}
		v = *a.Default
	}
	n, ok := asInt(v)
	if !ok {
		return nil, errType(KindNumber, v)
	}
	if a.Gt != nil && !(n > *a.Gt) {
		return nil, NewError(fmt.Sprintf("value %d not > %d", n, *a.Gt), WithCode(ErrValidation))
	}
	if a.Ge != nil && !(n >= *a.Ge) {
		return nil, NewError(fmt.Sprintf("value %d not >= %d", n, *a.Ge), WithCode(ErrValidation))
	}
	if a.Lt != nil && !(n < *a.Lt) {
		return nil, NewError(fmt.Sprintf("value %d not < %d", n, *a.Lt), WithCode(ErrValidation))
	}
	if a.Le != nil && !(n <= *a.Le) {
		return nil, NewError(fmt.Sprintf("value %d not <= %d", n, *a.Le), WithCode(ErrValidation))
	}
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(n, 10)}, nil
}

func (a *IntAttr) Decode(av types.AttributeValue) (any, error) {
	n, ok := av.(*types.AttributeValueMemberN)
	if !ok {
		return nil, nil
	}
	v, err := numFromString(n.Value)
	if err != nil {
		return nil, err
	}
	if i, ok := v.(int64); ok {
		return i, nil
	}
	return nil, nil
}

// FloatAttr stores a floating point number with optional bounds.
type FloatAttr struct {
	Default  *float64
	Gt, Ge   *float64
	Lt, Le   *float64
	Optional bool
	ReadOnly bool
}

func (a *FloatAttr) Kind() Kind       { return KindNumber }
func (a *FloatAttr) Always() bool     { return !a.Optional }
func (a *FloatAttr) IsReadOnly() bool { return a.ReadOnly }
func (a *FloatAttr) Replace() bool    { return false }

func (a *FloatAttr) Encode(v any) (types.AttributeValue, error) {
	if v == nil {
		if a.Default == nil {
			return nullValue(), nil
		}
		v = *a.Default
	}
	f, ok := asFloat(v)
	if !ok {
		return nil, errType(KindNumber, v)
	}
	if a.Gt != nil && !(f > *a.Gt) {
		return nil, NewError(fmt.Sprintf("value %v not > %v", f, *a.Gt), WithCode(ErrValidation))
	}
	if a.Ge != nil && !(f >= *a.Ge) {
		return nil, NewError(fmt.Sprintf("value %v not >= %v", f, *a.Ge), WithCode(ErrValidation))
	}
	if a.Lt != nil && !(f < *a.Lt) {
		return nil, NewError(fmt.Sprintf("value %v not < %v", f, *a.Lt), WithCode(ErrValidation))
	}
	if a.Le != nil && !(f <= *a.Le) {
		return nil, NewError(fmt.Sprintf("value %v not <= %v", f, *a.Le), WithCode(ErrValidation))
	}
	return &types.AttributeValueMemberN{Value: strconv.FormatFloat(f, 'f', -1, 64)}, nil
}

func (a *FloatAttr) Decode(av types.AttributeValue) (any, error) {
	n, ok := av.(*types.AttributeValueMemberN)
	if !ok {
		return nil, nil
	}
	f, err := strconv.ParseFloat(n.Value, 64)
	if err != nil {
		return nil, nil
	}
	return f, nil
}

// BoolAttr stores a boolean.
type BoolAttr struct {
	Default  *bool
	Optional bool
	ReadOnly bool
}

func (a *BoolAttr) Kind() Kind       { return KindBool }
func (a *BoolAttr) Always() bool     { return !a.Optional }
func (a *BoolAttr) IsReadOnly() bool { return a.ReadOnly }
func (a *BoolAttr) Replace() bool    { return false }

func (a *BoolAttr) Encode(v any) (types.AttributeValue, error) {
	if v == nil {
		if a.Default == nil {
			return nullValue(), nil
		}
		v = *a.Default
	}
	b, ok := v.(bool)
	if !ok {
		return nil, errType(KindBool, v)
	}
	return &types.AttributeValueMemberBOOL{Value: b}, nil
}

func (a *BoolAttr) Decode(av types.AttributeValue) (any, error) {
	if b, ok := av.(*types.AttributeValueMemberBOOL); ok {
		return b.Value, nil
	}
	return nil, nil
}

// BytesAttr stores a binary blob.
type BytesAttr struct {
	Default  []byte
	Optional bool
	ReadOnly bool
}

func (a *BytesAttr) Kind() Kind       { return KindBytes }
func (a *BytesAttr) Always() bool     { return !a.Optional }
func (a *BytesAttr) IsReadOnly() bool { return a.ReadOnly }
func (a *BytesAttr) Replace() bool    { return false }

func (a *BytesAttr) Encode(v any) (types.AttributeValue, error) {
	if v == nil {
		if a.Default == nil {
			return nullValue(), nil
		}
		v = a.Default
	}
	b, ok := v.([]byte)
	if !ok {
		return nil, errType(KindBytes, v)
	}
	return &types.AttributeValueMemberB{Value: b}, nil
}

func (a *BytesAttr) Decode(av types.AttributeValue) (any, error) {
	if b, ok := av.(*types.AttributeValueMemberB); ok {
		return b.Value, nil
	}
	return nil, nil
}

// ─── set definitions ─────────────────────────────────────────────────────────

// StringListAttr stores a string set.
type StringListAttr struct {
	Optional bool
	ReadOnly bool
}

func (a *StringListAttr) Kind() Kind       { return KindStringSet }
func (a *StringListAttr) Always() bool     { return !a.Optional }
func (a *StringListAttr) IsReadOnly() bool { return a.ReadOnly }
func (a *StringListAttr) Replace() bool    { return false }

func (a *StringListAttr) Encode(v any) (types.AttributeValue, error) {
	if v == nil {
		return nullValue(), nil
	}
	var out []string
	switch list := v.(type) {
	case []string:
		out = list
	case []any:
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, errType(KindStringSet, item)
			}
			out = append(out, s)
		}
	default:
		return nil, errType(KindStringSet, v)
	}
	return &types.AttributeValueMemberSS{Value: out}, nil
}

func (a *StringListAttr) Decode(av types.AttributeValue) (any, error) {
	if ss, ok := av.(*types.AttributeValueMemberSS); ok {
		return append([]string(nil), ss.Value...), nil
	}
	return nil, nil
}

// IntListAttr stores an integer number set.
type IntListAttr struct {
	Optional bool
	ReadOnly bool
}

func (a *IntListAttr) Kind() Kind       { return KindNumberSet }
func (a *IntListAttr) Always() bool     { return !a.Optional }
func (a *IntListAttr) IsReadOnly() bool { return a.ReadOnly }
func (a *IntListAttr) Replace() bool    { return false }

func (a *IntListAttr) Encode(v any) (types.AttributeValue, error) {
	if v == nil {
		return nullValue(), nil
	}
	var out []string
	switch list := v.(type) {
	case []int64:
		for _, n := range list {
			out = append(out, strconv.FormatInt(n, 10))
		}
	case []int:
		for _, n := range list {
			out = append(out, strconv.Itoa(n))
		}
	case []any:
		for _, item := range list {
			n, ok := asInt(item)
			if !ok {
				return nil, errType(KindNumberSet, item)
			}
			out = append(out, strconv.FormatInt(n, 10))
		}
	default:
		return nil, errType(KindNumberSet, v)
	}
	return &types.AttributeValueMemberNS{Value: out}, nil
}

func (a *IntListAttr) Decode(av types.AttributeValue) (any, error) {
	ns, ok := av.(*types.AttributeValueMemberNS)
	if !ok {
		return nil, nil
	}
	out := make([]int64, 0, len(ns.Value))
	for _, s := range ns.Value {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

// FloatListAttr stores a float number set.
type FloatListAttr struct {
	Optional bool
	ReadOnly bool
}

func (a *FloatListAttr) Kind() Kind       { return KindNumberSet }
func (a *FloatListAttr) Always() bool     { return !a.Optional }
func (a *FloatListAttr) IsReadOnly() bool { return a.ReadOnly }
func (a *FloatListAttr) Replace() bool    { return false }

func (a *FloatListAttr) Encode(v any) (types.AttributeValue, error) {
	if v == nil {
		return nullValue(), nil
	}
	var out []string
	switch list := v.(type) {
	case []float64:
		for _, f := range list {
			out = append(out, strconv.FormatFloat(f, 'f', -1, 64))
		}
	case []any:
		for _, item := range list {
			f, ok := asFloat(item)
			if !ok {
				return nil, errType(KindNumberSet, item)
			}
			out = append(out, strconv.FormatFloat(f, 'f', -1, 64))
		}
	default:
		return nil, errType(KindNumberSet, v)
	}
	return &types.AttributeValueMemberNS{Value: out}, nil
}

func (a *FloatListAttr) Decode(av types.AttributeValue) (any, error) {
	ns, ok := av.(*types.AttributeValueMemberNS)
	if !ok {
		return nil, nil
	}
	out := make([]float64, 0, len(ns.Value))
	for _, s := range ns.Value {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

// ByteListAttr stores a binary set.
type ByteListAttr struct {
	Optional bool
	ReadOnly bool
}

func (a *ByteListAttr) Kind() Kind       { return KindByteSet }
func (a *ByteListAttr) Always() bool     { return !a.Optional }
func (a *ByteListAttr) IsReadOnly() bool { return a.ReadOnly }
func (a *ByteListAttr) Replace() bool    { return false }

func (a *ByteListAttr) Encode(v any) (types.AttributeValue, error) {
	if v == nil {
		return nullValue(), nil
	}
	var out [][]byte
	switch list := v.(type) {
	case [][]byte:
		out = list
	case []any:
		for _, item := range list {
			b, ok := item.([]byte)
			if !ok {
				return nil, errType(KindByteSet, item)
			}
			out = append(out, b)
		}
	default:
		return nil, errType(KindByteSet, v)
	}
	return &types.AttributeValueMemberBS{Value: out}, nil
}

func (a *ByteListAttr) Decode(av types.AttributeValue) (any, error) {
	if bs, ok := av.(*types.AttributeValueMemberBS); ok {
		return append([][]byte(nil), bs.Value...), nil
	}
	return nil, nil
}

// ─── container definitions ───────────────────────────────────────────────────

// MapAttr is a nested document with its own member definitions. Unknown keys
// in the source data are dropped; a member that fails to encode is logged and
// omitted rather than failing the whole container.
type MapAttr struct {
	Attrs    map[string]Attr
	Optional bool
	ReadOnly bool
}

func (a *MapAttr) Kind() Kind       { return KindMap }
func (a *MapAttr) Always() bool     { return !a.Optional }
func (a *MapAttr) IsReadOnly() bool { return a.ReadOnly }
func (a *MapAttr) Replace() bool    { return false }

func (a *MapAttr) Encode(v any) (types.AttributeValue, error) {
	if v == nil {
		return nullValue(), nil
	}
	src, ok := v.(map[string]any)
	if !ok {
		return nil, errType(KindMap, v)
	}
	out := make(map[string]types.AttributeValue)
	for name, attr := range a.Attrs {
		child, present := src[name]
		if !present && !attr.Always() {
			continue
		}
		av, err := attr.Encode(child)
		if err != nil {
			logError("map member skipped", map[string]any{"member": name, "error": err.Error()})
			continue
		}
		out[name] = av
	}
	return &types.AttributeValueMemberM{Value: out}, nil
}

func (a *MapAttr) Decode(av types.AttributeValue) (any, error) {
	m, ok := av.(*types.AttributeValueMemberM)
	if !ok {
		return nil, nil
	}
	out := make(map[string]any)
	for name, attr := range a.Attrs {
		child, present := m.Value[name]
		if !present {
			continue
		}
		v, err := attr.Decode(child)
		if err != nil {
			logError("map member unreadable", map[string]any{"member": name, "error": err.Error()})
			continue
		}
		if v != nil {
			out[name] = v
		}
	}
	return out, nil
}

// ListAttr is a list of documents, each conforming to the same member
// definitions. Rows that encode to nothing are dropped.
type ListAttr struct {
	Attrs    map[string]Attr
	Optional bool
	ReadOnly bool
}

func (a *ListAttr) Kind() Kind       { return KindList }
func (a *ListAttr) Always() bool     { return !a.Optional }
func (a *ListAttr) IsReadOnly() bool { return a.ReadOnly }
func (a *ListAttr) Replace() bool    { return false }

func (a *ListAttr) row() *MapAttr { return &MapAttr{Attrs: a.Attrs} }

func (a *ListAttr) Encode(v any) (types.AttributeValue, error) {
	if v == nil {
		return nullValue(), nil
	}
	src, ok := v.([]any)
	if !ok {
		if rows, ok2 := v.([]map[string]any); ok2 {
			src = make([]any, len(rows))
			for i, r := range rows {
				src[i] = r
			}
		} else {
			return nil, errType(KindList, v)
		}
	}
	row := a.row()
	out := make([]types.AttributeValue, 0, len(src))
	for i, item := range src {
		av, err := row.Encode(item)
		if err != nil {
			logError("list row skipped", map[string]any{"row": i, "error": err.Error()})
			continue
		}
		if m, ok := av.(*types.AttributeValueMemberM); !ok || len(m.Value) == 0 {
			continue
		}
		out = append(out, av)
	}
	return &types.AttributeValueMemberL{Value: out}, nil
}

func (a *ListAttr) Decode(av types.AttributeValue) (any, error) {
	l, ok := av.(*types.AttributeValueMemberL)
	if !ok {
		return nil, nil
	}
	row := a.row()
	out := make([]any, 0, len(l.Value))
	for _, item := range l.Value {
		v, err := row.Decode(item)
		if err != nil {
			continue
		}
		if m, ok := v.(map[string]any); ok && len(m) > 0 {
			out = append(out, m)
		}
	}
	return out, nil
}

// ─── auto increment ──────────────────────────────────────────────────────────

// AutoIncrement declares a named counter attached to a schema. Start is
// clamped to >= 0 and Step to >= 1.
type AutoIncrement struct {
	Start int64
	Step  int64
}

func (a AutoIncrement) normalized() AutoIncrement {
	if a.Start < 0 {
		a.Start = 0
	}
	if a.Step < 1 {
		a.Step = 1
	}
	return a
}
