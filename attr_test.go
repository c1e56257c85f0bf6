package dyno_test

import (
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dyno "github.com/tussik/dyno-go"
)

func TestUUIDAttr(t *testing.T) {
	a := &dyno.UUIDAttr{}

	av, err := a.Encode("my-own-id")
	require.NoError(t, err)
	assert.Equal(t, "my-own-id", av.(*types.AttributeValueMemberS).Value)

	av, err = a.Encode(nil)
	require.NoError(t, err)
	generated := av.(*types.AttributeValueMemberS).Value
	assert.Len(t, generated, 32)
	assert.NotContains(t, generated, "-")

	v, err := a.Decode(av)
	require.NoError(t, err)
	assert.Equal(t, generated, v)
}

func TestDateTimeAttr(t *testing.T) {
	a := &dyno.DateTimeAttr{}
	when := time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)

	av, err := a.Encode(when)
	require.NoError(t, err)
	assert.Equal(t, "1700000000", av.(*types.AttributeValueMemberN).Value)

	v, err := a.Decode(av)
	require.NoError(t, err)
	assert.Equal(t, when, v)

	asInt := &dyno.DateTimeAttr{AsInteger: true}
	v, err = asInt.Decode(av)
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), v)

	// Current mode ignores the supplied value.
	current := &dyno.DateTimeAttr{Current: true}
	assert.True(t, current.Replace())
	before := time.Now().UTC().Unix()
	av, err = current.Encode(when)
	require.NoError(t, err)
	stamped, err := (&dyno.DateTimeAttr{AsInteger: true}).Decode(av)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stamped.(int64), before)
}

func TestIntEnumAttr(t *testing.T) {
	a := &dyno.IntEnumAttr{
		Values:  map[string]int64{"red": 1, "green": 2, "blue": 3},
		Default: "green",
	}

	av, err := a.Encode("blue")
	require.NoError(t, err)
	assert.Equal(t, "3", av.(*types.AttributeValueMemberN).Value)

	av, err = a.Encode(2)
	require.NoError(t, err)
	assert.Equal(t, "2", av.(*types.AttributeValueMemberN).Value)

	av, err = a.Encode(nil)
	require.NoError(t, err)
	assert.Equal(t, "2", av.(*types.AttributeValueMemberN).Value)

	_, err = a.Encode("purple")
	require.Error(t, err)
	_, err = a.Encode(99)
	require.Error(t, err)

	// Absent value with no default writes an explicit NULL column.
	noDefault := &dyno.IntEnumAttr{Values: map[string]int64{"red": 1}}
	av, err = noDefault.Encode(nil)
	require.NoError(t, err)
	assert.IsType(t, &types.AttributeValueMemberNULL{}, av)

	v, err := a.Decode(&types.AttributeValueMemberN{Value: "3"})
	require.NoError(t, err)
	assert.Equal(t, "blue", v)

	// Unknown persisted value decodes to nil, never an error.
	v, err = a.Decode(&types.AttributeValueMemberN{Value: "42"})
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestStrEnumAttr(t *testing.T) {
	a := &dyno.StrEnumAttr{Values: []string{"draft", "live"}, Default: "draft"}

	av, err := a.Encode(nil)
	require.NoError(t, err)
	assert.Equal(t, "draft", av.(*types.AttributeValueMemberS).Value)

	_, err = a.Encode("retired")
	require.Error(t, err)

	noDefault := &dyno.StrEnumAttr{Values: []string{"draft", "live"}}
	av, err = noDefault.Encode(nil)
	require.NoError(t, err)
	assert.IsType(t, &types.AttributeValueMemberNULL{}, av)

	v, err := a.Decode(&types.AttributeValueMemberS{Value: "retired"})
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestFlagAttr(t *testing.T) {
	a := &dyno.FlagAttr{Options: []string{"Left", "Right"}}

	_, err := a.Encode("Left")
	require.NoError(t, err)
	_, err = a.Encode("Up")
	require.Error(t, err)

	av, err := a.Encode(nil)
	require.NoError(t, err)
	assert.IsType(t, &types.AttributeValueMemberNULL{}, av)

	// Reads tolerate values from a since-changed option set.
	v, err := a.Decode(&types.AttributeValueMemberS{Value: "Up"})
	require.NoError(t, err)
	assert.Equal(t, "Up", v)
}

func TestStringAttrLengths(t *testing.T) {
	a := &dyno.StringAttr{MinLength: 2, MaxLength: 4}

	_, err := a.Encode("x")
	require.Error(t, err)
	_, err = a.Encode(123)
	require.Error(t, err)

	av, err := a.Encode("abcdef")
	require.NoError(t, err)
	assert.Equal(t, "abcd", av.(*types.AttributeValueMemberS).Value)

	// Length limits count runes, so multi-byte text never splits mid-rune.
	av, err = a.Encode("héllö!")
	require.NoError(t, err)
	assert.Equal(t, "héll", av.(*types.AttributeValueMemberS).Value)
	_, err = a.Encode("é")
	require.Error(t, err)

	// MaxLength below MinLength clamps up instead of contradicting it.
	clamped := &dyno.StringAttr{MinLength: 3, MaxLength: 1}
	av, err = clamped.Encode("abcdef")
	require.NoError(t, err)
	assert.Equal(t, "abc", av.(*types.AttributeValueMemberS).Value)

	withDefault := &dyno.StringAttr{Default: "unset"}
	av, err = withDefault.Encode(nil)
	require.NoError(t, err)
	assert.Equal(t, "unset", av.(*types.AttributeValueMemberS).Value)

	empty := &dyno.StringAttr{}
	av, err = empty.Encode(nil)
	require.NoError(t, err)
	_, isNull := av.(*types.AttributeValueMemberNULL)
	assert.True(t, isNull)
}

func TestIntAttrBounds(t *testing.T) {
	a := &dyno.IntAttr{Ge: i64(0), Lt: i64(100)}

	av, err := a.Encode(42)
	require.NoError(t, err)
	assert.Equal(t, "42", av.(*types.AttributeValueMemberN).Value)

	_, err = a.Encode(-1)
	require.Error(t, err)
	_, err = a.Encode(100)
	require.Error(t, err)

	// Bounds are write-time only; reads never re-validate.
	v, err := a.Decode(&types.AttributeValueMemberN{Value: "500"})
	require.NoError(t, err)
	assert.Equal(t, int64(500), v)

	// A fractional stored number is not an int.
	v, err = a.Decode(&types.AttributeValueMemberN{Value: "1.5"})
	require.NoError(t, err)
	assert.Nil(t, v)

	// Kind mismatch reads as absent.
	v, err = a.Decode(&types.AttributeValueMemberS{Value: "42"})
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestBoolAndBytesDefaults(t *testing.T) {
	b := &dyno.BoolAttr{Default: boolPtr(true)}
	av, err := b.Encode(nil)
	require.NoError(t, err)
	assert.True(t, av.(*types.AttributeValueMemberBOOL).Value)

	raw := &dyno.BytesAttr{}
	av, err = raw.Encode([]byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, av.(*types.AttributeValueMemberB).Value)
}

func TestListAttrs(t *testing.T) {
	ss := &dyno.StringListAttr{}
	av, err := ss.Encode([]string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, av.(*types.AttributeValueMemberSS).Value)

	ns := &dyno.IntListAttr{}
	av, err = ns.Encode([]int{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, av.(*types.AttributeValueMemberNS).Value)

	v, err := ns.Decode(av)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, v)

	_, err = ss.Encode([]any{"ok", 7})
	require.Error(t, err)
}

func TestMapAttrSkipsBadChildren(t *testing.T) {
	a := &dyno.MapAttr{Attrs: map[string]dyno.Attr{
		"name": &dyno.StringAttr{Optional: true},
		"flag": &dyno.FlagAttr{Options: []string{"on", "off"}, Optional: true},
	}}

	av, err := a.Encode(map[string]any{
		"name":    "ok",
		"flag":    "broken", // fails validation: logged and omitted
		"unknown": "dropped",
	})
	require.NoError(t, err)
	m := av.(*types.AttributeValueMemberM).Value
	assert.Contains(t, m, "name")
	assert.NotContains(t, m, "flag")
	assert.NotContains(t, m, "unknown")
}

func TestListAttrDropsEmptyRows(t *testing.T) {
	a := &dyno.ListAttr{Attrs: map[string]dyno.Attr{
		"label": &dyno.StringAttr{Optional: true},
	}}

	av, err := a.Encode([]any{
		map[string]any{"label": "first"},
		map[string]any{"other": "nothing declared"},
	})
	require.NoError(t, err)
	rows := av.(*types.AttributeValueMemberL).Value
	require.Len(t, rows, 1)

	v, err := a.Decode(av)
	require.NoError(t, err)
	decoded := v.([]any)
	require.Len(t, decoded, 1)
	assert.Equal(t, "first", decoded[0].(map[string]any)["label"])
}
