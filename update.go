/*
Package dyno – update assembly.

An Update collects SET / ADD / REMOVE / DELETE clauses against one record.
Nested Map values flatten into dotted attribute paths; unknown and readonly
paths are skipped so callers cannot mutate derived or protected fields.
Numeric ADD is rewritten as SET with a precomputed signed delta.
*/
package dyno

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Update assembles an UpdateItem call for a schema-bound record.
type Update struct {
	table  *Table
	schema *Schema
	key    map[string]types.AttributeValue
	st     *State

	sets    []string
	adds    []string
	removes []string
	deletes []string

	touched map[string]bool // top-level attribute names already applied
	built   bool
	err     error
}

// NewUpdate starts an update for one schema.
func NewUpdate(t *Table, schemaName string) (*Update, error) {
	s := t.Schema(schemaName)
	if s == nil {
		return nil, NewArgError(fmt.Sprintf("unknown schema %q", schemaName))
	}
	return &Update{
		table:   t,
		schema:  s,
		st:      NewState(),
		touched: make(map[string]bool),
	}, nil
}

func (u *Update) fail(err error) *Update {
	if u.err == nil {
		u.err = err
	}
	return u
}

// ApplyKey derives the primary key from a data bag. An unresolvable key
// leaves the update keyless and Build fails.
func (u *Update) ApplyKey(data Item) *Update {
	u.key = u.table.PrimaryKey(u.schema.Name(), data)
	return u
}

// ApplyKeyTagged sets an already-tagged primary key.
func (u *Update) ApplyKeyTagged(key map[string]types.AttributeValue) *Update {
	u.key = key
	return u
}

// Set records SET clauses for every known, writable path in the bag.
func (u *Update) Set(data Item) *Update {
	for name, v := range data {
		u.applySet(name, v, u.schema.Attribute(name))
	}
	return u
}

func (u *Update) applySet(path string, v any, attr Attr) {
	if attr == nil || attr.IsReadOnly() {
		logTrace("update path skipped", map[string]any{"path": path})
		return
	}
	if m, ok := attr.(*MapAttr); ok {
		if child, ok := v.(map[string]any); ok {
			for name, cv := range child {
				u.applySet(path+"."+name, cv, m.Attrs[name])
			}
			return
		}
	}
	av, err := attr.Encode(v)
	if err != nil {
		u.fail(err)
		return
	}
	alias := u.st.AddTagged(av)
	u.sets = append(u.sets, fmt.Sprintf("%s = %s", u.st.AliasPath(path), alias))
	u.touch(path)
}

// Add records ADD clauses. A numeric field becomes SET with a computed
// delta (field = field ± |value|); everything else appends to the
// underlying set.
func (u *Update) Add(data Item) *Update {
	for name, v := range data {
		attr := u.schema.Attribute(name)
		if attr == nil || attr.IsReadOnly() {
			logTrace("update path skipped", map[string]any{"path": name})
			continue
		}
		if attr.Kind() == KindNumber {
			if f, ok := asFloat(v); ok {
				u.addNumeric(name, f)
				continue
			}
		}
		alias, err := u.st.Add(v)
		if err != nil {
			u.fail(err)
			continue
		}
		u.adds = append(u.adds, fmt.Sprintf("%s %s", u.st.AliasPath(name), alias))
		u.touch(name)
	}
	return u
}

func (u *Update) addNumeric(path string, delta float64) {
	op := "+"
	if delta < 0 {
		op = "-"
	}
	mag := math.Abs(delta)
	var rendered string
	if mag == math.Trunc(mag) {
		rendered = strconv.FormatInt(int64(mag), 10)
	} else {
		rendered = strconv.FormatFloat(mag, 'f', -1, 64)
	}
	alias := u.st.AddTagged(&types.AttributeValueMemberN{Value: rendered})
	p := u.st.AliasPath(path)
	u.sets = append(u.sets, fmt.Sprintf("%s = %s %s %s", p, p, op, alias))
	u.touch(path)
}

// Remove records REMOVE clauses for the named paths.
func (u *Update) Remove(fields ...string) *Update {
	for _, name := range fields {
		attr := u.schema.Attribute(strings.SplitN(name, ".", 2)[0])
		if attr == nil || attr.IsReadOnly() {
			logTrace("update path skipped", map[string]any{"path": name})
			continue
		}
		u.removes = append(u.removes, u.st.AliasPath(name))
		u.touch(name)
	}
	return u
}

// Delete records DELETE clauses removing members from set-kind fields.
func (u *Update) Delete(data Item) *Update {
	for name, v := range data {
		attr := u.schema.Attribute(name)
		if attr == nil || attr.IsReadOnly() {
			logTrace("update path skipped", map[string]any{"path": name})
			continue
		}
		alias, err := u.st.Add(v)
		if err != nil {
			u.fail(err)
			continue
		}
		u.deletes = append(u.deletes, fmt.Sprintf("%s %s", u.st.AliasPath(name), alias))
		u.touch(name)
	}
	return u
}

// AutoIncrement records SET field = if_not_exists(field, 0) + step.
func (u *Update) AutoIncrement(field string, step int64) *Update {
	zero := u.st.AddTagged(&types.AttributeValueMemberN{Value: "0"})
	inc := u.st.AddTagged(&types.AttributeValueMemberN{Value: strconv.FormatInt(step, 10)})
	p := u.st.AliasPath(field)
	u.sets = append(u.sets, fmt.Sprintf("%s = if_not_exists(%s, %s) + %s", p, p, zero, inc))
	u.touch(field)
	return u
}

func (u *Update) touch(path string) {
	u.touched[strings.SplitN(path, ".", 2)[0]] = true
}

// Err surfaces the first failure recorded while building.
func (u *Update) Err() error { return u.err }

// Ok reports whether any clause has been recorded.
func (u *Update) Ok() bool {
	return len(u.sets)+len(u.adds)+len(u.removes)+len(u.deletes) > 0
}

// includeAlways adds fallback SET clauses for every attribute flagged
// always-write that the caller never touched, so those columns exist after
// the update regardless of input.
func (u *Update) includeAlways() {
	for _, na := range u.schema.attributes(false) {
		if u.touched[na.name] || !na.attr.Always() || na.attr.IsReadOnly() {
			continue
		}
		av, err := na.attr.Encode(nil)
		if err != nil {
			logError("always attribute skipped", map[string]any{
				"attribute": na.name, "error": err.Error(),
			})
			continue
		}
		alias := u.st.AddTagged(av)
		u.sets = append(u.sets, fmt.Sprintf("%s = %s", u.st.Alias(na.name), alias))
		u.touched[na.name] = true
	}
}

// Expression returns the combined update expression text.
func (u *Update) Expression() string {
	var parts []string
	if len(u.sets) > 0 {
		parts = append(parts, "SET "+strings.Join(u.sets, ", "))
	}
	if len(u.adds) > 0 {
		parts = append(parts, "ADD "+strings.Join(u.adds, ", "))
	}
	if len(u.removes) > 0 {
		parts = append(parts, "REMOVE "+strings.Join(u.removes, ", "))
	}
	if len(u.deletes) > 0 {
		parts = append(parts, "DELETE "+strings.Join(u.deletes, ", "))
	}
	return strings.Join(parts, " ")
}

// Build renders the UpdateItemInput. The primary key must have resolved via
// ApplyKey first; building without one is a fatal misuse.
func (u *Update) Build() (*dynamodb.UpdateItemInput, error) {
	if u.err != nil {
		return nil, u.err
	}
	if u.key == nil {
		return nil, NewArgError("update requires a resolvable primary key")
	}
	if !u.built {
		u.includeAlways()
		u.built = true
	}
	if !u.Ok() {
		return nil, NewError("update has no clauses", WithCode(ErrValidation))
	}
	return &dynamodb.UpdateItemInput{
		TableName:                 aws.String(u.table.Name()),
		Key:                       u.key,
		UpdateExpression:          aws.String(u.Expression()),
		ExpressionAttributeNames:  u.st.Names(),
		ExpressionAttributeValues: u.st.Values(),
		ReturnValues:              types.ReturnValueAllNew,
		ReturnConsumedCapacity:    types.ReturnConsumedCapacityTotal,
	}, nil
}
