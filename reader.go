/*
Package dyno – record reading and conversion.

A Reader normalizes one source document (a tagged item or page of items) into
plain native data, then filters it through a table/schema allow-list: fields
the schema never declared are dropped, and Number values demote to int64 when
integral. The allow-list is memoized per (table, schema) pair on the Reader,
so a fresh Reader is required per distinct source document.
*/
package dyno

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// untagValue converts a tagged value into its plain native form. Numbers
// parse to int64 when integral, float64 otherwise.
func untagValue(av types.AttributeValue) any {
	switch x := av.(type) {
	case *types.AttributeValueMemberS:
		return x.Value
	case *types.AttributeValueMemberN:
		v, err := numFromString(x.Value)
		if err != nil {
			return x.Value
		}
		return v
	case *types.AttributeValueMemberB:
		return x.Value
	case *types.AttributeValueMemberBOOL:
		return x.Value
	case *types.AttributeValueMemberNULL:
		return nil
	case *types.AttributeValueMemberSS:
		return append([]string(nil), x.Value...)
	case *types.AttributeValueMemberNS:
		out := make([]any, 0, len(x.Value))
		for _, s := range x.Value {
			v, err := numFromString(s)
			if err != nil {
				continue
			}
			out = append(out, v)
		}
		return out
	case *types.AttributeValueMemberBS:
		return append([][]byte(nil), x.Value...)
	case *types.AttributeValueMemberM:
		out := make(map[string]any, len(x.Value))
		for name, child := range x.Value {
			out[name] = untagValue(child)
		}
		return out
	case *types.AttributeValueMemberL:
		out := make([]any, 0, len(x.Value))
		for _, child := range x.Value {
			out = append(out, untagValue(child))
		}
		return out
	}
	return nil
}

// untagItem converts a tagged item into a native bag.
func untagItem(item map[string]types.AttributeValue) Item {
	out := make(Item, len(item))
	for name, av := range item {
		out[name] = untagValue(av)
	}
	return out
}

// Reader holds one normalized source document.
type Reader struct {
	rows   []Item
	single bool
	memo   map[string]map[string]Allow
}

// NewReader accepts a tagged item, a page of tagged items, or their native
// equivalents.
func NewReader(src any) *Reader {
	r := &Reader{memo: make(map[string]map[string]Allow)}
	switch x := src.(type) {
	case map[string]types.AttributeValue:
		r.rows = []Item{untagItem(x)}
		r.single = true
	case []map[string]types.AttributeValue:
		for _, item := range x {
			r.rows = append(r.rows, untagItem(item))
		}
	case Item:
		r.rows = []Item{x}
		r.single = true
	case []Item:
		r.rows = append(r.rows, x...)
	case []any:
		for _, row := range x {
			if m, ok := row.(map[string]any); ok {
				r.rows = append(r.rows, m)
			}
		}
	}
	return r
}

func (r *Reader) allowList(t *Table, schemaName string) map[string]Allow {
	key := fmt.Sprintf("%s[%s]", t.Name(), schemaName)
	if al, ok := r.memo[key]; ok {
		return al
	}
	al := t.AllowList(schemaName)
	r.memo[key] = al
	return al
}

// Decode filters the document through the allow-list. With a schema bound
// the discriminator field is injected; an empty schema name uses the union
// of all schemas. The result is a single Item or a []Item matching the
// source shape.
func (r *Reader) Decode(t *Table, schemaName string) any {
	al := r.allowList(t, schemaName)
	out := make([]Item, 0, len(r.rows))
	for _, row := range r.rows {
		out = append(out, decodeRow(row, al, t.SchemaField(), schemaName))
	}
	if r.single {
		if len(out) == 0 {
			return nil
		}
		return out[0]
	}
	return out
}

// DecodeItems is Decode for page-shaped sources.
func (r *Reader) DecodeItems(t *Table, schemaName string) []Item {
	al := r.allowList(t, schemaName)
	out := make([]Item, 0, len(r.rows))
	for _, row := range r.rows {
		out = append(out, decodeRow(row, al, t.SchemaField(), schemaName))
	}
	return out
}

func decodeRow(row Item, al map[string]Allow, schemaField, schemaName string) Item {
	out := make(Item)
	for name, v := range row {
		if name == schemaField {
			out[name] = v
			continue
		}
		allow, ok := al[name]
		if !ok {
			continue
		}
		switch allow.Kind {
		case KindMap:
			child, ok := v.(map[string]any)
			if !ok {
				continue
			}
			filtered := make(map[string]any)
			for cname, cv := range child {
				if _, ok := al[name+"."+cname]; ok {
					filtered[cname] = cv
				}
			}
			out[name] = filtered
		default:
			out[name] = v
		}
	}
	if schemaName != "" {
		out[schemaField] = schemaName
	}
	return out
}

// Encode re-tags the document for the wire: each allow-listed field gets its
// kind's tag, nil becomes the explicit Null tag, and unknown fields drop.
// The result shape matches the source shape.
func (r *Reader) Encode(t *Table, schemaName string) any {
	al := r.allowList(t, schemaName)
	out := make([]map[string]types.AttributeValue, 0, len(r.rows))
	for _, row := range r.rows {
		out = append(out, encodeRow(row, al, t.SchemaField()))
	}
	if r.single {
		if len(out) == 0 {
			return nil
		}
		return out[0]
	}
	return out
}

func encodeRow(row Item, al map[string]Allow, schemaField string) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue)
	for name, v := range row {
		if name == schemaField {
			if s, ok := v.(string); ok {
				out[name] = &types.AttributeValueMemberS{Value: s}
			}
			continue
		}
		if strings.Contains(name, ".") {
			continue
		}
		allow, ok := al[name]
		if !ok {
			continue
		}
		if v == nil {
			out[name] = nullValue()
			continue
		}
		var av types.AttributeValue
		var err error
		if allow.Attr != nil {
			av, err = allow.Attr.Encode(v)
		} else {
			av, err = tagScalar(v)
		}
		if err != nil {
			logError("field skipped", map[string]any{"field": name, "error": err.Error()})
			continue
		}
		out[name] = av
	}
	return out
}
