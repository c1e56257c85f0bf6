/*
Package dyno – declarative table definitions.

Tables can be described in YAML (or JSON, which YAML subsumes) and parsed
into validated Table metadata, as an alternative to building the schema in
code.
*/
package dyno

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TableDoc is the document root.
type TableDoc struct {
	Name        string              `yaml:"name" json:"name"`
	SchemaField string              `yaml:"schemaField,omitempty" json:"schemaField,omitempty"`
	Key         KeyDoc              `yaml:"key" json:"key"`
	Indexes     map[string]IndexDoc `yaml:"indexes,omitempty" json:"indexes,omitempty"`
	Schemas     []SchemaDoc         `yaml:"schemas" json:"schemas"`

	PayPerRequest        bool  `yaml:"payPerRequest,omitempty" json:"payPerRequest,omitempty"`
	ReadUnits            int32 `yaml:"readUnits,omitempty" json:"readUnits,omitempty"`
	WriteUnits           int32 `yaml:"writeUnits,omitempty" json:"writeUnits,omitempty"`
	DeletionProtection   bool  `yaml:"deletionProtection,omitempty" json:"deletionProtection,omitempty"`
	TableClassInfrequent bool  `yaml:"tableClassInfrequent,omitempty" json:"tableClassInfrequent,omitempty"`
}

// KeyDoc names the primary key attributes.
type KeyDoc struct {
	Pk     string `yaml:"pk" json:"pk"`
	Sk     string `yaml:"sk" json:"sk"`
	PkKind string `yaml:"pkKind,omitempty" json:"pkKind,omitempty"`
	SkKind string `yaml:"skKind,omitempty" json:"skKind,omitempty"`
}

// IndexDoc describes a global index.
type IndexDoc struct {
	Pk         string `yaml:"pk,omitempty" json:"pk,omitempty"`
	Sk         string `yaml:"sk,omitempty" json:"sk,omitempty"`
	PkKind     string `yaml:"pkKind,omitempty" json:"pkKind,omitempty"`
	SkKind     string `yaml:"skKind,omitempty" json:"skKind,omitempty"`
	ReadUnits  int32  `yaml:"readUnits,omitempty" json:"readUnits,omitempty"`
	WriteUnits int32  `yaml:"writeUnits,omitempty" json:"writeUnits,omitempty"`
	Unique     bool   `yaml:"unique,omitempty" json:"unique,omitempty"`
}

// SchemaDoc describes one record layout.
type SchemaDoc struct {
	Name       string                 `yaml:"name" json:"name"`
	Key        TemplateDoc            `yaml:"key" json:"key"`
	Indexes    map[string]TemplateDoc `yaml:"indexes,omitempty" json:"indexes,omitempty"`
	Attributes []AttrDoc              `yaml:"attributes" json:"attributes"`
	Counters   map[string]CounterDoc  `yaml:"counters,omitempty" json:"counters,omitempty"`
}

// TemplateDoc is a key format with its required fields.
type TemplateDoc struct {
	Pk       string   `yaml:"pk" json:"pk"`
	Sk       string   `yaml:"sk" json:"sk"`
	Required []string `yaml:"required,omitempty" json:"required,omitempty"`
}

// AttrDoc describes one attribute definition.
type AttrDoc struct {
	Name     string `yaml:"name" json:"name"`
	Type     string `yaml:"type" json:"type"`
	Optional bool   `yaml:"optional,omitempty" json:"optional,omitempty"`
	ReadOnly bool   `yaml:"readOnly,omitempty" json:"readOnly,omitempty"`
	Current  bool   `yaml:"current,omitempty" json:"current,omitempty"`

	Default   any              `yaml:"default,omitempty" json:"default,omitempty"`
	MinLength int              `yaml:"minLength,omitempty" json:"minLength,omitempty"`
	MaxLength int              `yaml:"maxLength,omitempty" json:"maxLength,omitempty"`
	Values    map[string]int64 `yaml:"values,omitempty" json:"values,omitempty"`
	Options   []string         `yaml:"options,omitempty" json:"options,omitempty"`
	Members   []AttrDoc        `yaml:"members,omitempty" json:"members,omitempty"`
}

// CounterDoc describes an auto-increment counter.
type CounterDoc struct {
	Start int64 `yaml:"start,omitempty" json:"start,omitempty"`
	Step  int64 `yaml:"step,omitempty" json:"step,omitempty"`
}

// ParseTable unmarshals a YAML or JSON document and validates it into a
// Table.
func ParseTable(data []byte) (*Table, error) {
	var doc TableDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, NewArgError(fmt.Sprintf("table document: %v", err))
	}
	return doc.Table()
}

// LoadTableFile reads and parses a table definition file.
func LoadTableFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewError("table file unreadable", WithCode(ErrMissing), WithCause(err))
	}
	return ParseTable(data)
}

// Table converts the document into validated metadata.
func (doc *TableDoc) Table() (*Table, error) {
	params := TableParams{
		Name:        doc.Name,
		SchemaField: doc.SchemaField,
		Key: Key{
			Pk:     doc.Key.Pk,
			Sk:     doc.Key.Sk,
			PkKind: Kind(doc.Key.PkKind),
			SkKind: Kind(doc.Key.SkKind),
		},
		Indexes:              make(map[string]*GlobalIndex),
		PayPerRequest:        doc.PayPerRequest,
		ReadUnits:            doc.ReadUnits,
		WriteUnits:           doc.WriteUnits,
		DeletionProtection:   doc.DeletionProtection,
		TableClassInfrequent: doc.TableClassInfrequent,
	}
	for name, idx := range doc.Indexes {
		params.Indexes[name] = &GlobalIndex{
			Pk:         idx.Pk,
			Sk:         idx.Sk,
			PkKind:     Kind(idx.PkKind),
			SkKind:     Kind(idx.SkKind),
			ReadUnits:  idx.ReadUnits,
			WriteUnits: idx.WriteUnits,
			Unique:     idx.Unique,
		}
	}
	for _, sd := range doc.Schemas {
		s := NewSchema(sd.Name, NewKeyFormat(sd.Key.Pk, sd.Key.Sk, sd.Key.Required...))
		for idx, td := range sd.Indexes {
			s.Index(idx, NewKeyFormat(td.Pk, td.Sk, td.Required...))
		}
		for _, ad := range sd.Attributes {
			attr, err := ad.attr()
			if err != nil {
				return nil, err
			}
			s.Attr(ad.Name, attr)
		}
		for name, cd := range sd.Counters {
			s.Counter(name, AutoIncrement{Start: cd.Start, Step: cd.Step})
		}
		params.Schemas = append(params.Schemas, s)
	}
	return NewTable(params)
}

func (d *AttrDoc) attr() (Attr, error) {
	switch d.Type {
	case "uuid":
		return &UUIDAttr{Optional: d.Optional, ReadOnly: d.ReadOnly}, nil
	case "datetime":
		return &DateTimeAttr{Optional: d.Optional, ReadOnly: d.ReadOnly, Current: d.Current}, nil
	case "string":
		a := &StringAttr{
			MinLength: d.MinLength, MaxLength: d.MaxLength,
			Optional: d.Optional, ReadOnly: d.ReadOnly,
		}
		if s, ok := d.Default.(string); ok {
			a.Default = s
		}
		return a, nil
	case "int":
		a := &IntAttr{Optional: d.Optional, ReadOnly: d.ReadOnly}
		if n, ok := asInt(d.Default); d.Default != nil && ok {
			a.Default = &n
		}
		return a, nil
	case "float":
		a := &FloatAttr{Optional: d.Optional, ReadOnly: d.ReadOnly}
		if f, ok := asFloat(d.Default); d.Default != nil && ok {
			a.Default = &f
		}
		return a, nil
	case "bool":
		a := &BoolAttr{Optional: d.Optional, ReadOnly: d.ReadOnly}
		if b, ok := d.Default.(bool); ok {
			a.Default = &b
		}
		return a, nil
	case "bytes":
		return &BytesAttr{Optional: d.Optional, ReadOnly: d.ReadOnly}, nil
	case "intenum":
		def, _ := d.Default.(string)
		return &IntEnumAttr{Values: d.Values, Default: def, Optional: d.Optional, ReadOnly: d.ReadOnly}, nil
	case "strenum":
		def, _ := d.Default.(string)
		return &StrEnumAttr{Values: d.Options, Default: def, Optional: d.Optional, ReadOnly: d.ReadOnly}, nil
	case "flag":
		return &FlagAttr{Options: d.Options, Optional: d.Optional, ReadOnly: d.ReadOnly}, nil
	case "stringlist":
		return &StringListAttr{Optional: d.Optional, ReadOnly: d.ReadOnly}, nil
	case "intlist":
		return &IntListAttr{Optional: d.Optional, ReadOnly: d.ReadOnly}, nil
	case "floatlist":
		return &FloatListAttr{Optional: d.Optional, ReadOnly: d.ReadOnly}, nil
	case "bytelist":
		return &ByteListAttr{Optional: d.Optional, ReadOnly: d.ReadOnly}, nil
	case "map", "list":
		members := make(map[string]Attr, len(d.Members))
		for _, md := range d.Members {
			child, err := md.attr()
			if err != nil {
				return nil, err
			}
			members[md.Name] = child
		}
		if d.Type == "map" {
			return &MapAttr{Attrs: members, Optional: d.Optional, ReadOnly: d.ReadOnly}, nil
		}
		return &ListAttr{Attrs: members, Optional: d.Optional, ReadOnly: d.ReadOnly}, nil
	}
	return nil, NewArgError(fmt.Sprintf("unknown attribute type %q", d.Type))
}
