package datatypes

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
)

// Field is a named, typed column.
type Field struct {
	Name     string
	Type     DataType
	Nullable bool
}

// NewField returns a Field.
func NewField(name string, dt DataType, nullable bool) Field {
	return Field{Name: name, Type: dt, Nullable: nullable}
}

func (f Field) String() string {
	if f.Nullable {
		return fmt.Sprintf("%s: %s", f.Name, f.Type)
	}
	return fmt.Sprintf("%s: %s not null", f.Name, f.Type)
}

// Arrow returns the equivalent Arrow field.
func (f Field) Arrow() arrow.Field {
	return arrow.Field{Name: f.Name, Type: f.Type.Arrow(), Nullable: f.Nullable}
}

// Schema is an ordered list of fields. Names need not be unique.
type Schema struct {
	fields []Field
}

// NewSchema returns a Schema over a copy of fields.
func NewSchema(fields ...Field) *Schema {
	return &Schema{fields: append([]Field(nil), fields...)}
}

// Len returns the number of fields.
func (s *Schema) Len() int { return len(s.fields) }

// Field returns the i-th field.
func (s *Schema) Field(i int) Field { return s.fields[i] }

// Fields returns a copy of the fields.
func (s *Schema) Fields() []Field { return append([]Field(nil), s.fields...) }

// Equal reports whether both schemas hold the same fields in the same order.
func (s *Schema) Equal(o *Schema) bool {
	if s == nil || o == nil {
		return s == o
	}
	if len(s.fields) != len(o.fields) {
		return false
	}
	for i := range s.fields {
		if s.fields[i] != o.fields[i] {
			return false
		}
	}
	return true
}

func (s *Schema) String() string {
	parts := make([]string, len(s.fields))
	for i, f := range s.fields {
		parts[i] = f.String()
	}
	return "schema<" + strings.Join(parts, ", ") + ">"
}

// Arrow returns the equivalent Arrow schema.
func (s *Schema) Arrow() *arrow.Schema {
	fields := make([]arrow.Field, len(s.fields))
	for i, f := range s.fields {
		fields[i] = f.Arrow()
	}
	return arrow.NewSchema(fields, nil)
}

// CheckEncodable fails with ErrUnsupportedType on the first field whose type
// has no Arrow encoding.
func (s *Schema) CheckEncodable() error {
	for _, f := range s.fields {
		if err := f.Type.CheckEncodable(); err != nil {
			return fmt.Errorf("field %q: %w", f.Name, err)
		}
	}
	return nil
}

// SchemaFromArrow converts an Arrow schema. It fails with ErrUnsupportedType
// on the first field whose type has no DataType.
func SchemaFromArrow(sc *arrow.Schema) (*Schema, error) {
	fields := make([]Field, sc.NumFields())
	for i, f := range sc.Fields() {
		dt, err := FromArrow(f.Type)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		fields[i] = Field{Name: f.Name, Type: dt, Nullable: f.Nullable}
	}
	return &Schema{fields: fields}, nil
}
