package datatypes

import (
	"errors"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/VanDung-dev/tabular/errs"
)

func TestSchema(t *testing.T) {
	schema := NewSchema(
		NewField("id", Int64(), false),
		NewField("name", Utf8(), true),
		NewField("name", LargeUtf8(), true),
	)

	if schema.Len() != 3 {
		t.Fatalf("Expected 3 fields, got %d", schema.Len())
	}

	expected := []struct {
		name     string
		nullable bool
	}{
		{"id", false},
		{"name", true},
		{"name", true},
	}
	for i, want := range expected {
		f := schema.Field(i)
		if f.Name != want.name {
			t.Errorf("Field %d: expected name %s, got %s", i, want.name, f.Name)
		}
		if f.Nullable != want.nullable {
			t.Errorf("Field %s: expected nullable=%v, got %v", want.name, want.nullable, f.Nullable)
		}
	}

	fields := schema.Fields()
	fields[0].Name = "changed"
	if schema.Field(0).Name != "id" {
		t.Error("Fields() must return a copy")
	}
}

func TestSchemaEqual(t *testing.T) {
	a := NewSchema(NewField("ts", TimestampMicros("UTC"), true))
	b := NewSchema(NewField("ts", TimestampMicros("UTC"), true))
	c := NewSchema(NewField("ts", TimestampMicros(""), true))

	if !a.Equal(b) {
		t.Error("identical schemas compare unequal")
	}
	if a.Equal(c) {
		t.Error("schemas differing by timezone compare equal")
	}
	if a.Equal(NewSchema()) {
		t.Error("schemas of different width compare equal")
	}
}

func TestSchemaArrow(t *testing.T) {
	schema := NewSchema(
		NewField("flag", Boolean(), true),
		NewField("at", TimestampMicros("UTC"), false),
		NewField("day", Date32(), true),
	)

	asc := schema.Arrow()
	if asc.NumFields() != 3 {
		t.Fatalf("Expected 3 fields, got %d", asc.NumFields())
	}
	if !arrow.TypeEqual(asc.Field(1).Type, &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}) {
		t.Errorf("field 1 type = %s", asc.Field(1).Type)
	}
	if asc.Field(1).Nullable {
		t.Error("field 1 should not be nullable")
	}

	back, err := SchemaFromArrow(asc)
	if err != nil {
		t.Fatalf("SchemaFromArrow: %v", err)
	}
	if !back.Equal(schema) {
		t.Errorf("round trip = %s, want %s", back, schema)
	}
}

func TestSchemaFromArrowUnsupported(t *testing.T) {
	asc := arrow.NewSchema([]arrow.Field{
		{Name: "ok", Type: arrow.PrimitiveTypes.Int32},
		{Name: "amount", Type: &arrow.Decimal128Type{Precision: 12, Scale: 2}},
	}, nil)

	if _, err := SchemaFromArrow(asc); !errors.Is(err, errs.ErrUnsupportedType) {
		t.Fatalf("SchemaFromArrow error = %v, want ErrUnsupportedType", err)
	}
}

func TestSchemaCheckEncodable(t *testing.T) {
	ok := NewSchema(NewField("at", TimestampSeconds("UTC"), true), NewField("tod", Time64(Nanosecond), true))
	if err := ok.CheckEncodable(); err != nil {
		t.Errorf("CheckEncodable() = %v", err)
	}
	bad := NewSchema(NewField("id", Int64(), false), NewField("tod", Time64(Millisecond), true))
	if err := bad.CheckEncodable(); !errors.Is(err, errs.ErrUnsupportedType) {
		t.Errorf("CheckEncodable() = %v, want ErrUnsupportedType", err)
	}
}
