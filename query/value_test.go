package query

import (
	"errors"
	"math"
	"testing"

	"github.com/goccy/go-json"
)

func TestValueEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"null null", Null(), Null(), true},
		{"zero value is null", Value{}, Null(), true},
		{"bool same", Bool(true), Bool(true), true},
		{"bool differ", Bool(true), Bool(false), false},
		{"number same", Number(1.5), Number(1.5), true},
		{"number differ", Number(1), Number(2), false},
		{"string same", String("x"), String("x"), true},
		{"string case", String("x"), String("X"), false},
		{"number vs string", Number(1), String("1"), false},
		{"bool vs number", Bool(true), Number(1), false},
		{"null vs empty string", Null(), String(""), false},
		{"null vs false", Null(), Bool(false), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
			if got := tt.b.Equal(tt.a); got != tt.want {
				t.Errorf("Equal() not symmetric: got %v", got)
			}
			if got := tt.a.NotEqual(tt.b); got == tt.want {
				t.Errorf("NotEqual() = %v, want %v", got, !tt.want)
			}
		})
	}
}

func TestValueAsInteger(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want int64
		ok   bool
	}{
		{"integral", Number(3), 3, true},
		{"negative", Number(-42), -42, true},
		{"integral float", Number(20.0), 20, true},
		{"fraction", Number(2.5), 0, false},
		{"nan", Number(math.NaN()), 0, false},
		{"inf", Number(math.Inf(1)), 0, false},
		{"too large", Number(1e19), 0, false},
		{"min int64", Number(-0x1p63), math.MinInt64, true},
		{"string digits", String("3"), 0, false},
		{"bool", Bool(true), 0, false},
		{"null", Null(), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.v.AsInteger()
			if ok != tt.ok || got != tt.want {
				t.Errorf("AsInteger() = (%d, %v), want (%d, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestValueAccessors(t *testing.T) {
	if b, ok := Bool(true).AsBool(); !ok || !b {
		t.Errorf("Bool(true).AsBool() = (%v, %v)", b, ok)
	}
	if _, ok := String("true").AsBool(); ok {
		t.Error("String.AsBool() should fail")
	}
	if s, ok := String("moby").AsText(); !ok || s != "moby" {
		t.Errorf("String.AsText() = (%q, %v)", s, ok)
	}
	if _, ok := Number(1).AsText(); ok {
		t.Error("Number.AsText() should fail")
	}
	if _, ok := Null().AsText(); ok {
		t.Error("Null.AsText() should fail")
	}
}

func TestValueString(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Null(), "null"},
		{Bool(false), "false"},
		{Number(20), "20"},
		{Number(-1.25), "-1.25"},
		{String(`say "hi"`), `"say \"hi\""`},
		{String("a\\b\n"), `"a\\b\n"`},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("String() = %s, want %s", got, tt.want)
		}
	}
}

func TestFromAny(t *testing.T) {
	tests := []struct {
		in   any
		want Value
	}{
		{nil, Null()},
		{true, Bool(true)},
		{"x", String("x")},
		{float64(2.5), Number(2.5)},
		{int(7), Number(7)},
		{int64(-3), Number(-3)},
		{uint8(9), Number(9)},
		{float32(0.5), Number(0.5)},
		{json.Number("12"), Number(12)},
	}
	for _, tt := range tests {
		got, err := FromAny(tt.in)
		if err != nil {
			t.Fatalf("FromAny(%v) error = %v", tt.in, err)
		}
		if !got.Equal(tt.want) {
			t.Errorf("FromAny(%v) = %s, want %s", tt.in, got, tt.want)
		}
	}

	for _, bad := range []any{map[string]any{}, []any{1}, struct{}{}} {
		if _, err := FromAny(bad); !errors.Is(err, ErrUnsupportedValue) {
			t.Errorf("FromAny(%T) error = %v, want ErrUnsupportedValue", bad, err)
		}
	}
}

func TestRecordFromMap(t *testing.T) {
	var m map[string]any
	if err := json.Unmarshal([]byte(`{"name":"Moby","size":25,"rare":true,"note":null}`), &m); err != nil {
		t.Fatal(err)
	}
	rec, err := RecordFromMap(m)
	if err != nil {
		t.Fatalf("RecordFromMap() error = %v", err)
	}
	if v, _ := rec.Get("size"); !v.Equal(Number(25)) {
		t.Errorf("size = %s", v)
	}
	if v, ok := rec.Get("note"); !ok || !v.IsNull() {
		t.Errorf("note = %s, %v", v, ok)
	}

	if _, err := RecordFromMap(map[string]any{"tags": []any{"a"}}); !errors.Is(err, ErrUnsupportedValue) {
		t.Errorf("nested value error = %v", err)
	}

	back := rec.Map()
	if back["name"] != "Moby" || back["size"] != float64(25) || back["note"] != nil {
		t.Errorf("Map() = %v", back)
	}
}

func TestValueMarshalJSON(t *testing.T) {
	rec := Record{
		"name": String("Moby"),
		"size": Number(25.5),
		"rare": Bool(true),
		"note": Null(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"name":"Moby","note":null,"rare":true,"size":25.5}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}
}
