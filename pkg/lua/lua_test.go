package lua

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalScalars(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, "nil"},
		{"true", true, "true"},
		{"false", false, "false"},
		{"int", 42, "42"},
		{"negative", int64(-7), "-7"},
		{"uint", uint8(255), "255"},
		{"float", 1.5, "1.5"},
		{"string", "src/math/vec3.cc", `"src/math/vec3.cc"`},
		{"escapes", "a\"b\\c\nd\te", `"a\"b\\c\nd\te"`},
		{"control", "x\x01y", `"x\001y"`},
		{"nil pointer", (*int)(nil), "nil"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Marshal(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestMarshalEmptyContainers(t *testing.T) {
	for _, v := range []any{[]string{}, []any(nil), Table{}, map[string]any{}} {
		got, err := Marshal(v)
		require.NoError(t, err)
		assert.Equal(t, "{}", string(got), "value %#v", v)
	}
}

func TestMarshalList(t *testing.T) {
	got, err := Marshal([]string{"B", "C"})
	require.NoError(t, err)
	assert.Equal(t, "{\n    \"B\",\n    \"C\"\n}", string(got))
}

func TestMarshalTableKeepsInsertionOrder(t *testing.T) {
	tbl := Table{}.
		Set("Name", "A").
		Set("Depends", []string{"B", "C"}).
		Set("Sources", []any{"src/A/a.cc"})

	got, err := Marshal(tbl)
	require.NoError(t, err)

	want := `{
    Name = "A",
    Depends = {
        "B",
        "C"
    },
    Sources = {
        "src/A/a.cc"
    }
}`
	assert.Equal(t, want, string(got))
}

func TestTableSetReplacesExistingKey(t *testing.T) {
	tbl := Table{}.Set("Name", "A").Set("Name", "B")
	require.Len(t, tbl, 1)
	assert.Equal(t, "B", tbl[0].Value)
}

func TestMarshalMapSortsKeys(t *testing.T) {
	got, err := Marshal(map[string]int{"b": 2, "a": 1, "not ident": 3})
	require.NoError(t, err)
	assert.Equal(t, "{\n    a = 1,\n    b = 2,\n    [\"not ident\"] = 3\n}", string(got))
}

func TestMarshalReservedWordKey(t *testing.T) {
	got, err := Marshal(Table{{Key: "end", Value: 1}})
	require.NoError(t, err)
	assert.Equal(t, "{\n    [\"end\"] = 1\n}", string(got))
}

func TestMarshalConfigFilterIsInlineRecord(t *testing.T) {
	list := []any{
		"src/os/file.cc",
		ConfigFilter{Value: "src/os/file_windows.cc", Config: "win64-*-*"},
		&ConfigFilter{Value: "src/os/file_linux.cc", Config: "linux-*-*"},
	}

	got, err := Marshal(list)
	require.NoError(t, err)

	want := `{
    "src/os/file.cc",
    { "src/os/file_windows.cc"; Config = "win64-*-*" },
    { "src/os/file_linux.cc"; Config = "linux-*-*" }
}`
	assert.Equal(t, want, string(got))
}

func TestMarshalConfigFilterNestedPayloadHasNoStructuralIndent(t *testing.T) {
	got, err := Marshal(Table{{Key: "Depends", Value: []any{
		ConfigFilter{Value: []string{"x"}, Config: "win64-*-*"},
	}}})
	require.NoError(t, err)
	assert.Equal(t, "{\n    Depends = {\n        { {\n    \"x\"\n}; Config = \"win64-*-*\" }\n    }\n}", string(got))
}

type unit struct{ name string }

func (u unit) MarshalLua() (any, error) {
	return Table{{Key: "Name", Value: u.name}}, nil
}

func TestMarshalUsesMarshaler(t *testing.T) {
	got, err := Marshal([]unit{{name: "core"}})
	require.NoError(t, err)
	assert.Equal(t, "{\n    {\n        Name = \"core\"\n    }\n}", string(got))
}

func TestMarshalIsIdempotent(t *testing.T) {
	tree := Table{
		{Key: "Name", Value: "D_d_test"},
		{Key: "Depends", Value: []any{"D", ConfigFilter{Value: "gl", Config: "win64-*-*"}, "test"}},
		{Key: "Sources", Value: map[string]any{"z": 1, "a": []string{"q"}}},
	}

	first, err := Marshal(tree)
	require.NoError(t, err)
	second, err := Marshal(tree)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestMarshalUnsupported(t *testing.T) {
	for _, v := range []any{make(chan int), func() {}, math.NaN(), math.Inf(1), map[int]string{1: "x"}} {
		_, err := Marshal(v)
		var uve *UnsupportedValueError
		assert.ErrorAs(t, err, &uve, "value %T", v)
	}
}
