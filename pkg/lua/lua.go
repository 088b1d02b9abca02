package lua

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// indentUnit is the whitespace emitted per nesting depth
const indentUnit = "    "

// ConfigFilter pairs a value with a tundra configuration selector
// (e.g. "win64-*-*"). The wrapped value is opaque to the filter.
type ConfigFilter struct {
	Value  any
	Config string
}

// Field is one key/value pair of a Table
type Field struct {
	Key   string
	Value any
}

// Table is a mapping that renders its fields in insertion order
type Table []Field

// Set appends a field, or replaces the value of an existing key in place
func (t Table) Set(key string, value any) Table {
	for i := range t {
		if t[i].Key == key {
			t[i].Value = value
			return t
		}
	}
	return append(t, Field{Key: key, Value: value})
}

// Marshaler is implemented by types that know how to present themselves
// as a plain value tree before rendering
type Marshaler interface {
	MarshalLua() (any, error)
}

// UnsupportedValueError is returned for values with no Lua literal form
type UnsupportedValueError struct {
	Value any
}

func (e *UnsupportedValueError) Error() string {
	return fmt.Sprintf("lua: unsupported value of type %T", e.Value)
}

// Marshal renders v as a Lua literal. Identical input always renders
// byte-identical output.
func Marshal(v any) ([]byte, error) {
	var sb strings.Builder
	if err := encode(&sb, v, 0); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

func encode(sb *strings.Builder, v any, depth int) error {
	if v == nil {
		sb.WriteString("nil")
		return nil
	}

	switch x := v.(type) {
	case Marshaler:
		inner, err := x.MarshalLua()
		if err != nil {
			return err
		}
		return encode(sb, inner, depth)
	case ConfigFilter:
		return encodeFilter(sb, x)
	case *ConfigFilter:
		if x == nil {
			sb.WriteString("nil")
			return nil
		}
		return encodeFilter(sb, *x)
	case Table:
		return encodeTable(sb, x, depth)
	case string:
		sb.WriteString(Quote(x))
		return nil
	case bool:
		sb.WriteString(strconv.FormatBool(x))
		return nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			sb.WriteString("nil")
			return nil
		}
		return encode(sb, rv.Elem().Interface(), depth)
	case reflect.String:
		sb.WriteString(Quote(rv.String()))
	case reflect.Bool:
		sb.WriteString(strconv.FormatBool(rv.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		sb.WriteString(strconv.FormatInt(rv.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		sb.WriteString(strconv.FormatUint(rv.Uint(), 10))
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return &UnsupportedValueError{Value: v}
		}
		sb.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			sb.WriteString("{}")
			return nil
		}
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return encodeList(sb, items, depth)
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return &UnsupportedValueError{Value: v}
		}
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		t := make(Table, 0, len(keys))
		for _, k := range keys {
			t = append(t, Field{Key: k, Value: rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())).Interface()})
		}
		return encodeTable(sb, t, depth)
	default:
		return &UnsupportedValueError{Value: v}
	}
	return nil
}

// encodeFilter renders the two-field inline record. The payload is rendered
// at depth zero so filters never pick up structural indentation.
func encodeFilter(sb *strings.Builder, f ConfigFilter) error {
	sb.WriteString("{ ")
	if err := encode(sb, f.Value, 0); err != nil {
		return err
	}
	sb.WriteString("; Config = ")
	sb.WriteString(Quote(f.Config))
	sb.WriteString(" }")
	return nil
}

func encodeList(sb *strings.Builder, items []any, depth int) error {
	sb.WriteByte('{')
	for i, item := range items {
		sb.WriteByte('\n')
		writeIndent(sb, depth+1)
		if err := encode(sb, item, depth+1); err != nil {
			return err
		}
		if i+1 < len(items) {
			sb.WriteByte(',')
		}
	}
	if len(items) > 0 {
		sb.WriteByte('\n')
		writeIndent(sb, depth)
	}
	sb.WriteByte('}')
	return nil
}

func encodeTable(sb *strings.Builder, t Table, depth int) error {
	sb.WriteByte('{')
	for i, f := range t {
		sb.WriteByte('\n')
		writeIndent(sb, depth+1)
		sb.WriteString(key(f.Key))
		sb.WriteString(" = ")
		if err := encode(sb, f.Value, depth+1); err != nil {
			return err
		}
		if i+1 < len(t) {
			sb.WriteByte(',')
		}
	}
	if len(t) > 0 {
		sb.WriteByte('\n')
		writeIndent(sb, depth)
	}
	sb.WriteByte('}')
	return nil
}

func writeIndent(sb *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		sb.WriteString(indentUnit)
	}
}

// key renders a table key, falling back to the bracketed form for anything
// that is not a plain Lua identifier
func key(k string) string {
	if isIdentifier(k) {
		return k
	}
	return "[" + Quote(k) + "]"
}

var reserved = map[string]bool{
	"and": true, "break": true, "do": true, "else": true, "elseif": true,
	"end": true, "false": true, "for": true, "function": true, "if": true,
	"in": true, "local": true, "nil": true, "not": true, "or": true,
	"repeat": true, "return": true, "then": true, "true": true, "until": true,
	"while": true,
}

func isIdentifier(s string) bool {
	if s == "" || reserved[s] {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

// Quote returns s as a double-quoted Lua 5.1 string literal
func Quote(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			if c < 0x20 || c == 0x7f {
				// Lua decimal escapes are greedy, pad to three digits
				fmt.Fprintf(&sb, `\%03d`, c)
			} else {
				sb.WriteByte(c)
			}
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
