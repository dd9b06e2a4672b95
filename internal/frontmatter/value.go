package frontmatter

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"
)

// ValueKind tags the variant held by a Value.
type ValueKind uint8

const (
	NullValue ValueKind = iota
	StringValue
	IntValue
	FloatValue
	BoolValue
	DatetimeValue
	ListValue
	MapValue
)

// Value is a structured front-matter value passed through to templates without
// interpretation. Only the field matching Kind is meaningful.
type Value struct {
	kind ValueKind
	str  string
	i    int64
	f    float64
	b    bool
	t    time.Time
	list []Value
	m    map[string]Value
}

func String(s string) Value             { return Value{kind: StringValue, str: s} }
func Int(i int64) Value                 { return Value{kind: IntValue, i: i} }
func Float(f float64) Value             { return Value{kind: FloatValue, f: f} }
func Bool(b bool) Value                 { return Value{kind: BoolValue, b: b} }
func Datetime(t time.Time) Value        { return Value{kind: DatetimeValue, t: t} }
func List(items ...Value) Value         { return Value{kind: ListValue, list: items} }
func Map(entries map[string]Value) Value { return Value{kind: MapValue, m: entries} }

// Kind returns the variant tag.
func (v Value) Kind() ValueKind { return v.kind }

// Str returns the string variant.
func (v Value) Str() (string, bool) { return v.str, v.kind == StringValue }

// IntVal returns the integer variant.
func (v Value) IntVal() (int64, bool) { return v.i, v.kind == IntValue }

// FloatVal returns the float variant.
func (v Value) FloatVal() (float64, bool) { return v.f, v.kind == FloatValue }

// BoolVal returns the bool variant.
func (v Value) BoolVal() (bool, bool) { return v.b, v.kind == BoolValue }

// Time returns the datetime variant.
func (v Value) Time() (time.Time, bool) { return v.t, v.kind == DatetimeValue }

// Items returns the list variant.
func (v Value) Items() ([]Value, bool) { return v.list, v.kind == ListValue }

// Entries returns the map variant.
func (v Value) Entries() (map[string]Value, bool) { return v.m, v.kind == MapValue }

// Get looks up key in a map value.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != MapValue {
		return Value{}, false
	}
	child, ok := v.m[key]
	return child, ok
}

// Interface converts the value into plain Go values suitable for template data.
// Datetimes become RFC 3339 strings.
func (v Value) Interface() any {
	switch v.kind {
	case StringValue:
		return v.str
	case IntValue:
		return v.i
	case FloatValue:
		return v.f
	case BoolValue:
		return v.b
	case DatetimeValue:
		return v.t.Format(time.RFC3339)
	case ListValue:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Interface()
		}
		return out
	case MapValue:
		out := make(map[string]any, len(v.m))
		for k, item := range v.m {
			out[k] = item.Interface()
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON encodes the value as its plain Go form.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// FromAny converts decoder output (TOML or YAML) into a Value tree.
func FromAny(raw any) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return Value{}, nil
	case string:
		return String(x), nil
	case bool:
		return Bool(x), nil
	case int:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case int32:
		return Int(int64(x)), nil
	case uint64:
		if x > math.MaxInt64 {
			return Float(float64(x)), nil
		}
		return Int(int64(x)), nil
	case float64:
		return Float(x), nil
	case float32:
		return Float(float64(x)), nil
	case time.Time:
		return Datetime(x), nil
	case []any:
		items := make([]Value, 0, len(x))
		for i, item := range x {
			v, err := FromAny(item)
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			items = append(items, v)
		}
		return List(items...), nil
	case []map[string]any:
		items := make([]Value, 0, len(x))
		for i, item := range x {
			v, err := FromAny(item)
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			items = append(items, v)
		}
		return List(items...), nil
	case map[string]any:
		entries := make(map[string]Value, len(x))
		for _, k := range sortedKeys(x) {
			v, err := FromAny(x[k])
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", k, err)
			}
			entries[k] = v
		}
		return Map(entries), nil
	case map[any]any:
		entries := make(map[string]Value, len(x))
		for k, item := range x {
			key, ok := k.(string)
			if !ok {
				return Value{}, fmt.Errorf("non-string key %v", k)
			}
			v, err := FromAny(item)
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", key, err)
			}
			entries[key] = v
		}
		return Map(entries), nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", raw)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
