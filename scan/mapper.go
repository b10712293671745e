package scan

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/learningeconomy/neofilter/internal"
)

// Public Helper Functions
// Rows come from driver.Executor: one map per record, keyed by RETURN
// column. Node values are already reduced to their property maps.

// Decode pulls column out of every row, inflates dotted property keys and
// assigns the result to T. T can be a struct (fields tagged with
// `neofilter:"name"`) or map[string]any. An empty column decodes whole rows.
func Decode[T any](rows []map[string]any, column string) ([]T, error) {
	out := make([]T, len(rows))
	for i, row := range rows {
		props := row
		if column != "" {
			v, ok := row[column]
			if !ok {
				return nil, fmt.Errorf("scan: row %d has no column %q", i, column)
			}
			m, ok := v.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("scan: column %q is %T, not a node", column, v)
			}
			props = m
		}
		if err := assign(&out[i], Inflate(props)); err != nil {
			return nil, fmt.Errorf("scan: row %d: %w", i, err)
		}
	}
	return out, nil
}

/*───────────────────────────────
|  Dotted property keys          |
└───────────────────────────────*/

// Inflate turns dotted keys back into nested maps:
// {"meta.appListingId": "x"} ➜ {"meta": {"appListingId": "x"}}.
// Keys are visited in sorted order, so a dotted key wins over a scalar
// stored under its prefix.
func Inflate(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for _, k := range internal.SortedKeys(props) {
		parts := strings.Split(k, ".")
		cur := out
		for _, p := range parts[:len(parts)-1] {
			next, ok := cur[p].(map[string]any)
			if !ok {
				next = map[string]any{}
				cur[p] = next
			}
			cur = next
		}
		cur[parts[len(parts)-1]] = props[k]
	}
	return out
}

// Flatten is the inverse of Inflate: nested maps become dotted keys, the
// shape Neo4j can store as node properties.
func Flatten(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	flattenInto(out, "", m)
	return out
}

func flattenInto(out map[string]any, prefix string, m map[string]any) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			flattenInto(out, key, sub) // empty maps vanish; Neo4j cannot store them
			continue
		}
		out[key] = v
	}
}

/*───────────────────────────────
|  Struct assignment w/ cache    |
└───────────────────────────────*/

var metaCache sync.Map // reflect.Type → []fieldMeta

type fieldMeta struct {
	name  string
	index []int
}

func assign[T any](ptr *T, props map[string]any) error {
	// fast-path: target is map[string]any
	if m, ok := any(ptr).(*map[string]any); ok {
		*m = props
		return nil
	}

	val := reflect.ValueOf(ptr).Elem()
	if val.Kind() != reflect.Struct {
		return fmt.Errorf("unsupported target %s", val.Type())
	}
	rt := val.Type()

	metaAny, ok := metaCache.Load(rt)
	if !ok {
		metaAny, _ = metaCache.LoadOrStore(rt, buildMeta(rt))
	}
	for _, fm := range metaAny.([]fieldMeta) {
		v, ok := props[fm.name]
		if !ok || v == nil {
			continue
		}
		if err := set(val.FieldByIndex(fm.index), v); err != nil {
			return fmt.Errorf("field %q: %w", fm.name, err)
		}
	}
	return nil
}

func set(f reflect.Value, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(f.Type()) {
		f.Set(rv)
		return nil
	}
	switch f.Kind() {
	case reflect.String:
		f.SetString(toStr(v))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, ok := Int64(v)
		if !ok {
			return fmt.Errorf("cannot use %T as int", v)
		}
		f.SetInt(n)
	case reflect.Float32, reflect.Float64:
		fl, ok := toFloat64(v)
		if !ok {
			return fmt.Errorf("cannot use %T as float", v)
		}
		f.SetFloat(fl)
	case reflect.Bool:
		s := toStr(v)
		f.SetBool(s == "1" || strings.EqualFold(s, "true"))
	case reflect.Slice:
		xs, ok := v.([]any)
		if !ok {
			return fmt.Errorf("cannot use %T as list", v)
		}
		out := reflect.MakeSlice(f.Type(), len(xs), len(xs))
		for i, x := range xs {
			if x == nil {
				continue
			}
			if err := set(out.Index(i), x); err != nil {
				return err
			}
		}
		f.Set(out)
	default:
		return fmt.Errorf("cannot use %T as %s", v, f.Type())
	}
	return nil
}

func buildMeta(rt reflect.Type) []fieldMeta {
	out := make([]fieldMeta, 0, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		tag := f.Tag.Get("neofilter")
		if tag == "" || tag == "-" {
			continue
		}
		out = append(out, fieldMeta{strings.Split(tag, ",")[0], f.Index})
	}
	return out
}

/*───────────────────────────────
|  Small util fns                |
└───────────────────────────────*/

func toStr(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// Int64 converts the integer shapes a row value can take: driver int64,
// JSON numbers from the cache, or numeric strings.
func Int64(v any) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case int:
		return int64(t), true
	case float64:
		return int64(t), true
	case json.Number:
		n, err := t.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

func toFloat64(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
