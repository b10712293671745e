package query

import (
	"reflect"
	"regexp"
	"strings"
	"time"
)

// Operator keys understood inside a filter document.
const (
	OpIn    = "$in"
	OpRegex = "$regex"
	OpOr    = "$or"
)

// Parse classifies every value of filter into an Expr tree without
// rendering it. Build is Parse followed by Compile.
func Parse(filter Filter) (Expr, error) {
	xs, err := parseDoc(filter)
	if err != nil {
		return nil, err
	}
	return &and{xs: xs}, nil
}

// parseDoc handles one complete document: the root filter or a sibling
// inside a top-level $or.
func parseDoc(filter Filter) ([]Expr, error) {
	xs := make([]Expr, 0, len(filter))
	for _, fld := range filter {
		switch {
		case fld.Key == OpOr:
			x, err := parseOrGroup(fld.Value)
			if err != nil {
				return nil, err
			}
			xs = append(xs, x)
		case isOperator(fld.Key):
			return nil, unsupported("", fld.Key)
		default:
			x, err := parseField(fld.Key, fld.Value)
			if err != nil {
				return nil, err
			}
			xs = append(xs, x)
		}
	}
	return xs, nil
}

func parseOrGroup(v any) (Expr, error) {
	docs, ok := sliceOf(v)
	if !ok {
		return nil, invalid("", OpOr, "expected a list of filters, got %T", v)
	}
	xs := make([]Expr, 0, len(docs))
	for i, d := range docs {
		sub, ok := asDoc(d)
		if !ok {
			return nil, invalid("", OpOr, "element %d is %T, not a filter", i, d)
		}
		parts, err := parseDoc(sub)
		if err != nil {
			return nil, err
		}
		xs = append(xs, &and{xs: parts, paren: true})
	}
	return &or{xs}, nil
}

// parseField classifies the value stored under a top-level key.
func parseField(path string, v any) (Expr, error) {
	doc, ok := asDoc(v)
	if !ok || hasOperator(doc) {
		return parseLeaf(path, v)
	}
	if len(doc) == 0 {
		return nil, invalid(path, "", "empty nested object")
	}
	var leaves []Expr
	if err := flatten(path, doc, &leaves); err != nil {
		return nil, err
	}
	return &and{xs: leaves, paren: true}, nil
}

// flatten collects the leaves of a nested object, at any depth, as
// conditions on the dotted property path.
func flatten(prefix string, doc Filter, out *[]Expr) error {
	for _, fld := range doc {
		path := Path(prefix, fld.Key)
		sub, ok := asDoc(fld.Value)
		if ok && !hasOperator(sub) {
			if len(sub) == 0 {
				return invalid(path, "", "empty nested object")
			}
			if err := flatten(path, sub, out); err != nil {
				return err
			}
			continue
		}
		x, err := parseLeaf(path, fld.Value)
		if err != nil {
			return err
		}
		*out = append(*out, x)
	}
	return nil
}

// parseLeaf handles a scalar, a regex value or an operator object.
func parseLeaf(path string, v any) (Expr, error) {
	switch t := v.(type) {
	case nil:
		return nil, invalid(path, "", "nil value")
	case Pattern, *Pattern, *regexp.Regexp:
		p, ok := asPattern(t)
		if !ok {
			return nil, invalid(path, "", "nil pattern")
		}
		return RegexOf(path, p), nil
	}
	if doc, ok := asDoc(v); ok {
		return parseOperator(path, doc)
	}
	if !isScalar(v) {
		return nil, invalid(path, "", "%T is not a scalar; use $in for lists", v)
	}
	return Eq(path, v), nil
}

func parseOperator(path string, doc Filter) (Expr, error) {
	if len(doc) != 1 {
		return nil, invalid(path, "", "operator object must hold exactly one operator, got keys %v", doc.Keys())
	}
	op, v := doc[0].Key, doc[0].Value
	switch op {
	case OpIn:
		if _, ok := sliceOf(v); !ok {
			return nil, invalid(path, op, "expected a list, got %T", v)
		}
		return In(path, v), nil

	case OpRegex:
		if s, ok := v.(string); ok {
			return Regex(path, s), nil
		}
		if p, ok := asPattern(v); ok {
			return RegexOf(path, p), nil
		}
		return nil, invalid(path, op, "expected a string or pattern, got %T", v)

	case OpOr:
		alts, ok := sliceOf(v)
		if !ok {
			return nil, invalid(path, op, "expected a list, got %T", v)
		}
		for i, a := range alts {
			if !isScalar(a) {
				return nil, invalid(path, op, "alternative %d is %T, not a scalar", i, a)
			}
		}
		return AnyOf(path, alts...), nil
	}
	return nil, unsupported(path, op)
}

// -------------------------------------------------------------------
// shape helpers
// -------------------------------------------------------------------

func isOperator(key string) bool { return strings.HasPrefix(key, "$") }

func hasOperator(doc Filter) bool {
	for _, fld := range doc {
		if isOperator(fld.Key) {
			return true
		}
	}
	return false
}

func asDoc(v any) (Filter, bool) {
	switch t := v.(type) {
	case Filter:
		return t, true
	case map[string]any:
		return FromMap(t), true
	}
	return nil, false
}

// sliceOf accepts any slice or array ([]any, []string, [3]int, …).
func sliceOf(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case Filter:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil, false
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return nil, false // []byte is a value, not a list
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out, true
	}
	return nil, false
}

func isScalar(v any) bool {
	if _, ok := v.(time.Time); ok {
		return true
	}
	if v == nil {
		return false
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
