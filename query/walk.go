package query

// Walk returns a copy of v with every regular-expression shaped leaf
// replaced by its Normalize form. Containers (Filter, map[string]any, []any)
// are rebuilt; every other value, including time.Time and typed slices, is
// returned as-is. The input is never modified.
//
// It is meant for payloads bound as a single parameter, where the caller
// wants Neo4j-ready regex strings without going through Build.
func Walk(v any) any {
	if p, ok := asPattern(v); ok {
		return Normalize(p)
	}
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = Walk(x)
		}
		return out
	case Filter:
		out := make(Filter, len(t))
		for i, fld := range t {
			out[i] = Field{Key: fld.Key, Value: Walk(fld.Value)}
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, x := range t {
			out[k] = Walk(x)
		}
		return out
	}
	return v
}
