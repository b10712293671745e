package query

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/learningeconomy/neofilter/internal"
)

// Field is one key/value entry of a Filter.
type Field struct {
	Key   string
	Value any
}

// Filter is a MongoDB-style filter document. It is a slice rather than a
// map because condition order and parameter numbering follow key order.
//
//	q.F("name", "Test", "status", q.F("$in", []string{"LIVE", "DRAFT"}))
type Filter []Field

// F builds a Filter from alternating keys and values. It panics on an odd
// argument count or a non-string key, like a malformed composite literal.
func F(kv ...any) Filter {
	if len(kv)%2 != 0 {
		panic("query.F: odd number of arguments")
	}
	out := make(Filter, 0, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("query.F: key %d is %T, not string", i/2, kv[i]))
		}
		out = append(out, Field{Key: k, Value: kv[i+1]})
	}
	return out
}

// D builds a Filter from explicit fields.
func D(fields ...Field) Filter { return append(Filter{}, fields...) }

// Get returns the value stored under key.
func (f Filter) Get(key string) (any, bool) {
	for _, fld := range f {
		if fld.Key == key {
			return fld.Value, true
		}
	}
	return nil, false
}

// Keys lists keys in document order.
func (f Filter) Keys() []string {
	return internal.Map(f, func(fld Field) string { return fld.Key })
}

// Map flattens the document back into a plain map, recursively. Order is
// lost; use it only for serialisation.
func (f Filter) Map() map[string]any {
	out := make(map[string]any, len(f))
	for _, fld := range f {
		out[fld.Key] = unorder(fld.Value)
	}
	return out
}

func unorder(v any) any {
	switch t := v.(type) {
	case Filter:
		return t.Map()
	case []any:
		return internal.Map(t, unorder)
	}
	return v
}

// FromMap converts a plain map into a Filter. Go maps carry no insertion
// order, so keys are sorted lexically at every level.
func FromMap(m map[string]any) Filter {
	keys := internal.SortedKeys(m)
	out := make(Filter, 0, len(keys))
	for _, k := range keys {
		out = append(out, Field{Key: k, Value: order(m[k])})
	}
	return out
}

func order(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return FromMap(t)
	case []any:
		return internal.Map(t, order)
	}
	return v
}

// ParseFilter decodes a JSON or YAML filter document, keeping key order.
// An empty document yields an empty Filter.
func ParseFilter(data []byte) (Filter, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("query: parse filter: %w", err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return Filter{}, nil
	}
	root := resolve(doc.Content[0])
	if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
		return Filter{}, nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("query: parse filter: document must be an object, got %s", kindName(root))
	}
	v, err := fromNode(root)
	if err != nil {
		return nil, err
	}
	return v.(Filter), nil
}

func fromNode(n *yaml.Node) (any, error) {
	n = resolve(n)
	switch n.Kind {
	case yaml.MappingNode:
		out := make(Filter, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := resolve(n.Content[i])
			if key.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("query: parse filter: line %d: key must be a scalar", key.Line)
			}
			val, err := fromNode(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			out = append(out, Field{Key: key.Value, Value: val})
		}
		return out, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			val, err := fromNode(c)
			if err != nil {
				return nil, err
			}
			out = append(out, val)
		}
		return out, nil
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("query: parse filter: line %d: %w", n.Line, err)
		}
		return v, nil
	}
	return nil, fmt.Errorf("query: parse filter: line %d: unexpected %s", n.Line, kindName(n))
}

func resolve(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

func kindName(n *yaml.Node) string {
	switch n.Kind {
	case yaml.MappingNode:
		return "object"
	case yaml.SequenceNode:
		return "array"
	case yaml.ScalarNode:
		return "scalar"
	}
	return "node"
}
