// Package query translates MongoDB-style filter documents into
// parameterised Cypher WHERE clauses and assembles the surrounding
// MATCH/RETURN statements.
//
//	import q "github.com/learningeconomy/neofilter/query"
//
//	clause, err := q.Build("boost", q.F(
//	    "status", q.F("$in", []string{"LIVE", "DRAFT"}),
//	    "name", q.F("$regex", regexp.MustCompile(`(?i)math`)),
//	))
//	// clause.Where  == "boost.status IN $param_0 AND boost.name =~ $param_1"
//	// clause.Params == {"param_0": [...], "param_1": "(?i).*math.*"}
//
// Filters can also be built directly from the expression constructors
// below and rendered with Compile.
package query

import "strings"

// -------------------------------------------------------------------
// Expr – one node of a translated filter. Filter values are classified
// into exactly one node type up front (see parse.go); compile.go holds
// the writers so nodes stay plain data.
// -------------------------------------------------------------------

type Expr interface {
	compile(*compiler)
}

// ------------
// Leaf nodes
// ------------

// Eq("name", "Test")  ➜  "n.name = $param_0"
func Eq(path string, v any) Expr { return &eq{path, v} }

// In("status", []string{"LIVE"})  ➜  "n.status IN $param_0"
//
// The list is bound as one parameter, untouched.
func In(path string, list any) Expr { return &in{path, list} }

// Regex("name", "(?i).*x.*")  ➜  "n.name =~ $param_0"
//
// The pattern is used verbatim; see RegexOf for normalised input.
func Regex(path, pattern string) Expr { return &regex{path, pattern} }

// RegexOf normalises p before matching.
func RegexOf(path string, p Pattern) Expr { return &regex{path, Normalize(p)} }

// AnyOf("category", "A", "B")  ➜  "(n.category = $param_0 OR n.category = $param_1)"
func AnyOf(path string, vs ...any) Expr { return &anyOf{path, vs} }

// ------------
// Combinators
// ------------

// And is parenthesised when it holds more than one operand.
func And(xs ...Expr) Expr { return &and{xs: xs, paren: true} }

// Or is always parenthesised.
func Or(xs ...Expr) Expr { return &or{xs} }

// Path joins nested property names into the dotted form stored on nodes.
func Path(parts ...string) string { return strings.Join(parts, ".") }

// -------------------------------------------------------------------
// internal node types
// -------------------------------------------------------------------

type (
	eq struct {
		path string
		v    any
	}
	in struct {
		path string
		list any
	}
	regex struct {
		path    string
		pattern string
	}
	anyOf struct {
		path string
		vs   []any
	}
	and struct {
		xs    []Expr
		paren bool
	}
	or struct{ xs []Expr }
)

// MatchAll renders as "true".
func MatchAll() Expr { return matchAll{} }

type matchAll struct{}

func (matchAll) compile(c *compiler) { c.sb.WriteString("true") }
