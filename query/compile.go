package query

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/learningeconomy/neofilter/internal"
)

// ParamPrefix names bound values: param_0, param_1, …
const ParamPrefix = "param_"

// Clause is a Cypher boolean expression plus the parameters it references.
type Clause struct {
	Where  string
	Params map[string]any
}

// Build translates filter into a WHERE expression over the node bound to
// alias. Parameter numbering follows filter key order.
//
//	Build("boost", F("name", "Test", "category", "achievement"))
//	// boost.name = $param_0 AND boost.category = $param_1
func Build(alias string, filter Filter) (Clause, error) {
	e, err := Parse(filter)
	if err != nil {
		return Clause{}, err
	}
	return Compile(alias, e)
}

// Compile renders an Expr tree. It is exported so callers can pre-view the
// clause (handy for logging or explain) or build filters in code.
func Compile(alias string, e Expr) (Clause, error) {
	if !isIdent(alias) {
		return Clause{}, &FilterError{Reason: strconv.Quote(alias), Err: ErrInvalidAlias}
	}
	sb := internal.GetBuilder()
	defer internal.PutBuilder(sb)

	c := &compiler{alias: alias, sb: sb, params: map[string]any{}}
	e.compile(c)
	return Clause{Where: sb.String(), Params: c.params}, nil
}

// compiler is the accumulator threaded through one Compile call. Nothing
// in it outlives the call, so concurrent Builds never share state.
type compiler struct {
	alias  string
	sb     *strings.Builder
	params map[string]any
	next   int
}

// bind stores v under the next parameter name and returns that name.
func (c *compiler) bind(v any) string {
	name := ParamPrefix + strconv.Itoa(c.next)
	c.next++
	c.params[name] = v
	return name
}

func (c *compiler) cond(path, op string, v any) {
	c.sb.WriteString(Property(c.alias, path))
	c.sb.WriteString(op)
	c.sb.WriteByte('$')
	c.sb.WriteString(c.bind(v))
}

// Property renders alias.path, backquoting anything that is not a bare
// identifier. Dotted paths are one property, not map navigation.
//
//	Property("boost", "meta.appListingId") // boost.`meta.appListingId`
func Property(alias, path string) string { return alias + "." + Ident(path) }

// Ident returns name as-is when it is a bare identifier and backquoted
// otherwise. Labels and relationship types follow the same rule.
func Ident(name string) string {
	if isIdent(name) {
		return name
	}
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// -------------------------------------------------------------------
// node writers
// -------------------------------------------------------------------

func (n *eq) compile(c *compiler)    { c.cond(n.path, " = ", n.v) }
func (n *in) compile(c *compiler)    { c.cond(n.path, " IN ", n.list) }
func (n *regex) compile(c *compiler) { c.cond(n.path, " =~ ", n.pattern) }

func (n *anyOf) compile(c *compiler) {
	if len(n.vs) == 0 {
		c.sb.WriteString("false")
		return
	}
	c.sb.WriteByte('(')
	for i, v := range n.vs {
		if i > 0 {
			c.sb.WriteString(" OR ")
		}
		c.cond(n.path, " = ", v)
	}
	c.sb.WriteByte(')')
}

func (n *and) compile(c *compiler) {
	switch len(n.xs) {
	case 0:
		c.sb.WriteString("true")
	case 1:
		n.xs[0].compile(c)
	default:
		group(c, n.xs, " AND ", n.paren)
	}
}

func (n *or) compile(c *compiler) {
	if len(n.xs) == 0 {
		c.sb.WriteString("false")
		return
	}
	group(c, n.xs, " OR ", true)
}

// group helper for (a AND b) / (a OR b)
func group(c *compiler, xs []Expr, sep string, paren bool) {
	if paren {
		c.sb.WriteByte('(')
	}
	for i, x := range xs {
		if i > 0 {
			c.sb.WriteString(sep)
		}
		x.compile(c)
	}
	if paren {
		c.sb.WriteByte(')')
	}
}

// isIdent reports whether s can be written unquoted as a Cypher name.
func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return true
}
