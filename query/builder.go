package query

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/learningeconomy/neofilter/driver"
	"github.com/learningeconomy/neofilter/scan"
)

// ErrParamConflict is returned when a raw predicate's parameters collide
// with names Build generated.
var ErrParamConflict = errors.New("query: parameter name conflict")

// -------------------------------------------------------------------
// statement – MATCH … WHERE … shared by both builders
// -------------------------------------------------------------------

type Dir string

const (
	Asc  Dir = "ASC"
	Desc Dir = "DESC"
)

type statement struct {
	patterns []string
	alias    string
	where    Expr
	raws     []string
	extra    map[string]any
}

func (s *statement) match(alias string, e Expr) {
	s.alias, s.where = alias, e
}

func (s *statement) raw(pred string, params map[string]any) {
	s.raws = append(s.raws, pred)
	s.bind(params)
}

func (s *statement) bind(params map[string]any) {
	if len(params) == 0 {
		return
	}
	if s.extra == nil {
		s.extra = make(map[string]any, len(params))
	}
	for k, v := range params {
		s.extra[k] = v
	}
}

// write emits the MATCH and WHERE lines and returns the merged params.
func (s *statement) write(sb *strings.Builder) (map[string]any, error) {
	if len(s.patterns) == 0 {
		return nil, errors.New("query: no MATCH pattern")
	}
	for _, p := range s.patterns {
		sb.WriteString("MATCH ")
		sb.WriteString(p)
		sb.WriteByte('\n')
	}

	params := map[string]any{}
	var preds []string
	if s.where != nil {
		clause, err := Compile(s.alias, s.where)
		if err != nil {
			return nil, err
		}
		if clause.Where != "true" || len(s.raws) == 0 {
			preds = append(preds, clause.Where)
		}
		params = clause.Params
	}
	preds = append(preds, s.raws...)
	for k, v := range s.extra {
		if _, dup := params[k]; dup {
			return nil, fmt.Errorf("%w: %q", ErrParamConflict, k)
		}
		params[k] = v
	}

	if len(preds) > 0 {
		sb.WriteString("WHERE ")
		sb.WriteString(strings.Join(preds, " AND "))
		sb.WriteByte('\n')
	}
	return params, nil
}

// -------------------------------------------------------------------
// MatchBuilder – fluent builder for MATCH … RETURN
// -------------------------------------------------------------------

type MatchBuilder struct {
	stmt        statement
	returns     []string
	orderBy     string
	dir         Dir
	skip, limit int
	executor    driver.Executor
	err         error
}

// NewMatch starts a builder over one or more MATCH patterns, each
// written on its own MATCH line. Executor must be provided before Run.
//
//	NewMatch("(boost:Boost)-[:HAS_ROLE]-(:Profile {profileId: $profileId})")
func NewMatch(patterns ...string) *MatchBuilder {
	return &MatchBuilder{stmt: statement{patterns: patterns}}
}

// Match appends another MATCH line.
func (b *MatchBuilder) Match(pattern string) *MatchBuilder {
	b.stmt.patterns = append(b.stmt.patterns, pattern)
	return b
}

// Where filters the node bound to alias. Translation errors surface from
// Cypher or Run.
func (b *MatchBuilder) Where(alias string, f Filter) *MatchBuilder {
	e, err := Parse(f)
	if err != nil {
		b.err = err
		return b
	}
	b.stmt.match(alias, e)
	return b
}

// WhereExpr is Where for filters built from Expr constructors.
func (b *MatchBuilder) WhereExpr(alias string, e Expr) *MatchBuilder {
	b.stmt.match(alias, e)
	return b
}

// Raw ANDs a hand-written predicate, e.g. a cursor bound, with its params.
func (b *MatchBuilder) Raw(pred string, params map[string]any) *MatchBuilder {
	b.stmt.raw(pred, params)
	return b
}

// Bind adds parameters referenced by MATCH patterns or RETURN items.
func (b *MatchBuilder) Bind(params map[string]any) *MatchBuilder {
	b.stmt.bind(params)
	return b
}

func (b *MatchBuilder) Return(items ...string) *MatchBuilder {
	b.returns = append([]string{}, items...)
	return b
}
func (b *MatchBuilder) OrderBy(expr string, d Dir) *MatchBuilder {
	b.orderBy, b.dir = expr, d
	return b
}
func (b *MatchBuilder) Skip(n int) *MatchBuilder  { b.skip = n; return b }
func (b *MatchBuilder) Limit(n int) *MatchBuilder { b.limit = n; return b }
func (b *MatchBuilder) Using(ex driver.Executor) *MatchBuilder {
	b.executor = ex
	return b
}

// Cypher gives you the complete statement and params for logging or
// handing to another driver.
func (b *MatchBuilder) Cypher() (string, map[string]any, error) {
	if b.err != nil {
		return "", nil, b.err
	}
	var sb strings.Builder
	params, err := b.stmt.write(&sb)
	if err != nil {
		return "", nil, err
	}

	sb.WriteString("RETURN ")
	if len(b.returns) > 0 {
		sb.WriteString(strings.Join(b.returns, ", "))
	} else if b.stmt.alias != "" {
		sb.WriteString(b.stmt.alias)
	} else {
		sb.WriteString("*")
	}

	if b.orderBy != "" {
		sb.WriteString("\nORDER BY ")
		sb.WriteString(b.orderBy)
		if b.dir != "" {
			sb.WriteByte(' ')
			sb.WriteString(string(b.dir))
		}
	}
	if b.skip > 0 {
		sb.WriteString("\nSKIP " + strconv.Itoa(b.skip))
	}
	if b.limit > 0 {
		sb.WriteString("\nLIMIT " + strconv.Itoa(b.limit))
	}
	return sb.String(), params, nil
}

// Run executes the statement and returns the raw rows.
func (b *MatchBuilder) Run(ctx context.Context) ([]map[string]any, error) {
	if b.executor == nil {
		return nil, errors.New("query: executor not set (call Using())")
	}
	cypher, params, err := b.Cypher()
	if err != nil {
		return nil, err
	}
	return b.executor.Run(ctx, cypher, params)
}

// -------------------------------------------------------------------
// CountBuilder – MATCH … RETURN COUNT(DISTINCT alias)
// -------------------------------------------------------------------

type CountBuilder struct {
	stmt     statement
	executor driver.Executor
	err      error
}

// CountColumn is the column name CountBuilder returns.
const CountColumn = "count"

func NewCount(patterns ...string) *CountBuilder {
	return &CountBuilder{stmt: statement{patterns: patterns}}
}

func (b *CountBuilder) Match(pattern string) *CountBuilder {
	b.stmt.patterns = append(b.stmt.patterns, pattern)
	return b
}
func (b *CountBuilder) Where(alias string, f Filter) *CountBuilder {
	e, err := Parse(f)
	if err != nil {
		b.err = err
		return b
	}
	b.stmt.match(alias, e)
	return b
}
func (b *CountBuilder) WhereExpr(alias string, e Expr) *CountBuilder {
	b.stmt.match(alias, e)
	return b
}
func (b *CountBuilder) Raw(pred string, params map[string]any) *CountBuilder {
	b.stmt.raw(pred, params)
	return b
}
func (b *CountBuilder) Bind(params map[string]any) *CountBuilder {
	b.stmt.bind(params)
	return b
}
func (b *CountBuilder) Using(ex driver.Executor) *CountBuilder {
	b.executor = ex
	return b
}

func (b *CountBuilder) Cypher() (string, map[string]any, error) {
	if b.err != nil {
		return "", nil, b.err
	}
	if b.stmt.alias == "" {
		return "", nil, errors.New("query: count needs an alias (call Where())")
	}
	var sb strings.Builder
	params, err := b.stmt.write(&sb)
	if err != nil {
		return "", nil, err
	}
	sb.WriteString("RETURN COUNT(DISTINCT " + b.stmt.alias + ") AS " + CountColumn)
	return sb.String(), params, nil
}

func (b *CountBuilder) Run(ctx context.Context) (int64, error) {
	if b.executor == nil {
		return 0, errors.New("query: executor not set (call Using())")
	}
	cypher, params, err := b.Cypher()
	if err != nil {
		return 0, err
	}
	rows, err := b.executor.Run(ctx, cypher, params)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	n, ok := scan.Int64(rows[0][CountColumn])
	if !ok {
		return 0, fmt.Errorf("query: unexpected count value %T", rows[0][CountColumn])
	}
	return n, nil
}
