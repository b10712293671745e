package repository

import q "github.com/learningeconomy/neofilter/query"

// Opt is applied to whichever builder is in play. If the helper doesn't
// make sense for that builder the func is left nil and becomes a no-op.
type Opt interface {
	applySearch(*q.MatchBuilder)
	applyCount(*q.CountBuilder)
}

// optFunc is a concrete Opt implementation that holds one func per builder.
type optFunc struct {
	search func(*q.MatchBuilder)
	count  func(*q.CountBuilder)
}

func (o optFunc) applySearch(b *q.MatchBuilder) {
	if o.search != nil {
		o.search(b)
	}
}

func (o optFunc) applyCount(b *q.CountBuilder) {
	if o.count != nil {
		o.count(b)
	}
}

// ---------- COMMON helpers ----------

// Related adds a MATCH line, e.g. restricting boosts to one profile:
//
//	Related("(boost)-[:HAS_ROLE]-(:Profile {profileId: $profileId})",
//	    map[string]any{"profileId": id})
func Related(pattern string, params map[string]any) Opt {
	return optFunc{
		search: func(b *q.MatchBuilder) { b.Match(pattern).Bind(params) },
		count:  func(b *q.CountBuilder) { b.Match(pattern).Bind(params) },
	}
}

// Before keeps rows whose expr sorts before cursor, the paging scheme the
// boost listings use (createdBy.date < $cursor). An empty cursor is a no-op.
func Before(expr, cursor string) Opt {
	if cursor == "" {
		return optFunc{}
	}
	pred := expr + " < $cursor"
	params := map[string]any{"cursor": cursor}
	return optFunc{
		search: func(b *q.MatchBuilder) { b.Raw(pred, params) },
		count:  func(b *q.CountBuilder) { b.Raw(pred, params) },
	}
}

// ---------- SEARCH-only helpers ----------

// Select sets the RETURN items. SearchAs expects the node alias to stay
// among them.
func Select(items ...string) Opt {
	return optFunc{
		search: func(b *q.MatchBuilder) { b.Return(items...) },
	}
}

// Limit caps the number of rows returned.
func Limit(n int) Opt {
	return optFunc{
		search: func(b *q.MatchBuilder) { b.Limit(n) },
	}
}

// Skip drops the first n rows.
func Skip(n int) Opt {
	return optFunc{
		search: func(b *q.MatchBuilder) { b.Skip(n) },
	}
}

// SortAsc ORDER BY expr ASC
func SortAsc(expr string) Opt  { return sortOpt(expr, q.Asc) }
func SortDesc(expr string) Opt { return sortOpt(expr, q.Desc) }

func sortOpt(expr string, dir q.Dir) Opt {
	return optFunc{
		search: func(b *q.MatchBuilder) { b.OrderBy(expr, dir) },
	}
}
