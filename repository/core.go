// Package repository offers a thin façade over the builders in the query
// package for one node label. It follows the functional-options pattern so
// callers can keep code terse.
//
//	boosts := repository.New("Boost", "boost", conn)
//	rows, err := boosts.Search(ctx,
//	    q.F("status", q.F("$in", []string{"LIVE"})),
//	    repository.Related("(boost)-[:HAS_ROLE]-(:Profile {profileId: $profileId})",
//	        map[string]any{"profileId": "alice"}),
//	    repository.SortDesc("boost.name"),
//	    repository.Limit(25),
//	)
package repository

import (
	"context"

	"github.com/learningeconomy/neofilter/driver"
	q "github.com/learningeconomy/neofilter/query"
	"github.com/learningeconomy/neofilter/scan"
)

// Repository is bound to one node label and the alias its filters use.
type Repository struct {
	label string
	alias string
	exec  driver.Executor
}

// New constructs a repository. The alias is how the node is referred to in
// filters, Related patterns and sort expressions.
func New(label, alias string, exec driver.Executor) *Repository {
	return &Repository{label: label, alias: alias, exec: exec}
}

func (r *Repository) pattern() string {
	return "(" + r.alias + ":" + q.Ident(r.label) + ")"
}

// -------------------------------------------------------------------
// SEARCH
// -------------------------------------------------------------------

// Search runs MATCH … WHERE … RETURN with the translated filter and any
// options (Select, SortDesc, Limit, Before, …). Rows are returned raw.
func (r *Repository) Search(
	ctx context.Context,
	where q.Filter,
	opts ...Opt,
) ([]map[string]any, error) {

	mb := q.NewMatch(r.pattern()).
		Where(r.alias, where).
		Return("DISTINCT " + r.alias).
		Using(r.exec)

	for _, opt := range opts {
		opt.applySearch(mb)
	}
	return mb.Run(ctx)
}

// SearchAs is Search decoded into T (a tagged struct or map[string]any).
func SearchAs[T any](
	ctx context.Context,
	r *Repository,
	where q.Filter,
	opts ...Opt,
) ([]T, error) {
	rows, err := r.Search(ctx, where, opts...)
	if err != nil {
		return nil, err
	}
	return scan.Decode[T](rows, r.alias)
}

// -------------------------------------------------------------------
// COUNT
// -------------------------------------------------------------------

// Count returns the number of distinct nodes matching where.
func (r *Repository) Count(
	ctx context.Context,
	where q.Filter,
	opts ...Opt,
) (int64, error) {

	cb := q.NewCount(r.pattern()).
		Where(r.alias, where).
		Using(r.exec)

	for _, opt := range opts {
		opt.applyCount(cb)
	}
	return cb.Run(ctx)
}
