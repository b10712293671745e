package query

import (
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildScenarios(t *testing.T) {
	cases := []struct {
		name   string
		filter Filter
		where  string
		params map[string]any
	}{
		{
			name:   "empty",
			filter: F(),
			where:  "true",
			params: map[string]any{},
		},
		{
			name:   "equality",
			filter: F("name", "Test", "category", "achievement"),
			where:  "boost.name = $param_0 AND boost.category = $param_1",
			params: map[string]any{"param_0": "Test", "param_1": "achievement"},
		},
		{
			name:   "in",
			filter: F("status", F("$in", []any{"LIVE", "DRAFT"})),
			where:  "boost.status IN $param_0",
			params: map[string]any{"param_0": []any{"LIVE", "DRAFT"}},
		},
		{
			name:   "top-level or",
			filter: F("$or", []any{F("name", "Test1"), F("name", "Test2")}),
			where:  "(boost.name = $param_0 OR boost.name = $param_1)",
			params: map[string]any{"param_0": "Test1", "param_1": "Test2"},
		},
		{
			name:   "nested object",
			filter: F("meta", F("appListingId", "listing-123", "integrationId", "int-456")),
			where:  "(boost.`meta.appListingId` = $param_0 AND boost.`meta.integrationId` = $param_1)",
			params: map[string]any{"param_0": "listing-123", "param_1": "int-456"},
		},
		{
			name:   "deeply nested",
			filter: F("meta", F("config", F("setting", "value"))),
			where:  "boost.`meta.config.setting` = $param_0",
			params: map[string]any{"param_0": "value"},
		},
		{
			name:   "regex pattern",
			filter: F("name", F("$regex", regexp.MustCompile("(?i)test"))),
			where:  "boost.name =~ $param_0",
			params: map[string]any{"param_0": "(?i).*test.*"},
		},
		{
			name:   "regex string used as-is",
			filter: F("name", F("$regex", "^Te")),
			where:  "boost.name =~ $param_0",
			params: map[string]any{"param_0": "^Te"},
		},
		{
			name:   "regex source/flags object",
			filter: F("name", F("$regex", F("source", "all", "flags", "i"))),
			where:  "boost.name =~ $param_0",
			params: map[string]any{"param_0": "(?i).*all.*"},
		},
		{
			name:   "field-level or",
			filter: F("category", F("$or", []any{"A", "B"})),
			where:  "(boost.category = $param_0 OR boost.category = $param_1)",
			params: map[string]any{"param_0": "A", "param_1": "B"},
		},
		{
			name:   "operator under nested path",
			filter: F("meta", F("type", F("$in", []string{"x", "y"}))),
			where:  "boost.`meta.type` IN $param_0",
			params: map[string]any{"param_0": []string{"x", "y"}},
		},
		{
			name:   "or next to other keys",
			filter: F("status", "LIVE", "$or", []any{F("name", "a"), F("category", "b")}, "type", "t"),
			where:  "boost.status = $param_0 AND (boost.name = $param_1 OR boost.category = $param_2) AND boost.type = $param_3",
			params: map[string]any{"param_0": "LIVE", "param_1": "a", "param_2": "b", "param_3": "t"},
		},
		{
			name:   "or sibling with several conditions",
			filter: F("$or", []any{F("name", "a", "status", "LIVE"), F("name", "b")}),
			where:  "((boost.name = $param_0 AND boost.status = $param_1) OR boost.name = $param_2)",
			params: map[string]any{"param_0": "a", "param_1": "LIVE", "param_2": "b"},
		},
		{
			name:   "nested leaves at mixed depth are flattened",
			filter: F("meta", F("a", 1, "config", F("b", true))),
			where:  "(boost.`meta.a` = $param_0 AND boost.`meta.config.b` = $param_1)",
			params: map[string]any{"param_0": 1, "param_1": true},
		},
		{
			name:   "dotted top-level key",
			filter: F("meta.appListingId", "x"),
			where:  "boost.`meta.appListingId` = $param_0",
			params: map[string]any{"param_0": "x"},
		},
		{
			name:   "regexp value is a match",
			filter: F("name", regexp.MustCompile("Two")),
			where:  "boost.name =~ $param_0",
			params: map[string]any{"param_0": ".*Two.*"},
		},
		{
			name:   "empty or",
			filter: F("$or", []any{}),
			where:  "false",
			params: map[string]any{},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Build("boost", tc.filter)
			require.NoError(t, err)
			assert.Equal(t, tc.where, got.Where)
			assert.Equal(t, tc.params, got.Params)
		})
	}
}

func TestBuildFromMapAndParsedDocuments(t *testing.T) {
	fromMap, err := Build("boost", FromMap(map[string]any{
		"status": map[string]any{"$in": []any{"LIVE"}},
		"meta":   map[string]any{"appListingId": "x"},
	}))
	require.NoError(t, err)
	// map keys are sorted: meta before status
	assert.Equal(t, "boost.`meta.appListingId` = $param_0 AND boost.status IN $param_1", fromMap.Where)

	doc, err := ParseFilter([]byte(`{"status": {"$in": ["LIVE"]}, "meta": {"appListingId": "x"}}`))
	require.NoError(t, err)
	parsed, err := Build("boost", doc)
	require.NoError(t, err)
	// parsed documents keep their own order
	assert.Equal(t, "boost.status IN $param_0 AND boost.`meta.appListingId` = $param_1", parsed.Where)
	assert.Equal(t, map[string]any{"param_0": []any{"LIVE"}, "param_1": "x"}, parsed.Params)
}

func TestBuildParamsAreSequential(t *testing.T) {
	f := F(
		"a", 1,
		"b", F("$in", []int{1, 2}),
		"$or", []any{F("c", "x"), F("d", F("$regex", "y"))},
		"meta", F("e", "z", "f", F("$or", []any{"p", "q"})),
	)
	got, err := Build("n", f)
	require.NoError(t, err)
	assert.Equal(t,
		"n.a = $param_0 AND n.b IN $param_1 AND (n.c = $param_2 OR n.d =~ $param_3) AND "+
			"(n.`meta.e` = $param_4 AND (n.`meta.f` = $param_5 OR n.`meta.f` = $param_6))",
		got.Where)

	refs := regexp.MustCompile(`\$(param_\d+)`).FindAllStringSubmatch(got.Where, -1)
	require.Len(t, refs, len(got.Params))
	for i, m := range refs {
		assert.Equal(t, fmt.Sprintf("param_%d", i), m[1])
		assert.Contains(t, got.Params, m[1])
	}
}

func TestBuildErrors(t *testing.T) {
	cases := []struct {
		name   string
		alias  string
		filter Filter
		is     error
		path   string
		op     string
	}{
		{"unknown operator", "b", F("age", F("$gt", 3)), ErrUnsupportedOperator, "age", "$gt"},
		{"unknown top-level operator", "b", F("$and", []any{}), ErrUnsupportedOperator, "", "$and"},
		{"unknown nested operator", "b", F("meta", F("x", F("$ne", 1))), ErrUnsupportedOperator, "meta.x", "$ne"},
		{"in without list", "b", F("s", F("$in", "LIVE")), ErrInvalidOperand, "s", "$in"},
		{"in with bytes", "b", F("s", F("$in", []byte("ab"))), ErrInvalidOperand, "s", "$in"},
		{"regex with number", "b", F("s", F("$regex", 5)), ErrInvalidOperand, "s", "$regex"},
		{"or without list", "b", F("s", F("$or", "a")), ErrInvalidOperand, "s", "$or"},
		{"or with object alternative", "b", F("s", F("$or", []any{F("x", 1)})), ErrInvalidOperand, "s", "$or"},
		{"top-level or without filters", "b", F("$or", []any{"a"}), ErrInvalidOperand, "", "$or"},
		{"top-level or not a list", "b", F("$or", F("a", 1)), ErrInvalidOperand, "", "$or"},
		{"nil value", "b", F("s", nil), ErrInvalidOperand, "s", ""},
		{"list value", "b", F("s", []any{"a"}), ErrInvalidOperand, "s", ""},
		{"struct value", "b", F("s", struct{}{}), ErrInvalidOperand, "s", ""},
		{"mixed operator object", "b", F("s", F("$in", []any{1}, "x", 2)), ErrInvalidOperand, "s", ""},
		{"two operators", "b", F("s", F("$in", []any{1}, "$regex", "x")), ErrInvalidOperand, "s", ""},
		{"empty nested", "b", F("meta", F()), ErrInvalidOperand, "meta", ""},
		{"empty alias", "", F("a", 1), ErrInvalidAlias, "", ""},
		{"alias with space", "a b", F("a", 1), ErrInvalidAlias, "", ""},
		{"alias starting with digit", "1a", F("a", 1), ErrInvalidAlias, "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Build(tc.alias, tc.filter)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.is)

			var fe *FilterError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tc.path, fe.Path)
			assert.Equal(t, tc.op, fe.Op)
		})
	}
}

func TestFilterErrorMessage(t *testing.T) {
	_, err := Build("b", F("age", F("$gt", 3)))
	assert.EqualError(t, err, `query: unsupported filter operator $gt on field "age"`)

	_, err = Build("b", F("s", F("$in", "x")))
	assert.EqualError(t, err, `query: invalid filter operand $in on field "s": expected a list, got string`)
}

func TestBuildScalarKinds(t *testing.T) {
	when := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	got, err := Build("n", F("a", int64(1), "b", float32(2), "c", uint8(3), "d", when, "e", false))
	require.NoError(t, err)
	assert.Equal(t, "n.a = $param_0 AND n.b = $param_1 AND n.c = $param_2 AND n.d = $param_3 AND n.e = $param_4", got.Where)
	assert.Equal(t, when, got.Params["param_3"])
}

func TestBuildConcurrent(t *testing.T) {
	f := F("name", "Test", "meta", F("a", 1, "b", 2))
	want, err := Build("boost", f)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := Build("boost", f)
			assert.NoError(t, err)
			assert.Equal(t, want, got)
		}()
	}
	wg.Wait()
}

func TestCompileExpr(t *testing.T) {
	got, err := Compile("boost", And(
		Eq("status", "LIVE"),
		Or(RegexOf(Path("meta", "title"), Pattern{Source: "x", Flags: "i"}), AnyOf("type", "a", "b")),
		In("category", []string{"A"}),
	))
	require.NoError(t, err)
	assert.Equal(t,
		"(boost.status = $param_0 AND (boost.`meta.title` =~ $param_1 OR (boost.type = $param_2 OR boost.type = $param_3)) AND boost.category IN $param_4)",
		got.Where)
	assert.Equal(t, "(?i).*x.*", got.Params["param_1"])

	got, err = Compile("n", MatchAll())
	require.NoError(t, err)
	assert.Equal(t, "true", got.Where)
}

func TestPropertyQuoting(t *testing.T) {
	assert.Equal(t, "n.name", Property("n", "name"))
	assert.Equal(t, "n._x1", Property("n", "_x1"))
	assert.Equal(t, "n.`meta.a`", Property("n", "meta.a"))
	assert.Equal(t, "n.`has space`", Property("n", "has space"))
	assert.Equal(t, "n.`we``ird`", Property("n", "we`ird"))
	assert.Equal(t, "`Odd Label`", Ident("Odd Label"))
}
