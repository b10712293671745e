// Package index turns Go structs into Neo4j index and constraint DDL.
// A single public entry-point, `AutoCreate`, issues the statements with
// IF NOT EXISTS so it can run on every start-up.
//
//	type Boost struct {
//	    ID       string `neofilter:"id,UNIQUE"`
//	    Name     string `neofilter:"name,INDEX"`
//	    Category string `neofilter:"category,INDEX"`
//	    ListingID string `neofilter:"meta.appListingId,INDEX"`
//	}
//
//	if err := index.AutoCreate(ctx, conn, Boost{}); err != nil {
//	    log.Fatal(err)
//	}
package index

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/learningeconomy/neofilter/driver"
	"github.com/learningeconomy/neofilter/internal"
	"github.com/learningeconomy/neofilter/query"
)

// ------------------------------------------------------------------
// Options
// ------------------------------------------------------------------

type CreateOpt func(*createCfg)

type createCfg struct {
	label string // node label, default: struct type name
}

func WithLabel(label string) CreateOpt { return func(c *createCfg) { c.label = label } }

// ------------------------------------------------------------------
// Public API
// ------------------------------------------------------------------

// AutoCreate builds DDL from the supplied struct model and runs each
// statement. Existing indexes and constraints are left alone.
func AutoCreate(
	ctx context.Context,
	exec driver.Executor,
	model any,
	opts ...CreateOpt,
) error {
	cfg := &createCfg{label: inferLabel(model)}
	for _, o := range opts {
		o(cfg)
	}

	for _, stmt := range BuildStatements(cfg.label, model) {
		if _, err := exec.Run(ctx, stmt, nil); err != nil {
			return fmt.Errorf("index: %s: %w", stmt, err)
		}
	}
	return nil
}

// Drop removes every index and constraint AutoCreate would create.
func Drop(ctx context.Context, exec driver.Executor, model any, opts ...CreateOpt) error {
	cfg := &createCfg{label: inferLabel(model)}
	for _, o := range opts {
		o(cfg)
	}
	for _, name := range Names(cfg.label, model) {
		kind := "INDEX"
		if strings.HasSuffix(name, uniqueSuffix) {
			kind = "CONSTRAINT"
		}
		if _, err := exec.Run(ctx, fmt.Sprintf("DROP %s %s IF EXISTS", kind, name), nil); err != nil {
			return fmt.Errorf("index: drop %s: %w", name, err)
		}
	}
	return nil
}

// BuildStatements inspects the struct tags (`neofilter:"name,INDEX"` or
// `neofilter:"id,UNIQUE"`) and returns one DDL statement per tagged
// property, in field order.
func BuildStatements(label string, model any) []string {
	var out []string
	node := "n:" + query.Ident(label)
	for _, p := range properties(model) {
		prop := query.Property("n", p.name)
		if p.unique {
			out = append(out, fmt.Sprintf(
				"CREATE CONSTRAINT %s IF NOT EXISTS FOR (%s) REQUIRE %s IS UNIQUE",
				name(label, p.name, uniqueSuffix), node, prop))
			continue
		}
		out = append(out, fmt.Sprintf(
			"CREATE INDEX %s IF NOT EXISTS FOR (%s) ON (%s)",
			name(label, p.name, indexSuffix), node, prop))
	}
	return out
}

// Names lists the index and constraint names BuildStatements uses.
func Names(label string, model any) []string {
	return internal.Map(properties(model), func(p property) string {
		if p.unique {
			return name(label, p.name, uniqueSuffix)
		}
		return name(label, p.name, indexSuffix)
	})
}

// ------------------------------------------------------------------
// tag parsing
// ------------------------------------------------------------------

const (
	indexSuffix  = "_idx"
	uniqueSuffix = "_unique"
)

type property struct {
	name   string
	unique bool
}

func properties(model any) []property {
	rt := reflect.TypeOf(model)
	if rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}

	var out []property
	for i := 0; i < rt.NumField(); i++ {
		tag := rt.Field(i).Tag.Get("neofilter")
		if tag == "" || tag == "-" {
			continue
		}
		parts := strings.Split(tag, ",")
		attrs := internal.Map(parts[1:], strings.ToUpper)
		switch {
		case internal.Contains(attrs, "UNIQUE"):
			out = append(out, property{name: parts[0], unique: true})
		case internal.Contains(attrs, "INDEX"):
			out = append(out, property{name: parts[0]})
		}
	}
	return out
}

// name builds e.g. boost_meta_app_listing_id_idx.
func name(label, prop, suffix string) string {
	clean := strings.Map(func(r rune) rune {
		if r == '.' || r == '-' || r == ' ' {
			return '_'
		}
		return r
	}, prop)
	return snake(label) + "_" + snake(clean) + suffix
}

// inferLabel defaults to the struct type name.
func inferLabel(model any) string {
	t := reflect.TypeOf(model)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

// snake converts CamelCase to snake_case.
func snake(s string) string {
	var sb strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' && s[i-1] != '_' {
			sb.WriteByte('_')
		}
		sb.WriteRune(r)
	}
	return strings.ToLower(sb.String())
}
