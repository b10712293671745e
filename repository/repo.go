package repository

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/learningeconomy/neofilter/driver"
	"github.com/learningeconomy/neofilter/index"
	"github.com/learningeconomy/neofilter/internal"
	q "github.com/learningeconomy/neofilter/query"
	"github.com/learningeconomy/neofilter/scan"
)

// Batcher runs several statements in one transaction. *driver.Neo4jConn
// implements it.
type Batcher interface {
	Batch(ctx context.Context, stmts []driver.Statement) error
}

// Repo is the administrative handle: indexes and data loading.
type Repo struct {
	exec  driver.Executor
	batch Batcher // optional: LoadBulk falls back to one Run per chunk
}

// WithConn constructs a Repo. batch may be nil.
func WithConn(exec driver.Executor, batch Batcher) *Repo {
	return &Repo{exec: exec, batch: batch}
}

// BulkChunk is how many records LoadBulk sends per UNWIND statement.
const BulkChunk = 500

/*───────────────────────────────────────────────────────────────
|  Administrative helpers                                        |
└───────────────────────────────────────────────────────────────*/

// EnsureIndex – thin wrapper over index.AutoCreate with the label injected.
func (r *Repo) EnsureIndex(
	ctx context.Context,
	label string,
	model any,
	opts ...index.CreateOpt,
) error {
	opts = append(opts, index.WithLabel(label))
	return index.AutoCreate(ctx, r.exec, model, opts...)
}

// DropIndex drops the model's indexes and, when purge is set, deletes
// every node carrying label.
func (r *Repo) DropIndex(ctx context.Context, label string, model any, purge bool) error {
	if err := index.Drop(ctx, r.exec, model, index.WithLabel(label)); err != nil {
		return err
	}
	if !purge {
		return nil
	}
	_, err := r.exec.Run(ctx, "MATCH (n:"+q.Ident(label)+") DETACH DELETE n", nil)
	if err != nil {
		return fmt.Errorf("repository: purge %s: %w", label, err)
	}
	return nil
}

/*───────────────────────────────────────────────────────────────
|  Data-loading helpers                                          |
└───────────────────────────────────────────────────────────────*/

// LoadNode creates one node. Nested maps are stored as dotted properties
// so filters on meta.* can reach them.
func (r *Repo) LoadNode(ctx context.Context, label string, record any) error {
	_, err := r.exec.Run(ctx,
		"CREATE (n:"+q.Ident(label)+") SET n = $props",
		map[string]any{"props": structToMap(record)},
	)
	if err != nil {
		return fmt.Errorf("repository: load %s: %w", label, err)
	}
	return nil
}

// LoadBulk writes many records with UNWIND, BulkChunk at a time. With a
// Batcher every chunk commits in one transaction.
func (r *Repo) LoadBulk(ctx context.Context, label string, records []any) error {
	rows := internal.Map(records, func(rec any) any { return structToMap(rec) })
	cypher := "UNWIND $rows AS row CREATE (n:" + q.Ident(label) + ") SET n = row"

	var stmts []driver.Statement
	for _, chunk := range internal.Chunk(rows, BulkChunk) {
		stmts = append(stmts, driver.Statement{Cypher: cypher, Params: map[string]any{"rows": chunk}})
	}
	if r.batch != nil {
		return r.batch.Batch(ctx, stmts)
	}
	for _, s := range stmts {
		if _, err := r.exec.Run(ctx, s.Cypher, s.Params); err != nil {
			return fmt.Errorf("repository: bulk load %s: %w", label, err)
		}
	}
	return nil
}

// structToMap converts a struct or map to flattened node properties.
func structToMap(v any) map[string]any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	// map[string]any passed straight through
	if m, ok := rv.Interface().(map[string]any); ok {
		return scan.Flatten(m)
	}

	// struct: use neofilter tags
	rt := rv.Type()
	out := make(map[string]any, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		tag := f.Tag.Get("neofilter")
		if tag == "" || tag == "-" {
			continue
		}
		name := strings.Split(tag, ",")[0]
		fv := rv.Field(i)
		if internal.Contains(strings.Split(tag, ",")[1:], "omitempty") && fv.IsZero() {
			continue
		}
		out[name] = fv.Interface()
	}
	return scan.Flatten(out)
}
