// driver/neo4j.go
//
// Thin shim over github.com/neo4j/neo4j-go-driver/v5 that satisfies the
// Executor interface and adds tracing, debug logging and write batching.
//
// Usage:
//
//	conn, err := driver.Open(ctx, driver.Config{
//	    URI: "neo4j://localhost:7687", Username: "neo4j", Password: "secret",
//	})
//	defer conn.Close(ctx)
//	rows, err := query.NewMatch("(boost:Boost)").
//	    Where("boost", q.F("status", "LIVE")).
//	    Using(conn).
//	    Run(ctx)
package driver

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Executor runs one Cypher statement and returns its rows as plain maps.
// Nodes and relationships are reduced to their property maps.
type Executor interface {
	Run(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error)
}

// Statement is one entry of a Batch.
type Statement struct {
	Cypher string
	Params map[string]any
}

// Config holds connection settings for Open.
type Config struct {
	URI      string `yaml:"uri"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	// MaxConnections caps the driver's pool; zero keeps the driver default.
	MaxConnections int `yaml:"max_connections"`
}

// Neo4jConn implements Executor on top of neo4j.DriverWithContext.
type Neo4jConn struct {
	driver   neo4j.DriverWithContext
	database string
}

// Open dials Neo4j and verifies connectivity.
func Open(ctx context.Context, cfg Config) (*Neo4jConn, error) {
	if cfg.URI == "" {
		return nil, ErrMissingURI
	}
	d, err := neo4j.NewDriverWithContext(cfg.URI,
		neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
		func(c *neo4j.Config) {
			if cfg.MaxConnections > 0 {
				c.MaxConnectionPoolSize = cfg.MaxConnections
			}
		},
	)
	if err != nil {
		return nil, fmt.Errorf("driver: open %s: %w", cfg.URI, err)
	}
	conn := NewNeo4jConn(d, cfg.Database)
	if err := conn.VerifyConnectivity(ctx); err != nil {
		_ = d.Close(ctx)
		return nil, err
	}
	return conn, nil
}

// NewNeo4jConn wraps an existing driver. An empty database selects the
// server default.
func NewNeo4jConn(d neo4j.DriverWithContext, database string) *Neo4jConn {
	return &Neo4jConn{driver: d, database: database}
}

// Run satisfies the Executor interface. Statements that look like writes go
// to the cluster leader, everything else to readers.
func (nc *Neo4jConn) Run(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	ctx, span := otel.Tracer("neofilter.driver").Start(ctx, "neo4j.run")
	defer span.End()

	write := IsWrite(cypher)
	opts := []neo4j.ExecuteQueryConfigurationOption{neo4j.ExecuteQueryWithReadersRouting()}
	if write {
		opts[0] = neo4j.ExecuteQueryWithWritersRouting()
	}
	if nc.database != "" {
		opts = append(opts, neo4j.ExecuteQueryWithDatabase(nc.database))
	}

	start := time.Now()
	res, err := neo4j.ExecuteQuery(ctx, nc.driver, cypher, params, neo4j.EagerResultTransformer, opts...)
	elapsed := time.Since(start)

	span.SetAttributes(
		attribute.String("db.system", "neo4j"),
		attribute.String("db.statement", cypher),
		attribute.Int("db.params", len(params)),
		attribute.Bool("db.write", write),
		attribute.Float64("db.duration_ms", float64(elapsed.Milliseconds())),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.Debug("driver.run.err", "err", err, "elapsed", elapsed)
		return nil, fmt.Errorf("driver: run: %w", err)
	}

	rows := make([]map[string]any, len(res.Records))
	for i, rec := range res.Records {
		rows[i] = plainRecord(rec)
	}
	slog.Debug("driver.run", "rows", len(rows), "write", write, "elapsed", elapsed)
	return rows, nil
}

// Batch runs the statements in order inside a single write transaction.
// Either all of them commit or none do.
func (nc *Neo4jConn) Batch(ctx context.Context, stmts []Statement) error {
	ctx, span := otel.Tracer("neofilter.driver").Start(ctx, "neo4j.batch")
	defer span.End()
	span.SetAttributes(attribute.Int("db.statements", len(stmts)))

	session := nc.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: nc.database,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for i, s := range stmts {
			res, err := tx.Run(ctx, s.Cypher, s.Params)
			if err != nil {
				return nil, fmt.Errorf("statement %d: %w", i, err)
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, fmt.Errorf("statement %d: %w", i, err)
			}
		}
		return nil, nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("driver: batch: %w", err)
	}
	return nil
}

// VerifyConnectivity checks that the server is reachable with the
// configured credentials.
func (nc *Neo4jConn) VerifyConnectivity(ctx context.Context) error {
	if err := nc.driver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("driver: verify connectivity: %w", err)
	}
	return nil
}

// Close conveniently closes the underlying driver.
func (nc *Neo4jConn) Close(ctx context.Context) error { return nc.driver.Close(ctx) }

// ----------------------------------------------------------------------------
// internal helpers
// ----------------------------------------------------------------------------

var writeClause = regexp.MustCompile(`(?i)\b(CREATE|MERGE|SET|DELETE|REMOVE|DROP)\b`)

// IsWrite reports whether cypher contains a write clause. A false positive
// only costs routing the read to the leader.
func IsWrite(cypher string) bool { return writeClause.MatchString(cypher) }

func plainRecord(rec *neo4j.Record) map[string]any {
	row := make(map[string]any, len(rec.Keys))
	for i, k := range rec.Keys {
		row[k] = plain(rec.Values[i])
	}
	return row
}

func plain(v any) any {
	switch t := v.(type) {
	case neo4j.Node:
		return t.Props
	case neo4j.Relationship:
		return t.Props
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = plain(x)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, x := range t {
			out[k] = plain(x)
		}
		return out
	}
	return v
}
