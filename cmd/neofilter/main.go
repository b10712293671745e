// Command neofilter translates a filter document into a Cypher WHERE
// clause, and optionally runs it.
//
//	neofilter -alias boost -filter '{"status": {"$in": ["LIVE"]}}'
//	neofilter -config neofilter.yaml -label Boost -alias boost -count -filter @query.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/learningeconomy/neofilter/driver"
	q "github.com/learningeconomy/neofilter/query"
	"github.com/learningeconomy/neofilter/repository"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "neofilter:", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("neofilter", flag.ContinueOnError)
	var (
		cfgPath = fs.String("config", "", "YAML config file")
		alias   = fs.String("alias", "n", "node alias used in the WHERE clause")
		filter  = fs.String("filter", "{}", "filter document (JSON or YAML); @file reads a file, - reads stdin")
		label   = fs.String("label", "", "node label; when set the query is executed")
		count   = fs.Bool("count", false, "with -label: print the number of matches")
		limit   = fs.Int("limit", 25, "with -label: maximum rows to print")
		orderBy = fs.String("order-by", "", "with -label: ORDER BY expression (DESC)")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := LoadConfig(*cfgPath)
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()})))

	raw, err := readFilter(*filter, stdin)
	if err != nil {
		return err
	}
	doc, err := q.ParseFilter(raw)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")

	if *label == "" {
		clause, err := q.Build(*alias, doc)
		if err != nil {
			return err
		}
		return enc.Encode(map[string]any{"where": clause.Where, "params": clause.Params})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	conn, err := driver.Open(ctx, cfg.Neo4j)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	var exec driver.Executor = conn
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		store := driver.NewRedisStore(rdb)
		defer store.Close()
		exec = driver.NewCachedExecutor(conn, store, driver.WithTTL(cfg.Redis.TTL), driver.WithKeyPrefix(cfg.Redis.Prefix))
		slog.Debug("cache.enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.TTL)
	}

	repo := repository.New(*label, *alias, exec)
	if *count {
		n, err := repo.Count(ctx, doc)
		if err != nil {
			return err
		}
		return enc.Encode(map[string]any{"count": n})
	}

	opts := []repository.Opt{repository.Limit(*limit)}
	if *orderBy != "" {
		opts = append(opts, repository.SortDesc(*orderBy))
	}
	rows, err := repository.SearchAs[map[string]any](ctx, repo, doc, opts...)
	if err != nil {
		return err
	}
	slog.Info("search.done", "label", *label, "rows", len(rows))
	return enc.Encode(rows)
}

func readFilter(arg string, stdin io.Reader) ([]byte, error) {
	switch {
	case arg == "-":
		return io.ReadAll(stdin)
	case strings.HasPrefix(arg, "@"):
		return os.ReadFile(strings.TrimPrefix(arg, "@"))
	}
	return []byte(arg), nil
}
