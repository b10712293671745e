package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	q "github.com/learningeconomy/neofilter/query"
)

func translate(t *testing.T, args []string, stdin string) map[string]any {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, run(args, strings.NewReader(stdin), &out))
	var got map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	return got
}

func TestRunTranslatesFilter(t *testing.T) {
	got := translate(t, []string{"-alias", "boost", "-filter", `{"status": {"$in": ["LIVE"]}, "meta": {"appListingId": "x"}}`}, "")
	assert.Equal(t, "boost.status IN $param_0 AND boost.`meta.appListingId` = $param_1", got["where"])
	assert.Equal(t, map[string]any{"param_0": []any{"LIVE"}, "param_1": "x"}, got["params"])
}

func TestRunReadsStdinAndFiles(t *testing.T) {
	got := translate(t, []string{"-filter", "-"}, "name:\n  $regex: {source: test, flags: i}\n")
	assert.Equal(t, "n.name =~ $param_0", got["where"])
	assert.Equal(t, "(?i).*test.*", got["params"].(map[string]any)["param_0"])

	path := filepath.Join(t.TempDir(), "filter.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"$or": [{"a": 1}, {"b": 2}]}`), 0o600))
	got = translate(t, []string{"-filter", "@" + path}, "")
	assert.Equal(t, "(n.a = $param_0 OR n.b = $param_1)", got["where"])

	got = translate(t, nil, "")
	assert.Equal(t, "true", got["where"])
}

func TestRunErrors(t *testing.T) {
	var out bytes.Buffer
	err := run([]string{"-filter", `{"age": {"$gt": 3}}`}, strings.NewReader(""), &out)
	assert.ErrorIs(t, err, q.ErrUnsupportedOperator)

	err = run([]string{"-filter", `[1]`}, strings.NewReader(""), &out)
	assert.ErrorContains(t, err, "document must be an object")

	err = run([]string{"-alias", "bad alias"}, strings.NewReader(""), &out)
	assert.ErrorIs(t, err, q.ErrInvalidAlias)

	err = run([]string{"-config", filepath.Join(t.TempDir(), "missing.yaml")}, strings.NewReader(""), &out)
	assert.ErrorContains(t, err, "config:")

	err = run([]string{"-no-such-flag"}, strings.NewReader(""), &out)
	assert.Error(t, err)
	assert.Empty(t, out.String())
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Neo4j.URI, cfg.Neo4j.URI)
	assert.Equal(t, slog.LevelInfo, cfg.Level())

	path := filepath.Join(t.TempDir(), "neofilter.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
neo4j:
  uri: neo4j://db:7687
  username: reader
  password: from-file
  database: lcn
redis:
  addr: cache:6379
  ttl: 30s
log_level: DEBUG
`), 0o600))

	t.Setenv("NEO4J_PASSWORD", "from-env")
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "neo4j://db:7687", cfg.Neo4j.URI)
	assert.Equal(t, "reader", cfg.Neo4j.Username)
	assert.Equal(t, "from-env", cfg.Neo4j.Password)
	assert.Equal(t, "lcn", cfg.Neo4j.Database)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.Equal(t, 30*time.Second, cfg.Redis.TTL)
	assert.Equal(t, "neofilter:", cfg.Redis.Prefix)
	assert.Equal(t, slog.LevelDebug, cfg.Level())

	require.NoError(t, os.WriteFile(path, []byte("neo4j: [oops"), 0o600))
	_, err = LoadConfig(path)
	assert.Error(t, err)
}

func TestConfigLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"warn": slog.LevelWarn, "warning": slog.LevelWarn, "error": slog.LevelError, "": slog.LevelInfo, "loud": slog.LevelInfo,
	} {
		assert.Equal(t, want, (&Config{LogLevel: in}).Level(), in)
	}
}
