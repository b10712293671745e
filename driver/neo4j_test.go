package driver

import (
	"context"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
)

func TestIsWrite(t *testing.T) {
	for _, c := range []string{
		"CREATE (n:Boost) SET n = $props",
		"UNWIND $rows AS row create (n:Boost) SET n = row",
		"MATCH (n:Boost) DETACH DELETE n",
		"DROP INDEX boost_name_idx IF EXISTS",
		"MERGE (n:Boost {id: $id})",
	} {
		assert.True(t, IsWrite(c), c)
	}
	for _, c := range []string{
		"MATCH (boost:Boost)\nWHERE boost.status = $param_0\nRETURN DISTINCT boost",
		"MATCH (n) WHERE n.offset = $param_0 RETURN n",
		"MATCH (n) WHERE n.`meta.createdAt` < $cursor RETURN COUNT(DISTINCT n) AS count",
	} {
		assert.False(t, IsWrite(c), c)
	}
}

func TestPlain(t *testing.T) {
	node := neo4j.Node{ElementId: "4:x:1", Labels: []string{"Boost"}, Props: map[string]any{"name": "a"}}
	rel := neo4j.Relationship{Type: "HAS_ROLE", Props: map[string]any{"role": "admin"}}

	assert.Equal(t, map[string]any{"name": "a"}, plain(node))
	assert.Equal(t, map[string]any{"role": "admin"}, plain(rel))
	assert.Equal(t, []any{map[string]any{"name": "a"}, int64(2)}, plain([]any{node, int64(2)}))
	assert.Equal(t, map[string]any{"b": map[string]any{"name": "a"}}, plain(map[string]any{"b": node}))
	assert.Equal(t, "x", plain("x"))

	rec := &neo4j.Record{Keys: []string{"boost", "n"}, Values: []any{node, int64(3)}}
	assert.Equal(t, map[string]any{"boost": map[string]any{"name": "a"}, "n": int64(3)}, plainRecord(rec))
}

func TestOpenRequiresURI(t *testing.T) {
	_, err := Open(context.Background(), Config{})
	assert.ErrorIs(t, err, ErrMissingURI)
}
