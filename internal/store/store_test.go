package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/migreview/internal/core/batch"
	"github.com/example/migreview/internal/models"
)

func testBatch(id string, unixNano int64, texts ...string) models.Batch {
	b := models.Batch{ID: id, UnixNano: unixNano}
	for _, text := range texts {
		b.ImportMetadata.Statements = append(b.ImportMetadata.Statements, models.Statement{
			Original:  text,
			Cockroach: text,
		})
	}
	return b
}

func keys(stmts []models.Statement) []string {
	out := make([]string, len(stmts))
	for i, s := range stmts {
		out[i] = s.Key
	}
	return out
}

func TestUpsertBatchAssignsUniqueKeys(t *testing.T) {
	s := New()
	gen := s.UpsertBatch(testBatch("b1", 1, "a", "b", "c"))
	assert.NotZero(t, gen)

	stmts, err := s.SelectStatements("b1")
	require.NoError(t, err)
	seen := map[string]bool{}
	for _, k := range keys(stmts) {
		require.NotEmpty(t, k)
		require.False(t, seen[k], "duplicate key %s", k)
		seen[k] = true
	}
	for _, st := range stmts {
		assert.NotNil(t, st.Issues, "absent issues are normalized")
	}
}

func TestUpsertBatchInvalidatesKeys(t *testing.T) {
	s := New()
	gen1 := s.UpsertBatch(testBatch("b1", 1, "a"))
	before, _ := s.SelectStatements("b1")

	gen2 := s.UpsertBatch(testBatch("b1", 1, "a"))
	after, _ := s.SelectStatements("b1")

	assert.Greater(t, gen2, gen1)
	assert.NotEqual(t, before[0].Key, after[0].Key)

	err := s.ReplaceStatement("b1", gen1, before[0].Key, models.Statement{Cockroach: "late"})
	assert.ErrorIs(t, err, ErrStaleGeneration)

	current, _ := s.SelectStatements("b1")
	assert.Equal(t, "a", current[0].Cockroach, "stale write was dropped")
}

func TestBatchesOrdering(t *testing.T) {
	s := New()
	s.UpsertBatch(testBatch("z", 5))
	s.UpsertBatch(testBatch("a", 5))
	s.UpsertBatch(testBatch("m", 3))

	var ids []string
	for _, b := range s.Batches() {
		ids = append(ids, b.ID)
	}
	assert.Equal(t, []string{"m", "a", "z"}, ids)
}

func TestApplyKeepsAndAssignsKeys(t *testing.T) {
	s := New()
	s.UpsertBatch(testBatch("b1", 1, "a", "b"))
	before, _ := s.SelectStatements("b1")

	out, err := s.Apply("b1", func(b models.Batch) (models.Batch, error) {
		return batch.InsertStatement(b, 1, "new")
	})
	require.NoError(t, err)
	require.Len(t, out.Statements(), 3)
	assert.Equal(t, before[0].Key, out.Statements()[0].Key)
	assert.Equal(t, before[1].Key, out.Statements()[2].Key)
	assert.NotEmpty(t, out.Statements()[1].Key)
	assert.NotEqual(t, before[0].Key, out.Statements()[1].Key)
}

func TestApplyErrorLeavesBatch(t *testing.T) {
	s := New()
	s.UpsertBatch(testBatch("b1", 1, "foo"))

	_, err := s.Apply("b1", func(b models.Batch) (models.Batch, error) {
		next, _, err := batch.FindAndReplace(b, "(", "x", true)
		return next, err
	})
	assert.ErrorIs(t, err, batch.ErrInvalidPattern)

	stmts, _ := s.SelectStatements("b1")
	assert.Equal(t, "foo", stmts[0].Cockroach)
}

func TestReplaceStatement(t *testing.T) {
	s := New()
	gen := s.UpsertBatch(testBatch("b1", 1, "a", "b"))
	stmts, _ := s.SelectStatements("b1")

	require.NoError(t, s.ReplaceStatement("b1", gen, stmts[1].Key, models.Statement{Original: "b", Cockroach: "fixed"}))

	got, idx, err := s.SelectStatement("b1", gen, stmts[1].Key)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	assert.Equal(t, "fixed", got.Cockroach)

	assert.ErrorIs(t, s.ReplaceStatement("b1", gen, "nope", models.Statement{}), ErrStatementNotFound)
	assert.ErrorIs(t, s.ReplaceStatement("missing", gen, stmts[0].Key, models.Statement{}), ErrBatchNotFound)
}

func TestSelectReturnsCopies(t *testing.T) {
	s := New()
	s.UpsertBatch(testBatch("b1", 1, "a"))

	b, _, err := s.SelectBatch("b1")
	require.NoError(t, err)
	b.ImportMetadata.Statements[0].Cockroach = "mutated"

	again, _, _ := s.SelectBatch("b1")
	assert.Equal(t, "a", again.Statements()[0].Cockroach)
}
