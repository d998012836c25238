package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/migreview/internal/core/batch"
	"github.com/example/migreview/internal/core/effects"
	"github.com/example/migreview/internal/models"
	"github.com/example/migreview/internal/store"
)

type unknownEffect struct{}

func (unknownEffect) EffectType() string { return "unknown" }

func loadIntoStore(t *testing.T, st *store.Store, b *models.Batch) (models.Batch, uint64) {
	t.Helper()
	st.UpsertBatch(*b)
	loaded, gen, err := st.SelectBatch(b.ID)
	require.NoError(t, err)
	return loaded, gen
}

func TestExecuteNoEffects(t *testing.T) {
	client := &mockMigrationClient{}
	exec := NewEffectExecutor(client, store.New(), quietLogger(), 2)

	report, err := exec.Execute(context.Background(), []effects.Effect{
		effects.NoEffect{},
		effects.LogEffect{Level: "info", Message: "nothing to fix"},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Fixed)
	assert.Equal(t, 0, client.fixCount())
}

func TestExecuteUnknownEffect(t *testing.T) {
	exec := NewEffectExecutor(&mockMigrationClient{}, store.New(), quietLogger(), 1)

	_, err := exec.Execute(context.Background(), []effects.Effect{unknownEffect{}})
	assert.Error(t, err)
}

func TestExecuteCompositeEffect(t *testing.T) {
	st := store.New()
	b, gen := loadIntoStore(t, st, newTestBatch("b1", 1,
		stmt("a", "a", seqIssue("s1")),
		stmt("b", "b", seqIssue("s2")),
	))
	client := &mockMigrationClient{}
	exec := NewEffectExecutor(client, st, quietLogger(), 2)

	effs := batch.SequenceFixEffects("b1", gen, batch.PlanSequenceFixes(b))
	report, err := exec.Execute(context.Background(), []effects.Effect{
		effects.CompositeEffect{Effects: effs},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Fixed)
	assert.Equal(t, 2, client.fixCount())
}

func TestExecuteBoundsConcurrency(t *testing.T) {
	st := store.New()
	var stmts []models.Statement
	for _, id := range []string{"s1", "s2", "s3", "s4", "s5", "s6"} {
		stmts = append(stmts, stmt(id, id, seqIssue(id)))
	}
	b, gen := loadIntoStore(t, st, newTestBatch("b1", 1, stmts...))

	var inFlight, peak int32
	client := &mockMigrationClient{
		fixFn: func(ctx context.Context, req models.FixSequenceRequest) (*models.Statement, error) {
			n := atomic.AddInt32(&inFlight, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			return resolveSequence(req), nil
		},
	}
	exec := NewEffectExecutor(client, st, quietLogger(), 2)

	report, err := exec.Execute(context.Background(), batch.SequenceFixEffects("b1", gen, batch.PlanSequenceFixes(b)))
	require.NoError(t, err)
	assert.Equal(t, 6, report.Fixed)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestExecuteStaleGeneration(t *testing.T) {
	st := store.New()
	b, gen := loadIntoStore(t, st, newTestBatch("b1", 1, stmt("a", "a", seqIssue("s1"))))
	effs := batch.SequenceFixEffects("b1", gen, batch.PlanSequenceFixes(b))

	// reloaded after planning
	st.UpsertBatch(b)

	client := &mockMigrationClient{}
	exec := NewEffectExecutor(client, st, quietLogger(), 1)
	report, err := exec.Execute(context.Background(), effs)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Fixed)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 0, client.fixCount())
}

func TestExecuteFailureIsReported(t *testing.T) {
	st := store.New()
	b, gen := loadIntoStore(t, st, newTestBatch("b1", 1, stmt("a", "a", seqIssue("s1"))))
	client := &mockMigrationClient{
		fixFn: func(ctx context.Context, req models.FixSequenceRequest) (*models.Statement, error) {
			return nil, errors.New("boom")
		},
	}
	exec := NewEffectExecutor(client, st, quietLogger(), 1)

	report, err := exec.Execute(context.Background(), batch.SequenceFixEffects("b1", gen, batch.PlanSequenceFixes(b)))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0].Error(), "boom")

	current, _, err := st.SelectBatch("b1")
	require.NoError(t, err)
	assert.Len(t, current.Statements()[0].Issues, 1)
}
