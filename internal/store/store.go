// Package store holds loaded batches in memory, addressing statements by a
// per-session key instead of their position.
//
// Every UpsertBatch starts a new generation for that batch and hands out
// fresh keys. Anything captured against an older generation (a focused
// statement, an in-flight fix) must be dropped once the generation moves on.
package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/example/migreview/internal/core/batch"
	"github.com/example/migreview/internal/models"
)

var (
	// ErrBatchNotFound is returned for an identity the store does not hold.
	ErrBatchNotFound = errors.New("batch not loaded")
	// ErrStaleGeneration is returned when a write targets a replaced generation.
	ErrStaleGeneration = errors.New("batch was reloaded since this change was started")
	// ErrStatementNotFound is returned when a key is not present in the batch.
	ErrStatementNotFound = errors.New("statement not found")
)

type entry struct {
	batch      models.Batch
	generation uint64
}

// Store is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	batches map[string]*entry
	nextGen uint64
	newKey  func() string
}

// New creates an empty store.
func New() *Store {
	return &Store{
		batches: make(map[string]*entry),
		newKey:  uuid.NewString,
	}
}

// UpsertBatch replaces any batch with the same identity in full, assigns a
// fresh key to every statement and returns the new generation.
func (s *Store) UpsertBatch(b models.Batch) uint64 {
	b = b.Clone()
	b.Normalize()
	for i := range b.ImportMetadata.Statements {
		b.ImportMetadata.Statements[i].Key = s.newKey()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextGen++
	s.batches[b.ID] = &entry{batch: b, generation: s.nextGen}
	return s.nextGen
}

// Remove drops a batch.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.batches, id)
}

// SelectBatch returns a copy of the batch and its generation.
func (s *Store) SelectBatch(id string) (models.Batch, uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.batches[id]
	if !ok {
		return models.Batch{}, 0, fmt.Errorf("%w: %s", ErrBatchNotFound, id)
	}
	return e.batch.Clone(), e.generation, nil
}

// SelectStatements returns a copy of the batch's statements in order.
func (s *Store) SelectStatements(id string) ([]models.Statement, error) {
	b, _, err := s.SelectBatch(id)
	if err != nil {
		return nil, err
	}
	return b.Statements(), nil
}

// SelectStatement looks a statement up by key.
func (s *Store) SelectStatement(id string, gen uint64, key string) (models.Statement, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, err := s.lookup(id, gen)
	if err != nil {
		return models.Statement{}, -1, err
	}
	idx := indexOf(e.batch, key)
	if idx < 0 {
		return models.Statement{}, -1, fmt.Errorf("%w: %s", ErrStatementNotFound, key)
	}
	return e.batch.ImportMetadata.Statements[idx].Clone(), idx, nil
}

// Generation returns the current generation of a batch, or 0 if absent.
func (s *Store) Generation(id string) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.batches[id]; ok {
		return e.generation
	}
	return 0
}

// Batches returns every batch ordered by creation time, then identity.
func (s *Store) Batches() []models.Batch {
	s.mu.RLock()
	out := make([]models.Batch, 0, len(s.batches))
	for _, e := range s.batches {
		out = append(out, e.batch.Clone())
	}
	s.mu.RUnlock()

	SortBatches(out)
	return out
}

// SortBatches orders batches by creation time, then identity.
func SortBatches(bs []models.Batch) {
	sort.Slice(bs, func(i, j int) bool {
		if bs[i].UnixNano != bs[j].UnixNano {
			return bs[i].UnixNano < bs[j].UnixNano
		}
		return bs[i].ID < bs[j].ID
	})
}

// Apply runs fn against the current batch and commits its result. Statements
// fn introduces without a key get a new one. Apply does not start a new
// generation: existing keys stay valid.
func (s *Store) Apply(id string, fn func(models.Batch) (models.Batch, error)) (models.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.batches[id]
	if !ok {
		return models.Batch{}, fmt.Errorf("%w: %s", ErrBatchNotFound, id)
	}

	next, err := fn(e.batch.Clone())
	if err != nil {
		return e.batch.Clone(), err
	}
	next.Normalize()
	s.assignKeys(&next)
	e.batch = next
	return next.Clone(), nil
}

// ReplaceStatement swaps in a corrected statement for key, provided the
// batch is still at generation gen.
func (s *Store) ReplaceStatement(id string, gen uint64, key string, replacement models.Statement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.lookup(id, gen)
	if err != nil {
		return err
	}
	idx := indexOf(e.batch, key)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrStatementNotFound, key)
	}
	next, err := batch.ApplyStatementFix(e.batch, idx, replacement)
	if err != nil {
		return err
	}
	e.batch = next
	return nil
}

func (s *Store) lookup(id string, gen uint64) (*entry, error) {
	e, ok := s.batches[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBatchNotFound, id)
	}
	if e.generation != gen {
		return nil, fmt.Errorf("%w (generation %d, now %d)", ErrStaleGeneration, gen, e.generation)
	}
	return e, nil
}

// assignKeys gives keyless statements a key and re-keys any duplicate.
func (s *Store) assignKeys(b *models.Batch) {
	seen := make(map[string]bool, len(b.ImportMetadata.Statements))
	for i := range b.ImportMetadata.Statements {
		st := &b.ImportMetadata.Statements[i]
		if st.Key == "" || seen[st.Key] {
			st.Key = s.newKey()
		}
		seen[st.Key] = true
	}
}

func indexOf(b models.Batch, key string) int {
	for i, st := range b.ImportMetadata.Statements {
		if st.Key == key {
			return i
		}
	}
	return -1
}
