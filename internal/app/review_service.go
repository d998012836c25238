package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/example/migreview/internal/core/batch"
	"github.com/example/migreview/internal/core/effects"
	"github.com/example/migreview/internal/core/export"
	"github.com/example/migreview/internal/models"
	"github.com/example/migreview/internal/ports/primary"
	"github.com/example/migreview/internal/ports/secondary"
	"github.com/example/migreview/internal/store"
)

// ErrBatchNotLoaded is returned when an operation targets a batch that has
// not been opened.
var ErrBatchNotLoaded = errors.New("batch not loaded")

var errUnchanged = errors.New("unchanged")

// ReviewServiceImpl implements the ReviewService interface.
// It owns the reconciliation state of every batch and is the only writer to
// the store outside of the effect executor.
type ReviewServiceImpl struct {
	client   secondary.MigrationClient
	drafts   secondary.DraftRepository
	store    *store.Store
	executor EffectExecutor
	logger   *logrus.Logger

	mu     sync.Mutex
	states map[string]BatchState
	dirty  map[string]bool
}

// NewReviewService creates a new ReviewService with injected dependencies.
func NewReviewService(
	client secondary.MigrationClient,
	drafts secondary.DraftRepository,
	st *store.Store,
	executor EffectExecutor,
	logger *logrus.Logger,
) *ReviewServiceImpl {
	return &ReviewServiceImpl{
		client:   client,
		drafts:   drafts,
		store:    st,
		executor: executor,
		logger:   logger,
		states:   make(map[string]BatchState),
		dirty:    make(map[string]bool),
	}
}

// ============================================================================
// Reconciliation
// ============================================================================

// OpenBatch resumes the local draft if there is one, otherwise loads from
// the service. A batch that is loading or saving is reported busy.
func (s *ReviewServiceImpl) OpenBatch(ctx context.Context, batchID string) (*primary.Batch, error) {
	switch st := s.state(batchID); st {
	case StateReady:
		return s.GetBatch(ctx, batchID)
	case StateUnloaded:
	default:
		return nil, stateError(batchID, st)
	}

	record, err := s.drafts.GetByID(ctx, batchID)
	if errors.Is(err, secondary.ErrDraftNotFound) {
		return s.LoadBatch(ctx, batchID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read draft: %w", err)
	}

	var b models.Batch
	if err := json.Unmarshal(record.Payload, &b); err != nil {
		return nil, fmt.Errorf("failed to decode draft %s: %w", batchID, err)
	}
	if err := s.resume(batchID, b, record.Dirty); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"batch": batchID, "dirty": record.Dirty}).Debug("resumed draft")
	return s.GetBatch(ctx, batchID)
}

// LoadBatch fetches the batch from the service and replaces whatever is held
// locally, unsaved edits included. On failure nothing changes. Once the
// batch is held, failing to record the draft is logged and not returned.
func (s *ReviewServiceImpl) LoadBatch(ctx context.Context, batchID string) (*primary.Batch, error) {
	prev, err := s.transition(batchID, StateLoading)
	if err != nil {
		return nil, err
	}

	b, err := s.client.GetBatch(ctx, batchID)
	if err != nil {
		s.setState(batchID, prev)
		s.logger.WithFields(logrus.Fields{"batch": batchID}).WithError(err).Error("load failed")
		return nil, fmt.Errorf("failed to load batch %s: %w", batchID, err)
	}
	if b.ID == "" {
		b.ID = batchID
	}

	gen := s.store.UpsertBatch(*b)
	s.setDirty(batchID, false)
	s.setState(batchID, StateReady)
	s.logger.WithFields(logrus.Fields{
		"batch":      batchID,
		"generation": gen,
		"statements": len(b.Statements()),
	}).Info("batch loaded")

	s.persistDraftBestEffort(ctx, batchID)
	return s.GetBatch(ctx, batchID)
}

// SaveBatch sends the full batch to the service and adopts the response.
// On failure local edits are kept and the batch returns to ready. After the
// service accepted the batch, a failed draft write is logged and not returned.
func (s *ReviewServiceImpl) SaveBatch(ctx context.Context, batchID string) (*primary.Batch, error) {
	if _, err := s.transition(batchID, StateSaving); err != nil {
		return nil, err
	}

	current, _, err := s.store.SelectBatch(batchID)
	if err != nil {
		s.setState(batchID, StateReady)
		return nil, err
	}

	saved, err := s.client.PutBatch(ctx, &current)
	if err != nil {
		s.setState(batchID, StateReady)
		s.logger.WithFields(logrus.Fields{"batch": batchID}).WithError(err).Error("save failed")
		return nil, fmt.Errorf("failed to save batch %s: %w", batchID, err)
	}
	if saved.ID == "" {
		saved.ID = batchID
	}

	gen := s.store.UpsertBatch(*saved)
	s.setDirty(batchID, false)
	s.setState(batchID, StateReady)
	s.logger.WithFields(logrus.Fields{"batch": batchID, "generation": gen}).Info("batch saved")

	s.persistDraftBestEffort(ctx, batchID)
	return s.GetBatch(ctx, batchID)
}

// GetBatch returns the batch as currently held.
func (s *ReviewServiceImpl) GetBatch(ctx context.Context, batchID string) (*primary.Batch, error) {
	if err := s.requireReady(batchID); err != nil {
		return nil, err
	}
	b, gen, err := s.store.SelectBatch(batchID)
	if err != nil {
		return nil, err
	}
	return s.toBatch(b, gen), nil
}

// ListBatches lists loaded batches and stored drafts, ordered by creation
// time then ID. A loaded batch wins over its draft.
func (s *ReviewServiceImpl) ListBatches(ctx context.Context) ([]*primary.BatchSummary, error) {
	loaded := s.store.Batches()
	seen := make(map[string]bool, len(loaded))
	all := make([]models.Batch, 0, len(loaded))
	for _, b := range loaded {
		seen[b.ID] = true
		all = append(all, b)
	}

	records, err := s.drafts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	dirty := make(map[string]bool)
	for _, r := range records {
		dirty[r.BatchID] = r.Dirty
		if seen[r.BatchID] {
			continue
		}
		var b models.Batch
		if err := json.Unmarshal(r.Payload, &b); err != nil {
			s.logger.WithFields(logrus.Fields{"batch": r.BatchID}).WithError(err).Warn("skipping unreadable draft")
			continue
		}
		b.Normalize()
		all = append(all, b)
	}
	store.SortBatches(all)

	out := make([]*primary.BatchSummary, len(all))
	for i, b := range all {
		isDirty := dirty[b.ID]
		if seen[b.ID] {
			isDirty = s.isDirty(b.ID)
		}
		out[i] = &primary.BatchSummary{
			ID:        b.ID,
			CreatedAt: b.CreatedAt(),
			Status:    b.ImportMetadata.Status,
			Dirty:     isDirty,
			Summary:   toIssueSummary(batch.Summarize(b)),
		}
	}
	return out, nil
}

// CloseBatch tears a batch down: it leaves memory and its draft is deleted.
func (s *ReviewServiceImpl) CloseBatch(ctx context.Context, batchID string) error {
	if _, err := s.transition(batchID, StateClosed); err != nil {
		return err
	}
	s.store.Remove(batchID)
	s.setDirty(batchID, false)
	if err := s.drafts.Delete(ctx, batchID); err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}

// ============================================================================
// Corrections
// ============================================================================

// EditStatement replaces a statement's translated text.
func (s *ReviewServiceImpl) EditStatement(ctx context.Context, req primary.EditStatementRequest) error {
	_, err := s.mutate(ctx, req.BatchID, func(b models.Batch) (models.Batch, bool, error) {
		out, err := batch.EditStatement(b, req.StatementIndex, req.Text)
		return out, err == nil, err
	})
	return err
}

// InsertStatement inserts a new statement.
func (s *ReviewServiceImpl) InsertStatement(ctx context.Context, req primary.InsertStatementRequest) error {
	_, err := s.mutate(ctx, req.BatchID, func(b models.Batch) (models.Batch, bool, error) {
		out, err := batch.InsertStatement(b, req.Position, req.Text)
		return out, err == nil, err
	})
	return err
}

// DeleteIssue clears a statement and optionally removes one of its issues.
// An out-of-range position leaves the batch and its draft untouched.
func (s *ReviewServiceImpl) DeleteIssue(ctx context.Context, req primary.DeleteIssueRequest) (bool, error) {
	var changed bool
	_, err := s.mutate(ctx, req.BatchID, func(b models.Batch) (models.Batch, bool, error) {
		var out models.Batch
		out, changed = batch.DeleteIssue(b, req.StatementIndex, req.IssueIndex)
		return out, changed, nil
	})
	return changed, err
}

// DeleteUnimplemented deletes every unimplemented issue.
func (s *ReviewServiceImpl) DeleteUnimplemented(ctx context.Context, batchID string) (int, error) {
	var n int
	_, err := s.mutate(ctx, batchID, func(b models.Batch) (models.Batch, bool, error) {
		var out models.Batch
		out, n = batch.DeleteUnimplemented(b)
		return out, n > 0, nil
	})
	return n, err
}

// AddUser creates and grants a user, resolving its missing_user issues.
func (s *ReviewServiceImpl) AddUser(ctx context.Context, batchID, username string) (int, error) {
	var removed int
	_, err := s.mutate(ctx, batchID, func(b models.Batch) (models.Batch, bool, error) {
		out, n, err := batch.AddUser(b, username)
		removed = n
		return out, err == nil, err
	})
	return removed, err
}

// AddAllUsers adds each distinct missing user once. Invalid names are
// reported but do not block the valid ones.
func (s *ReviewServiceImpl) AddAllUsers(ctx context.Context, batchID string) ([]string, error) {
	var (
		added   []string
		skipErr error
	)
	_, err := s.mutate(ctx, batchID, func(b models.Batch) (models.Batch, bool, error) {
		var out models.Batch
		out, added, skipErr = batch.AddAllUsers(b)
		return out, len(added) > 0, nil
	})
	if err != nil {
		return nil, err
	}
	return added, skipErr
}

// FindAndReplace rewrites translated text across the batch.
func (s *ReviewServiceImpl) FindAndReplace(ctx context.Context, req primary.FindAndReplaceRequest) (int, error) {
	var n int
	_, err := s.mutate(ctx, req.BatchID, func(b models.Batch) (models.Batch, bool, error) {
		out, changed, err := batch.FindAndReplace(b, req.Pattern, req.Replacement, req.IsRegex)
		n = changed
		return out, changed > 0, err
	})
	return n, err
}

// FixSequence resolves one sequence issue. Fixing a sequence that is no
// longer reported is a no-op.
func (s *ReviewServiceImpl) FixSequence(ctx context.Context, req primary.FixSequenceRequest) (*primary.FixResult, error) {
	if err := s.requireReady(req.BatchID); err != nil {
		return nil, err
	}
	b, gen, err := s.store.SelectBatch(req.BatchID)
	if err != nil {
		return nil, err
	}
	if r := batch.CanAddressStatement(req.StatementIndex, len(b.Statements())); !r.Allowed {
		return nil, fmt.Errorf("%w: %s", batch.ErrStatementIndex, r.Reason)
	}

	stmt := b.Statements()[req.StatementIndex]
	effs := []effects.Effect{effects.NoEffect{}}
	if batch.HasIssue(stmt, models.IssueSequence, req.SequenceID) {
		effs = batch.SequenceFixEffects(req.BatchID, gen, []batch.SequenceFixTarget{{
			StatementIdx: req.StatementIndex,
			StatementKey: stmt.Key,
			IssueID:      req.SequenceID,
			Statement:    stmt,
		}})
	}
	return s.runFixes(ctx, req.BatchID, 1, effs)
}

// FixAllSequences snapshots every sequence issue, then fixes each one.
func (s *ReviewServiceImpl) FixAllSequences(ctx context.Context, batchID string) (*primary.FixResult, error) {
	if err := s.requireReady(batchID); err != nil {
		return nil, err
	}
	b, gen, err := s.store.SelectBatch(batchID)
	if err != nil {
		return nil, err
	}

	targets := batch.PlanSequenceFixes(b)
	return s.runFixes(ctx, batchID, len(targets), batch.SequenceFixEffects(batchID, gen, targets))
}

// FixAll runs the sequence, unimplemented and user fixers in that order.
func (s *ReviewServiceImpl) FixAll(ctx context.Context, batchID string) (*primary.FixAllSummary, error) {
	seqs, err := s.FixAllSequences(ctx, batchID)
	if err != nil {
		return nil, err
	}
	unimplemented, err := s.DeleteUnimplemented(ctx, batchID)
	if err != nil {
		return nil, err
	}
	users, err := s.AddAllUsers(ctx, batchID)

	summary := &primary.FixAllSummary{
		Sequences:     seqs,
		Unimplemented: unimplemented,
		Users:         users,
	}
	s.logger.WithFields(logrus.Fields{
		"batch":         batchID,
		"sequences":     seqs.Fixed,
		"unimplemented": unimplemented,
		"users":         len(users),
	}).Info("fix all finished")
	return summary, err
}

// NextIssue finds the next statement after from that still has issues.
func (s *ReviewServiceImpl) NextIssue(ctx context.Context, batchID string, from int) (*primary.Statement, error) {
	if err := s.requireReady(batchID); err != nil {
		return nil, err
	}
	b, _, err := s.store.SelectBatch(batchID)
	if err != nil {
		return nil, err
	}
	idx, ok := batch.NextStatementWithIssue(b, from)
	if !ok {
		return nil, nil
	}
	return toStatement(idx, b.Statements()[idx]), nil
}

// Export renders the batch as a SQL script.
func (s *ReviewServiceImpl) Export(ctx context.Context, batchID string) (*primary.ExportResult, error) {
	if err := s.requireReady(batchID); err != nil {
		return nil, err
	}
	b, _, err := s.store.SelectBatch(batchID)
	if err != nil {
		return nil, err
	}
	return &primary.ExportResult{
		FileName: export.FileName(b.ID),
		Content:  export.FormatBatch(b),
	}, nil
}

// ============================================================================
// Helpers
// ============================================================================

func (s *ReviewServiceImpl) runFixes(ctx context.Context, batchID string, attempted int, effs []effects.Effect) (*primary.FixResult, error) {
	report, err := s.executor.Execute(ctx, effs)
	if err != nil {
		return nil, err
	}

	result := &primary.FixResult{
		Attempted: attempted,
		Fixed:     report.Fixed,
		Skipped:   report.Skipped,
		Failed:    report.Failed,
		Errors:    report.Errors,
	}
	if attempted > report.Fixed+report.Skipped+report.Failed {
		// targets the executor never reached were already resolved
		result.Skipped = attempted - report.Fixed - report.Failed
	}

	if report.Fixed > 0 {
		s.setDirty(batchID, true)
		if err := s.persistDraft(ctx, batchID); err != nil {
			return result, err
		}
	}
	return result, nil
}

// mutate applies a pure correction to a ready batch and records the draft.
// fn reports whether it changed anything; a no-op is not committed and leaves
// the dirty flag alone.
func (s *ReviewServiceImpl) mutate(ctx context.Context, batchID string, fn func(models.Batch) (models.Batch, bool, error)) (models.Batch, error) {
	if err := s.requireReady(batchID); err != nil {
		return models.Batch{}, err
	}
	out, err := s.store.Apply(batchID, func(b models.Batch) (models.Batch, error) {
		next, changed, err := fn(b)
		if err == nil && !changed {
			return b, errUnchanged
		}
		return next, err
	})
	if errors.Is(err, errUnchanged) {
		return out, nil
	}
	if err != nil {
		return out, err
	}
	s.setDirty(batchID, true)
	if err := s.persistDraft(ctx, batchID); err != nil {
		return out, err
	}
	return out, nil
}

func (s *ReviewServiceImpl) persistDraft(ctx context.Context, batchID string) error {
	b, _, err := s.store.SelectBatch(batchID)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to encode draft: %w", err)
	}
	err = s.drafts.Save(ctx, &secondary.DraftRecord{
		BatchID:  batchID,
		UnixNano: b.UnixNano,
		Payload:  payload,
		Dirty:    s.isDirty(batchID),
	})
	if err != nil {
		return fmt.Errorf("failed to persist draft: %w", err)
	}
	return nil
}

// persistDraftBestEffort records the draft once the store already holds the
// batch; the in-memory copy stays authoritative if the write fails.
func (s *ReviewServiceImpl) persistDraftBestEffort(ctx context.Context, batchID string) {
	if err := s.persistDraft(ctx, batchID); err != nil {
		s.logger.WithFields(logrus.Fields{"batch": batchID}).WithError(err).Warn("draft not recorded")
	}
}

// resume installs a decoded draft, but only for a batch nobody holds yet.
func (s *ReviewServiceImpl) resume(batchID string, b models.Batch, dirty bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch st := s.stateLocked(batchID); st {
	case StateUnloaded:
	case StateReady:
		// a concurrent open got there first
		return nil
	default:
		return stateError(batchID, st)
	}
	s.store.UpsertBatch(b)
	s.dirty[batchID] = dirty
	s.states[batchID] = StateReady
	return nil
}

func (s *ReviewServiceImpl) requireReady(batchID string) error {
	if st := s.state(batchID); st != StateReady {
		return stateError(batchID, st)
	}
	return nil
}

func stateError(batchID string, st BatchState) error {
	switch st {
	case StateUnloaded:
		return fmt.Errorf("%w: %s", ErrBatchNotLoaded, batchID)
	case StateClosed:
		return fmt.Errorf("%w: %s", ErrBatchClosed, batchID)
	default:
		return fmt.Errorf("%w: %s is %s", ErrBusy, batchID, st)
	}
}

// transition moves batchID to the next state and returns the previous one.
func (s *ReviewServiceImpl) transition(batchID string, to BatchState) (BatchState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	from := s.stateLocked(batchID)
	if err := CanTransition(from, to); err != nil {
		return from, err
	}
	s.states[batchID] = to
	return from, nil
}

func (s *ReviewServiceImpl) setState(batchID string, st BatchState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[batchID] = st
}

func (s *ReviewServiceImpl) state(batchID string) BatchState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked(batchID)
}

func (s *ReviewServiceImpl) stateLocked(batchID string) BatchState {
	if st, ok := s.states[batchID]; ok {
		return st
	}
	return StateUnloaded
}

func (s *ReviewServiceImpl) setDirty(batchID string, dirty bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty[batchID] = dirty
}

func (s *ReviewServiceImpl) isDirty(batchID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty[batchID]
}

func (s *ReviewServiceImpl) toBatch(b models.Batch, gen uint64) *primary.Batch {
	stmts := make([]*primary.Statement, len(b.Statements()))
	for i, st := range b.Statements() {
		stmts[i] = toStatement(i, st)
	}
	return &primary.Batch{
		ID:              b.ID,
		CreatedAt:       b.CreatedAt(),
		Status:          b.ImportMetadata.Status,
		Message:         b.ImportMetadata.Message,
		Database:        b.ImportMetadata.Database,
		HasLiveDatabase: b.HasLiveDatabase(),
		State:           string(s.state(b.ID)),
		Generation:      gen,
		Dirty:           s.isDirty(b.ID),
		Statements:      stmts,
		Summary:         toIssueSummary(batch.Summarize(b)),
	}
}

func toStatement(idx int, st models.Statement) *primary.Statement {
	return &primary.Statement{
		Index:      idx,
		Key:        st.Key,
		Original:   st.Original,
		Translated: st.Cockroach,
		Issues:     st.Issues,
	}
}

func toIssueSummary(sum batch.Summary) *primary.IssueSummary {
	return &primary.IssueSummary{
		Statements: sum.Statements,
		WithIssues: sum.WithIssues,
		ByKind:     sum.ByKind,
		Kinds:      sum.Kinds(),
	}
}

var _ primary.ReviewService = (*ReviewServiceImpl)(nil)
