// Package app contains the application layer - service implementations and effect execution.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/example/migreview/internal/core/batch"
	"github.com/example/migreview/internal/core/effects"
	"github.com/example/migreview/internal/models"
	"github.com/example/migreview/internal/ports/secondary"
	"github.com/example/migreview/internal/store"
)

// ExecutionReport tallies what happened to the effects of one Execute call.
type ExecutionReport struct {
	Fixed   int
	Skipped int
	Failed  int
	Errors  []error
}

// EffectExecutor interprets and executes effects.
// This is the "Imperative Shell" - the only place I/O happens.
type EffectExecutor interface {
	Execute(ctx context.Context, effs []effects.Effect) (*ExecutionReport, error)
}

// DefaultEffectExecutor implements EffectExecutor against the migration
// service and the in-memory store.
type DefaultEffectExecutor struct {
	client      secondary.MigrationClient
	store       *store.Store
	logger      *logrus.Logger
	concurrency int
}

// NewEffectExecutor creates a new DefaultEffectExecutor. concurrency bounds
// the number of fix requests in flight.
func NewEffectExecutor(client secondary.MigrationClient, st *store.Store, logger *logrus.Logger, concurrency int) *DefaultEffectExecutor {
	if concurrency < 1 {
		concurrency = 1
	}
	return &DefaultEffectExecutor{
		client:      client,
		store:       st,
		logger:      logger,
		concurrency: concurrency,
	}
}

// Execute runs log effects inline and fans fix-sequence effects out to the
// fix service. Fixes addressing the same statement run one after another,
// each against the statement as the previous one left it; different
// statements proceed in parallel. A failed fix does not stop the others.
func (e *DefaultEffectExecutor) Execute(ctx context.Context, effs []effects.Effect) (*ExecutionReport, error) {
	var fixes []effects.FixSequenceEffect
	if err := e.collect(effs, &fixes); err != nil {
		return nil, err
	}

	report := &ExecutionReport{}
	if len(fixes) == 0 {
		return report, nil
	}

	var order []string
	groups := make(map[string][]effects.FixSequenceEffect)
	for _, f := range fixes {
		if _, ok := groups[f.StatementKey]; !ok {
			order = append(order, f.StatementKey)
		}
		groups[f.StatementKey] = append(groups[f.StatementKey], f)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for _, key := range order {
		group := groups[key]
		g.Go(func() error {
			for _, f := range group {
				outcome, err := e.fixOne(gctx, f)
				mu.Lock()
				switch outcome {
				case outcomeFixed:
					report.Fixed++
				case outcomeSkipped:
					report.Skipped++
				case outcomeFailed:
					report.Failed++
					report.Errors = append(report.Errors, err)
				}
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return report, nil
}

func (e *DefaultEffectExecutor) collect(effs []effects.Effect, fixes *[]effects.FixSequenceEffect) error {
	for _, eff := range effs {
		switch typed := eff.(type) {
		case effects.FixSequenceEffect:
			*fixes = append(*fixes, typed)
		case effects.CompositeEffect:
			if err := e.collect(typed.Effects, fixes); err != nil {
				return err
			}
		case effects.LogEffect:
			e.executeLog(typed)
		case effects.NoEffect:
		default:
			return fmt.Errorf("unknown effect type: %T", eff)
		}
	}
	return nil
}

func (e *DefaultEffectExecutor) executeLog(eff effects.LogEffect) {
	level, err := logrus.ParseLevel(eff.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	e.logger.WithFields(logrus.Fields(eff.Fields)).Log(level, eff.Message)
}

type fixOutcome int

const (
	outcomeFixed fixOutcome = iota
	outcomeSkipped
	outcomeFailed
)

func (e *DefaultEffectExecutor) fixOne(ctx context.Context, f effects.FixSequenceEffect) (fixOutcome, error) {
	log := e.logger.WithFields(logrus.Fields{
		"batch":      f.BatchID,
		"generation": f.Generation,
		"statement":  f.StatementIdx,
		"sequence":   f.IssueID,
	})

	current, _, err := e.store.SelectStatement(f.BatchID, f.Generation, f.StatementKey)
	if isStale(err) {
		log.WithError(err).Info("skipping fix for reloaded batch")
		return outcomeSkipped, nil
	}
	if err != nil {
		return outcomeFailed, err
	}
	if !batch.HasIssue(current, models.IssueSequence, f.IssueID) {
		log.Debug("sequence already resolved")
		return outcomeSkipped, nil
	}

	fixed, err := e.client.FixSequence(ctx, models.FixSequenceRequest{
		Statement: current,
		ID:        f.IssueID,
	})
	if err != nil {
		log.WithError(err).Warn("sequence fix failed")
		return outcomeFailed, fmt.Errorf("statement %d, sequence %s: %w", f.StatementIdx, f.IssueID, err)
	}

	err = e.store.ReplaceStatement(f.BatchID, f.Generation, f.StatementKey, *fixed)
	if isStale(err) {
		log.WithError(err).Info("discarding fix that arrived after a reload")
		return outcomeSkipped, nil
	}
	if err != nil {
		return outcomeFailed, err
	}
	log.Debug("sequence fixed")
	return outcomeFixed, nil
}

// isStale reports whether err means the target was replaced underneath us.
func isStale(err error) bool {
	return errors.Is(err, store.ErrStaleGeneration) || errors.Is(err, store.ErrStatementNotFound)
}
