package batch

import (
	"sort"

	"github.com/example/migreview/internal/core/effects"
	"github.com/example/migreview/internal/models"
)

// SequenceFixTarget is one sequence issue captured before any fix is applied.
type SequenceFixTarget struct {
	StatementIdx int
	StatementKey string
	IssueID      string
	Statement    models.Statement
}

// PlanSequenceFixes snapshots every sequence issue in statement order.
// Fixes rewrite their statement's issue list, so the targets must be
// collected up front rather than while applying.
func PlanSequenceFixes(b models.Batch) []SequenceFixTarget {
	var targets []SequenceFixTarget
	for si, stmt := range b.Statements() {
		for _, issue := range stmt.Issues {
			if issue.Type != models.IssueSequence {
				continue
			}
			targets = append(targets, SequenceFixTarget{
				StatementIdx: si,
				StatementKey: stmt.Key,
				IssueID:      issue.ID,
				Statement:    stmt.Clone(),
			})
		}
	}
	return targets
}

// SequenceFixEffects turns targets into fix-sequence effects bound to the
// store generation they were planned against.
func SequenceFixEffects(batchID string, generation uint64, targets []SequenceFixTarget) []effects.Effect {
	if len(targets) == 0 {
		return []effects.Effect{effects.NoEffect{}}
	}
	effs := make([]effects.Effect, 0, len(targets))
	for _, t := range targets {
		effs = append(effs, effects.FixSequenceEffect{
			BatchID:      batchID,
			Generation:   generation,
			StatementIdx: t.StatementIdx,
			StatementKey: t.StatementKey,
			Statement:    t.Statement,
			IssueID:      t.IssueID,
		})
	}
	return effs
}

// HasIssue reports whether stmt still carries an issue of kind with id.
func HasIssue(stmt models.Statement, kind, id string) bool {
	for _, issue := range stmt.Issues {
		if issue.Type == kind && issue.ID == id {
			return true
		}
	}
	return false
}

// Summary counts issues across a batch.
type Summary struct {
	Statements int
	WithIssues int
	ByKind     map[string]int
}

// Kinds returns the issue kinds present, sorted.
func (s Summary) Kinds() []string {
	kinds := make([]string, 0, len(s.ByKind))
	for k := range s.ByKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Summarize counts statements and issues per kind with a full scan.
func Summarize(b models.Batch) Summary {
	s := Summary{ByKind: make(map[string]int)}
	for _, stmt := range b.Statements() {
		s.Statements++
		if stmt.HasIssues() {
			s.WithIssues++
		}
		for _, issue := range stmt.Issues {
			s.ByKind[issue.Type]++
		}
	}
	return s
}

// NextStatementWithIssue finds the first statement after from (wrapping
// around) that still has issues. Pass -1 to start from the top.
func NextStatementWithIssue(b models.Batch, from int) (int, bool) {
	stmts := b.Statements()
	n := len(stmts)
	if n == 0 {
		return -1, false
	}
	if from < -1 || from >= n {
		from = -1
	}
	for i := 0; i < n; i++ {
		idx := (from + i + 1) % n
		if stmts[idx].HasIssues() {
			return idx, true
		}
	}
	return -1, false
}
