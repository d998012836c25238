// Package batch contains the pure correction logic for a migration batch.
// Every function takes a batch value and returns a new one; inputs are never
// mutated, so callers can keep the previous value as a snapshot.
package batch

import (
	"errors"
	"fmt"
	"sort"

	"github.com/example/migreview/internal/models"
)

// ErrStatementIndex is returned when a position does not address a statement.
var ErrStatementIndex = errors.New("statement index out of range")

// withStatements returns a copy of b whose statement slice is fresh but whose
// elements still share issue slices with b. Callers must Clone any statement
// they modify.
func withStatements(b models.Batch) models.Batch {
	out := b
	stmts := make([]models.Statement, len(b.ImportMetadata.Statements))
	copy(stmts, b.ImportMetadata.Statements)
	out.ImportMetadata.Statements = stmts
	return out
}

// DeleteIssue clears the translated text of a statement and, when issueIdx is
// non-nil, removes that issue. Indices that no longer exist make the call a
// no-op; changed reports whether anything happened.
func DeleteIssue(b models.Batch, stmtIdx int, issueIdx *int) (out models.Batch, changed bool) {
	stmts := b.Statements()
	if stmtIdx < 0 || stmtIdx >= len(stmts) {
		return b, false
	}
	if issueIdx != nil && (*issueIdx < 0 || *issueIdx >= len(stmts[stmtIdx].Issues)) {
		return b, false
	}

	out = withStatements(b)
	stmt := out.ImportMetadata.Statements[stmtIdx].Clone()
	stmt.Cockroach = ""
	if issueIdx != nil {
		i := *issueIdx
		stmt.Issues = append(stmt.Issues[:i:i], stmt.Issues[i+1:]...)
	}
	out.ImportMetadata.Statements[stmtIdx] = stmt
	return out, true
}

// EditStatement replaces the translated text of one statement.
func EditStatement(b models.Batch, stmtIdx int, text string) (models.Batch, error) {
	if r := CanAddressStatement(stmtIdx, len(b.Statements())); !r.Allowed {
		return b, fmt.Errorf("%w: %s", ErrStatementIndex, r.Reason)
	}
	out := withStatements(b)
	stmt := out.ImportMetadata.Statements[stmtIdx].Clone()
	stmt.Cockroach = text
	out.ImportMetadata.Statements[stmtIdx] = stmt
	return out, nil
}

// ApplyStatementFix replaces a statement wholesale with the corrected one
// returned by the fix service. The statement key is kept so the store keeps
// addressing the same slot.
func ApplyStatementFix(b models.Batch, stmtIdx int, replacement models.Statement) (models.Batch, error) {
	if r := CanAddressStatement(stmtIdx, len(b.Statements())); !r.Allowed {
		return b, fmt.Errorf("%w: %s", ErrStatementIndex, r.Reason)
	}
	out := withStatements(b)
	fixed := replacement.Clone()
	fixed.Normalize()
	fixed.Key = out.ImportMetadata.Statements[stmtIdx].Key
	out.ImportMetadata.Statements[stmtIdx] = fixed
	return out, nil
}

// InsertStatement inserts an issue-free statement at pos, shifting the rest
// down by one. pos may equal the statement count to append.
func InsertStatement(b models.Batch, pos int, text string) (models.Batch, error) {
	n := len(b.Statements())
	if pos < 0 || pos > n {
		return b, fmt.Errorf("%w: position %d not in [0, %d]", ErrStatementIndex, pos, n)
	}
	return insertAt(b, pos, models.Statement{
		Original:  models.NewStatementOriginal,
		Cockroach: text,
		Issues:    []models.Issue{},
	}), nil
}

func insertAt(b models.Batch, pos int, added ...models.Statement) models.Batch {
	src := b.Statements()
	stmts := make([]models.Statement, 0, len(src)+len(added))
	stmts = append(stmts, src[:pos]...)
	stmts = append(stmts, added...)
	stmts = append(stmts, src[pos:]...)
	out := b
	out.ImportMetadata.Statements = stmts
	return out
}

// issueRef addresses one issue by position.
type issueRef struct {
	stmtIdx  int
	issueIdx int
}

// collectIssues snapshots every issue of the given kind, in statement order.
func collectIssues(b models.Batch, kind string) []issueRef {
	var refs []issueRef
	for si, stmt := range b.Statements() {
		for ii, issue := range stmt.Issues {
			if issue.Type == kind {
				refs = append(refs, issueRef{stmtIdx: si, issueIdx: ii})
			}
		}
	}
	return refs
}

// DeleteUnimplemented deletes every unimplemented issue (and clears its
// statement's text). The issues are collected first and removed afterwards,
// highest index first, so earlier removals never shift a pending target.
func DeleteUnimplemented(b models.Batch) (models.Batch, int) {
	refs := collectIssues(b, models.IssueUnimplemented)
	sort.SliceStable(refs, func(i, j int) bool {
		if refs[i].stmtIdx != refs[j].stmtIdx {
			return refs[i].stmtIdx > refs[j].stmtIdx
		}
		return refs[i].issueIdx > refs[j].issueIdx
	})

	out := b
	for _, ref := range refs {
		idx := ref.issueIdx
		out, _ = DeleteIssue(out, ref.stmtIdx, &idx)
	}
	return out, len(refs)
}

// MissingUsers returns the distinct missing_user ids in first-seen order.
func MissingUsers(b models.Batch) []string {
	seen := make(map[string]bool)
	var users []string
	for _, stmt := range b.Statements() {
		for _, issue := range stmt.Issues {
			if issue.Type != models.IssueMissingUser || seen[issue.ID] {
				continue
			}
			seen[issue.ID] = true
			users = append(users, issue.ID)
		}
	}
	return users
}

// AddUser prepends CREATE USER and GRANT statements for username and drops
// every missing_user issue naming it, across the whole batch. removed is the
// number of issues resolved.
func AddUser(b models.Batch, username string) (out models.Batch, removed int, err error) {
	if r := CanAddUser(username); !r.Allowed {
		return b, 0, r.Error()
	}

	ident := QuoteIdentifier(username)
	out = insertAt(b, 0,
		models.Statement{
			Original:  models.NewStatementOriginal,
			Cockroach: "CREATE USER IF NOT EXISTS " + ident,
			Issues:    []models.Issue{},
		},
		models.Statement{
			Original:  models.NewStatementOriginal,
			Cockroach: "GRANT admin TO " + ident,
			Issues:    []models.Issue{},
		},
	)

	for i, stmt := range out.ImportMetadata.Statements {
		kept := make([]models.Issue, 0, len(stmt.Issues))
		for _, issue := range stmt.Issues {
			if issue.Type == models.IssueMissingUser && issue.ID == username {
				continue
			}
			kept = append(kept, issue)
		}
		if len(kept) == len(stmt.Issues) {
			continue
		}
		removed += len(stmt.Issues) - len(kept)
		stmt.Issues = kept
		out.ImportMetadata.Statements[i] = stmt
	}
	return out, removed, nil
}

// AddAllUsers calls AddUser once per distinct missing user. Names that fail
// validation are skipped and reported in err; the rest are still added.
func AddAllUsers(b models.Batch) (out models.Batch, added []string, err error) {
	out = b
	var errs []error
	for _, user := range MissingUsers(b) {
		next, _, addErr := AddUser(out, user)
		if addErr != nil {
			errs = append(errs, fmt.Errorf("user %q: %w", user, addErr))
			continue
		}
		out = next
		added = append(added, user)
	}
	return out, added, errors.Join(errs...)
}
