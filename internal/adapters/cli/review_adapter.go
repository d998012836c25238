// Package cli provides thin CLI adapters that translate between CLI concerns
// and application services. Adapters handle argument parsing, output formatting,
// but delegate business logic to services.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"github.com/example/migreview/internal/models"
	"github.com/example/migreview/internal/ports/primary"
)

const rule = "────────────────────────────────────────────────────────────────"

// ReviewAdapter is a thin adapter that translates CLI operations to ReviewService calls.
// It depends only on the ReviewService interface, enabling easy testing with mocks.
type ReviewAdapter struct {
	service primary.ReviewService
	out     io.Writer
}

// NewReviewAdapter creates a new ReviewAdapter with the given service.
func NewReviewAdapter(service primary.ReviewService, out io.Writer) *ReviewAdapter {
	return &ReviewAdapter{
		service: service,
		out:     out,
	}
}

// Open opens a batch, resuming a local draft unless revert is set.
func (a *ReviewAdapter) Open(ctx context.Context, batchID string, revert bool) error {
	var (
		b   *primary.Batch
		err error
	)
	if revert {
		b, err = a.service.LoadBatch(ctx, batchID)
	} else {
		b, err = a.service.OpenBatch(ctx, batchID)
	}
	if err != nil {
		return err
	}

	verb := "Opened"
	if revert {
		verb = "Reloaded"
	}
	fmt.Fprintf(a.out, "✓ %s batch %s (%d statements, %d with issues)\n",
		verb, b.ID, b.Summary.Statements, b.Summary.WithIssues)
	if b.Dirty {
		fmt.Fprintf(a.out, "  %s\n", color.New(color.FgYellow).Sprint("unsaved local edits"))
	}
	a.printAlerts(b.Summary)
	return nil
}

// Save sends the batch to the migration service.
func (a *ReviewAdapter) Save(ctx context.Context, batchID string) error {
	b, err := a.service.SaveBatch(ctx, batchID)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "✓ Saved batch %s (status: %s)\n", b.ID, b.Status)
	if b.Message != "" {
		fmt.Fprintf(a.out, "  %s\n", b.Message)
	}
	a.printAlerts(b.Summary)
	return nil
}

// Close closes a batch and discards its draft.
func (a *ReviewAdapter) Close(ctx context.Context, batchID string) error {
	if err := a.service.CloseBatch(ctx, batchID); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "✓ Closed batch %s\n", batchID)
	return nil
}

// List lists known batches.
func (a *ReviewAdapter) List(ctx context.Context) error {
	batches, err := a.service.ListBatches(ctx)
	if err != nil {
		return fmt.Errorf("failed to list batches: %w", err)
	}

	if len(batches) == 0 {
		fmt.Fprintln(a.out, "No batches found")
		return nil
	}

	fmt.Fprintf(a.out, "\n%-24s %-20s %-10s %-6s %s\n", "ID", "CREATED", "STATUS", "ISSUES", "")
	fmt.Fprintln(a.out, rule)
	for _, b := range batches {
		marker := ""
		if b.Dirty {
			marker = color.New(color.FgYellow).Sprint("[unsaved]")
		}
		fmt.Fprintf(a.out, "%-24s %-20s %-10s %-6d %s\n",
			b.ID, b.CreatedAt.Format("2006-01-02 15:04:05"), b.Status, b.Summary.WithIssues, marker)
	}
	fmt.Fprintln(a.out)
	return nil
}

// Show prints the statements of a batch. With onlyIssues, statements without
// issues are left out.
func (a *ReviewAdapter) Show(ctx context.Context, batchID string, onlyIssues bool) (*primary.Batch, error) {
	b, err := a.service.GetBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}

	a.printHeader(b)
	for _, st := range b.Statements {
		if onlyIssues && len(st.Issues) == 0 {
			continue
		}
		a.printStatement(st)
	}
	fmt.Fprintln(a.out)
	return b, nil
}

// Summary prints issue counts for a batch.
func (a *ReviewAdapter) Summary(ctx context.Context, batchID string) error {
	b, err := a.service.GetBatch(ctx, batchID)
	if err != nil {
		return fmt.Errorf("failed to get batch: %w", err)
	}

	a.printHeader(b)
	fmt.Fprintf(a.out, "Statements:  %d\n", b.Summary.Statements)
	fmt.Fprintf(a.out, "With issues: %d\n", b.Summary.WithIssues)
	for _, kind := range b.Summary.Kinds {
		fmt.Fprintf(a.out, "  %-16s %d\n", kind, b.Summary.ByKind[kind])
	}
	a.printAlerts(b.Summary)
	fmt.Fprintln(a.out)
	return nil
}

// NextIssue prints the next statement with issues after from.
func (a *ReviewAdapter) NextIssue(ctx context.Context, batchID string, from int) error {
	st, err := a.service.NextIssue(ctx, batchID, from)
	if err != nil {
		return err
	}
	if st == nil {
		fmt.Fprintln(a.out, color.New(color.FgGreen).Sprint("✓ No statements with issues"))
		return nil
	}
	a.printStatement(st)
	return nil
}

// Edit replaces a statement's translated text.
func (a *ReviewAdapter) Edit(ctx context.Context, batchID string, idx int, text string) error {
	err := a.service.EditStatement(ctx, primary.EditStatementRequest{
		BatchID:        batchID,
		StatementIndex: idx,
		Text:           text,
	})
	if err != nil {
		return fmt.Errorf("failed to edit statement: %w", err)
	}
	fmt.Fprintf(a.out, "✓ Statement %d updated\n", idx)
	return nil
}

// Insert adds a new statement at position.
func (a *ReviewAdapter) Insert(ctx context.Context, batchID string, position int, text string) error {
	err := a.service.InsertStatement(ctx, primary.InsertStatementRequest{
		BatchID:  batchID,
		Position: position,
		Text:     text,
	})
	if err != nil {
		return fmt.Errorf("failed to insert statement: %w", err)
	}
	fmt.Fprintf(a.out, "✓ Inserted statement at %d\n", position)
	return nil
}

// DeleteIssue clears a statement and optionally removes one of its issues.
func (a *ReviewAdapter) DeleteIssue(ctx context.Context, batchID string, idx int, issueIdx *int) error {
	changed, err := a.service.DeleteIssue(ctx, primary.DeleteIssueRequest{
		BatchID:        batchID,
		StatementIndex: idx,
		IssueIndex:     issueIdx,
	})
	if err != nil {
		return err
	}
	if !changed {
		fmt.Fprintf(a.out, "Statement %d unchanged (no such issue)\n", idx)
		return nil
	}
	fmt.Fprintf(a.out, "✓ Statement %d cleared\n", idx)
	return nil
}

// FixSequence resolves one sequence issue.
func (a *ReviewAdapter) FixSequence(ctx context.Context, batchID string, idx int, sequenceID string) error {
	res, err := a.service.FixSequence(ctx, primary.FixSequenceRequest{
		BatchID:        batchID,
		StatementIndex: idx,
		SequenceID:     sequenceID,
	})
	if err != nil {
		return err
	}
	return a.printFixResult(res)
}

// FixSequences resolves every sequence issue.
func (a *ReviewAdapter) FixSequences(ctx context.Context, batchID string) error {
	res, err := a.service.FixAllSequences(ctx, batchID)
	if err != nil {
		return err
	}
	return a.printFixResult(res)
}

// DeleteUnimplemented deletes every unimplemented issue.
func (a *ReviewAdapter) DeleteUnimplemented(ctx context.Context, batchID string) error {
	n, err := a.service.DeleteUnimplemented(ctx, batchID)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "✓ Deleted %d unimplemented issue(s)\n", n)
	return nil
}

// AddUser creates and grants one user.
func (a *ReviewAdapter) AddUser(ctx context.Context, batchID, username string) error {
	n, err := a.service.AddUser(ctx, batchID, username)
	if err != nil {
		return fmt.Errorf("failed to add user: %w", err)
	}
	fmt.Fprintf(a.out, "✓ Added user %s (%d issue(s) resolved)\n", username, n)
	return nil
}

// AddUsers adds every missing user.
func (a *ReviewAdapter) AddUsers(ctx context.Context, batchID string) error {
	added, err := a.service.AddAllUsers(ctx, batchID)
	a.printUsers(added)
	return err
}

// FixAll runs every bulk fixer.
func (a *ReviewAdapter) FixAll(ctx context.Context, batchID string) error {
	summary, err := a.service.FixAll(ctx, batchID)
	if summary == nil {
		return err
	}

	fmt.Fprintln(a.out, "Sequences:")
	fixErr := a.printFixResult(summary.Sequences)
	fmt.Fprintf(a.out, "Unimplemented: %d deleted\n", summary.Unimplemented)
	a.printUsers(summary.Users)
	return errors.Join(err, fixErr)
}

// Replace runs find and replace over translated text.
func (a *ReviewAdapter) Replace(ctx context.Context, batchID, pattern, replacement string, isRegex bool) error {
	n, err := a.service.FindAndReplace(ctx, primary.FindAndReplaceRequest{
		BatchID:     batchID,
		Pattern:     pattern,
		Replacement: replacement,
		IsRegex:     isRegex,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "✓ %d statement(s) changed\n", n)
	return nil
}

// Export renders the batch. An outDir of "-" writes the script to the
// adapter's output; otherwise it is written to <outDir>/<id>_export.sql.
func (a *ReviewAdapter) Export(ctx context.Context, batchID, outDir string) (string, error) {
	res, err := a.service.Export(ctx, batchID)
	if err != nil {
		return "", err
	}
	if outDir == "-" {
		_, err := io.WriteString(a.out, res.Content)
		return "", err
	}

	path := filepath.Join(outDir, res.FileName)
	if err := os.WriteFile(path, []byte(res.Content), 0644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	fmt.Fprintf(a.out, "✓ Exported %s\n", path)
	return path, nil
}

func (a *ReviewAdapter) printHeader(b *primary.Batch) {
	fmt.Fprintf(a.out, "\nBatch:    %s\n", b.ID)
	fmt.Fprintf(a.out, "Created:  %s\n", b.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(a.out, "Status:   %s\n", b.Status)
	if b.Message != "" {
		fmt.Fprintf(a.out, "Message:  %s\n", b.Message)
	}
	if b.HasLiveDatabase {
		fmt.Fprintf(a.out, "Database: %s\n", b.Database)
	}
	if b.Dirty {
		fmt.Fprintf(a.out, "          %s\n", color.New(color.FgYellow).Sprint("[unsaved local edits]"))
	}
	fmt.Fprintln(a.out, rule)
}

func (a *ReviewAdapter) printStatement(st *primary.Statement) {
	fmt.Fprintf(a.out, "\n%s\n", color.New(color.Bold).Sprintf("#%d", st.Index))
	for _, line := range strings.Split(st.Original, "\n") {
		fmt.Fprintf(a.out, "  %s\n", color.New(color.Faint).Sprint("-- "+line))
	}
	for _, line := range strings.Split(st.Translated, "\n") {
		fmt.Fprintf(a.out, "  %s\n", line)
	}
	for i, issue := range st.Issues {
		fmt.Fprintf(a.out, "  [%d] %s %s: %s\n", i, levelColor(issue.Level).Sprint(issueLevel(issue)), issue.Type, issueText(issue))
	}
}

func (a *ReviewAdapter) printAlerts(sum *primary.IssueSummary) {
	if sum == nil {
		return
	}
	warn := color.New(color.FgYellow)
	if n := sum.ByKind[models.IssueSequence]; n > 0 {
		fmt.Fprintf(a.out, "  %s\n", warn.Sprintf("⚠ %d sequence(s) affected!", n))
	}
	if n := sum.ByKind[models.IssueUnimplemented]; n > 0 {
		fmt.Fprintf(a.out, "  %s\n", warn.Sprintf("⚠ %d unimplemented feature(s)!", n))
	}
	if n := sum.ByKind[models.IssueMissingUser]; n > 0 {
		fmt.Fprintf(a.out, "  %s\n", warn.Sprintf("⚠ %d missing user reference(s)!", n))
	}
}

func (a *ReviewAdapter) printFixResult(res *primary.FixResult) error {
	if res == nil {
		return nil
	}
	fmt.Fprintf(a.out, "✓ Fixed %d of %d sequence issue(s)", res.Fixed, res.Attempted)
	if res.Skipped > 0 {
		fmt.Fprintf(a.out, ", %d skipped", res.Skipped)
	}
	fmt.Fprintln(a.out)
	if res.Failed == 0 {
		return nil
	}
	for _, err := range res.Errors {
		fmt.Fprintf(a.out, "  %s %v\n", color.New(color.FgRed).Sprint("✗"), err)
	}
	return fmt.Errorf("%d sequence fix(es) failed", res.Failed)
}

func (a *ReviewAdapter) printUsers(users []string) {
	if len(users) == 0 {
		fmt.Fprintln(a.out, "Users: none added")
		return
	}
	fmt.Fprintf(a.out, "✓ Added %d user(s): %s\n", len(users), strings.Join(users, ", "))
}

func issueLevel(issue models.Issue) string {
	if issue.Level == "" {
		return "ISSUE"
	}
	return strings.ToUpper(issue.Level)
}

func issueText(issue models.Issue) string {
	if issue.Text != "" {
		return issue.Text
	}
	return issue.ID
}

func levelColor(level string) *color.Color {
	switch level {
	case "error":
		return color.New(color.FgRed)
	case "warning":
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgCyan)
	}
}
