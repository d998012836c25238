package primary

import (
	"context"
	"time"

	"github.com/example/migreview/internal/models"
)

// ReviewService defines the primary port for reviewing a migration batch.
// Statement positions are zero-based and refer to the current batch order.
type ReviewService interface {
	// OpenBatch loads the local draft if one exists, otherwise fetches the batch.
	OpenBatch(ctx context.Context, batchID string) (*Batch, error)

	// LoadBatch fetches the batch from the service, discarding local edits.
	LoadBatch(ctx context.Context, batchID string) (*Batch, error)

	// SaveBatch sends the batch to the service and adopts its response.
	SaveBatch(ctx context.Context, batchID string) (*Batch, error)

	// GetBatch returns the batch as currently held.
	GetBatch(ctx context.Context, batchID string) (*Batch, error)

	// ListBatches lists every known batch ordered by creation time, then ID.
	ListBatches(ctx context.Context) ([]*BatchSummary, error)

	// CloseBatch drops a batch from memory and discards its draft.
	CloseBatch(ctx context.Context, batchID string) error

	// EditStatement replaces a statement's translated text.
	EditStatement(ctx context.Context, req EditStatementRequest) error

	// InsertStatement inserts a new issue-free statement.
	InsertStatement(ctx context.Context, req InsertStatementRequest) error

	// DeleteIssue clears a statement's translation and optionally removes one issue.
	DeleteIssue(ctx context.Context, req DeleteIssueRequest) (bool, error)

	// FixSequence resolves one sequence issue through the fix service.
	FixSequence(ctx context.Context, req FixSequenceRequest) (*FixResult, error)

	// FixAllSequences resolves every sequence issue through the fix service.
	FixAllSequences(ctx context.Context, batchID string) (*FixResult, error)

	// DeleteUnimplemented deletes every unimplemented issue.
	DeleteUnimplemented(ctx context.Context, batchID string) (int, error)

	// AddUser creates and grants a user and resolves its missing_user issues.
	AddUser(ctx context.Context, batchID, username string) (int, error)

	// AddAllUsers adds every distinct missing user once.
	AddAllUsers(ctx context.Context, batchID string) ([]string, error)

	// FixAll runs sequences, unimplemented and users in that order.
	FixAll(ctx context.Context, batchID string) (*FixAllSummary, error)

	// FindAndReplace rewrites translated text across the batch.
	FindAndReplace(ctx context.Context, req FindAndReplaceRequest) (int, error)

	// NextIssue finds the next statement after From that still has issues.
	NextIssue(ctx context.Context, batchID string, from int) (*Statement, error)

	// Export renders the batch as a SQL script.
	Export(ctx context.Context, batchID string) (*ExportResult, error)
}

// Batch is the service-level view of a loaded batch.
type Batch struct {
	ID              string
	CreatedAt       time.Time
	Status          string
	Message         string
	Database        string
	HasLiveDatabase bool
	State           string
	Generation      uint64
	Dirty           bool
	Statements      []*Statement
	Summary         *IssueSummary
}

// Statement is a statement with its current position.
type Statement struct {
	Index      int
	Key        string
	Original   string
	Translated string
	Issues     []models.Issue
}

// IssueSummary counts issues in a batch.
type IssueSummary struct {
	Statements int
	WithIssues int
	ByKind     map[string]int
	Kinds      []string
}

// BatchSummary is a list entry.
type BatchSummary struct {
	ID        string
	CreatedAt time.Time
	Status    string
	Dirty     bool
	Summary   *IssueSummary
}

// EditStatementRequest contains parameters for editing a statement.
type EditStatementRequest struct {
	BatchID        string
	StatementIndex int
	Text           string
}

// InsertStatementRequest contains parameters for inserting a statement.
type InsertStatementRequest struct {
	BatchID  string
	Position int
	Text     string
}

// DeleteIssueRequest contains parameters for deleting an issue.
// A nil IssueIndex clears the translation only.
type DeleteIssueRequest struct {
	BatchID        string
	StatementIndex int
	IssueIndex     *int
}

// FixSequenceRequest contains parameters for fixing one sequence issue.
type FixSequenceRequest struct {
	BatchID        string
	StatementIndex int
	SequenceID     string
}

// FixResult reports the outcome of sequence fixes.
type FixResult struct {
	Attempted int // sequence issues collected
	Fixed     int // corrections applied to the batch
	Skipped   int // already resolved, or dropped because the batch was reloaded
	Failed    int
	Errors    []error
}

// FixAllSummary reports per-category counts of a FixAll run.
type FixAllSummary struct {
	Sequences     *FixResult
	Unimplemented int
	Users         []string
}

// FindAndReplaceRequest contains parameters for find and replace.
type FindAndReplaceRequest struct {
	BatchID     string
	Pattern     string
	Replacement string
	IsRegex     bool
}

// ExportResult is a rendered export script.
type ExportResult struct {
	FileName string
	Content  string
}
