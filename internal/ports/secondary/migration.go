// Package secondary defines the secondary ports (driven adapters) for the application.
// These are the interfaces through which the application drives external systems.
package secondary

import (
	"context"
	"errors"

	"github.com/example/migreview/internal/models"
)

// MigrationClient defines the secondary port for the remote migration service.
type MigrationClient interface {
	// GetBatch fetches the last imported or saved state of a batch.
	GetBatch(ctx context.Context, id string) (*models.Batch, error)

	// PutBatch sends the full batch and returns the service's re-validated copy.
	PutBatch(ctx context.Context, batch *models.Batch) (*models.Batch, error)

	// FixSequence asks the service to resolve one sequence issue and returns
	// the corrected statement.
	FixSequence(ctx context.Context, req models.FixSequenceRequest) (*models.Statement, error)
}

// ErrDraftNotFound is returned when no local draft exists for a batch.
var ErrDraftNotFound = errors.New("draft not found")

// DraftRepository defines the secondary port for the local working copy of a
// batch kept between CLI invocations.
type DraftRepository interface {
	// Save creates or replaces the draft for record.BatchID.
	Save(ctx context.Context, record *DraftRecord) error

	// GetByID retrieves a draft. Returns ErrDraftNotFound if absent.
	GetByID(ctx context.Context, batchID string) (*DraftRecord, error)

	// List retrieves all drafts ordered by creation time, then batch ID.
	List(ctx context.Context) ([]*DraftRecord, error)

	// Delete removes a draft.
	Delete(ctx context.Context, batchID string) error
}

// DraftRecord represents a draft as stored in persistence.
type DraftRecord struct {
	BatchID   string
	UnixNano  int64
	Payload   []byte // JSON-encoded models.Batch
	Dirty     bool   // local edits not yet saved to the service
	UpdatedAt string
}
