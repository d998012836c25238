// Package sqlite contains SQLite implementations of repository interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/migreview/internal/ports/secondary"
)

// DraftRepository implements secondary.DraftRepository with SQLite.
type DraftRepository struct {
	db *sql.DB
}

// NewDraftRepository creates a new SQLite draft repository.
func NewDraftRepository(db *sql.DB) *DraftRepository {
	return &DraftRepository{db: db}
}

// Save creates or replaces a draft.
func (r *DraftRepository) Save(ctx context.Context, record *secondary.DraftRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO drafts (batch_id, unix_nano, payload, dirty) VALUES (?, ?, ?, ?)
		ON CONFLICT(batch_id) DO UPDATE SET
			unix_nano = excluded.unix_nano,
			payload = excluded.payload,
			dirty = excluded.dirty,
			updated_at = CURRENT_TIMESTAMP`,
		record.BatchID, record.UnixNano, string(record.Payload), record.Dirty,
	)
	if err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

// GetByID retrieves a draft by batch ID.
func (r *DraftRepository) GetByID(ctx context.Context, batchID string) (*secondary.DraftRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT batch_id, unix_nano, payload, dirty, updated_at FROM drafts WHERE batch_id = ?",
		batchID,
	)
	record, err := scanDraft(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", secondary.ErrDraftNotFound, batchID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draft: %w", err)
	}
	return record, nil
}

// List retrieves all drafts ordered by creation time, then batch ID.
func (r *DraftRepository) List(ctx context.Context) ([]*secondary.DraftRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT batch_id, unix_nano, payload, dirty, updated_at FROM drafts ORDER BY unix_nano ASC, batch_id ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	defer rows.Close()

	var records []*secondary.DraftRecord
	for rows.Next() {
		record, err := scanDraft(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan draft: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Delete removes a draft. Deleting a missing draft is not an error.
func (r *DraftRepository) Delete(ctx context.Context, batchID string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM drafts WHERE batch_id = ?", batchID); err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDraft(s scanner) (*secondary.DraftRecord, error) {
	var (
		record    secondary.DraftRecord
		payload   string
		updatedAt time.Time
	)
	if err := s.Scan(&record.BatchID, &record.UnixNano, &payload, &record.Dirty, &updatedAt); err != nil {
		return nil, err
	}
	record.Payload = []byte(payload)
	record.UpdatedAt = updatedAt.Format(time.RFC3339)
	return &record, nil
}

var _ secondary.DraftRepository = (*DraftRepository)(nil)
