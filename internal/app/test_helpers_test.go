package app

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/example/migreview/internal/models"
	"github.com/example/migreview/internal/ports/secondary"
	"github.com/example/migreview/internal/store"
)

// ============================================================================
// Mock Implementations
// ============================================================================

// mockMigrationClient implements secondary.MigrationClient for testing.
type mockMigrationClient struct {
	mu       sync.Mutex
	getFn    func(ctx context.Context, id string) (*models.Batch, error)
	putFn    func(ctx context.Context, b *models.Batch) (*models.Batch, error)
	fixFn    func(ctx context.Context, req models.FixSequenceRequest) (*models.Statement, error)
	getCalls int
	putCalls int
	fixCalls []models.FixSequenceRequest
}

func (m *mockMigrationClient) GetBatch(ctx context.Context, id string) (*models.Batch, error) {
	m.mu.Lock()
	m.getCalls++
	m.mu.Unlock()
	if m.getFn == nil {
		return nil, errors.New("unexpected GetBatch")
	}
	return m.getFn(ctx, id)
}

func (m *mockMigrationClient) PutBatch(ctx context.Context, b *models.Batch) (*models.Batch, error) {
	m.mu.Lock()
	m.putCalls++
	m.mu.Unlock()
	if m.putFn == nil {
		out := b.Clone()
		return &out, nil
	}
	return m.putFn(ctx, b)
}

func (m *mockMigrationClient) FixSequence(ctx context.Context, req models.FixSequenceRequest) (*models.Statement, error) {
	m.mu.Lock()
	m.fixCalls = append(m.fixCalls, req)
	m.mu.Unlock()
	if m.fixFn == nil {
		return resolveSequence(req), nil
	}
	return m.fixFn(ctx, req)
}

func (m *mockMigrationClient) fixCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.fixCalls)
}

// resolveSequence plays the fix service: the named sequence issue is removed
// and the text rewritten.
func resolveSequence(req models.FixSequenceRequest) *models.Statement {
	out := req.Statement.Clone()
	kept := []models.Issue{}
	for _, issue := range out.Issues {
		if issue.Type == models.IssueSequence && issue.ID == req.ID {
			continue
		}
		kept = append(kept, issue)
	}
	out.Issues = kept
	out.Cockroach += " -- fixed " + req.ID
	return &out
}

// mockDraftRepository implements secondary.DraftRepository for testing.
type mockDraftRepository struct {
	mu        sync.Mutex
	drafts    map[string]*secondary.DraftRecord
	saveErr   error
	listErr   error
	deleteErr error
}

func newMockDraftRepository() *mockDraftRepository {
	return &mockDraftRepository{drafts: make(map[string]*secondary.DraftRecord)}
}

func (m *mockDraftRepository) Save(ctx context.Context, record *secondary.DraftRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	cp := *record
	m.drafts[record.BatchID] = &cp
	return nil
}

func (m *mockDraftRepository) GetByID(ctx context.Context, batchID string) (*secondary.DraftRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.drafts[batchID]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, secondary.ErrDraftNotFound
}

func (m *mockDraftRepository) List(ctx context.Context) ([]*secondary.DraftRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*secondary.DraftRecord
	for _, r := range m.drafts {
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BatchID < out[j].BatchID })
	return out, nil
}

func (m *mockDraftRepository) Delete(ctx context.Context, batchID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.drafts, batchID)
	return nil
}

func (m *mockDraftRepository) get(batchID string) *secondary.DraftRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drafts[batchID]
}

// ============================================================================
// Fixtures
// ============================================================================

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func seqIssue(id string) models.Issue {
	return models.Issue{Level: "warning", Type: models.IssueSequence, ID: id}
}

func userIssue(id string) models.Issue {
	return models.Issue{Level: "warning", Type: models.IssueMissingUser, ID: id}
}

func unimplementedIssue(id string) models.Issue {
	return models.Issue{Level: "error", Type: models.IssueUnimplemented, ID: id}
}

func newTestBatch(id string, unixNano int64, stmts ...models.Statement) *models.Batch {
	return &models.Batch{
		ID:       id,
		UnixNano: unixNano,
		ImportMetadata: models.ImportMetadata{
			Statements: stmts,
			Status:     "info",
			Database:   "defaultdb",
		},
	}
}

// reviewFixture is a service wired to mocks.
type reviewFixture struct {
	svc    *ReviewServiceImpl
	client *mockMigrationClient
	drafts *mockDraftRepository
	store  *store.Store
}

func newReviewFixture(batches ...*models.Batch) *reviewFixture {
	byID := make(map[string]*models.Batch)
	for _, b := range batches {
		byID[b.ID] = b
	}
	client := &mockMigrationClient{
		getFn: func(ctx context.Context, id string) (*models.Batch, error) {
			b, ok := byID[id]
			if !ok {
				return nil, errors.New("no such import")
			}
			out := b.Clone()
			return &out, nil
		},
	}
	drafts := newMockDraftRepository()
	st := store.New()
	logger := quietLogger()
	executor := NewEffectExecutor(client, st, logger, 4)
	return &reviewFixture{
		svc:    NewReviewService(client, drafts, st, executor, logger),
		client: client,
		drafts: drafts,
		store:  st,
	}
}
