// Package models holds the wire types exchanged with the migration service.
package models

import (
	"encoding/json"
	"time"
)

// Issue kinds emitted by the translation service. Other kinds may appear and
// are carried through untouched.
const (
	IssueUnimplemented = "unimplemented"
	IssueSequence      = "sequence"
	IssueMissingUser   = "missing_user"
)

// NewStatementOriginal is the original text given to statements authored
// locally rather than translated from the source schema.
const NewStatementOriginal = "-- newly added statement"

// Issue is a structured annotation attached to a single statement.
// ID is kind specific: the sequence name for sequence issues, the grantee for
// missing_user issues.
type Issue struct {
	Level string `json:"level,omitempty"`
	Type  string `json:"type"`
	ID    string `json:"id"`
	Text  string `json:"text,omitempty"`
}

// Statement is one translated unit of the batch.
type Statement struct {
	Original  string  `json:"original"`
	Cockroach string  `json:"cockroach"`
	Issues    []Issue `json:"issues"`

	// Key addresses the statement inside a store generation. Never serialized.
	Key string `json:"-"`
}

// UnmarshalJSON normalizes an absent or null issues list to an empty one.
func (s *Statement) UnmarshalJSON(data []byte) error {
	type plain Statement
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = Statement(p)
	s.Normalize()
	return nil
}

// Normalize guarantees Issues is non-nil.
func (s *Statement) Normalize() {
	if s.Issues == nil {
		s.Issues = []Issue{}
	}
}

// Clone returns a deep copy of the statement.
func (s Statement) Clone() Statement {
	out := s
	out.Issues = make([]Issue, len(s.Issues))
	copy(out.Issues, s.Issues)
	return out
}

// HasIssues reports whether any issue remains on the statement.
func (s Statement) HasIssues() bool {
	return len(s.Issues) > 0
}

// ImportMetadata is the run-level payload of a batch.
type ImportMetadata struct {
	Statements []Statement `json:"statements"`
	Status     string      `json:"status"`
	Message    string      `json:"message"`
	Database   string      `json:"database"`
}

// Batch is the full result of one migration run.
type Batch struct {
	ID             string         `json:"id"`
	UnixNano       int64          `json:"unix_nano"`
	ImportMetadata ImportMetadata `json:"import_metadata"`
}

// Statements is shorthand for b.ImportMetadata.Statements.
func (b Batch) Statements() []Statement {
	return b.ImportMetadata.Statements
}

// HasLiveDatabase reports whether a target database is available for live
// queries.
func (b Batch) HasLiveDatabase() bool {
	return b.ImportMetadata.Database != ""
}

// CreatedAt converts UnixNano to a time.
func (b Batch) CreatedAt() time.Time {
	return time.Unix(0, b.UnixNano)
}

// Clone returns a deep copy of the batch.
func (b Batch) Clone() Batch {
	out := b
	if b.ImportMetadata.Statements != nil {
		out.ImportMetadata.Statements = make([]Statement, len(b.ImportMetadata.Statements))
		for i, s := range b.ImportMetadata.Statements {
			out.ImportMetadata.Statements[i] = s.Clone()
		}
	}
	return out
}

// Normalize fills in absent collections so engine code never sees nil.
func (b *Batch) Normalize() {
	if b.ImportMetadata.Statements == nil {
		b.ImportMetadata.Statements = []Statement{}
	}
	for i := range b.ImportMetadata.Statements {
		b.ImportMetadata.Statements[i].Normalize()
	}
}

// FixSequenceRequest is the body of a fix_sequence call.
type FixSequenceRequest struct {
	Statement Statement `json:"statement"`
	ID        string    `json:"id"`
}
