// Package effects defines effect types as data structures representing I/O operations.
// This is the foundation of the Functional Core / Imperative Shell pattern.
// Effects are pure data - they describe what should happen, not how.
package effects

import "github.com/example/migreview/internal/models"

// Effect is the base interface for all effects.
// Effects represent I/O operations as data that can be interpreted by the shell.
type Effect interface {
	// EffectType returns a string identifier for the effect type.
	EffectType() string
}

// LogEffect represents a logging operation.
type LogEffect struct {
	Level   string
	Message string
	Fields  map[string]any
}

func (e LogEffect) EffectType() string { return "log" }

// FixSequenceEffect asks the fix service to resolve one sequence issue.
// The result replaces the statement addressed by StatementKey, but only if
// the batch is still at Generation when the response arrives.
type FixSequenceEffect struct {
	BatchID      string
	Generation   uint64
	StatementIdx int
	StatementKey string
	Statement    models.Statement // snapshot sent to the service
	IssueID      string
}

func (e FixSequenceEffect) EffectType() string { return "fix_sequence" }

// CompositeEffect holds multiple effects to be executed in sequence.
type CompositeEffect struct {
	Effects []Effect
}

func (e CompositeEffect) EffectType() string { return "composite" }

// NoEffect represents an operation that produces no side effects.
type NoEffect struct{}

func (e NoEffect) EffectType() string { return "none" }
