package app

import (
	"errors"
	"fmt"
)

// BatchState is the reconciliation state of one batch.
type BatchState string

const (
	StateUnloaded BatchState = "unloaded"
	StateLoading  BatchState = "loading"
	StateReady    BatchState = "ready"
	StateSaving   BatchState = "saving"
	StateClosed   BatchState = "closed"
)

// ErrBusy is returned when a batch is mid load or save.
var ErrBusy = errors.New("batch is busy")

// ErrBatchClosed is returned for operations on a closed batch.
var ErrBatchClosed = errors.New("batch is closed")

// transitions lists the legal moves of the reconciliation state machine.
var transitions = map[BatchState][]BatchState{
	StateUnloaded: {StateLoading, StateReady, StateClosed},
	StateLoading:  {StateReady, StateUnloaded, StateClosed},
	StateReady:    {StateLoading, StateSaving, StateReady, StateClosed},
	StateSaving:   {StateReady, StateClosed},
}

// CanTransition evaluates whether from -> to is a legal move.
func CanTransition(from, to BatchState) error {
	if from == StateClosed {
		return ErrBatchClosed
	}
	for _, next := range transitions[from] {
		if next == to {
			return nil
		}
	}
	if from == StateLoading || from == StateSaving {
		return fmt.Errorf("%w: currently %s", ErrBusy, from)
	}
	return fmt.Errorf("cannot move batch from %s to %s", from, to)
}
