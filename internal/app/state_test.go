package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    BatchState
		to      BatchState
		wantErr error
		allowed bool
	}{
		{name: "load from unloaded", from: StateUnloaded, to: StateLoading, allowed: true},
		{name: "resume draft", from: StateUnloaded, to: StateReady, allowed: true},
		{name: "load finished", from: StateLoading, to: StateReady, allowed: true},
		{name: "load failed", from: StateLoading, to: StateUnloaded, allowed: true},
		{name: "revert", from: StateReady, to: StateLoading, allowed: true},
		{name: "save", from: StateReady, to: StateSaving, allowed: true},
		{name: "save finished", from: StateSaving, to: StateReady, allowed: true},
		{name: "close ready", from: StateReady, to: StateClosed, allowed: true},
		{name: "save while loading", from: StateLoading, to: StateSaving, wantErr: ErrBusy},
		{name: "load while saving", from: StateSaving, to: StateLoading, wantErr: ErrBusy},
		{name: "save unloaded", from: StateUnloaded, to: StateSaving},
		{name: "load closed", from: StateClosed, to: StateLoading, wantErr: ErrBatchClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanTransition(tt.from, tt.to)
			if tt.allowed {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
