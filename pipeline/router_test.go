package pipeline

import (
	"testing"

	"github.com/poiesic/datagen/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouter_Route(t *testing.T) {
	gen := &core.GenerateState{Topic: "Bicycles", NumRows: 1}
	search := &core.SearchState{Topic: "Bicycles", QueryText: "q", TopK: 1}

	tests := []struct {
		name         string
		state        *core.RequestState
		want         Branch
		wantFallback bool
		wantErr      bool
	}{
		{name: "generate", state: &core.RequestState{Intent: core.IntentGenerate, Generate: gen}, want: BranchGenerate},
		{name: "search", state: &core.RequestState{Intent: core.IntentSearch, Search: search}, want: BranchSearch},
		{name: "unknown falls back", state: &core.RequestState{Intent: "summarize", Generate: gen}, want: BranchGenerate, wantFallback: true},
		{name: "empty intent falls back", state: &core.RequestState{Generate: gen}, want: BranchGenerate, wantFallback: true},
		{name: "search without arm", state: &core.RequestState{Intent: core.IntentSearch}, want: BranchSearch, wantErr: true},
		{name: "fallback without generate arm", state: &core.RequestState{Intent: "x", Search: search}, want: BranchGenerate, wantFallback: true, wantErr: true},
	}

	r := NewRouter(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Route(tt.state)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantFallback, tt.state.Fallback)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, core.ErrValidation)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRouter_NilState(t *testing.T) {
	_, err := NewRouter(nil).Route(nil)
	assert.ErrorIs(t, err, core.ErrMissingRequestArm)
}

func TestBranch_String(t *testing.T) {
	assert.Equal(t, "generate", BranchGenerate.String())
	assert.Equal(t, "search", BranchSearch.String())
	assert.Equal(t, "Branch(7)", Branch(7).String())
}
