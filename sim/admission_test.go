package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// poolWithFree returns a pool of size servers with free of them still available.
func poolWithFree(t *testing.T, size, free int) *ServerPool {
	t.Helper()
	p := NewServerPool(size)
	for i := 0; i < size-free; i++ {
		_, err := p.Allocate()
		require.NoError(t, err)
	}
	return p
}

func TestLossAdmission_BlocksOnlyWhenFull(t *testing.T) {
	tests := []struct {
		free int
		want bool
	}{
		{free: 3, want: true},
		{free: 1, want: true},
		{free: 0, want: false},
	}
	for _, tt := range tests {
		p := poolWithFree(t, 3, tt.free)
		assert.Equal(t, tt.want, LossAdmission{}.Admit(PathPlain, p), "free=%d", tt.free)
	}
}

func TestReservationAdmission(t *testing.T) {
	// 4 servers, 2 reserved for handovers
	policy := ReservationAdmission{Threshold: 2}
	tests := []struct {
		name string
		path Path
		free int
		want bool
	}{
		{"newcall above threshold", PathNewCall, 3, true},
		{"newcall at threshold", PathNewCall, 2, false},
		{"newcall in reserved band", PathNewCall, 1, false},
		{"newcall full", PathNewCall, 0, false},
		{"handover above threshold", PathHandover, 3, true},
		{"handover at threshold", PathHandover, 2, true},
		{"handover last server", PathHandover, 1, true},
		{"handover full", PathHandover, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := poolWithFree(t, 4, tt.free)
			assert.Equal(t, tt.want, policy.Admit(tt.path, p))
		})
	}
}

func TestReservationAdmission_ZeroThreshold_MatchesLoss(t *testing.T) {
	policy := ReservationAdmission{Threshold: 0}
	for free := 0; free <= 2; free++ {
		p := poolWithFree(t, 2, free)
		want := LossAdmission{}.Admit(PathPlain, p)
		assert.Equal(t, want, policy.Admit(PathNewCall, p))
		assert.Equal(t, want, policy.Admit(PathHandover, p))
	}
}

func TestNewAdmissionPolicy(t *testing.T) {
	loss, err := NewAdmissionPolicy(Config{Policy: PolicyLoss})
	require.NoError(t, err)
	assert.Equal(t, PolicyLoss, loss.Name())

	res, err := NewAdmissionPolicy(Config{Policy: PolicyReservation, Threshold: 3})
	require.NoError(t, err)
	assert.Equal(t, ReservationAdmission{Threshold: 3}, res)

	_, err = NewAdmissionPolicy(Config{Policy: "fifo"})
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}
