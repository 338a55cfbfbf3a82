package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vg-tools/ledger-audit/pkg/models/domain"
)

func newFinding(status domain.Status) *domain.Finding {
	return &domain.Finding{ID: "f1", UnitID: "U1", Status: status}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to domain.Status
		want     bool
	}{
		{domain.StatusOpen, domain.StatusReviewed, true},
		{domain.StatusOpen, domain.StatusOverridden, true},
		{domain.StatusOpen, domain.StatusClosed, true},
		{domain.StatusReviewed, domain.StatusOverridden, true},
		{domain.StatusReviewed, domain.StatusClosed, true},
		{domain.StatusOverridden, domain.StatusClosed, true},

		{domain.StatusReviewed, domain.StatusOpen, false},
		{domain.StatusOverridden, domain.StatusReviewed, false},
		{domain.StatusOverridden, domain.StatusOpen, false},
		{domain.StatusClosed, domain.StatusOpen, false},
		{domain.StatusClosed, domain.StatusReviewed, false},
		{domain.StatusClosed, domain.StatusOverridden, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestCanTransition_NoOpIsInvalid(t *testing.T) {
	for _, s := range []domain.Status{
		domain.StatusOpen, domain.StatusReviewed, domain.StatusOverridden, domain.StatusClosed,
	} {
		assert.False(t, CanTransition(s, s), "no-op from %s", s)
	}
}

// Every non-Closed state must be able to reach Closed directly.
func TestCanTransition_ClosedReachableFromAnywhere(t *testing.T) {
	for _, s := range []domain.Status{
		domain.StatusOpen, domain.StatusReviewed, domain.StatusOverridden,
	} {
		assert.True(t, CanTransition(s, domain.StatusClosed), "from %s", s)
	}
}

func TestTransition_AppendsHistory(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	orig := clock
	clock = func() time.Time { return fixed }
	defer func() { clock = orig }()

	f := newFinding(domain.StatusOpen)
	require.NoError(t, Transition(f, domain.StatusReviewed, "jlin", "looks plausible"))
	require.NoError(t, Transition(f, domain.StatusOverridden, "mpatel", "known lease renegotiation"))
	require.NoError(t, Transition(f, domain.StatusClosed, "mpatel", ""))

	assert.Equal(t, domain.StatusClosed, f.Status)
	require.Len(t, f.History, 3)

	first := f.History[0]
	assert.Equal(t, "f1", first.FindingID)
	assert.Equal(t, domain.StatusOpen, first.FromStatus)
	assert.Equal(t, domain.StatusReviewed, first.ToStatus)
	assert.Equal(t, "jlin", first.Actor)
	assert.Equal(t, fixed, first.Timestamp)

	// Each entry chains off the previous one.
	for i := 1; i < len(f.History); i++ {
		assert.Equal(t, f.History[i-1].ToStatus, f.History[i].FromStatus)
	}

	// Notes stick from the last transition that carried any.
	assert.Equal(t, "known lease renegotiation", f.Notes)
}

func TestTransition_InvalidEdgeLeavesFindingUntouched(t *testing.T) {
	f := newFinding(domain.StatusClosed)

	err := Transition(f, domain.StatusReviewed, "jlin", "reopen")
	var invErr *InvalidTransitionError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, domain.StatusClosed, invErr.From)
	assert.Equal(t, domain.StatusReviewed, invErr.To)

	assert.Equal(t, domain.StatusClosed, f.Status)
	assert.Empty(t, f.History)
	assert.Empty(t, f.Notes)
}

func TestTransitionExpect(t *testing.T) {
	t.Run("matching expectation applies", func(t *testing.T) {
		f := newFinding(domain.StatusOpen)
		require.NoError(t, TransitionExpect(f, domain.StatusOpen, domain.StatusReviewed, "jlin", ""))
		assert.Equal(t, domain.StatusReviewed, f.Status)
	})

	t.Run("stale expectation conflicts", func(t *testing.T) {
		f := newFinding(domain.StatusReviewed)
		err := TransitionExpect(f, domain.StatusOpen, domain.StatusClosed, "jlin", "")
		var conflict *ConcurrentModificationError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, domain.StatusOpen, conflict.Expected)
		assert.Equal(t, domain.StatusReviewed, conflict.Actual)
		assert.Equal(t, domain.StatusReviewed, f.Status)
		assert.Empty(t, f.History)
	})
}

func TestRehydrate(t *testing.T) {
	t.Run("consistent history passes", func(t *testing.T) {
		f := newFinding(domain.StatusClosed)
		f.History = []domain.OverrideRecord{
			{FromStatus: domain.StatusOpen, ToStatus: domain.StatusReviewed},
			{FromStatus: domain.StatusReviewed, ToStatus: domain.StatusClosed},
		}
		assert.NoError(t, Rehydrate(f))
	})

	t.Run("empty status is derived from history", func(t *testing.T) {
		f := newFinding("")
		f.History = []domain.OverrideRecord{
			{FromStatus: domain.StatusOpen, ToStatus: domain.StatusOverridden},
		}
		require.NoError(t, Rehydrate(f))
		assert.Equal(t, domain.StatusOverridden, f.Status)
	})

	t.Run("cached status diverging from history fails", func(t *testing.T) {
		f := newFinding(domain.StatusOpen)
		f.History = []domain.OverrideRecord{
			{FromStatus: domain.StatusOpen, ToStatus: domain.StatusClosed},
		}
		assert.Error(t, Rehydrate(f))
	})

	t.Run("broken chain fails", func(t *testing.T) {
		f := newFinding(domain.StatusClosed)
		f.History = []domain.OverrideRecord{
			{FromStatus: domain.StatusReviewed, ToStatus: domain.StatusClosed},
		}
		assert.Error(t, Rehydrate(f))
	})

	t.Run("no history means open", func(t *testing.T) {
		f := newFinding(domain.StatusOpen)
		assert.NoError(t, Rehydrate(f))
	})
}
