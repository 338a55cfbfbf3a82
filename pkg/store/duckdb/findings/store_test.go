package findings

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	_ "github.com/marcboeker/go-duckdb/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vg-tools/ledger-audit/pkg/models/domain"
	"github.com/vg-tools/ledger-audit/pkg/services/lifecycle"
	"github.com/vg-tools/ledger-audit/pkg/store/duckdb"
	findingsstore "github.com/vg-tools/ledger-audit/pkg/store/findings"
)

type fixture struct {
	db    *sql.DB
	store findingsstore.Store
}

func setupFixture(t *testing.T) *fixture {
	db, err := duckdb.NewDB(duckdb.Settings{DbPath: ":memory:"})
	require.NoError(t, err)

	store, err := NewStore(db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return &fixture{
		db:    db,
		store: store,
	}
}

func sampleFinding(id, unit string) domain.Finding {
	return domain.Finding{
		ID:       id,
		UnitID:   unit,
		RuleID:   domain.RuleFeeAmountMismatch,
		Severity: domain.SeverityLow,
		Month:    domain.NewYearMonth(2024, time.February),
		Delta:    decimal.NewFromFloat(10),
		Evidence: domain.Evidence{
			"fee_type":        "Trash",
			"expected_amount": decimal.NewFromFloat(10),
			"actual_amount":   decimal.NewFromFloat(20),
		},
		Narrative: "Trash fee drifted from the schedule.",
		Status:    domain.StatusOpen,
		CreatedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestFindingStore_SaveAndGet(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		in := sampleFinding("f1", "U1")
		require.NoError(t, f.store.Save(ctx, in))

		out, err := f.store.Get(ctx, "f1")
		require.NoError(t, err)

		assert.Equal(t, in.ID, out.ID)
		assert.Equal(t, in.UnitID, out.UnitID)
		assert.Equal(t, in.RuleID, out.RuleID)
		assert.Equal(t, in.Severity, out.Severity)
		assert.Equal(t, in.Month, out.Month)
		assert.True(t, in.Delta.Equal(out.Delta))
		assert.Equal(t, in.Narrative, out.Narrative)
		assert.Equal(t, domain.StatusOpen, out.Status)
		assert.Equal(t, "Trash", out.Evidence["fee_type"])
		assert.WithinDuration(t, in.CreatedAt, out.CreatedAt, time.Second)
		assert.Empty(t, out.History)
	})

	t.Run("save is an upsert", func(t *testing.T) {
		in := sampleFinding("f2", "U1")
		require.NoError(t, f.store.Save(ctx, in))

		in.Status = domain.StatusReviewed
		in.Notes = "checked against the fee schedule"
		require.NoError(t, f.store.Save(ctx, in))

		out, err := f.store.Get(ctx, "f2")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusReviewed, out.Status)
		assert.Equal(t, "checked against the fee schedule", out.Notes)
	})

	t.Run("history persists in order", func(t *testing.T) {
		in := sampleFinding("f3", "U2")
		base := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
		in.Status = domain.StatusClosed
		in.History = []domain.OverrideRecord{
			{FindingID: "f3", FromStatus: domain.StatusOpen, ToStatus: domain.StatusReviewed, Actor: "jlin", Timestamp: base},
			{FindingID: "f3", FromStatus: domain.StatusReviewed, ToStatus: domain.StatusClosed, Actor: "mpatel", Timestamp: base.Add(time.Hour)},
		}
		require.NoError(t, f.store.Save(ctx, in))

		out, err := f.store.Get(ctx, "f3")
		require.NoError(t, err)
		require.Len(t, out.History, 2)
		assert.Equal(t, domain.StatusReviewed, out.History[0].ToStatus)
		assert.Equal(t, domain.StatusClosed, out.History[1].ToStatus)
		assert.Equal(t, "jlin", out.History[0].Actor)

		// The persisted chain still rehydrates cleanly.
		assert.NoError(t, lifecycle.Rehydrate(&out))
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := f.store.Get(ctx, "missing")
		assert.ErrorIs(t, err, findingsstore.ErrNotFound)
	})
}

func TestFindingStore_List(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	a := sampleFinding("a", "U1")
	b := sampleFinding("b", "U1")
	b.RuleID = domain.RuleLeaseCliffRisk
	b.Severity = domain.SeverityHigh
	b.Status = domain.StatusClosed
	c := sampleFinding("c", "U2")

	for _, in := range []domain.Finding{a, b, c} {
		require.NoError(t, f.store.Save(ctx, in))
	}

	t.Run("no filter returns everything", func(t *testing.T) {
		out, err := f.store.List(ctx, findingsstore.Filter{})
		require.NoError(t, err)
		assert.Len(t, out, 3)
	})

	t.Run("by unit", func(t *testing.T) {
		out, err := f.store.List(ctx, findingsstore.Filter{UnitID: "U1"})
		require.NoError(t, err)
		assert.Len(t, out, 2)
	})

	t.Run("by status and rule", func(t *testing.T) {
		out, err := f.store.List(ctx, findingsstore.Filter{
			Status: domain.StatusClosed,
			RuleID: domain.RuleLeaseCliffRisk,
		})
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, "b", out[0].ID)
	})

	t.Run("by severity", func(t *testing.T) {
		sev := domain.SeverityHigh
		out, err := f.store.List(ctx, findingsstore.Filter{Severity: &sev})
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, "b", out[0].ID)
	})

	t.Run("no matches", func(t *testing.T) {
		out, err := f.store.List(ctx, findingsstore.Filter{UnitID: "U9"})
		require.NoError(t, err)
		assert.Empty(t, out)
	})
}

func TestFindingStore_UpdateStatus(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.Save(ctx, sampleFinding("f1", "U1")))

	t.Run("guarded update applies", func(t *testing.T) {
		err := f.store.UpdateStatus(ctx, "f1", domain.StatusOpen, domain.StatusReviewed, "plausible")
		require.NoError(t, err)

		out, err := f.store.Get(ctx, "f1")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusReviewed, out.Status)
		assert.Equal(t, "plausible", out.Notes)
	})

	t.Run("stale expectation conflicts", func(t *testing.T) {
		err := f.store.UpdateStatus(ctx, "f1", domain.StatusOpen, domain.StatusClosed, "")
		var conflict *lifecycle.ConcurrentModificationError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, domain.StatusOpen, conflict.Expected)
		assert.Equal(t, domain.StatusReviewed, conflict.Actual)
	})

	t.Run("missing finding reports not found", func(t *testing.T) {
		err := f.store.UpdateStatus(ctx, "missing", domain.StatusOpen, domain.StatusClosed, "")
		assert.ErrorIs(t, err, findingsstore.ErrNotFound)
	})
}

func TestFindingStore_Merge(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	first := sampleFinding("f1", "U1")
	inserted, err := f.store.Merge(ctx, []domain.Finding{first})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	t.Run("open finding with same key is skipped", func(t *testing.T) {
		rerun := sampleFinding("f1-rerun", "U1")
		inserted, err := f.store.Merge(ctx, []domain.Finding{rerun})
		require.NoError(t, err)
		assert.Equal(t, 0, inserted)

		_, err = f.store.Get(ctx, "f1-rerun")
		assert.ErrorIs(t, err, findingsstore.ErrNotFound)
	})

	t.Run("closed finding does not block a new one", func(t *testing.T) {
		require.NoError(t, f.store.UpdateStatus(ctx, "f1", domain.StatusOpen, domain.StatusClosed, ""))

		rerun := sampleFinding("f1-rerun", "U1")
		inserted, err := f.store.Merge(ctx, []domain.Finding{rerun})
		require.NoError(t, err)
		assert.Equal(t, 1, inserted)
	})

	t.Run("different month is a different anomaly", func(t *testing.T) {
		other := sampleFinding("f2", "U2")
		other.Month = domain.NewYearMonth(2024, time.April)
		inserted, err := f.store.Merge(ctx, []domain.Finding{other})
		require.NoError(t, err)
		assert.Equal(t, 1, inserted)
	})
}

// Driver failures surface wrapped rather than panicking or vanishing.
func TestFindingStore_SaveDriverError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT OR REPLACE INTO findings")).
		WillReturnError(sql.ErrConnDone)

	store, err := NewStore(db)
	require.NoError(t, err)

	saveErr := store.Save(context.Background(), sampleFinding("f1", "U1"))
	require.Error(t, saveErr)
	assert.ErrorIs(t, saveErr, sql.ErrConnDone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewStore_NilDB(t *testing.T) {
	_, err := NewStore(nil)
	assert.Error(t, err)
}
