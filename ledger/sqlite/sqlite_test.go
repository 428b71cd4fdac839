package sqlite_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fableforge/storyforge/ledger"
	"github.com/fableforge/storyforge/ledger/sqlite"
)

func newTestStore(t *testing.T, limit int) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "costs.db"), limit)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func entryAt(ts time.Time, cost float64) ledger.CostEntry {
	return ledger.CostEntry{
		ID:          uuid.New().String(),
		Timestamp:   ts,
		Tier:        ledger.TierEconomy,
		InputUnits:  500,
		OutputUnits: 1500,
		Cost:        cost,
		Kind:        "narrative",
		Success:     true,
	}
}

func TestAppendAndLoad(t *testing.T) {
	store := newTestStore(t, 100)

	base := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	day := ledger.DailyBudget{Date: "2026-08-31", Limit: 50, Spend: 0.003, Requests: 3, Failed: 1}

	for i := 0; i < 3; i++ {
		e := entryAt(base.Add(time.Duration(i)*time.Minute), 0.001)
		require.NoError(t, store.Append(e, day))
	}

	snap, err := store.Load()
	require.NoError(t, err)
	require.Len(t, snap.CostHistory, 3)
	assert.True(t, snap.CostHistory[0].Timestamp.Before(snap.CostHistory[2].Timestamp))
	assert.Equal(t, ledger.TierEconomy, snap.CostHistory[0].Tier)

	require.Contains(t, snap.DailyBudgets, "2026-08-31")
	assert.Equal(t, 3, snap.DailyBudgets["2026-08-31"].Requests)
	assert.Equal(t, 1, snap.DailyBudgets["2026-08-31"].Failed)
}

// Load keeps only the most recent entries, returned oldest-first.
func TestLoad_RespectsLimit(t *testing.T) {
	store := newTestStore(t, 2)

	base := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	day := ledger.DailyBudget{Date: "2026-08-31", Limit: 50}
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(entryAt(base.Add(time.Duration(i)*time.Minute), 0.001), day))
	}

	snap, err := store.Load()
	require.NoError(t, err)
	require.Len(t, snap.CostHistory, 2)
	assert.True(t, snap.CostHistory[0].Timestamp.Equal(base.Add(3*time.Minute)))
	assert.True(t, snap.CostHistory[1].Timestamp.Equal(base.Add(4*time.Minute)))
}

func TestSave_ReplacesState(t *testing.T) {
	store := newTestStore(t, 100)

	base := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	day := ledger.DailyBudget{Date: "2026-08-31", Limit: 50}
	require.NoError(t, store.Append(entryAt(base, 0.001), day))

	fresh := ledger.Snapshot{
		CostHistory:  []ledger.CostEntry{entryAt(base.Add(time.Hour), 0.002)},
		DailyBudgets: map[string]ledger.DailyBudget{"2026-09-01": {Date: "2026-09-01", Limit: 50}},
	}
	require.NoError(t, store.Save(fresh))

	snap, err := store.Load()
	require.NoError(t, err)
	require.Len(t, snap.CostHistory, 1)
	assert.InDelta(t, 0.002, snap.CostHistory[0].Cost, 1e-9)
	assert.NotContains(t, snap.DailyBudgets, "2026-08-31")
	assert.Contains(t, snap.DailyBudgets, "2026-09-01")
}

// End-to-end: a ledger over a SQLite store survives restart.
func TestLedger_SurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "costs.db")
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	store, err := sqlite.New(path, 100)
	require.NoError(t, err)

	l := ledger.New(ledger.DefaultConfig(),
		ledger.WithStore(store),
		ledger.WithNow(func() time.Time { return now }))
	l.RecordCost(ledger.TierStandard, 500, 1500, 2.5, "narrative", true)
	require.NoError(t, store.Close())

	store2, err := sqlite.New(path, 100)
	require.NoError(t, err)
	defer store2.Close()

	reloaded := ledger.New(ledger.DefaultConfig(),
		ledger.WithStore(store2),
		ledger.WithNow(func() time.Time { return now }))
	assert.InDelta(t, 47.5, reloaded.Remaining(), 1e-9)
}
