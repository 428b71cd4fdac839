package ledger_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fableforge/storyforge/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

func newTestLedger(t *testing.T, opts ...ledger.Option) *ledger.Ledger {
	t.Helper()
	opts = append(opts, ledger.WithNow(func() time.Time { return fixedNow }))
	return ledger.New(ledger.DefaultConfig(), opts...)
}

func TestEstimateCost(t *testing.T) {
	l := newTestLedger(t)

	// 500 in, 1500 out at economy rates: (500*0.075 + 1500*0.30) / 1e6.
	cost := l.EstimateCost(ledger.TierEconomy, 500, 1500)
	assert.InDelta(t, 0.000488, cost, 1e-9)

	cost = l.EstimateCost(ledger.TierPremium, 500, 1500)
	assert.InDelta(t, 0.024, cost, 1e-9)
}

func TestEstimateCost_UnknownTierUsesMostExpensive(t *testing.T) {
	l := newTestLedger(t)

	unknown := l.EstimateCost(ledger.Tier("mystery"), 500, 1500)
	premium := l.EstimateCost(ledger.TierPremium, 500, 1500)
	assert.Equal(t, premium, unknown)
}

// Daily spend is the sum over all entries of the day, failures included.
func TestRecord_FailuresCountTowardSpend(t *testing.T) {
	l := newTestLedger(t)

	l.RecordCost(ledger.TierStandard, 500, 1500, 1.0, "narrative", true)
	l.RecordCost(ledger.TierStandard, 500, 0, 0.5, "narrative", false)

	stats := l.Stats("")
	assert.InDelta(t, 1.5, stats.Spend, 1e-9)
	assert.Equal(t, 2, stats.Requests)
	assert.Equal(t, 1, stats.Successful)
	assert.Equal(t, 1, stats.Failed)
	assert.InDelta(t, 0.5, stats.SuccessRate, 1e-9)
	assert.InDelta(t, 48.5, l.Remaining(), 1e-9)
}

func TestCanAfford_Boundary(t *testing.T) {
	l := newTestLedger(t)
	l.RecordCost(ledger.TierStandard, 0, 0, 49.5, "narrative", true)

	// Exactly reaching the limit is still affordable.
	ok, detail := l.CanAfford(0.5)
	assert.True(t, ok)
	assert.False(t, detail.WouldExceed)
	assert.InDelta(t, 0.5, detail.Available, 1e-9)

	// One cent past the limit is not.
	ok, detail = l.CanAfford(0.75)
	assert.False(t, ok)
	assert.True(t, detail.WouldExceed)
	assert.InDelta(t, 0.25, detail.Excess, 1e-9)
}

func TestChooseTier_DegradesWithRemainingBudget(t *testing.T) {
	l := newTestLedger(t)

	// Full budget: high complexity gets premium.
	tier, ok := l.ChooseTier(ledger.High, true)
	require.True(t, ok)
	assert.Equal(t, ledger.TierPremium, tier)

	// $20 remaining is not strictly above the premium threshold.
	l.RecordCost(ledger.TierPremium, 0, 0, 30.0, "narrative", true)
	tier, ok = l.ChooseTier(ledger.High, true)
	require.True(t, ok)
	assert.Equal(t, ledger.TierStandard, tier)

	// $10 remaining drops to economy.
	l.RecordCost(ledger.TierPremium, 0, 0, 10.0, "narrative", true)
	tier, ok = l.ChooseTier(ledger.High, true)
	require.True(t, ok)
	assert.Equal(t, ledger.TierEconomy, tier)

	// $1.50 remaining: no rung of the high ladder clears its threshold.
	l.RecordCost(ledger.TierEconomy, 0, 0, 8.5, "narrative", true)
	_, ok = l.ChooseTier(ledger.High, true)
	assert.False(t, ok)

	// Simple work still fits on the economy rung.
	tier, ok = l.ChooseTier(ledger.Simple, true)
	require.True(t, ok)
	assert.Equal(t, ledger.TierEconomy, tier)
}

// The typical-cost floor applies even without budget consciousness:
// a tier whose typical request cannot be paid for is never returned.
func TestChooseTier_TypicalCostFloor(t *testing.T) {
	l := newTestLedger(t)
	l.RecordCost(ledger.TierEconomy, 0, 0, 49.9995, "narrative", true)

	_, ok := l.ChooseTier(ledger.Simple, true)
	assert.False(t, ok)
	_, ok = l.ChooseTier(ledger.Simple, false)
	assert.False(t, ok)
}

func TestChooseTier_NotBudgetConscious(t *testing.T) {
	l := newTestLedger(t)
	l.RecordCost(ledger.TierPremium, 0, 0, 45.0, "narrative", true)

	// $5 remaining: conscious selection degrades to economy, unconscious
	// keeps the ladder's top rung.
	tier, ok := l.ChooseTier(ledger.High, false)
	require.True(t, ok)
	assert.Equal(t, ledger.TierPremium, tier)

	tier, ok = l.ChooseTier(ledger.High, true)
	require.True(t, ok)
	assert.Equal(t, ledger.TierEconomy, tier)
}

func TestHistoryTrim(t *testing.T) {
	cfg := ledger.DefaultConfig()
	cfg.HistoryLimit = 5
	l := ledger.New(cfg, ledger.WithNow(func() time.Time { return fixedNow }))

	for i := 0; i < 10; i++ {
		l.RecordCost(ledger.TierEconomy, 100, 100, 0.001, "narrative", true)
	}

	// Spend still reflects only retained entries; the daily counter is the
	// full-fidelity view.
	stats := l.Stats("")
	assert.Equal(t, 5, stats.Requests)
	assert.InDelta(t, 0.005, stats.Spend, 1e-9)
}

func TestStats_EmptyDay(t *testing.T) {
	l := newTestLedger(t)

	stats := l.Stats("2026-01-01")
	assert.Equal(t, "2026-01-01", stats.Date)
	assert.Zero(t, stats.Spend)
	assert.Zero(t, stats.Requests)
	assert.Zero(t, stats.SuccessRate)
	assert.False(t, stats.OverBudget)
}

func TestFileStore_Roundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "costs.json")
	store := ledger.NewFileStore(path)

	l := newTestLedger(t, ledger.WithStore(store))
	l.RecordCost(ledger.TierStandard, 500, 1500, 2.5, "narrative", true)

	// A fresh ledger over the same store sees the prior spend.
	reloaded := newTestLedger(t, ledger.WithStore(store))
	assert.InDelta(t, 47.5, reloaded.Remaining(), 1e-9)
	assert.Equal(t, 1, reloaded.Stats("").Requests)
}

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	store := ledger.NewFileStore(filepath.Join(t.TempDir(), "absent.json"))
	snap, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, snap.CostHistory)
}

// A corrupted snapshot must not take the ledger down; it starts empty.
func TestNew_MalformedStoreStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "costs.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	l := newTestLedger(t, ledger.WithStore(ledger.NewFileStore(path)))
	assert.InDelta(t, 50.0, l.Remaining(), 1e-9)
}

// appendRecorder verifies the ledger prefers append-only persistence when
// the store supports it.
type appendRecorder struct {
	ledger.NoopStore
	appends int
	saves   int
}

func (a *appendRecorder) Append(ledger.CostEntry, ledger.DailyBudget) error {
	a.appends++
	return nil
}

func (a *appendRecorder) Save(ledger.Snapshot) error {
	a.saves++
	return nil
}

func TestRecord_UsesAppenderWhenAvailable(t *testing.T) {
	store := &appendRecorder{}
	l := newTestLedger(t, ledger.WithStore(store))

	l.Record(ledger.TierEconomy, 500, 1500, "narrative", true)
	l.Record(ledger.TierEconomy, 500, 1500, "narrative", false)

	assert.Equal(t, 2, store.appends)
	assert.Zero(t, store.saves)
}
