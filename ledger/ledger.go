// Package ledger tracks generation spend against a daily budget and
// selects affordable price tiers.
package ledger

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Complexity is the task complexity driving tier selection.
type Complexity int

const (
	Simple Complexity = iota
	Medium
	High
)

func (c Complexity) String() string {
	switch c {
	case Simple:
		return "simple"
	case Medium:
		return "medium"
	case High:
		return "high"
	default:
		return "unknown"
	}
}

// Tier is a named price/quality level for a generation request.
type Tier string

// TierPrice is the price table entry for one tier. TypicalCost is the
// expected per-request cost, used as the affordability floor.
type TierPrice struct {
	InputPerMillion  float64 `yaml:"input_per_million"`
	OutputPerMillion float64 `yaml:"output_per_million"`
	TypicalCost      float64 `yaml:"typical_cost"`
}

// LadderStep maps a remaining-budget threshold to a tier. Steps are
// evaluated in order; the first step whose threshold is cleared wins.
type LadderStep struct {
	Tier         Tier    `yaml:"tier"`
	MinRemaining float64 `yaml:"min_remaining"`
}

// CostEntry is an immutable record of one completed request.
type CostEntry struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Tier        Tier      `json:"tier"`
	InputUnits  int64     `json:"input_units"`
	OutputUnits int64     `json:"output_units"`
	Cost        float64   `json:"cost"`
	Kind        string    `json:"kind"`
	Success     bool      `json:"success"`
}

// DailyBudget is the incrementally maintained view of one day's spend.
type DailyBudget struct {
	Date     string  `json:"date"`
	Limit    float64 `json:"budget_limit"`
	Spend    float64 `json:"current_spend"`
	Requests int     `json:"requests_made"`
	Failed   int     `json:"requests_failed"`
}

// Affordability details a budget check.
type Affordability struct {
	Limit         float64
	Spend         float64
	Available     float64
	EstimatedCost float64
	WouldExceed   bool
	Excess        float64
}

// Config is the ledger configuration.
type Config struct {
	DailyLimit   float64                 `yaml:"daily_limit"`
	Prices       map[Tier]TierPrice      `yaml:"prices"`
	Ladders      map[string][]LadderStep `yaml:"ladders"`
	HistoryLimit int                     `yaml:"history_limit"`
}

// Default tiers, priced per million units.
const (
	TierEconomy  Tier = "economy"
	TierStandard Tier = "standard"
	TierPremium  Tier = "premium"
)

// DefaultConfig returns a config with the stock price table and tier
// ladder: $50/day, three tiers, thresholds degrading from premium to
// economy as the remaining budget shrinks.
func DefaultConfig() Config {
	return Config{
		DailyLimit: 50.0,
		Prices: map[Tier]TierPrice{
			TierEconomy:  {InputPerMillion: 0.075, OutputPerMillion: 0.30, TypicalCost: 0.001},
			TierStandard: {InputPerMillion: 0.25, OutputPerMillion: 1.25, TypicalCost: 0.002},
			TierPremium:  {InputPerMillion: 3.0, OutputPerMillion: 15.0, TypicalCost: 0.025},
		},
		Ladders: map[string][]LadderStep{
			Simple.String(): {
				{Tier: TierEconomy, MinRemaining: 0},
			},
			Medium.String(): {
				{Tier: TierStandard, MinRemaining: 10},
				{Tier: TierEconomy, MinRemaining: 2},
			},
			High.String(): {
				{Tier: TierPremium, MinRemaining: 20},
				{Tier: TierStandard, MinRemaining: 10},
				{Tier: TierEconomy, MinRemaining: 2},
			},
		},
		HistoryLimit: 1000,
	}
}

// Ledger is an append-only record of completed requests with a derived
// daily-spend view. Reads used for affordability checks are not isolated
// from concurrent writers: a request already in flight may push spend
// past the limit, and only requests checked after that are rejected.
// This relaxed enforcement is deliberate.
type Ledger struct {
	mu      sync.Mutex
	cfg     Config
	history []CostEntry
	days    map[string]*DailyBudget
	store   Store
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithStore sets the durable store.
func WithStore(s Store) Option {
	return func(l *Ledger) { l.store = s }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// WithNow sets the clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// New creates a Ledger. State is loaded from the store if one is set;
// a missing or malformed snapshot resets to empty with a warning rather
// than failing.
func New(cfg Config, opts ...Option) *Ledger {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 1000
	}

	l := &Ledger{
		cfg:  cfg,
		days: make(map[string]*DailyBudget),
	}

	for _, opt := range opts {
		opt(l)
	}

	// Apply defaults after options.
	if l.store == nil {
		l.store = &NoopStore{}
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	if l.now == nil {
		l.now = time.Now
	}

	snap, err := l.store.Load()
	if err != nil {
		l.logger.Warn("ledger: could not load cost history, starting empty", "error", err)
		return l
	}
	l.history = snap.CostHistory
	for date, day := range snap.DailyBudgets {
		d := day
		l.days[date] = &d
	}
	return l
}

// EstimateCost computes the cost of a request at the given tier. Unknown
// tiers fall back to the most expensive known tier rather than to zero.
func (l *Ledger) EstimateCost(tier Tier, inputUnits, outputUnits int64) float64 {
	price, ok := l.cfg.Prices[tier]
	if !ok {
		price = l.mostExpensive()
	}
	cost := (float64(inputUnits)*price.InputPerMillion +
		float64(outputUnits)*price.OutputPerMillion) / 1_000_000
	return math.Round(cost*1e6) / 1e6
}

func (l *Ledger) mostExpensive() TierPrice {
	var max TierPrice
	for _, p := range l.cfg.Prices {
		if p.TypicalCost > max.TypicalCost {
			max = p
		}
	}
	return max
}

// CanAfford reports whether a request of the given cost fits in today's
// remaining budget.
func (l *Ledger) CanAfford(cost float64) (bool, Affordability) {
	l.mu.Lock()
	defer l.mu.Unlock()

	spend := l.spendOnLocked(l.today())
	afford := spend+cost <= l.cfg.DailyLimit

	detail := Affordability{
		Limit:         l.cfg.DailyLimit,
		Spend:         spend,
		Available:     l.cfg.DailyLimit - spend,
		EstimatedCost: cost,
		WouldExceed:   !afford,
		Excess:        math.Max(0, spend+cost-l.cfg.DailyLimit),
	}
	return afford, detail
}

// ChooseTier maps task complexity to an affordable tier. With
// budgetConscious set, the remaining-budget thresholds of the ladder
// apply; without it only the typical-cost floor does. Returns false when
// no tier is affordable.
func (l *Ledger) ChooseTier(complexity Complexity, budgetConscious bool) (Tier, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	remaining := l.cfg.DailyLimit - l.spendOnLocked(l.today())

	for _, step := range l.cfg.Ladders[complexity.String()] {
		if budgetConscious && remaining <= step.MinRemaining {
			continue
		}
		if remaining < l.cfg.Prices[step.Tier].TypicalCost {
			continue
		}
		return step.Tier, true
	}
	return "", false
}

// Record appends a cost entry and updates today's budget. Failed requests
// are recorded too: a failed call still consumes vendor quota. Returns
// the recorded cost. Persistence failures are logged and swallowed so
// budget tracking degrades to in-memory-only.
func (l *Ledger) Record(tier Tier, inputUnits, outputUnits int64, kind string, success bool) float64 {
	cost := l.EstimateCost(tier, inputUnits, outputUnits)
	return l.RecordCost(tier, inputUnits, outputUnits, cost, kind, success)
}

// RecordCost is Record with an explicit actual cost, for requests billed
// by the provider rather than by the price table.
func (l *Ledger) RecordCost(tier Tier, inputUnits, outputUnits int64, cost float64, kind string, success bool) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	entry := CostEntry{
		ID:          uuid.New().String(),
		Timestamp:   now,
		Tier:        tier,
		InputUnits:  inputUnits,
		OutputUnits: outputUnits,
		Cost:        cost,
		Kind:        kind,
		Success:     success,
	}

	l.history = append(l.history, entry)
	if len(l.history) > l.cfg.HistoryLimit {
		l.history = l.history[len(l.history)-l.cfg.HistoryLimit:]
	}

	day := l.dayLocked(dayKey(now))
	day.Spend += cost
	day.Requests++
	if !success {
		day.Failed++
	}

	l.persistLocked(entry, *day)
	return cost
}

// Remaining returns today's remaining budget. May be negative once
// in-flight requests have pushed spend past the limit.
func (l *Ledger) Remaining() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cfg.DailyLimit - l.spendOnLocked(l.today())
}

// DailyStats summarizes a day's spend and request counts. An empty date
// means today.
type DailyStats struct {
	Date        string
	Limit       float64
	Spend       float64
	Remaining   float64
	PercentUsed float64
	Requests    int
	Successful  int
	Failed      int
	SuccessRate float64
	OverBudget  bool
}

// Stats returns the daily statistics for the given date (YYYY-MM-DD),
// or for today when date is empty.
func (l *Ledger) Stats(date string) DailyStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	if date == "" {
		date = l.today()
	}

	var spend float64
	var requests, successful int
	l.scanLocked(date, func(e CostEntry) {
		spend += e.Cost
		requests++
		if e.Success {
			successful++
		}
	})

	stats := DailyStats{
		Date:       date,
		Limit:      l.cfg.DailyLimit,
		Spend:      spend,
		Remaining:  math.Max(0, l.cfg.DailyLimit-spend),
		Requests:   requests,
		Successful: successful,
		Failed:     requests - successful,
		OverBudget: spend > l.cfg.DailyLimit,
	}
	if l.cfg.DailyLimit > 0 {
		stats.PercentUsed = math.Min(100, spend/l.cfg.DailyLimit*100)
	}
	if requests > 0 {
		stats.SuccessRate = float64(successful) / float64(requests)
	}
	return stats
}

// spendOnLocked sums the cost of all entries whose timestamp falls in the
// [start-of-day, start-of-day+24h) window. The scan is O(n) over retained
// history, which is bounded by HistoryLimit.
func (l *Ledger) spendOnLocked(date string) float64 {
	var spend float64
	l.scanLocked(date, func(e CostEntry) { spend += e.Cost })
	return spend
}

func (l *Ledger) scanLocked(date string, fn func(CostEntry)) {
	start, err := time.ParseInLocation("2006-01-02", date, time.UTC)
	if err != nil {
		return
	}
	end := start.Add(24 * time.Hour)
	for _, e := range l.history {
		ts := e.Timestamp.UTC()
		if !ts.Before(start) && ts.Before(end) {
			fn(e)
		}
	}
}

func (l *Ledger) dayLocked(date string) *DailyBudget {
	day, ok := l.days[date]
	if !ok {
		day = &DailyBudget{Date: date, Limit: l.cfg.DailyLimit}
		l.days[date] = day
	}
	return day
}

func (l *Ledger) persistLocked(entry CostEntry, day DailyBudget) {
	var err error
	if ap, ok := l.store.(Appender); ok {
		err = ap.Append(entry, day)
	} else {
		err = l.store.Save(l.snapshotLocked())
	}
	if err != nil {
		l.logger.Warn("ledger: could not persist cost entry", "error", err)
	}
}

func (l *Ledger) snapshotLocked() Snapshot {
	snap := Snapshot{
		CostHistory:  make([]CostEntry, len(l.history)),
		DailyBudgets: make(map[string]DailyBudget, len(l.days)),
		LastUpdated:  l.now(),
	}
	copy(snap.CostHistory, l.history)
	for date, day := range l.days {
		snap.DailyBudgets[date] = *day
	}
	return snap
}

func (l *Ledger) today() string { return dayKey(l.now()) }

func dayKey(t time.Time) string { return t.UTC().Format("2006-01-02") }
