// Package accuracy scores the previous cycle's aggregated sentiment
// against realized price movement and maintains the rolling accuracy log.
package accuracy

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joehsu/openclaw/internal/history"
	"github.com/joehsu/openclaw/internal/logger"
	"github.com/joehsu/openclaw/internal/models"
)

// PriceSource resolves secondary names to tradable symbols and fetches
// their recent daily closes. Implemented by the quotes client.
type PriceSource interface {
	SearchSymbol(ctx context.Context, query string) (string, error)
	DailyCloses(ctx context.Context, symbol string, n int) ([]float64, error)
}

// Config holds scoring and settlement behavior.
type Config struct {
	Timezone            string
	ValidityStartHour   int
	ValidityEndHour     int
	SettlementStartHour int
	SettlementEndHour   int
	NoiseFloor          float64
	MaxRecords          int
	Concurrency         int
	LookupTimeout       time.Duration
	Overrides           map[string]string
}

// DefaultConfig returns the observed production windows and thresholds.
func DefaultConfig() Config {
	return Config{
		Timezone:            "Asia/Taipei",
		ValidityStartHour:   9,
		ValidityEndHour:     20,
		SettlementStartHour: 14,
		SettlementEndHour:   22,
		NoiseFloor:          0.001,
		MaxRecords:          60,
		Concurrency:         5,
		LookupTimeout:       10 * time.Second,
	}
}

// Tracker evaluates sentiment predictions and settles the daily record.
type Tracker struct {
	source PriceSource
	store  *history.Store
	cfg    Config
	loc    *time.Location
}

// New creates a Tracker, resolving the configured timezone.
func New(source PriceSource, store *history.Store, cfg Config) (*Tracker, error) {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = 10 * time.Second
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", cfg.Timezone, err)
	}
	return &Tracker{source: source, store: store, cfg: cfg, loc: loc}, nil
}

// Evaluation is the outcome of scoring one cycle's tallies.
type Evaluation struct {
	Tallies []models.SentimentTally
	Correct int
	Total   int
}

// Pending reports whether no prediction could be scored this cycle; the
// dashboard shows "pending" instead of a percentage.
func (e *Evaluation) Pending() bool {
	return e.Total == 0
}

// AccuracyPct returns the scored accuracy; zero when pending.
func (e *Evaluation) AccuracyPct() float64 {
	if e.Total == 0 {
		return 0
	}
	return float64(e.Correct) / float64(e.Total) * 100
}

// InValidityWindow reports whether a sentiment prediction may be scored at
// now: a trading weekday, local hour within the validity window inclusive.
func (t *Tracker) InValidityWindow(now time.Time) bool {
	local := now.In(t.loc)
	if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	h := local.Hour()
	return h >= t.cfg.ValidityStartHour && h <= t.cfg.ValidityEndHour
}

// InSettlementWindow reports whether today's accuracy record may be
// finalized at now.
func (t *Tracker) InSettlementWindow(now time.Time) bool {
	h := now.In(t.loc).Hour()
	return h >= t.cfg.SettlementStartHour && h <= t.cfg.SettlementEndHour
}

// lookup is one secondary name's resolved market data.
type lookup struct {
	price  string
	closes []float64
}

// Evaluate resolves every tally name to a ticker, fetches the last two
// daily closes, and scores each non-neutral prediction that falls inside
// the validity window. Unresolved names keep a placeholder price and are
// skipped from scoring. Returned tallies preserve the input order with
// prices filled in.
func (t *Tracker) Evaluate(ctx context.Context, tallies []models.SentimentTally, now time.Time) Evaluation {
	results := make([]lookup, len(tallies))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.cfg.Concurrency)
	for i := range tallies {
		i := i
		g.Go(func() error {
			results[i] = t.lookupName(gctx, tallies[i].Name)
			return nil
		})
	}
	_ = g.Wait()

	ev := Evaluation{Tallies: make([]models.SentimentTally, len(tallies))}
	scorable := t.InValidityWindow(now)

	for i, tally := range tallies {
		tally.Price = results[i].price
		ev.Tallies[i] = tally

		if !scorable {
			continue
		}
		closes := results[i].closes
		if len(closes) < 2 {
			continue
		}
		prev, cur := closes[len(closes)-2], closes[len(closes)-1]
		if prev <= 0 || cur <= 0 {
			continue
		}
		sentiment := tally.Sentiment()
		if sentiment == models.Neutral {
			continue
		}
		delta := cur - prev
		if delta <= t.cfg.NoiseFloor && delta >= -t.cfg.NoiseFloor {
			// A flat day does not test the prediction.
			continue
		}

		ev.Total++
		if (sentiment == models.Bullish && delta > 0) || (sentiment == models.Bearish && delta < 0) {
			ev.Correct++
		}
	}
	return ev
}

// lookupName resolves one name and fetches its closes. Any failure leaves
// the name unresolved with a placeholder price.
func (t *Tracker) lookupName(ctx context.Context, name string) lookup {
	lctx, cancel := context.WithTimeout(ctx, t.cfg.LookupTimeout)
	defer cancel()

	symbol, ok := t.cfg.Overrides[name]
	if !ok {
		found, err := t.source.SearchSymbol(lctx, name)
		if err != nil {
			logger.Debug("Unresolved ticker for %q: %v", name, err)
			return lookup{price: "-"}
		}
		symbol = found
	}

	closes, err := t.source.DailyCloses(lctx, symbol, 2)
	if err != nil || len(closes) == 0 {
		logger.Debug("No closes for %s (%q): %v", symbol, name, err)
		return lookup{price: "-"}
	}
	return lookup{
		price:  fmt.Sprintf("$%.2f", closes[len(closes)-1]),
		closes: closes,
	}
}

// Settle upserts today's record into the persisted log when now falls in
// the settlement window, truncating to the retention cap. It returns the
// log (updated or as loaded) and whether a write happened. Re-running the
// same day overwrites the day's record wholesale: each run recomputes the
// full day from scratch, so the upsert is idempotent.
func (t *Tracker) Settle(ev Evaluation, now time.Time) ([]models.AccuracyRecord, bool, error) {
	records := t.store.Load()
	if !t.InSettlementWindow(now) {
		return records, false, nil
	}

	rec := models.NewAccuracyRecord(now.In(t.loc), ev.Correct, ev.Total)
	records = history.Upsert(records, rec, t.cfg.MaxRecords)
	if err := t.store.Save(records); err != nil {
		return records, false, fmt.Errorf("failed to persist accuracy log: %w", err)
	}
	return records, true, nil
}
