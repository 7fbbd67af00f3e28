// Package arbitrage classifies sampled market events into arbitrage
// opportunities and notable-deviation ("hot") reference markets.
package arbitrage

import (
	"math"
	"sort"

	"github.com/joehsu/openclaw/internal/models"
)

// Config holds the evaluator thresholds.
type Config struct {
	// MaxEdgePct excludes data-quality outliers: an unreasonably large
	// edge signals a stale or bad quote, not a real opportunity.
	MaxEdgePct          float64
	HotDeviation        float64
	HotDeviationRelaxed float64
	HotRelaxBelow       int
	HotMaxBundle        float64
	HotTopK             int
}

// DefaultConfig returns the observed production thresholds.
func DefaultConfig() Config {
	return Config{
		MaxEdgePct:          50.0,
		HotDeviation:        0.005,
		HotDeviationRelaxed: 0.002,
		HotRelaxBelow:       5,
		HotMaxBundle:        1.05,
		HotTopK:             10,
	}
}

// Result holds one evaluation pass over the cycle's events.
type Result struct {
	Opportunities []models.MarketEvent
	HotMarkets    []models.MarketEvent
	TotalEvents   int
}

// Evaluate classifies every event. Opportunities are sorted by edge
// descending with ties broken by original fetch order; hot markets are
// sorted by volume descending and capped.
func Evaluate(events []models.MarketEvent, cfg Config) Result {
	res := Result{TotalEvents: len(events)}

	for _, e := range events {
		if isOpportunity(&e, cfg) {
			res.Opportunities = append(res.Opportunities, e)
		}
	}
	sort.SliceStable(res.Opportunities, func(i, j int) bool {
		return res.Opportunities[i].EdgePct() > res.Opportunities[j].EdgePct()
	})

	res.HotMarkets = hotMarkets(events, cfg)
	return res
}

// Display returns the list the dashboard should present: the opportunity
// list, or the hot-markets reference list when no opportunity resolved, so
// the board is never empty while any events resolved at all.
func (r *Result) Display() ([]models.MarketEvent, bool) {
	if len(r.Opportunities) > 0 {
		return r.Opportunities, false
	}
	return r.HotMarkets, true
}

func isOpportunity(e *models.MarketEvent, cfg Config) bool {
	edge := e.EdgePct()
	return edge > 0 && edge < cfg.MaxEdgePct && e.BundleCost() <= 1.0
}

func hotMarkets(events []models.MarketEvent, cfg Config) []models.MarketEvent {
	hot := filterHot(events, cfg.HotDeviation, cfg.HotMaxBundle)
	if len(hot) < cfg.HotRelaxBelow {
		hot = filterHot(events, cfg.HotDeviationRelaxed, cfg.HotMaxBundle)
	}
	sort.SliceStable(hot, func(i, j int) bool {
		return hot[i].Volume24hr > hot[j].Volume24hr
	})
	if len(hot) > cfg.HotTopK {
		hot = hot[:cfg.HotTopK]
	}
	return hot
}

func filterHot(events []models.MarketEvent, deviation, maxBundle float64) []models.MarketEvent {
	var hot []models.MarketEvent
	for _, e := range events {
		bundle := e.BundleCost()
		if math.Abs(1.0-bundle) > deviation && bundle <= maxBundle {
			hot = append(hot, e)
		}
	}
	return hot
}
