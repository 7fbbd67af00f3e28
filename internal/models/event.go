package models

import "errors"

// MarketEvent represents a binary prediction market whose yes and no
// best-ask prices both resolved this cycle. Events with only one
// resolvable side are never constructed.
type MarketEvent struct {
	Title      string  `json:"title"`
	Slug       string  `json:"slug"`
	YesAsk     float64 `json:"yes_ask"`
	NoAsk      float64 `json:"no_ask"`
	Volume24hr float64 `json:"volume_24hr"`
}

// BundleCost is the combined cost of buying both outcomes. Values above
// 1.0 are valid: they represent no-arbitrage states.
func (e *MarketEvent) BundleCost() float64 {
	return e.YesAsk + e.NoAsk
}

// EdgePct is the percentage profit implied by buying the bundle against
// the guaranteed 1.0 payout. Negative when the bundle costs more than 1.0.
func (e *MarketEvent) EdgePct() float64 {
	return (1.0 - e.BundleCost()) * 100
}

// Validate checks event field constraints.
func (e *MarketEvent) Validate() error {
	if e.Title == "" {
		return errors.New("event title must not be empty")
	}
	if e.YesAsk < 0.0 || e.YesAsk > 1.0 {
		return errors.New("yes ask must be between 0.0 and 1.0")
	}
	if e.NoAsk < 0.0 || e.NoAsk > 1.0 {
		return errors.New("no ask must be between 0.0 and 1.0")
	}
	if e.Volume24hr < 0 {
		return errors.New("volume 24hr must not be negative")
	}
	return nil
}
