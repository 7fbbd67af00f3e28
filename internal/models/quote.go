// Package models defines the core domain entities: equity quotes,
// prediction-market events, sentiment tallies, and accuracy records.
package models

import (
	"errors"
	"fmt"
	"time"
)

// Quote represents one equity quote for the current cycle.
// Quotes are ephemeral: recomputed on every run, never persisted beyond
// the market_data table written for the renderer.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name"`
	Price         float64   `json:"price"`
	PreviousClose float64   `json:"previous_close"`
	ChangePct     float64   `json:"change_pct"`
	Volume        float64   `json:"volume"`
	FetchedAt     time.Time `json:"fetched_at"`
}

// FormatChange renders the change percentage with an explicit leading sign,
// e.g. "+1.50%" or "-0.32%".
func (q *Quote) FormatChange() string {
	return fmt.Sprintf("%+.2f%%", q.ChangePct)
}

// Validate checks quote field constraints.
func (q *Quote) Validate() error {
	if q.Symbol == "" {
		return errors.New("quote symbol must not be empty")
	}
	if q.Price <= 0 {
		return errors.New("quote price must be positive")
	}
	if q.PreviousClose <= 0 {
		return errors.New("quote previous close must be positive")
	}
	return nil
}
