// Package snapshot serializes one cycle's result sets into the JSON
// artifact consumed by the dashboard renderer.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/joehsu/openclaw/internal/arbitrage"
	"github.com/joehsu/openclaw/internal/models"
	"github.com/joehsu/openclaw/internal/sentiment"
)

// QuoteView is one equity row with its outlook annotation.
type QuoteView struct {
	Symbol  string  `json:"symbol"`
	Name    string  `json:"name"`
	Price   float64 `json:"price"`
	Change  string  `json:"change"`
	Outlook string  `json:"outlook"`
	Related string  `json:"related"`
	Impact  string  `json:"impact"`
}

// EventView is one prediction-market row, pre-formatted the way the
// dashboard displays it.
type EventView struct {
	Title   string  `json:"title"`
	Slug    string  `json:"slug"`
	Yes     string  `json:"yes"`
	No      string  `json:"no"`
	Bundle  string  `json:"bundle"`
	Edge    string  `json:"edge"`
	EdgeVal float64 `json:"edge_val"`
	Volume  string  `json:"vol"`
}

// ForecastView is one secondary-ticker sentiment row.
type ForecastView struct {
	Name      string `json:"name"`
	Price     string `json:"price"`
	Bull      int    `json:"bull"`
	Bear      int    `json:"bear"`
	Sentiment string `json:"sentiment"`
}

// AccuracySummary is the current run's scoring totals.
type AccuracySummary struct {
	Correct     int     `json:"correct"`
	Total       int     `json:"total"`
	AccuracyPct float64 `json:"accuracy_pct"`
	Pending     bool    `json:"pending"`
}

// Snapshot is the complete renderer handoff for one cycle.
type Snapshot struct {
	RunID         string                  `json:"run_id"`
	UpdatedAt     time.Time               `json:"updated_at"`
	Quotes        []QuoteView             `json:"quotes"`
	Opportunities []EventView             `json:"opportunities"`
	HotMarkets    []EventView             `json:"hot_markets"`
	Fallback      bool                    `json:"fallback"`
	TotalEvents   int                     `json:"total_events"`
	Forecast      []ForecastView          `json:"forecast"`
	Accuracy      AccuracySummary         `json:"accuracy"`
	History       []models.AccuracyRecord `json:"history"`
}

// Build assembles a snapshot from the cycle's result sets. History is
// reversed to most-recent-first for display.
func Build(
	quotes []models.Quote,
	outlooks map[string]sentiment.Outlook,
	arb arbitrage.Result,
	forecast []models.SentimentTally,
	summary AccuracySummary,
	records []models.AccuracyRecord,
	now time.Time,
) Snapshot {
	snap := Snapshot{
		RunID:       uuid.NewString(),
		UpdatedAt:   now,
		TotalEvents: arb.TotalEvents,
		Accuracy:    summary,
	}

	for _, q := range quotes {
		o := outlooks[q.Symbol]
		snap.Quotes = append(snap.Quotes, QuoteView{
			Symbol:  q.Symbol,
			Name:    q.Name,
			Price:   q.Price,
			Change:  q.FormatChange(),
			Outlook: o.Direction.Label(),
			Related: o.Related,
			Impact:  o.Impact,
		})
	}

	snap.Opportunities = eventViews(arb.Opportunities)
	snap.HotMarkets = eventViews(arb.HotMarkets)
	_, snap.Fallback = arb.Display()

	for _, t := range forecast {
		snap.Forecast = append(snap.Forecast, ForecastView{
			Name:      t.Name,
			Price:     t.Price,
			Bull:      t.Bull,
			Bear:      t.Bear,
			Sentiment: t.Sentiment().Bias(),
		})
	}

	for i := len(records) - 1; i >= 0; i-- {
		snap.History = append(snap.History, records[i])
	}

	return snap
}

func eventViews(events []models.MarketEvent) []EventView {
	views := make([]EventView, 0, len(events))
	for _, e := range events {
		views = append(views, EventView{
			Title:   e.Title,
			Slug:    e.Slug,
			Yes:     fmt.Sprintf("%.3f", e.YesAsk),
			No:      fmt.Sprintf("%.3f", e.NoAsk),
			Bundle:  fmt.Sprintf("%.3f", e.BundleCost()),
			Edge:    fmt.Sprintf("%.2f%%", e.EdgePct()),
			EdgeVal: e.EdgePct(),
			Volume:  fmt.Sprintf("%.1fK", e.Volume24hr/1000),
		})
	}
	return views
}

// Writer persists snapshots to disk.
type Writer struct {
	path string
}

// NewWriter creates a writer targeting path.
func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

// Write serializes the snapshot atomically via temp file and rename, so a
// renderer reading mid-cycle never sees a partial artifact.
func (w *Writer) Write(snap *Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".snapshot-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp snapshot: %w", err)
	}
	if err := os.Rename(tmpName, w.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}
