package snapshot

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/joehsu/openclaw/internal/arbitrage"
	"github.com/joehsu/openclaw/internal/models"
	"github.com/joehsu/openclaw/internal/sentiment"
)

func sampleArb() arbitrage.Result {
	return arbitrage.Result{
		Opportunities: []models.MarketEvent{
			{Title: "Cheap bundle", Slug: "cheap", YesAsk: 0.45, NoAsk: 0.50, Volume24hr: 12500},
		},
		HotMarkets: []models.MarketEvent{
			{Title: "Busy market", Slug: "busy", YesAsk: 0.60, NoAsk: 0.43, Volume24hr: 99000},
		},
		TotalEvents: 7,
	}
}

func TestBuild(t *testing.T) {
	now := time.Date(2025, 3, 12, 15, 0, 0, 0, time.UTC)
	quotes := []models.Quote{
		{Symbol: "TSLA", Name: "Tesla, Inc.", Price: 250.0, ChangePct: 1.5},
	}
	outlooks := map[string]sentiment.Outlook{
		"TSLA": {Direction: models.Bullish, Related: "台積電、鴻海", Impact: "電動車供應鏈受惠"},
	}
	forecast := []models.SentimentTally{
		{Name: "台積電", Bull: 2, Bear: 0, Price: "$25.30"},
	}
	records := []models.AccuracyRecord{
		{Date: "2025-03-10", Correct: 1, Total: 2, AccuracyPct: 50},
		{Date: "2025-03-11", Correct: 3, Total: 4, AccuracyPct: 75},
	}
	summary := AccuracySummary{Correct: 3, Total: 4, AccuracyPct: 75}

	snap := Build(quotes, outlooks, sampleArb(), forecast, summary, records, now)

	if snap.RunID == "" {
		t.Error("run_id must be set")
	}
	if !snap.UpdatedAt.Equal(now) {
		t.Errorf("updated_at = %v, want %v", snap.UpdatedAt, now)
	}
	if snap.TotalEvents != 7 {
		t.Errorf("total_events = %d, want 7", snap.TotalEvents)
	}

	if len(snap.Quotes) != 1 {
		t.Fatalf("got %d quote views, want 1", len(snap.Quotes))
	}
	qv := snap.Quotes[0]
	if qv.Change != "+1.50%" {
		t.Errorf("change = %q, want +1.50%%", qv.Change)
	}
	if qv.Outlook != "看漲" {
		t.Errorf("outlook = %q, want 看漲", qv.Outlook)
	}
	if qv.Related != "台積電、鴻海" {
		t.Errorf("unexpected related: %q", qv.Related)
	}

	if len(snap.Opportunities) != 1 {
		t.Fatalf("got %d opportunity views, want 1", len(snap.Opportunities))
	}
	ev := snap.Opportunities[0]
	if ev.Bundle != "0.950" || ev.Edge != "5.00%" {
		t.Errorf("unexpected formatting: bundle=%q edge=%q", ev.Bundle, ev.Edge)
	}
	if ev.Volume != "12.5K" {
		t.Errorf("volume = %q, want 12.5K", ev.Volume)
	}
	if snap.Fallback {
		t.Error("fallback must be false when opportunities exist")
	}

	if len(snap.Forecast) != 1 || snap.Forecast[0].Sentiment != "偏多" {
		t.Errorf("unexpected forecast: %+v", snap.Forecast)
	}

	// History is most-recent-first.
	if len(snap.History) != 2 {
		t.Fatalf("got %d history rows, want 2", len(snap.History))
	}
	if snap.History[0].Date != "2025-03-11" || snap.History[1].Date != "2025-03-10" {
		t.Errorf("history not reversed: %q, %q", snap.History[0].Date, snap.History[1].Date)
	}
}

func TestBuildFallbackFlag(t *testing.T) {
	arb := sampleArb()
	arb.Opportunities = nil

	snap := Build(nil, nil, arb, nil, AccuracySummary{Pending: true}, nil, time.Now())

	if !snap.Fallback {
		t.Error("fallback must be true when only hot markets remain")
	}
	if len(snap.HotMarkets) != 1 {
		t.Errorf("got %d hot market views, want 1", len(snap.HotMarkets))
	}
	if !snap.Accuracy.Pending {
		t.Error("pending flag should pass through")
	}
}

func TestBuildDistinctRunIDs(t *testing.T) {
	a := Build(nil, nil, arbitrage.Result{}, nil, AccuracySummary{}, nil, time.Now())
	b := Build(nil, nil, arbitrage.Result{}, nil, AccuracySummary{}, nil, time.Now())
	if a.RunID == b.RunID {
		t.Error("run IDs must differ between cycles")
	}
}

func TestWriterWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dashboard.json")
	w := NewWriter(path)

	snap := Build(nil, nil, sampleArb(), nil, AccuracySummary{}, nil, time.Now())
	if err := w.Write(&snap); err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	var got Snapshot
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("snapshot is not valid JSON: %v", err)
	}
	if got.RunID != snap.RunID {
		t.Errorf("run_id round trip mismatch: %q vs %q", got.RunID, snap.RunID)
	}

	// Rewrite replaces the file without leaving temp artifacts.
	snap2 := Build(nil, nil, sampleArb(), nil, AccuracySummary{}, nil, time.Now())
	if err := w.Write(&snap2); err != nil {
		t.Fatalf("second Write: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".snapshot-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestWriterCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out", "dashboard.json")
	w := NewWriter(path)

	snap := Build(nil, nil, arbitrage.Result{}, nil, AccuracySummary{}, nil, time.Now())
	if err := w.Write(&snap); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("snapshot not created: %v", err)
	}
}
