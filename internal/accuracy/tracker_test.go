package accuracy

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/joehsu/openclaw/internal/history"
	"github.com/joehsu/openclaw/internal/models"
)

type fakeSource struct {
	symbols map[string]string
	closes  map[string][]float64
}

func (f *fakeSource) SearchSymbol(_ context.Context, query string) (string, error) {
	if s, ok := f.symbols[query]; ok {
		return s, nil
	}
	return "", errors.New("no match")
}

func (f *fakeSource) DailyCloses(_ context.Context, symbol string, _ int) ([]float64, error) {
	if c, ok := f.closes[symbol]; ok {
		return c, nil
	}
	return nil, errors.New("no data")
}

func newTestTracker(t *testing.T, source PriceSource, overrides map[string]string) *Tracker {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Overrides = overrides
	store := history.NewStore(filepath.Join(t.TempDir(), "log.json"), cfg.MaxRecords)
	tr, err := New(source, store, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tr
}

func taipei(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Taipei")
	if err != nil {
		t.Fatal(err)
	}
	return loc
}

// 2025-03-12 is a Wednesday.
func weekdayAt(t *testing.T, hour int) time.Time {
	return time.Date(2025, 3, 12, hour, 0, 0, 0, taipei(t))
}

func bull(name string) models.SentimentTally {
	return models.SentimentTally{Name: name, Bull: 2, Bear: 1}
}

func bear(name string) models.SentimentTally {
	return models.SentimentTally{Name: name, Bull: 0, Bear: 1}
}

func TestEvaluate_ScoresBullishCorrect(t *testing.T) {
	source := &fakeSource{closes: map[string][]float64{"2330.TW": {100, 105}}}
	tr := newTestTracker(t, source, map[string]string{"台積電": "2330.TW"})

	ev := tr.Evaluate(context.Background(), []models.SentimentTally{bull("台積電")}, weekdayAt(t, 15))

	if ev.Total != 1 || ev.Correct != 1 {
		t.Errorf("got %d/%d, want 1/1", ev.Correct, ev.Total)
	}
	if ev.Tallies[0].Price != "$105.00" {
		t.Errorf("price = %q, want $105.00", ev.Tallies[0].Price)
	}
	if ev.Pending() {
		t.Error("evaluation should not be pending")
	}
	if ev.AccuracyPct() != 100.0 {
		t.Errorf("accuracy = %f, want 100", ev.AccuracyPct())
	}
}

func TestEvaluate_ScoresBearish(t *testing.T) {
	source := &fakeSource{closes: map[string][]float64{
		"FELL.TW": {100, 95},
		"ROSE.TW": {100, 105},
	}}
	tr := newTestTracker(t, source, map[string]string{"fell": "FELL.TW", "rose": "ROSE.TW"})

	ev := tr.Evaluate(context.Background(),
		[]models.SentimentTally{bear("fell"), bear("rose")}, weekdayAt(t, 15))

	if ev.Total != 2 || ev.Correct != 1 {
		t.Errorf("got %d/%d, want 1/2", ev.Correct, ev.Total)
	}
	if ev.AccuracyPct() != 50.0 {
		t.Errorf("accuracy = %f, want 50", ev.AccuracyPct())
	}
}

func TestEvaluate_NothingScoredOutsideValidityWindow(t *testing.T) {
	source := &fakeSource{closes: map[string][]float64{"2330.TW": {100, 105}}}
	tr := newTestTracker(t, source, map[string]string{"台積電": "2330.TW"})

	ev := tr.Evaluate(context.Background(), []models.SentimentTally{bull("台積電")}, weekdayAt(t, 22))

	if ev.Total != 0 {
		t.Errorf("scored %d predictions outside validity window, want 0", ev.Total)
	}
	if !ev.Pending() {
		t.Error("evaluation should be pending")
	}
	// Prices are still resolved for display.
	if ev.Tallies[0].Price != "$105.00" {
		t.Errorf("price = %q, want $105.00", ev.Tallies[0].Price)
	}
}

func TestEvaluate_NothingScoredOnWeekend(t *testing.T) {
	source := &fakeSource{closes: map[string][]float64{"2330.TW": {100, 105}}}
	tr := newTestTracker(t, source, map[string]string{"台積電": "2330.TW"})

	saturday := time.Date(2025, 3, 15, 15, 0, 0, 0, taipei(t))
	ev := tr.Evaluate(context.Background(), []models.SentimentTally{bull("台積電")}, saturday)

	if ev.Total != 0 {
		t.Errorf("scored %d predictions on weekend, want 0", ev.Total)
	}
}

func TestEvaluate_SkipsNeutralAndFlatAndUnresolved(t *testing.T) {
	source := &fakeSource{closes: map[string][]float64{
		"FLAT.TW": {100, 100.0005},
		"TIED.TW": {100, 110},
	}}
	tr := newTestTracker(t, source, map[string]string{"flat": "FLAT.TW", "tied": "TIED.TW"})

	tallies := []models.SentimentTally{
		bull("flat"),                                    // below noise floor
		{Name: "tied", Bull: 1, Bear: 1},                // neutral sentiment
		bull("unknown-name"),                            // resolution fails
	}
	ev := tr.Evaluate(context.Background(), tallies, weekdayAt(t, 15))

	if ev.Total != 0 {
		t.Errorf("scored %d predictions, want 0", ev.Total)
	}
	if ev.Tallies[2].Price != "-" {
		t.Errorf("unresolved name should keep placeholder price, got %q", ev.Tallies[2].Price)
	}
}

func TestEvaluate_SearchFallback(t *testing.T) {
	source := &fakeSource{
		symbols: map[string]string{"鴻海": "2317.TW"},
		closes:  map[string][]float64{"2317.TW": {50, 55}},
	}
	tr := newTestTracker(t, source, nil)

	ev := tr.Evaluate(context.Background(), []models.SentimentTally{bull("鴻海")}, weekdayAt(t, 15))

	if ev.Total != 1 || ev.Correct != 1 {
		t.Errorf("got %d/%d, want 1/1", ev.Correct, ev.Total)
	}
}

func TestEvaluate_OverrideBeatsSearch(t *testing.T) {
	source := &fakeSource{
		symbols: map[string]string{"台積電": "WRONG.TW"},
		closes: map[string][]float64{
			"2330.TW":  {100, 105},
			"WRONG.TW": {1, 2},
		},
	}
	tr := newTestTracker(t, source, map[string]string{"台積電": "2330.TW"})

	ev := tr.Evaluate(context.Background(), []models.SentimentTally{bull("台積電")}, weekdayAt(t, 15))

	if ev.Tallies[0].Price != "$105.00" {
		t.Errorf("override table should win: price = %q", ev.Tallies[0].Price)
	}
}

func TestSettle_InsideWindowWrites(t *testing.T) {
	tr := newTestTracker(t, &fakeSource{}, nil)
	now := weekdayAt(t, 15)

	records, settled, err := tr.Settle(Evaluation{Correct: 3, Total: 4}, now)
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if !settled {
		t.Fatal("expected settlement inside window")
	}
	if len(records) != 1 || records[0].Date != "2025-03-12" {
		t.Fatalf("unexpected records: %+v", records)
	}
	if records[0].Correct != 3 || records[0].Total != 4 || records[0].AccuracyPct != 75.0 {
		t.Errorf("unexpected record: %+v", records[0])
	}
}

func TestSettle_IdempotentSameDay(t *testing.T) {
	tr := newTestTracker(t, &fakeSource{}, nil)
	now := weekdayAt(t, 15)
	ev := Evaluation{Correct: 2, Total: 3}

	if _, _, err := tr.Settle(ev, now); err != nil {
		t.Fatalf("first Settle: %v", err)
	}
	records, settled, err := tr.Settle(ev, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("second Settle: %v", err)
	}
	if !settled {
		t.Fatal("expected settlement")
	}
	if len(records) != 1 {
		t.Fatalf("same-day settlement duplicated the record: %d entries", len(records))
	}
	if records[0].Correct != 2 || records[0].Total != 3 {
		t.Errorf("unexpected record content: %+v", records[0])
	}
}

func TestSettle_OutsideWindowNoWrite(t *testing.T) {
	tr := newTestTracker(t, &fakeSource{}, nil)

	records, settled, err := tr.Settle(Evaluation{Correct: 1, Total: 1}, weekdayAt(t, 10))
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if settled {
		t.Error("settlement must not happen outside the window")
	}
	if len(records) != 0 {
		t.Errorf("unexpected records: %+v", records)
	}
}

func TestSettle_NewDayFreezesPrevious(t *testing.T) {
	tr := newTestTracker(t, &fakeSource{}, nil)

	if _, _, err := tr.Settle(Evaluation{Correct: 1, Total: 2}, weekdayAt(t, 15)); err != nil {
		t.Fatal(err)
	}
	nextDay := weekdayAt(t, 15).AddDate(0, 0, 1)
	records, _, err := tr.Settle(Evaluation{Correct: 4, Total: 4}, nextDay)
	if err != nil {
		t.Fatal(err)
	}

	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Correct != 1 || records[0].Total != 2 {
		t.Errorf("previous day's record changed: %+v", records[0])
	}
	if records[1].Date != "2025-03-13" {
		t.Errorf("unexpected new record date: %s", records[1].Date)
	}
}

func TestWindows(t *testing.T) {
	tr := newTestTracker(t, &fakeSource{}, nil)

	if !tr.InValidityWindow(weekdayAt(t, 9)) || !tr.InValidityWindow(weekdayAt(t, 20)) {
		t.Error("validity window boundaries are inclusive")
	}
	if tr.InValidityWindow(weekdayAt(t, 8)) || tr.InValidityWindow(weekdayAt(t, 21)) {
		t.Error("hours outside the validity window must not score")
	}
	if !tr.InSettlementWindow(weekdayAt(t, 14)) || !tr.InSettlementWindow(weekdayAt(t, 22)) {
		t.Error("settlement window boundaries are inclusive")
	}
	if tr.InSettlementWindow(weekdayAt(t, 13)) || tr.InSettlementWindow(weekdayAt(t, 23)) {
		t.Error("hours outside the settlement window must not settle")
	}
}
