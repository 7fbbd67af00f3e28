package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/joehsu/openclaw/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "accuracy_log.json"), 60)
}

func record(date string, correct, total int) models.AccuracyRecord {
	rec := models.AccuracyRecord{Date: date, Correct: correct, Total: total}
	if total > 0 {
		rec.AccuracyPct = float64(correct) / float64(total) * 100
	}
	return rec
}

func TestStore_LoadMissingFile(t *testing.T) {
	s := newTestStore(t)
	if got := s.Load(); got != nil {
		t.Errorf("expected empty history for missing file, got %v", got)
	}
}

func TestStore_SaveAndLoad(t *testing.T) {
	s := newTestStore(t)
	records := []models.AccuracyRecord{
		record("2025-03-10", 2, 3),
		record("2025-03-11", 1, 1),
	}

	if err := s.Save(records); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got := s.Load()
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	if got[0].Date != "2025-03-10" || got[1].Date != "2025-03-11" {
		t.Errorf("unexpected order: %v", got)
	}
	if got[0].Correct != 2 || got[0].Total != 3 {
		t.Errorf("unexpected record: %+v", got[0])
	}
}

func TestStore_LoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accuracy_log.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewStore(path, 60)
	if got := s.Load(); got != nil {
		t.Errorf("expected empty history for corrupt file, got %v", got)
	}
}

func TestStore_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(filepath.Join(dir, "accuracy_log.json"), 60)
	if err := s.Save([]models.AccuracyRecord{record("2025-03-10", 1, 2)}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "accuracy_log.json" {
		t.Errorf("unexpected directory contents: %v", entries)
	}
}

func TestUpsert_AppendNewDate(t *testing.T) {
	records := []models.AccuracyRecord{record("2025-03-10", 1, 2)}
	records = Upsert(records, record("2025-03-11", 3, 4), 60)

	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[1].Date != "2025-03-11" {
		t.Errorf("new date should be appended last, got %s", records[1].Date)
	}
}

func TestUpsert_SameDateOverwritesInPlace(t *testing.T) {
	records := []models.AccuracyRecord{record("2025-03-10", 1, 2)}
	records = Upsert(records, record("2025-03-10", 3, 4), 60)
	records = Upsert(records, record("2025-03-10", 3, 4), 60)

	if len(records) != 1 {
		t.Fatalf("same-date upsert must not duplicate: got %d records", len(records))
	}
	if records[0].Correct != 3 || records[0].Total != 4 {
		t.Errorf("record not overwritten: %+v", records[0])
	}
}

func TestUpsert_TruncatesOldestFirst(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var records []models.AccuracyRecord
	for i := 0; i < 65; i++ {
		records = append(records, record(base.AddDate(0, 0, i).Format(models.DateLayout), i, i+1))
	}

	records = Upsert(records, record("2025-12-31", 5, 6), 60)

	if len(records) != 60 {
		t.Fatalf("got %d records, want 60", len(records))
	}
	// 66 candidates, newest 60 kept: the 6 oldest dropped.
	if records[0].Date != "2025-01-07" {
		t.Errorf("oldest retained record = %s, want 2025-01-07", records[0].Date)
	}
	if records[59].Date != "2025-12-31" {
		t.Errorf("newest record = %s, want 2025-12-31", records[59].Date)
	}
}
