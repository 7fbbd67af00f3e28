// Package history persists the rolling accuracy log: a JSON array of
// per-day records ordered by date ascending, capped at a fixed length.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joehsu/openclaw/internal/logger"
	"github.com/joehsu/openclaw/internal/models"
)

// Store reads and writes the accuracy log file.
type Store struct {
	path       string
	maxRecords int
}

// NewStore creates a store for the log at path, retaining at most
// maxRecords entries.
func NewStore(path string, maxRecords int) *Store {
	if maxRecords <= 0 {
		maxRecords = 60
	}
	return &Store{path: path, maxRecords: maxRecords}
}

// Load reads the log. A missing or unreadable file yields an empty history
// rather than an error: the run continues, at the accepted cost of losing
// prior history if the file stays broken.
func (s *Store) Load() []models.AccuracyRecord {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("Failed to read accuracy log %s: %v", s.path, err)
		}
		return nil
	}
	var records []models.AccuracyRecord
	if err := json.Unmarshal(data, &records); err != nil {
		logger.Warn("Corrupt accuracy log %s, starting empty: %v", s.path, err)
		return nil
	}
	return records
}

// Save writes the log atomically: records are marshalled to a temp file in
// the same directory, then renamed over the target, so an overlapping
// scheduled run can never observe a half-written file.
func (s *Store) Save(records []models.AccuracyRecord) error {
	if records == nil {
		records = []models.AccuracyRecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal accuracy log: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".accuracy-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp log: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp log: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp log: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace accuracy log: %w", err)
	}
	return nil
}

// Upsert applies one day's record to a date-ascending log: when the last
// entry carries the same date it is overwritten in place (a full-day
// recompute, not an accumulation), otherwise the record is appended. The
// result is truncated to the newest max entries, oldest dropped first.
func Upsert(records []models.AccuracyRecord, rec models.AccuracyRecord, max int) []models.AccuracyRecord {
	if n := len(records); n > 0 && records[n-1].Date == rec.Date {
		records[n-1] = rec
	} else {
		records = append(records, rec)
	}
	if len(records) > max {
		records = records[len(records)-max:]
	}
	return records
}
