package models

import (
	"errors"
	"time"
)

// DateLayout is the calendar-day key format used by the accuracy log.
const DateLayout = "2006-01-02"

// AccuracyRecord is one calendar day's prediction-accuracy result. It is
// the only entity with durable cross-run state: created the first time a
// date settles, overwritten in place on later settlements of the same
// date, frozen once a newer date is appended.
type AccuracyRecord struct {
	Date        string  `json:"date"`
	Correct     int     `json:"correct"`
	Total       int     `json:"total"`
	AccuracyPct float64 `json:"accuracy_pct"`
}

// NewAccuracyRecord builds a record for the given day from run totals.
func NewAccuracyRecord(day time.Time, correct, total int) AccuracyRecord {
	rec := AccuracyRecord{
		Date:    day.Format(DateLayout),
		Correct: correct,
		Total:   total,
	}
	if total > 0 {
		rec.AccuracyPct = float64(correct) / float64(total) * 100
	}
	return rec
}

// Validate checks record field constraints.
func (r *AccuracyRecord) Validate() error {
	if _, err := time.Parse(DateLayout, r.Date); err != nil {
		return errors.New("accuracy record date must be YYYY-MM-DD")
	}
	if r.Correct < 0 || r.Total < 0 {
		return errors.New("accuracy counts must not be negative")
	}
	if r.Correct > r.Total {
		return errors.New("correct count must not exceed total")
	}
	return nil
}
