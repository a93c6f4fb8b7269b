package domain

import (
	"fmt"
	"time"
)

// ParseInterval maps the query value to an interval; empty means day.
func ParseInterval(s string) (TrendInterval, bool) {
	switch TrendInterval(s) {
	case "", IntervalDay:
		return IntervalDay, true
	case IntervalWeek:
		return IntervalWeek, true
	case IntervalMonth:
		return IntervalMonth, true
	}
	return "", false
}

// Bucket returns the UTC bucket label for t: 2006-01-02, 2006-W01 (ISO week)
// or 2006-01. Stores must produce the same labels.
func (i TrendInterval) Bucket(t time.Time) string {
	t = t.UTC()
	switch i {
	case IntervalWeek:
		y, w := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", y, w)
	case IntervalMonth:
		return t.Format("2006-01")
	default:
		return t.Format("2006-01-02")
	}
}

// Contains reports whether t falls inside the inclusive window.
func (w DateWindow) Contains(t time.Time) bool {
	if w.From != nil && t.Before(*w.From) {
		return false
	}
	if w.To != nil && t.After(*w.To) {
		return false
	}
	return true
}
