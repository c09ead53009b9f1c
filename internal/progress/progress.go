// Package progress computes treatment timeline stats from the
// configured start and transfer dates.
package progress

import (
	"math"
	"time"

	apperrors "github.com/kristoffersk85-png/ivf-medicinpaminnare/internal/errors"
)

const dateLayout = "2006-01-02"

// Summary describes how far along the treatment period is.
type Summary struct {
	Percent  int `json:"percent"`
	DaysLeft int `json:"daysLeft"`
	DaysGone int `json:"daysGone"`
	Span     int `json:"span"`
}

// ParseDate parses a YYYY-MM-DD date string.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, apperrors.Wrap(err, apperrors.ErrDateInvalid.Code, apperrors.ErrDateInvalid.Message)
	}
	return t, nil
}

// FormatDate renders a time as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// DaysBetween returns the whole calendar days from a to b. Negative
// when b precedes a. Both times are truncated to local midnight first
// so DST shifts cannot skew the count.
func DaysBetween(a, b time.Time) int {
	am := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bm := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(math.Round(bm.Sub(am).Hours() / 24))
}

// DayNumber returns the 1-based treatment day for today. The start
// date itself is day 1; days before start go to zero and below.
func DayNumber(startDate string, today time.Time) (int, error) {
	start, err := ParseDate(startDate)
	if err != nil {
		return 0, err
	}
	return DaysBetween(start, today) + 1, nil
}

// Compute derives the timeline summary between start and transfer as
// seen from today. A span shorter than one day is clamped to one so
// the percentage is always defined.
func Compute(startDate, transferDate string, today time.Time) (Summary, error) {
	start, err := ParseDate(startDate)
	if err != nil {
		return Summary{}, err
	}
	transfer, err := ParseDate(transferDate)
	if err != nil {
		return Summary{}, err
	}

	span := DaysBetween(start, transfer)
	if span < 1 {
		span = 1
	}

	gone := DaysBetween(start, today)
	ratio := float64(gone) / float64(span)
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}

	daysLeft := DaysBetween(today, transfer)
	if daysLeft < 0 {
		daysLeft = 0
	}

	return Summary{
		Percent:  int(math.Round(ratio * 100)),
		DaysLeft: daysLeft,
		DaysGone: gone,
		Span:     span,
	}, nil
}
