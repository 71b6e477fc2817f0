package prayer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Canonical prayer names as returned by the timing provider, plus the two
// substitutable slots.
const (
	Fajr    = "Fajr"
	Sunrise = "Sunrise"
	Dhuhr   = "Dhuhr"
	Asr     = "Asr"
	Maghrib = "Maghrib"
	Isha    = "Isha"
	Jumaa   = "Jumaa"
	Eid     = "Eid"
)

// CanonicalNames are the five daily prayers, in chronological order.
var CanonicalNames = []string{Fajr, Dhuhr, Asr, Maghrib, Isha}

// ShortNames maps prayer names to one or two character abbreviations.
var ShortNames = map[string]string{
	Fajr:    "F",
	Sunrise: "S",
	Dhuhr:   "D",
	Asr:     "A",
	Maghrib: "M",
	Isha:    "I",
	Jumaa:   "J",
	Eid:     "E",
}

// Definition is the static configuration of one prayer slot.
type Definition struct {
	Name         string `json:"name"`
	DisplayName  string `json:"display_name,omitempty"`
	AdhanMinutes int    `json:"adhan_minutes"`
	IqamaMinutes int    `json:"iqama_minutes"`
}

// Label returns the display name, falling back to Name.
func (d Definition) Label() string {
	if d.DisplayName != "" {
		return d.DisplayName
	}
	return d.Name
}

// Instant is a Definition resolved against a calendar day.
type Instant struct {
	Definition
	Start    time.Time `json:"start"`
	AdhanEnd time.Time `json:"adhan_end"`
	IqamaEnd time.Time `json:"iqama_end"`
}

// NewInstant computes the Adhan and Iqama window ends for a prayer starting at start.
func NewInstant(def Definition, start time.Time) Instant {
	adhanEnd := start.Add(time.Duration(def.AdhanMinutes) * time.Minute)
	return Instant{
		Definition: def,
		Start:      start,
		AdhanEnd:   adhanEnd,
		IqamaEnd:   adhanEnd.Add(time.Duration(def.IqamaMinutes) * time.Minute),
	}
}

// Contains reports whether now falls inside [Start, IqamaEnd).
func (p Instant) Contains(now time.Time) bool {
	return !now.Before(p.Start) && now.Before(p.IqamaEnd)
}

// InAdhan reports whether now falls inside [Start, AdhanEnd).
func (p Instant) InAdhan(now time.Time) bool {
	return !now.Before(p.Start) && now.Before(p.AdhanEnd)
}

// Times maps prayer names to raw "HH:MM" strings for one civil day.
type Times map[string]string

// Clone returns a copy of t.
func (t Times) Clone() Times {
	out := make(Times, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// ErrMissing is wrapped by DataError when a prayer has no time at all.
var ErrMissing = errors.New("missing time")

// DataError reports a prayer whose time could not be used. The prayer is
// skipped from window calculations.
type DataError struct {
	Prayer string
	Value  string
	Err    error
}

func (e *DataError) Error() string {
	return fmt.Sprintf("prayer %s (%q): %v", e.Prayer, e.Value, e.Err)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// ParseTimeOfDay parses a time string like "15:02" or "15:02 (BST)" into a
// time.Time on the calendar day of date, in date's location.
func ParseTimeOfDay(raw string, date time.Time) (time.Time, error) {
	// Strip timezone suffix like " (BST)" that the API sometimes appends.
	s := strings.TrimSpace(raw)
	if idx := strings.Index(s, " "); idx != -1 {
		s = s[:idx]
	}

	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return time.Time{}, fmt.Errorf("invalid time format: %q", raw)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid hour in %q: %w", raw, err)
	}
	min, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid minute in %q: %w", raw, err)
	}
	if hour < 0 || hour > 23 || min < 0 || min > 59 {
		return time.Time{}, fmt.Errorf("time out of range: %q", raw)
	}

	return time.Date(date.Year(), date.Month(), date.Day(), hour, min, 0, 0, date.Location()), nil
}

// Midnight returns the start of t's calendar day in t's location.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Tomorrow returns the start of the calendar day after t.
func Tomorrow(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
