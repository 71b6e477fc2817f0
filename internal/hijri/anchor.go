package hijri

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidAnchor is returned for a malformed manual anchor.
var ErrInvalidAnchor = errors.New("invalid manual anchor")

// Anchor pins one confirmed Hijri date to the Gregorian calendar. StartDate is
// the Gregorian day on whose evening (after Maghrib) StartDay of StartMonth
// begins. Every other date is counted from here with 30-day months, so the
// anchor has to be re-calibrated from time to time.
type Anchor struct {
	StartDay   int
	StartMonth string
	StartYear  int
	// StartDate is "YYYY-MM-DD".
	StartDate string
}

// DefaultAnchor is 1 Muharram 1447, beginning on the evening of 2025-06-26.
var DefaultAnchor = Anchor{StartDay: 1, StartMonth: "Muharram", StartYear: 1447, StartDate: "2025-06-26"}

// Validate checks that every field of the anchor is usable.
func (a Anchor) Validate() error {
	if a.StartDay < 1 || a.StartDay > 30 {
		return fmt.Errorf("%w: start day %d out of range 1-30", ErrInvalidAnchor, a.StartDay)
	}
	if MonthIndex(a.StartMonth) < 0 {
		return fmt.Errorf("%w: unknown month %q", ErrInvalidAnchor, a.StartMonth)
	}
	if a.StartYear <= 0 {
		return fmt.Errorf("%w: start year %d", ErrInvalidAnchor, a.StartYear)
	}
	if _, err := time.Parse("2006-01-02", a.StartDate); err != nil {
		return fmt.Errorf("%w: start date %q", ErrInvalidAnchor, a.StartDate)
	}
	return nil
}

// Calculate returns the Hijri date for the Gregorian calendar day of target.
// The caller has already moved target to tomorrow when Maghrib has passed.
func (a Anchor) Calculate(target time.Time, names MonthNames) (Date, error) {
	if err := a.Validate(); err != nil {
		return Date{}, err
	}

	loc := target.Location()
	start, _ := time.ParseInLocation("2006-01-02", a.StartDate, loc)
	calc := time.Date(target.Year(), target.Month(), target.Day(), 0, 0, 0, 0, loc)

	// Rounding absorbs 23h and 25h days around DST changes.
	offset := int(math.Round(calc.Sub(start).Hours() / 24))

	// Offset 0 is the anchor day before its Maghrib, still the day before StartDay.
	day := a.StartDay + offset - 1
	month := MonthIndex(a.StartMonth)
	year := a.StartYear

	for day <= 0 {
		month--
		if month < 0 {
			month = len(MonthOrder) - 1
			year--
		}
		day += 30
	}
	for day > 30 {
		day -= 30
		month++
		if month >= len(MonthOrder) {
			month = 0
			year++
		}
	}

	key := MonthOrder[month]
	return Date{
		Day:        day,
		Month:      Month{Number: month + 1, Key: key, Name: names.Name(key)},
		Year:       year,
		Source:     SourceManual,
		Confidence: "confirmed",
	}, nil
}
