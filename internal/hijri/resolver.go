package hijri

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Mode selects how the Hijri date is obtained.
type Mode string

const (
	ModeAPI    Mode = "api"
	ModeManual Mode = "manual"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeAPI, ModeManual:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("invalid hijri mode %q: must be api or manual", s)
	}
}

// Fetcher asks an external service for the Hijri date of a Gregorian day.
type Fetcher interface {
	FetchHijri(ctx context.Context, date time.Time) (Date, error)
}

// Resolver determines the Hijri date for "today".
type Resolver struct {
	Mode    Mode
	Anchor  Anchor
	Names   MonthNames
	Fetcher Fetcher
}

// AfterMaghrib reports whether now is at or past maghrib. A zero maghrib
// means Maghrib is unknown, which counts as not passed.
func AfterMaghrib(now, maghrib time.Time) bool {
	return !maghrib.IsZero() && !now.Before(maghrib)
}

// Target returns the Gregorian day the Hijri date is resolved for.
func Target(now, maghrib time.Time) time.Time {
	if AfterMaghrib(now, maghrib) {
		return now.AddDate(0, 0, 1)
	}
	return now
}

// Resolve returns the Hijri date in effect at now, given today's Maghrib.
func (r *Resolver) Resolve(ctx context.Context, now, maghrib time.Time) (Date, error) {
	target := Target(now, maghrib)

	if r.Mode == ModeManual {
		return r.Anchor.Calculate(target, r.Names)
	}

	if r.Fetcher == nil {
		return Date{}, fmt.Errorf("hijri mode %q has no fetcher", r.Mode)
	}
	d, err := r.Fetcher.FetchHijri(ctx, target)
	if err != nil {
		return Date{}, fmt.Errorf("failed to fetch hijri date for %s: %w", target.Format("2006-01-02"), err)
	}
	d.Source = SourceAPI
	if d.Confidence == "" {
		d.Confidence = "confirmed"
	}
	d.Month.Name = r.Names.Name(d.Month.Key)

	log.Debug().
		Str("date", target.Format("2006-01-02")).
		Str("hijri", d.Format()).
		Msg("hijri date fetched")
	return d, nil
}
