package prayer

import (
	"sort"
	"time"

	"github.com/rs/zerolog/log"
)

// Kind classifies the prayer returned by the window calculator.
type Kind int

const (
	// Active means now is inside the prayer's [start, iqamaEnd) window.
	Active Kind = iota
	// Upcoming means the prayer starts later today.
	Upcoming
	// NextDayFajr means every prayer today has ended; the result is tomorrow's Fajr.
	NextDayFajr
)

func (k Kind) String() string {
	switch k {
	case Active:
		return "active"
	case Upcoming:
		return "upcoming"
	case NextDayFajr:
		return "next-day-fajr"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Result is the prayer the display should act on.
type Result struct {
	Kind    Kind    `json:"kind"`
	Prayer  Instant `json:"prayer"`
	InAdhan bool    `json:"in_adhan"`
}

// Phase names the sub-phase of an active prayer.
func (r *Result) Phase() string {
	switch {
	case r == nil || r.Kind != Active:
		return "none"
	case r.InAdhan:
		return "adhan"
	default:
		return "iqama"
	}
}

// Same reports whether two results point at the same prayer in the same phase.
func (r *Result) Same(o *Result) bool {
	if r == nil || o == nil {
		return r == o
	}
	return r.Kind == o.Kind && r.InAdhan == o.InAdhan &&
		r.Prayer.Name == o.Prayer.Name && r.Prayer.Start.Equal(o.Prayer.Start)
}

// Calculator evaluates prayer windows for a set of rules.
type Calculator struct {
	Rules Rules
}

// NewCalculator creates a Calculator for rules.
func NewCalculator(rules Rules) *Calculator {
	return &Calculator{Rules: rules}
}

// Instants resolves today's effective prayers against now's calendar date,
// sorted by start. Prayers whose time is missing or unparseable are logged
// and skipped; the returned errors describe them.
func (c *Calculator) Instants(now time.Time, times Times) ([]Instant, []error) {
	var (
		out  []Instant
		errs []error
	)
	for _, e := range c.Rules.Effective(now, times) {
		inst, err := resolve(e.Definition, e.Raw, now)
		if err != nil {
			log.Warn().Err(err).Str("prayer", e.Name).Msg("skipping prayer")
			errs = append(errs, err)
			continue
		}
		out = append(out, inst)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})
	return out, errs
}

// FindActiveOrUpcoming returns the prayer whose window contains now, else the
// earliest prayer starting after now, else tomorrow's Fajr. It returns nil
// only when no times are loaded.
func (c *Calculator) FindActiveOrUpcoming(now time.Time, times Times) *Result {
	if len(times) == 0 {
		return nil
	}
	instants, _ := c.Instants(now, times)

	for _, p := range instants {
		if p.Contains(now) {
			return &Result{Kind: Active, Prayer: p, InAdhan: p.InAdhan(now)}
		}
	}
	if p, ok := firstAfter(instants, now); ok {
		return &Result{Kind: Upcoming, Prayer: p}
	}
	return c.tomorrowFajr(now, times)
}

// FindNextForDisplay returns the prayer the countdown label refers to: the one
// whose window contains now, else the earliest future start, else tomorrow's
// Fajr. It ignores the Adhan/Iqama distinction.
func (c *Calculator) FindNextForDisplay(now time.Time, times Times) *Result {
	r := c.FindActiveOrUpcoming(now, times)
	if r != nil {
		r.InAdhan = false
	}
	return r
}

func (c *Calculator) tomorrowFajr(now time.Time, times Times) *Result {
	def, ok := c.Rules.Lookup(Fajr)
	if !ok {
		def = Definition{Name: Fajr}
	}
	inst, err := resolve(def, times[Fajr], Tomorrow(now))
	if err != nil {
		log.Warn().Err(err).Msg("cannot build tomorrow's fajr")
		return nil
	}
	return &Result{Kind: NextDayFajr, Prayer: inst}
}

func firstAfter(instants []Instant, now time.Time) (Instant, bool) {
	for _, p := range instants {
		if p.Start.After(now) {
			return p, true
		}
	}
	return Instant{}, false
}

func resolve(def Definition, raw string, day time.Time) (Instant, error) {
	if raw == "" {
		return Instant{}, &DataError{Prayer: def.Name, Err: ErrMissing}
	}
	start, err := ParseTimeOfDay(raw, day)
	if err != nil {
		return Instant{}, &DataError{Prayer: def.Name, Value: raw, Err: err}
	}
	return NewInstant(def, start), nil
}
