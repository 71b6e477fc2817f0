// Package clock resolves the display's notion of "now".
//
// A Source wraps a real clock and layers two independent operator overrides
// on top of it: a simulated calendar date and a simulated time of day. The
// simulated time of day keeps running in real time from the moment it was set,
// so a display put into "05:30" shows 05:30:05 five seconds later.
package clock

import (
	"fmt"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DateLayout is the accepted format for a simulated date.
const DateLayout = "2006-01-02"

var (
	dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timeRe = regexp.MustCompile(`^(\d{1,2}):(\d{1,2})(?::(\d{1,2}))?$`)
)

// ValidationError reports operator input that was rejected.
// The override state is left untouched when it is returned.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// civilDate is a calendar date without a time of day.
type civilDate struct {
	year  int
	month time.Month
	day   int
}

// splice returns t with its calendar date replaced by d.
func (d civilDate) splice(t time.Time) time.Time {
	return time.Date(d.year, d.month, d.day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func (d civilDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.year, d.month, d.day)
}

// simulatedTime is a time of day anchored to the real instant it was set at.
type simulatedTime struct {
	value time.Time
	setAt time.Time
}

// Source is the process-wide time source. All methods are safe for
// concurrent use; the operator surface and the display loop share one Source.
type Source struct {
	mu     sync.Mutex
	base   clockwork.Clock
	loc    *time.Location
	offset time.Duration

	date *civilDate
	tod  *simulatedTime

	onChange func()
}

// New creates a Source reading base and reporting wall-clock time in loc.
// A nil loc means time.Local.
func New(base clockwork.Clock, loc *time.Location) *Source {
	if loc == nil {
		loc = time.Local
	}
	return &Source{base: base, loc: loc}
}

// Base returns the underlying real clock. Timers are always armed against it.
func (s *Source) Base() clockwork.Clock {
	return s.base
}

// Location returns the wall-clock location of the display.
func (s *Source) Location() *time.Location {
	return s.loc
}

// SetOffset sets the signed global offset added to every system reading.
// A positive offset moves the display clock ahead of the system clock.
func (s *Source) SetOffset(d time.Duration) {
	s.mu.Lock()
	s.offset = d
	s.mu.Unlock()
}

// OnChange registers the callback invoked after every successful override
// change or reset. The display registers its reload here once at startup.
func (s *Source) OnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// system reads the real clock with the global offset applied.
func (s *Source) system() time.Time {
	return s.base.Now().Add(s.offset).In(s.loc)
}

// Now returns the current instant as seen by the display.
func (s *Source) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	sys := s.system()
	switch {
	case s.tod != nil:
		sim := s.tod.value.Add(sys.Sub(s.tod.setAt))
		if s.date != nil {
			return s.date.splice(sim)
		}
		return sim
	case s.date != nil:
		return s.date.splice(sys)
	default:
		return sys
	}
}

// Set applies a simulated date and time of day in one step. An empty string
// clears that override. Both values are validated before anything changes,
// so a bad time leaves a previously set date (and time) in place.
func (s *Source) Set(date, timeOfDay string) error {
	var (
		d   *civilDate
		hms [3]int
	)
	if date != "" {
		parsed, err := ParseDate(date)
		if err != nil {
			return err
		}
		d = &civilDate{year: parsed.Year(), month: parsed.Month(), day: parsed.Day()}
	}
	if timeOfDay != "" {
		h, m, sec, err := ParseTimeOfDay(timeOfDay)
		if err != nil {
			return err
		}
		hms = [3]int{h, m, sec}
	}

	s.mu.Lock()
	s.date = d
	if timeOfDay == "" {
		s.tod = nil
	} else {
		sys := s.system()
		s.tod = &simulatedTime{
			value: time.Date(sys.Year(), sys.Month(), sys.Day(), hms[0], hms[1], hms[2], 0, s.loc),
			setAt: sys,
		}
	}
	fn := s.onChange
	s.mu.Unlock()

	if fn != nil {
		fn()
	}
	return nil
}

// Reset clears both overrides, restoring pure real time.
func (s *Source) Reset() {
	s.mu.Lock()
	s.date = nil
	s.tod = nil
	fn := s.onChange
	s.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Status describes which overrides are active.
type Status struct {
	Date   string        `json:"date,omitempty"`
	Time   bool          `json:"time"`
	Offset time.Duration `json:"offset"`
}

// Simulated reports whether any override is active.
func (st Status) Simulated() bool {
	return st.Date != "" || st.Time
}

// String renders the status line shown on the operator panel.
func (st Status) String() string {
	switch {
	case st.Date != "" && st.Time:
		return "simulated date " + st.Date + " & time"
	case st.Date != "":
		return "simulated date " + st.Date
	case st.Time:
		return "simulated time"
	default:
		return "real time"
	}
}

// Status returns a snapshot of the override state.
func (s *Source) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{Time: s.tod != nil, Offset: s.offset}
	if s.date != nil {
		st.Date = s.date.String()
	}
	return st
}

// ParseDate validates a YYYY-MM-DD string and returns midnight UTC of that date.
func ParseDate(v string) (time.Time, error) {
	if !dateRe.MatchString(v) {
		return time.Time{}, &ValidationError{Field: "date", Value: v, Reason: "expected YYYY-MM-DD"}
	}
	t, err := time.Parse(DateLayout, v)
	if err != nil {
		return time.Time{}, &ValidationError{Field: "date", Value: v, Reason: "not a calendar date"}
	}
	return t, nil
}

// ParseTimeOfDay validates an HH:MM or HH:MM:SS string and returns its fields.
func ParseTimeOfDay(v string) (hour, minute, second int, err error) {
	m := timeRe.FindStringSubmatch(v)
	if m == nil {
		return 0, 0, 0, &ValidationError{Field: "time", Value: v, Reason: "expected HH:MM or HH:MM:SS"}
	}
	hour, _ = strconv.Atoi(m[1])
	minute, _ = strconv.Atoi(m[2])
	if m[3] != "" {
		second, _ = strconv.Atoi(m[3])
	}
	if hour > 23 || minute > 59 || second > 59 {
		return 0, 0, 0, &ValidationError{Field: "time", Value: v, Reason: "hour must be 0-23, minute and second 0-59"}
	}
	return hour, minute, second, nil
}
