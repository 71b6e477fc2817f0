package board

import (
	"time"

	"github.com/smokyabdulrahman/prayer-display/internal/clock"
	"github.com/smokyabdulrahman/prayer-display/internal/hijri"
	"github.com/smokyabdulrahman/prayer-display/internal/prayer"
)

// Presenter receives display updates from the board. All methods are called
// from the board's loop goroutine and must not block for long.
type Presenter interface {
	// ClockTicked is called every second with the current (possibly simulated) time.
	ClockTicked(now time.Time, status clock.Status)
	// ScheduleLoaded is called after every successful load.
	ScheduleLoaded(s Schedule)
	// ActivePrayerChanged is called when the highlighted prayer or its phase
	// changes. r is nil when nothing is highlighted.
	ActivePrayerChanged(r *prayer.Result)
	// CountdownTicked is called every second once data is loaded.
	CountdownTicked(c Countdown)
	// HijriDateChanged is called when the resolved Hijri date differs from
	// the one on screen.
	HijriDateChanged(d hijri.Date)
	// HijriDateFailed is called when resolution fails; the label should show
	// an error marker.
	HijriDateFailed(err error)
	// Notice carries transient status text such as "Loading prayer times...".
	Notice(msg string)
	// Error carries a load failure. Fatal errors stay until the next load.
	Error(err error, fatal bool)
}

// Schedule is the loaded prayer data for one day.
type Schedule struct {
	// Date is the civil day the schedule was loaded for.
	Date time.Time `json:"date"`
	// Tomorrow is set when the times belong to the following day.
	Tomorrow bool        `json:"tomorrow"`
	Times    prayer.Times `json:"times"`
	Rows     []Row        `json:"rows"`
}

// Row is one line of the schedule table.
type Row struct {
	Name   string `json:"name"`
	Label  string `json:"label"`
	Time   string `json:"time"`
	Detail string `json:"detail,omitempty"`
}

// Countdown is the per-second "next prayer" state.
type Countdown struct {
	Target    *prayer.Result `json:"target"`
	Remaining time.Duration  `json:"remaining"`
	Label     prayer.Label   `json:"label"`
}

// Presenters fans every update out to a list of presenters.
type Presenters []Presenter

var _ Presenter = Presenters(nil)

func (ps Presenters) ClockTicked(now time.Time, status clock.Status) {
	for _, p := range ps {
		p.ClockTicked(now, status)
	}
}

func (ps Presenters) ScheduleLoaded(s Schedule) {
	for _, p := range ps {
		p.ScheduleLoaded(s)
	}
}

func (ps Presenters) ActivePrayerChanged(r *prayer.Result) {
	for _, p := range ps {
		p.ActivePrayerChanged(r)
	}
}

func (ps Presenters) CountdownTicked(c Countdown) {
	for _, p := range ps {
		p.CountdownTicked(c)
	}
}

func (ps Presenters) HijriDateChanged(d hijri.Date) {
	for _, p := range ps {
		p.HijriDateChanged(d)
	}
}

func (ps Presenters) HijriDateFailed(err error) {
	for _, p := range ps {
		p.HijriDateFailed(err)
	}
}

func (ps Presenters) Notice(msg string) {
	for _, p := range ps {
		p.Notice(msg)
	}
}

func (ps Presenters) Error(err error, fatal bool) {
	for _, p := range ps {
		p.Error(err, fatal)
	}
}

// Nop is a Presenter that ignores everything. Embed it to implement only
// the methods a presenter cares about.
type Nop struct{}

func (Nop) ClockTicked(time.Time, clock.Status) {}
func (Nop) ScheduleLoaded(Schedule) {}
func (Nop) ActivePrayerChanged(*prayer.Result) {}
func (Nop) CountdownTicked(Countdown) {}
func (Nop) HijriDateChanged(hijri.Date) {}
func (Nop) HijriDateFailed(error) {}
func (Nop) Notice(string) {}
func (Nop) Error(error, bool) {}

// NewSchedule lays out times for the civil day of now.
func NewSchedule(rules prayer.Rules, now time.Time, times prayer.Times) Schedule {
	return Schedule{
		Date:  prayer.Midnight(now),
		Times: times.Clone(),
		Rows:  buildRows(rules, now, times),
	}
}

// buildRows lays out the effective prayers for day in display order.
func buildRows(rules prayer.Rules, day time.Time, times prayer.Times) []Row {
	entries := rules.Effective(day, times)
	rows := make([]Row, 0, len(entries))
	for _, e := range entries {
		row := Row{Name: e.Name, Label: e.Label(), Time: e.Raw}
		if e.Name == rules.Festival.Definition.Name {
			row.Detail = festivalDetail(e.Label(), day)
		}
		rows = append(rows, row)
	}
	return rows
}

// festivalDetail renders e.g. "Eid Prayer · Fri 06.06".
func festivalDetail(title string, day time.Time) string {
	return title + " · " + day.Format("Mon 02.01")
}
