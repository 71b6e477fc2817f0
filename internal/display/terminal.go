package display

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/smokyabdulrahman/prayer-display/internal/board"
	"github.com/smokyabdulrahman/prayer-display/internal/clock"
	"github.com/smokyabdulrahman/prayer-display/internal/hijri"
	"github.com/smokyabdulrahman/prayer-display/internal/prayer"
)

const clearScreen = "\033[H\033[2J"

// HijriErrorMarker replaces the Hijri line when resolution failed.
const HijriErrorMarker = "Hijri date unavailable ⚠"

// GoTimeFormat maps the configured "12h"/"24h" setting to a Go layout.
func GoTimeFormat(setting string) string {
	if setting == "12h" {
		return "3:04 PM"
	}
	return "15:04"
}

// Terminal is a board.Presenter that redraws a full-screen text board.
type Terminal struct {
	mu         sync.Mutex
	w          io.Writer
	timeFormat string
	// Clear redraws in place instead of appending frames.
	Clear bool

	now       time.Time
	status    clock.Status
	schedule  *board.Schedule
	highlight *prayer.Result
	countdown *board.Countdown
	hijri     *hijri.Date
	hijriErr  bool
	notice    string
	err       error
	fatal     bool
}

var _ board.Presenter = (*Terminal)(nil)

// NewTerminal creates a presenter writing frames to w. timeFormat is "12h"
// or "24h".
func NewTerminal(w io.Writer, timeFormat string) *Terminal {
	return &Terminal{w: w, timeFormat: GoTimeFormat(timeFormat)}
}

func (t *Terminal) ClockTicked(now time.Time, status clock.Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = now
	t.status = status
	// Once loaded, CountdownTicked follows in the same second and redraws.
	if t.schedule == nil {
		t.render()
	}
}

func (t *Terminal) ScheduleLoaded(s board.Schedule) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.schedule = &s
	t.notice = ""
	t.err = nil
	t.fatal = false
}

func (t *Terminal) ActivePrayerChanged(r *prayer.Result) {
	t.mu.Lock()
	t.highlight = r
	t.mu.Unlock()
}

func (t *Terminal) CountdownTicked(c board.Countdown) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.countdown = &c
	t.render()
}

func (t *Terminal) HijriDateChanged(d hijri.Date) {
	t.mu.Lock()
	t.hijri = &d
	t.hijriErr = false
	t.mu.Unlock()
}

func (t *Terminal) HijriDateFailed(error) {
	t.mu.Lock()
	t.hijri = nil
	t.hijriErr = true
	t.mu.Unlock()
}

func (t *Terminal) Notice(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	// A notice starts a new load cycle.
	t.notice = msg
	t.schedule = nil
	t.highlight = nil
	t.countdown = nil
	t.hijri = nil
	t.hijriErr = false
	t.render()
}

func (t *Terminal) Error(err error, fatal bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.err = err
	t.fatal = fatal
	if fatal {
		t.schedule = nil
		t.countdown = nil
		t.highlight = nil
	}
	t.render()
}

func (t *Terminal) render() {
	frame := t.frame()
	if t.Clear {
		frame = clearScreen + frame
	}
	_, _ = io.WriteString(t.w, frame)
}

// Frame returns the current board as text.
func (t *Terminal) Frame() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.frame()
}

func (t *Terminal) frame() string {
	var sb strings.Builder
	sb.WriteString("\n")

	if !t.now.IsZero() {
		clockLayout := "15:04:05"
		if t.timeFormat != "15:04" {
			clockLayout = "3:04:05 PM"
		}
		fmt.Fprintf(&sb, "  %s  %s\n", Bold(t.now.Format(clockLayout)), t.now.Format("Monday, 02 January 2006"))
	}

	switch {
	case t.hijri != nil:
		fmt.Fprintf(&sb, "  %s\n", Cyan(t.hijri.Format()))
	case t.hijriErr:
		fmt.Fprintf(&sb, "  %s\n", Red(HijriErrorMarker))
	}
	sb.WriteString("\n")

	if t.schedule != nil {
		sb.WriteString(ScheduleTable(*t.schedule, t.highlight, t.timeFormat))
		sb.WriteString("\n")
	}

	if t.countdown != nil {
		fmt.Fprintf(&sb, "  %s\n", Label(t.countdown.Label))
	}

	switch {
	case t.err != nil && t.fatal:
		fmt.Fprintf(&sb, "  %s\n", Red("Error: "+t.err.Error()))
	case t.err != nil:
		fmt.Fprintf(&sb, "  %s\n", Yellow(t.err.Error()))
	case t.notice != "":
		fmt.Fprintf(&sb, "  %s\n", Dim(t.notice))
	}

	if t.status.Simulated() {
		fmt.Fprintf(&sb, "  %s\n", Yellow("["+t.status.String()+"]"))
	}
	return sb.String()
}

// ScheduleTable renders a schedule with the highlighted prayer marked.
// timeLayout is a Go time layout such as "15:04".
func ScheduleTable(s board.Schedule, highlight *prayer.Result, timeLayout string) string {
	tbl := NewTable("Prayer", "Time", "")
	for i, row := range s.Rows {
		tbl.AddRow(row.Label, formatClock(row.Time, s.Date, timeLayout), row.Detail)
		if highlight != nil && highlight.Prayer.Name == row.Name {
			tbl.Highlight(i, highlight.InAdhan)
		}
	}
	return tbl.Render()
}

// formatClock re-renders a provider "HH:MM" in the given layout. Unparseable
// values are shown as they came.
func formatClock(raw string, day time.Time, layout string) string {
	if raw == "" {
		return "--:--"
	}
	t, err := prayer.ParseTimeOfDay(raw, day)
	if err != nil {
		return raw
	}
	return t.Format(layout)
}
