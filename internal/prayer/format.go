package prayer

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"text/template"
	"time"
	"unicode"
	"unicode/utf8"
)

// Format constants for one-shot display modes.
const (
	FormatTimeRemaining      = "time-remaining"
	FormatNextPrayerTime     = "next-prayer-time"
	FormatNameAndTime        = "name-and-time"
	FormatNameAndRemaining   = "name-and-remaining"
	FormatShortNameAndTime   = "short-name-and-time"
	FormatShortNameAndRemain = "short-name-and-remaining"
	FormatFull               = "full"
)

// DefaultCountdownFormat renders the board's "next prayer" label.
const DefaultCountdownFormat = "{{.Name}} in {{.Remaining}}"

// FormatData is the data passed to custom Go templates.
type FormatData struct {
	Name      string // Display name, e.g. "Asr" or "Ishaa"
	ShortName string // Abbreviated name, e.g. "A"
	Time      string // Formatted prayer time, e.g. "15:02" or "3:02 PM"
	Remaining string // Time remaining, e.g. "2h 15m" or "42s"
	Hours     int    // Whole hours remaining
	Minutes   int    // Remaining minutes after hours
	Seconds   int    // Seconds remaining, rounded up, when under a minute
}

// FormatRemaining formats a duration as "Xh Ym" or "Ym" if less than an hour.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		return "0m"
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60

	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}

// Countdown formats the time left until a prayer. Under a minute it counts
// whole seconds, rounded up. It returns "" once the target has been reached.
func Countdown(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", secondsUp(d))
	}
	return FormatRemaining(d)
}

func secondsUp(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}

func newFormatData(p Instant, now time.Time, timeFormat string) FormatData {
	d := p.Start.Sub(now)
	data := FormatData{
		Name:      p.Label(),
		ShortName: ShortNames[p.Name],
		Time:      p.Start.Format(timeFormat),
		Remaining: FormatRemaining(d),
		Hours:     int(d.Hours()),
		Minutes:   int(d.Minutes()) % 60,
	}
	if d > 0 && d < time.Minute {
		data.Seconds = secondsUp(d)
	}
	return data
}

// FormatOutput formats a prayer for display according to the chosen format mode.
// timeFormat should be "15:04" for 24h or "3:04 PM" for 12h.
//
// If mode contains "{{", it is treated as a custom Go template string.
// Available template fields: .Name, .ShortName, .Time, .Remaining, .Hours, .Minutes, .Seconds
//
// Example: "{{.Name}} in {{.Remaining}}" -> "Asr in 2h 15m"
func FormatOutput(p Instant, now time.Time, mode string, timeFormat string) string {
	data := newFormatData(p, now, timeFormat)

	if strings.Contains(mode, "{{") {
		return formatCustom(mode, data)
	}

	switch mode {
	case FormatTimeRemaining:
		return data.Remaining
	case FormatNextPrayerTime:
		return data.Time
	case FormatNameAndTime:
		return fmt.Sprintf("%s %s", data.Name, data.Time)
	case FormatNameAndRemaining:
		return fmt.Sprintf("%s %s", data.Name, data.Remaining)
	case FormatShortNameAndTime:
		return fmt.Sprintf("%s %s", data.ShortName, data.Time)
	case FormatShortNameAndRemain:
		return fmt.Sprintf("%s %s", data.ShortName, data.Remaining)
	case FormatFull:
		return fmt.Sprintf("%s %s (%s)", data.Name, data.Time, data.Remaining)
	default:
		return fmt.Sprintf("%s %s", data.Name, data.Time)
	}
}

// formatCustom executes a user-provided Go template string against the FormatData.
func formatCustom(tmpl string, data FormatData) string {
	t, err := template.New("custom").Parse(tmpl)
	if err != nil {
		return fmt.Sprintf("template-err: %v", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return fmt.Sprintf("template-err: %v", err)
	}

	return buf.String()
}

// Tone tells a presenter how to style the countdown label.
type Tone string

const (
	ToneLoading   Tone = "loading"
	ToneWaiting   Tone = "waiting"
	ToneAdhan     Tone = "adhan"
	ToneIqama     Tone = "iqama"
	ToneCountdown Tone = "countdown"
	ToneRefresh   Tone = "refresh"
)

// Label is the "next prayer" line of the board.
type Label struct {
	Text  string `json:"text"`
	Blink bool   `json:"blink"`
	Tone  Tone   `json:"tone"`
	// Remaining is the time left until the countdown target, zero otherwise.
	Remaining time.Duration `json:"remaining"`
}

// BuildLabel derives the countdown label. During the Adhan phase it reads
// "Adhan" and blinks; during Iqama it shows the prayer's display name;
// otherwise it counts down to next using format (DefaultCountdownFormat when empty).
func BuildLabel(highlight, next *Result, now time.Time, format string) Label {
	if highlight != nil && highlight.Kind == Active && highlight.Prayer.Contains(now) {
		if highlight.InAdhan {
			return Label{Text: "Adhan", Blink: true, Tone: ToneAdhan}
		}
		return Label{Text: highlight.Prayer.Label(), Tone: ToneIqama}
	}

	if next == nil {
		return Label{Text: "Waiting...", Tone: ToneWaiting}
	}

	d := next.Prayer.Start.Sub(now)
	remaining := Countdown(d)
	if remaining == "" {
		return Label{Text: "Refreshing times...", Tone: ToneRefresh}
	}

	if format == "" {
		format = DefaultCountdownFormat
	}
	data := newFormatData(next.Prayer, now, "15:04")
	data.Name = capitalize(data.Name)
	data.Remaining = remaining
	return Label{Text: formatCustom(format, data), Tone: ToneCountdown, Remaining: d}
}

// capitalize upper-cases the first character, which may be multi-byte.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
