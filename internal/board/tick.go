package board

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/smokyabdulrahman/prayer-display/internal/clock"
	"github.com/smokyabdulrahman/prayer-display/internal/hijri"
	"github.com/smokyabdulrahman/prayer-display/internal/prayer"
)

// tick runs once per second. Until data is loaded it only updates the clock.
func (b *Board) tick() {
	now := b.clock.Now()
	status := b.clock.Status()

	b.presenter.ClockTicked(now, status)
	b.update(func(s *Snapshot) {
		s.Now = now
		s.Clock = status
	})

	if !b.loaded {
		return
	}

	// A simulated date jump or a missed midnight timer both land here.
	if !prayer.SameDay(now, b.loadedFor) {
		b.reload("date changed")
		return
	}

	highlight := b.calc.FindActiveOrUpcoming(now, b.data)
	if !highlight.Same(b.highlight) {
		b.highlight = highlight
		b.logHighlight(highlight)
		b.presenter.ActivePrayerChanged(highlight)
	}

	next := b.calc.FindNextForDisplay(now, b.data)
	label := prayer.BuildLabel(highlight, next, now, b.opts.CountdownFormat)
	c := Countdown{Target: next, Remaining: label.Remaining, Label: label}
	b.presenter.CountdownTicked(c)
	b.update(func(s *Snapshot) {
		s.Highlight = highlight
		s.Countdown = &c
	})

	if now.Minute() != b.lastMinute {
		b.lastMinute = now.Minute()
		b.checkHijri()
	}
}

func (b *Board) logHighlight(r *prayer.Result) {
	if r == nil {
		log.Debug().Msg("no prayer highlighted")
		return
	}
	log.Info().
		Str("prayer", r.Prayer.Name).
		Str("kind", r.Kind.String()).
		Str("phase", r.Phase()).
		Time("start", r.Prayer.Start).
		Msg("highlight changed")
}

// checkHijri re-resolves the Hijri date unless a check is running or the day
// is already locked in after Maghrib.
func (b *Board) checkHijri() {
	if !b.loaded {
		return
	}
	if !b.tracker.Begin() {
		return
	}

	gen := b.gen
	now := b.clock.Now()
	maghrib := maghribOf(now, b.data)
	ctx := b.ctx

	go func() {
		d, err := b.resolver.Resolve(ctx, now, maghrib)
		b.post(func() {
			if gen != b.gen {
				return
			}
			current := b.clock.Now()
			b.applyHijri(d, err, hijri.AfterMaghrib(current, maghribOf(current, b.data)))
		})
	}()
}

func (b *Board) applyHijri(d hijri.Date, err error, afterMaghrib bool) {
	if err != nil {
		log.Error().Err(err).Msg("hijri date unavailable")
		b.tracker.Fail()
		b.presenter.HijriDateFailed(err)
		b.update(func(s *Snapshot) {
			s.Hijri = nil
			s.HijriError = err.Error()
		})
		return
	}

	if b.tracker.Complete(d, afterMaghrib) {
		log.Info().Str("hijri", d.Format()).Str("source", string(d.Source)).Msg("hijri date changed")
		b.presenter.HijriDateChanged(d)
		b.update(func(s *Snapshot) {
			s.Hijri = &d
			s.HijriError = ""
		})
	}
}

// Snapshot is a copy of the board's display state.
type Snapshot struct {
	Now        time.Time      `json:"now"`
	Clock      clock.Status   `json:"clock"`
	Loaded     bool           `json:"loaded"`
	Schedule   *Schedule      `json:"schedule,omitempty"`
	Highlight  *prayer.Result `json:"highlight,omitempty"`
	Countdown  *Countdown     `json:"countdown,omitempty"`
	Hijri      *hijri.Date    `json:"hijri,omitempty"`
	HijriError string         `json:"hijri_error,omitempty"`
	Error      string         `json:"error,omitempty"`
	Fatal      bool           `json:"fatal"`
}

// Snapshot returns the latest display state. It is safe to call from any
// goroutine.
func (b *Board) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snap
}

func (b *Board) update(fn func(s *Snapshot)) {
	b.mu.Lock()
	fn(&b.snap)
	b.mu.Unlock()
}
