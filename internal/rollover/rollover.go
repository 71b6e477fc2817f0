// Package rollover arms the two daily boundary timers of the board: one just
// after local midnight and one ten minutes after Maghrib.
package rollover

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// MaghribDelay is how long after Maghrib the post-Maghrib timer fires.
const MaghribDelay = 10 * time.Minute

// midnightSlack keeps the midnight timer clear of the day boundary itself.
const midnightSlack = time.Second

// NextMidnight returns 00:00:01 of the calendar day after now.
func NextMidnight(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location()).Add(midnightSlack)
}

// Scheduler owns the midnight and post-Maghrib timers. Arming a timer always
// cancels the previous one, so reloads never leave duplicates behind.
type Scheduler struct {
	mu    sync.Mutex
	clock clockwork.Clock
	loc   *time.Location

	onMidnight func()
	onMaghrib  func()

	midnight    clockwork.Timer
	midnightGen uint64
	maghrib     clockwork.Timer
	maghribGen  uint64
	stopped     bool
}

// New creates a Scheduler. Timers run on clock; midnight is computed in loc.
func New(clock clockwork.Clock, loc *time.Location, onMidnight, onMaghrib func()) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{clock: clock, loc: loc, onMidnight: onMidnight, onMaghrib: onMaghrib}
}

// ArmMidnight (re)arms the midnight timer and returns when it will fire.
// After firing it re-arms itself for the following midnight.
func (s *Scheduler) ArmMidnight() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.midnight != nil {
		s.midnight.Stop()
	}
	if s.stopped {
		return time.Time{}
	}

	now := s.clock.Now().In(s.loc)
	at := NextMidnight(now)
	s.midnightGen++
	gen := s.midnightGen
	s.midnight = s.clock.AfterFunc(at.Sub(now), func() { s.fireMidnight(gen) })

	log.Debug().Time("at", at).Msg("midnight timer armed")
	return at
}

func (s *Scheduler) fireMidnight(gen uint64) {
	s.mu.Lock()
	current := gen == s.midnightGen && !s.stopped
	s.mu.Unlock()
	if !current {
		return
	}

	log.Info().Msg("midnight rollover")
	if s.onMidnight != nil {
		s.onMidnight()
	}
	s.ArmMidnight()
}

// ArmMaghrib (re)arms the post-Maghrib timer to fire MaghribDelay after
// maghrib, measured against now. Nothing is armed when that moment has
// already passed; any earlier timer is cancelled either way.
func (s *Scheduler) ArmMaghrib(maghrib, now time.Time) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelMaghribLocked()
	if s.stopped || maghrib.IsZero() {
		return time.Time{}, false
	}

	at := maghrib.Add(MaghribDelay)
	delay := at.Sub(now)
	if delay <= 0 {
		log.Debug().Time("maghrib", maghrib).Msg("post-maghrib moment already passed, not arming")
		return time.Time{}, false
	}

	s.maghribGen++
	gen := s.maghribGen
	s.maghrib = s.clock.AfterFunc(delay, func() { s.fireMaghrib(gen) })

	log.Debug().Time("at", at).Dur("delay", delay).Msg("post-maghrib timer armed")
	return at, true
}

func (s *Scheduler) fireMaghrib(gen uint64) {
	s.mu.Lock()
	current := gen == s.maghribGen && !s.stopped
	if current {
		s.maghrib = nil
	}
	s.mu.Unlock()
	if !current {
		return
	}

	log.Info().Msg("post-maghrib rollover")
	if s.onMaghrib != nil {
		s.onMaghrib()
	}
}

// CancelMaghrib disarms the post-Maghrib timer.
func (s *Scheduler) CancelMaghrib() {
	s.mu.Lock()
	s.cancelMaghribLocked()
	s.mu.Unlock()
}

func (s *Scheduler) cancelMaghribLocked() {
	if s.maghrib != nil {
		s.maghrib.Stop()
		s.maghrib = nil
	}
	s.maghribGen++
}

// Stop disarms both timers for good.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	if s.midnight != nil {
		s.midnight.Stop()
	}
	s.midnightGen++
	s.cancelMaghribLocked()
}
