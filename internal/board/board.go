// Package board drives the prayer display: it loads the day's prayer times
// and Hijri date, evaluates the highlighted prayer and countdown every
// second, and reloads at the daily boundaries.
//
// All display state is owned by a single loop goroutine started by Run.
// Network work runs on worker goroutines whose results are posted back to
// the loop, so the per-second tick never waits on a fetch.
package board

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/smokyabdulrahman/prayer-display/internal/clock"
	"github.com/smokyabdulrahman/prayer-display/internal/hijri"
	"github.com/smokyabdulrahman/prayer-display/internal/prayer"
	"github.com/smokyabdulrahman/prayer-display/internal/rollover"
)

// ErrLoadFailed is returned (wrapped) once every load attempt has failed.
var ErrLoadFailed = errors.New("failed to load prayer times")

const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = 2 * time.Second
)

// TimesProvider fetches the raw prayer times of one day.
type TimesProvider interface {
	PrayerTimes(ctx context.Context, date time.Time) (prayer.Times, error)
}

// HijriResolver resolves the Hijri date in effect at now.
type HijriResolver interface {
	Resolve(ctx context.Context, now, maghrib time.Time) (hijri.Date, error)
}

// Options tunes a Board.
type Options struct {
	Rules           prayer.Rules
	CountdownFormat string

	// MaxRetries is the number of retries after the first failed load.
	MaxRetries int
	RetryDelay time.Duration

	// JumaaTime and IshaTime ("HH:MM") replace the fetched times when set.
	JumaaTime string
	IshaTime  string

	// LoadTomorrow makes the first load fetch tomorrow's schedule. It is set
	// after a post-Maghrib restart.
	LoadTomorrow bool

	// Restart replaces the running process after Maghrib. When it is nil or
	// fails, the board reloads in-process with LoadTomorrow semantics.
	Restart func() error
}

// Board is the display controller.
type Board struct {
	clock     *clock.Source
	times     TimesProvider
	resolver  HijriResolver
	presenter Presenter
	opts      Options
	calc      *prayer.Calculator
	tracker   hijri.Tracker
	sched     *rollover.Scheduler

	ctx    context.Context
	events chan func()
	done   chan struct{}

	// Owned by the loop goroutine.
	loaded       bool
	data         prayer.Times
	loadedFor    time.Time
	cycleDay     time.Time
	gen          uint64
	attempt      int
	retry        clockwork.Timer
	loadTomorrow bool
	highlight    *prayer.Result
	lastMinute   int

	mu   sync.RWMutex
	snap Snapshot
}

// New creates a Board. Call Run to start it.
func New(src *clock.Source, times TimesProvider, resolver HijriResolver, p Presenter, opts Options) *Board {
	if p == nil {
		p = Nop{}
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &Board{
		clock:        src,
		times:        times,
		resolver:     resolver,
		presenter:    p,
		opts:         opts,
		calc:         prayer.NewCalculator(opts.Rules),
		ctx:          context.Background(),
		events:       make(chan func(), 32),
		done:         make(chan struct{}),
		loadTomorrow: opts.LoadTomorrow,
		lastMinute:   -1,
	}
}

// Run starts the board and blocks until ctx is cancelled.
func (b *Board) Run(ctx context.Context) error {
	b.ctx = ctx
	base := b.clock.Base()

	b.sched = rollover.New(base, b.clock.Location(),
		func() { b.post(b.onMidnight) },
		func() { b.post(b.onMaghrib) },
	)
	defer b.sched.Stop()

	b.clock.OnChange(func() { b.post(b.onOverrideChanged) })
	defer b.clock.OnChange(nil)

	ticker := base.NewTicker(time.Second)
	defer ticker.Stop()
	defer close(b.done)

	at := b.sched.ArmMidnight()
	log.Debug().Time("at", at).Msg("midnight reload armed")

	b.reload("startup")
	b.tick()

	for {
		select {
		case <-ctx.Done():
			b.stopRetry()
			log.Info().Msg("board stopped")
			return nil
		case <-ticker.Chan():
			b.tick()
		case fn := <-b.events:
			fn()
		}
	}
}

// RequestReload schedules a full data reload.
func (b *Board) RequestReload() {
	b.post(func() { b.reload("requested") })
}

// RequestHijriCheck schedules a Hijri date check, e.g. after the screen
// becomes visible again.
func (b *Board) RequestHijriCheck() {
	b.post(b.checkHijri)
}

func (b *Board) post(fn func()) {
	select {
	case b.events <- fn:
	case <-b.done:
	}
}

// reload starts a new load cycle. Results of older cycles are discarded.
func (b *Board) reload(reason string) {
	b.gen++
	b.cycleDay = prayer.Midnight(b.clock.Now())
	b.attempt = 0
	b.stopRetry()
	b.sched.CancelMaghrib()

	b.loaded = false
	b.highlight = nil
	b.lastMinute = -1
	b.tracker.Clear()

	tomorrow := b.loadTomorrow
	b.loadTomorrow = false

	log.Info().Str("reason", reason).Bool("tomorrow", tomorrow).Msg("loading prayer times")
	b.presenter.Notice("Loading prayer times...")
	b.update(func(s *Snapshot) {
		s.Loaded = false
		s.Error = ""
		s.Fatal = false
		s.Hijri = nil
		s.HijriError = ""
		s.Highlight = nil
		s.Countdown = nil
	})

	b.startAttempt(b.gen, tomorrow)
}

type loadResult struct {
	times        prayer.Times
	err          error
	hijri        hijri.Date
	hijriErr     error
	afterMaghrib bool
}

func (b *Board) startAttempt(gen uint64, tomorrow bool) {
	now := b.clock.Now()
	day := now
	if tomorrow {
		day = prayer.Tomorrow(now)
	}
	ctx := b.ctx

	go func() {
		res := b.fetch(ctx, now, day)
		b.post(func() { b.finishLoad(gen, tomorrow, res) })
	}()
}

// fetch loads prayer times and then the Hijri date, which needs Maghrib.
func (b *Board) fetch(ctx context.Context, now, day time.Time) loadResult {
	times, err := b.times.PrayerTimes(ctx, day)
	if err != nil {
		return loadResult{err: err}
	}
	times = MergeLocalTimes(times, b.opts.JumaaTime, b.opts.IshaTime)

	res := loadResult{times: times}
	maghrib := maghribOf(now, times)
	res.afterMaghrib = hijri.AfterMaghrib(now, maghrib)
	res.hijri, res.hijriErr = b.resolver.Resolve(ctx, now, maghrib)
	return res
}

// MergeLocalTimes returns a copy of times with the locally fixed Jumaa and
// Isha times applied. Empty values keep the fetched time.
func MergeLocalTimes(times prayer.Times, jumaa, isha string) prayer.Times {
	times = times.Clone()
	if jumaa != "" {
		times[prayer.Jumaa] = jumaa
	}
	if isha != "" {
		times[prayer.Isha] = isha
	}
	return times
}

func (b *Board) finishLoad(gen uint64, tomorrow bool, res loadResult) {
	if gen != b.gen {
		log.Debug().Uint64("gen", gen).Msg("discarding stale load result")
		return
	}
	if res.err != nil {
		b.loadFailed(gen, tomorrow, res.err)
		return
	}

	now := b.clock.Now()
	b.attempt = 0
	b.data = res.times
	b.loadedFor = prayer.Midnight(now)

	sched := NewSchedule(b.opts.Rules, now, res.times)
	sched.Tomorrow = tomorrow
	b.presenter.ScheduleLoaded(sched)
	b.update(func(s *Snapshot) { s.Schedule = &sched })

	b.applyHijri(res.hijri, res.hijriErr, res.afterMaghrib)

	b.loaded = true
	// The load just resolved the Hijri date; the next check is due next minute.
	b.lastMinute = now.Minute()
	b.update(func(s *Snapshot) {
		s.Loaded = true
		s.Error = ""
		s.Fatal = false
	})
	log.Info().Int("prayers", len(res.times)).Str("date", now.Format("2006-01-02")).Msg("prayer times loaded")

	b.armMaghrib(now)
	b.tick()
}

func (b *Board) loadFailed(gen uint64, tomorrow bool, err error) {
	if b.attempt < b.opts.MaxRetries {
		b.attempt++
		delay := b.opts.RetryDelay
		log.Warn().Err(err).Int("attempt", b.attempt).Dur("delay", delay).Msg("load failed, retrying")

		retryErr := fmt.Errorf("connection error, retrying in %s: %w", delay, err)
		b.presenter.Error(retryErr, false)
		b.update(func(s *Snapshot) { s.Error = retryErr.Error() })

		b.retry = b.clock.Base().AfterFunc(delay, func() {
			b.post(func() {
				if gen == b.gen {
					b.startAttempt(gen, tomorrow)
				}
			})
		})
		return
	}

	fatal := fmt.Errorf("%w after %d attempts: %w", ErrLoadFailed, b.attempt+1, err)
	log.Error().Err(err).Int("attempts", b.attempt+1).Msg("giving up loading prayer times")

	b.loaded = false
	b.data = nil
	b.highlight = nil
	b.tracker.Clear()

	b.presenter.Error(fatal, true)
	b.presenter.HijriDateFailed(fatal)
	b.update(func(s *Snapshot) {
		s.Loaded = false
		s.Fatal = true
		s.Error = fatal.Error()
		s.Schedule = nil
		s.Hijri = nil
		s.HijriError = fatal.Error()
		s.Highlight = nil
		s.Countdown = nil
	})
}

func (b *Board) stopRetry() {
	if b.retry != nil {
		b.retry.Stop()
		b.retry = nil
	}
}

func (b *Board) armMaghrib(now time.Time) {
	maghrib := maghribOf(now, b.data)
	if maghrib.IsZero() {
		return
	}
	if at, ok := b.sched.ArmMaghrib(maghrib, now); ok {
		log.Debug().Time("at", at).Msg("post-maghrib restart armed")
	}
}

// onMidnight reloads unless the tick already started a cycle for the new day.
func (b *Board) onMidnight() {
	if prayer.SameDay(b.clock.Now(), b.cycleDay) {
		log.Debug().Msg("midnight reload skipped, the new day is already loading")
		return
	}
	b.reload("midnight")
}

func (b *Board) onMaghrib() {
	if b.opts.Restart != nil {
		log.Info().Msg("restarting after maghrib")
		err := b.opts.Restart()
		if err == nil {
			return
		}
		log.Warn().Err(err).Msg("restart unavailable, reloading in-process")
	}
	b.loadTomorrow = true
	b.reload("maghrib")
}

func (b *Board) onOverrideChanged() {
	st := b.clock.Status()
	log.Info().Str("status", st.String()).Msg("clock override changed")
	b.reload("override")
}

// maghribOf returns today's Maghrib, or the zero time when unknown.
func maghribOf(now time.Time, times prayer.Times) time.Time {
	raw := times[prayer.Maghrib]
	if raw == "" {
		return time.Time{}
	}
	t, err := prayer.ParseTimeOfDay(raw, now)
	if err != nil {
		log.Warn().Err(err).Str("prayer", prayer.Maghrib).Msg("cannot parse maghrib time")
		return time.Time{}
	}
	return t
}
