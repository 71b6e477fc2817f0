package rollover

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func expectNothing(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
		t.Fatalf("unexpected %s", what)
	case <-time.After(50 * time.Millisecond):
	}
}

func blockUntil(t *testing.T, fc *clockwork.FakeClock, n int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := fc.BlockUntilContext(ctx, n); err != nil {
		t.Fatalf("waiting for %d timers: %v", n, err)
	}
}

func TestNextMidnight(t *testing.T) {
	tests := []struct {
		now  time.Time
		want time.Time
	}{
		{time.Date(2026, 10, 16, 14, 0, 0, 0, time.UTC), time.Date(2026, 10, 17, 0, 0, 1, 0, time.UTC)},
		{time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC), time.Date(2026, 10, 17, 0, 0, 1, 0, time.UTC)},
		{time.Date(2026, 12, 31, 23, 59, 59, 0, time.UTC), time.Date(2027, 1, 1, 0, 0, 1, 0, time.UTC)},
	}

	for _, tt := range tests {
		if got := NextMidnight(tt.now); !got.Equal(tt.want) {
			t.Errorf("NextMidnight(%v) = %v, want %v", tt.now, got, tt.want)
		}
	}
}

func TestArmMidnight_FiresAndRearms(t *testing.T) {
	fc := clockwork.NewFakeClockAt(time.Date(2026, 10, 16, 23, 59, 50, 0, time.UTC))
	fired := make(chan struct{}, 4)
	s := New(fc, time.UTC, func() { fired <- struct{}{} }, nil)
	defer s.Stop()

	at := s.ArmMidnight()
	if want := time.Date(2026, 10, 17, 0, 0, 1, 0, time.UTC); !at.Equal(want) {
		t.Fatalf("ArmMidnight() = %v, want %v", at, want)
	}

	fc.Advance(10 * time.Second)
	expectNothing(t, fired, "midnight fire at 00:00:00")

	fc.Advance(time.Second)
	waitFor(t, fired, "first midnight")

	blockUntil(t, fc, 1)
	fc.Advance(24 * time.Hour)
	waitFor(t, fired, "second midnight")
}

func TestArmMidnight_Idempotent(t *testing.T) {
	fc := clockwork.NewFakeClockAt(time.Date(2026, 10, 16, 23, 0, 0, 0, time.UTC))
	var count atomic.Int32
	fired := make(chan struct{}, 4)
	s := New(fc, time.UTC, func() {
		count.Add(1)
		fired <- struct{}{}
	}, nil)
	defer s.Stop()

	s.ArmMidnight()
	s.ArmMidnight()
	s.ArmMidnight()

	fc.Advance(time.Hour + time.Second)
	waitFor(t, fired, "midnight")
	expectNothing(t, fired, "duplicate midnight fire")

	if got := count.Load(); got != 1 {
		t.Errorf("midnight fired %d times, want 1", got)
	}
}

func TestArmMaghrib(t *testing.T) {
	start := time.Date(2026, 10, 16, 18, 0, 0, 0, time.UTC)
	fc := clockwork.NewFakeClockAt(start)
	fired := make(chan struct{}, 4)
	s := New(fc, time.UTC, nil, func() { fired <- struct{}{} })
	defer s.Stop()

	maghrib := time.Date(2026, 10, 16, 18, 20, 0, 0, time.UTC)
	at, ok := s.ArmMaghrib(maghrib, start)
	if !ok {
		t.Fatal("ArmMaghrib() did not arm")
	}
	if want := maghrib.Add(10 * time.Minute); !at.Equal(want) {
		t.Errorf("ArmMaghrib() = %v, want %v", at, want)
	}

	// Re-arming on reload replaces the previous timer.
	s.ArmMaghrib(maghrib, start)

	fc.Advance(29*time.Minute + 59*time.Second)
	expectNothing(t, fired, "early maghrib fire")

	fc.Advance(time.Second)
	waitFor(t, fired, "post-maghrib")
	expectNothing(t, fired, "duplicate post-maghrib fire")
}

func TestArmMaghrib_AlreadyPassed(t *testing.T) {
	now := time.Date(2026, 10, 16, 18, 31, 0, 0, time.UTC)
	fc := clockwork.NewFakeClockAt(now)
	fired := make(chan struct{}, 1)
	s := New(fc, time.UTC, nil, func() { fired <- struct{}{} })
	defer s.Stop()

	maghrib := time.Date(2026, 10, 16, 18, 20, 0, 0, time.UTC)
	if _, ok := s.ArmMaghrib(maghrib, now); ok {
		t.Error("ArmMaghrib() armed a timer in the past")
	}
	if _, ok := s.ArmMaghrib(time.Time{}, now); ok {
		t.Error("ArmMaghrib() armed a timer without a maghrib time")
	}

	fc.Advance(24 * time.Hour)
	expectNothing(t, fired, "post-maghrib fire")
}

func TestArmMaghrib_SimulatedNow(t *testing.T) {
	// The display clock may be simulated; only the delay matters.
	fc := clockwork.NewFakeClockAt(time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC))
	fired := make(chan struct{}, 1)
	s := New(fc, time.UTC, nil, func() { fired <- struct{}{} })
	defer s.Stop()

	simNow := time.Date(2025, 3, 10, 18, 25, 0, 0, time.UTC)
	maghrib := time.Date(2025, 3, 10, 18, 20, 0, 0, time.UTC)
	if _, ok := s.ArmMaghrib(maghrib, simNow); !ok {
		t.Fatal("ArmMaghrib() did not arm")
	}

	fc.Advance(5 * time.Minute)
	waitFor(t, fired, "post-maghrib")
}

func TestStop_CancelsTimers(t *testing.T) {
	now := time.Date(2026, 10, 16, 18, 0, 0, 0, time.UTC)
	fc := clockwork.NewFakeClockAt(now)
	fired := make(chan struct{}, 2)
	signal := func() { fired <- struct{}{} }
	s := New(fc, time.UTC, signal, signal)

	s.ArmMidnight()
	s.ArmMaghrib(now.Add(20*time.Minute), now)
	s.Stop()

	fc.Advance(48 * time.Hour)
	expectNothing(t, fired, "fire after Stop")

	if at := s.ArmMidnight(); !at.IsZero() {
		t.Errorf("ArmMidnight() after Stop = %v, want zero", at)
	}
}
