package clock

import (
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

// realStart is the fake system time every test begins at.
var realStart = time.Date(2026, 10, 16, 14, 7, 12, 0, time.UTC)

func newSource(t *testing.T) (*Source, *clockwork.FakeClock) {
	t.Helper()
	fc := clockwork.NewFakeClockAt(realStart)
	return New(fc, time.UTC), fc
}

// ---------------------------------------------------------------------------
// Now
// ---------------------------------------------------------------------------

func TestNow_RealTime(t *testing.T) {
	s, fc := newSource(t)

	if got := s.Now(); !got.Equal(realStart) {
		t.Errorf("Now() = %v, want %v", got, realStart)
	}

	fc.Advance(90 * time.Second)
	want := realStart.Add(90 * time.Second)
	if got := s.Now(); !got.Equal(want) {
		t.Errorf("Now() after advance = %v, want %v", got, want)
	}
}

func TestNow_Offset(t *testing.T) {
	tests := []struct {
		name   string
		offset time.Duration
	}{
		{"ahead", 2 * time.Hour},
		{"behind", -30 * time.Minute},
		{"zero", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newSource(t)
			s.SetOffset(tt.offset)

			want := realStart.Add(tt.offset)
			if got := s.Now(); !got.Equal(want) {
				t.Errorf("Now() = %v, want %v", got, want)
			}
		})
	}
}

func TestNow_UsesLocation(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	s := New(clockwork.NewFakeClockAt(realStart), loc)

	got := s.Now()
	if got.Location() != loc {
		t.Errorf("location = %v, want %v", got.Location(), loc)
	}
	if got.Hour() != 15 {
		t.Errorf("hour = %d, want 15", got.Hour())
	}
}

// ---------------------------------------------------------------------------
// Overrides
// ---------------------------------------------------------------------------

func TestOverride_DateAndTimeKeepRunning(t *testing.T) {
	s, fc := newSource(t)

	if err := s.Set("2025-03-10", "05:30"); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	want := time.Date(2025, 3, 10, 5, 30, 0, 0, time.UTC)
	if got := s.Now(); !got.Equal(want) {
		t.Errorf("Now() = %v, want %v", got, want)
	}

	fc.Advance(5 * time.Second)
	want = want.Add(5 * time.Second)
	if got := s.Now(); !got.Equal(want) {
		t.Errorf("Now() after 5s = %v, want %v", got, want)
	}
}

func TestOverride_DateOnlyUsesRealTimeOfDay(t *testing.T) {
	s, fc := newSource(t)

	if err := s.Set("2025-06-06", ""); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	want := time.Date(2025, 6, 6, 14, 7, 12, 0, time.UTC)
	if got := s.Now(); !got.Equal(want) {
		t.Errorf("Now() = %v, want %v", got, want)
	}

	fc.Advance(time.Minute)
	if got := s.Now(); got.Minute() != 8 || got.Day() != 6 {
		t.Errorf("Now() after a minute = %v, want 2025-06-06 14:08:12", got)
	}
}

func TestOverride_TimeOnlyUsesRealDate(t *testing.T) {
	s, fc := newSource(t)

	if err := s.Set("", "23:59:58"); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	want := time.Date(2026, 10, 16, 23, 59, 58, 0, time.UTC)
	if got := s.Now(); !got.Equal(want) {
		t.Errorf("Now() = %v, want %v", got, want)
	}

	// Simulated time rolls over into the next day on its own.
	fc.Advance(3 * time.Second)
	want = time.Date(2026, 10, 17, 0, 0, 1, 0, time.UTC)
	if got := s.Now(); !got.Equal(want) {
		t.Errorf("Now() after rollover = %v, want %v", got, want)
	}
}

func TestOverride_DateSplicedOverRunningTime(t *testing.T) {
	s, fc := newSource(t)

	if err := s.Set("2025-03-10", "23:59:59"); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	fc.Advance(2 * time.Second)

	// The date override pins the calendar date; only H:M:S moves.
	want := time.Date(2025, 3, 10, 0, 0, 1, 0, time.UTC)
	if got := s.Now(); !got.Equal(want) {
		t.Errorf("Now() = %v, want %v", got, want)
	}
}

func TestOverride_InvalidInputKeepsPreviousState(t *testing.T) {
	s, _ := newSource(t)

	if err := s.Set("2025-03-10", "05:30"); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	before := s.Now()

	tests := []struct {
		name string
		date string
		tod  string
	}{
		{"bad date format", "10.03.2025", "06:00"},
		{"impossible date", "2025-02-30", "06:00"},
		{"hour out of range", "2025-03-11", "24:00"},
		{"minute out of range", "2025-03-11", "12:60"},
		{"second out of range", "2025-03-11", "12:00:60"},
		{"garbage time", "2025-03-11", "noon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Set(tt.date, tt.tod)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Set(%q, %q) error = %v, want ValidationError", tt.date, tt.tod, err)
			}
			if got := s.Now(); !got.Equal(before) {
				t.Errorf("state changed after rejected input: Now() = %v, want %v", got, before)
			}
		})
	}
}

func TestOverride_EmptyClears(t *testing.T) {
	s, _ := newSource(t)

	_ = s.Set("2025-03-10", "05:30")
	if err := s.Set("", ""); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if got := s.Now(); !got.Equal(realStart) {
		t.Errorf("Now() = %v, want real time %v", got, realStart)
	}
}

func TestReset_NoResidualDrift(t *testing.T) {
	s, fc := newSource(t)

	_ = s.Set("2025-03-10", "05:30")
	fc.Advance(time.Hour)
	s.Reset()

	want := realStart.Add(time.Hour)
	if got := s.Now(); !got.Equal(want) {
		t.Errorf("Now() after reset = %v, want %v", got, want)
	}
	if st := s.Status(); st.Simulated() {
		t.Errorf("Status().Simulated() = true after reset")
	}
}

func TestOnChange(t *testing.T) {
	s, _ := newSource(t)

	calls := 0
	s.OnChange(func() { calls++ })

	_ = s.Set("2025-03-10", "")
	_ = s.Set("bad", "")
	s.Reset()

	if calls != 2 {
		t.Errorf("OnChange called %d times, want 2", calls)
	}
}

// ---------------------------------------------------------------------------
// Status
// ---------------------------------------------------------------------------

func TestStatus_String(t *testing.T) {
	tests := []struct {
		date string
		tod  string
		want string
	}{
		{"", "", "real time"},
		{"2025-03-10", "", "simulated date 2025-03-10"},
		{"", "05:30", "simulated time"},
		{"2025-03-10", "05:30", "simulated date 2025-03-10 & time"},
	}

	for _, tt := range tests {
		s, _ := newSource(t)
		if err := s.Set(tt.date, tt.tod); err != nil {
			t.Fatalf("Set(%q, %q) error: %v", tt.date, tt.tod, err)
		}
		if got := s.Status().String(); got != tt.want {
			t.Errorf("Status(%q, %q) = %q, want %q", tt.date, tt.tod, got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// ParseDate / ParseTimeOfDay
// ---------------------------------------------------------------------------

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2025-03-10")
	if err != nil {
		t.Fatalf("ParseDate unexpected error: %v", err)
	}
	if want := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("ParseDate = %v, want %v", got, want)
	}

	for _, in := range []string{"2025-02-30", "2025-3-10", "10.03.2025", ""} {
		_, err := ParseDate(in)
		var verr *ValidationError
		if !errors.As(err, &verr) || verr.Field != "date" {
			t.Errorf("ParseDate(%q) error = %v, want a date ValidationError", in, err)
		}
	}
}

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		h, m, s int
		wantErr bool
	}{
		{"05:30", 5, 30, 0, false},
		{"5:3", 5, 3, 0, false},
		{"23:59:59", 23, 59, 59, false},
		{"00:00:00", 0, 0, 0, false},
		{"24:00", 0, 0, 0, true},
		{"12:5x", 0, 0, 0, true},
		{"12", 0, 0, 0, true},
		{"", 0, 0, 0, true},
	}

	for _, tt := range tests {
		h, m, s, err := ParseTimeOfDay(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseTimeOfDay(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseTimeOfDay(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if h != tt.h || m != tt.m || s != tt.s {
			t.Errorf("ParseTimeOfDay(%q) = %d:%d:%d, want %d:%d:%d", tt.in, h, m, s, tt.h, tt.m, tt.s)
		}
	}
}
