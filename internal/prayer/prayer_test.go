package prayer

import (
	"errors"
	"testing"
	"time"
)

// wednesday is an ordinary weekday used as "today" in most tests.
var wednesday = time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)

// at builds a time on wednesday.
func at(t *testing.T, hour, min, sec int) time.Time {
	t.Helper()
	return time.Date(2026, 10, 14, hour, min, sec, 0, time.UTC)
}

func sampleTimes() Times {
	return Times{
		Fajr:    "05:00",
		Sunrise: "06:40",
		Dhuhr:   "12:30",
		Asr:     "15:45",
		Maghrib: "18:20",
		Isha:    "19:50",
	}
}

// ---------------------------------------------------------------------------
// ParseTimeOfDay
// ---------------------------------------------------------------------------

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantH   int
		wantM   int
		wantErr bool
	}{
		{"simple HH:MM", "15:02", 15, 2, false},
		{"midnight", "00:00", 0, 0, false},
		{"with timezone suffix", "15:02 (BST)", 15, 2, false},
		{"with spaces and suffix", "  05:17  (EET) ", 5, 17, false},
		{"invalid format", "bad", 0, 0, true},
		{"empty string", "", 0, 0, true},
		{"missing minute", "15:", 0, 0, true},
		{"non-numeric", "ab:cd", 0, 0, true},
		{"hour out of range", "24:00", 0, 0, true},
		{"minute out of range", "12:60", 0, 0, true},
		{"with seconds", "12:30:00", 0, 0, true},
		{"trailing garbage in hour", "12abc:30", 0, 0, true},
		{"trailing garbage in minute", "12:30x", 0, 0, true},
		{"empty hour", ":30", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.raw, wednesday)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseTimeOfDay(%q) expected error, got nil", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTimeOfDay(%q) unexpected error: %v", tt.raw, err)
			}
			if got.Hour() != tt.wantH || got.Minute() != tt.wantM {
				t.Errorf("ParseTimeOfDay(%q) = %02d:%02d, want %02d:%02d",
					tt.raw, got.Hour(), got.Minute(), tt.wantH, tt.wantM)
			}
			if !SameDay(got, wednesday) {
				t.Errorf("ParseTimeOfDay(%q) wrong date: got %v", tt.raw, got.Format("2006-01-02"))
			}
		})
	}
}

func TestParseTimeOfDay_Location(t *testing.T) {
	loc, _ := time.LoadLocation("Europe/Berlin")
	date := time.Date(2026, 6, 15, 10, 0, 0, 0, loc)

	got, err := ParseTimeOfDay("12:30", date)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Location() != loc {
		t.Errorf("expected location %v, got %v", loc, got.Location())
	}
}

// ---------------------------------------------------------------------------
// Definition / Instant
// ---------------------------------------------------------------------------

func TestDefinitionLabel(t *testing.T) {
	if got := (Definition{Name: Isha, DisplayName: "Ishaa"}).Label(); got != "Ishaa" {
		t.Errorf("Label() = %q, want %q", got, "Ishaa")
	}
	if got := (Definition{Name: Asr}).Label(); got != Asr {
		t.Errorf("Label() = %q, want %q", got, Asr)
	}
}

func TestNewInstant_WindowEnds(t *testing.T) {
	start := at(t, 15, 45, 0)
	p := NewInstant(Definition{Name: Asr, AdhanMinutes: 2, IqamaMinutes: 10}, start)

	if want := at(t, 15, 47, 0); !p.AdhanEnd.Equal(want) {
		t.Errorf("AdhanEnd = %v, want %v", p.AdhanEnd, want)
	}
	if want := at(t, 15, 57, 0); !p.IqamaEnd.Equal(want) {
		t.Errorf("IqamaEnd = %v, want %v", p.IqamaEnd, want)
	}
}

func TestNewInstant_ZeroDurationsHaveNoWindow(t *testing.T) {
	start := at(t, 6, 40, 0)
	p := NewInstant(Definition{Name: Sunrise}, start)

	if p.Contains(start) {
		t.Error("zero-duration prayer should never contain now")
	}
	if p.InAdhan(start) {
		t.Error("zero-duration prayer should never be in adhan")
	}
}

func TestDataError_Unwrap(t *testing.T) {
	err := error(&DataError{Prayer: Asr, Err: ErrMissing})
	if !errors.Is(err, ErrMissing) {
		t.Errorf("errors.Is(%v, ErrMissing) = false", err)
	}
}

func TestTomorrow_CrossesMonth(t *testing.T) {
	got := Tomorrow(time.Date(2026, 10, 31, 23, 59, 0, 0, time.UTC))
	want := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Tomorrow() = %v, want %v", got, want)
	}
}

// ---------------------------------------------------------------------------
// ShortNames
// ---------------------------------------------------------------------------

func TestShortNames_AllCanonical(t *testing.T) {
	for _, name := range append(CanonicalNames, Sunrise, Jumaa, Eid) {
		if _, ok := ShortNames[name]; !ok {
			t.Errorf("ShortNames missing entry for prayer %q", name)
		}
	}
}
