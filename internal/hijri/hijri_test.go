package hijri

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d, hour, min int) time.Time {
	return time.Date(y, m, d, hour, min, 0, 0, time.UTC)
}

// ordinal is the absolute day count in the fixed 30-day model.
func ordinal(d Date) int {
	return d.Year*360 + (d.Month.Number-1)*30 + d.Day
}

var ramadanAnchor = Anchor{StartDay: 1, StartMonth: "Ramadān", StartYear: 1447, StartDate: "2025-02-27"}

// ---------------------------------------------------------------------------
// Anchor
// ---------------------------------------------------------------------------

func TestAnchorCalculate(t *testing.T) {
	tests := []struct {
		name   string
		anchor Anchor
		target time.Time
		day    int
		month  string
		year   int
	}{
		{"anchor day before maghrib is previous month", ramadanAnchor, day(2025, 2, 27, 10, 0), 30, "Sha'bān", 1447},
		{"day after anchor is start day", ramadanAnchor, day(2025, 2, 28, 10, 0), 1, "Ramadān", 1447},
		{"thirtieth day", ramadanAnchor, day(2025, 3, 29, 10, 0), 30, "Ramadān", 1447},
		{"month rolls forward", ramadanAnchor, day(2025, 3, 30, 10, 0), 1, "Shawwāl", 1447},
		{"year rolls back", DefaultAnchor, day(2025, 6, 26, 10, 0), 30, "Dhū al-Ḥijjah", 1446},
		{"new year", DefaultAnchor, day(2025, 6, 27, 10, 0), 1, "Muharram", 1447},
		{"year rolls forward", Anchor{StartDay: 1, StartMonth: "Dhū al-Ḥijjah", StartYear: 1446, StartDate: "2025-05-27"}, day(2025, 6, 27, 10, 0), 1, "Muharram", 1447},
		{"far in the past", DefaultAnchor, day(2025, 5, 27, 10, 0), 30, "Dhū al-Qa'dah", 1446},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.anchor.Calculate(tt.target, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.day, got.Day)
			assert.Equal(t, tt.month, got.Month.Key)
			assert.Equal(t, MonthIndex(tt.month)+1, got.Month.Number)
			assert.Equal(t, tt.year, got.Year)
			assert.Equal(t, SourceManual, got.Source)
			assert.Equal(t, "confirmed", got.Confidence)
		})
	}
}

func TestAnchorCalculate_MonthNames(t *testing.T) {
	got, err := ramadanAnchor.Calculate(day(2025, 2, 27, 10, 0), GermanMonthNames)
	require.NoError(t, err)
	assert.Equal(t, "Schaʿbān", got.Month.Name)
	assert.Equal(t, "30 Schaʿbān 1447 AH", got.Format())

	got, err = ramadanAnchor.Calculate(day(2025, 2, 27, 10, 0), nil)
	require.NoError(t, err)
	assert.Equal(t, "Sha'bān", got.Month.Name)
}

func TestAnchorValidate(t *testing.T) {
	tests := []struct {
		name   string
		anchor Anchor
	}{
		{"day zero", Anchor{StartDay: 0, StartMonth: "Safar", StartYear: 1447, StartDate: "2025-07-25"}},
		{"day 31", Anchor{StartDay: 31, StartMonth: "Safar", StartYear: 1447, StartDate: "2025-07-25"}},
		{"unknown month", Anchor{StartDay: 1, StartMonth: "Ramadan", StartYear: 1447, StartDate: "2025-07-25"}},
		{"no year", Anchor{StartDay: 1, StartMonth: "Safar", StartDate: "2025-07-25"}},
		{"bad date", Anchor{StartDay: 1, StartMonth: "Safar", StartYear: 1447, StartDate: "25.07.2025"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.anchor.Calculate(day(2025, 8, 1, 10, 0), nil)
			assert.ErrorIs(t, err, ErrInvalidAnchor)
		})
	}
	assert.NoError(t, DefaultAnchor.Validate())
}

// Day counts in the 30-day model advance exactly with the Gregorian calendar,
// including across DST changes.
func TestAnchorCalculate_Monotonic(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	base := time.Date(2025, 1, 1, 12, 0, 0, 0, loc)
	first, err := DefaultAnchor.Calculate(base, nil)
	require.NoError(t, err)

	for n := 1; n <= 800; n++ {
		got, err := DefaultAnchor.Calculate(base.AddDate(0, 0, n), nil)
		require.NoError(t, err)
		if diff := ordinal(got) - ordinal(first); diff != n {
			t.Fatalf("day %d: ordinal difference = %d, want %d", n, diff, n)
		}
	}
}

// ---------------------------------------------------------------------------
// Resolver
// ---------------------------------------------------------------------------

type fakeFetcher struct {
	dates []time.Time
	date  Date
	err   error
}

func (f *fakeFetcher) FetchHijri(ctx context.Context, date time.Time) (Date, error) {
	f.dates = append(f.dates, date)
	return f.date, f.err
}

func TestAfterMaghrib(t *testing.T) {
	maghrib := day(2025, 3, 10, 18, 20)

	assert.False(t, AfterMaghrib(day(2025, 3, 10, 18, 19), maghrib))
	assert.True(t, AfterMaghrib(maghrib, maghrib))
	assert.True(t, AfterMaghrib(day(2025, 3, 10, 23, 0), maghrib))
	assert.False(t, AfterMaghrib(day(2025, 3, 10, 23, 0), time.Time{}))
}

func TestResolve_RollsOverAtMaghribNotMidnight(t *testing.T) {
	r := &Resolver{Mode: ModeManual, Anchor: ramadanAnchor}
	ctx := context.Background()

	beforeMaghrib, err := r.Resolve(ctx, day(2025, 3, 10, 17, 0), day(2025, 3, 10, 18, 20))
	require.NoError(t, err)
	lateEvening, err := r.Resolve(ctx, day(2025, 3, 10, 23, 0), day(2025, 3, 10, 18, 20))
	require.NoError(t, err)
	afterMidnight, err := r.Resolve(ctx, day(2025, 3, 11, 0, 30), day(2025, 3, 11, 18, 21))
	require.NoError(t, err)

	assert.True(t, lateEvening.Same(afterMidnight), "%s != %s", lateEvening.Format(), afterMidnight.Format())
	assert.False(t, beforeMaghrib.Same(lateEvening))
	assert.Equal(t, ordinal(beforeMaghrib)+1, ordinal(lateEvening))
}

func TestResolve_UnknownMaghribUsesToday(t *testing.T) {
	r := &Resolver{Mode: ModeManual, Anchor: ramadanAnchor}

	got, err := r.Resolve(context.Background(), day(2025, 2, 27, 23, 0), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 30, got.Day)
	assert.Equal(t, "Sha'bān", got.Month.Key)
}

func TestResolve_APIAsksForTomorrowAfterMaghrib(t *testing.T) {
	f := &fakeFetcher{date: Date{Day: 11, Month: Month{Number: 9, Key: "Ramadān"}, Year: 1447}}
	r := &Resolver{Mode: ModeAPI, Fetcher: f, Names: MonthNames{"Ramadān": "Ramadan"}}
	ctx := context.Background()

	_, err := r.Resolve(ctx, day(2025, 3, 10, 12, 0), day(2025, 3, 10, 18, 20))
	require.NoError(t, err)
	got, err := r.Resolve(ctx, day(2025, 3, 10, 19, 0), day(2025, 3, 10, 18, 20))
	require.NoError(t, err)

	require.Len(t, f.dates, 2)
	assert.Equal(t, 10, f.dates[0].Day())
	assert.Equal(t, 11, f.dates[1].Day())
	assert.Equal(t, SourceAPI, got.Source)
	assert.Equal(t, "Ramadan", got.Month.Name)
	assert.Equal(t, "confirmed", got.Confidence)
}

func TestResolve_APIFailureSurfaces(t *testing.T) {
	cause := errors.New("connection refused")
	r := &Resolver{Mode: ModeAPI, Fetcher: &fakeFetcher{err: cause}}

	_, err := r.Resolve(context.Background(), day(2025, 3, 10, 12, 0), time.Time{})
	assert.ErrorIs(t, err, cause)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("manual")
	require.NoError(t, err)
	assert.Equal(t, ModeManual, m)

	_, err = ParseMode("lunar")
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// Tracker
// ---------------------------------------------------------------------------

func TestTracker_ChangeDetection(t *testing.T) {
	var tr Tracker
	d := Date{Day: 1, Month: Month{Number: 9, Key: "Ramadān"}, Year: 1447}

	require.True(t, tr.Begin())
	assert.False(t, tr.Begin(), "second Begin while in flight")
	assert.True(t, tr.Complete(d, false), "first date is a change")

	require.True(t, tr.Begin())
	other := d
	other.Source = SourceAPI
	other.Month.Name = "Ramadan"
	assert.False(t, tr.Complete(other, false), "same day/month/year is not a change")

	require.True(t, tr.Begin(), "before maghrib checks keep running")
	next := d
	next.Day = 2
	assert.True(t, tr.Complete(next, true))

	assert.False(t, tr.Begin(), "day locked after maghrib")
	assert.True(t, tr.CheckedToday())

	tr.ResetDay()
	assert.True(t, tr.Begin())

	shown, ok := tr.Displayed()
	require.True(t, ok)
	assert.Equal(t, 2, shown.Day)
}

func TestTracker_FailClearsDisplayed(t *testing.T) {
	var tr Tracker
	d := Date{Day: 1, Month: Month{Number: 9, Key: "Ramadān"}, Year: 1447}

	tr.Begin()
	tr.Complete(d, false)
	tr.Begin()
	tr.Fail()

	_, ok := tr.Displayed()
	assert.False(t, ok)

	require.True(t, tr.Begin(), "fail releases the in-flight flag")
	assert.True(t, tr.Complete(d, false), "after a failure the same date is shown again")
}
