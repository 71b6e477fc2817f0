package hijri

import "sync"

// Tracker holds the displayed Hijri date and the flags that throttle
// re-resolution: a check already in flight, or a day already locked in after
// Maghrib.
type Tracker struct {
	mu        sync.Mutex
	displayed *Date
	checked   bool
	inFlight  bool
}

// Begin claims the right to run a check. It returns false when a check is
// already running or today's date has been locked in.
func (t *Tracker) Begin() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.inFlight || t.checked {
		return false
	}
	t.inFlight = true
	return true
}

// Complete records a resolved date and reports whether it differs from the
// displayed one. Once Maghrib has passed the day is locked until ResetDay.
func (t *Tracker) Complete(d Date, afterMaghrib bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.inFlight = false
	changed := t.displayed == nil || !t.displayed.Same(d)
	if changed {
		t.displayed = &d
	}
	if afterMaghrib {
		t.checked = true
	}
	return changed
}

// Fail clears the displayed date so the next check always reports a change.
func (t *Tracker) Fail() {
	t.mu.Lock()
	t.inFlight = false
	t.displayed = nil
	t.mu.Unlock()
}

// ResetDay clears the per-day lock. Called on every data reload.
func (t *Tracker) ResetDay() {
	t.mu.Lock()
	t.checked = false
	t.inFlight = false
	t.mu.Unlock()
}

// Clear forgets the displayed date and the per-day lock.
func (t *Tracker) Clear() {
	t.mu.Lock()
	t.displayed = nil
	t.checked = false
	t.inFlight = false
	t.mu.Unlock()
}

// Displayed returns the date currently on screen.
func (t *Tracker) Displayed() (Date, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.displayed == nil {
		return Date{}, false
	}
	return *t.displayed, true
}

// CheckedToday reports whether the day has been locked in.
func (t *Tracker) CheckedToday() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.checked
}
