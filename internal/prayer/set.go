package prayer

import "time"

// Festival is a one-off prayer that takes the sunrise slot on its date.
type Festival struct {
	Enabled    bool
	Definition Definition
	// Date is the civil date of the festival prayer, "YYYY-MM-DD".
	Date string
	// Time is the fixed start time, "HH:MM".
	Time string
}

// On reports whether the festival is enabled and falls on day.
func (f Festival) On(day time.Time) bool {
	return f.Enabled && f.Date != "" && day.Format("2006-01-02") == f.Date
}

// Rules describes which prayers matter on a given day.
type Rules struct {
	// Prayers are the canonical daily prayers in order.
	Prayers  []Definition
	Sunrise  Definition
	Jumaa    Definition
	Festival Festival
}

// DefaultRules returns the durations used by the mosque display out of the box.
func DefaultRules() Rules {
	return Rules{
		Prayers: []Definition{
			{Name: Fajr, AdhanMinutes: 2, IqamaMinutes: 10},
			{Name: Dhuhr, AdhanMinutes: 2, IqamaMinutes: 10},
			{Name: Asr, AdhanMinutes: 2, IqamaMinutes: 10},
			{Name: Maghrib, AdhanMinutes: 2, IqamaMinutes: 5},
			{Name: Isha, AdhanMinutes: 2, IqamaMinutes: 10},
		},
		Sunrise: Definition{Name: Sunrise},
		Jumaa:   Definition{Name: Jumaa, AdhanMinutes: 2, IqamaMinutes: 10},
		Festival: Festival{
			Definition: Definition{Name: Eid, DisplayName: "Eid Prayer", AdhanMinutes: 2, IqamaMinutes: 10},
		},
	}
}

// Entry pairs a definition with the raw time it is evaluated at.
type Entry struct {
	Definition
	Raw string
}

// Effective returns the prayers evaluated on day. On Fridays with a known
// Jumaa time, Jumaa replaces Dhuhr. On the festival date, the festival prayer
// replaces the sunrise marker. Sunrise is optional and left out when the
// provider did not report it.
func (r Rules) Effective(day time.Time, times Times) []Entry {
	friday := day.Weekday() == time.Friday && times[Jumaa] != ""

	entries := make([]Entry, 0, len(r.Prayers)+1)
	for _, def := range r.Prayers {
		if def.Name == Dhuhr && friday {
			entries = append(entries, Entry{Definition: r.jumaa(), Raw: times[Jumaa]})
			continue
		}
		entries = append(entries, Entry{Definition: def, Raw: times[def.Name]})
	}

	switch {
	case r.Festival.On(day):
		entries = append(entries, Entry{Definition: r.Festival.Definition, Raw: r.Festival.Time})
	case r.Sunrise.Name != "" && times[r.Sunrise.Name] != "":
		entries = append(entries, Entry{Definition: r.Sunrise, Raw: times[r.Sunrise.Name]})
	}

	return entries
}

// Lookup returns the canonical definition named name.
func (r Rules) Lookup(name string) (Definition, bool) {
	for _, def := range r.Prayers {
		if def.Name == name {
			return def, true
		}
	}
	return Definition{}, false
}

func (r Rules) jumaa() Definition {
	if r.Jumaa.Name == "" {
		return Definition{Name: Jumaa}
	}
	return r.Jumaa
}
