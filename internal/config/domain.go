package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/smokyabdulrahman/prayer-display/internal/hijri"
	"github.com/smokyabdulrahman/prayer-display/internal/prayer"
)

// Validate checks cross-field constraints that Set cannot see, such as a
// file edited by hand.
func (c *Config) Validate() error {
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("invalid latitude %v: must be between -90 and 90", c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("invalid longitude %v: must be between -180 and 180", c.Longitude)
	}
	if c.Method != nil && *c.Method >= 0 && !validMethod(*c.Method) {
		return fmt.Errorf("invalid method %d: must be between 0 and 23, or 99 for custom settings", *c.Method)
	}
	mode, err := hijri.ParseMode(c.HijriMode)
	if err != nil {
		return err
	}
	if mode == hijri.ModeManual {
		if err := c.Anchor().Validate(); err != nil {
			return err
		}
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := c.Offset(); err != nil {
		return err
	}
	if _, err := c.RetryDelayDuration(); err != nil {
		return err
	}
	for key, value := range map[string]string{"isha_time": c.IshaTime, "jumaa.time": c.Jumaa.Time, "eid.time": c.Eid.Time} {
		if err := checkTimeOfDay(key, value); err != nil {
			return err
		}
	}
	if c.Eid.Enabled {
		if _, err := time.Parse("2006-01-02", c.Eid.Date); err != nil {
			return fmt.Errorf("invalid eid.date %q: must be YYYY-MM-DD", c.Eid.Date)
		}
	}

	seen := make(map[string]bool, len(c.Prayers))
	for _, p := range c.Prayers {
		if p.Name == "" {
			return fmt.Errorf("invalid prayers entry: name is required")
		}
		if seen[p.Name] {
			return fmt.Errorf("invalid prayers entry %q: duplicate name", p.Name)
		}
		seen[p.Name] = true
		if p.AdhanMinutes < 0 || p.IqamaMinutes < 0 {
			return fmt.Errorf("invalid prayers entry %q: durations must not be negative", p.Name)
		}
	}
	for name, d := range map[string]*int{
		"jumaa.adhan_minutes": c.Jumaa.AdhanMinutes, "jumaa.iqama_minutes": c.Jumaa.IqamaMinutes,
		"eid.adhan_minutes": c.Eid.AdhanMinutes, "eid.iqama_minutes": c.Eid.IqamaMinutes,
	} {
		if d != nil && *d < 0 {
			return fmt.Errorf("invalid %s %d: must not be negative", name, *d)
		}
	}
	return nil
}

// Location returns the configured display time zone, or time.Local.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Offset returns the parsed clock offset.
func (c *Config) Offset() (time.Duration, error) {
	if c.TimeOffset == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.TimeOffset)
	if err != nil {
		return 0, fmt.Errorf("invalid time_offset %q: %w", c.TimeOffset, err)
	}
	return d, nil
}

// RetryDelayDuration returns the parsed delay between load attempts.
func (c *Config) RetryDelayDuration() (time.Duration, error) {
	if c.RetryDelay == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.RetryDelay)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid retry_delay %q: must be a duration like \"2s\"", c.RetryDelay)
	}
	return d, nil
}

// Rules builds the prayer rules. Missing durations fall back to the defaults.
func (c *Config) Rules() prayer.Rules {
	rules := prayer.DefaultRules()

	if len(c.Prayers) > 0 {
		rules.Prayers = make([]prayer.Definition, 0, len(c.Prayers))
		for _, p := range c.Prayers {
			rules.Prayers = append(rules.Prayers, p.definition())
		}
	}
	if c.Sunrise != nil {
		rules.Sunrise = c.Sunrise.definition()
		if rules.Sunrise.Name == "" {
			rules.Sunrise.Name = prayer.Sunrise
		}
	}

	if c.Jumaa.DisplayName != "" {
		rules.Jumaa.DisplayName = c.Jumaa.DisplayName
	}
	if c.Jumaa.AdhanMinutes != nil {
		rules.Jumaa.AdhanMinutes = *c.Jumaa.AdhanMinutes
	}
	if c.Jumaa.IqamaMinutes != nil {
		rules.Jumaa.IqamaMinutes = *c.Jumaa.IqamaMinutes
	}

	rules.Festival.Enabled = c.Eid.Enabled
	rules.Festival.Date = c.Eid.Date
	rules.Festival.Time = c.Eid.Time
	if c.Eid.DisplayName != "" {
		rules.Festival.Definition.DisplayName = c.Eid.DisplayName
	}
	if c.Eid.AdhanMinutes != nil {
		rules.Festival.Definition.AdhanMinutes = *c.Eid.AdhanMinutes
	}
	if c.Eid.IqamaMinutes != nil {
		rules.Festival.Definition.IqamaMinutes = *c.Eid.IqamaMinutes
	}
	return rules
}

func (p PrayerConfig) definition() prayer.Definition {
	return prayer.Definition{Name: p.Name, DisplayName: p.DisplayName, AdhanMinutes: p.AdhanMinutes, IqamaMinutes: p.IqamaMinutes}
}

// Anchor returns the manual Hijri anchor, falling back per field to the
// built-in anchor.
func (c *Config) Anchor() hijri.Anchor {
	a := hijri.DefaultAnchor
	if c.ManualAnchor.StartDay != 0 {
		a.StartDay = c.ManualAnchor.StartDay
	}
	if c.ManualAnchor.StartMonth != "" {
		a.StartMonth = c.canonicalMonth(c.ManualAnchor.StartMonth)
	}
	if c.ManualAnchor.StartYear != 0 {
		a.StartYear = c.ManualAnchor.StartYear
	}
	if c.ManualAnchor.StartDate != "" {
		a.StartDate = c.ManualAnchor.StartDate
	}
	return a
}

// canonicalMonth maps a case-folded month key back to its canonical spelling.
func (c *Config) canonicalMonth(key string) string {
	for _, k := range hijri.MonthOrder {
		if strings.EqualFold(k, key) {
			return k
		}
	}
	return key
}

// MonthNames returns the Hijri month display table: the language preset
// overlaid with hijri_month_names. Keys are matched case-insensitively
// because the config loader folds map keys to lower case.
func (c *Config) MonthNames() hijri.MonthNames {
	names := hijri.MonthNames{}
	if c.MonthLanguage == "de" {
		for k, v := range hijri.GermanMonthNames {
			names[k] = v
		}
	}
	for key, value := range c.HijriMonthNames {
		names[c.canonicalMonth(key)] = value
	}
	return names
}

// Resolver builds the Hijri resolver for f. f is only used in API mode.
func (c *Config) Resolver(f hijri.Fetcher) (*hijri.Resolver, error) {
	mode, err := hijri.ParseMode(c.HijriMode)
	if err != nil {
		return nil, err
	}
	return &hijri.Resolver{Mode: mode, Anchor: c.Anchor(), Names: c.MonthNames(), Fetcher: f}, nil
}
