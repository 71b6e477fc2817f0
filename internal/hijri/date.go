// Package hijri resolves the Islamic calendar date shown on the board.
//
// The Hijri day begins at Maghrib, not at midnight. A Resolver picks the
// Gregorian day to resolve for (tomorrow once Maghrib has passed) and then
// asks either the remote timing service or a locally configured anchor.
package hijri

import (
	"fmt"
	"strings"
)

// MonthOrder is the fixed cyclic order of the twelve month keys.
var MonthOrder = []string{
	"Muharram", "Safar", "Rabī' al-awwal", "Rabī' al-thānī",
	"Jumādā al-ūlā", "Jumādā al-ākhirah", "Rajab", "Sha'bān",
	"Ramadān", "Shawwāl", "Dhū al-Qa'dah", "Dhū al-Ḥijjah",
}

// MonthIndex returns the zero-based position of key in MonthOrder, or -1.
func MonthIndex(key string) int {
	for i, k := range MonthOrder {
		if k == key {
			return i
		}
	}
	return -1
}

// MonthNames translates month keys into display names.
type MonthNames map[string]string

// Name returns the display name for key, falling back to the key itself.
func (n MonthNames) Name(key string) string {
	if name, ok := n[key]; ok && name != "" {
		return name
	}
	return key
}

// GermanMonthNames is a ready-made translation table for German-speaking
// congregations.
var GermanMonthNames = MonthNames{
	"Muharram":          "Muharram",
	"Safar":             "Safar",
	"Rabī' al-awwal":    "Rabīʿ al-awwal",
	"Rabī' al-thānī":    "Rabīʿ al-thānī",
	"Jumādā al-ūlā":     "Dschumādā l-ūlā",
	"Jumādā al-ākhirah": "Dschumādā l-āchira",
	"Rajab":             "Radschab",
	"Sha'bān":           "Schaʿbān",
	"Ramadān":           "Ramadān",
	"Shawwāl":           "Schauwāl",
	"Dhū al-Qa'dah":     "Dhū l-Qaʿda",
	"Dhū al-Ḥijjah":     "Dhū l-Hiddscha",
}

// Source records where a Date came from.
type Source string

const (
	SourceAPI    Source = "api"
	SourceManual Source = "manual"
)

// Month identifies a Hijri month.
type Month struct {
	Number int    `json:"number"`
	Key    string `json:"key"`
	Name   string `json:"name"`
}

// Date is a resolved Hijri calendar date.
type Date struct {
	Day        int    `json:"day"`
	Month      Month  `json:"month"`
	Year       int    `json:"year"`
	Source     Source `json:"source"`
	Confidence string `json:"confidence"`
}

// Same compares day, month key and year. Source and display names are ignored.
func (d Date) Same(o Date) bool {
	return d.Day == o.Day && d.Month.Key == o.Month.Key && d.Year == o.Year
}

// Format returns a human-readable Hijri date, e.g. "1 Ramadān 1447 AH".
func (d Date) Format() string {
	name := d.Month.Name
	if strings.TrimSpace(name) == "" {
		name = d.Month.Key
	}
	return fmt.Sprintf("%d %s %d AH", d.Day, name, d.Year)
}
