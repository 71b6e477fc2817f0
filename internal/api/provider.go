package api

import (
	"context"
	"fmt"
	"time"

	"github.com/smokyabdulrahman/prayer-display/internal/hijri"
	"github.com/smokyabdulrahman/prayer-display/internal/prayer"
)

// Provider adapts a Client to the board's timing-data and Hijri ports.
type Provider struct {
	Client *Client
	Query  Query
}

// NewProvider creates a Provider for q.
func NewProvider(c *Client, q Query) *Provider {
	return &Provider{Client: c, Query: q}
}

// PrayerTimes returns the raw times of day for date.
func (p *Provider) PrayerTimes(ctx context.Context, date time.Time) (prayer.Times, error) {
	resp, err := p.Client.FetchTimings(ctx, date, p.Query)
	if err != nil {
		return nil, err
	}
	times := prayer.Times(resp.Data.Timings.Map())
	if len(times) == 0 {
		return nil, &FetchError{Op: "fetch timings", Err: fmt.Errorf("API returned no timings")}
	}
	return times, nil
}

// FetchHijri returns the Hijri date for the Gregorian day of date.
func (p *Provider) FetchHijri(ctx context.Context, date time.Time) (hijri.Date, error) {
	resp, err := p.Client.FetchHijri(ctx, date)
	if err != nil {
		return hijri.Date{}, err
	}
	d, err := resp.Data.Hijri.ToDate()
	if err != nil {
		return hijri.Date{}, &FetchError{Op: "fetch hijri date", Err: err}
	}
	return d, nil
}
