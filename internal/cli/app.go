package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/prayer-display/internal/api"
	"github.com/smokyabdulrahman/prayer-display/internal/board"
	"github.com/smokyabdulrahman/prayer-display/internal/clock"
	"github.com/smokyabdulrahman/prayer-display/internal/config"
	"github.com/smokyabdulrahman/prayer-display/internal/display"
	"github.com/smokyabdulrahman/prayer-display/internal/geo"
	"github.com/smokyabdulrahman/prayer-display/internal/hijri"
	"github.com/smokyabdulrahman/prayer-display/internal/prayer"
)

// Test hooks.
var (
	apiBaseURL     string
	baseClock      = clockwork.NewRealClock()
	detectLocation = func(ctx context.Context) (*geo.Location, error) {
		return geo.NewDetector().Detect(ctx)
	}
)

// app is the wiring shared by every command.
type app struct {
	cfg        *config.Config
	clock      *clock.Source
	provider   *api.Provider
	resolver   *hijri.Resolver
	rules      prayer.Rules
	timeLayout string
	place      string
}

func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg := effectiveConfig(cmd)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	q, place, err := resolveQuery(ctx, cfg)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	if cfg.Timezone == "" && q.Timezone != "" {
		if detected, err := time.LoadLocation(q.Timezone); err == nil {
			loc = detected
		}
	}

	src := clock.New(baseClock, loc)
	offset, err := cfg.Offset()
	if err != nil {
		return nil, err
	}
	src.SetOffset(offset)
	if FlagSimDate != "" || FlagSimTime != "" {
		if err := src.Set(FlagSimDate, FlagSimTime); err != nil {
			return nil, err
		}
		log.Info().Str("status", src.Status().String()).Msg("clock override applied")
	}

	client := api.NewClient()
	if apiBaseURL != "" {
		client.BaseURL = apiBaseURL
	}
	provider := api.NewProvider(client, q)

	resolver, err := cfg.Resolver(provider)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:        cfg,
		clock:      src,
		provider:   provider,
		resolver:   resolver,
		rules:      cfg.Rules(),
		timeLayout: display.GoTimeFormat(cfg.TimeFormat),
		place:      place,
	}, nil
}

// resolveQuery determines the provider query from the config.
// Priority: coordinates > city and country > IP auto-detect.
func resolveQuery(ctx context.Context, cfg *config.Config) (api.Query, string, error) {
	q := api.Query{
		Method:         cfg.MethodOrDefault(-1),
		School:         cfg.SchoolOrDefault(-1),
		MethodSettings: cfg.MethodSettings,
		Tune:           cfg.Tune,
		Timezone:       cfg.Timezone,
	}

	switch {
	case cfg.Latitude != 0 || cfg.Longitude != 0:
		q.Latitude, q.Longitude = cfg.Latitude, cfg.Longitude
		return q, placeName(cfg.City, cfg.Country, q.Latitude, q.Longitude), nil
	case cfg.City != "":
		if cfg.Country == "" {
			return api.Query{}, "", fmt.Errorf("--country is required when using --city")
		}
		q.City, q.Country = cfg.City, cfg.Country
		return q, placeName(cfg.City, cfg.Country, 0, 0), nil
	default:
		detected, err := detectLocation(ctx)
		if err != nil {
			return api.Query{}, "", fmt.Errorf("no location specified and auto-detection failed: %w", err)
		}
		log.Info().Str("city", detected.City).Float64("lat", detected.Latitude).Float64("lon", detected.Longitude).Msg("location detected")
		q.Latitude, q.Longitude = detected.Latitude, detected.Longitude
		if q.Timezone == "" {
			q.Timezone = detected.Timezone
		}
		return q, placeName(detected.City, detected.Country, q.Latitude, q.Longitude), nil
	}
}

// placeName builds a "City, Country" string, falling back to coordinates.
func placeName(city, country string, lat, lon float64) string {
	if city != "" && country != "" {
		return city + ", " + country
	}
	return fmt.Sprintf("%.4f, %.4f", lat, lon)
}

// boardOptions maps the config onto the display controller.
func (a *app) boardOptions() (board.Options, error) {
	delay, err := a.cfg.RetryDelayDuration()
	if err != nil {
		return board.Options{}, err
	}
	return board.Options{
		Rules:           a.rules,
		CountdownFormat: a.cfg.CountdownFormat,
		MaxRetries:      a.cfg.MaxRetries,
		RetryDelay:      delay,
		JumaaTime:       a.cfg.Jumaa.Time,
		IshaTime:        a.cfg.IshaTime,
	}, nil
}

// dayView is one evaluation of the board outside the display loop.
type dayView struct {
	Now       time.Time
	Schedule  board.Schedule
	Highlight *prayer.Result
	Next      *prayer.Result
	Label     prayer.Label
	Hijri     *hijri.Date
	HijriErr  error
}

// evaluate fetches today's times and evaluates them at the current instant.
// A Hijri failure is reported in the view, not as an error.
func (a *app) evaluate(ctx context.Context) (*dayView, error) {
	now := a.clock.Now()

	raw, err := a.provider.PrayerTimes(ctx, now)
	if err != nil {
		return nil, err
	}
	times := board.MergeLocalTimes(raw, a.cfg.Jumaa.Time, a.cfg.IshaTime)

	calc := prayer.NewCalculator(a.rules)
	v := &dayView{
		Now:       now,
		Schedule:  board.NewSchedule(a.rules, now, times),
		Highlight: calc.FindActiveOrUpcoming(now, times),
		Next:      calc.FindNextForDisplay(now, times),
	}
	if v.Next != nil && v.Next.Kind == prayer.NextDayFajr {
		v.Next = a.tomorrowFajr(ctx, now, v.Next)
	}
	v.Label = prayer.BuildLabel(v.Highlight, v.Next, now, a.cfg.CountdownFormat)

	maghrib, _ := prayer.ParseTimeOfDay(times[prayer.Maghrib], now)
	d, err := a.resolver.Resolve(ctx, now, maghrib)
	if err != nil {
		v.HijriErr = err
	} else {
		v.Hijri = &d
	}
	return v, nil
}

// tomorrowFajr replaces the estimate built from today's Fajr with tomorrow's
// fetched time. On failure the estimate is kept.
func (a *app) tomorrowFajr(ctx context.Context, now time.Time, estimate *prayer.Result) *prayer.Result {
	day := prayer.Tomorrow(now)
	times, err := a.provider.PrayerTimes(ctx, day)
	if err != nil {
		log.Warn().Err(err).Msg("cannot fetch tomorrow's times, using today's fajr")
		return estimate
	}
	start, err := prayer.ParseTimeOfDay(times[prayer.Fajr], day)
	if err != nil {
		return estimate
	}
	return &prayer.Result{Kind: prayer.NextDayFajr, Prayer: prayer.NewInstant(estimate.Prayer.Definition, start)}
}
