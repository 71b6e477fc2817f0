// Package geo finds the mosque's approximate location when none is configured.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultURL is the ip-api.com endpoint, restricted to the fields we read.
const DefaultURL = "http://ip-api.com/json/?fields=status,message,lat,lon,city,country,timezone"

// Location holds geographic coordinates detected from the public IP.
type Location struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
	City      string  `json:"city"`
	Country   string  `json:"country"`
	Timezone  string  `json:"timezone"`
}

// Zone loads the detected IANA time zone. It returns time.Local when none
// was reported.
func (l *Location) Zone() (*time.Location, error) {
	if l.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(l.Timezone)
	if err != nil {
		return nil, fmt.Errorf("detected timezone %q is unknown: %w", l.Timezone, err)
	}
	return loc, nil
}

type ipAPIResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Location
}

// Detector queries an IP geolocation service. The free ip-api.com tier
// requires no API key.
type Detector struct {
	httpClient *http.Client
	// URL is exported for testing with httptest.
	URL string
}

// NewDetector creates a Detector for ip-api.com with a short timeout.
func NewDetector() *Detector {
	return &Detector{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		URL:        DefaultURL,
	}
}

// Detect determines the location of the caller's public IP address.
func (d *Detector) Detect(ctx context.Context) (*Location, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build geolocation request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geolocation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geolocation API returned status %d", resp.StatusCode)
	}

	var result ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode geolocation response: %w", err)
	}
	if result.Status != "success" {
		return nil, fmt.Errorf("geolocation failed: %s", result.Message)
	}

	log.Debug().
		Str("city", result.City).
		Float64("lat", result.Latitude).
		Float64("lon", result.Longitude).
		Msg("location detected")

	loc := result.Location
	return &loc, nil
}
