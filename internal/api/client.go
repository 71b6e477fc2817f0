package api

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultBaseURL = "https://api.aladhan.com/v1"

// CustomMethod is the Al Adhan method id that enables methodSettings.
const CustomMethod = 99

// Client communicates with the Al Adhan prayer times API.
type Client struct {
	httpClient *http.Client
	// BaseURL is the API base URL. Defaults to the Al Adhan API.
	// Exported for testing with httptest.
	BaseURL string
}

// NewClient creates a new API client with sensible defaults.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		BaseURL: defaultBaseURL,
	}
}

// Query describes the location and calculation settings sent with a timings request.
// Method and School are omitted when negative.
type Query struct {
	Latitude  float64
	Longitude float64
	City      string
	Country   string
	Method    int
	School    int
	// MethodSettings is sent only with CustomMethod, e.g. "12.55,,12.65".
	MethodSettings string
	// Tune holds per-prayer minute offsets, e.g. "0,0,0,5,0,3,0,0,0".
	Tune     string
	Timezone string
}

// ByCity reports whether the query should use the city endpoint.
func (q Query) ByCity() bool {
	return q.City != "" && q.Latitude == 0 && q.Longitude == 0
}

func (q Query) params() url.Values {
	params := url.Values{}
	if q.Method >= 0 {
		params.Set("method", strconv.Itoa(q.Method))
	}
	if q.Method == CustomMethod && q.MethodSettings != "" {
		params.Set("methodSettings", q.MethodSettings)
	}
	if q.School >= 0 {
		params.Set("school", strconv.Itoa(q.School))
	}
	if q.Tune != "" {
		params.Set("tune", q.Tune)
	}
	if q.Timezone != "" {
		params.Set("timezonestring", q.Timezone)
	}
	return params
}

// FetchError is a failed request to the timing service: transport, HTTP
// status, decompression, decoding or an API-level error code.
type FetchError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// FetchTimings fetches prayer times for date, by coordinates or by city.
func (c *Client) FetchTimings(ctx context.Context, date time.Time, q Query) (*Response, error) {
	if q.ByCity() {
		return c.FetchByCity(ctx, date, q)
	}
	return c.FetchByCoordinates(ctx, date, q)
}

// FetchByCoordinates fetches prayer times for the given date and coordinates.
func (c *Client) FetchByCoordinates(ctx context.Context, date time.Time, q Query) (*Response, error) {
	endpoint := fmt.Sprintf("%s/timings/%s", c.BaseURL, date.Format("02-01-2006"))

	params := q.params()
	params.Set("latitude", fmt.Sprintf("%f", q.Latitude))
	params.Set("longitude", fmt.Sprintf("%f", q.Longitude))

	var resp Response
	if err := c.doRequest(ctx, "fetch timings", endpoint, params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FetchByCity fetches prayer times for the given date, city, and country.
func (c *Client) FetchByCity(ctx context.Context, date time.Time, q Query) (*Response, error) {
	endpoint := fmt.Sprintf("%s/timingsByCity/%s", c.BaseURL, date.Format("02-01-2006"))

	params := q.params()
	params.Set("city", q.City)
	params.Set("country", q.Country)

	var resp Response
	if err := c.doRequest(ctx, "fetch timings", endpoint, params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FetchHijri converts a Gregorian date to its Hijri date.
func (c *Client) FetchHijri(ctx context.Context, date time.Time) (*HijriResponse, error) {
	endpoint := fmt.Sprintf("%s/gToH", c.BaseURL)

	params := url.Values{}
	params.Set("date", date.Format("02-01-2006"))

	var resp HijriResponse
	if err := c.doRequest(ctx, "fetch hijri date", endpoint, params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// envelope is the part of every Al Adhan response that carries the status.
// On errors the API puts a message string into data.
type envelope struct {
	Code   int             `json:"code"`
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func (c *Client) doRequest(ctx context.Context, op, endpoint string, params url.Values, out any) error {
	reqURL := fmt.Sprintf("%s?%s", endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return &FetchError{Op: op, Err: fmt.Errorf("failed to build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip")

	log.Debug().Str("url", reqURL).Msg("api request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &FetchError{Op: op, Err: fmt.Errorf("API request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := decodeBody(resp)
	if err != nil {
		return &FetchError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return &FetchError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body)),
		}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return &FetchError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode API response: %w", err)}
	}
	if env.Code != 200 {
		msg := env.Status
		var detail string
		if json.Unmarshal(env.Data, &detail) == nil && detail != "" {
			msg = detail
		}
		return &FetchError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("API error: code=%d status=%s", env.Code, msg)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &FetchError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode API response: %w", err)}
	}
	return nil
}

// decodeBody reads the response body, inflating gzip payloads whether or not
// the server labelled them.
func decodeBody(resp *http.Response) ([]byte, error) {
	br := bufio.NewReader(resp.Body)
	magic, _ := br.Peek(2)

	var r io.Reader = br
	if resp.Header.Get("Content-Encoding") == "gzip" || (len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b) {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress API response: %w", err)
		}
		defer zr.Close()
		r = zr
	}

	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read API response: %w", err)
	}
	return body, nil
}
