// Package weather fetches current conditions from OpenWeatherMap so a diet plan
// can take the season and temperature into account.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const DefaultBaseURL = "https://api.openweathermap.org/data/2.5"

var (
	// ErrNotConfigured is returned when no API key is available.
	ErrNotConfigured = errors.New("weather backend is not configured")
	// ErrInvalidLocation is returned for out-of-range coordinates or an empty city.
	ErrInvalidLocation = errors.New("invalid location")
	// ErrBackend wraps transport failures and non-200 answers.
	ErrBackend = errors.New("weather backend error")
)

// Report is the subset of the OpenWeatherMap current-weather payload the
// service uses. Field names follow the upstream JSON.
type Report struct {
	Name string `json:"name"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Coord struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coord"`
}

// Summary renders the report as one line of prompt context, with plain words for
// temperature and humidity extremes.
func (r Report) Summary() string {
	var sb strings.Builder
	if r.Name != "" {
		sb.WriteString(fmt.Sprintf("Weather in %s: ", r.Name))
	} else {
		sb.WriteString("Weather: ")
	}
	sb.WriteString(fmt.Sprintf("%.1f°C, humidity %d%%", r.Main.Temp, r.Main.Humidity))
	if len(r.Weather) > 0 && r.Weather[0].Description != "" {
		sb.WriteString(", " + r.Weather[0].Description)
	}

	var notes []string
	switch {
	case r.Main.Temp >= 32:
		notes = append(notes, "hot weather")
	case r.Main.Temp <= 15:
		notes = append(notes, "cold weather")
	}
	if r.Main.Humidity >= 75 {
		notes = append(notes, "humid")
	}
	if len(r.Weather) > 0 && strings.EqualFold(r.Weather[0].Main, "Rain") {
		notes = append(notes, "rainy")
	}
	if len(notes) > 0 {
		sb.WriteString(" (" + strings.Join(notes, ", ") + ")")
	}
	return sb.String()
}

// Client calls the OpenWeatherMap current-weather endpoint.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient returns a Client for baseURL; an empty baseURL selects the public API.
func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// GetWeather returns current conditions at the given coordinates.
func (c *Client) GetWeather(ctx context.Context, lat, lon float64) (*Report, error) {
	if !validCoordinate(lat, 90) || !validCoordinate(lon, 180) {
		return nil, fmt.Errorf("%w: lat=%f lon=%f", ErrInvalidLocation, lat, lon)
	}
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	return c.get(ctx, q)
}

// GetWeatherByCity returns current conditions for a city name such as "Pune,IN".
func (c *Client) GetWeatherByCity(ctx context.Context, city string) (*Report, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, fmt.Errorf("%w: empty city", ErrInvalidLocation)
	}
	q := url.Values{}
	q.Set("q", city)
	return c.get(ctx, q)
}

func (c *Client) get(ctx context.Context, q url.Values) (*Report, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}
	q.Set("appid", c.apiKey)
	q.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/weather?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// The url.Error text carries the request URL, and with it the API key.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, fmt.Errorf("%w: request failed: %v", ErrBackend, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrBackend, err)
	}
	if resp.StatusCode != http.StatusOK {
		log.Warn().Int("status", resp.StatusCode).Msg("Weather backend returned an error")
		return nil, fmt.Errorf("%w: status %d: %s", ErrBackend, resp.StatusCode, string(body))
	}

	var report Report
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", ErrBackend, err)
	}
	return &report, nil
}

func validCoordinate(v, limit float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= -limit && v <= limit
}
