// Package weather fetches and formats weather reports from the OpenWeatherMap
// API. It knows nothing about the protocol layer above it: callers get a
// display string or a typed error.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Units accepted by the upstream API.
const (
	UnitsMetric   = "metric"
	UnitsImperial = "imperial"
	UnitsKelvin   = "kelvin"
)

// Forecast length bounds.
const (
	MinForecastDays     = 1
	MaxForecastDays     = 5
	DefaultForecastDays = 5
)

// Client talks to the OpenWeatherMap API.
type Client struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithLogger overrides the logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithHTTPClient overrides the HTTP client used for upstream requests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New constructs a Client. Zero config fields fall back to defaults; a missing
// API key is only surfaced when a fetch is attempted.
func New(cfg Config, opts ...ClientOption) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	c := &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromEnv builds a Client from envdecode-populated Config.
func NewFromEnv(opts ...ClientOption) *Client {
	return New(ConfigFromEnv(), opts...)
}

// Current returns a formatted current-weather report for the location.
func (c *Client) Current(ctx context.Context, location, units string) (string, error) {
	units = normalizeUnits(units)
	data, err := fetch[currentResponse](ctx, c, "/weather", location, units)
	if err != nil {
		return "", err
	}
	return formatCurrent(data, units), nil
}

// Forecast returns a formatted multi-day forecast for the location. Days
// outside [MinForecastDays, MaxForecastDays] fall back to the default length.
func (c *Client) Forecast(ctx context.Context, location, units string, days int) (string, error) {
	if days < MinForecastDays || days > MaxForecastDays {
		days = DefaultForecastDays
	}
	units = normalizeUnits(units)
	data, err := fetch[forecastResponse](ctx, c, "/forecast", location, units)
	if err != nil {
		return "", err
	}
	return formatForecast(data, units, days), nil
}

// fetch issues one GET against the upstream API and decodes the payload.
func fetch[T any](ctx context.Context, c *Client, path, location, units string) (*T, error) {
	if c.cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if strings.TrimSpace(location) == "" {
		return nil, ErrEmptyLocation
	}

	q := url.Values{}
	q.Set("q", location)
	q.Set("appid", c.cfg.APIKey)
	q.Set("units", units)

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build weather request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()

	c.log.DebugContext(ctx, "weather.fetch",
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Int64("dur_ms", time.Since(start).Milliseconds()))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("location %q: %w", location, ErrLocationNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, &HTTPError{Status: resp.StatusCode}
	}

	var data T
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode weather response: %w", err)
	}
	return &data, nil
}

// normalizeUnits maps the tool-facing units value onto the upstream query
// parameter. The upstream treats anything unknown as standard (Kelvin), which
// is exactly what the kelvin option means.
func normalizeUnits(units string) string {
	switch units {
	case UnitsMetric, UnitsImperial:
		return units
	case UnitsKelvin:
		return "standard"
	case "":
		return UnitsMetric
	default:
		return units
	}
}

// Wire shapes for the two upstream endpoints; only the fields the reports
// render are decoded.

type currentResponse struct {
	Name string `json:"name"`
	Sys  struct {
		Country string `json:"country"`
	} `json:"sys"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
		Pressure  int     `json:"pressure"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

type forecastResponse struct {
	City struct {
		Name    string `json:"name"`
		Country string `json:"country"`
	} `json:"city"`
	List []forecastEntry `json:"list"`
}

type forecastEntry struct {
	DtTxt string `json:"dt_txt"`
	Main  struct {
		Temp     float64 `json:"temp"`
		TempMin  float64 `json:"temp_min"`
		TempMax  float64 `json:"temp_max"`
		Humidity int     `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
}
