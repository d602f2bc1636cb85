package weather

import (
	"log/slog"
	"time"

	"github.com/joeshaw/envdecode"
)

// Config for the OpenWeatherMap client. Defaults can be loaded via envdecode.
type Config struct {
	// APIKey authenticates against the upstream API. ENV: OPENWEATHER_API_KEY.
	// A missing key is not a startup error; fetches fail with ErrMissingAPIKey
	// when attempted.
	APIKey string `env:"OPENWEATHER_API_KEY"`
	// BaseURL of the upstream API. ENV: OPENWEATHER_BASE_URL
	BaseURL string `env:"OPENWEATHER_BASE_URL,default=https://api.openweathermap.org/data/2.5"`
	// Timeout for one upstream request. ENV: OPENWEATHER_TIMEOUT
	Timeout time.Duration `env:"OPENWEATHER_TIMEOUT,default=10s"`
}

const (
	defaultBaseURL = "https://api.openweathermap.org/data/2.5"
	defaultTimeout = 10 * time.Second
)

// ConfigFromEnv populates a Config from the environment using envdecode.
// Defaults are provided via struct tags. A decode failure (such as an
// unparseable OPENWEATHER_TIMEOUT) is logged and the affected fields fall
// back to the package defaults when the client is constructed.
func ConfigFromEnv() Config {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		slog.Warn("weather.config.decode_fail", slog.String("err", err.Error()))
	}
	return cfg
}
