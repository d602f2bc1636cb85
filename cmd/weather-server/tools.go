package main

import (
	"context"

	"github.com/wxtools/weather-server-go/toolset"
	"github.com/wxtools/weather-server-go/weather"
)

// currentArgs are the arguments for the get_weather tool.
type currentArgs struct {
	Location string `json:"location" jsonschema:"description=City name (e.g. 'London' or 'New York')"`
	Units    string `json:"units,omitempty" jsonschema:"enum=metric,enum=imperial,enum=kelvin,default=metric,description=Temperature units (metric for Celsius; imperial for Fahrenheit)"`
}

// forecastArgs are the arguments for the get_weather_forecast tool.
type forecastArgs struct {
	Location string `json:"location" jsonschema:"description=City name (e.g. 'London' or 'New York')"`
	Units    string `json:"units,omitempty" jsonschema:"enum=metric,enum=imperial,enum=kelvin,default=metric,description=Temperature units"`
	Days     int    `json:"days,omitempty" jsonschema:"minimum=1,maximum=5,default=5,description=Number of days to forecast (1-5)"`
}

// weatherTools binds the weather client to the tool registry. Missing optional
// arguments pass through as zero values; the client applies its own defaults.
func weatherTools(client *weather.Client) (*toolset.Registry, error) {
	return toolset.NewRegistry(
		toolset.TypedTool("get_weather",
			func(ctx context.Context, a currentArgs) (string, error) {
				return client.Current(ctx, a.Location, a.Units)
			},
			toolset.WithDescription("Get current weather for a location"),
		),
		toolset.TypedTool("get_weather_forecast",
			func(ctx context.Context, a forecastArgs) (string, error) {
				return client.Forecast(ctx, a.Location, a.Units, a.Days)
			},
			toolset.WithDescription("Get multi-day weather forecast for a location"),
		),
	)
}
