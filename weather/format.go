package weather

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

func unitSymbol(units string) string {
	switch units {
	case UnitsMetric:
		return "°C"
	case UnitsImperial:
		return "°F"
	default:
		return "K"
	}
}

func windUnit(units string) string {
	if units == UnitsImperial {
		return "mph"
	}
	return "m/s"
}

func formatCurrent(data *currentResponse, units string) string {
	description := ""
	if len(data.Weather) > 0 {
		description = titleCaser.String(data.Weather[0].Description)
	}
	sym := unitSymbol(units)

	return fmt.Sprintf(`🌤️ Weather Report for %s, %s

🌡️ Temperature: %s%s (feels like %s%s)
☁️ Conditions: %s
💧 Humidity: %d%%
🌪️ Wind Speed: %s %s
📊 Pressure: %d hPa`,
		data.Name, data.Sys.Country,
		trimFloat(data.Main.Temp), sym, trimFloat(data.Main.FeelsLike), sym,
		description,
		data.Main.Humidity,
		trimFloat(data.Wind.Speed), windUnit(units),
		data.Main.Pressure)
}

func formatForecast(data *forecastResponse, units string, days int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📅 %d-Day Weather Forecast for %s, %s\n\n", days, data.City.Name, data.City.Country)

	sym := unitSymbol(units)
	for i, day := range groupByDay(data.List) {
		if i >= days {
			break
		}
		entry := middayEntry(day.entries)

		tempMin, tempMax := day.entries[0].Main.TempMin, day.entries[0].Main.TempMax
		for _, e := range day.entries[1:] {
			tempMin = min(tempMin, e.Main.TempMin)
			tempMax = max(tempMax, e.Main.TempMax)
		}

		description := ""
		if len(entry.Weather) > 0 {
			description = titleCaser.String(entry.Weather[0].Description)
		}

		fmt.Fprintf(&b, "🗓️ **%s**\n", dayName(day.date))
		fmt.Fprintf(&b, "   🌡️ %.1f%s - %.1f%s\n", tempMin, sym, tempMax, sym)
		fmt.Fprintf(&b, "   ☁️ %s\n", description)
		fmt.Fprintf(&b, "   💧 Humidity: %d%%\n\n", entry.Main.Humidity)
	}

	return b.String()
}

type dayGroup struct {
	date    string
	entries []forecastEntry
}

// groupByDay buckets forecast entries per calendar date, preserving first
// appearance order.
func groupByDay(entries []forecastEntry) []dayGroup {
	var groups []dayGroup
	index := make(map[string]int)
	for _, e := range entries {
		date, _, _ := strings.Cut(e.DtTxt, " ")
		if date == "" {
			continue
		}
		i, ok := index[date]
		if !ok {
			i = len(groups)
			index[date] = i
			groups = append(groups, dayGroup{date: date})
		}
		groups[i].entries = append(groups[i].entries, e)
	}
	return groups
}

// middayEntry picks the forecast entry closest to 12:00 for a day's summary.
func middayEntry(entries []forecastEntry) forecastEntry {
	best := entries[0]
	bestDist := middayDistance(best)
	for _, e := range entries[1:] {
		if d := middayDistance(e); d < bestDist {
			best, bestDist = e, d
		}
	}
	return best
}

func middayDistance(e forecastEntry) int {
	_, rest, _ := strings.Cut(e.DtTxt, " ")
	hh, _, _ := strings.Cut(rest, ":")
	hour, err := strconv.Atoi(hh)
	if err != nil {
		return 24
	}
	if hour > 12 {
		return hour - 12
	}
	return 12 - hour
}

// dayName renders "2024-11-05" as "Tuesday, November 05". Unparseable dates
// pass through untouched.
func dayName(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return t.Format("Monday, January 02")
}

// trimFloat renders a float the way the upstream JSON carried it: no trailing
// zeros, no forced precision.
func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
