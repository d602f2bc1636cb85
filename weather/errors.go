package weather

import (
	"errors"
	"fmt"
)

// Enumerated fetch failures. Callers distinguish them with errors.Is/As; the
// protocol layer only ever renders their text.
var (
	// ErrMissingAPIKey means no upstream credential was configured.
	ErrMissingAPIKey = errors.New("OPENWEATHER_API_KEY environment variable not set")
	// ErrEmptyLocation means the caller supplied no location.
	ErrEmptyLocation = errors.New("no location provided")
	// ErrLocationNotFound means the upstream does not know the location.
	ErrLocationNotFound = errors.New("location not found")
)

// HTTPError is a non-404 upstream failure status.
type HTTPError struct {
	Status int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("weather API returned status %d", e.Status)
}
