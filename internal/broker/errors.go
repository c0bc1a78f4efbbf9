package broker

import "errors"

var (
	// ErrMissingCorrelationID is returned when a request topic or a reply
	// has no correlation id to route by.
	ErrMissingCorrelationID = errors.New("broker: missing correlation id")

	// ErrInvalidReading is returned when a sensor payload is not a finite
	// temperature.
	ErrInvalidReading = errors.New("broker: invalid sensor reading")
)
