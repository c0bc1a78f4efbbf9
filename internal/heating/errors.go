package heating

import "errors"

// Domain errors for the heating package.
//
//	if errors.Is(err, heating.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when a device id has no heating system.
	ErrDeviceNotFound = errors.New("heating: device not found")

	// ErrDeviceExists is returned when creating a heating system whose id is taken.
	ErrDeviceExists = errors.New("heating: device already exists")

	// ErrInvalidDeviceID is returned for ids that are zero or negative.
	ErrInvalidDeviceID = errors.New("heating: invalid device id")

	// ErrInvalidTemperature is returned for NaN or infinite temperatures.
	ErrInvalidTemperature = errors.New("heating: invalid temperature")
)
