package heating

import (
	"fmt"
	"math"
)

// DeviceID identifies one heating system.
type DeviceID int64

// Validate rejects ids the store can never hold.
func (id DeviceID) Validate() error {
	if id <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidDeviceID, int64(id))
	}
	return nil
}

// ControlState is the stored state of one heating system.
type ControlState struct {
	DeviceID           DeviceID `json:"device_id"`
	IsOn               bool     `json:"is_on"`
	TargetTemperature  float64  `json:"target_temperature"`
	CurrentTemperature float64  `json:"current_temperature"`
}

// Mutation is a partial update to a ControlState. Nil fields are left as
// they are. Commands never overwrite the measured CurrentTemperature.
type Mutation struct {
	IsOn              *bool
	TargetTemperature *float64
}

// SetOn returns a Mutation that only switches the system on or off.
func SetOn(on bool) Mutation {
	return Mutation{IsOn: &on}
}

// SetTarget returns a Mutation that only changes the target temperature.
func SetTarget(celsius float64) Mutation {
	return Mutation{TargetTemperature: &celsius}
}

// Validate checks the temperature carried by the mutation, if any.
func (m Mutation) Validate() error {
	if m.TargetTemperature != nil {
		return ValidateTemperature(*m.TargetTemperature)
	}
	return nil
}

// ValidateTemperature rejects values that cannot be stored as a REAL.
func ValidateTemperature(celsius float64) error {
	if math.IsNaN(celsius) || math.IsInf(celsius, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidTemperature, celsius)
	}
	return nil
}

// HeatingSystem is the externally visible view of a heating system, used
// by the HTTP API. It carries no current temperature; that is queried
// separately.
type HeatingSystem struct {
	ID                DeviceID `json:"id"`
	IsOn              bool     `json:"is_on"`
	TargetTemperature float64  `json:"target_temperature"`
}

// View converts a ControlState to its external view.
func (s ControlState) View() HeatingSystem {
	return HeatingSystem{
		ID:                s.DeviceID,
		IsOn:              s.IsOn,
		TargetTemperature: s.TargetTemperature,
	}
}
