package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	measurementHeatingState = "heating_state"
	measurementDispatch     = "heating_dispatch"
	measurementSensor       = "heating_sensor"
)

// WriteHeatingState records the verified control state of a device after
// a command.
//
// Example:
//
//	client.WriteHeatingState(42, true, 21.5, 19.0)
func (c *Client) WriteHeatingState(deviceID int64, isOn bool, target, current float64) {
	c.writePoint(measurementHeatingState,
		map[string]string{"device_id": strconv.FormatInt(deviceID, 10)},
		map[string]any{
			"is_on":               isOn,
			"target_temperature":  target,
			"current_temperature": current,
		},
		time.Now(),
	)
}

// WriteDispatch records one processed command: its kind, outcome
// ("ok", "fault" or an error class) and how long the dispatch took.
func (c *Client) WriteDispatch(deviceID int64, command, outcome string, elapsed time.Duration) {
	c.writePoint(measurementDispatch,
		map[string]string{
			"device_id": strconv.FormatInt(deviceID, 10),
			"command":   command,
			"outcome":   outcome,
		},
		map[string]any{"duration_ms": float64(elapsed.Microseconds()) / 1000},
		time.Now(),
	)
}

// WriteSensorReading records a current temperature reading ingested from a sensor.
func (c *Client) WriteSensorReading(deviceID int64, celsius float64, at time.Time) {
	c.writePoint(measurementSensor,
		map[string]string{"device_id": strconv.FormatInt(deviceID, 10)},
		map[string]any{"temperature_c": celsius},
		at,
	)
}

func (c *Client) writePoint(measurement string, tags map[string]string, fields map[string]any, ts time.Time) {
	if !c.IsConnected() {
		return
	}
	if c.site != "" {
		tags["site"] = c.site
	}
	c.writer.WritePoint(write.NewPoint(measurement, tags, fields, ts))
}
