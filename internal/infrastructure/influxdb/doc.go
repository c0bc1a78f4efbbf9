// Package influxdb records heating metrics to InfluxDB v2.
//
// It wraps the official influxdb-client-go v2 library. Three measurements
// are written, each tagged with device_id and site:
//   - heating_state: verified control state after every command
//   - heating_dispatch: command kind, outcome and dispatch duration
//   - heating_sensor: current temperature readings from sensors
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB, cfg.Site.ID)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteHeatingState(42, true, 21.5, 19.0)
//
// Writes are non-blocking and batched (batch_size, flush_interval).
// Asynchronous write failures are delivered to the SetOnError callback.
package influxdb
