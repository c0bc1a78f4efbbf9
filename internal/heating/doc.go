// Package heating owns the control state of heating systems.
//
// A heating system is identified by a DeviceID and has three values:
// whether it is on, its target temperature, and its current (measured)
// temperature. Commands may change the first two; the current temperature
// is written only by sensor ingestion.
//
// # Concurrency
//
// Store.Write is an atomic read-modify-write per device: SQLiteStore
// serialises writers to the same DeviceID with a reference-counted keyed
// mutex and applies each mutation in a single transaction. Writers to
// different devices never wait on each other's lock.
//
// # Usage
//
//	store := heating.NewSQLiteStore(db.DB)
//	svc := heating.NewService(store, logger)
//
//	state, err := svc.SetTargetTemperature(ctx, 42, 21.5)
//	if errors.Is(err, heating.ErrDeviceNotFound) {
//	    // unknown device
//	}
package heating
