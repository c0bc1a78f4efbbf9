// Package command decodes heating commands and executes them.
//
// An Envelope names a device, a Kind (On, Off or SetTemperature) and, for
// SetTemperature, a textual payload. A Codec converts envelopes to and from
// wire bytes; JSON is the default and CBOR is available for constrained
// clients.
//
// The Dispatcher runs one envelope end to end: it validates the kind and
// payload, writes the mutation to the state store, reads the state back to
// verify it, then publishes a reply to the requester followed by a
// telemetry event for any observer. A device that does not reach the
// requested on/off state yields the reply "FAULT".
//
// # Usage
//
//	codec, _ := command.NewCodec("json")
//	env, err := codec.Decode(payload)
//	if err != nil {
//	    return // malformed, drop it
//	}
//
//	d := command.NewDispatcher(store, outbound, command.WithLogger(log))
//	result, err := d.Dispatch(ctx, correlationID, env)
package command
