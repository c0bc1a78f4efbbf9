package command

import "errors"

var (
	// ErrDecode is returned when an inbound envelope cannot be decoded:
	// malformed bytes, a missing DeviceId, or a CommandType outside the
	// closed set. The message is dropped.
	ErrDecode = errors.New("command: decode failed")

	// ErrUnsupportedCommand is returned by Dispatch for a Kind it does not
	// handle. Nothing is written or published.
	ErrUnsupportedCommand = errors.New("command: unsupported command")

	// ErrInvalidPayload is returned by Dispatch when a SetTemperature
	// payload is not a finite number. Nothing is written or published.
	ErrInvalidPayload = errors.New("command: invalid payload")

	// ErrUnknownCodec is returned by NewCodec for an unrecognised format name.
	ErrUnknownCodec = errors.New("command: unknown codec")
)
