package command

import "fmt"

// Kind is the closed set of commands a heating system accepts.
type Kind int

// Kind values. The zero value is not a valid command.
const (
	KindInvalid Kind = iota
	TurnOn
	TurnOff
	SetTemperature
)

// Wire names, case-sensitive.
const (
	wireTurnOn         = "On"
	wireTurnOff        = "Off"
	wireSetTemperature = "SetTemperature"
)

// String returns the wire name of k.
func (k Kind) String() string {
	switch k {
	case TurnOn:
		return wireTurnOn
	case TurnOff:
		return wireTurnOff
	case SetTemperature:
		return wireSetTemperature
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Valid reports whether k is one of the defined commands.
func (k Kind) Valid() bool {
	return k == TurnOn || k == TurnOff || k == SetTemperature
}

// ParseKind maps a wire name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case wireTurnOn:
		return TurnOn, nil
	case wireTurnOff:
		return TurnOff, nil
	case wireSetTemperature:
		return SetTemperature, nil
	default:
		return KindInvalid, fmt.Errorf("%w: unknown CommandType %q", ErrDecode, s)
	}
}
