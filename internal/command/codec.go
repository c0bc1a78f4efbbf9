package command

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/fxamacker/cbor/v2"

	"github.com/nerrad567/gray-logic-heating/internal/heating"
)

// Envelope is one inbound command.
type Envelope struct {
	DeviceID heating.DeviceID
	Kind     Kind
	// Payload is only read for SetTemperature.
	Payload string
}

// Codec converts envelopes, replies and telemetry to and from wire bytes.
type Codec interface {
	// Name returns the configured format name ("json" or "cbor").
	Name() string

	// Decode parses an inbound envelope. Errors wrap ErrDecode.
	Decode(data []byte) (Envelope, error)

	// Encode serialises an envelope for publishing on the request topic.
	Encode(env Envelope) ([]byte, error)

	// EncodeReply frames reply text for the response topic.
	EncodeReply(text string) []byte

	// EncodeTelemetry frames telemetry text for the telemetry topic.
	EncodeTelemetry(text string) []byte

	// DecodeText reverses EncodeReply / EncodeTelemetry.
	DecodeText(data []byte) (string, error)
}

// NewCodec returns the codec named by format, case-insensitively.
func NewCodec(format string) (Codec, error) {
	switch strings.ToLower(format) {
	case "", "json":
		return JSONCodec{}, nil
	case "cbor":
		return CBORCodec{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, format)
	}
}

// Wire field names. Matching is exact in both formats.
const (
	fieldDeviceID    = "DeviceId"
	fieldCommandType = "CommandType"
	fieldPayload     = "Payload"
)

// wireEnvelope is the on-the-wire shape shared by both formats.
// Pointers distinguish a missing field from its zero value.
type wireEnvelope struct {
	DeviceID    *int64  `json:"DeviceId" cbor:"DeviceId"`
	CommandType *string `json:"CommandType" cbor:"CommandType"`
	Payload     *string `json:"Payload,omitempty" cbor:"Payload,omitempty"`
}

func (w wireEnvelope) envelope() (Envelope, error) {
	if w.DeviceID == nil {
		return Envelope{}, fmt.Errorf("%w: missing DeviceId", ErrDecode)
	}
	if w.CommandType == nil {
		return Envelope{}, fmt.Errorf("%w: missing CommandType", ErrDecode)
	}
	kind, err := ParseKind(*w.CommandType)
	if err != nil {
		return Envelope{}, err
	}

	env := Envelope{DeviceID: heating.DeviceID(*w.DeviceID), Kind: kind}
	if w.Payload != nil {
		env.Payload = *w.Payload
	}
	return env, nil
}

func toWire(env Envelope) (wireEnvelope, error) {
	if !env.Kind.Valid() {
		return wireEnvelope{}, fmt.Errorf("%w: %s", ErrUnsupportedCommand, env.Kind)
	}
	id := int64(env.DeviceID)
	kind := env.Kind.String()
	w := wireEnvelope{DeviceID: &id, CommandType: &kind}
	if env.Payload != "" {
		payload := env.Payload
		w.Payload = &payload
	}
	return w, nil
}

// JSONCodec reads and writes envelopes as JSON objects:
//
//	{"DeviceId":42,"CommandType":"SetTemperature","Payload":"23.5"}
//
// Replies and telemetry are plain UTF-8 text.
type JSONCodec struct{}

// Name implements Codec.
func (JSONCodec) Name() string { return "json" }

// Decode implements Codec. Field names are case-sensitive and unknown
// fields are rejected.
func (JSONCodec) Decode(data []byte) (Envelope, error) {
	// encoding/json folds case when matching struct tags, so check the
	// object's keys before decoding into the wire struct.
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Envelope{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	for key := range fields {
		switch key {
		case fieldDeviceID, fieldCommandType, fieldPayload:
		default:
			return Envelope{}, fmt.Errorf("%w: unknown field %q", ErrDecode, key)
		}
	}

	var w wireEnvelope
	if err := json.Unmarshal(data, &w); err != nil {
		return Envelope{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return w.envelope()
}

// Encode implements Codec.
func (JSONCodec) Encode(env Envelope) ([]byte, error) {
	w, err := toWire(env)
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

// EncodeReply implements Codec.
func (JSONCodec) EncodeReply(text string) []byte { return []byte(text) }

// EncodeTelemetry implements Codec.
func (JSONCodec) EncodeTelemetry(text string) []byte { return []byte(text) }

// DecodeText implements Codec.
func (JSONCodec) DecodeText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: text is not valid UTF-8", ErrDecode)
	}
	return string(data), nil
}

var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error

	// Core Deterministic Encoding: identical envelopes give identical bytes.
	cborEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("command: CBOR encoder initialization failed: " + err.Error())
	}

	// Exact field names, no duplicates, no unknown fields.
	cborDec, err = cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
		FieldNameMatching: cbor.FieldNameMatchingCaseSensitive,
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
	}.DecMode()
	if err != nil {
		panic("command: CBOR decoder initialization failed: " + err.Error())
	}
}

// CBORCodec reads and writes envelopes as CBOR maps with the same keys as
// JSONCodec, matched the same way. Replies and telemetry are CBOR text
// strings.
type CBORCodec struct{}

// Name implements Codec.
func (CBORCodec) Name() string { return "cbor" }

// Decode implements Codec.
func (CBORCodec) Decode(data []byte) (Envelope, error) {
	var w wireEnvelope
	if err := cborDec.Unmarshal(data, &w); err != nil {
		return Envelope{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return w.envelope()
}

// Encode implements Codec.
func (CBORCodec) Encode(env Envelope) ([]byte, error) {
	w, err := toWire(env)
	if err != nil {
		return nil, err
	}
	return cborEnc.Marshal(w)
}

// EncodeReply implements Codec.
func (CBORCodec) EncodeReply(text string) []byte { return cborText(text) }

// EncodeTelemetry implements Codec.
func (CBORCodec) EncodeTelemetry(text string) []byte { return cborText(text) }

// DecodeText implements Codec.
func (CBORCodec) DecodeText(data []byte) (string, error) {
	var s string
	if err := cborDec.Unmarshal(data, &s); err != nil {
		return "", fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return s, nil
}

func cborText(text string) []byte {
	b, _ := cborEnc.Marshal(text) //nolint:errcheck // A Go string always encodes
	return b
}
