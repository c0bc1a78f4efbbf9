package command

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/nerrad567/gray-logic-heating/internal/heating"
)

// Reply texts.
const (
	ReplyTurnedOn       = "The heating system has been turned on"
	ReplyTurnedOff      = "The heating system has been turned off"
	ReplyFault          = "FAULT"
	replyTargetPrefix   = "New target temperature is "
	telemetryInfix      = ";The telemetry registered for the device. "
	outcomeOK           = "ok"
	outcomeFault        = "fault"
	outcomeNotFound     = "not_found"
	outcomeUnsupported  = "unsupported"
	outcomeInvalidInput = "invalid_payload"
	outcomeError        = "error"
)

// StateStore is the part of heating.Store the dispatcher uses.
type StateStore interface {
	Read(ctx context.Context, id heating.DeviceID) (heating.ControlState, error)
	Write(ctx context.Context, id heating.DeviceID, m heating.Mutation) (heating.ControlState, error)
}

// Publisher delivers dispatch results. Replies are routed by correlation
// id; telemetry is broadcast.
type Publisher interface {
	PublishReply(ctx context.Context, correlationID, replyText string) error
	PublishTelemetry(ctx context.Context, telemetryText string) error
}

// Recorder receives metrics about each dispatch. It must not block.
type Recorder interface {
	WriteHeatingState(deviceID int64, isOn bool, target, current float64)
	WriteDispatch(deviceID int64, command, outcome string, elapsed time.Duration)
}

// Logger is the logging interface the dispatcher needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type noopRecorder struct{}

func (noopRecorder) WriteHeatingState(int64, bool, float64, float64)     {}
func (noopRecorder) WriteDispatch(int64, string, string, time.Duration) {}

// Result is the outcome of one successful dispatch.
type Result struct {
	ReplyText     string
	TelemetryText string
}

// Dispatcher executes commands against the state store and publishes the
// reply followed by the telemetry event.
type Dispatcher struct {
	store     StateStore
	publisher Publisher
	recorder  Recorder
	logger    Logger
	now       func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) {
		if r != nil {
			d.recorder = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDispatcher creates a Dispatcher over store that publishes via publisher.
func NewDispatcher(store StateStore, publisher Publisher, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:     store,
		publisher: publisher,
		recorder:  noopRecorder{},
		logger:    noopLogger{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch executes env and, on success, publishes the reply and then the
// telemetry event.
//
// Kind and payload are validated before the store is touched. A failed
// post-condition is not an error; it yields a FAULT reply. Publish
// failures are logged and do not fail the dispatch.
//
// Parameters:
//   - ctx: cancels store access and suppresses publishing once done
//   - correlationID: routes the reply; taken from the request topic
//   - env: the decoded command
//
// Returns:
//   - Result: the reply and telemetry texts that were published
//   - error: ErrUnsupportedCommand, ErrInvalidPayload,
//     heating.ErrDeviceNotFound or a store failure; nothing was published
//
// Example:
//
//	res, err := d.Dispatch(ctx, "abc-1", command.Envelope{
//	    DeviceID: 42, Kind: command.SetTemperature, Payload: "23.5",
//	})
//	// res.ReplyText == "New target temperature is 23.5"
func (d *Dispatcher) Dispatch(ctx context.Context, correlationID string, env Envelope) (Result, error) {
	start := d.now()
	deviceID := int64(env.DeviceID)

	// Reject unsupported kinds and bad payloads before any side effect
	mutation, err := mutationFor(env)
	if err != nil {
		d.recorder.WriteDispatch(deviceID, env.Kind.String(), outcomeFor(err), d.now().Sub(start))
		return Result{}, err
	}

	// Read, write, then read back the state to verify against
	observed, err := d.apply(ctx, env.DeviceID, mutation)
	if err != nil {
		d.recorder.WriteDispatch(deviceID, env.Kind.String(), outcomeFor(err), d.now().Sub(start))
		return Result{}, err
	}

	// Build reply and telemetry from the verified state
	reply := replyFor(env.Kind, observed)
	result := Result{
		ReplyText:     reply,
		TelemetryText: strconv.FormatInt(deviceID, 10) + telemetryInfix + reply,
	}

	outcome := outcomeOK
	if reply == ReplyFault {
		outcome = outcomeFault
		d.logger.Warn("post-condition check failed",
			"correlation_id", correlationID,
			"device_id", deviceID,
			"command", env.Kind.String(),
			"is_on", observed.IsOn,
		)
	}

	// Reply first, then telemetry
	d.publish(ctx, correlationID, deviceID, result)

	// Record metrics (non-blocking)
	d.recorder.WriteHeatingState(deviceID, observed.IsOn, observed.TargetTemperature, observed.CurrentTemperature)
	d.recorder.WriteDispatch(deviceID, env.Kind.String(), outcome, d.now().Sub(start))

	d.logger.Debug("command dispatched",
		"correlation_id", correlationID,
		"device_id", deviceID,
		"command", env.Kind.String(),
		"reply", reply,
	)
	return result, nil
}

// apply reads the device, writes the mutation, and reads it back.
func (d *Dispatcher) apply(ctx context.Context, id heating.DeviceID, m heating.Mutation) (heating.ControlState, error) {
	// Existence check; unknown devices fail here
	if _, err := d.store.Read(ctx, id); err != nil {
		return heating.ControlState{}, fmt.Errorf("reading device %d: %w", id, err)
	}
	if _, err := d.store.Write(ctx, id, m); err != nil {
		return heating.ControlState{}, fmt.Errorf("writing device %d: %w", id, err)
	}
	// Verify from storage, not from the write's return value
	observed, err := d.store.Read(ctx, id)
	if err != nil {
		return heating.ControlState{}, fmt.Errorf("verifying device %d: %w", id, err)
	}
	return observed, nil
}

// publish sends the reply, then the telemetry. A reply failure does not
// suppress the telemetry.
func (d *Dispatcher) publish(ctx context.Context, correlationID string, deviceID int64, result Result) {
	if err := d.publisher.PublishReply(ctx, correlationID, result.ReplyText); err != nil {
		d.logger.Error("publishing reply failed",
			"correlation_id", correlationID,
			"device_id", deviceID,
			"error", err,
		)
	}
	if err := d.publisher.PublishTelemetry(ctx, result.TelemetryText); err != nil {
		d.logger.Error("publishing telemetry failed",
			"correlation_id", correlationID,
			"device_id", deviceID,
			"error", err,
		)
	}
}

// mutationFor validates env and returns the write it calls for.
func mutationFor(env Envelope) (heating.Mutation, error) {
	switch env.Kind {
	case TurnOn:
		return heating.SetOn(true), nil
	case TurnOff:
		return heating.SetOn(false), nil
	case SetTemperature:
		celsius, ok := parseTemperature(env.Payload)
		if !ok {
			return heating.Mutation{}, fmt.Errorf("%w: %q is not a temperature", ErrInvalidPayload, env.Payload)
		}
		return heating.SetTarget(celsius), nil
	default:
		return heating.Mutation{}, fmt.Errorf("%w: %s", ErrUnsupportedCommand, env.Kind)
	}
}

// replyFor builds the reply from the verified state. On/off is checked
// against the observed flag; a new target is reported as read back.
func replyFor(kind Kind, observed heating.ControlState) string {
	switch kind {
	case TurnOn:
		if observed.IsOn {
			return ReplyTurnedOn
		}
		return ReplyFault
	case TurnOff:
		if !observed.IsOn {
			return ReplyTurnedOff
		}
		return ReplyFault
	default:
		return replyTargetPrefix + formatTemperature(observed.TargetTemperature)
	}
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, heating.ErrDeviceNotFound):
		return outcomeNotFound
	case errors.Is(err, ErrUnsupportedCommand):
		return outcomeUnsupported
	case errors.Is(err, ErrInvalidPayload):
		return outcomeInvalidInput
	default:
		return outcomeError
	}
}
