package broker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-heating/internal/command"
	"github.com/nerrad567/gray-logic-heating/internal/heating"
	"github.com/nerrad567/gray-logic-heating/internal/infrastructure/mqtt"
)

// TemperatureRecorder stores a measured temperature.
type TemperatureRecorder interface {
	RecordCurrentTemperature(ctx context.Context, id heating.DeviceID, celsius float64) error
}

// ReadingSink receives accepted readings for metrics.
type ReadingSink interface {
	WriteSensorReading(deviceID int64, celsius float64, at time.Time)
}

// SensorOptions configures a SensorIngest.
type SensorOptions struct {
	Client   Subscriber
	Topics   mqtt.Topics
	QoS      byte
	Codec    command.Codec
	Recorder TemperatureRecorder

	// Sink and Logger are optional.
	Sink   ReadingSink
	Logger Logger
}

// SensorIngest updates the current temperature of heating systems from
// readings published on graylogic/heating/sensor/{device_id}. The payload
// is the temperature in Celsius as text, framed by the configured codec.
type SensorIngest struct {
	client   Subscriber
	topics   mqtt.Topics
	qos      byte
	codec    command.Codec
	recorder TemperatureRecorder
	sink     ReadingSink
	logger   Logger
	now      func() time.Time

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	active bool
}

// NewSensorIngest creates a SensorIngest. Call Start to subscribe.
func NewSensorIngest(opts SensorOptions) (*SensorIngest, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if opts.Codec == nil {
		return nil, fmt.Errorf("codec is required")
	}
	if opts.Recorder == nil {
		return nil, fmt.Errorf("temperature recorder is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &SensorIngest{
		client:   opts.Client,
		topics:   opts.Topics,
		qos:      opts.QoS,
		codec:    opts.Codec,
		recorder: opts.Recorder,
		sink:     opts.Sink,
		logger:   logger,
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start subscribes to all sensor topics.
func (s *SensorIngest) Start(ctx context.Context) error {
	s.mu.Lock()
	s.cancel()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	topic := s.topics.AllSensors()
	if err := s.client.Subscribe(topic, s.qos, s.Handle); err != nil {
		return fmt.Errorf("subscribe to sensors: %w", err)
	}

	s.mu.Lock()
	s.active = true
	s.mu.Unlock()

	s.logger.Info("subscribed to heating sensors", "topic", topic)
	return nil
}

// Stop unsubscribes from sensor topics.
func (s *SensorIngest) Stop() {
	s.mu.Lock()
	active := s.active
	s.active = false
	s.cancel()
	s.mu.Unlock()

	if !active {
		return
	}
	if err := s.client.Unsubscribe(s.topics.AllSensors()); err != nil {
		s.logger.Warn("unsubscribe from sensors failed", "error", err)
	}
}

// Handle records one sensor reading. Failures are logged and dropped.
func (s *SensorIngest) Handle(topic string, payload []byte) error {
	deviceID, celsius, err := s.parse(topic, payload)
	if err != nil {
		s.logger.Warn("dropping sensor reading", "topic", topic, "error", err)
		return nil
	}

	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	if err := s.recorder.RecordCurrentTemperature(ctx, heating.DeviceID(deviceID), celsius); err != nil {
		if errors.Is(err, heating.ErrDeviceNotFound) {
			s.logger.Warn("sensor reading for unknown device", "device_id", deviceID)
			return nil
		}
		s.logger.Error("recording sensor reading failed", "device_id", deviceID, "error", err)
		return nil
	}

	// Metrics sink is optional
	if s.sink != nil {
		s.sink.WriteSensorReading(deviceID, celsius, s.now())
	}
	return nil
}

func (s *SensorIngest) parse(topic string, payload []byte) (int64, float64, error) {
	deviceID, err := mqtt.ParseSensorDeviceID(topic)
	if err != nil {
		return 0, 0, err
	}
	text, err := s.codec.DecodeText(payload)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrInvalidReading, err)
	}

	// Finite decimal only
	celsius, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(celsius) || math.IsInf(celsius, 0) {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidReading, text)
	}
	return deviceID, celsius, nil
}
