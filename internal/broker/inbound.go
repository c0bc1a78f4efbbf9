package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nerrad567/gray-logic-heating/internal/command"
	"github.com/nerrad567/gray-logic-heating/internal/infrastructure/mqtt"
)

// Subscriber is the MQTT subscription surface the gateways need.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Dispatcher executes one decoded command.
type Dispatcher interface {
	Dispatch(ctx context.Context, correlationID string, env command.Envelope) (command.Result, error)
}

// Logger is the logging interface the gateways need.
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

// InboundOptions configures an Inbound gateway.
type InboundOptions struct {
	Client     Subscriber
	Topics     mqtt.Topics
	QoS        byte
	Codec      command.Codec
	Dispatcher Dispatcher

	// ConsumerGroup, when set, subscribes through a shared subscription.
	ConsumerGroup string

	// Logger is optional.
	Logger Logger
}

// Inbound consumes command requests and hands each to the dispatcher.
//
// Messages are processed one at a time in delivery order; the MQTT client
// is configured with ordered delivery so the handler is never re-entered.
type Inbound struct {
	client     Subscriber
	topics     mqtt.Topics
	qos        byte
	codec      command.Codec
	dispatcher Dispatcher
	group      string
	logger     Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	topic  string
}

// NewInbound creates an Inbound gateway. Call Start to subscribe.
func NewInbound(opts InboundOptions) (*Inbound, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if opts.Codec == nil {
		return nil, fmt.Errorf("codec is required")
	}
	if opts.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Inbound{
		client:     opts.Client,
		topics:     opts.Topics,
		qos:        opts.QoS,
		codec:      opts.Codec,
		dispatcher: opts.Dispatcher,
		group:      opts.ConsumerGroup,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// Start subscribes to the request topic. Dispatch contexts derive from ctx
// until Stop is called.
func (i *Inbound) Start(ctx context.Context) error {
	i.mu.Lock()
	i.cancel()
	i.ctx, i.cancel = context.WithCancel(ctx)
	i.topic = i.topics.AllRequests(i.group)
	topic := i.topic
	i.mu.Unlock()

	if err := i.client.Subscribe(topic, i.qos, i.Handle); err != nil {
		return fmt.Errorf("subscribe to requests: %w", err)
	}
	i.logger.Info("subscribed to heating requests", "topic", topic, "codec", i.codec.Name())
	return nil
}

// Stop unsubscribes and cancels in-flight dispatches.
func (i *Inbound) Stop() {
	i.mu.Lock()
	topic := i.topic
	i.topic = ""
	i.cancel()
	i.mu.Unlock()

	if topic == "" {
		return
	}
	if err := i.client.Unsubscribe(topic); err != nil {
		i.logger.Warn("unsubscribe from requests failed", "topic", topic, "error", err)
	}
}

// Handle processes one request message. Every failure is logged here, so
// it always returns nil to the MQTT client.
func (i *Inbound) Handle(topic string, payload []byte) error {
	// The last topic level is the correlation id
	correlationID := mqtt.LastLevel(topic)
	if correlationID == "" {
		i.logger.Warn("dropping request without correlation id", "topic", topic)
		return nil
	}

	// Undecodable messages are dropped, never redelivered
	env, err := i.codec.Decode(payload)
	if err != nil {
		i.logger.Warn("dropping undecodable request",
			"correlation_id", correlationID,
			"error", err,
		)
		return nil
	}

	i.mu.Lock()
	ctx := i.ctx
	i.mu.Unlock()

	// Shutdown cancellations are expected; log them quieter
	if _, err := i.dispatcher.Dispatch(ctx, correlationID, env); err != nil {
		level := i.logger.Error
		if errors.Is(err, context.Canceled) {
			level = i.logger.Warn
		}
		level("command dispatch failed",
			"correlation_id", correlationID,
			"device_id", int64(env.DeviceID),
			"command", env.Kind.String(),
			"error", err,
		)
	}
	return nil
}
