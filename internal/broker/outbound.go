package broker

import (
	"context"
	"fmt"

	"github.com/nerrad567/gray-logic-heating/internal/command"
	"github.com/nerrad567/gray-logic-heating/internal/infrastructure/mqtt"
)

// ReplyPrefix precedes every reply text on the response topic.
const ReplyPrefix = "The procedure has been executed.\n"

// Publisher is the MQTT publish surface the gateways need.
//
// PublishAsync must not wait for the broker acknowledgement: replies and
// telemetry are sent from inside the inbound message handler, which runs
// on the MQTT client's delivery goroutine.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	PublishAsync(topic string, payload []byte, qos byte, retained bool) error
}

// Outbound publishes replies, telemetry and submitted commands.
// It implements command.Publisher.
type Outbound struct {
	client Publisher
	topics mqtt.Topics
	qos    byte
	codec  command.Codec
}

// NewOutbound creates an Outbound that frames messages with codec.
func NewOutbound(client Publisher, topics mqtt.Topics, qos byte, codec command.Codec) *Outbound {
	return &Outbound{client: client, topics: topics, qos: qos, codec: codec}
}

// PublishReply queues the reply for correlationID on its response topic.
func (o *Outbound) PublishReply(ctx context.Context, correlationID, replyText string) error {
	if correlationID == "" {
		return ErrMissingCorrelationID
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	topic := o.topics.Response(correlationID)
	if err := o.client.PublishAsync(topic, o.codec.EncodeReply(ReplyPrefix+replyText), o.qos, false); err != nil {
		return fmt.Errorf("publishing reply to %s: %w", topic, err)
	}
	return nil
}

// PublishTelemetry queues a telemetry event.
func (o *Outbound) PublishTelemetry(ctx context.Context, telemetryText string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	topic := o.topics.Telemetry()
	if err := o.client.PublishAsync(topic, o.codec.EncodeTelemetry(telemetryText), o.qos, false); err != nil {
		return fmt.Errorf("publishing telemetry to %s: %w", topic, err)
	}
	return nil
}

// SubmitCommand publishes env to the request topic for correlationID and
// returns the topic its reply will arrive on. It waits for the broker
// acknowledgement, so call it from outside MQTT handlers.
func (o *Outbound) SubmitCommand(ctx context.Context, correlationID string, env command.Envelope) (string, error) {
	if correlationID == "" {
		return "", ErrMissingCorrelationID
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	payload, err := o.codec.Encode(env)
	if err != nil {
		return "", err
	}
	topic := o.topics.Request(correlationID)
	if err := o.client.Publish(topic, payload, o.qos, false); err != nil {
		return "", fmt.Errorf("publishing command to %s: %w", topic, err)
	}
	return o.topics.Response(correlationID), nil
}
