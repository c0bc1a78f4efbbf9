package mqtt

import (
	"fmt"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// maxPayloadSize caps outbound messages at 1MB, the usual broker limit.
const maxPayloadSize = 1 << 20

// Publish sends payload to topic and waits for the broker acknowledgement
// (or the publish timeout).
//
// Parameters:
//   - topic: the topic to publish to (e.g., "graylogic/heating/request/abc-1")
//   - payload: the encoded message, max 1MB
//   - qos: Quality of Service level (0, 1, or 2)
//   - retained: whether the broker keeps the message for new subscribers
//
// Replies and telemetry are published with retained=false; only the
// status topic is retained.
//
// Do not call Publish from a MessageHandler: with ordered delivery the
// handler runs on paho's router goroutine, and the acknowledgement it
// waits for is queued behind the next inbound message. Use PublishAsync.
//
// Returns:
//   - error: nil on success, or wrapped error describing the failure
//
// Example:
//
//	topic := client.Topics().Request("abc-1")
//	err := client.Publish(topic, envelope, client.QoS(), false)
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	// Validate inputs
	if err := validatePublish(topic, payload, qos); err != nil {
		return err
	}

	// Check connection state
	if !c.IsConnected() {
		return ErrNotConnected
	}

	// Publish with timeout
	token := c.client.Publish(topic, qos, retained, payload)
	return waitPublish(token)
}

// PublishAsync hands payload to paho and returns without waiting for the
// broker acknowledgement. Delivery failures and timeouts are logged.
//
// Input validation and the connection check are still synchronous, so a
// nil error means the message was queued, not that it was delivered.
//
// Example:
//
//	err := client.PublishAsync(client.Topics().Telemetry(), event, client.QoS(), false)
func (c *Client) PublishAsync(topic string, payload []byte, qos byte, retained bool) error {
	if err := validatePublish(topic, payload, qos); err != nil {
		return err
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)

	// Wait for the acknowledgement off the caller's goroutine.
	go func() {
		if err := waitPublish(token); err != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Warn("MQTT publish not acknowledged",
					"topic", topic,
					"error", err,
				)
			}
		}
	}()

	return nil
}

func validatePublish(topic string, payload []byte, qos byte) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}
	return nil
}

func waitPublish(token pahomqtt.Token) error {
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}
