package mqtt

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultTopicPrefix is the root of all heating topics unless configured otherwise.
const DefaultTopicPrefix = "graylogic/heating"

// sharedSubscriptionPrefix marks an MQTT v5 / Mosquitto shared subscription.
const sharedSubscriptionPrefix = "$share"

// Topics builds heating MQTT topics under a common prefix.
//
// The correlation id of a command travels as the last topic level of both
// the request and its response, so a caller waiting on a reply subscribes
// to exactly one response topic:
//
//	topics := mqtt.Topics{Prefix: "graylogic/heating"}
//	topics.Request("abc-1")  // graylogic/heating/request/abc-1
//	topics.Response("abc-1") // graylogic/heating/response/abc-1
type Topics struct {
	Prefix string
}

func (t Topics) prefix() string {
	if t.Prefix == "" {
		return DefaultTopicPrefix
	}
	return strings.TrimSuffix(t.Prefix, "/")
}

// Request returns the inbound command topic for one correlation id.
//
// Example: graylogic/heating/request/abc-1
func (t Topics) Request(correlationID string) string {
	return fmt.Sprintf("%s/request/%s", t.prefix(), correlationID)
}

// Response returns the reply topic for one correlation id.
//
// Example: graylogic/heating/response/abc-1
func (t Topics) Response(correlationID string) string {
	return fmt.Sprintf("%s/response/%s", t.prefix(), correlationID)
}

// Telemetry returns the unkeyed telemetry topic.
//
// Example: graylogic/heating/telemetry
func (t Topics) Telemetry() string {
	return t.prefix() + "/telemetry"
}

// Sensor returns the topic a temperature sensor publishes readings to.
//
// Example: graylogic/heating/sensor/42
func (t Topics) Sensor(deviceID int64) string {
	return fmt.Sprintf("%s/sensor/%d", t.prefix(), deviceID)
}

// Status returns the retained online/offline status topic.
//
// Example: graylogic/heating/status
func (t Topics) Status() string {
	return t.prefix() + "/status"
}

// AllRequests returns the subscription pattern for inbound commands.
// A non-empty group yields a shared subscription so several consumers
// split the stream.
//
// Example: $share/heatingd/graylogic/heating/request/+
func (t Topics) AllRequests(group string) string {
	return shared(group, t.prefix()+"/request/+")
}

// AllSensors returns the subscription pattern for sensor readings.
func (t Topics) AllSensors() string {
	return t.prefix() + "/sensor/+"
}

func shared(group, filter string) string {
	if group == "" {
		return filter
	}
	return fmt.Sprintf("%s/%s/%s", sharedSubscriptionPrefix, group, filter)
}

// LastLevel returns the final level of a topic, or "" if the topic ends with '/'.
func LastLevel(topic string) string {
	if i := strings.LastIndexByte(topic, '/'); i >= 0 {
		return topic[i+1:]
	}
	return topic
}

// ParseSensorDeviceID extracts the device id from a sensor topic.
func ParseSensorDeviceID(topic string) (int64, error) {
	id, err := strconv.ParseInt(LastLevel(topic), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q has no numeric device id", ErrInvalidTopic, topic)
	}
	return id, nil
}
