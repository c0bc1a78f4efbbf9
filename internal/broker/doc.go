// Package broker connects the command pipeline to MQTT.
//
// Inbound subscribes to graylogic/heating/request/+ (or a shared
// subscription when a consumer group is configured), takes the correlation
// id from the last topic level, decodes the envelope and dispatches it.
// Undecodable messages are logged and dropped.
//
// Outbound implements command.Publisher. Replies go to
// graylogic/heating/response/{correlation_id} prefixed with ReplyPrefix;
// telemetry goes to graylogic/heating/telemetry. Neither is retained.
//
// SensorIngest records current temperatures published on
// graylogic/heating/sensor/{device_id}.
package broker
