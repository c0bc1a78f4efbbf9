// Package api implements the HTTP API and telemetry WebSocket for the
// heating core.
//
// This package provides:
//   - REST endpoints under /api/heating for reading and changing heating systems
//   - Asynchronous command submission over MQTT (202 + correlation id)
//   - A WebSocket feed relaying telemetry events from MQTT
//   - Bearer JWT (HS256) verification on mutating routes when enabled
//
// # Graceful Degradation
//
// The server operates without MQTT: synchronous reads and writes go straight
// to the heating service, only command submission and the telemetry feed
// are unavailable.
package api
