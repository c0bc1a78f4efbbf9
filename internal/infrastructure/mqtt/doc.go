// Package mqtt provides MQTT client connectivity for the heating core.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Ordered message delivery to subscription handlers
//   - Publishing with QoS and payload validation, waiting (Publish) or
//     queued (PublishAsync)
//   - Topic builders for the request / response / telemetry / sensor channels
//   - Last Will and Testament (LWT) for offline detection
//
// # Topic layout
//
// Every topic lives under a configurable prefix (default graylogic/heating):
//
//	{prefix}/request/{correlation_id}   inbound commands
//	{prefix}/response/{correlation_id}  command replies
//	{prefix}/telemetry                  telemetry events
//	{prefix}/sensor/{device_id}         current temperature readings
//	{prefix}/status                     retained online/offline status
//
// Setting a consumer group subscribes via $share/{group}/... so several
// heatingd processes split the request stream.
//
// # Publishing from handlers
//
// Handlers run on paho's router goroutine. Acknowledgements for messages
// published there cannot be processed until the handler returns, so a
// waiting Publish would stall until its timeout whenever another message
// is queued. Handlers publish with PublishAsync, which logs late or
// failed acknowledgements instead of blocking.
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Anonymous access is only for local development
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, mqtt.Topics{Prefix: cfg.Heating.TopicPrefix})
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(client.Topics().AllRequests(""), client.QoS(),
//	    func(topic string, payload []byte) error {
//	        return gateway.Handle(topic, payload)
//	    })
package mqtt
