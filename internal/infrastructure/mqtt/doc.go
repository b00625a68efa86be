// Package mqtt provides MQTT publishing for the catalog service.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Publishing with QoS guarantees
//   - A retained service status plus Last Will and Testament
//
// Catalog changes are published to catalog/products/{id}/{action} so that
// downstream consumers can subscribe to one product or to every change
// with catalog/products/+/+.
//
// # Security Considerations
//
//   - TLS should be enabled in production (cfg.Broker.TLS=true)
//   - Credentials are validated against the broker ACL
//   - Payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.PublishJSON(mqtt.Topics{}.ProductEvent(42, "updated"), event)
package mqtt
