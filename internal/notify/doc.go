// Package notify delivers catalog change events to the systems that
// care about them: the MQTT bus, InfluxDB, the audit trail and any other
// catalog.Notifier such as the WebSocket hub.
//
// Delivery is best effort. A failing sink is logged and never turns a
// successful catalog write into an error.
package notify
