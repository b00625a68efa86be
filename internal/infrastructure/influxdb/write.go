package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MeasurementCatalogEvents holds one point per catalog change.
const MeasurementCatalogEvents = "catalog_events"

// WriteCatalogEvent records a product change.
//
// The action is a tag so changes can be grouped cheaply; the product id is
// a field because its cardinality is unbounded.
//
// Example:
//
//	client.WriteCatalogEvent("created", 42, "admin", time.Now())
func (c *Client) WriteCatalogEvent(action string, productID int64, actor string, at time.Time) {
	tags := map[string]string{"action": action}
	if actor != "" {
		tags["actor"] = actor
	}

	c.WritePointWithTime(MeasurementCatalogEvents, tags, map[string]any{
		"product_id": productID,
		"count":      1,
	}, at)
}

// WritePoint writes a point stamped with the current time.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime writes a point with an explicit timestamp.
// Points are dropped silently while the client is closed.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]any, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, timestamp))
}
