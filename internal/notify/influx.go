package notify

import (
	"context"
	"time"

	"github.com/nerrad567/catalog-core/internal/catalog"
)

// EventWriter is the part of influxdb.Client the Influx notifier needs.
type EventWriter interface {
	WriteCatalogEvent(action string, productID int64, actor string, at time.Time)
}

// InfluxNotifier writes one catalog_events point per event.
type InfluxNotifier struct {
	writer EventWriter
}

// NewInfluxNotifier creates a notifier writing through w.
func NewInfluxNotifier(w EventWriter) *InfluxNotifier {
	return &InfluxNotifier{writer: w}
}

// Notify implements catalog.Notifier. Writes are batched asynchronously by the client.
func (n *InfluxNotifier) Notify(_ context.Context, ev catalog.Event) {
	n.writer.WriteCatalogEvent(string(ev.Action), ev.ProductID, ev.Actor, ev.At)
}
