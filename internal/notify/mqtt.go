package notify

import (
	"context"

	"github.com/nerrad567/catalog-core/internal/catalog"
	"github.com/nerrad567/catalog-core/internal/infrastructure/logging"
	"github.com/nerrad567/catalog-core/internal/infrastructure/mqtt"
)

// JSONPublisher is the part of mqtt.Client the MQTT notifier needs.
type JSONPublisher interface {
	PublishJSON(topic string, v any) error
}

// MQTTNotifier publishes each event to catalog/products/{id}/{action}.
type MQTTNotifier struct {
	publisher JSONPublisher
	logger    *logging.Logger
}

// NewMQTTNotifier creates a notifier publishing through p.
func NewMQTTNotifier(p JSONPublisher, logger *logging.Logger) *MQTTNotifier {
	return &MQTTNotifier{publisher: p, logger: logger}
}

// Notify implements catalog.Notifier.
func (m *MQTTNotifier) Notify(_ context.Context, ev catalog.Event) {
	topic := mqtt.Topics{}.ProductEvent(ev.ProductID, string(ev.Action))
	if err := m.publisher.PublishJSON(topic, ev); err != nil {
		m.logger.Warn("publishing catalog event failed",
			"topic", topic,
			"error", err,
		)
	}
}
