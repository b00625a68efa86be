package mqtt

import "fmt"

// Topic prefixes.
const (
	// TopicPrefix is the root of every catalog topic.
	TopicPrefix = "catalog"

	// TopicPrefixProducts is the base for product change events.
	TopicPrefixProducts = TopicPrefix + "/products"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = TopicPrefix + "/system"
)

// Topics provides builders for catalog MQTT topics.
//
//	topic := mqtt.Topics{}.ProductEvent(42, "deleted")
//	// Returns: "catalog/products/42/deleted"
type Topics struct{}

// ProductEvent returns the topic for a change to one product.
//
// Example: catalog/products/42/created
func (Topics) ProductEvent(id int64, action string) string {
	return fmt.Sprintf("%s/%d/%s", TopicPrefixProducts, id, action)
}

// SystemStatus returns the retained service status topic (online/offline, LWT).
//
// Example: catalog/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}
