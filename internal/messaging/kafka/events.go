package kafka

// Topics для Kafka
const (
	TopicOrderEvents = "storefront.order.events"
)

// Kafka headers сообщений о заказах
const (
	HeaderEventType  = "x-event-type"
	HeaderProducedBy = "x-produced-by"
)

// ProducerName подставляется в HeaderProducedBy.
const ProducerName = "storefront"
