package kafka

import (
	"context"
	"fmt"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// OrderEventPublisher публикует события заказов в Kafka topic.
// Ключ сообщения равен ID заказа, чтобы события одного заказа шли в одну партицию.
type OrderEventPublisher struct {
	producer *Producer
	topic    string
}

// NewOrderEventPublisher создаёт publisher событий заказа. Пустой topic заменяется на TopicOrderEvents.
func NewOrderEventPublisher(producer *Producer, topic string) *OrderEventPublisher {
	if topic == "" {
		topic = TopicOrderEvents
	}
	return &OrderEventPublisher{producer: producer, topic: topic}
}

func (p *OrderEventPublisher) PublishOrderEvent(ctx context.Context, event domain.OrderEvent) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka order publisher is not initialized")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if event.OrderID == "" {
		return fmt.Errorf("order event without order id")
	}

	return p.producer.PublishEvent(p.topic, event.OrderID, event,
		Header{Key: HeaderEventType, Value: string(event.Type)},
		Header{Key: HeaderProducedBy, Value: ProducerName},
	)
}

// Topic возвращает topic, в который пишет publisher.
func (p *OrderEventPublisher) Topic() string {
	return p.topic
}

var _ domain.EventPublisher = (*OrderEventPublisher)(nil)
