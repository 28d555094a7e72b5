package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
)

// orderEvents: producer и публикатор событий заказа поверх него.
type orderEvents struct {
	producer  *kafka.Producer
	publisher domain.EventPublisher
}

// initOrderEvents поднимает Kafka producer, если заданы брокеры.
// Без брокеров публикатор nil и события заказов не отправляются.
func initOrderEvents(cfg Config, logger *log.Entry) (*orderEvents, error) {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("kafka brokers are not set, order events are disabled")
		return &orderEvents{}, nil
	}

	producer, err := kafka.NewProducer(cfg.KafkaBrokers, kafka.ProducerName)
	if err != nil {
		return nil, err
	}

	publisher := kafka.NewOrderEventPublisher(producer, cfg.KafkaTopic)
	logger.WithFields(log.Fields{
		"brokers": cfg.KafkaBrokers,
		"topic":   publisher.Topic(),
	}).Info("kafka producer initialized")
	return &orderEvents{producer: producer, publisher: publisher}, nil
}

func (e *orderEvents) close(logger *log.Entry) {
	if e == nil || e.producer == nil {
		return
	}
	if err := e.producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
		return
	}
	logger.Info("kafka producer closed")
}
