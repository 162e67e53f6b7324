package app

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/sapsync/internal/messaging/kafka"
)

// initKafkaProducer инициализирует Kafka producer, если brokers не пустой.
// Возвращает nil, nil для пустого списка брокеров.
func initKafkaProducer(brokers []string, logger *log.Entry) (*kafka.Producer, error) {
	if len(brokers) == 0 {
		return nil, nil
	}

	producer, err := kafka.NewProducer(brokers)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		return nil, err
	}

	logger.WithField("brokers", brokers).Info("kafka producer initialized")
	return producer, nil
}

func newResultPublisher(producer kafka.EventPublisher, cfg Config) *kafka.ResultPublisher {
	return kafka.NewResultPublisher(producer, cfg.KafkaResultsTopic)
}

func newKafkaNotifier(producer kafka.EventPublisher, cfg Config) *kafka.Notifier {
	return kafka.NewNotifier(producer, cfg.KafkaNotificationsTopic)
}

// initKafkaConsumer подписывается на топик запросов задач.
// Без брокеров, топика или группы возвращает nil, nil.
func initKafkaConsumer(ctx context.Context, cfg Config, submitter kafka.TaskSubmitter, logger *log.Entry) (*kafka.Consumer, error) {
	if !cfg.KafkaEnabled() || cfg.KafkaRequestsTopic == "" || cfg.KafkaGroupID == "" {
		return nil, nil
	}
	if submitter == nil {
		return nil, errors.New("task submitter is required")
	}

	consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, []string{cfg.KafkaRequestsTopic}, kafka.NewTaskRequestHandler(submitter))
	if err != nil {
		return nil, err
	}
	if err := consumer.Start(ctx); err != nil {
		_ = consumer.Stop()
		return nil, err
	}

	logger.WithFields(log.Fields{
		"topic": cfg.KafkaRequestsTopic,
		"group": cfg.KafkaGroupID,
	}).Info("kafka task request consumer started")
	return consumer, nil
}

func stopKafkaConsumer(consumer *kafka.Consumer, logger *log.Entry) {
	if consumer == nil {
		return
	}
	if err := consumer.Stop(); err != nil {
		logger.WithError(err).Warn("failed to stop kafka consumer")
	}
}

// closeKafka закрывает Kafka producer, если он не nil.
func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}
