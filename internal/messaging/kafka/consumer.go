package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/sapsync/internal/domain"
)

// MessageHandler обрабатывает сообщение из Kafka.
type MessageHandler func(ctx context.Context, message *sarama.ConsumerMessage) error

// TaskSubmitter принимает задачу в очередь (intake).
type TaskSubmitter interface {
	Submit(ctx context.Context, task domain.Task) error
}

// Consumer читает топики consumer group и передаёт сообщения handler.
// Ошибка обработки терминальна: сообщение логируется и помечается прочитанным.
type Consumer struct {
	consumer sarama.ConsumerGroup
	topics   []string
	handler  MessageHandler
	logger   *log.Entry
	wg       sync.WaitGroup
}

// NewConsumer создаёт Kafka consumer.
func NewConsumer(brokers []string, groupID string, topics []string, handler MessageHandler) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	config.Consumer.Offsets.Initial = sarama.OffsetNewest
	config.Consumer.Return.Errors = true

	consumer, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}

	return &Consumer{
		consumer: consumer,
		topics:   topics,
		handler:  handler,
		logger:   log.WithField("component", "kafka-consumer"),
	}, nil
}

// NewTaskRequestHandler декодирует TaskRequest и передаёт задачу в submitter.
func NewTaskRequestHandler(submitter TaskSubmitter) MessageHandler {
	return func(ctx context.Context, message *sarama.ConsumerMessage) error {
		request, err := ParseTaskRequest(message)
		if err != nil {
			return err
		}
		if err := submitter.Submit(ctx, request.Task()); err != nil {
			return fmt.Errorf("submit %s: %w", request.TaskType, err)
		}
		return nil
	}
}

// ParseTaskRequest парсит TaskRequest из сообщения.
func ParseTaskRequest(message *sarama.ConsumerMessage) (*TaskRequest, error) {
	var request TaskRequest
	if err := json.Unmarshal(message.Value, &request); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task request: %w", err)
	}
	return &request, nil
}

// Start запускает чтение в фоне.
func (c *Consumer) Start(ctx context.Context) error {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			// Consume завершается при rebalance, поэтому вызывается в цикле.
			if err := c.consumer.Consume(ctx, c.topics, c); err != nil {
				c.logger.WithError(err).Error("error from consumer")
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for err := range c.consumer.Errors() {
			c.logger.WithError(err).Error("consumer error")
		}
	}()

	c.logger.WithField("topics", c.topics).Info("kafka consumer started")
	return nil
}

// Stop останавливает consumer и ждёт фоновые горутины.
func (c *Consumer) Stop() error {
	if err := c.consumer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka consumer: %w", err)
	}
	c.wg.Wait()
	c.logger.Info("kafka consumer stopped")
	return nil
}

// Setup вызывается при старте consumer session.
func (c *Consumer) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

// Cleanup вызывается при завершении consumer session.
func (c *Consumer) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim обрабатывает сообщения partition.
func (c *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message := <-claim.Messages():
			if message == nil {
				return nil
			}

			fields := log.Fields{
				"topic":     message.Topic,
				"partition": message.Partition,
				"offset":    message.Offset,
			}
			c.logger.WithFields(fields).Debug("received message")

			if err := c.handler(session.Context(), message); err != nil {
				c.logger.WithError(err).WithFields(fields).Error("message dropped")
			}
			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}
