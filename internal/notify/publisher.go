package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"poultrymarket/internal/config"
	"poultrymarket/internal/model"

	"github.com/Shopify/sarama"
	"github.com/rs/zerolog"
)

// Publisher emits notification events to other systems.
type Publisher interface {
	Publish(ctx context.Context, n model.Notification) error
	Close() error
}

// NewPublisher returns a Kafka publisher when enabled, otherwise a no-op.
func NewPublisher(cfg config.KafkaConfig, logger zerolog.Logger) (Publisher, error) {
	if !cfg.Enabled {
		return noopPublisher{}, nil
	}

	saramaConf := sarama.NewConfig()
	saramaConf.Producer.Return.Successes = true
	saramaConf.Producer.Return.Errors = true
	saramaConf.Producer.RequiredAcks = sarama.WaitForAll

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConf)
	if err != nil {
		logger.Error().Err(err).Strs("brokers", cfg.Brokers).Msg("failed to create kafka producer")
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return NewKafkaPublisher(producer, cfg.Topic, logger), nil
}

type kafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   zerolog.Logger
}

// NewKafkaPublisher publishes notifications as JSON keyed by recipient id.
func NewKafkaPublisher(producer sarama.SyncProducer, topic string, logger zerolog.Logger) Publisher {
	return &kafkaPublisher{
		producer: producer,
		topic:    topic,
		logger:   logger.With().Str("component", "kafka-publisher").Logger(),
	}
}

func (p *kafkaPublisher) Publish(_ context.Context, n model.Notification) error {
	value, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(n.UserID.String()),
		Value: sarama.ByteEncoder(value),
	})
	if err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}

	p.logger.Debug().
		Str("notification_id", n.ID.String()).
		Int32("partition", partition).
		Int64("offset", offset).
		Msg("notification published")
	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.producer.Close()
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, model.Notification) error { return nil }
func (noopPublisher) Close() error                                    { return nil }
