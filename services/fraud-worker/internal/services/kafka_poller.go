package services

import (
	"context"
	"errors"
	"time"

	"github.com/astroshop/fraud-detection/services/fraud-worker/configs"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"
)

// BatchPoller abstracts "pull the next batch with a bounded wait" over the
// underlying consumer, so the loop stays responsive to shutdown and tests
// can drive it with a fake.
type BatchPoller interface {
	// Poll returns up to max messages, waiting at most the configured poll
	// timeout for each underlying read. An empty batch is normal.
	Poll(ctx context.Context, max int) ([]*kafka.Message, error)
	Commit(msg *kafka.Message) error
	Close() error
}

type KafkaBatchPoller struct {
	logger      *zap.Logger
	consumer    *kafka.Consumer
	pollTimeout time.Duration
}

func NewKafkaBatchPoller(logger *zap.Logger, cnf *configs.Config) (*KafkaBatchPoller, error) {
	kafkaConfig := &kafka.ConfigMap{
		"bootstrap.servers":  cnf.KafkaBrokers,       // List of Kafka broker addresses
		"group.id":           cnf.KafkaConsumerGroup, // Consumer group ID for load balancing
		"auto.offset.reset":  "earliest",             // Start reading from the earliest offset if no prior offset
		"enable.auto.commit": false,                  // Disable auto-commit for manual offset management
	}
	consumer, err := kafka.NewConsumer(kafkaConfig)
	if err != nil {
		return nil, err
	}
	if err = consumer.SubscribeTopics([]string{cnf.KafkaOrderTopic}, nil); err != nil {
		_ = consumer.Close()
		return nil, err
	}

	logger.Info("listening to Kafka topic",
		zap.String("topic", cnf.KafkaOrderTopic),
		zap.String("group", cnf.KafkaConsumerGroup))

	return &KafkaBatchPoller{
		logger:      logger,
		consumer:    consumer,
		pollTimeout: cnf.PollTimeout,
	}, nil
}

func (p *KafkaBatchPoller) Poll(ctx context.Context, max int) ([]*kafka.Message, error) {
	var msgs []*kafka.Message
	for len(msgs) < max {
		select {
		case <-ctx.Done():
			return msgs, nil
		default:
		}

		msg, err := p.consumer.ReadMessage(p.pollTimeout)
		if err != nil {
			var kErr kafka.Error
			if errors.As(err, &kErr) && kErr.Code() == kafka.ErrTimedOut {
				return msgs, nil // end of batch
			}
			return msgs, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func (p *KafkaBatchPoller) Commit(msg *kafka.Message) error {
	_, err := p.consumer.CommitMessage(msg)
	return err
}

func (p *KafkaBatchPoller) Close() error {
	return p.consumer.Close()
}
