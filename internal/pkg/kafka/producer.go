package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ds124wfegd/image-transformer/config"
	"github.com/ds124wfegd/image-transformer/internal/entity"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Producer publishes transform outcomes. Events never contain image data.
type Producer interface {
	Publish(ctx context.Context, event entity.TransformEvent) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaProducer struct {
	writer messageWriter
	topic  string
	log    *logrus.Logger
}

func NewProducer(cfg config.KafkaConfig, log *logrus.Logger) Producer {
	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info("Kafka events disabled, using logging producer")
		return &mockProducer{log: log}
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.LeastBytes{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		Async:                  true,
		AllowAutoTopicCreation: true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.WithError(err).WithField("count", len(messages)).Warn("failed to deliver transform events")
			}
		},
	}

	log.WithField("brokers", cfg.Brokers).Info("Kafka producer configured")

	// Проверяем подключение и создаем топик
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := kafka.DialContext(ctx, "tcp", cfg.Brokers[0])
	if err != nil {
		log.WithError(err).Warn("Kafka connection failed, using logging producer instead")
		return &mockProducer{log: log}
	}
	defer conn.Close()

	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             cfg.Topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil {
		log.WithError(err).Debug("could not create topic (might already exist)")
	}

	return newKafkaProducer(writer, cfg.Topic, log)
}

func newKafkaProducer(writer messageWriter, topic string, log *logrus.Logger) *kafkaProducer {
	return &kafkaProducer{writer: writer, topic: topic, log: log}
}

func (p *kafkaProducer) Publish(ctx context.Context, event entity.TransformEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.RequestID),
		Value: value,
		Time:  event.Time,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.WithError(err).WithField("topic", p.topic).Warn("failed to write transform event")
		return err
	}
	return nil
}

func (p *kafkaProducer) Close() error {
	return p.writer.Close()
}

// mockProducer is used when Kafka is disabled or unreachable.
type mockProducer struct {
	log *logrus.Logger
}

func (m *mockProducer) Publish(_ context.Context, event entity.TransformEvent) error {
	m.log.WithFields(logrus.Fields{
		"request_id": event.RequestID,
		"status":     event.Status,
		"error_kind": event.ErrorKind,
	}).Debug("transform event")
	return nil
}

func (m *mockProducer) Close() error {
	return nil
}
