package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/GoPolymarket/namegate/internal/config"
	"github.com/GoPolymarket/namegate/internal/model"
	"github.com/GoPolymarket/namegate/internal/pkg/logger"
	"github.com/segmentio/kafka-go"
)

// messageWriter is the part of kafka.Writer the sink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaEventSink publishes notifications as JSON, keyed by notification kind.
type KafkaEventSink struct {
	writer messageWriter
	topic  string
}

func NewKafkaEventSink(cfg config.KafkaConfig) (*KafkaEventSink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are empty")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka topic is empty")
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		AllowAutoTopicCreation: true,
		Compression:            kafka.Gzip,
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            cfg.MaxRetries,
		WriteBackoffMin:        time.Duration(cfg.RetryBackoffMs) * time.Millisecond,
		WriteBackoffMax:        time.Duration(cfg.RetryBackoffMs*10) * time.Millisecond,
	}
	logger.Info("kafka event sink created", "brokers", cfg.Brokers, "topic", cfg.Topic)
	return &KafkaEventSink{writer: writer, topic: cfg.Topic}, nil
}

func (k *KafkaEventSink) Write(ctx context.Context, n *model.Notification) error {
	if n == nil {
		return nil
	}
	msg, err := notificationMessage(n)
	if err != nil {
		return err
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka publish %s: %w", n.ID, err)
	}
	return nil
}

func (k *KafkaEventSink) Close() error {
	return k.writer.Close()
}

func notificationMessage(n *model.Notification) (kafka.Message, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal notification: %w", err)
	}
	return kafka.Message{
		Key:   []byte(n.Kind),
		Value: data,
		Time:  n.CreatedAt,
		Headers: []kafka.Header{
			{Key: "notification-id", Value: []byte(n.ID)},
		},
	}, nil
}
