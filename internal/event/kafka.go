package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"tokenctx/internal/platform/config"
)

// KafkaSink produces events to a Kafka topic as JSON records keyed by token,
// so all transitions for one token land on one partition in order.
type KafkaSink struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewKafkaSink connects to the configured brokers and ensures the topic
// exists. Returns nil if no brokers are configured (Kafka disabled).
func NewKafkaSink(cfg config.KafkaConfig, logger *slog.Logger) (*KafkaSink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}

	admin := kadm.NewClient(client)
	ctx := context.Background()
	topics, err := admin.ListTopics(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("kafka list topics: %w", err)
	}
	if !topics.Has(cfg.Topic) {
		if _, err := admin.CreateTopic(ctx, 3, 1, nil, cfg.Topic); err != nil {
			client.Close()
			return nil, fmt.Errorf("kafka create topic %s: %w", cfg.Topic, err)
		}
	}

	return &KafkaSink{client: client, topic: cfg.Topic, logger: logger}, nil
}

// Publish produces one event synchronously. Errors are returned for the
// worker to log; they never reach the emitting operation.
func (s *KafkaSink) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(e.Token.String()),
		Value: payload,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce event: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying client.
func (s *KafkaSink) Close() {
	s.client.Close()
}
