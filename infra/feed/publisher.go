// Package feed publishes change events for accepted writes to Kafka.
//
// Two producers are supported: segmentio/kafka-go and IBM/sarama. Both
// key records by the written key so every key's history lands on a single
// partition in write order.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Publisher delivers a batch of events. Implementations must be safe to
// call from one goroutine at a time; the broadcaster serializes calls.
type Publisher interface {
	Publish(ctx context.Context, events []Event) error
	Close() error
}

const (
	BackendNone    = "none"
	BackendKafkaGo = "kafka-go"
	BackendSarama  = "sarama"
)

type Config struct {
	Backend string
	Brokers []string
	Topic   string
}

// Open builds the publisher selected by cfg.Backend. It returns a nil
// Publisher for BackendNone.
func Open(cfg Config, log *slog.Logger) (Publisher, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", BackendNone:
		return nil, nil
	case BackendKafkaGo:
		log.Info("change feed enabled", "backend", BackendKafkaGo, "topic", cfg.Topic, "brokers", cfg.Brokers)
		return NewKafkaPublisher(cfg.Brokers, cfg.Topic), nil
	case BackendSarama:
		p, err := NewSaramaPublisher(cfg.Brokers, cfg.Topic)
		if err != nil {
			return nil, fmt.Errorf("sarama publisher: %w", err)
		}
		log.Info("change feed enabled", "backend", BackendSarama, "topic", cfg.Topic, "brokers", cfg.Brokers)
		return p, nil
	default:
		return nil, fmt.Errorf("unknown feed backend %q", cfg.Backend)
	}
}
