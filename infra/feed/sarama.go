package feed

import (
	"context"

	"github.com/IBM/sarama"
)

// SaramaPublisher writes events with a synchronous sarama producer.
type SaramaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

func NewSaramaPublisher(brokers []string, topic string) (*SaramaPublisher, error) {
	producer, err := sarama.NewSyncProducer(brokers, SaramaConfig())
	if err != nil {
		return nil, err
	}
	return newSaramaPublisher(producer, topic), nil
}

// SaramaConfig is the producer configuration used by NewSaramaPublisher.
func SaramaConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Partitioner = sarama.NewHashPartitioner
	return cfg
}

func newSaramaPublisher(producer sarama.SyncProducer, topic string) *SaramaPublisher {
	return &SaramaPublisher{producer: producer, topic: topic}
}

// Publish sends the batch; ctx is only checked up front since
// SyncProducer has no cancellation hook.
func (p *SaramaPublisher) Publish(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	msgs := make([]*sarama.ProducerMessage, len(events))
	for i := range events {
		ev := &events[i]
		msgs[i] = &sarama.ProducerMessage{
			Topic:     p.topic,
			Key:       sarama.ByteEncoder(ev.Key),
			Value:     sarama.ByteEncoder(ev.Marshal()),
			Timestamp: ev.Time,
			Headers: []sarama.RecordHeader{
				{Key: []byte(versionHeader), Value: versionBytes(ev.Version)},
			},
		}
	}
	return p.producer.SendMessages(msgs)
}

func (p *SaramaPublisher) Close() error {
	return p.producer.Close()
}
