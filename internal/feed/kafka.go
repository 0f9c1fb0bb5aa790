package feed

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"sports-arb-engine/internal/quotes"
)

// MessageReader is the part of *kafka.Reader the source needs.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// NewKafkaReader builds a consumer-group reader for the quotes topic.
func NewKafkaReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
	})
}

// KafkaSource consumes quote messages from a Kafka topic.
type KafkaSource struct {
	Reader  MessageReader
	Log     *zap.Logger
	OnError func(stage string)
}

// Run reads until ctx is cancelled. Read failures are retried after a short
// pause.
func (s *KafkaSource) Run(ctx context.Context, out chan<- quotes.Quote) error {
	dec := decoder{log: s.Log, onError: s.OnError}

	for {
		m, err := s.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.Log.Warn("kafka read failed", zap.Error(err))
			dec.fail("read")
			if err := sleep(ctx, 500*time.Millisecond); err != nil {
				return err
			}
			continue
		}

		if err := dec.emit(ctx, m.Value, out); err != nil {
			return err
		}
	}
}
