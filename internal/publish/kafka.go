package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/ubuntu/battery-insights/internal/pipeline"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka publishes results to a Kafka topic.
type Kafka struct {
	w     messageWriter
	topic string
	log   *slog.Logger
}

// NewKafka returns a publisher writing to topic on brokers.
func NewKafka(brokers []string, topic string, args ...Options) (*Kafka, error) {
	if len(brokers) == 0 {
		return nil, errors.New("at least one kafka broker is required")
	}
	if strings.TrimSpace(topic) == "" {
		return nil, errors.New("kafka topic must not be empty")
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           100 * time.Millisecond,
	}
	return newKafka(w, topic, args...), nil
}

func newKafka(w messageWriter, topic string, args ...Options) *Kafka {
	opts := newOptions(args)
	return &Kafka{
		w:     w,
		topic: topic,
		log:   opts.log.With("publisher", "kafka"),
	}
}

// Publish writes r to the topic, keyed by machine.
func (k *Kafka) Publish(ctx context.Context, r pipeline.Result) error {
	key, value, err := Message(r)
	if err != nil {
		return err
	}

	if err := k.w.WriteMessages(ctx, kafka.Message{Key: key, Value: value, Time: r.GeneratedAt}); err != nil {
		return fmt.Errorf("%w to kafka topic %q: %v", ErrPublish, k.topic, err)
	}
	k.log.Debug("Published result", "topic", k.topic, "id", r.ID, "bytes", len(value))
	return nil
}

// Close flushes pending messages and closes the connections to the brokers.
func (k *Kafka) Close() error {
	return k.w.Close()
}
