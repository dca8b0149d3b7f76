package events

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"slotbook/internal/metrics"
)

// MessageWriter is the subset of *kafka.Writer the forwarder uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaForwarder copies bus events to a Kafka topic from a background goroutine.
type KafkaForwarder struct {
	writer MessageWriter
	queue  chan Event
	logger zerolog.Logger
}

// NewKafkaWriter builds a hash-balanced writer for topic.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
	}
}

// NewKafkaForwarder subscribes to every bus event. Events published while the
// queue is full are dropped and logged.
func NewKafkaForwarder(bus *EventBus, writer MessageWriter, buffer int, logger *zerolog.Logger) *KafkaForwarder {
	if buffer <= 0 {
		buffer = 256
	}
	f := &KafkaForwarder{
		writer: writer,
		queue:  make(chan Event, buffer),
		logger: logger.With().Str("component", "kafka_forwarder").Logger(),
	}
	bus.SubscribeAll(f.enqueue)
	return f
}

func (f *KafkaForwarder) enqueue(_ context.Context, event Event) error {
	select {
	case f.queue <- event:
	default:
		metrics.IncEventForwarded(false)
		f.logger.Warn().Str("event_type", event.Type).Str("event_id", event.ID).Msg("forward queue full, event dropped")
	}
	return nil
}

// Run drains the queue until ctx is done, then closes the writer.
func (f *KafkaForwarder) Run(ctx context.Context) {
	defer func() {
		if err := f.writer.Close(); err != nil {
			f.logger.Error().Err(err).Msg("close kafka writer")
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-f.queue:
			f.write(ctx, event)
		}
	}
}

func (f *KafkaForwarder) write(ctx context.Context, event Event) {
	msg := kafka.Message{
		Key:   []byte(event.Key),
		Value: event.Payload,
		Time:  event.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.ID)},
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}
	if err := f.writer.WriteMessages(ctx, msg); err != nil {
		metrics.IncEventForwarded(false)
		f.logger.Error().Err(err).Str("event_type", event.Type).Str("event_id", event.ID).Msg("forward event")
		return
	}
	metrics.IncEventForwarded(true)
}

// SplitBrokers parses a comma-separated broker list.
func SplitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
