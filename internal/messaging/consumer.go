package messaging

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

var consumerTracer = otel.Tracer("salesdw/messaging/consumer")

// Delivery is one fetched record as seen by a Handler.
type Delivery struct {
	Key       string
	Payload   []byte
	Partition int
	Offset    int64
	// LoggedAt is the record timestamp. On topics created by EnsureTopic the
	// broker assigns it when the record is appended to the log.
	LoggedAt time.Time
}

func newDelivery(msg kafka.Message) Delivery {
	return Delivery{
		Key:       string(msg.Key),
		Payload:   msg.Value,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		LoggedAt:  msg.Time,
	}
}

// Handler processes one delivery. A non-nil error stops Consume before the
// record's offset is committed, so the record is redelivered to the group.
type Handler func(ctx context.Context, d Delivery) error

// messageReader is the part of *kafka.Reader that Consume drives.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader  messageReader
	topic   string
	groupID string
}

type ConsumerOption func(*kafka.ReaderConfig)

// WithStartOffset sets where a group without committed offsets begins
// (kafka.FirstOffset or kafka.LastOffset).
func WithStartOffset(offset int64) ConsumerOption {
	return func(cfg *kafka.ReaderConfig) {
		cfg.StartOffset = offset
	}
}

func NewConsumer(brokers []string, topic, groupID string, opts ...ConsumerOption) *Consumer {
	cfg := kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: groupID,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Consumer{
		reader:  kafka.NewReader(cfg),
		topic:   topic,
		groupID: groupID,
	}
}

// Consume hands records to handle one at a time, committing each only after
// handle succeeds. It returns when ctx ends or any step fails.
func (c *Consumer) Consume(ctx context.Context, handle Handler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			return fmt.Errorf("fetch from %s: %w", c.topic, err)
		}

		d := newDelivery(msg)
		if err := c.deliver(ctx, msg, d, handle); err != nil {
			return fmt.Errorf("handle %s[%d]@%d: %w", c.topic, d.Partition, d.Offset, err)
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return fmt.Errorf("commit %s[%d]@%d: %w", c.topic, d.Partition, d.Offset, err)
		}
	}
}

// deliver runs handle inside a consumer span that continues the trace
// injected by Producer.Publish.
func (c *Consumer) deliver(ctx context.Context, msg kafka.Message, d Delivery, handle Handler) error {
	parentCtx := otel.GetTextMapPropagator().Extract(ctx, carrierFor(&msg))

	spanCtx, span := consumerTracer.Start(parentCtx, "process "+c.topic,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingOperationName("process"),
			semconv.MessagingOperationTypeDeliver,
			semconv.MessagingDestinationName(c.topic),
			semconv.MessagingKafkaConsumerGroup(c.groupID),
			semconv.MessagingKafkaMessageOffset(int(d.Offset)),
			semconv.MessagingDestinationPartitionID(strconv.Itoa(d.Partition)),
			semconv.MessagingKafkaMessageKey(d.Key),
		),
	)
	defer span.End()

	if err := handle(spanCtx, d); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
