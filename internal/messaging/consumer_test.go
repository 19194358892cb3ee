package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

type fakeReader struct {
	messages  []kafka.Message
	committed []int64
	fetchErr  error
}

func (f *fakeReader) FetchMessage(context.Context) (kafka.Message, error) {
	if len(f.messages) == 0 {
		return kafka.Message{}, f.fetchErr
	}
	msg := f.messages[0]
	f.messages = f.messages[1:]
	return msg, nil
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	return nil
}

func (f *fakeReader) Close() error { return nil }

func newTestConsumer(reader *fakeReader) *Consumer {
	return &Consumer{reader: reader, topic: "orders.created", groupID: "warehouse-refresher"}
}

func TestConsumer_Consume(t *testing.T) {
	loggedAt := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	t.Run("delivers record metadata and commits after success", func(t *testing.T) {
		reader := &fakeReader{
			messages: []kafka.Message{
				{Key: []byte("42"), Value: []byte(`{"ord_id":42}`), Partition: 2, Offset: 7, Time: loggedAt},
				{Key: []byte("43"), Value: []byte(`{"ord_id":43}`), Partition: 2, Offset: 8, Time: loggedAt.Add(time.Second)},
			},
			fetchErr: context.Canceled,
		}

		var got []Delivery
		err := newTestConsumer(reader).Consume(context.Background(), func(_ context.Context, d Delivery) error {
			got = append(got, d)
			return nil
		})

		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected fetch error to surface, got %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 deliveries, got %d", len(got))
		}
		if got[0].Key != "42" || got[0].Partition != 2 || got[0].Offset != 7 {
			t.Errorf("unexpected delivery: %+v", got[0])
		}
		if !got[0].LoggedAt.Equal(loggedAt) {
			t.Errorf("expected LoggedAt %v, got %v", loggedAt, got[0].LoggedAt)
		}
		if string(got[1].Payload) != `{"ord_id":43}` {
			t.Errorf("unexpected payload %s", got[1].Payload)
		}
		if len(reader.committed) != 2 || reader.committed[0] != 7 || reader.committed[1] != 8 {
			t.Errorf("expected offsets 7 and 8 committed, got %v", reader.committed)
		}
	})

	t.Run("handler failure leaves offset uncommitted", func(t *testing.T) {
		reader := &fakeReader{
			messages: []kafka.Message{{Key: []byte("42"), Partition: 0, Offset: 3, Time: loggedAt}},
		}
		refreshErr := errors.New("pq: deadlock detected")

		err := newTestConsumer(reader).Consume(context.Background(), func(context.Context, Delivery) error {
			return refreshErr
		})

		if !errors.Is(err, refreshErr) {
			t.Fatalf("expected handler error, got %v", err)
		}
		if err.Error() != "handle orders.created[0]@3: pq: deadlock detected" {
			t.Errorf("unexpected error message %q", err.Error())
		}
		if len(reader.committed) != 0 {
			t.Errorf("expected nothing committed, got %v", reader.committed)
		}
	})
}

func TestTopicSpec_Config(t *testing.T) {
	cfg := TopicSpec{Name: "orders.created", Partitions: 3, ReplicationFactor: 1}.config()

	if cfg.Topic != "orders.created" || cfg.NumPartitions != 3 || cfg.ReplicationFactor != 1 {
		t.Errorf("unexpected topic config: %+v", cfg)
	}
	if len(cfg.ConfigEntries) != 1 || cfg.ConfigEntries[0].ConfigValue != "LogAppendTime" {
		t.Errorf("expected broker-assigned timestamps, got %+v", cfg.ConfigEntries)
	}
}
