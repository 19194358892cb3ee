package messaging

import (
	"testing"

	"github.com/segmentio/kafka-go"
)

func TestNewProducer(t *testing.T) {
	p := NewProducer([]string{"kafka-1:9092"}, "orders.created")
	t.Cleanup(func() { _ = p.Close() })

	if p.writer.MaxAttempts != 1 {
		t.Errorf("expected a single write attempt, got %d", p.writer.MaxAttempts)
	}
	if p.writer.RequiredAcks != kafka.RequireOne {
		t.Errorf("expected RequireOne acks, got %v", p.writer.RequiredAcks)
	}
	if p.writer.Topic != "orders.created" {
		t.Errorf("unexpected topic %q", p.writer.Topic)
	}
}
