package messaging

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/segmentio/kafka-go"
)

// TopicSpec describes the order events topic.
type TopicSpec struct {
	Name              string
	Partitions        int
	ReplicationFactor int
}

func (s TopicSpec) config() kafka.TopicConfig {
	return kafka.TopicConfig{
		Topic:             s.Name,
		NumPartitions:     s.Partitions,
		ReplicationFactor: s.ReplicationFactor,
		ConfigEntries: []kafka.ConfigEntry{
			// Record timestamps come from the broker's clock, not the producer's.
			{ConfigName: "message.timestamp.type", ConfigValue: "LogAppendTime"},
		},
	}
}

// EnsureTopic creates the topic through the cluster controller. An existing
// topic is left untouched, including its timestamp type.
func EnsureTopic(ctx context.Context, brokers []string, spec TopicSpec) error {
	if len(brokers) == 0 {
		return errors.New("ensure topic: no brokers")
	}

	conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		return fmt.Errorf("dial %s: %w", brokers[0], err)
	}
	defer func() { _ = conn.Close() }()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("find controller: %w", err)
	}

	addr := net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port))
	ctrl, err := kafka.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial controller %s: %w", addr, err)
	}
	defer func() { _ = ctrl.Close() }()

	if err := ctrl.CreateTopics(spec.config()); err != nil && !errors.Is(err, kafka.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", spec.Name, err)
	}
	return nil
}
