package fanout

import (
	"strings"

	"collabhub/pkg/metrics"
	"collabhub/pkg/mq"
)

// RabbitBus publishes snapshots to the shared topic exchange. Subscribers
// bind their own queues per topic key; nothing is retained for clients
// that are not connected.
type RabbitBus struct {
	publisher *mq.Publisher
}

func NewRabbitBus(publisher *mq.Publisher) *RabbitBus {
	return &RabbitBus{publisher: publisher}
}

func (b *RabbitBus) Publish(topic string, payload any) error {
	err := b.publisher.Publish(topic, payload)

	result := "ok"
	if err != nil {
		result = "dropped"
	}
	metrics.FanoutPushCount.WithLabelValues(topicPrefix(topic), result).Inc()
	return err
}

func topicPrefix(topic string) string {
	if i := strings.IndexByte(topic, '-'); i > 0 {
		return topic[:i]
	}
	return topic
}
