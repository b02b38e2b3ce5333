package feed

import (
	"context"

	"github.com/jmcallister/catalogue-scraper/internal/catalogue"
)

// PublisherNotifier pushes change events through a broker topic instead of
// handling them in process. The subscription side feeds the consumer.
type PublisherNotifier struct {
	publisher catalogue.Publisher
	topic     string
}

// NewPublisherNotifier constructs a PublisherNotifier for the topic.
func NewPublisherNotifier(publisher catalogue.Publisher, topic string) *PublisherNotifier {
	return &PublisherNotifier{publisher: publisher, topic: topic}
}

// NotifyChange publishes the event to the configured topic.
func (n *PublisherNotifier) NotifyChange(ctx context.Context, ev catalogue.ChangeEvent) error {
	_, err := n.publisher.Publish(ctx, n.topic, ev)
	return err
}
