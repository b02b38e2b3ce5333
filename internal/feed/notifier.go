package feed

import (
	"context"

	"github.com/jmcallister/catalogue-scraper/internal/catalogue"
)

// DirectNotifier delivers change events straight into the consumer,
// bypassing any broker. It is the in-process feed used when Pub/Sub is
// disabled.
type DirectNotifier struct {
	consumer *Consumer
}

// NewDirectNotifier constructs a DirectNotifier over the given consumer.
func NewDirectNotifier(consumer *Consumer) *DirectNotifier {
	return &DirectNotifier{consumer: consumer}
}

// NotifyChange hands the event to the consumer synchronously.
func (n *DirectNotifier) NotifyChange(ctx context.Context, ev catalogue.ChangeEvent) error {
	return n.consumer.HandleEvent(ctx, ev)
}
