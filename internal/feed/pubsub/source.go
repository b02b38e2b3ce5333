// Package pubsub receives request change events from a Pub/Sub subscription.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/jmcallister/catalogue-scraper/internal/catalogue"
)

// Handler processes one decoded change event. A non-nil error causes the
// message to be redelivered.
type Handler interface {
	HandleEvent(ctx context.Context, ev catalogue.ChangeEvent) error
}

// Source pulls change events from a subscription and hands them to a Handler.
type Source struct {
	client *pubsub.Client
	sub    *pubsub.Subscription
	handle Handler
	logger *zap.Logger
}

// New creates a Pub/Sub client and binds it to the subscription.
func New(ctx context.Context, projectID, subscription string, handle Handler, logger *zap.Logger) (*Source, error) {
	if projectID == "" {
		return nil, fmt.Errorf("pubsub.project_id is required")
	}
	if subscription == "" {
		return nil, fmt.Errorf("pubsub.subscription is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	return &Source{
		client: client,
		sub:    client.Subscription(subscription),
		handle: handle,
		logger: logger,
	}, nil
}

// Run receives until ctx is cancelled. Malformed messages are acked and
// dropped; handler failures are nacked for redelivery.
func (s *Source) Run(ctx context.Context) error {
	s.logger.Info("change feed source started", zap.String("subscription", s.sub.ID()))
	err := s.sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		var ev catalogue.ChangeEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			s.logger.Warn("dropping malformed change event", zap.Error(err))
			msg.Ack()
			return
		}
		if err := s.handle.HandleEvent(ctx, ev); err != nil {
			s.logger.Error("change event handling failed", zap.Error(err))
			msg.Nack()
			return
		}
		msg.Ack()
	})
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("receive change events: %w", err)
	}
	return nil
}

// Close closes the underlying client connection.
func (s *Source) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}
