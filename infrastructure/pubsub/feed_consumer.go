package pubsub

import (
	"context"
	"encoding/json"

	"cloud.google.com/go/pubsub"
	"golang.org/x/sync/errgroup"

	"socialhub/domain/model"
	"socialhub/infrastructure/logger"
)

// NewPubSub instantiates the Pub/Sub client for the given project.
func NewPubSub(ctx context.Context, projectID string) (*pubsub.Client, error) {
	return pubsub.NewClient(ctx, projectID)
}

// IFeedConsumer streams normalized feed events (content, engagement, hashtag
// observations) into the rule engine.
type IFeedConsumer interface {
	Consume(ctx context.Context, out chan<- model.FeedEvent) error
}

type FeedConsumer struct {
	client *pubsub.Client
	subs   map[model.FeedEventKind]string
}

func NewFeedConsumer(client *pubsub.Client, contentSub, engagementSub, hashtagSub string) IFeedConsumer {
	return &FeedConsumer{
		client: client,
		subs: map[model.FeedEventKind]string{
			model.FeedEventContent:    contentSub,
			model.FeedEventEngagement: engagementSub,
			model.FeedEventHashtag:    hashtagSub,
		},
	}
}

// Consume blocks until ctx is cancelled, forwarding decoded events to out.
// Messages that do not decode are acked and dropped; redelivering them would
// never succeed.
func (f *FeedConsumer) Consume(ctx context.Context, out chan<- model.FeedEvent) error {
	if f.client == nil {
		logger.GetLogger().Info("PubSub client is nil - feed consumption disabled")
		<-ctx.Done()
		return ctx.Err()
	}
	g, ctx := errgroup.WithContext(ctx)
	for kind, subID := range f.subs {
		if subID == "" {
			continue
		}
		kind, subID := kind, subID
		g.Go(func() error {
			sub := f.client.Subscription(subID)
			return sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
				var event model.FeedEvent
				if err := json.Unmarshal(msg.Data, &event); err != nil {
					logger.GetLogger().WithField("subscription", subID).WithField("error", err).Warn("dropping undecodable feed event")
					msg.Ack()
					return
				}
				if event.Kind == "" {
					event.Kind = kind
				}
				select {
				case out <- event:
					msg.Ack()
				case <-ctx.Done():
					msg.Nack()
				}
			})
		})
	}
	return g.Wait()
}
