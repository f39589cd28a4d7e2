package servicebus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"

	"socialhub/infrastructure/logger"
)

// NewServiceBus connects to the namespace with the ambient Azure credential.
func NewServiceBus(ctx context.Context, namespace string) (*azservicebus.Client, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, err
	}
	return azservicebus.NewClient(namespace, cred, nil)
}

// Alert is what operators receive for conditions needing human follow-up:
// invalid credentials and terminally failed posts.
type Alert struct {
	Kind       string    `json:"kind"` // credential_invalid | post_failed
	Platform   string    `json:"platform,omitempty"`
	AccountRef string    `json:"account_ref,omitempty"`
	PostID     string    `json:"post_id,omitempty"`
	Detail     string    `json:"detail"`
	OccurredAt time.Time `json:"occurred_at"`
}

// IAlertSink delivers alerts. Delivery is best effort; an unreachable sink
// must never block or fail dispatch.
type IAlertSink interface {
	Send(ctx context.Context, alert Alert)
}

type AlertSink struct {
	client *azservicebus.Client
	queue  string
}

func NewAlertSink(client *azservicebus.Client, queue string) IAlertSink {
	if queue == "" {
		queue = "operator-alerts"
	}
	return &AlertSink{client: client, queue: queue}
}

func (s *AlertSink) Send(ctx context.Context, alert Alert) {
	if alert.OccurredAt.IsZero() {
		alert.OccurredAt = time.Now().UTC()
	}
	lg := logger.GetLogger().
		WithField("kind", alert.Kind).
		WithField("platform", alert.Platform).
		WithField("detail", alert.Detail)
	if s.client == nil {
		lg.Warn("alert sink unavailable - alert logged only")
		return
	}
	sender, err := s.client.NewSender(s.queue, nil)
	if err != nil {
		lg.WithField("error", err).Error("Error while making new sender service bus.")
		return
	}
	defer func(sender *azservicebus.Sender, ctx context.Context) {
		if err := sender.Close(ctx); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while closing sender.")
		}
	}(sender, context.Background())

	body, err := json.Marshal(alert)
	if err != nil {
		lg.WithField("error", err).Error("Error while encoding alert.")
		return
	}
	sbMessage := &azservicebus.Message{Body: body}
	if err := sender.SendMessage(ctx, sbMessage, nil); err != nil {
		lg.WithField("error", err).Error("Error while sending message.")
	}
}
