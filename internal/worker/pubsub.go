package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/breatheroute/envhealth/internal/upstream"
)

// ErrInvalidMessage is returned for change notifications that cannot be applied.
var ErrInvalidMessage = errors.New("invalid change notification")

// ChangeMessage announces that upstream data of one or more domains changed.
//
//	{"domain":"pollen"}
//	{"domains":["air-quality","air-quality-forecast"]}
//	{"all":true}
type ChangeMessage struct {
	Domain  string   `json:"domain,omitempty"`
	Domains []string `json:"domains,omitempty"`
	All     bool     `json:"all,omitempty"`
}

// ParseChangeMessage decodes and validates a change notification.
func ParseChangeMessage(data []byte) ([]upstream.Domain, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}

	if msg.All {
		return upstream.AllDomains(), nil
	}

	names := msg.Domains
	if msg.Domain != "" {
		names = append([]string{msg.Domain}, names...)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no domain", ErrInvalidMessage)
	}

	seen := make(map[upstream.Domain]bool, len(names))
	domains := make([]upstream.Domain, 0, len(names))
	for _, name := range names {
		d, err := upstream.ParseDomain(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrInvalidMessage, name, err)
		}
		if !seen[d] {
			seen[d] = true
			domains = append(domains, d)
		}
	}
	return domains, nil
}

// ApplyChange invalidates every domain named by a change notification and
// returns the number of fetches started.
func ApplyChange(inv Invalidator, data []byte) (int, error) {
	domains, err := ParseChangeMessage(data)
	if err != nil {
		return 0, err
	}
	started := 0
	for _, d := range domains {
		started += inv.Invalidate(d)
	}
	return started, nil
}

// PubSubHandler receives upstream change notifications from Pub/Sub.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	invalidator      Invalidator
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	Invalidator      Invalidator
	Logger           zerolog.Logger
}

// NewPubSubHandler creates a Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)
	subscriber.ReceiveSettings.MaxOutstandingMessages = 10
	subscriber.ReceiveSettings.MaxExtension = time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		invalidator:      cfg.Invalidator,
		logger:           cfg.Logger,
	}, nil
}

// Start processes messages until ctx is done.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting change notification subscriber")

	return h.subscriber.Receive(ctx, func(_ context.Context, msg *pubsub.Message) {
		h.handleMessage(msg)
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

func (h *PubSubHandler) handleMessage(msg *pubsub.Message) {
	logger := h.logger.With().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Logger()

	started, err := ApplyChange(h.invalidator, msg.Data)
	if err != nil {
		// Redelivery cannot fix a malformed notification.
		logger.Warn().Err(err).Msg("dropping change notification")
		msg.Ack()
		return
	}

	logger.Info().
		Int("fetches_started", started).
		Msg("change notification applied")
	msg.Ack()
}
