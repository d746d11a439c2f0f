package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/veridian-labs/walletgate/ports"
)

const (
	// TopicLoginCompleted carries events for successfully completed logins
	TopicLoginCompleted = "walletgate.login.completed"

	// TopicLoginExpired carries events for logins that expired unresolved
	TopicLoginExpired = "walletgate.login.expired"
)

// LoginCompletedEvent represents a completed login exchange
type LoginCompletedEvent struct {
	RequestID string `json:"request_id"`
	HolderDID string `json:"holder_did"`
}

// LoginExpiredEvent represents a login exchange that expired unresolved
type LoginExpiredEvent struct {
	RequestID string `json:"request_id"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// PublishLoginCompleted publishes a login completion event
func (p *WatermillPublisher) PublishLoginCompleted(ctx context.Context, requestID string, did string) error {
	return p.publish(TopicLoginCompleted, requestID, LoginCompletedEvent{
		RequestID: requestID,
		HolderDID: did,
	})
}

// PublishLoginExpired publishes a login expiry event
func (p *WatermillPublisher) PublishLoginExpired(ctx context.Context, requestID string) error {
	return p.publish(TopicLoginExpired, requestID, LoginExpiredEvent{
		RequestID: requestID,
	})
}

func (p *WatermillPublisher) publish(topic, requestID string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(requestID, payload)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
