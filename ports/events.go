package ports

import "context"

// EventPublisher publishes login lifecycle events to notify other instances
type EventPublisher interface {
	PublishLoginCompleted(ctx context.Context, requestID string, did string) error
	PublishLoginExpired(ctx context.Context, requestID string) error
}
