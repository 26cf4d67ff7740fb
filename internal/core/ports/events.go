package ports

import (
	"context"

	"github.com/apiecommerce/identity-service/internal/core/domain"
)

// EventPublisher delivers auth events to a downstream broker.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.AuthEvent) error
}

// EventSink accepts events for asynchronous delivery. Enqueue must not block
// the request path for long.
type EventSink interface {
	Enqueue(event domain.AuthEvent)
}
