package events

import (
	"context"

	"github.com/fd1az/flasharb/business/execution/app"
	"github.com/fd1az/flasharb/business/execution/domain"
)

var _ app.EventPublisher = (*NoopPublisher)(nil)

// NoopPublisher drops events. Used when no Redis endpoint is
// configured; attempts are still persisted in the attempt store.
type NoopPublisher struct{}

// NewNoopPublisher creates a NoopPublisher.
func NewNoopPublisher() *NoopPublisher { return &NoopPublisher{} }

// PublishAttempt does nothing.
func (*NoopPublisher) PublishAttempt(context.Context, *domain.Attempt) error { return nil }

// Close does nothing.
func (*NoopPublisher) Close() error { return nil }
