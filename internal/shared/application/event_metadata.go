package application

import (
	"context"

	"github.com/google/uuid"
	"github.com/sledgehq/sledge/internal/shared/domain"
	"github.com/sledgehq/sledge/pkg/observability"
)

type metadataSetter interface {
	SetMetadata(metadata domain.EventMetadata)
}

// NewEventMetadata creates command-scoped metadata for domain events.
// The correlation ID is taken from ctx when the request carries one.
func NewEventMetadata(ctx context.Context, userID int64) domain.EventMetadata {
	correlationID := uuid.New()
	if parsed, err := uuid.Parse(observability.CorrelationIDFromContext(ctx)); err == nil {
		correlationID = parsed
	}
	return domain.EventMetadata{
		CorrelationID: correlationID,
		CausationID:   uuid.New(),
		UserID:        userID,
	}
}

// ApplyEventMetadata sets metadata on all events that support it.
func ApplyEventMetadata(events []domain.DomainEvent, metadata domain.EventMetadata) {
	for _, event := range events {
		if setter, ok := event.(metadataSetter); ok {
			setter.SetMetadata(metadata)
		}
	}
}
