package domain_test

import (
	"testing"

	"github.com/sledgehq/sledge/internal/shared/domain"
	"github.com/stretchr/testify/assert"
)

type recordingAggregate struct {
	domain.EventRecorder
}

func TestEventRecorder_AddAndPull(t *testing.T) {
	agg := &recordingAggregate{}
	assert.Empty(t, agg.DomainEvents())

	first := domain.NewBaseEvent("1", "Subscription", "billing.subscription.created")
	second := domain.NewBaseEvent("1", "Subscription", "billing.subscription.trial_started")
	agg.AddDomainEvent(first)
	agg.AddDomainEvent(second)

	events := agg.PullDomainEvents()
	assert.Len(t, events, 2)
	assert.Equal(t, first.EventID(), events[0].EventID())
	assert.Equal(t, second.EventID(), events[1].EventID())
	assert.Empty(t, agg.DomainEvents())
}

func TestEventRecorder_Clear(t *testing.T) {
	agg := &recordingAggregate{}
	agg.AddDomainEvent(domain.NewBaseEvent("9", "Subscription", "billing.subscription.created"))

	agg.ClearDomainEvents()

	assert.Empty(t, agg.DomainEvents())
	assert.Empty(t, agg.PullDomainEvents())
}
