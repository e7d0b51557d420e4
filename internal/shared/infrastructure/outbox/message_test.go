package outbox

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sledgehq/sledge/internal/shared/domain"
)

type subscriptionCreated struct {
	domain.BaseEvent
	UserID int64  `json:"user_id"`
	Tier   string `json:"tier"`
}

func newSubscriptionCreated(userID int64) *subscriptionCreated {
	return &subscriptionCreated{
		BaseEvent: domain.NewBaseEvent("11", "Subscription", "billing.subscription.created"),
		UserID:    userID,
		Tier:      "standard",
	}
}

func TestNewMessage(t *testing.T) {
	t.Run("copies event identity", func(t *testing.T) {
		event := newSubscriptionCreated(3)

		msg, err := NewMessage(event)

		require.NoError(t, err)
		assert.Equal(t, int64(0), msg.ID)
		assert.Equal(t, event.EventID(), msg.EventID)
		assert.Equal(t, "Subscription", msg.AggregateType)
		assert.Equal(t, "11", msg.AggregateID)
		assert.Equal(t, "billing.subscription.created", msg.EventType)
		assert.Equal(t, "billing.subscription.created", msg.RoutingKey)
		assert.Equal(t, event.OccurredAt(), msg.CreatedAt)
		assert.False(t, msg.IsPublished())
		assert.Nil(t, msg.DeadLetteredAt)
	})

	t.Run("serializes payload and metadata", func(t *testing.T) {
		event := newSubscriptionCreated(3)
		correlationID := uuid.New()
		event.SetMetadata(domain.EventMetadata{CorrelationID: correlationID, UserID: 3})

		msg, err := NewMessage(event)

		require.NoError(t, err)
		assert.JSONEq(t, `{"user_id":3,"tier":"standard"}`, string(msg.Payload))
		meta := msg.EventMetadata()
		assert.Equal(t, correlationID, meta.CorrelationID)
		assert.Equal(t, int64(3), meta.UserID)
	})
}

func TestNewMessages(t *testing.T) {
	msgs, err := NewMessages([]domain.DomainEvent{newSubscriptionCreated(1), newSubscriptionCreated(2)})
	require.NoError(t, err)
	assert.Len(t, msgs, 2)

	msgs, err = NewMessages(nil)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestMessage_EventMetadata_Malformed(t *testing.T) {
	msg := &Message{Metadata: []byte("not json")}
	assert.Equal(t, domain.EventMetadata{}, msg.EventMetadata())
}

func TestMessage_CanRetry(t *testing.T) {
	msg := &Message{}
	assert.True(t, msg.CanRetry(3))

	msg.RetryCount = 2
	assert.True(t, msg.CanRetry(3))

	msg.RetryCount = 3
	assert.False(t, msg.CanRetry(3))
}

func TestMessage_IsPublished(t *testing.T) {
	msg := &Message{}
	assert.False(t, msg.IsPublished())

	now := time.Now()
	msg.PublishedAt = &now
	assert.True(t, msg.IsPublished())
}

func TestProcessor_RetryBackoff(t *testing.T) {
	p := &Processor{config: ProcessorConfig{RetryBackoffBase: time.Second, RetryBackoffMax: 10 * time.Second}}

	assert.Equal(t, time.Second, p.retryBackoff(1))
	assert.Equal(t, 2*time.Second, p.retryBackoff(2))
	assert.Equal(t, 8*time.Second, p.retryBackoff(4))
	assert.Equal(t, 10*time.Second, p.retryBackoff(5))
	assert.Equal(t, 10*time.Second, p.retryBackoff(64))
	assert.Equal(t, time.Second, p.retryBackoff(0))
}
