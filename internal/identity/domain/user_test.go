package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sledgehq/sledge/internal/identity/domain"
)

func TestUser_RecordRegistered(t *testing.T) {
	email, err := domain.NewEmail("user@example.com")
	require.NoError(t, err)

	user := domain.NewUser(email, "hash", time.Now())
	assert.Empty(t, user.DomainEvents())

	user.ID = 17
	user.RecordRegistered()

	events := user.PullDomainEvents()
	require.Len(t, events, 1)
	registered, ok := events[0].(*domain.UserRegistered)
	require.True(t, ok)
	assert.Equal(t, int64(17), registered.UserID)
	assert.Equal(t, "17", registered.AggregateID())
	assert.Equal(t, "user@example.com", registered.Email)
	assert.Equal(t, domain.RoutingKeyUserRegistered, registered.RoutingKey())
}
