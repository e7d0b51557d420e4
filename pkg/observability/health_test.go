package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func pingOK(context.Context) error   { return nil }
func pingFail(context.Context) error { return errors.New("dial tcp: refused") }

func TestHealthRegistry_Check(t *testing.T) {
	t.Run("empty registry is healthy", func(t *testing.T) {
		assert.Equal(t, HealthStatusHealthy, NewHealthRegistry().Check(context.Background()).Status)
	})

	t.Run("optional failure degrades", func(t *testing.T) {
		r := NewHealthRegistry()
		r.Register("database", PingChecker("database", true, pingOK))
		r.Register("redis", PingChecker("redis", false, pingFail))

		health := r.Check(context.Background())

		assert.Equal(t, HealthStatusDegraded, health.Status)
		assert.Equal(t, HealthStatusHealthy, health.Checks["database"].Status)
		assert.Contains(t, health.Checks["redis"].Message, "refused")
		assert.Equal(t, []string{"database", "redis"}, r.Names())
	})

	t.Run("required failure is unhealthy", func(t *testing.T) {
		r := NewHealthRegistry()
		r.Register("database", PingChecker("database", true, pingFail))
		r.Register("redis", PingChecker("redis", false, pingFail))

		assert.Equal(t, HealthStatusUnhealthy, r.Check(context.Background()).Status)
	})
}
