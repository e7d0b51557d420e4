package api

import (
	"github.com/sledgehq/sledge/internal/app"
)

// NewHandlers wires the API handlers to a container.
func NewHandlers(c *app.Container) Handlers {
	tokens := NewTokenIssuer(c.Config.JWTSecret, c.Config.JWTTTL)
	return Handlers{
		Auth:         NewAuthHandler(c.IdentityService, tokens, c.Logger),
		Subscription: NewSubscriptionHandler(c.SubscriptionService, c.Logger),
		Webhook:      NewWebhookHandler(c.SubscriptionService, c.Config.BillingWebhookSecret, c.Logger),
		Tokens:       tokens,
		Health:       c.Health,
	}
}

// ServerConfigFrom builds a ServerConfig from the container's settings.
func ServerConfigFrom(c *app.Container) ServerConfig {
	cfg := DefaultServerConfig()
	if c.Config.HTTPAddr != "" {
		cfg.Addr = c.Config.HTTPAddr
	}
	if len(c.Config.CORSOrigins) > 0 {
		cfg.CORSOrigins = c.Config.CORSOrigins
	}
	return cfg
}
