package api

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"

	billingApplication "github.com/sledgehq/sledge/internal/billing/application"
	billingDomain "github.com/sledgehq/sledge/internal/billing/domain"
	identityApplication "github.com/sledgehq/sledge/internal/identity/application"
	identityDomain "github.com/sledgehq/sledge/internal/identity/domain"
	"github.com/sledgehq/sledge/pkg/observability"
)

// HeaderWebhookSecret carries the shared secret on billing webhooks.
const HeaderWebhookSecret = "X-Webhook-Secret"

// AuthHandler serves signup and login.
type AuthHandler struct {
	identity *identityApplication.Service
	tokens   *TokenIssuer
	logger   *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(identity *identityApplication.Service, tokens *TokenIssuer, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{identity: identity, tokens: tokens, logger: logger}
}

// Register handles POST /auth/register. Signup succeeds even when the
// subscription could not be assigned; the response then carries a warning.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := h.identity.Register(r.Context(), identityApplication.RegisterCommand{
		Email:     req.Email,
		Password:  req.Password,
		PromoCode: req.PromoCode,
	})
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	resp, err := h.authResponse(result.User)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	resp.Subscription = result.Subscription
	if result.SubscriptionErr != nil {
		resp.Warning = "subscription assignment pending"
	}
	writeJSON(w, http.StatusCreated, resp)
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}

	user, err := h.identity.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, identityApplication.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	resp, err := h.authResponse(user)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) authResponse(user *identityDomain.User) (authResponse, error) {
	token, expires, err := h.tokens.Issue(user.ID, user.Email.String())
	if err != nil {
		return authResponse{}, err
	}
	return authResponse{
		Token:     token,
		ExpiresAt: expires,
		User: userResponse{
			ID:        user.ID,
			Email:     user.Email.String(),
			CreatedAt: user.CreatedAt,
		},
	}, nil
}

// SubscriptionHandler serves the caller's own subscription.
type SubscriptionHandler struct {
	subscriptions *billingApplication.SubscriptionService
	logger        *slog.Logger
}

// NewSubscriptionHandler creates a SubscriptionHandler.
func NewSubscriptionHandler(subscriptions *billingApplication.SubscriptionService, logger *slog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptions: subscriptions, logger: logger}
}

// Get handles GET /api/subscription.
func (h *SubscriptionHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := observability.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing user")
		return
	}

	summary, err := h.subscriptions.GetSubscriptionSummary(r.Context(), userID)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	if summary.Subscription == nil {
		writeError(w, http.StatusNotFound, "no subscription")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// StartTrial handles POST /api/subscription/trial. A subscription that
// cannot start a trial is returned unchanged.
func (h *SubscriptionHandler) StartTrial(w http.ResponseWriter, r *http.Request) {
	userID, ok := observability.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing user")
		return
	}

	sub, err := h.subscriptions.StartTrialPeriod(r.Context(), userID)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.subscriptions.SummarizeNow(sub))
}

// WebhookHandler applies billing provider updates.
type WebhookHandler struct {
	subscriptions *billingApplication.SubscriptionService
	secret        []byte
	logger        *slog.Logger
}

// NewWebhookHandler creates a WebhookHandler. An empty secret disables the
// endpoint.
func NewWebhookHandler(subscriptions *billingApplication.SubscriptionService, secret string, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{subscriptions: subscriptions, secret: []byte(secret), logger: logger}
}

// Handle handles POST /webhooks/billing.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if len(h.secret) == 0 {
		writeError(w, http.StatusServiceUnavailable, "billing webhooks are not configured")
		return
	}
	if subtle.ConstantTimeCompare([]byte(r.Header.Get(HeaderWebhookSecret)), h.secret) != 1 {
		writeError(w, http.StatusUnauthorized, "invalid webhook secret")
		return
	}

	var req webhookRequest
	if !decode(w, r, &req) {
		return
	}

	var (
		sub *billingDomain.Subscription
		err error
	)
	patch := req.patch()
	switch {
	case req.UserID > 0:
		sub, err = h.subscriptions.UpdateSubscriptionByUserID(r.Context(), req.UserID, patch)
	case patch.Status != nil:
		status := *patch.Status
		patch.Status = nil
		sub, err = h.subscriptions.UpdateSubscriptionStatus(r.Context(), req.StripeSubscriptionID, status, patch)
	default:
		writeError(w, http.StatusBadRequest, "status is required when addressing by stripe_subscription_id")
		return
	}
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	h.logger.InfoContext(r.Context(), "billing webhook applied",
		observability.UserIDKey, sub.UserID,
		"status", sub.Status,
	)
	writeJSON(w, http.StatusOK, sub)
}
