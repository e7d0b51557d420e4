package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	billingDomain "github.com/sledgehq/sledge/internal/billing/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

const maxBodyBytes = 1 << 20

type registerRequest struct {
	Email     string  `json:"email" validate:"required,email"`
	Password  string  `json:"password" validate:"required,min=8,max=72"`
	PromoCode *string `json:"promo_code,omitempty" validate:"omitempty,max=64"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// webhookRequest carries a provider update. It addresses the subscription
// by stripe_subscription_id, or by user_id when attaching provider IDs
// for the first time.
type webhookRequest struct {
	UserID               int64      `json:"user_id,omitempty" validate:"omitempty,min=1"`
	StripeSubscriptionID string     `json:"stripe_subscription_id,omitempty" validate:"required_without=UserID,max=255"`
	StripeCustomerID     *string    `json:"stripe_customer_id,omitempty" validate:"omitempty,max=255"`
	StripePriceID        *string    `json:"stripe_price_id,omitempty" validate:"omitempty,max=255"`
	Status               string     `json:"status,omitempty" validate:"omitempty,oneof=active trialing past_due canceled unpaid incomplete"`
	CurrentPeriodStart   *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd     *time.Time `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd    *bool      `json:"cancel_at_period_end,omitempty"`
}

func (r webhookRequest) patch() billingDomain.SubscriptionPatch {
	p := billingDomain.SubscriptionPatch{
		StripeCustomerID:   r.StripeCustomerID,
		StripePriceID:      r.StripePriceID,
		CurrentPeriodStart: r.CurrentPeriodStart,
		CurrentPeriodEnd:   r.CurrentPeriodEnd,
		CancelAtPeriodEnd:  r.CancelAtPeriodEnd,
	}
	if r.Status != "" {
		status := billingDomain.SubscriptionStatus(r.Status)
		p.Status = &status
	}
	if r.StripeSubscriptionID != "" {
		id := r.StripeSubscriptionID
		p.StripeSubscriptionID = &id
	}
	return p
}

type userResponse struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type authResponse struct {
	Token        string                      `json:"token"`
	ExpiresAt    time.Time                   `json:"expires_at"`
	User         userResponse                `json:"user"`
	Subscription *billingDomain.Subscription `json:"subscription,omitempty"`
	Warning      string                      `json:"warning,omitempty"`
}

// decode reads a JSON body into dst and validates it. On failure it has
// already written the response.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, strings.ToLower(fe.Field())+" failed "+fe.Tag())
	}
	return strings.Join(fields, "; ")
}
