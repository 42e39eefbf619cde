// Package webhooks receives event deliveries from external services.
//
// The billing webhook consumes payment-provider events signed with the
// Stripe-Signature scheme and mirrors subscription state into the subscriptions
// table. Deliveries are acknowledged once processed; the provider retries anything
// that does not get a 2xx.
package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/creavibe/creavibe/internal/db/models"
	"github.com/creavibe/creavibe/internal/telemetry"
)

// SignatureHeader carries the delivery signature
const SignatureHeader = "Stripe-Signature"

// DefaultTolerance is the maximum age of a signed delivery
const DefaultTolerance = 5 * time.Minute

// maxPayloadBytes bounds a delivery body
const maxPayloadBytes = 1 << 20

// Handled event types
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionCreated = "customer.subscription.created"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

var (
	ErrNoSecret         = errors.New("webhook secret not configured")
	ErrMissingSignature = errors.New("missing signature header")
	ErrMalformedHeader  = errors.New("malformed signature header")
	ErrTimestampExpired = errors.New("signature timestamp outside tolerance")
	ErrNoMatchingSig    = errors.New("no matching signature")
)

// SubscriptionStore persists subscription state
type SubscriptionStore interface {
	UpsertSubscription(ctx context.Context, s *models.Subscription) error
	RecordCheckout(ctx context.Context, s *models.Subscription) error
	SetSubscriptionStatus(ctx context.Context, subscriptionID, status string) (bool, error)
}

// BillingWebhookHandler handles payment provider webhooks
type BillingWebhookHandler struct {
	secret    []byte
	tolerance time.Duration
	store     SubscriptionStore
	now       func() time.Time
}

// NewBillingWebhookHandler creates a new BillingWebhookHandler. A zero tolerance uses
// DefaultTolerance.
func NewBillingWebhookHandler(secret string, tolerance time.Duration, store SubscriptionStore) *BillingWebhookHandler {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &BillingWebhookHandler{
		secret:    []byte(secret),
		tolerance: tolerance,
		store:     store,
		now:       time.Now,
	}
}

// Event is the envelope of every delivery
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type checkoutSession struct {
	ClientReferenceID string `json:"client_reference_id"`
	Customer          string `json:"customer"`
	Subscription      string `json:"subscription"`
}

type subscriptionObject struct {
	ID               string `json:"id"`
	Customer         string `json:"customer"`
	Status           string `json:"status"`
	CurrentPeriodEnd int64  `json:"current_period_end"`
	Metadata         struct {
		UserID string `json:"user_id"`
	} `json:"metadata"`
	Items struct {
		Data []struct {
			Price struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

// Sign computes the v1 signature of payload at timestamp t
func Sign(secret []byte, t int64, payload []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(strconv.FormatInt(t, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a "t=<unix>,v1=<hex>[,v1=<hex>...]" header against payload.
// At least one v1 signature must match and the timestamp must be within tolerance of now.
func VerifySignature(header string, payload, secret []byte, tolerance time.Duration, now time.Time) error {
	if len(secret) == 0 {
		return ErrNoSecret
	}
	if header == "" {
		return ErrMissingSignature
	}

	var (
		timestamp int64
		haveTS    bool
		sigs      [][]byte
	)
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			ts, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return ErrMalformedHeader
			}
			timestamp, haveTS = ts, true
		case "v1":
			sig, err := hex.DecodeString(value)
			if err != nil {
				continue
			}
			sigs = append(sigs, sig)
		}
	}
	if !haveTS || len(sigs) == 0 {
		return ErrMalformedHeader
	}

	age := now.Sub(time.Unix(timestamp, 0))
	if age < 0 {
		age = -age
	}
	if age > tolerance {
		return ErrTimestampExpired
	}

	expected, _ := hex.DecodeString(Sign(secret, timestamp, payload))
	for _, sig := range sigs {
		if hmac.Equal(expected, sig) {
			return nil
		}
	}
	return ErrNoMatchingSig
}

// @Summary      Billing webhook
// @Description  Receives payment provider events. Requires a valid Stripe-Signature header.
// @Tags         Webhooks
// @Accept       json
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "{received: true}"
// @Failure      400  {object}  map[string]interface{}  "invalid_signature or invalid_payload"
// @Failure      500  {object}  map[string]interface{}  "processing failed, provider will retry"
// @Router       /webhooks/billing [post]
func (h *BillingWebhookHandler) HandleWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPayloadBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload"})
		return
	}

	if err := VerifySignature(c.GetHeader(SignatureHeader), payload, h.secret, h.tolerance, h.now()); err != nil {
		slog.Warn("billing webhook signature rejected", "error", err, "ip", c.ClientIP())
		telemetry.BillingWebhookEventsTotal.WithLabelValues("unknown", "invalid_signature").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_signature"})
		return
	}

	var event Event
	if err := json.Unmarshal(payload, &event); err != nil || event.Type == "" {
		telemetry.BillingWebhookEventsTotal.WithLabelValues("unknown", "error").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload"})
		return
	}

	handled, err := h.dispatch(c.Request.Context(), &event)
	if err != nil {
		slog.Error("billing webhook processing failed", "event_id", event.ID, "type", event.Type, "error", err)
		telemetry.BillingWebhookEventsTotal.WithLabelValues(event.Type, "error").Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing_failed"})
		return
	}

	outcome := "handled"
	if !handled {
		outcome = "ignored"
		slog.Info("billing webhook event ignored", "event_id", event.ID, "type", event.Type)
	}
	telemetry.BillingWebhookEventsTotal.WithLabelValues(event.Type, outcome).Inc()
	c.JSON(http.StatusOK, gin.H{"received": true})
}

// dispatch applies a verified event and reports whether its type is handled
func (h *BillingWebhookHandler) dispatch(ctx context.Context, event *Event) (bool, error) {
	switch event.Type {
	case EventCheckoutCompleted:
		var session checkoutSession
		if err := json.Unmarshal(event.Data.Object, &session); err != nil {
			return true, err
		}
		if session.Subscription == "" {
			// one-off payment, nothing to mirror
			return true, nil
		}
		sub := &models.Subscription{
			CustomerID:     session.Customer,
			SubscriptionID: session.Subscription,
			Status:         models.SubscriptionActive,
		}
		if session.ClientReferenceID != "" {
			sub.UserID = &session.ClientReferenceID
		}
		// status applies only to a new row; subscription events may arrive first
		if err := h.store.RecordCheckout(ctx, sub); err != nil {
			return true, err
		}
		slog.Info("subscription recorded from checkout",
			"subscription_id", sub.SubscriptionID, "user_id", session.ClientReferenceID)
		return true, nil

	case EventSubscriptionCreated, EventSubscriptionUpdated:
		var obj subscriptionObject
		if err := json.Unmarshal(event.Data.Object, &obj); err != nil {
			return true, err
		}
		sub := &models.Subscription{
			CustomerID:     obj.Customer,
			SubscriptionID: obj.ID,
			Status:         obj.Status,
		}
		if obj.Metadata.UserID != "" {
			sub.UserID = &obj.Metadata.UserID
		}
		if len(obj.Items.Data) > 0 {
			sub.PriceID = obj.Items.Data[0].Price.ID
		}
		if obj.CurrentPeriodEnd > 0 {
			end := time.Unix(obj.CurrentPeriodEnd, 0).UTC()
			sub.CurrentPeriodEnd = &end
		}
		return true, h.store.UpsertSubscription(ctx, sub)

	case EventSubscriptionDeleted:
		var obj subscriptionObject
		if err := json.Unmarshal(event.Data.Object, &obj); err != nil {
			return true, err
		}
		found, err := h.store.SetSubscriptionStatus(ctx, obj.ID, models.SubscriptionCanceled)
		if err != nil {
			return true, err
		}
		if !found {
			slog.Warn("canceled subscription was never recorded", "subscription_id", obj.ID)
		}
		return true, nil
	}
	return false, nil
}
