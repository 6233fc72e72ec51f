package billing

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/promptlift/prompt-enhancer/internal/config"
	"github.com/promptlift/prompt-enhancer/internal/database"
	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/webhook"
)

const maxPayloadBytes = 64 * 1024

// errBadPayload marks a verified event whose payload cannot be used as
// delivered. Redelivering the same bytes can never succeed, so these
// get a client error so the provider stops retrying.
var errBadPayload = errors.New("unusable event payload")

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// Info answers GET on the webhook path with a static description, a
// cheap way to confirm the deployment is wired up.
func Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"method":      "POST",
		"description": "Stripe billing webhook receiver",
		"environment": config.Cfg.Environment,
	})
}

// Handle verifies and processes one provider notification. Unverified
// or malformed payloads are rejected with 400 and mutate nothing; the
// provider's own retry schedule governs redelivery, so no retries
// happen here.
func Handle(w http.ResponseWriter, r *http.Request) {
	if config.Cfg.StripeWebhookSecret == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":   "not_configured",
			"message": "Webhook secret is not configured",
		})
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":   "malformed_payload",
			"message": "Failed to read request body",
		})
		return
	}

	event, err := webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), config.Cfg.StripeWebhookSecret)
	if err != nil {
		log.Printf("webhook verification failed: %v", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":   "verification_failed",
			"message": "Webhook signature verification failed",
		})
		return
	}

	if err := processEvent(event); err != nil {
		log.Printf("webhook event %s (%s) failed: %v", event.ID, event.Type, err)
		if errors.Is(err, errBadPayload) {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error":   "malformed_payload",
				"message": "Event payload could not be processed",
			})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "processing_failed",
			"message": "Failed to process webhook event",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// processEvent updates subscription state for recognized event types.
// Unrecognized events are acknowledged and ignored.
func processEvent(event stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return fmt.Errorf("parse checkout session: %v: %w", err, errBadPayload)
		}
		return handleCheckoutCompleted(session)

	case "customer.subscription.updated":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("parse subscription: %v: %w", err, errBadPayload)
		}
		return handleSubscriptionUpdated(sub)

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("parse subscription: %v: %w", err, errBadPayload)
		}
		return setStatusByCustomer(customerID(sub.Customer), database.StatusCanceled)

	case "invoice.payment_failed":
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return fmt.Errorf("parse invoice: %v: %w", err, errBadPayload)
		}
		return setStatusByCustomer(customerID(inv.Customer), database.StatusPastDue)

	default:
		log.Printf("ignoring webhook event type %s", event.Type)
		return nil
	}
}

func handleCheckoutCompleted(session stripe.CheckoutSession) error {
	userID := session.ClientReferenceID
	if userID == "" {
		return fmt.Errorf("checkout session %s has no client reference id: %w", session.ID, errBadPayload)
	}

	var profile database.UserProfile
	err := database.DB.Where("user_id = ?", userID).First(&profile).Error
	if err != nil {
		profile = database.UserProfile{UserID: userID}
	}

	profile.StripeCustomerID = customerID(session.Customer)
	if session.Subscription != nil {
		profile.SubscriptionID = session.Subscription.ID
	}
	profile.SubscriptionStatus = database.StatusActive

	return database.DB.Save(&profile).Error
}

func handleSubscriptionUpdated(sub stripe.Subscription) error {
	var profile database.UserProfile
	if err := database.DB.Where("stripe_customer_id = ?", customerID(sub.Customer)).First(&profile).Error; err != nil {
		// Subscription for a customer we never saw; nothing to update.
		log.Printf("subscription update for unknown customer %s", customerID(sub.Customer))
		return nil
	}

	profile.SubscriptionID = sub.ID
	profile.SubscriptionStatus = mapStatus(sub.Status)
	profile.CurrentPeriodStart = time.Unix(sub.CurrentPeriodStart, 0).UTC()
	profile.CurrentPeriodEnd = time.Unix(sub.CurrentPeriodEnd, 0).UTC()

	return database.DB.Save(&profile).Error
}

func setStatusByCustomer(custID, status string) error {
	if custID == "" {
		return fmt.Errorf("event carries no customer id")
	}
	res := database.DB.Model(&database.UserProfile{}).
		Where("stripe_customer_id = ?", custID).
		Update("subscription_status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		log.Printf("status update for unknown customer %s", custID)
	}
	return nil
}

func customerID(c *stripe.Customer) string {
	if c == nil {
		return ""
	}
	return c.ID
}

func mapStatus(s stripe.SubscriptionStatus) string {
	switch s {
	case stripe.SubscriptionStatusActive:
		return database.StatusActive
	case stripe.SubscriptionStatusTrialing:
		return database.StatusTrialing
	case stripe.SubscriptionStatusPastDue:
		return database.StatusPastDue
	case stripe.SubscriptionStatusCanceled, stripe.SubscriptionStatusUnpaid:
		return database.StatusCanceled
	default:
		return database.StatusFree
	}
}
