package billing

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v82"
)

// EventKind is the small fixed set of webhook event kinds this system
// handles. Everything else is explicitly ignored.
type EventKind string

const (
	KindCheckoutCompleted  EventKind = "checkout_completed"
	KindSubscriptionChange EventKind = "subscription_change"
	KindIgnored            EventKind = "ignored"
)

// SubscriptionEvent is the tagged, typed form of a provider webhook payload:
// only the fields the upsert needs, plus the raw body for the audit column.
type SubscriptionEvent struct {
	Kind             EventKind
	SourceType       string
	SubscriptionID   string
	CustomerEmail    *string
	Status           string
	CurrentPeriodEnd *string
	CustomerID       string
	RawJSON          string
}

type checkoutSessionObject struct {
	Subscription    string `json:"subscription"`
	CustomerEmail   string `json:"customer_email"`
	CustomerDetails struct {
		Email string `json:"email"`
	} `json:"customer_details"`
}

type subscriptionObject struct {
	ID               string            `json:"id"`
	Status           string            `json:"status"`
	CurrentPeriodEnd int64             `json:"current_period_end"`
	Customer         string            `json:"customer"`
	Metadata         map[string]string `json:"metadata"`
}

// ClassifyEvent maps a verified Stripe event onto the handled variant set.
// Events with no subscription reference, unparsable payloads, and all
// unhandled types classify as KindIgnored.
func ClassifyEvent(event stripe.Event) SubscriptionEvent {
	raw := string(event.Data.Raw)

	switch event.Type {
	case "checkout.session.completed":
		var obj checkoutSessionObject
		if err := json.Unmarshal(event.Data.Raw, &obj); err != nil || obj.Subscription == "" {
			return SubscriptionEvent{Kind: KindIgnored, SourceType: string(event.Type)}
		}
		email := obj.CustomerEmail
		if email == "" {
			email = obj.CustomerDetails.Email
		}
		return SubscriptionEvent{
			Kind:           KindCheckoutCompleted,
			SourceType:     string(event.Type),
			SubscriptionID: obj.Subscription,
			CustomerEmail:  normalizeEmail(email),
			Status:         "active",
			RawJSON:        raw,
		}

	case "customer.subscription.created",
		"customer.subscription.updated",
		"customer.subscription.deleted":
		var obj subscriptionObject
		if err := json.Unmarshal(event.Data.Raw, &obj); err != nil || obj.ID == "" {
			return SubscriptionEvent{Kind: KindIgnored, SourceType: string(event.Type)}
		}
		status := obj.Status
		if status == "" {
			status = "unknown"
		}
		return SubscriptionEvent{
			Kind:             KindSubscriptionChange,
			SourceType:       string(event.Type),
			SubscriptionID:   obj.ID,
			CustomerEmail:    normalizeEmail(obj.Metadata["email"]),
			Status:           status,
			CurrentPeriodEnd: unixToRFC3339(obj.CurrentPeriodEnd),
			CustomerID:       obj.Customer,
			RawJSON:          raw,
		}

	default:
		return SubscriptionEvent{Kind: KindIgnored, SourceType: string(event.Type)}
	}
}

func normalizeEmail(email string) *string {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}
	return &email
}

func unixToRFC3339(ts int64) *string {
	if ts == 0 {
		return nil
	}
	formatted := time.Unix(ts, 0).UTC().Format(time.RFC3339)
	return &formatted
}
