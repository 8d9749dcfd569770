package billing

import (
	"github.com/autoprofit/core/internal/config"
	"github.com/autoprofit/core/internal/models"
	"github.com/autoprofit/core/internal/store"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/customer"
	"go.uber.org/zap"
)

// Service applies classified webhook events to the subscription store and
// answers status queries.
type Service struct {
	store  store.Store
	logger *zap.Logger

	// lookupCustomerEmail resolves an email from the Stripe customer object
	// when the event itself carries none. Replaceable in tests.
	lookupCustomerEmail func(customerID string) string
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithCustomerEmailLookup replaces the Stripe customer email resolver.
func WithCustomerEmailLookup(fn func(customerID string) string) ServiceOption {
	return func(s *Service) { s.lookupCustomerEmail = fn }
}

// NewService builds the billing service. cfg.Stripe.SecretKey is installed
// as the Stripe client key once here.
func NewService(st store.Store, cfg *config.AppConfig, logger *zap.Logger, opts ...ServiceOption) *Service {
	if cfg.Stripe.SecretKey != "" {
		stripe.Key = cfg.Stripe.SecretKey
	}
	s := &Service{
		store:               st,
		logger:              logger,
		lookupCustomerEmail: stripeCustomerEmail,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func stripeCustomerEmail(customerID string) string {
	if customerID == "" {
		return ""
	}
	cust, err := customer.Get(customerID, nil)
	if err != nil || cust == nil {
		return ""
	}
	return cust.Email
}

// Apply records a classified event. Ignored kinds are a no-op by design.
func (s *Service) Apply(event SubscriptionEvent) error {
	switch event.Kind {
	case KindCheckoutCompleted:
		// nothing extra to resolve; checkout sessions carry the email
	case KindSubscriptionChange:
		if event.CustomerEmail == nil {
			event.CustomerEmail = normalizeEmailPtr(s.lookupCustomerEmail(event.CustomerID))
		}
	default:
		s.logger.Debug("webhook event ignored", zap.String("type", event.SourceType))
		return nil
	}

	return s.store.UpsertSubscription(store.SubscriptionUpsert{
		SubscriptionID:   event.SubscriptionID,
		CustomerEmail:    event.CustomerEmail,
		Status:           event.Status,
		CurrentPeriodEnd: event.CurrentPeriodEnd,
		SourceEvent:      event.SourceType,
		RawJSON:          event.RawJSON,
	})
}

func normalizeEmailPtr(email string) *string {
	return normalizeEmail(email)
}

// StatusByEmail answers the subscription-status query; an unknown email
// yields an inactive "unknown" status rather than an error.
func (s *Service) StatusByEmail(email string) (*models.SubscriptionModel, error) {
	return s.store.SubscriptionByEmail(email)
}

// ActiveStatuses are the provider statuses treated as an active subscription.
func IsActiveStatus(status string) bool {
	return status == "active" || status == "trialing"
}
