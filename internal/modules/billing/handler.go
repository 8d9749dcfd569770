package billing

import (
	"io"
	"strings"

	"github.com/autoprofit/core/internal/config"
	"github.com/autoprofit/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"
)

type Handler struct {
	svc    *Service
	cfg    *config.AppConfig
	logger *zap.Logger

	verifyEvent   func(payload []byte, sigHeader string) (stripe.Event, error)
	createSession func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// HandlerOption customizes a Handler.
type HandlerOption func(*Handler)

// WithEventVerifier replaces the webhook signature verifier.
func WithEventVerifier(fn func(payload []byte, sigHeader string) (stripe.Event, error)) HandlerOption {
	return func(h *Handler) { h.verifyEvent = fn }
}

// WithSessionCreator replaces the checkout session factory.
func WithSessionCreator(fn func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)) HandlerOption {
	return func(h *Handler) { h.createSession = fn }
}

func NewHandler(svc *Service, cfg *config.AppConfig, logger *zap.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		svc:    svc,
		cfg:    cfg,
		logger: logger,
		verifyEvent: func(payload []byte, sigHeader string) (stripe.Event, error) {
			return webhook.ConstructEvent(payload, sigHeader, cfg.Stripe.WebhookSecret)
		},
		createSession: session.New,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	g := api.Group("/stripe")
	g.POST("/checkout", h.checkout)
	g.POST("/webhook", h.webhook)

	api.GET("/subscription/status", h.subscriptionStatus)
}

type checkoutRequest struct {
	Email string `json:"email"`
}

// POST /api/stripe/checkout
func (h *Handler) checkout(c *gin.Context) {
	if h.cfg.Stripe.SecretKey == "" || h.cfg.Stripe.PriceID == "" {
		response.ServiceUnavailable(c, "Stripe is not configured")
		return
	}

	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL: stripe.String(h.cfg.Stripe.SuccessURL),
		CancelURL:  stripe.String(h.cfg.Stripe.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(h.cfg.Stripe.PriceID), Quantity: stripe.Int64(1)},
		},
	}
	if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}

	sess, err := h.createSession(params)
	if err != nil {
		h.logger.Warn("checkout session creation failed", zap.Error(err))
		response.BadGateway(c, "Stripe error: "+err.Error())
		return
	}
	if sess == nil || sess.URL == "" {
		response.BadGateway(c, "Stripe returned no checkout URL")
		return
	}

	response.OK(c, gin.H{"checkout_url": sess.URL})
}

// POST /api/stripe/webhook — signature-verified; handled kinds upsert
// subscription state, everything else is acknowledged and ignored.
func (h *Handler) webhook(c *gin.Context) {
	if h.cfg.Stripe.SecretKey == "" || h.cfg.Stripe.WebhookSecret == "" {
		response.ServiceUnavailable(c, "Stripe webhook is not configured")
		return
	}

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.BadRequest(c, "cannot read request body")
		return
	}

	event, err := h.verifyEvent(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		response.BadRequest(c, "invalid Stripe signature")
		return
	}

	if err := h.svc.Apply(ClassifyEvent(event)); err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"received": true})
}

// GET /api/subscription/status?email=
func (h *Handler) subscriptionStatus(c *gin.Context) {
	email := strings.ToLower(strings.TrimSpace(c.Query("email")))
	if email == "" {
		response.BadRequest(c, "email is required")
		return
	}

	sub, err := h.svc.StatusByEmail(email)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if sub == nil {
		response.OK(c, gin.H{
			"email":              c.Query("email"),
			"active":             false,
			"status":             "unknown",
			"subscription_id":    nil,
			"current_period_end": nil,
		})
		return
	}

	response.OK(c, gin.H{
		"email":              c.Query("email"),
		"active":             IsActiveStatus(sub.Status),
		"status":             sub.Status,
		"subscription_id":    sub.SubscriptionID,
		"current_period_end": sub.CurrentPeriodEnd,
	})
}
