package payment

import (
	"context"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-storefront"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

// SessionClient is the part of the Stripe API the gateway calls
type SessionClient interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// StripeGateway implements storefront.PaymentGateway with Stripe Checkout
type StripeGateway struct {
	sessions SessionClient
	logger   storefront.Logger
}

var _ storefront.PaymentGateway = (*StripeGateway)(nil)

// Option configures the gateway
type Option func(*StripeGateway)

// WithLogger sets the logger
func WithLogger(logger storefront.Logger) Option {
	return func(g *StripeGateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewStripeGateway creates a gateway authenticated with the secret key
func NewStripeGateway(secretKey string, opts ...Option) (*StripeGateway, error) {
	if strings.TrimSpace(secretKey) == "" {
		return nil, errors.New("stripe secret key is required", errors.CategoryBadInput)
	}

	sc := &client.API{}
	sc.Init(secretKey, nil)

	return NewGatewayWithClient(sc.CheckoutSessions, opts...), nil
}

// NewGatewayWithClient creates a gateway over an existing session client
func NewGatewayWithClient(sessions SessionClient, opts ...Option) *StripeGateway {
	g := &StripeGateway{sessions: sessions, logger: nopLogger{}}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req storefront.CheckoutSessionRequest) (*storefront.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
	}
	params.Context = ctx

	for _, item := range req.LineItems {
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(item.Name),
		}
		if len(item.Images) > 0 {
			product.Images = stripe.StringSlice(item.Images)
		}

		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(req.Currency),
				ProductData: product,
				UnitAmount:  stripe.Int64(item.UnitAmount),
			},
			Quantity: stripe.Int64(item.Quantity),
		})
	}

	if len(req.AllowedCountries) > 0 {
		params.ShippingAddressCollection = &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice(req.AllowedCountries),
		}
	}

	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}

	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	session, err := g.sessions.New(params)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryExternal, "stripe checkout session creation failed")
	}

	g.logger.Debug("stripe checkout session %s created", session.ID)

	return toCheckoutSession(session), nil
}

func (g *StripeGateway) RetrieveCheckoutSession(ctx context.Context, id string) (*storefront.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	session, err := g.sessions.Get(id, params)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryExternal, "stripe checkout session lookup failed")
	}

	return toCheckoutSession(session), nil
}

func toCheckoutSession(s *stripe.CheckoutSession) *storefront.CheckoutSession {
	if s == nil {
		return &storefront.CheckoutSession{}
	}

	out := &storefront.CheckoutSession{
		ID:            s.ID,
		URL:           s.URL,
		PaymentStatus: string(s.PaymentStatus),
		AmountTotal:   s.AmountTotal,
		Metadata:      s.Metadata,
	}
	if s.PaymentIntent != nil {
		out.PaymentIntent = s.PaymentIntent.ID
	}
	return out
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
