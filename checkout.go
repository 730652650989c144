package storefront

import (
	"context"
	"math"
	"strings"
)

// CheckoutLineItem is a priced line of a hosted checkout. UnitAmount is in
// the smallest currency unit.
type CheckoutLineItem struct {
	Name       string
	Images     []string
	UnitAmount int64
	Quantity   int64
}

// CheckoutSessionRequest describes the hosted checkout to create
type CheckoutSessionRequest struct {
	Currency         string
	LineItems        []CheckoutLineItem
	SuccessURL       string
	CancelURL        string
	AllowedCountries []string
	CustomerEmail    string
	Metadata         map[string]string
}

// CheckoutSession is the gateway's view of a hosted checkout
type CheckoutSession struct {
	ID            string
	URL           string
	PaymentStatus string
	PaymentIntent string
	AmountTotal   int64
	Metadata      map[string]string
}

// Paid reports whether the gateway settled the payment
func (s *CheckoutSession) Paid() bool {
	return s != nil && s.PaymentStatus == string(PaymentPaid)
}

// OrderID is the order the session was created for
func (s *CheckoutSession) OrderID() string {
	if s == nil {
		return ""
	}
	return s.Metadata["orderId"]
}

// CheckoutConfig holds the pricing and redirect settings of checkout
type CheckoutConfig struct {
	FrontendURL      string
	Currency         string
	ShippingCost     float64
	AllowedCountries []string
}

type CreateCheckoutMessage struct {
	Items    []OrderItem `json:"items"`
	Shipping Shipping    `json:"shipping"`
}

func (m CreateCheckoutMessage) Type() string { return "checkout.create" }

type VerifyCheckoutMessage struct {
	SessionID string `json:"sessionId"`
	OrderID   string `json:"orderId"`
}

func (m VerifyCheckoutMessage) Type() string { return "checkout.verify" }

// CheckoutService turns orders into hosted payment sessions and records
// their outcome.
type CheckoutService struct {
	gateway PaymentGateway
	orders  *OrderService
	cfg     CheckoutConfig
	logger  Logger
}

func NewCheckoutService(gateway PaymentGateway, orders *OrderService, cfg CheckoutConfig, logger Logger) *CheckoutService {
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	if len(cfg.AllowedCountries) == 0 {
		cfg.AllowedCountries = []string{"PK"}
	}
	cfg.FrontendURL = strings.TrimRight(cfg.FrontendURL, "/")

	return &CheckoutService{
		gateway: gateway,
		orders:  orders,
		cfg:     cfg,
		logger:  normalizeLogger(logger),
	}
}

// CreateSession opens a pending order for the items and returns the URL of
// the hosted checkout that pays for it.
func (s *CheckoutService) CreateSession(ctx context.Context, userID string, msg CreateCheckoutMessage) (string, *Order, error) {
	if len(msg.Items) == 0 {
		return "", nil, BadRequest("No items provided")
	}

	lineItems := make([]CheckoutLineItem, 0, len(msg.Items)+1)
	total := s.cfg.ShippingCost
	for _, item := range msg.Items {
		if item.Quantity < 1 {
			return "", nil, BadRequest("Invalid item quantity")
		}

		var images []string
		if item.Image != "" {
			images = []string{item.Image}
		}

		lineItems = append(lineItems, CheckoutLineItem{
			Name:       item.Name,
			Images:     images,
			UnitAmount: toMinorUnits(item.Price),
			Quantity:   int64(item.Quantity),
		})
		total += item.Subtotal()
	}

	lineItems = append(lineItems, CheckoutLineItem{
		Name:       "Shipping",
		UnitAmount: toMinorUnits(s.cfg.ShippingCost),
		Quantity:   1,
	})

	order, err := s.orders.Open(ctx, userID, PlaceOrderMessage{
		Items:    msg.Items,
		Shipping: msg.Shipping,
		Total:    total,
	})
	if err != nil {
		return "", nil, err
	}

	orderID := order.ID.String()
	session, err := s.gateway.CreateCheckoutSession(ctx, CheckoutSessionRequest{
		Currency:         s.cfg.Currency,
		LineItems:        lineItems,
		SuccessURL:       s.cfg.FrontendURL + "/success?session_id={CHECKOUT_SESSION_ID}&order_id=" + orderID,
		CancelURL:        s.cfg.FrontendURL + "/cancel",
		AllowedCountries: s.cfg.AllowedCountries,
		CustomerEmail:    strings.TrimSpace(msg.Shipping.Email),
		Metadata:         map[string]string{"orderId": orderID},
	})
	if err != nil {
		s.logger.Error("checkout session for order %s failed: %v", orderID, err)
		return "", order, serverError(err, "Failed to create checkout session")
	}

	return session.URL, order, nil
}

// VerifySession marks the order paid when the gateway reports the session
// as paid, then clears the caller's cart. The session must have been
// created for that order and the order must belong to the caller.
func (s *CheckoutService) VerifySession(ctx context.Context, userID string, msg VerifyCheckoutMessage) (*Order, error) {
	if msg.SessionID == "" || msg.OrderID == "" {
		return nil, BadRequest("Session ID and Order ID required")
	}

	session, err := s.gateway.RetrieveCheckoutSession(ctx, msg.SessionID)
	if err != nil {
		s.logger.Error("checkout session %s lookup failed: %v", msg.SessionID, err)
		return nil, serverError(err, "Failed to verify payment")
	}

	if !session.Paid() {
		return nil, ErrPaymentNotCompleted
	}

	if session.OrderID() != msg.OrderID {
		s.logger.Warn("checkout session %s was created for order %q, not %s", session.ID, session.OrderID(), msg.OrderID)
		return nil, BadRequest("Checkout session does not match the order")
	}

	return s.orders.MarkPaid(ctx, userID, msg.OrderID, map[string]any{
		"id":             session.ID,
		"payment_intent": session.PaymentIntent,
		"payment_status": session.PaymentStatus,
		"amount_total":   session.AmountTotal,
	})
}

func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
