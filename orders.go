package storefront

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PlaceOrderMessage is the body of an order placement
type PlaceOrderMessage struct {
	Items       []OrderItem    `json:"items"`
	Shipping    Shipping       `json:"shipping"`
	Total       float64        `json:"total"`
	PaymentInfo map[string]any `json:"paymentInfo"`
}

func (m PlaceOrderMessage) Type() string { return "order.place" }

// MonthlyRevenue is one bucket of the revenue report
type MonthlyRevenue struct {
	Name    string  `json:"name"`
	Revenue float64 `json:"revenue"`
}

// RevenueMonths is the length of the revenue report window
const RevenueMonths = 6

// OrderService places and tracks orders
type OrderService struct {
	orders   OrderStore
	users    UserStore
	cart     *CartService
	logger   Logger
	activity ActivitySink
	now      func() time.Time
}

// OrderServiceOption configures the service
type OrderServiceOption func(*OrderService)

// WithOrderActivitySink sets the sink used to emit order events
func WithOrderActivitySink(sink ActivitySink) OrderServiceOption {
	return func(s *OrderService) {
		s.activity = normalizeActivitySink(sink)
	}
}

// WithOrderClock sets the clock used by the revenue report
func WithOrderClock(now func() time.Time) OrderServiceOption {
	return func(s *OrderService) {
		if now != nil {
			s.now = now
		}
	}
}

func NewOrderService(orders OrderStore, users UserStore, logger Logger, opts ...OrderServiceOption) *OrderService {
	s := &OrderService{
		orders:   orders,
		users:    users,
		cart:     NewCartService(users, logger),
		logger:   normalizeLogger(logger),
		activity: noopActivitySink{},
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Place creates a pending unpaid order and clears the caller's cart
func (s *OrderService) Place(ctx context.Context, userID string, msg PlaceOrderMessage) (*Order, error) {
	order, err := s.Open(ctx, userID, msg)
	if err != nil {
		return nil, err
	}

	s.clearCart(ctx, userID)
	return order, nil
}

// Open creates a pending unpaid order and leaves the cart as is, the
// checkout flow clears it once the payment is confirmed.
func (s *OrderService) Open(ctx context.Context, userID string, msg PlaceOrderMessage) (*Order, error) {
	if len(msg.Items) == 0 {
		return nil, BadRequest("No items provided")
	}

	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, NotFound("User not found")
	}

	info := msg.PaymentInfo
	if info == nil {
		info = map[string]any{}
	}

	order, err := s.orders.Create(ctx, &Order{
		UserID:        uid,
		Items:         msg.Items,
		Shipping:      msg.Shipping,
		Total:         msg.Total,
		Status:        OrderPending,
		PaymentStatus: PaymentUnpaid,
		PaymentInfo:   info,
	})
	if err != nil {
		return nil, serverError(err, "failed to create order")
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEventOrderPlaced, userID, map[string]any{
		"order_id": order.ID.String(),
		"total":    order.Total,
	})

	return order, nil
}

// Mine lists the caller's orders newest first. An empty status or "All"
// lists every status.
func (s *OrderService) Mine(ctx context.Context, userID string, status string) ([]*Order, error) {
	filter := OrderFilter{UserID: userID}
	if status != "" && status != "All" {
		filter.Status = OrderStatus(status)
	}

	records, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, serverError(err, "failed to list orders")
	}

	return s.withOwners(ctx, records), nil
}

// Get returns one of the caller's orders
func (s *OrderService) Get(ctx context.Context, userID, orderID string) (*Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if IsNotFound(err) {
			return nil, NotFound("Order not found")
		}
		return nil, serverError(err, "failed to load order")
	}

	if order.UserID.String() != userID {
		return nil, NotFound("Order not found")
	}

	s.withOwners(ctx, []*Order{order})
	return order, nil
}

// All lists every order newest first with its owner summary
func (s *OrderService) All(ctx context.Context) ([]*Order, error) {
	records, err := s.orders.List(ctx, OrderFilter{})
	if err != nil {
		return nil, serverError(err, "failed to list orders")
	}
	return s.withOwners(ctx, records), nil
}

// UpdateStatus sets a status an admin may assign by hand
func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, status OrderStatus) (*Order, error) {
	if !status.IsAssignable() {
		return nil, BadRequest("Invalid order status")
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if IsNotFound(err) {
			return nil, NotFound("Order not found")
		}
		return nil, serverError(err, "failed to load order")
	}

	previous := order.Status
	order.Status = status

	saved, err := s.orders.Save(ctx, order)
	if err != nil {
		return nil, serverError(err, "failed to update order status")
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEventOrderStatusChanged, saved.UserID.String(), map[string]any{
		"order_id": saved.ID.String(),
		"from":     string(previous),
		"to":       string(status),
	})

	s.withOwners(ctx, []*Order{saved})
	return saved, nil
}

// MarkPaid records a confirmed payment on the order and clears the cart of
// the paying user.
func (s *OrderService) MarkPaid(ctx context.Context, userID, orderID string, info map[string]any) (*Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if IsNotFound(err) {
			return nil, NotFound("Order not found")
		}
		return nil, serverError(err, "failed to load order")
	}

	if order.UserID.String() != userID {
		return nil, NotFound("Order not found")
	}

	order.Status = OrderPaid
	order.PaymentStatus = PaymentPaid
	order.PaymentInfo = info

	saved, err := s.orders.Save(ctx, order)
	if err != nil {
		return nil, serverError(err, "failed to update order")
	}

	s.clearCart(ctx, userID)
	recordActivity(ctx, s.activity, s.logger, ActivityEventOrderPaid, userID, map[string]any{
		"order_id": saved.ID.String(),
	})

	return saved, nil
}

// RevenueStats sums paid orders per calendar month over the last six
// months, current month last. Months without revenue report zero.
func (s *OrderService) RevenueStats(ctx context.Context) ([]MonthlyRevenue, error) {
	now := s.now().UTC()
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	start := current.AddDate(0, -(RevenueMonths - 1), 0)

	paid, err := s.orders.List(ctx, OrderFilter{PaymentStatus: PaymentPaid, Since: start})
	if err != nil {
		return nil, serverError(err, "failed to fetch revenue stats")
	}

	totals := make(map[string]float64, RevenueMonths)
	for _, order := range paid {
		created := order.CreatedAt.UTC()
		if created.Before(start) {
			continue
		}
		totals[monthKey(created)] += order.Total
	}

	stats := make([]MonthlyRevenue, 0, RevenueMonths)
	for i := 0; i < RevenueMonths; i++ {
		month := start.AddDate(0, i, 0)
		stats = append(stats, MonthlyRevenue{
			Name:    month.Format("Jan"),
			Revenue: totals[monthKey(month)],
		})
	}

	return stats, nil
}

func monthKey(t time.Time) string {
	return t.Format("2006-01")
}

// clearCart is best effort, the order is already committed
func (s *OrderService) clearCart(ctx context.Context, userID string) {
	if err := s.cart.Clear(ctx, userID); err != nil {
		s.logger.Warn("failed to clear cart of user %s: %v", userID, err)
	}
}

func (s *OrderService) withOwners(ctx context.Context, records []*Order) []*Order {
	owners := map[uuid.UUID]*UserSummary{}
	for _, order := range records {
		summary, ok := owners[order.UserID]
		if !ok {
			if user, err := s.users.FindByID(ctx, order.UserID.String()); err == nil {
				summary = user.Summary()
			} else if !IsNotFound(err) {
				s.logger.Warn("failed to load owner of order %s: %v", order.ID, err)
			}
			owners[order.UserID] = summary
		}
		order.User = summary
	}
	if records == nil {
		return []*Order{}
	}
	return records
}
