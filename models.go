package storefront

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the identity record. It owns the embedded cart.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id"`
	Name          string     `bun:"name,notnull" json:"name"`
	Email         string     `bun:"email,notnull,unique" json:"email"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	Role          UserRole   `bun:"user_role,notnull" json:"role"`
	Verified      bool       `bun:"verified,notnull" json:"verified"`
	RefreshToken  *string    `bun:"refresh_token,nullzero" json:"-"`
	Cart          []CartItem `bun:"cart,type:jsonb" json:"cart"`
	CreatedAt     time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt     time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`
}

// CartItem is a line of a user's cart.
type CartItem struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Image     string  `json:"image"`
	Quantity  int     `json:"quantity"`
}

// PublicUser is the sanitized user projection returned to clients: no
// password hash and no refresh token.
type PublicUser struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      UserRole   `json:"role"`
	Verified  bool       `json:"verified"`
	Cart      []CartItem `json:"cart"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Sanitize returns the client safe projection of the user.
func (u *User) Sanitize() *PublicUser {
	if u == nil {
		return nil
	}
	return &PublicUser{
		ID:        u.ID.String(),
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		Verified:  u.Verified,
		Cart:      u.CartItems(),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// CartItems returns the cart, never nil.
func (u *User) CartItems() []CartItem {
	if u.Cart == nil {
		return []CartItem{}
	}
	return u.Cart
}

// HasRefreshToken reports whether token is the refresh token currently on record.
func (u *User) HasRefreshToken(token string) bool {
	return u.RefreshToken != nil && token != "" && *u.RefreshToken == token
}

// SetRefreshToken stores the token. An empty token clears it.
func (u *User) SetRefreshToken(token string) {
	if token == "" {
		u.RefreshToken = nil
		return
	}
	u.RefreshToken = &token
}

// Summary is the owner projection embedded in order listings.
func (u *User) Summary() *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{ID: u.ID.String(), Name: u.Name, Email: u.Email}
}

// UserSummary identifies the owner of an order.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// OrderStatus is the fulfilment state of an order
type OrderStatus string

const (
	OrderPending    OrderStatus = "Pending"
	OrderProcessing OrderStatus = "Processing"
	OrderPaid       OrderStatus = "Paid"
	OrderShipped    OrderStatus = "Shipped"
	OrderDelivered  OrderStatus = "Delivered"
	OrderCompleted  OrderStatus = "Completed"
	OrderCancelled  OrderStatus = "Cancelled"
)

// AssignableOrderStatuses are the statuses an admin may set by hand.
var AssignableOrderStatuses = []OrderStatus{
	OrderPending,
	OrderProcessing,
	OrderShipped,
	OrderDelivered,
	OrderCancelled,
}

// IsAssignable reports whether an admin may set the status by hand.
func (s OrderStatus) IsAssignable() bool {
	for _, a := range AssignableOrderStatuses {
		if a == s {
			return true
		}
	}
	return false
}

// PaymentStatus tracks whether the order was charged
type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

// Order is a placed order. Items are a snapshot of the cart at placement.
type Order struct {
	bun.BaseModel `bun:"table:orders,alias:ord"`
	ID            uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id"`
	UserID        uuid.UUID      `bun:"user_id,notnull,type:uuid" json:"userId"`
	User          *UserSummary   `bun:"-" json:"user,omitempty"`
	Items         []OrderItem    `bun:"items,type:jsonb" json:"items"`
	Shipping      Shipping       `bun:"shipping,type:jsonb" json:"shipping"`
	Total         float64        `bun:"total,notnull" json:"total"`
	Status        OrderStatus    `bun:"status,notnull" json:"status"`
	PaymentStatus PaymentStatus  `bun:"payment_status,notnull" json:"paymentStatus"`
	PaymentInfo   map[string]any `bun:"payment_info,type:jsonb" json:"paymentInfo"`
	CreatedAt     time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt     time.Time      `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`
}

// OrderItem is a line of an order.
type OrderItem struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Image     string  `json:"image"`
	Quantity  int     `json:"quantity"`
}

// Subtotal is price times quantity.
func (i OrderItem) Subtotal() float64 {
	return i.Price * float64(i.Quantity)
}

// Shipping is the delivery address captured at checkout.
type Shipping struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zip       string `json:"zip"`
	Country   string `json:"country"`
}

// Value stores the address as a JSON document
func (s Shipping) Value() (driver.Value, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan reads the JSON document written by Value
func (s *Shipping) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s = Shipping{}
		return nil
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("shipping: unsupported source type %T", src)
	}
}

// Product is a catalog entry.
type Product struct {
	bun.BaseModel  `bun:"table:products,alias:prd"`
	ID             uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id"`
	Name           string         `bun:"name,notnull" json:"name"`
	Slug           string         `bun:"slug" json:"slug"`
	Brand          string         `bun:"brand,notnull" json:"brand"`
	Category       string         `bun:"category,notnull" json:"category"`
	Description    string         `bun:"description" json:"description"`
	Price          float64        `bun:"price,notnull" json:"price"`
	Discount       float64        `bun:"discount" json:"discount"`
	Stock          int            `bun:"stock" json:"stock"`
	Rating         float64        `bun:"rating" json:"rating"`
	TopSeller      bool           `bun:"top_seller" json:"topSeller"`
	Image          string         `bun:"image,notnull" json:"image"`
	Images         []string       `bun:"images,type:jsonb" json:"images"`
	Specifications map[string]any `bun:"specifications,type:jsonb" json:"specifications"`
	Reviews        []Review       `bun:"reviews,type:jsonb" json:"reviews"`
	CreatedAt      time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt      time.Time      `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`
}

// Review is a customer review embedded in a product.
type Review struct {
	User      string    `json:"user,omitempty"`
	Comment   string    `json:"comment"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"createdAt"`
}

// MatchesCategory is the case insensitive substring match used by
// category listings.
func (p *Product) MatchesCategory(category string) bool {
	return containsFold(p.Category, category)
}

// MatchesQuery reports whether q matches name, category or brand.
func (p *Product) MatchesQuery(q string) bool {
	return containsFold(p.Name, q) || containsFold(p.Category, q) || containsFold(p.Brand, q)
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
