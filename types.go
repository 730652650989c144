package storefront

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// UserStore is the credential store. Every lifecycle operation reads and
// writes a single user record through it.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	FindByRefreshToken(ctx context.Context, token string) (*User, error)
	Create(ctx context.Context, user *User) (*User, error)
	Save(ctx context.Context, user *User) (*User, error)
	ListByRole(ctx context.Context, role UserRole) ([]*User, error)
}

// ProductFilter narrows product listings. Zero values mean no filter.
type ProductFilter struct {
	// Category matches case insensitive substrings of the category
	Category string
	// Query matches case insensitive substrings of name, category or brand
	Query     string
	TopSeller bool
	Limit     int
}

// ProductStore persists catalog entries. List returns newest first.
type ProductStore interface {
	List(ctx context.Context, filter ProductFilter) ([]*Product, error)
	FindByID(ctx context.Context, id string) (*Product, error)
	Create(ctx context.Context, product *Product) (*Product, error)
	Save(ctx context.Context, product *Product) (*Product, error)
	Delete(ctx context.Context, id string) error
}

// OrderFilter narrows order listings. Zero values mean no filter.
type OrderFilter struct {
	UserID        string
	Status        OrderStatus
	PaymentStatus PaymentStatus
	Since         time.Time
}

// OrderStore persists orders. List returns newest first.
type OrderStore interface {
	Create(ctx context.Context, order *Order) (*Order, error)
	FindByID(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context, filter OrderFilter) ([]*Order, error)
	Save(ctx context.Context, order *Order) (*Order, error)
}

// Stores groups the persistence collaborators a backend provides.
type Stores interface {
	Users() UserStore
	Products() ProductStore
	Orders() OrderStore
}

// EmailDispatcher delivers the transactional emails of the session lifecycle.
// Failures are reported synchronously and never retried.
type EmailDispatcher interface {
	SendVerificationEmail(ctx context.Context, to, token string) error
	SendResetPasswordEmail(ctx context.Context, to, link string) error
}

// PaymentGateway creates and inspects hosted checkout sessions.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (*CheckoutSession, error)
	RetrieveCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error)
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] STOREFRONT "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] STOREFRONT "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] STOREFRONT "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] STOREFRONT "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

func normalizeLogger(l Logger) Logger {
	if l == nil {
		return defLogger{}
	}
	return l
}
