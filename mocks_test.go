package storefront_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/goliatone/go-storefront"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// memoryUsers is an in-memory UserStore. It hands out copies so callers
// only see their changes after Save, as with a real database.
type memoryUsers struct {
	mu      sync.Mutex
	records map[uuid.UUID]*storefront.User
	saveErr error
}

var _ storefront.UserStore = (*memoryUsers)(nil)

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{records: map[uuid.UUID]*storefront.User{}}
}

func cloneUser(u *storefront.User) *storefront.User {
	c := *u
	if u.RefreshToken != nil {
		token := *u.RefreshToken
		c.RefreshToken = &token
	}
	if u.Cart != nil {
		c.Cart = append([]storefront.CartItem{}, u.Cart...)
	}
	return &c
}

func (m *memoryUsers) FindByEmail(_ context.Context, email string) (*storefront.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.records {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, storefront.ErrRecordNotFound
}

func (m *memoryUsers) FindByID(_ context.Context, id string) (*storefront.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, storefront.ErrRecordNotFound
	}
	u, ok := m.records[uid]
	if !ok {
		return nil, storefront.ErrRecordNotFound
	}
	return cloneUser(u), nil
}

func (m *memoryUsers) FindByRefreshToken(_ context.Context, token string) (*storefront.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.records {
		if u.HasRefreshToken(token) {
			return cloneUser(u), nil
		}
	}
	return nil, storefront.ErrRecordNotFound
}

func (m *memoryUsers) Create(_ context.Context, user *storefront.User) (*storefront.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.records {
		if u.Email == user.Email {
			return nil, errors.New("UNIQUE constraint failed: users.email")
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.Role == "" {
		user.Role = storefront.RoleUser
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	m.records[user.ID] = cloneUser(user)
	return cloneUser(user), nil
}

func (m *memoryUsers) Save(_ context.Context, user *storefront.User) (*storefront.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return nil, m.saveErr
	}
	if _, ok := m.records[user.ID]; !ok {
		return nil, storefront.ErrRecordNotFound
	}
	user.UpdatedAt = time.Now().UTC()
	m.records[user.ID] = cloneUser(user)
	return cloneUser(user), nil
}

func (m *memoryUsers) ListByRole(_ context.Context, role storefront.UserRole) ([]*storefront.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*storefront.User{}
	for _, u := range m.records {
		if u.Role == role {
			out = append(out, cloneUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// stored returns the record as persisted, bypassing the copy on read
func (m *memoryUsers) stored(id uuid.UUID) *storefront.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[id]
}

// seed stores a user directly, hashing the password
func (m *memoryUsers) seed(name, email, password string, role storefront.UserRole, verified bool) *storefront.User {
	hash, err := storefront.HashPassword(password)
	if err != nil {
		panic(err)
	}
	u, err := m.Create(context.Background(), &storefront.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Verified:     verified,
		Cart:         []storefront.CartItem{},
	})
	if err != nil {
		panic(err)
	}
	return u
}

// memoryProducts is an in-memory ProductStore, newest first
type memoryProducts struct {
	mu      sync.Mutex
	records []*storefront.Product
}

var _ storefront.ProductStore = (*memoryProducts)(nil)

func (m *memoryProducts) List(_ context.Context, filter storefront.ProductFilter) ([]*storefront.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*storefront.Product{}
	for i := len(m.records) - 1; i >= 0; i-- {
		p := m.records[i]
		if filter.Category != "" && !p.MatchesCategory(filter.Category) {
			continue
		}
		if filter.Query != "" && !p.MatchesQuery(filter.Query) {
			continue
		}
		if filter.TopSeller && !p.TopSeller {
			continue
		}
		c := *p
		out = append(out, &c)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (m *memoryProducts) FindByID(_ context.Context, id string) (*storefront.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.records {
		if p.ID.String() == id {
			c := *p
			return &c, nil
		}
	}
	return nil, storefront.ErrRecordNotFound
}

func (m *memoryProducts) Create(_ context.Context, product *storefront.Product) (*storefront.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	product.ID = uuid.New()
	product.CreatedAt = time.Now().UTC()
	product.UpdatedAt = product.CreatedAt
	c := *product
	m.records = append(m.records, &c)
	return product, nil
}

func (m *memoryProducts) Save(_ context.Context, product *storefront.Product) (*storefront.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.records {
		if p.ID == product.ID {
			product.UpdatedAt = time.Now().UTC()
			c := *product
			m.records[i] = &c
			return product, nil
		}
	}
	return nil, storefront.ErrRecordNotFound
}

func (m *memoryProducts) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.records {
		if p.ID.String() == id {
			m.records = append(m.records[:i], m.records[i+1:]...)
			return nil
		}
	}
	return storefront.ErrRecordNotFound
}

// memoryOrders is an in-memory OrderStore, newest first
type memoryOrders struct {
	mu      sync.Mutex
	records []*storefront.Order
}

var _ storefront.OrderStore = (*memoryOrders)(nil)

func (m *memoryOrders) Create(_ context.Context, order *storefront.Order) (*storefront.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order.ID = uuid.New()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	order.UpdatedAt = order.CreatedAt
	c := *order
	m.records = append(m.records, &c)
	return order, nil
}

func (m *memoryOrders) FindByID(_ context.Context, id string) (*storefront.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.records {
		if o.ID.String() == id {
			c := *o
			return &c, nil
		}
	}
	return nil, storefront.ErrRecordNotFound
}

func (m *memoryOrders) List(_ context.Context, filter storefront.OrderFilter) ([]*storefront.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*storefront.Order{}
	for i := len(m.records) - 1; i >= 0; i-- {
		o := m.records[i]
		if filter.UserID != "" && o.UserID.String() != filter.UserID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if filter.PaymentStatus != "" && o.PaymentStatus != filter.PaymentStatus {
			continue
		}
		if !filter.Since.IsZero() && o.CreatedAt.Before(filter.Since) {
			continue
		}
		c := *o
		out = append(out, &c)
	}
	return out, nil
}

func (m *memoryOrders) Save(_ context.Context, order *storefront.Order) (*storefront.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, o := range m.records {
		if o.ID == order.ID {
			order.UpdatedAt = time.Now().UTC()
			c := *order
			m.records[i] = &c
			return order, nil
		}
	}
	return nil, storefront.ErrRecordNotFound
}

// recordingMailer implements EmailDispatcher and keeps every message
type recordingMailer struct {
	mu            sync.Mutex
	verifications []sentEmail
	resets        []sentEmail
	err           error
}

type sentEmail struct {
	To      string
	Payload string
}

var _ storefront.EmailDispatcher = (*recordingMailer)(nil)

func (r *recordingMailer) SendVerificationEmail(_ context.Context, to, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.verifications = append(r.verifications, sentEmail{To: to, Payload: token})
	return nil
}

func (r *recordingMailer) SendResetPasswordEmail(_ context.Context, to, link string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.resets = append(r.resets, sentEmail{To: to, Payload: link})
	return nil
}

func (r *recordingMailer) lastVerificationToken() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.verifications) == 0 {
		return ""
	}
	return r.verifications[len(r.verifications)-1].Payload
}

func (r *recordingMailer) lastResetLink() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.resets) == 0 {
		return ""
	}
	return r.resets[len(r.resets)-1].Payload
}

// MockPaymentGateway implements storefront.PaymentGateway
type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) CreateCheckoutSession(ctx context.Context, req storefront.CheckoutSessionRequest) (*storefront.CheckoutSession, error) {
	args := m.Called(ctx, req)
	session, _ := args.Get(0).(*storefront.CheckoutSession)
	return session, args.Error(1)
}

func (m *MockPaymentGateway) RetrieveCheckoutSession(ctx context.Context, id string) (*storefront.CheckoutSession, error) {
	args := m.Called(ctx, id)
	session, _ := args.Get(0).(*storefront.CheckoutSession)
	return session, args.Error(1)
}

// recordingSink keeps every activity event
type recordingSink struct {
	mu     sync.Mutex
	events []storefront.ActivityEvent
}

func (s *recordingSink) Record(_ context.Context, event storefront.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) types() []storefront.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]storefront.ActivityEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}
