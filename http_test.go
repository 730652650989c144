package storefront_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-storefront"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type apiHarness struct {
	*sessionHarness
	products *memoryProducts
	orders   *memoryOrders
	gateway  *MockPaymentGateway
	app      *fiber.App
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()

	h := &apiHarness{
		sessionHarness: newSessionHarness(t),
		products:       &memoryProducts{},
		orders:         &memoryOrders{},
		gateway:        new(MockPaymentGateway),
	}

	logger := nopLogger{}
	orderService := storefront.NewOrderService(h.orders, h.users, logger)

	h.app = storefront.NewApp(logger, false)
	storefront.RegisterRoutes(h.app, storefront.HTTPServices{
		Sessions: h.sessions,
		Users:    h.users,
		Cart:     storefront.NewCartService(h.users, logger),
		Orders:   orderService,
		Products: storefront.NewProductService(h.products, logger, false),
		Checkout: storefront.NewCheckoutService(h.gateway, orderService, storefront.CheckoutConfig{
			FrontendURL:  testFrontendURL,
			ShippingCost: 5,
		}, logger),
		Guard:  storefront.NewRouteAuthenticator(h.tokens, h.users, logger),
		Logger: logger,
	})

	return h
}

// do sends a JSON request and returns the status and the raw body
func (h *apiHarness) do(t *testing.T, method, path string, body any, token string) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func (h *apiHarness) doJSON(t *testing.T, method, path string, body any, token string) (int, map[string]any) {
	t.Helper()
	status, raw := h.do(t, method, path, body, token)
	out := map[string]any{}
	require.NoError(t, json.Unmarshal(raw, &out), "body: %s", raw)
	return status, out
}

// login seeds a verified user and returns its access token
func (h *apiHarness) login(t *testing.T, email string, role storefront.UserRole) (*storefront.User, string) {
	t.Helper()
	user := h.users.seed("Test", email, "secret123", role, true)
	result, err := h.sessions.Login(context.Background(), storefront.LoginMessage{Email: email, Password: "secret123"})
	require.NoError(t, err)
	return user, result.Token
}

func TestAuthRoutes_Lifecycle(t *testing.T) {
	h := newAPIHarness(t)

	status, body := h.doJSON(t, fiber.MethodPost, "/auth/register", fiber.Map{
		"name": "Ann", "email": "ann@x.com", "password": "secret123",
	}, "")
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, "User registered successfully. Please check your email to verify your account.", body["message"])

	status, body = h.doJSON(t, fiber.MethodPost, "/auth/login", fiber.Map{"email": "ann@x.com", "password": "secret123"}, "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "Please verify your email before logging in", body["error"])

	status, body = h.doJSON(t, fiber.MethodGet, "/auth/verify/"+h.mailer.lastVerificationToken(), nil, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Email verified successfully", body["message"])

	_, body = h.doJSON(t, fiber.MethodGet, "/auth/verify/"+h.mailer.lastVerificationToken(), nil, "")
	assert.Equal(t, "Email already verified", body["message"])

	status, body = h.doJSON(t, fiber.MethodPost, "/auth/login", fiber.Map{"email": "ann@x.com", "password": "secret123"}, "")
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, "Login successful", body["message"])
	assert.NotEmpty(t, body["token"])
	refreshToken, _ := body["refreshToken"].(string)
	require.NotEmpty(t, refreshToken)

	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ann@x.com", user["email"])
	assert.Equal(t, "user", user["role"])
	assert.NotContains(t, user, "passwordHash")
	assert.NotContains(t, user, "password_hash")
	assert.NotContains(t, user, "refreshToken")

	status, body = h.doJSON(t, fiber.MethodPost, "/auth/refresh", fiber.Map{"refreshToken": refreshToken}, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.NotEmpty(t, body["token"])

	status, body = h.doJSON(t, fiber.MethodPost, "/auth/logout", fiber.Map{"refreshToken": refreshToken}, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Logout successful", body["message"])

	status, body = h.doJSON(t, fiber.MethodPost, "/auth/refresh", fiber.Map{"refreshToken": refreshToken}, "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "Invalid or expired token", body["error"])

	status, body = h.doJSON(t, fiber.MethodPost, "/auth/logout", fiber.Map{"refreshToken": refreshToken}, "")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Invalid refresh token", body["error"])
}

func TestAuthRoutes_Errors(t *testing.T) {
	h := newAPIHarness(t)
	h.users.seed("Ann", "ann@x.com", "secret123", storefront.RoleUser, true)

	tests := []struct {
		name    string
		method  string
		path    string
		body    any
		status  int
		message string
	}{
		{
			name:   "register validation",
			method: fiber.MethodPost, path: "/auth/register",
			body:   fiber.Map{"name": "Bob", "email": "bob", "password": "secret123"},
			status: fiber.StatusBadRequest,
		},
		{
			name:   "register duplicate",
			method: fiber.MethodPost, path: "/auth/register",
			body:   fiber.Map{"name": "Ann", "email": "ann@x.com", "password": "secret123"},
			status: fiber.StatusBadRequest, message: "Email already registered",
		},
		{
			name:   "login wrong password",
			method: fiber.MethodPost, path: "/auth/login",
			body:   fiber.Map{"email": "ann@x.com", "password": "nope-nope"},
			status: fiber.StatusUnauthorized, message: "Invalid credentials",
		},
		{
			name:   "login unknown email",
			method: fiber.MethodPost, path: "/auth/login",
			body:   fiber.Map{"email": "bob@x.com", "password": "secret123"},
			status: fiber.StatusUnauthorized, message: "Invalid credentials",
		},
		{
			name:   "refresh without body",
			method: fiber.MethodPost, path: "/auth/refresh",
			status: fiber.StatusBadRequest, message: "Refresh token required",
		},
		{
			name:   "logout without token",
			method: fiber.MethodPost, path: "/auth/logout",
			body:   fiber.Map{},
			status: fiber.StatusBadRequest, message: "Refresh token required",
		},
		{
			name:   "verify garbage",
			method: fiber.MethodGet, path: "/auth/verify/garbage",
			status: fiber.StatusBadRequest, message: "Invalid or expired token",
		},
		{
			name:   "reset request unknown email",
			method: fiber.MethodPost, path: "/auth/request-password-reset",
			body:   fiber.Map{"email": "bob@x.com"},
			status: fiber.StatusBadRequest, message: "Email not registered",
		},
		{
			name:   "reset with garbage token",
			method: fiber.MethodPost, path: "/auth/reset-password/garbage",
			body:   fiber.Map{"password": "brand-new-pass"},
			status: fiber.StatusBadRequest, message: "Invalid or expired token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := h.doJSON(t, tt.method, tt.path, tt.body, "")
			assert.Equal(t, tt.status, status)
			require.Contains(t, body, "error")
			if tt.message != "" {
				assert.Equal(t, tt.message, body["error"])
			}
		})
	}
}

func TestAuthRoutes_RegisterDispatchFailure(t *testing.T) {
	h := newAPIHarness(t)
	h.mailer.err = errors.New("smtp down")

	status, body := h.doJSON(t, fiber.MethodPost, "/auth/register", fiber.Map{
		"name": "Ann", "email": "ann@x.com", "password": "secret123",
	}, "")
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, "User created, but failed to send verification email. Try again later.", body["error"])

	h.mailer.err = nil
	status, body = h.doJSON(t, fiber.MethodPost, "/auth/resend-verification", fiber.Map{"email": "ann@x.com"}, "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Verification email sent", body["message"])
}

func TestAuthRoutes_PasswordReset(t *testing.T) {
	h := newAPIHarness(t)
	h.users.seed("Ann", "ann@x.com", "secret123", storefront.RoleUser, true)

	status, body := h.doJSON(t, fiber.MethodPost, "/auth/request-password-reset", fiber.Map{"email": "ann@x.com"}, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Password reset link sent to your email", body["message"])

	token := resetTokenFromLink(t, h.mailer.lastResetLink())

	status, body = h.doJSON(t, fiber.MethodPost, "/auth/reset-password/"+token, fiber.Map{"password": "brand-new-pass"}, "")
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, "Password reset successful", body["message"])

	status, _ = h.doJSON(t, fiber.MethodPost, "/auth/login", fiber.Map{"email": "ann@x.com", "password": "brand-new-pass"}, "")
	assert.Equal(t, fiber.StatusOK, status)
}

func TestAccessGuard(t *testing.T) {
	h := newAPIHarness(t)
	user, token := h.login(t, "ann@x.com", storefront.RoleUser)

	status, body := h.doJSON(t, fiber.MethodGet, "/cart", nil, "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "No token provided", body["error"])

	status, body = h.doJSON(t, fiber.MethodGet, "/cart", nil, "garbage")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "Invalid or expired token", body["error"])

	refresh, err := h.tokens.Issue(storefront.TokenRefresh, storefront.TokenPayload{UserID: user.ID.String(), Role: user.Role})
	require.NoError(t, err)
	status, _ = h.doJSON(t, fiber.MethodGet, "/cart", nil, refresh)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, body = h.doJSON(t, fiber.MethodGet, "/cart", nil, token)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, []any{}, body["items"])
}

func TestAdminGuard_UsesLiveRole(t *testing.T) {
	h := newAPIHarness(t)
	user, token := h.login(t, "ann@x.com", storefront.RoleUser)

	status, body := h.doJSON(t, fiber.MethodGet, "/admin/users", nil, token)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "Access denied. Admins only.", body["error"])

	// a token claiming admin does not help while the record says user
	forged, err := h.tokens.Issue(storefront.TokenAccess, storefront.TokenPayload{UserID: user.ID.String(), Role: storefront.RoleAdmin})
	require.NoError(t, err)
	status, _ = h.doJSON(t, fiber.MethodGet, "/admin/users", nil, forged)
	assert.Equal(t, fiber.StatusForbidden, status)

	// promotion takes effect without a new token
	promoted := cloneUser(h.users.stored(user.ID))
	promoted.Role = storefront.RoleAdmin
	_, err = h.users.Save(context.Background(), promoted)
	require.NoError(t, err)

	status, body = h.doJSON(t, fiber.MethodGet, "/admin/users", nil, token)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["success"])
}

func TestCartRoutes(t *testing.T) {
	h := newAPIHarness(t)
	_, token := h.login(t, "ann@x.com", storefront.RoleUser)

	product := fiber.Map{"id": "p1", "name": "Headphones", "price": 19.99, "image": "h.png"}

	status, body := h.doJSON(t, fiber.MethodPost, "/cart", fiber.Map{"product": product}, token)
	require.Equal(t, fiber.StatusOK, status, body)
	items := body["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, float64(1), items[0].(map[string]any)["quantity"])

	_, body = h.doJSON(t, fiber.MethodPost, "/cart", fiber.Map{"product": product, "qty": 2}, token)
	items = body["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, float64(3), items[0].(map[string]any)["quantity"])

	status, body = h.doJSON(t, fiber.MethodPost, "/cart", fiber.Map{"product": fiber.Map{"name": "no id"}}, token)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Invalid product payload", body["error"])

	_, body = h.doJSON(t, fiber.MethodPut, "/cart/p1", fiber.Map{"qty": 0}, token)
	items = body["items"].([]any)
	assert.Equal(t, float64(1), items[0].(map[string]any)["quantity"])

	status, body = h.doJSON(t, fiber.MethodPut, "/cart/missing", fiber.Map{"qty": 2}, token)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "Item not found in cart", body["error"])

	_, body = h.doJSON(t, fiber.MethodPost, "/cart", fiber.Map{"product": fiber.Map{"id": "p2", "name": "Case", "price": 5}}, token)
	assert.Len(t, body["items"], 2)

	_, body = h.doJSON(t, fiber.MethodDelete, "/cart/p1", nil, token)
	assert.Len(t, body["items"], 1)

	status, body = h.doJSON(t, fiber.MethodDelete, "/cart", nil, token)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, []any{}, body["items"])
}

func TestOrderRoutes(t *testing.T) {
	h := newAPIHarness(t)
	ann, token := h.login(t, "ann@x.com", storefront.RoleUser)
	_, bobToken := h.login(t, "bob@x.com", storefront.RoleUser)

	_, _ = h.doJSON(t, fiber.MethodPost, "/cart", fiber.Map{"product": fiber.Map{"id": "p1", "name": "Headphones", "price": 20}}, token)

	status, body := h.doJSON(t, fiber.MethodPost, "/orders", fiber.Map{"items": []any{}}, token)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "No items provided", body["error"])

	status, body = h.doJSON(t, fiber.MethodPost, "/orders", fiber.Map{
		"items":    []fiber.Map{{"productId": "p1", "name": "Headphones", "price": 20, "quantity": 1}},
		"shipping": fiber.Map{"firstName": "Ann", "city": "Lahore"},
		"total":    25,
	}, token)
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Order created successfully", body["message"])
	order := body["order"].(map[string]any)
	assert.Equal(t, "Pending", order["status"])
	assert.Equal(t, "unpaid", order["paymentStatus"])
	orderID := order["id"].(string)

	assert.Empty(t, h.users.stored(ann.ID).Cart)

	_, body = h.doJSON(t, fiber.MethodGet, "/orders/my", nil, token)
	assert.Len(t, body["orders"], 1)

	_, body = h.doJSON(t, fiber.MethodGet, "/orders/my?status=Shipped", nil, token)
	assert.Len(t, body["orders"], 0)

	_, body = h.doJSON(t, fiber.MethodGet, "/orders/my?status=All", nil, token)
	assert.Len(t, body["orders"], 1)

	status, body = h.doJSON(t, fiber.MethodGet, "/orders/"+orderID, nil, token)
	assert.Equal(t, fiber.StatusOK, status)
	owner := body["order"].(map[string]any)["user"].(map[string]any)
	assert.Equal(t, "ann@x.com", owner["email"])

	status, body = h.doJSON(t, fiber.MethodGet, "/orders/"+orderID, nil, bobToken)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "Order not found", body["error"])

	status, body = h.doJSON(t, fiber.MethodGet, "/users/my-orders", nil, token)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["orders"], 1)

	status, body = h.doJSON(t, fiber.MethodGet, "/users/profile", nil, token)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ann@x.com", body["user"].(map[string]any)["email"])
}

func seedProduct(t *testing.T, h *apiHarness, name, category, brand string, topSeller bool) *storefront.Product {
	t.Helper()
	p, err := h.products.Create(context.Background(), &storefront.Product{
		Name: name, Category: category, Brand: brand, Image: "img.png", Price: 10, TopSeller: topSeller,
	})
	require.NoError(t, err)
	return p
}

func TestProductRoutes(t *testing.T) {
	h := newAPIHarness(t)
	headphones := seedProduct(t, h, "Studio Headphones", "Audio", "Sonic", true)
	seedProduct(t, h, "Phone Case", "Accessories", "Shell", false)

	decodeList := func(raw []byte) []map[string]any {
		var out []map[string]any
		require.NoError(t, json.Unmarshal(raw, &out))
		return out
	}

	status, raw := h.do(t, fiber.MethodGet, "/products", nil, "")
	require.Equal(t, fiber.StatusOK, status)
	list := decodeList(raw)
	require.Len(t, list, 2)
	assert.Equal(t, "Phone Case", list[0]["name"])

	_, raw = h.do(t, fiber.MethodGet, "/products?category=audio", nil, "")
	assert.Len(t, decodeList(raw), 1)

	_, raw = h.do(t, fiber.MethodGet, "/products/search?q=sonic", nil, "")
	assert.Len(t, decodeList(raw), 1)

	status, body := h.doJSON(t, fiber.MethodGet, "/products/search", nil, "")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Search query is required", body["error"])

	_, raw = h.do(t, fiber.MethodGet, "/products/top", nil, "")
	assert.Len(t, decodeList(raw), 1)

	_, raw = h.do(t, fiber.MethodGet, "/products/category/access", nil, "")
	assert.Len(t, decodeList(raw), 1)

	status, body = h.doJSON(t, fiber.MethodGet, "/products/category/garden", nil, "")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "No products found in this category", body["error"])

	status, body = h.doJSON(t, fiber.MethodGet, "/products/"+headphones.ID.String(), nil, "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Studio Headphones", body["name"])

	status, body = h.doJSON(t, fiber.MethodGet, "/products/not-a-product", nil, "")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "Product not found", body["error"])
}

func TestAdminRoutes(t *testing.T) {
	h := newAPIHarness(t)
	_, adminToken := h.login(t, "admin@x.com", storefront.RoleAdmin)
	_, userToken := h.login(t, "ann@x.com", storefront.RoleUser)

	status, body := h.doJSON(t, fiber.MethodPost, "/admin/products", fiber.Map{"name": "No brand"}, adminToken)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, body, "error")

	status, body = h.doJSON(t, fiber.MethodPost, "/admin/products", fiber.Map{
		"name": "Studio Headphones", "brand": "Sonic", "category": "Audio", "image": "h.png", "price": 99.5,
	}, adminToken)
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, "Product created successfully", body["message"])
	product := body["product"].(map[string]any)
	assert.Equal(t, "studio-headphones", product["slug"])
	productID := product["id"].(string)

	status, body = h.doJSON(t, fiber.MethodPut, "/admin/products/"+productID, fiber.Map{
		"name": "Studio Headphones II", "brand": "Sonic", "category": "Audio", "image": "h.png", "price": 120,
	}, adminToken)
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, "Product updated", body["message"])

	_, body = h.doJSON(t, fiber.MethodGet, "/admin/products", nil, adminToken)
	assert.Len(t, body["products"], 1)

	_, body = h.doJSON(t, fiber.MethodGet, "/admin/users", nil, adminToken)
	users := body["users"].([]any)
	require.Len(t, users, 1)
	assert.Equal(t, "ann@x.com", users[0].(map[string]any)["email"])

	_, body = h.doJSON(t, fiber.MethodPost, "/orders", fiber.Map{
		"items": []fiber.Map{{"productId": productID, "name": "Studio Headphones II", "price": 120, "quantity": 1}},
		"total": 125,
	}, userToken)
	orderID := body["order"].(map[string]any)["id"].(string)

	status, body = h.doJSON(t, fiber.MethodPut, "/admin/orders/"+orderID+"/status", fiber.Map{"status": "Paid"}, adminToken)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Invalid order status", body["error"])

	status, body = h.doJSON(t, fiber.MethodPut, "/admin/orders/"+orderID+"/status", fiber.Map{"status": "Shipped"}, adminToken)
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, "Order status updated to Shipped", body["message"])

	_, body = h.doJSON(t, fiber.MethodGet, "/admin/orders", nil, adminToken)
	orders := body["orders"].([]any)
	require.Len(t, orders, 1)
	assert.Equal(t, "ann@x.com", orders[0].(map[string]any)["user"].(map[string]any)["email"])

	status, body = h.doJSON(t, fiber.MethodGet, "/admin/revenue-stats", nil, adminToken)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["data"], storefront.RevenueMonths)

	status, body = h.doJSON(t, fiber.MethodDelete, "/admin/products/"+productID, nil, adminToken)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Product deleted", body["message"])

	status, _ = h.doJSON(t, fiber.MethodDelete, "/admin/products/"+productID, nil, adminToken)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestPaymentRoutes(t *testing.T) {
	h := newAPIHarness(t)
	ann, token := h.login(t, "ann@x.com", storefront.RoleUser)

	h.gateway.On("CreateCheckoutSession", mock.Anything, mock.AnythingOfType("storefront.CheckoutSessionRequest")).
		Return(&storefront.CheckoutSession{ID: "cs_1", URL: "https://checkout.example/cs_1"}, nil).Once()

	status, body := h.doJSON(t, fiber.MethodPost, "/payment/create-checkout-session", fiber.Map{
		"items":    []fiber.Map{{"productId": "p1", "name": "Headphones", "price": 19.99, "quantity": 2}},
		"shipping": fiber.Map{"email": "ann@x.com"},
	}, token)
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, "https://checkout.example/cs_1", body["url"])

	placed, err := h.orders.List(context.Background(), storefront.OrderFilter{UserID: ann.ID.String()})
	require.NoError(t, err)
	require.Len(t, placed, 1)
	assert.InDelta(t, 44.98, placed[0].Total, 0.001)
	orderID := placed[0].ID.String()

	status, body = h.doJSON(t, fiber.MethodPost, "/payment/verify-session", fiber.Map{"sessionId": "cs_1"}, token)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Session ID and Order ID required", body["error"])

	h.gateway.On("RetrieveCheckoutSession", mock.Anything, "cs_unpaid").
		Return(&storefront.CheckoutSession{ID: "cs_unpaid", PaymentStatus: "unpaid"}, nil).Once()
	status, body = h.doJSON(t, fiber.MethodPost, "/payment/verify-session", fiber.Map{"sessionId": "cs_unpaid", "orderId": orderID}, token)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Payment not completed", body["error"])

	_, bobToken := h.login(t, "bob@x.com", storefront.RoleUser)
	h.gateway.On("RetrieveCheckoutSession", mock.Anything, "cs_bob").
		Return(&storefront.CheckoutSession{
			ID:            "cs_bob",
			PaymentStatus: "paid",
			Metadata:      map[string]string{"orderId": orderID},
		}, nil).Once()
	status, body = h.doJSON(t, fiber.MethodPost, "/payment/verify-session", fiber.Map{"sessionId": "cs_bob", "orderId": orderID}, bobToken)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "Order not found", body["error"])

	h.gateway.On("RetrieveCheckoutSession", mock.Anything, "cs_1").
		Return(&storefront.CheckoutSession{
			ID:            "cs_1",
			PaymentStatus: "paid",
			PaymentIntent: "pi_1",
			AmountTotal:   4998,
			Metadata:      map[string]string{"orderId": orderID},
		}, nil).Once()
	status, body = h.doJSON(t, fiber.MethodPost, "/payment/verify-session", fiber.Map{"sessionId": "cs_1", "orderId": orderID}, token)
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, "Payment verified and order updated", body["message"])

	order := body["order"].(map[string]any)
	assert.Equal(t, "Paid", order["status"])
	assert.Equal(t, "paid", order["paymentStatus"])
	assert.Equal(t, "pi_1", order["paymentInfo"].(map[string]any)["payment_intent"])

	h.gateway.AssertExpectations(t)
}

func TestRegisterRoutes_WithoutCheckout(t *testing.T) {
	h := newSessionHarness(t)
	logger := nopLogger{}
	orders := storefront.NewOrderService(&memoryOrders{}, h.users, logger)

	app := storefront.NewApp(logger, false)
	storefront.RegisterRoutes(app, storefront.HTTPServices{
		Sessions: h.sessions,
		Users:    h.users,
		Cart:     storefront.NewCartService(h.users, logger),
		Orders:   orders,
		Products: storefront.NewProductService(&memoryProducts{}, logger, false),
		Guard:    storefront.NewRouteAuthenticator(h.tokens, h.users, logger),
		Logger:   logger,
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/payment/verify-session", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestErrorHandler(t *testing.T) {
	app := storefront.NewApp(nopLogger{}, false)
	app.Get("/plain", func(c *fiber.Ctx) error { return errors.New("pq: connection reset") })
	app.Get("/server", func(c *fiber.Ctx) error {
		_, err := storefront.NewCartService(&failingUsers{}, nopLogger{}).Items(c.UserContext(), "u1")
		return err
	})
	app.Get("/fiber", func(c *fiber.Ctx) error { return fiber.ErrMethodNotAllowed })
	app.Get("/kind", func(c *fiber.Ctx) error { return storefront.NotFound("Widget not found") })

	tests := []struct {
		path    string
		status  int
		message string
	}{
		{path: "/plain", status: fiber.StatusInternalServerError, message: "Server error"},
		{path: "/server", status: fiber.StatusInternalServerError, message: "Server error"},
		{path: "/fiber", status: fiber.StatusMethodNotAllowed, message: "Method Not Allowed"},
		{path: "/kind", status: fiber.StatusNotFound, message: "Widget not found"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, tt.path, nil), -1)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)

			out := map[string]any{}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
			assert.Equal(t, tt.message, out["error"])
		})
	}
}

// failingUsers fails every lookup with a driver error
type failingUsers struct {
	memoryUsers
}

func (f *failingUsers) FindByID(context.Context, string) (*storefront.User, error) {
	return nil, errors.New("driver: bad connection")
}
