package storefront

import (
	"github.com/gofiber/fiber/v2"
)

func RegisterAuthRoutes(app fiber.Router, controller *AuthController) {
	app.Post(controller.Routes.Register, controller.Register)
	app.Post(controller.Routes.Login, controller.Login)
	app.Post(controller.Routes.Refresh, controller.Refresh)
	app.Post(controller.Routes.Logout, controller.Logout)
	app.Get(controller.Routes.Verify+"/:token", controller.VerifyEmail)
	app.Post(controller.Routes.ResendVerification, controller.ResendVerification)
	app.Post(controller.Routes.PasswordReset, controller.RequestPasswordReset)
	app.Post(controller.Routes.PasswordResetDo+"/:token", controller.ResetPassword)
}

type AuthControllerRoutes struct {
	Register           string
	Login              string
	Refresh            string
	Logout             string
	Verify             string
	ResendVerification string
	PasswordReset      string
	PasswordResetDo    string
}

// AuthController exposes the session lifecycle over JSON
type AuthController struct {
	Logger   Logger
	Routes   *AuthControllerRoutes
	sessions *SessionController
}

func NewAuthController(sessions *SessionController, logger Logger) *AuthController {
	if sessions == nil {
		panic("Missing SessionController in auth controller...")
	}

	return &AuthController{
		Logger:   normalizeLogger(logger),
		sessions: sessions,
		Routes: &AuthControllerRoutes{
			Register:           "/register",
			Login:              "/login",
			Refresh:            "/refresh",
			Logout:             "/logout",
			Verify:             "/verify",
			ResendVerification: "/resend-verification",
			PasswordReset:      "/request-password-reset",
			PasswordResetDo:    "/reset-password",
		},
	}
}

func (a *AuthController) Register(c *fiber.Ctx) error {
	payload := new(RegisterUserMessage)
	if err := bindJSON(c, payload); err != nil {
		return err
	}

	if _, err := a.sessions.Signup(c.UserContext(), *payload); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message": "User registered successfully. Please check your email to verify your account.",
	})
}

func (a *AuthController) VerifyEmail(c *fiber.Ctx) error {
	already, err := a.sessions.VerifyEmail(c.UserContext(), c.Params("token"))
	if err != nil {
		return err
	}

	if already {
		return c.JSON(fiber.Map{"message": "Email already verified"})
	}
	return c.JSON(fiber.Map{"message": "Email verified successfully"})
}

func (a *AuthController) ResendVerification(c *fiber.Ctx) error {
	payload := new(ResendVerificationMessage)
	if err := bindJSON(c, payload); err != nil {
		return err
	}

	already, err := a.sessions.ResendVerification(c.UserContext(), *payload)
	if err != nil {
		return err
	}

	if already {
		return c.JSON(fiber.Map{"message": "Email already verified"})
	}
	return c.JSON(fiber.Map{"message": "Verification email sent"})
}

func (a *AuthController) Login(c *fiber.Ctx) error {
	payload := new(LoginMessage)
	if err := bindJSON(c, payload); err != nil {
		return err
	}

	result, err := a.sessions.Login(c.UserContext(), *payload)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message":      "Login successful",
		"token":        result.Token,
		"refreshToken": result.RefreshToken,
		"user":         result.User,
	})
}

// RefreshTokenRequest is the body of refresh and logout
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (a *AuthController) Refresh(c *fiber.Ctx) error {
	payload := new(RefreshTokenRequest)
	if err := bindJSON(c, payload); err != nil {
		return err
	}

	token, err := a.sessions.Refresh(c.UserContext(), payload.RefreshToken)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"token": token})
}

func (a *AuthController) Logout(c *fiber.Ctx) error {
	payload := new(RefreshTokenRequest)
	if err := bindJSON(c, payload); err != nil {
		return err
	}

	if err := a.sessions.Logout(c.UserContext(), payload.RefreshToken); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"message": "Logout successful"})
}

func (a *AuthController) RequestPasswordReset(c *fiber.Ctx) error {
	payload := new(InitializePasswordResetMessage)
	if err := bindJSON(c, payload); err != nil {
		return err
	}

	if err := a.sessions.RequestPasswordReset(c.UserContext(), *payload); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"message": "Password reset link sent to your email"})
}

func (a *AuthController) ResetPassword(c *fiber.Ctx) error {
	payload := new(FinalizePasswordResetMessage)
	if err := bindJSON(c, payload); err != nil {
		return err
	}
	payload.Token = c.Params("token")

	if err := a.sessions.ResetPassword(c.UserContext(), *payload); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"message": "Password reset successful"})
}

func RegisterCartRoutes(app fiber.Router, controller *CartController) {
	app.Get("/", controller.Items)
	app.Post("/", controller.Add)
	app.Put("/:productId", controller.Update)
	app.Delete("/:productId", controller.Remove)
	app.Delete("/", controller.Clear)
}

type CartController struct {
	cart *CartService
}

func NewCartController(cart *CartService) *CartController {
	if cart == nil {
		panic("Missing CartService in cart controller...")
	}
	return &CartController{cart: cart}
}

func (a *CartController) Items(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}

	items, err := a.cart.Items(c.UserContext(), id.UserID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"items": items})
}

func (a *CartController) Add(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}

	payload := new(AddToCartMessage)
	if err := bindJSON(c, payload); err != nil {
		return err
	}

	items, err := a.cart.Add(c.UserContext(), id.UserID, *payload)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"items": items})
}

// UpdateCartItemRequest is the body of a cart quantity change
type UpdateCartItemRequest struct {
	Qty int `json:"qty"`
}

func (a *CartController) Update(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}

	payload := new(UpdateCartItemRequest)
	if err := bindJSON(c, payload); err != nil {
		return err
	}

	items, err := a.cart.Update(c.UserContext(), id.UserID, c.Params("productId"), payload.Qty)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"items": items})
}

func (a *CartController) Remove(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}

	items, err := a.cart.Remove(c.UserContext(), id.UserID, c.Params("productId"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"items": items})
}

func (a *CartController) Clear(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}

	if err := a.cart.Clear(c.UserContext(), id.UserID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"items": []CartItem{}})
}

func RegisterOrderRoutes(app fiber.Router, controller *OrderController) {
	app.Post("/", controller.Place)
	app.Get("/my", controller.Mine)
	app.Get("/:id", controller.Get)
}

type OrderController struct {
	orders *OrderService
}

func NewOrderController(orders *OrderService) *OrderController {
	if orders == nil {
		panic("Missing OrderService in order controller...")
	}
	return &OrderController{orders: orders}
}

func (a *OrderController) Place(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}

	payload := new(PlaceOrderMessage)
	if err := bindJSON(c, payload); err != nil {
		return err
	}

	order, err := a.orders.Place(c.UserContext(), id.UserID, *payload)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Order created successfully",
		"order":   order,
	})
}

func (a *OrderController) Mine(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}

	orders, err := a.orders.Mine(c.UserContext(), id.UserID, c.Query("status"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "orders": orders})
}

func (a *OrderController) Get(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}

	order, err := a.orders.Get(c.UserContext(), id.UserID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "order": order})
}

func RegisterUserRoutes(app fiber.Router, controller *UserController) {
	app.Get("/profile", controller.Profile)
	app.Get("/my-orders", controller.Orders)
}

type UserController struct {
	users  UserStore
	orders *OrderService
}

func NewUserController(users UserStore, orders *OrderService) *UserController {
	if users == nil || orders == nil {
		panic("Missing UserStore or OrderService in user controller...")
	}
	return &UserController{users: users, orders: orders}
}

func (a *UserController) Profile(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}

	user, err := a.users.FindByID(c.UserContext(), id.UserID)
	if err != nil {
		if IsNotFound(err) {
			return NotFound("User not found")
		}
		return serverError(err, "failed to load user")
	}

	return c.JSON(fiber.Map{"user": user.Sanitize()})
}

func (a *UserController) Orders(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}

	orders, err := a.orders.Mine(c.UserContext(), id.UserID, "")
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"orders": orders})
}

func RegisterProductRoutes(app fiber.Router, controller *ProductController) {
	app.Get("/", controller.List)
	app.Get("/search", controller.Search)
	app.Get("/top", controller.TopSellers)
	app.Get("/category/:name", controller.ByCategory)
	app.Get("/:id", controller.Get)
}

// ProductController is the public catalog. It answers with bare
// products and product lists.
type ProductController struct {
	products *ProductService
}

func NewProductController(products *ProductService) *ProductController {
	if products == nil {
		panic("Missing ProductService in product controller...")
	}
	return &ProductController{products: products}
}

func (a *ProductController) List(c *fiber.Ctx) error {
	records, err := a.products.List(c.UserContext(), c.Query("category"))
	if err != nil {
		return err
	}
	return c.JSON(records)
}

func (a *ProductController) Search(c *fiber.Ctx) error {
	records, err := a.products.Search(c.UserContext(), c.Query("q"))
	if err != nil {
		return err
	}
	return c.JSON(records)
}

func (a *ProductController) TopSellers(c *fiber.Ctx) error {
	records, err := a.products.TopSellers(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(records)
}

func (a *ProductController) ByCategory(c *fiber.Ctx) error {
	records, err := a.products.ByCategory(c.UserContext(), c.Params("name"))
	if err != nil {
		return err
	}
	return c.JSON(records)
}

func (a *ProductController) Get(c *fiber.Ctx) error {
	product, err := a.products.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(product)
}

func RegisterAdminRoutes(app fiber.Router, controller *AdminController) {
	app.Post("/products", controller.CreateProduct)
	app.Put("/products/:id", controller.UpdateProduct)
	app.Delete("/products/:id", controller.DeleteProduct)
	app.Get("/products", controller.ListProducts)
	app.Get("/products/:id", controller.GetProduct)

	app.Get("/users", controller.ListUsers)

	app.Get("/orders", controller.ListOrders)
	app.Put("/orders/:id/status", controller.UpdateOrderStatus)

	app.Get("/revenue-stats", controller.RevenueStats)
}

type AdminController struct {
	products *ProductService
	orders   *OrderService
	users    UserStore
}

func NewAdminController(products *ProductService, orders *OrderService, users UserStore) *AdminController {
	if products == nil || orders == nil || users == nil {
		panic("Missing collaborators in admin controller...")
	}
	return &AdminController{products: products, orders: orders, users: users}
}

func (a *AdminController) CreateProduct(c *fiber.Ctx) error {
	payload := new(Product)
	if err := bindJSON(c, payload); err != nil {
		return err
	}

	product, err := a.products.Create(c.UserContext(), payload)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Product created successfully",
		"product": product,
	})
}

func (a *AdminController) UpdateProduct(c *fiber.Ctx) error {
	payload := new(Product)
	if err := bindJSON(c, payload); err != nil {
		return err
	}

	product, err := a.products.Update(c.UserContext(), c.Params("id"), payload)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Product updated",
		"product": product,
	})
}

func (a *AdminController) DeleteProduct(c *fiber.Ctx) error {
	if err := a.products.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Product deleted"})
}

func (a *AdminController) ListProducts(c *fiber.Ctx) error {
	records, err := a.products.List(c.UserContext(), "")
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "products": records})
}

func (a *AdminController) GetProduct(c *fiber.Ctx) error {
	product, err := a.products.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "product": product})
}

func (a *AdminController) ListUsers(c *fiber.Ctx) error {
	records, err := a.users.ListByRole(c.UserContext(), RoleUser)
	if err != nil {
		return serverError(err, "failed to list users")
	}

	users := make([]*PublicUser, 0, len(records))
	for _, u := range records {
		users = append(users, u.Sanitize())
	}
	return c.JSON(fiber.Map{"success": true, "users": users})
}

func (a *AdminController) ListOrders(c *fiber.Ctx) error {
	orders, err := a.orders.All(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "orders": orders})
}

// UpdateOrderStatusRequest is the body of an admin status change
type UpdateOrderStatusRequest struct {
	Status OrderStatus `json:"status"`
}

func (a *AdminController) UpdateOrderStatus(c *fiber.Ctx) error {
	payload := new(UpdateOrderStatusRequest)
	if err := bindJSON(c, payload); err != nil {
		return err
	}

	order, err := a.orders.UpdateStatus(c.UserContext(), c.Params("id"), payload.Status)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Order status updated to " + string(order.Status),
		"order":   order,
	})
}

func (a *AdminController) RevenueStats(c *fiber.Ctx) error {
	stats, err := a.orders.RevenueStats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": stats})
}

func RegisterPaymentRoutes(app fiber.Router, controller *PaymentController) {
	app.Post("/create-checkout-session", controller.CreateCheckoutSession)
	app.Post("/verify-session", controller.VerifySession)
}

type PaymentController struct {
	checkout *CheckoutService
}

func NewPaymentController(checkout *CheckoutService) *PaymentController {
	if checkout == nil {
		panic("Missing CheckoutService in payment controller...")
	}
	return &PaymentController{checkout: checkout}
}

func (a *PaymentController) CreateCheckoutSession(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}

	payload := new(CreateCheckoutMessage)
	if err := bindJSON(c, payload); err != nil {
		return err
	}

	url, _, err := a.checkout.CreateSession(c.UserContext(), id.UserID, *payload)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"url": url})
}

func (a *PaymentController) VerifySession(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}

	payload := new(VerifyCheckoutMessage)
	if err := bindJSON(c, payload); err != nil {
		return err
	}

	order, err := a.checkout.VerifySession(c.UserContext(), id.UserID, *payload)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Payment verified and order updated",
		"order":   order,
	})
}
