package storefront

import (
	"context"
	stderrors "errors"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-storefront/middleware/jwtware"
)

// RouteAuthenticator builds the two guards of the HTTP surface. The access
// guard trusts the role signed into the access token, the admin guard
// re-reads the user record on every request.
type RouteAuthenticator struct {
	tokens       TokenIssuer
	users        UserStore
	Logger       Logger
	ErrorHandler func(c *fiber.Ctx, err error) error
}

func NewRouteAuthenticator(tokens TokenIssuer, users UserStore, logger Logger) *RouteAuthenticator {
	a := &RouteAuthenticator{
		tokens: tokens,
		users:  users,
		Logger: normalizeLogger(logger),
	}
	a.ErrorHandler = a.defaultAuthErrHandler
	return a
}

// ProtectedRoute is the access guard
func (a *RouteAuthenticator) ProtectedRoute() fiber.Handler {
	return jwtware.New(jwtware.Config{
		ErrorHandler:    a.ErrorHandler,
		ContextKey:      IdentityLocalsKey,
		TokenLookup:     "header:" + fiber.HeaderAuthorization,
		AuthScheme:      "Bearer",
		TokenValidator:  &accessTokenValidator{tokens: a.tokens},
		ContextEnricher: enrichIdentityContext,
	})
}

// AdminRoute is the admin guard. It must run after ProtectedRoute.
func (a *RouteAuthenticator) AdminRoute() fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := IdentityFromFiber(c)
		if !ok {
			return ErrMissingToken
		}

		user, err := a.users.FindByID(c.UserContext(), identity.UserID)
		if err != nil {
			if IsNotFound(err) {
				return ErrForbidden
			}
			return serverError(err, "failed to load user")
		}

		if !user.Role.IsAdmin() {
			a.Logger.Warn("admin route %s denied for user %s", c.Path(), identity.UserID)
			return ErrForbidden
		}

		return c.Next()
	}
}

// defaultAuthErrHandler never tells an expired token from a forged one
func (a *RouteAuthenticator) defaultAuthErrHandler(_ *fiber.Ctx, err error) error {
	if stderrors.Is(err, jwtware.ErrJWTMissingOrMalformed) {
		return ErrMissingToken
	}
	return ErrInvalidOrExpiredToken
}

type accessTokenValidator struct {
	tokens TokenIssuer
}

func (v *accessTokenValidator) Validate(raw string) (jwtware.AuthClaims, error) {
	claims, err := v.tokens.Verify(TokenAccess, raw)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func enrichIdentityContext(ctx context.Context, claims jwtware.AuthClaims) context.Context {
	if tc, ok := claims.(*TokenClaims); ok {
		ctx = WithClaimsContext(ctx, tc)
	}
	return WithIdentity(ctx, Identity{
		UserID: claims.UserID(),
		Role:   UserRole(claims.Role()),
	})
}

// NewErrorHandler renders every failure as {"error": message}. Errors that
// carry no kind, and server errors, never expose their message.
func NewErrorHandler(logger Logger, debug ...bool) fiber.ErrorHandler {
	logger = normalizeLogger(logger)
	verbose := len(debug) > 0 && debug[0]

	return func(c *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if stderrors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
		}

		var richErr *errors.Error
		if !errors.As(err, &richErr) || richErr.TextCode == "" {
			logger.Error("unhandled error %s %s: %v", c.Method(), c.Path(), err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": ErrServerError.Message})
		}

		code := richErr.Code
		if code == 0 {
			code = fiber.StatusInternalServerError
		}

		message := richErr.Message
		if code >= fiber.StatusInternalServerError {
			logger.Error("%s %s failed: %v", c.Method(), c.Path(), err)
			if verbose {
				logger.Debug("error details %s", print.MaybePrettyJSON(richErr.Metadata))
			}
			if richErr.TextCode == TextCodeServerError {
				message = ErrServerError.Message
			}
		}

		return c.Status(code).JSON(fiber.Map{"error": message})
	}
}

// NewApp creates a fiber app rendering errors with NewErrorHandler
func NewApp(logger Logger, debug bool) *fiber.App {
	return fiber.New(fiber.Config{
		AppName:               "storefront",
		DisableStartupMessage: true,
		ErrorHandler:          NewErrorHandler(logger, debug),
	})
}

// HTTPServices are the collaborators the routes dispatch to. A nil Checkout
// leaves the payment routes unregistered.
type HTTPServices struct {
	Sessions *SessionController
	Users    UserStore
	Cart     *CartService
	Orders   *OrderService
	Products *ProductService
	Checkout *CheckoutService
	Guard    *RouteAuthenticator
	Logger   Logger
}

// RegisterRoutes mounts every route group on app
func RegisterRoutes(app fiber.Router, svc HTTPServices) {
	if svc.Sessions == nil || svc.Guard == nil {
		panic("STOREFRONT: routes require a SessionController and a RouteAuthenticator")
	}

	logger := normalizeLogger(svc.Logger)
	protected := svc.Guard.ProtectedRoute()
	admin := svc.Guard.AdminRoute()

	RegisterAuthRoutes(app.Group("/auth"), NewAuthController(svc.Sessions, logger))
	RegisterProductRoutes(app.Group("/products"), NewProductController(svc.Products))
	RegisterCartRoutes(app.Group("/cart", protected), NewCartController(svc.Cart))
	RegisterOrderRoutes(app.Group("/orders", protected), NewOrderController(svc.Orders))
	RegisterUserRoutes(app.Group("/users", protected), NewUserController(svc.Users, svc.Orders))
	RegisterAdminRoutes(app.Group("/admin", protected, admin), NewAdminController(svc.Products, svc.Orders, svc.Users))

	if svc.Checkout != nil {
		RegisterPaymentRoutes(app.Group("/payment", protected), NewPaymentController(svc.Checkout))
	} else {
		logger.Warn("payment gateway not configured, /payment routes disabled")
	}
}

// bindJSON decodes the request body into out. An empty body leaves out untouched.
func bindJSON(c *fiber.Ctx, out any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(out); err != nil {
		return BadRequest("Invalid request body")
	}
	return nil
}

// identity returns the caller resolved by the access guard
func identity(c *fiber.Ctx) (Identity, error) {
	id, ok := IdentityFromFiber(c)
	if !ok || id.UserID == "" {
		return Identity{}, ErrMissingToken
	}
	return id, nil
}
