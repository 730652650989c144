package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/goliatone/go-storefront"
	"github.com/goliatone/go-storefront/mailer"
	"github.com/goliatone/go-storefront/payment"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Args:  cobra.NoArgs,
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, *configPath)
		},
	}
}

func serve(ctx context.Context, configPath string) error {
	cfg, logger, be, err := bootstrap(ctx, configPath)
	if err != nil {
		return err
	}
	defer be.close()

	if cfg.Store.AutoMigrate {
		if err := be.migrate(ctx); err != nil {
			return err
		}
	}

	app, err := buildApp(cfg, logger, be.stores)
	if err != nil {
		return err
	}

	listenErr := make(chan error, 1)
	go func() {
		listenErr <- app.Listen(fmt.Sprintf(":%d", cfg.Port))
	}()

	logger.Info("storefront listening on :%d with %s store", cfg.Port, cfg.Store.Driver)

	select {
	case err := <-listenErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Error("forced shutdown: %v", err)
		return err
	}

	logger.Info("server stopped")
	return nil
}

// buildApp wires the services on the stores and mounts every route
func buildApp(cfg *storefront.Config, logger storefront.Logger, stores storefront.Stores) (*fiber.App, error) {
	tokens, err := storefront.NewTokenService(cfg.Tokens(), storefront.WithTokenLogger(logger))
	if err != nil {
		return nil, err
	}

	sender, err := mailer.NewSender(cfg.Mail, logger)
	if err != nil {
		return nil, err
	}

	dispatcher, err := mailer.New(sender, mailer.Config{
		From:        cfg.Mail.From,
		FrontendURL: cfg.FrontendURL,
		Timeout:     cfg.MailTimeout(),
	}, mailer.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	activity := storefront.NewLoggingActivitySink(logger)

	sessions := storefront.NewSessionController(stores.Users(), tokens, dispatcher,
		storefront.WithFrontendURL(cfg.FrontendURL),
		storefront.WithHashidUserIDs(cfg.Auth.UseHashid),
		storefront.WithOperationTimeout(cfg.Auth.OperationTimeout),
		storefront.WithSessionLogger(logger),
		storefront.WithSessionActivitySink(activity),
	)

	orders := storefront.NewOrderService(stores.Orders(), stores.Users(), logger,
		storefront.WithOrderActivitySink(activity),
	)

	var checkout *storefront.CheckoutService
	if cfg.Payment.StripeSecretKey != "" {
		gateway, err := payment.NewStripeGateway(cfg.Payment.StripeSecretKey, payment.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		checkout = storefront.NewCheckoutService(gateway, orders, storefront.CheckoutConfig{
			FrontendURL:      cfg.FrontendURL,
			Currency:         cfg.Payment.Currency,
			ShippingCost:     cfg.Payment.ShippingCost,
			AllowedCountries: cfg.Payment.AllowedCountries,
		}, logger)
	}

	app := storefront.NewApp(logger, cfg.Debug)
	app.Use(recover.New())
	app.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("API is running...")
	})

	storefront.RegisterRoutes(app, storefront.HTTPServices{
		Sessions: sessions,
		Users:    stores.Users(),
		Cart:     storefront.NewCartService(stores.Users(), logger),
		Orders:   orders,
		Products: storefront.NewProductService(stores.Products(), logger, cfg.Debug),
		Checkout: checkout,
		Guard:    storefront.NewRouteAuthenticator(tokens, stores.Users(), logger),
		Logger:   logger,
	})

	return app, nil
}

// corsConfig allows credentials unless every origin is allowed, which the
// cors middleware rejects.
func corsConfig(origins []string) cors.Config {
	allowOrigins := strings.Join(origins, ",")
	if allowOrigins == "" {
		allowOrigins = "*"
	}

	return cors.Config{
		AllowOrigins:     allowOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowCredentials: !strings.Contains(allowOrigins, "*"),
	}
}
