// Package mongodb implements the storefront stores on a MongoDB database.
package mongodb

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-storefront"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection    = "users"
	productsCollection = "products"
	ordersCollection   = "orders"

	connectTimeout = 10 * time.Second
)

// Store groups the collections of one database
type Store struct {
	client   *mongo.Client
	db       *mongo.Database
	users    *Users
	products *Products
	orders   *Orders
	logger   storefront.Logger
}

var _ storefront.Stores = (*Store)(nil)

// Open connects to the database named in the configuration and checks the
// connection.
func Open(ctx context.Context, cfg storefront.StoreConfig, logger storefront.Logger) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryExternal, "failed to connect to mongodb")
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, goerrors.Wrap(err, goerrors.CategoryExternal, "failed to ping mongodb")
	}

	return New(client, cfg.MongoDatabase, logger), nil
}

// New builds the stores on an already connected client
func New(client *mongo.Client, database string, logger storefront.Logger) *Store {
	db := client.Database(database)
	return &Store{
		client:   client,
		db:       db,
		users:    &Users{collection: db.Collection(usersCollection)},
		products: &Products{collection: db.Collection(productsCollection)},
		orders:   &Orders{collection: db.Collection(ordersCollection)},
		logger:   logger,
	}
}

// Migrate creates the indexes the stores rely on. The unique email index
// is what rejects concurrent signups of the same address.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("users_email_idx")},
			{Keys: bson.D{{Key: "refresh_token", Value: 1}}, Options: options.Index().SetName("users_refresh_token_idx")},
		},
		ordersCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}, Options: options.Index().SetName("orders_user_id_idx")},
		},
		productsCollection: {
			{Keys: bson.D{{Key: "category", Value: 1}}, Options: options.Index().SetName("products_category_idx")},
		},
	}

	for name, models := range indexes {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create indexes on "+name)
		}
		if s.logger != nil {
			s.logger.Debug("mongodb indexes ready on %s", name)
		}
	}

	return nil
}

// Close disconnects the client
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Database returns the underlying database
func (s *Store) Database() *mongo.Database {
	return s.db
}

func (s *Store) Users() storefront.UserStore {
	return s.users
}

func (s *Store) Products() storefront.ProductStore {
	return s.products
}

func (s *Store) Orders() storefront.OrderStore {
	return s.orders
}

// notFound reports a missing document the way the SQL stores do
func notFound(entity string, err error) error {
	return goerrors.Wrap(err, goerrors.CategoryNotFound, entity+" not found").
		WithTextCode(storefront.TextCodeNotFound).
		WithCode(goerrors.CodeNotFound)
}

func findOptionsNewestFirst() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
}
