package mongodb

import (
	"context"
	stderrors "errors"
	"regexp"
	"strings"
	"time"

	"github.com/goliatone/go-storefront"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Products is the catalog store backed by the products collection
type Products struct {
	collection *mongo.Collection
}

var _ storefront.ProductStore = (*Products)(nil)

func (r *Products) List(ctx context.Context, filter storefront.ProductFilter) ([]*storefront.Product, error) {
	query := bson.M{}

	if filter.Category != "" {
		query["category"] = containsInsensitive(filter.Category)
	}

	if filter.Query != "" {
		pattern := containsInsensitive(filter.Query)
		query["$or"] = bson.A{
			bson.M{"name": pattern},
			bson.M{"category": pattern},
			bson.M{"brand": pattern},
		}
	}

	if filter.TopSeller {
		query["top_seller"] = true
	}

	opts := findOptionsNewestFirst()
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []productDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	out := make([]*storefront.Product, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toModel())
	}
	return out, nil
}

func (r *Products) FindByID(ctx context.Context, id string) (*storefront.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, notFound("product", mongo.ErrNoDocuments)
	}

	var doc productDocument
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if stderrors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFound("product", err)
		}
		return nil, err
	}
	return doc.toModel(), nil
}

func (r *Products) Create(ctx context.Context, product *storefront.Product) (*storefront.Product, error) {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	now := time.Now().UTC()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, toProductDocument(product)); err != nil {
		return nil, err
	}
	return product, nil
}

func (r *Products) Save(ctx context.Context, product *storefront.Product) (*storefront.Product, error) {
	product.UpdatedAt = time.Now().UTC()

	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": product.ID.String()}, toProductDocument(product))
	if err != nil {
		return nil, err
	}
	if res.MatchedCount == 0 {
		return nil, notFound("product", mongo.ErrNoDocuments)
	}
	return product, nil
}

func (r *Products) Delete(ctx context.Context, id string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return notFound("product", mongo.ErrNoDocuments)
	}
	return nil
}

func containsInsensitive(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(strings.TrimSpace(s)), Options: "i"}
}
