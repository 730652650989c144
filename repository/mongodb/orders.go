package mongodb

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/goliatone/go-storefront"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Orders is the order store backed by the orders collection
type Orders struct {
	collection *mongo.Collection
}

var _ storefront.OrderStore = (*Orders)(nil)

func (r *Orders) Create(ctx context.Context, order *storefront.Order) (*storefront.Order, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	now := time.Now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, toOrderDocument(order)); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *Orders) FindByID(ctx context.Context, id string) (*storefront.Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, notFound("order", mongo.ErrNoDocuments)
	}

	var doc orderDocument
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if stderrors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFound("order", err)
		}
		return nil, err
	}
	return doc.toModel(), nil
}

func (r *Orders) List(ctx context.Context, filter storefront.OrderFilter) ([]*storefront.Order, error) {
	query := bson.M{}
	if filter.UserID != "" {
		query["user_id"] = filter.UserID
	}
	if filter.Status != "" {
		query["status"] = string(filter.Status)
	}
	if filter.PaymentStatus != "" {
		query["payment_status"] = string(filter.PaymentStatus)
	}
	if !filter.Since.IsZero() {
		query["created_at"] = bson.M{"$gte": filter.Since.UTC()}
	}

	cursor, err := r.collection.Find(ctx, query, findOptionsNewestFirst())
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []orderDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	out := make([]*storefront.Order, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toModel())
	}
	return out, nil
}

func (r *Orders) Save(ctx context.Context, order *storefront.Order) (*storefront.Order, error) {
	order.UpdatedAt = time.Now().UTC()

	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": order.ID.String()}, toOrderDocument(order))
	if err != nil {
		return nil, err
	}
	if res.MatchedCount == 0 {
		return nil, notFound("order", mongo.ErrNoDocuments)
	}
	return order, nil
}
