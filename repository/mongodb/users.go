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

// Users is the credential store backed by the users collection
type Users struct {
	collection *mongo.Collection
}

var _ storefront.UserStore = (*Users)(nil)

func (r *Users) FindByEmail(ctx context.Context, email string) (*storefront.User, error) {
	return r.findOne(ctx, bson.M{"email": storefront.NormalizeEmail(email)})
}

func (r *Users) FindByID(ctx context.Context, id string) (*storefront.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, notFound("user", mongo.ErrNoDocuments)
	}
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *Users) FindByRefreshToken(ctx context.Context, token string) (*storefront.User, error) {
	if token == "" {
		return nil, notFound("user", mongo.ErrNoDocuments)
	}
	return r.findOne(ctx, bson.M{"refresh_token": token})
}

func (r *Users) findOne(ctx context.Context, filter bson.M) (*storefront.User, error) {
	var doc userDocument
	if err := r.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		if stderrors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFound("user", err)
		}
		return nil, err
	}
	return doc.toModel(), nil
}

// Create inserts the user. A duplicate email fails on the unique index.
func (r *Users) Create(ctx context.Context, user *storefront.User) (*storefront.User, error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.Role == "" {
		user.Role = storefront.RoleUser
	}
	if user.Cart == nil {
		user.Cart = []storefront.CartItem{}
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	user.Email = storefront.NormalizeEmail(user.Email)

	if _, err := r.collection.InsertOne(ctx, toUserDocument(user)); err != nil {
		return nil, err
	}
	return user, nil
}

// Save replaces the stored record with user
func (r *Users) Save(ctx context.Context, user *storefront.User) (*storefront.User, error) {
	user.UpdatedAt = time.Now().UTC()

	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": user.ID.String()}, toUserDocument(user))
	if err != nil {
		return nil, err
	}
	if res.MatchedCount == 0 {
		return nil, notFound("user", mongo.ErrNoDocuments)
	}
	return user, nil
}

func (r *Users) ListByRole(ctx context.Context, role storefront.UserRole) ([]*storefront.User, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"role": string(role)}, findOptionsNewestFirst())
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []userDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	out := make([]*storefront.User, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toModel())
	}
	return out, nil
}
