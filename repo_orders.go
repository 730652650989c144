package storefront

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type orders struct {
	repo repository.Repository[*Order]
	db   bun.IDB
}

var _ OrderStore = (*orders)(nil)

// NewOrdersRepository returns the bun backed order store
func NewOrdersRepository(db *bun.DB) OrderStore {
	repo := repository.NewRepository[*Order](db, repository.ModelHandlers[*Order]{
		NewRecord: func() *Order { return &Order{} },
		GetID: func(o *Order) uuid.UUID {
			if o == nil {
				return uuid.Nil
			}
			return o.ID
		},
		SetID: func(o *Order, id uuid.UUID) {
			if o != nil {
				o.ID = id
			}
		},
		GetIdentifier: func() string {
			return "id"
		},
	})

	return &orders{repo: repo, db: db}
}

func (o *orders) Create(ctx context.Context, order *Order) (*Order, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	now := time.Now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now

	return o.repo.Create(ctx, order)
}

func (o *orders) FindByID(ctx context.Context, id string) (*Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, recordNotFound("order", map[string]any{"id": id})
	}

	order, err := o.repo.GetByID(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return nil, recordNotFound("order", map[string]any{"id": id})
		}
		return nil, err
	}
	return order, nil
}

func (o *orders) List(ctx context.Context, filter OrderFilter) ([]*Order, error) {
	var records []*Order
	q := o.db.NewSelect().Model(&records)

	if filter.UserID != "" {
		if _, err := uuid.Parse(filter.UserID); err != nil {
			return []*Order{}, nil
		}
		q = q.Where("?TableAlias.user_id = ?", filter.UserID)
	}

	if filter.Status != "" {
		q = q.Where("?TableAlias.status = ?", filter.Status)
	}

	if filter.PaymentStatus != "" {
		q = q.Where("?TableAlias.payment_status = ?", filter.PaymentStatus)
	}

	if !filter.Since.IsZero() {
		q = q.Where("?TableAlias.created_at >= ?", filter.Since.UTC())
	}

	if err := q.Order("created_at DESC").Scan(ctx); err != nil {
		return nil, err
	}

	return records, nil
}

func (o *orders) Save(ctx context.Context, order *Order) (*Order, error) {
	order.UpdatedAt = time.Now().UTC()

	if err := replaceRecord(ctx, o.db, "order", order.ID.String(), order); err != nil {
		return nil, err
	}
	return order, nil
}
