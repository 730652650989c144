package storefront

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type products struct {
	repo repository.Repository[*Product]
	db   bun.IDB
}

var _ ProductStore = (*products)(nil)

// NewProductsRepository returns the bun backed catalog store
func NewProductsRepository(db *bun.DB) ProductStore {
	repo := repository.NewRepository[*Product](db, repository.ModelHandlers[*Product]{
		NewRecord: func() *Product { return &Product{} },
		GetID: func(p *Product) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.ID
		},
		SetID: func(p *Product, id uuid.UUID) {
			if p != nil {
				p.ID = id
			}
		},
		GetIdentifier: func() string {
			return "slug"
		},
	})

	return &products{repo: repo, db: db}
}

func (p *products) List(ctx context.Context, filter ProductFilter) ([]*Product, error) {
	var records []*Product
	q := p.db.NewSelect().Model(&records)

	if filter.Category != "" {
		q = q.Where("LOWER(?TableAlias.category) LIKE ?", likePattern(filter.Category))
	}

	if filter.Query != "" {
		pattern := likePattern(filter.Query)
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("LOWER(?TableAlias.name) LIKE ?", pattern).
				WhereOr("LOWER(?TableAlias.category) LIKE ?", pattern).
				WhereOr("LOWER(?TableAlias.brand) LIKE ?", pattern)
		})
	}

	if filter.TopSeller {
		q = q.Where("?TableAlias.top_seller = ?", true)
	}

	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	if err := q.Order("created_at DESC").Scan(ctx); err != nil {
		return nil, err
	}

	return records, nil
}

func (p *products) FindByID(ctx context.Context, id string) (*Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, recordNotFound("product", map[string]any{"id": id})
	}

	product, err := p.repo.GetByID(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return nil, recordNotFound("product", map[string]any{"id": id})
		}
		return nil, err
	}
	return product, nil
}

func (p *products) Create(ctx context.Context, product *Product) (*Product, error) {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	now := time.Now().UTC()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now

	return p.repo.Create(ctx, product)
}

func (p *products) Save(ctx context.Context, product *Product) (*Product, error) {
	product.UpdatedAt = time.Now().UTC()

	if err := replaceRecord(ctx, p.db, "product", product.ID.String(), product); err != nil {
		return nil, err
	}
	return product, nil
}

func (p *products) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return recordNotFound("product", map[string]any{"id": id})
	}

	res, err := p.db.NewDelete().
		Model((*Product)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return recordNotFound("product", map[string]any{"id": id})
	}

	return nil
}

func likePattern(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("%", "", "_", "").Replace(s)
	return "%" + s + "%"
}
