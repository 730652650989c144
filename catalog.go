package storefront

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-print"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// Listing limits of the public catalog
const (
	SearchLimit    = 10
	TopSellerLimit = 10
)

// Validate implements validation.Validatable
func (p Product) Validate() error {
	err := validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required),
		validation.Field(&p.Brand, validation.Required),
		validation.Field(&p.Category, validation.Required),
		validation.Field(&p.Image, validation.Required),
		validation.Field(&p.Price, validation.Min(0.0)),
		validation.Field(&p.Discount, validation.Min(0.0)),
		validation.Field(&p.Stock, validation.Min(0)),
	)
	if err != nil {
		return err
	}

	for i, r := range p.Reviews {
		if r.Rating < 1 || r.Rating > 5 {
			return validation.Errors{
				fmt.Sprintf("reviews.%d.rating", i): errors.New("must be between 1 and 5"),
			}
		}
	}

	return nil
}

// ProductService serves the catalog to shoppers and admins
type ProductService struct {
	products ProductStore
	logger   Logger
	debug    bool
}

func NewProductService(products ProductStore, logger Logger, debug bool) *ProductService {
	return &ProductService{products: products, logger: normalizeLogger(logger), debug: debug}
}

// List returns products newest first, optionally narrowed to a category
func (s *ProductService) List(ctx context.Context, category string) ([]*Product, error) {
	return s.list(ctx, ProductFilter{Category: strings.TrimSpace(category)})
}

// Search matches name, category or brand
func (s *ProductService) Search(ctx context.Context, q string) ([]*Product, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, BadRequest("Search query is required")
	}
	return s.list(ctx, ProductFilter{Query: q, Limit: SearchLimit})
}

// TopSellers returns products flagged as top sellers
func (s *ProductService) TopSellers(ctx context.Context) ([]*Product, error) {
	return s.list(ctx, ProductFilter{TopSeller: true, Limit: TopSellerLimit})
}

// ByCategory is List for a category that must not be empty
func (s *ProductService) ByCategory(ctx context.Context, category string) ([]*Product, error) {
	records, err := s.List(ctx, category)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, NotFound("No products found in this category")
	}
	return records, nil
}

// Get returns one product
func (s *ProductService) Get(ctx context.Context, id string) (*Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return nil, NotFound("Product not found")
		}
		return nil, serverError(err, "failed to load product")
	}
	return product, nil
}

// Create validates and stores a new product
func (s *ProductService) Create(ctx context.Context, product *Product) (*Product, error) {
	if product == nil {
		return nil, BadRequest("Invalid product payload")
	}

	// identity and timestamps are assigned by the store
	product.ID = uuid.Nil
	product.CreatedAt = time.Time{}
	product.UpdatedAt = time.Time{}

	normalizeProduct(product)
	if err := product.Validate(); err != nil {
		return nil, validationError(err)
	}

	if s.debug {
		s.logger.Debug("creating product %s", print.MaybePrettyJSON(product))
	}

	created, err := s.products.Create(ctx, product)
	if err != nil {
		return nil, serverError(err, "failed to create product")
	}
	return created, nil
}

// Update replaces the editable fields of a product
func (s *ProductService) Update(ctx context.Context, id string, changes *Product) (*Product, error) {
	if changes == nil {
		return nil, BadRequest("Invalid product payload")
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	changes.ID = current.ID
	changes.CreatedAt = current.CreatedAt
	normalizeProduct(changes)
	if err := changes.Validate(); err != nil {
		return nil, validationError(err)
	}

	saved, err := s.products.Save(ctx, changes)
	if err != nil {
		if IsNotFound(err) {
			return nil, NotFound("Product not found")
		}
		return nil, serverError(err, "failed to update product")
	}
	return saved, nil
}

// Delete removes a product
func (s *ProductService) Delete(ctx context.Context, id string) error {
	if err := s.products.Delete(ctx, id); err != nil {
		if IsNotFound(err) {
			return NotFound("Product not found")
		}
		return serverError(err, "failed to delete product")
	}
	return nil
}

func (s *ProductService) list(ctx context.Context, filter ProductFilter) ([]*Product, error) {
	records, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, serverError(err, "failed to fetch products")
	}
	if records == nil {
		records = []*Product{}
	}
	return records, nil
}

func normalizeProduct(p *Product) {
	p.Name = strings.TrimSpace(p.Name)
	p.Brand = strings.TrimSpace(p.Brand)
	p.Category = strings.TrimSpace(p.Category)
	if p.Slug == "" {
		p.Slug = slug.Make(p.Name)
	} else {
		p.Slug = slug.Make(p.Slug)
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	if p.Reviews == nil {
		p.Reviews = []Review{}
	}
	if p.Specifications == nil {
		p.Specifications = map[string]any{}
	}
}
