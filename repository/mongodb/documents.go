package mongodb

import (
	"time"

	"github.com/goliatone/go-storefront"
	"github.com/google/uuid"
)

type userDocument struct {
	ID           string                `bson:"_id"`
	Name         string                `bson:"name"`
	Email        string                `bson:"email"`
	PasswordHash string                `bson:"password_hash"`
	Role         string                `bson:"role"`
	Verified     bool                  `bson:"verified"`
	RefreshToken *string               `bson:"refresh_token,omitempty"`
	Cart         []storefront.CartItem `bson:"cart"`
	CreatedAt    time.Time             `bson:"created_at"`
	UpdatedAt    time.Time             `bson:"updated_at"`
}

func toUserDocument(u *storefront.User) *userDocument {
	cart := u.Cart
	if cart == nil {
		cart = []storefront.CartItem{}
	}
	return &userDocument{
		ID:           u.ID.String(),
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		Verified:     u.Verified,
		RefreshToken: u.RefreshToken,
		Cart:         cart,
		CreatedAt:    u.CreatedAt.UTC(),
		UpdatedAt:    u.UpdatedAt.UTC(),
	}
}

func (d *userDocument) toModel() *storefront.User {
	cart := d.Cart
	if cart == nil {
		cart = []storefront.CartItem{}
	}
	return &storefront.User{
		ID:           parseID(d.ID),
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Role:         storefront.UserRole(d.Role),
		Verified:     d.Verified,
		RefreshToken: d.RefreshToken,
		Cart:         cart,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

type productDocument struct {
	ID             string              `bson:"_id"`
	Name           string              `bson:"name"`
	Slug           string              `bson:"slug"`
	Brand          string              `bson:"brand"`
	Category       string              `bson:"category"`
	Description    string              `bson:"description"`
	Price          float64             `bson:"price"`
	Discount       float64             `bson:"discount"`
	Stock          int                 `bson:"stock"`
	Rating         float64             `bson:"rating"`
	TopSeller      bool                `bson:"top_seller"`
	Image          string              `bson:"image"`
	Images         []string            `bson:"images"`
	Specifications map[string]any      `bson:"specifications"`
	Reviews        []storefront.Review `bson:"reviews"`
	CreatedAt      time.Time           `bson:"created_at"`
	UpdatedAt      time.Time           `bson:"updated_at"`
}

func toProductDocument(p *storefront.Product) *productDocument {
	return &productDocument{
		ID:             p.ID.String(),
		Name:           p.Name,
		Slug:           p.Slug,
		Brand:          p.Brand,
		Category:       p.Category,
		Description:    p.Description,
		Price:          p.Price,
		Discount:       p.Discount,
		Stock:          p.Stock,
		Rating:         p.Rating,
		TopSeller:      p.TopSeller,
		Image:          p.Image,
		Images:         p.Images,
		Specifications: p.Specifications,
		Reviews:        p.Reviews,
		CreatedAt:      p.CreatedAt.UTC(),
		UpdatedAt:      p.UpdatedAt.UTC(),
	}
}

func (d *productDocument) toModel() *storefront.Product {
	return &storefront.Product{
		ID:             parseID(d.ID),
		Name:           d.Name,
		Slug:           d.Slug,
		Brand:          d.Brand,
		Category:       d.Category,
		Description:    d.Description,
		Price:          d.Price,
		Discount:       d.Discount,
		Stock:          d.Stock,
		Rating:         d.Rating,
		TopSeller:      d.TopSeller,
		Image:          d.Image,
		Images:         d.Images,
		Specifications: d.Specifications,
		Reviews:        d.Reviews,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

type orderDocument struct {
	ID            string                 `bson:"_id"`
	UserID        string                 `bson:"user_id"`
	Items         []storefront.OrderItem `bson:"items"`
	Shipping      storefront.Shipping    `bson:"shipping"`
	Total         float64                `bson:"total"`
	Status        string                 `bson:"status"`
	PaymentStatus string                 `bson:"payment_status"`
	PaymentInfo   map[string]any         `bson:"payment_info"`
	CreatedAt     time.Time              `bson:"created_at"`
	UpdatedAt     time.Time              `bson:"updated_at"`
}

func toOrderDocument(o *storefront.Order) *orderDocument {
	return &orderDocument{
		ID:            o.ID.String(),
		UserID:        o.UserID.String(),
		Items:         o.Items,
		Shipping:      o.Shipping,
		Total:         o.Total,
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		PaymentInfo:   o.PaymentInfo,
		CreatedAt:     o.CreatedAt.UTC(),
		UpdatedAt:     o.UpdatedAt.UTC(),
	}
}

func (d *orderDocument) toModel() *storefront.Order {
	info := d.PaymentInfo
	if info == nil {
		info = map[string]any{}
	}
	return &storefront.Order{
		ID:            parseID(d.ID),
		UserID:        parseID(d.UserID),
		Items:         d.Items,
		Shipping:      d.Shipping,
		Total:         d.Total,
		Status:        storefront.OrderStatus(d.Status),
		PaymentStatus: storefront.PaymentStatus(d.PaymentStatus),
		PaymentInfo:   info,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

func parseID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}
