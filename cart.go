package storefront

import (
	"context"
	"strings"
)

// CartProduct is the product snapshot a client adds to its cart
type CartProduct struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Image string  `json:"image"`
}

// AddToCartMessage adds qty units of a product, Qty defaults to 1
type AddToCartMessage struct {
	Product *CartProduct `json:"product"`
	Qty     *int         `json:"qty"`
}

func (m AddToCartMessage) Type() string { return "cart.add" }

// CartService mutates the cart embedded in the user record. Each call is a
// single user read followed by a single user write.
type CartService struct {
	users  UserStore
	logger Logger
}

func NewCartService(users UserStore, logger Logger) *CartService {
	return &CartService{users: users, logger: normalizeLogger(logger)}
}

// Items returns the cart of the user, empty when none
func (s *CartService) Items(ctx context.Context, userID string) ([]CartItem, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.CartItems(), nil
}

// Add increments the line of the same product or appends a new one
func (s *CartService) Add(ctx context.Context, userID string, msg AddToCartMessage) ([]CartItem, error) {
	if msg.Product == nil || strings.TrimSpace(msg.Product.ID) == "" {
		return nil, BadRequest("Invalid product payload")
	}

	qty := 1
	if msg.Qty != nil {
		qty = *msg.Qty
	}
	if qty < 1 {
		return nil, BadRequest("Quantity must be at least 1")
	}

	return s.mutate(ctx, userID, func(user *User) error {
		cart := user.CartItems()
		for i := range cart {
			if cart[i].ProductID == msg.Product.ID {
				cart[i].Quantity += qty
				user.Cart = cart
				return nil
			}
		}

		price := msg.Product.Price
		if price < 0 {
			price = 0
		}

		user.Cart = append(cart, CartItem{
			ProductID: msg.Product.ID,
			Name:      msg.Product.Name,
			Price:     price,
			Image:     msg.Product.Image,
			Quantity:  qty,
		})
		return nil
	})
}

// Update sets the quantity of a line, never below one
func (s *CartService) Update(ctx context.Context, userID, productID string, qty int) ([]CartItem, error) {
	if qty < 1 {
		qty = 1
	}

	return s.mutate(ctx, userID, func(user *User) error {
		cart := user.CartItems()
		for i := range cart {
			if cart[i].ProductID == productID {
				cart[i].Quantity = qty
				user.Cart = cart
				return nil
			}
		}
		return NotFound("Item not found in cart")
	})
}

// Remove drops the line of a product, absent lines are ignored
func (s *CartService) Remove(ctx context.Context, userID, productID string) ([]CartItem, error) {
	return s.mutate(ctx, userID, func(user *User) error {
		kept := make([]CartItem, 0, len(user.Cart))
		for _, item := range user.Cart {
			if item.ProductID != productID {
				kept = append(kept, item)
			}
		}
		user.Cart = kept
		return nil
	})
}

// Clear empties the cart
func (s *CartService) Clear(ctx context.Context, userID string) error {
	_, err := s.mutate(ctx, userID, func(user *User) error {
		user.Cart = []CartItem{}
		return nil
	})
	return err
}

func (s *CartService) mutate(ctx context.Context, userID string, fn func(*User) error) ([]CartItem, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := fn(user); err != nil {
		return nil, err
	}

	saved, err := s.users.Save(ctx, user)
	if err != nil {
		return nil, serverError(err, "failed to save cart")
	}

	return saved.CartItems(), nil
}

func (s *CartService) load(ctx context.Context, userID string) (*User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if IsNotFound(err) {
			return nil, NotFound("User not found")
		}
		return nil, serverError(err, "failed to load user")
	}
	return user, nil
}
