package storefront

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type users struct {
	repo repository.Repository[*User]
	db   bun.IDB
}

var _ UserStore = (*users)(nil)

// NewUsersRepository returns the bun backed credential store
func NewUsersRepository(db *bun.DB) UserStore {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{repo: repo, db: db}
}

func (a *users) FindByEmail(ctx context.Context, email string) (*User, error) {
	return a.findOne(ctx, "email", NormalizeEmail(email))
}

func (a *users) FindByID(ctx context.Context, id string) (*User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, recordNotFound("user", map[string]any{"id": id})
	}

	user, err := a.repo.GetByID(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return nil, recordNotFound("user", map[string]any{"id": id})
		}
		return nil, err
	}
	return user, nil
}

func (a *users) FindByRefreshToken(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, recordNotFound("user", nil)
	}
	return a.findOne(ctx, "refresh_token", token)
}

func (a *users) findOne(ctx context.Context, column string, value any) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.? = ?", bun.Ident(column), value).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if IsNotFound(err) {
			return nil, recordNotFound("user", map[string]any{"column": column})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) Create(ctx context.Context, user *User) (*User, error) {
	prepareUserDefaults(user)
	return a.repo.Create(ctx, user)
}

func (a *users) Save(ctx context.Context, user *User) (*User, error) {
	if user.Cart == nil {
		user.Cart = []CartItem{}
	}
	user.UpdatedAt = time.Now().UTC()

	if err := replaceRecord(ctx, a.db, "user", user.ID.String(), user); err != nil {
		return nil, err
	}
	return user, nil
}

func (a *users) ListByRole(ctx context.Context, role UserRole) ([]*User, error) {
	var records []*User
	err := a.db.NewSelect().
		Model(&records).
		Where("?TableAlias.user_role = ?", role).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func prepareUserDefaults(user *User) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.Role == "" {
		user.Role = RoleUser
	}
	if user.Cart == nil {
		user.Cart = []CartItem{}
	}

	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	user.Email = NormalizeEmail(user.Email)
}
