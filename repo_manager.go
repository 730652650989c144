package storefront

import (
	"context"
	"database/sql"
	"errors"
	"log"

	goerrors "github.com/goliatone/go-errors"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// RepositoryManager exposes all repositories of a SQL store
type RepositoryManager interface {
	Stores
	Validate() error
	MustValidate()
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error
	Migrate(ctx context.Context) error
	Close() error
}

type mngr struct {
	db       *bun.DB
	users    UserStore
	products ProductStore
	orders   OrderStore
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:       db,
		users:    NewUsersRepository(db),
		products: NewProductsRepository(db),
		orders:   NewOrdersRepository(db),
	}
}

// OpenDatabase opens the SQL store selected by the configuration
func OpenDatabase(cfg StoreConfig) (*bun.DB, error) {
	switch cfg.Driver {
	case StoreSQLite:
		sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DSN)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open sqlite database")
		}
		// sqlite serializes writers, a single connection avoids SQLITE_BUSY
		sqldb.SetMaxOpenConns(1)
		return bun.NewDB(sqldb, sqlitedialect.New()), nil
	case StorePostgres:
		sqldb, err := sql.Open("pgx", cfg.DSN)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open postgres database")
		}
		return bun.NewDB(sqldb, pgdialect.New()), nil
	default:
		return nil, goerrors.New("unsupported SQL driver "+cfg.Driver, goerrors.CategoryBadInput)
	}
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.products == nil {
		return errors.New("repository products should be initialized")
	}

	if m.orders == nil {
		return errors.New("repository orders should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

// Migrate creates tables and indexes that do not exist yet
func (m mngr) Migrate(ctx context.Context) error {
	return m.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		models := []any{(*User)(nil), (*Product)(nil), (*Order)(nil)}
		for _, model := range models {
			if _, err := tx.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create table")
			}
		}

		indexes := []*bun.CreateIndexQuery{
			tx.NewCreateIndex().Model((*User)(nil)).Index("users_email_idx").Unique().Column("email").IfNotExists(),
			tx.NewCreateIndex().Model((*User)(nil)).Index("users_refresh_token_idx").Column("refresh_token").IfNotExists(),
			tx.NewCreateIndex().Model((*Order)(nil)).Index("orders_user_id_idx").Column("user_id").IfNotExists(),
			tx.NewCreateIndex().Model((*Product)(nil)).Index("products_category_idx").Column("category").IfNotExists(),
		}
		for _, idx := range indexes {
			if _, err := idx.Exec(ctx); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create index")
			}
		}

		return nil
	})
}

func (m mngr) Close() error {
	return m.db.Close()
}

func (m mngr) Users() UserStore {
	return m.users
}

func (m mngr) Products() ProductStore {
	return m.products
}

func (m mngr) Orders() OrderStore {
	return m.orders
}

// replaceRecord writes every column of record by primary key. Zero values
// are written too, so cleared fields (refresh token, flags, counters) persist.
func replaceRecord(ctx context.Context, db bun.IDB, entity, id string, record any) error {
	res, err := db.NewUpdate().
		Model(record).
		WherePK().
		Exec(ctx)
	if err != nil {
		return err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return recordNotFound(entity, map[string]any{"id": id})
	}
	return nil
}
