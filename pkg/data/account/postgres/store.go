package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/code-payments/code-escrow/pkg/data/account"
	"github.com/code-payments/code-escrow/pkg/database/query"
)

type store struct {
	db *sqlx.DB
}

func New(db *sql.DB) account.Store {
	return &store{
		db: sqlx.NewDb(db, "pgx"),
	}
}

// Count implements account.Store.Count
func (s *store) Count(ctx context.Context) (uint64, error) {
	return dbGetCount(ctx, s.db)
}

// Save implements account.Store.Save
func (s *store) Save(ctx context.Context, records ...*account.Record) error {
	models := make([]*accountModel, len(records))
	for i, record := range records {
		model, err := toAccountModel(record)
		if err != nil {
			return err
		}
		models[i] = model
	}

	if err := dbSaveBatch(ctx, s.db, models); err != nil {
		return err
	}

	for i, model := range models {
		if model.Lamports == 0 {
			continue
		}
		fromAccountModel(model).CopyTo(records[i])
	}
	return nil
}

// Get implements account.Store.Get
func (s *store) Get(ctx context.Context, address string) (*account.Record, error) {
	model, err := dbGet(ctx, s.db, address)
	if err != nil {
		return nil, err
	}
	return fromAccountModel(model), nil
}

// GetMany implements account.Store.GetMany
func (s *store) GetMany(ctx context.Context, addresses ...string) (map[string]*account.Record, error) {
	models, err := dbGetMany(ctx, s.db, addresses)
	if err != nil {
		return nil, err
	}

	res := make(map[string]*account.Record, len(models))
	for _, model := range models {
		res[model.Address] = fromAccountModel(model)
	}
	return res, nil
}

// GetAllByOwner implements account.Store.GetAllByOwner
func (s *store) GetAllByOwner(ctx context.Context, owner string, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*account.Record, error) {
	models, err := dbGetAllByOwner(ctx, s.db, owner, cursor, limit, direction)
	if err != nil {
		return nil, err
	}

	res := make([]*account.Record, len(models))
	for i, model := range models {
		res[i] = fromAccountModel(model)
	}
	return res, nil
}
