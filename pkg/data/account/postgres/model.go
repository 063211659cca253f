package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/code-payments/code-escrow/pkg/data/account"

	pgutil "github.com/code-payments/code-escrow/pkg/database/postgres"
	q "github.com/code-payments/code-escrow/pkg/database/query"
)

const (
	accountTableName = "escrow__core_account"

	allColumns = "id, address, owner, lamports, data, executable, slot, last_updated_at"
)

// Balances and slots are unsigned 64-bit values stored bit-for-bit in BIGINT
// columns.
type accountModel struct {
	Id            sql.NullInt64 `db:"id"`
	Address       string        `db:"address"`
	Owner         string        `db:"owner"`
	Lamports      int64         `db:"lamports"`
	Data          []byte        `db:"data"`
	Executable    bool          `db:"executable"`
	Slot          int64         `db:"slot"`
	LastUpdatedAt time.Time     `db:"last_updated_at"`
}

func toAccountModel(obj *account.Record) (*accountModel, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}

	data := obj.Data
	if data == nil {
		data = []byte{}
	}

	return &accountModel{
		Id:            sql.NullInt64{Int64: int64(obj.Id), Valid: obj.Id > 0},
		Address:       obj.Address,
		Owner:         obj.Owner,
		Lamports:      int64(obj.Lamports),
		Data:          data,
		Executable:    obj.Executable,
		Slot:          int64(obj.Slot),
		LastUpdatedAt: time.Now().UTC(),
	}, nil
}

func fromAccountModel(obj *accountModel) *account.Record {
	var data []byte
	if len(obj.Data) > 0 {
		data = obj.Data
	}

	return &account.Record{
		Id:            uint64(obj.Id.Int64),
		Address:       obj.Address,
		Owner:         obj.Owner,
		Lamports:      uint64(obj.Lamports),
		Data:          data,
		Executable:    obj.Executable,
		Slot:          uint64(obj.Slot),
		LastUpdatedAt: obj.LastUpdatedAt.UTC(),
	}
}

func (m *accountModel) dbSave(ctx context.Context, tx *sqlx.Tx) error {
	query := `INSERT INTO ` + accountTableName + `
		(address, owner, lamports, data, executable, slot, last_updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (address)
		DO UPDATE
			SET owner = $2, lamports = $3, data = $4, executable = $5, slot = $6, last_updated_at = $7
			WHERE ` + accountTableName + `.address = $1
		RETURNING
			` + allColumns

	return tx.QueryRowxContext(
		ctx,
		query,
		m.Address,
		m.Owner,
		m.Lamports,
		m.Data,
		m.Executable,
		m.Slot,
		m.LastUpdatedAt,
	).StructScan(m)
}

func (m *accountModel) dbDelete(ctx context.Context, tx *sqlx.Tx) error {
	query := `DELETE FROM ` + accountTableName + ` WHERE address = $1`

	_, err := tx.ExecContext(ctx, query, m.Address)
	return err
}

func dbSaveBatch(ctx context.Context, db *sqlx.DB, models []*accountModel) error {
	return pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		for _, model := range models {
			var err error
			if model.Lamports == 0 {
				err = model.dbDelete(ctx, tx)
			} else {
				err = model.dbSave(ctx, tx)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func dbGetCount(ctx context.Context, db *sqlx.DB) (uint64, error) {
	var res uint64

	query := `SELECT COUNT(*) FROM ` + accountTableName
	err := db.GetContext(ctx, &res, query)
	if err != nil {
		return 0, err
	}

	return res, nil
}

func dbGet(ctx context.Context, db *sqlx.DB, address string) (*accountModel, error) {
	res := &accountModel{}

	query := `SELECT ` + allColumns + `
		FROM ` + accountTableName + `
		WHERE address = $1
		LIMIT 1`

	err := db.GetContext(ctx, res, query, address)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, account.ErrAccountNotFound)
	}
	return res, nil
}

func dbGetMany(ctx context.Context, db *sqlx.DB, addresses []string) ([]*accountModel, error) {
	res := []*accountModel{}
	if len(addresses) == 0 {
		return res, nil
	}

	query, args, err := sqlx.In(`SELECT `+allColumns+`
		FROM `+accountTableName+`
		WHERE address IN (?)`, addresses)
	if err != nil {
		return nil, err
	}

	err = db.SelectContext(ctx, &res, db.Rebind(query), args...)
	if err != nil && !pgutil.IsNoRows(err) {
		return nil, err
	}
	return res, nil
}

func dbGetAllByOwner(ctx context.Context, db *sqlx.DB, owner string, cursor q.Cursor, limit uint64, direction q.Ordering) ([]*accountModel, error) {
	res := []*accountModel{}

	query := `SELECT ` + allColumns + `
		FROM ` + accountTableName + `
		WHERE (owner = $1)
	`

	opts := []interface{}{owner}
	query, opts = q.PaginateQuery(query, opts, cursor, limit, direction)

	err := db.SelectContext(ctx, &res, query, opts...)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, account.ErrAccountNotFound)
	}

	if len(res) == 0 {
		return nil, account.ErrAccountNotFound
	}

	return res, nil
}
