package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/code-payments/collateral-server/pkg/collateral/data/receipt"
)

type store struct {
	db *sqlx.DB
}

// New returns a new postgres-backed receipt.Store
func New(db *sql.DB) receipt.Store {
	return &store{
		db: sqlx.NewDb(db, "pgx"),
	}
}

// Put implements receipt.Store.Put
func (s *store) Put(ctx context.Context, record *receipt.Record) error {
	model, err := toModel(record)
	if err != nil {
		return err
	}

	if err := model.dbPut(ctx, s.db); err != nil {
		return err
	}

	res, err := fromModel(model)
	if err != nil {
		return err
	}
	res.CopyTo(record)

	return nil
}

// Get implements receipt.Store.Get
func (s *store) Get(ctx context.Context, id uuid.UUID) (*receipt.Record, error) {
	model, err := dbGet(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	return fromModel(model)
}

// GetAllByCollateral implements receipt.Store.GetAllByCollateral
func (s *store) GetAllByCollateral(ctx context.Context, collateral string, limit uint64) ([]*receipt.Record, error) {
	models, err := dbGetAllByCollateral(ctx, s.db, collateral, limit)
	if err != nil {
		return nil, err
	}

	res := make([]*receipt.Record, len(models))
	for i, model := range models {
		record, err := fromModel(model)
		if err != nil {
			return nil, err
		}
		res[i] = record
	}
	return res, nil
}
