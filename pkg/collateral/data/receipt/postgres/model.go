package postgres

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/code-payments/collateral-server/pkg/collateral/data/receipt"
	pgutil "github.com/code-payments/collateral-server/pkg/database/postgres"
)

const (
	tableName = "collateral__core_withdrawalreceipt"

	allFields = `id, path, chain_id, collateral, recipient, asset, amount, transaction_signature, signature_record, source_token_account, destination_token_account, status, error_kind, created_at`
)

type model struct {
	Id uuid.UUID `db:"id"`

	Path    string `db:"path"`
	ChainId int64  `db:"chain_id"`

	Collateral string `db:"collateral"`
	Recipient  string `db:"recipient"`
	Asset      string `db:"asset"`

	// NUMERIC(20, 0) holds the full uint64 range
	Amount string `db:"amount"`

	TransactionSignature    sql.NullString `db:"transaction_signature"`
	SignatureRecord         sql.NullString `db:"signature_record"`
	SourceTokenAccount      sql.NullString `db:"source_token_account"`
	DestinationTokenAccount sql.NullString `db:"destination_token_account"`

	Status    string         `db:"status"`
	ErrorKind sql.NullString `db:"error_kind"`

	CreatedAt time.Time `db:"created_at"`
}

func toModel(obj *receipt.Record) (*model, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}

	return &model{
		Id: obj.Id,

		Path:    string(obj.Path),
		ChainId: int64(obj.ChainId),

		Collateral: obj.Collateral,
		Recipient:  obj.Recipient,
		Asset:      obj.Asset,
		Amount:     strconv.FormatUint(obj.Amount, 10),

		TransactionSignature:    toNullString(obj.TransactionSignature),
		SignatureRecord:         toNullString(obj.SignatureRecord),
		SourceTokenAccount:      toNullString(obj.SourceTokenAccount),
		DestinationTokenAccount: toNullString(obj.DestinationTokenAccount),

		Status:    string(obj.Status),
		ErrorKind: toNullString(obj.ErrorKind),

		CreatedAt: obj.CreatedAt,
	}, nil
}

func fromModel(obj *model) (*receipt.Record, error) {
	amount, err := strconv.ParseUint(obj.Amount, 10, 64)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid amount for receipt %s", obj.Id)
	}

	return &receipt.Record{
		Id: obj.Id,

		Path:    receipt.Path(obj.Path),
		ChainId: uint64(obj.ChainId),

		Collateral: obj.Collateral,
		Recipient:  obj.Recipient,
		Asset:      obj.Asset,
		Amount:     amount,

		TransactionSignature:    obj.TransactionSignature.String,
		SignatureRecord:         obj.SignatureRecord.String,
		SourceTokenAccount:      obj.SourceTokenAccount.String,
		DestinationTokenAccount: obj.DestinationTokenAccount.String,

		Status:    receipt.Status(obj.Status),
		ErrorKind: obj.ErrorKind.String,

		CreatedAt: obj.CreatedAt.UTC(),
	}, nil
}

func toNullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: len(s) > 0}
}

func (m *model) dbPut(ctx context.Context, db *sqlx.DB) error {
	return pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		query := `INSERT INTO ` + tableName + `
			(` + allFields + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			RETURNING ` + allFields

		if m.CreatedAt.IsZero() {
			m.CreatedAt = time.Now()
		}

		err := tx.QueryRowxContext(
			ctx,
			query,
			m.Id,
			m.Path,
			m.ChainId,
			m.Collateral,
			m.Recipient,
			m.Asset,
			m.Amount,
			m.TransactionSignature,
			m.SignatureRecord,
			m.SourceTokenAccount,
			m.DestinationTokenAccount,
			m.Status,
			m.ErrorKind,
			m.CreatedAt.UTC(),
		).StructScan(m)

		return pgutil.CheckUniqueViolation(err, receipt.ErrReceiptExists)
	})
}

func dbGet(ctx context.Context, db *sqlx.DB, id uuid.UUID) (*model, error) {
	res := &model{}

	query := `SELECT ` + allFields + `
		FROM ` + tableName + `
		WHERE id = $1
		LIMIT 1`

	err := db.GetContext(ctx, res, query, id)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, receipt.ErrReceiptNotFound)
	}
	return res, nil
}

func dbGetAllByCollateral(ctx context.Context, db *sqlx.DB, collateral string, limit uint64) ([]*model, error) {
	res := []*model{}

	query := `SELECT ` + allFields + `
		FROM ` + tableName + `
		WHERE collateral = $1
		ORDER BY created_at DESC`

	var err error
	if limit > 0 {
		err = db.SelectContext(ctx, &res, query+` LIMIT $2`, collateral, limit)
	} else {
		err = db.SelectContext(ctx, &res, query, collateral)
	}
	if err != nil {
		return nil, pgutil.CheckNoRows(err, receipt.ErrReceiptNotFound)
	}

	if len(res) == 0 {
		return nil, receipt.ErrReceiptNotFound
	}
	return res, nil
}
