package receipt

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type Path string

const (
	PathMultisig     Path = "multisig"
	PathSingleSigner Path = "single_signer"
	PathPrepare      Path = "prepare"
)

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusPrepared  Status = "prepared"
	StatusFailed    Status = "failed"
)

// Record is the outcome of one withdrawal call.
type Record struct {
	Id uuid.UUID

	Path    Path
	ChainId uint64

	Collateral string
	Recipient  string
	Asset      string
	Amount     uint64

	TransactionSignature    string
	SignatureRecord         string
	SourceTokenAccount      string
	DestinationTokenAccount string

	Status    Status
	ErrorKind string

	CreatedAt time.Time
}

func (r *Record) Validate() error {
	if r.Id == uuid.Nil {
		return errors.New("id is required")
	}

	switch r.Path {
	case PathMultisig, PathSingleSigner, PathPrepare:
	default:
		return errors.New("invalid path")
	}

	if r.ChainId == 0 {
		return errors.New("chain id is required")
	}

	if len(r.Collateral) == 0 {
		return errors.New("collateral is required")
	}

	if len(r.Recipient) == 0 {
		return errors.New("recipient is required")
	}

	if len(r.Asset) == 0 {
		return errors.New("asset is required")
	}

	switch r.Status {
	case StatusConfirmed:
		if len(r.TransactionSignature) == 0 {
			return errors.New("transaction signature is required for confirmed receipts")
		}
	case StatusPrepared:
		if r.Path != PathPrepare {
			return errors.New("only prepare receipts can be prepared")
		}
	case StatusFailed:
		if len(r.ErrorKind) == 0 {
			return errors.New("error kind is required for failed receipts")
		}
	default:
		return errors.New("invalid status")
	}

	return nil
}

func (r *Record) Clone() Record {
	return Record{
		Id: r.Id,

		Path:    r.Path,
		ChainId: r.ChainId,

		Collateral: r.Collateral,
		Recipient:  r.Recipient,
		Asset:      r.Asset,
		Amount:     r.Amount,

		TransactionSignature:    r.TransactionSignature,
		SignatureRecord:         r.SignatureRecord,
		SourceTokenAccount:      r.SourceTokenAccount,
		DestinationTokenAccount: r.DestinationTokenAccount,

		Status:    r.Status,
		ErrorKind: r.ErrorKind,

		CreatedAt: r.CreatedAt,
	}
}

func (r *Record) CopyTo(dst *Record) {
	dst.Id = r.Id

	dst.Path = r.Path
	dst.ChainId = r.ChainId

	dst.Collateral = r.Collateral
	dst.Recipient = r.Recipient
	dst.Asset = r.Asset
	dst.Amount = r.Amount

	dst.TransactionSignature = r.TransactionSignature
	dst.SignatureRecord = r.SignatureRecord
	dst.SourceTokenAccount = r.SourceTokenAccount
	dst.DestinationTokenAccount = r.DestinationTokenAccount

	dst.Status = r.Status
	dst.ErrorKind = r.ErrorKind

	dst.CreatedAt = r.CreatedAt
}
